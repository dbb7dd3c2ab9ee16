package searchindex

import (
	"time"

	"github.com/blevesearch/bleve/v2/search"
)

// fields is the typed accessor every other component uses to read a
// retrieved document's stored/fast values. Bleve hands back a generic
// map[string]interface{} per hit; this adapter isolates the handful of
// dynamic type assertions that implies to one place. A field absent or
// of the wrong underlying type reads as "absent" rather than erroring,
// matching the accessor contract: callers branch on the bool, never on
// an error.
type fields map[string]interface{}

func fieldsOf(hit *search.DocumentMatch) fields {
	return fields(hit.Fields)
}

func (f fields) str(name string) (string, bool) {
	v, ok := f[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (f fields) u64(name string) (uint64, bool) {
	v, ok := f[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return uint64(n), true
	case int:
		return uint64(n), true
	case int64:
		return uint64(n), true
	default:
		return 0, false
	}
}

func (f fields) boolean(name string) (bool, bool) {
	v, ok := f[name]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// date parses the stored date representation. Bleve serializes a
// DateTimeField's stored value as an RFC3339 string.
func (f fields) date(name string) (time.Time, bool) {
	s, ok := f.str(name)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, false
		}
	}
	return t, true
}
