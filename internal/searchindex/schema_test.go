package searchindex

import "testing"

// TestBuildMapping_FieldCount locks the 28-field count spec.md §3.2 names;
// a change here requires bumping SchemaVersion.
func TestBuildMapping_FieldCount(t *testing.T) {
	im := BuildMapping()

	session, ok := im.TypeMapping[string(DocTypeSession)]
	if !ok {
		t.Fatalf("no document mapping for %q", DocTypeSession)
	}
	message, ok := im.TypeMapping[string(DocTypeMessage)]
	if !ok {
		t.Fatalf("no document mapping for %q", DocTypeMessage)
	}

	const wantSessionFields = 20
	const wantMessageFields = 10
	if got := len(session.Properties); got != wantSessionFields {
		t.Errorf("session field count = %d, want %d", got, wantSessionFields)
	}
	if got := len(message.Properties); got != wantMessageFields {
		t.Errorf("message field count = %d, want %d", got, wantMessageFields)
	}

	// sessionId and docType are shared across both doc types (§3.2), so the
	// union of distinct field names across both mappings is 28, not the sum.
	union := make(map[string]struct{})
	for name := range session.Properties {
		union[name] = struct{}{}
	}
	for name := range message.Properties {
		union[name] = struct{}{}
	}
	if len(union) != 28 {
		t.Errorf("distinct field count = %d, want 28", len(union))
	}
}

func TestBuildMapping_DefaultMappingDisabled(t *testing.T) {
	im := BuildMapping()
	if im.DefaultMapping.Enabled {
		t.Errorf("DefaultMapping.Enabled = true, want false (only the two typed mappings should apply)")
	}
}
