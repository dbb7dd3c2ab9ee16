// Package pathutil provides path-encoding utilities matching the convention
// Claude Code uses to lay out session logs under ~/.claude/projects/.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// EncodePath converts a filesystem path to a flat string safe for use as
// a directory or file name. This matches the encoding Claude CLI uses for
// session storage under ~/.claude/projects/.
//
// Examples:
//
//	Unix:    /Users/brian/Projects/convoidx  → -Users-brian-Projects-convoidx
//	Windows: C:\Users\brian\Projects\convoidx → C:-Users-brian-Projects-convoidx
func EncodePath(path string) string {
	// filepath.Clean normalises separators and removes trailing slashes.
	// filepath.ToSlash converts OS-specific separators to "/", so the
	// subsequent replace works identically on Unix, macOS, and Windows.
	return strings.ReplaceAll(filepath.ToSlash(filepath.Clean(path)), "/", "-")
}

// Decode attempts to recover the original filesystem path from an encoded
// project directory name. The encoding is lossy: a real path segment may
// itself contain '-', so there is no way to tell where one segment boundary
// sat versus a literal hyphen inside a directory name. This is the Open
// Question the source format leaves unresolved; Decode returns its best
// guess and is advisory only. Callers that have a log-supplied `cwd` field
// should prefer it over this heuristic.
//
// The strategy walks the hyphen-separated parts left to right, one path
// segment at a time, and only merges a part into the previous segment (i.e.
// treats the '-' as a literal character rather than a separator) when doing
// so yields a path that exists on disk and the unmerged interpretation does
// not. This greedily favors real directories over the naive one-part-per-
// segment split without needing to explore every possible partition.
func Decode(encoded string) string {
	if encoded == "" {
		return ""
	}

	parts := strings.Split(encoded, "-")
	if len(parts) <= 1 {
		return strings.ReplaceAll(encoded, "-", string(filepath.Separator))
	}

	// A leading '-' (absolute Unix path) produces an empty first part.
	root := ""
	if parts[0] == "" {
		root = string(filepath.Separator)
		parts = parts[1:]
	}

	current := root
	segment := parts[0]
	for _, part := range parts[1:] {
		merged := segment + "-" + part
		if pathExists(filepath.Join(current, merged)) && !pathExists(filepath.Join(current, segment)) {
			segment = merged
			continue
		}
		current = filepath.Join(current, segment)
		segment = part
	}
	return filepath.Join(current, segment)
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
