// Package corpus decodes the on-disk conversation log corpus: one
// newline-delimited JSON file per session under
// <root>/<encoded-project>/<session-id>.log, plus an optional sibling
// sessions-index.json carrying precomputed per-session metadata.
package corpus
