package searchindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// newTestManager builds a Manager over an in-RAM bleve index (§4.1: "in-RAM
// construction for tests"), so unit tests never touch disk for the index
// itself. corpusRoot still needs a real directory since ParseFile reads
// actual files; callers that don't exercise BulkIndex can pass t.TempDir().
func newTestManager(t *testing.T, corpusRoot string) *Manager {
	t.Helper()
	idx, err := bleve.NewMemOnly(BuildMapping())
	if err != nil {
		t.Fatalf("bleve.NewMemOnly: %v", err)
	}
	return &Manager{
		idx:        idx,
		indexDir:   t.TempDir(),
		corpusRoot: corpusRoot,
		logger:     zerolog.Nop(),
		stopCh:     make(chan struct{}),
	}
}

// writeLog writes one project/session log file under root and returns its
// path. project is the raw encoded project directory name.
func writeLog(t *testing.T, root, project, sessionID string, lines []string) string {
	t.Helper()
	dir := filepath.Join(root, project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, sessionID+".log")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// newSessionID returns a fresh UUID string, matching the "<uuid>.log"
// naming convention the bulk indexer and watcher both require.
func newSessionID(t *testing.T) string {
	t.Helper()
	return uuid.NewString()
}
