package searchindex

import (
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/convoidx/convoidx/internal/corpus"
	dtypes "github.com/convoidx/convoidx/internal/domain/types"
)

// progressStride is how many files the indexing phase advances between
// progress events, beyond the phase-transition events themselves.
const progressStride = 500

// docChannelDepth is the bounded channel between parser workers and the
// single writer-owning consumer (§5, "Parallel producer, serial
// consumer").
const docChannelDepth = 64

// BulkIndex walks corpusRoot, parses every session log file in parallel,
// and funnels the results through one writer-owning consumer that
// accumulates a single batch committed once at the end — the literal
// "large writer heap to minimize segment count" tradeoff from §4.4,
// modeled here as one in-memory bleve.Batch rather than many small ones.
// It returns the number of session docs written.
func (m *Manager) BulkIndex() (int, error) {
	m.publishProgress(dtypes.IndexProgress{Phase: dtypes.PhaseDiscovering})
	paths, err := discoverLogFiles(m.corpusRoot)
	if err != nil {
		return 0, err
	}
	m.publishProgress(dtypes.IndexProgress{Phase: dtypes.PhaseDiscovering, Current: len(paths), Total: len(paths)})

	m.publishProgress(dtypes.IndexProgress{Phase: dtypes.PhaseLoadingMetadata, Total: len(paths)})
	sidebands := m.loadSidebandsFor(paths)

	m.publishProgress(dtypes.IndexProgress{Phase: dtypes.PhaseIndexing, Total: len(paths)})
	sessionCount, err := m.indexAll(paths, sidebands)
	if err != nil {
		return 0, err
	}

	m.publishProgress(dtypes.IndexProgress{Phase: dtypes.PhaseCommitting, Total: len(paths)})
	if err := m.writeSidecar(sessionCount); err != nil {
		m.logger.Warn().Err(err).Msg("failed to write sidecar after bulk index")
	}
	return sessionCount, nil
}

// discoverLogFiles recursively collects every ".log" path under root.
func discoverLogFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A single unreadable directory entry does not abort discovery.
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".log") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// loadSidebandsFor loads sessions-index.json once per distinct project
// directory among paths, caching the result in memory so files in the same
// directory share a lookup. When m carries a sidemeta.Cache, each
// directory's sideband is additionally cached across process restarts,
// keyed by the sideband file's own mtime (§4.4's metadata pre-pass,
// persisted rather than repeated on every bulk run).
func (m *Manager) loadSidebandsFor(paths []string) map[string]corpus.Sideband {
	out := make(map[string]corpus.Sideband)
	for _, p := range paths {
		dir := filepath.Dir(p)
		if _, ok := out[dir]; ok {
			continue
		}
		out[dir] = m.loadSideband(dir)
	}
	return out
}

// loadSideband resolves one directory's sideband, preferring the
// persistent cache when one is attached.
func (m *Manager) loadSideband(dir string) corpus.Sideband {
	if m.sideCache != nil {
		sb, err := m.sideCache.Load(dir)
		if err == nil {
			return sb
		}
		m.logger.Warn().Err(err).Str("dir", dir).Msg("sideband cache lookup failed, falling back")
	}
	sb, err := corpus.LoadSideband(dir)
	if err != nil {
		return corpus.Sideband{}
	}
	return sb
}

// indexAll runs the parser worker pool and single consumer, returning the
// number of session docs committed.
func (m *Manager) indexAll(paths []string, sidebands map[string]corpus.Sideband) (int, error) {
	jobs := make(chan string)
	results := make(chan *corpus.ParseResult, docChannelDepth)

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for path := range jobs {
				dir := filepath.Dir(path)
				projectRaw := filepath.Base(dir)
				sessionID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				if !corpus.ValidSessionID(sessionID) {
					m.logger.Warn().Str("path", path).Msg("skipping log file with non-UUID name")
					continue
				}

				var side *corpus.SidebandEntry
				if sb, ok := sidebands[dir]; ok {
					if entry, ok := sb[sessionID]; ok {
						side = &entry
					}
				}

				result, err := corpus.ParseFile(path, projectRaw, side)
				if err != nil {
					m.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable log file")
					continue
				}
				results <- result
			}
		}()
	}

	go func() {
		for _, p := range paths {
			jobs <- p
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	batch := m.idx.NewBatch()
	sessionCount := 0
	processed := 0
	for result := range results {
		if result.Session.SessionID == "" {
			continue
		}
		addToBatch(batch, result)
		sessionCount++
		processed++
		if processed%progressStride == 0 {
			m.publishProgress(dtypes.IndexProgress{Phase: dtypes.PhaseIndexing, Current: processed, Total: len(paths)})
		}
	}

	if err := m.withWriter(func(idx bleve.Index) error {
		return idx.Batch(batch)
	}); err != nil {
		return 0, err
	}
	return sessionCount, nil
}

// addToBatch stages one parsed session and its messages into batch
// without touching the writer lock; only the final Batch execution needs
// it.
func addToBatch(batch *bleve.Batch, result *corpus.ParseResult) {
	sessionID, sd, messages := buildDocuments(result)
	batch.Index(sessionID, sd)
	for _, msg := range messages {
		batch.Index(msg.ID, msg.Doc)
	}
}
