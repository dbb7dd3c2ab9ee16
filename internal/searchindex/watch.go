package searchindex

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/convoidx/convoidx/internal/corpus"
)

// pendingRename tracks a session log that fsnotify reported as Rename, kept
// around briefly in case the matching Create for the new name arrives
// (component D, §4.5).
type pendingRename struct {
	oldPath   string
	sessionID string
	timestamp time.Time
}

// Watcher implements the incremental watcher (component D): a recursive
// fsnotify watch over the corpus root that reingests changed session logs
// and archives removed ones, debounced per path.
type Watcher struct {
	mgr      *Manager
	root     string
	debounce time.Duration
	logger   zerolog.Logger

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	lastAt  map[string]time.Time
	running bool

	renameMu sync.Mutex
	renames  map[string]pendingRename
}

// NewWatcher builds a Watcher bound to mgr. debounce is the minimum gap
// required between two processed events for the same path (§4.5: events
// for a path processed less than debounce ago are dropped, not coalesced).
func NewWatcher(mgr *Manager, debounce time.Duration, logger zerolog.Logger) *Watcher {
	return &Watcher{
		mgr:      mgr,
		root:     mgr.CorpusRoot(),
		debounce: debounce,
		logger:   logger.With().Str("component", "watcher").Logger(),
		lastAt:   make(map[string]time.Time),
		renames:  make(map[string]pendingRename),
	}
}

// Start begins watching the corpus root. Calling it while the watcher is
// already running is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.running = true
	w.mu.Unlock()

	if err := w.addWatchRecursive(w.root); err != nil {
		_ = w.Stop()
		return err
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.staleRenameLoop()

	w.logger.Info().Str("root", w.root).Dur("debounce", w.debounce).Msg("incremental watcher started")
	return nil
}

// Stop tears down the watcher; safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	var err error
	if w.fsw != nil {
		err = w.fsw.Close()
	}
	w.wg.Wait()
	w.logger.Info().Msg("incremental watcher stopped")
	return err
}

func (w *Watcher) addWatchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.logger.Warn().Err(addErr).Str("path", path).Msg("failed to add watch")
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// staleRenameLoop treats a pending rename with no matching Create within
// 1s as a deletion, mirroring the filesystems (notably macOS/FSEvents)
// that report a delete as a bare Rename.
func (w *Watcher) staleRenameLoop() {
	defer w.wg.Done()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.flushStaleRenames()
		}
	}
}

func (w *Watcher) flushStaleRenames() {
	w.renameMu.Lock()
	defer w.renameMu.Unlock()
	now := time.Now()
	for dir, pending := range w.renames {
		if now.Sub(pending.timestamp) <= time.Second {
			continue
		}
		delete(w.renames, dir)
		w.archive(pending.sessionID, pending.oldPath)
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.EqualFold(filepath.Ext(event.Name), ".log") {
		if event.Op&fsnotify.Create == fsnotify.Create {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				_ = w.addWatchRecursive(event.Name)
			}
		}
		return
	}

	if w.mgr.Paused() {
		return
	}

	dir := filepath.Dir(event.Name)
	sessionID := sessionIDFromPath(event.Name)
	if !corpus.ValidSessionID(sessionID) {
		return
	}

	switch {
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		w.renameMu.Lock()
		w.renames[dir] = pendingRename{oldPath: event.Name, sessionID: sessionID, timestamp: time.Now()}
		w.renameMu.Unlock()
		return

	case event.Op&fsnotify.Remove == fsnotify.Remove:
		w.process(event.Name, func() { w.archive(sessionID, event.Name) })
		return

	case event.Op&fsnotify.Create == fsnotify.Create:
		w.renameMu.Lock()
		pending, had := w.renames[dir]
		if had && time.Since(pending.timestamp) < time.Second {
			delete(w.renames, dir)
			w.renameMu.Unlock()
			w.process(event.Name, func() {
				w.archive(pending.sessionID, pending.oldPath)
				w.reingest(event.Name, dir, sessionID)
			})
			return
		}
		w.renameMu.Unlock()
		w.process(event.Name, func() { w.reingest(event.Name, dir, sessionID) })
		return

	case event.Op&fsnotify.Write == fsnotify.Write:
		w.process(event.Name, func() { w.reingest(event.Name, dir, sessionID) })
		return

	default:
		return
	}
}

// process applies the per-path debounce gate: if path was processed less
// than w.debounce ago, the event is dropped rather than queued.
func (w *Watcher) process(path string, fn func()) {
	w.mu.Lock()
	if last, ok := w.lastAt[path]; ok && time.Since(last) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.lastAt[path] = time.Now()
	w.mu.Unlock()
	fn()
}

func (w *Watcher) reingest(path, dir, sessionID string) {
	projectRaw := filepath.Base(dir)
	var side *corpus.SidebandEntry
	if sb := w.mgr.loadSideband(dir); sb != nil {
		if entry, ok := sb[sessionID]; ok {
			side = &entry
		}
	}

	item, err := w.mgr.reingestSession(path, projectRaw, side)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("failed to reingest session")
		return
	}
	w.mgr.publishSessionUpdated(item)
}

func (w *Watcher) archive(sessionID, path string) {
	if sessionID == "" {
		return
	}
	item, found, err := w.mgr.archiveSession(sessionID)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("failed to archive session")
		return
	}
	if !found {
		return
	}
	w.mgr.publishSessionUpdated(item)
}

// sessionIDFromPath derives a session's id from its log file name, the
// same convention the bulk indexer uses (corpus log files are named
// "<sessionId>.log").
func sessionIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
