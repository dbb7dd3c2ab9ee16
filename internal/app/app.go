// Package app wires the daemon together: configuration, logging, the
// search index lifecycle manager, the incremental watcher, and the event
// hub the query surface publishes through.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/convoidx/convoidx/internal/config"
	"github.com/convoidx/convoidx/internal/domain/events"
	"github.com/convoidx/convoidx/internal/hub"
	"github.com/convoidx/convoidx/internal/searchindex"
	"github.com/convoidx/convoidx/internal/sidemeta"
)

// App owns the daemon's top-level lifecycle: one searchindex.Manager, its
// watcher, and the event hub that both publish through.
type App struct {
	cfg     *config.Config
	version string
	logger  zerolog.Logger

	hub     *hub.Hub
	manager *searchindex.Manager
	watcher *searchindex.Watcher
	side    *sidemeta.Cache

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// New constructs an App and opens the search index, applying the
// schema-version gate (I8/P9) and running a bulk pass when the index was
// just created or rebuilt.
func New(cfg *config.Config, version string) (*App, error) {
	logger := newLogger(cfg)

	sideCache, err := openSidebandCache(cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("sideband cache unavailable, falling back to uncached parsing")
	}

	eventHub := hub.New()

	opts := searchindex.Options{
		BulkHeapMB:        cfg.Index.BulkHeapMB,
		IncrementalHeapMB: cfg.Index.IncrementalHeapMB,
		MergeInterval:     time.Duration(cfg.Index.MergeIntervalSeconds) * time.Second,
	}

	manager, needsBulk, err := searchindex.Open(cfg.Index.Directory, cfg.Corpus.Root, opts, eventHub, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	if sideCache != nil {
		manager.SetSidebandCache(sideCache)
	}

	a := &App{
		cfg:     cfg,
		version: version,
		logger:  logger,
		hub:     eventHub,
		manager: manager,
		side:    sideCache,
	}

	if needsBulk {
		logger.Info().Msg("index missing or stale, running initial bulk pass")
		if _, err := manager.BulkIndex(); err != nil {
			return nil, fmt.Errorf("initial bulk index failed: %w", err)
		}
	}

	if cfg.Watcher.Enabled {
		a.watcher = searchindex.NewWatcher(manager, time.Duration(cfg.Watcher.DebounceSeconds)*time.Second, logger)
	}

	return a, nil
}

// Start runs the daemon until ctx is cancelled, then shuts down in reverse
// startup order: watcher, merge loop, hub.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	a.startedAt = time.Now()
	a.mu.Unlock()

	if err := a.hub.Start(); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}
	a.hub.Subscribe(hub.NewLogSubscriber("internal-logger", func(event events.Event) {
		a.logger.Debug().Str("event", string(event.Type())).Msg("event published")
	}))

	a.manager.Start()

	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
	}

	a.logger.Info().
		Str("version", a.version).
		Str("corpus_root", a.cfg.Corpus.Root).
		Str("index_dir", a.cfg.Index.Directory).
		Bool("watcher_enabled", a.cfg.Watcher.Enabled).
		Msg("convoidx started")

	<-ctx.Done()
	return a.Stop()
}

// Stop tears the daemon down; safe to call after Start returns from ctx
// cancellation, idempotent otherwise.
func (a *App) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn().Err(err).Msg("watcher stop failed")
		}
	}
	if err := a.manager.Stop(); err != nil {
		a.logger.Warn().Err(err).Msg("search index stop failed")
	}
	if a.side != nil {
		if err := a.side.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("sideband cache close failed")
		}
	}
	if err := a.hub.Stop(); err != nil {
		a.logger.Warn().Err(err).Msg("event hub stop failed")
	}

	a.logger.Info().Msg("convoidx stopped")
	return nil
}

// Manager exposes the search index for one-shot commands (reindex,
// search, sessions, stats) that don't want the watcher or merge loop.
func (a *App) Manager() *searchindex.Manager { return a.manager }

// Hub exposes the event hub to callers that want to subscribe directly.
func (a *App) Hub() *hub.Hub { return a.hub }

// newLogger builds the daemon's own structured logger, independent of the
// corpus it indexes: console writer for interactive use, optional
// lumberjack-rotated file output when logging.rotation is enabled.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if cfg.Logging.Format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	if cfg.Logging.Rotation.Enabled && cfg.Logging.Rotation.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.Logging.Rotation.File,
			MaxSize:    cfg.Logging.Rotation.MaxSizeMB,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			MaxAge:     cfg.Logging.Rotation.MaxAgeDays,
			Compress:   cfg.Logging.Rotation.Compress,
		}
		out = zerolog.MultiLevelWriter(out, fileWriter)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// openSidebandCache opens the persistent sideband cache alongside the
// index directory, so it shares the same data-directory lifetime as the
// segment files it accelerates lookups for.
func openSidebandCache(cfg *config.Config, logger zerolog.Logger) (*sidemeta.Cache, error) {
	dbPath := filepath.Join(cfg.Index.Directory, "sidemeta.db")
	c, err := sidemeta.Open(dbPath)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("path", dbPath).Msg("sideband cache opened")
	return c, nil
}
