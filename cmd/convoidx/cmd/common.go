package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/convoidx/convoidx/internal/config"
	"github.com/convoidx/convoidx/internal/hub"
	"github.com/convoidx/convoidx/internal/searchindex"
)

// openManager opens the search index for a one-shot command: no watcher,
// no merge loop, no event hub subscribers, just the index plus (when
// missing or stale) a synchronous bulk pass so the command has something
// to query.
func openManager(cfg *config.Config) (*searchindex.Manager, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	eventHub := hub.New()
	opts := searchindex.Options{
		BulkHeapMB:        cfg.Index.BulkHeapMB,
		IncrementalHeapMB: cfg.Index.IncrementalHeapMB,
		MergeInterval:     0,
	}

	manager, needsBulk, err := searchindex.Open(cfg.Index.Directory, cfg.Corpus.Root, opts, eventHub, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	if needsBulk {
		if _, err := manager.BulkIndex(); err != nil {
			return nil, fmt.Errorf("bulk index failed: %w", err)
		}
	}
	return manager, nil
}
