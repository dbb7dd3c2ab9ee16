package config

import (
	"fmt"
)

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateIndex(&cfg.Index); err != nil {
		return err
	}
	if err := validateWatcher(&cfg.Watcher); err != nil {
		return err
	}
	if err := validateQuery(&cfg.Query); err != nil {
		return err
	}
	return nil
}

func validateIndex(cfg *IndexConfig) error {
	if cfg.BulkHeapMB < 1 {
		return fmt.Errorf("index.bulk_heap_mb must be at least 1")
	}
	if cfg.IncrementalHeapMB < 1 {
		return fmt.Errorf("index.incremental_heap_mb must be at least 1")
	}
	if cfg.MergeIntervalSeconds < 1 {
		return fmt.Errorf("index.merge_interval_seconds must be at least 1")
	}
	return nil
}

func validateWatcher(cfg *WatcherConfig) error {
	if cfg.DebounceSeconds < 0 {
		return fmt.Errorf("watcher.debounce_seconds cannot be negative")
	}
	if cfg.DebounceSeconds > 60 {
		return fmt.Errorf("watcher.debounce_seconds cannot exceed 60")
	}
	return nil
}

func validateQuery(cfg *QueryConfig) error {
	if cfg.DefaultSearchLimit < 1 {
		return fmt.Errorf("query.default_search_limit must be at least 1")
	}
	if cfg.DefaultSearchLimit > 10000 {
		return fmt.Errorf("query.default_search_limit cannot exceed 10000")
	}
	return nil
}
