// Package config handles configuration management for convoidx.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the daemon.
type Config struct {
	Corpus  CorpusConfig  `mapstructure:"corpus"`
	Index   IndexConfig   `mapstructure:"index"`
	Watcher WatcherConfig `mapstructure:"watcher"`
	Logging LoggingConfig `mapstructure:"logging"`
	Query   QueryConfig   `mapstructure:"query"`
}

// CorpusConfig points at the session-log corpus this process indexes.
type CorpusConfig struct {
	// Root is the directory containing one subdirectory per encoded
	// project, each holding *.log session files. Defaults to
	// ~/.claude/projects.
	Root string `mapstructure:"root"`
}

// IndexConfig controls where the search index lives and how its writer
// and merge policy behave.
type IndexConfig struct {
	// Directory holds the engine's segment files plus the schema-version
	// sidecar. Defaults to <user-data-dir>/convoidx/bleve.
	Directory string `mapstructure:"directory"`
	// BulkHeapMB is a writer heap figure for bulk passes. The lifecycle
	// manager only logs it at Open; it does not size any writer buffer.
	BulkHeapMB int `mapstructure:"bulk_heap_mb"`
	// IncrementalHeapMB is a writer heap figure for steady-state indexing.
	// The lifecycle manager only logs it at Open; no heap swap happens
	// after bulk indexing.
	IncrementalHeapMB int `mapstructure:"incremental_heap_mb"`
	// MergeIntervalSeconds is how often the background merge-commit loop
	// wakes (§4.5's "companion merge thread").
	MergeIntervalSeconds int `mapstructure:"merge_interval_seconds"`
}

// WatcherConfig controls the incremental file-watcher.
type WatcherConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// DebounceSeconds is the per-path debounce window (§4.5 fixes this at
	// 2s; the default here matches that, but the field stays configurable
	// for deployments with slower/faster filesystems).
	DebounceSeconds int `mapstructure:"debounce_seconds"`
}

// LoggingConfig configures the daemon's own structured logger, independent
// of the corpus it indexes.
type LoggingConfig struct {
	Level    string            `mapstructure:"level"`
	Format   string            `mapstructure:"format"`
	Rotation LogRotationConfig `mapstructure:"rotation"`
}

// LogRotationConfig controls rotation of the daemon's own log file via
// lumberjack, when logging to a file is enabled.
type LogRotationConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// QueryConfig holds defaults for the query layer.
type QueryConfig struct {
	DefaultSearchLimit int `mapstructure:"default_search_limit"`
}

// Load loads configuration from files and environment, in the same
// precedence order as the teacher daemon: explicit --config path, then
// ./config.yaml, then ~/.convoidx/config.yaml, then /etc/convoidx/config.yaml,
// with CORPUS_*-prefixed environment variables overriding all of them.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.convoidx")
		v.AddConfigPath("/etc/convoidx")
	}

	v.SetEnvPrefix("CORPUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("corpus.root", "")

	v.SetDefault("index.directory", "")
	v.SetDefault("index.bulk_heap_mb", 512)
	v.SetDefault("index.incremental_heap_mb", 50)
	v.SetDefault("index.merge_interval_seconds", 300)

	v.SetDefault("watcher.enabled", true)
	v.SetDefault("watcher.debounce_seconds", 2)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.rotation.enabled", false)
	v.SetDefault("logging.rotation.file", "")
	v.SetDefault("logging.rotation.max_size_mb", 50)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.max_age_days", 30)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("query.default_search_limit", 50)
}

// postProcess resolves corpus.root and index.directory to absolute,
// user-specific defaults when left unset, mirroring the teacher's
// RepositoryConfig path resolution.
func postProcess(cfg *Config) error {
	if cfg.Corpus.Root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.Corpus.Root = filepath.Join(home, ".claude", "projects")
	} else {
		abs, err := filepath.Abs(cfg.Corpus.Root)
		if err != nil {
			return fmt.Errorf("failed to resolve corpus.root: %w", err)
		}
		cfg.Corpus.Root = abs
	}

	if cfg.Index.Directory == "" {
		dataDir, err := userDataDir()
		if err != nil {
			return fmt.Errorf("failed to resolve index directory: %w", err)
		}
		cfg.Index.Directory = filepath.Join(dataDir, "convoidx", DefaultIndexSubdir)
	} else {
		abs, err := filepath.Abs(cfg.Index.Directory)
		if err != nil {
			return fmt.Errorf("failed to resolve index.directory: %w", err)
		}
		cfg.Index.Directory = abs
	}

	return nil
}

// userDataDir returns the platform's local data directory
// (XDG_DATA_HOME on Linux, falling back to ~/.local/share).
func userDataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}

// GetConfigDir returns the user config directory for convoidx.
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".convoidx"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
