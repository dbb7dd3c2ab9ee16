package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/convoidx/convoidx/internal/config"
)

var (
	configInitLocal bool
	configInitForce bool
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and manage configuration",
	Long: `Without subcommands, shows the current effective configuration
(after defaults, config file, and CORPUS_*-prefixed environment variables
have all been applied).

Examples:
  convoidx config              # show current config
  convoidx config init         # create a config file with defaults
  convoidx config path         # show config search paths
  convoidx config get <key>    # get a config value
  convoidx config set <key> <value>`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		printConfig(cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	Long: `By default, creates ~/.convoidx/config.yaml. Use --local to
create ./config.yaml instead.

Examples:
  convoidx config init
  convoidx config init --local
  convoidx config init --force`,
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file search paths",
	Run:   runConfigPath,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Keys use dot notation, e.g.:
  convoidx config get index.directory
  convoidx config get watcher.debounce_seconds`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Creates ~/.convoidx/config.yaml if it doesn't exist yet. Keys
use dot notation, e.g.:
  convoidx config set index.bulk_heap_mb 1024
  convoidx config set watcher.enabled false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "create config in current directory instead of ~/.convoidx/")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	var configPath string
	if configInitLocal {
		configPath = "config.yaml"
	} else {
		dir, err := config.EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(dir, "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil && !configInitForce {
		return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("Edit this file to customize convoidx behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting config dir: %v\n", err)
		os.Exit(1)
	}

	locations := []string{
		"./config.yaml",
		filepath.Join(configDir, "config.yaml"),
		"/etc/convoidx/config.yaml",
	}

	fmt.Println("Config search paths (in order):")
	for i, loc := range locations {
		state := "not found"
		if _, err := os.Stat(loc); err == nil {
			state = "exists"
		}
		fmt.Printf("  %d. %s (%s)\n", i+1, loc, state)
	}
	fmt.Printf("\nConfig directory: %s\n", configDir)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := getConfigValue(cfg, args[0])
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	dir, err := config.EnsureConfigDir()
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(dir, "config.yaml")

	data := make(map[string]interface{})
	if content, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
	}

	if err := setNestedValue(data, key, value); err != nil {
		return err
	}

	content, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, configPath)
	return nil
}

func printConfig(cfg *config.Config) {
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("Corpus Root:         %s\n", cfg.Corpus.Root)
	fmt.Printf("Index Directory:     %s\n", cfg.Index.Directory)
	fmt.Printf("Bulk Heap (MB):      %d\n", cfg.Index.BulkHeapMB)
	fmt.Printf("Incremental Heap:    %d\n", cfg.Index.IncrementalHeapMB)
	fmt.Printf("Merge Interval (s):  %d\n", cfg.Index.MergeIntervalSeconds)
	fmt.Printf("Watcher Enabled:     %t\n", cfg.Watcher.Enabled)
	fmt.Printf("Watcher Debounce:    %ds\n", cfg.Watcher.DebounceSeconds)
	fmt.Printf("Log Level:           %s\n", cfg.Logging.Level)
	fmt.Printf("Log Format:          %s\n", cfg.Logging.Format)
	fmt.Printf("Default Limit:       %d\n", cfg.Query.DefaultSearchLimit)
}

func getConfigValue(cfg *config.Config, key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid key: %s", key)
	}

	switch parts[0] {
	case "corpus":
		switch parts[1] {
		case "root":
			return cfg.Corpus.Root, nil
		}
	case "index":
		switch parts[1] {
		case "directory":
			return cfg.Index.Directory, nil
		case "bulk_heap_mb":
			return cfg.Index.BulkHeapMB, nil
		case "incremental_heap_mb":
			return cfg.Index.IncrementalHeapMB, nil
		case "merge_interval_seconds":
			return cfg.Index.MergeIntervalSeconds, nil
		}
	case "watcher":
		switch parts[1] {
		case "enabled":
			return cfg.Watcher.Enabled, nil
		case "debounce_seconds":
			return cfg.Watcher.DebounceSeconds, nil
		}
	case "logging":
		switch parts[1] {
		case "level":
			return cfg.Logging.Level, nil
		case "format":
			return cfg.Logging.Format, nil
		}
	case "query":
		switch parts[1] {
		case "default_search_limit":
			return cfg.Query.DefaultSearchLimit, nil
		}
	}

	return nil, fmt.Errorf("unknown config key: %s", key)
}

func setNestedValue(data map[string]interface{}, key, value string) error {
	parts := strings.Split(key, ".")

	current := data
	for i := 0; i < len(parts)-1; i++ {
		if _, ok := current[parts[i]]; !ok {
			current[parts[i]] = make(map[string]interface{})
		}
		nested, ok := current[parts[i]].(map[string]interface{})
		if !ok {
			return fmt.Errorf("cannot set nested value: %s is not a map", parts[i])
		}
		current = nested
	}

	current[parts[len(parts)-1]] = parseValue(value)
	return nil
}

func parseValue(value string) interface{} {
	if value == "true" {
		return true
	}
	if value == "false" {
		return false
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	return value
}

const defaultConfigYAML = `# convoidx configuration
# Documentation: https://github.com/convoidx/convoidx

corpus:
  # Directory holding one subdirectory per encoded project, each with
  # *.log session files. Defaults to ~/.claude/projects.
  root: ""

index:
  # Directory the search index's segment files live under. Defaults to
  # <user-data-dir>/convoidx/bleve.
  directory: ""
  bulk_heap_mb: 512
  incremental_heap_mb: 50
  merge_interval_seconds: 300

watcher:
  enabled: true
  debounce_seconds: 2

logging:
  level: "info"
  format: "console"
  rotation:
    enabled: false
    file: ""
    max_size_mb: 50
    max_backups: 5
    max_age_days: 30
    compress: true

query:
  default_search_limit: 50
`
