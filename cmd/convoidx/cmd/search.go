package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	dtypes "github.com/convoidx/convoidx/internal/domain/types"
)

var (
	searchProject     string
	searchIncludeTool bool
	searchLimit       int
	searchDateFrom    string
	searchDateTo      string
	searchRole        string
)

// searchCmd implements the search operation.
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search message content across the corpus",
	Long: `search runs a full-text query against message content and
prints the matching sessions ranked by relevance, each with up to three
snippets.

Example:
  convoidx search "panic: nil pointer"
  convoidx search "deploy" --project myapp --role user --limit 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchProject, "project", "", "restrict to one project (raw encoded name)")
	searchCmd.Flags().BoolVar(&searchIncludeTool, "include-tool-output", false, "include tool_result content in matching")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max sessions to return (default from config)")
	searchCmd.Flags().StringVar(&searchDateFrom, "from", "", "only messages at or after this date (RFC3339 or YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchDateTo, "to", "", "only messages at or before this date (RFC3339 or YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchRole, "role", "", "restrict to one message role (user, assistant, tool)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	manager, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Stop() }()

	limit := searchLimit
	if limit == 0 {
		limit = cfg.Query.DefaultSearchLimit
	}

	filter := dtypes.SearchFilter{
		Project:           searchProject,
		IncludeToolOutput: searchIncludeTool,
		Limit:             limit,
		DateFrom:          searchDateFrom,
		DateTo:            searchDateTo,
		Role:              searchRole,
	}

	results, err := manager.Search(strings.Join(args, " "), filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No matches")
		return nil
	}

	for _, r := range results {
		fmt.Printf("%s  score=%.3f  %s\n", r.SessionID, r.Score, r.Summary)
		if r.ProjectPath != "" {
			fmt.Printf("  project: %s\n", r.ProjectPath)
		}
		for _, s := range r.Snippets {
			fmt.Printf("  [%s] %s\n", s.Role, s.Snippet)
		}
	}
	return nil
}
