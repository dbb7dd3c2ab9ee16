package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statsCmd implements indexStats.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long: `stats reports session and message counts, segment count, and
on-disk size for the configured index.

Example:
  convoidx stats`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	manager, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Stop() }()

	stats, err := manager.IndexStats()
	if err != nil {
		return fmt.Errorf("indexStats failed: %w", err)
	}

	fmt.Printf("Total sessions:    %d\n", stats.TotalSessions)
	fmt.Printf("Active sessions:   %d\n", stats.ActiveSessions)
	fmt.Printf("Archived sessions: %d\n", stats.ArchivedSessions)
	fmt.Printf("Total messages:    %d\n", stats.TotalMessages)
	fmt.Printf("Segment files:     %d\n", stats.SegmentCount)
	fmt.Printf("Index size:        %d bytes\n", stats.IndexSizeBytes)
	return nil
}
