package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// reindexCmd implements the reindexAll operation: set the pause flag,
// delete every document, run a fresh bulk pass, resume.
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from scratch",
	Long: `reindex deletes every document in the index and re-walks the
corpus from the beginning. Use this after changing how sessions should be
parsed, or to recover from a corrupted index without deleting the index
directory by hand.

Example:
  convoidx reindex`,
	RunE: runReindex,
}

func runReindex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	manager, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Stop() }()

	count, err := manager.ReindexAll()
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Printf("Reindexed %d sessions\n", count)
	return nil
}
