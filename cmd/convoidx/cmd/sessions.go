package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	dtypes "github.com/convoidx/convoidx/internal/domain/types"
)

var (
	sessionsProject         string
	sessionsProjectPrefix   string
	sessionsGitBranch       string
	sessionsModel           string
	sessionsIncludeArchived bool
)

// sessionsCmd implements listSessions.
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List indexed sessions",
	Long: `sessions lists every indexed session, most recently modified
first, optionally narrowed by project, branch, or model.

Example:
  convoidx sessions
  convoidx sessions --project-prefix -Users-me-src- --include-archived`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsProject, "project", "", "exact raw encoded project name")
	sessionsCmd.Flags().StringVar(&sessionsProjectPrefix, "project-prefix", "", "raw encoded project name prefix")
	sessionsCmd.Flags().StringVar(&sessionsGitBranch, "git-branch", "", "restrict to one git branch")
	sessionsCmd.Flags().StringVar(&sessionsModel, "model", "", "restrict to one model")
	sessionsCmd.Flags().BoolVar(&sessionsIncludeArchived, "include-archived", false, "include archived (deleted-on-disk) sessions")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	manager, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Stop() }()

	filter := dtypes.SessionFilter{
		Project:         sessionsProject,
		ProjectPrefix:   sessionsProjectPrefix,
		GitBranch:       sessionsGitBranch,
		Model:           sessionsModel,
		IncludeArchived: sessionsIncludeArchived,
	}

	items, err := manager.ListSessions(filter)
	if err != nil {
		return fmt.Errorf("listSessions failed: %w", err)
	}

	for _, item := range items {
		status := item.Status
		if item.Archived {
			status = "archived"
		}
		fmt.Printf("%s  [%s]  %s  (%d msgs)\n", item.SessionID, status, item.Summary, item.MessageCount)
	}
	return nil
}
