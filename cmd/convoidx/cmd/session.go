package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// sessionCmd is the parent command for single-session lookups:
// sessionDetail and conversation (§4.7.3, §4.7.4).
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect a single indexed session",
}

var sessionDetailCmd = &cobra.Command{
	Use:   "detail <session-id>",
	Short: "Show the full detail record for one session",
	Long: `detail implements sessionDetail: the full session record,
including token counts, turn depth, and the on-disk log path.

Example:
  convoidx session detail 3f1b2c...`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionDetail,
}

var sessionConversationCmd = &cobra.Command{
	Use:   "conversation <session-id>",
	Short: "Reconstruct the conversation for one session",
	Long: `conversation implements §4.7.4: if the log file still exists on
disk, it is reparsed for full fidelity; otherwise the conversation is
rebuilt from the index's message docs, ordered by (turnIndex,
blockIndex), and each line is marked truncated.

Example:
  convoidx session conversation 3f1b2c...`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionConversation,
}

func init() {
	sessionCmd.AddCommand(sessionDetailCmd)
	sessionCmd.AddCommand(sessionConversationCmd)
}

func runSessionDetail(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	manager, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Stop() }()

	detail, err := manager.SessionDetail(args[0])
	if err != nil {
		return fmt.Errorf("sessionDetail failed: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Session ID:\t%s\n", detail.SessionID)
	fmt.Fprintf(w, "Project:\t%s\n", detail.ProjectPath)
	fmt.Fprintf(w, "Summary:\t%s\n", detail.Summary)
	fmt.Fprintf(w, "Status:\t%s\n", detail.Status)
	fmt.Fprintf(w, "Git branch:\t%s\n", detail.GitBranch)
	fmt.Fprintf(w, "Model:\t%s\n", detail.Model)
	fmt.Fprintf(w, "Messages:\t%d\n", detail.MessageCount)
	fmt.Fprintf(w, "Turn depth:\t%d\n", detail.TurnDepth)
	fmt.Fprintf(w, "Input tokens:\t%d\n", detail.InputTokens)
	fmt.Fprintf(w, "Output tokens:\t%d\n", detail.OutputTokens)
	fmt.Fprintf(w, "Total tokens:\t%d\n", detail.TotalTokens)
	fmt.Fprintf(w, "Has tool use:\t%t\n", detail.HasToolUse)
	fmt.Fprintf(w, "File exists:\t%t\n", detail.FileExists)
	fmt.Fprintf(w, "Archived:\t%t\n", detail.Archived)
	fmt.Fprintf(w, "Log path:\t%s\n", detail.LogPath)
	return nil
}

func runSessionConversation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	manager, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Stop() }()

	messages, err := manager.Conversation(args[0])
	if err != nil {
		return fmt.Errorf("conversation failed: %w", err)
	}

	for _, m := range messages {
		suffix := ""
		if m.Truncated {
			suffix = " (truncated)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%s/%s]%s %s\n", m.Role, m.ContentType, suffix, m.Text)
	}
	return nil
}
