package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/convoidx/convoidx/internal/app"
	"github.com/convoidx/convoidx/internal/config"
)

// serveCmd runs the daemon: bulk-indexes the corpus if the on-disk index
// is missing or stale, then watches it for changes until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Index the corpus and watch it for changes",
	Long: `serve opens (or builds) the search index for the configured
corpus, then runs until interrupted: the incremental watcher keeps it in
sync with new, modified, and removed session logs, and the merge thread
periodically gives the index engine a checkpoint.

Example:
  convoidx serve
  convoidx serve --config /etc/convoidx/config.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	application, err := app.New(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to initialize convoidx: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return application.Start(ctx)
}
