package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avkarenow/beacond/internal/app"
	"github.com/avkarenow/beacond/internal/lifecycle"
)

var runBeats uint64

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Emit a fixed number of heartbeats and exit",
		Long: `Emit a fixed number of heartbeats and exit.

This is useful for testing the monitoring pipeline or for one-off beats
from cron-style schedulers.`,
		RunE: runRun,
	}

	cmd.Flags().Uint64Var(&runBeats, "beats", 1, "number of heartbeats to emit before exiting")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	if runBeats == 0 {
		return fmt.Errorf("--beats must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	beacon := buildBeacon(cfg, logger, app.WithMaxBeats(runBeats))

	// The beacon raises its own stop event once the beat limit is reached;
	// an interrupt before that stops it early.
	if err := lifecycle.Run(cfg.Service.Name, beacon.Run, lifecycle.WithLogger(logger)); err != nil {
		return fmt.Errorf("beacon terminated: %w", err)
	}

	logger.Info("beats completed", "beats", runBeats)
	return nil
}
