package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/avkarenow/beacond/internal/app"
	"github.com/avkarenow/beacond/internal/config"
	"github.com/avkarenow/beacond/internal/http"
	"github.com/avkarenow/beacond/internal/lifecycle"
	"github.com/avkarenow/beacond/internal/metrics"
	"github.com/avkarenow/beacond/internal/notify"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the beacon in foreground",
		Long: `Run the heartbeat beacon in foreground mode.

This beats at the configured interval until interrupted. Use Ctrl+C to
stop.

This is useful for debugging or running in a container.`,
		RunE: runServe,
	}

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger.Info("starting beacond in foreground mode")

	beacon := buildBeacon(cfg, logger)

	if err := lifecycle.Run(cfg.Service.Name, beacon.Run, lifecycle.WithLogger(logger)); err != nil {
		return fmt.Errorf("beacon terminated: %w", err)
	}

	logger.Info("beacond stopped")
	return nil
}

// buildBeacon assembles the beacon and its outbound clients from the
// configuration.
func buildBeacon(cfg *config.Config, logger *slog.Logger, extra ...app.BeaconOption) *app.Beacon {
	// Create HTTP client with retry config
	httpClient := http.NewClient(
		http.WithRetryConfig(http.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		}),
		http.WithLogger(logger),
	)

	opts := []app.BeaconOption{
		app.WithLogger(logger),
	}

	// Create metrics pusher if enabled
	if cfg.Metrics.Enabled {
		metricsPusher := metrics.NewPushgatewayClient(
			cfg.Metrics.PushgatewayURL,
			metrics.WithHTTPClient(httpClient),
			metrics.WithLogger(logger),
		)
		opts = append(opts, app.WithMetricsPusher(metricsPusher))
	}

	// Create notifier if enabled
	if cfg.Apprise.Enabled {
		notifier := notify.NewAppriseClient(
			cfg.Apprise.URL,
			cfg.Apprise.Key,
			notify.WithHTTPClient(httpClient),
			notify.WithLogger(logger),
		)
		opts = append(opts, app.WithNotifier(notifier))
	}

	opts = append(opts, extra...)

	return app.NewBeacon(cfg, opts...)
}
