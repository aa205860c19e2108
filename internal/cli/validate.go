package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/avkarenow/beacond/internal/config"
	"github.com/avkarenow/beacond/internal/http"
	"github.com/avkarenow/beacond/internal/metrics"
	"github.com/avkarenow/beacond/internal/notify"
	"github.com/avkarenow/beacond/internal/platform"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and test connectivity",
		Long: `Validate the configuration file and test connectivity to external services.

This checks:
- Config file syntax
- Service spec (name, scope, session targets)
- Native service control tool availability
- Pushgateway connectivity
- Apprise server connectivity (if enabled)`,
		RunE: runValidate,
	}

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	// Load config
	fmt.Println("Configuration:")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  ✗ Config file: %v\n", err)
		return err
	}
	fmt.Printf("  ✓ Config file syntax valid\n")

	// Display config values
	configPath, _ := config.DefaultConfigPath()
	if cfgFile != "" {
		configPath = cfgFile
	}
	fmt.Printf("  Config file: %s\n", configPath)
	fmt.Printf("  Service name: %s\n", cfg.Service.Name)
	fmt.Printf("  Scope: %s\n", cfg.Service.Scope)
	fmt.Printf("  Beat interval: %s\n", cfg.Beacon.Interval)
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics: enabled\n")
		fmt.Printf("  Pushgateway URL: %s\n", cfg.Metrics.PushgatewayURL)
	} else {
		fmt.Printf("  Metrics: disabled\n")
	}
	if cfg.Apprise.Enabled {
		fmt.Printf("  Notifications: enabled\n")
		fmt.Printf("  Apprise URL: %s\n", cfg.Apprise.URL)
		fmt.Printf("  Notification level: %s\n", cfg.Apprise.Notify)
	} else {
		fmt.Printf("  Notifications: disabled\n")
	}
	fmt.Println()

	fmt.Println("Checks:")
	logger, _ := setupLogging(cfg)

	// Check the service spec against this binary
	exe, err := os.Executable()
	if err != nil {
		fmt.Printf("  ✗ Executable path: %v\n", err)
	} else if spec, err := cfg.Service.Spec(exe); err != nil {
		fmt.Printf("  ✗ Service spec: %v\n", err)
	} else {
		fmt.Printf("  ✓ Service spec valid\n")

		// Check the native control tool and report install state
		if err := platform.Available(); err != nil {
			fmt.Printf("  ✗ Service control tool: %v\n", err)
		} else {
			fmt.Printf("  ✓ Service control tool available\n")

			ctrl, err := platform.New(spec, platform.WithLogger(logger))
			if err != nil {
				fmt.Printf("  ✗ Service controller: %v\n", err)
			} else if status, err := ctrl.Status(ctx); err != nil {
				fmt.Printf("  ✗ Service status: %v\n", err)
			} else {
				fmt.Printf("  ✓ Service state: %s\n", status.State)
			}
		}
	}

	// Create HTTP client
	httpClient := http.NewClient(
		http.WithRetryConfig(http.RetryConfig{
			MaxAttempts:  1, // No retries for validation
			InitialDelay: time.Second,
			MaxDelay:     time.Second,
		}),
		http.WithLogger(logger),
	)

	// Check pushgateway if enabled
	if cfg.Metrics.Enabled {
		pushgatewayClient := metrics.NewPushgatewayClient(
			cfg.Metrics.PushgatewayURL,
			metrics.WithHTTPClient(httpClient),
			metrics.WithLogger(logger),
		)

		if err := pushgatewayClient.Validate(ctx); err != nil {
			fmt.Printf("  ✗ Pushgateway: %v\n", err)
		} else {
			fmt.Printf("  ✓ Pushgateway reachable\n")
		}
	}

	// Check apprise if enabled
	if cfg.Apprise.Enabled {
		appriseClient := notify.NewAppriseClient(
			cfg.Apprise.URL,
			cfg.Apprise.Key,
			notify.WithHTTPClient(httpClient),
			notify.WithLogger(logger),
		)

		if err := appriseClient.Validate(ctx); err != nil {
			fmt.Printf("  ✗ Apprise server: %v\n", err)
		} else {
			fmt.Printf("  ✓ Apprise server reachable\n")
		}
	}

	fmt.Println()
	fmt.Println("Validation complete.")
	return nil
}
