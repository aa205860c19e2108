// Package main is the entry point for beacond.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/avkarenow/beacond/internal/app"
	"github.com/avkarenow/beacond/internal/cli"
	"github.com/avkarenow/beacond/internal/config"
	"github.com/avkarenow/beacond/internal/http"
	"github.com/avkarenow/beacond/internal/lifecycle"
	"github.com/avkarenow/beacond/internal/metrics"
	"github.com/avkarenow/beacond/internal/notify"
	"github.com/avkarenow/beacond/internal/platform"
)

func main() {
	// Service managers start the bare binary with no subcommand, so the
	// service environment is detected here instead of through the CLI.
	if platform.IsRunningAsService() {
		if err := runAsService(); err != nil {
			slog.Error("service failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Run CLI
	cli.Execute()
}

// setupLogging configures logging based on the loaded config.
func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	// Determine log level
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	// Determine output destination
	var output io.Writer = os.Stderr
	if cfg.Log.Output != "" {
		// Ensure directory exists
		dir := filepath.Dir(cfg.Log.Output)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		// Use lumberjack for log rotation
		output = &lumberjack.Logger{
			Filename:   cfg.Log.Output,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}

// runAsService runs the beacon under the host service manager.
func runAsService() error {
	// Load config
	loader := config.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	// Set up logging
	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	// Create HTTP client
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

	beacon := app.NewBeacon(cfg, opts...)

	return lifecycle.Run(cfg.Service.Name, beacon.Run, lifecycle.WithLogger(logger))
}
