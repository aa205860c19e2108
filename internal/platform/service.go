// Package platform provides platform-specific service management: a
// controller per service manager (launchd, systemd, Windows SCM) behind the
// domain.Controller contract.
package platform

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/avkarenow/beacond/internal/domain"
)

// ServiceStatus contains service status information.
type ServiceStatus = domain.ServiceStatus

// ServiceState represents service state.
type ServiceState = domain.ServiceState

// Service state constants.
const (
	ServiceStateUnknown      = domain.ServiceStateUnknown
	ServiceStateStopped      = domain.ServiceStateStopped
	ServiceStateStarting     = domain.ServiceStateStarting
	ServiceStateRunning      = domain.ServiceStateRunning
	ServiceStateStopping     = domain.ServiceStateStopping
	ServiceStateNotInstalled = domain.ServiceStateNotInstalled
)

// controllerOptions carries the cross-platform knobs shared by all
// controller constructors.
type controllerOptions struct {
	logger *slog.Logger
	run    runCommand
}

// Option configures a controller.
type Option func(*controllerOptions)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *controllerOptions) {
		o.logger = logger
	}
}

// New builds the controller for the current operating system: launchd on
// macOS, systemd on Linux, the Service Control Manager on Windows. The spec
// is validated once here; the controller itself is stateless and recomputes
// everything else per call.
func New(spec domain.ServiceSpec, opts ...Option) (domain.Controller, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service spec: %w", err)
	}

	o := controllerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.run == nil {
		o.run = newExecRunner(o.logger)
	}

	switch runtime.GOOS {
	case "darwin":
		return newLaunchdController(spec, o), nil
	case "linux":
		return newSystemdController(spec, o), nil
	case "windows":
		return newSCMController(spec, o)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedPlatform, runtime.GOOS)
	}
}

// Available reports whether the native control tool for this platform can
// be found. On Windows the SCM is reached through the API, so there is no
// tool to probe.
func Available() error {
	switch runtime.GOOS {
	case "darwin":
		if _, err := exec.LookPath("launchctl"); err != nil {
			return fmt.Errorf("launchctl not found: %w", err)
		}
		return nil
	case "linux":
		if _, err := exec.LookPath("systemctl"); err != nil {
			return fmt.Errorf("systemctl not found: %w", err)
		}
		return nil
	case "windows":
		return nil
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedPlatform, runtime.GOOS)
	}
}
