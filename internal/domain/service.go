// Package domain defines core service management types and interfaces.
package domain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Scope determines whether a service is registered machine-wide or on
// behalf of a logged-in user.
type Scope string

const (
	// ScopeSystem registers the service as a system-wide daemon.
	ScopeSystem Scope = "system"
	// ScopeUserAgent registers the service as a per-user agent.
	ScopeUserAgent Scope = "user"
)

// String returns the string representation of the scope.
func (s Scope) String() string {
	return string(s)
}

// ParseScope converts a configuration string into a Scope.
// An empty string defaults to system scope.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "system":
		return ScopeSystem, nil
	case "user", "agent":
		return ScopeUserAgent, nil
	default:
		return "", fmt.Errorf("unknown scope %q (expected system or user)", s)
	}
}

// SessionTarget restricts the session types an agent-scoped service is
// loaded into. Only meaningful on platforms whose service manager is
// session-aware; ignored for system-scoped services.
type SessionTarget string

const (
	// SessionInteractive targets graphical login sessions.
	SessionInteractive SessionTarget = "interactive"
	// SessionNonInteractive targets non-graphical sessions.
	SessionNonInteractive SessionTarget = "noninteractive"
	// SessionAnyUser targets background sessions of any user.
	SessionAnyUser SessionTarget = "anyuser"
	// SessionPreLogin targets the pre-login window.
	SessionPreLogin SessionTarget = "prelogin"
)

// String returns the string representation of the session target.
func (t SessionTarget) String() string {
	return string(t)
}

// ParseSessionTarget converts a configuration string into a SessionTarget.
func ParseSessionTarget(s string) (SessionTarget, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "interactive":
		return SessionInteractive, nil
	case "noninteractive":
		return SessionNonInteractive, nil
	case "anyuser":
		return SessionAnyUser, nil
	case "prelogin":
		return SessionPreLogin, nil
	default:
		return "", fmt.Errorf("unknown session target %q (expected interactive, noninteractive, anyuser or prelogin)", s)
	}
}

// ServiceSpec describes one OS-registered service. A spec is immutable once
// a controller has been constructed from it; changing it requires building
// a new controller.
type ServiceSpec struct {
	// Name is the unique OS registration key (launchd label, systemd unit
	// name, SCM service name). It also determines the descriptor file name.
	Name string

	// DisplayName is the human-readable service name.
	DisplayName string

	// Description explains what the service does.
	Description string

	// Scope selects system-wide or per-user registration.
	Scope Scope

	// SessionTargets restricts agent loading to specific session types.
	SessionTargets []SessionTarget

	// KeepAlive asks the service manager to restart the process when it
	// exits.
	KeepAlive bool

	// ExecutablePath is the absolute path of the binary the service runs.
	ExecutablePath string

	// WorkingDirectory is the directory the process starts in. Empty means
	// the executable's parent directory.
	WorkingDirectory string
}

// Validate checks that the spec is complete enough to build a descriptor.
func (s *ServiceSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if s.ExecutablePath == "" {
		return fmt.Errorf("executable path is required")
	}
	if !filepath.IsAbs(s.ExecutablePath) {
		return fmt.Errorf("executable path must be absolute, got %q", s.ExecutablePath)
	}
	return nil
}

// WorkDir returns the effective working directory: WorkingDirectory when
// set, otherwise the executable's parent directory.
func (s *ServiceSpec) WorkDir() string {
	if s.WorkingDirectory != "" {
		return s.WorkingDirectory
	}
	return filepath.Dir(s.ExecutablePath)
}

// ServiceState represents the state of a system service.
type ServiceState string

const (
	// ServiceStateUnknown indicates the state cannot be determined.
	ServiceStateUnknown ServiceState = "unknown"
	// ServiceStateStopped indicates the service is stopped.
	ServiceStateStopped ServiceState = "stopped"
	// ServiceStateStarting indicates the service is starting.
	ServiceStateStarting ServiceState = "starting"
	// ServiceStateRunning indicates the service is running.
	ServiceStateRunning ServiceState = "running"
	// ServiceStateStopping indicates the service is stopping.
	ServiceStateStopping ServiceState = "stopping"
	// ServiceStateNotInstalled indicates the service is not installed.
	ServiceStateNotInstalled ServiceState = "not_installed"
)

// String returns the string representation of the service state.
func (s ServiceState) String() string {
	return string(s)
}

// ServiceStatus contains information about the service status.
type ServiceStatus struct {
	// State is the current service state.
	State ServiceState `json:"state"`

	// PID is the process ID if running.
	PID int `json:"pid,omitempty"`

	// Message provides additional status information.
	Message string `json:"message,omitempty"`
}

// Controller manages the OS registration of a single service described by
// a ServiceSpec. Implementations are platform-specific (launchd, systemd,
// Windows SCM) and stateless between calls: registration state lives in the
// OS, and the descriptor path is recomputed from the spec on every
// operation. Each call is one synchronous round trip; callers serialize
// administrative operations against a given service name themselves.
type Controller interface {
	// Install writes the service descriptor and registers it with the OS
	// service manager. Installing over an existing registration fails with
	// ErrAlreadyInstalled. A partial install (descriptor written,
	// registration failed) is reported as an error but the descriptor stays
	// on disk as a recoverable state.
	Install(ctx context.Context) error

	// Uninstall deregisters the service and removes its descriptor, in that
	// order. Uninstalling a service that was never installed fails; it never
	// silently succeeds.
	Uninstall(ctx context.Context) error

	// Start activates the service by name.
	Start(ctx context.Context) error

	// Stop deactivates the service by name.
	Stop(ctx context.Context) error

	// Enable hands the installed descriptor to the service manager without
	// reinstalling it.
	Enable(ctx context.Context) error

	// Disable withdraws the service from the service manager without
	// removing its descriptor.
	Disable(ctx context.Context) error

	// Status reports the current registration and run state.
	Status(ctx context.Context) (*ServiceStatus, error)
}
