package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for service registration state.
var (
	// ErrAlreadyInstalled is returned when installing a service whose
	// registration already exists. Install never overwrites silently.
	ErrAlreadyInstalled = errors.New("service already installed")

	// ErrNotInstalled is returned when operating on a service that has no
	// registration.
	ErrNotInstalled = errors.New("service not installed")

	// ErrUnsupportedPlatform is returned when no controller exists for the
	// current operating system.
	ErrUnsupportedPlatform = errors.New("platform not supported")

	// ErrUnsupportedScope is returned when the platform cannot register
	// services in the requested scope.
	ErrUnsupportedScope = errors.New("scope not supported on this platform")
)

// ControlToolError describes a failed native control-tool invocation: the
// tool exited non-zero or could not be spawned. The tool's stderr/stdout is
// carried as the diagnostic payload.
type ControlToolError struct {
	// Op is the control operation that failed (load, start, enable, ...).
	Op string

	// Target is the service name or descriptor path the operation ran
	// against.
	Target string

	// Output is the tool's captured stderr/stdout.
	Output string

	// Err is the underlying spawn or exit error.
	Err error
}

// Error returns the operation, target, cause, and diagnostic payload.
func (e *ControlToolError) Error() string {
	msg := fmt.Sprintf("control tool %s %s: %v", e.Op, e.Target, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ControlToolError) Unwrap() error {
	return e.Err
}
