//go:build windows

package platform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/avkarenow/beacond/internal/domain"
)

// scmController manages one service through the Windows Service Control
// Manager API. There is no external control tool, but failures are still
// reported as ControlToolError so callers see the same error shape on
// every platform.
type scmController struct {
	spec   domain.ServiceSpec
	logger *slog.Logger
}

func newSCMController(spec domain.ServiceSpec, o controllerOptions) (domain.Controller, error) {
	if spec.Scope == domain.ScopeUserAgent {
		return nil, fmt.Errorf("%w: windows services are system scoped", domain.ErrUnsupportedScope)
	}
	return &scmController{spec: spec, logger: o.logger}, nil
}

func (c *scmController) toolError(op string, err error) error {
	return &domain.ControlToolError{Op: op, Target: c.spec.Name, Err: err}
}

// Install registers the service with automatic start and, when the spec
// keeps the service alive, restart-on-failure recovery actions.
func (c *scmController) Install(ctx context.Context) error {
	m, err := mgr.Connect()
	if err != nil {
		return c.toolError("install", fmt.Errorf("connect to service manager: %w", err))
	}
	defer m.Disconnect()

	if s, err := m.OpenService(c.spec.Name); err == nil {
		s.Close()
		return fmt.Errorf("%w: service %s", domain.ErrAlreadyInstalled, c.spec.Name)
	}

	displayName := c.spec.DisplayName
	if displayName == "" {
		displayName = c.spec.Name
	}
	config := mgr.Config{
		DisplayName: displayName,
		Description: c.spec.Description,
		StartType:   mgr.StartAutomatic,
	}

	s, err := m.CreateService(c.spec.Name, c.spec.ExecutablePath, config)
	if err != nil {
		return c.toolError("install", fmt.Errorf("create service: %w", err))
	}
	defer s.Close()

	if c.spec.KeepAlive {
		recoveryActions := []mgr.RecoveryAction{
			{Type: mgr.ServiceRestart, Delay: 60 * time.Second},
			{Type: mgr.ServiceRestart, Delay: 60 * time.Second},
			{Type: mgr.ServiceRestart, Delay: 60 * time.Second},
		}
		// Reset the failure count after a day.
		if err := s.SetRecoveryActions(recoveryActions, 86400); err != nil {
			c.logger.Warn("failed to set recovery actions", "error", err)
		}
	}

	c.logger.Info("service registered", "name", c.spec.Name)
	return nil
}

// Uninstall stops the service if needed and deletes its registration.
func (c *scmController) Uninstall(ctx context.Context) error {
	m, err := mgr.Connect()
	if err != nil {
		return c.toolError("uninstall", fmt.Errorf("connect to service manager: %w", err))
	}
	defer m.Disconnect()

	s, err := m.OpenService(c.spec.Name)
	if err != nil {
		return fmt.Errorf("%w: service %s", domain.ErrNotInstalled, c.spec.Name)
	}
	defer s.Close()

	status, err := s.Query()
	if err == nil && status.State != svc.Stopped {
		if err := c.stopAndWait(ctx, s); err != nil {
			c.logger.Warn("could not stop service before removal", "error", err)
		}
	}

	if err := s.Delete(); err != nil {
		return c.toolError("uninstall", fmt.Errorf("delete service: %w", err))
	}

	c.logger.Info("service deregistered", "name", c.spec.Name)
	return nil
}

// Start activates the service.
func (c *scmController) Start(ctx context.Context) error {
	m, err := mgr.Connect()
	if err != nil {
		return c.toolError("start", fmt.Errorf("connect to service manager: %w", err))
	}
	defer m.Disconnect()

	s, err := m.OpenService(c.spec.Name)
	if err != nil {
		return c.toolError("start", fmt.Errorf("open service: %w", err))
	}
	defer s.Close()

	if err := s.Start(); err != nil {
		return c.toolError("start", err)
	}
	return nil
}

// Stop deactivates the service and waits for it to reach the stopped
// state.
func (c *scmController) Stop(ctx context.Context) error {
	m, err := mgr.Connect()
	if err != nil {
		return c.toolError("stop", fmt.Errorf("connect to service manager: %w", err))
	}
	defer m.Disconnect()

	s, err := m.OpenService(c.spec.Name)
	if err != nil {
		return c.toolError("stop", fmt.Errorf("open service: %w", err))
	}
	defer s.Close()

	return c.stopAndWait(ctx, s)
}

func (c *scmController) stopAndWait(ctx context.Context, s *mgr.Service) error {
	status, err := s.Control(svc.Stop)
	if err != nil {
		return c.toolError("stop", err)
	}

	timeout := time.Now().Add(30 * time.Second)
	for status.State != svc.Stopped {
		if time.Now().After(timeout) {
			return c.toolError("stop", fmt.Errorf("timeout waiting for service to stop"))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(300 * time.Millisecond):
		}
		status, err = s.Query()
		if err != nil {
			return c.toolError("stop", fmt.Errorf("query service status: %w", err))
		}
	}
	return nil
}

// Enable switches the service back to automatic start.
func (c *scmController) Enable(ctx context.Context) error {
	return c.setStartType("enable", mgr.StartAutomatic)
}

// Disable switches the service to disabled so the manager will not start
// it.
func (c *scmController) Disable(ctx context.Context) error {
	return c.setStartType("disable", mgr.StartDisabled)
}

func (c *scmController) setStartType(op string, startType uint32) error {
	m, err := mgr.Connect()
	if err != nil {
		return c.toolError(op, fmt.Errorf("connect to service manager: %w", err))
	}
	defer m.Disconnect()

	s, err := m.OpenService(c.spec.Name)
	if err != nil {
		return c.toolError(op, fmt.Errorf("open service: %w", err))
	}
	defer s.Close()

	config, err := s.Config()
	if err != nil {
		return c.toolError(op, fmt.Errorf("read service config: %w", err))
	}
	config.StartType = startType
	if err := s.UpdateConfig(config); err != nil {
		return c.toolError(op, fmt.Errorf("update service config: %w", err))
	}
	return nil
}

// Status returns the current service status.
func (c *scmController) Status(ctx context.Context) (*domain.ServiceStatus, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, c.toolError("status", fmt.Errorf("connect to service manager: %w", err))
	}
	defer m.Disconnect()

	s, err := m.OpenService(c.spec.Name)
	if err != nil {
		return &domain.ServiceStatus{
			State:   domain.ServiceStateNotInstalled,
			Message: "service is not installed",
		}, nil
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return nil, c.toolError("status", fmt.Errorf("query service status: %w", err))
	}

	result := &domain.ServiceStatus{PID: int(status.ProcessId)}
	switch status.State {
	case svc.Stopped:
		result.State = domain.ServiceStateStopped
	case svc.StartPending:
		result.State = domain.ServiceStateStarting
	case svc.Running:
		result.State = domain.ServiceStateRunning
	case svc.StopPending:
		result.State = domain.ServiceStateStopping
	case svc.Paused, svc.PausePending, svc.ContinuePending:
		result.State = domain.ServiceStateRunning
		result.Message = "paused"
	default:
		result.State = domain.ServiceStateUnknown
	}
	return result, nil
}

// IsRunningAsService reports whether the process is running under the
// service control manager.
func IsRunningAsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}
