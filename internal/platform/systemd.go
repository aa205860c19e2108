package platform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/avkarenow/beacond/internal/domain"
)

// systemdSystemDir holds unit files for system-scoped services.
const systemdSystemDir = "/etc/systemd/system"

// systemdController manages one service through a unit file and systemctl.
// User-agent scope maps onto systemd user units: the unit lives under the
// invoking user's config directory and every systemctl call carries
// --user.
type systemdController struct {
	spec      domain.ServiceSpec
	systemDir string
	userDir   string
	run       runCommand
	logger    *slog.Logger
}

func newSystemdController(spec domain.ServiceSpec, o controllerOptions) *systemdController {
	return &systemdController{
		spec:      spec,
		systemDir: systemdSystemDir,
		run:       o.run,
		logger:    o.logger,
	}
}

func (c *systemdController) unitName() string {
	return c.spec.Name + ".service"
}

// descriptorPath derives the unit file location from scope and service
// name. The user unit directory is resolved from the invoking user's home
// unless overridden.
func (c *systemdController) descriptorPath() (string, error) {
	if c.spec.Scope == domain.ScopeUserAgent {
		dir := c.userDir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home directory for user unit: %w", err)
			}
			dir = filepath.Join(home, ".config", "systemd", "user")
		}
		return filepath.Join(dir, c.unitName()), nil
	}
	return filepath.Join(c.systemDir, c.unitName()), nil
}

// systemctlArgs prefixes --user for user-agent scope so every call lands
// in the right manager instance.
func (c *systemdController) systemctlArgs(args ...string) []string {
	if c.spec.Scope == domain.ScopeUserAgent {
		return append([]string{"--user"}, args...)
	}
	return args
}

func (c *systemdController) systemctl(ctx context.Context, op, target string, args ...string) (string, error) {
	return c.run(ctx, op, target, "systemctl", c.systemctlArgs(args...)...)
}

// Install writes the unit file and registers it with the manager.
func (c *systemdController) Install(ctx context.Context) error {
	path, err := c.descriptorPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: unit exists at %s", domain.ErrAlreadyInstalled, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat unit %s: %w", path, err)
	}

	// The user unit directory does not exist until something creates it.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create unit directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(buildSystemdUnit(c.spec)), 0o644); err != nil {
		return fmt.Errorf("write unit %s: %w", path, err)
	}
	c.logger.Info("unit written", "path", path)

	if _, err := c.systemctl(ctx, "daemon-reload", c.unitName(), "daemon-reload"); err != nil {
		return err
	}
	_, err = c.systemctl(ctx, "enable", c.unitName(), "enable", c.unitName())
	return err
}

// Uninstall deregisters the unit, removes the file, and reloads the
// manager so it forgets the definition. A missing unit file is an error.
func (c *systemdController) Uninstall(ctx context.Context) error {
	path, err := c.descriptorPath()
	if err != nil {
		return err
	}

	if _, err := c.systemctl(ctx, "disable", c.unitName(), "disable", c.unitName()); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove unit %s: %w", path, err)
	}
	c.logger.Info("unit removed", "path", path)

	_, err = c.systemctl(ctx, "daemon-reload", c.unitName(), "daemon-reload")
	return err
}

// Start activates the unit.
func (c *systemdController) Start(ctx context.Context) error {
	_, err := c.systemctl(ctx, "start", c.unitName(), "start", c.unitName())
	return err
}

// Stop deactivates the unit.
func (c *systemdController) Stop(ctx context.Context) error {
	_, err := c.systemctl(ctx, "stop", c.unitName(), "stop", c.unitName())
	return err
}

// Enable re-registers an existing unit file with the manager.
func (c *systemdController) Enable(ctx context.Context) error {
	if _, err := c.systemctl(ctx, "daemon-reload", c.unitName(), "daemon-reload"); err != nil {
		return err
	}
	_, err := c.systemctl(ctx, "enable", c.unitName(), "enable", c.unitName())
	return err
}

// Disable deregisters the unit while leaving its file in place.
func (c *systemdController) Disable(ctx context.Context) error {
	_, err := c.systemctl(ctx, "disable", c.unitName(), "disable", c.unitName())
	return err
}

// Status reports unit state from the file and `systemctl is-active`.
// is-active exits non-zero for anything but an active unit, so the state
// word is recovered from the failed invocation's captured output.
func (c *systemdController) Status(ctx context.Context) (*domain.ServiceStatus, error) {
	path, err := c.descriptorPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &domain.ServiceStatus{
				State:   domain.ServiceStateNotInstalled,
				Message: "no unit at " + path,
			}, nil
		}
		return nil, fmt.Errorf("stat unit %s: %w", path, err)
	}

	out, err := c.systemctl(ctx, "is-active", c.unitName(), "is-active", c.unitName())
	if err != nil {
		var toolErr *domain.ControlToolError
		if !errors.As(err, &toolErr) {
			return nil, err
		}
		out = toolErr.Output
	}

	switch state := strings.TrimSpace(out); state {
	case "active":
		return &domain.ServiceStatus{State: domain.ServiceStateRunning}, nil
	case "activating":
		return &domain.ServiceStatus{State: domain.ServiceStateStarting}, nil
	case "deactivating":
		return &domain.ServiceStatus{State: domain.ServiceStateStopping}, nil
	case "inactive", "failed":
		return &domain.ServiceStatus{State: domain.ServiceStateStopped, Message: state}, nil
	default:
		return &domain.ServiceStatus{State: domain.ServiceStateUnknown, Message: state}, nil
	}
}

// buildSystemdUnit renders the unit file for the spec. The output is
// deterministic for a given spec. Session targets have no systemd
// equivalent and are not emitted.
func buildSystemdUnit(spec domain.ServiceSpec) string {
	description := spec.Description
	if description == "" {
		description = spec.DisplayName
	}
	if description == "" {
		description = spec.Name
	}

	wantedBy := "multi-user.target"
	if spec.Scope == domain.ScopeUserAgent {
		wantedBy = "default.target"
	}

	var b strings.Builder
	b.WriteString("[Unit]\n")
	fmt.Fprintf(&b, "Description=%s\n", description)
	b.WriteString("After=network.target\n")
	b.WriteString("\n")
	b.WriteString("[Service]\n")
	b.WriteString("Type=simple\n")
	fmt.Fprintf(&b, "ExecStart=%s\n", spec.ExecutablePath)
	fmt.Fprintf(&b, "WorkingDirectory=%s\n", spec.WorkDir())
	if spec.KeepAlive {
		b.WriteString("Restart=always\n")
		b.WriteString("RestartSec=5\n")
	} else {
		b.WriteString("Restart=no\n")
	}
	b.WriteString("\n")
	b.WriteString("[Install]\n")
	fmt.Fprintf(&b, "WantedBy=%s\n", wantedBy)
	return b.String()
}
