package platform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/avkarenow/beacond/internal/domain"
)

// launchd descriptor directories by scope.
const (
	launchDaemonsDir = "/Library/LaunchDaemons"
	launchAgentsDir  = "/Library/LaunchAgents"
)

// launchdSessionTypes maps session targets onto LimitLoadToSessionType
// values.
var launchdSessionTypes = map[domain.SessionTarget]string{
	domain.SessionInteractive:    "Aqua",
	domain.SessionNonInteractive: "StandardIO",
	domain.SessionAnyUser:        "Background",
	domain.SessionPreLogin:       "LoginWindow",
}

// launchdController manages one service through a plist descriptor and
// launchctl. System-scoped daemons are loaded and unloaded explicitly;
// agent-scoped jobs are picked up at login through RunAtLoad, so install
// and uninstall touch only the descriptor for them.
type launchdController struct {
	spec       domain.ServiceSpec
	daemonsDir string
	agentsDir  string
	run        runCommand
	logger     *slog.Logger
}

func newLaunchdController(spec domain.ServiceSpec, o controllerOptions) *launchdController {
	return &launchdController{
		spec:       spec,
		daemonsDir: launchDaemonsDir,
		agentsDir:  launchAgentsDir,
		run:        o.run,
		logger:     o.logger,
	}
}

// descriptorPath derives the plist location from scope and service name
// alone, so every operation on this controller agrees on it.
func (c *launchdController) descriptorPath() string {
	dir := c.daemonsDir
	if c.spec.Scope == domain.ScopeUserAgent {
		dir = c.agentsDir
	}
	return filepath.Join(dir, c.spec.Name+".plist")
}

// Install writes the descriptor and, for system scope, hands it to the
// running manager. A descriptor left behind by a failed load is not rolled
// back; a later Uninstall or Enable completes the transition.
func (c *launchdController) Install(ctx context.Context) error {
	path := c.descriptorPath()

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: descriptor exists at %s", domain.ErrAlreadyInstalled, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat descriptor %s: %w", path, err)
	}

	// launchd rejects group- or world-writable descriptors.
	if err := os.WriteFile(path, []byte(buildLaunchdPlist(c.spec)), 0o644); err != nil {
		return fmt.Errorf("write descriptor %s: %w", path, err)
	}
	c.logger.Info("descriptor written", "path", path)

	if c.spec.Scope == domain.ScopeSystem {
		if _, err := c.run(ctx, "load", path, "launchctl", "load", path); err != nil {
			return err
		}
	}
	return nil
}

// Uninstall unloads first so the manager is never left holding a
// registration whose descriptor is gone, then removes the file. A missing
// descriptor is an error, never a silent success.
func (c *launchdController) Uninstall(ctx context.Context) error {
	path := c.descriptorPath()

	if c.spec.Scope == domain.ScopeSystem {
		if _, err := c.run(ctx, "unload", path, "launchctl", "unload", path); err != nil {
			return err
		}
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove descriptor %s: %w", path, err)
	}
	c.logger.Info("descriptor removed", "path", path)
	return nil
}

// Start activates the job by label.
func (c *launchdController) Start(ctx context.Context) error {
	_, err := c.run(ctx, "start", c.spec.Name, "launchctl", "start", c.spec.Name)
	return err
}

// Stop deactivates the job by label.
func (c *launchdController) Stop(ctx context.Context) error {
	_, err := c.run(ctx, "stop", c.spec.Name, "launchctl", "stop", c.spec.Name)
	return err
}

// Enable loads the existing descriptor without rewriting it.
func (c *launchdController) Enable(ctx context.Context) error {
	path := c.descriptorPath()
	_, err := c.run(ctx, "load", path, "launchctl", "load", path)
	return err
}

// Disable unloads the job while leaving the descriptor in place.
func (c *launchdController) Disable(ctx context.Context) error {
	path := c.descriptorPath()
	_, err := c.run(ctx, "unload", path, "launchctl", "unload", path)
	return err
}

// Status reports registration state from the descriptor file and
// `launchctl list`.
func (c *launchdController) Status(ctx context.Context) (*domain.ServiceStatus, error) {
	path := c.descriptorPath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &domain.ServiceStatus{
				State:   domain.ServiceStateNotInstalled,
				Message: "no descriptor at " + path,
			}, nil
		}
		return nil, fmt.Errorf("stat descriptor %s: %w", path, err)
	}

	out, err := c.run(ctx, "list", c.spec.Name, "launchctl", "list")
	if err != nil {
		return nil, err
	}

	pid, loaded := parseLaunchctlList(out, c.spec.Name)
	switch {
	case !loaded:
		return &domain.ServiceStatus{
			State:   domain.ServiceStateStopped,
			Message: "descriptor present but not loaded",
		}, nil
	case pid > 0:
		return &domain.ServiceStatus{State: domain.ServiceStateRunning, PID: pid}, nil
	default:
		return &domain.ServiceStatus{State: domain.ServiceStateStopped}, nil
	}
}

// parseLaunchctlList scans `launchctl list` output (PID, last exit status
// and label columns) for the given label. A "-" in the PID column means the
// job is loaded but not running.
func parseLaunchctlList(out, label string) (pid int, loaded bool) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[2] != label {
			continue
		}
		if fields[0] != "-" {
			if n, err := strconv.Atoi(fields[0]); err == nil {
				pid = n
			}
		}
		return pid, true
	}
	return 0, false
}

// buildLaunchdPlist renders the property-list descriptor for the spec.
// The output is deterministic: an unchanged spec always yields identical
// bytes. Session type restrictions are emitted only for agent-scoped
// services that request them.
func buildLaunchdPlist(spec domain.ServiceSpec) string {
	var b strings.Builder

	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<!DOCTYPE plist PUBLIC \"-//Apple//DTD PLIST 1.0//EN\" \"http://www.apple.com/DTDs/PropertyList-1.0.dtd\">\n")
	b.WriteString("<plist version=\"1.0\">\n")
	b.WriteString("<dict>\n")
	b.WriteString("    <key>Disabled</key>\n")
	b.WriteString("    <false/>\n")
	fmt.Fprintf(&b, "    <key>Label</key>\n    <string>%s</string>\n", xmlEscape(spec.Name))
	b.WriteString("    <key>ProgramArguments</key>\n")
	b.WriteString("    <array>\n")
	fmt.Fprintf(&b, "        <string>%s</string>\n", xmlEscape(spec.ExecutablePath))
	b.WriteString("    </array>\n")
	fmt.Fprintf(&b, "    <key>WorkingDirectory</key>\n    <string>%s</string>\n", xmlEscape(spec.WorkDir()))
	b.WriteString("    <key>RunAtLoad</key>\n")
	b.WriteString("    <true/>\n")

	if spec.Scope == domain.ScopeUserAgent && len(spec.SessionTargets) > 0 {
		b.WriteString("    <key>LimitLoadToSessionType</key>\n")
		b.WriteString("    <array>\n")
		for _, target := range spec.SessionTargets {
			fmt.Fprintf(&b, "        <string>%s</string>\n", launchdSessionTypes[target])
		}
		b.WriteString("    </array>\n")
	}

	b.WriteString("    <key>KeepAlive</key>\n")
	if spec.KeepAlive {
		b.WriteString("    <true/>\n")
	} else {
		b.WriteString("    <false/>\n")
	}

	b.WriteString("</dict>\n")
	b.WriteString("</plist>\n")
	return b.String()
}

// xmlEscape escapes the XML special characters in descriptor values.
func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}
