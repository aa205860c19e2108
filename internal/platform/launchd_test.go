package platform

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avkarenow/beacond/internal/domain"
)

type runnerCall struct {
	op     string
	target string
	tool   string
	args   []string
}

type fakeRunner struct {
	calls []runnerCall
	out   string
	err   error
}

func (f *fakeRunner) run(_ context.Context, op, target, tool string, args ...string) (string, error) {
	f.calls = append(f.calls, runnerCall{op: op, target: target, tool: tool, args: args})
	return f.out, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func systemSpec() domain.ServiceSpec {
	return domain.ServiceSpec{
		Name:           "beacond",
		DisplayName:    "Beacon Daemon",
		Description:    "Publishes host heartbeats.",
		Scope:          domain.ScopeSystem,
		KeepAlive:      true,
		ExecutablePath: "/usr/local/bin/beacond",
	}
}

func agentSpec() domain.ServiceSpec {
	return domain.ServiceSpec{
		Name:           "sample.agent",
		Scope:          domain.ScopeUserAgent,
		SessionTargets: []domain.SessionTarget{domain.SessionInteractive},
		KeepAlive:      true,
		ExecutablePath: "/usr/local/bin/beacond",
	}
}

func newTestLaunchdController(t *testing.T, spec domain.ServiceSpec, run runCommand) *launchdController {
	t.Helper()

	c := newLaunchdController(spec, controllerOptions{logger: testLogger(), run: run})
	c.daemonsDir = t.TempDir()
	c.agentsDir = t.TempDir()
	return c
}

func TestBuildLaunchdPlist(t *testing.T) {
	t.Run("system daemon", func(t *testing.T) {
		want := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Disabled</key>
    <false/>
    <key>Label</key>
    <string>beacond</string>
    <key>ProgramArguments</key>
    <array>
        <string>/usr/local/bin/beacond</string>
    </array>
    <key>WorkingDirectory</key>
    <string>/usr/local/bin</string>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
</dict>
</plist>
`
		assert.Equal(t, want, buildLaunchdPlist(systemSpec()))
	})

	t.Run("deterministic", func(t *testing.T) {
		spec := agentSpec()
		assert.Equal(t, buildLaunchdPlist(spec), buildLaunchdPlist(spec))
	})

	t.Run("interactive agent", func(t *testing.T) {
		out := buildLaunchdPlist(agentSpec())

		assert.Contains(t, out, "<string>sample.agent</string>")
		assert.Contains(t, out, "<key>LimitLoadToSessionType</key>")
		assert.Contains(t, out, "<string>Aqua</string>")
		assert.Contains(t, out, "<key>KeepAlive</key>\n    <true/>")
	})

	t.Run("session types omitted for system scope", func(t *testing.T) {
		spec := systemSpec()
		spec.SessionTargets = []domain.SessionTarget{domain.SessionInteractive}

		assert.NotContains(t, buildLaunchdPlist(spec), "LimitLoadToSessionType")
	})

	t.Run("keep alive disabled", func(t *testing.T) {
		spec := systemSpec()
		spec.KeepAlive = false

		assert.Contains(t, buildLaunchdPlist(spec), "<key>KeepAlive</key>\n    <false/>")
	})

	t.Run("escapes descriptor values", func(t *testing.T) {
		spec := systemSpec()
		spec.ExecutablePath = "/opt/tools & helpers/beacond"

		out := buildLaunchdPlist(spec)

		assert.Contains(t, out, "/opt/tools &amp; helpers/beacond")
		assert.NotContains(t, out, "tools & helpers")
	})

	t.Run("explicit working directory", func(t *testing.T) {
		spec := systemSpec()
		spec.WorkingDirectory = "/var/lib/beacond"

		assert.Contains(t, buildLaunchdPlist(spec), "<string>/var/lib/beacond</string>")
	})
}

func TestLaunchdController_DescriptorPath(t *testing.T) {
	runner := &fakeRunner{}

	system := newTestLaunchdController(t, systemSpec(), runner.run)
	agent := newTestLaunchdController(t, agentSpec(), runner.run)

	assert.Equal(t, filepath.Join(system.daemonsDir, "beacond.plist"), system.descriptorPath())
	assert.Equal(t, filepath.Join(agent.agentsDir, "sample.agent.plist"), agent.descriptorPath())
	assert.Equal(t, system.descriptorPath(), system.descriptorPath())
}

func TestLaunchdController_Install(t *testing.T) {
	t.Run("system scope writes descriptor and loads", func(t *testing.T) {
		runner := &fakeRunner{}
		c := newTestLaunchdController(t, systemSpec(), runner.run)

		err := c.Install(context.Background())
		require.NoError(t, err)

		data, err := os.ReadFile(c.descriptorPath())
		require.NoError(t, err)
		assert.Equal(t, buildLaunchdPlist(c.spec), string(data))

		require.Len(t, runner.calls, 1)
		assert.Equal(t, "load", runner.calls[0].op)
		assert.Equal(t, "launchctl", runner.calls[0].tool)
		assert.Equal(t, []string{"load", c.descriptorPath()}, runner.calls[0].args)
	})

	t.Run("agent scope writes descriptor only", func(t *testing.T) {
		runner := &fakeRunner{}
		c := newTestLaunchdController(t, agentSpec(), runner.run)

		err := c.Install(context.Background())
		require.NoError(t, err)

		assert.FileExists(t, c.descriptorPath())
		assert.Empty(t, runner.calls)
	})

	t.Run("existing descriptor is a conflict", func(t *testing.T) {
		runner := &fakeRunner{}
		c := newTestLaunchdController(t, systemSpec(), runner.run)
		require.NoError(t, os.WriteFile(c.descriptorPath(), []byte("stale"), 0o644))

		err := c.Install(context.Background())

		assert.ErrorIs(t, err, domain.ErrAlreadyInstalled)
		assert.Empty(t, runner.calls)
	})

	t.Run("load failure is surfaced", func(t *testing.T) {
		runner := &fakeRunner{err: &domain.ControlToolError{
			Op:     "load",
			Target: "beacond",
			Output: "Load failed: 5: Input/output error",
			Err:    errors.New("exit status 5"),
		}}
		c := newTestLaunchdController(t, systemSpec(), runner.run)

		err := c.Install(context.Background())

		var toolErr *domain.ControlToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, "load", toolErr.Op)
		assert.FileExists(t, c.descriptorPath())
	})
}

func TestLaunchdController_Uninstall(t *testing.T) {
	t.Run("system scope unloads then removes", func(t *testing.T) {
		runner := &fakeRunner{}
		c := newTestLaunchdController(t, systemSpec(), runner.run)
		require.NoError(t, os.WriteFile(c.descriptorPath(), []byte(buildLaunchdPlist(c.spec)), 0o644))

		err := c.Uninstall(context.Background())
		require.NoError(t, err)

		assert.NoFileExists(t, c.descriptorPath())
		require.Len(t, runner.calls, 1)
		assert.Equal(t, "unload", runner.calls[0].op)
		assert.Equal(t, []string{"unload", c.descriptorPath()}, runner.calls[0].args)
	})

	t.Run("agent scope removes without unload", func(t *testing.T) {
		runner := &fakeRunner{}
		c := newTestLaunchdController(t, agentSpec(), runner.run)
		require.NoError(t, os.WriteFile(c.descriptorPath(), []byte(buildLaunchdPlist(c.spec)), 0o644))

		err := c.Uninstall(context.Background())
		require.NoError(t, err)

		assert.NoFileExists(t, c.descriptorPath())
		assert.Empty(t, runner.calls)
	})

	t.Run("missing descriptor fails", func(t *testing.T) {
		runner := &fakeRunner{}
		c := newTestLaunchdController(t, agentSpec(), runner.run)

		err := c.Uninstall(context.Background())

		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}

func TestLaunchdController_InstallThenUninstall(t *testing.T) {
	runner := &fakeRunner{}
	c := newTestLaunchdController(t, agentSpec(), runner.run)

	require.NoError(t, c.Install(context.Background()))
	require.NoError(t, c.Uninstall(context.Background()))

	assert.NoFileExists(t, c.descriptorPath())
}

func TestLaunchdController_StartStop(t *testing.T) {
	t.Run("start by label", func(t *testing.T) {
		runner := &fakeRunner{}
		c := newTestLaunchdController(t, systemSpec(), runner.run)

		require.NoError(t, c.Start(context.Background()))

		require.Len(t, runner.calls, 1)
		assert.Equal(t, "start", runner.calls[0].op)
		assert.Equal(t, []string{"start", "beacond"}, runner.calls[0].args)
	})

	t.Run("stop by label", func(t *testing.T) {
		runner := &fakeRunner{}
		c := newTestLaunchdController(t, systemSpec(), runner.run)

		require.NoError(t, c.Stop(context.Background()))

		require.Len(t, runner.calls, 1)
		assert.Equal(t, "stop", runner.calls[0].op)
		assert.Equal(t, []string{"stop", "beacond"}, runner.calls[0].args)
	})

	t.Run("start failure names the service", func(t *testing.T) {
		runner := &fakeRunner{err: &domain.ControlToolError{
			Op:     "start",
			Target: "unregistered-name",
			Output: "Could not find service",
			Err:    errors.New("exit status 3"),
		}}
		spec := systemSpec()
		spec.Name = "unregistered-name"
		c := newTestLaunchdController(t, spec, runner.run)

		err := c.Start(context.Background())

		var toolErr *domain.ControlToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Contains(t, err.Error(), "unregistered-name")
		assert.Contains(t, err.Error(), "Could not find service")
	})
}

func TestLaunchdController_EnableDisable(t *testing.T) {
	runner := &fakeRunner{}
	c := newTestLaunchdController(t, systemSpec(), runner.run)

	require.NoError(t, c.Enable(context.Background()))
	require.NoError(t, c.Disable(context.Background()))

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"load", c.descriptorPath()}, runner.calls[0].args)
	assert.Equal(t, []string{"unload", c.descriptorPath()}, runner.calls[1].args)
}

func TestLaunchdController_Status(t *testing.T) {
	t.Run("not installed", func(t *testing.T) {
		runner := &fakeRunner{}
		c := newTestLaunchdController(t, systemSpec(), runner.run)

		status, err := c.Status(context.Background())
		require.NoError(t, err)

		assert.Equal(t, domain.ServiceStateNotInstalled, status.State)
		assert.Empty(t, runner.calls)
	})

	t.Run("running", func(t *testing.T) {
		runner := &fakeRunner{out: "PID\tStatus\tLabel\n412\t0\tbeacond\n-\t0\tcom.apple.example\n"}
		c := newTestLaunchdController(t, systemSpec(), runner.run)
		require.NoError(t, os.WriteFile(c.descriptorPath(), []byte("plist"), 0o644))

		status, err := c.Status(context.Background())
		require.NoError(t, err)

		assert.Equal(t, domain.ServiceStateRunning, status.State)
		assert.Equal(t, 412, status.PID)
	})

	t.Run("loaded but idle", func(t *testing.T) {
		runner := &fakeRunner{out: "-\t0\tbeacond\n"}
		c := newTestLaunchdController(t, systemSpec(), runner.run)
		require.NoError(t, os.WriteFile(c.descriptorPath(), []byte("plist"), 0o644))

		status, err := c.Status(context.Background())
		require.NoError(t, err)

		assert.Equal(t, domain.ServiceStateStopped, status.State)
		assert.Zero(t, status.PID)
	})

	t.Run("descriptor present but unloaded", func(t *testing.T) {
		runner := &fakeRunner{out: "123\t0\tcom.apple.example\n"}
		c := newTestLaunchdController(t, systemSpec(), runner.run)
		require.NoError(t, os.WriteFile(c.descriptorPath(), []byte("plist"), 0o644))

		status, err := c.Status(context.Background())
		require.NoError(t, err)

		assert.Equal(t, domain.ServiceStateStopped, status.State)
		assert.Contains(t, status.Message, "not loaded")
	})
}

func TestParseLaunchctlList(t *testing.T) {
	out := "PID\tStatus\tLabel\n9001\t0\tbeacond\n-\t78\tsample.agent\nmalformed\n"

	tests := []struct {
		name       string
		label      string
		wantPID    int
		wantLoaded bool
	}{
		{name: "running job", label: "beacond", wantPID: 9001, wantLoaded: true},
		{name: "loaded without pid", label: "sample.agent", wantPID: 0, wantLoaded: true},
		{name: "unknown label", label: "ghost", wantPID: 0, wantLoaded: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pid, loaded := parseLaunchctlList(out, tt.label)

			assert.Equal(t, tt.wantPID, pid)
			assert.Equal(t, tt.wantLoaded, loaded)
		})
	}
}
