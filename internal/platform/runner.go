package platform

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/avkarenow/beacond/internal/domain"
)

// runCommand executes one control-tool invocation and returns its captured
// stdout. A non-zero exit or spawn failure is mapped into a
// *domain.ControlToolError carrying the operation, the target, and the
// tool's diagnostic output. Controllers hold a runCommand so tests can
// substitute the real tools.
type runCommand func(ctx context.Context, op, target, tool string, args ...string) (string, error)

// newExecRunner returns the default runner, shelling out via os/exec.
func newExecRunner(logger *slog.Logger) runCommand {
	return func(ctx context.Context, op, target, tool string, args ...string) (string, error) {
		logger.Debug("invoking control tool", "tool", tool, "args", args)

		// #nosec G204 -- tool and args are the fixed control vocabulary, not user input
		cmd := exec.CommandContext(ctx, tool, args...)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			output := strings.TrimSpace(stderr.String())
			if output == "" {
				output = strings.TrimSpace(stdout.String())
			}
			return "", &domain.ControlToolError{
				Op:     op,
				Target: target,
				Output: output,
				Err:    err,
			}
		}

		if out := strings.TrimSpace(stdout.String()); out != "" {
			logger.Debug("control tool output", "tool", tool, "output", out)
		}
		return stdout.String(), nil
	}
}
