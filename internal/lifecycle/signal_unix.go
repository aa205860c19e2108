//go:build !windows

package lifecycle

import (
	"log/slog"
	"os"
	"syscall"

	"github.com/avkarenow/beacond/internal/platform"
)

// interruptSignals translate into EventStop. launchd and systemd both
// deliver termination as SIGTERM.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func run(_ string, body Body, logger *slog.Logger) error {
	return runSignals(body, logger, !platform.IsRunningAsService())
}
