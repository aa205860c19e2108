// Package lifecycle connects a long-running service body to the control
// surface of its host: POSIX signals in a terminal or under launchd and
// systemd, service control requests under the Windows service manager.
// The body consumes one event stream and never learns which host it runs
// under.
package lifecycle

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
)

// ErrAlreadyDispatched is returned by Run when a body has already been
// dispatched in this process.
var ErrAlreadyDispatched = errors.New("lifecycle: dispatch already running in this process")

// Body is the long-running service entry point. It receives control
// events on events, a sender it may raise events through itself, the
// program arguments, and whether the process is attached to an
// interactive session.
type Body func(events <-chan Event, sender Sender, args []string, interactive bool) error

var dispatched atomic.Bool

type options struct {
	logger *slog.Logger
}

// Option configures Run.
type Option func(*options)

// WithLogger sets the logger for dispatch-level events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Run wires body to the host's control mechanism and blocks until the
// body returns, passing its error through. Only one dispatch may run per
// process; any further call fails immediately with ErrAlreadyDispatched,
// even after the first body has returned.
func Run(name string, body Body, opts ...Option) error {
	if !dispatched.CompareAndSwap(false, true) {
		return ErrAlreadyDispatched
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return run(name, body, o.logger)
}

// runSignals drives body from interrupt signals. This is the path for
// terminals and for the unix service managers, which deliver termination
// as SIGTERM.
func runSignals(body Body, logger *slog.Logger, interactive bool) error {
	q := NewQueue()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, interruptSignals...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for sig := range sigCh {
			logger.Info("interrupt received", "signal", sig.String())
			q.Sender().Send(EventStop)
		}
	}()

	err := body(q.Events(), q.Sender(), os.Args[1:], interactive)

	signal.Stop(sigCh)
	close(sigCh)
	<-done
	q.Close()
	return err
}
