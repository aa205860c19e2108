//go:build windows

package lifecycle

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
)

// interruptSignals translate into EventStop. Windows delivers console
// interrupts as os.Interrupt.
var interruptSignals = []os.Signal{os.Interrupt}

func run(name string, body Body, logger *slog.Logger) error {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return fmt.Errorf("detect service environment: %w", err)
	}
	if !isService {
		return runSignals(body, logger, true)
	}

	handler := &scmHandler{body: body, logger: logger}
	if err := svc.Run(name, handler); err != nil {
		reportStartupError(name, err)
		return err
	}
	return handler.err
}

// scmHandler adapts Body to the service control manager protocol,
// including pause and continue requests.
type scmHandler struct {
	body   Body
	logger *slog.Logger
	err    error
}

func (h *scmHandler) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const accepts = svc.AcceptStop | svc.AcceptShutdown | svc.AcceptPauseAndContinue

	changes <- svc.Status{State: svc.StartPending}

	q := NewQueue()

	// args[0] is the service name; the rest are start parameters.
	bodyArgs := args
	if len(bodyArgs) > 0 {
		bodyArgs = bodyArgs[1:]
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.body(q.Events(), q.Sender(), bodyArgs, false)
	}()

	changes <- svc.Status{State: svc.Running, Accepts: accepts}

	for {
		select {
		case err := <-errCh:
			q.Close()
			h.err = err
			if err != nil {
				h.logger.Error("service body failed", "error", err)
				return true, 1
			}
			return false, 0

		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus

			case svc.Stop, svc.Shutdown:
				changes <- svc.Status{State: svc.StopPending}
				q.Sender().Send(EventStop)
				err := <-errCh
				q.Close()
				h.err = err
				if err != nil {
					return true, 1
				}
				return false, 0

			case svc.Pause:
				q.Sender().Send(EventPause)
				changes <- svc.Status{State: svc.Paused, Accepts: accepts}

			case svc.Continue:
				q.Sender().Send(EventContinue)
				changes <- svc.Status{State: svc.Running, Accepts: accepts}
			}
		}
	}
}

// reportStartupError writes to the application event log, the only trace
// a service can leave when it fails before logging is up.
func reportStartupError(name string, err error) {
	el, openErr := eventlog.Open(name)
	if openErr != nil {
		return
	}
	defer el.Close()
	el.Error(1, fmt.Sprintf("%s service failed: %v", name, err))
}
