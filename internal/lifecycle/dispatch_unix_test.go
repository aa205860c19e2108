//go:build !windows

package lifecycle

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SignalBecomesStopEvent(t *testing.T) {
	resetDispatch(t)

	err := Run("beacond", func(events <-chan Event, _ Sender, _ []string, _ bool) error {
		// Two rapid interrupts: at least one stop event must come through
		// and the duplicate must not break anything.
		if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
			return err
		}
		if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
			return err
		}

		select {
		case ev := <-events:
			assert.Equal(t, EventStop, ev)
		case <-time.After(5 * time.Second):
			return errors.New("no event after SIGTERM")
		}

		// Let the second interrupt finish its trip through the bridge
		// before the handler is torn down.
		time.Sleep(100 * time.Millisecond)
		return nil
	}, WithLogger(testLogger()))

	require.NoError(t, err)
}
