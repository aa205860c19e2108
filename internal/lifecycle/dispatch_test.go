package lifecycle

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avkarenow/beacond/internal/platform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// resetDispatch clears the once-per-process guard so each test starts
// from a fresh process as far as Run is concerned.
func resetDispatch(t *testing.T) {
	t.Helper()
	dispatched.Store(false)
	t.Cleanup(func() { dispatched.Store(false) })
}

func TestRun_PassesArgsAndInteractive(t *testing.T) {
	resetDispatch(t)

	var gotArgs []string
	var gotInteractive bool
	err := Run("beacond", func(_ <-chan Event, _ Sender, args []string, interactive bool) error {
		gotArgs = args
		gotInteractive = interactive
		return nil
	}, WithLogger(testLogger()))

	require.NoError(t, err)
	assert.Equal(t, os.Args[1:], gotArgs)
	assert.Equal(t, !platform.IsRunningAsService(), gotInteractive)
}

func TestRun_SecondDispatchFails(t *testing.T) {
	resetDispatch(t)

	noop := func(_ <-chan Event, _ Sender, _ []string, _ bool) error { return nil }

	require.NoError(t, Run("beacond", noop, WithLogger(testLogger())))

	err := Run("beacond", noop, WithLogger(testLogger()))
	assert.ErrorIs(t, err, ErrAlreadyDispatched)
}

func TestRun_BodyErrorPropagates(t *testing.T) {
	resetDispatch(t)

	wantErr := errors.New("beacon failed")
	err := Run("beacond", func(_ <-chan Event, _ Sender, _ []string, _ bool) error {
		return wantErr
	}, WithLogger(testLogger()))

	assert.ErrorIs(t, err, wantErr)
}

func TestRun_BodyCanRaiseOwnStop(t *testing.T) {
	resetDispatch(t)

	err := Run("beacond", func(events <-chan Event, sender Sender, _ []string, _ bool) error {
		require.True(t, sender.Send(EventStop))
		assert.Equal(t, EventStop, <-events)
		return nil
	}, WithLogger(testLogger()))

	require.NoError(t, err)
}
