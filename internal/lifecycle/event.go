package lifecycle

// Event is a control instruction delivered to a running service body.
type Event int

const (
	// EventStop asks the body to shut down and return.
	EventStop Event = iota
	// EventPause asks the body to suspend work without exiting.
	EventPause
	// EventContinue asks a paused body to resume work.
	EventContinue
)

// String returns the lowercase event name.
func (e Event) String() string {
	switch e {
	case EventStop:
		return "stop"
	case EventPause:
		return "pause"
	case EventContinue:
		return "continue"
	default:
		return "unknown"
	}
}
