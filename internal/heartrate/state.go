package heartrate

import "time"

// State is the lifecycle position of a Session
type State int

const (
	StateIdle       State = iota // constructed, never started
	StateConnecting              // goroutine running, dial/subscribe in progress
	StateStreaming               // subscribed; notifications update the value
	StateFailed                  // connect, subscribe, or link failed; see Err
	StateStopped                 // Stop completed; the session cannot restart
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is a consistent snapshot of a session for display
type Status struct {
	Address      string
	State        State
	Err          error
	Value        int
	LastSampleAt time.Time
}

// HasSample reports whether at least one measurement has been received
func (s Status) HasSample() bool {
	return !s.LastSampleAt.IsZero()
}
