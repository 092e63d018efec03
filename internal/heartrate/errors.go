package heartrate

import (
	"errors"
	"fmt"
	"strings"
)

// ConnectionState represents the specific kind of connection failure
type ConnectionState string

const (
	ConnectFailed  ConnectionState = "connection_failed"
	ConnectionLost ConnectionState = "connection_lost"
	NotConnected   ConnectionState = "not_connected"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrConnectionFailed = &ConnectionError{State: ConnectFailed}
	ErrConnectionLost   = &ConnectionError{State: ConnectionLost}
	ErrNotConnected     = &ConnectionError{State: NotConnected}
)

var (
	// ErrHardwareUnavailable means the local radio is missing, powered off,
	// or the process lacks permission to use it.
	ErrHardwareUnavailable = errors.New("bluetooth hardware unavailable")

	// ErrSessionStarted is returned by Start on a session that is already running.
	ErrSessionStarted = errors.New("session already started")

	// ErrSessionClosed is returned by Start on a session that was stopped.
	// Sessions are single-use.
	ErrSessionClosed = errors.New("session closed")

	// ErrMalformedMeasurement is returned by ParseMeasurement for payloads
	// shorter than the flags field announces.
	ErrMalformedMeasurement = errors.New("malformed heart rate measurement")
)

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// containsIgnoreCase checks the substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// hardwareMessages are fragments reported by the platform stacks when the
// adapter cannot be used at all.
var hardwareMessages = []string{
	"bluetooth is turned off",
	"is bluetooth turned on",
	"central manager has invalid state",
	"no such device",
	"operation not permitted",
	"permission denied",
	"not authorized",
	"unauthorized",
	"unsupported platform",
}

// IsHardwareMessage reports whether an error message describes an unusable
// adapter rather than a problem with a particular peripheral.
func IsHardwareMessage(msg string) bool {
	for _, m := range hardwareMessages {
		if containsIgnoreCase(msg, m) {
			return true
		}
	}
	return false
}
