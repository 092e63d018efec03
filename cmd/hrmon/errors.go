package main

import (
	"errors"
	"strings"

	"github.com/srg/hrmon/internal/heartrate"
)

// FormatUserError turns an error chain into a message for the terminal
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, heartrate.ErrHardwareUnavailable):
		return "Bluetooth is unavailable. Turn Bluetooth on and check that this program may use it (" + err.Error() + ")"
	case errors.Is(err, heartrate.ErrConnectionLost):
		return "Connection to the heart-rate sensor was lost (" + err.Error() + ")"
	case errors.Is(err, heartrate.ErrConnectionFailed):
		return "Could not connect to the heart-rate sensor. Make sure it is worn and nearby (" + err.Error() + ")"
	}

	msg := err.Error()
	if msg == "" {
		return "unknown error"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
