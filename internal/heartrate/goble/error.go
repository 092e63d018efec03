package goble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/srg/hrmon/internal/heartrate"
)

// NormalizeError maps known go-ble and platform error strings to the
// heartrate sentinel errors. Returns wrapped errors to preserve original context.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, heartrate.ErrHardwareUnavailable) || errors.Is(err, heartrate.ErrNotConnected) {
		return err
	}

	msg := err.Error()
	switch {
	case heartrate.IsHardwareMessage(msg):
		return fmt.Errorf("%w: %v", heartrate.ErrHardwareUnavailable, err)
	case containsIgnoreCase(msg, "device not connected"):
		return fmt.Errorf("%w: %v", heartrate.ErrNotConnected, err)
	case containsIgnoreCase(msg, "disconnected"):
		return fmt.Errorf("%w: %v", heartrate.ErrNotConnected, err)
	default:
		return err
	}
}

// containsIgnoreCase checks the substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
