//go:build !linux && !darwin

package goble

import (
	"fmt"
	"runtime"

	"github.com/go-ble/ble"
	"github.com/srg/hrmon/internal/heartrate"
)

func defaultDevice() (ble.Device, error) {
	return nil, fmt.Errorf("%w: unsupported platform %s", heartrate.ErrHardwareUnavailable, runtime.GOOS)
}
