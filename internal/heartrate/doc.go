// Package heartrate implements heart-rate telemetry acquisition from
// Bluetooth Low Energy sensors exposing the standard Heart Rate service.
//
// The package provides:
//   - Device discovery bounded by a scan window (Discoverer)
//   - A per-device streaming session with its own goroutine (Session)
//   - A single-active-session owner for applications (Monitor)
//   - Heart Rate Measurement payload decoding
//
// The radio itself is reached through the Radio and Link interfaces; the
// go-ble backed implementation lives in the goble subpackage.
package heartrate
