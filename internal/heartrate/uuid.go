package heartrate

import "strings"

const (
	// ServiceUUID is the Bluetooth SIG Heart Rate service.
	ServiceUUID = "0000180d-0000-1000-8000-00805f9b34fb"

	// MeasurementUUID is the Heart Rate Measurement characteristic.
	MeasurementUUID = "00002a37-0000-1000-8000-00805f9b34fb"

	sigBasePrefix = "0000"
	sigBaseSuffix = "00001000800000805f9b34fb"
)

// NormalizeUUID converts a UUID string to the internal lookup form: lowercase,
// no dashes, no 0x prefix. Full 128-bit UUIDs in the Bluetooth SIG base
// (0000xxxx-0000-1000-8000-00805f9b34fb) are reduced to their 16-bit form.
func NormalizeUUID(uuid string) string {
	u := strings.ToLower(strings.TrimSpace(uuid))
	u = strings.TrimPrefix(u, "0x")
	u = strings.ReplaceAll(u, "-", "")

	if len(u) == 32 && strings.HasPrefix(u, sigBasePrefix) && strings.HasSuffix(u, sigBaseSuffix) {
		return u[4:8]
	}
	return u
}

// HasService reports whether uuid is present in services after normalization.
func HasService(services []string, uuid string) bool {
	want := NormalizeUUID(uuid)
	for _, s := range services {
		if NormalizeUUID(s) == want {
			return true
		}
	}
	return false
}
