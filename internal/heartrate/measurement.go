package heartrate

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Heart Rate Measurement flag bits
const (
	FlagValueUint16      byte = 1 << 0
	FlagContactDetected  byte = 1 << 1
	FlagContactSupported byte = 1 << 2
	FlagEnergyExpended   byte = 1 << 3
	FlagRRIntervals      byte = 1 << 4
)

// Decoder turns one notification payload into a bpm value.
// ok is false when the payload carries no usable value and must be ignored.
type Decoder func(payload []byte) (bpm int, ok bool)

// DecodeLegacy reads byte 1 as the bpm value whenever the payload has at
// least two bytes. The 16-bit format flag is not consulted, so sensors
// sending 16-bit values above 255 are reported modulo 256.
func DecodeLegacy(payload []byte) (int, bool) {
	if len(payload) < 2 {
		return 0, false
	}
	return int(payload[1]), true
}

// DecodeFull decodes the value honoring the format flag.
func DecodeFull(payload []byte) (int, bool) {
	m, err := ParseMeasurement(payload)
	if err != nil {
		return 0, false
	}
	return m.BPM, true
}

// Measurement is a fully decoded Heart Rate Measurement notification
type Measurement struct {
	BPM              int
	ContactSupported bool
	ContactDetected  bool
	EnergyExpended   *int // kJ, nil when absent
	RRIntervals      []time.Duration
}

// ParseMeasurement decodes the complete Heart Rate Measurement format.
func ParseMeasurement(payload []byte) (Measurement, error) {
	var m Measurement
	if len(payload) < 2 {
		return m, fmt.Errorf("%w: %d bytes", ErrMalformedMeasurement, len(payload))
	}

	flags := payload[0]
	off := 1

	if flags&FlagValueUint16 != 0 {
		if len(payload) < off+2 {
			return m, fmt.Errorf("%w: truncated 16-bit value", ErrMalformedMeasurement)
		}
		m.BPM = int(binary.LittleEndian.Uint16(payload[off:]))
		off += 2
	} else {
		m.BPM = int(payload[off])
		off++
	}

	m.ContactSupported = flags&FlagContactSupported != 0
	m.ContactDetected = m.ContactSupported && flags&FlagContactDetected != 0

	if flags&FlagEnergyExpended != 0 {
		if len(payload) < off+2 {
			return m, fmt.Errorf("%w: truncated energy expended", ErrMalformedMeasurement)
		}
		e := int(binary.LittleEndian.Uint16(payload[off:]))
		m.EnergyExpended = &e
		off += 2
	}

	if flags&FlagRRIntervals != 0 {
		for ; off+2 <= len(payload); off += 2 {
			raw := binary.LittleEndian.Uint16(payload[off:])
			// RR resolution is 1/1024 s
			m.RRIntervals = append(m.RRIntervals, time.Duration(raw)*time.Second/1024)
		}
	}

	return m, nil
}

// DecoderByName resolves a configured decoder name.
func DecoderByName(name string) (Decoder, error) {
	switch name {
	case "", "legacy":
		return DecodeLegacy, nil
	case "full":
		return DecodeFull, nil
	default:
		return nil, fmt.Errorf("unknown decoder %q: use legacy or full", name)
	}
}
