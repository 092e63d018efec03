package trial

import (
	"fmt"
	"time"
)

const (
	zoneLowFraction  = 0.70
	zoneHighFraction = 0.90
)

// Zone is a target heart-rate range in bpm, inclusive on both ends
type Zone struct {
	Low  int
	High int
}

// Position of a reading relative to a Zone
type Position int

const (
	Below Position = iota
	Within
	Above
)

func (p Position) String() string {
	switch p {
	case Below:
		return "below"
	case Within:
		return "within"
	case Above:
		return "above"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

// TargetZone computes the Karvonen range for age and resting heart rate:
// HRmax = 220 - age, HRR = HRmax - rest, zone = rest + [0.70, 0.90]·HRR.
// Bounds are truncated toward zero.
func TargetZone(age int, restingHR float64) (Zone, error) {
	if age <= 0 {
		return Zone{}, fmt.Errorf("age must be positive, got %d", age)
	}
	if restingHR <= 0 {
		return Zone{}, fmt.Errorf("resting heart rate must be positive, got %.2f", restingHR)
	}
	maxHR := float64(220 - age)
	reserve := maxHR - restingHR
	if reserve <= 0 {
		return Zone{}, fmt.Errorf("resting heart rate %.2f is not below max heart rate %.0f", restingHR, maxHR)
	}
	return Zone{
		Low:  int(restingHR + zoneLowFraction*reserve),
		High: int(restingHR + zoneHighFraction*reserve),
	}, nil
}

// Classify reports where bpm falls relative to the zone
func (z Zone) Classify(bpm int) Position {
	switch {
	case bpm < z.Low:
		return Below
	case bpm > z.High:
		return Above
	default:
		return Within
	}
}

func (z Zone) String() string {
	return fmt.Sprintf("%d-%d bpm", z.Low, z.High)
}

// AgeAt returns the age in whole years on now for someone born on birth
func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
