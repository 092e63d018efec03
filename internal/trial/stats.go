package trial

import (
	"math"
	"time"
)

// Sample is one polled reading of a trial series
type Sample struct {
	Protocol string
	Elapsed  time.Duration
	BPM      int
}

// ElapsedSeconds returns the elapsed time rounded to 2 decimals
func (s Sample) ElapsedSeconds() float64 {
	return round2(s.Elapsed.Seconds())
}

// Summary describes a finished series
type Summary struct {
	Samples  []Sample
	Duration time.Duration
	MeanHR   float64
}

// MeanBPM averages the readings rounded to 2 decimals; 0 when empty
func MeanBPM(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	total := 0
	for _, s := range samples {
		total += s.BPM
	}
	return round2(float64(total) / float64(len(samples)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
