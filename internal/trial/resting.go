package trial

import (
	"context"
	"errors"
	"time"
)

// DefaultRestingDuration is how long a resting measurement lasts
const DefaultRestingDuration = 3 * time.Minute

// MeasureResting polls src every interval for duration and returns the
// mean reading rounded to 2 decimals. One sample is taken per interval,
// starting immediately. If ctx ends first the mean of the samples taken
// so far is returned together with ctx.Err().
func MeasureResting(ctx context.Context, src ValueSource, duration, interval time.Duration) (float64, error) {
	if src == nil {
		return 0, errors.New("no heart-rate source")
	}
	if interval <= 0 {
		return 0, errors.New("interval must be positive")
	}
	count := int(duration / interval)
	if count < 1 {
		return 0, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	samples := make([]Sample, 0, count)
	for i := 0; ; i++ {
		samples = append(samples, Sample{BPM: src.CurrentValue()})
		if i == count-1 {
			break
		}
		select {
		case <-ctx.Done():
			return MeanBPM(samples), ctx.Err()
		case <-ticker.C:
		}
	}

	// wait out the last interval so the window spans the full duration
	select {
	case <-ctx.Done():
		return MeanBPM(samples), ctx.Err()
	case <-ticker.C:
	}
	return MeanBPM(samples), nil
}
