package trial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetZone(t *testing.T) {
	tests := []struct {
		name string
		age  int
		rest float64
		want Zone
	}{
		{name: "whole resting rate", age: 25, rest: 70, want: Zone{Low: 157, High: 182}},
		{name: "fractional resting rate truncates", age: 40, rest: 65.5, want: Zone{Low: 145, High: 168}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zone, err := TargetZone(tt.age, tt.rest)

			require.NoError(t, err)
			assert.Equal(t, tt.want, zone)
		})
	}
}

func TestTargetZone_Rejects(t *testing.T) {
	_, err := TargetZone(0, 60)
	assert.Error(t, err)

	_, err = TargetZone(30, 0)
	assert.Error(t, err)

	_, err = TargetZone(30, 200)
	assert.Error(t, err, "resting rate above max leaves no reserve")
}

func TestZone_Classify(t *testing.T) {
	zone := Zone{Low: 150, High: 170}

	assert.Equal(t, Below, zone.Classify(0))
	assert.Equal(t, Below, zone.Classify(149))
	assert.Equal(t, Within, zone.Classify(150))
	assert.Equal(t, Within, zone.Classify(170))
	assert.Equal(t, Above, zone.Classify(171))
	assert.Equal(t, "150-170 bpm", zone.String())
	assert.Equal(t, "within", Within.String())
}

func TestAgeAt(t *testing.T) {
	birth := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 29, AgeAt(birth, time.Date(2020, time.June, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, AgeAt(birth, time.Date(2020, time.June, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, AgeAt(birth, time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, AgeAt(birth, time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMeanBPM(t *testing.T) {
	assert.Equal(t, 0.0, MeanBPM(nil))
	assert.Equal(t, 71.0, MeanBPM([]Sample{{BPM: 70}, {BPM: 72}}))
	assert.Equal(t, 70.33, MeanBPM([]Sample{{BPM: 70}, {BPM: 70}, {BPM: 71}}))
	assert.Equal(t, 47.33, MeanBPM([]Sample{{BPM: 0}, {BPM: 71}, {BPM: 71}}), "zero readings count")
}
