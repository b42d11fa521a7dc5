package dotosu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimingModelLookups(t *testing.T) {
	t.Parallel()

	m := NewTimingModel([]TimingPoint{
		{Time: 2000, BeatLength: -50},
		{Time: 1000, BeatLength: 400},
		{Time: 3000, BeatLength: 300},
		{Time: 4000, BeatLength: -200},
	})

	require.Equal(t, 500.0, m.BeatDurationAt(0))
	require.Equal(t, 1.0, m.VelocityMultiplierAt(0))

	require.Equal(t, 400.0, m.BeatDurationAt(1000))
	require.Equal(t, 1.0, m.VelocityMultiplierAt(1500))

	require.Equal(t, 400.0, m.BeatDurationAt(2500))
	require.Equal(t, 2.0, m.VelocityMultiplierAt(2500))

	// a red line resets the green line multiplier
	require.Equal(t, 300.0, m.BeatDurationAt(3500))
	require.Equal(t, 1.0, m.VelocityMultiplierAt(3500))

	require.Equal(t, 300.0, m.BeatDurationAt(9000))
	require.Equal(t, 0.5, m.VelocityMultiplierAt(9000))

	require.Equal(t, 200.0, m.BPM())
}

func TestTimingModelChangesOnlyAtOffsets(t *testing.T) {
	t.Parallel()

	points := []TimingPoint{
		{Time: 0, BeatLength: 500},
		{Time: 750, BeatLength: -80},
		{Time: 1200, BeatLength: -120},
		{Time: 2000, BeatLength: 350},
		{Time: 2600, BeatLength: -25},
	}
	m := NewTimingModel(points)
	offsets := map[float64]bool{}
	for _, tp := range points {
		offsets[tp.Time] = true
	}

	prevBeat, prevVel := m.BeatDurationAt(-1), m.VelocityMultiplierAt(-1)
	for ms := 0.0; ms <= 3000; ms++ {
		beat, vel := m.BeatDurationAt(ms), m.VelocityMultiplierAt(ms)
		if beat != prevBeat || vel != prevVel {
			require.True(t, offsets[ms], "value changed at %v which is not a timing point offset", ms)
		}
		prevBeat, prevVel = beat, vel
	}
}

func TestTimingModelBPMDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, 120.0, NewTimingModel(nil).BPM())
}
