package dotosu

import (
	"math"
	"sort"
)

// TimingModel answers tempo and slider velocity queries for any beatmap time.
// Red lines (BeatLength > 0) set the beat duration, green lines
// (BeatLength < 0) only scale slider velocity.
type TimingModel struct {
	points []TimingPoint

	// activeBeat[i] is the beat length in effect right after points[i].
	activeBeat []float64
	// activeVelocity[i] is the velocity multiplier in effect right after points[i].
	activeVelocity []float64
}

func NewTimingModel(points []TimingPoint) *TimingModel {
	sorted := make([]TimingPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	m := &TimingModel{
		points:         sorted,
		activeBeat:     make([]float64, len(sorted)),
		activeVelocity: make([]float64, len(sorted)),
	}
	beat := DEFAULT_BEAT_LENGTH
	for i, tp := range sorted {
		if tp.BeatLength > 0 {
			beat = tp.BeatLength
		}
		m.activeBeat[i] = beat
		m.activeVelocity[i] = tp.VelocityMultiplier()
	}
	return m
}

func (b *Beatmap) TimingModel() *TimingModel {
	return NewTimingModel(b.TimingPoints)
}

func (m *TimingModel) Points() []TimingPoint { return m.points }

// governing returns the index of the last point with Time <= t, or -1.
func (m *TimingModel) governing(t float64) int {
	return sort.Search(len(m.points), func(i int) bool { return m.points[i].Time > t }) - 1
}

func (m *TimingModel) BeatDurationAt(t float64) float64 {
	i := m.governing(t)
	if i < 0 {
		return DEFAULT_BEAT_LENGTH
	}
	return m.activeBeat[i]
}

func (m *TimingModel) VelocityMultiplierAt(t float64) float64 {
	i := m.governing(t)
	if i < 0 {
		return 1
	}
	return m.activeVelocity[i]
}

// BPM is derived from the shortest uninherited beat length.
func (m *TimingModel) BPM() float64 {
	shortest := math.Inf(1)
	for _, tp := range m.points {
		if tp.BeatLength > 0 && tp.BeatLength < shortest {
			shortest = tp.BeatLength
		}
	}
	if math.IsInf(shortest, 1) {
		shortest = DEFAULT_BEAT_LENGTH
	}
	return 60000 / shortest
}
