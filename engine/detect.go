package engine

import (
	"sort"

	"osusync/dotosr"
)

type KeyPressSample struct {
	AbsoluteTimeMs int64
	K1, K2, M1, M2 bool
}

func (s KeyPressSample) Pressed() bool {
	return s.K1 || s.K2 || s.M1 || s.M2
}

// KeyPressSamples turns relative replay frames into absolute-time key states.
func KeyPressSamples(frames []dotosr.ReplayFrame) []KeyPressSample {
	samples := make([]KeyPressSample, 0, len(frames))
	var t int64
	for _, f := range frames {
		t += f.TimeDeltaMs
		samples = append(samples, KeyPressSample{
			AbsoluteTimeMs: t,
			K1:             f.Keys&dotosr.KeyK1 != 0,
			K2:             f.Keys&dotosr.KeyK2 != 0,
			M1:             f.Keys&dotosr.KeyM1 != 0,
			M2:             f.Keys&dotosr.KeyM2 != 0,
		})
	}
	// negative deltas exist (the second frame of most replays), so the running
	// sum is not guaranteed to be sorted
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].AbsoluteTimeMs < samples[j].AbsoluteTimeMs
	})
	return samples
}

type DetectionSummary struct {
	Hits      int
	Misses    int
	Completed int
}

// DetectHits marks WasHit and WasCompleted on every object. samples must be
// sorted by time, as returned by KeyPressSamples.
func DetectHits(objects []*HitObject, samples []KeyPressSample, windows HitWindows) DetectionSummary {
	var summary DetectionSummary
	for _, obj := range objects {
		detectHit(obj, samples, windows.W50)
		if obj.WasHit {
			summary.Hits++
		} else {
			summary.Misses++
		}
		if obj.WasCompleted {
			summary.Completed++
		}
	}
	return summary
}

func detectHit(obj *HitObject, samples []KeyPressSample, w50 float64) {
	start := obj.HitObjectTime
	end := start + obj.DurationMs

	lo, hi := sampleRange(samples, start-w50, end+w50)
	obj.WasHit = false
	for _, s := range samples[lo:hi] {
		if s.Pressed() {
			obj.WasHit = true
			break
		}
	}

	switch obj.Kind {
	case KindCircle:
		obj.WasCompleted = obj.WasHit

	case KindSlider:
		obj.WasCompleted = obj.WasHit
		if !obj.WasHit {
			break
		}
		lo, hi := sampleRange(samples, start, end)
		for _, s := range samples[lo:hi] {
			if !s.Pressed() {
				obj.WasCompleted = false
				break
			}
		}

	case KindSpinner:
		// only the last sample strictly before end counts, unlike sliders
		last := sort.Search(len(samples), func(i int) bool {
			return float64(samples[i].AbsoluteTimeMs) >= end
		}) - 1
		obj.WasCompleted = obj.WasHit && last >= 0 && samples[last].Pressed()
	}
}

// sampleRange returns [lo, hi) covering samples with from <= time <= to.
func sampleRange(samples []KeyPressSample, from, to float64) (int, int) {
	lo := sort.Search(len(samples), func(i int) bool {
		return float64(samples[i].AbsoluteTimeMs) >= from
	})
	hi := sort.Search(len(samples), func(i int) bool {
		return float64(samples[i].AbsoluteTimeMs) > to
	})
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
