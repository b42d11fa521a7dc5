package engine

import (
	"osusync/dotosr"
	"osusync/dotosu"
)

// FirstReplayEventTime is the absolute time of the first frame with the
// cursor on screen, or the total replay length when there is none.
func FirstReplayEventTime(frames []dotosr.ReplayFrame) int64 {
	var t int64
	for _, f := range frames {
		t += f.TimeDeltaMs
		if !f.Offscreen() {
			return t
		}
	}
	return t
}

func SyncOffset(firstHitObjectTime, audioLeadIn, speed float64, firstReplayEvent int64) float64 {
	return (firstHitObjectTime+audioLeadIn)/speed - float64(firstReplayEvent)
}

// ComputeSyncOffset returns the millisecond shift that lines the replay clock
// up with the beatmap clock. Callers apply it themselves.
func ComputeSyncOffset(beatmap *dotosu.Beatmap, replay *dotosr.Replay, mods Mods) (float64, error) {
	first, err := firstHitObjectTime(beatmap)
	if err != nil {
		return 0, err
	}
	return SyncOffset(
		float64(first),
		float64(beatmap.General.AudioLeadIn),
		SpeedMultiplier(mods),
		FirstReplayEventTime(replay.Frames),
	), nil
}

func firstHitObjectTime(beatmap *dotosu.Beatmap) (int64, error) {
	for _, line := range beatmap.HitObjectLines {
		rec, err := beatmap.HitObject(line)
		if err != nil {
			continue
		}
		return rec.Time, nil
	}
	return 0, ErrEmptyBeatmap
}
