package engine

import (
	"fmt"
	"math"
	"strings"

	"osusync/dotosu"
)

type Mods uint32

const (
	ModNoFail Mods = 1 << iota
	ModEasy
	ModTouchDevice
	ModHidden
	ModHardRock
	ModSuddenDeath
	ModDoubleTime
	ModRelax
	ModHalfTime
	ModNightcore
	ModFlashlight
	ModAutoplay
	ModSpunOut
	ModAutopilot
	ModPerfect
)

func (m Mods) Has(flag Mods) bool { return m&flag != 0 }

var modAcronyms = []struct {
	flag Mods
	name string
}{
	{ModNoFail, "NF"},
	{ModEasy, "EZ"},
	{ModTouchDevice, "TD"},
	{ModHidden, "HD"},
	{ModHardRock, "HR"},
	{ModSuddenDeath, "SD"},
	{ModDoubleTime, "DT"},
	{ModRelax, "RX"},
	{ModHalfTime, "HT"},
	{ModNightcore, "NC"},
	{ModFlashlight, "FL"},
	{ModAutoplay, "AT"},
	{ModSpunOut, "SO"},
	{ModAutopilot, "AP"},
	{ModPerfect, "PF"},
}

func (m Mods) String() string {
	var sb strings.Builder
	for _, a := range modAcronyms {
		if !m.Has(a.flag) {
			continue
		}
		// NC and PF are always stored together with DT and SD
		if a.flag == ModDoubleTime && m.Has(ModNightcore) {
			continue
		}
		if a.flag == ModSuddenDeath && m.Has(ModPerfect) {
			continue
		}
		sb.WriteString(a.name)
	}
	if sb.Len() == 0 {
		return "NM"
	}
	return sb.String()
}

// ParseMods reads acronyms such as "HDDT" or "hd,hr". NC and PF imply DT
// and SD the way the game stores them.
func ParseMods(s string) (Mods, error) {
	s = strings.ToUpper(strings.NewReplacer(",", "", "+", "", " ", "").Replace(s))
	if s == "" || s == "NM" {
		return 0, nil
	}
	if len(s)%2 != 0 {
		return 0, fmt.Errorf("invalid mods %q", s)
	}
	var m Mods
next:
	for i := 0; i < len(s); i += 2 {
		for _, a := range modAcronyms {
			if a.name == s[i:i+2] {
				m |= a.flag
				continue next
			}
		}
		return 0, fmt.Errorf("unknown mod %q", s[i:i+2])
	}
	if m.Has(ModNightcore) {
		m |= ModDoubleTime
	}
	if m.Has(ModPerfect) {
		m |= ModSuddenDeath
	}
	return m, nil
}

// SpeedMultiplier is the playback rate implied by the mods. DT/NC take
// precedence over HT.
func SpeedMultiplier(mods Mods) float64 {
	switch {
	case mods.Has(ModDoubleTime) || mods.Has(ModNightcore):
		return 1.5
	case mods.Has(ModHalfTime):
		return 0.75
	default:
		return 1.0
	}
}

func ApproachRateToPreempt(ar float64) float64 {
	if ar < 5 {
		return 1800 - 120*ar
	}
	return 1200 - 150*(ar-5)
}

func PreemptToAR(preempt float64) float64 {
	if preempt > 1200 {
		return (1800 - preempt) / 120
	}
	return (1200-preempt)/150 + 5
}

// AdjustedAR applies HR/EZ and then re-derives AR from the speed-scaled
// preempt time, so DT pushes AR past 10 and HT pulls it down.
func AdjustedAR(base float64, mods Mods) float64 {
	ar := base
	if mods.Has(ModHardRock) {
		ar = min(ar*1.4, 10)
	}
	if mods.Has(ModEasy) {
		ar *= 0.5
	}
	preempt := ApproachRateToPreempt(ar) / SpeedMultiplier(mods)
	return clamp(PreemptToAR(preempt), 0, 11)
}

func AdjustedCS(base float64, mods Mods) float64 {
	cs := base
	if mods.Has(ModHardRock) {
		cs = min(cs*1.3, 10)
	}
	if mods.Has(ModEasy) {
		cs *= 0.5
	}
	return cs
}

func AdjustedOD(base float64, mods Mods) float64 {
	od := base
	if mods.Has(ModHardRock) {
		od = min(od*1.4, 10)
	}
	if mods.Has(ModEasy) {
		od *= 0.5
	}
	return od
}

func OsuRadius(cs float64) float64 {
	return (54.4 - 4.48*cs) / 2
}

type HitWindows struct {
	W300, W100, W50 float64
}

func GetHitWindows(od, speedMultiplier float64) HitWindows {
	return HitWindows{
		W300: math.Max(80-6*od, 0) / speedMultiplier,
		W100: math.Max(140-8*od, 0) / speedMultiplier,
		W50:  math.Max(200-10*od, 0) / speedMultiplier,
	}
}

type MapConstants struct {
	Mods              Mods
	Speed             float64
	CircleSize        float64
	CircleRadius      float64
	ApproachRate      float64
	Preempt           float64 // ms of real time, speed already applied
	OverallDifficulty float64
	Windows           HitWindows
}

func GetBeatmapConstants(
	beatmap *dotosu.Beatmap,
	mods Mods,
) MapConstants {
	speed := SpeedMultiplier(mods)
	cs := AdjustedCS(beatmap.Difficulty.CircleSize, mods)
	od := AdjustedOD(beatmap.Difficulty.OverallDifficulty, mods)
	ar := AdjustedAR(beatmap.Difficulty.ApproachRate, mods)

	return MapConstants{
		Mods:              mods,
		Speed:             speed,
		CircleSize:        cs,
		CircleRadius:      OsuRadius(cs),
		ApproachRate:      ar,
		Preempt:           ApproachRateToPreempt(ar),
		OverallDifficulty: od,
		Windows:           GetHitWindows(od, speed),
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
