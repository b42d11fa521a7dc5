package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"osusync/dotosu"
)

func TestModsString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "NM", Mods(0).String())
	require.Equal(t, "HDHR", (ModHidden | ModHardRock).String())
	require.Equal(t, "NC", (ModDoubleTime | ModNightcore).String())
	require.Equal(t, "PF", (ModSuddenDeath | ModPerfect).String())
}

func TestSpeedMultiplier(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1.0, SpeedMultiplier(0))
	require.Equal(t, 1.5, SpeedMultiplier(ModDoubleTime))
	require.Equal(t, 1.5, SpeedMultiplier(ModNightcore|ModDoubleTime))
	require.Equal(t, 0.75, SpeedMultiplier(ModHalfTime))
	require.Equal(t, 1.5, SpeedMultiplier(ModDoubleTime|ModHalfTime))
}

func TestHitWindowsMonotonic(t *testing.T) {
	t.Parallel()

	easy := GetHitWindows(0, 1)
	hard := GetHitWindows(10, 1)
	require.Greater(t, easy.W300, hard.W300)
	require.Greater(t, easy.W100, hard.W100)
	require.Greater(t, easy.W50, hard.W50)

	for _, od := range []float64{0, 3.5, 8, 10} {
		base := GetHitWindows(od, 1)
		double := GetHitWindows(od, 2)
		require.InDelta(t, base.W300/2, double.W300, 1e-9)
		require.InDelta(t, base.W100/2, double.W100, 1e-9)
		require.InDelta(t, base.W50/2, double.W50, 1e-9)
	}

	require.Equal(t, HitWindows{W300: 80, W100: 140, W50: 200}, GetHitWindows(0, 1))
}

func TestAdjustedAR(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 9.0, AdjustedAR(9, 0), 1e-9)
	require.InDelta(t, 10.0, AdjustedAR(9, ModHardRock), 1e-9)
	require.InDelta(t, 4.5, AdjustedAR(9, ModEasy), 1e-9)
	require.InDelta(t, 31.0/3, AdjustedAR(9, ModDoubleTime), 1e-9)
	require.InDelta(t, 11.0, AdjustedAR(10, ModHardRock|ModDoubleTime), 1e-9)
	require.LessOrEqual(t, AdjustedAR(10, ModDoubleTime), 11.0)
	require.Less(t, AdjustedAR(5, ModHalfTime), 5.0)

	for _, ar := range []float64{0, 2.5, 5, 7.3, 10} {
		require.InDelta(t, ar, PreemptToAR(ApproachRateToPreempt(ar)), 1e-9)
	}
}

func TestAdjustedCSAndOD(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 5.2, AdjustedCS(4, ModHardRock), 1e-9)
	require.InDelta(t, 10.0, AdjustedCS(9, ModHardRock), 1e-9)
	require.InDelta(t, 2.0, AdjustedCS(4, ModEasy), 1e-9)
	require.InDelta(t, 9.8, AdjustedOD(7, ModHardRock), 1e-9)
	require.InDelta(t, 3.5, AdjustedOD(7, ModEasy), 1e-9)
	require.InDelta(t, 27.2, OsuRadius(0), 1e-9)
	require.InDelta(t, 16.0, OsuRadius(5), 1e-9)
}

func TestGetBeatmapConstants(t *testing.T) {
	t.Parallel()

	b := dotosu.NewBeatmap()
	b.Difficulty.CircleSize = 4
	b.Difficulty.OverallDifficulty = 8
	b.Difficulty.ApproachRate = 9

	c := GetBeatmapConstants(b, ModDoubleTime)
	require.Equal(t, 1.5, c.Speed)
	require.InDelta(t, OsuRadius(4), c.CircleRadius, 1e-9)
	require.InDelta(t, 400.0, c.Preempt, 1e-9)
	require.Equal(t, GetHitWindows(8, 1.5), c.Windows)
}

func TestParseMods(t *testing.T) {
	t.Parallel()

	m, err := ParseMods("hdDT")
	require.NoError(t, err)
	require.Equal(t, ModHidden|ModDoubleTime, m)

	m, err = ParseMods("+NC,PF")
	require.NoError(t, err)
	require.Equal(t, ModNightcore|ModDoubleTime|ModPerfect|ModSuddenDeath, m)
	require.Equal(t, "NCPF", m.String())

	m, err = ParseMods("NM")
	require.NoError(t, err)
	require.Zero(t, m)

	_, err = ParseMods("HDX")
	require.Error(t, err)
	_, err = ParseMods("ZZ")
	require.Error(t, err)
}
