package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildKeyframesOrdering(t *testing.T) {
	t.Parallel()

	b := beatmapWith("0,0,2000,6,0,L|100:0,1,140")
	objects, _, err := ProcessHitObjects(b, 0, msPerFrame, 0)
	require.NoError(t, err)
	slider := objects[0]
	slider.WasHit = true

	c := GetBeatmapConstants(b, 0)
	frames := BuildKeyframes(slider, c, msPerFrame)

	for i := 1; i < len(frames); i++ {
		require.LessOrEqual(t, frames[i-1].Frame, frames[i].Frame)
	}
	require.Equal(t, Show(true), frames[0].Attr)
	require.InDelta(t, slider.StartFrame-c.Preempt/msPerFrame, frames[0].Frame, 1e-9)
	last := frames[len(frames)-1]
	require.Equal(t, Show(false), last.Attr)
	require.InDelta(t, slider.EndFrame, last.Frame, 1e-9)

	var sawHit, sawEnd bool
	for _, k := range frames {
		switch a := k.Attr.(type) {
		case WasHit:
			sawHit = bool(a)
			require.InDelta(t, slider.StartFrame, k.Frame, 1e-9)
		case Position:
			if k.Frame == slider.EndFrame {
				sawEnd = Point(a) == Point{X: 100, Y: 0}
			}
		case Duration:
			require.InDelta(t, slider.DurationFrames, float64(a), 1e-9)
		}
	}
	require.True(t, sawHit)
	require.True(t, sawEnd)
}

func TestOpacityAt(t *testing.T) {
	t.Parallel()

	frames := []Keyframe{
		{Frame: 10, Attr: Show(true)},
		{Frame: 10, Attr: Opacity(0)},
		{Frame: 20, Attr: Opacity(1)},
		{Frame: 40, Attr: Show(false)},
	}
	require.Zero(t, OpacityAt(frames, 5))
	require.Zero(t, OpacityAt(frames, 10))
	require.InDelta(t, 0.75, OpacityAt(frames, 15), 1e-9)
	require.Equal(t, 1.0, OpacityAt(frames, 20))
	require.Equal(t, 1.0, OpacityAt(frames, 30))
	require.Zero(t, OpacityAt(frames, 40))
	require.Equal(t, 1.0, OpacityAt(nil, 0))
}
