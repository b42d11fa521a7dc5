package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"osusync/dotosu"
)

func requirePointNear(t *testing.T, want, got Point) {
	t.Helper()
	require.InDelta(t, want.X, got.X, 1e-6, "x of %v", got)
	require.InDelta(t, want.Y, got.Y, 1e-6, "y of %v", got)
}

func TestEvaluateCurveEndpoints(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		curve CurveType
		pts   []Point
	}{
		{"linear", dotosu.CurveLinear, []Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}}},
		{"bezier", dotosu.CurveBezier, []Point{{X: 0, Y: 0}, {X: 50, Y: 120}, {X: 140, Y: 30}, {X: 200, Y: 200}}},
		{"bezier with anchor", dotosu.CurveBezier, []Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}}},
		{"catmull", dotosu.CurveCatmullRom, []Point{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 100, Y: 0}, {X: 150, Y: 75}}},
		{"perfect circle", dotosu.CurvePerfectCircle, []Point{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 100, Y: 0}}},
		{"trailing duplicate", dotosu.CurveBezier, []Point{{X: 0, Y: 0}, {X: 30, Y: 60}, {X: 90, Y: 10}, {X: 90, Y: 10.001}}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path, err := EvaluateCurve(tc.curve, tc.pts, 50, DefaultMergeTolerance)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(path), 2)

			merged := mergeNear(tc.pts, DefaultMergeTolerance)
			requirePointNear(t, merged[0], path[0])
			requirePointNear(t, merged[len(merged)-1], path[len(path)-1])

			for i := 1; i < len(path); i++ {
				require.Greater(t, dist(path[i-1], path[i]), DefaultMergeTolerance)
			}
		})
	}
}

func TestPerfectCircleArc(t *testing.T) {
	t.Parallel()

	path, err := EvaluateCurve(dotosu.CurvePerfectCircle, []Point{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 100, Y: 0}}, 50, DefaultMergeTolerance)
	require.NoError(t, err)
	require.Len(t, path, 51)
	for _, p := range path {
		require.InDelta(t, 50.0, dist(p, Point{X: 50, Y: 0}), 1e-6)
		require.GreaterOrEqual(t, p.Y, -1e-9)
	}
	requirePointNear(t, Point{X: 50, Y: 50}, path[25])

	// reversed middle point bends the arc the other way
	path, err = EvaluateCurve(dotosu.CurvePerfectCircle, []Point{{X: 0, Y: 0}, {X: 50, Y: -50}, {X: 100, Y: 0}}, 50, DefaultMergeTolerance)
	require.NoError(t, err)
	requirePointNear(t, Point{X: 50, Y: -50}, path[25])
}

func TestPerfectCircleDegenerate(t *testing.T) {
	t.Parallel()

	pts := []Point{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 100, Y: 0}}
	path, err := EvaluateCurve(dotosu.CurvePerfectCircle, pts, 50, DefaultMergeTolerance)
	require.ErrorIs(t, err, ErrDegenerateCircleArc)
	require.Equal(t, pts, path)
}

func TestPerfectCircleWrongPointCountFallsBackToBezier(t *testing.T) {
	t.Parallel()

	pts := []Point{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 100, Y: 0}, {X: 150, Y: 50}}
	got, err := EvaluateCurve(dotosu.CurvePerfectCircle, pts, 20, DefaultMergeTolerance)
	require.NoError(t, err)
	want, err := EvaluateCurve(dotosu.CurveBezier, pts, 20, DefaultMergeTolerance)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestBezierSplitsAtRepeatedAnchor(t *testing.T) {
	t.Parallel()

	pts := []Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}}
	path, err := EvaluateCurve(dotosu.CurveBezier, pts, 10, DefaultMergeTolerance)
	require.NoError(t, err)
	for _, p := range path {
		onFirst := math.Abs(p.Y) < 1e-9
		onSecond := math.Abs(p.X-100) < 1e-9
		require.True(t, onFirst || onSecond, "%v is off both segments", p)
	}
	require.InDelta(t, 200.0, PathLength(path), 1e-6)
}

func TestLinearMergesNearDuplicates(t *testing.T) {
	t.Parallel()

	path, err := EvaluateCurve(dotosu.CurveLinear, []Point{{X: 0, Y: 0}, {X: 0, Y: 0.001}, {X: 10, Y: 0}}, 50, DefaultMergeTolerance)
	require.NoError(t, err)
	require.Equal(t, []Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, path)
}

func TestUnknownCurveTypeFallsBackToLinear(t *testing.T) {
	t.Parallel()

	pts := []Point{{X: 0, Y: 0}, {X: 10, Y: 0}}
	path, err := EvaluateCurve(CurveType(42), pts, 50, DefaultMergeTolerance)
	require.ErrorIs(t, err, ErrUnsupportedCurveType)
	require.Equal(t, pts, path)
}

func TestPointAtDistance(t *testing.T) {
	t.Parallel()

	poly := []Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}
	requirePointNear(t, Point{X: 5, Y: 0}, PointAtDistance(poly, 5))
	requirePointNear(t, Point{X: 10, Y: 5}, PointAtDistance(poly, 15))
	requirePointNear(t, Point{X: 10, Y: 15}, PointAtDistance(poly, 25))
	requirePointNear(t, Point{X: 3, Y: 4}, PointAtDistance([]Point{{X: 3, Y: 4}}, 10))
	require.Equal(t, Point{}, PointAtDistance(nil, 10))
}

func TestEvaluateSliderCurve(t *testing.T) {
	t.Parallel()

	slider := &HitObject{
		Kind: KindSlider,
		Slider: &SliderData{
			CurveType:     dotosu.CurveLinear,
			ControlPoints: []Point{{X: 10, Y: 10}, {X: 110, Y: 10}},
		},
	}
	path, err := EvaluateSliderCurve(slider, 50)
	require.NoError(t, err)
	require.Equal(t, path, slider.Slider.Path)
	require.Equal(t, Point{X: 10, Y: 10}, slider.Slider.StartPos)
	require.Equal(t, Point{X: 110, Y: 10}, slider.Slider.EndPos)

	_, err = EvaluateSliderCurve(&HitObject{Kind: KindCircle}, 50)
	require.Error(t, err)
}
