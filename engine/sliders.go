package engine

import (
	"fmt"
	"math"

	"osusync/dotosu"
)

const (
	DefaultResolution     = 50
	DefaultMergeTolerance = 0.01
)

type Point = dotosu.Vec2

type CurveType = dotosu.CurveType

// EvaluateCurve samples the control polygon into a dense polyline.
// Consecutive points closer than tolerance are merged; the first and last
// points of the result are always kept exactly.
//
// fallback is non-nil when the curve could not be evaluated as requested
// (unknown curve type, collinear perfect circle). path is usable either way.
func EvaluateCurve(curve CurveType, points []Point, resolution int, tolerance float64) (path []Point, fallback error) {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	if tolerance < 0 {
		tolerance = DefaultMergeTolerance
	}
	if len(points) == 0 {
		return nil, nil
	}

	switch curve {
	case dotosu.CurveLinear:
		path = mergeNear(points, tolerance)

	case dotosu.CurveBezier:
		path = approximateBezierSegments(points, resolution, tolerance)

	case dotosu.CurvePerfectCircle:
		merged := mergeNear(points, tolerance)
		if len(merged) != 3 {
			// only a three point arc is a circle; anything else is drawn as a bezier
			path = approximateBezierSegments(points, resolution, tolerance)
			break
		}
		var ok bool
		path, ok = approximateCircularArc(merged[0], merged[1], merged[2], resolution)
		if !ok {
			fallback = ErrDegenerateCircleArc
		}

	case dotosu.CurveCatmullRom:
		path = approximateCatmull(mergeNear(points, tolerance), resolution)

	default:
		fallback = fmt.Errorf("%w: %d", ErrUnsupportedCurveType, curve)
		path = mergeNear(points, tolerance)
	}

	return mergeNear(path, tolerance), fallback
}

// EvaluateSliderCurve fills in the slider's path and realised endpoints.
func EvaluateSliderCurve(slider *HitObject, resolution int) ([]Point, error) {
	return evaluateSlider(slider, resolution, DefaultMergeTolerance)
}

func evaluateSlider(slider *HitObject, resolution int, tolerance float64) ([]Point, error) {
	if slider.Kind != KindSlider || slider.Slider == nil {
		return nil, fmt.Errorf("hit object at %dms is a %s, not a slider", slider.TimeMs, slider.Kind)
	}
	s := slider.Slider
	path, fallback := EvaluateCurve(s.CurveType, s.ControlPoints, resolution, tolerance)
	s.Path = path
	if len(path) > 0 {
		s.StartPos = path[0]
		s.EndPos = path[len(path)-1]
	}
	return path, fallback
}

// --- Bezier ---

// approximateBezierSegments splits the control polygon at repeated anchors
// and evaluates every piece as its own Bezier curve.
func approximateBezierSegments(points []Point, resolution int, tolerance float64) []Point {
	var out []Point
	cur := []Point{points[0]}
	flush := func() {
		if len(cur) >= 2 {
			out = append(out, approximateBezier(cur, resolution)...)
		} else {
			out = append(out, cur...)
		}
	}
	for _, p := range points[1:] {
		if nearlyEqual(p, cur[len(cur)-1], tolerance) {
			flush()
			cur = []Point{p}
			continue
		}
		cur = append(cur, p)
	}
	flush()
	return out
}

// approximateBezier samples B(t) = sum C(n,i) t^i (1-t)^(n-i) P_i at
// resolution+1 evenly spaced t.
func approximateBezier(cp []Point, resolution int) []Point {
	n := len(cp) - 1
	coeffs := binomialRow(n)
	out := make([]Point, 0, resolution+1)
	for s := 0; s <= resolution; s++ {
		t := float64(s) / float64(resolution)
		var p Point
		for i, c := range cp {
			b := coeffs[i] * math.Pow(t, float64(i)) * math.Pow(1-t, float64(n-i))
			p.X += b * c.X
			p.Y += b * c.Y
		}
		out = append(out, p)
	}
	return out
}

func binomialRow(n int) []float64 {
	row := make([]float64, n+1)
	row[0] = 1
	for i := 1; i <= n; i++ {
		row[i] = row[i-1] * float64(n-i+1) / float64(i)
	}
	return row
}

// --- Catmull-Rom (uniform, tension 0) ---

func approximateCatmull(pts []Point, resolution int) []Point {
	n := len(pts)
	if n <= 1 {
		return pts
	}
	out := make([]Point, 0, (n-1)*resolution+1)
	out = append(out, pts[0])
	for i := 0; i < n-1; i++ {
		p0 := pts[max(i-1, 0)]
		p1 := pts[i]
		p2 := pts[i+1]
		p3 := pts[min(i+2, n-1)]
		for s := 1; s <= resolution; s++ {
			t := float64(s) / float64(resolution)
			out = append(out, catmullPoint(p0, p1, p2, p3, t))
		}
	}
	return out
}

func catmullPoint(p0, p1, p2, p3 Point, t float64) Point {
	t2 := t * t
	t3 := t2 * t
	return Point{
		X: 0.5 * ((2 * p1.X) + (-p0.X+p2.X)*t + (2*p0.X-5*p1.X+4*p2.X-p3.X)*t2 + (-p0.X+3*p1.X-3*p2.X+p3.X)*t3),
		Y: 0.5 * ((2 * p1.Y) + (-p0.Y+p2.Y)*t + (2*p0.Y-5*p1.Y+4*p2.Y-p3.Y)*t2 + (-p0.Y+3*p1.Y-3*p2.Y+p3.Y)*t3),
	}
}

// --- Perfect circle ---

// approximateCircularArc sweeps from p1 to p3 through p2. It reports false
// and returns the raw points when they are collinear.
func approximateCircularArc(p1, p2, p3 Point, resolution int) ([]Point, bool) {
	c, ok := circumcenter(p1, p2, p3)
	if !ok {
		return []Point{p1, p2, p3}, false
	}
	r := dist(c, p1)

	a1 := math.Atan2(p1.Y-c.Y, p1.X-c.X)
	a3 := math.Atan2(p3.Y-c.Y, p3.X-c.X)

	// negative cross product means the arc runs clockwise
	dir := 1.0
	if cross(sub(p2, p1), sub(p3, p2)) < 0 {
		dir = -1.0
	}
	delta := angleDiff(a1, a3, dir)

	out := make([]Point, 0, resolution+1)
	out = append(out, p1)
	for i := 1; i < resolution; i++ {
		a := a1 + delta*float64(i)/float64(resolution)
		out = append(out, Point{X: c.X + math.Cos(a)*r, Y: c.Y + math.Sin(a)*r})
	}
	out = append(out, p3)
	return out, true
}

func circumcenter(a, b, c Point) (Point, bool) {
	d := 2 * (a.X*(b.Y-c.Y) + b.X*(c.Y-a.Y) + c.X*(a.Y-b.Y))
	if math.Abs(d) < 1e-8 {
		return Point{}, false
	}
	a2 := a.X*a.X + a.Y*a.Y
	b2 := b.X*b.X + b.Y*b.Y
	c2 := c.X*c.X + c.Y*c.Y
	return Point{
		X: (a2*(b.Y-c.Y) + b2*(c.Y-a.Y) + c2*(a.Y-b.Y)) / d,
		Y: (a2*(c.X-b.X) + b2*(a.X-c.X) + c2*(b.X-a.X)) / d,
	}, true
}

// angleDiff returns the signed sweep from aStart to aEnd going in dir.
func angleDiff(aStart, aEnd, dir float64) float64 {
	d := aEnd - aStart
	for d <= -math.Pi {
		d += 2 * math.Pi
	}
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	if dir < 0 && d > 0 {
		d -= 2 * math.Pi
	} else if dir > 0 && d < 0 {
		d += 2 * math.Pi
	}
	return d
}

// --- helpers ---

// mergeNear drops points within tolerance of the previously kept point. The
// final input point replaces its near duplicate so the endpoint survives.
func mergeNear(pts []Point, tolerance float64) []Point {
	if len(pts) == 0 {
		return nil
	}
	out := make([]Point, 0, len(pts))
	out = append(out, pts[0])
	for i := 1; i < len(pts); i++ {
		p := pts[i]
		if nearlyEqual(out[len(out)-1], p, tolerance) {
			if i == len(pts)-1 && len(out) > 1 {
				out[len(out)-1] = p
			}
			continue
		}
		out = append(out, p)
	}
	return out
}

func nearlyEqual(a, b Point, tolerance float64) bool {
	return dist(a, b) <= tolerance
}

func sub(a, b Point) Point       { return Point{X: a.X - b.X, Y: a.Y - b.Y} }
func cross(a, b Point) float64 { return a.X*b.Y - a.Y*b.X }
func dist(a, b Point) float64  { return math.Hypot(a.X-b.X, a.Y-b.Y) }

func PathLength(poly []Point) float64 {
	total := 0.0
	for i := 1; i < len(poly); i++ {
		total += dist(poly[i-1], poly[i])
	}
	return total
}

// PointAtDistance walks distance pixels along poly, extrapolating along the
// last segment when the path is shorter than distance.
func PointAtDistance(poly []Point, distance float64) Point {
	switch len(poly) {
	case 0:
		return Point{}
	case 1:
		return poly[0]
	}
	for i := 1; i < len(poly); i++ {
		dir := sub(poly[i], poly[i-1])
		l := math.Hypot(dir.X, dir.Y)
		if distance <= l {
			if l == 0 {
				return poly[i-1]
			}
			return Point{
				X: poly[i-1].X + dir.X*distance/l,
				Y: poly[i-1].Y + dir.Y*distance/l,
			}
		}
		distance -= l
	}
	from := poly[len(poly)-1]
	dir := sub(poly[len(poly)-1], poly[len(poly)-2])
	l := math.Hypot(dir.X, dir.Y)
	if l == 0 {
		return from
	}
	return Point{
		X: from.X + dir.X*distance/l,
		Y: from.Y + dir.Y*distance/l,
	}
}
