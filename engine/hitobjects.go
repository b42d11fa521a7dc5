package engine

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"osusync/dotosu"
)

type Kind uint8

const (
	KindCircle Kind = iota
	KindSlider
	KindSpinner
)

func (k Kind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindSlider:
		return "slider"
	case KindSpinner:
		return "spinner"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

type SliderData struct {
	CurveType     CurveType
	ControlPoints []Point // including the head
	RepeatCount   uint32
	PixelLength   float64

	// filled by the curve evaluator
	StartPos Point
	EndPos   Point
	Path     []Point
}

type HitObject struct {
	Kind     Kind
	X, Y     int32
	TimeMs   int64
	HitType  uint8
	HitSound uint8

	ComboNumber     uint32
	ComboColorIndex uint32
	IsNewCombo      bool

	WasHit       bool
	WasCompleted bool

	HitObjectTime  float64 // ms, speed adjusted
	DurationMs     float64
	StartFrame     float64
	EndFrame       float64
	DurationFrames float64

	Slider    *SliderData
	EndTimeMs int64 // spinners only

	speed float64
}

// EndTime is the last map time (unscaled ms) the object is active.
func (h *HitObject) EndTime() float64 {
	switch h.Kind {
	case KindSpinner:
		return float64(h.EndTimeMs)
	case KindSlider:
		// DurationMs is speed adjusted, so undo it to stay in map time
		speed := h.speed
		if speed == 0 {
			speed = 1
		}
		return float64(h.TimeMs) + h.DurationMs*speed
	default:
		return float64(h.TimeMs)
	}
}

func (h *HitObject) Position() Point {
	return Point{X: float64(h.X), Y: float64(h.Y)}
}

type Options struct {
	Logger         logrus.FieldLogger
	Resolution     int
	MergeTolerance float64
}

type Processor struct {
	log        logrus.FieldLogger
	resolution int
	tolerance  float64
}

func NewProcessor(opts Options) *Processor {
	p := &Processor{
		log:        opts.Logger,
		resolution: opts.Resolution,
		tolerance:  opts.MergeTolerance,
	}
	if p.log == nil {
		p.log = logrus.StandardLogger()
	}
	if p.resolution <= 0 {
		p.resolution = DefaultResolution
	}
	if p.tolerance <= 0 {
		p.tolerance = DefaultMergeTolerance
	}
	return p
}

// ProcessHitObjects runs the default processor.
func ProcessHitObjects(
	beatmap *dotosu.Beatmap,
	mods Mods,
	msPerFrame float64,
	audioLeadIn float64,
) ([]*HitObject, []ParseWarning, error) {
	return NewProcessor(Options{}).Process(beatmap, mods, msPerFrame, audioLeadIn)
}

// Process turns the beatmap's raw hit object lines into typed objects with
// combo, timing and frame data resolved. Records that cannot be understood
// are skipped and reported as warnings.
func (p *Processor) Process(
	beatmap *dotosu.Beatmap,
	mods Mods,
	msPerFrame float64,
	audioLeadIn float64,
) ([]*HitObject, []ParseWarning, error) {
	if msPerFrame <= 0 {
		return nil, nil, fmt.Errorf("ms per frame must be positive, got %v", msPerFrame)
	}
	if len(beatmap.HitObjectLines) == 0 {
		return nil, nil, ErrEmptyBeatmap
	}

	speed := SpeedMultiplier(mods)
	timing := beatmap.TimingModel()
	nColours := uint32(len(beatmap.ComboColours()))
	leadInFrames := audioLeadIn / msPerFrame

	var warnings []ParseWarning
	warn := func(line dotosu.HitObjectLine, err error) {
		w := ParseWarning{Line: line.Line, Section: "HitObjects", Text: line.Text, Err: err}
		warnings = append(warnings, w)
		p.log.WithFields(logrus.Fields{
			"line":    line.Line,
			"section": w.Section,
		}).WithError(err).Debug("hit object warning")
	}

	objects := make([]*HitObject, 0, len(beatmap.HitObjectLines))
	var comboNumber uint32
	colour := int64(-1)

	for _, line := range beatmap.HitObjectLines {
		rec, err := beatmap.HitObject(line)
		if err != nil {
			warn(line, err)
			continue
		}
		if rec.Warn != nil {
			warn(line, rec.Warn)
		}

		newCombo := rec.Type.NewCombo()
		if newCombo || len(objects) == 0 {
			comboNumber = 1
			colour = (colour + 1 + int64(rec.Type.ComboSkip())) % int64(nColours)
		} else {
			comboNumber++
		}

		obj := &HitObject{
			X:               rec.X,
			Y:               rec.Y,
			TimeMs:          rec.Time,
			HitType:         uint8(rec.Type),
			HitSound:        rec.HitSound,
			ComboNumber:     comboNumber,
			ComboColorIndex: uint32(colour),
			IsNewCombo:      newCombo,
			speed:           speed,
		}

		switch {
		case rec.IsCircle():
			obj.Kind = KindCircle
		case rec.IsSlider():
			obj.Kind = KindSlider
			obj.Slider = &SliderData{
				CurveType:     rec.Curve,
				ControlPoints: rec.ControlPoints,
				RepeatCount:   rec.Repeats,
				PixelLength:   rec.PixelLength,
			}
			t := float64(rec.Time)
			obj.DurationMs = SliderDuration(
				rec.PixelLength,
				beatmap.Difficulty.SliderMultiplier,
				timing.BeatDurationAt(t),
				timing.VelocityMultiplierAt(t),
				rec.Repeats,
			) / speed
			if _, fallback := evaluateSlider(obj, p.resolution, p.tolerance); fallback != nil && !errors.Is(fallback, ErrUnsupportedCurveType) {
				// unsupported letters were already reported by the record parser
				warn(line, fallback)
			}
		case rec.IsSpinner():
			obj.Kind = KindSpinner
			obj.EndTimeMs = rec.EndTime
			obj.DurationMs = float64(rec.EndTime-rec.Time) / speed
		}

		obj.HitObjectTime = float64(rec.Time) / speed
		obj.StartFrame = obj.HitObjectTime/msPerFrame + leadInFrames
		obj.EndFrame = obj.StartFrame + obj.DurationMs/msPerFrame
		obj.DurationFrames = obj.EndFrame - obj.StartFrame

		objects = append(objects, obj)
	}

	if len(objects) == 0 {
		return nil, warnings, ErrEmptyBeatmap
	}
	return objects, warnings, nil
}

// SliderDuration is the unscaled time a slider takes across all its repeats.
func SliderDuration(pixelLength, sliderMultiplier, beatDuration, velocity float64, repeats uint32) float64 {
	return pixelLength / (sliderMultiplier * 100) * beatDuration * float64(repeats) * velocity
}
