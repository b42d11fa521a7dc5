package engine

import (
	"sort"

	"github.com/fogleman/ease"
)

const FadeInMs = 400.0

// Attribute is one animatable property of a hit object. The set is closed:
// Show, WasHit, WasCompleted, Duration, Opacity and Position.
type Attribute interface {
	attribute()
}

type (
	Show         bool
	WasHit       bool
	WasCompleted bool
	Duration     float64 // frames
	Opacity      float64 // 0..1
	Position     Point
)

func (Show) attribute()         {}
func (WasHit) attribute()       {}
func (WasCompleted) attribute() {}
func (Duration) attribute()     {}
func (Opacity) attribute()      {}
func (Position) attribute()     {}

type Keyframe struct {
	Frame float64
	Attr  Attribute
}

// BuildKeyframes lays out the visibility timeline of one processed object:
// it appears one preempt before its start frame, fades in, carries its hit
// state at the start frame and disappears at its end frame.
func BuildKeyframes(obj *HitObject, c MapConstants, msPerFrame float64) []Keyframe {
	speed := c.Speed
	if speed == 0 {
		speed = 1
	}
	appear := obj.StartFrame - c.Preempt/msPerFrame
	fadeIn := min(FadeInMs/speed, c.Preempt) / msPerFrame

	pos := obj.Position()
	if obj.Slider != nil && len(obj.Slider.Path) > 0 {
		pos = obj.Slider.StartPos
	}

	frames := []Keyframe{
		{Frame: appear, Attr: Show(true)},
		{Frame: appear, Attr: Position(pos)},
		{Frame: appear, Attr: Opacity(0)},
		{Frame: appear + fadeIn, Attr: Opacity(1)},
		{Frame: obj.StartFrame, Attr: WasHit(obj.WasHit)},
		{Frame: obj.StartFrame, Attr: WasCompleted(obj.WasCompleted)},
		{Frame: obj.StartFrame, Attr: Duration(obj.DurationFrames)},
	}
	if obj.Slider != nil && len(obj.Slider.Path) > 0 {
		frames = append(frames, Keyframe{Frame: obj.EndFrame, Attr: Position(obj.Slider.EndPos)})
	}
	frames = append(frames, Keyframe{Frame: obj.EndFrame, Attr: Show(false)})

	sort.SliceStable(frames, func(i, j int) bool { return frames[i].Frame < frames[j].Frame })
	return frames
}

// OpacityAt evaluates the eased opacity at frame. Hidden objects are fully
// transparent.
func OpacityAt(frames []Keyframe, frame float64) float64 {
	var (
		prev, next    *Keyframe
		visible       bool
		sawVisibility bool
	)
	for i := range frames {
		k := &frames[i]
		switch a := k.Attr.(type) {
		case Show:
			if k.Frame <= frame {
				visible = bool(a)
				sawVisibility = true
			}
		case Opacity:
			if k.Frame <= frame {
				prev = k
			} else if next == nil {
				next = k
			}
		}
	}
	if sawVisibility && !visible {
		return 0
	}
	switch {
	case prev == nil && next == nil:
		return 1
	case prev == nil:
		return 0
	case next == nil || next.Frame == prev.Frame:
		return float64(prev.Attr.(Opacity))
	}
	from := float64(prev.Attr.(Opacity))
	to := float64(next.Attr.(Opacity))
	t := (frame - prev.Frame) / (next.Frame - prev.Frame)
	return from + (to-from)*ease.OutQuad(t)
}
