package dotosu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type HitObjectTypeFlags uint8

const (
	TypeCircle     HitObjectTypeFlags = 1 << iota // 1
	TypeSlider                                    // 2
	TypeNewCombo                                  // 4
	TypeSpinner                                   // 8
	TypeComboSkip1                                // 16
	TypeComboSkip2                                // 32
	TypeComboSkip3                                // 64
	TypeHold       HitObjectTypeFlags = 1 << 7    // 128
)

func (f HitObjectTypeFlags) NewCombo() bool { return f&TypeNewCombo != 0 }

// ComboSkip is the number of extra combo colours to skip when a new combo starts.
func (f HitObjectTypeFlags) ComboSkip() int { return int(f>>4) & 0b111 }

type CurveType uint8

const (
	CurveLinear CurveType = iota
	CurvePerfectCircle
	CurveBezier
	CurveCatmullRom
)

func (c CurveType) String() string {
	switch c {
	case CurveLinear:
		return "L"
	case CurvePerfectCircle:
		return "P"
	case CurveBezier:
		return "B"
	case CurveCatmullRom:
		return "C"
	default:
		return "?"
	}
}

// ParseCurveType maps a slider path letter to its curve type. Unknown letters
// come back as CurveLinear together with ErrUnsupportedCurveType.
func ParseCurveType(s string) (CurveType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L":
		return CurveLinear, nil
	case "P":
		return CurvePerfectCircle, nil
	case "B":
		return CurveBezier, nil
	case "C":
		return CurveCatmullRom, nil
	default:
		return CurveLinear, fmt.Errorf("%w: %q", ErrUnsupportedCurveType, s)
	}
}

type Vec2 struct{ X, Y float64 }

// HitObjectRecord is one [HitObjects] line split into typed columns. The
// shape of the trailing columns depends on the type bits.
type HitObjectRecord struct {
	X, Y     int32
	Time     int64
	Type     HitObjectTypeFlags
	HitSound uint8

	// slider
	Curve         CurveType
	ControlPoints []Vec2 // including the slider head
	Repeats       uint32
	PixelLength   float64

	// spinner
	EndTime int64

	// Warn is a non-fatal problem with the record, e.g. an unknown curve
	// letter or a column that had to be repaired.
	Warn error
}

func (r HitObjectRecord) IsCircle() bool  { return r.Type&TypeCircle != 0 }
func (r HitObjectRecord) IsSlider() bool  { return r.Type&TypeSlider != 0 }
func (r HitObjectRecord) IsSpinner() bool { return r.Type&TypeSpinner != 0 }

// ParseHitObject parses "x,y,time,type,hitSound,[extras...]".
func ParseHitObject(line string) (HitObjectRecord, error) {
	parts := splitCSV(line)
	if len(parts) < 5 {
		return HitObjectRecord{}, fmt.Errorf("%w: hit object needs at least 5 fields, got %d", ErrMalformedLine, len(parts))
	}
	x, err := strictFloat(parts[0])
	if err != nil {
		return HitObjectRecord{}, err
	}
	y, err := strictFloat(parts[1])
	if err != nil {
		return HitObjectRecord{}, err
	}
	t, err := strictFloat(parts[2])
	if err != nil {
		return HitObjectRecord{}, err
	}
	typ, err := strictInt(parts[3])
	if err != nil {
		return HitObjectRecord{}, err
	}
	var repairs []error
	hs, err := strictInt(parts[4])
	if err != nil {
		repairs = append(repairs, fmt.Errorf("hit sound reset to 0: %w", err))
		hs = 0
	}

	rec := HitObjectRecord{
		X:        int32(x),
		Y:        int32(y),
		Time:     int64(t),
		Type:     HitObjectTypeFlags(typ),
		HitSound: uint8(hs),
	}

	switch {
	case rec.IsCircle():
	case rec.IsSlider():
		if len(parts) < 8 {
			return HitObjectRecord{}, fmt.Errorf("%w: slider needs path, repeats and length", ErrMalformedLine)
		}
		head := Vec2{X: float64(rec.X), Y: float64(rec.Y)}
		var curveWarn error
		rec.Curve, rec.ControlPoints, curveWarn = parseSliderPath(head, parts[5])
		repairs = append(repairs, curveWarn)
		repeats, err := strictInt(parts[6])
		if err != nil {
			return HitObjectRecord{}, err
		}
		if repeats < 1 {
			repairs = append(repairs, fmt.Errorf("%w: repeat count %d raised to 1", ErrMalformedLine, repeats))
			repeats = 1
		}
		rec.Repeats = uint32(repeats)
		rec.PixelLength, err = strictFloat(parts[7])
		if err != nil {
			return HitObjectRecord{}, err
		}
		if rec.PixelLength < 0 || math.IsNaN(rec.PixelLength) {
			return HitObjectRecord{}, fmt.Errorf("%w: bad slider length %q", ErrMalformedLine, parts[7])
		}
	case rec.IsSpinner():
		if len(parts) < 6 {
			return HitObjectRecord{}, fmt.Errorf("%w: spinner needs an end time", ErrMalformedLine)
		}
		end, err := strictFloat(parts[5])
		if err != nil {
			return HitObjectRecord{}, err
		}
		rec.EndTime = int64(end)
		if rec.EndTime < rec.Time {
			repairs = append(repairs, fmt.Errorf("%w: spinner ends at %d before it starts at %d", ErrMalformedLine, rec.EndTime, rec.Time))
			rec.EndTime = rec.Time
		}
	default:
		return HitObjectRecord{}, fmt.Errorf("%w: unsupported hit object type %d", ErrMalformedLine, typ)
	}
	rec.Warn = errors.Join(repairs...)
	return rec, nil
}

// HitObject parses one of b's hit-object lines and shifts it by TimeOffset so
// it lines up with the timing points.
func (b *Beatmap) HitObject(line HitObjectLine) (HitObjectRecord, error) {
	rec, err := ParseHitObject(line.Text)
	if err != nil {
		return rec, err
	}
	rec.Time += int64(b.TimeOffset)
	if rec.IsSpinner() {
		rec.EndTime += int64(b.TimeOffset)
	}
	return rec, nil
}

// shiftFields adds offset to the numeric comma-separated columns at idx.
// Columns that are not numbers are left alone.
func shiftFields(line string, offset int, idx ...int) string {
	if offset == 0 {
		return line
	}
	parts := strings.Split(line, ",")
	for _, i := range idx {
		if i >= len(parts) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			continue
		}
		parts[i] = strconv.FormatFloat(v+float64(offset), 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// shiftHitObjectLine moves a hit-object line by offset: the start time, and
// the end time of spinners.
func shiftHitObjectLine(line string, offset int) string {
	parts := strings.Split(line, ",")
	if len(parts) < 4 {
		return line
	}
	typ, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return line
	}
	if HitObjectTypeFlags(typ)&TypeSpinner != 0 {
		return shiftFields(line, offset, 2, 5)
	}
	return shiftFields(line, offset, 2)
}

// parseSliderPath converts "B|x:y|x:y|..." into a curve type and control
// points. The slider head is the first point; the string supplies the rest.
func parseSliderPath(head Vec2, path string) (CurveType, []Vec2, error) {
	path = strings.TrimSpace(path)
	typeStr, rest, _ := strings.Cut(path, "|")
	curve, warn := ParseCurveType(typeStr)

	cps := []Vec2{head}
	if strings.TrimSpace(rest) != "" {
		for _, t := range strings.Split(rest, "|") {
			xStr, yStr, ok := strings.Cut(strings.TrimSpace(t), ":")
			if !ok {
				continue
			}
			x, errX := strictFloat(xStr)
			y, errY := strictFloat(yStr)
			if errX != nil || errY != nil {
				continue
			}
			cps = append(cps, Vec2{X: x, Y: y})
		}
	}
	return curve, cps, warn
}
