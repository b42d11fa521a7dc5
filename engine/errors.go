package engine

import (
	"errors"

	"osusync/dotosr"
	"osusync/dotosu"
)

var (
	ErrEmptyBeatmap        = errors.New("beatmap has no hit objects")
	ErrDegenerateCircleArc = errors.New("perfect circle control points are collinear")

	ErrFileNotFound         = dotosu.ErrFileNotFound
	ErrMalformedLine        = dotosu.ErrMalformedLine
	ErrUnsupportedCurveType = dotosu.ErrUnsupportedCurveType
	ErrCorruptReplay        = dotosr.ErrCorruptReplay
	ErrMalformedFrame       = dotosr.ErrMalformedFrame
)

// ParseWarning is a skipped or repaired record, reported instead of failing
// the whole file.
type ParseWarning = dotosu.ParseWarning

// IsFileNotFound matches missing beatmap and replay files alike.
func IsFileNotFound(err error) bool {
	return errors.Is(err, dotosu.ErrFileNotFound) || errors.Is(err, dotosr.ErrFileNotFound)
}
