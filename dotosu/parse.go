package dotosu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
)

const (
	EARLY_VERSION_TIMING_OFFSET = 24
	LATEST_VERSION              = 14
	DEFAULT_BEAT_LENGTH         = 500.0
)

var (
	ErrFileNotFound         = errors.New("file not found")
	ErrMalformedLine        = errors.New("malformed line")
	ErrUnsupportedCurveType = errors.New("unsupported curve type")
)

type section int

const (
	secNone section = iota
	secGeneral
	secEditor
	secMetadata
	secDifficulty
	secEvents
	secTimingPoints
	secColours
	secHitObjects
)

func (s section) String() string {
	switch s {
	case secGeneral:
		return "General"
	case secEditor:
		return "Editor"
	case secMetadata:
		return "Metadata"
	case secDifficulty:
		return "Difficulty"
	case secEvents:
		return "Events"
	case secTimingPoints:
		return "TimingPoints"
	case secColours:
		return "Colours"
	case secHitObjects:
		return "HitObjects"
	default:
		return ""
	}
}

type Beatmap struct {
	FormatVersion int
	General       General
	Metadata      Metadata
	Difficulty    Difficulty
	Events        Events

	TimingPoints   []TimingPoint
	Colours        []colorful.Color
	HitObjectLines []HitObjectLine

	// TimeOffset is added to every time read from the file. It is
	// EARLY_VERSION_TIMING_OFFSET for files older than v5. Timing points,
	// breaks and PreviewTime already carry it; hit-object lines are kept
	// verbatim, so read them through Beatmap.HitObject.
	TimeOffset int

	// Warnings lists every record that was skipped or only partially understood.
	Warnings []ParseWarning
}

type General struct {
	AudioFilename        string
	AudioLeadIn          int
	PreviewTime          int
	Countdown            int
	SampleSet            string
	StackLeniency        float64
	Mode                 int
	LetterboxInBreaks    bool
	WidescreenStoryboard bool
}

type Metadata struct {
	Title, TitleUnicode            string
	Artist, ArtistUnicode          string
	Creator, Version, Source, Tags string
	BeatmapID, BeatmapSetID        int
}

type Difficulty struct {
	HPDrainRate, CircleSize, OverallDifficulty, ApproachRate float64
	SliderMultiplier, SliderTickRate                         float64
}

type BreakPeriod struct{ Start, End float64 }

type Events struct {
	BackgroundFile string
	VideoFile      string
	Breaks         []BreakPeriod
	// Lines holds every event line verbatim, including the typed ones above.
	Lines []string
}

type TimingPoint struct {
	Time        float64
	BeatLength  float64
	Meter       int
	SampleSet   int
	SampleIndex int
	Volume      int
	Uninherited bool
	Effects     int
}

// Inherited points only scale slider velocity.
func (tp TimingPoint) Inherited() bool { return tp.BeatLength < 0 }

func (tp TimingPoint) VelocityMultiplier() float64 {
	if tp.BeatLength < 0 {
		return -100 / tp.BeatLength
	}
	return 1
}

type HitObjectLine struct {
	Line int
	Text string
}

// ParseWarning describes a record that was skipped or repaired while decoding.
type ParseWarning struct {
	Line    int
	Section string
	Text    string
	Err     error
}

func (w ParseWarning) Error() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d [%s] %q: %v", w.Line, w.Section, w.Text, w.Err)
	}
	return fmt.Sprintf("[%s] %q: %v", w.Section, w.Text, w.Err)
}

func (w ParseWarning) Unwrap() error { return w.Err }

var DefaultComboColours = []colorful.Color{
	{R: 255.0 / 255, G: 192.0 / 255, B: 0},
	{R: 0, G: 202.0 / 255, B: 0},
	{R: 18.0 / 255, G: 124.0 / 255, B: 1},
	{R: 242.0 / 255, G: 24.0 / 255, B: 57.0 / 255},
}

// ComboColours returns the colours in effect; beatmaps without a [Colours]
// section use the default skin palette.
func (b *Beatmap) ComboColours() []colorful.Color {
	if len(b.Colours) == 0 {
		return DefaultComboColours
	}
	return b.Colours
}

func NewBeatmap() *Beatmap {
	return &Beatmap{
		FormatVersion: LATEST_VERSION,
		General: General{
			SampleSet:     "Normal",
			StackLeniency: 0.7,
		},
		Difficulty: Difficulty{
			HPDrainRate:       5,
			CircleSize:        5,
			OverallDifficulty: 5,
			ApproachRate:      5,
			SliderMultiplier:  1.4,
			SliderTickRate:    1,
		},
	}
}

// ---------- Public API ----------

type Decoder struct {
	Logger logrus.FieldLogger
}

func NewDecoder(logger logrus.FieldLogger) *Decoder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Decoder{Logger: logger}
}

func DecodeFile(path string) (*Beatmap, error) {
	return NewDecoder(nil).DecodeFile(path)
}

func Decode(r io.Reader) (*Beatmap, error) {
	return NewDecoder(nil).Decode(r)
}

func (d *Decoder) DecodeFile(path string) (*Beatmap, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrFileNotFound, err)
		}
		return nil, err
	}
	defer f.Close()
	b, err := d.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return b, nil
}

func (d *Decoder) Decode(r io.Reader) (*Beatmap, error) {
	sc := bufio.NewScanner(r)
	const maxLine = 1024 * 1024
	buf := make([]byte, 64*1024)
	sc.Buffer(buf, maxLine)

	b := NewBeatmap()
	p := &lineParser{b: b, log: d.Logger}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if p.sec == secNone && strings.HasPrefix(strings.ToLower(line), "osu file format v") {
			versionStr := strings.TrimSpace(line[len("osu file format v"):])
			v, err := strconv.Atoi(versionStr)
			if err != nil {
				p.warn(lineNo, line, fmt.Errorf("%w: bad format version", ErrMalformedLine))
				continue
			}
			b.FormatVersion = v
			if v < 5 {
				p.offset = EARLY_VERSION_TIMING_OFFSET
			}
			b.TimeOffset = p.offset
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			p.sec = sectionFor(line)
			continue
		}
		p.parseLine(lineNo, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(b.TimingPoints, func(i, j int) bool {
		return b.TimingPoints[i].Time < b.TimingPoints[j].Time
	})
	sort.SliceStable(p.colours, func(i, j int) bool {
		return p.colours[i].index < p.colours[j].index
	})
	for _, c := range p.colours {
		b.Colours = append(b.Colours, c.colour)
	}
	applyDifficultyRestrictions(&b.Difficulty)
	return b, nil
}

func sectionFor(header string) section {
	switch strings.ToLower(header) {
	case "[general]":
		return secGeneral
	case "[editor]":
		return secEditor
	case "[metadata]":
		return secMetadata
	case "[difficulty]":
		return secDifficulty
	case "[events]":
		return secEvents
	case "[timingpoints]":
		return secTimingPoints
	case "[colours]", "[colors]":
		return secColours
	case "[hitobjects]":
		return secHitObjects
	default:
		return secNone
	}
}

type indexedColour struct {
	index  int
	colour colorful.Color
}

type lineParser struct {
	b       *Beatmap
	log     logrus.FieldLogger
	sec     section
	offset  int
	colours []indexedColour
}

func (p *lineParser) warn(lineNo int, text string, err error) {
	w := ParseWarning{Line: lineNo, Section: p.sec.String(), Text: text, Err: err}
	p.b.Warnings = append(p.b.Warnings, w)
	p.log.WithFields(logrus.Fields{
		"line":    lineNo,
		"section": w.Section,
	}).WithError(err).Debug("skipping beatmap record")
}

func (p *lineParser) parseLine(lineNo int, line string) {
	b := p.b
	switch p.sec {
	case secGeneral:
		k, v, ok := p.keyVal(lineNo, line)
		if !ok {
			return
		}
		var err error
		switch strings.ToLower(k) {
		case "audiofilename":
			b.General.AudioFilename = standardisePath(v)
		case "audioleadin":
			b.General.AudioLeadIn, err = strictInt(v)
		case "previewtime":
			b.General.PreviewTime, err = strictInt(v)
			if err == nil && b.General.PreviewTime != -1 {
				b.General.PreviewTime += p.offset
			}
		case "countdown":
			b.General.Countdown, err = strictInt(v)
		case "sampleset":
			b.General.SampleSet = v
		case "stackleniency":
			b.General.StackLeniency, err = strictFloat(v)
		case "mode":
			b.General.Mode, err = strictInt(v)
		case "letterboxinbreaks":
			b.General.LetterboxInBreaks = parseBoolInt(v)
		case "widescreenstoryboard":
			b.General.WidescreenStoryboard = parseBoolInt(v)
		}
		if err != nil {
			p.warn(lineNo, line, err)
		}

	case secMetadata:
		k, v, ok := p.keyVal(lineNo, line)
		if !ok {
			return
		}
		var err error
		switch strings.ToLower(k) {
		case "title":
			b.Metadata.Title = v
		case "titleunicode":
			b.Metadata.TitleUnicode = v
		case "artist":
			b.Metadata.Artist = v
		case "artistunicode":
			b.Metadata.ArtistUnicode = v
		case "creator":
			b.Metadata.Creator = v
		case "version":
			b.Metadata.Version = v
		case "source":
			b.Metadata.Source = v
		case "tags":
			b.Metadata.Tags = v
		case "beatmapid":
			b.Metadata.BeatmapID, err = strictInt(v)
		case "beatmapsetid":
			b.Metadata.BeatmapSetID, err = strictInt(v)
		}
		if err != nil {
			p.warn(lineNo, line, err)
		}

	case secDifficulty:
		k, v, ok := p.keyVal(lineNo, line)
		if !ok {
			return
		}
		var target *float64
		switch strings.ToLower(k) {
		case "hpdrainrate":
			target = &b.Difficulty.HPDrainRate
		case "circlesize":
			target = &b.Difficulty.CircleSize
		case "overalldifficulty":
			target = &b.Difficulty.OverallDifficulty
		case "approachrate":
			target = &b.Difficulty.ApproachRate
		case "slidermultiplier":
			target = &b.Difficulty.SliderMultiplier
		case "slidertickrate":
			target = &b.Difficulty.SliderTickRate
		default:
			return
		}
		f, err := strictFloat(v)
		if err != nil {
			p.warn(lineNo, line, err)
			return
		}
		*target = f

	case secEvents:
		p.parseEvent(lineNo, line)

	case secTimingPoints:
		tp, err := parseTimingPoint(line, p.offset)
		if err != nil {
			p.warn(lineNo, line, err)
			return
		}
		b.TimingPoints = append(b.TimingPoints, tp)

	case secColours:
		k, v, ok := p.keyVal(lineNo, line)
		if !ok {
			return
		}
		if !strings.HasPrefix(strings.ToLower(k), "combo") {
			return
		}
		idx, err := strconv.Atoi(k[len("combo"):])
		if err != nil {
			p.warn(lineNo, line, fmt.Errorf("%w: bad combo index", ErrMalformedLine))
			return
		}
		c, err := parseColour(v)
		if err != nil {
			p.warn(lineNo, line, err)
			return
		}
		p.colours = append(p.colours, indexedColour{index: idx, colour: c})

	case secHitObjects:
		b.HitObjectLines = append(b.HitObjectLines, HitObjectLine{Line: lineNo, Text: line})
	}
}

func (p *lineParser) keyVal(lineNo int, line string) (string, string, bool) {
	k, v, ok := splitKeyVal(line)
	if !ok {
		p.warn(lineNo, line, fmt.Errorf("%w: expected key:value", ErrMalformedLine))
	}
	return k, v, ok
}

func (p *lineParser) parseEvent(lineNo int, line string) {
	ev := &p.b.Events
	ev.Lines = append(ev.Lines, line)
	parts := splitCSV(line)
	switch strings.ToLower(parts[0]) {
	case "0", "background":
		if len(parts) >= 3 {
			ev.BackgroundFile = cleanFilename(parts[2])
		}
	case "1", "video":
		if len(parts) >= 3 {
			fn := cleanFilename(parts[2])
			switch strings.ToLower(filepath.Ext(fn)) {
			case ".avi", ".flv", ".mp4", ".mkv", ".mov", ".wmv", ".mpg", ".mpeg", ".ogv", ".webm":
				ev.VideoFile = fn
			default:
				ev.BackgroundFile = fn
			}
		}
	case "2", "break":
		if len(parts) < 3 {
			p.warn(lineNo, line, fmt.Errorf("%w: break needs start and end", ErrMalformedLine))
			return
		}
		start, err1 := strictFloat(parts[1])
		end, err2 := strictFloat(parts[2])
		if err := errors.Join(err1, err2); err != nil {
			p.warn(lineNo, line, err)
			return
		}
		start += float64(p.offset)
		end += float64(p.offset)
		ev.Breaks = append(ev.Breaks, BreakPeriod{Start: start, End: math.Max(start, end)})
	}
}

func parseTimingPoint(line string, offset int) (TimingPoint, error) {
	parts := splitCSV(line)
	if len(parts) < 2 {
		return TimingPoint{}, fmt.Errorf("%w: timing point needs offset and beat length", ErrMalformedLine)
	}
	t, err := strictFloat(parts[0])
	if err != nil {
		return TimingPoint{}, err
	}
	beatLen, err := strictFloat(parts[1])
	if err != nil {
		return TimingPoint{}, err
	}
	if math.IsNaN(beatLen) || math.IsInf(beatLen, 0) {
		return TimingPoint{}, fmt.Errorf("%w: beat length %q", ErrMalformedLine, parts[1])
	}
	tp := TimingPoint{
		Time:        t + float64(offset),
		BeatLength:  beatLen,
		Meter:       4,
		SampleSet:   0,
		Volume:      100,
		Uninherited: beatLen > 0,
	}
	if len(parts) >= 3 {
		if m := parseInt(parts[2], 4); m > 0 {
			tp.Meter = m
		}
	}
	if len(parts) >= 4 {
		tp.SampleSet = parseInt(parts[3], 0)
	}
	if len(parts) >= 5 {
		tp.SampleIndex = parseInt(parts[4], 0)
	}
	if len(parts) >= 6 {
		tp.Volume = parseInt(parts[5], 100)
	}
	if len(parts) >= 7 {
		tp.Uninherited = strings.TrimSpace(parts[6]) == "1"
	}
	if len(parts) >= 8 {
		tp.Effects = parseInt(parts[7], 0)
	}
	return tp, nil
}

func parseColour(v string) (colorful.Color, error) {
	parts := strings.Split(v, ",")
	if len(parts) < 3 {
		return colorful.Color{}, fmt.Errorf("%w: colour needs r,g,b", ErrMalformedLine)
	}
	var rgb [3]uint8
	for i := range rgb {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return colorful.Color{}, fmt.Errorf("%w: colour component %q", ErrMalformedLine, parts[i])
		}
		rgb[i] = uint8(n)
	}
	return colorful.Color{R: float64(rgb[0]) / 255, G: float64(rgb[1]) / 255, B: float64(rgb[2]) / 255}, nil
}

// ---------- parsing helpers ----------

func splitKeyVal(line string) (key, val string, ok bool) {
	i := strings.Index(line, ":")
	if i < 0 {
		return strings.TrimSpace(line), "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

func strictInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedLine, s)
		}
		return int(f), nil
	}
	return v, nil
}

func strictFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedLine, s)
	}
	return v, nil
}

func parseInt(s string, def int) int {
	v, err := strictInt(s)
	if err != nil {
		return def
	}
	return v
}

func parseBoolInt(s string) bool { return strings.TrimSpace(s) == "1" }

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func standardisePath(p string) string {
	p = strings.Trim(p, "\"")
	return strings.ReplaceAll(p, "\\", "/")
}

func cleanFilename(s string) string {
	return standardisePath(s)
}

func splitCSV(line string) []string {
	var out []string
	var cur strings.Builder
	inQ := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch c {
		case '"':
			inQ = !inQ
		case ',':
			if inQ {
				cur.WriteByte(c)
			} else {
				out = append(out, strings.TrimSpace(cur.String()))
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	out = append(out, strings.TrimSpace(cur.String()))
	return out
}

func applyDifficultyRestrictions(d *Difficulty) {
	d.HPDrainRate = clampFloat(d.HPDrainRate, 0, 10)
	d.CircleSize = clampFloat(d.CircleSize, 0, 10)
	d.OverallDifficulty = clampFloat(d.OverallDifficulty, 0, 10)
	d.ApproachRate = clampFloat(d.ApproachRate, 0, 10)
	d.SliderMultiplier = clampFloat(d.SliderMultiplier, 0.4, 3.6)
	d.SliderTickRate = clampFloat(d.SliderTickRate, 0.5, 8.0)
}
