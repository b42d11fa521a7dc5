// Package dotosr reads and writes osu! .osr replay files.
package dotosr

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz/lzma"

	"osusync/dotosu"
)

var (
	ErrFileNotFound   = errors.New("file not found")
	ErrCorruptReplay  = errors.New("corrupt replay")
	ErrMalformedFrame = errors.New("malformed replay frame")
)

const framesSection = "Frames"

const (
	SeedFrameDelta = -12345
	OffscreenCoord = -256

	maxBlobSize = 64 << 20
)

type Keys uint8

const (
	KeyM1 Keys = 1 << iota
	KeyM2
	KeyK1
	KeyK2
	KeySmoke
)

type ReplayFrame struct {
	TimeDeltaMs int64
	X, Y        float32
	Keys        Keys
}

// Offscreen reports the (-256,-256) sentinel position.
func (f ReplayFrame) Offscreen() bool {
	return f.X == OffscreenCoord && f.Y == OffscreenCoord
}

type Replay struct {
	Mode          uint8
	Version       uint32
	BeatmapMD5    string
	Username      string
	ReplayMD5     string
	Count300      uint32
	Count100      uint32
	Count50       uint32
	CountGeki     uint32
	CountKatu     uint32
	CountMiss     uint32
	Score         uint64
	MaxCombo      uint32
	Perfect       bool
	Mods          uint32
	LifeBar       string
	Timestamp     int64 // .NET ticks
	Frames        []ReplayFrame
	Seed          int64
	OnlineScoreID int64

	// Warnings lists frame records that were skipped. Line is the record
	// index in the frame stream.
	Warnings []dotosu.ParseWarning
}

// Accuracy reproduces the header statistics as a 0..1 ratio.
func (r *Replay) Accuracy() float64 {
	total := float64(r.Count300 + r.Count100 + r.Count50 + r.CountMiss)
	if total == 0 {
		return 0
	}
	return (300*float64(r.Count300) + 100*float64(r.Count100) + 50*float64(r.Count50)) / (300 * total)
}

type Decoder struct {
	Logger logrus.FieldLogger
}

func NewDecoder(logger logrus.FieldLogger) *Decoder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Decoder{Logger: logger}
}

func DecodeFile(path string) (*Replay, error) {
	return NewDecoder(nil).DecodeFile(path)
}

func Decode(r io.Reader) (*Replay, error) {
	return NewDecoder(nil).Decode(r)
}

func (d *Decoder) DecodeFile(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrFileNotFound, err)
		}
		return nil, err
	}
	defer f.Close()
	rep, err := d.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rep, nil
}

func (d *Decoder) Decode(r io.Reader) (*Replay, error) {
	br := &binReader{r: bufio.NewReader(r)}
	rep := &Replay{}

	rep.Mode = br.u8()
	rep.Version = br.u32()
	rep.BeatmapMD5 = br.str()
	rep.Username = br.str()
	rep.ReplayMD5 = br.str()
	rep.Count300 = uint32(br.u16())
	rep.Count100 = uint32(br.u16())
	rep.Count50 = uint32(br.u16())
	rep.CountGeki = uint32(br.u16())
	rep.CountKatu = uint32(br.u16())
	rep.CountMiss = uint32(br.u16())
	rep.Score = uint64(br.u32())
	rep.MaxCombo = uint32(br.u16())
	rep.Perfect = br.u8() != 0
	rep.Mods = br.u32()
	rep.LifeBar = br.str()
	rep.Timestamp = br.i64()
	compressed := br.bytes(int(int32(br.u32())))
	if br.err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptReplay, br.err)
	}
	// older replays end right after the frame data
	rep.OnlineScoreID = br.i64()
	if br.err != nil && !errors.Is(br.err, io.EOF) && !errors.Is(br.err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %w", ErrCorruptReplay, br.err)
	}

	if len(compressed) == 0 {
		return rep, nil
	}
	lr, err := lzma.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: frame stream: %w", ErrCorruptReplay, err)
	}
	raw, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("%w: frame stream: %w", ErrCorruptReplay, err)
	}
	rep.Frames, rep.Seed, rep.Warnings = d.parseFrames(string(raw))
	return rep, nil
}

// parseFrames splits the "w|x|y|z," frame text. Broken records are skipped
// and returned as warnings.
func (d *Decoder) parseFrames(text string) ([]ReplayFrame, int64, []dotosu.ParseWarning) {
	var (
		frames   []ReplayFrame
		seed     int64
		warnings []dotosu.ParseWarning
	)
	skip := func(i int, rec string, err error) {
		warnings = append(warnings, dotosu.ParseWarning{Line: i, Section: framesSection, Text: rec, Err: err})
		d.Logger.WithFields(logrus.Fields{"frame": i, "record": rec}).WithError(err).Debug("skipping replay frame")
	}
	for i, rec := range strings.Split(text, ",") {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		parts := strings.Split(rec, "|")
		if len(parts) != 4 {
			skip(i, rec, fmt.Errorf("%w: want 4 fields, got %d", ErrMalformedFrame, len(parts)))
			continue
		}
		w, err1 := strconv.ParseInt(parts[0], 10, 64)
		x, err2 := strconv.ParseFloat(parts[1], 32)
		y, err3 := strconv.ParseFloat(parts[2], 32)
		z, err4 := strconv.ParseInt(parts[3], 10, 64)
		if err := errors.Join(err1, err2, err3, err4); err != nil {
			skip(i, rec, fmt.Errorf("%w: %w", ErrMalformedFrame, err))
			continue
		}
		if w == SeedFrameDelta {
			seed = z
			continue
		}
		frames = append(frames, ReplayFrame{TimeDeltaMs: w, X: float32(x), Y: float32(y), Keys: Keys(z)})
	}
	return frames, seed, warnings
}

type binReader struct {
	r   *bufio.Reader
	err error
}

func (b *binReader) read(n int) []byte {
	if b.err != nil {
		return make([]byte, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.r, buf); err != nil {
		b.err = err
	}
	return buf
}

func (b *binReader) u8() uint8   { return b.read(1)[0] }
func (b *binReader) u16() uint16 { return binary.LittleEndian.Uint16(b.read(2)) }
func (b *binReader) u32() uint32 { return binary.LittleEndian.Uint32(b.read(4)) }
func (b *binReader) i64() int64  { return int64(binary.LittleEndian.Uint64(b.read(8))) }

func (b *binReader) bytes(n int) []byte {
	if n < 0 || n > maxBlobSize {
		if b.err == nil {
			b.err = fmt.Errorf("bad length %d", n)
		}
		return nil
	}
	return b.read(n)
}

func (b *binReader) uleb128() uint64 {
	var v uint64
	var shift uint
	for {
		c := b.u8()
		if b.err != nil {
			return 0
		}
		v |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return v
		}
		shift += 7
		if shift > 63 {
			b.err = errors.New("uleb128 overflow")
			return 0
		}
	}
}

// str reads an osu! string: 0x00 for empty, or 0x0b, ULEB128 length, UTF-8 bytes.
func (b *binReader) str() string {
	switch marker := b.u8(); marker {
	case 0x00:
		return ""
	case 0x0b:
		n := b.uleb128()
		if n > 1<<20 {
			if b.err == nil {
				b.err = fmt.Errorf("string length %d too large", n)
			}
			return ""
		}
		return string(b.read(int(n)))
	default:
		if b.err == nil {
			b.err = fmt.Errorf("bad string marker 0x%02x", marker)
		}
		return ""
	}
}
