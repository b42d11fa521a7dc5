package dotosr

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz/lzma"
)

// Encode writes r in the .osr layout read by Decode.
func Encode(w io.Writer, r *Replay) error {
	frames, err := compressFrames(r.Frames, r.Seed)
	if err != nil {
		return err
	}

	bw := &binWriter{w: bufio.NewWriter(w)}
	bw.u8(r.Mode)
	bw.u32(r.Version)
	bw.str(r.BeatmapMD5)
	bw.str(r.Username)
	bw.str(r.ReplayMD5)
	bw.u16(uint16(r.Count300))
	bw.u16(uint16(r.Count100))
	bw.u16(uint16(r.Count50))
	bw.u16(uint16(r.CountGeki))
	bw.u16(uint16(r.CountKatu))
	bw.u16(uint16(r.CountMiss))
	bw.u32(uint32(r.Score))
	bw.u16(uint16(r.MaxCombo))
	if r.Perfect {
		bw.u8(1)
	} else {
		bw.u8(0)
	}
	bw.u32(r.Mods)
	bw.str(r.LifeBar)
	bw.i64(r.Timestamp)
	bw.u32(uint32(len(frames)))
	bw.raw(frames)
	bw.i64(r.OnlineScoreID)
	if bw.err != nil {
		return bw.err
	}
	return bw.w.Flush()
}

func compressFrames(frames []ReplayFrame, seed int64) ([]byte, error) {
	var text strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&text, "%d|%s|%s|%d,",
			f.TimeDeltaMs,
			strconv.FormatFloat(float64(f.X), 'f', -1, 32),
			strconv.FormatFloat(float64(f.Y), 'f', -1, 32),
			f.Keys)
	}
	fmt.Fprintf(&text, "%d|0|0|%d,", SeedFrameDelta, seed)

	var buf bytes.Buffer
	lw, err := lzma.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("lzma writer: %w", err)
	}
	if _, err := io.WriteString(lw, text.String()); err != nil {
		return nil, fmt.Errorf("compress frames: %w", err)
	}
	if err := lw.Close(); err != nil {
		return nil, fmt.Errorf("compress frames: %w", err)
	}
	return buf.Bytes(), nil
}

type binWriter struct {
	w   *bufio.Writer
	err error
}

func (b *binWriter) raw(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
}

func (b *binWriter) u8(v uint8) { b.raw([]byte{v}) }

func (b *binWriter) u16(v uint16) { b.raw(binary.LittleEndian.AppendUint16(nil, v)) }

func (b *binWriter) u32(v uint32) { b.raw(binary.LittleEndian.AppendUint32(nil, v)) }

func (b *binWriter) i64(v int64) { b.raw(binary.LittleEndian.AppendUint64(nil, uint64(v))) }

func (b *binWriter) str(s string) {
	if s == "" {
		b.u8(0x00)
		return
	}
	b.u8(0x0b)
	b.raw(binary.AppendUvarint(nil, uint64(len(s))))
	b.raw([]byte(s))
}
