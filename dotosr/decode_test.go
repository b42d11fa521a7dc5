package dotosr

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma"
)

func sampleReplay() *Replay {
	return &Replay{
		Mode:       0,
		Version:    20240101,
		BeatmapMD5: "d41d8cd98f00b204e9800998ecf8427e",
		Username:   "player",
		ReplayMD5:  "0123456789abcdef0123456789abcdef",
		Count300:   300,
		Count100:   12,
		Count50:    3,
		CountMiss:  1,
		Score:      1234567,
		MaxCombo:   512,
		Mods:       64 | 16,
		LifeBar:    "0|1,1000|0.8,",
		Timestamp:  638000000000000000,
		Frames: []ReplayFrame{
			{TimeDeltaMs: 0, X: -256, Y: -256},
			{TimeDeltaMs: -1, X: -256, Y: -256},
			{TimeDeltaMs: 480, X: 100.5, Y: 200.25},
			{TimeDeltaMs: 16, X: 101, Y: 201, Keys: KeyK1 | KeyM1},
			{TimeDeltaMs: 17, X: 102, Y: 202, Keys: KeyK2 | KeyM2},
		},
		Seed:          7,
		OnlineScoreID: 99,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	want := sampleReplay()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, want))

	got, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDecodeWithoutOnlineScoreID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleReplay()))
	data := buf.Bytes()[:buf.Len()-8]

	got, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, int64(0), got.OnlineScoreID)
	require.Len(t, got.Frames, 5)
}

func TestDecodeTruncated(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleReplay()))

	_, err := Decode(bytes.NewReader(buf.Bytes()[:40]))
	require.ErrorIs(t, err, ErrCorruptReplay)
}

func TestDecodeFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "play.osr")
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleReplay()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := DecodeFile(path)
	require.NoError(t, err)
	require.Equal(t, "player", got.Username)

	_, err = DecodeFile(filepath.Join(dir, "nope.osr"))
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestParseFramesSkipsBrokenRecords(t *testing.T) {
	t.Parallel()

	frames, seed, warnings := NewDecoder(nil).parseFrames("0|1|2|0,junk,5|x|1|0,10|3|4|5,-12345|0|0|42,")
	require.Equal(t, int64(42), seed)
	require.Equal(t, []ReplayFrame{
		{TimeDeltaMs: 0, X: 1, Y: 2},
		{TimeDeltaMs: 10, X: 3, Y: 4, Keys: KeyM1 | KeyK1},
	}, frames)

	require.Len(t, warnings, 2)
	require.Equal(t, 1, warnings[0].Line)
	require.Equal(t, "junk", warnings[0].Text)
	require.Equal(t, 2, warnings[1].Line)
	require.Equal(t, "5|x|1|0", warnings[1].Text)
	for _, w := range warnings {
		require.Equal(t, "Frames", w.Section)
		require.ErrorIs(t, w, ErrMalformedFrame)
	}
}

func TestDecodeReportsSkippedFrames(t *testing.T) {
	t.Parallel()

	var stream bytes.Buffer
	lw, err := lzma.NewWriter(&stream)
	require.NoError(t, err)
	_, err = io.WriteString(lw, "0|1|2|0,7|oops,16|3|4|1,-12345|0|0|9,")
	require.NoError(t, err)
	require.NoError(t, lw.Close())

	var buf bytes.Buffer
	bw := &binWriter{w: bufio.NewWriter(&buf)}
	bw.u8(0)
	bw.u32(20240101)
	bw.str("d41d8cd98f00b204e9800998ecf8427e")
	bw.str("player")
	bw.str("")
	for i := 0; i < 6; i++ {
		bw.u16(0)
	}
	bw.u32(0)
	bw.u16(0)
	bw.u8(0)
	bw.u32(0)
	bw.str("")
	bw.i64(0)
	bw.u32(uint32(stream.Len()))
	bw.raw(stream.Bytes())
	require.NoError(t, bw.err)
	require.NoError(t, bw.w.Flush())

	rep, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(9), rep.Seed)
	require.Equal(t, []ReplayFrame{
		{TimeDeltaMs: 0, X: 1, Y: 2},
		{TimeDeltaMs: 16, X: 3, Y: 4, Keys: KeyM1},
	}, rep.Frames)
	require.Len(t, rep.Warnings, 1)
	require.Equal(t, 1, rep.Warnings[0].Line)
	require.Equal(t, "7|oops", rep.Warnings[0].Text)
	require.ErrorIs(t, rep.Warnings[0], ErrMalformedFrame)
}

func TestAccuracy(t *testing.T) {
	t.Parallel()

	r := &Replay{Count300: 2, Count100: 1, Count50: 0, CountMiss: 1}
	require.InDelta(t, 700.0/1200.0, r.Accuracy(), 1e-12)
	require.Equal(t, 0.0, (&Replay{}).Accuracy())
}
