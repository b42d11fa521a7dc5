package dotosu

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Encode writes b as .osu text. Sections the decoder does not model (Editor,
// storyboard variables) are not reproduced. The output is always the latest
// format version, so verbatim break and hit-object lines are moved by
// b.TimeOffset.
func Encode(w io.Writer, b *Beatmap) error {
	bw := bufio.NewWriter(w)
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	bit := func(v bool) int {
		if v {
			return 1
		}
		return 0
	}

	fmt.Fprintf(bw, "osu file format v%d\n\n", LATEST_VERSION)

	fmt.Fprintln(bw, "[General]")
	fmt.Fprintf(bw, "AudioFilename: %s\n", b.General.AudioFilename)
	fmt.Fprintf(bw, "AudioLeadIn: %d\n", b.General.AudioLeadIn)
	fmt.Fprintf(bw, "PreviewTime: %d\n", b.General.PreviewTime)
	fmt.Fprintf(bw, "Countdown: %d\n", b.General.Countdown)
	fmt.Fprintf(bw, "SampleSet: %s\n", b.General.SampleSet)
	fmt.Fprintf(bw, "StackLeniency: %s\n", f(b.General.StackLeniency))
	fmt.Fprintf(bw, "Mode: %d\n", b.General.Mode)
	fmt.Fprintf(bw, "LetterboxInBreaks: %d\n", bit(b.General.LetterboxInBreaks))
	fmt.Fprintf(bw, "WidescreenStoryboard: %d\n\n", bit(b.General.WidescreenStoryboard))

	fmt.Fprintln(bw, "[Metadata]")
	fmt.Fprintf(bw, "Title:%s\n", b.Metadata.Title)
	fmt.Fprintf(bw, "TitleUnicode:%s\n", b.Metadata.TitleUnicode)
	fmt.Fprintf(bw, "Artist:%s\n", b.Metadata.Artist)
	fmt.Fprintf(bw, "ArtistUnicode:%s\n", b.Metadata.ArtistUnicode)
	fmt.Fprintf(bw, "Creator:%s\n", b.Metadata.Creator)
	fmt.Fprintf(bw, "Version:%s\n", b.Metadata.Version)
	fmt.Fprintf(bw, "Source:%s\n", b.Metadata.Source)
	fmt.Fprintf(bw, "Tags:%s\n", b.Metadata.Tags)
	fmt.Fprintf(bw, "BeatmapID:%d\n", b.Metadata.BeatmapID)
	fmt.Fprintf(bw, "BeatmapSetID:%d\n\n", b.Metadata.BeatmapSetID)

	fmt.Fprintln(bw, "[Difficulty]")
	fmt.Fprintf(bw, "HPDrainRate:%s\n", f(b.Difficulty.HPDrainRate))
	fmt.Fprintf(bw, "CircleSize:%s\n", f(b.Difficulty.CircleSize))
	fmt.Fprintf(bw, "OverallDifficulty:%s\n", f(b.Difficulty.OverallDifficulty))
	fmt.Fprintf(bw, "ApproachRate:%s\n", f(b.Difficulty.ApproachRate))
	fmt.Fprintf(bw, "SliderMultiplier:%s\n", f(b.Difficulty.SliderMultiplier))
	fmt.Fprintf(bw, "SliderTickRate:%s\n\n", f(b.Difficulty.SliderTickRate))

	fmt.Fprintln(bw, "[Events]")
	for _, line := range b.Events.Lines {
		if isBreakEvent(line) {
			line = shiftFields(line, b.TimeOffset, 1, 2)
		}
		fmt.Fprintln(bw, line)
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "[TimingPoints]")
	for _, tp := range b.TimingPoints {
		fmt.Fprintf(bw, "%s,%s,%d,%d,%d,%d,%d,%d\n",
			f(tp.Time), f(tp.BeatLength), tp.Meter, tp.SampleSet, tp.SampleIndex,
			tp.Volume, bit(tp.Uninherited), tp.Effects)
	}
	fmt.Fprintln(bw)

	if len(b.Colours) > 0 {
		fmt.Fprintln(bw, "[Colours]")
		for i, c := range b.Colours {
			r, g, bl := c.RGB255()
			fmt.Fprintf(bw, "Combo%d : %d,%d,%d\n", i+1, r, g, bl)
		}
		fmt.Fprintln(bw)
	}

	fmt.Fprintln(bw, "[HitObjects]")
	for _, ho := range b.HitObjectLines {
		fmt.Fprintln(bw, shiftHitObjectLine(ho.Text, b.TimeOffset))
	}
	return bw.Flush()
}

func isBreakEvent(line string) bool {
	kind, _, _ := strings.Cut(line, ",")
	kind = strings.ToLower(strings.TrimSpace(kind))
	return kind == "2" || kind == "break"
}
