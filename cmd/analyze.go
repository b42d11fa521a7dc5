package cmd

import (
	"fmt"
	"io"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"osusync/dotosr"
	"osusync/dotosu"
	"osusync/engine"
)

var showProgress bool

func init() {
	analyzeCmd.Flags().BoolVarP(&showProgress, "progress", "p", false, "show a progress bar")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [.osu file] [.osr file]...",
	Short: "Matches replays against a beatmap and reports hits, misses and sync offsets",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		beatmap, err := beatmaps.Load(args[0])
		if err != nil {
			return err
		}
		reports, err := analyzeAll(beatmap, args[1:])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), reports, func(w io.Writer) {
			for _, r := range reports {
				r.print(w)
			}
		})
	},
}

type analyzeReport struct {
	Replay     string
	Player     string
	Mods       string
	SyncOffset float64
	Detected   engine.DetectionSummary
	Header     headerStats
	Objects    []objectResult `json:",omitempty"`
	Error      string         `json:",omitempty"`
}

type headerStats struct {
	Count300, Count100, Count50, Misses uint32
	MaxCombo                           uint32
	Score                              uint64
	Accuracy                           float64
}

type objectResult struct {
	TimeMs       int64
	Kind         string
	WasHit       bool
	WasCompleted bool
}

func analyzeAll(beatmap *dotosu.Beatmap, replays []string) ([]*analyzeReport, error) {
	reports := make([]*analyzeReport, len(replays))

	var bar *pb.ProgressBar
	if showProgress && !jsonOutput {
		tmpl := `{{ green "Replays:" }} {{ bar . "[" "#" "#" "." "]"}} {{counters .}} {{percent .}}`
		bar = pb.ProgressBarTemplate(tmpl).Start(len(replays))
		defer bar.Finish()
	}

	errs := Run(len(replays), func(i int) error {
		if bar != nil {
			defer bar.Increment()
		}
		r, err := analyze(beatmap, replays[i])
		reports[i] = r
		return err
	})

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		log.WithError(err).WithField("replay", replays[i]).Error("analyze failed")
		reports[i] = &analyzeReport{Replay: replays[i], Error: err.Error()}
	}
	if failed == len(replays) {
		return nil, fmt.Errorf("all %d replays failed: %w", failed, errs[0])
	}
	return reports, nil
}

// analyze owns its hit objects, so jobs never share mutable state.
func analyze(beatmap *dotosu.Beatmap, path string) (*analyzeReport, error) {
	replay, err := dotosr.NewDecoder(log).DecodeFile(path)
	if err != nil {
		return nil, err
	}
	logWarnings(path, replay.Warnings)
	mods := engine.Mods(replay.Mods)
	objects, warnings, err := processor().Process(beatmap, mods, cfg.MsPerFrame, float64(beatmap.General.AudioLeadIn))
	if err != nil {
		return nil, err
	}
	logWarnings(path, warnings)

	c := engine.GetBeatmapConstants(beatmap, mods)
	summary := engine.DetectHits(objects, engine.KeyPressSamples(replay.Frames), c.Windows)
	offset, err := engine.ComputeSyncOffset(beatmap, replay, mods)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"replay": path,
		"player": replay.Username,
		"mods":   mods.String(),
		"hits":   summary.Hits,
		"misses": summary.Misses,
	}).Debug("analyzed replay")

	r := &analyzeReport{
		Replay:     path,
		Player:     replay.Username,
		Mods:       mods.String(),
		SyncOffset: offset,
		Detected:   summary,
		Header: headerStats{
			Count300: replay.Count300,
			Count100: replay.Count100,
			Count50:  replay.Count50,
			Misses:   replay.CountMiss,
			MaxCombo: replay.MaxCombo,
			Score:    replay.Score,
			Accuracy: replay.Accuracy(),
		},
	}
	if verbose {
		for _, o := range objects {
			r.Objects = append(r.Objects, objectResult{
				TimeMs:       o.TimeMs,
				Kind:         o.Kind.String(),
				WasHit:       o.WasHit,
				WasCompleted: o.WasCompleted,
			})
		}
	}
	return r, nil
}

func (r *analyzeReport) print(w io.Writer) {
	if r.Error != "" {
		fmt.Fprintf(w, "%s: %s\n", r.Replay, r.Error)
		return
	}
	h := r.Header
	fmt.Fprintf(w, "%s: %s +%s\n", r.Replay, r.Player, r.Mods)
	fmt.Fprintf(w, "  sync offset: %+.1fms\n", r.SyncOffset)
	fmt.Fprintf(w, "  detected:    %d hit, %d missed, %d completed\n", r.Detected.Hits, r.Detected.Misses, r.Detected.Completed)
	fmt.Fprintf(w, "  replay:      %d/%d/%d/%d, x%d, %d, %.2f%%\n", h.Count300, h.Count100, h.Count50, h.Misses, h.MaxCombo, h.Score, h.Accuracy*100)
	for _, o := range r.Objects {
		fmt.Fprintf(w, "  %8dms %-7s hit=%t completed=%t\n", o.TimeMs, o.Kind, o.WasHit, o.WasCompleted)
	}
}
