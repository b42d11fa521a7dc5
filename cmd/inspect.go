package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"osusync/engine"
)

var inspectMods string

func init() {
	inspectCmd.Flags().StringVarP(&inspectMods, "mods", "m", "", "mods to apply, e.g. HDDT")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [.osu file]",
	Short: "Prints the metadata, difficulty and hit object counts of a beatmap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mods, err := engine.ParseMods(inspectMods)
		if err != nil {
			return err
		}
		report, err := inspect(args[0], mods)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), report, report.print)
	},
}

type inspectReport struct {
	Path      string
	Title     string
	Artist    string
	Creator   string
	Version   string
	Format    int
	Mods      string
	BPM       float64
	Constants engine.MapConstants
	Circles   int
	Sliders   int
	Spinners  int
	Combos    int
	LengthMs  float64
	Warnings  []string
}

func inspect(path string, mods engine.Mods) (*inspectReport, error) {
	beatmap, err := beatmaps.Load(path)
	if err != nil {
		return nil, err
	}
	objects, warnings, err := processor().Process(beatmap, mods, cfg.MsPerFrame, float64(beatmap.General.AudioLeadIn))
	if err != nil {
		return nil, err
	}
	logWarnings(path, warnings)

	r := &inspectReport{
		Path:      path,
		Title:     beatmap.Metadata.Title,
		Artist:    beatmap.Metadata.Artist,
		Creator:   beatmap.Metadata.Creator,
		Version:   beatmap.Metadata.Version,
		Format:    beatmap.FormatVersion,
		Mods:      mods.String(),
		BPM:       beatmap.TimingModel().BPM() * engine.SpeedMultiplier(mods),
		Constants: engine.GetBeatmapConstants(beatmap, mods),
	}
	for _, w := range beatmap.Warnings {
		r.Warnings = append(r.Warnings, w.Error())
	}
	for _, w := range warnings {
		r.Warnings = append(r.Warnings, w.Error())
	}
	for _, o := range objects {
		switch o.Kind {
		case engine.KindCircle:
			r.Circles++
		case engine.KindSlider:
			r.Sliders++
		case engine.KindSpinner:
			r.Spinners++
		}
		if o.ComboNumber == 1 {
			r.Combos++
		}
		r.LengthMs = max(r.LengthMs, o.HitObjectTime+o.DurationMs)
	}
	return r, nil
}

func (r *inspectReport) print(w io.Writer) {
	c := r.Constants
	fmt.Fprintf(w, "%s - %s [%s] (%s), v%d\n", r.Artist, r.Title, r.Version, r.Creator, r.Format)
	fmt.Fprintf(w, "mods:      %s\n", r.Mods)
	fmt.Fprintf(w, "bpm:       %.2f\n", r.BPM)
	fmt.Fprintf(w, "cs:        %.2f (radius %.2f)\n", c.CircleSize, c.CircleRadius)
	fmt.Fprintf(w, "ar:        %.2f (preempt %.0fms)\n", c.ApproachRate, c.Preempt)
	fmt.Fprintf(w, "od:        %.2f (300 ±%.1f, 100 ±%.1f, 50 ±%.1f)\n", c.OverallDifficulty, c.Windows.W300, c.Windows.W100, c.Windows.W50)
	fmt.Fprintf(w, "objects:   %d circles, %d sliders, %d spinners, %d combos\n", r.Circles, r.Sliders, r.Spinners, r.Combos)
	fmt.Fprintf(w, "length:    %.1fs\n", r.LengthMs/1000)
	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "warnings:  %d\n", len(r.Warnings))
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "  %s\n", warning)
		}
	}
}
