package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"osusync/engine"
)

var curveIndex int

func init() {
	curveCmd.Flags().IntVarP(&curveIndex, "index", "i", -1, "hit object index; defaults to the first slider")
	rootCmd.AddCommand(curveCmd)
}

var curveCmd = &cobra.Command{
	Use:   "curve [.osu file]",
	Short: "Prints the evaluated path of a slider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := curve(args[0], curveIndex)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), report, report.print)
	},
}

type curveReport struct {
	Index       int
	TimeMs      int64
	CurveType   string
	Control     []engine.Point
	PixelLength float64
	PathLength  float64
	Start, End  engine.Point
	// NominalEnd is where the slider ends when it is exactly PixelLength
	// long. It differs from End when the control points over- or undershoot.
	NominalEnd engine.Point
	Path       []engine.Point
}

func curve(path string, index int) (*curveReport, error) {
	beatmap, err := beatmaps.Load(path)
	if err != nil {
		return nil, err
	}
	objects, warnings, err := processor().Process(beatmap, 0, cfg.MsPerFrame, 0)
	if err != nil {
		return nil, err
	}
	logWarnings(path, warnings)

	if index < 0 {
		for i, o := range objects {
			if o.Kind == engine.KindSlider {
				index = i
				break
			}
		}
		if index < 0 {
			return nil, fmt.Errorf("%s has no sliders", path)
		}
	}
	if index >= len(objects) {
		return nil, fmt.Errorf("index %d out of range, beatmap has %d hit objects", index, len(objects))
	}
	obj := objects[index]
	if obj.Kind != engine.KindSlider {
		return nil, fmt.Errorf("hit object %d is a %s", index, obj.Kind)
	}

	s := obj.Slider
	return &curveReport{
		Index:       index,
		TimeMs:      obj.TimeMs,
		CurveType:   s.CurveType.String(),
		Control:     s.ControlPoints,
		PixelLength: s.PixelLength,
		PathLength:  engine.PathLength(s.Path),
		Start:       s.StartPos,
		End:         s.EndPos,
		NominalEnd:  engine.PointAtDistance(s.Path, s.PixelLength),
		Path:        s.Path,
	}, nil
}

func (r *curveReport) print(w io.Writer) {
	fmt.Fprintf(w, "slider #%d at %dms, %s, %d control points\n", r.Index, r.TimeMs, r.CurveType, len(r.Control))
	fmt.Fprintf(w, "length: %.2f nominal, %.2f evaluated\n", r.PixelLength, r.PathLength)
	fmt.Fprintf(w, "end: %.3f,%.3f nominal, %.3f,%.3f evaluated\n", r.NominalEnd.X, r.NominalEnd.Y, r.End.X, r.End.Y)
	for _, p := range r.Path {
		fmt.Fprintf(w, "%.3f,%.3f\n", p.X, p.Y)
	}
}
