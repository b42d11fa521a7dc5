package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"osusync/dotosr"
	"osusync/engine"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync [.osu file] [.osr file]",
	Short: "Prints the offset that aligns a replay's clock with the beatmap's",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		beatmap, err := beatmaps.Load(args[0])
		if err != nil {
			return err
		}
		replay, err := dotosr.NewDecoder(log).DecodeFile(args[1])
		if err != nil {
			return err
		}
		mods := engine.Mods(replay.Mods)
		offset, err := engine.ComputeSyncOffset(beatmap, replay, mods)
		if err != nil {
			return err
		}

		report := struct {
			Mods            string
			Speed           float64
			AudioLeadIn     int
			FirstReplayTime int64
			OffsetMs        float64
			OffsetFrames    float64
		}{
			Mods:            mods.String(),
			Speed:           engine.SpeedMultiplier(mods),
			AudioLeadIn:     beatmap.General.AudioLeadIn,
			FirstReplayTime: engine.FirstReplayEventTime(replay.Frames),
			OffsetMs:        offset,
			OffsetFrames:    offset / cfg.MsPerFrame,
		}
		return render(cmd.OutOrStdout(), report, func(w io.Writer) {
			fmt.Fprintf(w, "%+.3fms (%+.2f frames)\n", report.OffsetMs, report.OffsetFrames)
		})
	},
}
