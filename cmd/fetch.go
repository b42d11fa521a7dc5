package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"osusync/dotosu"
	"osusync/osuapi"
)

var fetchOutput string

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "file to write; defaults to <id>.osu")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [beatmap id]",
	Short: "Downloads a .osu file from osu.ppy.sh",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid beatmap id %q", args[0])
		}

		client := osuapi.NewClient(osuapi.Options{
			UserAgent:         cfg.UserAgent,
			RequestsPerMinute: cfg.RequestsPerMinute,
			Logger:            log,
		})
		body, err := client.FetchBeatmap(cmd.Context(), id)
		if err != nil {
			return err
		}

		// refuse to save something that is not a beatmap
		b, err := dotosu.NewDecoder(log).Decode(bytes.NewReader(body))
		if err != nil {
			return err
		}
		if len(b.HitObjectLines) == 0 {
			return fmt.Errorf("beatmap %d has no hit objects", id)
		}

		out := fetchOutput
		if out == "" {
			out = strconv.Itoa(id) + ".osu"
		}
		if err := os.WriteFile(out, body, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s - %s [%s] -> %s\n", b.Metadata.Artist, b.Metadata.Title, b.Metadata.Version, out)
		return nil
	},
}
