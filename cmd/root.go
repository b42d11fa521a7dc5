// Package cmd is the osusync command line.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"osusync/cache"
	"osusync/config"
	"osusync/dotosu"
	"osusync/engine"
)

var (
	cfg        = config.Default()
	configPath string
	jsonOutput bool
	verbose    bool

	log      *logrus.Logger
	beatmaps cache.Store
	closers  []io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "osusync",
	Short:         "Reconciles osu! beatmaps with replays",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		for _, c := range closers {
			c.Close()
		}
		closers = nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "osusync.ini", "INI file with default settings")
	flags.BoolVar(&jsonOutput, "json", false, "print results as JSON")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	cfg.BindFlags(flags)
}

// Execute runs the root command with os.Args, or the arguments set with
// rootCmd.SetArgs. Flags left over from a previous run are reset first.
func Execute(ctx context.Context) error {
	if err := resetFlags(rootCmd); err != nil {
		return err
	}
	return rootCmd.ExecuteContext(ctx)
}

// resetFlags puts every flag of c and its subcommands back to its default
// and clears Changed, so flag targets do not carry over between runs.
func resetFlags(c *cobra.Command) error {
	var err error
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if serr := f.Value.Set(f.DefValue); serr != nil && err == nil {
			err = fmt.Errorf("reset --%s: %w", f.Name, serr)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		if serr := resetFlags(sub); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

// setup merges the config file under any flags given on the command line.
func setup(cmd *cobra.Command) error {
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("ms-per-frame") {
		cfg.MsPerFrame = fileCfg.MsPerFrame
	}
	if !flags.Changed("resolution") {
		cfg.CurveResolution = fileCfg.CurveResolution
	}
	if !flags.Changed("merge-tolerance") {
		cfg.MergeTolerance = fileCfg.MergeTolerance
	}
	if !flags.Changed("log-level") {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if !flags.Changed("cache-db") {
		cfg.CacheDB = fileCfg.CacheDB
	}
	if !flags.Changed("requests-per-minute") {
		cfg.RequestsPerMinute = fileCfg.RequestsPerMinute
	}
	if !flags.Changed("user-agent") {
		cfg.UserAgent = fileCfg.UserAgent
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err = cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	decoder := dotosu.NewDecoder(log)
	if cfg.CacheDB == "" {
		beatmaps = cache.NewMemory(decoder)
		return nil
	}
	db, err := cache.OpenSQLite(cfg.CacheDB, decoder, log)
	if err != nil {
		return err
	}
	closers = append(closers, db)
	beatmaps = db
	return nil
}

func processor() *engine.Processor {
	return engine.NewProcessor(engine.Options{
		Logger:         log,
		Resolution:     cfg.CurveResolution,
		MergeTolerance: cfg.MergeTolerance,
	})
}

// render prints v as JSON when --json is set, otherwise calls text.
func render(w io.Writer, v any, text func(w io.Writer)) error {
	if !jsonOutput {
		text(w)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func logWarnings(path string, warnings []engine.ParseWarning) {
	if len(warnings) == 0 {
		return
	}
	log.WithFields(logrus.Fields{
		"file":     path,
		"warnings": len(warnings),
	}).Warn("skipped malformed records")
}
