// Package config loads tool settings from an INI file and command line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"gopkg.in/ini.v1"
)

const DefaultFPS = 60.0

type Config struct {
	MsPerFrame      float64
	CurveResolution int
	MergeTolerance  float64

	LogLevel string

	CacheDB string // empty disables the persistent cache

	RequestsPerMinute int
	UserAgent         string
}

func Default() Config {
	return Config{
		MsPerFrame:        1000 / DefaultFPS,
		CurveResolution:   50,
		MergeTolerance:    0.01,
		LogLevel:          "info",
		RequestsPerMinute: 60,
		UserAgent:         "osusync",
	}
}

var loadOptions = ini.LoadOptions{
	InsensitiveSections:     true,
	InsensitiveKeys:         true,
	SkipUnrecognizableLines: true,
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	f, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.apply(f); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) apply(f *ini.File) error {
	engine := f.Section("engine")
	if engine.HasKey("fps") {
		fps, err := engine.Key("fps").Float64()
		if err != nil || fps <= 0 {
			return fmt.Errorf("[engine] fps must be a positive number, got %q", engine.Key("fps").String())
		}
		c.MsPerFrame = 1000 / fps
	}
	c.MsPerFrame = engine.Key("ms_per_frame").MustFloat64(c.MsPerFrame)
	c.CurveResolution = engine.Key("curve_resolution").MustInt(c.CurveResolution)
	c.MergeTolerance = engine.Key("merge_tolerance").MustFloat64(c.MergeTolerance)

	c.LogLevel = f.Section("log").Key("level").MustString(c.LogLevel)
	c.CacheDB = f.Section("cache").Key("db").MustString(c.CacheDB)

	api := f.Section("api")
	c.RequestsPerMinute = api.Key("requests_per_minute").MustInt(c.RequestsPerMinute)
	c.UserAgent = api.Key("user_agent").MustString(c.UserAgent)

	return c.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.MsPerFrame <= 0:
		return fmt.Errorf("ms_per_frame must be positive, got %v", c.MsPerFrame)
	case c.CurveResolution <= 0:
		return fmt.Errorf("curve_resolution must be positive, got %d", c.CurveResolution)
	case c.MergeTolerance < 0:
		return fmt.Errorf("merge_tolerance must not be negative, got %v", c.MergeTolerance)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// WriteTo writes c as an INI document that Load reads back.
func (c Config) WriteTo(w io.Writer) (int64, error) {
	f := ini.Empty()
	set := func(section, key, value string) {
		f.Section(section).Key(key).SetValue(value)
	}
	set("engine", "ms_per_frame", strconv.FormatFloat(c.MsPerFrame, 'f', -1, 64))
	set("engine", "curve_resolution", strconv.Itoa(c.CurveResolution))
	set("engine", "merge_tolerance", strconv.FormatFloat(c.MergeTolerance, 'f', -1, 64))
	set("log", "level", c.LogLevel)
	set("cache", "db", c.CacheDB)
	set("api", "requests_per_minute", strconv.Itoa(c.RequestsPerMinute))
	set("api", "user_agent", c.UserAgent)
	return f.WriteTo(w)
}

// BindFlags registers overrides for every setting on fs.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.Float64Var(&c.MsPerFrame, "ms-per-frame", c.MsPerFrame, "milliseconds per output frame")
	fs.IntVar(&c.CurveResolution, "resolution", c.CurveResolution, "samples per slider curve segment")
	fs.Float64Var(&c.MergeTolerance, "merge-tolerance", c.MergeTolerance, "distance under which curve points are merged")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&c.CacheDB, "cache-db", c.CacheDB, "sqlite file used to cache parsed beatmaps")
	fs.IntVar(&c.RequestsPerMinute, "requests-per-minute", c.RequestsPerMinute, "download rate limit")
	fs.StringVar(&c.UserAgent, "user-agent", c.UserAgent, "user agent sent to osu.ppy.sh")
}

// Logger builds the logger every package receives.
func (c Config) Logger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stderr
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return log, nil
}
