package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/fswalk/fswalk"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/filter"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/options"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Walk    WalkConfig    `mapstructure:"walk"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

// WalkConfig stores the traversal defaults
type WalkConfig struct {
	Type            string   `mapstructure:"type"`
	Depth           int      `mapstructure:"depth"`
	FileFilter      []string `mapstructure:"fileFilter"`
	DirectoryFilter []string `mapstructure:"directoryFilter"`
	Lstat           bool     `mapstructure:"lstat"`
	AlwaysStat      bool     `mapstructure:"alwaysStat"`
	HighWaterMark   int      `mapstructure:"highWaterMark"`
	Workers         int      `mapstructure:"workers"`
	IgnoreFile      string   `mapstructure:"ignoreFile"`
}

// LoggingConfig stores logger settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// OutputConfig stores CLI output settings
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  string `mapstructure:"color"` // auto, always, never
}

// LoadConfig reads configuration from file or environment variables.
// An explicit configPath must exist; otherwise a missing file means
// defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("/etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // walk.highWaterMark becomes FSWALK_WALK_HIGHWATERMARK

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := options.DefaultTraversalOptions()

	v.SetDefault("walk.type", string(defaults.Type))
	v.SetDefault("walk.depth", defaults.MaxDepth)
	v.SetDefault("walk.fileFilter", []string{})
	v.SetDefault("walk.directoryFilter", []string{})
	v.SetDefault("walk.lstat", false)
	v.SetDefault("walk.alwaysStat", false)
	v.SetDefault("walk.highWaterMark", defaults.HighWaterMark)
	v.SetDefault("walk.workers", 0)
	v.SetDefault("walk.ignoreFile", "")

	v.SetDefault("logging.level", internal.DefaultLogLevel)

	v.SetDefault("output.format", "text")
	v.SetDefault("output.color", "auto")
}

// Validate checks values that cannot be caught by decoding alone
func (c *Config) Validate() error {
	if _, ok := types.ParseEntryType(c.Walk.Type); !ok {
		return fmt.Errorf("invalid walk.type %q", c.Walk.Type)
	}
	if c.Walk.Depth < 0 {
		return fmt.Errorf("invalid walk.depth %d: must not be negative", c.Walk.Depth)
	}
	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid output.format %q", c.Output.Format)
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid output.color %q", c.Output.Color)
	}
	return nil
}

// TraversalOptions maps the walk section onto traversal options
func (w WalkConfig) TraversalOptions() options.TraversalOptions {
	opts := options.DefaultTraversalOptions()
	opts.Type = types.EntryType(w.Type)
	opts.MaxDepth = w.Depth
	opts.FileFilter = filter.Parse(w.FileFilter...)
	opts.DirectoryFilter = filter.Parse(w.DirectoryFilter...)
	opts.Lstat = w.Lstat
	opts.AlwaysStat = w.AlwaysStat
	opts.IgnoreFile = w.IgnoreFile
	if w.HighWaterMark > 0 {
		opts.HighWaterMark = w.HighWaterMark
	}
	if w.Workers > 0 {
		opts.Workers = w.Workers
	}
	return opts
}
