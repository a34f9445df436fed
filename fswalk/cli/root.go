package cli

import (
	"io"
	"os"

	internal "github.com/ZanzyTHEbar/fswalk/fswalk"
	"github.com/ZanzyTHEbar/fswalk/fswalk/config"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// app carries what every subcommand needs once the root has loaded config
type app struct {
	configPath string
	logLevel   string
	colorMode  string

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCommand creates and returns the root cobra command for fswalk
func NewRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   internal.DefaultAppCMDShortCut,
		Short: "Recursive directory traversal with filters and backpressure",
		Long: `fswalk walks a directory tree and streams the entries it finds.

Entries can be restricted by type, depth and glob filters on file and
directory basenames. Unreadable directories and broken symlinks are
reported as warnings and the walk continues.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default searches ./config.yaml and "+internal.DefaultConfigFile+")")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&a.colorMode, "color", "", "colorize output: auto, always, never")

	cmd.AddCommand(newLsCommand(a))
	cmd.AddCommand(newTreeCommand(a))
	cmd.AddCommand(newCountCommand(a))

	return cmd
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.colorMode != "" {
		cfg.Output.Color = a.colorMode
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = internal.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level)
	return nil
}

// useColor decides whether output written to w is colorized
func (a *app) useColor(w io.Writer) bool {
	switch a.cfg.Output.Color {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// palette holds the colors used for entries and diagnostics
type palette struct {
	dir     *color.Color
	symlink *color.Color
	other   *color.Color
	warn    *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		dir:     color.New(color.FgBlue, color.Bold),
		symlink: color.New(color.FgCyan),
		other:   color.New(color.FgMagenta),
		warn:    color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.dir, p.symlink, p.other, p.warn} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}
