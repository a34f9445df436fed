package cli

import (
	"fmt"

	internal "github.com/ZanzyTHEbar/fswalk/fswalk"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/filter"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/options"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"

	"github.com/spf13/cobra"
)

// walkFlags are the traversal flags shared by ls, tree and count.
// Flags left unset keep the value from the loaded config.
type walkFlags struct {
	entryType     string
	depth         int
	fileFilter    []string
	dirFilter     []string
	lstat         bool
	alwaysStat    bool
	ignoreFile    string
	highWaterMark int
	workers       int
}

func (f *walkFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.entryType, "type", "t", "", "entry types: files, directories, files_directories (both), all")
	fl.IntVarP(&f.depth, "depth", "d", 0, "maximum depth below the root (default unlimited)")
	fl.StringArrayVarP(&f.fileFilter, "file-filter", "f", nil, "glob(s) on file basenames, comma separated or repeated, prefix with ! to exclude")
	fl.StringArrayVarP(&f.dirFilter, "dir-filter", "D", nil, "glob(s) on directory basenames, comma separated or repeated, prefix with ! to exclude")
	fl.BoolVar(&f.lstat, "lstat", false, "stat symlinks themselves instead of their targets")
	fl.BoolVar(&f.alwaysStat, "stat", false, "stat every entry")
	fl.StringVar(&f.ignoreFile, "ignore-file", "", "name of gitignore-style files honoured in each directory, e.g. "+internal.DefaultIgnoreFileName)
	fl.IntVar(&f.highWaterMark, "hwm", 0, "entries buffered ahead of the consumer")
	fl.IntVar(&f.workers, "workers", 0, "concurrent stat calls per directory")
}

// options merges the flags over the config's walk section
func (f *walkFlags) options(cmd *cobra.Command, a *app) (options.TraversalOptions, error) {
	opts := a.cfg.Walk.TraversalOptions()
	fl := cmd.Flags()

	if fl.Changed("type") {
		t, ok := types.ParseEntryType(f.entryType)
		if !ok {
			return opts, fmt.Errorf("invalid --type %q: want one of %v", f.entryType, types.AllEntryTypes)
		}
		opts.Type = t
	}
	if fl.Changed("depth") {
		opts.MaxDepth = f.depth
	}
	if fl.Changed("file-filter") {
		opts.FileFilter = filter.Parse(splitAll(f.fileFilter)...)
	}
	if fl.Changed("dir-filter") {
		opts.DirectoryFilter = filter.Parse(splitAll(f.dirFilter)...)
	}
	if fl.Changed("lstat") {
		opts.Lstat = f.lstat
	}
	if fl.Changed("stat") {
		opts.AlwaysStat = f.alwaysStat
	}
	if fl.Changed("ignore-file") {
		opts.IgnoreFile = f.ignoreFile
	}
	if f.highWaterMark > 0 {
		opts.HighWaterMark = f.highWaterMark
	}
	if f.workers > 0 {
		opts.Workers = f.workers
	}

	logger := a.logger
	opts.Logger = &logger
	return opts, nil
}

// splitAll expands comma lists in repeated flag values
func splitAll(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, filter.SplitPatterns(v)...)
	}
	return out
}
