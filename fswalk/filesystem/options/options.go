package options

import (
	"fmt"
	"math"
	"path/filepath"
	"runtime"

	internal "github.com/ZanzyTHEbar/fswalk/fswalk"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/common"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/filter"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"

	"github.com/rs/zerolog"
)

// UnlimitedDepth descends without a depth bound
const UnlimitedDepth = math.MaxInt32

// WarningHandler receives normal-flow errors (vanished entries, permission
// problems, symlink loops) in the order they occur. It runs on the goroutine
// calling Read, or on the one calling Resume for warnings queued while paused.
type WarningHandler func(err error)

// TraversalOptions configures a directory traversal. Start from
// DefaultTraversalOptions: a zero MaxDepth lists only the root's children.
type TraversalOptions struct {
	FileFilter      filter.Spec     // Applied to non-directory entries
	DirectoryFilter filter.Spec     // Applied to directories, gates both emission and descent
	Type            types.EntryType // Which entries are emitted
	Lstat           bool            // Stat symlinks themselves when AlwaysStat is set
	MaxDepth        int             // 0 = root children only; use UnlimitedDepth for no bound
	AlwaysStat      bool            // Populate Entry.Stats for every entry
	HighWaterMark   int             // Upper bound on entries resolved per step
	Workers         int             // Concurrent stat calls per step
	IgnoreFile      string          // Per-directory gitignore-style file name
	Logger          *zerolog.Logger // Defaults to a no-op logger
	OnWarning       WarningHandler  // Optional warning callback
}

// Config is the validated, immutable form of TraversalOptions
type Config struct {
	Root            string
	FileFilter      filter.Predicate
	DirectoryFilter filter.Predicate
	Type            types.EntryType
	Lstat           bool
	MaxDepth        int
	AlwaysStat      bool
	HighWaterMark   int
	Workers         int
	IgnoreFile      string
	Logger          zerolog.Logger
	OnWarning       WarningHandler
}

// DefaultTraversalOptions returns sensible defaults for traversal operations
func DefaultTraversalOptions() TraversalOptions {
	return TraversalOptions{
		Type:          types.EntryType(internal.DefaultEntryType),
		MaxDepth:      UnlimitedDepth,
		HighWaterMark: internal.DefaultHighWaterMark,
		Workers:       DefaultWorkers(),
	}
}

// DefaultWorkers sizes the stat pool from the CPU count, capped to avoid
// exhausting file descriptors.
func DefaultWorkers() int {
	return min(max(runtime.NumCPU()*2, 4), 32)
}

// Compile validates the options for root and produces the traversal
// config. All configuration errors surface here, before any I/O.
func (o TraversalOptions) Compile(root string) (*Config, error) {
	if err := common.ValidatePath(root); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}

	entryType, ok := types.ParseEntryType(string(o.Type))
	if !ok {
		return nil, fmt.Errorf("%w: %q, expected one of %v", common.ErrInvalidEntryType, o.Type, types.AllEntryTypes)
	}

	if o.MaxDepth < 0 {
		return nil, fmt.Errorf("%w: %d", common.ErrInvalidDepth, o.MaxDepth)
	}

	fileFilter, err := filter.Normalize(o.FileFilter)
	if err != nil {
		return nil, fmt.Errorf("file filter: %w", err)
	}
	dirFilter, err := filter.Normalize(o.DirectoryFilter)
	if err != nil {
		return nil, fmt.Errorf("directory filter: %w", err)
	}

	hwm := o.HighWaterMark
	if hwm <= 0 {
		hwm = internal.DefaultHighWaterMark
	}
	workers := o.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	logger := zerolog.Nop()
	if o.Logger != nil {
		logger = *o.Logger
	}

	return &Config{
		Root:            filepath.Clean(abs),
		FileFilter:      fileFilter,
		DirectoryFilter: dirFilter,
		Type:            entryType,
		Lstat:           o.Lstat,
		MaxDepth:        o.MaxDepth,
		AlwaysStat:      o.AlwaysStat,
		HighWaterMark:   hwm,
		Workers:         workers,
		IgnoreFile:      o.IgnoreFile,
		Logger:          logger,
		OnWarning:       o.OnWarning,
	}, nil
}
