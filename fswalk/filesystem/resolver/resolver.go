// Package resolver turns raw listing results into entries and decides
// whether each one is a file or a directory.
package resolver

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/common"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/lister"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"
)

// Resolver builds entries relative to one traversal root
type Resolver struct {
	root       string
	rootReal   string
	alwaysStat bool
	useLstat   bool
	guard      *LoopGuard
	paths      *common.PathUtils

	// syscalls, replaceable in tests
	stat     func(string) (fs.FileInfo, error)
	lstat    func(string) (fs.FileInfo, error)
	realpath func(string) (string, error)
}

// New creates a resolver for root, which must be absolute and clean
func New(root string, alwaysStat, useLstat bool) *Resolver {
	rootReal, err := filepath.EvalSymlinks(root)
	if err != nil {
		rootReal = root
	}
	return &Resolver{
		root:       root,
		rootReal:   rootReal,
		alwaysStat: alwaysStat,
		useLstat:   useLstat,
		guard:      NewLoopGuard(),
		paths:      common.NewPathUtils(),
		stat:       os.Stat,
		lstat:      os.Lstat,
		realpath:   filepath.EvalSymlinks,
	}
}

// Root returns the traversal root
func (r *Resolver) Root() string { return r.root }

// Resolve builds the entry for raw, a child of parent. Without AlwaysStat
// the listing's type bits are used and no extra syscall is made.
func (r *Resolver) Resolve(ctx context.Context, raw lister.RawEntry, parent string) (*types.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath := filepath.Join(parent, raw.Name)
	rel := r.paths.RelativePath(r.root, fullPath)
	entry := &types.Entry{
		Path:     rel,
		FullPath: fullPath,
		Basename: raw.Name,
		Depth:    r.paths.Depth(rel),
		Type:     raw.Type,
	}
	if !r.alwaysStat {
		return entry, nil
	}

	statFn, op := r.stat, "stat"
	if r.useLstat {
		statFn, op = r.lstat, "lstat"
	}
	info, err := statFn(fullPath)
	if err != nil {
		return nil, common.NewWalkError(op, fullPath, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry.Stats = info
	// a followed stat describes the target; keep the listing's symlink bit
	if r.useLstat || raw.Type&fs.ModeSymlink == 0 {
		entry.Type = info.Mode().Type()
	}
	return entry, nil
}

// RootReal returns the canonical form of the traversal root
func (r *Resolver) RootReal() string { return r.rootReal }

// Classify reports whether entry is a file, a directory or something else,
// and returns the canonical path of directories. parentReal is the
// canonical path of the directory entry was listed in.
//
// Symlinks are followed to their target regardless of the stat policy;
// a link pointing at one of its own canonical ancestors is a RECURSIVE
// error.
func (r *Resolver) Classify(ctx context.Context, entry *types.Entry, parentReal string) (types.Kind, string, error) {
	canonical := filepath.Join(parentReal, entry.Basename)

	if entry.Type&fs.ModeSymlink == 0 {
		mode := entry.Mode()
		switch {
		case mode.IsRegular():
			return types.KindFile, "", nil
		case mode.IsDir():
			return types.KindDirectory, canonical, nil
		case mode&fs.ModeSymlink == 0:
			return types.KindOther, "", nil
		}
	}

	real, err := r.realpath(entry.FullPath)
	if err != nil {
		return types.KindUnknown, "", common.NewWalkError("realpath", entry.FullPath, err)
	}
	info, err := r.lstat(real)
	if err != nil {
		return types.KindUnknown, "", common.NewWalkError("lstat", real, err)
	}
	if err := ctx.Err(); err != nil {
		return types.KindUnknown, "", err
	}

	switch {
	case info.Mode().IsRegular():
		return types.KindFile, "", nil
	case info.IsDir():
		if err := r.guard.Check(canonical, real); err != nil {
			return types.KindUnknown, "", err
		}
		return types.KindDirectory, real, nil
	default:
		return types.KindOther, "", nil
	}
}
