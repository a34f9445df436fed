package common

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Configuration and protocol errors returned by the traversal packages
var (
	ErrRootRequired     = errors.New("root argument is required")
	ErrInvalidEntryType = errors.New("invalid entry type")
	ErrInvalidDepth     = errors.New("depth cannot be negative")
	ErrBadPattern       = errors.New("malformed glob pattern")
	ErrPathInvalid      = errors.New("path contains invalid characters")
	ErrPaused           = errors.New("stream is paused")
	ErrCircularSymlink  = errors.New("circular symlink detected")
)

// Code classifies a traversal error. The normal-flow codes mirror the
// errno names the host reports.
type Code string

const (
	CodeNotExist        Code = "ENOENT"
	CodeNotPermitted    Code = "EPERM"
	CodeAccessDenied    Code = "EACCES"
	CodeSymlinkLoop     Code = "ELOOP"
	CodeCircularSymlink Code = "RECURSIVE"
	CodeFatal           Code = "FATAL"
)

// WalkError is an error tied to one entry or directory of a traversal
type WalkError struct {
	Op   string // readdir, stat, lstat, realpath, ignore
	Path string
	Code Code
	Err  error
}

// NewWalkError wraps err for the given operation and path and classifies it
func NewWalkError(op, path string, err error) *WalkError {
	return &WalkError{Op: op, Path: path, Code: Classify(err), Err: err}
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }

// Recoverable reports whether the traversal may continue past this error
func (e *WalkError) Recoverable() bool {
	return e.Code != CodeFatal
}

// FatalError terminates a traversal. It is surfaced once.
type FatalError struct {
	Root string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("traversal of %s aborted: %v", e.Root, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Classify maps an error onto a Code. Anything not recognised is fatal.
func Classify(err error) Code {
	var we *WalkError
	switch {
	case err == nil:
		return CodeFatal
	case errors.As(err, &we):
		return we.Code
	case errors.Is(err, ErrCircularSymlink):
		return CodeCircularSymlink
	case errors.Is(err, syscall.ELOOP):
		return CodeSymlinkLoop
	case errors.Is(err, syscall.EACCES):
		return CodeAccessDenied
	case errors.Is(err, syscall.EPERM):
		return CodeNotPermitted
	case errors.Is(err, fs.ErrPermission):
		return CodeAccessDenied
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return CodeNotExist
	default:
		return CodeFatal
	}
}

// IsNormalFlow reports whether err is part of normal traversal flow
// (vanished entry, permission problem, symlink loop) and should be
// reported as a warning instead of aborting.
func IsNormalFlow(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err) != CodeFatal
}

// ValidatePath checks a root path before traversal starts
func ValidatePath(path string) error {
	if path == "" {
		return ErrRootRequired
	}
	for i := 0; i < len(path); i++ {
		if path[i] == 0 {
			return ErrPathInvalid
		}
	}
	return nil
}
