// Package lister reads the immediate children of one directory.
package lister

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/common"
)

// readChunk is the number of entries requested per ReadDir call
const readChunk = 256

// RawEntry is a child name plus the type bits reported by the listing call
type RawEntry struct {
	Name string
	Type fs.FileMode
}

// Lister performs one shallow directory listing. Errors are returned as
// *common.WalkError so callers can tell warnings from fatal failures.
type Lister interface {
	List(ctx context.Context, path string) ([]RawEntry, error)
}

// OSLister lists directories on the host filesystem
type OSLister struct{}

// New returns the host filesystem lister
func New() *OSLister {
	return &OSLister{}
}

// List reads path in chunks, checking ctx between chunks
func (l *OSLister) List(ctx context.Context, path string) ([]RawEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewWalkError("readdir", path, err)
	}
	defer f.Close()

	var out []RawEntry
	for {
		dirents, err := f.ReadDir(readChunk)
		for _, de := range dirents {
			out = append(out, RawEntry{Name: de.Name(), Type: de.Type()})
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, common.NewWalkError("readdir", path, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// Func adapts a function to the Lister interface
type Func func(ctx context.Context, path string) ([]RawEntry, error)

func (f Func) List(ctx context.Context, path string) ([]RawEntry, error) {
	return f(ctx, path)
}
