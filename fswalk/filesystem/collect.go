package filesystem

import (
	"context"
	"errors"
	"io"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/common"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/options"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"
	"github.com/ZanzyTHEbar/fswalk/fswalk/trees"
)

// Collect traverses root and returns every emitted entry in emission order
func Collect(ctx context.Context, root string, opts options.TraversalOptions) ([]types.Entry, error) {
	s, err := New(root, opts)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Collect(ctx)
}

// CollectIndex traverses root and indexes the result by relative path
func CollectIndex(ctx context.Context, root string, opts options.TraversalOptions) (*trees.PathIndex, error) {
	entries, err := Collect(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	idx := trees.NewPathIndex()
	for _, e := range entries {
		if err := idx.Insert(e); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Collect drains the stream. It waits out pauses and returns the fatal
// error, if any, instead of a partial result.
func (s *Stream) Collect(ctx context.Context) ([]types.Entry, error) {
	var out []types.Entry
	for {
		entries, err := s.Read(ctx, s.cfg.HighWaterMark)
		out = append(out, entries...)

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return out, nil
		case errors.Is(err, common.ErrPaused):
			if err := s.waitResumed(ctx); err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
		default:
			return nil, err
		}
	}
}
