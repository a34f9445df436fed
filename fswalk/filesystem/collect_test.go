package filesystem

import (
	"context"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/common"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/options"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	t.Run("configuration error", func(t *testing.T) {
		_, err := Collect(context.Background(), "", options.DefaultTraversalOptions())
		assert.ErrorIs(t, err, common.ErrRootRequired)
	})

	t.Run("waits out a pause", func(t *testing.T) {
		root := t.TempDir()
		writeFiles(t, root, "a.txt", "b/c.txt")

		s, err := New(root, options.DefaultTraversalOptions())
		require.NoError(t, err)
		defer s.Close()

		s.Pause()
		go func() {
			time.Sleep(20 * time.Millisecond)
			s.Resume()
		}()

		entries, err := s.Collect(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "b/c.txt"}, relPaths(entries))
	})

	t.Run("context cancelled while paused", func(t *testing.T) {
		s, err := New(t.TempDir(), options.DefaultTraversalOptions())
		require.NoError(t, err)
		defer s.Close()
		s.Pause()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = s.Collect(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestCollectIndex(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "src/main.go", "src/pkg/util.go")

	opts := options.DefaultTraversalOptions()
	opts.Type = types.TypeAll
	idx, err := CollectIndex(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, 5, idx.Len())
	e, ok := idx.Lookup("src/pkg/util.go")
	require.True(t, ok)
	assert.Equal(t, "util.go", e.Basename)
	assert.Equal(t, 2, e.Depth)

	assert.Equal(t, []string{"src/main.go", "src/pkg"}, relPaths(idx.Children("src")))
	assert.Len(t, idx.PrefixLookup("src"), 3)
}
