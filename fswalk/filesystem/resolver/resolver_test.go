package resolver

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/common"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/lister"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutSymlinks(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated rights on windows")
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "c.txt"), []byte("hello"), 0o644))

	t.Run("kind tag fast path", func(t *testing.T) {
		r := New(root, false, false)
		r.stat = func(string) (fs.FileInfo, error) {
			t.Fatal("stat must not be called without AlwaysStat")
			return nil, nil
		}

		e, err := r.Resolve(context.Background(), lister.RawEntry{Name: "c.txt"}, filepath.Join(root, "a", "b"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("a", "b", "c.txt"), e.Path)
		assert.Equal(t, filepath.Join(root, "a", "b", "c.txt"), e.FullPath)
		assert.Equal(t, "c.txt", e.Basename)
		assert.Equal(t, 2, e.Depth)
		assert.Nil(t, e.Stats)
		assert.Equal(t, int64(-1), e.Size())
	})

	t.Run("root children have depth zero", func(t *testing.T) {
		e, err := New(root, false, false).Resolve(context.Background(), lister.RawEntry{Name: "a", Type: fs.ModeDir}, root)
		require.NoError(t, err)
		assert.Equal(t, "a", e.Path)
		assert.Equal(t, 0, e.Depth)
		assert.True(t, e.IsDir())
	})

	t.Run("always stat populates stats", func(t *testing.T) {
		e, err := New(root, true, false).Resolve(context.Background(), lister.RawEntry{Name: "c.txt"}, filepath.Join(root, "a", "b"))
		require.NoError(t, err)
		require.NotNil(t, e.Stats)
		assert.Equal(t, int64(5), e.Size())
		assert.True(t, e.IsRegular())
	})

	t.Run("vanished entry is a normal flow error", func(t *testing.T) {
		_, err := New(root, true, false).Resolve(context.Background(), lister.RawEntry{Name: "gone"}, root)
		require.Error(t, err)
		assert.Equal(t, common.CodeNotExist, common.Classify(err))
	})

	t.Run("unknown stat error is fatal", func(t *testing.T) {
		r := New(root, true, false)
		r.stat = func(string) (fs.FileInfo, error) { return nil, syscall.EIO }
		_, err := r.Resolve(context.Background(), lister.RawEntry{Name: "c.txt"}, root)
		require.Error(t, err)
		assert.False(t, common.IsNormalFlow(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(root, false, false).Resolve(ctx, lister.RawEntry{Name: "a"}, root)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestResolveLstatKeepsLinks(t *testing.T) {
	skipWithoutSymlinks(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "target"), nil, 0o644))
	require.NoError(t, os.Symlink("target", filepath.Join(root, "link")))

	withStat, err := New(root, true, false).Resolve(context.Background(), lister.RawEntry{Name: "link"}, root)
	require.NoError(t, err)
	assert.False(t, withStat.IsSymlink())

	// the listing's symlink bit survives a stat that follows the link
	tagged, err := New(root, true, false).Resolve(context.Background(), lister.RawEntry{Name: "link", Type: fs.ModeSymlink}, root)
	require.NoError(t, err)
	assert.True(t, tagged.IsSymlink())
	assert.True(t, tagged.Stats.Mode().IsRegular())

	withLstat, err := New(root, true, true).Resolve(context.Background(), lister.RawEntry{Name: "link"}, root)
	require.NoError(t, err)
	assert.True(t, withLstat.IsSymlink())
}

func TestClassify(t *testing.T) {
	skipWithoutSymlinks(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir", "inner"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "file"), nil, 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "file"), filepath.Join(root, "file-link")))
	require.NoError(t, os.Symlink(filepath.Join(root, "dir"), filepath.Join(root, "dir-link")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "broken")))
	require.NoError(t, os.Symlink(filepath.Join(root, "dir"), filepath.Join(root, "dir", "inner", "up")))

	realDir, err := filepath.EvalSymlinks(filepath.Join(root, "dir"))
	require.NoError(t, err)

	classifyWith := func(r *Resolver, rel string, mode fs.FileMode) (types.Kind, string, error) {
		full := filepath.Join(root, rel)
		e, err := r.Resolve(context.Background(), lister.RawEntry{Name: filepath.Base(full), Type: mode}, filepath.Dir(full))
		require.NoError(t, err)
		parentReal, err := filepath.EvalSymlinks(filepath.Dir(full))
		require.NoError(t, err)
		return r.Classify(context.Background(), e, parentReal)
	}
	r := New(root, false, false)
	classify := func(rel string, mode fs.FileMode) (types.Kind, error) {
		kind, _, err := classifyWith(r, rel, mode)
		return kind, err
	}

	tests := []struct {
		name string
		rel  string
		mode fs.FileMode
		want types.Kind
		code common.Code
	}{
		{"regular file", "file", 0, types.KindFile, ""},
		{"directory", "dir", fs.ModeDir, types.KindDirectory, ""},
		{"link to file", "file-link", fs.ModeSymlink, types.KindFile, ""},
		{"link to directory", "dir-link", fs.ModeSymlink, types.KindDirectory, ""},
		{"broken link", "broken", fs.ModeSymlink, types.KindUnknown, common.CodeNotExist},
		{"link to ancestor", filepath.Join("dir", "inner", "up"), fs.ModeSymlink, types.KindUnknown, common.CodeCircularSymlink},
		{"named pipe", "fifo", fs.ModeNamedPipe, types.KindOther, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := classify(tt.rel, tt.mode)
			assert.Equal(t, tt.want, kind)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, common.Classify(err))
			assert.True(t, common.IsNormalFlow(err))
		})
	}

	t.Run("directories report their canonical path", func(t *testing.T) {
		kind, canonical, err := classifyWith(r, "dir", fs.ModeDir)
		require.NoError(t, err)
		assert.Equal(t, types.KindDirectory, kind)
		assert.Equal(t, realDir, canonical)

		kind, canonical, err = classifyWith(r, "dir-link", fs.ModeSymlink)
		require.NoError(t, err)
		assert.Equal(t, types.KindDirectory, kind)
		assert.Equal(t, realDir, canonical, "a followed link reports its target")
	})

	t.Run("stat policy does not hide links", func(t *testing.T) {
		for _, useLstat := range []bool{false, true} {
			withStat := New(root, true, useLstat)
			kind, _, err := classifyWith(withStat, filepath.Join("dir", "inner", "up"), fs.ModeSymlink)
			assert.Equal(t, types.KindUnknown, kind)
			assert.Equal(t, common.CodeCircularSymlink, common.Classify(err), "lstat=%v", useLstat)

			kind, canonical, err := classifyWith(withStat, "dir-link", fs.ModeSymlink)
			require.NoError(t, err)
			assert.Equal(t, types.KindDirectory, kind)
			assert.Equal(t, realDir, canonical)
		}
	})

	t.Run("loop below a followed link", func(t *testing.T) {
		// dir-link/inner/up is the same link as dir/inner/up, listed through dir-link
		full := filepath.Join(root, "dir-link", "inner", "up")
		e, err := r.Resolve(context.Background(), lister.RawEntry{Name: "up", Type: fs.ModeSymlink}, filepath.Dir(full))
		require.NoError(t, err)

		kind, _, err := r.Classify(context.Background(), e, filepath.Join(realDir, "inner"))
		assert.Equal(t, types.KindUnknown, kind)
		assert.Equal(t, common.CodeCircularSymlink, common.Classify(err))
	})
}

func TestLoopGuard(t *testing.T) {
	g := NewLoopGuard()
	sep := string(filepath.Separator)

	assert.NoError(t, g.Check(sep+filepath.Join("a", "b"), sep+filepath.Join("a", "c")))
	assert.NoError(t, g.Check(sep+filepath.Join("a", "bc"), sep+filepath.Join("a", "b")))
	assert.NoError(t, g.Check(sep+"a", sep+filepath.Join("a", "b")))

	err := g.Check(sep+filepath.Join("a", "b", "link"), sep+filepath.Join("a", "b"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrCircularSymlink))

	var we *common.WalkError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, common.CodeCircularSymlink, we.Code)
}
