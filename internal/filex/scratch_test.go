package filex

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScratch(t *testing.T) *Scratch {
	t.Helper()
	s, err := NewScratch(filepath.Join(t.TempDir(), "scratch"))
	require.NoError(t, err)
	return s
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestScratch_CreateWriteRelease(t *testing.T) {
	s := newScratch(t)

	f, err := s.Create("in", "mkv")
	require.NoError(t, err)
	assert.Equal(t, s.Dir(), filepath.Dir(f.Path()))
	assert.True(t, strings.HasPrefix(filepath.Base(f.Path()), "in-"))
	assert.True(t, strings.HasSuffix(f.Path(), ".mkv"))

	_, err = f.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	b, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))

	require.NoError(t, f.Release())
	assert.Empty(t, listDir(t, s.Dir()))
}

func TestScratch_WriteAfterClose(t *testing.T) {
	s := newScratch(t)

	f, err := s.Create("in", "")
	require.NoError(t, err)
	defer f.Release()

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Write([]byte("x"))
	require.ErrorIs(t, err, os.ErrClosed)
}

func TestScratch_ReserveLeavesEmptyPlaceholder(t *testing.T) {
	s := newScratch(t)

	f, err := s.Reserve("out", ".mp4")
	require.NoError(t, err)

	fi, err := os.Stat(f.Path())
	require.NoError(t, err)
	assert.Zero(t, fi.Size())

	require.NoError(t, f.Release())
	_, err = os.Stat(f.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestScratch_ReleaseMissingFileIsNotAnError(t *testing.T) {
	s := newScratch(t)

	f, err := s.Reserve("out", "mp4")
	require.NoError(t, err)
	require.NoError(t, os.Remove(f.Path()))

	require.NoError(t, f.Release())
	require.NoError(t, f.Release(), "second release must be a no-op")
}

func TestScratch_UnsafeExtensionIgnored(t *testing.T) {
	s := newScratch(t)

	f, err := s.Create("in", "../../evil")
	require.NoError(t, err)
	defer f.Release()

	assert.Equal(t, s.Dir(), filepath.Dir(f.Path()))
}

func TestScratch_ConcurrentAllocationsAreUnique(t *testing.T) {
	s := newScratch(t)

	const n = 64
	paths := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := s.Create("in", "mkv")
			if !assert.NoError(t, err) {
				return
			}
			_ = f.Close()
			paths <- f.Path()
		}()
	}
	wg.Wait()
	close(paths)

	seen := make(map[string]struct{}, n)
	for p := range paths {
		_, dup := seen[p]
		require.False(t, dup, "duplicate scratch path %s", p)
		seen[p] = struct{}{}
	}
	assert.Len(t, seen, n)
	assert.Len(t, listDir(t, s.Dir()), n)
}
