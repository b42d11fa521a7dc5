package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"osusync/dotosu"
)

const beatmapText = `osu file format v14

[Difficulty]
CircleSize:4

[TimingPoints]
0,500,4,2,0,60,1,0

[HitObjects]
256,192,1000,5,0
`

func writeBeatmap(t *testing.T, dir, text string) string {
	t.Helper()
	path := filepath.Join(dir, "map.osu")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestMemoryLoadCachesAndInvalidates(t *testing.T) {
	t.Parallel()

	path := writeBeatmap(t, t.TempDir(), beatmapText)
	m := NewMemory(nil)

	first, err := m.Load(path)
	require.NoError(t, err)
	second, err := m.Load(path)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, m.Len())

	require.NoError(t, m.Invalidate(path))
	_, ok := m.Get(path)
	require.False(t, ok)

	third, err := m.Load(path)
	require.NoError(t, err)
	require.NotSame(t, first, third)

	require.NoError(t, m.Clear())
	require.Zero(t, m.Len())
}

func TestMemoryPutIsKeyedByAbsolutePath(t *testing.T) {
	t.Parallel()

	m := NewMemory(nil)
	b := dotosu.NewBeatmap()
	m.Put("maps/../maps/a.osu", b)
	got, ok := m.Get("maps/a.osu")
	require.True(t, ok)
	require.Same(t, b, got)
}

func TestMemoryLoadMissing(t *testing.T) {
	t.Parallel()

	_, err := NewMemory(nil).Load(filepath.Join(t.TempDir(), "missing.osu"))
	require.ErrorIs(t, err, dotosu.ErrFileNotFound)
}

func TestSQLitePersistsAcrossOpens(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeBeatmap(t, dir, beatmapText)
	dsn := filepath.Join(dir, "cache.db")

	s, err := OpenSQLite(dsn, nil, nil)
	require.NoError(t, err)
	b, err := s.Load(path)
	require.NoError(t, err)
	require.Equal(t, 4.0, b.Difficulty.CircleSize)
	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(dsn, nil, nil)
	require.NoError(t, err)
	defer s.Close()
	n, err = s.Len()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	b, err = s.Load(path)
	require.NoError(t, err)
	require.Len(t, b.HitObjectLines, 1)

	require.NoError(t, s.Invalidate(path))
	n, err = s.Len()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSQLiteRefreshesModifiedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeBeatmap(t, dir, beatmapText)

	s, err := OpenSQLite(filepath.Join(dir, "cache.db"), nil, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(path)
	require.NoError(t, err)

	writeBeatmap(t, dir, beatmapText+"256,192,2000,1,0\n")
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	b, err := s.Load(path)
	require.NoError(t, err)
	require.Len(t, b.HitObjectLines, 2)

	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, s.Clear())
	_, err = s.Load(filepath.Join(dir, "missing.osu"))
	require.ErrorIs(t, err, dotosu.ErrFileNotFound)
}
