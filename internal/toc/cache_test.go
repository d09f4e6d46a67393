package toc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_LoadWithoutSave(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "toc.json"), nil)

	tree, ok := cache.Load()
	assert.False(t, ok)
	assert.Nil(t, tree)
}

func TestCache_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "toc.json")
	cache := NewCache(path, nil)

	require.NoError(t, cache.Save(sampleTree()))

	tree, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, sampleTree(), tree)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestCache_SaveEmptyTree(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "toc.json"), nil)

	require.NoError(t, cache.Save(nil))

	data, err := os.ReadFile(cache.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	tree, ok := cache.Load()
	require.True(t, ok)
	assert.Empty(t, tree)
	assert.NotNil(t, tree)
}

func TestCache_SaveReplacesPrevious(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "toc.json"), nil)

	require.NoError(t, cache.Save(sampleTree()))
	replacement := Tree{&Leaf{Title: "Only", ID: "Only", Originality: "0%"}}
	require.NoError(t, cache.Save(replacement))

	tree, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, replacement, tree)
}

func TestCache_CorruptFileIsMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toc.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"type":"idea",`), 0o644))

	_, ok := NewCache(path, nil).Load()
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte(`[{"type":"bogus"}]`), 0o644))
	_, ok = NewCache(path, nil).Load()
	assert.False(t, ok)
}

func TestCache_UnwritableLocation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cache := NewCache(filepath.Join(blocker, "toc.json"), nil)
	err := cache.Save(sampleTree())
	assert.ErrorIs(t, err, ErrCacheUnavailable)

	_, ok := cache.Load()
	assert.False(t, ok)
}

func TestCache_FileRemovedBetweenLoads(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "toc.json"), nil)
	require.NoError(t, cache.Save(sampleTree()))

	_, ok := cache.Load()
	require.True(t, ok)

	require.NoError(t, os.Remove(cache.Path()))
	_, ok = cache.Load()
	assert.False(t, ok)
}

func TestCache_Invalidate(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "toc.json"), nil)

	assert.NoError(t, cache.Invalidate(), "missing file is fine")

	require.NoError(t, cache.Save(sampleTree()))
	require.NoError(t, cache.Invalidate())

	_, ok := cache.Load()
	assert.False(t, ok)
}
