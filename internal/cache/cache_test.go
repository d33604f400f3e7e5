package cache

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseCache runs the behaviour every Cache implementation must share.
func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "image:abc:10", "asset-1"))
	v, ok, err := c.Get(ctx, "image:abc:10")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "asset-1", v)

	require.NoError(t, c.Put(ctx, "image:abc:10", "asset-2"))
	v, _, _ = c.Get(ctx, "image:abc:10")
	assert.Equal(t, "asset-2", v)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	exerciseCache(t, c)
	assert.Equal(t, 1, c.Len())
}

func TestFileCache(t *testing.T) {
	exerciseCache(t, mustOpenFile(t, filepath.Join(t.TempDir(), "cache.json")))
}

func TestFileCache_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "assets.json")
	ctx := context.Background()

	first := mustOpenFile(t, path)
	require.NoError(t, first.Put(ctx, "audio:ff:3", "remote-9"))

	second := mustOpenFile(t, path)
	v, ok, err := second.Get(ctx, "audio:ff:3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "remote-9", v)
}

func TestFileCache_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	c, err := OpenFileCache(path, logger)
	require.NoError(t, err)
	_, ok, _ := c.Get(context.Background(), "anything")
	assert.False(t, ok)
	assert.Contains(t, logs.String(), "cache file corrupt")

	require.NoError(t, c.Put(context.Background(), "k", "v"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"k": "v"`)
}

func TestFileCache_RequiresPath(t *testing.T) {
	_, err := OpenFileCache("", nil)
	assert.Error(t, err)
}

func TestSQLiteCache(t *testing.T) {
	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exerciseCache(t, store.Namespace("assets"))
}

func TestSQLiteCache_NamespacesAreIsolated(t *testing.T) {
	store, err := OpenSQLite(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	assets := store.Namespace("assets")
	videos := store.Namespace("videos")
	require.NoError(t, assets.Put(ctx, "k", "asset"))

	_, ok, err := videos.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := assets.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "asset", v)
}

func mustOpenFile(t *testing.T, path string) *FileCache {
	t.Helper()
	c, err := OpenFileCache(path, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	return c
}
