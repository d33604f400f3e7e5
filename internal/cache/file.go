package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Compile-time check that FileCache implements Cache.
var _ Cache = (*FileCache)(nil)

// FileCache keeps entries in memory and mirrors them to a JSON file so they
// survive restarts. The file is loaded once at open and rewritten whenever a
// new entry is added.
type FileCache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]string
	logger  *slog.Logger
}

// OpenFileCache loads path if it exists. A missing or unreadable file is
// logged and the cache starts empty, since the file only saves remote work.
func OpenFileCache(path string, logger *slog.Logger) (*FileCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, errors.New("cache: file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}

	c := &FileCache{
		path:    path,
		entries: make(map[string]string),
		logger:  logger,
	}

	data, err := os.ReadFile(path) // #nosec G304 - path comes from configuration
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		logger.Warn("cache file unreadable, starting empty",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	default:
		if err := json.Unmarshal(data, &c.entries); err != nil {
			logger.Warn("cache file corrupt, starting empty",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			c.entries = make(map[string]string)
		}
	}

	logger.Debug("file cache loaded",
		slog.String("path", path),
		slog.Int("entries", len(c.entries)),
	)
	return c, nil
}

// Get returns the cached value for key.
func (c *FileCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

// Put stores value under key and rewrites the snapshot when the entry changed.
func (c *FileCache) Put(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok && old == value {
		return nil
	}
	c.entries[key] = value
	return c.flushLocked()
}

// flushLocked writes the snapshot to a temp file and renames it into place
// so readers never see a partial file.
func (c *FileCache) flushLocked() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: replace snapshot: %w", err)
	}
	return nil
}
