package toc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Cache persists the last built tree as a JSON array in a single file.
// One writer at a time is assumed; concurrent writers race with last-write-wins.
type Cache struct {
	path   string
	logger *slog.Logger
}

// NewCache creates a cache backed by the file at path.
func NewCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{path: path, logger: logger}
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Save replaces the cached tree. The new content is written to a temporary file next to
// the cache and renamed over it, so a failed save leaves the previous tree intact.
func (c *Cache) Save(tree Tree) error {
	if tree == nil {
		tree = Tree{}
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrCacheUnavailable, err)
	}

	if err := c.writeAtomic(data); err != nil {
		c.logger.Error("Failed to save TOC cache", "path", c.path, "error", err)
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	c.logger.Debug("Saved TOC cache", "path", c.path, "bytes", len(data))
	return nil
}

func (c *Cache) writeAtomic(data []byte) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Load returns the cached tree. A missing or unreadable cache is reported as a miss
// (false), never as an error.
func (c *Cache) Load() (Tree, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("TOC cache miss", "path", c.path)
		} else {
			c.logger.Warn("Failed to read TOC cache", "path", c.path, "error", err)
		}
		return nil, false
	}

	var tree Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		c.logger.Warn("Ignoring corrupt TOC cache", "path", c.path, "error", err)
		return nil, false
	}
	if tree == nil {
		tree = Tree{}
	}
	return tree, true
}

// Invalidate deletes the cache file. A missing file is not an error.
func (c *Cache) Invalidate() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
