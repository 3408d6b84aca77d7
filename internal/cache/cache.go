// Package cache stores resolved series metadata on disk for a limited time.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/where"
)

// Cache is a directory of JSON entries that expire after TTL.
type Cache struct {
	Dir string
	TTL time.Duration

	now func() time.Time
}

// New returns a cache in dir. A TTL of zero or less disables it.
func New(dir string, ttl time.Duration) *Cache {
	return &Cache{Dir: dir, TTL: ttl, now: time.Now}
}

// Series returns the cache used for resolved series.
func Series(ttl time.Duration) *Cache {
	return New(where.Series(), ttl)
}

// Key derives a stable file name from its parts.
func Key(parts ...string) string {
	sanitized := strings.ToLower(strings.Join(parts, "\x00"))
	hash := sha256.Sum256([]byte(sanitized))
	return hex.EncodeToString(hash[:])
}

// Enabled reports whether entries are read and written at all.
func (c *Cache) Enabled() bool {
	return c != nil && c.TTL > 0
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

func (c *Cache) expired(info fs.FileInfo) bool {
	return c.now().Sub(info.ModTime()) > c.TTL
}

// Read decodes the entry for key into target. It reports false for missing,
// expired or unreadable entries.
func (c *Cache) Read(key string, target any) bool {
	if !c.Enabled() {
		return false
	}

	path := c.path(key)
	info, err := filesystem.API().Stat(path)
	if err != nil || c.expired(info) {
		return false
	}

	data, err := filesystem.API().ReadFile(path)
	if err != nil {
		return false
	}

	return json.Unmarshal(data, target) == nil
}

// Write stores data under key, replacing the previous entry atomically.
func (c *Cache) Write(key string, data any) error {
	if !c.Enabled() {
		return nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if err := filesystem.API().MkdirAll(c.Dir, 0755); err != nil {
		return err
	}

	path := c.path(key)
	tmp := path + ".tmp"
	if err := filesystem.API().WriteFile(tmp, encoded, 0644); err != nil {
		return err
	}
	return filesystem.API().Rename(tmp, path)
}

// Prune removes every expired entry and returns how many were deleted.
func (c *Cache) Prune() (int, error) {
	if !c.Enabled() {
		return 0, nil
	}

	entries, err := filesystem.API().ReadDir(c.Dir)
	if err != nil {
		return 0, err
	}

	var removed int
	for _, entry := range entries {
		if entry.IsDir() || !c.expired(entry) {
			continue
		}
		if err := filesystem.API().Remove(filepath.Join(c.Dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
