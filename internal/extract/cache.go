package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/coderecap/coderecap/internal/recap"
)

// cacheVersion invalidates every entry when the record layout changes.
const cacheVersion = 1

// Cache persists extracted commit records as lz4-compressed JSON, keyed by
// repository head, time range, and author pattern. A cache entry is valid as
// long as the head it was extracted from is unchanged; corrupt or unreadable
// entries are treated as misses.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Cache{dir: dir}, nil
}

// Key identifies one extraction result.
type Key struct {
	Repo    string
	Head    string
	Since   time.Time
	Until   time.Time
	Pattern string
}

func (k Key) fileName() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("v%d|%s|%s|%d|%d|%s",
		cacheVersion, k.Repo, k.Head, k.Since.Unix(), k.Until.Unix(), k.Pattern)))

	return hex.EncodeToString(sum[:16]) + ".json.lz4"
}

// Load returns the cached commits for the key, or ok=false on any miss,
// including corrupt entries.
func (c *Cache) Load(key Key) ([]recap.Commit, bool) {
	file, err := os.Open(filepath.Join(c.dir, key.fileName()))
	if err != nil {
		return nil, false
	}
	defer file.Close()

	var commits []recap.Commit
	if err := json.NewDecoder(lz4.NewReader(file)).Decode(&commits); err != nil {
		return nil, false
	}

	return commits, true
}

// Store writes the commits for the key. Writes go through a temp file and
// rename so a crashed run never leaves a truncated entry behind.
func (c *Cache) Store(key Key, commits []recap.Commit) error {
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}

	writer := lz4.NewWriter(tmp)

	if err := json.NewEncoder(writer).Encode(commits); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := writer.Close(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("flush cache entry: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("close cache entry: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(c.dir, key.fileName())); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("publish cache entry: %w", err)
	}

	return nil
}
