package lint

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

const (
	// DefaultCacheDir is used when lint.cache_dir is unset.
	DefaultCacheDir = ".imagefreight/cache/lint"
	engineVersion   = "0.3.0"
)

// Cache provides content-addressed lint result caching.
type Cache struct {
	// Dir holds the entries. Relative paths resolve against the
	// working directory.
	Dir     string
	Enabled bool
}

// NewCache returns an enabled cache rooted at dir, or DefaultCacheDir
// when dir is empty.
func NewCache(dir string) *Cache {
	if dir == "" {
		dir = DefaultCacheDir
	}
	return &Cache{Dir: dir, Enabled: true}
}

type cacheEntry struct {
	Findings []Finding `json:"findings"`
}

// Key computes a cache key from file content, path, module name and
// module config. The path is part of the key: findings name their file,
// and modules such as drift judge a file by where it sits.
func (c *Cache) Key(content []byte, path, moduleName, configJSON string) string {
	h := blake3.New()
	for _, part := range [][]byte{content, []byte(path), []byte(moduleName), []byte(configJSON), []byte(engineVersion)} {
		h.Write(part)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves cached findings. A maxAge of zero accepts any entry;
// otherwise entries older than maxAge miss.
func (c *Cache) Get(key string, maxAge time.Duration) ([]Finding, bool) {
	if !c.Enabled {
		return nil, false
	}

	path := c.path(key)
	if maxAge > 0 {
		info, err := os.Stat(path)
		if err != nil || time.Since(info.ModTime()) > maxAge {
			return nil, false
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	return entry.Findings, true
}

// Put stores findings in the cache.
func (c *Cache) Put(key string, findings []Finding) error {
	if !c.Enabled {
		return nil
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	data, err := json.Marshal(cacheEntry{Findings: findings})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Clear removes the entire cache directory.
func (c *Cache) Clear() error {
	return os.RemoveAll(c.Dir)
}

// path uses a 2-char prefix subdirectory to avoid huge flat directories.
func (c *Cache) path(key string) string {
	return filepath.Join(c.Dir, key[:2], key+".json")
}

// EnsureGitignore adds .imagefreight/ to the .gitignore in rootDir if not
// already present. Best effort.
func EnsureGitignore(rootDir string) {
	gitignorePath := filepath.Join(rootDir, ".gitignore")
	const entry = ".imagefreight/"

	data, err := os.ReadFile(gitignorePath)
	if err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSuffix(line, "\r") == entry {
				return
			}
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	if len(data) > 0 && data[len(data)-1] != '\n' {
		f.WriteString("\n")
	}
	f.WriteString(entry + "\n")
}
