package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sofmeright/imagefreight/src/config"
	"gopkg.in/yaml.v3"
)

const lockVersion = 1

// Lock pins the content hash of every component document a pipeline
// references, next to the version it is declared under. Comparing a
// fresh hash against the lock shows documents edited without a version
// bump.
type Lock struct {
	Version    int         `yaml:"version"`
	Components []LockEntry `yaml:"components"`
}

// LockEntry is one pinned component document.
type LockEntry struct {
	Variant string `yaml:"variant"`
	Name    string `yaml:"name"`
	// File is relative to the artifact tree root.
	File    string `yaml:"file"`
	Version string `yaml:"version"`
	Hash    string `yaml:"blake3"`
}

// LoadLock reads a lock file. A missing file yields an empty lock.
func LoadLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Lock{Version: lockVersion}, nil
		}
		return nil, err
	}
	var l Lock
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if l.Version > lockVersion {
		return nil, fmt.Errorf("%s: unknown lock version %d (latest supported: %d)", path, l.Version, lockVersion)
	}
	return &l, nil
}

// Save writes the lock as YAML.
func (l *Lock) Save(path string) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Entry returns the pinned entry for file.
func (l *Lock) Entry(file string) (LockEntry, bool) {
	for _, e := range l.Components {
		if e.File == file {
			return e, true
		}
	}
	return LockEntry{}, false
}

// ComponentFile returns the path of a component document relative to
// the artifact tree root.
func ComponentFile(v config.VariantConfig, c config.ComponentConfig) string {
	return toSlash(filepath.Join(v.PlatformFolder, c.File))
}

// BuildLock hashes every component document referenced by cfg. root is
// the artifact tree on disk. A referenced file that does not exist is an
// error.
func BuildLock(cfg *config.Config, root string) (*Lock, error) {
	l := &Lock{Version: lockVersion}
	for _, v := range cfg.Variants {
		for _, c := range v.Components {
			rel := ComponentFile(v, c)
			hash, err := HashFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return nil, fmt.Errorf("variant %s: component %s: %w", v.ID, c.Name, err)
			}
			l.Components = append(l.Components, LockEntry{
				Variant: v.ID,
				Name:    c.Name,
				File:    rel,
				Version: c.Version,
				Hash:    hash,
			})
		}
	}
	sort.Slice(l.Components, func(i, j int) bool {
		return l.Components[i].File < l.Components[j].File
	})
	return l, nil
}
