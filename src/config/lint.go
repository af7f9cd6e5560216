package config

// Level controls how much of the artifact tree gets scanned.
type Level string

const (
	LevelChanged Level = "changed"
	LevelFull    Level = "full"
)

// ModuleConfig holds per-module overrides.
type ModuleConfig struct {
	Enabled *bool          `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty"`
	Options map[string]any `yaml:"options,omitempty" toml:"options,omitempty" json:"options,omitempty"`
	Exclude []string       `yaml:"exclude,omitempty" toml:"exclude,omitempty" json:"exclude,omitempty"`
}

// LintConfig holds artifact lint configuration.
type LintConfig struct {
	Level         Level                   `yaml:"level" toml:"level" json:"level"`
	CacheDir      string                  `yaml:"cache_dir" toml:"cache_dir" json:"cache_dir"`
	TargetBranch  string                  `yaml:"target_branch" toml:"target_branch" json:"target_branch"`
	Exclude       []string                `yaml:"exclude" toml:"exclude" json:"exclude"`
	Modules       map[string]ModuleConfig `yaml:"modules" toml:"modules" json:"modules"`
	LargeFilesMax int64                   `yaml:"large_files_max" toml:"large_files_max" json:"large_files_max"`

	// LockFile records content hashes and declared versions of component
	// documents, relative to the artifact source directory's parent.
	LockFile string `yaml:"lock_file" toml:"lock_file" json:"lock_file"`
}

// DefaultLintConfig returns production defaults.
func DefaultLintConfig() LintConfig {
	return LintConfig{
		Level:         LevelFull,
		Exclude:       []string{},
		Modules:       map[string]ModuleConfig{},
		LargeFilesMax: 256 * 1024,
		LockFile:      "components.lock.yaml",
	}
}

func (l *LintConfig) merge(o LintConfig) {
	if o.Level != "" {
		l.Level = o.Level
	}
	setString(&l.CacheDir, o.CacheDir)
	setString(&l.TargetBranch, o.TargetBranch)
	setString(&l.LockFile, o.LockFile)
	if len(o.Exclude) > 0 {
		l.Exclude = append([]string(nil), o.Exclude...)
	}
	for k, v := range o.Modules {
		l.Modules[k] = v
	}
	if o.LargeFilesMax != 0 {
		l.LargeFilesMax = o.LargeFilesMax
	}
}
