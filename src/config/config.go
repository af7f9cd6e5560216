package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no --config is given.
const DefaultFile = ".imagefreight.yml"

// Config is the top-level imagefreight configuration.
type Config struct {
	Version int `yaml:"version" toml:"version" json:"version"`

	// Deployment target. Account and region fall back to
	// CDK_DEFAULT_ACCOUNT / CDK_DEFAULT_REGION.
	Account  string `yaml:"account" toml:"account" json:"account"`
	Region   string `yaml:"region" toml:"region" json:"region"`
	VpcID    string `yaml:"vpc_id" toml:"vpc_id" json:"vpc_id"`
	SubnetID string `yaml:"subnet_id" toml:"subnet_id" json:"subnet_id"`

	// ResourceTags are applied to every taggable resource.
	ResourceTags map[string]string `yaml:"resource_tags" toml:"resource_tags" json:"resource_tags"`

	// Vpc describes the network inline for offline synth. When empty the
	// lookup goes through ContextFile.
	Vpc         *VpcConfig `yaml:"vpc,omitempty" toml:"vpc,omitempty" json:"vpc,omitempty"`
	ContextFile string     `yaml:"context_file" toml:"context_file" json:"context_file"`

	Store    StoreConfig     `yaml:"store" toml:"store" json:"store"`
	Variants []VariantConfig `yaml:"variants" toml:"variants" json:"variants"`
	Nag      NagConfig       `yaml:"nag" toml:"nag" json:"nag"`
	Lint     LintConfig      `yaml:"lint" toml:"lint" json:"lint"`
	Synth    SynthConfig     `yaml:"synth" toml:"synth" json:"synth"`
}

// VpcConfig is an inline network description.
type VpcConfig struct {
	ID        string   `yaml:"id" toml:"id" json:"id"`
	CidrBlock string   `yaml:"cidr_block" toml:"cidr_block" json:"cidr_block"`
	Subnets   []string `yaml:"subnets" toml:"subnets" json:"subnets"`
}

// SynthConfig controls template emission.
type SynthConfig struct {
	Out    string `yaml:"out" toml:"out" json:"out"`
	Format string `yaml:"format" toml:"format" json:"format"`
}

// Load reads configuration from path. The decoder follows the file
// extension: YAML (default), TOML, or JSON/JSONC. A file named cdk.json
// is read through its "context" object. If path is empty and the default
// file doesn't exist, defaults are returned.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultFile
	}

	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var file Config
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case ext == ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case ext == ".json" || ext == ".jsonc":
		if err := decodeJSON(data, &file); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		if err := checkVersion(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	cfg.merge(&file)
	cfg.applyEnv()
	return cfg, nil
}

// decodeJSON accepts either a plain config document or a cdk.json-style
// {"app": ..., "context": {...}} wrapper. Comments and trailing commas
// are allowed.
func decodeJSON(data []byte, into *Config) error {
	stripped := jsonc.ToJSON(data)

	var probe struct {
		Context json.RawMessage `json:"context"`
	}
	if err := json.Unmarshal(stripped, &probe); err != nil {
		return err
	}
	if len(probe.Context) > 0 {
		return decodeContext(probe.Context, into)
	}

	dec := json.NewDecoder(bytes.NewReader(stripped))
	return dec.Decode(into)
}

func (c *Config) applyEnv() {
	if c.Account == "" {
		c.Account = os.Getenv("CDK_DEFAULT_ACCOUNT")
	}
	if c.Region == "" {
		c.Region = os.Getenv("CDK_DEFAULT_REGION")
	}
}

// merge overlays non-zero values from f onto c. Variants merge by ID so
// a file can override one field of a built-in variant.
func (c *Config) merge(f *Config) {
	if f.Version != 0 {
		c.Version = f.Version
	}
	setString(&c.Account, f.Account)
	setString(&c.Region, f.Region)
	setString(&c.VpcID, f.VpcID)
	setString(&c.SubnetID, f.SubnetID)
	setString(&c.ContextFile, f.ContextFile)
	for k, v := range f.ResourceTags {
		c.ResourceTags[k] = v
	}
	if f.Vpc != nil {
		v := *f.Vpc
		v.Subnets = append([]string(nil), f.Vpc.Subnets...)
		c.Vpc = &v
	}

	c.Store.merge(f.Store)
	c.Nag.merge(f.Nag)
	c.Lint.merge(f.Lint)
	setString(&c.Synth.Out, f.Synth.Out)
	setString(&c.Synth.Format, f.Synth.Format)

	for _, fv := range f.Variants {
		if existing := c.Variant(fv.ID); existing != nil {
			existing.merge(fv)
			continue
		}
		c.Variants = append(c.Variants, fv.clone())
	}
}

// Variant returns the variant with the given ID, or nil.
func (c *Config) Variant(id string) *VariantConfig {
	for i := range c.Variants {
		if c.Variants[i].ID == id {
			return &c.Variants[i]
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Default returns the built-in configuration without reading any file
// or environment.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Version:      1,
		ResourceTags: map[string]string{},
		ContextFile:  "cdk.context.json",
		Store:        DefaultStoreConfig(),
		Variants:     DefaultVariants(),
		Nag:          DefaultNagConfig(),
		Lint:         DefaultLintConfig(),
		Synth: SynthConfig{
			Out:    "cdk.out",
			Format: "json",
		},
	}
}
