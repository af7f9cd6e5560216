package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const latestVersion = 1

// checkVersion rejects YAML configs written for a schema this build does
// not understand. A missing version field is read as the latest version.
func checkVersion(data []byte) error {
	ver, err := peekVersion(data)
	if err != nil {
		return err
	}
	switch ver {
	case 0, latestVersion:
		return nil
	default:
		return fmt.Errorf("unknown config version %d (latest supported: %d)", ver, latestVersion)
	}
}

// peekVersion extracts the version field from raw YAML without full parsing.
func peekVersion(data []byte) (int, error) {
	var probe struct {
		Version int `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return 0, fmt.Errorf("reading version: %w", err)
	}
	return probe.Version, nil
}
