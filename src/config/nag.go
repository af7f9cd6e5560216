package config

// NagConfig controls the template policy checks.
type NagConfig struct {
	// Disabled lists rule IDs that are not evaluated at all.
	Disabled []string `yaml:"disabled" toml:"disabled" json:"disabled"`

	// MinReasonLength is the shortest suppression reason accepted.
	MinReasonLength int `yaml:"min_reason_length" toml:"min_reason_length" json:"min_reason_length"`

	// ReportDir receives JUnit XML when running in CI.
	ReportDir string `yaml:"report_dir" toml:"report_dir" json:"report_dir"`
}

// DefaultNagConfig returns production defaults.
func DefaultNagConfig() NagConfig {
	return NagConfig{
		Disabled:        []string{},
		MinReasonLength: 10,
		ReportDir:       ".imagefreight/reports",
	}
}

func (n *NagConfig) merge(o NagConfig) {
	if len(o.Disabled) > 0 {
		n.Disabled = append([]string(nil), o.Disabled...)
	}
	if o.MinReasonLength != 0 {
		n.MinReasonLength = o.MinReasonLength
	}
	setString(&n.ReportDir, o.ReportDir)
}
