package config

// StoreConfig describes the components bucket and the registry entry
// that publishes its name.
type StoreConfig struct {
	StackName string `yaml:"stack_name" toml:"stack_name" json:"stack_name"`

	// BucketPrefix is joined with account and region to build a globally
	// unique bucket name.
	BucketPrefix string `yaml:"bucket_prefix" toml:"bucket_prefix" json:"bucket_prefix"`

	// ParameterName is the registry path downstream stacks read.
	ParameterName string `yaml:"parameter_name" toml:"parameter_name" json:"parameter_name"`

	// Source is the local artifact tree; KeyPrefix is where it lands.
	Source    string   `yaml:"source" toml:"source" json:"source"`
	KeyPrefix string   `yaml:"key_prefix" toml:"key_prefix" json:"key_prefix"`
	Exclude   []string `yaml:"exclude" toml:"exclude" json:"exclude"`
	Prune     *bool    `yaml:"prune,omitempty" toml:"prune,omitempty" json:"prune,omitempty"`

	AbortMultipartDays int `yaml:"abort_multipart_days" toml:"abort_multipart_days" json:"abort_multipart_days"`
	NoncurrentDays     int `yaml:"noncurrent_days" toml:"noncurrent_days" json:"noncurrent_days"`

	// Parallel bounds concurrent uploads during deploy.
	Parallel int `yaml:"parallel" toml:"parallel" json:"parallel"`
}

// PruneEnabled reports whether stale objects under KeyPrefix are deleted
// on deploy. Defaults to true.
func (s StoreConfig) PruneEnabled() bool {
	return s.Prune == nil || *s.Prune
}

// DefaultStoreConfig returns production defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		StackName:          "S3Ops",
		BucketPrefix:       "image-builder-components",
		ParameterName:      "/centralised-amis/components-bucket-name",
		Source:             "components",
		KeyPrefix:          "components",
		Exclude:            []string{},
		AbortMultipartDays: 1,
		NoncurrentDays:     30,
		Parallel:           8,
	}
}

func (s *StoreConfig) merge(o StoreConfig) {
	setString(&s.StackName, o.StackName)
	setString(&s.BucketPrefix, o.BucketPrefix)
	setString(&s.ParameterName, o.ParameterName)
	setString(&s.Source, o.Source)
	setString(&s.KeyPrefix, o.KeyPrefix)
	if len(o.Exclude) > 0 {
		s.Exclude = append([]string(nil), o.Exclude...)
	}
	if o.Prune != nil {
		p := *o.Prune
		s.Prune = &p
	}
	if o.AbortMultipartDays != 0 {
		s.AbortMultipartDays = o.AbortMultipartDays
	}
	if o.NoncurrentDays != 0 {
		s.NoncurrentDays = o.NoncurrentDays
	}
	if o.Parallel != 0 {
		s.Parallel = o.Parallel
	}
}
