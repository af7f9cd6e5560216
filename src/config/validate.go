package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	accountRe = regexp.MustCompile(`^\d{12}$`)
	idRe      = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.\-]*$`)
	logicalRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// ValidateVersion checks that v is a literal major.minor.patch version,
// the only form Image Builder accepts for components and recipes.
func ValidateVersion(v string) error {
	if v == "" {
		return fmt.Errorf("version is required")
	}
	sv, err := semver.StrictNewVersion(v)
	if err != nil {
		return fmt.Errorf("version %q is not major.minor.patch: %w", v, err)
	}
	if sv.Prerelease() != "" || sv.Metadata() != "" {
		return fmt.Errorf("version %q must not carry prerelease or build metadata", v)
	}
	return nil
}

// Validate checks structural invariants of a loaded Config.
// Returns warnings (soft issues) and a hard error if the config is invalid.
func Validate(cfg *Config) (warnings []string, err error) {
	var errs []string

	// ── Target ────────────────────────────────────────────────────────────

	if cfg.Account == "" {
		errs = append(errs, "account: required (set account or CDK_DEFAULT_ACCOUNT)")
	} else if !accountRe.MatchString(cfg.Account) {
		errs = append(errs, fmt.Sprintf("account: %q is not a 12-digit account id", cfg.Account))
	}
	if cfg.Region == "" {
		errs = append(errs, "region: required (set region or CDK_DEFAULT_REGION)")
	}
	if cfg.VpcID == "" {
		errs = append(errs, "vpc_id: required")
	}
	if cfg.SubnetID == "" {
		errs = append(errs, "subnet_id: required")
	}
	if cfg.Vpc != nil && cfg.Vpc.ID != "" && cfg.Vpc.ID != cfg.VpcID {
		errs = append(errs, fmt.Sprintf("vpc.id: %q does not match vpc_id %q", cfg.Vpc.ID, cfg.VpcID))
	}
	if len(cfg.ResourceTags) == 0 {
		warnings = append(warnings, "resource_tags: empty, resources will be untagged")
	}

	// ── Store ─────────────────────────────────────────────────────────────

	if cfg.Store.StackName == "" || !logicalRe.MatchString(cfg.Store.StackName) {
		errs = append(errs, fmt.Sprintf("store.stack_name: %q must be alphanumeric", cfg.Store.StackName))
	}
	if !strings.HasPrefix(cfg.Store.ParameterName, "/") {
		errs = append(errs, fmt.Sprintf("store.parameter_name: %q must be an absolute parameter path", cfg.Store.ParameterName))
	}
	if cfg.Store.KeyPrefix == "" {
		errs = append(errs, "store.key_prefix: required")
	}
	if cfg.Store.AbortMultipartDays < 1 {
		errs = append(errs, "store.abort_multipart_days: must be at least 1")
	}
	if cfg.Store.NoncurrentDays < 1 {
		errs = append(errs, "store.noncurrent_days: must be at least 1")
	}

	// ── Variants ──────────────────────────────────────────────────────────

	if len(cfg.Variants) == 0 {
		errs = append(errs, "variants: at least one variant is required")
	}
	ids := map[string]bool{}
	stacks := map[string]bool{cfg.Store.StackName: true}
	for i, v := range cfg.Variants {
		vpath := fmt.Sprintf("variants[%d]", i)
		if v.ID != "" {
			vpath = fmt.Sprintf("variants[%s]", v.ID)
		}

		switch {
		case v.ID == "":
			errs = append(errs, fmt.Sprintf("%s: id is required", vpath))
		case !idRe.MatchString(v.ID):
			errs = append(errs, fmt.Sprintf("%s: id %q is not a valid identifier", vpath, v.ID))
		case ids[v.ID]:
			errs = append(errs, fmt.Sprintf("%s: duplicate variant id %q", vpath, v.ID))
		default:
			ids[v.ID] = true
		}

		if !logicalRe.MatchString(v.StackName) {
			errs = append(errs, fmt.Sprintf("%s: stack_name %q must be alphanumeric", vpath, v.StackName))
		} else if stacks[v.StackName] {
			errs = append(errs, fmt.Sprintf("%s: duplicate stack_name %q", vpath, v.StackName))
		} else {
			stacks[v.StackName] = true
		}
		if !logicalRe.MatchString(v.NamePrefix) {
			errs = append(errs, fmt.Sprintf("%s: name_prefix %q must be alphanumeric", vpath, v.NamePrefix))
		}
		if v.ManagedPolicyID != "" && !logicalRe.MatchString(v.ManagedPolicyID) {
			errs = append(errs, fmt.Sprintf("%s: managed_policy_id %q must be alphanumeric", vpath, v.ManagedPolicyID))
		}
		if v.PlatformFolder == "" {
			errs = append(errs, fmt.Sprintf("%s: platform_folder is required", vpath))
		}
		if v.BaseImageID == "" {
			errs = append(errs, fmt.Sprintf("%s: base_image_id is required", vpath))
		}
		if v.RootVolumeSize <= 0 {
			errs = append(errs, fmt.Sprintf("%s: root_volume_size must be positive, got %d", vpath, v.RootVolumeSize))
		}
		if len(v.InstanceTypes) == 0 {
			errs = append(errs, fmt.Sprintf("%s: at least one instance type is required", vpath))
		}
		if err := ValidateVersion(v.Recipe.Version); err != nil {
			errs = append(errs, fmt.Sprintf("%s.recipe: %v", vpath, err))
		}

		if len(v.Components) == 0 {
			errs = append(errs, fmt.Sprintf("%s: at least one component is required", vpath))
		}
		compIDs := map[string]bool{}
		compNames := map[string]bool{}
		for ci, c := range v.Components {
			cpath := fmt.Sprintf("%s.components[%d]", vpath, ci)
			if !logicalRe.MatchString(c.ID) {
				errs = append(errs, fmt.Sprintf("%s: id %q must be alphanumeric", cpath, c.ID))
			} else if compIDs[c.ID] {
				errs = append(errs, fmt.Sprintf("%s: duplicate component id %q", cpath, c.ID))
			}
			compIDs[c.ID] = true
			if c.Name == "" {
				errs = append(errs, fmt.Sprintf("%s: name is required", cpath))
			} else if compNames[c.Name] {
				errs = append(errs, fmt.Sprintf("%s: duplicate component name %q", cpath, c.Name))
			}
			compNames[c.Name] = true
			if c.File == "" {
				errs = append(errs, fmt.Sprintf("%s: file is required", cpath))
			} else if strings.Contains(c.File, "..") || strings.HasPrefix(c.File, "/") {
				errs = append(errs, fmt.Sprintf("%s: file %q must be relative to the platform folder", cpath, c.File))
			}
			if err := ValidateVersion(c.Version); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", cpath, err))
			}
		}
	}

	// ── Synth ─────────────────────────────────────────────────────────────

	switch cfg.Synth.Format {
	case "", "json", "yaml", "yml":
	default:
		errs = append(errs, fmt.Sprintf("synth.format: unknown format %q (supported: json, yaml)", cfg.Synth.Format))
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return warnings, nil
}
