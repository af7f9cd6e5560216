package rules

import (
	"context"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/config"
	"github.com/sofmeright/imagefreight/src/nag"
)

func init() {
	nag.Register("ImageFreight-IB1", func() nag.Rule { return &literalVersion{} })
	nag.Register("ImageFreight-IB3", func() nag.Rule { return &rootVolume{} })
}

type literalVersion struct{}

func (literalVersion) ID() string       { return "ImageFreight-IB1" }
func (literalVersion) Level() nag.Level { return nag.LevelError }
func (literalVersion) Description() string {
	return "The Image Builder component or recipe version is not a literal major.minor.patch string."
}

// Check requires a literal version. Image Builder refuses to replace a
// published version, so the value must be visible in the template.
func (literalVersion) Check(_ context.Context, r nag.Resource) (nag.Outcome, error) {
	switch r.Type {
	case cfn.TypeIBComponent, cfn.TypeIBRecipe:
	default:
		return nag.NotApplicable, nil
	}
	v, ok := r.Properties["Version"].(string)
	if !ok {
		return nag.NonCompliant, nil
	}
	if err := config.ValidateVersion(v); err != nil {
		return nag.NonCompliant, nil
	}
	return nag.Compliant, nil
}

// minRootVolume is the smallest root volume, in GiB, the supported base
// images boot from.
const minRootVolume = 8

type rootVolume struct{}

func (rootVolume) ID() string       { return "ImageFreight-IB3" }
func (rootVolume) Level() nag.Level { return nag.LevelWarning }
func (rootVolume) Description() string {
	return "The Image Builder recipe block device is not a gp3 volume of at least 8 GiB."
}

func (rootVolume) Check(_ context.Context, r nag.Resource) (nag.Outcome, error) {
	if r.Type != cfn.TypeIBRecipe {
		return nag.NotApplicable, nil
	}
	mappings := cfn.List(r.Properties["BlockDeviceMappings"])
	if len(mappings) == 0 {
		return nag.NotApplicable, nil
	}
	for _, m := range mappings {
		typ, _ := cfn.Path(m, "Ebs", "VolumeType")
		if typ != "gp3" {
			return nag.NonCompliant, nil
		}
		raw, _ := cfn.Path(m, "Ebs", "VolumeSize")
		size, ok := cfn.Int(raw)
		if !ok || size < minRootVolume {
			return nag.NonCompliant, nil
		}
	}
	return nag.Compliant, nil
}
