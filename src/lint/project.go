package lint

import (
	"github.com/sofmeright/imagefreight/src/artifact"
	"github.com/sofmeright/imagefreight/src/config"
)

// Project is what project-aware modules see besides the file itself.
type Project struct {
	Config *config.Config
	// Root is the artifact tree on disk.
	Root string
	Lock *artifact.Lock
	// Changed holds artifact-relative paths changed against the target
	// branch. Nil means the delta is unknown.
	Changed map[string]bool
	// LockChanged reports whether the lock file itself changed.
	LockChanged bool
	// Branch is the branch the delta was taken against.
	Branch string
}

// Reference is a component document as a variant references it.
type Reference struct {
	Variant   config.VariantConfig
	Component config.ComponentConfig
}

// References maps artifact-relative document paths to every variant
// component that points at them.
func (p *Project) References() map[string][]Reference {
	out := map[string][]Reference{}
	if p == nil || p.Config == nil {
		return out
	}
	for _, v := range p.Config.Variants {
		for _, c := range v.Components {
			rel := artifact.ComponentFile(v, c)
			out[rel] = append(out[rel], Reference{Variant: v, Component: c})
		}
	}
	return out
}
