package modules

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/sofmeright/imagefreight/src/artifact"
	"github.com/sofmeright/imagefreight/src/lint"
)

func init() {
	lint.Register("drift", func() lint.Module { return &driftModule{} })
}

// driftModule compares component documents against the lock file.
// Image Builder keeps a component version immutable, so a document
// edited under an already deployed version never reaches new images.
type driftModule struct {
	project *lint.Project
	refs    map[string][]lint.Reference
}

func (m *driftModule) Name() string         { return "drift" }
func (m *driftModule) DefaultEnabled() bool { return true }
func (m *driftModule) AutoDetect() []string { return nil }

// CacheTTL opts out of caching: the verdict depends on the lock and the
// git delta, not only on the file content.
func (m *driftModule) CacheTTL() time.Duration { return -1 }

func (m *driftModule) Bind(p *lint.Project) error {
	m.project = p
	m.refs = p.References()
	return nil
}

func (m *driftModule) Check(ctx context.Context, file lint.FileInfo) ([]lint.Finding, error) {
	refs, referenced := m.refs[file.Path]
	if !referenced {
		return nil, nil
	}

	finding := func(sev lint.Severity, format string, args ...any) lint.Finding {
		return at(file, 1, m.Name(), sev, fmt.Sprintf(format, args...))
	}

	var findings []lint.Finding

	p := m.project
	if p.Changed != nil && p.Changed[file.Path] && !p.LockChanged {
		branch := p.Branch
		if branch == "" {
			branch = "the target branch"
		}
		findings = append(findings, finding(lint.SeverityWarning,
			"changed against %s but the lock file was not updated", branch))
	}

	var (
		entry  artifact.LockEntry
		locked bool
	)
	if p.Lock != nil {
		entry, locked = p.Lock.Entry(file.Path)
	}
	if !locked {
		findings = append(findings, finding(lint.SeverityWarning,
			"not in the lock file; run 'imagefreight components lock'"))
		return findings, nil
	}

	hash, err := artifact.HashFile(file.AbsPath)
	if err != nil {
		return nil, err
	}

	for _, r := range refs {
		declared := r.Component.Version
		bumped, err := versionAfter(declared, entry.Version)
		if err != nil {
			findings = append(findings, finding(lint.SeverityCritical,
				"%s/%s: %v", r.Variant.ID, r.Component.Name, err))
			continue
		}

		switch {
		case hash != entry.Hash && !bumped:
			findings = append(findings, finding(lint.SeverityCritical,
				"%s/%s: content changed but version is still %s (locked at %s); bump the version",
				r.Variant.ID, r.Component.Name, declared, entry.Version))
		case hash != entry.Hash:
			findings = append(findings, finding(lint.SeverityInfo,
				"%s/%s: content changed with version %s -> %s; refresh the lock",
				r.Variant.ID, r.Component.Name, entry.Version, declared))
		case declared != entry.Version:
			findings = append(findings, finding(lint.SeverityInfo,
				"%s/%s: version %s differs from locked %s with unchanged content",
				r.Variant.ID, r.Component.Name, declared, entry.Version))
		}
	}
	return findings, nil
}

// versionAfter reports whether declared is strictly newer than locked.
func versionAfter(declared, locked string) (bool, error) {
	d, err := semver.StrictNewVersion(declared)
	if err != nil {
		return false, fmt.Errorf("version %q: %w", declared, err)
	}
	l, err := semver.StrictNewVersion(locked)
	if err != nil {
		return false, fmt.Errorf("locked version %q: %w", locked, err)
	}
	return d.GreaterThan(l), nil
}
