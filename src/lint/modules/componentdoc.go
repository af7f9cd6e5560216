package modules

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sofmeright/imagefreight/src/component"
	"github.com/sofmeright/imagefreight/src/lint"
)

func init() {
	lint.Register("componentdoc", func() lint.Module { return &componentDocModule{} })
}

// componentDocModule validates the structure of component documents a
// variant references, so schema mistakes fail here rather than during
// an image build.
type componentDocModule struct {
	refs map[string][]lint.Reference
}

func (m *componentDocModule) Name() string         { return "componentdoc" }
func (m *componentDocModule) DefaultEnabled() bool { return true }
func (m *componentDocModule) AutoDetect() []string { return []string{"*.yml", "*.yaml"} }

func (m *componentDocModule) Bind(p *lint.Project) error {
	m.refs = p.References()
	return nil
}

func (m *componentDocModule) Check(ctx context.Context, file lint.FileInfo) ([]lint.Finding, error) {
	refs, referenced := m.refs[file.Path]
	if !referenced {
		return nil, nil
	}

	data, err := os.ReadFile(file.AbsPath)
	if err != nil {
		return nil, err
	}

	doc, err := component.Parse(data)
	if err != nil {
		return []lint.Finding{at(file, 1, m.Name(), lint.SeverityCritical, fmt.Sprintf("not a component document: %v", err))}, nil
	}

	var findings []lint.Finding
	for _, p := range doc.Validate() {
		findings = append(findings, at(file, p.Line, m.Name(), lint.SeverityCritical, p.Message))
	}

	if doc.Description == "" {
		names := make([]string, 0, len(refs))
		for _, r := range refs {
			names = append(names, r.Variant.ID+"/"+r.Component.Name)
		}
		findings = append(findings, at(file, 1, m.Name(), lint.SeverityInfo,
			"description is empty; generated docs for "+strings.Join(names, ", ")+" will have none"))
	}
	return findings, nil
}
