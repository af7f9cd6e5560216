package modules

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/sofmeright/imagefreight/src/lint"
)

func init() {
	lint.Register("yaml", func() lint.Module { return &yamlModule{} })
}

// yamlModule checks that component documents parse. Image Builder only
// reports YAML errors once a build instance fetches the document.
type yamlModule struct{}

func (m *yamlModule) Name() string         { return "yaml" }
func (m *yamlModule) DefaultEnabled() bool { return true }
func (m *yamlModule) AutoDetect() []string { return []string{"*.yml", "*.yaml"} }

func (m *yamlModule) Check(ctx context.Context, file lint.FileInfo) ([]lint.Finding, error) {
	if !isYAML(file.Path) {
		return nil, nil
	}
	data, err := os.ReadFile(file.AbsPath)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	findings := m.tabs(file, data)

	docs := 0
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		docs++
		// Duplicate keys surface as type errors; dupKeys reports them with
		// positions.
		var typeErr *yaml.TypeError
		if err != nil && !errors.As(err, &typeErr) {
			return append(findings, at(file, 0, m.Name(), lint.SeverityCritical, fmt.Sprintf("YAML parse error: %v", err))), nil
		}
	}
	if docs > 1 {
		findings = append(findings, at(file, 1, m.Name(), lint.SeverityInfo,
			fmt.Sprintf("%d YAML documents; Image Builder reads only the first", docs)))
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err == nil {
		findings = append(findings, m.dupKeys(file, &root)...)
	}
	return findings, nil
}

// tabs flags lines indented with a tab, which YAML forbids.
func (m *yamlModule) tabs(file lint.FileInfo, data []byte) []lint.Finding {
	var out []lint.Finding
	for i, line := range bytes.Split(data, []byte("\n")) {
		if len(line) > 0 && line[0] == '\t' {
			out = append(out, at(file, i+1, m.Name(), lint.SeverityWarning, "tab indentation (spaces expected)"))
		}
	}
	return out
}

// dupKeys walks every mapping below n and reports repeated keys.
func (m *yamlModule) dupKeys(file lint.FileInfo, n *yaml.Node) []lint.Finding {
	var out []lint.Finding
	var walk func(*yaml.Node)
	walk = func(n *yaml.Node) {
		if n.Kind != yaml.MappingNode {
			for _, c := range n.Content {
				walk(c)
			}
			return
		}
		first := map[string]int{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if line, dup := first[k.Value]; dup {
				f := at(file, k.Line, m.Name(), lint.SeverityWarning,
					fmt.Sprintf("duplicate key %q (first defined at line %d)", k.Value, line))
				f.Column = k.Column
				out = append(out, f)
			} else {
				first[k.Value] = k.Line
			}
			walk(n.Content[i+1])
		}
	}
	walk(n)
	return out
}

func isYAML(p string) bool {
	switch path.Ext(p) {
	case ".yml", ".yaml":
		return true
	}
	return false
}
