// Package component parses EC2 Image Builder component documents and
// renders documentation for the `imagefreight components` command family.
package component

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// SchemaVersion is the only document schema Image Builder accepts.
const SchemaVersion = "1.0"

// Phases Image Builder runs, in order.
var knownPhases = map[string]bool{"build": true, "validate": true, "test": true}

// Document is one component document.
type Document struct {
	Name          string  `yaml:"name"`
	Description   string  `yaml:"description"`
	SchemaVersion scalar  `yaml:"schemaVersion"`
	Phases        []Phase `yaml:"phases"`
}

// Phase groups steps run at one point of the build.
type Phase struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
	Line  int    `yaml:"-"`
}

// Step is a single action.
type Step struct {
	Name      string    `yaml:"name"`
	Action    string    `yaml:"action"`
	OnFailure string    `yaml:"onFailure"`
	Inputs    yaml.Node `yaml:"inputs"`
	Line      int       `yaml:"-"`
}

// scalar decodes any YAML scalar as its literal text, so
// `schemaVersion: 1.0` stays "1.0" instead of becoming a float.
type scalar string

func (s *scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar", n.Line)
	}
	*s = scalar(n.Value)
	return nil
}

func (p *Phase) UnmarshalYAML(n *yaml.Node) error {
	type plain Phase
	var v plain
	if err := n.Decode(&v); err != nil {
		return err
	}
	*p = Phase(v)
	p.Line = n.Line
	return nil
}

func (s *Step) UnmarshalYAML(n *yaml.Node) error {
	type plain Step
	var v plain
	if err := n.Decode(&v); err != nil {
		return err
	}
	*s = Step(v)
	s.Line = n.Line
	return nil
}

// Parse decodes a component document. Only the first YAML document in
// data is read.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty component document")
		}
		return nil, err
	}
	return &doc, nil
}

// Problem is a structural defect in a document.
type Problem struct {
	Line    int
	Message string
}

// Validate reports structural problems Image Builder would reject at
// build time: a wrong schema version, no phases, unknown phase names,
// and steps without a name or action or with duplicate names.
func (d *Document) Validate() []Problem {
	var out []Problem
	if d.Name == "" {
		out = append(out, Problem{Line: 1, Message: "name is required"})
	}
	if string(d.SchemaVersion) != SchemaVersion {
		out = append(out, Problem{Line: 1, Message: fmt.Sprintf("schemaVersion %q, want %q", d.SchemaVersion, SchemaVersion)})
	}
	if len(d.Phases) == 0 {
		out = append(out, Problem{Line: 1, Message: "at least one phase is required"})
	}

	seenPhase := map[string]bool{}
	for _, p := range d.Phases {
		switch {
		case !knownPhases[p.Name]:
			out = append(out, Problem{Line: p.Line, Message: fmt.Sprintf("unknown phase %q", p.Name)})
		case seenPhase[p.Name]:
			out = append(out, Problem{Line: p.Line, Message: fmt.Sprintf("duplicate phase %q", p.Name)})
		}
		seenPhase[p.Name] = true

		if len(p.Steps) == 0 {
			out = append(out, Problem{Line: p.Line, Message: fmt.Sprintf("phase %q has no steps", p.Name)})
		}
		seenStep := map[string]bool{}
		for _, s := range p.Steps {
			if s.Name == "" {
				out = append(out, Problem{Line: s.Line, Message: "step name is required"})
			} else if seenStep[s.Name] {
				out = append(out, Problem{Line: s.Line, Message: fmt.Sprintf("duplicate step name %q in phase %q", s.Name, p.Name)})
			}
			seenStep[s.Name] = true
			if s.Action == "" {
				out = append(out, Problem{Line: s.Line, Message: fmt.Sprintf("step %q has no action", s.Name)})
			}
		}
	}
	return out
}
