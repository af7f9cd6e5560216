// Package cfn models the subset of CloudFormation templates that
// imagefreight emits: parameters, resources, outputs and intrinsic
// functions, plus JSON/YAML serialization.
package cfn

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

const formatVersion = "2010-09-09"

// ErrDuplicateLogicalID is returned when a logical ID is added twice.
var ErrDuplicateLogicalID = errors.New("duplicate logical id")

var logicalIDRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Template is a single CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                `json:"Description,omitempty" yaml:"Description,omitempty"`
	Metadata                 map[string]any        `json:"Metadata,omitempty" yaml:"Metadata,omitempty"`
	Parameters               map[string]*Parameter `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Resources                map[string]*Resource  `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]*Output    `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// Parameter is a template input. SSM-backed parameters resolve their
// Default as a parameter store path at deploy time.
type Parameter struct {
	Type        string `json:"Type" yaml:"Type"`
	Default     string `json:"Default,omitempty" yaml:"Default,omitempty"`
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
}

// Resource is one declared resource.
type Resource struct {
	Type                string         `json:"Type" yaml:"Type"`
	Properties          map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn           []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty" yaml:"UpdateReplacePolicy,omitempty"`
	DeletionPolicy      string         `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
	Metadata            map[string]any `json:"Metadata,omitempty" yaml:"Metadata,omitempty"`
}

// Output is an exported template value.
type Output struct {
	Value       any    `json:"Value" yaml:"Value"`
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
}

// New returns an empty template.
func New(description string) *Template {
	return &Template{
		AWSTemplateFormatVersion: formatVersion,
		Description:              description,
		Parameters:               map[string]*Parameter{},
		Resources:                map[string]*Resource{},
		Outputs:                  map[string]*Output{},
	}
}

// ValidLogicalID reports whether id is usable as a logical ID.
func ValidLogicalID(id string) bool {
	return logicalIDRe.MatchString(id)
}

// AddResource adds r under id.
func (t *Template) AddResource(id string, r *Resource) error {
	if !ValidLogicalID(id) {
		return fmt.Errorf("resource %q: logical id must be alphanumeric", id)
	}
	if t.has(id) {
		return fmt.Errorf("resource %q: %w", id, ErrDuplicateLogicalID)
	}
	if r.Properties == nil {
		r.Properties = map[string]any{}
	}
	t.Resources[id] = r
	return nil
}

// AddParameter adds p under id.
func (t *Template) AddParameter(id string, p *Parameter) error {
	if !ValidLogicalID(id) {
		return fmt.Errorf("parameter %q: logical id must be alphanumeric", id)
	}
	if t.has(id) {
		return fmt.Errorf("parameter %q: %w", id, ErrDuplicateLogicalID)
	}
	t.Parameters[id] = p
	return nil
}

// AddOutput adds o under id.
func (t *Template) AddOutput(id string, o *Output) error {
	if !ValidLogicalID(id) {
		return fmt.Errorf("output %q: logical id must be alphanumeric", id)
	}
	if _, ok := t.Outputs[id]; ok {
		return fmt.Errorf("output %q: %w", id, ErrDuplicateLogicalID)
	}
	t.Outputs[id] = o
	return nil
}

// has reports whether id is taken by a resource or parameter; both share
// the Ref namespace.
func (t *Template) has(id string) bool {
	if _, ok := t.Resources[id]; ok {
		return true
	}
	_, ok := t.Parameters[id]
	return ok
}

// ResourceIDs returns the resource logical IDs sorted.
func (t *Template) ResourceIDs() []string {
	ids := make([]string, 0, len(t.Resources))
	for id := range t.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResourcesOfType returns the logical IDs of resources with the given
// type, sorted.
func (t *Template) ResourcesOfType(typ string) []string {
	var ids []string
	for _, id := range t.ResourceIDs() {
		if t.Resources[id].Type == typ {
			ids = append(ids, id)
		}
	}
	return ids
}

// AddDependency makes the resource id depend on dep. Duplicate edges are
// ignored.
func (r *Resource) AddDependency(dep string) {
	for _, d := range r.DependsOn {
		if d == dep {
			return
		}
	}
	r.DependsOn = append(r.DependsOn, dep)
	sort.Strings(r.DependsOn)
}
