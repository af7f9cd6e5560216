// Package stack groups CloudFormation templates into deployable units,
// records the edges between them and synthesizes a cloud assembly.
package stack

import (
	"fmt"
	"sort"

	"github.com/sofmeright/imagefreight/src/cfn"
)

// PathKey is the resource metadata key holding the construct path.
const PathKey = "aws:cdk:path"

// Env is the deployment target of a stack.
type Env struct {
	Account string `json:"account"`
	Region  string `json:"region"`
}

// String renders the env the way cloud assembly manifests do.
func (e Env) String() string {
	account, region := e.Account, e.Region
	if account == "" {
		account = "unknown-account"
	}
	if region == "" {
		region = "unknown-region"
	}
	return "aws://" + account + "/" + region
}

// Resolved reports whether both account and region are concrete.
func (e Env) Resolved() bool {
	return e.Account != "" && e.Region != ""
}

// Asset is a local directory shipped into a bucket at deploy time.
type Asset struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Bucket    string `json:"bucket"`
	KeyPrefix string `json:"keyPrefix"`
	Prune     bool   `json:"prune"`
}

// Stack is one deployable template.
type Stack struct {
	Name     string
	Env      Env
	Template *cfn.Template
	Assets   []Asset

	deps map[string]*Stack
}

// Path returns the construct path of a resource in this stack.
func (s *Stack) Path(id string) string {
	return "/" + s.Name + "/" + id
}

// Add declares a resource and stamps its construct path.
func (s *Stack) Add(id string, r *cfn.Resource) (*cfn.Resource, error) {
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	r.Metadata[PathKey] = s.Path(id)
	if err := s.Template.AddResource(id, r); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return r, nil
}

// Resource returns the resource declared under id.
func (s *Stack) Resource(id string) (*cfn.Resource, bool) {
	r, ok := s.Template.Resources[id]
	return r, ok
}

// AddDependency makes s deploy after other.
func (s *Stack) AddDependency(other *Stack) {
	if s.deps == nil {
		s.deps = map[string]*Stack{}
	}
	s.deps[other.Name] = other
}

// Dependencies returns the names of the stacks s depends on, sorted.
func (s *Stack) Dependencies() []string {
	names := make([]string, 0, len(s.deps))
	for n := range s.deps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AddAsset registers a directory to ship with this stack.
func (s *Stack) AddAsset(a Asset) {
	s.Assets = append(s.Assets, a)
}
