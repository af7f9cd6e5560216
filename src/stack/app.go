package stack

import (
	"fmt"
	"sort"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/graph"
)

// App is the root of a set of stacks.
type App struct {
	stacks []*Stack
	byName map[string]*Stack
	tags   map[string]string
}

// NewApp returns an empty app.
func NewApp() *App {
	return &App{
		byName: map[string]*Stack{},
		tags:   map[string]string{},
	}
}

// NewStack creates and registers a stack.
func (a *App) NewStack(name, description string, env Env) (*Stack, error) {
	if !cfn.ValidLogicalID(name) {
		return nil, fmt.Errorf("stack name %q must be alphanumeric", name)
	}
	if _, ok := a.byName[name]; ok {
		return nil, fmt.Errorf("duplicate stack %q", name)
	}
	s := &Stack{
		Name:     name,
		Env:      env,
		Template: cfn.New(description),
	}
	a.stacks = append(a.stacks, s)
	a.byName[name] = s
	return s, nil
}

// Stack returns the named stack.
func (a *App) Stack(name string) (*Stack, bool) {
	s, ok := a.byName[name]
	return s, ok
}

// Stacks returns stacks in registration order.
func (a *App) Stacks() []*Stack {
	return a.stacks
}

// Tag adds a tag applied to every taggable resource at synth time.
func (a *App) Tag(key, value string) {
	a.tags[key] = value
}

// Tags returns a copy of the app tag set.
func (a *App) Tags() map[string]string {
	out := make(map[string]string, len(a.tags))
	for k, v := range a.tags {
		out[k] = v
	}
	return out
}

// StackGraph returns the unit-level dependency graph.
func (a *App) StackGraph() (*graph.Graph, error) {
	g := graph.New()
	for _, s := range a.stacks {
		g.AddNode(s.Name)
	}
	for _, s := range a.stacks {
		for _, d := range s.Dependencies() {
			if err := g.AddEdge(s.Name, d); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// ResourceGraph returns the resource-level graph of a stack. Edges come
// from explicit DependsOn and from Ref/GetAtt references between
// resources; references to parameters and pseudo parameters are not
// deployment edges.
func ResourceGraph(s *Stack) (*graph.Graph, error) {
	g := graph.New()
	t := s.Template
	for id := range t.Resources {
		g.AddNode(id)
	}
	for _, id := range t.ResourceIDs() {
		r := t.Resources[id]
		for _, dep := range r.DependsOn {
			if err := g.AddEdge(id, dep); err != nil {
				return nil, fmt.Errorf("%s: DependsOn: %w", s.Path(id), err)
			}
		}
		for _, ref := range cfn.References(r.Properties) {
			if _, isParam := t.Parameters[ref]; isParam {
				continue
			}
			if !g.Has(ref) {
				// Pseudo parameters such as AWS::Region.
				if isPseudo(ref) {
					continue
				}
				return nil, fmt.Errorf("%s: references unknown logical id %q", s.Path(id), ref)
			}
			if ref == id {
				return nil, fmt.Errorf("%s: references itself", s.Path(id))
			}
			if err := g.AddEdge(id, ref); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func isPseudo(id string) bool {
	return len(id) > 5 && id[:5] == "AWS::"
}

// applyTags merges the app tag set into every taggable resource.
// Tags already set on a resource win.
func (a *App) applyTags() {
	if len(a.tags) == 0 {
		return
	}
	keys := make([]string, 0, len(a.tags))
	for k := range a.tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, s := range a.stacks {
		for _, id := range s.Template.ResourceIDs() {
			r := s.Template.Resources[id]
			switch cfn.TagStyleOf(r.Type) {
			case cfn.TagsList:
				r.Properties["Tags"] = mergeListTags(r.Properties["Tags"], keys, a.tags)
			case cfn.TagsMap:
				r.Properties["Tags"] = mergeMapTags(r.Properties["Tags"], a.tags)
			}
		}
	}
}

func mergeListTags(existing any, keys []string, tags map[string]string) []any {
	have := map[string]bool{}
	var out []any
	for _, item := range cfn.List(existing) {
		if m, ok := item.(map[string]any); ok {
			if k, ok := m["Key"].(string); ok {
				have[k] = true
			}
		}
		out = append(out, item)
	}
	for _, k := range keys {
		if have[k] {
			continue
		}
		out = append(out, map[string]any{"Key": k, "Value": tags[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return tagKey(out[i]) < tagKey(out[j])
	})
	return out
}

func tagKey(v any) string {
	if m, ok := v.(map[string]any); ok {
		if k, ok := m["Key"].(string); ok {
			return k
		}
	}
	return ""
}

func mergeMapTags(existing any, tags map[string]string) map[string]any {
	out := map[string]any{}
	for k, v := range tags {
		out[k] = v
	}
	if m, ok := existing.(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
