package stack

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sofmeright/imagefreight/src/cfn"
)

const (
	manifestVersion = "36.0.0"
	manifestFile    = "manifest.json"
)

// Assembly is the synthesized, ordered form of an app.
type Assembly struct {
	Stacks []*Stack
	Format cfn.Format
}

// Manifest is written as manifest.json next to the templates.
type Manifest struct {
	Version string          `json:"version"`
	Stacks  []ManifestStack `json:"stacks"`
}

// ManifestStack describes one stack in deployment order.
type ManifestStack struct {
	Name         string            `json:"name"`
	Template     string            `json:"templateFile"`
	Environment  string            `json:"environment"`
	Dependencies []string          `json:"dependencies,omitempty"`
	Assets       []Asset           `json:"assets,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// Assemble applies tags, validates resource and stack edges and orders
// the stacks so every stack follows the stacks it depends on.
func (a *App) Assemble(format cfn.Format) (*Assembly, error) {
	a.applyTags()

	for _, s := range a.stacks {
		g, err := ResourceGraph(s)
		if err != nil {
			return nil, err
		}
		if _, err := g.Sort(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
	}

	g, err := a.StackGraph()
	if err != nil {
		return nil, err
	}
	order, err := g.Sort()
	if err != nil {
		return nil, err
	}

	asm := &Assembly{Format: format}
	for _, name := range order {
		asm.Stacks = append(asm.Stacks, a.byName[name])
	}
	return asm, nil
}

// TemplateFile returns the file name of a stack's template.
func (asm *Assembly) TemplateFile(s *Stack) string {
	return s.Name + ".template" + asm.Format.Ext()
}

// Manifest builds the assembly manifest.
func (asm *Assembly) Manifest(tags map[string]string) Manifest {
	m := Manifest{Version: manifestVersion}
	for _, s := range asm.Stacks {
		m.Stacks = append(m.Stacks, ManifestStack{
			Name:         s.Name,
			Template:     asm.TemplateFile(s),
			Environment:  s.Env.String(),
			Dependencies: s.Dependencies(),
			Assets:       s.Assets,
			Tags:         tags,
		})
	}
	return m
}

// Write emits every template plus manifest.json into dir. Everything is
// rendered into a staging dir inside dir before any file is moved, so a
// failed render leaves the previous assembly untouched. Files in dir that
// the assembly does not own are never removed; templates listed by the
// previous manifest that are no longer produced are.
func (asm *Assembly) Write(dir string, tags map[string]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	tmp, err := os.MkdirTemp(dir, ".synth-*")
	if err != nil {
		return fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	var names []string
	for _, s := range asm.Stacks {
		data, err := s.Template.Marshal(asm.Format)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		name := asm.TemplateFile(s)
		if err := os.WriteFile(filepath.Join(tmp, name), data, 0o644); err != nil {
			return fmt.Errorf("writing %s template: %w", s.Name, err)
		}
		names = append(names, name)
	}

	manifest, err := json.MarshalIndent(asm.Manifest(tags), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, manifestFile), append(manifest, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	stale := previousTemplates(dir)

	// The manifest goes last so readers never see it ahead of its templates.
	for _, name := range append(names, manifestFile) {
		if err := os.Rename(filepath.Join(tmp, name), filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("moving %s into %s: %w", name, dir, err)
		}
	}

	for _, name := range stale {
		if slices.Contains(names, name) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing stale %s: %w", name, err)
		}
	}
	return nil
}

// previousTemplates lists the template files named by the manifest
// already in dir. A missing or unreadable manifest yields nothing.
func previousTemplates(dir string) []string {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	var out []string
	for _, s := range m.Stacks {
		name := filepath.Base(s.Template)
		if strings.Contains(name, ".template.") {
			out = append(out, name)
		}
	}
	return out
}
