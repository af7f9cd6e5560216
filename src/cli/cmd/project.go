package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sofmeright/imagefreight/src/artifact"
	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/compose"
	"github.com/sofmeright/imagefreight/src/config"
	"github.com/sofmeright/imagefreight/src/lint"
	"github.com/sofmeright/imagefreight/src/stack"
)

// lockPath returns the lock file location: lint.lock_file relative to
// the parent of the artifact tree.
func lockPath(c *config.Config) string {
	if filepath.IsAbs(c.Lint.LockFile) {
		return c.Lint.LockFile
	}
	return filepath.Join(filepath.Dir(filepath.Clean(c.Store.Source)), c.Lint.LockFile)
}

// assemble synthesizes every stack in memory, validated and ordered.
func assemble(ctx context.Context, c *config.Config, variants []string, format cfn.Format) (*stack.App, *stack.Assembly, error) {
	warnings, err := config.Validate(c)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if err != nil {
		return nil, nil, err
	}
	vpcs, err := compose.Providers(c)
	if err != nil {
		return nil, nil, err
	}
	app, err := compose.App(ctx, c, vpcs, compose.Options{Variants: variants, Verbose: verbose})
	if err != nil {
		return nil, nil, err
	}
	asm, err := app.Assemble(format)
	if err != nil {
		return nil, nil, err
	}
	return app, asm, nil
}

// loadProject reads the lock file and, unless full is set, the git delta
// of the artifact tree.
func loadProject(ctx context.Context, c *config.Config, full bool) (*lint.Project, error) {
	lock, err := artifact.LoadLock(lockPath(c))
	if err != nil {
		return nil, err
	}
	p := &lint.Project{Config: c, Root: c.Store.Source, Lock: lock}
	if full {
		return p, nil
	}

	delta := &lint.Delta{Dir: c.Store.Source, TargetBranch: c.Lint.TargetBranch, Verbose: verbose}
	changed, err := delta.ChangedFiles(ctx)
	if err != nil || changed == nil {
		if err != nil && verbose {
			fmt.Fprintf(os.Stderr, "delta: %v, falling back to full scan\n", err)
		}
		return p, nil
	}
	if rel, ok := delta.Rel(c.Store.Source); ok {
		p.Changed = lint.Under(changed, rel)
	}
	if rel, ok := delta.Rel(lockPath(c)); ok {
		p.LockChanged = changed[rel]
	}
	p.Branch = delta.Branch()
	return p, nil
}
