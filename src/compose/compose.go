// Package compose assembles the full set of stacks from configuration:
// the storage stack, one pipeline stack per variant, the edges between
// them and the shared tags.
package compose

import (
	"context"
	"fmt"
	"os"

	"github.com/sofmeright/imagefreight/src/config"
	"github.com/sofmeright/imagefreight/src/imagepipeline"
	"github.com/sofmeright/imagefreight/src/lookup"
	"github.com/sofmeright/imagefreight/src/stack"
	"github.com/sofmeright/imagefreight/src/storage"
)

// Providers returns the VPC lookup chain for cfg: the inline vpc block
// first, then the context cache file.
func Providers(cfg *config.Config) (lookup.VpcProvider, error) {
	var chain lookup.Chain
	if cfg.Vpc != nil && cfg.Vpc.ID != "" {
		chain = append(chain, lookup.Static{Vpcs: []lookup.Vpc{inlineVpc(cfg.Vpc)}})
	}
	if cfg.ContextFile != "" {
		cache, err := lookup.OpenContext(cfg.ContextFile)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cache)
	}
	return chain, nil
}

func inlineVpc(v *config.VpcConfig) lookup.Vpc {
	return lookup.NewVpc(v.ID, v.CidrBlock, v.Subnets)
}

// RecordContext writes the inline vpc block into the context file so
// runs without the block resolve the same network. It reports whether
// the file changed; without an inline block or a context file it does
// nothing.
func RecordContext(cfg *config.Config) (bool, error) {
	if cfg.Vpc == nil || cfg.Vpc.ID == "" || cfg.ContextFile == "" {
		return false, nil
	}
	cache, err := lookup.OpenContext(cfg.ContextFile)
	if err != nil {
		return false, err
	}
	v := inlineVpc(cfg.Vpc)
	changed, err := cache.Record(lookup.Query{Account: cfg.Account, Region: cfg.Region, VpcID: v.ID}, &v)
	if err != nil || !changed {
		return false, err
	}
	if err := cache.Save(); err != nil {
		return false, err
	}
	return true, nil
}

// Options control composition.
type Options struct {
	// Variants restricts the pipelines built to these IDs. Empty means all.
	Variants []string
	Verbose  bool
}

// App builds every stack declared by cfg. Pipeline stacks depend on the
// storage stack because they read the registry entry it publishes.
func App(ctx context.Context, cfg *config.Config, vpcs lookup.VpcProvider, opts Options) (*stack.App, error) {
	app := stack.NewApp()

	store, err := storage.Build(app, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	want := map[string]bool{}
	for _, id := range opts.Variants {
		if cfg.Variant(id) == nil {
			return nil, fmt.Errorf("unknown variant %q", id)
		}
		want[id] = true
	}

	for _, v := range cfg.Variants {
		if len(want) > 0 && !want[v.ID] {
			continue
		}
		s, err := imagepipeline.Build(ctx, app, v, cfg, vpcs)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.ID, err)
		}
		s.AddDependency(store)
		if opts.Verbose {
			fmt.Fprintf(os.Stderr, "compose: %s → %s (%d components)\n", v.ID, s.Name, len(v.Components))
		}
	}

	for k, v := range cfg.ResourceTags {
		app.Tag(k, v)
	}
	return app, nil
}
