package lint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sofmeright/imagefreight/src/artifact"
	"github.com/sofmeright/imagefreight/src/config"
	"golang.org/x/sync/semaphore"
)

// Engine orchestrates lint modules across the artifact tree.
type Engine struct {
	Config  config.LintConfig
	Project *Project
	Modules []Module
	Cache   *Cache
	Verbose bool

	CacheHits   atomic.Int64
	CacheMisses atomic.Int64
}

// NewEngine creates a lint engine with the selected modules bound to p.
func NewEngine(p *Project, moduleNames []string, skipNames []string, verbose bool, cache *Cache) (*Engine, error) {
	if p == nil || p.Config == nil {
		return nil, fmt.Errorf("lint: no project")
	}
	cfg := p.Config.Lint

	skipSet := make(map[string]bool, len(skipNames))
	for _, name := range skipNames {
		skipSet[name] = true
	}

	names := moduleNames
	explicit := len(names) > 0
	if !explicit {
		names = All()
	}

	var modules []Module
	for _, name := range names {
		if skipSet[name] {
			continue
		}
		m, err := Get(name)
		if err != nil {
			return nil, err
		}
		if !explicit {
			if mc, ok := cfg.Modules[name]; ok && mc.Enabled != nil {
				if !*mc.Enabled {
					continue
				}
			} else if !m.DefaultEnabled() {
				continue
			}
		}
		if err := configureModule(m, cfg, name); err != nil {
			return nil, err
		}
		if pm, ok := m.(ProjectModule); ok {
			if err := pm.Bind(p); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
		modules = append(modules, m)
	}

	if len(modules) == 0 {
		return nil, fmt.Errorf("no lint modules selected")
	}

	return &Engine{
		Config:  cfg,
		Project: p,
		Modules: modules,
		Cache:   cache,
		Verbose: verbose,
	}, nil
}

// ModuleStats holds per-module scan statistics.
type ModuleStats struct {
	Name     string
	Files    int
	Cached   int
	Findings int
	Critical int
	Warnings int
}

func (s *ModuleStats) add(results []Finding) {
	for _, r := range results {
		s.Findings++
		switch r.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityWarning:
			s.Warnings++
		}
	}
}

// Run executes all modules against the given files and returns findings.
func (e *Engine) Run(ctx context.Context, files []FileInfo) ([]Finding, error) {
	findings, _, err := e.RunWithStats(ctx, files)
	return findings, err
}

// RunWithStats checks every file with every module, at most two checks
// per CPU at a time, and returns the sorted findings with per-module
// counters. Module errors do not stop the run; they are joined into the
// returned error.
func (e *Engine) RunWithStats(ctx context.Context, files []FileInfo) ([]Finding, []ModuleStats, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		findings []Finding
		errs     []error
	)
	stats := make([]ModuleStats, len(e.Modules))
	for i, m := range e.Modules {
		stats[i].Name = m.Name()
	}
	caching := e.Cache != nil && e.Cache.Enabled
	sem := semaphore.NewWeighted(int64(runtime.NumCPU() * 2))

queue:
	for _, f := range files {
		if artifact.Excluded(e.Config.Exclude, f.Path) {
			continue
		}
		var content []byte
		if caching {
			content, _ = os.ReadFile(f.AbsPath)
		}
		for i, m := range e.Modules {
			if e.isModuleExcluded(m.Name(), f.Path) {
				continue
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				break queue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				results, cached, err := e.check(ctx, m, f, content)

				mu.Lock()
				defer mu.Unlock()
				stats[i].Files++
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %s: %w", m.Name(), f.Path, err))
					return
				}
				if cached {
					stats[i].Cached++
				}
				stats[i].add(results)
				findings = append(findings, results...)
			}()
		}
	}
	wg.Wait()
	SortFindings(findings)

	if e.Verbose && caching {
		fmt.Fprintf(os.Stderr, "lint: cache %d hits, %d misses\n", e.CacheHits.Load(), e.CacheMisses.Load())
	}
	if len(errs) > 0 {
		return findings, stats, fmt.Errorf("%d module errors: %w", len(errs), errors.Join(errs...))
	}
	return findings, stats, nil
}

// check runs m on f through the result cache. content is nil when
// caching is off or the file could not be read.
func (e *Engine) check(ctx context.Context, m Module, f FileInfo, content []byte) ([]Finding, bool, error) {
	ttl, cacheable := e.cachePolicy(m)
	if content == nil || !cacheable {
		results, err := m.Check(ctx, f)
		return results, false, err
	}

	key := e.Cache.Key(content, f.Path, m.Name(), e.moduleConfigJSON(m.Name()))
	if cached, ok := e.Cache.Get(key, ttl); ok {
		e.CacheHits.Add(1)
		return cached, true, nil
	}
	e.CacheMisses.Add(1)

	results, err := m.Check(ctx, f)
	if err != nil {
		return nil, false, err
	}
	// Clean passes are cached too.
	if err := e.Cache.Put(key, results); err != nil && e.Verbose {
		fmt.Fprintf(os.Stderr, "cache: write failed for %s/%s: %v\n", m.Name(), f.Path, err)
	}
	return results, false, nil
}

// cachePolicy resolves how long a module's results stay valid. Modules
// without a TTL cache forever (maxAge 0); a negative TTL opts out.
func (e *Engine) cachePolicy(m Module) (time.Duration, bool) {
	tm, ok := m.(CacheTTLModule)
	if !ok {
		return 0, true
	}
	ttl := tm.CacheTTL()
	if ttl < 0 {
		return 0, false
	}
	return ttl, true
}

// CollectFiles walks the project's artifact tree, honoring the lint
// exclude patterns.
func (e *Engine) CollectFiles() ([]FileInfo, error) {
	return artifact.Collect(e.Project.Root, e.Config.Exclude)
}

// ModuleNames returns the names of all active modules in this engine.
func (e *Engine) ModuleNames() []string {
	names := make([]string, len(e.Modules))
	for i, m := range e.Modules {
		names[i] = m.Name()
	}
	return names
}

// isModuleExcluded checks per-module exclude patterns from config.
// Engine-wide excludes keep files from being queued at all; module
// excludes stop only that module.
func (e *Engine) isModuleExcluded(moduleName, path string) bool {
	mc, ok := e.Config.Modules[moduleName]
	if !ok || len(mc.Exclude) == 0 {
		return false
	}
	return artifact.Excluded(mc.Exclude, path)
}

// configureModule passes options to modules that implement ConfigurableModule.
func configureModule(m Module, cfg config.LintConfig, name string) error {
	cm, ok := m.(ConfigurableModule)
	if !ok {
		return nil
	}
	mc, exists := cfg.Modules[name]
	if !exists || mc.Options == nil {
		return cm.Configure(nil)
	}
	return cm.Configure(mc.Options)
}

func (e *Engine) moduleConfigJSON(name string) string {
	mc, ok := e.Config.Modules[name]
	if !ok || mc.Options == nil {
		return "{}"
	}
	data, err := json.Marshal(mc.Options)
	if err != nil {
		return "{}"
	}
	return string(data)
}
