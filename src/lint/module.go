package lint

import (
	"context"
	"time"

	"github.com/sofmeright/imagefreight/src/catalog"
)

// Module is the interface every lint check implements.
type Module interface {
	Name() string
	Check(ctx context.Context, file FileInfo) ([]Finding, error)
	DefaultEnabled() bool
	AutoDetect() []string // glob patterns that trigger auto-enable
}

// ConfigurableModule accepts per-module options from config.
// Configure is called with nil when no options are set.
type ConfigurableModule interface {
	Module
	Configure(opts map[string]any) error
}

// ProjectModule needs the project around the file: the configured
// variants, the lock file, the git delta.
type ProjectModule interface {
	Module
	Bind(p *Project) error
}

// CacheTTLModule bounds how long cached results stay valid. A negative
// TTL disables caching for the module.
type CacheTTLModule interface {
	Module
	CacheTTL() time.Duration
}

var registry = catalog.New[Module]("lint module")

// Register adds a module constructor. Called from init() in each module
// file.
func Register(name string, constructor func() Module) {
	registry.Register(name, constructor)
}

// Get returns a new instance of the named module.
func Get(name string) (Module, error) {
	return registry.Get(name)
}

// All returns the sorted names of all registered modules.
func All() []string {
	return registry.Names()
}
