// Package catalog is a named set of constructors that plugins add
// themselves to from init. Lint modules and nag rules are each kept in one.
package catalog

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog maps names to constructors of T.
type Catalog[T any] struct {
	kind  string
	mu    sync.RWMutex
	ctors map[string]func() T
}

// New returns an empty catalog. kind names the entries in messages, as
// in "lint module: unknown yaml".
func New[T any](kind string) *Catalog[T] {
	return &Catalog[T]{kind: kind, ctors: map[string]func() T{}}
}

// Register adds ctor under name. Registering a name twice panics.
func (c *Catalog[T]) Register(name string, ctor func() T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.ctors[name]; dup {
		panic(fmt.Sprintf("%s: duplicate registration: %s", c.kind, name))
	}
	c.ctors[name] = ctor
}

// Get returns a fresh instance of name.
func (c *Catalog[T]) Get(name string) (T, error) {
	c.mu.RLock()
	ctor, ok := c.ctors[name]
	c.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: unknown %s", c.kind, name)
	}
	return ctor(), nil
}

// Names returns the registered names, sorted.
func (c *Catalog[T]) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.ctors))
	for n := range c.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
