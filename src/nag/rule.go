// Package nag checks synthesized templates against policy rules and
// enforces that every accepted violation carries a written reason.
package nag

import (
	"context"
	"fmt"

	"github.com/sofmeright/imagefreight/src/catalog"
	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/stack"
)

// Level indicates how serious a violation is.
type Level int

const (
	LevelWarning Level = iota
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Outcome is a rule's verdict on one resource.
type Outcome int

const (
	NotApplicable Outcome = iota
	Compliant
	NonCompliant
)

// Resource is the view a rule gets of one declared resource.
type Resource struct {
	Stack     *stack.Stack
	LogicalID string
	*cfn.Resource
}

// Path returns the construct path of the resource.
func (r Resource) Path() string {
	return r.Stack.Path(r.LogicalID)
}

// Template returns the template the resource belongs to.
func (r Resource) Template() *cfn.Template {
	return r.Stack.Template
}

// Rule is the interface every policy check implements.
type Rule interface {
	ID() string
	Level() Level
	Description() string
	Check(ctx context.Context, r Resource) (Outcome, error)
}

var registry = catalog.New[Rule]("nag rule")

// Register adds a rule constructor. Called from init() in each rule file.
func Register(id string, constructor func() Rule) {
	registry.Register(id, constructor)
}

// Get returns a new instance of the rule with id.
func Get(id string) (Rule, error) {
	return registry.Get(id)
}

// All returns the sorted IDs of all registered rules.
func All() []string {
	return registry.Names()
}
