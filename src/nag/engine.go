package nag

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sofmeright/imagefreight/src/config"
	"github.com/sofmeright/imagefreight/src/stack"
	"golang.org/x/sync/semaphore"
)

// Finding is one rule violation.
type Finding struct {
	RuleID     string
	Level      Level
	Stack      string
	LogicalID  string
	Path       string
	Message    string
	Suppressed bool
	Reason     string
}

// Engine evaluates rules against stacks.
type Engine struct {
	Rules           []Rule
	MinReasonLength int
	Verbose         bool
}

// NewEngine creates an engine with every registered rule except the
// ones disabled in cfg.
func NewEngine(cfg config.NagConfig, verbose bool) (*Engine, error) {
	disabled := make(map[string]bool, len(cfg.Disabled))
	for _, id := range cfg.Disabled {
		disabled[id] = true
	}

	var rules []Rule
	for _, id := range All() {
		if disabled[id] {
			continue
		}
		r, err := Get(id)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("no nag rules selected")
	}

	return &Engine{
		Rules:           rules,
		MinReasonLength: cfg.MinReasonLength,
		Verbose:         verbose,
	}, nil
}

// Run checks every resource of every stack and returns the findings
// sorted by stack, path and rule.
func (e *Engine) Run(ctx context.Context, stacks []*stack.Stack) ([]Finding, error) {
	var (
		mu       sync.Mutex
		findings []Finding
		errs     []error
		wg       sync.WaitGroup
	)

	sem := semaphore.NewWeighted(int64(runtime.NumCPU() * 2))

	for _, st := range stacks {
		for _, id := range st.Template.ResourceIDs() {
			res := Resource{Stack: st, LogicalID: id, Resource: st.Template.Resources[id]}
			suppressions := Suppressions(res.Resource)

			if bad := e.checkSuppressions(res, suppressions); len(bad) > 0 {
				mu.Lock()
				findings = append(findings, bad...)
				mu.Unlock()
			}

			for _, rule := range e.Rules {
				if err := sem.Acquire(ctx, 1); err != nil {
					wg.Wait()
					return nil, err
				}
				wg.Add(1)
				go func(rule Rule, res Resource) {
					defer wg.Done()
					defer sem.Release(1)

					outcome, err := rule.Check(ctx, res)
					if err != nil {
						mu.Lock()
						errs = append(errs, fmt.Errorf("%s: %s: %w", rule.ID(), res.Path(), err))
						mu.Unlock()
						return
					}
					if outcome != NonCompliant {
						return
					}

					f := Finding{
						RuleID:    rule.ID(),
						Level:     rule.Level(),
						Stack:     res.Stack.Name,
						LogicalID: res.LogicalID,
						Path:      res.Path(),
						Message:   rule.Description(),
					}
					if s, ok := e.justified(rule.ID(), suppressions); ok {
						f.Suppressed = true
						f.Reason = s.Reason
					}

					mu.Lock()
					findings = append(findings, f)
					mu.Unlock()
				}(rule, res)
			}
		}
	}

	wg.Wait()

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Stack != b.Stack {
			return a.Stack < b.Stack
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		return a.Message < b.Message
	})

	if e.Verbose {
		fmt.Fprintf(os.Stderr, "nag: %d rules, %d findings\n", len(e.Rules), len(findings))
	}

	if len(errs) > 0 {
		return findings, fmt.Errorf("%d rule errors (first: %w)", len(errs), errs[0])
	}
	return findings, nil
}

// justified returns the suppression for ruleID when its reason is long
// enough to count.
func (e *Engine) justified(ruleID string, suppressions []Suppression) (Suppression, bool) {
	for _, s := range suppressions {
		if s.ID == ruleID && len(strings.TrimSpace(s.Reason)) >= e.MinReasonLength {
			return s, true
		}
	}
	return Suppression{}, false
}

// checkSuppressions reports suppressions whose reason is too short.
// Such a suppression does not silence its rule.
func (e *Engine) checkSuppressions(res Resource, suppressions []Suppression) []Finding {
	var out []Finding
	for _, s := range suppressions {
		if len(strings.TrimSpace(s.Reason)) >= e.MinReasonLength {
			continue
		}
		out = append(out, Finding{
			RuleID:    unjustifiedID,
			Level:     LevelError,
			Stack:     res.Stack.Name,
			LogicalID: res.LogicalID,
			Path:      res.Path(),
			Message: fmt.Sprintf("suppression of %s needs a reason of at least %d characters",
				s.ID, e.MinReasonLength),
		})
	}
	return out
}

// Summary tallies findings.
type Summary struct {
	Errors     int
	Warnings   int
	Suppressed int
}

// Summarize counts unsuppressed errors and warnings and suppressed
// findings.
func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch {
		case f.Suppressed:
			s.Suppressed++
		case f.Level == LevelError:
			s.Errors++
		default:
			s.Warnings++
		}
	}
	return s
}
