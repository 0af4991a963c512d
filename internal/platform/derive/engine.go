// Package derive recomputes derived form fields (fees, totals) when the fields
// they depend on change.
package derive

import (
	"fmt"
	"slices"
	"strings"

	"github.com/practice/practice/internal/platform/form"
)

// Rule computes Outputs from the snapshot whenever one of its Triggers
// changes. Compute returns values keyed by top-level field key.
type Rule struct {
	Name     string
	Triggers []string
	Outputs  []string
	Compute  func(form.Snapshot) map[string]any
}

// Engine holds the rules of a form in declaration order.
type Engine struct {
	rules []Rule
}

// NewEngine validates the rules: names are unique and every rule declares its
// triggers and outputs.
func NewEngine(rules ...Rule) (*Engine, error) {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("derive: rule name is required")
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("derive: duplicate rule %q", r.Name)
		}
		seen[r.Name] = true
		if len(r.Triggers) == 0 || len(r.Outputs) == 0 || r.Compute == nil {
			return nil, fmt.Errorf("derive: rule %q needs triggers, outputs and compute", r.Name)
		}
	}
	return &Engine{rules: rules}, nil
}

// MustEngine is NewEngine for statically declared rules.
func MustEngine(rules ...Rule) *Engine {
	e, err := NewEngine(rules...)
	if err != nil {
		panic(err)
	}
	return e
}

// Rules returns the rule names in declaration order.
func (e *Engine) Rules() []string {
	if e == nil {
		return nil
	}
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name
	}
	return names
}

// Outputs returns every key written by some rule, in declaration order.
func (e *Engine) Outputs() []string {
	if e == nil {
		return nil
	}
	var out []string
	for _, r := range e.rules {
		for _, o := range r.Outputs {
			if !slices.Contains(out, o) {
				out = append(out, o)
			}
		}
	}
	return out
}

// IsOutput reports whether key is written by some rule.
func (e *Engine) IsOutput(key string) bool {
	if e == nil {
		return false
	}
	top := topKey(key)
	for _, r := range e.rules {
		if slices.Contains(r.Outputs, top) {
			return true
		}
	}
	return false
}

// OnFieldChange runs every rule triggered by key, then every rule triggered by
// the outputs written, breadth first. Each rule runs at most once per change.
// It returns the keys written, in order.
func (e *Engine) OnFieldChange(s form.Snapshot, key string) []string {
	if e == nil {
		return nil
	}
	ran := make(map[string]bool, len(e.rules))
	var written []string
	queue := []string{topKey(key)}
	for len(queue) > 0 {
		changed := queue[0]
		queue = queue[1:]
		for _, r := range e.rules {
			if ran[r.Name] || !slices.Contains(r.Triggers, changed) {
				continue
			}
			ran[r.Name] = true
			for _, out := range e.apply(s, r) {
				written = append(written, out)
				queue = append(queue, out)
			}
		}
	}
	return written
}

// Recompute runs every rule once in declaration order.
func (e *Engine) Recompute(s form.Snapshot) []string {
	if e == nil {
		return nil
	}
	var written []string
	for _, r := range e.rules {
		written = append(written, e.apply(s, r)...)
	}
	return written
}

func (e *Engine) apply(s form.Snapshot, r Rule) []string {
	values := r.Compute(s)
	var written []string
	for _, out := range r.Outputs {
		v, ok := values[out]
		if !ok {
			continue
		}
		_ = s.Put(out, v)
		written = append(written, out)
	}
	return written
}

func topKey(key string) string {
	top, _, _ := strings.Cut(key, ".")
	return top
}
