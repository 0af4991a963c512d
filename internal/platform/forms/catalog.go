// Package forms is the catalog of practice forms available to sessions.
package forms

import (
	"fmt"
	"sort"
	"sync"

	"github.com/practice/practice/internal/platform/derive"
	"github.com/practice/practice/internal/platform/form"
)

// Entry couples a form definition with its derived-value rules.
type Entry struct {
	Definition *form.Definition
	Derive     *derive.Engine
	// Label names one record of the resource in notices ("Patient").
	Label string
	// Invalidates lists the lookup lists refreshed after a successful
	// submission. The form's own resource is always refreshed.
	Invalidates []string
}

// ID returns the form id.
func (e *Entry) ID() string { return e.Definition.ID }

// Resource returns the persistence resource the form submits to.
func (e *Entry) Resource() string { return e.Definition.Resource }

// Lists returns every lookup list to refresh after submission.
func (e *Entry) Lists() []string {
	out := []string{e.Definition.Resource}
	for _, l := range e.Invalidates {
		if l != e.Definition.Resource {
			out = append(out, l)
		}
	}
	return out
}

// Catalog is a concurrency-safe registry of form entries.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]*Entry)}
}

// Register adds an entry. Derived rule outputs must be declared fields.
func (c *Catalog) Register(e *Entry) error {
	if e == nil || e.Definition == nil {
		return fmt.Errorf("forms: entry has no definition")
	}
	for _, name := range e.Derive.Outputs() {
		if _, ok := e.Definition.Field(name); !ok {
			return fmt.Errorf("forms: %s derives unknown field %q", e.ID(), name)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.entries[e.ID()]; dup {
		return fmt.Errorf("forms: duplicate form %q", e.ID())
	}
	c.entries[e.ID()] = e
	return nil
}

// Get returns the entry for id.
func (c *Catalog) Get(id string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// List returns every entry sorted by id.
func (c *Catalog) List() []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
