package catalog

import (
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/crunch/internal/work"
)

// Template holds the default parameters for one kind of work.
type Template struct {
	Kind        work.Kind    `json:"kind"`
	TotalEffort float64      `json:"total_effort"`
	RatePerTick float64      `json:"effort_per_tick"`
	Priority    int          `json:"priority"`
	Weights     work.Weights `json:"weights"`
	Then        Transition   `json:"then"`
}

// Transition is what happens when an item of a kind completes. At most one
// of Spawn and Buff is set; neither means the kind is terminal.
type Transition struct {
	// Spawn is the follow-up kind to open.
	Spawn work.Kind `json:"spawn,omitempty"`
	// Buff is granted to the item's contributors.
	Buff work.BuffID `json:"buff,omitempty"`
	// BroadcastMin is the contributor count at which Buff goes to every
	// worker instead of only the contributors. Zero disables broadcast.
	BroadcastMin int `json:"broadcast_min,omitempty"`
}

// Terminal reports whether the transition does nothing.
func (t Transition) Terminal() bool {
	return t.Spawn == "" && t.Buff == ""
}

// Catalog is an immutable, validated set of templates and buffs.
type Catalog struct {
	templates map[work.Kind]Template
	buffs     map[work.BuffID]work.Buff
}

// New validates the templates and buffs and builds a Catalog.
// Every declared work.Kind must appear exactly once.
func New(templates []Template, buffs []work.Buff) (*Catalog, error) {
	c := &Catalog{
		templates: make(map[work.Kind]Template, len(templates)),
		buffs:     make(map[work.BuffID]work.Buff, len(buffs)),
	}

	for _, b := range buffs {
		if b.ID == "" {
			return nil, &CatalogError{Field: "buffs", Message: "buff id is required"}
		}
		if _, dup := c.buffs[b.ID]; dup {
			return nil, &CatalogError{Field: "buffs." + string(b.ID), Message: "duplicate buff"}
		}
		c.buffs[b.ID] = b
	}

	for _, t := range templates {
		field := "kinds." + string(t.Kind)
		if !t.Kind.Valid() {
			return nil, &CatalogError{Field: field, Message: "unknown work kind"}
		}
		if _, dup := c.templates[t.Kind]; dup {
			return nil, &CatalogError{Field: field, Message: "duplicate definition"}
		}
		if err := validateTemplate(t); err != nil {
			return nil, err
		}
		c.templates[t.Kind] = t
	}

	for _, k := range work.Kinds() {
		if _, ok := c.templates[k]; !ok {
			return nil, &CatalogError{Field: "kinds." + string(k), Message: "missing definition"}
		}
	}

	// Transitions are checked last so they can reference any kind or buff.
	for _, k := range work.Kinds() {
		if err := c.validateTransition(c.templates[k]); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func validateTemplate(t Template) error {
	field := "kinds." + string(t.Kind)
	if t.TotalEffort <= 0 {
		return &CatalogError{Field: field + ".total_effort", Message: fmt.Sprintf("must be > 0, got %v", t.TotalEffort)}
	}
	if t.RatePerTick <= 0 {
		return &CatalogError{Field: field + ".effort_per_tick", Message: fmt.Sprintf("must be > 0, got %v", t.RatePerTick)}
	}
	if t.Priority < 0 {
		return &CatalogError{Field: field + ".priority", Message: fmt.Sprintf("must be >= 0, got %d", t.Priority)}
	}
	if !t.Weights.Finite() {
		return &CatalogError{Field: field + ".weights", Message: "weights must be finite with a positive divisor"}
	}
	return nil
}

func (c *Catalog) validateTransition(t Template) error {
	field := "kinds." + string(t.Kind) + ".then"
	then := t.Then
	switch {
	case then.Spawn != "" && then.Buff != "":
		return &CatalogError{Field: field, Message: "spawn and buff are mutually exclusive"}
	case then.Spawn != "":
		if _, ok := c.templates[then.Spawn]; !ok {
			return &CatalogError{Field: field + ".spawn", Message: fmt.Sprintf("unknown work kind %q", then.Spawn)}
		}
		if then.BroadcastMin != 0 {
			return &CatalogError{Field: field + ".broadcast_min", Message: "only valid with buff"}
		}
	case then.Buff != "":
		if _, ok := c.buffs[then.Buff]; !ok {
			return &CatalogError{Field: field + ".buff", Message: fmt.Sprintf("unknown buff %q", then.Buff)}
		}
		if then.BroadcastMin < 0 {
			return &CatalogError{Field: field + ".broadcast_min", Message: "must be >= 0"}
		}
	case then.BroadcastMin != 0:
		return &CatalogError{Field: field + ".broadcast_min", Message: "only valid with buff"}
	}
	return nil
}

// DefaultsFor returns the template for kind.
//
// Construction guarantees every declared kind is present, so a miss means
// the caller invented a Kind value; that is a programming error and panics.
func (c *Catalog) DefaultsFor(kind work.Kind) Template {
	t, ok := c.templates[kind]
	if !ok {
		panic(fmt.Sprintf("catalog: no definition for kind %q", kind))
	}
	return t
}

// Priority returns the dispatch rank of kind. Lower ranks go first.
func (c *Catalog) Priority(kind work.Kind) int {
	return c.DefaultsFor(kind).Priority
}

// NewItem opens a fresh item of kind with the template's parameters.
func (c *Catalog) NewItem(id work.ItemID, kind work.Kind, variant string) *work.Item {
	t := c.DefaultsFor(kind)
	return &work.Item{
		ID:           id,
		Kind:         kind,
		Variant:      variant,
		TotalEffort:  t.TotalEffort,
		RatePerTick:  t.RatePerTick,
		Weights:      t.Weights,
		Contributors: []string{},
	}
}

// Buff returns the buff named id.
func (c *Catalog) Buff(id work.BuffID) (work.Buff, bool) {
	b, ok := c.buffs[id]
	return b, ok
}

// Templates returns every template in work.Kinds order.
func (c *Catalog) Templates() []Template {
	out := make([]Template, 0, len(c.templates))
	for _, k := range work.Kinds() {
		out = append(out, c.templates[k])
	}
	return out
}

// Buffs returns every buff sorted by id.
func (c *Catalog) Buffs() []work.Buff {
	out := make([]work.Buff, 0, len(c.buffs))
	for _, b := range c.buffs {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Chain follows spawn transitions from kind and returns the kinds visited,
// stopping at a terminal kind, a buff transition, or the first repeat.
func (c *Catalog) Chain(kind work.Kind) []work.Kind {
	chain := []work.Kind{kind}
	for {
		next := c.DefaultsFor(chain[len(chain)-1]).Then.Spawn
		if next == "" || slices.Contains(chain, next) {
			return chain
		}
		chain = append(chain, next)
	}
}
