package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/crunch/internal/work"
)

//go:embed schema.cue
var schemaSrc []byte

//go:embed default.cue
var defaultSrc []byte

// DefaultSource returns the CUE text of the stock catalog.
func DefaultSource() []byte {
	return append([]byte(nil), defaultSrc...)
}

// Default builds the stock catalog.
func Default() (*Catalog, error) {
	return Parse(defaultSrc, "default.cue")
}

// LoadFile reads and builds a catalog from a CUE file. The file replaces the
// stock catalog entirely; it must define every kind.
func LoadFile(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(src, path)
}

// Parse compiles CUE source against the embedded schema and builds a catalog.
// Errors are *CatalogError carrying the source position when known.
func Parse(src []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	buffs, err := parseBuffs(v.LookupPath(cue.ParsePath("buffs")))
	if err != nil {
		return nil, err
	}
	templates, err := parseKinds(v.LookupPath(cue.ParsePath("kinds")))
	if err != nil {
		return nil, err
	}

	c, err := New(templates, buffs)
	if err != nil {
		var ce *CatalogError
		if errors.As(err, &ce) && !ce.Pos.IsValid() {
			ce.Pos = positionOf(v, ce.Field)
		}
		return nil, err
	}
	return c, nil
}

// positionOf returns the source position of field, or of its nearest
// existing ancestor.
func positionOf(v cue.Value, field string) token.Pos {
	for field != "" {
		fv := v.LookupPath(cue.ParsePath(field))
		if fv.Exists() {
			return fv.Pos()
		}
		i := strings.LastIndex(field, ".")
		if i < 0 {
			break
		}
		field = field[:i]
	}
	return v.Pos()
}

func parseKinds(v cue.Value) ([]Template, error) {
	if !v.Exists() {
		return nil, &CatalogError{Field: "kinds", Message: "kinds is required", Pos: v.Pos()}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var templates []Template
	for iter.Next() {
		kv := iter.Value()
		t := Template{Kind: work.Kind(iter.Label())}

		if t.TotalEffort, err = number(kv, "total_effort"); err != nil {
			return nil, err
		}
		if t.RatePerTick, err = number(kv, "effort_per_tick"); err != nil {
			return nil, err
		}
		prio, err := integer(kv, "priority")
		if err != nil {
			return nil, err
		}
		t.Priority = prio

		if t.Weights, err = parseWeights(kv.LookupPath(cue.ParsePath("weights"))); err != nil {
			return nil, err
		}
		if t.Then, err = parseTransition(kv.LookupPath(cue.ParsePath("then"))); err != nil {
			return nil, err
		}

		templates = append(templates, t)
	}
	return templates, nil
}

func parseWeights(v cue.Value) (work.Weights, error) {
	var (
		w   work.Weights
		err error
	)
	fields := []struct {
		name string
		dst  *float64
	}{
		{"experience", &w.Experience},
		{"rigor", &w.Rigor},
		{"skill", &w.Skill},
		{"fitness", &w.Fitness},
		{"energy", &w.Energy},
		{"focus", &w.Focus},
		{"stress", &w.Stress},
		{"divisor", &w.Divisor},
	}
	for _, f := range fields {
		if *f.dst, err = number(v, f.name); err != nil {
			return w, err
		}
	}
	return w, nil
}

func parseTransition(v cue.Value) (Transition, error) {
	var t Transition
	if !v.Exists() {
		return t, nil
	}

	if sv := v.LookupPath(cue.ParsePath("spawn")); sv.Exists() {
		s, err := sv.String()
		if err != nil {
			return t, formatCUEError(err)
		}
		t.Spawn = work.Kind(s)
	}
	if bv := v.LookupPath(cue.ParsePath("buff")); bv.Exists() {
		s, err := bv.String()
		if err != nil {
			return t, formatCUEError(err)
		}
		t.Buff = work.BuffID(s)
	}
	if nv := v.LookupPath(cue.ParsePath("broadcast_min")); nv.Exists() {
		n, err := integer(v, "broadcast_min")
		if err != nil {
			return t, err
		}
		t.BroadcastMin = n
	}
	return t, nil
}

func parseBuffs(v cue.Value) ([]work.Buff, error) {
	if !v.Exists() {
		return nil, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var buffs []work.Buff
	for iter.Next() {
		bv := iter.Value()
		b := work.Buff{ID: work.BuffID(iter.Label())}
		if b.Energy, err = number(bv, "energy"); err != nil {
			return nil, err
		}
		if b.Focus, err = number(bv, "focus"); err != nil {
			return nil, err
		}
		if b.Stress, err = number(bv, "stress"); err != nil {
			return nil, err
		}
		buffs = append(buffs, b)
	}
	return buffs, nil
}

func number(v cue.Value, field string) (float64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CatalogError{Field: fieldPath(v, field), Message: "is required", Pos: v.Pos()}
	}
	fv, _ = fv.Default()
	f, err := fv.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return f, nil
}

func integer(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CatalogError{Field: fieldPath(v, field), Message: "is required", Pos: v.Pos()}
	}
	fv, _ = fv.Default()
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

func fieldPath(v cue.Value, field string) string {
	if p := v.Path().String(); p != "" {
		return p + "." + field
	}
	return field
}
