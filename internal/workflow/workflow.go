// Package workflow decides what a completed item leads to: a follow-up item,
// a buff for some workers, or nothing.
//
// Resolve is pure. The scheduler applies the returned Outcome; nothing here
// touches the registry or the workers.
package workflow

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/crunch/internal/catalog"
	"github.com/roach88/crunch/internal/work"
)

// Outcome is the effect of one completion.
type Outcome struct {
	// Spawn is the follow-up kind to open, or "".
	Spawn work.Kind
	// Variant is carried over from the completed item to the follow-up.
	Variant string
	// Buff is granted to every name in Targets, or "".
	Buff work.BuffID
	// Targets lists the recipients of Buff in delivery order.
	Targets []string
	// Broadcast is true when Targets is the whole roster.
	Broadcast bool
}

// Terminal reports whether the outcome has no effect.
func (o Outcome) Terminal() bool {
	return o.Spawn == "" && o.Buff == ""
}

func (o Outcome) String() string {
	switch {
	case o.Spawn != "":
		return fmt.Sprintf("spawn %s/%s", o.Spawn, o.Variant)
	case o.Buff != "" && o.Broadcast:
		return fmt.Sprintf("buff %s to all (%d)", o.Buff, len(o.Targets))
	case o.Buff != "":
		return fmt.Sprintf("buff %s to %s", o.Buff, strings.Join(o.Targets, ","))
	default:
		return "terminal"
	}
}

// Resolve computes the outcome of item completing under tmpl. roster is the
// current worker list in roster order, used when the buff is broadcast.
func Resolve(tmpl catalog.Template, item *work.Item, roster []string) Outcome {
	then := tmpl.Then
	switch {
	case then.Spawn != "":
		return Outcome{Spawn: then.Spawn, Variant: item.Variant}
	case then.Buff != "":
		if then.BroadcastMin > 0 && len(item.Contributors) >= then.BroadcastMin {
			return Outcome{Buff: then.Buff, Targets: slices.Clone(roster), Broadcast: true}
		}
		return Outcome{Buff: then.Buff, Targets: slices.Clone(item.Contributors)}
	default:
		return Outcome{}
	}
}
