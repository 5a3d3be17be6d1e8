package harness

import (
	"github.com/roach88/crunch/internal/catalog"
	"github.com/roach88/crunch/internal/scheduler"
	"github.com/roach88/crunch/internal/work"
)

// Trace event types.
const (
	EventJoin     = "join"
	EventOpen     = "open"
	EventComplete = "complete"
)

// TraceEvent is one observable scheduler event. Only integers and strings
// are recorded so traces compare exactly across platforms.
type TraceEvent struct {
	Type         string      `json:"type"`
	Seq          int64       `json:"seq"`
	Tick         uint64      `json:"tick"`
	Worker       string      `json:"worker,omitempty"`
	ID           work.ItemID `json:"id,omitempty"`
	Kind         work.Kind   `json:"kind,omitempty"`
	Variant      string      `json:"variant,omitempty"`
	Source       string      `json:"source,omitempty"`
	Contributors []string    `json:"contributors,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every submission was accepted and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains joins, opens, and completions in tick order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the snapshot published by the last tick.
	Final scheduler.Snapshot `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(e TraceEvent) {
	e.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, e)
}

// AddTick appends the events of one tick. Within a tick, joins come first,
// then items opened by submissions or spawning, then each completion
// followed by the item its workflow opened, if any.
func (r *Result) AddTick(sum scheduler.TickSummary, c *catalog.Catalog) {
	for _, name := range sum.Joined {
		r.add(TraceEvent{Type: EventJoin, Tick: sum.Tick, Worker: name})
	}

	var followUps []scheduler.Opened
	for _, o := range sum.Opened {
		if o.Source == scheduler.SourceWorkflow {
			followUps = append(followUps, o)
			continue
		}
		r.add(openEvent(sum.Tick, o))
	}

	// The scheduler opens follow-ups in completion order, one per spawning
	// completion.
	next := 0
	for _, done := range sum.Completed {
		r.add(TraceEvent{
			Type:         EventComplete,
			Tick:         sum.Tick,
			ID:           done.ID,
			Kind:         done.Kind,
			Variant:      done.Variant,
			Contributors: done.Contributors,
		})
		if next < len(followUps) && c.DefaultsFor(done.Kind).Then.Spawn != "" {
			r.add(openEvent(sum.Tick, followUps[next]))
			next++
		}
	}
	for ; next < len(followUps); next++ {
		r.add(openEvent(sum.Tick, followUps[next]))
	}
}

func openEvent(tick uint64, o scheduler.Opened) TraceEvent {
	return TraceEvent{
		Type:    EventOpen,
		Tick:    tick,
		ID:      o.ID,
		Kind:    o.Kind,
		Variant: o.Variant,
		Source:  o.Source,
	}
}
