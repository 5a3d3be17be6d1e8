package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/crunch/internal/work"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Completions only; joins and opens add noise.
	fmt.Fprintf(&buf, "\nCompletions:\n")
	for _, event := range e.Trace {
		if event.Type == EventComplete {
			fmt.Fprintf(&buf, "  [tick %d] #%d %s %v\n", event.Tick, event.ID, event.Kind, event.Contributors)
		}
	}

	return buf.String()
}

func completions(trace []TraceEvent) []TraceEvent {
	var out []TraceEvent
	for _, event := range trace {
		if event.Type == EventComplete {
			out = append(out, event)
		}
	}
	return out
}

// assertCompletedCount checks the number of completions in the trace.
func assertCompletedCount(result *Result, assertion Assertion) error {
	count := len(completions(result.Trace))
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertCompletedCount,
			Expected: fmt.Sprintf("%d completions", assertion.Count),
			Actual:   fmt.Sprintf("%d completions", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertOpenCount checks the number of items still open at the end.
func assertOpenCount(result *Result, assertion Assertion) error {
	count := len(result.Final.OpenItems)
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertOpenCount,
			Expected: fmt.Sprintf("%d open items", assertion.Count),
			Actual:   fmt.Sprintf("%d open items", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertHistoryOrder checks the final history IDs, newest first.
func assertHistoryOrder(result *Result, assertion Assertion) error {
	ids := make([]uint64, len(result.Final.History))
	for i, e := range result.Final.History {
		ids[i] = uint64(e.ID)
	}
	want := assertion.IDs
	if want == nil {
		want = []uint64{}
	}
	if !slices.Equal(ids, want) {
		return &AssertionError{
			Type:     AssertHistoryOrder,
			Expected: fmt.Sprintf("history %v", want),
			Actual:   fmt.Sprintf("history %v", ids),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceOrder checks that the kinds complete in the specified order.
// Kinds don't need to be consecutive (intervening completions are allowed).
func assertTraceOrder(result *Result, assertion Assertion) error {
	next := 0
	for _, event := range completions(result.Trace) {
		if next < len(assertion.Kinds) && string(event.Kind) == assertion.Kinds[next] {
			next++
		}
	}

	if next < len(assertion.Kinds) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("completions in order: %v", assertion.Kinds),
			Actual:   fmt.Sprintf("no %s completed after %v", assertion.Kinds[next], assertion.Kinds[:next]),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertContributors checks the contributors recorded for one completed
// item, in first-contribution order.
func assertContributors(result *Result, assertion Assertion) error {
	id := work.ItemID(assertion.Item)
	for _, event := range completions(result.Trace) {
		if event.ID != id {
			continue
		}
		if !slices.Equal(event.Contributors, assertion.Workers) {
			return &AssertionError{
				Type:     AssertContributors,
				Expected: fmt.Sprintf("item %d contributors %v", id, assertion.Workers),
				Actual:   fmt.Sprintf("contributors %v", event.Contributors),
				Trace:    result.Trace,
			}
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertContributors,
		Expected: fmt.Sprintf("item %d completed", id),
		Actual:   "not found in trace",
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCompletedCount:
			err = assertCompletedCount(result, assertion)
		case AssertOpenCount:
			err = assertOpenCount(result, assertion)
		case AssertHistoryOrder:
			err = assertHistoryOrder(result, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result, assertion)
		case AssertContributors:
			err = assertContributors(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
