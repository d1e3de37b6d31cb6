package harness

import (
	"fmt"
	"strings"
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

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", ev)
		}
	}

	return buf.String()
}

// assertClicks checks the total clicks read from one input's pattern.
func assertClicks(result *Result, a Assertion) error {
	totals, ok := result.Clicks[a.Input]
	if !ok {
		return fmt.Errorf("clicks: unknown input %q", a.Input)
	}
	got, ok := totals[a.Pattern]
	if !ok {
		return fmt.Errorf("clicks: pattern %q is not attached to input %q", a.Pattern, a.Input)
	}
	if got != a.Count {
		return &AssertionError{
			Type:     AssertClicks,
			Expected: fmt.Sprintf("%d clicks from %s/%s", a.Count, a.Input, a.Pattern),
			Actual:   fmt.Sprintf("%d clicks", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertCrossClicks checks the total clicks read from one cross pattern.
func assertCrossClicks(result *Result, a Assertion) error {
	got, ok := result.CrossClicks[a.Pattern]
	if !ok {
		return fmt.Errorf("cross_clicks: pattern %q is not attached", a.Pattern)
	}
	if got != a.Count {
		return &AssertionError{
			Type:     AssertCrossClicks,
			Expected: fmt.Sprintf("%d clicks from cross/%s", a.Count, a.Pattern),
			Actual:   fmt.Sprintf("%d clicks", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceContains checks that some transition of the pattern, in the
// input's scope if one is given, entered state To.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Type == EventTransition && matchScope(ev, a) && ev.Pattern == a.Pattern && ev.To == *a.To {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("transition of %s into state %d", a.Pattern, *a.To),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks the number of trace events of one kind, filtered
// by input scope and pattern when given.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	kind := a.Event
	if kind == "" {
		kind = EventTransition
	}

	count := 0
	for _, ev := range trace {
		if ev.Type != kind || !matchScope(ev, a) {
			continue
		}
		if a.Pattern != "" && ev.Pattern != a.Pattern {
			continue
		}
		count++
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s events", a.Count, kind),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks an input's debounced state at the end of the run.
func assertFinalState(result *Result, a Assertion) error {
	got, ok := result.Final[a.Input]
	if !ok {
		return fmt.Errorf("final_state: unknown input %q", a.Input)
	}
	if got != *a.Down {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s down=%t", a.Input, *a.Down),
			Actual:   fmt.Sprintf("down=%t", got),
		}
	}
	return nil
}

func matchScope(ev TraceEvent, a Assertion) bool {
	return a.Input == "" || ev.Scope == a.Input
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertClicks:
			err = assertClicks(result, assertion)
		case AssertCrossClicks:
			err = assertCrossClicks(result, assertion)
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
