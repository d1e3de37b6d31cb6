package harness

import "fmt"

// Trace event kinds.
const (
	EventEdge       = "edge"
	EventTransition = "transition"
	EventClick      = "click"
)

// crossScope is the scope of events produced by cross-input patterns.
const crossScope = "cross"

// TraceEvent is one observable step of a run.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	At   uint64 `json:"at"`
	Type string `json:"type"`

	// Scope is the owning input's name, or "cross".
	Scope string `json:"scope"`

	// Input is the input that caused the event.
	Input   string `json:"input,omitempty"`
	Pattern string `json:"pattern,omitempty"`

	// Level is set on edges.
	Level string `json:"level,omitempty"`

	// From and To are set on transitions.
	From int `json:"from"`
	To   int `json:"to"`

	// Count is set on clicks.
	Count int `json:"count,omitempty"`
}

// String renders the event as one trace line.
func (ev TraceEvent) String() string {
	switch ev.Type {
	case EventEdge:
		return fmt.Sprintf("[%d] %6dms %s %s", ev.Seq, ev.At, ev.Input, ev.Level)
	case EventClick:
		return fmt.Sprintf("[%d] %6dms %s/%s clicks=%d", ev.Seq, ev.At, ev.Scope, ev.Pattern, ev.Count)
	}
	return fmt.Sprintf("[%d] %6dms %s/%s %d->%d (input %s)", ev.Seq, ev.At, ev.Scope, ev.Pattern, ev.From, ev.To, ev.Input)
}

// Result is the outcome of a scenario run.
type Result struct {
	// RunID labels this run in logs.
	RunID string `json:"run_id"`

	Scenario string `json:"scenario"`

	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Clicks totals every click read, by input then pattern name.
	Clicks map[string]map[string]int `json:"clicks"`

	// CrossClicks totals cross-input clicks by pattern name.
	CrossClicks map[string]int `json:"cross_clicks,omitempty"`

	// Final is each input's debounced state at the end of the run.
	Final map[string]bool `json:"final"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Trace:       []TraceEvent{},
		Clicks:      make(map[string]map[string]int),
		CrossClicks: make(map[string]int),
		Final:       make(map[string]bool),
		Errors:      []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Pass = false
	r.Errors = append(r.Errors, err)
}

func (r *Result) addTrace(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}
