package automaton

import (
	"log/slog"

	"github.com/roach88/buttons/internal/hw"
)

// Transition describes one fired arrow. Observers receive a copy of the
// counters as they stand after the arrow's actions ran.
type Transition struct {
	Pattern  string
	Source   int
	Down     bool
	From     int
	To       int
	Arrow    int
	InputMs  uint64
	StateMs  uint64
	At       uint64
	Counters []int
}

// Observer is notified of every transition, synchronously, from Update.
type Observer func(Transition)

// Instance is the mutable evaluator of one Definition.
type Instance struct {
	def      *Definition
	clock    hw.Clock
	logger   *slog.Logger
	observer Observer

	state          int
	counters       []int
	lastTransition uint64
}

// InstanceOption configures an Instance.
type InstanceOption func(*Instance)

// WithLogger sets the logger for transition dumps and contract violations.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) InstanceOption {
	return func(in *Instance) {
		in.logger = l
	}
}

// WithObserver registers a transition callback.
func WithObserver(o Observer) InstanceOption {
	return func(in *Instance) {
		in.observer = o
	}
}

// NewInstance creates an instance in state 0 with zeroed counters. Its state
// timer starts at the clock's current reading.
func NewInstance(def *Definition, clock hw.Clock, opts ...InstanceOption) *Instance {
	in := &Instance{
		def:            def,
		clock:          clock,
		logger:         slog.Default(),
		counters:       make([]int, def.counters),
		lastTransition: clock.NowMs(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Update feeds one observation: source is at the given level and has been
// for inputMs. It reports whether a transition fired.
func (in *Instance) Update(source int, down bool, inputMs uint64) bool {
	now := in.clock.NowMs()
	stateMs := uint64(0)
	if now > in.lastTransition {
		stateMs = now - in.lastTransition
	}

	arrows := in.def.states[in.state].Arrows
	for i := range arrows {
		a := &arrows[i]
		if !a.Matches(source, down, inputMs, stateMs) {
			continue
		}

		for _, act := range a.Actions {
			if err := act.apply(in.counters); err != nil {
				in.logger.Error("automaton action skipped",
					"error", &ContractError{
						Code:    ErrCodeBadCounter,
						Message: err.Error(),
						Pattern: in.def.name,
						State:   in.state,
						Arrow:   i,
					},
				)
			}
		}

		from := in.state
		in.state = a.Dest
		if in.state < 0 || in.state >= len(in.def.states) {
			in.logger.Warn("automaton reset to state 0",
				"error", &ContractError{
					Code:    ErrCodeBadDestination,
					Message: "arrow destination out of range",
					Pattern: in.def.name,
					State:   from,
					Arrow:   i,
				},
				"dest", a.Dest,
			)
			in.state = 0
		}
		in.lastTransition = now

		in.logger.Debug("state change",
			"pattern", in.def.name,
			"source", source,
			"down", down,
			"from", from,
			"to", in.state,
			"arrow", i,
			"input_ms", inputMs,
			"actions", len(a.Actions),
		)

		if in.observer != nil {
			in.observer(Transition{
				Pattern:  in.def.name,
				Source:   source,
				Down:     down,
				From:     from,
				To:       in.state,
				Arrow:    i,
				InputMs:  inputMs,
				StateMs:  stateMs,
				At:       now,
				Counters: in.Counters(),
			})
		}
		return true
	}
	return false
}

// ReadAndClear returns counter i and resets it to zero. Out-of-range
// indices return 0.
func (in *Instance) ReadAndClear(i int) int {
	if i < 0 || i >= len(in.counters) {
		return 0
	}
	v := in.counters[i]
	in.counters[i] = 0
	return v
}

// Counter returns counter i without clearing it. Out-of-range indices
// return 0.
func (in *Instance) Counter(i int) int {
	if i < 0 || i >= len(in.counters) {
		return 0
	}
	return in.counters[i]
}

// Counters returns a copy of the register file.
func (in *Instance) Counters() []int {
	out := make([]int, len(in.counters))
	copy(out, in.counters)
	return out
}

// State returns the current state index.
func (in *Instance) State() int { return in.state }

// Definition returns the template this instance evaluates.
func (in *Instance) Definition() *Definition { return in.def }

// Reset returns the instance to state 0, zeroes its counters and restarts
// its state timer.
func (in *Instance) Reset() {
	in.state = 0
	for i := range in.counters {
		in.counters[i] = 0
	}
	in.lastTransition = in.clock.NowMs()
}
