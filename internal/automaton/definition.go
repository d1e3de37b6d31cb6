package automaton

import (
	"fmt"
	"log/slog"
)

// State is an ordered list of exiting arrows.
type State struct {
	Arrows []Arrow
}

// NewState creates a state from arrows in priority order.
func NewState(arrows ...Arrow) State {
	return State{Arrows: arrows}
}

// Definition is an immutable automaton template.
//
// A Definition is shared read-only by every Instance built from it and must
// outlive them. Construct one with NewDefinition or a Builder; both copy
// their inputs, so later changes to the caller's slices have no effect.
type Definition struct {
	name     string
	counters int
	states   []State
}

// NewDefinition validates and freezes an automaton.
//
// It fails with a ContractError if there are no states, if counters is
// negative, or if any action addresses a counter outside [0, counters).
// Destinations outside the state list are accepted with a warning; at
// runtime they reset the instance to state 0.
func NewDefinition(name string, counters int, states ...State) (*Definition, error) {
	if len(states) == 0 {
		return nil, &ContractError{
			Code:    ErrCodeEmptyDefinition,
			Message: "definition has no states",
			Pattern: name,
			State:   -1,
			Arrow:   -1,
		}
	}
	if counters < 0 {
		return nil, &ContractError{
			Code:    ErrCodeEmptyDefinition,
			Message: fmt.Sprintf("negative counter count %d", counters),
			Pattern: name,
			State:   -1,
			Arrow:   -1,
		}
	}

	frozen := make([]State, len(states))
	for si, st := range states {
		arrows := make([]Arrow, len(st.Arrows))
		for ai, a := range st.Arrows {
			for _, act := range a.Actions {
				if err := act.check(counters); err != nil {
					return nil, &ContractError{
						Code:    ErrCodeBadCounter,
						Message: err.Error(),
						Pattern: name,
						State:   si,
						Arrow:   ai,
					}
				}
			}
			if a.Dest < 0 || a.Dest >= len(states) {
				slog.Warn("arrow leads outside definition; will reset to state 0",
					"pattern", name,
					"state", si,
					"arrow", ai,
					"dest", a.Dest,
				)
			}
			a.Actions = append([]Action(nil), a.Actions...)
			arrows[ai] = a
		}
		frozen[si] = State{Arrows: arrows}
	}

	return &Definition{name: name, counters: counters, states: frozen}, nil
}

// MustDefinition is like NewDefinition but panics on error. It is meant for
// static pattern tables whose validity is fixed at compile time.
func MustDefinition(name string, counters int, states ...State) *Definition {
	d, err := NewDefinition(name, counters, states...)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the pattern name used in logs and traces.
func (d *Definition) Name() string { return d.name }

// Counters returns the size of the register file.
func (d *Definition) Counters() int { return d.counters }

// NumStates returns the number of states.
func (d *Definition) NumStates() int { return len(d.states) }

// Arrows returns a copy of state i's arrows, or nil if i is out of range.
func (d *Definition) Arrows(i int) []Arrow {
	if i < 0 || i >= len(d.states) {
		return nil
	}
	out := make([]Arrow, len(d.states[i].Arrows))
	for j, a := range d.states[i].Arrows {
		a.Actions = append([]Action(nil), a.Actions...)
		out[j] = a
	}
	return out
}

// Builder assembles a Definition incrementally: add a state, then arrows to
// the most recent state, then actions to the most recent arrow.
type Builder struct {
	name     string
	counters int
	states   []State
	err      error
}

// NewBuilder starts a definition with the given register file size.
func NewBuilder(name string, counters int) *Builder {
	return &Builder{name: name, counters: counters}
}

// AddState appends a state holding arrows.
func (b *Builder) AddState(arrows ...Arrow) *Builder {
	b.states = append(b.states, State{Arrows: append([]Arrow(nil), arrows...)})
	return b
}

// AddArrow appends an arrow to the most recent state, creating state 0 if
// there is none yet.
func (b *Builder) AddArrow(a Arrow) *Builder {
	if len(b.states) == 0 {
		b.states = append(b.states, State{})
	}
	last := &b.states[len(b.states)-1]
	last.Arrows = append(last.Arrows, a)
	return b
}

// AddAction appends an action to the most recent arrow of the most recent
// state.
func (b *Builder) AddAction(act Action) *Builder {
	if len(b.states) == 0 || len(b.states[len(b.states)-1].Arrows) == 0 {
		if b.err == nil {
			b.err = &ContractError{
				Code:    ErrCodeDanglingAction,
				Message: fmt.Sprintf("action %s has no arrow", act),
				Pattern: b.name,
				State:   len(b.states) - 1,
				Arrow:   -1,
			}
		}
		return b
	}
	last := &b.states[len(b.states)-1]
	arrow := &last.Arrows[len(last.Arrows)-1]
	*arrow = arrow.Do(act)
	return b
}

// Build validates and freezes the definition.
func (b *Builder) Build() (*Definition, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewDefinition(b.name, b.counters, b.states...)
}
