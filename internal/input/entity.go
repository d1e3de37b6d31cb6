package input

import (
	"github.com/roach88/buttons/internal/automaton"
	"github.com/roach88/buttons/internal/debounce"
	"github.com/roach88/buttons/internal/hw"
)

// Entity is one registered input: a debouncer and the automata it feeds.
//
// IsDown and State may be called from any goroutine. UpdatePatterns and
// Clicks must be serialized by the caller, typically one poll loop.
type Entity struct {
	id        int
	hwID      int
	polarity  hw.Polarity
	clock     hw.Clock
	deb       *debounce.Debouncer
	instances []*automaton.Instance
}

// ID returns the registry id, starting at 1.
func (e *Entity) ID() int { return e.id }

// HWID returns the platform pin number.
func (e *Entity) HWID() int { return e.hwID }

// Polarity returns which pin level means pressed.
func (e *Entity) Polarity() hw.Polarity { return e.polarity }

// IsDown reports the debounced state.
func (e *Entity) IsDown() bool { return e.deb.IsDown() }

// State reports the debounced state and when it was entered.
func (e *Entity) State() (down bool, changedAt uint64) { return e.deb.State() }

// UpdatePatterns feeds the current debounced state to every attached
// automaton. Call it every 5 to 30 ms.
func (e *Entity) UpdatePatterns() {
	down, changedAt := e.deb.State()
	inputMs := debounce.Since(e.clock.NowMs(), changedAt)
	for _, in := range e.instances {
		in.Update(e.id, down, inputMs)
	}
}

// Clicks reads and clears counter 0 of pattern i. Unknown patterns read 0.
func (e *Entity) Clicks(i int) int {
	if i < 0 || i >= len(e.instances) {
		return 0
	}
	return e.instances[i].ReadAndClear(0)
}

// Pattern returns the automaton at index i, or nil.
func (e *Entity) Pattern(i int) *automaton.Instance {
	if i < 0 || i >= len(e.instances) {
		return nil
	}
	return e.instances[i]
}

// Patterns returns the names of the attached patterns in index order.
func (e *Entity) Patterns() []string {
	return patternNames(e.instances)
}

func patternNames(instances []*automaton.Instance) []string {
	names := make([]string, len(instances))
	for i, in := range instances {
		names[i] = in.Definition().Name()
	}
	return names
}
