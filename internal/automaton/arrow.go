package automaton

import (
	"fmt"
	"math"
	"strings"
)

// Edge filters an arrow on the observed level.
type Edge uint8

const (
	// EdgeAny matches either level.
	EdgeAny Edge = iota
	// EdgeUp matches a released input.
	EdgeUp
	// EdgeDown matches a pressed input.
	EdgeDown
)

func (e Edge) String() string {
	switch e {
	case EdgeUp:
		return "up"
	case EdgeDown:
		return "down"
	default:
		return "any"
	}
}

// TimeMode selects the optional time predicate of an arrow.
type TimeMode uint8

const (
	// TimeNone always passes.
	TimeNone TimeMode = iota
	// TimeInputAtMost passes while the input has been in its level for at
	// most the bound.
	TimeInputAtMost
	// TimeInputAtLeast passes once the input has been in its level for at
	// least the bound.
	TimeInputAtLeast
	// TimeStateAtLeast passes once the automaton has been in its current
	// state for at least the bound.
	TimeStateAtLeast
)

func (m TimeMode) String() string {
	switch m {
	case TimeInputAtMost:
		return "input<="
	case TimeInputAtLeast:
		return "input>="
	case TimeStateAtLeast:
		return "state>="
	default:
		return "none"
	}
}

// Arrow is one guarded transition.
//
// An arrow matches an observation only if every configured filter passes:
// Source (0 matches any source), Edge (EdgeAny matches any level), and the
// time predicate selected by Time against BoundMs.
//
// Arrows are values. The builder methods return modified copies, so a
// partially configured arrow can be shared as a template:
//
//	release := To(0).Up()
//	a := release.InputAtLeast(250).Do(Copy(0, 1))
type Arrow struct {
	Dest    int
	Source  int
	Edge    Edge
	Time    TimeMode
	BoundMs int64
	Actions []Action
}

// To starts an arrow leading to state dest that matches everything.
func To(dest int) Arrow {
	return Arrow{Dest: dest}
}

// From restricts the arrow to observations from source.
func (a Arrow) From(source int) Arrow {
	a.Source = source
	return a
}

// Down restricts the arrow to pressed observations.
func (a Arrow) Down() Arrow {
	a.Edge = EdgeDown
	return a
}

// Up restricts the arrow to released observations.
func (a Arrow) Up() Arrow {
	a.Edge = EdgeUp
	return a
}

// Level restricts the arrow to the given level.
func (a Arrow) Level(down bool) Arrow {
	if down {
		return a.Down()
	}
	return a.Up()
}

// InputAtMost requires the input to have held its level for at most ms.
func (a Arrow) InputAtMost(ms int64) Arrow {
	a.Time, a.BoundMs = TimeInputAtMost, ms
	return a
}

// InputAtLeast requires the input to have held its level for at least ms.
func (a Arrow) InputAtLeast(ms int64) Arrow {
	a.Time, a.BoundMs = TimeInputAtLeast, ms
	return a
}

// StateAtLeast requires the automaton to have been in its current state for
// at least ms.
func (a Arrow) StateAtLeast(ms int64) Arrow {
	a.Time, a.BoundMs = TimeStateAtLeast, ms
	return a
}

// Do appends actions to run when the arrow fires.
func (a Arrow) Do(actions ...Action) Arrow {
	merged := make([]Action, 0, len(a.Actions)+len(actions))
	merged = append(merged, a.Actions...)
	a.Actions = append(merged, actions...)
	return a
}

// Matches reports whether the arrow accepts an observation of source at the
// given level, held for inputMs, while the automaton has been in its state
// for stateMs.
func (a Arrow) Matches(source int, down bool, inputMs, stateMs uint64) bool {
	if a.Source != 0 && a.Source != source {
		return false
	}

	switch a.Edge {
	case EdgeUp:
		if down {
			return false
		}
	case EdgeDown:
		if !down {
			return false
		}
	}

	switch a.Time {
	case TimeInputAtMost:
		return clampMs(inputMs) <= a.BoundMs
	case TimeInputAtLeast:
		return clampMs(inputMs) >= a.BoundMs
	case TimeStateAtLeast:
		return clampMs(stateMs) >= a.BoundMs
	}
	return true
}

func (a Arrow) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "->%d", a.Dest)
	if a.Source != 0 {
		fmt.Fprintf(&b, " src=%d", a.Source)
	}
	if a.Edge != EdgeAny {
		fmt.Fprintf(&b, " %s", a.Edge)
	}
	if a.Time != TimeNone {
		fmt.Fprintf(&b, " %s%d", a.Time, a.BoundMs)
	}
	for _, act := range a.Actions {
		fmt.Fprintf(&b, " [%s]", act)
	}
	return b.String()
}

func clampMs(ms uint64) int64 {
	if ms > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(ms)
}
