// Package patterns holds the stock automaton definitions: the per-input
// default library (N-click, medium hold, long hold, auto-repeat) and the
// cross-input correlated press/release sequence.
//
// Every pattern publishes its result in counter 0, which is what
// Entity.Clicks and Cross.Clicks read and clear.
package patterns

import (
	"fmt"
	"sync"

	"github.com/roach88/buttons/internal/automaton"
	"github.com/roach88/buttons/internal/config"
)

// Indices of the default per-input patterns, in attachment order.
const (
	ClickN = iota
	MediumHold
	LongHold
	Repeat
)

// Indices of the default cross-input patterns.
const (
	SlowABAB = iota
	FastABAB
)

// Names of the default per-input patterns, indexed by ClickN..Repeat.
var Names = []string{"click_n", "medium_hold", "long_hold", "repeat"}

// CrossNames of the default cross-input patterns.
var CrossNames = []string{"abab_slow", "abab_fast"}

// Default gaps of the two stock cross-input patterns.
const (
	SlowMinGapMs = 500
	SlowMaxGapMs = 1000
	FastMinGapMs = 20
	FastMaxGapMs = 100
)

// NewClickN counts a run of quick clicks and publishes the run length once
// the run ends.
//
// Counter 1 is the hidden run length and counter 0 the published count. The
// automaton waits for a rest of at least click_up_low, then:
//   - a press held click_down_low starts or continues a run
//   - a release held click_up_low counts the click
//   - a press held click_down_high aborts, publishing the clicks so far
//   - a rest of click_up_high after a click ends the run and publishes it
func NewClickN(t config.Timing) *automaton.Definition {
	upLow := int64(t.ClickUpLowMs)
	upHigh := int64(t.ClickUpHighMs)
	downLow := int64(t.ClickDownLowMs)
	downHigh := int64(t.ClickDownHighMs)

	return automaton.MustDefinition(Names[ClickN], 2,
		automaton.NewState(
			automaton.To(1).Up().InputAtLeast(upLow),
		),
		automaton.NewState(
			automaton.To(2).Down().InputAtLeast(downLow).Do(automaton.Set(1, 0)),
		),
		automaton.NewState(
			automaton.To(0).Down().InputAtLeast(downHigh).Do(automaton.Copy(0, 1)),
			automaton.To(3).Up().InputAtLeast(upLow).Do(automaton.Increment(1)),
		),
		automaton.NewState(
			automaton.To(2).Down().InputAtLeast(downLow),
			automaton.To(0).Up().InputAtLeast(upHigh).Do(automaton.Copy(0, 1)),
		),
	)
}

// NewHold fires once when a press lasts minLenMs. Another hold is only
// recognized after the input has rested for twice click_up_low.
func NewHold(name string, t config.Timing, minLenMs int) *automaton.Definition {
	upLow := int64(t.ClickUpLowMs)

	return automaton.MustDefinition(name, 1,
		automaton.NewState(
			automaton.To(1).Up().InputAtLeast(upLow),
		),
		automaton.NewState(
			automaton.To(2).Down().InputAtLeast(int64(minLenMs)).Do(automaton.Increment(0)),
		),
		automaton.NewState(
			automaton.To(0).Up().InputAtLeast(2*upLow),
		),
	)
}

// NewRepeat fires once after a press has lasted repeat_delay, then once per
// repeat cadence for as long as the press lasts. Release re-arms it.
//
// The cadence uses the automaton's own state timer: the repeating arrow
// loops back to its own state, which restarts the timer.
func NewRepeat(t config.Timing) *automaton.Definition {
	return automaton.MustDefinition(Names[Repeat], 1,
		automaton.NewState(
			automaton.To(1).Up().InputAtLeast(int64(t.ClickUpLowMs)),
		),
		automaton.NewState(
			automaton.To(2).Down().InputAtLeast(int64(t.RepeatDelayMs)).Do(automaton.Increment(0)),
		),
		automaton.NewState(
			automaton.To(2).Down().StateAtLeast(int64(t.RepeatCadenceMs())).Do(automaton.Increment(0)),
			automaton.To(0).Up(),
		),
	)
}

// NewCorrelated recognizes first down, second down, first up, second up.
//
// Gaps are measured between consecutive steps. The second press and the
// first release must each follow the previous step by at least minGapMs.
// Every step must follow the previous one within maxGapMs, otherwise the
// automaton starts over. A step out of order also starts over. Both inputs
// must be at rest before the sequence can begin.
func NewCorrelated(name string, first, second, minGapMs, maxGapMs int) (*automaton.Definition, error) {
	if first <= 0 || second <= 0 || first == second {
		return nil, fmt.Errorf("correlated pattern %s: need two distinct positive input ids, got %d and %d", name, first, second)
	}
	if minGapMs < 0 || maxGapMs <= 0 || minGapMs > maxGapMs {
		return nil, fmt.Errorf("correlated pattern %s: invalid gap range [%d, %d]", name, minGapMs, maxGapMs)
	}

	a, b := first, second
	lo, hi := int64(minGapMs), int64(maxGapMs)
	timeout := automaton.To(0).StateAtLeast(hi)

	return automaton.NewDefinition(name, 1,
		// idle: wait for second at rest
		automaton.NewState(
			automaton.To(1).From(b).Up(),
		),
		// wait for first at rest
		automaton.NewState(
			automaton.To(2).From(a).Up(),
			automaton.To(0).From(b).Down(),
		),
		// both at rest: first press starts the sequence
		automaton.NewState(
			automaton.To(3).From(a).Down(),
			automaton.To(0).From(b).Down(),
		),
		// first down: wait for second press
		automaton.NewState(
			timeout,
			automaton.To(4).From(b).Down().StateAtLeast(lo),
			automaton.To(0).From(b).Down(),
			automaton.To(0).From(a).Up(),
		),
		// both down: wait for first release
		automaton.NewState(
			timeout,
			automaton.To(5).From(a).Up().StateAtLeast(lo),
			automaton.To(0).From(a).Up(),
			automaton.To(0).From(b).Up(),
		),
		// second down alone: its release completes the sequence
		automaton.NewState(
			timeout,
			automaton.To(0).From(b).Up().Do(automaton.Increment(0)),
			automaton.To(0).From(a).Down(),
		),
	)
}

// Library builds the stock definitions once, on first use, from one timing
// snapshot, and shares them read-only among all consumers.
type Library struct {
	timing config.Timing

	once     sync.Once
	defaults []*automaton.Definition

	crossOnce sync.Once
	cross     []*automaton.Definition
}

// NewLibrary creates a library for the given timing. Nothing is built until
// Defaults or CrossDefaults is first called.
func NewLibrary(t config.Timing) *Library {
	return &Library{timing: t}
}

// Timing returns the timing the library builds with.
func (l *Library) Timing() config.Timing { return l.timing }

// Defaults returns the per-input patterns indexed by ClickN..Repeat.
func (l *Library) Defaults() []*automaton.Definition {
	l.once.Do(func() {
		l.defaults = []*automaton.Definition{
			NewClickN(l.timing),
			NewHold(Names[MediumHold], l.timing, l.timing.MediumPressMs),
			NewHold(Names[LongHold], l.timing, l.timing.LongPressMs),
			NewRepeat(l.timing),
		}
	})
	return l.defaults
}

// CrossDefaults returns the stock correlated patterns over inputs 1 and 2,
// indexed by SlowABAB and FastABAB.
func (l *Library) CrossDefaults() []*automaton.Definition {
	l.crossOnce.Do(func() {
		slow, err := NewCorrelated(CrossNames[SlowABAB], 1, 2, SlowMinGapMs, SlowMaxGapMs)
		if err != nil {
			panic(err)
		}
		fast, err := NewCorrelated(CrossNames[FastABAB], 1, 2, FastMinGapMs, FastMaxGapMs)
		if err != nil {
			panic(err)
		}
		l.cross = []*automaton.Definition{slow, fast}
	})
	return l.cross
}
