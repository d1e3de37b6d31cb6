package input

import (
	"fmt"

	"github.com/roach88/buttons/internal/automaton"
	"github.com/roach88/buttons/internal/debounce"
	"github.com/roach88/buttons/internal/patterns"
)

// Cross drives automata with the merged state of every registered input.
// Arrows tell inputs apart by source id, which is the input's registry id.
//
// Like Entity, a Cross must be driven from one goroutine at a time. Adding
// patterns counts as driving it.
type Cross struct {
	reg       *Registry
	instances []*automaton.Instance
}

// NewCross creates a cross-input automaton set with no patterns. It sees
// inputs registered before and after its creation.
func (r *Registry) NewCross() *Cross {
	return &Cross{reg: r}
}

// UpdatePatterns feeds every registered input, in registration order, to
// every pattern.
func (c *Cross) UpdatePatterns() {
	for _, e := range c.reg.snapshot() {
		down, changedAt := e.deb.State()
		inputMs := debounce.Since(c.reg.platform.NowMs(), changedAt)
		for _, in := range c.instances {
			in.Update(e.id, down, inputMs)
		}
	}
}

// Clicks reads and clears counter 0 of pattern i. Unknown patterns read 0.
func (c *Cross) Clicks(i int) int {
	if i < 0 || i >= len(c.instances) {
		return 0
	}
	return c.instances[i].ReadAndClear(0)
}

// AddPattern attaches a definition and returns its index.
func (c *Cross) AddPattern(def *automaton.Definition) int {
	c.instances = append(c.instances, c.reg.newInstance(def))
	return len(c.instances) - 1
}

// AddDefaultPatterns attaches the stock slow and fast correlated patterns
// over inputs 1 and 2. It returns the index of the first one.
func (c *Cross) AddDefaultPatterns() int {
	first := len(c.instances)
	for _, def := range c.reg.library.CrossDefaults() {
		c.AddPattern(def)
	}
	return first
}

// AddCorrelatedPattern attaches a first-down, second-down, first-up,
// second-up pattern over the given input ids and returns its index.
func (c *Cross) AddCorrelatedPattern(first, second, minGapMs, maxGapMs int) (int, error) {
	def, err := patterns.NewCorrelated(fmt.Sprintf("correlated_%d_%d", first, second), first, second, minGapMs, maxGapMs)
	if err != nil {
		return -1, err
	}
	return c.AddPattern(def), nil
}

// Pattern returns the automaton at index i, or nil.
func (c *Cross) Pattern(i int) *automaton.Instance {
	if i < 0 || i >= len(c.instances) {
		return nil
	}
	return c.instances[i]
}

// Patterns returns the names of the attached patterns in index order.
func (c *Cross) Patterns() []string {
	return patternNames(c.instances)
}
