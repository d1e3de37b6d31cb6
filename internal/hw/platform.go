package hw

// Platform is the complete capability set the core consumes.
type Platform interface {
	Clock
	Sampler
	Pins
}

// Board assembles a Platform from independent parts.
type Board struct {
	Clock
	Sampler
	Pins
}

// NewBoard composes a platform.
func NewBoard(c Clock, s Sampler, p Pins) *Board {
	return &Board{Clock: c, Sampler: s, Pins: p}
}

// NewDesktopBoard wires a monotonic clock, a ticker-driven sampler and an
// in-memory pin bank.
func NewDesktopBoard() (*Board, *MemoryPins) {
	pins := NewMemoryPins()
	return NewBoard(NewMonotonicClock(), NewTickerSampler(), pins), pins
}
