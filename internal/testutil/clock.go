package testutil

import (
	"fmt"
	"sync"
)

// ManualClock is a millisecond clock that only moves when a test moves it.
//
// Unlike hw.MonotonicClock, ManualClock can be set to any starting point,
// including values near the 31-bit wrap of the debouncer's packed word, and
// advanced in exact steps. This makes debounce and pattern timing tests
// reproducible to the millisecond.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

// NewManualClock creates a clock reading start.
func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{now: start}
}

// NowMs returns the current reading.
//
// Implements hw.Clock.
func (c *ManualClock) NowMs() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by ms and returns the new reading.
func (c *ManualClock) Advance(ms uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += ms
	return c.now
}

// SetNow jumps the clock to ms.
//
// Panics if ms is earlier than the current reading: a clock that runs
// backwards is a broken test, not a scenario worth simulating.
func (c *ManualClock) SetNow(ms uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ms < c.now {
		panic(fmt.Sprintf("ManualClock: cannot move from %d back to %d", c.now, ms))
	}
	c.now = ms
}
