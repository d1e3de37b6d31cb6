package hw

import "time"

// Clock is a monotonic millisecond time source.
//
// NowMs must never decrease and must be safe to call concurrently from the
// sampler goroutine and from any consumer goroutine.
type Clock interface {
	NowMs() uint64
}

// MonotonicClock reports milliseconds elapsed since it was created.
//
// It reads the runtime's monotonic clock, so wall-clock adjustments never make
// it go backwards. Safe for concurrent use; it holds no mutable state.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock creates a clock whose epoch is the moment of the call.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// NowMs returns whole milliseconds since the clock's epoch.
func (c *MonotonicClock) NowMs() uint64 {
	return uint64(time.Since(c.start).Milliseconds())
}
