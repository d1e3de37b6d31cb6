// Package hw defines the hardware-facing collaborators the button core
// depends on.
//
// The core never touches timers, interrupts, or GPIO registers directly. It
// needs exactly four capabilities:
//
//   - a monotonic millisecond clock, callable from any goroutine
//   - a periodic sampler that invokes one callback at a fixed interval and
//     never runs that callback concurrently with itself
//   - a way to stop that sampler synchronously
//   - per-pin setup and raw level reads
//
// Platform bundles them. Board composes a Platform out of independent parts,
// and the in-process implementations here (MonotonicClock, TickerSampler,
// MemoryPins) are enough to run the core on a desktop or in a simulator.
package hw
