// Package automaton implements a small interpreted finite-state automaton
// used as a data-driven temporal pattern matcher.
//
// A Definition is an immutable template: an ordered list of States, each an
// ordered list of guarded transitions (Arrows), plus the size of a register
// file of integer counters. An Instance evaluates one Definition against a
// stream of observations of the form
//
//	(source id, is down, time the source has been in that level)
//
// Patterns such as N-click, long hold, auto-repeat, and multi-button
// sequences are all authored as data. The engine has no knowledge of any of
// them, and the same engine serves single-input and cross-input matching:
// correlation is purely a matter of which source ids the arrows name.
//
// EVALUATION RULES:
//
//   - Arrows of the current state are checked in declaration order. The
//     first match wins; later arrows are not evaluated.
//   - At most one transition happens per Update call.
//   - A matching arrow's actions run in order, then the instance moves to
//     the arrow's destination and restarts its state timer.
//   - A destination outside the definition resets the instance to state 0
//     and logs a warning instead of failing.
//   - Given the same definition, the same prior state and the same inputs,
//     Update always produces the same result.
//
// Instances are not safe for concurrent use. Callers serialize Update and
// ReadAndClear on a given Instance, typically from one poll loop.
package automaton
