// Package harness replays button scenarios deterministically.
//
// A scenario declares inputs, a timeline of raw press and release events
// (optionally with contact bounce), and assertions on the outcome. The
// harness drives the real registry, debouncers and automata against a
// manual clock and sampler, so the same scenario always produces the same
// trace.
//
// # Scenario Format
//
//	name: double_click
//	description: "Two quick clicks count as one event of two"
//	timing:                # optional overrides, same keys as the config file
//	  click_up_high_ms: 200
//	patterns_dir: patterns # optional CUE pattern directory, relative to the file
//	poll_ms: 10            # optional, default 10
//	duration_ms: 1000
//	inputs:
//	  - name: a
//	    hw: 4
//	    polarity: high     # optional, default high
//	    patterns: [click_n]  # optional, default library when omitted
//	cross:
//	  defaults: true
//	  patterns: [chord]
//	  correlated:
//	    - {first: a, second: b, min_gap_ms: 20, max_gap_ms: 100}
//	events:
//	  - {at: 100, input: a, level: down, bounce_ms: 3}
//	  - {at: 200, input: a, level: up}
//	assertions:
//	  - {type: clicks, input: a, pattern: click_n, count: 2}
//	  - {type: cross_clicks, pattern: abab_fast, count: 0}
//	  - {type: trace_contains, input: a, pattern: click_n, to: 3}
//	  - {type: trace_count, event: edge, input: a, count: 4}
//	  - {type: final_state, input: a, down: false}
//
// # Trace
//
// The trace lists, in order, debounced edges (stamped with the time the
// debouncer accepted them), automaton transitions and non-zero click reads.
// Every event carries the scope it was produced in: the owning input's name
// or "cross".
//
// # Timeline
//
// Raw levels set at time t are first seen by the sampler tick at t plus one
// sample interval. The application poll runs every poll_ms, after that
// tick.
package harness
