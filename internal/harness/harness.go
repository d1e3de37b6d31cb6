package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/buttons/internal/automaton"
	"github.com/roach88/buttons/internal/compiler"
	"github.com/roach88/buttons/internal/config"
	"github.com/roach88/buttons/internal/hw"
	"github.com/roach88/buttons/internal/input"
	"github.com/roach88/buttons/internal/testutil"
)

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	ids    IDGenerator
	logger *slog.Logger
}

// WithIDGenerator sets the run id source. The default is UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *runConfig) {
		c.ids = g
	}
}

// WithLogger sets the logger for the run and the registry under test.
// Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// runner holds the state of one run. Everything happens on the calling
// goroutine: the manual sampler ticks inline.
type runner struct {
	platform *testutil.ManualPlatform
	result   *Result
	inputs   []*inputRun
	byID     map[int]string
	cross    *input.Cross
	scope    string
}

type inputRun struct {
	spec     InputSpec
	polarity hw.Polarity
	entity   *input.Entity
	patterns []string
	down     bool
}

type rawEdge struct {
	at    uint64
	hwID  int
	level bool
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Resolve timing and compile the scenario's pattern directory
//  2. Register inputs and cross patterns on a manual platform at time 0
//  3. Replay raw edges, ticking the sampler every sample interval and
//     polling every poll_ms
//  4. Evaluate assertions
//
// An error means the scenario could not be run; failed assertions are
// reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	timing, err := scenario.ResolveTiming()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	poll := scenario.pollMs()
	if poll%timing.SampleIntervalMs != 0 {
		return nil, fmt.Errorf("scenario %s: poll_ms %d is not a multiple of sample_interval_ms %d",
			scenario.Name, poll, timing.SampleIntervalMs)
	}

	compiled, err := loadPatterns(scenario, timing)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.RunID = cfg.ids.Generate()
	result.Scenario = scenario.Name

	r := &runner{
		platform: testutil.NewManualPlatform(0),
		result:   result,
		byID:     make(map[int]string),
	}

	reg, err := input.NewRegistry(r.platform, timing,
		input.WithLogger(cfg.logger),
		input.WithObserver(r.observe),
	)
	if err != nil {
		return nil, err
	}
	defer reg.Close()

	ids := make(map[string]int)
	for _, spec := range scenario.Inputs {
		in, err := r.register(reg, spec, compiled)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", spec.Name, err)
		}
		ids[spec.Name] = in.entity.ID()
	}

	if scenario.Cross != nil {
		if err := r.setupCross(reg, scenario.Cross, compiled, ids); err != nil {
			return nil, fmt.Errorf("cross: %w", err)
		}
	}

	edges := r.expand(scenario.Events, timing.SampleIntervalMs)

	cfg.logger.Info("scenario started",
		"run_id", result.RunID,
		"scenario", scenario.Name,
		"inputs", len(r.inputs),
		"raw_edges", len(edges),
	)

	step := uint64(timing.SampleIntervalMs)
	duration := uint64(scenario.DurationMs)
	next := 0
	for r.platform.NowMs() < duration {
		now := r.platform.NowMs()
		for next < len(edges) && edges[next].at <= now {
			r.platform.Set(edges[next].hwID, edges[next].level)
			next++
		}
		r.platform.Run(step)
		if r.platform.NowMs()%uint64(poll) == 0 {
			r.poll()
		}
	}

	for _, in := range r.inputs {
		result.Final[in.spec.Name] = in.entity.IsDown()
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	cfg.logger.Info("scenario finished",
		"run_id", result.RunID,
		"scenario", scenario.Name,
		"pass", result.Pass,
		"trace_events", len(result.Trace),
	)
	return result, nil
}

func loadPatterns(scenario *Scenario, timing config.Timing) (*compiler.LoadResult, error) {
	if scenario.PatternsDir == "" {
		return &compiler.LoadResult{}, nil
	}
	c, err := compiler.New(timing)
	if err != nil {
		return nil, err
	}
	res, errs := c.LoadDir(scenario.resolve(scenario.PatternsDir), compiler.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, fmt.Errorf("patterns_dir %s: %w", scenario.PatternsDir, errors.Join(errs...))
	}
	return res, nil
}

func (r *runner) register(reg *input.Registry, spec InputSpec, compiled *compiler.LoadResult) (*inputRun, error) {
	pol, err := hw.ParsePolarity(spec.Polarity)
	if err != nil {
		return nil, err
	}

	var opts []input.RegisterOption
	if len(spec.Patterns) > 0 {
		defs, err := resolvePatterns(spec.Patterns, reg.Library().Defaults(), compiled)
		if err != nil {
			return nil, err
		}
		opts = append(opts, input.WithoutDefaults(), input.WithPatterns(defs...))
	}

	e, err := reg.Register(spec.HW, pol, opts...)
	if err != nil {
		return nil, err
	}

	in := &inputRun{
		spec:     spec,
		polarity: pol,
		entity:   e,
		patterns: e.Patterns(),
	}
	r.inputs = append(r.inputs, in)
	r.byID[e.ID()] = spec.Name

	totals := make(map[string]int, len(in.patterns))
	for _, name := range in.patterns {
		totals[name] = 0
	}
	r.result.Clicks[spec.Name] = totals
	return in, nil
}

func (r *runner) setupCross(reg *input.Registry, spec *CrossSpec, compiled *compiler.LoadResult, ids map[string]int) error {
	r.cross = reg.NewCross()
	if spec.Defaults {
		r.cross.AddDefaultPatterns()
	}

	defs, err := resolvePatterns(spec.Patterns, reg.Library().CrossDefaults(), compiled)
	if err != nil {
		return err
	}
	for _, def := range defs {
		r.cross.AddPattern(def)
	}

	for _, c := range spec.Correlated {
		if _, err := r.cross.AddCorrelatedPattern(ids[c.First], ids[c.Second], c.MinGapMs, c.MaxGapMs); err != nil {
			return err
		}
	}

	for _, name := range r.cross.Patterns() {
		r.result.CrossClicks[name] = 0
	}
	return nil
}

// resolvePatterns looks names up among the stock definitions first, then
// the compiled ones.
func resolvePatterns(names []string, stock []*automaton.Definition, compiled *compiler.LoadResult) ([]*automaton.Definition, error) {
	defs := make([]*automaton.Definition, 0, len(names))
	for _, name := range names {
		def := lookup(stock, name)
		if def == nil {
			def, _ = compiled.Lookup(name)
		}
		if def == nil {
			return nil, fmt.Errorf("unknown pattern %q", name)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func lookup(defs []*automaton.Definition, name string) *automaton.Definition {
	for _, d := range defs {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// expand turns scenario events into raw pin levels, bounce included,
// ordered by time. Events at the same time keep their declared order.
func (r *runner) expand(events []InputEvent, intervalMs int) []rawEdge {
	byName := make(map[string]*inputRun, len(r.inputs))
	for _, in := range r.inputs {
		byName[in.spec.Name] = in
	}

	var edges []rawEdge
	for _, ev := range events {
		in := byName[ev.Input]
		down := ev.Level == LevelDown
		at := uint64(ev.At)

		for k := 0; k < ev.BounceMs; k += intervalMs {
			chatter := down
			if (k/intervalMs)%2 == 1 {
				chatter = !down
			}
			edges = append(edges, rawEdge{
				at:    at + uint64(k),
				hwID:  in.spec.HW,
				level: in.polarity.RestLevel() != chatter,
			})
		}
		edges = append(edges, rawEdge{
			at:    at + uint64(ev.BounceMs),
			hwID:  in.spec.HW,
			level: in.polarity.RestLevel() != down,
		})
	}

	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].at < edges[j].at
	})
	return edges
}

// poll is one pass of the application loop: report edges, update every
// input's patterns, then the cross patterns, reading clicks as it goes.
func (r *runner) poll() {
	now := r.platform.NowMs()

	for _, in := range r.inputs {
		down, changedAt := in.entity.State()
		if down == in.down {
			continue
		}
		in.down = down
		level := LevelUp
		if down {
			level = LevelDown
		}
		r.result.addTrace(TraceEvent{
			At:    changedAt,
			Type:  EventEdge,
			Scope: in.spec.Name,
			Input: in.spec.Name,
			Level: level,
		})
	}

	for _, in := range r.inputs {
		r.scope = in.spec.Name
		in.entity.UpdatePatterns()
		for i, name := range in.patterns {
			if n := in.entity.Clicks(i); n > 0 {
				r.result.Clicks[in.spec.Name][name] += n
				r.result.addTrace(TraceEvent{
					At:      now,
					Type:    EventClick,
					Scope:   in.spec.Name,
					Input:   in.spec.Name,
					Pattern: name,
					Count:   n,
				})
			}
		}
	}

	if r.cross == nil {
		return
	}
	r.scope = crossScope
	r.cross.UpdatePatterns()
	for i, name := range r.cross.Patterns() {
		if n := r.cross.Clicks(i); n > 0 {
			r.result.CrossClicks[name] += n
			r.result.addTrace(TraceEvent{
				At:      now,
				Type:    EventClick,
				Scope:   crossScope,
				Pattern: name,
				Count:   n,
			})
		}
	}
}

func (r *runner) observe(t automaton.Transition) {
	r.result.addTrace(TraceEvent{
		At:      t.At,
		Type:    EventTransition,
		Scope:   r.scope,
		Input:   r.byID[t.Source],
		Pattern: t.Pattern,
		From:    t.From,
		To:      t.To,
	})
}
