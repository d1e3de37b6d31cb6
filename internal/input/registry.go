// Package input owns the registered inputs: one debouncer and a set of
// pattern automata per physical input, plus cross-input automata fed by all
// of them.
//
// The sampler is the only writer of debounced state. Structural changes to
// the input set stop the sampler, swap in a new entity list, and restart it.
// Consumers read an immutable snapshot of the list and never block.
package input

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/buttons/internal/automaton"
	"github.com/roach88/buttons/internal/config"
	"github.com/roach88/buttons/internal/debounce"
	"github.com/roach88/buttons/internal/hw"
	"github.com/roach88/buttons/internal/patterns"
)

// ErrUnknownInput is returned when an id does not name a registered input.
var ErrUnknownInput = errors.New("unknown input")

// Registry is the process-owned set of inputs, addressed by id.
type Registry struct {
	platform hw.Platform
	timing   config.Timing
	library  *patterns.Library
	logger   *slog.Logger
	observer automaton.Observer

	// mu serializes structural changes. The sampler never takes it.
	mu       sync.Mutex
	nextID   int
	entities atomic.Pointer[[]*Entity]
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used by the registry and every automaton it
// creates.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithObserver installs a transition observer on every automaton the
// registry creates, including cross-input ones.
func WithObserver(o automaton.Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// WithLibrary replaces the default pattern library. Its timing should match
// the registry's.
func WithLibrary(l *patterns.Library) Option {
	return func(r *Registry) {
		r.library = l
	}
}

// NewRegistry validates the timing and creates an empty registry. No input
// exists and the sampler is not started until the first Register.
func NewRegistry(platform hw.Platform, timing config.Timing, opts ...Option) (*Registry, error) {
	if err := timing.Validate(); err != nil {
		return nil, fmt.Errorf("registry timing: %w", err)
	}

	r := &Registry{
		platform: platform,
		timing:   timing,
		logger:   slog.Default(),
		nextID:   1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.library == nil {
		r.library = patterns.NewLibrary(timing)
	}
	empty := []*Entity{}
	r.entities.Store(&empty)
	return r, nil
}

// RegisterOption configures one registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	defaults bool
	extra    []*automaton.Definition
}

// WithPatterns attaches additional definitions after the defaults.
func WithPatterns(defs ...*automaton.Definition) RegisterOption {
	return func(o *registerOptions) {
		o.extra = append(o.extra, defs...)
	}
}

// WithoutDefaults skips the default pattern library.
func WithoutDefaults() RegisterOption {
	return func(o *registerOptions) {
		o.defaults = false
	}
}

// Register configures the pin, creates an input with the next id and
// attaches its patterns: the default library first, then any extra
// definitions, in order.
func (r *Registry) Register(hwID int, polarity hw.Polarity, opts ...RegisterOption) (*Entity, error) {
	o := registerOptions{defaults: true}
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.platform.ConfigurePin(hwID, polarity); err != nil {
		return nil, fmt.Errorf("configure pin %d: %w", hwID, err)
	}

	deb, err := debounce.New(r.platform, r.timing.DebounceMs, r.timing.SampleIntervalMs)
	if err != nil {
		return nil, err
	}

	e := &Entity{
		id:       r.nextID,
		hwID:     hwID,
		polarity: polarity,
		clock:    r.platform,
		deb:      deb,
	}
	var defs []*automaton.Definition
	if o.defaults {
		defs = append(defs, r.library.Defaults()...)
	}
	defs = append(defs, o.extra...)
	for _, def := range defs {
		e.instances = append(e.instances, r.newInstance(def))
	}

	prev := r.snapshot()
	next := make([]*Entity, 0, len(prev)+1)
	next = append(next, prev...)
	next = append(next, e)

	if err := r.swap(prev, next); err != nil {
		return nil, err
	}
	r.nextID++

	r.logger.Info("input registered",
		"id", e.id,
		"hw", hwID,
		"polarity", polarity.String(),
		"patterns", len(e.instances),
	)
	return e, nil
}

// Unregister removes the input with the given id. The sampler is restarted
// only if other inputs remain.
func (r *Registry) Unregister(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.snapshot()
	next := make([]*Entity, 0, len(prev))
	found := false
	for _, e := range prev {
		if e.id == id {
			found = true
			continue
		}
		next = append(next, e)
	}
	if !found {
		return fmt.Errorf("unregister %d: %w", id, ErrUnknownInput)
	}

	if err := r.swap(prev, next); err != nil {
		return err
	}
	r.logger.Info("input unregistered", "id", id, "remaining", len(next))
	return nil
}

// Close stops the sampler and drops every input. Ids are not reused by later
// registrations.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.snapshot()
	if len(prev) == 0 {
		return nil
	}
	return r.swap(prev, []*Entity{})
}

// swap replaces the entity list under the stop/mutate/restart discipline.
// Callers hold mu. On a failed restart the previous list is put back.
func (r *Registry) swap(prev, next []*Entity) error {
	if len(prev) > 0 {
		r.platform.StopSampler()
	}
	r.entities.Store(&next)
	if len(next) == 0 {
		return nil
	}

	err := r.platform.StartSampler(r.sample, r.timing.SampleIntervalMs)
	if err == nil {
		return nil
	}

	r.entities.Store(&prev)
	if len(prev) > 0 {
		if rerr := r.platform.StartSampler(r.sample, r.timing.SampleIntervalMs); rerr != nil {
			r.logger.Error("sampler restart failed", "error", rerr, "inputs", len(prev))
		}
	}
	return fmt.Errorf("start sampler: %w", err)
}

// sample is the sampler pass: one raw read per input, all stamped with the
// same clock reading.
func (r *Registry) sample() {
	list := *r.entities.Load()
	if len(list) == 0 {
		return
	}
	now := r.platform.NowMs()
	for _, e := range list {
		e.deb.Sample(e.polarity.IsDown(r.platform.ReadPin(e.hwID)), now)
	}
}

func (r *Registry) snapshot() []*Entity {
	return *r.entities.Load()
}

func (r *Registry) newInstance(def *automaton.Definition) *automaton.Instance {
	opts := []automaton.InstanceOption{automaton.WithLogger(r.logger)}
	if r.observer != nil {
		opts = append(opts, automaton.WithObserver(r.observer))
	}
	return automaton.NewInstance(def, r.platform, opts...)
}

// Entity returns the input with the given id.
func (r *Registry) Entity(id int) (*Entity, bool) {
	for _, e := range r.snapshot() {
		if e.id == id {
			return e, true
		}
	}
	return nil, false
}

// Entities returns the registered inputs in registration order.
func (r *Registry) Entities() []*Entity {
	list := r.snapshot()
	out := make([]*Entity, len(list))
	copy(out, list)
	return out
}

// Len returns the number of registered inputs.
func (r *Registry) Len() int { return len(r.snapshot()) }

// Timing returns the validated timing the registry was built with.
func (r *Registry) Timing() config.Timing { return r.timing }

// Library returns the pattern library shared by every input.
func (r *Registry) Library() *patterns.Library { return r.library }
