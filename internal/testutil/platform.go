package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/buttons/internal/hw"
)

// ManualPlatform is an hw.Platform whose sampler never fires on its own.
//
// Tests call Tick (one sampler pass) or Run (advance the clock and tick once
// per sample interval). Every start and stop request is recorded in Calls so
// tests can verify the registry's stop/mutate/restart discipline.
type ManualPlatform struct {
	*ManualClock
	*hw.MemoryPins

	mu         sync.Mutex
	fn         func()
	intervalMs int
	calls      []string
	configured map[int]hw.Polarity
	pinErr     error
}

// NewManualPlatform creates a platform whose clock reads start.
func NewManualPlatform(start uint64) *ManualPlatform {
	return &ManualPlatform{
		ManualClock: NewManualClock(start),
		MemoryPins:  hw.NewMemoryPins(),
		configured:  make(map[int]hw.Polarity),
	}
}

// StartSampler records the callback. It returns hw.ErrSamplerRunning if a
// callback is already installed, like the real driver.
func (p *ManualPlatform) StartSampler(fn func(), intervalMs int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fn != nil {
		return hw.ErrSamplerRunning
	}
	p.fn = fn
	p.intervalMs = intervalMs
	p.calls = append(p.calls, fmt.Sprintf("start/%d", intervalMs))
	return nil
}

// StopSampler removes the callback.
func (p *ManualPlatform) StopSampler() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn = nil
	p.calls = append(p.calls, "stop")
}

// ConfigurePin records the polarity and parks the pin at rest. If FailPins
// was called, the configured error is returned instead.
func (p *ManualPlatform) ConfigurePin(hwID int, pol hw.Polarity) error {
	p.mu.Lock()
	err := p.pinErr
	if err == nil {
		p.configured[hwID] = pol
	}
	p.mu.Unlock()
	if err != nil {
		return err
	}
	return p.MemoryPins.ConfigurePin(hwID, pol)
}

// FailPins makes every later ConfigurePin call return err.
func (p *ManualPlatform) FailPins(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pinErr = err
}

// Configured returns the polarity recorded for hwID.
func (p *ManualPlatform) Configured(hwID int) (hw.Polarity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pol, ok := p.configured[hwID]
	return pol, ok
}

// Running reports whether a sampler callback is installed.
func (p *ManualPlatform) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fn != nil
}

// Calls returns the recorded start/stop requests in order.
func (p *ManualPlatform) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

// ResetCalls clears the recorded requests.
func (p *ManualPlatform) ResetCalls() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// Tick runs one sampler pass at the current clock reading. It reports
// whether a callback was installed.
func (p *ManualPlatform) Tick() bool {
	p.mu.Lock()
	fn := p.fn
	p.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Run advances the clock by ms, ticking the sampler after every interval.
// With no sampler installed the clock still advances one millisecond at a
// time.
func (p *ManualPlatform) Run(ms uint64) {
	for elapsed := uint64(0); elapsed < ms; {
		step := uint64(1)
		p.mu.Lock()
		if p.fn != nil && p.intervalMs > 0 {
			step = uint64(p.intervalMs)
		}
		p.mu.Unlock()
		p.Advance(step)
		p.Tick()
		elapsed += step
	}
}

var _ hw.Platform = (*ManualPlatform)(nil)
