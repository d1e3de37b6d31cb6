// Package debounce turns a bouncing raw switch signal into a stable logical
// state with a reliable change timestamp.
//
// A Debouncer has exactly one writer, the periodic sampler, and any number of
// readers. The two sides share a single 32-bit atomic word: bit 0 holds the
// debounced level and bits 1..31 hold the low 31 bits of the millisecond
// timestamp at which that level was accepted. Readers rebuild the full
// timestamp from the current clock.
//
// PRECONDITION: a published timestamp can only be rebuilt correctly if it is
// read less than 2^31 ms (about 24.8 days) after it was written. The packed
// word carries no information that could detect a violation, so callers that
// may sleep longer than that (deep sleep, suspended hosts) must resample or
// recreate their inputs on wake.
package debounce

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/roach88/buttons/internal/config"
	"github.com/roach88/buttons/internal/hw"
)

const (
	timeBits = 31

	// Epoch is the span of the packed timestamp field, 2^31 ms.
	Epoch    = uint64(1) << timeBits
	timeMask = Epoch - 1
)

// The packed state must fit one native 32-bit atomic word.
var (
	wordProbe atomic.Uint32

	_ [unsafe.Sizeof(wordProbe) - 4]struct{}
	_ [4 - unsafe.Sizeof(wordProbe)]struct{}
)

// Debouncer filters one input.
//
// Sample must only be called by the sampler. IsDown and State are lock-free
// and safe to call from any goroutine at any time.
type Debouncer struct {
	clock       hw.Clock
	thresholdMs int32
	stepMs      int32

	// integrator counts milliseconds of agreement, clamped to
	// [0, thresholdMs]. Owned by the sampler.
	integrator int32

	word  atomic.Uint32
	cache atomic.Pointer[decoded]
}

type decoded struct {
	word      uint32
	down      bool
	changedAt uint64
}

// New creates a debouncer that reports "up" as of the current clock reading.
//
// intervalMs is the sampler period and must evenly divide thresholdMs.
func New(clock hw.Clock, thresholdMs, intervalMs int) (*Debouncer, error) {
	if thresholdMs <= 0 {
		return nil, &config.ConfigError{
			Code:    config.ErrCodeNonPositive,
			Field:   "debounce_ms",
			Message: fmt.Sprintf("must be positive, got %d", thresholdMs),
		}
	}
	if intervalMs <= 0 {
		return nil, &config.ConfigError{
			Code:    config.ErrCodeNonPositive,
			Field:   "sample_interval_ms",
			Message: fmt.Sprintf("must be positive, got %d", intervalMs),
		}
	}
	if thresholdMs%intervalMs != 0 {
		return nil, &config.ConfigError{
			Code:    config.ErrCodeIndivisible,
			Field:   "sample_interval_ms",
			Message: fmt.Sprintf("%d ms does not evenly divide debounce_ms %d", intervalMs, thresholdMs),
		}
	}

	d := &Debouncer{
		clock:       clock,
		thresholdMs: int32(thresholdMs),
		stepMs:      int32(intervalMs),
	}
	d.publish(false, clock.NowMs())
	return d, nil
}

// Sample feeds one raw reading taken at nowMs.
//
// A pressed reading adds one interval to the integrator and a released one
// subtracts it. The debounced state flips to down only when the integrator
// saturates at the threshold, and back to up only when it drains to zero, so
// no transient shorter than the threshold is ever published.
func (d *Debouncer) Sample(rawDown bool, nowMs uint64) {
	published := d.word.Load()&1 == 1

	if rawDown {
		d.integrator += d.stepMs
		if d.integrator >= d.thresholdMs {
			d.integrator = d.thresholdMs
			if !published {
				d.publish(true, nowMs)
			}
		}
		return
	}

	d.integrator -= d.stepMs
	if d.integrator <= 0 {
		d.integrator = 0
		if published {
			d.publish(false, nowMs)
		}
	}
}

func (d *Debouncer) publish(down bool, nowMs uint64) {
	d.word.Store(Pack(down, nowMs))
}

// IsDown reports the debounced state.
func (d *Debouncer) IsDown() bool {
	down, _ := d.State()
	return down
}

// State reports the debounced state and the full-width time it was entered.
func (d *Debouncer) State() (down bool, changedAt uint64) {
	w := d.word.Load()
	if c := d.cache.Load(); c != nil && c.word == w {
		return c.down, c.changedAt
	}

	down, changedAt = Unpack(w, d.clock.NowMs())
	d.cache.Store(&decoded{word: w, down: down, changedAt: changedAt})
	return down, changedAt
}

// Pack combines a level and the low 31 bits of a timestamp into one word.
func Pack(down bool, ms uint64) uint32 {
	w := uint32(ms&timeMask) << 1
	if down {
		w |= 1
	}
	return w
}

// Unpack decodes a packed word, rebuilding the timestamp's high bits from
// nowMs. If the packed low bits are ahead of nowMs's low bits the field
// wrapped since the write, and one Epoch is subtracted.
//
// The result is exact for any original timestamp in (nowMs-Epoch, nowMs].
func Unpack(w uint32, nowMs uint64) (down bool, ms uint64) {
	low := uint64(w >> 1)
	hi := nowMs &^ timeMask
	if low > nowMs&timeMask {
		if hi < Epoch {
			// Written "after" nowMs with no earlier epoch to fall back to;
			// only reachable when the clock ran backwards.
			return w&1 == 1, low
		}
		hi -= Epoch
	}
	return w&1 == 1, hi | low
}

// Since returns nowMs - thenMs, or 0 if thenMs is later than nowMs.
func Since(nowMs, thenMs uint64) uint64 {
	if thenMs > nowMs {
		return 0
	}
	return nowMs - thenMs
}
