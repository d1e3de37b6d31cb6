package hw

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrSamplerRunning is returned by StartSampler when a sampler is already
// installed.
var ErrSamplerRunning = errors.New("sampler already running")

// Sampler installs and removes the periodic driver of the debouncers.
//
// StartSampler arranges for fn to be called every intervalMs milliseconds.
// fn is never invoked concurrently with itself. StopSampler blocks until no
// invocation of fn is in flight and no further invocation will start.
type Sampler interface {
	StartSampler(fn func(), intervalMs int) error
	StopSampler()
}

// TickerSampler drives the callback from a dedicated goroutine and a
// time.Ticker. It is the desktop stand-in for a hardware timer interrupt.
type TickerSampler struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTickerSampler creates a stopped sampler.
func NewTickerSampler() *TickerSampler {
	return &TickerSampler{}
}

// StartSampler starts the driver goroutine.
func (s *TickerSampler) StartSampler(fn func(), intervalMs int) error {
	if intervalMs <= 0 {
		return fmt.Errorf("sampler interval must be positive, got %d ms", intervalMs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return ErrSamplerRunning
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go run(fn, time.Duration(intervalMs)*time.Millisecond, s.stop, s.done)
	return nil
}

// StopSampler stops the driver and waits for the goroutine to exit.
// Stopping a stopped sampler is a no-op.
func (s *TickerSampler) StopSampler() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
	s.done = nil
}

// Running reports whether the driver goroutine is installed.
func (s *TickerSampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

func run(fn func(), interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			fn()
		}
	}
}
