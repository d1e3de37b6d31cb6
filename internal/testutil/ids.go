package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator hands out predictable run ids.
//
// Production code labels each simulation run with a UUIDv7; tests swap in
// this generator so logs and results stay byte-identical between runs.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator producing "<prefix>-1",
// "<prefix>-2", ... If prefix is empty, "test-run" is used.
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "test-run"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
