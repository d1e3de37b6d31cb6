package hw

import (
	"fmt"
	"sync"
)

// Polarity says which electrical level means "pressed".
type Polarity int

const (
	// DownIsHigh inputs pull low at rest and read high while pressed.
	DownIsHigh Polarity = iota + 1
	// DownIsLow inputs pull high at rest and read low while pressed.
	DownIsLow
)

// IsDown converts a raw pin level to a logical pressed state.
func (p Polarity) IsDown(level bool) bool {
	if p == DownIsLow {
		return !level
	}
	return level
}

// RestLevel is the raw level the pin reads while released.
func (p Polarity) RestLevel() bool {
	return p == DownIsLow
}

func (p Polarity) String() string {
	switch p {
	case DownIsHigh:
		return "down_is_high"
	case DownIsLow:
		return "down_is_low"
	default:
		return fmt.Sprintf("polarity(%d)", int(p))
	}
}

// ParsePolarity accepts "high"/"down_is_high" and "low"/"down_is_low".
func ParsePolarity(s string) (Polarity, error) {
	switch s {
	case "high", "down_is_high", "":
		return DownIsHigh, nil
	case "low", "down_is_low":
		return DownIsLow, nil
	default:
		return 0, fmt.Errorf("unknown polarity %q", s)
	}
}

// Pins configures inputs and reads their raw levels.
//
// ReadPin is called from the sampler and must not block.
type Pins interface {
	ConfigurePin(hwID int, p Polarity) error
	ReadPin(hwID int) bool
}

// MemoryPins keeps pin levels in memory. Simulators and tests drive it with
// Set; keyboard or network front ends can do the same.
type MemoryPins struct {
	mu     sync.RWMutex
	levels map[int]bool
}

// NewMemoryPins creates an empty pin bank.
func NewMemoryPins() *MemoryPins {
	return &MemoryPins{levels: make(map[int]bool)}
}

// ConfigurePin parks the pin at its rest level.
func (m *MemoryPins) ConfigurePin(hwID int, p Polarity) error {
	if p != DownIsHigh && p != DownIsLow {
		return fmt.Errorf("pin %d: invalid polarity %v", hwID, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[hwID] = p.RestLevel()
	return nil
}

// ReadPin returns the pin's current level. Unknown pins read low.
func (m *MemoryPins) ReadPin(hwID int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.levels[hwID]
}

// Set drives a raw level onto the pin.
func (m *MemoryPins) Set(hwID int, level bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[hwID] = level
}
