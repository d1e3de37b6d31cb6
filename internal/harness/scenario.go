package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/buttons/internal/config"
	"github.com/roach88/buttons/internal/hw"
)

// DefaultPollMs is the application poll period when a scenario sets none.
const DefaultPollMs = 10

// Scenario defines one simulation run and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Timing overrides individual knobs of the default timing.
	Timing yaml.Node `yaml:"timing,omitempty"`

	// PatternsDir is a CUE pattern directory, relative to the scenario file.
	PatternsDir string `yaml:"patterns_dir,omitempty"`

	// PollMs is the application poll period. Must be a multiple of the
	// sample interval.
	PollMs int `yaml:"poll_ms,omitempty"`

	// DurationMs is the simulated run length.
	DurationMs int `yaml:"duration_ms"`

	Inputs     []InputSpec  `yaml:"inputs"`
	Cross      *CrossSpec   `yaml:"cross,omitempty"`
	Events     []InputEvent `yaml:"events"`
	Assertions []Assertion  `yaml:"assertions"`

	dir string
}

// InputSpec declares one input. Inputs get ids 1, 2, ... in order.
type InputSpec struct {
	Name     string   `yaml:"name"`
	HW       int      `yaml:"hw"`
	Polarity string   `yaml:"polarity,omitempty"`
	Patterns []string `yaml:"patterns,omitempty"`
}

// CrossSpec declares the cross-input patterns.
type CrossSpec struct {
	// Defaults attaches abab_slow and abab_fast over the first two inputs.
	Defaults bool `yaml:"defaults,omitempty"`

	// Patterns names compiled patterns to attach.
	Patterns []string `yaml:"patterns,omitempty"`

	Correlated []CorrelatedSpec `yaml:"correlated,omitempty"`
}

// CorrelatedSpec is a first-down, second-down, first-up, second-up pattern
// between two named inputs.
type CorrelatedSpec struct {
	First    string `yaml:"first"`
	Second   string `yaml:"second"`
	MinGapMs int    `yaml:"min_gap_ms"`
	MaxGapMs int    `yaml:"max_gap_ms"`
}

// InputEvent changes one input's raw level.
type InputEvent struct {
	At    int    `yaml:"at"`
	Input string `yaml:"input"`
	Level string `yaml:"level"`

	// BounceMs makes the contact chatter for this long, toggling every
	// sample interval, before it settles at Level.
	BounceMs int `yaml:"bounce_ms,omitempty"`
}

// Assertion validates the run's outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "clicks": total clicks read from an input's pattern
	// - "cross_clicks": total clicks read from a cross pattern
	// - "trace_contains": some transition of a pattern reached state To
	// - "trace_count": number of trace events of a kind
	// - "final_state": debounced state of an input at the end
	Type string `yaml:"type"`

	Input   string `yaml:"input,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`

	// Event filters trace_count: edge, transition (default) or click.
	Event string `yaml:"event,omitempty"`

	Count int   `yaml:"count,omitempty"`
	To    *int  `yaml:"to,omitempty"`
	Down  *bool `yaml:"down,omitempty"`
}

// Assertion type constants.
const (
	AssertClicks        = "clicks"
	AssertCrossClicks   = "cross_clicks"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// Level names used in events and traces.
const (
	LevelDown = "down"
	LevelUp   = "up"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// ParseScenario parses scenario YAML. Relative paths resolve against the
// working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// ResolveTiming returns the default timing with the scenario's overrides
// applied, validated.
func (s *Scenario) ResolveTiming() (config.Timing, error) {
	if s.Timing.Kind == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(&s.Timing)
	if err != nil {
		return config.Timing{}, fmt.Errorf("timing: %w", err)
	}
	return config.Parse(data)
}

func (s *Scenario) pollMs() int {
	if s.PollMs == 0 {
		return DefaultPollMs
	}
	return s.PollMs
}

func (s *Scenario) resolve(path string) string {
	if filepath.IsAbs(path) || s.dir == "" {
		return path
	}
	return filepath.Join(s.dir, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.DurationMs <= 0 {
		return fmt.Errorf("duration_ms must be positive")
	}

	if s.PollMs < 0 {
		return fmt.Errorf("poll_ms must not be negative")
	}

	if len(s.Inputs) == 0 {
		return fmt.Errorf("inputs list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	names := make(map[string]bool)
	for i, in := range s.Inputs {
		if in.Name == "" {
			return fmt.Errorf("inputs[%d]: name is required", i)
		}
		if in.Name == crossScope {
			return fmt.Errorf("inputs[%d]: name %q is reserved", i, in.Name)
		}
		if names[in.Name] {
			return fmt.Errorf("inputs[%d]: duplicate name %q", i, in.Name)
		}
		names[in.Name] = true
		if _, err := hw.ParsePolarity(in.Polarity); err != nil {
			return fmt.Errorf("inputs[%d]: %w", i, err)
		}
	}

	if s.Cross != nil {
		for i, c := range s.Cross.Correlated {
			if !names[c.First] || !names[c.Second] {
				return fmt.Errorf("cross.correlated[%d]: unknown input", i)
			}
		}
	}

	for i, ev := range s.Events {
		if !names[ev.Input] {
			return fmt.Errorf("events[%d]: unknown input %q", i, ev.Input)
		}
		if ev.Level != LevelDown && ev.Level != LevelUp {
			return fmt.Errorf("events[%d]: level must be %q or %q", i, LevelDown, LevelUp)
		}
		if ev.At < 0 || ev.At >= s.DurationMs {
			return fmt.Errorf("events[%d]: at %d outside [0, %d)", i, ev.At, s.DurationMs)
		}
		if ev.BounceMs < 0 {
			return fmt.Errorf("events[%d]: bounce_ms must not be negative", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, names); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, inputs map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Input != "" && !inputs[a.Input] {
		return fmt.Errorf("assertions[%d]: unknown input %q", index, a.Input)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertClicks:
		if a.Input == "" || a.Pattern == "" {
			return fmt.Errorf("assertions[%d]: input and pattern are required for clicks", index)
		}
	case AssertCrossClicks:
		if a.Pattern == "" {
			return fmt.Errorf("assertions[%d]: pattern is required for cross_clicks", index)
		}
	case AssertTraceContains:
		if a.Pattern == "" || a.To == nil {
			return fmt.Errorf("assertions[%d]: pattern and to are required for trace_contains", index)
		}
	case AssertTraceCount:
		switch a.Event {
		case "", EventTransition, EventEdge, EventClick:
		default:
			return fmt.Errorf("assertions[%d]: unknown event kind %q", index, a.Event)
		}
	case AssertFinalState:
		if a.Input == "" || a.Down == nil {
			return fmt.Errorf("assertions[%d]: input and down are required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
