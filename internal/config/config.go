// Package config holds the global timing knobs of the button system.
//
// Timing is a fixed set of named millisecond values. It is loaded once,
// validated, and handed to the registry before the first input is created;
// nothing reads it again after that.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Timing is the complete set of timing knobs, in milliseconds.
type Timing struct {
	// DebounceMs is how long a raw level must hold before it is accepted.
	DebounceMs int `yaml:"debounce_ms"`
	// SampleIntervalMs is the sampler period. Must divide DebounceMs.
	SampleIntervalMs int `yaml:"sample_interval_ms"`

	ClickUpLowMs    int `yaml:"click_up_low_ms"`
	ClickUpHighMs   int `yaml:"click_up_high_ms"`
	ClickDownLowMs  int `yaml:"click_down_low_ms"`
	ClickDownHighMs int `yaml:"click_down_high_ms"`

	RepeatDelayMs int `yaml:"repeat_delay_ms"`
	MediumPressMs int `yaml:"medium_press_ms"`
	LongPressMs   int `yaml:"long_press_ms"`
}

// Default returns the stock timing.
func Default() Timing {
	return Timing{
		DebounceMs:       5,
		SampleIntervalMs: 1,
		ClickUpLowMs:     50,
		ClickUpHighMs:    250,
		ClickDownLowMs:   50,
		ClickDownHighMs:  250,
		RepeatDelayMs:    300,
		MediumPressMs:    600,
		LongPressMs:      2500,
	}
}

// RepeatCadenceMs is the interval between auto-repeat clicks once the
// initial delay has passed.
func (t Timing) RepeatCadenceMs() int {
	return t.ClickUpLowMs + t.ClickDownLowMs
}

// Fields returns every knob with its YAML name, in declaration order.
func (t Timing) Fields() []Field {
	return []Field{
		{"debounce_ms", t.DebounceMs},
		{"sample_interval_ms", t.SampleIntervalMs},
		{"click_up_low_ms", t.ClickUpLowMs},
		{"click_up_high_ms", t.ClickUpHighMs},
		{"click_down_low_ms", t.ClickDownLowMs},
		{"click_down_high_ms", t.ClickDownHighMs},
		{"repeat_delay_ms", t.RepeatDelayMs},
		{"medium_press_ms", t.MediumPressMs},
		{"long_press_ms", t.LongPressMs},
	}
}

// Field is one named knob.
type Field struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Validate checks the timing for configuration errors.
//
// Every knob must be positive, the sample interval must divide the debounce
// threshold evenly, and each low bound must not exceed its high bound.
func (t Timing) Validate() error {
	for _, f := range t.Fields() {
		if f.Value <= 0 {
			return &ConfigError{
				Code:    ErrCodeNonPositive,
				Field:   f.Name,
				Message: fmt.Sprintf("must be positive, got %d", f.Value),
			}
		}
	}

	if t.DebounceMs%t.SampleIntervalMs != 0 {
		return &ConfigError{
			Code:    ErrCodeIndivisible,
			Field:   "sample_interval_ms",
			Message: fmt.Sprintf("%d ms does not evenly divide debounce_ms %d", t.SampleIntervalMs, t.DebounceMs),
		}
	}

	if t.ClickUpLowMs > t.ClickUpHighMs {
		return &ConfigError{
			Code:    ErrCodeInvertedRange,
			Field:   "click_up_low_ms",
			Message: fmt.Sprintf("%d exceeds click_up_high_ms %d", t.ClickUpLowMs, t.ClickUpHighMs),
		}
	}
	if t.ClickDownLowMs > t.ClickDownHighMs {
		return &ConfigError{
			Code:    ErrCodeInvertedRange,
			Field:   "click_down_low_ms",
			Message: fmt.Sprintf("%d exceeds click_down_high_ms %d", t.ClickDownLowMs, t.ClickDownHighMs),
		}
	}
	if t.MediumPressMs > t.LongPressMs {
		return &ConfigError{
			Code:    ErrCodeInvertedRange,
			Field:   "medium_press_ms",
			Message: fmt.Sprintf("%d exceeds long_press_ms %d", t.MediumPressMs, t.LongPressMs),
		}
	}

	return nil
}

// Parse decodes YAML timing over the defaults. Knobs absent from the
// document keep their default values; unknown keys are rejected.
func Parse(data []byte) (Timing, error) {
	t := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return t, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&t); err != nil {
		return Timing{}, fmt.Errorf("failed to parse timing YAML: %w", err)
	}

	if err := t.Validate(); err != nil {
		return Timing{}, err
	}
	return t, nil
}

// Load reads and validates a timing file.
func Load(path string) (Timing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Timing{}, fmt.Errorf("failed to read timing file: %w", err)
	}
	return Parse(data)
}

// ConfigError reports a timing value the system cannot run with.
type ConfigError struct {
	Code    ConfigErrorCode
	Field   string
	Message string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeNonPositive indicates a zero or negative knob.
	ErrCodeNonPositive ConfigErrorCode = "NON_POSITIVE"

	// ErrCodeIndivisible indicates the sample interval does not divide the
	// debounce threshold.
	ErrCodeIndivisible ConfigErrorCode = "INDIVISIBLE_INTERVAL"

	// ErrCodeInvertedRange indicates a low bound above its high bound.
	ErrCodeInvertedRange ConfigErrorCode = "INVERTED_RANGE"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Code, e.Field, e.Message)
}

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
