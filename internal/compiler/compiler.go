// Package compiler turns declarative CUE pattern files into automaton
// definitions.
//
// A pattern file declares one or more patterns under the top-level
// "pattern" field:
//
//	pattern: double_tap: {
//		counters: 1
//		states: [
//			{arrows: [{to: 1, level: "up", input_at_least: timing.click_up_low_ms}]},
//			{arrows: [{to: 0, level: "down", actions: [{op: "inc", counter: 0}]}]},
//		]
//	}
//
// Every timing knob is in scope as timing.<yaml name>, filled from the
// timing the compiler was created with.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/buttons/internal/automaton"
	"github.com/roach88/buttons/internal/config"
)

// schemaSrc closes every pattern struct so typos fail instead of being
// ignored.
const schemaSrc = `
#Timing: {
	debounce_ms:        int & >0
	sample_interval_ms: int & >0
	click_up_low_ms:    int & >0
	click_up_high_ms:   int & >0
	click_down_low_ms:  int & >0
	click_down_high_ms: int & >0
	repeat_delay_ms:    int & >0
	medium_press_ms:    int & >0
	long_press_ms:      int & >0
}

#Action: {
	op:      "inc" | "add" | "sub" | "copy" | "set"
	counter: int & >=0
	value?:  int
	from?:   int & >=0
}

#Arrow: {
	to:              int
	source?:         int & >=0
	level?:          "up" | "down" | "any"
	input_at_most?:  int & >=0
	input_at_least?: int & >=0
	state_at_least?: int & >=0
	actions?: [...#Action]
}

#State: {
	arrows: [...#Arrow]
}

#Pattern: {
	counters: int & >=1
	states: [...#State]
}

timing: #Timing
`

// Compiler compiles pattern sources against one timing.
type Compiler struct {
	ctx     *cue.Context
	scope   cue.Value
	pattern cue.Value
}

// New creates a compiler whose pattern files see t as timing.*.
func New(t config.Timing) (*Compiler, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	knobs := make(map[string]int)
	for _, f := range t.Fields() {
		knobs[f.Name] = f.Value
	}
	scope := schema.FillPath(cue.ParsePath("timing"), knobs)
	if err := scope.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	return &Compiler{
		ctx:     ctx,
		scope:   scope,
		pattern: scope.LookupPath(cue.ParsePath("#Pattern")),
	}, nil
}

// CompileSource compiles every pattern in one file. It returns the
// patterns that compiled, in declaration order, and one error per pattern
// that did not.
func (c *Compiler) CompileSource(filename string, src []byte) ([]*automaton.Definition, []error) {
	v := c.ctx.CompileBytes(src, cue.Filename(filename), cue.Scope(c.scope))
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	patternsVal := v.LookupPath(cue.ParsePath("pattern"))
	if !patternsVal.Exists() {
		return nil, []error{&CompileError{
			Field:   "pattern",
			Message: "no patterns defined",
			Pos:     v.Pos(),
		}}
	}

	iter, err := patternsVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var defs []*automaton.Definition
	var errs []error
	for iter.Next() {
		def, err := c.CompilePattern(iter.Label(), iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		defs = append(defs, def)
	}
	return defs, errs
}

// CompilePattern compiles one pattern struct.
func (c *Compiler) CompilePattern(name string, v cue.Value) (*automaton.Definition, error) {
	v = v.Unify(c.pattern)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	field := "pattern." + name

	counters, err := v.LookupPath(cue.ParsePath("counters")).Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}

	statesIter, err := v.LookupPath(cue.ParsePath("states")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var stateVals []cue.Value
	for statesIter.Next() {
		stateVals = append(stateVals, statesIter.Value())
	}

	states := make([]automaton.State, 0, len(stateVals))
	for i, sv := range stateVals {
		arrows, err := parseArrows(fmt.Sprintf("%s.states[%d]", field, i), sv, len(stateVals))
		if err != nil {
			return nil, err
		}
		states = append(states, automaton.NewState(arrows...))
	}

	def, err := automaton.NewDefinition(name, int(counters), states...)
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: err.Error(),
			Pos:     v.Pos(),
			Err:     err,
		}
	}
	return def, nil
}

func parseArrows(field string, state cue.Value, numStates int) ([]automaton.Arrow, error) {
	iter, err := state.LookupPath(cue.ParsePath("arrows")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var arrows []automaton.Arrow
	for j := 0; iter.Next(); j++ {
		av := iter.Value()
		arrowField := fmt.Sprintf("%s.arrows[%d]", field, j)

		to, err := av.LookupPath(cue.ParsePath("to")).Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if to < 0 || int(to) >= numStates {
			return nil, &CompileError{
				Field:   arrowField + ".to",
				Message: fmt.Sprintf("destination %d out of range [0, %d)", to, numStates),
				Pos:     av.LookupPath(cue.ParsePath("to")).Pos(),
			}
		}
		a := automaton.To(int(to))

		if sv := av.LookupPath(cue.ParsePath("source")); sv.Exists() {
			src, err := sv.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			a = a.From(int(src))
		}

		if lv := av.LookupPath(cue.ParsePath("level")); lv.Exists() {
			level, err := lv.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			switch level {
			case "up":
				a = a.Up()
			case "down":
				a = a.Down()
			}
		}

		a, err = parseTimeBound(arrowField, av, a)
		if err != nil {
			return nil, err
		}

		if acts := av.LookupPath(cue.ParsePath("actions")); acts.Exists() {
			actIter, err := acts.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for k := 0; actIter.Next(); k++ {
				act, err := parseAction(fmt.Sprintf("%s.actions[%d]", arrowField, k), actIter.Value())
				if err != nil {
					return nil, err
				}
				a = a.Do(act)
			}
		}

		arrows = append(arrows, a)
	}
	return arrows, nil
}

var timeBounds = []struct {
	label string
	apply func(automaton.Arrow, int64) automaton.Arrow
}{
	{"input_at_most", automaton.Arrow.InputAtMost},
	{"input_at_least", automaton.Arrow.InputAtLeast},
	{"state_at_least", automaton.Arrow.StateAtLeast},
}

// parseTimeBound applies the arrow's time predicate. An arrow carries at
// most one.
func parseTimeBound(field string, av cue.Value, a automaton.Arrow) (automaton.Arrow, error) {
	found := ""
	for _, tb := range timeBounds {
		bv := av.LookupPath(cue.ParsePath(tb.label))
		if !bv.Exists() {
			continue
		}
		if found != "" {
			return a, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("%s and %s are exclusive", found, tb.label),
				Pos:     bv.Pos(),
			}
		}
		ms, err := bv.Int64()
		if err != nil {
			return a, formatCUEError(err)
		}
		a = tb.apply(a, ms)
		found = tb.label
	}
	return a, nil
}

func parseAction(field string, v cue.Value) (automaton.Action, error) {
	op, err := v.LookupPath(cue.ParsePath("op")).String()
	if err != nil {
		return automaton.Action{}, formatCUEError(err)
	}
	counter, err := v.LookupPath(cue.ParsePath("counter")).Int64()
	if err != nil {
		return automaton.Action{}, formatCUEError(err)
	}

	operand := func(label string) (int, error) {
		ov := v.LookupPath(cue.ParsePath(label))
		if !ov.Exists() {
			return 0, &CompileError{
				Field:   field + "." + label,
				Message: fmt.Sprintf("%s is required for op %q", label, op),
				Pos:     v.Pos(),
			}
		}
		n, err := ov.Int64()
		if err != nil {
			return 0, formatCUEError(err)
		}
		return int(n), nil
	}

	c := int(counter)
	switch op {
	case "inc":
		return automaton.Increment(c), nil
	case "add", "sub", "set":
		n, err := operand("value")
		if err != nil {
			return automaton.Action{}, err
		}
		switch op {
		case "add":
			return automaton.Add(c, n), nil
		case "sub":
			return automaton.Sub(c, n), nil
		}
		return automaton.Set(c, n), nil
	case "copy":
		src, err := operand("from")
		if err != nil {
			return automaton.Action{}, err
		}
		return automaton.Copy(c, src), nil
	}
	return automaton.Action{}, &CompileError{
		Field:   field + ".op",
		Message: fmt.Sprintf("unknown op %q", op),
		Pos:     v.Pos(),
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Err }

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
