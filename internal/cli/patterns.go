package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/buttons/internal/automaton"
	"github.com/roach88/buttons/internal/compiler"
	"github.com/roach88/buttons/internal/config"
	"github.com/roach88/buttons/internal/patterns"
)

// PatternInfo describes one pattern and its arrows, state by state.
type PatternInfo struct {
	Name     string     `json:"name"`
	Scope    string     `json:"scope"` // "input", "cross" or "custom"
	Counters int        `json:"counters"`
	States   [][]string `json:"states"`
}

// PatternsResult is the output of the patterns command.
type PatternsResult struct {
	Timing   []config.Field `json:"timing"`
	Patterns []PatternInfo  `json:"patterns"`
}

type patternsOptions struct {
	*RootOptions
	Timing string
	Dir    string
}

// NewPatternsCommand creates the patterns command.
func NewPatternsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &patternsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Describe the stock pattern library",
		Long: `Print the stock patterns as built from the timing knobs: the per-input
click_n, medium_hold, long_hold and repeat, and the cross-input abab_slow
and abab_fast over inputs 1 and 2.

Each arrow is shown as ->dest, then its filters: src=<input id>, up or
down, a time bound (input<=, input>= or state>=, in ms), and the counter
actions it runs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatterns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Timing, "timing", "", "timing YAML file (defaults when empty)")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "also describe the CUE patterns in this directory")

	return cmd
}

func runPatterns(opts *patternsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	timing, err := loadTiming(opts.Timing)
	if err != nil {
		return outputValidateError(formatter, ErrCodeTiming, err.Error())
	}

	lib := patterns.NewLibrary(timing)
	result := PatternsResult{Timing: timing.Fields()}
	for _, d := range lib.Defaults() {
		result.Patterns = append(result.Patterns, describe(d, "input"))
	}
	for _, d := range lib.CrossDefaults() {
		result.Patterns = append(result.Patterns, describe(d, "cross"))
	}

	if opts.Dir != "" {
		c, err := compiler.New(timing)
		if err != nil {
			return outputValidateError(formatter, ErrCodeTiming, err.Error())
		}
		res, errs := c.LoadDir(opts.Dir, compiler.LoadModeFailFast)
		if len(errs) > 0 {
			issue := toIssue(errs[0])
			_ = formatter.Error(issue.Code, issue.Message, nil)
			return WrapExitError(ExitFailure, "patterns", errs[0])
		}
		for _, d := range res.Patterns {
			result.Patterns = append(result.Patterns, describe(d, "custom"))
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	writePatternsText(formatter.Writer, result)
	return nil
}

func describe(d *automaton.Definition, scope string) PatternInfo {
	info := PatternInfo{
		Name:     d.Name(),
		Scope:    scope,
		Counters: d.Counters(),
		States:   make([][]string, d.NumStates()),
	}
	for i := range info.States {
		arrows := d.Arrows(i)
		info.States[i] = make([]string, len(arrows))
		for j, a := range arrows {
			info.States[i][j] = a.String()
		}
	}
	return info
}

func writePatternsText(w io.Writer, result PatternsResult) {
	fmt.Fprintln(w, "timing:")
	for _, f := range result.Timing {
		fmt.Fprintf(w, "  %-20s %d\n", f.Name, f.Value)
	}

	for _, p := range result.Patterns {
		fmt.Fprintf(w, "\n%s (%s, %d counters)\n", p.Name, p.Scope, p.Counters)
		for i, arrows := range p.States {
			fmt.Fprintf(w, "  s%d:\n", i)
			for _, a := range arrows {
				fmt.Fprintf(w, "    %s\n", a)
			}
		}
	}
}
