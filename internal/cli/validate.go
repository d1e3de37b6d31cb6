package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/buttons/internal/automaton"
	"github.com/roach88/buttons/internal/compiler"
)

// Validation issue codes not produced by the loader.
const (
	ErrCodeCompile = "E001"
	ErrCodeTiming  = "E006"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Files    int               `json:"files"`
	Patterns []PatternSummary  `json:"patterns"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// PatternSummary describes one compiled pattern.
type PatternSummary struct {
	Name     string `json:"name"`
	Counters int    `json:"counters"`
	States   int    `json:"states"`
}

// ValidationIssue is one problem found in a pattern directory.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

type validateOptions struct {
	*RootOptions
	Timing string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &validateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <patterns-dir>",
		Short: "Compile CUE pattern files and report problems",
		Long: `Compile every .cue file under a directory into patterns.

Each file declares patterns under "pattern: <name>: {...}" and may refer to
the timing knobs as timing.<knob>. Every problem is reported, not just the
first.

Exit codes:
  0 - All patterns compile
  1 - One or more patterns are invalid
  2 - Command error (missing directory, no files, bad timing file)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Timing, "timing", "", "timing YAML file (defaults when empty)")

	return cmd
}

func runValidate(opts *validateOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	logger := opts.Logger(cmd.ErrOrStderr())

	timing, err := loadTiming(opts.Timing)
	if err != nil {
		return outputValidateError(formatter, ErrCodeTiming, err.Error())
	}

	c, err := compiler.New(timing)
	if err != nil {
		return outputValidateError(formatter, ErrCodeTiming, err.Error())
	}

	res, errs := c.LoadDir(dir, compiler.LoadModeCollectAll)
	if res == nil {
		var loadErr *compiler.LoadError
		if len(errs) > 0 && errors.As(errs[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeCompile, errors.Join(errs...).Error())
	}

	logger.Debug("patterns loaded", "dir", dir, "files", res.FileCount, "patterns", len(res.Patterns))

	result := ValidationResult{
		Valid:    len(errs) == 0,
		Files:    res.FileCount,
		Patterns: summarize(res.Patterns),
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, toIssue(err))
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func summarize(defs []*automaton.Definition) []PatternSummary {
	out := make([]PatternSummary, 0, len(defs))
	for _, d := range defs {
		out = append(out, PatternSummary{Name: d.Name(), Counters: d.Counters(), States: d.NumStates()})
	}
	return out
}

// toIssue maps a loader or compiler error to an issue. Contract violations
// keep the engine's code.
func toIssue(err error) ValidationIssue {
	issue := ValidationIssue{Code: ErrCodeCompile, Message: err.Error()}

	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		issue.Message = fmt.Sprintf("%s: %s", ce.Field, ce.Message)
		if ce.Pos.IsValid() {
			issue.File = ce.Pos.Filename()
			issue.Line = ce.Pos.Line()
		}
	}

	var contract *automaton.ContractError
	var loadErr *compiler.LoadError
	switch {
	case errors.As(err, &contract):
		issue.Code = string(contract.Code)
	case errors.As(err, &loadErr):
		issue.Code = loadErr.Code
		issue.Message = loadErr.Message
	}
	return issue
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	for _, p := range result.Patterns {
		fmt.Fprintf(formatter.Writer, "  %s (%d counters, %d states)\n", p.Name, p.Counters, p.States)
	}
	fmt.Fprintf(formatter.Writer, "✓ %d pattern(s) valid in %d file(s)\n", len(result.Patterns), result.Files)
	return nil
}

// outputValidateError outputs a command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every issue found.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.JSON() {
		first := result.Errors[0]
		if err := formatter.Report(result, true, first.Code, first.Message); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range result.Errors {
		if issue.File != "" {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", filepath.Base(issue.File), issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}

	return exitErr
}
