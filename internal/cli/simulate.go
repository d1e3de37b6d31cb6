package cli

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/buttons/internal/harness"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
	Trace  bool   // include the full trace in the output
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name        string                    `json:"name"`
	File        string                    `json:"file"`
	RunID       string                    `json:"run_id,omitempty"`
	Pass        bool                      `json:"pass"`
	Clicks      map[string]map[string]int `json:"clicks,omitempty"`
	CrossClicks map[string]int            `json:"cross_clicks,omitempty"`
	Trace       []harness.TraceEvent      `json:"trace,omitempty"`
	Errors      []string                  `json:"errors,omitempty"`
}

// SimulateResult holds the overall result.
type SimulateResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml|dir>...",
		Short: "Replay input scenarios against the pattern engine",
		Long: `Replay scenario files on a simulated clock and check their assertions.

A scenario lists inputs, raw press/release events (optionally with contact
bounce) and the click totals or trace events they must produce. Directories
are searched for .yaml and .yml files.

When golden/<scenario-name>.golden exists next to a scenario file, the run's
trace must match it byte for byte. --update rewrites those files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  buttons simulate ./scenarios
  buttons simulate ./scenarios --filter "abab*"
  buttons simulate double_click.yaml --trace
  buttons simulate ./scenarios --update --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print the full trace of every scenario")

	return cmd
}

func runSimulate(opts *SimulateOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	logger := opts.Logger(cmd.ErrOrStderr())

	var files []string
	for _, p := range paths {
		found, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			return outputSimulateError(formatter, err)
		}
		files = append(files, found...)
	}

	result := SimulateResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}

	if len(files) == 0 {
		if formatter.JSON() {
			return formatter.Success(result)
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	for _, file := range files {
		sr := simulateOne(file, opts, logger)
		if !formatter.JSON() {
			writeScenarioText(formatter.Writer, sr, opts)
		}
		if !opts.Trace {
			sr.Trace = nil
		}
		result.Scenarios = append(result.Scenarios, sr)

		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	var exitErr error
	if result.Failed > 0 {
		exitErr = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if formatter.JSON() {
		if err := formatter.Report(result, result.Failed > 0, "E_SCENARIO_FAILED", fmt.Sprintf("%d scenario(s) failed", result.Failed)); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer)
	fmt.Fprintf(formatter.Writer, "Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if exitErr == nil {
		fmt.Fprintln(formatter.Writer, "✓ All scenarios passed")
	}
	return exitErr
}

// findScenarioFiles returns path itself if it is a file, or every YAML file
// beneath it, sorted.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path not found: %s", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, p)
		return nil
	})
	sort.Strings(files)
	return files, err
}

// simulateOne loads and runs one scenario, then checks its golden trace.
func simulateOne(file string, opts *SimulateOptions, logger *slog.Logger) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.Run(scenario, harness.WithLogger(logger))
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}

	sr.RunID = result.RunID
	sr.Pass = result.Pass
	sr.Clicks = result.Clicks
	sr.CrossClicks = result.CrossClicks
	sr.Trace = result.Trace
	sr.Errors = result.Errors

	if err := checkGolden(file, scenario.Name, result, opts.Update); err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, err.Error())
	}
	return sr
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile, name string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// checkGolden compares the trace with the scenario's golden file, or
// rewrites it when update is set. A missing golden file is not an error.
func checkGolden(scenarioFile, name string, result *harness.Result, update bool) error {
	data, err := harness.MarshalTrace(name, result)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}

	path := goldenFilePath(scenarioFile, name)
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}

	golden, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(golden, data) {
		return fmt.Errorf("trace does not match %s (run with --update to regenerate)", path)
	}
	return nil
}

func writeScenarioText(w io.Writer, sr ScenarioResult, opts *SimulateOptions) {
	mark := "✓"
	if !sr.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s\n", mark, sr.Name)

	for _, input := range sortedKeys(sr.Clicks) {
		fmt.Fprintf(w, "  %s:%s\n", input, formatTotals(sr.Clicks[input]))
	}
	if len(sr.CrossClicks) > 0 {
		fmt.Fprintf(w, "  cross:%s\n", formatTotals(sr.CrossClicks))
	}

	if opts.Trace {
		for _, ev := range sr.Trace {
			fmt.Fprintf(w, "    %s\n", ev)
		}
	}

	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func formatTotals(totals map[string]int) string {
	var b strings.Builder
	for _, name := range sortedKeys(totals) {
		fmt.Fprintf(&b, " %s=%d", name, totals[name])
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func outputSimulateError(formatter *OutputFormatter, err error) error {
	_ = formatter.Error("E005", err.Error(), nil)
	return WrapExitError(ExitCommandError, "simulate", err)
}
