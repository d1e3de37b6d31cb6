package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")

const clickScenario = `
name: one_click
description: "A single click"
duration_ms: 600
inputs:
  - {name: a, hw: 4, patterns: [click_n]}
events:
  - {at: 100, input: a, level: down}
  - {at: 200, input: a, level: up}
assertions:
  - {type: clicks, input: a, pattern: click_n, count: %d}
`

func writeScenario(t *testing.T, dir, file string, count int) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(clickScenario, count)), 0644))
	return path
}

func executeSimulate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewSimulateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestSimulate_HarnessScenarios(t *testing.T) {
	out, err := executeSimulate(t, "text", harnessScenarios)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ single_click")
	assert.Contains(t, out, "✓ abab")
	assert.Contains(t, out, "  cross: abab_fast=0 abab_slow=1")
	assert.Contains(t, out, "  a: click_n=2 long_hold=0 medium_hold=0 repeat=0")
	assert.Contains(t, out, "Summary: 6 passed, 0 failed, 6 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestSimulate_Filter(t *testing.T) {
	out, err := executeSimulate(t, "text", harnessScenarios, "--filter", "single_*")
	require.NoError(t, err)
	assert.Contains(t, out, "Summary: 1 passed, 0 failed, 1 total")
}

func TestSimulate_Trace(t *testing.T) {
	file := filepath.Join(harnessScenarios, "single_click.yaml")

	out, err := executeSimulate(t, "text", file, "--trace")
	require.NoError(t, err)
	assert.Contains(t, out, "[2]    105ms a down")
	assert.Contains(t, out, "[7]    460ms a/click_n clicks=1")
}

func TestSimulate_JSON(t *testing.T) {
	file := filepath.Join(harnessScenarios, "single_click.yaml")

	out, err := executeSimulate(t, "json", file)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   SimulateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)

	sr := resp.Data.Scenarios[0]
	assert.Equal(t, "single_click", sr.Name)
	assert.Len(t, sr.RunID, 36)
	assert.Equal(t, 1, sr.Clicks["a"]["click_n"])
	assert.Empty(t, sr.Trace)
}

func TestSimulate_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong.yaml", 3)

	out, err := executeSimulate(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ one_click")
	assert.Contains(t, out, "Expected: 3 clicks from a/click_n")
	assert.Contains(t, out, "Summary: 0 passed, 1 failed, 1 total")
}

func TestSimulate_FailingScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong.yaml", 3)

	out, err := executeSimulate(t, "json", dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_SCENARIO_FAILED", resp.Error.Code)
}

func TestSimulate_LoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: x\n"), 0644))

	out, err := executeSimulate(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ bad.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestSimulate_MissingPath(t *testing.T) {
	_, err := executeSimulate(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSimulate_NoScenarios(t *testing.T) {
	out, err := executeSimulate(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestSimulate_Golden(t *testing.T) {
	dir := t.TempDir()
	file := writeScenario(t, dir, "one_click.yaml", 1)
	golden := filepath.Join(dir, "golden", "one_click.golden")

	// Without a golden file only assertions count.
	_, err := executeSimulate(t, "text", file)
	require.NoError(t, err)
	assert.NoFileExists(t, golden)

	_, err = executeSimulate(t, "text", file, "--update")
	require.NoError(t, err)
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"one_click"`)

	_, err = executeSimulate(t, "text", file)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"one_click","trace":[]}`), 0644))
	out, err := executeSimulate(t, "text", file)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match")
}
