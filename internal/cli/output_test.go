package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	details := map[string]string{"file": "clicks.cue", "line": "4"}
	require.NoError(t, formatter.Error("E005", "patterns directory not found", details))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
	assert.Equal(t, "patterns directory not found", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("all good"))
	require.NoError(t, formatter.Error("E003", "no CUE files found", nil))
	require.NoError(t, formatter.Error("E004", "unreadable", "clicks.cue"))

	out := buf.String()
	assert.Contains(t, out, "all good\n")
	assert.Contains(t, out, "Error [E003]: no CUE files found\n")
	assert.Contains(t, out, "Details: clicks.cue")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Details:")))
}

func TestOutputFormatter_Report(t *testing.T) {
	tests := []struct {
		name       string
		failed     bool
		wantStatus string
	}{
		{"passed", false, "ok"},
		{"failed", true, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			require.NoError(t, formatter.Report(map[string]int{"total": 2}, tt.failed, "E_SCENARIO_FAILED", "1 scenario(s) failed"))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.NotNil(t, resp.Data)
			if tt.failed {
				require.NotNil(t, resp.Error)
				assert.Equal(t, "E_SCENARIO_FAILED", resp.Error.Code)
			} else {
				assert.Nil(t, resp.Error)
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(base))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "missing")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", base))))
}

func TestExitError(t *testing.T) {
	base := errors.New("boom")
	err := WrapExitError(ExitFailure, "scenario failed", base)

	assert.Equal(t, "scenario failed: boom", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "plain", NewExitError(ExitFailure, "plain").Error())
}
