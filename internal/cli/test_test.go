package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	scenarioDir = "../harness/testdata/scenarios"
	goldenDir   = "../harness/testdata/golden"
)

func TestTestCommand_Pass(t *testing.T) {
	out := mustRunCLI(t, "test", scenarioDir, "--golden", goldenDir)
	assert.Contains(t, out, "✓ status_update")
	assert.Contains(t, out, "✓ transfer_chain")
	assert.Contains(t, out, "Test Summary: 3 passed, 0 failed, 3 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	data := dataMap(t, decodeResponse(t, mustRunCLI(t, "test", scenarioDir, "--filter", "transfer_*", "--format", "json")))
	assert.Equal(t, float64(1), data["total"])
	scenarios := data["scenarios"].([]any)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "transfer_chain", scenarios[0].(map[string]any)["name"])
}

func TestTestCommand_UpdateWritesGolden(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "golden")

	mustRunCLI(t, "test", scenarioDir, "--golden", dir, "--update")

	got, err := os.ReadFile(filepath.Join(dir, "status_update.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(goldenDir, "status_update.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	mustRunCLI(t, "test", scenarioDir, "--golden", dir)
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "status_update.golden"), `{"trace":[]}`)

	out, err := runCLI(t, "test", scenarioDir, "--golden", dir, "--filter", "status_update")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "failing.yaml"), `
name: failing
description: "expects a 404 that does not happen"
principal: alice
flow:
  - invoke: Equipment.register
    args: {}
    expect:
      case: NotFound
assertions:
  - type: trace_count
    action: Equipment.register
    count: 1
`)

	out, err := runCLI(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, float64(1), dataMap(t, resp)["failed"])
}

func TestTestCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing path", []string{"test", filepath.Join(t.TempDir(), "nope")}},
		{"update without golden", []string{"test", scenarioDir, "--update"}},
		{"bad filter", []string{"test", scenarioDir, "--filter", "["}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out := mustRunCLI(t, "test", t.TempDir())
	assert.Contains(t, out, "No scenarios found.")
}
