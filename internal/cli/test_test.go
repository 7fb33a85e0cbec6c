package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: one_create
description: "A single create"
flow:
  - op: create
    expect: { case: ok, result: { persistent_id: 1 } }
`

const failingScenario = `name: wrong_id
description: "Expects the wrong id"
flow:
  - op: create
    expect: { case: ok, result: { persistent_id: 2 } }
`

func writeScenario(t *testing.T, dir, file, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.Empty(t, resp.Data.Scenarios)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	dir := filepath.Join("..", "harness", "testdata", "scenarios")

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ eviction_keeps_referenced")
	assert.Contains(t, out, "✓ lazy_load_and_give_up")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "one_create.yaml", passingScenario)
	writeScenario(t, dir, "wrong_id.yml", failingScenario)

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "one_*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "one_create.yaml", passingScenario)
	writeScenario(t, dir, "wrong_id.yml", failingScenario)
	writeScenario(t, dir, "broken.yaml", "name: broken\nflow: []\n")

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✓ one_create")
	assert.Contains(t, out, "✗ wrong_id")
	assert.Contains(t, out, "result.persistent_id: expected 2, got 1")
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
	assert.Contains(t, out, "Test Summary: 1 passed, 2 failed, 3 total")
}

func TestTestCommandFailureJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong_id.yaml", failingScenario)

	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeTestFailed, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommandGoldenUpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "one_create.yaml", passingScenario)

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ one_create (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "one_create.golden"))
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"one_create","trace":[{"op":"create","seq":1,"type":"invocation"},`+
			`{"output_case":"ok","result":{"persistent_id":1,"records":[1],"runtime_id":1},"seq":2,"type":"completion"}]}`,
		string(golden))

	_, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "one_create.yaml", passingScenario)
	writeScenario(t, filepath.Join(dir, "golden"), "one_create.golden", `{"scenario_name":"one_create","trace":[]}`)

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "x.golden"), goldenFilePath(filepath.Join("s", "x.yaml")))
}
