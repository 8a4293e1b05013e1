package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: counter
description: two inserts
observers:
  - name: all
steps:
  - op: create
    table: todos
    record: { title: a }
  - op: create
    table: todos
    record: { title: b }
assertions:
  - type: trace_count
    observer: all
    count: 2
`

const failingScenario = `
name: broken
description: expects a missing row
steps:
  - op: find
    table: todos
    id: 1
`

func TestTest_PassesAndWritesGolden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", passingScenario)

	out := mustExecute(t, "test", dir, "--update")
	assert.Contains(t, out, "✓ counter (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "counter.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"counter"`)

	out = mustExecute(t, "test", dir)
	assert.Contains(t, out, "✓ counter")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")

	// A stale golden file fails the run.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "counter.golden"), []byte("{}"), 0o644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_Failures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", passingScenario)
	writeFile(t, dir, "broken.yaml", failingScenario)
	writeFile(t, dir, "typo.yml", "name: typo\ndescripton: x\nsteps: []\n")

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "unexpected error")
	assert.Contains(t, out, "✗ typo.yml")
	assert.Contains(t, out, "Test Summary: 1 passed, 2 failed, 3 total")
}

func TestTest_FilterAndJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", passingScenario)
	writeFile(t, dir, "broken.yaml", failingScenario)

	out := mustExecute(t, "test", dir, "--filter", "count*", "--format", "json")
	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "counter", resp.Data.Scenarios[0].Name)

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
}

func TestTest_RepositoryScenarios(t *testing.T) {
	dir := filepath.Join("..", "harness", "testdata")
	out := mustExecute(t, "test", filepath.Join(dir, "scenarios"), "--golden-dir", filepath.Join(dir, "golden"))
	assert.Contains(t, out, "✓ offline_todo")
	assert.Contains(t, out, "✓ blog_joins")
}

func TestTest_CommandErrors(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "test", t.TempDir(), "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out := mustExecute(t, "test", t.TempDir())
	assert.Contains(t, out, "No scenarios found.")
}
