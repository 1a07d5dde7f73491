package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func TestRunCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "", "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestRunCommandNonExistentPath(t *testing.T) {
	_, err := execute(t, "", "run", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")
}

func TestRunCommandEmptyDir(t *testing.T) {
	out, err := execute(t, "", "run", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestRunCommandHarnessScenarios(t *testing.T) {
	out, err := execute(t, "", "run", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ regex_expansion")
	assert.Contains(t, out, "✓ unfielded_overflow")
	assert.Contains(t, out, "0 failed")
}

func TestRunCommandFilterJSON(t *testing.T) {
	out, err := execute(t, "", "--format", "json", "run", harnessScenarios, "--filter", "neg*")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, "negation", resp.Data.Scenarios[0].Name)
}

func TestRunCommandFailure(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "wrong.yaml"), []byte(`
name: wrong
postings:
  - {field: FOO, value: bar, ids: [uid1]}
tree: {op: eq, field: FOO, value: bar}
expect:
  ids: [uid9]
`), 0644))

	out, err := execute(t, "", "run", scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "Assertion failed: ids")
}

func TestRunCommandUpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0755))
	scenario := filepath.Join(scenarios, "simple.yaml")
	require.NoError(t, os.WriteFile(scenario, []byte(`
name: simple
query_id: q-simple
postings:
  - {field: FOO, value: bar, ids: [uid1]}
tree: {op: eq, field: FOO, value: bar}
expect:
  ids: [uid1]
`), 0644))

	out, err := execute(t, "", "run", scenario, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "golden updated")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "simple.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"query_id":"q-simple"`)
	assert.Contains(t, string(golden), `"ids":["uid1"]`)

	_, err = execute(t, "", "run", scenario)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "simple.golden"), []byte("{}"), 0644))
	out, err = execute(t, "", "run", scenario)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}
