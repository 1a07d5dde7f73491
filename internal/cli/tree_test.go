package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTreeJSON = `{"op":"and","children":[{"op":"eq","field":"BAZ","value":"x"},{"op":"er","field":"FOO","value":"bar.*"}]}`

const invalidTreeJSON = `{"op":"and","children":[{"op":"eq","field":"BAZ","value":"x"}]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRender_JSONFile(t *testing.T) {
	path := writeFile(t, "query.json", validTreeJSON)

	out, err := execute(t, "", "render", path)
	require.NoError(t, err)
	assert.Equal(t, "BAZ == 'x' && FOO =~ 'bar.*'\n", out)
}

func TestRender_YAMLFile(t *testing.T) {
	path := writeFile(t, "query.yaml", `
op: or
children:
  - {op: eq, field: FOO, value: a}
  - {op: gt, field: AGE, value: 3}
`)

	out, err := execute(t, "", "render", path)
	require.NoError(t, err)
	assert.Equal(t, "FOO == 'a' || AGE > 3\n", out)
}

func TestRender_Stdin(t *testing.T) {
	out, err := execute(t, `{"op":"eq","field":"FOO","value":"bar"}`, "render", "-")
	require.NoError(t, err)
	assert.Equal(t, "FOO == 'bar'\n", out)
}

func TestRender_JSONOutput(t *testing.T) {
	path := writeFile(t, "query.json", `{"op":"group","children":[{"op":"and","children":[
		{"op":"group","children":[{"op":"assign","name":"_Value_","value":true}]},
		{"op":"group","children":[{"op":"er","field":"FOO","value":"bar.*"}]}]}]}`)

	out, err := execute(t, "", "--format", "json", "render", path)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   RenderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "((_Value_ = true) && (FOO =~ 'bar.*'))", resp.Data.Rendering)
	assert.NotEmpty(t, resp.Data.Fingerprint)
	assert.Equal(t, []string{"EXCEEDED_VALUE"}, resp.Data.Markers)
}

func TestRender_InvalidTree(t *testing.T) {
	path := writeFile(t, "query.json", invalidTreeJSON)

	out, err := execute(t, "", "render", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [MALFORMED_TREE]")
}

func TestRender_MissingFile(t *testing.T) {
	_, err := execute(t, "", "render", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "tree file not found")
}

func TestRender_Undecodable(t *testing.T) {
	path := writeFile(t, "query.json", `{"op":"eq",`)

	_, err := execute(t, "", "render", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_Valid(t *testing.T) {
	path := writeFile(t, "query.json", validTreeJSON)

	out, err := execute(t, "", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Tree is valid")
}

func TestValidate_Invalid(t *testing.T) {
	path := writeFile(t, "query.json", invalidTreeJSON)

	out, err := execute(t, "", "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	assert.Equal(t, "MALFORMED_TREE", resp.Data.Errors[0].Code)
}
