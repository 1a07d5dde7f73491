package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: basic
query_id: q-1
postings:
  - {field: FOO, value: bar, ids: [uid1]}
tree: {op: eq, field: FOO, value: bar}
expect:
  ids: [uid1]
`))
	require.NoError(t, err)
	assert.Equal(t, "basic", s.Name)
	assert.Equal(t, "q-1", s.QueryID)
	require.Len(t, s.Postings, 1)
	assert.Equal(t, []string{"uid1"}, s.Postings[0].IDs)
	assert.Equal(t, "eq", s.Tree.Op)
	assert.Equal(t, []string{"uid1"}, s.Expect.IDs)
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: basic
tree: {op: eq, field: FOO, value: bar}
flow_token: nope
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow_token")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: `tree: {op: eq, field: FOO, value: bar}`,
			want: "name is required",
		},
		{
			name: "missing tree",
			yaml: `name: x`,
			want: "tree is required",
		},
		{
			name: "posting without field",
			yaml: "name: x\ntree: {op: eq, field: FOO, value: bar}\npostings:\n  - {value: bar, ids: [uid1]}",
			want: "postings[0]: field is required",
		},
		{
			name: "posting without ids",
			yaml: "name: x\ntree: {op: eq, field: FOO, value: bar}\npostings:\n  - {field: FOO, value: bar}",
			want: "postings[0]: ids list is required",
		},
		{
			name: "error with ids",
			yaml: "name: x\ntree: {op: eq, field: FOO, value: bar}\nexpect: {error: MALFORMED_TREE, ids: [uid1]}",
			want: "error cannot be combined",
		},
		{
			name: "both configs",
			yaml: "name: x\ntree: {op: eq, field: FOO, value: bar}\nconfig: 'query: {}'\nconfig_file: q.cue",
			want: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_ResolvesConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "query.cue"), []byte("query: max_value_expansion: 1\n"), 0644))
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\nconfig_file: query.cue\ntree: {op: eq, field: FOO, value: bar}\n"), 0644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "query.cue"), s.ConfigFile)
}

func TestLoadScenario_MissingConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\nconfig_file: missing.cue\ntree: {op: eq, field: FOO, value: bar}\n"), 0644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
