package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrewrite/internal/ast"
)

func TestDefaultIsValid(t *testing.T) {
	q := Default()
	require.NoError(t, q.Validate())
	assert.Equal(t, 5000, q.MaxValueExpansion)
	assert.Equal(t, 500, q.MaxUnfieldedExpansion)
	assert.True(t, q.FailOnUnfieldedOverflow)
	assert.Equal(t, "_ANYFIELD_", q.AnyField)
}

func TestParseDefaults(t *testing.T) {
	q, err := Parse(`query: {}`)
	require.NoError(t, err)
	assert.Equal(t, Default().MaxValueExpansion, q.MaxValueExpansion)
	assert.Equal(t, Default().MaxUnfieldedExpansion, q.MaxUnfieldedExpansion)
	assert.Equal(t, Default().PushdownPatterns, q.PushdownPatterns)
	assert.Equal(t, Default().Rules, q.Rules)
	assert.Empty(t, q.IndexedFields)
}

func TestParseMissingQueryUsesDefaults(t *testing.T) {
	q, err := Parse(`other: 1`)
	require.NoError(t, err)
	assert.Equal(t, 5000, q.MaxValueExpansion)
}

func TestParseOverrides(t *testing.T) {
	q, err := Parse(`
		query: {
			max_value_expansion: 1
			max_unfielded_expansion: 2
			fail_on_unfielded_overflow: false
			rules: ["regex-dotall"]
			indexed_fields: ["FOO", "BAR"]
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, 1, q.MaxValueExpansion)
	assert.Equal(t, 2, q.MaxUnfieldedExpansion)
	assert.False(t, q.FailOnUnfieldedOverflow)
	assert.Equal(t, []string{"regex-dotall"}, q.Rules)
	assert.True(t, q.IsIndexed("FOO"))
	assert.False(t, q.IsIndexed("BAZ"))
}

func TestParseRejectsNonPositiveLimit(t *testing.T) {
	_, err := Parse(`query: max_value_expansion: 0`)
	require.Error(t, err)
	assert.True(t, ast.IsConfigError(err))
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse(`query: max_values: 10`)
	require.Error(t, err)
	assert.True(t, ast.IsConfigError(err))
}

func TestParseRejectsBadPattern(t *testing.T) {
	_, err := Parse(`query: pushdown_patterns: ["("]`)
	require.Error(t, err)
	assert.True(t, ast.IsConfigError(err))
	assert.Contains(t, err.Error(), "pushdown pattern")
}

func TestCompileValue(t *testing.T) {
	v := cuecontext.New().CompileString(`query: max_unfielded_expansion: 7`)
	require.NoError(t, v.Err())

	q, err := Compile(v.LookupPath(cue.ParsePath("query")))
	require.NoError(t, err)
	assert.Equal(t, 7, q.MaxUnfieldedExpansion)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qrewrite.cue")
	require.NoError(t, os.WriteFile(path, []byte("query: max_value_expansion: 3\n"), 0o644))

	q, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, q.MaxValueExpansion)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.True(t, ast.IsConfigError(err))
}

func TestPushdown(t *testing.T) {
	q := Default()
	assert.True(t, q.Pushdown(".*foo"))
	assert.True(t, q.Pushdown(".+foo"))
	assert.False(t, q.Pushdown("foo.*"))
}

func TestPushdown_ConcurrentFirstUse(t *testing.T) {
	q := &Query{PushdownPatterns: []string{`^\.\*`}}

	var wg sync.WaitGroup
	results := make([]bool, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = q.Pushdown(".*foo")
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.True(t, got)
	}
}

func TestPushdown_FollowsPatternChanges(t *testing.T) {
	q := Default()
	require.True(t, q.Pushdown(".*foo"))

	q.PushdownPatterns = []string{"^foo"}
	assert.False(t, q.Pushdown(".*foo"))
	assert.True(t, q.Pushdown("foo.*"))

	q.PushdownPatterns = []string{"("}
	assert.False(t, q.Pushdown("foo.*"))
}

func TestDefault_PatternsAreIndependent(t *testing.T) {
	a, b := Default(), Default()
	a.PushdownPatterns[0] = "^x"
	assert.True(t, b.Pushdown(".*foo"))
	assert.Equal(t, `^\.\*`, b.PushdownPatterns[0])
}

func TestLimitsFlowIntoLookup(t *testing.T) {
	q := Default()
	q.MaxValueExpansion = 2
	q.MaxUnfieldedExpansion = 3

	m := q.NewLookup()
	assert.Equal(t, 3, m.MaxFields())
	assert.Equal(t, 2, m.MaxValues())

	opts := q.ExpandOptions()
	assert.Equal(t, "_ANYFIELD_", opts.AnyField)
	assert.True(t, opts.FailOnUnfieldedOverflow)
}
