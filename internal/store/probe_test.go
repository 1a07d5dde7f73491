package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/expand"
	"github.com/roach88/qrewrite/internal/intersect"
	"github.com/roach88/qrewrite/internal/marker"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	require.NoError(t, s.Load(context.Background(), []Posting{
		{Field: "FOO", Value: "bar1", IDs: []string{"uid0", "uid1"}},
		{Field: "FOO", Value: "bar2", IDs: []string{"uid2"}},
		{Field: "FOO", Value: "bar3", IDs: []string{"uid3"}},
		{Field: "FOO", Value: "xbar", IDs: []string{"uid4"}},
		{Field: "BAZ", Value: "bar9", IDs: []string{"uid5"}},
		{Field: "NUM", Value: "2", IDs: []string{"uid0"}},
		{Field: "NUM", Value: "7", IDs: []string{"uid1"}},
	}))
	return s
}

func TestLookup_Fielded(t *testing.T) {
	s := seededStore(t)
	m, err := s.Lookup(context.Background(), NewCompiler(""), ast.Er("FOO", "bar.*"), Limits{MaxFields: 500, MaxValues: 5000})
	require.NoError(t, err)

	assert.Equal(t, []string{"FOO"}, m.Fields())
	assert.Equal(t, []string{"bar1", "bar2", "bar3"}, m.Get("FOO").Values())
	assert.Equal(t, []string{"uid0", "uid1"}, m.Get("FOO").IDs("bar1").Strings())
}

func TestLookup_Unfielded(t *testing.T) {
	s := seededStore(t)
	m, err := s.Lookup(context.Background(), NewCompiler(""), ast.Er("_ANYFIELD_", "bar.*"), Limits{MaxFields: 1, MaxValues: 5000})
	require.NoError(t, err)

	assert.Equal(t, []string{"BAZ", "FOO"}, m.Fields())
	assert.True(t, m.IsKeyThresholdExceeded())
}

func TestProvider_DrivesExpansion(t *testing.T) {
	s := seededStore(t)
	p := s.Provider(NewCompiler(""), Limits{MaxFields: 500, MaxValues: 5000})

	out, err := expand.Tree(context.Background(), ast.Er("FOO", "bar.*"), p, expand.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "(FOO == 'bar1' || FOO == 'bar2' || FOO == 'bar3')", ast.Render(out))
}

func TestLeafSets(t *testing.T) {
	s := seededStore(t)
	rng := marker.Wrap(marker.BoundedRange, ast.NewAnd(ast.Ge("NUM", ast.Int(1)), ast.Le("NUM", ast.Int(5))))
	tree := ast.NewAnd(
		ast.Wrap(ast.NewOr(ast.Eq("FOO", ast.String("bar1")), ast.Eq("FOO", ast.String("bar2")))),
		ast.Ne("FOO", ast.String("bar2")),
		rng,
		marker.Wrap(marker.EvaluationOnly, ast.Er("BAZ", ".*9")),
	)

	leaves, err := s.LeafSets(context.Background(), NewCompiler(""), tree)
	require.NoError(t, err)

	assert.Equal(t, []string{"uid0", "uid1"}, leaves["FOO == 'bar1'"].Strings())
	assert.Equal(t, []string{"uid2"}, leaves["FOO == 'bar2'"].Strings())
	assert.Equal(t, []string{"uid0"}, leaves[intersect.Key(rng)].Strings())
	assert.NotContains(t, leaves, "NUM >= 1")

	ids, err := intersect.Intersect(tree, leaves)
	require.NoError(t, err)
	assert.Equal(t, []string{"uid0"}, ids.Strings())
}
