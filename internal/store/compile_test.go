package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/marker"
)

func TestCompileLookup(t *testing.T) {
	c := NewCompiler("")
	tests := []struct {
		name  string
		term  ast.Node
		where string
		args  []any
	}{
		{
			name:  "fielded regex",
			term:  ast.Er("FOO", "bar.*"),
			where: "field = ? AND value REGEXP ?",
			args:  []any{"FOO", "^(?:bar.*)$"},
		},
		{
			name:  "negated regex probes positive form",
			term:  ast.Nr("FOO", "bar.*"),
			where: "field = ? AND value REGEXP ?",
			args:  []any{"FOO", "^(?:bar.*)$"},
		},
		{
			name:  "not form",
			term:  ast.NewNot(ast.Wrap(ast.Er("FOO", "bar.*"))),
			where: "field = ? AND value REGEXP ?",
			args:  []any{"FOO", "^(?:bar.*)$"},
		},
		{
			name:  "unfielded equality",
			term:  ast.Eq("_ANYFIELD_", ast.String("bar1")),
			where: "value = ?",
			args:  []any{"bar1"},
		},
		{
			name:  "numeric range",
			term:  ast.Gt("NUM", ast.Int(3)),
			where: "field = ? AND CAST(value AS INTEGER) > ?",
			args:  []any{"NUM", int64(3)},
		},
		{
			name:  "string range",
			term:  ast.Le("NAME", ast.String("m")),
			where: "field = ? AND value <= ? COLLATE BINARY",
			args:  []any{"NAME", "m"},
		},
		{
			name:  "bounded range marker",
			term:  marker.Wrap(marker.BoundedRange, ast.NewAnd(ast.Le("NUM", ast.Int(5)), ast.Ge("NUM", ast.Int(1)))),
			where: "field = ? AND CAST(value AS INTEGER) >= ? AND CAST(value AS INTEGER) <= ?",
			args:  []any{"NUM", int64(1), int64(5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := c.CompileLookup(tt.term)
			require.NoError(t, err)
			assert.Equal(t, "SELECT field, value, uid FROM postings WHERE "+tt.where+
				" ORDER BY field ASC, value ASC, uid ASC COLLATE BINARY", q.SQL)
			assert.Equal(t, tt.args, q.Args)
		})
	}
}

func TestCompileLeaf(t *testing.T) {
	q, err := NewCompiler("").CompileLeaf(ast.Eq("FOO", ast.String("bar1")))
	require.NoError(t, err)

	assert.Equal(t, "SELECT DISTINCT uid FROM postings WHERE field = ? AND value = ? ORDER BY uid ASC COLLATE BINARY", q.SQL)
	assert.Equal(t, []any{"FOO", "bar1"}, q.Args)
	assert.NotContains(t, q.SQL, "bar1")
}

func TestCompile_Unsupported(t *testing.T) {
	c := NewCompiler("")
	for _, n := range []ast.Node{
		ast.NewOr(ast.Eq("A", ast.Int(1)), ast.Eq("B", ast.Int(2))),
		marker.Wrap(marker.EvaluationOnly, ast.Er("FOO", "x")),
		ast.Call("f", "g"),
	} {
		_, err := c.CompileLookup(n)
		assert.Error(t, err, ast.Render(n))
	}
}
