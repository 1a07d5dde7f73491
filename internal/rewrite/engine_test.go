package rewrite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/config"
	"github.com/roach88/qrewrite/internal/marker"
)

// applyPure runs rules and asserts the input tree is unchanged.
func applyPure(t *testing.T, tree ast.Node, cfg *config.Query, rules ...Rule) ast.Node {
	t.Helper()
	before := ast.Render(tree)
	beforeHash := ast.Fingerprint(tree)

	out, err := Apply(tree, rules, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, before, ast.Render(tree), "input tree was modified")
	assert.Equal(t, beforeHash, ast.Fingerprint(tree))
	return out
}

func identity() Rule {
	return NewRule("identity", func(node ast.Node, _ *config.Query, _ Metadata) (ast.Node, error) {
		return node, nil
	})
}

func sampleTree() ast.Node {
	return ast.NewAnd(
		ast.Eq("A", ast.String("x")),
		ast.Wrap(ast.NewOr(ast.Er("FOO", ".*bar"), ast.Er("FOO", "baz.*.*"))),
		marker.Wrap(marker.ExceededValue, ast.Er("BAR", "q.*")),
		ast.NewNot(ast.Eq("C", ast.Int(3))),
	)
}

func TestApply_NoOpRuleIsIdentity(t *testing.T) {
	tree := sampleTree()
	out := applyPure(t, tree, nil, identity())

	assert.Same(t, tree, out)
	assert.Equal(t, ast.Render(tree), ast.Render(out))
}

func TestApply_EmptyPipeline(t *testing.T) {
	tree := sampleTree()
	out := applyPure(t, tree, nil)
	assert.Same(t, tree, out)
}

func TestApply_BottomUpOrder(t *testing.T) {
	var visited []string
	record := NewRule("record", func(node ast.Node, _ *config.Query, _ Metadata) (ast.Node, error) {
		visited = append(visited, ast.Render(node))
		return node, nil
	})

	tree := ast.NewOr(ast.Eq("A", ast.Int(1)), ast.NewNot(ast.Eq("B", ast.Int(2))))
	applyPure(t, tree, nil, record)

	assert.Equal(t, []string{
		"A == 1",
		"B == 2",
		"!(B == 2)",
		"A == 1 || !(B == 2)",
	}, visited)
}

func TestApply_SkipsMarkerFlag(t *testing.T) {
	var visited []string
	record := NewRule("record", func(node ast.Node, _ *config.Query, _ Metadata) (ast.Node, error) {
		visited = append(visited, ast.Render(node))
		return node, nil
	})

	source := ast.Er("FOO", "bar.*")
	applyPure(t, marker.Wrap(marker.EvaluationOnly, source), nil, record)

	assert.Equal(t, []string{
		"FOO =~ 'bar.*'",
		"((_Eval_ = true) && (FOO =~ 'bar.*'))",
	}, visited)
}

func TestApply_RulesRunWholeTreeInOrder(t *testing.T) {
	var visited []string
	named := func(name string) Rule {
		return NewRule(name, func(node ast.Node, _ *config.Query, _ Metadata) (ast.Node, error) {
			if _, ok := node.(*ast.Comparison); ok {
				visited = append(visited, name+":"+ast.Render(node))
			}
			return node, nil
		})
	}

	tree := ast.NewAnd(ast.Eq("A", ast.Int(1)), ast.Eq("B", ast.Int(2)))
	applyPure(t, tree, nil, named("first"), named("second"))

	assert.Equal(t, []string{
		"first:A == 1", "first:B == 2",
		"second:A == 1", "second:B == 2",
	}, visited)
}

func TestApply_RuleOrderIsObservable(t *testing.T) {
	tree := ast.Er("FOO", ".*bar")

	pushThenDot := applyPure(t, tree, nil, RegexPushdown(), RegexDotAll())
	dotThenPush := applyPure(t, tree, nil, RegexDotAll(), RegexPushdown())

	assert.Equal(t, `((_Eval_ = true) && (FOO =~ '[\\s\\S]*bar'))`, ast.Render(pushThenDot))
	assert.Equal(t, `FOO =~ '[\\s\\S]*bar'`, ast.Render(dotThenPush))
}

func TestApply_UnchangedSubtreesShared(t *testing.T) {
	left := ast.NewOr(ast.Eq("A", ast.Int(1)), ast.Eq("B", ast.Int(2)))
	tree := ast.NewAnd(left, ast.Er("FOO", "x.*.*"))

	out := applyPure(t, tree, nil, RegexSimplify())
	and, ok := out.(*ast.And)
	require.True(t, ok)
	assert.Same(t, ast.Node(left), and.Children[0])
	assert.Equal(t, "FOO =~ 'x.*'", ast.Render(and.Children[1]))
}

func TestApply_RejectsMalformedInput(t *testing.T) {
	_, err := Apply(&ast.Or{Children: []ast.Node{ast.Eq("A", ast.Int(1))}}, []Rule{identity()}, nil, nil)
	require.Error(t, err)
	assert.True(t, ast.IsMalformed(err))
}

func TestApply_RejectsMalformedOutput(t *testing.T) {
	degenerate := NewRule("degenerate", func(node ast.Node, _ *config.Query, _ Metadata) (ast.Node, error) {
		if and, ok := node.(*ast.And); ok {
			return &ast.And{Children: and.Children[:1]}, nil
		}
		return node, nil
	})

	_, err := Apply(ast.NewAnd(ast.Eq("A", ast.Int(1)), ast.Eq("B", ast.Int(2))), []Rule{degenerate}, nil, nil)
	require.Error(t, err)
	assert.True(t, ast.IsMalformed(err))
	assert.Contains(t, err.Error(), "rule degenerate")
}

func TestApply_RuleError(t *testing.T) {
	boom := errors.New("boom")
	failing := NewRule("failing", func(ast.Node, *config.Query, Metadata) (ast.Node, error) {
		return nil, boom
	})

	_, err := Apply(ast.Eq("A", ast.Int(1)), []Rule{failing}, nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestApply_NilReplacementIsMalformed(t *testing.T) {
	nilRule := NewRule("nil", func(ast.Node, *config.Query, Metadata) (ast.Node, error) {
		return nil, nil
	})

	_, err := Apply(ast.Eq("A", ast.Int(1)), []Rule{nilRule}, nil, nil)
	require.Error(t, err)
	assert.True(t, ast.IsMalformed(err))
}

func TestApplyWithStats(t *testing.T) {
	tree := ast.NewAnd(ast.Er("FOO", "a.*.*"), ast.Er("BAR", "b.*?.*"))

	_, stats, err := ApplyWithStats(tree, []Rule{RegexSimplify(), identity()}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rewrites[RuleRegexSimplify])
	assert.Zero(t, stats.Rewrites["identity"])
}
