package expand

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/lookup"
	"github.com/roach88/qrewrite/internal/marker"
)

func fooProvider() *StaticProvider {
	m := lookup.New(500, 5000)
	m.Put("FOO", "bar1", "uid0")
	m.Put("FOO", "bar2", "uid1")
	return &StaticProvider{
		MaxFields: 500,
		MaxValues: 5000,
		Results:   map[string]*lookup.Map{"FOO =~ 'bar.*'": m},
	}
}

func TestTree_ExpandsNestedTerms(t *testing.T) {
	tree := ast.NewAnd(
		ast.Eq("BAZ", ast.String("x")),
		ast.Wrap(ast.Er("FOO", "bar.*")),
	)
	before := ast.Render(tree)

	out, err := Tree(context.Background(), tree, fooProvider(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "BAZ == 'x' && ((FOO == 'bar1' || FOO == 'bar2'))", ast.Render(out))
	assert.Equal(t, before, ast.Render(tree))
	assert.NoError(t, ast.Validate(out))
}

func TestTree_UnchangedSubtreesShared(t *testing.T) {
	left := ast.NewOr(ast.Eq("A", ast.Int(1)), ast.Eq("B", ast.Int(2)))
	tree := ast.NewAnd(left, ast.Er("FOO", "bar.*"))

	out, err := Tree(context.Background(), tree, fooProvider(), DefaultOptions())
	require.NoError(t, err)
	and, ok := out.(*ast.And)
	require.True(t, ok)
	assert.Same(t, ast.Node(left), and.Children[0])
}

func TestTree_NoExpandableTermsReturnsInput(t *testing.T) {
	tree := ast.NewAnd(ast.Eq("A", ast.Int(1)), ast.NewNot(ast.Eq("B", ast.Int(2))))

	out, err := Tree(context.Background(), tree, fooProvider(), DefaultOptions())
	require.NoError(t, err)
	assert.Same(t, ast.Node(tree), out)
}

func TestTree_MarkersLeftAlone(t *testing.T) {
	eval := marker.Wrap(marker.EvaluationOnly, ast.Er("FOO", "bar.*"))
	tree := ast.NewAnd(ast.Eq("A", ast.Int(1)), eval)

	out, err := Tree(context.Background(), tree, fooProvider(), DefaultOptions())
	require.NoError(t, err)
	assert.Same(t, ast.Node(tree), out)
}

func TestTree_RejectsMalformed(t *testing.T) {
	_, err := Tree(context.Background(), &ast.And{Children: []ast.Node{ast.Er("FOO", "bar.*")}}, fooProvider(), DefaultOptions())
	require.Error(t, err)
	assert.True(t, ast.IsMalformed(err))
}

func TestTree_ProviderError(t *testing.T) {
	boom := errors.New("index unavailable")
	p := ProviderFunc(func(context.Context, ast.Node) (*lookup.Map, error) { return nil, boom })

	_, err := Tree(context.Background(), ast.Er("FOO", "bar.*"), p, DefaultOptions())
	assert.ErrorIs(t, err, boom)
}

func TestTree_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Tree(ctx, ast.Er("FOO", "bar.*"), fooProvider(), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTree_MissingLookupYieldsTrue(t *testing.T) {
	out, err := Tree(context.Background(), ast.Er("OTHER", "x.*"), fooProvider(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "true", ast.Render(out))
}
