package expand

import (
	"context"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/lookup"
	"github.com/roach88/qrewrite/internal/marker"
)

// Provider resolves the index lookup result for one expandable term.
type Provider interface {
	Lookup(ctx context.Context, term ast.Node) (*lookup.Map, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, term ast.Node) (*lookup.Map, error)

// Lookup calls f.
func (f ProviderFunc) Lookup(ctx context.Context, term ast.Node) (*lookup.Map, error) {
	return f(ctx, term)
}

// StaticProvider serves pre-built lookup results keyed by the rendering
// of the term. Terms without an entry resolve to an empty result.
type StaticProvider struct {
	MaxFields int
	MaxValues int
	Results   map[string]*lookup.Map
}

// Lookup implements Provider.
func (p *StaticProvider) Lookup(_ context.Context, term ast.Node) (*lookup.Map, error) {
	if m, ok := p.Results[ast.Render(term)]; ok {
		return m, nil
	}
	return lookup.New(p.MaxFields, p.MaxValues), nil
}

// Tree expands every expandable term in node, bottom-up, without
// modifying node. Markers other than BOUNDED_RANGE are left untouched
// together with their sources, as are functions.
func Tree(ctx context.Context, node ast.Node, provider Provider, opts Options) (ast.Node, error) {
	if err := ast.Validate(node); err != nil {
		return nil, err
	}
	e := &expander{ctx: ctx, provider: provider, opts: opts}
	return e.visit(node)
}

type expander struct {
	ctx      context.Context
	provider Provider
	opts     Options
}

func (e *expander) visit(n ast.Node) (ast.Node, error) {
	if Expandable(n, e.opts) {
		return e.term(n)
	}
	if _, ok := marker.Find(n); ok {
		return n, nil
	}

	switch node := n.(type) {
	case *ast.And:
		children, changed, err := e.visitAll(node.Children)
		if err != nil || !changed {
			return n, err
		}
		return ast.NewAnd(children...), nil
	case *ast.Or:
		children, changed, err := e.visitAll(node.Children)
		if err != nil || !changed {
			return n, err
		}
		return ast.NewOr(children...), nil
	case *ast.Not:
		child, err := e.visit(node.Child)
		if err != nil || child == node.Child {
			return n, err
		}
		return ast.NewNot(child), nil
	case *ast.Group:
		child, err := e.visit(node.Child)
		if err != nil || child == node.Child {
			return n, err
		}
		return ast.Wrap(child), nil
	}
	return n, nil
}

// visitAll visits children, reporting whether any was replaced.
func (e *expander) visitAll(children []ast.Node) ([]ast.Node, bool, error) {
	out := make([]ast.Node, len(children))
	changed := false
	for i, child := range children {
		next, err := e.visit(child)
		if err != nil {
			return nil, false, err
		}
		out[i] = next
		changed = changed || next != child
	}
	return out, changed, nil
}

func (e *expander) term(n ast.Node) (ast.Node, error) {
	if err := e.ctx.Err(); err != nil {
		return nil, err
	}
	m, err := e.provider.Lookup(e.ctx, n)
	if err != nil {
		return nil, err
	}
	return Term(n, m, e.opts)
}
