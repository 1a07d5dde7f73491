package store

import (
	"context"
	"fmt"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/expand"
	"github.com/roach88/qrewrite/internal/intersect"
	"github.com/roach88/qrewrite/internal/lookup"
	"github.com/roach88/qrewrite/internal/marker"
	"github.com/roach88/qrewrite/internal/uid"
)

// Limits bounds the lookup results built by a probe.
type Limits struct {
	MaxFields int
	MaxValues int
}

// Lookup probes the index for an expandable term and returns its lookup
// result, with fields and values in discovery order.
func (s *Store) Lookup(ctx context.Context, c *Compiler, term ast.Node, limits Limits) (*lookup.Map, error) {
	q, err := c.CompileLookup(term)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}

	rows, err := s.queryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", ast.Render(term), err)
	}
	defer rows.Close()

	m := lookup.New(limits.MaxFields, limits.MaxValues)
	for rows.Next() {
		var field, value, id string
		if err := rows.Scan(&field, &value, &id); err != nil {
			return nil, fmt.Errorf("lookup scan: %w", err)
		}
		m.Put(field, value, uid.ID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup rows: %w", err)
	}
	return m, nil
}

// Provider adapts the store to term expansion.
func (s *Store) Provider(c *Compiler, limits Limits) expand.Provider {
	return expand.ProviderFunc(func(ctx context.Context, term ast.Node) (*lookup.Map, error) {
		return s.Lookup(ctx, c, term, limits)
	})
}

// LeafSets probes every index-visible leaf of tree and returns the sets
// keyed the way the evaluator joins them. Negated comparisons are probed
// in their positive form, and bounded-range markers as one leaf.
func (s *Store) LeafSets(ctx context.Context, c *Compiler, tree ast.Node) (intersect.Leaves, error) {
	leaves := make(intersect.Leaves)
	var probe func(n ast.Node) error
	probe = func(n ast.Node) error {
		if inst, ok := marker.Find(n); ok {
			if inst.Kind == marker.BoundedRange {
				return s.probeLeaf(ctx, c, leaves, n)
			}
			return probe(inst.Source)
		}
		switch node := n.(type) {
		case *ast.Comparison:
			if node.Op.IsNegated() {
				return s.probeLeaf(ctx, c, leaves, ast.Cmp(node.Field, node.Op.Positive(), node.Value))
			}
			return s.probeLeaf(ctx, c, leaves, node)
		case *ast.Function, *ast.Literal:
			return nil
		}
		for _, child := range ast.Children(n) {
			if err := probe(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := probe(tree); err != nil {
		return nil, err
	}
	return leaves, nil
}

func (s *Store) probeLeaf(ctx context.Context, c *Compiler, leaves intersect.Leaves, leaf ast.Node) error {
	key := intersect.Key(leaf)
	if _, done := leaves[key]; done {
		return nil
	}

	q, err := c.CompileLeaf(leaf)
	if err != nil {
		return fmt.Errorf("leaf sets: %w", err)
	}
	rows, err := s.queryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("leaf sets %s: %w", key, err)
	}
	defer rows.Close()

	set := uid.New()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("leaf sets scan: %w", err)
		}
		set.Add(uid.ID(id))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("leaf sets rows: %w", err)
	}
	leaves[key] = set
	return nil
}
