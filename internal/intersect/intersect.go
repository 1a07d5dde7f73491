// Package intersect computes the document ids an expression tree selects
// from precomputed per-leaf id sets.
//
// Leaves are joined to their sets through Key. A leaf without a set is a
// clean miss and contributes the empty set. Index-invisible subtrees are
// skipped: they neither prune nor widen the result. A tree whose every
// constraint is skipped is unconstrained.
package intersect

import (
	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/marker"
	"github.com/roach88/qrewrite/internal/uid"
)

// Leaves maps the canonical key of a leaf to its matching ids.
type Leaves map[string]uid.Set

// Result is the outcome of evaluating a tree.
type Result struct {
	// IDs is the selected set. Empty when Unconstrained.
	IDs uid.Set

	// Unconstrained reports that no index-visible constraint applied, so
	// every candidate must be evaluated against documents.
	Unconstrained bool
}

// skipped kinds never prune the candidate set.
var skipped = []marker.Kind{
	marker.EvaluationOnly,
	marker.ExceededValue,
	marker.ExceededTerm,
	marker.Delayed,
	marker.IndexHole,
	marker.Dropped,
}

// Key returns the canonical join key of a leaf. Markers key on the
// rendering of a freshly wrapped marker so rebuilt markers with extra
// Group layers still resolve to the same set.
func Key(n ast.Node) string {
	return key(n, nil)
}

func key(n ast.Node, r *ast.Renderer) string {
	if inst, ok := marker.Find(n); ok {
		n = marker.Wrap(inst.Kind, inst.Source)
	}
	if r != nil {
		return r.Render(n)
	}
	return ast.Render(n)
}

// Evaluate computes the ids selected by node.
func Evaluate(node ast.Node, leaves Leaves) (Result, error) {
	if err := ast.Validate(node); err != nil {
		return Result{}, err
	}
	e := &evaluator{leaves: leaves, renderer: ast.NewRenderer()}

	if inner, negated := negation(node); negated {
		return Result{}, ast.Errorf(ast.ErrCodeUnsupportedNegation, inner, "negation has no positive sibling")
	}
	set, skip, err := e.eval(node)
	if err != nil {
		return Result{}, err
	}
	if skip {
		return Result{IDs: uid.New(), Unconstrained: true}, nil
	}
	return Result{IDs: set}, nil
}

// Intersect returns the ids selected by node, or the empty set when the
// tree is unconstrained.
func Intersect(node ast.Node, leaves Leaves) (uid.Set, error) {
	res, err := Evaluate(node, leaves)
	if err != nil {
		return nil, err
	}
	return res.IDs, nil
}

type evaluator struct {
	leaves   Leaves
	renderer *ast.Renderer
}

// eval returns the set for n, or skip for index-invisible subtrees.
func (e *evaluator) eval(n ast.Node) (set uid.Set, skip bool, err error) {
	if inst, ok := marker.Find(n); ok {
		switch {
		case inst.Kind == marker.BoundedRange:
			return e.lookup(n), false, nil
		case marker.IsAnyOf(n, skipped...):
			return nil, true, nil
		default:
			return e.eval(inst.Source)
		}
	}

	switch node := n.(type) {
	case *ast.Group:
		return e.eval(node.Child)
	case *ast.And:
		return e.and(node)
	case *ast.Or:
		return e.or(node)
	case *ast.Not:
		return nil, false, ast.Errorf(ast.ErrCodeUnsupportedNegation, node, "negation outside a conjunction")
	case *ast.Comparison:
		if node.Op.IsNegated() {
			return nil, false, ast.Errorf(ast.ErrCodeUnsupportedNegation, node, "negation outside a conjunction")
		}
		return e.lookup(node), false, nil
	case *ast.Function:
		if set, ok := e.leaves[key(node, e.renderer)]; ok {
			return set.Clone(), false, nil
		}
		return nil, true, nil
	case *ast.Literal:
		if b, ok := node.Value.(ast.Bool); ok && !bool(b) {
			return uid.New(), false, nil
		}
		return nil, true, nil
	}
	return nil, true, nil
}

func (e *evaluator) and(node *ast.And) (uid.Set, bool, error) {
	var positives, negatives []uid.Set
	if err := e.conjuncts(node, &positives, &negatives); err != nil {
		return nil, false, err
	}

	if len(positives) == 0 {
		if len(negatives) > 0 {
			return nil, false, ast.Errorf(ast.ErrCodeUnsupportedNegation, node, "negation has no positive sibling")
		}
		return nil, true, nil
	}
	return uid.Difference(uid.Intersect(positives...), negatives...), false, nil
}

// conjuncts collects the sets of node's children. Nested unmarked
// conjunctions are flattened into the same collection, so their
// negations subtract from the enclosing conjunction's positive base.
func (e *evaluator) conjuncts(node *ast.And, positives, negatives *[]uid.Set) error {
	for _, child := range node.Children {
		if nested, ok := conjunction(child); ok {
			if err := e.conjuncts(nested, positives, negatives); err != nil {
				return err
			}
			continue
		}
		if inner, negated := negation(child); negated {
			set, skip, err := e.eval(inner)
			if err != nil {
				return err
			}
			if !skip {
				*negatives = append(*negatives, set)
			}
			continue
		}
		set, skip, err := e.eval(child)
		if err != nil {
			return err
		}
		if !skip {
			*positives = append(*positives, set)
		}
	}
	return nil
}

func (e *evaluator) or(node *ast.Or) (uid.Set, bool, error) {
	var sets []uid.Set
	for _, child := range node.Children {
		if _, negated := negation(child); negated {
			return nil, false, ast.Errorf(ast.ErrCodeUnsupportedNegation, child, "negation inside a disjunction")
		}
		set, skip, err := e.eval(child)
		if err != nil {
			return nil, false, err
		}
		if !skip {
			sets = append(sets, set)
		}
	}
	if len(sets) == 0 {
		return nil, true, nil
	}
	return uid.Union(sets...), false, nil
}

// lookup returns a copy of the set keyed by n; a miss is the empty set.
func (e *evaluator) lookup(n ast.Node) uid.Set {
	if set, ok := e.leaves[key(n, e.renderer)]; ok {
		return set.Clone()
	}
	return uid.New()
}

// negation reports whether n is a negation and returns the positive form
// whose set is subtracted: the child of a Not, or the != / !~ comparison
// rewritten to == / =~.
func negation(n ast.Node) (ast.Node, bool) {
	if _, ok := marker.Find(n); ok {
		return nil, false
	}
	switch node := ast.StripGroups(n).(type) {
	case *ast.Not:
		return node.Child, true
	case *ast.Comparison:
		if node.Op.IsNegated() {
			return ast.Cmp(node.Field, node.Op.Positive(), node.Value), true
		}
	}
	return nil, false
}

// conjunction returns the And under n's Group layers, unless n is a marker.
func conjunction(n ast.Node) (*ast.And, bool) {
	if _, ok := marker.Find(n); ok {
		return nil, false
	}
	and, ok := ast.StripGroups(n).(*ast.And)
	return and, ok
}
