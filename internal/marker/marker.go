// Package marker implements property markers: a structural convention for
// attaching a named boolean property to a subtree without changing its
// logical value.
//
// A marker is a conjunction of a synthetic flag assignment and its source:
//
//	((_Value_ = true) && (FOO =~ 'bar.*'))
//
// which is built as
//
//	Group(And(Group(Assignment(_Value_, true)), Group(source)))
//
// Detection is purely structural, so markers survive wire round-trips and
// rebuilds by rewrite rules. The flag may appear on either side of the
// conjunction and the outer Group layers are optional.
package marker

import (
	"github.com/roach88/qrewrite/internal/ast"
)

// Kind identifies a marker property.
type Kind int

const (
	// BoundedRange marks a two-sided range on one field. Evaluated as a
	// single opaque leaf.
	BoundedRange Kind = iota + 1

	// EvaluationOnly marks a subtree that cannot use the index and is
	// checked only against fetched documents.
	EvaluationOnly

	// ExceededValue marks a term whose per-field value expansion exceeded
	// the configured threshold.
	ExceededValue

	// ExceededTerm marks a term whose field expansion exceeded the
	// configured threshold.
	ExceededTerm

	// ExceededOr marks a disjunction too large to scan term by term.
	ExceededOr

	// Delayed marks a subtree whose index lookup is postponed.
	Delayed

	// IndexHole marks a subtree for which the index is known incomplete.
	IndexHole

	// Dropped marks a subtree removed from execution but kept for auditing.
	Dropped
)

// MaxDepth bounds the number of Group layers Find will unwrap in total.
const MaxDepth = 5

// maxOuterGroups bounds the Group layers unwrapped above the conjunction.
const maxOuterGroups = 2

var kindNames = map[Kind]string{
	BoundedRange:   "BOUNDED_RANGE",
	EvaluationOnly: "EVALUATION_ONLY",
	ExceededValue:  "EXCEEDED_VALUE",
	ExceededTerm:   "EXCEEDED_TERM",
	ExceededOr:     "EXCEEDED_OR",
	Delayed:        "DELAYED",
	IndexHole:      "INDEX_HOLE",
	Dropped:        "DROPPED",
}

var kindLabels = map[Kind]string{
	BoundedRange:   "_Bounded_",
	EvaluationOnly: "_Eval_",
	ExceededValue:  "_Value_",
	ExceededTerm:   "_Term_",
	ExceededOr:     "_List_",
	Delayed:        "_Delayed_",
	IndexHole:      "_Hole_",
	Dropped:        "_Drop_",
}

// All lists every marker kind in declaration order.
var All = []Kind{BoundedRange, EvaluationOnly, ExceededValue, ExceededTerm, ExceededOr, Delayed, IndexHole, Dropped}

// String returns the kind name, e.g. EXCEEDED_VALUE.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Label returns the flag name used in the tree, e.g. _Value_.
func (k Kind) Label() string {
	return kindLabels[k]
}

// KindByLabel resolves a flag name to a kind.
func KindByLabel(label string) (Kind, bool) {
	for k, l := range kindLabels {
		if l == label {
			return k, true
		}
	}
	return 0, false
}

// KindByName resolves a kind name such as EVALUATION_ONLY.
func KindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Instance is a detected marker.
type Instance struct {
	Kind   Kind
	Source ast.Node
}

// Wrap returns a new node encoding kind around source. The source is
// shared, not copied.
func Wrap(kind Kind, source ast.Node) ast.Node {
	return ast.Wrap(ast.NewAnd(
		ast.Wrap(ast.Assign(kind.Label(), ast.Bool(true))),
		ast.Wrap(source),
	))
}

// Find reports whether n is a marker and returns its outermost kind and
// exact source. Ordinary nodes, malformed marker shapes and shapes nested
// deeper than MaxDepth Group layers are not markers.
func Find(n ast.Node) (Instance, bool) {
	return FindWithDepth(n, MaxDepth)
}

// FindWithDepth is Find with an explicit bound on unwrapped Group layers.
func FindWithDepth(n ast.Node, maxDepth int) (Instance, bool) {
	if n == nil || maxDepth < 0 {
		return Instance{}, false
	}

	node, depth := ast.Unwrap(n, min(maxOuterGroups, maxDepth))
	and, ok := node.(*ast.And)
	if !ok || len(and.Children) != 2 {
		return Instance{}, false
	}

	for i, child := range and.Children {
		kind, layers, ok := flagKind(child, maxDepth-depth)
		if !ok {
			continue
		}
		source := and.Children[1-i]
		if ast.IsFlag(source) {
			return Instance{}, false
		}
		if g, ok := source.(*ast.Group); ok {
			if depth+layers+1 > maxDepth {
				return Instance{}, false
			}
			source = g.Child
		}
		if source == nil {
			return Instance{}, false
		}
		return Instance{Kind: kind, Source: source}, true
	}
	return Instance{}, false
}

// flagKind matches a flag child, unwrapping at most budget Group layers.
func flagKind(n ast.Node, budget int) (Kind, int, bool) {
	node, layers := ast.Unwrap(n, budget)
	a, ok := node.(*ast.Assignment)
	if !ok {
		return 0, 0, false
	}
	if b, ok := a.Value.(ast.Bool); !ok || !bool(b) {
		return 0, 0, false
	}
	kind, ok := KindByLabel(a.Name)
	return kind, layers, ok
}

// Is reports whether n is a marker of the given kind.
func Is(n ast.Node, kind Kind) bool {
	inst, ok := Find(n)
	return ok && inst.Kind == kind
}

// IsAnyOf reports whether n is a marker of any of the given kinds.
func IsAnyOf(n ast.Node, kinds ...Kind) bool {
	inst, ok := Find(n)
	if !ok {
		return false
	}
	for _, k := range kinds {
		if inst.Kind == k {
			return true
		}
	}
	return false
}

// Kinds lists the kinds of directly nested markers, outermost first.
func Kinds(n ast.Node) []Kind {
	var out []Kind
	for {
		inst, ok := Find(n)
		if !ok {
			return out
		}
		out = append(out, inst.Kind)
		n = inst.Source
	}
}

// Source returns the source of n if it is a marker, or n itself.
func Source(n ast.Node) ast.Node {
	if inst, ok := Find(n); ok {
		return inst.Source
	}
	return n
}

// Replace returns a copy of marker n with its source swapped for source.
// Outer Group layers, the flag node and the flag's side are kept, so the
// copy renders like n apart from the source. ok is false when n is not a
// marker.
func Replace(n, source ast.Node) (ast.Node, bool) {
	if _, ok := Find(n); !ok {
		return nil, false
	}
	return replace(n, source), true
}

func replace(n, source ast.Node) ast.Node {
	if g, ok := n.(*ast.Group); ok {
		return ast.Wrap(replace(g.Child, source))
	}
	and := n.(*ast.And)
	children := make([]ast.Node, 2)
	for i, child := range and.Children {
		if _, _, ok := flagKind(child, MaxDepth); ok {
			children[i] = child
			continue
		}
		if _, grouped := child.(*ast.Group); grouped {
			children[i] = ast.Wrap(source)
		} else {
			children[i] = source
		}
	}
	return ast.NewAnd(children...)
}
