package expand

import (
	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/lookup"
	"github.com/roach88/qrewrite/internal/marker"
)

// DefaultAnyField is the pseudo-field meaning "any field".
const DefaultAnyField = "_ANYFIELD_"

// Options controls term expansion.
type Options struct {
	// AnyField is the unfielded pseudo-field name.
	AnyField string

	// FailOnUnfieldedOverflow makes an unfielded term that matched more
	// fields than allowed a fatal UNFIELDED_OVERFLOW error instead of an
	// EXCEEDED_TERM marker.
	FailOnUnfieldedOverflow bool

	// OnTerm, if set, is called once per expanded term with its outcome.
	OnTerm func(term ast.Node, outcome Outcome)
}

// DefaultOptions returns the default expansion options.
func DefaultOptions() Options {
	return Options{
		AnyField:                DefaultAnyField,
		FailOnUnfieldedOverflow: true,
	}
}

// Outcome describes how a term was resolved.
type Outcome string

const (
	// OutcomeExpanded means every contributing field was enumerated.
	OutcomeExpanded Outcome = "expanded"

	// OutcomePartial means at least one field was marked and at least one
	// was enumerated.
	OutcomePartial Outcome = "partial"

	// OutcomeExceededValue means every contributing field was marked.
	OutcomeExceededValue Outcome = "exceeded_value"

	// OutcomeExceededTerm means the field threshold was exceeded.
	OutcomeExceededTerm Outcome = "exceeded_term"

	// OutcomeEmpty means nothing matched and literal true was emitted.
	OutcomeEmpty Outcome = "empty"

	// OutcomePreserved means the original negated regex was kept verbatim.
	OutcomePreserved Outcome = "preserved"
)

// term is a classified expandable node.
type term struct {
	node      ast.Node        // original node, returned verbatim when preserved
	cmp       *ast.Comparison // the comparison, or the lower bound of a range
	upper     *ast.Comparison // upper bound of a bounded range
	bounded   bool            // node is already a BOUNDED_RANGE marker
	notForm   bool            // node is Not(comparison)
	negated   bool            // leaves are != and combine with And
	unfielded bool
}

func (t *term) isRange() bool { return t.upper != nil }

// regex reports whether the term tests a regex.
func (t *term) regex() bool { return t.cmp.Op.IsRegex() }

// source rebuilds the original term shape on field f.
func (t *term) source(f string) ast.Node {
	if t.isRange() {
		if t.bounded && f == t.cmp.Field {
			return marker.Source(t.node)
		}
		return ast.NewAnd(ast.WithField(t.cmp, f), ast.WithField(t.upper, f))
	}
	c := t.cmp
	if f != c.Field {
		c = ast.WithField(c, f)
	}
	if t.notForm {
		return ast.NewNot(ast.Wrap(c))
	}
	return c
}

// Expandable reports whether node is a term expansion applies to.
func Expandable(node ast.Node, opts Options) bool {
	_, ok := classify(node, opts)
	return ok
}

func classify(node ast.Node, opts Options) (*term, bool) {
	anyField := opts.AnyField
	if anyField == "" {
		anyField = DefaultAnyField
	}

	if inst, ok := marker.Find(node); ok {
		if inst.Kind != marker.BoundedRange {
			return nil, false
		}
		lo, hi, ok := BoundedPair(inst.Source)
		if !ok {
			return nil, false
		}
		return &term{node: node, cmp: lo, upper: hi, bounded: true, unfielded: lo.Field == anyField}, true
	}

	switch n := node.(type) {
	case *ast.Comparison:
		if n.Field == anyField || n.Op.IsRegex() || n.Op.IsRange() {
			return &term{node: node, cmp: n, negated: n.Op.IsNegated(), unfielded: n.Field == anyField}, true
		}
	case *ast.Not:
		c, ok := ast.StripGroups(n.Child).(*ast.Comparison)
		if !ok {
			return nil, false
		}
		if c.Field == anyField || c.Op == ast.ER || c.Op.IsRange() {
			return &term{node: node, cmp: c, notForm: true, negated: true, unfielded: c.Field == anyField}, true
		}
	case *ast.And:
		if lo, hi, ok := BoundedPair(n); ok {
			return &term{node: node, cmp: lo, upper: hi, unfielded: lo.Field == anyField}, true
		}
	}
	return nil, false
}

// BoundedPair matches a two-child conjunction of a lower and an upper
// bound on the same field, returning the bounds in that order.
func BoundedPair(n ast.Node) (lo, hi *ast.Comparison, ok bool) {
	and, isAnd := ast.StripGroups(n).(*ast.And)
	if !isAnd || len(and.Children) != 2 {
		return nil, nil, false
	}
	a, okA := ast.StripGroups(and.Children[0]).(*ast.Comparison)
	b, okB := ast.StripGroups(and.Children[1]).(*ast.Comparison)
	if !okA || !okB || a.Field != b.Field {
		return nil, nil, false
	}
	switch {
	case a.Op.IsLowerBound() && b.Op.IsUpperBound():
		return a, b, true
	case a.Op.IsUpperBound() && b.Op.IsLowerBound():
		return b, a, true
	}
	return nil, nil, false
}

// Term expands a single term against its index lookup result.
// Nodes that are not expandable are returned unchanged.
//
// Fatal conditions:
//   - CONFIG_INVALID when a non-positive limit governs present entries
//   - UNFIELDED_OVERFLOW when an unfielded term exceeds the field limit and
//     Options.FailOnUnfieldedOverflow is set
//
// Term never returns a partially expanded tree together with an error.
func Term(node ast.Node, m *lookup.Map, opts Options) (ast.Node, error) {
	out, _, err := TermWithOutcome(node, m, opts)
	return out, err
}

// TermWithOutcome is Term that also reports how the term was resolved.
// The outcome is empty for nodes that are not expandable.
func TermWithOutcome(node ast.Node, m *lookup.Map, opts Options) (ast.Node, Outcome, error) {
	t, ok := classify(node, opts)
	if !ok {
		return node, "", nil
	}
	if m == nil {
		m = lookup.New(1, 1)
	}
	if err := m.Validate(); err != nil {
		return nil, "", err
	}

	out, outcome, err := expandTerm(t, m, opts)
	if err != nil {
		return nil, "", err
	}
	if opts.OnTerm != nil {
		opts.OnTerm(node, outcome)
	}
	return out, outcome, nil
}

func expandTerm(t *term, m *lookup.Map, opts Options) (ast.Node, Outcome, error) {
	if m.IsKeyThresholdExceeded() {
		if t.negated && t.regex() && m.ValueCount() == 0 {
			return t.node, OutcomePreserved, nil
		}
		if t.unfielded && opts.FailOnUnfieldedOverflow {
			return nil, "", ast.Errorf(ast.ErrCodeUnfieldedOverflow, t.node,
				"unfielded term matched %d fields, limit is %d", m.Len(), m.MaxFields())
		}
		return marker.Wrap(marker.ExceededTerm, t.node), OutcomeExceededTerm, nil
	}

	fields := m.Fields()
	if !t.unfielded {
		fields = []string{t.cmp.Field}
	}

	var children []ast.Node
	marked, enumerated := 0, 0
	for _, f := range fields {
		vi := m.Get(f)
		if vi.IsThresholdExceeded() {
			children = append(children, exceeded(t, f))
			marked++
			continue
		}
		for _, v := range vi.Values() {
			children = append(children, leaf(t, f, v))
			enumerated++
		}
	}

	switch {
	case len(children) == 0:
		return ast.True(), OutcomeEmpty, nil
	case marked > 0 && enumerated > 0:
		return join(t, children), OutcomePartial, nil
	case marked > 0:
		return join(t, children), OutcomeExceededValue, nil
	default:
		return join(t, children), OutcomeExpanded, nil
	}
}

// exceeded marks the term on one field whose values overflowed.
func exceeded(t *term, f string) ast.Node {
	if t.isRange() {
		if t.bounded && f == t.cmp.Field {
			return t.node
		}
		return marker.Wrap(marker.BoundedRange, t.source(f))
	}
	return marker.Wrap(marker.ExceededValue, t.source(f))
}

// leaf builds the concrete equality for one discovered value.
func leaf(t *term, f, v string) ast.Node {
	if t.negated {
		return ast.Ne(f, ast.String(v))
	}
	return ast.Eq(f, ast.String(v))
}

// join combines leaves with the junction implied by the term's polarity.
// A single child is returned bare; junctions are wrapped in a Group.
func join(t *term, children []ast.Node) ast.Node {
	if len(children) == 1 {
		return children[0]
	}
	if t.negated {
		return ast.Wrap(ast.NewAnd(children...))
	}
	return ast.Wrap(ast.NewOr(children...))
}
