package ast

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the current node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, fn)
	}
}

// Identifiers returns the distinct field names referenced by comparisons
// and identifier arguments, in order of first appearance. Marker flag
// names are not fields and are excluded.
func Identifiers(n Node) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	Walk(n, func(node Node) bool {
		switch x := node.(type) {
		case *Comparison:
			add(x.Field)
		case *Identifier:
			add(x.Name)
		}
		return true
	})
	return out
}

// Literals returns every literal operand in pre-order: comparison values
// and literal function arguments. Marker flags are excluded.
func Literals(n Node) []Value {
	var out []Value
	Walk(n, func(node Node) bool {
		switch x := node.(type) {
		case *Comparison:
			out = append(out, x.Value)
		case *Literal:
			out = append(out, x.Value)
		}
		return true
	})
	return out
}

// Leaves returns every comparison in pre-order.
func Leaves(n Node) []*Comparison {
	var out []*Comparison
	Walk(n, func(node Node) bool {
		if c, ok := node.(*Comparison); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// WithField returns a copy of c with a different field name.
func WithField(c *Comparison, field string) *Comparison {
	return &Comparison{Field: field, Op: c.Op, Value: c.Value}
}

// Equivalent reports whether a and b are structurally equal, comparing
// the children of And and Or as multisets. Expansion emits junction
// children in discovery order, so tree comparisons must not depend on it.
func Equivalent(a, b Node) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case *And:
		y, ok := b.(*And)
		return ok && sameMultiset(x.Children, y.Children)
	case *Or:
		y, ok := b.(*Or)
		return ok && sameMultiset(x.Children, y.Children)
	case *Not:
		y, ok := b.(*Not)
		return ok && Equivalent(x.Child, y.Child)
	case *Group:
		y, ok := b.(*Group)
		return ok && Equivalent(x.Child, y.Child)
	case *Function:
		y, ok := b.(*Function)
		if !ok || x.Namespace != y.Namespace || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equivalent(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	default:
		if b == nil || ToWire(a).Op != ToWire(b).Op {
			return false
		}
		return Render(a) == Render(b)
	}
}

func sameMultiset(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, x := range a {
		for j, y := range b {
			if !used[j] && Equivalent(x, y) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}
