package ast

// Builders copy their slice arguments so the caller can reuse them.

// NewAnd creates a conjunction of children.
func NewAnd(children ...Node) *And {
	return &And{Children: append([]Node(nil), children...)}
}

// NewOr creates a disjunction of children.
func NewOr(children ...Node) *Or {
	return &Or{Children: append([]Node(nil), children...)}
}

// NewNot negates child.
func NewNot(child Node) *Not {
	return &Not{Child: child}
}

// Wrap places child inside a Group.
func Wrap(child Node) *Group {
	return &Group{Child: child}
}

// Cmp creates a comparison.
func Cmp(field string, op Operator, v Value) *Comparison {
	if v == nil {
		v = Null{}
	}
	return &Comparison{Field: field, Op: op, Value: v}
}

// Eq creates FIELD == v.
func Eq(field string, v Value) *Comparison { return Cmp(field, EQ, v) }

// Ne creates FIELD != v.
func Ne(field string, v Value) *Comparison { return Cmp(field, NE, v) }

// Lt creates FIELD < v.
func Lt(field string, v Value) *Comparison { return Cmp(field, LT, v) }

// Gt creates FIELD > v.
func Gt(field string, v Value) *Comparison { return Cmp(field, GT, v) }

// Le creates FIELD <= v.
func Le(field string, v Value) *Comparison { return Cmp(field, LE, v) }

// Ge creates FIELD >= v.
func Ge(field string, v Value) *Comparison { return Cmp(field, GE, v) }

// Er creates FIELD =~ 'pattern'.
func Er(field, pattern string) *Comparison { return Cmp(field, ER, String(pattern)) }

// Nr creates FIELD !~ 'pattern'.
func Nr(field, pattern string) *Comparison { return Cmp(field, NR, String(pattern)) }

// Call creates a function call node.
func Call(namespace, name string, args ...Node) *Function {
	return &Function{Namespace: namespace, Name: name, Args: append([]Node(nil), args...)}
}

// Ident creates an identifier node.
func Ident(name string) *Identifier {
	return &Identifier{Name: name}
}

// Lit creates a literal node.
func Lit(v Value) *Literal {
	if v == nil {
		v = Null{}
	}
	return &Literal{Value: v}
}

// True returns a fresh literal true node.
func True() *Literal {
	return &Literal{Value: Bool(true)}
}

// Assign creates a name = v assignment node.
func Assign(name string, v Value) *Assignment {
	return &Assignment{Name: name, Value: v}
}

// JoinAnd returns nil for no children, the child itself for one child and
// a conjunction otherwise. It never emits a degenerate junction.
func JoinAnd(children ...Node) Node {
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	default:
		return NewAnd(children...)
	}
}

// JoinOr is the disjunctive form of JoinAnd.
func JoinOr(children ...Node) Node {
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	default:
		return NewOr(children...)
	}
}

// Children returns the direct children of n in order.
// Function arguments count as children.
func Children(n Node) []Node {
	switch node := n.(type) {
	case *And:
		return node.Children
	case *Or:
		return node.Children
	case *Not:
		return []Node{node.Child}
	case *Group:
		return []Node{node.Child}
	case *Function:
		return node.Args
	default:
		return nil
	}
}

// Unwrap strips up to max Group layers from n and reports how many were
// removed.
func Unwrap(n Node, max int) (Node, int) {
	depth := 0
	for depth < max {
		g, ok := n.(*Group)
		if !ok || g.Child == nil {
			break
		}
		n = g.Child
		depth++
	}
	return n, depth
}

// StripGroups removes every Group layer above n.
func StripGroups(n Node) Node {
	for {
		g, ok := n.(*Group)
		if !ok || g.Child == nil {
			return n
		}
		n = g.Child
	}
}
