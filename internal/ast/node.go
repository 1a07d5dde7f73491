package ast

import "fmt"

// Node is a sealed interface for expression tree nodes.
//
// Only the pointer types in this package implement Node. The marker method
// pattern enables exhaustive type switches in every consumer:
//
//	switch n := node.(type) {
//	case *And:
//	case *Or:
//	case *Not:
//	case *Group:
//	case *Comparison:
//	case *Function:
//	case *Assignment:
//	case *Identifier:
//	case *Literal:
//	}
//
// Nodes are immutable once built. Rewrites allocate new parents and reuse
// untouched children, so a tree can be shared between pipelines.
type Node interface {
	exprNode() // Marker method - seals interface to this package
}

// And is a conjunction. A valid tree has at least two children.
type And struct {
	Children []Node
}

// Or is a disjunction. A valid tree has at least two children.
type Or struct {
	Children []Node
}

// Not negates its child.
type Not struct {
	Child Node
}

// Group is a parenthesised reference layer around a single child.
// Groups carry no logic of their own; they are the structural unit the
// property marker convention is built from.
type Group struct {
	Child Node
}

// Comparison is a single FIELD op literal test.
type Comparison struct {
	Field string
	Op    Operator
	Value Value
}

// Function is a namespace:name(args...) call. Arguments are usually
// Identifier and Literal nodes but may be arbitrary subtrees.
type Function struct {
	Namespace string
	Name      string
	Args      []Node
}

// Assignment is a name = literal node. It only appears as the flag half of
// a property marker.
type Assignment struct {
	Name  string
	Value Value
}

// Identifier is a bare field reference, used as a function argument.
type Identifier struct {
	Name string
}

// Literal is a bare literal value.
type Literal struct {
	Value Value
}

func (*And) exprNode()        {}
func (*Or) exprNode()         {}
func (*Not) exprNode()        {}
func (*Group) exprNode()      {}
func (*Comparison) exprNode() {}
func (*Function) exprNode()   {}
func (*Assignment) exprNode() {}
func (*Identifier) exprNode() {}
func (*Literal) exprNode()    {}

// Operator is a comparison operator.
type Operator int

const (
	EQ Operator = iota + 1 // ==
	NE                     // !=
	LT                     // <
	GT                     // >
	LE                     // <=
	GE                     // >=
	ER                     // =~ matches regex
	NR                     // !~ does not match regex
)

var operatorSymbols = map[Operator]string{
	EQ: "==",
	NE: "!=",
	LT: "<",
	GT: ">",
	LE: "<=",
	GE: ">=",
	ER: "=~",
	NR: "!~",
}

var operatorNames = map[Operator]string{
	EQ: "eq",
	NE: "ne",
	LT: "lt",
	GT: "gt",
	LE: "le",
	GE: "ge",
	ER: "er",
	NR: "nr",
}

// String returns the source symbol of the operator.
func (op Operator) String() string {
	if s, ok := operatorSymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// Name returns the wire name of the operator ("eq", "er", ...).
func (op Operator) Name() string {
	return operatorNames[op]
}

// IsRegex reports whether op is =~ or !~.
func (op Operator) IsRegex() bool {
	return op == ER || op == NR
}

// IsRange reports whether op is one of < > <= >=.
func (op Operator) IsRange() bool {
	return op == LT || op == GT || op == LE || op == GE
}

// IsLowerBound reports whether op is > or >=.
func (op Operator) IsLowerBound() bool {
	return op == GT || op == GE
}

// IsUpperBound reports whether op is < or <=.
func (op Operator) IsUpperBound() bool {
	return op == LT || op == LE
}

// IsNegated reports whether op is != or !~.
func (op Operator) IsNegated() bool {
	return op == NE || op == NR
}

// Positive returns the non-negated form: != becomes ==, !~ becomes =~.
func (op Operator) Positive() Operator {
	switch op {
	case NE:
		return EQ
	case NR:
		return ER
	default:
		return op
	}
}

// OperatorByName resolves a wire name to an Operator.
func OperatorByName(name string) (Operator, bool) {
	for op, n := range operatorNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}
