package ast

import "regexp"

// Validate checks lineage invariants of a tree and returns the first
// violation, or nil for a valid tree.
//
// Validate is a pure function with no side effects.
func Validate(n Node) error {
	if errs := Check(n); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Check returns every lineage violation in the tree, in pre-order.
//
// Rules:
//  1. No nil nodes anywhere in the tree
//  2. And/Or have at least two children
//  3. A conjunction carrying a marker flag (name = true) has exactly one
//     other child, its source
//  4. Comparisons name a field; regex operators carry a compilable string
//  5. Functions are named
func Check(n Node) []*Error {
	v := &validator{}
	v.check(n)
	return v.errs
}

// validator accumulates errors during traversal.
type validator struct {
	errs []*Error
}

func (v *validator) add(node Node, format string, args ...any) {
	v.errs = append(v.errs, NewMalformed(node, format, args...))
}

func (v *validator) check(n Node) {
	switch node := n.(type) {
	case nil:
		v.add(nil, "nil node")
	case *And:
		v.checkJunction(node, "and", node.Children)
		if flags := countFlags(node.Children); flags > 0 && len(node.Children) != 2 {
			v.add(node, "marker has %d sources, expected exactly one", len(node.Children)-flags)
		}
	case *Or:
		v.checkJunction(node, "or", node.Children)
	case *Not:
		if node.Child == nil {
			v.add(node, "not without child")
			return
		}
		v.check(node.Child)
	case *Group:
		if node.Child == nil {
			v.add(node, "group without child")
			return
		}
		v.check(node.Child)
	case *Comparison:
		if node.Field == "" {
			v.add(node, "comparison without field")
		}
		if node.Op.IsRegex() {
			s, ok := node.Value.(String)
			if !ok {
				v.add(node, "regex operand must be a string")
			} else if _, err := regexp.Compile(string(s)); err != nil {
				v.add(node, "invalid regex: %v", err)
			}
		}
		if _, ok := operatorSymbols[node.Op]; !ok {
			v.add(node, "unknown operator %d", int(node.Op))
		}
	case *Function:
		if node.Name == "" {
			v.add(node, "function without name")
		}
		for _, arg := range node.Args {
			v.check(arg)
		}
	case *Assignment:
		if node.Name == "" {
			v.add(node, "assignment without name")
		}
	case *Identifier, *Literal:
	}
}

func (v *validator) checkJunction(node Node, kind string, children []Node) {
	if len(children) < 2 {
		v.add(node, "%s has %d children, expected at least 2", kind, len(children))
	}
	for _, child := range children {
		v.check(child)
	}
}

// countFlags counts children shaped like a marker flag: an Assignment of
// true, optionally inside Group layers.
func countFlags(children []Node) int {
	count := 0
	for _, child := range children {
		if IsFlag(child) {
			count++
		}
	}
	return count
}

// IsFlag reports whether n is an Assignment of literal true, possibly
// inside Group layers.
func IsFlag(n Node) bool {
	a, ok := StripGroups(n).(*Assignment)
	if !ok {
		return false
	}
	b, ok := a.Value.(Bool)
	return ok && bool(b)
}
