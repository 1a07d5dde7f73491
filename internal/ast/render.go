package ast

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Render returns the canonical text of a node.
//
// The rendering is the join key between a tree and the per-leaf id sets
// computed by the index probe, so it must be reproducible from any rebuilt
// tree with the same logical content:
//   - single spaces around binary operators, none inside parentheses
//   - strings are NFC normalized and single quoted
//   - bare junctions nested in junctions are parenthesised
//   - Not always renders its operand in parentheses
//
// Example:
//
//	FOO == 'bar' && (BAR =~ 'x.*' || BAZ > 3)
func Render(n Node) string {
	var b strings.Builder
	writeNode(&b, n, nil)
	return b.String()
}

// Renderer memoizes renderings by node identity for a single pass.
// A Renderer must not outlive the trees it has seen.
//
// Thread-safety: Renderer is not safe for concurrent use.
type Renderer struct {
	cache map[Node]string
}

// NewRenderer creates an empty memoizing renderer.
func NewRenderer() *Renderer {
	return &Renderer{cache: make(map[Node]string)}
}

// Render returns the canonical text of n, reusing earlier results.
func (r *Renderer) Render(n Node) string {
	if n == nil {
		return Render(nil)
	}
	if s, ok := r.cache[n]; ok {
		return s
	}
	var b strings.Builder
	writeNode(&b, n, r)
	s := b.String()
	r.cache[n] = s
	return s
}

func writeNode(b *strings.Builder, n Node, r *Renderer) {
	switch node := n.(type) {
	case nil:
		b.WriteString("<nil>")
	case *And:
		writeJunction(b, node.Children, " && ", r)
	case *Or:
		writeJunction(b, node.Children, " || ", r)
	case *Not:
		b.WriteByte('!')
		if _, ok := node.Child.(*Group); ok {
			writeChild(b, node.Child, r)
			return
		}
		b.WriteByte('(')
		writeChild(b, node.Child, r)
		b.WriteByte(')')
	case *Group:
		b.WriteByte('(')
		writeChild(b, node.Child, r)
		b.WriteByte(')')
	case *Comparison:
		b.WriteString(normalize(node.Field))
		b.WriteByte(' ')
		b.WriteString(node.Op.String())
		b.WriteByte(' ')
		b.WriteString(renderValue(node.Value))
	case *Function:
		if node.Namespace != "" {
			b.WriteString(normalize(node.Namespace))
			b.WriteByte(':')
		}
		b.WriteString(normalize(node.Name))
		b.WriteByte('(')
		for i, arg := range node.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeChild(b, arg, r)
		}
		b.WriteByte(')')
	case *Assignment:
		b.WriteString(normalize(node.Name))
		b.WriteString(" = ")
		b.WriteString(renderValue(node.Value))
	case *Identifier:
		b.WriteString(normalize(node.Name))
	case *Literal:
		b.WriteString(renderValue(node.Value))
	}
}

func writeJunction(b *strings.Builder, children []Node, sep string, r *Renderer) {
	for i, child := range children {
		if i > 0 {
			b.WriteString(sep)
		}
		switch child.(type) {
		case *And, *Or:
			b.WriteByte('(')
			writeChild(b, child, r)
			b.WriteByte(')')
		default:
			writeChild(b, child, r)
		}
	}
}

func writeChild(b *strings.Builder, n Node, r *Renderer) {
	if r != nil && n != nil {
		b.WriteString(r.Render(n))
		return
	}
	writeNode(b, n, r)
}

// normalize applies NFC normalization at the rendering boundary.
func normalize(s string) string {
	return norm.NFC.String(s)
}
