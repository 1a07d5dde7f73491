package ast

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Wire is the structural serialization of a node.
//
// Only the shape of the tree survives a round-trip; node identity does not.
// Property markers survive because they are detected structurally.
//
// Example (YAML):
//
//	op: and
//	children:
//	  - {op: eq, field: FOO, value: bar}
//	  - op: group
//	    children:
//	      - {op: er, field: BAR, value: 'x.*'}
type Wire struct {
	Op        string  `json:"op" yaml:"op"`
	Field     string  `json:"field,omitempty" yaml:"field,omitempty"`
	Namespace string  `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
	Value     any     `json:"value,omitempty" yaml:"value,omitempty"`
	Children  []*Wire `json:"children,omitempty" yaml:"children,omitempty"`
}

// Wire op names for non-comparison nodes. Comparisons use Operator.Name.
const (
	OpAnd    = "and"
	OpOr     = "or"
	OpNot    = "not"
	OpGroup  = "group"
	OpFunc   = "fn"
	OpAssign = "assign"
	OpIdent  = "ident"
	OpLit    = "lit"
)

// ToWire converts a node to its wire form.
func ToWire(n Node) *Wire {
	switch node := n.(type) {
	case *And:
		return &Wire{Op: OpAnd, Children: toWireList(node.Children)}
	case *Or:
		return &Wire{Op: OpOr, Children: toWireList(node.Children)}
	case *Not:
		return &Wire{Op: OpNot, Children: []*Wire{ToWire(node.Child)}}
	case *Group:
		return &Wire{Op: OpGroup, Children: []*Wire{ToWire(node.Child)}}
	case *Comparison:
		return &Wire{Op: node.Op.Name(), Field: node.Field, Value: valueToAny(node.Value)}
	case *Function:
		return &Wire{Op: OpFunc, Namespace: node.Namespace, Name: node.Name, Children: toWireList(node.Args)}
	case *Assignment:
		return &Wire{Op: OpAssign, Name: node.Name, Value: valueToAny(node.Value)}
	case *Identifier:
		return &Wire{Op: OpIdent, Name: node.Name}
	case *Literal:
		return &Wire{Op: OpLit, Value: valueToAny(node.Value)}
	default:
		return nil
	}
}

func toWireList(nodes []Node) []*Wire {
	out := make([]*Wire, len(nodes))
	for i, n := range nodes {
		out[i] = ToWire(n)
	}
	return out
}

// FromWire converts a wire form back into a node.
// Junction arity is not checked here; use Validate for lineage checks.
func FromWire(w *Wire) (Node, error) {
	if w == nil {
		return nil, NewMalformed(nil, "nil wire node")
	}

	switch w.Op {
	case OpAnd, OpOr:
		children, err := fromWireList(w.Children)
		if err != nil {
			return nil, err
		}
		if w.Op == OpAnd {
			return &And{Children: children}, nil
		}
		return &Or{Children: children}, nil

	case OpNot, OpGroup:
		if len(w.Children) != 1 {
			return nil, NewMalformed(nil, "%s requires exactly one child, got %d", w.Op, len(w.Children))
		}
		child, err := FromWire(w.Children[0])
		if err != nil {
			return nil, err
		}
		if w.Op == OpNot {
			return &Not{Child: child}, nil
		}
		return &Group{Child: child}, nil

	case OpFunc:
		args, err := fromWireList(w.Children)
		if err != nil {
			return nil, err
		}
		return &Function{Namespace: w.Namespace, Name: w.Name, Args: args}, nil

	case OpAssign:
		v, err := ValueFromAny(w.Value)
		if err != nil {
			return nil, NewMalformed(nil, "assign %s: %v", w.Name, err)
		}
		return &Assignment{Name: w.Name, Value: v}, nil

	case OpIdent:
		return &Identifier{Name: w.Name}, nil

	case OpLit:
		v, err := ValueFromAny(w.Value)
		if err != nil {
			return nil, NewMalformed(nil, "literal: %v", err)
		}
		return &Literal{Value: v}, nil
	}

	op, ok := OperatorByName(w.Op)
	if !ok {
		return nil, NewMalformed(nil, "unknown op %q", w.Op)
	}
	v, err := ValueFromAny(w.Value)
	if err != nil {
		return nil, NewMalformed(nil, "field %s: %v", w.Field, err)
	}
	return &Comparison{Field: w.Field, Op: op, Value: v}, nil
}

func fromWireList(ws []*Wire) ([]Node, error) {
	out := make([]Node, len(ws))
	for i, w := range ws {
		n, err := FromWire(w)
		if err != nil {
			return nil, fmt.Errorf("children[%d]: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

// EncodeJSON marshals a node to JSON via its wire form.
func EncodeJSON(n Node) ([]byte, error) {
	return json.Marshal(ToWire(n))
}

// DecodeJSON unmarshals a node from JSON.
// Numbers are decoded exactly; fractional numbers are rejected.
func DecodeJSON(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var w Wire
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return FromWire(&w)
}

// EncodeYAML marshals a node to YAML via its wire form.
func EncodeYAML(n Node) ([]byte, error) {
	return yaml.Marshal(ToWire(n))
}

// DecodeYAML unmarshals a node from YAML, rejecting unknown keys.
func DecodeYAML(data []byte) (Node, error) {
	var w Wire
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return FromWire(&w)
}
