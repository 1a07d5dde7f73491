package store

import (
	"fmt"
	"strings"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/expand"
	"github.com/roach88/qrewrite/internal/marker"
)

// Query is a parameterized SQL statement.
type Query struct {
	SQL  string
	Args []any
}

// Compiler compiles expression terms to postings queries.
//
// CRITICAL: ALL queries include ORDER BY for deterministic results.
// CRITICAL: All operands are parameterized (never interpolated).
type Compiler struct {
	// AnyField is the unfielded pseudo-field; terms on it match every field.
	AnyField string
}

// NewCompiler creates a Compiler for the given unfielded pseudo-field.
func NewCompiler(anyField string) *Compiler {
	if anyField == "" {
		anyField = expand.DefaultAnyField
	}
	return &Compiler{AnyField: anyField}
}

// CompileLookup compiles an expandable term to a query returning
// (field, value, uid) rows. Negated terms select the values matching their
// positive form; expansion turns those into != leaves.
func (c *Compiler) CompileLookup(term ast.Node) (Query, error) {
	where, args, err := c.predicate(term)
	if err != nil {
		return Query{}, err
	}
	return Query{
		SQL:  "SELECT field, value, uid FROM postings WHERE " + where + " ORDER BY " + lookupOrderKey,
		Args: args,
	}, nil
}

// CompileLeaf compiles a leaf to a query returning its distinct uids.
func (c *Compiler) CompileLeaf(leaf ast.Node) (Query, error) {
	where, args, err := c.predicate(leaf)
	if err != nil {
		return Query{}, err
	}
	return Query{
		SQL:  "SELECT DISTINCT uid FROM postings WHERE " + where + " ORDER BY " + leafOrderKey,
		Args: args,
	}, nil
}

// Order keys. COLLATE BINARY ensures deterministic text ordering across
// SQLite versions.
const (
	lookupOrderKey = "field ASC, value ASC, uid ASC COLLATE BINARY"
	leafOrderKey   = "uid ASC COLLATE BINARY"
)

// predicate compiles term to a WHERE clause fragment.
func (c *Compiler) predicate(term ast.Node) (string, []any, error) {
	if inst, ok := marker.Find(term); ok {
		if inst.Kind != marker.BoundedRange {
			return "", nil, fmt.Errorf("cannot compile %s marker", inst.Kind)
		}
		term = inst.Source
	}
	if lo, hi, ok := expand.BoundedPair(term); ok {
		return c.conjoin(c.fieldPredicate(lo.Field), c.valuePredicate(lo), c.valuePredicate(hi))
	}

	switch node := ast.StripGroups(term).(type) {
	case *ast.Not:
		cmp, ok := ast.StripGroups(node.Child).(*ast.Comparison)
		if !ok {
			return "", nil, fmt.Errorf("cannot compile negation of %s", ast.Render(node.Child))
		}
		return c.conjoin(c.fieldPredicate(cmp.Field), c.valuePredicate(cmp))
	case *ast.Comparison:
		return c.conjoin(c.fieldPredicate(node.Field), c.valuePredicate(node))
	}
	return "", nil, fmt.Errorf("cannot compile term %s", ast.Render(term))
}

type fragment struct {
	sql  string
	args []any
}

func (c *Compiler) conjoin(parts ...fragment) (string, []any, error) {
	var sqlParts []string
	var args []any
	for _, p := range parts {
		if p.sql == "" {
			continue
		}
		sqlParts = append(sqlParts, p.sql)
		args = append(args, p.args...)
	}
	if len(sqlParts) == 0 {
		return "1 = 1", nil, nil
	}
	return strings.Join(sqlParts, " AND "), args, nil
}

// fieldPredicate restricts the field unless it is the pseudo-field.
func (c *Compiler) fieldPredicate(field string) fragment {
	if field == c.AnyField {
		return fragment{}
	}
	return fragment{sql: "field = ?", args: []any{field}}
}

// valuePredicate compiles the positive form of cmp's operator.
func (c *Compiler) valuePredicate(cmp *ast.Comparison) fragment {
	op := cmp.Op.Positive()
	switch {
	case op == ast.ER:
		return fragment{sql: "value REGEXP ?", args: []any{"^(?:" + ast.Text(cmp.Value) + ")$"}}
	case op.IsRange():
		if n, ok := cmp.Value.(ast.Int); ok {
			return fragment{sql: "CAST(value AS INTEGER) " + op.String() + " ?", args: []any{int64(n)}}
		}
		return fragment{sql: "value " + op.String() + " ? COLLATE BINARY", args: []any{ast.Text(cmp.Value)}}
	default:
		return fragment{sql: "value = ?", args: []any{ast.Text(cmp.Value)}}
	}
}
