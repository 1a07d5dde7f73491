package rewrite

import (
	"strings"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/config"
	"github.com/roach88/qrewrite/internal/expand"
	"github.com/roach88/qrewrite/internal/marker"
)

// Built-in rule names.
const (
	RuleRegexSimplify = "regex-simplify"
	RuleRegexDotAll   = "regex-dotall"
	RuleRegexPushdown = "regex-pushdown"
	RuleBoundedRange  = "bounded-range"
)

// RegexSimplify collapses runs of ".*" and lazy ".*?" into a single ".*".
func RegexSimplify() Rule {
	return NewRule(RuleRegexSimplify, func(node ast.Node, _ *config.Query, _ Metadata) (ast.Node, error) {
		return rewritePattern(node, simplifyPattern), nil
	})
}

// RegexDotAll makes "." match newlines by rewriting it to [\s\S] outside
// character classes and escapes.
func RegexDotAll() Rule {
	return NewRule(RuleRegexDotAll, func(node ast.Node, _ *config.Query, _ Metadata) (ast.Node, error) {
		return rewritePattern(node, dotAllPattern), nil
	})
}

// RegexPushdown moves regex terms the index cannot serve behind an
// EVALUATION_ONLY marker: patterns matching a configured pushdown pattern
// and regexes on fields that are not indexed. Directly nested
// EVALUATION_ONLY markers collapse to one.
func RegexPushdown() Rule {
	return NewRule(RuleRegexPushdown, func(node ast.Node, cfg *config.Query, meta Metadata) (ast.Node, error) {
		if collapsed, ok := collapseNested(node, marker.EvaluationOnly); ok {
			return collapsed, nil
		}
		c, pattern, ok := regexTerm(node)
		if !ok {
			return node, nil
		}
		if cfg.Pushdown(pattern) || !meta.IsIndexed(c.Field) {
			return marker.Wrap(marker.EvaluationOnly, c), nil
		}
		return node, nil
	})
}

// BoundedRange marks a conjunction of a lower and an upper bound on one
// field as a BOUNDED_RANGE so it is expanded and evaluated as one range.
func BoundedRange() Rule {
	return NewRule(RuleBoundedRange, func(node ast.Node, _ *config.Query, _ Metadata) (ast.Node, error) {
		if collapsed, ok := collapseNested(node, marker.BoundedRange); ok {
			return collapsed, nil
		}
		if _, isMarker := marker.Find(node); isMarker {
			return node, nil
		}
		if and, ok := node.(*ast.And); ok {
			if _, _, ok := expand.BoundedPair(and); ok {
				return marker.Wrap(marker.BoundedRange, and), nil
			}
		}
		return node, nil
	})
}

// collapseNested drops the inner marker when node is a kind marker whose
// source is another kind marker.
func collapseNested(node ast.Node, kind marker.Kind) (ast.Node, bool) {
	inst, ok := marker.Find(node)
	if !ok || inst.Kind != kind || !marker.Is(inst.Source, kind) {
		return nil, false
	}
	return marker.Replace(node, marker.Source(inst.Source))
}

func regexTerm(node ast.Node) (*ast.Comparison, string, bool) {
	c, ok := node.(*ast.Comparison)
	if !ok || !c.Op.IsRegex() {
		return nil, "", false
	}
	s, ok := c.Value.(ast.String)
	if !ok {
		return nil, "", false
	}
	return c, string(s), true
}

// rewritePattern applies fn to the operand of a regex comparison.
func rewritePattern(node ast.Node, fn func(string) string) ast.Node {
	c, pattern, ok := regexTerm(node)
	if !ok {
		return node
	}
	next := fn(pattern)
	if next == pattern {
		return node
	}
	return ast.Cmp(c.Field, c.Op, ast.String(next))
}

func simplifyPattern(p string) string {
	var b strings.Builder
	inClass, lastWildcard := false, false
	for i := 0; i < len(p); {
		c := p[i]
		switch {
		case c == '\\' && i+1 < len(p):
			b.WriteString(p[i : i+2])
			i += 2
			lastWildcard = false
			continue
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '.' && i+1 < len(p) && p[i+1] == '*':
			n := 2
			if i+2 < len(p) && p[i+2] == '?' {
				n = 3
			}
			if !lastWildcard {
				b.WriteString(".*")
			}
			lastWildcard = true
			i += n
			continue
		}
		b.WriteByte(c)
		lastWildcard = false
		i++
	}
	return b.String()
}

func dotAllPattern(p string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '\\' && i+1 < len(p):
			b.WriteString(p[i : i+2])
			i++
			continue
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '.':
			b.WriteString(`[\s\S]`)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
