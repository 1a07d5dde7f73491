package rewrite

import (
	"fmt"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/config"
	"github.com/roach88/qrewrite/internal/marker"
)

// Metadata answers questions about fields that rules may depend on.
type Metadata interface {
	IsIndexed(field string) bool
}

// Rule rewrites a single node. Returning node itself means no change.
type Rule interface {
	Name() string
	Apply(node ast.Node, cfg *config.Query, meta Metadata) (ast.Node, error)
}

// RuleFunc is the signature of a function usable as a Rule.
type RuleFunc func(node ast.Node, cfg *config.Query, meta Metadata) (ast.Node, error)

type funcRule struct {
	name string
	fn   RuleFunc
}

// NewRule returns a Rule named name backed by fn.
func NewRule(name string, fn RuleFunc) Rule {
	return &funcRule{name: name, fn: fn}
}

func (r *funcRule) Name() string { return r.name }

func (r *funcRule) Apply(node ast.Node, cfg *config.Query, meta Metadata) (ast.Node, error) {
	return r.fn(node, cfg, meta)
}

// Stats counts what a pipeline changed, by rule name.
type Stats struct {
	Rewrites map[string]int
}

// Apply runs rules in order over tree and returns the rewritten tree.
// The input tree is validated first and the output is validated after
// every rule. A nil meta treats every field as indexed.
func Apply(tree ast.Node, rules []Rule, cfg *config.Query, meta Metadata) (ast.Node, error) {
	out, _, err := ApplyWithStats(tree, rules, cfg, meta)
	return out, err
}

// ApplyWithStats is Apply that also reports per-rule rewrite counts.
func ApplyWithStats(tree ast.Node, rules []Rule, cfg *config.Query, meta Metadata) (ast.Node, Stats, error) {
	stats := Stats{Rewrites: make(map[string]int)}
	if err := ast.Validate(tree); err != nil {
		return nil, stats, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if meta == nil {
		meta = cfg
	}

	current := tree
	for _, rule := range rules {
		p := &pass{rule: rule, cfg: cfg, meta: meta, renderer: ast.NewRenderer()}
		next, err := p.visit(current)
		if err != nil {
			return nil, stats, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		if err := ast.Validate(next); err != nil {
			return nil, stats, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		stats.Rewrites[rule.Name()] += p.rewrites
		current = next
	}
	return current, stats, nil
}

// pass is one bottom-up application of one rule.
type pass struct {
	rule     Rule
	cfg      *config.Query
	meta     Metadata
	renderer *ast.Renderer
	rewrites int
}

// visit rewrites n bottom-up. A subtree whose result renders the same as n
// is a net no-op: n is returned and rewrites counted inside it are dropped.
func (p *pass) visit(n ast.Node) (ast.Node, error) {
	counted := p.rewrites
	out, err := p.apply(n)
	if err != nil {
		return nil, err
	}
	if out != n && p.renderer.Render(out) == p.renderer.Render(n) {
		p.rewrites = counted
		return n, nil
	}
	return out, nil
}

func (p *pass) apply(n ast.Node) (ast.Node, error) {
	rebuilt, err := p.rebuild(n)
	if err != nil {
		return nil, err
	}
	out, err := p.rule.Apply(rebuilt, p.cfg, p.meta)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ast.NewMalformed(rebuilt, "rule returned nil")
	}
	if out != rebuilt {
		p.rewrites++
	}
	return out, nil
}

// rebuild visits the children of n and returns n itself when none changed.
func (p *pass) rebuild(n ast.Node) (ast.Node, error) {
	if inst, ok := marker.Find(n); ok {
		src, err := p.visit(inst.Source)
		if err != nil || src == inst.Source {
			return n, err
		}
		out, _ := marker.Replace(n, src)
		return out, nil
	}

	switch node := n.(type) {
	case *ast.And:
		children, changed, err := p.visitAll(node.Children)
		if err != nil || !changed {
			return n, err
		}
		return ast.NewAnd(children...), nil
	case *ast.Or:
		children, changed, err := p.visitAll(node.Children)
		if err != nil || !changed {
			return n, err
		}
		return ast.NewOr(children...), nil
	case *ast.Not:
		child, err := p.visit(node.Child)
		if err != nil || child == node.Child {
			return n, err
		}
		return ast.NewNot(child), nil
	case *ast.Group:
		child, err := p.visit(node.Child)
		if err != nil || child == node.Child {
			return n, err
		}
		return ast.Wrap(child), nil
	case *ast.Function:
		args, changed, err := p.visitAll(node.Args)
		if err != nil || !changed {
			return n, err
		}
		return ast.Call(node.Namespace, node.Name, args...), nil
	}
	return n, nil
}

func (p *pass) visitAll(children []ast.Node) ([]ast.Node, bool, error) {
	out := make([]ast.Node, len(children))
	changed := false
	for i, child := range children {
		next, err := p.visit(child)
		if err != nil {
			return nil, false, err
		}
		out[i] = next
		changed = changed || next != child
	}
	return out, changed, nil
}
