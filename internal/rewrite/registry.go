package rewrite

import (
	"slices"
	"sync"

	"github.com/roach88/qrewrite/internal/ast"
)

// Registry maps rule names to rules.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewRegistry returns a registry holding rules.
func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{rules: make(map[string]Rule)}
	for _, rule := range rules {
		r.Register(rule)
	}
	return r
}

// DefaultRegistry returns a registry holding the built-in rules.
func DefaultRegistry() *Registry {
	return NewRegistry(RegexSimplify(), RegexDotAll(), RegexPushdown(), BoundedRange())
}

// Register adds rule, replacing any rule with the same name.
func (r *Registry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.Name()] = rule
}

// Lookup returns the rule named name.
func (r *Registry) Lookup(name string) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[name]
	if !ok {
		return nil, ast.Errorf(ast.ErrCodeUnknownRule, nil, "unknown rule %q", name)
	}
	return rule, nil
}

// Resolve returns the rules for names, preserving order and duplicates.
func (r *Registry) Resolve(names []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		rule, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Names returns the registered rule names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
