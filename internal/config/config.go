// Package config defines query rewriting configuration and loads it from
// CUE sources validated against an embedded schema.
package config

import (
	"regexp"
	"slices"
	"sync"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/expand"
	"github.com/roach88/qrewrite/internal/lookup"
)

// Query holds the per-query limits and rewrite settings.
type Query struct {
	// MaxValueExpansion is the largest number of distinct values a single
	// field may contribute before the term is marked instead of expanded.
	MaxValueExpansion int `json:"max_value_expansion"`

	// MaxUnfieldedExpansion is the largest number of distinct fields a term
	// may match before expansion is abandoned.
	MaxUnfieldedExpansion int `json:"max_unfielded_expansion"`

	FailOnUnfieldedOverflow bool `json:"fail_on_unfielded_overflow"`

	// AnyField is the unfielded pseudo-field name.
	AnyField string `json:"any_field"`

	// PushdownPatterns are regexes matched against regex operands; a match
	// moves the term behind an EVALUATION_ONLY marker.
	PushdownPatterns []string `json:"pushdown_patterns"`

	// Rules names the rewrite rules to run, in order.
	Rules []string `json:"rules"`

	// IndexedFields lists the fields backed by the index. Empty means
	// every field is indexed.
	IndexedFields []string `json:"indexed_fields"`

	mu          sync.Mutex
	pushdown    []*regexp.Regexp
	pushdownSrc []string
}

var defaultPushdownPatterns = []string{`^\.\*`, `^\.\+`}

// Default returns the default configuration.
func Default() *Query {
	q := &Query{
		MaxValueExpansion:       5000,
		MaxUnfieldedExpansion:   500,
		FailOnUnfieldedOverflow: true,
		AnyField:                expand.DefaultAnyField,
		PushdownPatterns:        slices.Clone(defaultPushdownPatterns),
		Rules:                   []string{"regex-simplify", "regex-pushdown"},
	}
	compiled, err := compilePushdown(q.PushdownPatterns)
	if err != nil {
		panic("config: default pushdown patterns: " + err.Error())
	}
	q.setPushdown(compiled, q.PushdownPatterns)
	return q
}

// Validate checks the configuration and compiles the pushdown patterns.
// Every failure is a CONFIG_INVALID error.
func (q *Query) Validate() error {
	if q.MaxValueExpansion <= 0 {
		return ast.NewConfigError("max_value_expansion must be positive, got %d", q.MaxValueExpansion)
	}
	if q.MaxUnfieldedExpansion <= 0 {
		return ast.NewConfigError("max_unfielded_expansion must be positive, got %d", q.MaxUnfieldedExpansion)
	}
	if q.AnyField == "" {
		return ast.NewConfigError("any_field must not be empty")
	}
	compiled, err := compilePushdown(q.PushdownPatterns)
	if err != nil {
		return err
	}
	q.setPushdown(compiled, q.PushdownPatterns)
	return nil
}

// Pushdown reports whether a regex operand matches a pushdown pattern.
// Patterns are compiled once per distinct PushdownPatterns value; an
// invalid pattern list matches nothing. Safe for concurrent use.
func (q *Query) Pushdown(pattern string) bool {
	q.mu.Lock()
	if !slices.Equal(q.pushdownSrc, q.PushdownPatterns) {
		compiled, _ := compilePushdown(q.PushdownPatterns)
		q.pushdown, q.pushdownSrc = compiled, slices.Clone(q.PushdownPatterns)
	}
	compiled := q.pushdown
	q.mu.Unlock()

	for _, re := range compiled {
		if re.MatchString(pattern) {
			return true
		}
	}
	return false
}

func (q *Query) setPushdown(compiled []*regexp.Regexp, src []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushdown, q.pushdownSrc = compiled, slices.Clone(src)
}

func compilePushdown(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, ast.NewConfigError("pushdown pattern %q: %v", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// IsIndexed reports whether field is backed by the index.
func (q *Query) IsIndexed(field string) bool {
	if len(q.IndexedFields) == 0 {
		return true
	}
	return slices.Contains(q.IndexedFields, field)
}

// ExpandOptions returns the term expansion options for this configuration.
func (q *Query) ExpandOptions() expand.Options {
	return expand.Options{
		AnyField:                q.AnyField,
		FailOnUnfieldedOverflow: q.FailOnUnfieldedOverflow,
	}
}

// NewLookup returns an empty index lookup result bounded by these limits.
func (q *Query) NewLookup() *lookup.Map {
	return lookup.New(q.MaxUnfieldedExpansion, q.MaxValueExpansion)
}
