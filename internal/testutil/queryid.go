// Package testutil provides deterministic helpers for tests and golden
// snapshots.
package testutil

// FixedQueryIDGenerator generates the same query ID every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedQueryIDGenerator produces
// byte-identical plans.
//
// Unlike planner.FixedGenerator which returns IDs in sequence, this
// generator never runs out.
//
// Thread-safety: FixedQueryIDGenerator is stateless and safe for concurrent use.
type FixedQueryIDGenerator struct {
	id string
}

// NewFixedQueryIDGenerator creates a new fixed query ID generator.
//
// The ID is typically set in the scenario YAML:
//
//	query_id: "test-query-00000000-0000-0000-0000-000000000001"
//
// If id is empty, Generate() returns "test-query-default".
func NewFixedQueryIDGenerator(id string) *FixedQueryIDGenerator {
	if id == "" {
		id = "test-query-default"
	}
	return &FixedQueryIDGenerator{id: id}
}

// Generate returns the fixed query ID.
//
// Implements planner.IDGenerator.
func (g *FixedQueryIDGenerator) Generate() string {
	return g.id
}
