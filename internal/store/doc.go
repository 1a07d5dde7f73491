// Package store provides a SQLite-backed reference index for probing
// expression terms.
//
// The index is a single postings table of (field, value, uid) rows. It
// serves the two inputs the rewriting pipeline consumes:
//   - Lookup builds the index lookup result for one expandable term
//   - LeafSets builds the leaf key to id set mapping for evaluation
//
// # Critical Patterns
//
// Deterministic results: every query ends in
// ORDER BY field, value, uid COLLATE BINARY (or uid alone for leaf
// probes), so discovery order, and therefore expansion order, is stable.
//
// Parameterized SQL: operands are always bound with ? placeholders,
// never interpolated.
//
// Regex operands use full-match semantics through a regexp() function
// registered on every connection, so "bar.*" matches "bar1" but not
// "xbar1".
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
