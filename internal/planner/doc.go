// Package planner runs the rewriting pipeline for one query tree:
// validate, expand against the index, apply the configured rewrite rules
// and evaluate the result against per-leaf id sets.
//
// Thread-safety model:
//   - Plan(): safe from any goroutine; each call works on its own trees
//   - The Provider and LeafSource must be safe for concurrent use when
//     Plan is called concurrently
//
// INVARIANTS:
//   - The input tree is never modified
//   - Rules run in configuration order, each over the whole tree
//   - Every plan carries a unique query ID for log correlation
package planner
