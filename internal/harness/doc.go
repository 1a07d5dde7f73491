// Package harness runs query rewriting scenarios end to end.
//
// A scenario loads postings into a fresh in-memory index, plans a tree
// through the full pipeline (expansion, rewrite rules, evaluation) and
// checks the result against its expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	query_id: test-query-0001
//	config: |
//	  query: max_value_expansion: 1
//	postings:
//	  - {field: FOO, value: bar1, ids: [uid1, uid2]}
//	tree:
//	  op: and
//	  children:
//	    - {op: eq, field: BAZ, value: x}
//	    - {op: er, field: FOO, value: 'bar.*'}
//	expect:
//	  expanded: "BAZ == 'x' && FOO == 'bar1'"
//	  ids: [uid1]
//
// Expected trees are compared by their canonical rendering. When expect
// names an error code the plan must fail with that code.
//
// # Golden Snapshots
//
// RunWithGolden snapshots the plan as canonical JSON under
// testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
