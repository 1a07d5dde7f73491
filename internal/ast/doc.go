// Package ast provides the expression tree model for boolean index queries.
//
// This package contains the node types, literal values, canonical rendering,
// the structural wire codec and the lineage checks used by every other
// package. All other internal packages import ast; ast imports nothing
// internal.
//
// Key design constraints:
//   - Trees are persistent. Nodes are never mutated after construction;
//     rewrites build new nodes and share untouched subtrees.
//   - NO float literals. Numbers are int64 so renderings are deterministic.
//   - Only pointer node types implement Node, so nodes can key identity maps.
//   - Render is the join key between a tree and per-leaf id sets. Two trees
//     with identical logical content render identically.
//
// Node kinds:
//
//	And, Or        junctions, two or more children in a valid tree
//	Not            single negated child
//	Group          single parenthesised child (a reference layer)
//	Comparison     FIELD op literal, op in == != < > <= >= =~ !~
//	Function       namespace:name(args...)
//	Assignment     name = literal, the flag half of a property marker
//	Identifier     bare field reference inside function arguments
//	Literal        bare literal (function arguments, true/false)
package ast
