// Package rewrite applies ordered structural rewrite rules to expression
// trees.
//
// Each rule runs bottom-up over the whole tree before the next rule
// starts. The engine never descends into a marker's flag: it rewrites the
// marker's source, rebuilds the marker around it and then offers the
// marker node itself to the rule. Input trees are never modified; a rule
// that returns its input signals "no change" and unchanged subtrees are
// shared between input and output.
package rewrite
