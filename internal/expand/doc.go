// Package expand rewrites index-resolvable query terms into concrete
// equality leaves using per-field index lookup results.
//
// Expandable terms:
//   - regex comparisons (=~, !~) and their Not forms
//   - one-sided ranges (<, >, <=, >=)
//   - bounded ranges: a two-child conjunction of a lower and an upper bound
//     on one field, bare or wrapped in a BOUNDED_RANGE marker
//   - any comparison on the unfielded pseudo-field
//
// For each contributing field the term becomes a flat junction of
// FIELD == 'value' leaves (FIELD != 'value' under negation), or a marker
// when a threshold is exceeded:
//
//	FOO =~ 'bar.*'   =>   (FOO == 'bar1' || FOO == 'bar2' || FOO == 'bar3')
//
// Positive terms combine with Or, negated terms with And. A single
// surviving leaf is returned bare and no surviving leaf yields literal true
// so the term is left to document evaluation.
package expand
