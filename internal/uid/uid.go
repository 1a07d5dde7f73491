// Package uid provides document identifiers and deduplicated id sets.
//
// Sets are unordered; Sorted gives a deterministic view for rendering and
// golden comparison.
package uid

import (
	"slices"
	"strings"
)

// ID is an opaque document identifier.
type ID string

// Set is an unordered, deduplicated set of ids.
// The zero value (nil) is a valid empty set for reads.
type Set map[ID]struct{}

// New creates a set holding ids.
func New(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// FromStrings creates a set from plain strings.
func FromStrings(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[ID(id)] = struct{}{}
	}
	return s
}

// Add inserts ids into s. Adding an existing id is a no-op.
func (s Set) Add(ids ...ID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Contains reports whether id is in s.
func (s Set) Contains(id ID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of ids in s.
func (s Set) Len() int {
	return len(s)
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the ids in byte order.
func (s Set) Sorted() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Strings returns the ids as sorted plain strings.
func (s Set) Strings() []string {
	ids := s.Sorted()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// String renders the set as {a, b, c} in sorted order.
func (s Set) String() string {
	return "{" + strings.Join(s.Strings(), ", ") + "}"
}

// Equal reports whether s and other hold the same ids.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// Union returns a new set with every id of every input.
func Union(sets ...Set) Set {
	out := make(Set)
	for _, s := range sets {
		for id := range s {
			out[id] = struct{}{}
		}
	}
	return out
}

// Intersect returns a new set with the ids present in every input.
// Intersect of no sets is the empty set.
func Intersect(sets ...Set) Set {
	if len(sets) == 0 {
		return make(Set)
	}
	smallest := 0
	for i, s := range sets {
		if len(s) < len(sets[smallest]) {
			smallest = i
		}
	}
	out := make(Set)
outer:
	for id := range sets[smallest] {
		for i, s := range sets {
			if i != smallest && !s.Contains(id) {
				continue outer
			}
		}
		out[id] = struct{}{}
	}
	return out
}

// Difference returns a new set with the ids of base not present in any of
// the others.
func Difference(base Set, others ...Set) Set {
	out := make(Set, len(base))
outer:
	for id := range base {
		for _, s := range others {
			if s.Contains(id) {
				continue outer
			}
		}
		out[id] = struct{}{}
	}
	return out
}
