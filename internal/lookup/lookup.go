// Package lookup holds the result of probing the index for one query term:
// for each field, the distinct matching values and the document ids behind
// each value, plus the two overflow signals term expansion consults.
//
// Thresholds are never stored. They are recomputed on read from the current
// contents and the configured limits.
//
// Thread-safety: a Map may be built concurrently by several probe tasks.
// Field creation is serialized by the map lock and writes to one field's
// values by that field's lock. Expansion assumes a quiesced map.
package lookup

import (
	"sync"

	"github.com/roach88/qrewrite/internal/ast"
	"github.com/roach88/qrewrite/internal/uid"
)

// Map is the index lookup result for one term.
type Map struct {
	maxFields int
	maxValues int

	mu     sync.RWMutex
	order  []string
	fields map[string]*ValueIndex
}

// ValueIndex is the per-value id sets of one field.
type ValueIndex struct {
	maxValues int

	mu     sync.RWMutex
	order  []string
	values map[string]uid.Set
}

// New creates an empty map with the given limits: maxFields distinct fields
// and maxValues distinct values per field.
func New(maxFields, maxValues int) *Map {
	return &Map{
		maxFields: maxFields,
		maxValues: maxValues,
		fields:    make(map[string]*ValueIndex),
	}
}

// MaxFields returns the configured field-count limit.
func (m *Map) MaxFields() int { return m.maxFields }

// MaxValues returns the configured per-field value limit.
func (m *Map) MaxValues() int { return m.maxValues }

// Put records that id matched field=value. Idempotent per (field, value, id).
// Calling Put without ids records the value with an empty id set.
func (m *Map) Put(field, value string, ids ...uid.ID) {
	m.field(field).put(value, ids)
}

// PutAll records every id in ids for field=value.
func (m *Map) PutAll(field, value string, ids uid.Set) {
	m.field(field).put(value, ids.Sorted())
}

// AddField records field as present without any values, as happens when
// a probe discovers a candidate field whose values it did not enumerate.
func (m *Map) AddField(field string) {
	m.field(field)
}

// field returns the index for field, creating it in insertion order.
func (m *Map) field(field string) *ValueIndex {
	m.mu.RLock()
	vi, ok := m.fields[field]
	m.mu.RUnlock()
	if ok {
		return vi
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if vi, ok := m.fields[field]; ok {
		return vi
	}
	vi = newValueIndex(m.maxValues)
	m.fields[field] = vi
	m.order = append(m.order, field)
	return vi
}

// Get returns the index for field. A missing field yields an empty,
// non-thresholded index that is not added to the map.
func (m *Map) Get(field string) *ValueIndex {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if vi, ok := m.fields[field]; ok {
		return vi
	}
	return newValueIndex(m.maxValues)
}

// Fields returns the fields present, in insertion order.
func (m *Map) Fields() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Len returns the number of distinct fields present.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.fields)
}

// ValueCount returns the number of distinct (field, value) pairs.
func (m *Map) ValueCount() int {
	total := 0
	for _, f := range m.Fields() {
		total += m.Get(f).Len()
	}
	return total
}

// IsKeyThresholdExceeded reports whether more distinct fields are present
// than the field-count limit allows.
func (m *Map) IsKeyThresholdExceeded() bool {
	return m.Len() > m.maxFields
}

// Validate reports a configuration error when a limit is non-positive
// while entries it governs are present.
func (m *Map) Validate() error {
	if n := m.Len(); n > 0 && m.maxFields <= 0 {
		return ast.NewConfigError("max fields must be positive, got %d with %d fields present", m.maxFields, n)
	}
	if n := m.ValueCount(); n > 0 && m.maxValues <= 0 {
		return ast.NewConfigError("max values must be positive, got %d with %d values present", m.maxValues, n)
	}
	return nil
}

func newValueIndex(maxValues int) *ValueIndex {
	return &ValueIndex{maxValues: maxValues, values: make(map[string]uid.Set)}
}

func (v *ValueIndex) put(value string, ids []uid.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	set, ok := v.values[value]
	if !ok {
		set = make(uid.Set)
		v.values[value] = set
		v.order = append(v.order, value)
	}
	set.Add(ids...)
}

// IsThresholdExceeded reports whether the field holds more distinct values
// than the per-field limit allows.
func (v *ValueIndex) IsThresholdExceeded() bool {
	return v.Len() > v.maxValues
}

// Len returns the number of distinct values.
func (v *ValueIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.values)
}

// Values returns the distinct values in discovery order.
func (v *ValueIndex) Values() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.order...)
}

// IDs returns a copy of the ids recorded for value.
func (v *ValueIndex) IDs(value string) uid.Set {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[value].Clone()
}

// All returns the union of the ids of every value.
func (v *ValueIndex) All() uid.Set {
	v.mu.RLock()
	defer v.mu.RUnlock()
	sets := make([]uid.Set, 0, len(v.values))
	for _, s := range v.values {
		sets = append(sets, s)
	}
	return uid.Union(sets...)
}
