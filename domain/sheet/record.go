package sheet

import (
	"bytes"
	"encoding/json"
	"iter"
)

// OrderedMap is a string-keyed map that remembers insertion order.
// Setting an existing key replaces its value without moving it.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap creates an empty map with room for size keys
func NewOrderedMap[V any](size int) *OrderedMap[V] {
	return &OrderedMap[V]{
		keys:   make([]string, 0, size),
		values: make(map[string]V, size),
	}
}

// Set stores value under key
func (m *OrderedMap[V]) Set(key string, value V) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value under key
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present
func (m *OrderedMap[V]) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Len returns the number of keys
func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order
func (m *OrderedMap[V]) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// All iterates key/value pairs in insertion order
func (m *OrderedMap[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Record is one materialized row: column name to normalized value, in header order
type Record = OrderedMap[Value]

// NewRecord creates an empty record
func NewRecord(size int) *Record {
	return NewOrderedMap[Value](size)
}

// RecordOf builds a record from alternating key/value pairs, mostly for tests and callers
// assembling rows by hand
func RecordOf(pairs ...any) *Record {
	r := NewRecord(len(pairs) / 2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case Value:
			r.Set(key, v)
		default:
			r.Set(key, ValueOf(v))
		}
	}
	return r
}
