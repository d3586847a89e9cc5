// Package record holds the ordered, possibly multivalued rows that flow
// through the enrichment stream, plus codecs for reading and writing them.
package record

import "strings"

// Value is a field value. A single-valued field has at most one item; a
// multivalued field may hold any number.
type Value struct {
	Items []string
	Multi bool
}

// Single returns a single-valued Value.
func Single(s string) *Value {
	return &Value{Items: []string{s}}
}

// Multi returns a multivalued Value.
func Multi(items ...string) *Value {
	return &Value{Items: items, Multi: true}
}

// String renders the value as one cell: the lone item, or all items joined
// by newlines.
func (v *Value) String() string {
	if v == nil {
		return ""
	}
	return strings.Join(v.Items, "\n")
}

// IsEmpty reports whether the value has no non-empty item.
func (v *Value) IsEmpty() bool {
	if v == nil {
		return true
	}
	for _, s := range v.Items {
		if s != "" {
			return false
		}
	}
	return true
}

// Record is an ordered mapping of field name to value.
type Record struct {
	keys   []string
	values map[string]*Value
}

// New returns an empty record.
func New() *Record {
	return &Record{values: make(map[string]*Value)}
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (*Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Set stores v under key, appending key to the field order if it is new.
func (r *Record) Set(key string, v *Value) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// SetString stores a single-valued string under key.
func (r *Record) SetString(key, s string) {
	r.Set(key, Single(s))
}

// Keys returns the field names in insertion order. The slice must not be modified.
func (r *Record) Keys() []string {
	return r.keys
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// Map renders the record as field name -> cell string.
func (r *Record) Map() map[string]string {
	m := make(map[string]string, len(r.keys))
	for _, k := range r.keys {
		m[k] = r.values[k].String()
	}
	return m
}
