package enrich

import (
	"strings"

	"github.com/sells-group/geocoding-cli/internal/record"
	"github.com/sells-group/geocoding-cli/pkg/geocode"
)

// Item is one unit of work: every non-blank address of one field of one
// record, in field order.
type Item struct {
	Field     string
	Addresses []string
}

// Merger lays the derived schema onto records and writes lookup results
// back into it.
type Merger struct {
	fields      []string
	placeholder string
}

// NewMerger returns a Merger for the given address fields. Duplicate and
// empty field names are dropped.
func NewMerger(fields []string, placeholder string) *Merger {
	seen := make(map[string]bool, len(fields))
	var uniq []string
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		uniq = append(uniq, f)
	}
	return &Merger{fields: uniq, placeholder: placeholder}
}

// Fields returns the address fields in configured order.
func (m *Merger) Fields() []string {
	return m.fields
}

// Columns returns every derived field name, in the order Prepare adds them.
func (m *Merger) Columns() []string {
	cols := make([]string, 0, len(m.fields)*len(geocode.Suffixes))
	for _, f := range m.fields {
		for _, s := range geocode.Suffixes {
			cols = append(cols, geocode.FieldName(f, s))
		}
	}
	return cols
}

// ColumnsFor returns the derived field names of one address field, or nil
// when field is not geocoded.
func (m *Merger) ColumnsFor(field string) []string {
	for _, f := range m.fields {
		if f != field {
			continue
		}
		cols := make([]string, len(geocode.Suffixes))
		for i, s := range geocode.Suffixes {
			cols[i] = geocode.FieldName(f, s)
		}
		return cols
	}
	return nil
}

// Prepare resets every derived field of rec and reserves one placeholder
// slot per non-blank address, so a lookup that fails leaves the placeholder
// rather than a missing entry. Derived fields take the multiplicity of their
// input field. It returns the items to look up; fields without a non-blank
// address yield no item.
func (m *Merger) Prepare(rec *record.Record) []Item {
	var items []Item
	for _, f := range m.fields {
		in, _ := rec.Get(f)
		multi := in != nil && in.Multi

		var addrs []string
		if in != nil {
			for _, raw := range in.Items {
				if addr := strings.TrimSpace(raw); addr != "" {
					addrs = append(addrs, addr)
				}
			}
		}

		for _, s := range geocode.Suffixes {
			slots := make([]string, len(addrs))
			for i := range slots {
				slots[i] = m.placeholder
			}
			rec.Set(geocode.FieldName(f, s), &record.Value{Items: slots, Multi: multi})
		}

		if len(addrs) > 0 {
			items = append(items, Item{Field: f, Addresses: addrs})
		}
	}
	return items
}

// Apply overwrites the reserved slots of field with results, which must be
// positionally aligned with the Item's addresses. Suffixes a result did not
// resolve keep the placeholder.
func (m *Merger) Apply(rec *record.Record, field string, results []*geocode.Result) {
	for i, res := range results {
		for suffix, val := range res.Fields() {
			v, ok := rec.Get(geocode.FieldName(field, suffix))
			if !ok || i >= len(v.Items) {
				continue
			}
			v.Items[i] = val
		}
	}
}
