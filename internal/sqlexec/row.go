package sqlexec

import (
	"bytes"
	"encoding/json"
)

// Row is one result row: column names in result-set order, each paired with
// its value. Rows from the same statement share the column slice.
type Row struct {
	columns []string
	values  []Value
}

// NewRow pairs columns with values. Extra values are dropped and missing ones
// are null.
func NewRow(columns []string, values []Value) Row {
	vals := make([]Value, len(columns))
	copy(vals, values)
	return Row{columns: columns, values: vals}
}

func (r Row) Len() int { return len(r.columns) }

// Columns returns the column names in result-set order.
func (r Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Values returns the values in column order.
func (r Row) Values() []Value {
	out := make([]Value, len(r.values))
	copy(out, r.values)
	return out
}

// Get looks up a column by its exact name. When a statement returns the same
// name twice the first occurrence wins.
func (r Row) Get(column string) (Value, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return Value{}, false
}

// Map flattens the row into plain Go values. Column order is lost.
func (r Row) Map() map[string]any {
	out := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		if _, seen := out[c]; seen {
			continue
		}
		out[c] = r.values[i].Any()
	}
	return out
}

// MarshalJSON writes the row as a JSON object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := r.values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
