package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Row represents a single table row
// Key = column name, Value = cell value (see Normalize for the allowed types)
type Row map[string]any

// Copy creates a shallow copy of the row; values are scalars so this is
// enough to prevent mutation of shared storage
func (r Row) Copy() Row {
	copy := make(Row, len(r))
	for k, v := range r {
		copy[k] = v
	}
	return copy
}

// Columns returns the row's column names in sorted order
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Equal reports whether both rows hold the same columns with exactly equal values
func (r Row) Equal(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		ov, ok := other[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// NormalizeRow returns a copy of the row with every value normalized
func NormalizeRow(r Row) (Row, error) {
	out := make(Row, len(r))
	for k, v := range r {
		nv, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// UnmarshalJSON decodes a row keeping integral numbers as int64
func (r *Row) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}

	row, err := NormalizeRow(m)
	if err != nil {
		return err
	}
	*r = row
	return nil
}

// MarshalJSON encodes the row with sorted keys. Floats always carry a
// fractional part or exponent so they decode back as float64.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := marshalValue(r[col])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
