package ast

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/leengari/jsondb/internal/domain/data"
)

// Kind is the statement type of a query
type Kind string

const (
	Select Kind = "SELECT"
	Insert Kind = "INSERT"
	Update Kind = "UPDATE"
	Delete Kind = "DELETE"
)

// Query is the parsed form of one textual statement. It lives for a single
// execution and is never stored.
type Query struct {
	Kind    Kind
	Table   string
	Columns []string    // SELECT projection, nil for *
	Where   data.Filter // nil when there is no WHERE clause
	Values  *Values     // INSERT only
	Set     data.Row    // UPDATE only
}

// Values is the payload of an INSERT: either a mapping of column to value
// or a positional tuple applied to the table's column order
type Values struct {
	Row   data.Row
	Tuple []any
}

// IsTuple reports whether the values were given positionally
func (v *Values) IsTuple() bool {
	return v.Row == nil
}

// ToRow resolves the values against the table's columns
func (v *Values) ToRow(columns []string) (data.Row, error) {
	if !v.IsTuple() {
		return v.Row, nil
	}
	if len(v.Tuple) != len(columns) {
		return nil, fmt.Errorf("%d values for %d columns", len(v.Tuple), len(columns))
	}
	row := make(data.Row, len(columns))
	for i, col := range columns {
		row[col] = v.Tuple[i]
	}
	return row, nil
}

// IsWrite reports whether the query mutates the table
func (q *Query) IsWrite() bool {
	return q.Kind != Select
}

func (q *Query) String() string {
	var out bytes.Buffer
	out.WriteString(string(q.Kind))

	switch q.Kind {
	case Select:
		out.WriteString(" ")
		if q.Columns == nil {
			out.WriteString("*")
		} else {
			out.WriteString(strings.Join(q.Columns, ", "))
		}
		out.WriteString(" FROM ")
		out.WriteString(q.Table)
	case Insert:
		out.WriteString(" INTO ")
		out.WriteString(q.Table)
		out.WriteString(" VALUES ")
		if q.Values != nil {
			out.WriteString(q.Values.String())
		}
	case Update:
		out.WriteString(" ")
		out.WriteString(q.Table)
		out.WriteString(" SET ")
		for i, col := range q.Set.Columns() {
			if i > 0 {
				out.WriteString(", ")
			}
			out.WriteString(fmt.Sprintf("%s = %s", col, formatValue(q.Set[col])))
		}
	case Delete:
		out.WriteString(" FROM ")
		out.WriteString(q.Table)
	}

	if len(q.Where) > 0 {
		out.WriteString(" WHERE ")
		for i, c := range q.Where {
			if i > 0 {
				out.WriteString(" AND ")
			}
			out.WriteString(fmt.Sprintf("%s %s %s", c.Column, c.Op, formatValue(c.Value)))
		}
	}
	return out.String()
}

func (v *Values) String() string {
	var out bytes.Buffer
	if v.IsTuple() {
		out.WriteString("(")
		for i, val := range v.Tuple {
			if i > 0 {
				out.WriteString(", ")
			}
			out.WriteString(formatValue(val))
		}
		out.WriteString(")")
		return out.String()
	}

	out.WriteString("{")
	for i, col := range v.Row.Columns() {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(fmt.Sprintf("%q: %s", col, formatValue(v.Row[col])))
	}
	out.WriteString("}")
	return out.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
