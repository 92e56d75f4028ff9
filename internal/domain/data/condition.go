package data

import "fmt"

// Condition maps column names to expected values; a row matches when every
// listed column is exactly equal. An empty condition matches every row.
type Condition map[string]any

// Operator is a comparison used in a Filter
type Operator string

const (
	OpEq Operator = "="
	OpNe Operator = "!="
	OpLt Operator = "<"
	OpLe Operator = "<="
	OpGt Operator = ">"
	OpGe Operator = ">="
)

// Comparison tests one column against a value
type Comparison struct {
	Column string
	Op     Operator
	Value  any
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s %s %v", c.Column, c.Op, c.Value)
}

// Filter is a conjunction of comparisons. An empty filter matches every row.
type Filter []Comparison

// Filter converts an equality condition into a filter with a stable column order
func (c Condition) Filter() Filter {
	row := Row(c)
	f := make(Filter, 0, len(c))
	for _, col := range row.Columns() {
		f = append(f, Comparison{Column: col, Op: OpEq, Value: c[col]})
	}
	return f
}

// Columns returns every column the filter references
func (f Filter) Columns() []string {
	seen := make(map[string]bool, len(f))
	var cols []string
	for _, c := range f {
		if !seen[c.Column] {
			seen[c.Column] = true
			cols = append(cols, c.Column)
		}
	}
	return cols
}

// Normalize returns a copy of the filter with normalized comparison values
func (f Filter) Normalize() (Filter, error) {
	out := make(Filter, len(f))
	for i, c := range f {
		v, err := Normalize(c.Value)
		if err != nil {
			return nil, fmt.Errorf("condition on %s: %w", c.Column, err)
		}
		out[i] = Comparison{Column: c.Column, Op: c.Op, Value: v}
	}
	return out, nil
}

// Match reports whether the row satisfies every comparison. Callers must
// validate filter columns against the schema first; a missing column never matches.
func (f Filter) Match(row Row) bool {
	for _, c := range f {
		val, ok := row[c.Column]
		if !ok || !c.match(val) {
			return false
		}
	}
	return true
}

func (c Comparison) match(val any) bool {
	switch c.Op {
	case OpEq:
		return Equal(val, c.Value)
	case OpNe:
		return !Equal(val, c.Value)
	}

	cmp, ok := Compare(val, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	}
	return false
}

// ParseOperator maps the textual operators accepted by the query language
func ParseOperator(s string) (Operator, bool) {
	switch s {
	case "=", "==":
		return OpEq, true
	case "!=", "<>":
		return OpNe, true
	case "<":
		return OpLt, true
	case "<=":
		return OpLe, true
	case ">":
		return OpGt, true
	case ">=":
		return OpGe, true
	}
	return "", false
}
