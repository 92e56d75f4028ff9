// Package errors defines the error taxonomy shared by the table store,
// the persistence layer and the query interpreter.
//
// Every typed error unwraps to one of the sentinel values below, so callers
// can match with errors.Is for the category and errors.As for the details.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTableNotFound      = errors.New("table not found")
	ErrTableAlreadyExists = errors.New("table already exists")
	ErrSchemaMismatch     = errors.New("schema mismatch")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrUnsupportedQuery   = errors.New("unsupported query")
	ErrMalformedLiteral   = errors.New("malformed literal")
	ErrIOFailure          = errors.New("io failure")
)

// TableNotFoundError is returned when a table is not registered (or was dropped)
type TableNotFoundError struct {
	TableName string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table '%s' not found", e.TableName)
}

func (e *TableNotFoundError) Unwrap() error { return ErrTableNotFound }

// TableExistsError is returned by CreateTable on a name collision
type TableExistsError struct {
	TableName string
}

func (e *TableExistsError) Error() string {
	return fmt.Sprintf("table '%s' already exists", e.TableName)
}

func (e *TableExistsError) Unwrap() error { return ErrTableAlreadyExists }

// SchemaMismatchError reports a row (or a schema definition) whose columns
// do not match the table columns
type SchemaMismatchError struct {
	Table   string
	Missing []string // columns required by the schema but absent
	Extra   []string // columns present but not in the schema
	Reason  string
}

func (e *SchemaMismatchError) Error() string {
	parts := []string{fmt.Sprintf("schema mismatch in %s", e.Table)}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(e.Extra, ", "))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	return strings.Join(parts, " - ")
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// ConstraintError represents a violation of a primary key constraint
type ConstraintError struct {
	Table      string // table name
	Column     string // column name
	Value      any    // offending value (may be nil)
	Constraint string // "primary_key"
	Reason     string // human-readable explanation (optional)
}

func (e *ConstraintError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("constraint violation in %s.%s", e.Table, e.Column))

	if e.Constraint != "" {
		parts = append(parts, fmt.Sprintf("(%s)", e.Constraint))
	}

	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}

	return strings.Join(parts, " - ")
}

func (e *ConstraintError) Unwrap() error { return ErrDuplicateKey }

// NewPrimaryKeyViolation builds the error returned on a duplicate primary key
func NewPrimaryKeyViolation(table, column string, value any) *ConstraintError {
	return &ConstraintError{
		Table:      table,
		Column:     column,
		Value:      value,
		Constraint: "primary_key",
		Reason:     "duplicate primary key",
	}
}

// ColumnNotFoundError is returned when an index, condition, assignment or
// projection references a column outside the schema
type ColumnNotFoundError struct {
	TableName  string
	ColumnName string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column '%s' not found in table '%s'", e.ColumnName, e.TableName)
}

func (e *ColumnNotFoundError) Unwrap() error { return ErrUnknownColumn }

// QueryError is returned when a textual query cannot be parsed or dispatched
type QueryError struct {
	Query  string
	Reason string
}

func (e *QueryError) Error() string {
	if e.Query == "" {
		return fmt.Sprintf("unsupported query: %s", e.Reason)
	}
	return fmt.Sprintf("unsupported query %q: %s", e.Query, e.Reason)
}

func (e *QueryError) Unwrap() error { return ErrUnsupportedQuery }

// LiteralError is returned when a value or condition literal cannot be
// parsed into structured values
type LiteralError struct {
	Literal string
	Pos     int // byte offset of the problem, -1 if unknown
	Reason  string
}

func (e *LiteralError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("malformed literal %q at offset %d: %s", e.Literal, e.Pos, e.Reason)
	}
	return fmt.Sprintf("malformed literal %q: %s", e.Literal, e.Reason)
}

func (e *LiteralError) Unwrap() error { return ErrMalformedLiteral }

// IOError wraps a file system failure at any persistence step
type IOError struct {
	Op   string // "write table", "write snapshot", "read snapshot", ...
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both the category and the underlying cause
func (e *IOError) Unwrap() []error { return []error{ErrIOFailure, e.Err} }
