package engine

import (
	"fmt"

	"github.com/leengari/jsondb/internal/domain/data"
	"github.com/leengari/jsondb/internal/domain/errors"
	"github.com/leengari/jsondb/internal/domain/schema"
	"github.com/leengari/jsondb/internal/parser/ast"
	"github.com/leengari/jsondb/internal/storage/manager"
)

// Result is the outcome of one query. Rows and Columns are set for SELECT;
// RowsAffected for writes.
type Result struct {
	Kind         ast.Kind
	Columns      []string
	Rows         []data.Row
	RowsAffected int
	Message      string
}

func execute(db *manager.Database, q *ast.Query) (*Result, error) {
	table, err := db.GetTable(q.Table)
	if err != nil {
		return nil, err
	}

	switch q.Kind {
	case ast.Select:
		return executeSelect(table, q)
	case ast.Insert:
		return executeInsert(table, q)
	case ast.Update:
		n, err := table.UpdateWhere(q.Where, q.Set)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: q.Kind, RowsAffected: n, Message: fmt.Sprintf("%d row(s) updated", n)}, nil
	case ast.Delete:
		n, err := table.DeleteWhere(q.Where)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: q.Kind, RowsAffected: n, Message: fmt.Sprintf("%d row(s) deleted", n)}, nil
	default:
		return nil, &errors.QueryError{Query: q.String(), Reason: "unsupported statement " + string(q.Kind)}
	}
}

func executeSelect(table *schema.Table, q *ast.Query) (*Result, error) {
	columns := q.Columns
	if columns == nil {
		columns = table.Columns
	}
	for _, col := range columns {
		if !table.HasColumn(col) {
			return nil, &errors.ColumnNotFoundError{TableName: table.Name, ColumnName: col}
		}
	}

	rows, err := table.SelectWhere(q.Where)
	if err != nil {
		return nil, err
	}

	if q.Columns != nil {
		rows = project(rows, columns)
	}

	return &Result{
		Kind:    q.Kind,
		Columns: append([]string(nil), columns...),
		Rows:    rows,
		Message: fmt.Sprintf("%d row(s) selected", len(rows)),
	}, nil
}

func executeInsert(table *schema.Table, q *ast.Query) (*Result, error) {
	row, err := q.Values.ToRow(table.Columns)
	if err != nil {
		return nil, &errors.SchemaMismatchError{Table: table.Name, Reason: err.Error()}
	}
	if err := table.Insert(row); err != nil {
		return nil, err
	}
	return &Result{Kind: q.Kind, RowsAffected: 1, Message: "1 row inserted"}, nil
}

// project keeps only the listed columns of each row
func project(rows []data.Row, columns []string) []data.Row {
	out := make([]data.Row, len(rows))
	for i, row := range rows {
		projected := make(data.Row, len(columns))
		for _, col := range columns {
			projected[col] = row[col]
		}
		out[i] = projected
	}
	return out
}
