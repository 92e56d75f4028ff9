package schema

import (
	"log/slog"
	"sync"

	"github.com/leengari/jsondb/internal/domain/data"
	"github.com/leengari/jsondb/internal/domain/errors"
	"github.com/leengari/jsondb/internal/storage"
)

// Persister writes a table's new state to disk before the table adopts it.
// The database registry implements it.
type Persister interface {
	PersistTable(name string, state storage.TableFile) error
	RemoveTable(name string) error
}

// Table represents a database table with its schema, data, and indexes.
//
// Rows are copy-on-write: a mutation builds a new row slice, persists it and
// only then swaps it in, so a failed save leaves the table untouched. Every
// index is rebuilt after each successful mutation.
type Table struct {
	mu         sync.RWMutex
	Name       string
	Columns    []string
	PrimaryKey string // "" when no primary key is designated

	columnSet map[string]bool
	rows      []data.Row
	indexes   map[string]*data.Index
	persister Persister
	detached  bool // dropped, or replaced by a reload
}

// NewTable builds a table from a schema and existing rows. Rows are
// normalized and checked against the schema and primary key.
func NewTable(name string, columns []string, primaryKey string, rows []data.Row, p Persister) (*Table, error) {
	t := &Table{
		Name:       name,
		Columns:    append([]string(nil), columns...),
		PrimaryKey: primaryKey,
		columnSet:  make(map[string]bool, len(columns)),
		indexes:    make(map[string]*data.Index),
		persister:  p,
	}

	if len(columns) == 0 {
		return nil, &errors.SchemaMismatchError{Table: name, Reason: "a table needs at least one column"}
	}
	for _, col := range columns {
		if col == "" {
			return nil, &errors.SchemaMismatchError{Table: name, Reason: "empty column name"}
		}
		if t.columnSet[col] {
			return nil, &errors.SchemaMismatchError{Table: name, Reason: "duplicate column " + col}
		}
		t.columnSet[col] = true
	}
	if primaryKey != "" {
		if !t.columnSet[primaryKey] {
			return nil, &errors.SchemaMismatchError{Table: name, Reason: "primary key " + primaryKey + " is not a column"}
		}
		t.indexes[primaryKey] = data.NewIndex(primaryKey, true)
	}

	loaded := make([]data.Row, 0, len(rows))
	for _, row := range rows {
		norm, err := data.NormalizeRow(row)
		if err != nil {
			return nil, err
		}
		if err := t.checkSchema(norm); err != nil {
			return nil, err
		}
		loaded = append(loaded, norm)
	}
	if err := t.checkPrimaryKey(loaded); err != nil {
		return nil, err
	}

	t.rows = loaded
	t.rebuildIndexesUnsafe()
	return t, nil
}

// Insert appends a row after schema and primary key validation
func (t *Table) Insert(row data.Row) error {
	norm, err := data.NormalizeRow(row) // also prevents mutation of caller's data
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkAttachedUnsafe(); err != nil {
		return err
	}

	slog.Debug("Insert operation", "table", t.Name)

	if err := t.checkSchema(norm); err != nil {
		return err
	}

	if t.PrimaryKey != "" {
		val := norm[t.PrimaryKey]
		if len(t.indexes[t.PrimaryKey].Positions(val)) > 0 {
			return errors.NewPrimaryKeyViolation(t.Name, t.PrimaryKey, val)
		}
	}

	newRows := make([]data.Row, len(t.rows), len(t.rows)+1)
	copy(newRows, t.rows)
	newRows = append(newRows, norm)

	return t.commitUnsafe(newRows)
}

// Select returns copies of the rows matching every equality in cond, in
// insertion order. A nil or empty condition returns all rows.
func (t *Table) Select(cond data.Condition) ([]data.Row, error) {
	return t.SelectWhere(cond.Filter())
}

// SelectWhere returns copies of the rows matching the filter
func (t *Table) SelectWhere(filter data.Filter) ([]data.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkAttachedUnsafe(); err != nil {
		return nil, err
	}

	f, err := t.prepareFilter(filter)
	if err != nil {
		return nil, err
	}

	slog.Debug("Select operation", "table", t.Name, "filter", len(f))

	result := make([]data.Row, 0)
	for _, pos := range t.candidatesUnsafe(f) {
		row := t.rows[pos]
		if f.Match(row) {
			result = append(result, row.Copy())
		}
	}
	return result, nil
}

// Lookup returns the rows whose column equals value, through the column's
// index when one exists
func (t *Table) Lookup(column string, value any) ([]data.Row, error) {
	return t.SelectWhere(data.Filter{{Column: column, Op: data.OpEq, Value: value}})
}

// Update overwrites the assigned columns of every row matching cond.
// Returns the number of rows updated; zero matches persist nothing.
func (t *Table) Update(cond data.Condition, assignments data.Row) (int, error) {
	return t.UpdateWhere(cond.Filter(), assignments)
}

// UpdateWhere is Update with a comparison filter
func (t *Table) UpdateWhere(filter data.Filter, assignments data.Row) (int, error) {
	set, err := data.NormalizeRow(assignments)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkAttachedUnsafe(); err != nil {
		return 0, err
	}

	f, err := t.prepareFilter(filter)
	if err != nil {
		return 0, err
	}
	for colName := range set {
		if !t.columnSet[colName] {
			return 0, &errors.ColumnNotFoundError{TableName: t.Name, ColumnName: colName}
		}
	}

	slog.Debug("Update operation", "table", t.Name, "filter", len(f))

	newRows := make([]data.Row, len(t.rows))
	copy(newRows, t.rows)

	count := 0
	for _, pos := range t.candidatesUnsafe(f) {
		if !f.Match(t.rows[pos]) {
			continue
		}
		updated := t.rows[pos].Copy()
		for colName, newValue := range set {
			updated[colName] = newValue
		}
		newRows[pos] = updated
		count++
	}

	if count == 0 {
		return 0, nil
	}

	if _, changesKey := set[t.PrimaryKey]; changesKey && t.PrimaryKey != "" {
		if err := t.checkPrimaryKey(newRows); err != nil {
			return 0, err
		}
	}

	if err := t.commitUnsafe(newRows); err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes every row matching cond and persists the table, even when
// nothing matched. Returns the number of rows deleted.
func (t *Table) Delete(cond data.Condition) (int, error) {
	return t.DeleteWhere(cond.Filter())
}

// DeleteWhere is Delete with a comparison filter
func (t *Table) DeleteWhere(filter data.Filter) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkAttachedUnsafe(); err != nil {
		return 0, err
	}

	f, err := t.prepareFilter(filter)
	if err != nil {
		return 0, err
	}

	slog.Debug("Delete operation", "table", t.Name, "filter", len(f))

	newRows := make([]data.Row, 0, len(t.rows))
	deleted := 0

	for _, row := range t.rows {
		if f.Match(row) {
			deleted++
		} else {
			newRows = append(newRows, row)
		}
	}

	if err := t.commitUnsafe(newRows); err != nil {
		return 0, err
	}
	return deleted, nil
}

// CreateIndex builds a value → row positions index on column
func (t *Table) CreateIndex(column string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkAttachedUnsafe(); err != nil {
		return err
	}

	if !t.columnSet[column] {
		return &errors.ColumnNotFoundError{TableName: t.Name, ColumnName: column}
	}

	if _, exists := t.indexes[column]; exists {
		return nil
	}

	idx := data.NewIndex(column, column == t.PrimaryKey)
	idx.Rebuild(t.rows)
	t.indexes[column] = idx

	slog.Debug("index built",
		slog.String("table", t.Name),
		slog.String("column", column),
		slog.Int("unique_values", len(idx.Data)),
	)
	return nil
}

// Drop removes the table's file and clears rows and indexes. The table
// cannot be used afterwards.
func (t *Table) Drop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkAttachedUnsafe(); err != nil {
		return err
	}

	if t.persister != nil {
		if err := t.persister.RemoveTable(t.Name); err != nil {
			return err
		}
	}

	t.rows = nil
	t.indexes = make(map[string]*data.Index)
	t.detached = true

	slog.Info("Table dropped", "table", t.Name)
	return nil
}

// Detach invalidates the handle without touching disk. Used when the
// registry is replaced by a reload.
func (t *Table) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detached = true
}

// Detached reports whether the table was dropped or replaced
func (t *Table) Detached() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.detached
}

// Count returns the number of rows
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Indexes returns the indexed column names
func (t *Table) Indexes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cols := make([]string, 0, len(t.indexes))
	for _, col := range t.Columns {
		if _, ok := t.indexes[col]; ok {
			cols = append(cols, col)
		}
	}
	return cols
}

// HasColumn reports whether column is part of the schema
func (t *Table) HasColumn(column string) bool {
	return t.columnSet[column]
}

// State returns the table's current on-disk shape
func (t *Table) State() storage.TableFile {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stateUnsafe(t.rows)
}

func (t *Table) stateUnsafe(rows []data.Row) storage.TableFile {
	return storage.NewTableFile(t.Columns, t.PrimaryKey, rows)
}

// commitUnsafe persists rows and then adopts them
// IMPORTANT: Must be called while holding write lock!
func (t *Table) commitUnsafe(rows []data.Row) error {
	if t.persister != nil {
		if err := t.persister.PersistTable(t.Name, t.stateUnsafe(rows)); err != nil {
			slog.Error("table save failed, in-memory state kept",
				slog.String("table", t.Name),
				slog.Any("error", err),
			)
			return err
		}
	}

	t.rows = rows
	t.rebuildIndexesUnsafe()
	return nil
}

// rebuildIndexesUnsafe rebuilds all indexes
// IMPORTANT: Must be called while holding write lock!
func (t *Table) rebuildIndexesUnsafe() {
	for _, idx := range t.indexes {
		idx.Rebuild(t.rows)
	}
}

// candidatesUnsafe returns the row positions worth testing against f, in
// ascending order. An equality on an indexed column narrows the scan.
func (t *Table) candidatesUnsafe(f data.Filter) []int {
	for _, c := range f {
		if c.Op != data.OpEq {
			continue
		}
		if idx, ok := t.indexes[c.Column]; ok {
			return idx.Positions(c.Value)
		}
	}

	all := make([]int, len(t.rows))
	for i := range all {
		all[i] = i
	}
	return all
}

func (t *Table) prepareFilter(filter data.Filter) (data.Filter, error) {
	for _, col := range filter.Columns() {
		if !t.columnSet[col] {
			return nil, &errors.ColumnNotFoundError{TableName: t.Name, ColumnName: col}
		}
	}
	return filter.Normalize()
}

// checkSchema verifies the row's key set equals the table's column set
func (t *Table) checkSchema(row data.Row) error {
	var missing, extra []string
	for _, col := range t.Columns {
		if _, ok := row[col]; !ok {
			missing = append(missing, col)
		}
	}
	for _, col := range row.Columns() {
		if !t.columnSet[col] {
			extra = append(extra, col)
		}
	}

	if len(missing) > 0 || len(extra) > 0 {
		return &errors.SchemaMismatchError{
			Table:   t.Name,
			Missing: missing,
			Extra:   extra,
			Reason:  "row columns do not match table columns",
		}
	}
	return nil
}

func (t *Table) checkPrimaryKey(rows []data.Row) error {
	if t.PrimaryKey == "" {
		return nil
	}
	seen := make(map[any]bool, len(rows))
	for _, row := range rows {
		val := row[t.PrimaryKey]
		if seen[val] {
			return errors.NewPrimaryKeyViolation(t.Name, t.PrimaryKey, val)
		}
		seen[val] = true
	}
	return nil
}

func (t *Table) checkAttachedUnsafe() error {
	if t.detached {
		return &errors.TableNotFoundError{TableName: t.Name}
	}
	return nil
}
