package schema

import (
	stderrors "errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/leengari/jsondb/internal/domain/data"
	"github.com/leengari/jsondb/internal/domain/errors"
	"github.com/leengari/jsondb/internal/storage"
)

// fakePersister records saved states and can be told to fail
type fakePersister struct {
	saves   []storage.TableFile
	removed []string
	fail    error
}

func (f *fakePersister) PersistTable(name string, state storage.TableFile) error {
	if f.fail != nil {
		return f.fail
	}
	f.saves = append(f.saves, state)
	return nil
}

func (f *fakePersister) RemoveTable(name string) error {
	if f.fail != nil {
		return f.fail
	}
	f.removed = append(f.removed, name)
	return nil
}

func newUsersTable(t *testing.T) (*Table, *fakePersister) {
	t.Helper()
	p := &fakePersister{}
	table, err := NewTable("users", []string{"id", "name", "age"}, "id", nil, p)
	assert.NilError(t, err)
	return table, p
}

func seedUsers(t *testing.T, table *Table) {
	t.Helper()
	assert.NilError(t, table.Insert(data.Row{"id": 1, "name": "Alice", "age": 30}))
	assert.NilError(t, table.Insert(data.Row{"id": 2, "name": "Bob", "age": 24}))
}

func TestNewTableValidation(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		pk      string
		rows    []data.Row
		target  error
	}{
		{"no columns", nil, "", nil, errors.ErrSchemaMismatch},
		{"duplicate column", []string{"id", "id"}, "", nil, errors.ErrSchemaMismatch},
		{"pk not a column", []string{"id"}, "key", nil, errors.ErrSchemaMismatch},
		{"row with extra column", []string{"id"}, "", []data.Row{{"id": 1, "x": 2}}, errors.ErrSchemaMismatch},
		{"duplicate key in rows", []string{"id"}, "id", []data.Row{{"id": 1}, {"id": 1}}, errors.ErrDuplicateKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable("t", tt.columns, tt.pk, tt.rows, nil)
			assert.Assert(t, stderrors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestInsertPreservesOrder(t *testing.T) {
	table, p := newUsersTable(t)
	seedUsers(t, table)

	rows, err := table.Select(nil)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 2)
	assert.Equal(t, rows[0]["name"], any("Alice"))
	assert.Equal(t, rows[1]["name"], any("Bob"))

	// values are normalized to int64
	assert.Equal(t, rows[0]["id"], any(int64(1)))

	// one save per insert
	assert.Equal(t, len(p.saves), 2)
	assert.Equal(t, len(p.saves[1].Records), 2)
}

func TestInsertDuplicateKey(t *testing.T) {
	table, p := newUsersTable(t)
	seedUsers(t, table)

	err := table.Insert(data.Row{"id": 1, "name": "Carol", "age": 41})
	assert.Assert(t, stderrors.Is(err, errors.ErrDuplicateKey))

	var ce *errors.ConstraintError
	assert.Assert(t, stderrors.As(err, &ce))
	assert.Equal(t, ce.Column, "id")

	assert.Equal(t, table.Count(), 2)
	assert.Equal(t, len(p.saves), 2)
}

func TestInsertSchemaMismatch(t *testing.T) {
	table, _ := newUsersTable(t)

	tests := []struct {
		name string
		row  data.Row
	}{
		{"missing column", data.Row{"id": 1, "name": "Alice"}},
		{"extra column", data.Row{"id": 1, "name": "Alice", "age": 30, "email": "a@x"}},
		{"empty row", data.Row{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := table.Insert(tt.row)
			assert.Assert(t, stderrors.Is(err, errors.ErrSchemaMismatch), "got %v", err)
			assert.Equal(t, table.Count(), 0)
		})
	}
}

func TestInsertUnsupportedValue(t *testing.T) {
	table, _ := newUsersTable(t)
	err := table.Insert(data.Row{"id": 1, "name": []string{"x"}, "age": 3})
	assert.Assert(t, stderrors.Is(err, errors.ErrMalformedLiteral))
}

func TestSelectReturnsCopies(t *testing.T) {
	table, _ := newUsersTable(t)
	seedUsers(t, table)

	rows, err := table.Select(data.Condition{"id": 1})
	assert.NilError(t, err)
	rows[0]["name"] = "Mallory"

	again, err := table.Select(data.Condition{"id": 1})
	assert.NilError(t, err)
	assert.Equal(t, again[0]["name"], any("Alice"))
}

func TestSelectExactTypeEquality(t *testing.T) {
	table, _ := newUsersTable(t)
	seedUsers(t, table)

	rows, err := table.Select(data.Condition{"age": 30.0})
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 0)

	rows, err = table.Select(data.Condition{"age": 30})
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
}

func TestSelectUnknownColumn(t *testing.T) {
	table, _ := newUsersTable(t)
	seedUsers(t, table)

	_, err := table.Select(data.Condition{"email": "x"})
	assert.Assert(t, stderrors.Is(err, errors.ErrUnknownColumn))
}

func TestSelectWhereOrdering(t *testing.T) {
	table, _ := newUsersTable(t)
	seedUsers(t, table)
	assert.NilError(t, table.Insert(data.Row{"id": 3, "name": "Charlie", "age": 28}))

	rows, err := table.SelectWhere(data.Filter{{Column: "age", Op: data.OpGt, Value: 25}})
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 2)
	assert.Equal(t, rows[0]["name"], any("Alice"))
	assert.Equal(t, rows[1]["name"], any("Charlie"))
}

func TestUpdate(t *testing.T) {
	table, p := newUsersTable(t)
	seedUsers(t, table)

	n, err := table.Update(data.Condition{"id": 1}, data.Row{"name": "Alice Cooper"})
	assert.NilError(t, err)
	assert.Equal(t, n, 1)

	rows, err := table.Select(data.Condition{"id": 1})
	assert.NilError(t, err)
	assert.Assert(t, rows[0].Equal(data.Row{"id": int64(1), "name": "Alice Cooper", "age": int64(30)}))
	assert.Equal(t, len(p.saves), 3)
}

func TestUpdateNoMatchDoesNotPersist(t *testing.T) {
	table, p := newUsersTable(t)
	seedUsers(t, table)

	n, err := table.Update(data.Condition{"id": 99}, data.Row{"name": "Nobody"})
	assert.NilError(t, err)
	assert.Equal(t, n, 0)
	assert.Equal(t, len(p.saves), 2)
}

func TestUpdateRejectsUnknownAndDuplicateKey(t *testing.T) {
	table, _ := newUsersTable(t)
	seedUsers(t, table)

	_, err := table.Update(data.Condition{"id": 1}, data.Row{"email": "x"})
	assert.Assert(t, stderrors.Is(err, errors.ErrUnknownColumn))

	_, err = table.Update(data.Condition{"id": 1}, data.Row{"id": 2})
	assert.Assert(t, stderrors.Is(err, errors.ErrDuplicateKey))

	rows, err := table.Select(data.Condition{"id": 1})
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
}

func TestDeletePersistsEvenWithoutMatch(t *testing.T) {
	table, p := newUsersTable(t)
	seedUsers(t, table)

	n, err := table.Delete(data.Condition{"id": 99})
	assert.NilError(t, err)
	assert.Equal(t, n, 0)
	assert.Equal(t, len(p.saves), 3)

	n, err = table.Delete(data.Condition{"id": 2})
	assert.NilError(t, err)
	assert.Equal(t, n, 1)
	assert.Equal(t, table.Count(), 1)
}

func TestFailedSaveKeepsMemory(t *testing.T) {
	table, p := newUsersTable(t)
	seedUsers(t, table)

	p.fail = &errors.IOError{Op: "write table", Path: "users.json", Err: stderrors.New("disk full")}

	err := table.Insert(data.Row{"id": 3, "name": "Carol", "age": 41})
	assert.Assert(t, stderrors.Is(err, errors.ErrIOFailure))

	_, err = table.Update(data.Condition{"id": 1}, data.Row{"age": 31})
	assert.Assert(t, stderrors.Is(err, errors.ErrIOFailure))

	_, err = table.Delete(nil)
	assert.Assert(t, stderrors.Is(err, errors.ErrIOFailure))

	rows, err := table.Select(nil)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 2)
	assert.Equal(t, rows[0]["age"], any(int64(30)))
}

func TestIndexStaysFresh(t *testing.T) {
	table, _ := newUsersTable(t)
	seedUsers(t, table)

	assert.NilError(t, table.CreateIndex("name"))
	assert.DeepEqual(t, table.Indexes(), []string{"id", "name"})

	_, err := table.Delete(data.Condition{"id": 1})
	assert.NilError(t, err)
	_, err = table.Update(data.Condition{"id": 2}, data.Row{"name": "Robert"})
	assert.NilError(t, err)

	rows, err := table.Lookup("name", "Robert")
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0]["id"], any(int64(2)))

	rows, err = table.Lookup("name", "Bob")
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 0)
}

func TestCreateIndexUnknownColumn(t *testing.T) {
	table, _ := newUsersTable(t)
	err := table.CreateIndex("email")

	var cnf *errors.ColumnNotFoundError
	assert.Assert(t, stderrors.As(err, &cnf))
	assert.Equal(t, cnf.ColumnName, "email")
}

func TestDrop(t *testing.T) {
	table, p := newUsersTable(t)
	seedUsers(t, table)

	assert.NilError(t, table.Drop())
	assert.DeepEqual(t, p.removed, []string{"users"})
	assert.Equal(t, table.Count(), 0)
	assert.Assert(t, table.Detached())

	_, err := table.Select(nil)
	assert.Assert(t, stderrors.Is(err, errors.ErrTableNotFound))
	err = table.Insert(data.Row{"id": 3, "name": "Carol", "age": 41})
	assert.Assert(t, stderrors.Is(err, errors.ErrTableNotFound))
}

func TestUsersScenario(t *testing.T) {
	table, _ := newUsersTable(t)
	seedUsers(t, table)

	rows, err := table.Select(data.Condition{"age": 30})
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Assert(t, rows[0].Equal(data.Row{"id": int64(1), "name": "Alice", "age": int64(30)}))

	_, err = table.Update(data.Condition{"id": 1}, data.Row{"name": "Alice Cooper"})
	assert.NilError(t, err)

	_, err = table.Delete(data.Condition{"id": 2})
	assert.NilError(t, err)

	rows, err = table.Select(nil)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Assert(t, rows[0].Equal(data.Row{"id": int64(1), "name": "Alice Cooper", "age": int64(30)}))
}
