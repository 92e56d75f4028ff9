package engine

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gotest.tools/v3/assert"

	"github.com/leengari/jsondb/internal/domain/data"
	"github.com/leengari/jsondb/internal/domain/errors"
	"github.com/leengari/jsondb/internal/parser/ast"
	"github.com/leengari/jsondb/internal/storage/manager"
)

// setupEngine opens a database with the users table and three rows
func setupEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	db, err := manager.Open(filepath.Join(t.TempDir(), "test_db"))
	assert.NilError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.CreateTable("users", []string{"id", "name", "age"}, "id")
	assert.NilError(t, err)

	eng := New(db, opts...)
	for _, q := range []string{
		`INSERT INTO users VALUES {"id": 1, "name": "Alice", "age": 30}`,
		`INSERT INTO users VALUES {"id": 2, "name": "Bob", "age": 24}`,
		`INSERT INTO users VALUES (3, 'Charlie', 28)`,
	} {
		res, err := eng.Execute(q)
		assert.NilError(t, err)
		assert.Equal(t, res.RowsAffected, 1)
	}
	return eng
}

func names(rows []data.Row) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i], _ = row["name"].(string)
	}
	return out
}

func TestSelectAll(t *testing.T) {
	eng := setupEngine(t)

	res, err := eng.Execute("SELECT * FROM users")
	assert.NilError(t, err)
	assert.Equal(t, res.Kind, ast.Select)
	assert.DeepEqual(t, res.Columns, []string{"id", "name", "age"})
	assert.DeepEqual(t, names(res.Rows), []string{"Alice", "Bob", "Charlie"})
}

func TestSelectWithConditions(t *testing.T) {
	eng := setupEngine(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"SELECT * FROM users WHERE age = 30", []string{"Alice"}},
		{`SELECT * FROM users WHERE {"age": 30}`, []string{"Alice"}},
		{"SELECT * FROM users WHERE age > 25", []string{"Alice", "Charlie"}},
		{"SELECT * FROM users WHERE age >= 24 AND age < 30", []string{"Bob", "Charlie"}},
		{"SELECT * FROM users WHERE name != 'Bob'", []string{"Alice", "Charlie"}},
		{"SELECT * FROM users WHERE age = 30.0", []string{}},
		{"select * from users where id = 99;", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res, err := eng.Execute(tt.query)
			assert.NilError(t, err)
			assert.DeepEqual(t, names(res.Rows), tt.want)
		})
	}
}

func TestSelectProjection(t *testing.T) {
	eng := setupEngine(t)

	res, err := eng.Execute("SELECT name, age FROM users WHERE id = 2")
	assert.NilError(t, err)
	assert.DeepEqual(t, res.Columns, []string{"name", "age"})
	assert.Equal(t, len(res.Rows), 1)
	assert.Assert(t, res.Rows[0].Equal(data.Row{"name": "Bob", "age": int64(24)}))

	_, err = eng.Execute("SELECT email FROM users")
	assert.Assert(t, stderrors.Is(err, errors.ErrUnknownColumn))
}

func TestUsersScenario(t *testing.T) {
	eng := setupEngine(t)

	res, err := eng.Execute("UPDATE users SET name = 'Alice Cooper' WHERE id = 1")
	assert.NilError(t, err)
	assert.Equal(t, res.RowsAffected, 1)

	res, err = eng.Execute("SELECT * FROM users WHERE id = 1")
	assert.NilError(t, err)
	assert.DeepEqual(t, names(res.Rows), []string{"Alice Cooper"})

	res, err = eng.Execute("DELETE FROM users WHERE id = 2")
	assert.NilError(t, err)
	assert.Equal(t, res.RowsAffected, 1)

	res, err = eng.Execute("SELECT * FROM users")
	assert.NilError(t, err)
	assert.DeepEqual(t, names(res.Rows), []string{"Alice Cooper", "Charlie"})
}

func TestUpdateWithoutMatch(t *testing.T) {
	eng := setupEngine(t)

	res, err := eng.Execute("UPDATE users SET age = 99 WHERE name = 'Nobody'")
	assert.NilError(t, err)
	assert.Equal(t, res.RowsAffected, 0)
	assert.Equal(t, res.Message, "0 row(s) updated")
}

func TestExecuteErrors(t *testing.T) {
	eng := setupEngine(t)

	tests := []struct {
		name   string
		query  string
		target error
	}{
		{"unknown table", "SELECT * FROM ghosts", errors.ErrTableNotFound},
		{"unsupported", "DROP TABLE users", errors.ErrUnsupportedQuery},
		{"injection", "SELECT * FROM users WHERE __import__('os')", errors.ErrMalformedLiteral},
		{"duplicate key", `INSERT INTO users VALUES {"id": 1, "name": "Eve", "age": 50}`, errors.ErrDuplicateKey},
		{"schema mismatch", `INSERT INTO users VALUES {"id": 9, "name": "Eve"}`, errors.ErrSchemaMismatch},
		{"tuple arity", `INSERT INTO users VALUES (9, 'Eve')`, errors.ErrSchemaMismatch},
		{"unknown condition column", "DELETE FROM users WHERE email = 'x'", errors.ErrUnknownColumn},
		{"unknown set column", "UPDATE users SET email = 'x'", errors.ErrUnknownColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.Execute(tt.query)
			assert.Assert(t, stderrors.Is(err, tt.target), "got %v", err)
		})
	}

	res, err := eng.Execute("SELECT * FROM users")
	assert.NilError(t, err)
	assert.Equal(t, len(res.Rows), 3)
}

func TestExecuteCancelledContext(t *testing.T) {
	eng := setupEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.ExecuteContext(ctx, "DELETE FROM users")
	assert.Assert(t, stderrors.Is(err, context.Canceled))

	res, err := eng.Execute("SELECT * FROM users")
	assert.NilError(t, err)
	assert.Equal(t, len(res.Rows), 3)
}

func TestExecuteWithoutDatabase(t *testing.T) {
	eng := New(nil)
	_, err := eng.Execute("SELECT * FROM users")
	assert.Assert(t, stderrors.Is(err, ErrNoDatabase))
}

func TestLifecycleEvents(t *testing.T) {
	eng := setupEngine(t)
	observer := &MockObserver{}
	eng.AddObserver(observer)

	_, err := eng.Execute("SELECT * FROM users WHERE age > 25")
	assert.NilError(t, err)
	assert.DeepEqual(t, observer.Types(), []EventType{EventParseStart, EventParseEnd, EventExecStart, EventExecEnd})

	summary, ok := observer.Events[3].Data.(ExecSummary)
	assert.Assert(t, ok)
	assert.Equal(t, summary.Kind, "SELECT")
	assert.Equal(t, summary.RowsReturned, 2)

	// every event of one execution shares the transaction id
	for _, e := range observer.Events {
		assert.Equal(t, e.TxID, observer.Events[0].TxID)
	}

	observer.Events = nil
	_, err = eng.Execute("SELECT * FROM")
	assert.Assert(t, err != nil)
	assert.DeepEqual(t, observer.Types(), []EventType{EventParseStart, EventExecError})
}

func TestMetricsObserver(t *testing.T) {
	eng := setupEngine(t)

	reg := prometheus.NewRegistry()
	metrics, err := NewMetricsObserver("jsondb", reg)
	assert.NilError(t, err)
	eng.AddObserver(metrics)

	_, err = eng.Execute("SELECT * FROM users")
	assert.NilError(t, err)
	_, err = eng.Execute("SELECT * FROM users WHERE id = 1")
	assert.NilError(t, err)
	_, err = eng.Execute("DELETE FROM users WHERE id = 3")
	assert.NilError(t, err)
	_, err = eng.Execute("SELECT * FROM ghosts")
	assert.Assert(t, err != nil)
	_, err = eng.Execute("nonsense")
	assert.Assert(t, err != nil)

	assert.Equal(t, testutil.ToFloat64(metrics.queries.WithLabelValues("SELECT", "success")), 2.0)
	assert.Equal(t, testutil.ToFloat64(metrics.queries.WithLabelValues("DELETE", "success")), 1.0)
	assert.Equal(t, testutil.ToFloat64(metrics.queries.WithLabelValues("SELECT", "error")), 1.0)
	assert.Equal(t, testutil.ToFloat64(metrics.queries.WithLabelValues("unparsed", "error")), 1.0)
	assert.Equal(t, testutil.ToFloat64(metrics.rows.WithLabelValues("SELECT")), 4.0)

	// registering twice on the same registry fails
	_, err = NewMetricsObserver("jsondb", reg)
	assert.Assert(t, err != nil)
}

func TestExecuteSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	eng := setupEngine(t, WithTracer(provider.Tracer("test")))

	_, err := eng.Execute("SELECT * FROM ghosts")
	assert.Assert(t, err != nil)

	spans := recorder.Ended()
	// three inserts during setup, then the failed select
	assert.Equal(t, len(spans), 4)
	last := spans[3]
	assert.Equal(t, last.Name(), "jsondb.execute")
	assert.Equal(t, last.Status().Code, codes.Error)
	assert.Equal(t, spans[0].Status().Code, codes.Ok)
}
