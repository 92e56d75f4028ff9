package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/leengari/jsondb/internal/domain/transaction"
	"github.com/leengari/jsondb/internal/parser"
	"github.com/leengari/jsondb/internal/storage/manager"
)

// ErrNoDatabase is returned when the engine has no database to run against
var ErrNoDatabase = errors.New("no database open")

const tracerName = "github.com/leengari/jsondb/internal/engine"

// Engine is the main entry point for textual queries
type Engine struct {
	db     *manager.Database
	tracer trace.Tracer

	mu        sync.RWMutex
	observers []Observer // Observers for lifecycle events
}

// Option configures an Engine
type Option func(*Engine)

// WithTracer replaces the global OpenTelemetry tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// New creates a new Engine instance
func New(db *manager.Database, opts ...Option) *Engine {
	e := &Engine{
		db:        db,
		tracer:    otel.Tracer(tracerName),
		observers: make([]Observer, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Database returns the database the engine executes against
func (e *Engine) Database() *manager.Database {
	return e.db
}

// Execute processes a query string and returns the result
func (e *Engine) Execute(query string) (*Result, error) {
	return e.ExecuteContext(context.Background(), query)
}

// ExecuteContext parses and runs one query inside a trace span. The
// context is checked before the table operation starts; table operations
// themselves are not interruptible.
func (e *Engine) ExecuteContext(ctx context.Context, query string) (*Result, error) {
	// 0. Start Transaction
	tx := transaction.NewTransaction(transaction.KindRead)
	defer tx.Close()

	ctx, span := e.tracer.Start(ctx, "jsondb.execute",
		trace.WithAttributes(
			attribute.String("db.statement", query),
			attribute.String("tx.id", tx.ID),
		),
	)
	defer span.End()

	// 1. Parse
	e.notify(Event{Type: EventParseStart, TxID: tx.ID, Data: query})
	q, err := parser.Parse(query)
	if err != nil {
		return nil, e.fail(span, tx, "", err)
	}
	if q.IsWrite() {
		tx.Kind = transaction.KindWrite
	}
	kind := string(q.Kind)
	span.SetAttributes(
		attribute.String("db.operation", kind),
		attribute.String("db.table", q.Table),
		attribute.String("tx.kind", string(tx.Kind)),
	)
	e.notify(Event{Type: EventParseEnd, TxID: tx.ID, Data: q.Kind})

	// 2. Execute
	if err := ctx.Err(); err != nil {
		return nil, e.fail(span, tx, kind, err)
	}
	if e.db == nil {
		return nil, e.fail(span, tx, kind, ErrNoDatabase)
	}

	e.notify(Event{Type: EventExecStart, TxID: tx.ID, Data: q.Table})
	result, err := execute(e.db, q)
	if err != nil {
		return nil, e.fail(span, tx, kind, err)
	}

	elapsed := tx.Elapsed()
	span.SetAttributes(
		attribute.Int("db.rows_affected", result.RowsAffected),
		attribute.Int("db.rows_returned", len(result.Rows)),
		attribute.Int64("duration_ms", elapsed.Milliseconds()),
	)
	span.SetStatus(codes.Ok, "")

	e.notify(Event{Type: EventExecEnd, TxID: tx.ID, Data: ExecSummary{
		Kind:         kind,
		Table:        q.Table,
		RowsAffected: result.RowsAffected,
		RowsReturned: len(result.Rows),
		Duration:     elapsed,
	}})
	return result, nil
}

// fail records err on the span and notifies observers
func (e *Engine) fail(span trace.Span, tx *transaction.Transaction, kind string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	e.notify(Event{Type: EventExecError, TxID: tx.ID, Data: ExecFailure{
		Kind:     kind,
		Err:      err,
		Duration: tx.Elapsed(),
	}})
	return err
}

// AddObserver registers an observer to receive lifecycle events
func (e *Engine) AddObserver(observer Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, observer)
}

// RemoveObserver unregisters an observer
func (e *Engine) RemoveObserver(observer Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, o := range e.observers {
		if o == observer {
			e.observers = append(e.observers[:i], e.observers[i+1:]...)
			return
		}
	}
}

// notify sends an event to all registered observers
func (e *Engine) notify(event Event) {
	event.Timestamp = time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, observer := range e.observers {
		observer.OnEvent(event)
	}
}
