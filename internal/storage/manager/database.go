package manager

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"

	dberrors "github.com/leengari/jsondb/internal/domain/errors"
	"github.com/leengari/jsondb/internal/domain/schema"
	"github.com/leengari/jsondb/internal/domain/transaction"
	"github.com/leengari/jsondb/internal/storage"
)

// ErrClosed is returned by writes issued after Close
var ErrClosed = errors.New("database is closed")

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// names that would collide with the database's own files
var reservedTableNames = map[string]bool{"db": true}

// Database is the registry of tables bound to one directory.
//
// Lock order: mu (registry) → table lock → persistMu (disk writes).
// committed mirrors db.json and is only touched under persistMu, so a table
// save never needs another table's lock to rewrite the snapshot.
type Database struct {
	mu     sync.RWMutex
	layout storage.Layout
	tables map[string]*schema.Table

	persistMu sync.Mutex
	committed storage.Snapshot
	journal   *JournalManager
	closed    bool
}

type options struct {
	journal bool
}

// Option configures Open
type Option func(*options)

// WithJournal enables or disables the write-ahead journal (enabled by default)
func WithJournal(enabled bool) Option {
	return func(o *options) { o.journal = enabled }
}

// Open binds a database to dir: the directory and an empty snapshot are
// created when missing, a leftover journal is replayed, and every table in
// db.json is loaded.
func Open(dir string, opts ...Option) (*Database, error) {
	o := options{journal: true}
	for _, opt := range opts {
		opt(&o)
	}

	layout := storage.Layout{Dir: dir}
	if err := layout.EnsureDirectory(); err != nil {
		return nil, err
	}

	snap, err := layout.LoadSnapshot()
	if err != nil {
		return nil, err
	}

	db := &Database{
		layout:    layout,
		tables:    make(map[string]*schema.Table),
		committed: snap,
	}

	db.journal, err = NewJournalManager(layout.JournalPath(), o.journal)
	if err != nil {
		return nil, err
	}
	if err := db.recover(); err != nil {
		db.journal.Close()
		return nil, fmt.Errorf("journal recovery failed (refusing to start): %w", err)
	}
	if err := db.journal.Checkpoint(); err != nil {
		db.journal.Close()
		return nil, err
	}

	tables, err := db.buildTables(db.committed)
	if err != nil {
		db.journal.Close()
		return nil, err
	}
	db.tables = tables

	slog.Info("Database opened",
		slog.String("dir", dir),
		slog.Int("tables", len(tables)),
		slog.Bool("journal", o.journal),
	)
	return db, nil
}

// Dir returns the database directory
func (db *Database) Dir() string {
	return db.layout.Dir
}

// CreateTable registers a new table and persists it. When <name>.json
// already exists its records become the table's rows.
func (db *Database) CreateTable(name string, columns []string, primaryKey string) (*schema.Table, error) {
	if err := validateTableName(name); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if existing, ok := db.tables[name]; ok && !existing.Detached() {
		return nil, &dberrors.TableExistsError{TableName: name}
	}

	tf, found, err := db.layout.LoadTable(name)
	if err != nil {
		return nil, err
	}

	table, err := schema.NewTable(name, columns, primaryKey, tf.Records, db)
	if err != nil {
		return nil, err
	}

	if err := db.PersistTable(name, table.State()); err != nil {
		return nil, err
	}
	db.tables[name] = table

	slog.Info("Table created",
		slog.String("table", name),
		slog.Any("columns", columns),
		slog.String("primary_key", primaryKey),
		slog.Bool("loaded_existing_file", found),
		slog.Int("rows", len(tf.Records)),
	)
	return table, nil
}

// GetTable returns the registered table
func (db *Database) GetTable(name string) (*schema.Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	table, ok := db.tables[name]
	if !ok || table.Detached() {
		return nil, &dberrors.TableNotFoundError{TableName: name}
	}
	return table, nil
}

// DropTable drops the table's data and file and unregisters it
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	table, ok := db.tables[name]
	if !ok || table.Detached() {
		return &dberrors.TableNotFoundError{TableName: name}
	}

	if err := table.Drop(); err != nil {
		return err
	}
	delete(db.tables, name)
	return nil
}

// Tables returns the registered table names, sorted
func (db *Database) Tables() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.tables))
	for name, table := range db.tables {
		if !table.Detached() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Load rebuilds every table from db.json, replacing the registry.
// Handles obtained earlier become detached.
func (db *Database) Load() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	// waits for in-flight mutations on the old handles
	db.detachAllUnsafe()

	db.persistMu.Lock()
	snap, err := db.layout.LoadSnapshot()
	if err == nil {
		db.committed = snap
	}
	db.persistMu.Unlock()
	if err != nil {
		return err
	}

	tables, err := db.buildTables(snap)
	if err != nil {
		return err
	}
	db.tables = tables

	slog.Info("Database loaded", slog.String("dir", db.layout.Dir), slog.Int("tables", len(tables)))
	return nil
}

// Close closes the journal. Later writes fail with ErrClosed.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.persistMu.Lock()
	defer db.persistMu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true
	return db.journal.Close()
}

// PersistTable implements schema.Persister: journal the new image, write
// <name>.json, then db.json, then checkpoint the journal
func (db *Database) PersistTable(name string, state storage.TableFile) error {
	db.persistMu.Lock()
	defer db.persistMu.Unlock()

	return db.commitUnsafe(name, &state)
}

// RemoveTable implements schema.Persister for drops
func (db *Database) RemoveTable(name string) error {
	db.persistMu.Lock()
	defer db.persistMu.Unlock()

	return db.commitUnsafe(name, nil)
}

// commitUnsafe writes one table change; a nil state removes the table.
// IMPORTANT: Must be called while holding persistMu!
func (db *Database) commitUnsafe(name string, state *storage.TableFile) error {
	if db.closed {
		return &dberrors.IOError{Op: "commit", Path: db.layout.Dir, Err: ErrClosed}
	}

	tx := transaction.NewTransaction(transaction.KindWrite)
	defer tx.Close()

	var seq uint64
	var err error
	if state != nil {
		seq, err = db.journal.LogPut(tx, name, *state)
	} else {
		seq, err = db.journal.LogRemove(tx, name)
	}
	if err != nil {
		return &dberrors.IOError{Op: "journal", Path: db.layout.JournalPath(), Err: err}
	}

	next := db.committed.Clone()
	if state != nil {
		next[name] = *state
		err = db.layout.SaveTable(name, *state)
	} else {
		delete(next, name)
		err = db.layout.RemoveTable(name)
	}
	if err == nil {
		err = db.layout.SaveSnapshot(next)
	}

	if err != nil {
		db.rollbackTableFileUnsafe(name)
		if abortErr := db.journal.Abort(tx, seq); abortErr != nil {
			slog.Error("journal abort failed", "table", name, "seq", seq, "error", abortErr)
		}
		return err
	}

	db.committed = next

	// the files are already durable; a failed checkpoint only leaves an
	// idempotent entry behind for the next open
	if err := db.journal.Checkpoint(); err != nil {
		slog.Warn("journal checkpoint failed", "table", name, "error", err)
	}

	slog.Debug("Table committed",
		slog.String("table", name),
		slog.String("tx", tx.ID),
		slog.Uint64("seq", seq),
		slog.Duration("elapsed", tx.Elapsed()),
	)
	return nil
}

// rollbackTableFileUnsafe puts <name>.json back to its committed content
// after a failed snapshot write
// IMPORTANT: Must be called while holding persistMu!
func (db *Database) rollbackTableFileUnsafe(name string) {
	var err error
	if prev, ok := db.committed[name]; ok {
		err = db.layout.SaveTable(name, prev)
	} else {
		err = db.layout.RemoveTable(name)
	}
	if err != nil {
		slog.Error("table file rollback failed", "table", name, "error", err)
	}
}

// recover replays a leftover journal over the committed snapshot and
// rewrites the affected files
func (db *Database) recover() error {
	result, err := db.journal.Recover()
	if err != nil {
		return err
	}
	if result.Empty() {
		return nil
	}

	target := newSnapshotReplayTarget(db.committed.Clone())
	if err := result.ReplayAll(target); err != nil {
		return err
	}

	for name := range target.touched {
		if tf, ok := target.snap[name]; ok {
			err = db.layout.SaveTable(name, tf)
		} else {
			err = db.layout.RemoveTable(name)
		}
		if err != nil {
			return err
		}
	}
	if err := db.layout.SaveSnapshot(target.snap); err != nil {
		return err
	}
	db.committed = target.snap

	slog.Info("Journal: Recovery complete",
		slog.Int("entries", len(result.Entries)),
		slog.Int("tables", len(target.touched)),
	)
	return nil
}

// buildTables creates table handles for every snapshot entry
func (db *Database) buildTables(snap storage.Snapshot) (map[string]*schema.Table, error) {
	tables := make(map[string]*schema.Table, len(snap))
	for name, tf := range snap {
		columns := tf.Columns
		if len(columns) == 0 && len(tf.Records) > 0 {
			columns = tf.Records[0].Columns()
		}
		if len(columns) == 0 {
			// an empty legacy entry; it stays in db.json until CreateTable replaces it
			slog.Warn("skipping table without columns",
				slog.String("table", name),
				slog.String("path", db.layout.SnapshotPath()),
			)
			continue
		}

		table, err := schema.NewTable(name, columns, tf.PrimaryKeyName(), tf.Records, db)
		if err != nil {
			return nil, fmt.Errorf("failed to load table %s from %s: %w", name, db.layout.SnapshotPath(), err)
		}
		tables[name] = table

		slog.Debug("table loaded", slog.String("table", name), slog.Int("rows", table.Count()))
	}
	return tables, nil
}

// detachAllUnsafe invalidates every registered handle
// IMPORTANT: Must be called while holding mu!
func (db *Database) detachAllUnsafe() {
	for _, table := range db.tables {
		table.Detach()
	}
	db.tables = make(map[string]*schema.Table)
}

func validateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return &dberrors.SchemaMismatchError{Table: name, Reason: "table names must be identifiers ([A-Za-z_][A-Za-z0-9_]*)"}
	}
	if reservedTableNames[name] {
		return &dberrors.SchemaMismatchError{Table: name, Reason: "table name is reserved"}
	}
	return nil
}
