package manager

import (
	"fmt"
	"log/slog"

	"github.com/leengari/jsondb/internal/domain/transaction"
	"github.com/leengari/jsondb/internal/journal"
	"github.com/leengari/jsondb/internal/storage"
)

// JournalManager bridges the journal package with the database registry.
// When disabled every operation is a no-op and no journal file exists.
type JournalManager struct {
	journal *journal.Journal
	path    string
	enabled bool
}

// NewJournalManager opens the journal at path.
// If enabled is false, all operations become no-ops.
func NewJournalManager(path string, enabled bool) (*JournalManager, error) {
	if !enabled {
		return &JournalManager{path: path}, nil
	}

	j, err := journal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	slog.Info("Journal initialized", "path", path, "next_seq", j.NextSeq())

	return &JournalManager{
		journal: j,
		path:    path,
		enabled: true,
	}, nil
}

// IsEnabled returns whether the journal is active
func (m *JournalManager) IsEnabled() bool {
	return m.enabled && m.journal != nil
}

// LogPut records the complete new image of a table. Returns the entry's
// sequence number, 0 when disabled.
func (m *JournalManager) LogPut(tx *transaction.Transaction, table string, state storage.TableFile) (uint64, error) {
	if !m.IsEnabled() {
		return 0, nil
	}

	seq, err := m.journal.Append(journal.Entry{
		TxID:  tx.ID,
		Kind:  journal.KindPut,
		Table: table,
		State: &state,
	})
	if err != nil {
		return 0, fmt.Errorf("journal LogPut failed: %w", err)
	}

	slog.Debug("Journal: Put", "tx", tx.ID, "table", table, "rows", len(state.Records), "seq", seq)
	return seq, nil
}

// LogRemove records that a table was dropped
func (m *JournalManager) LogRemove(tx *transaction.Transaction, table string) (uint64, error) {
	if !m.IsEnabled() {
		return 0, nil
	}

	seq, err := m.journal.Append(journal.Entry{
		TxID:  tx.ID,
		Kind:  journal.KindRemove,
		Table: table,
	})
	if err != nil {
		return 0, fmt.Errorf("journal LogRemove failed: %w", err)
	}

	slog.Debug("Journal: Remove", "tx", tx.ID, "table", table, "seq", seq)
	return seq, nil
}

// Abort cancels the entry with seq after its files could not be written
func (m *JournalManager) Abort(tx *transaction.Transaction, seq uint64) error {
	if !m.IsEnabled() || seq == 0 {
		return nil
	}

	if err := m.journal.Abort(seq, tx.ID); err != nil {
		return fmt.Errorf("journal Abort failed: %w", err)
	}

	slog.Debug("Journal: Abort", "tx", tx.ID, "seq", seq)
	return nil
}

// Checkpoint empties the journal. Call it once the snapshot reflects every entry.
func (m *JournalManager) Checkpoint() error {
	if !m.IsEnabled() {
		return nil
	}
	if err := m.journal.Checkpoint(); err != nil {
		return fmt.Errorf("journal Checkpoint failed: %w", err)
	}
	return nil
}

// Recover reads the journal left by the previous process
func (m *JournalManager) Recover() (*journal.Result, error) {
	if !m.IsEnabled() {
		return &journal.Result{}, nil
	}

	result, err := journal.Recover(m.path)
	if err != nil {
		return nil, fmt.Errorf("journal recovery failed: %w", err)
	}

	slog.Info("Journal: Recovery scan complete",
		"path", m.path,
		"entries", len(result.Entries),
		"skipped", result.Skipped,
		"torn_tail", result.TornTail,
	)
	return result, nil
}

// Close closes the journal file
func (m *JournalManager) Close() error {
	if !m.IsEnabled() {
		return nil
	}
	slog.Info("Journal: Closing", "path", m.path)
	return m.journal.Close()
}

// snapshotReplayTarget implements journal.ReplayTarget over a snapshot and
// remembers which tables were touched so their files can be rewritten
type snapshotReplayTarget struct {
	snap    storage.Snapshot
	touched map[string]bool
}

func newSnapshotReplayTarget(snap storage.Snapshot) *snapshotReplayTarget {
	return &snapshotReplayTarget{snap: snap, touched: make(map[string]bool)}
}

// PutTable applies a table image during recovery
func (t *snapshotReplayTarget) PutTable(name string, state storage.TableFile) {
	t.snap[name] = state
	t.touched[name] = true
	slog.Debug("Replay: Put", "table", name, "rows", len(state.Records))
}

// RemoveTable applies a drop during recovery
func (t *snapshotReplayTarget) RemoveTable(name string) {
	delete(t.snap, name)
	t.touched[name] = true
	slog.Debug("Replay: Remove", "table", name)
}
