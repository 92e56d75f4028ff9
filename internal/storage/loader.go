package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/leengari/jsondb/internal/domain/data"
	dberrors "github.com/leengari/jsondb/internal/domain/errors"
)

// EnsureDirectory creates the database directory if absent and writes an
// empty snapshot when none exists yet
func (l Layout) EnsureDirectory() error {
	if err := os.MkdirAll(l.Dir, 0755); err != nil {
		return &dberrors.IOError{Op: "create directory", Path: l.Dir, Err: err}
	}

	if _, err := os.Stat(l.SnapshotPath()); os.IsNotExist(err) {
		slog.Info("Initializing empty snapshot", slog.String("path", l.SnapshotPath()))
		return l.SaveSnapshot(Snapshot{})
	}
	return nil
}

// LoadSnapshot reads db.json. A missing file yields an empty snapshot.
func (l Layout) LoadSnapshot() (Snapshot, error) {
	path := l.SnapshotPath()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, &dberrors.IOError{Op: "read snapshot", Path: path, Err: err}
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, &dberrors.IOError{Op: "parse snapshot", Path: path, Err: err}
	}
	if snap == nil {
		snap = Snapshot{}
	}

	for name, tf := range snap {
		if tf.Records == nil {
			tf.Records = []data.Row{}
			snap[name] = tf
		}
	}

	slog.Debug("Snapshot loaded",
		slog.String("path", path),
		slog.Int("table_count", len(snap)),
	)
	return snap, nil
}

// LoadTable reads <table>.json. found is false when the file does not exist.
func (l Layout) LoadTable(name string) (tf TableFile, found bool, err error) {
	path := l.TablePath(name)

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return TableFile{}, false, nil
	}
	if err != nil {
		return TableFile{}, false, &dberrors.IOError{Op: "read table", Path: path, Err: err}
	}

	if err := json.Unmarshal(raw, &tf); err != nil {
		return TableFile{}, false, &dberrors.IOError{
			Op:   "parse table",
			Path: path,
			Err:  fmt.Errorf("table %s: %w", name, err),
		}
	}
	if tf.Records == nil {
		tf.Records = []data.Row{}
	}

	slog.Debug("table file loaded",
		slog.String("table", name),
		slog.Int("rows", len(tf.Records)),
	)
	return tf, true, nil
}
