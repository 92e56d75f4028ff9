package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	dberrors "github.com/leengari/jsondb/internal/domain/errors"
)

// SaveTable writes the table state to its own file, replacing prior content
func (l Layout) SaveTable(name string, tf TableFile) error {
	path := l.TablePath(name)

	dataBytes, err := json.MarshalIndent(tf, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal table %s: %w", name, err)
	}

	if err := writeFileAtomic(path, dataBytes); err != nil {
		return &dberrors.IOError{Op: "write table", Path: path, Err: err}
	}

	slog.Debug("Table saved",
		slog.String("table", name),
		slog.String("path", path),
		slog.Int("row_count", len(tf.Records)),
	)
	return nil
}

// SaveSnapshot writes every table state to db.json
func (l Layout) SaveSnapshot(snap Snapshot) error {
	path := l.SnapshotPath()

	if snap == nil {
		snap = Snapshot{}
	}
	metaBytes, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := writeFileAtomic(path, metaBytes); err != nil {
		return &dberrors.IOError{Op: "write snapshot", Path: path, Err: err}
	}

	slog.Debug("Snapshot saved",
		slog.String("path", path),
		slog.Int("table_count", len(snap)),
	)
	return nil
}

// RemoveTable deletes the per-table file; a missing file is not an error
func (l Layout) RemoveTable(name string) error {
	path := l.TablePath(name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &dberrors.IOError{Op: "remove table", Path: path, Err: err}
	}
	return nil
}

// Backup copies the snapshot verbatim over the single backup slot
func (l Layout) Backup() error {
	if err := copyFile(l.SnapshotPath(), l.BackupPath()); err != nil {
		return &dberrors.IOError{Op: "backup", Path: l.BackupPath(), Err: err}
	}
	return nil
}

// HasBackup reports whether the backup slot is filled
func (l Layout) HasBackup() bool {
	_, err := os.Stat(l.BackupPath())
	return err == nil
}

// RestoreBackup copies the backup over the live snapshot.
// Returns false when no backup exists.
func (l Layout) RestoreBackup() (bool, error) {
	if !l.HasBackup() {
		return false, nil
	}
	if err := copyFile(l.BackupPath(), l.SnapshotPath()); err != nil {
		return false, &dberrors.IOError{Op: "restore", Path: l.SnapshotPath(), Err: err}
	}
	return true, nil
}

// writeFileAtomic writes to a temp file and renames it over path. Each file
// is replaced atomically; a table file and the snapshot are not replaced together.
func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	return writeFileAtomic(dst, data)
}
