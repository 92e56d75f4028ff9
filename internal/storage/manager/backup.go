package manager

import "log/slog"

// Backup copies db.json verbatim over the single backup slot db.json.bak
func (db *Database) Backup() error {
	db.persistMu.Lock()
	defer db.persistMu.Unlock()

	if err := db.layout.Backup(); err != nil {
		return err
	}

	slog.Info("Backup saved", slog.String("path", db.layout.BackupPath()))
	return nil
}

// Restore copies the backup over db.json, rewrites the per-table files to
// match it and reloads the registry. Returns false when no backup exists.
func (db *Database) Restore() (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.layout.HasBackup() {
		slog.Info("No backup found", slog.String("path", db.layout.BackupPath()))
		return false, nil
	}

	// waits for in-flight mutations on the old handles
	db.detachAllUnsafe()

	if err := db.restoreFilesUnsafe(); err != nil {
		// keep serving whatever db.json now holds
		if tables, loadErr := db.buildTables(db.committed); loadErr == nil {
			db.tables = tables
		}
		return false, err
	}

	tables, err := db.buildTables(db.committed)
	if err != nil {
		return false, err
	}
	db.tables = tables

	slog.Info("Database restored from backup",
		slog.String("path", db.layout.BackupPath()),
		slog.Int("tables", len(tables)),
	)
	return true, nil
}

// restoreFilesUnsafe replaces db.json with the backup and brings every
// per-table file in line with it
// IMPORTANT: Must be called while holding mu!
func (db *Database) restoreFilesUnsafe() error {
	db.persistMu.Lock()
	defer db.persistMu.Unlock()

	if db.closed {
		return ErrClosed
	}

	if _, err := db.layout.RestoreBackup(); err != nil {
		return err
	}

	snap, err := db.layout.LoadSnapshot()
	if err != nil {
		return err
	}

	for name := range db.committed {
		if _, ok := snap[name]; !ok {
			if err := db.layout.RemoveTable(name); err != nil {
				return err
			}
		}
	}
	for name, tf := range snap {
		if err := db.layout.SaveTable(name, tf); err != nil {
			return err
		}
	}

	db.committed = snap

	// entries written before the restore describe state that no longer exists
	return db.journal.Checkpoint()
}
