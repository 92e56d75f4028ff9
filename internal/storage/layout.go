package storage

import "path/filepath"

const (
	SnapshotFile = "db.json"
	BackupSuffix = ".bak"
	JournalFile  = "db.journal"
	TableExt     = ".json"
)

// Layout resolves the file names inside one database directory
type Layout struct {
	Dir string
}

// SnapshotPath is the global snapshot holding every table
func (l Layout) SnapshotPath() string {
	return filepath.Join(l.Dir, SnapshotFile)
}

// BackupPath is the single-slot backup of the snapshot
func (l Layout) BackupPath() string {
	return l.SnapshotPath() + BackupSuffix
}

// JournalPath is the write-ahead journal
func (l Layout) JournalPath() string {
	return filepath.Join(l.Dir, JournalFile)
}

// TablePath is the per-table file
func (l Layout) TablePath(table string) string {
	return filepath.Join(l.Dir, table+TableExt)
}
