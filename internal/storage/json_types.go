package storage

import "github.com/leengari/jsondb/internal/domain/data"

// TableFile is the on-disk shape of one table, both in <table>.json and as
// an entry of the global snapshot. Older per-table files may carry only
// "records"; Columns is then nil.
type TableFile struct {
	Columns    []string   `json:"columns" msgpack:"columns"`
	PrimaryKey *string    `json:"primary_key" msgpack:"primary_key"`
	Records    []data.Row `json:"records" msgpack:"records"`
}

// Snapshot is the on-disk shape of db.json: table name → table state
type Snapshot map[string]TableFile

// Clone returns a copy of the snapshot map. Table states are shared; they
// are never mutated after being handed to the persistence layer.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for name, tf := range s {
		out[name] = tf
	}
	return out
}

// PrimaryKeyName returns the primary key column or "" when none is designated
func (tf TableFile) PrimaryKeyName() string {
	if tf.PrimaryKey == nil {
		return ""
	}
	return *tf.PrimaryKey
}

// NewTableFile builds a table state, using a null primary key for ""
func NewTableFile(columns []string, primaryKey string, records []data.Row) TableFile {
	tf := TableFile{
		Columns: columns,
		Records: records,
	}
	if primaryKey != "" {
		pk := primaryKey
		tf.PrimaryKey = &pk
	}
	if tf.Records == nil {
		tf.Records = []data.Row{}
	}
	return tf
}
