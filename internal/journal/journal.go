package journal

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Journal is the append-only write-ahead log of one database directory
type Journal struct {
	file *os.File   // journal file handle
	mu   sync.Mutex // protects concurrent access
	path string

	nextSeq   uint64 // next sequence number to assign
	size      int64  // current write position
	maxRecord int    // largest payload Append accepts
}

// Open creates or opens the journal at path. Existing entries are left in
// place for recovery; new entries are appended after them.
func Open(path string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal file")
	}

	j := &Journal{
		file:      file,
		path:      path,
		nextSeq:   1,
		maxRecord: MaxRecordSize,
	}

	// resume numbering after the last readable entry
	reader := NewReader(file)
	for {
		entry, err := reader.Next()
		if err != nil {
			break
		}
		if entry.Seq >= j.nextSeq {
			j.nextSeq = entry.Seq + 1
		}
	}

	// drop a torn tail so new frames start on a clean boundary
	if err := file.Truncate(reader.Offset()); err != nil {
		file.Close()
		return nil, errors.Wrap(err, "failed to truncate torn journal tail")
	}
	if _, err := file.Seek(reader.Offset(), io.SeekStart); err != nil {
		file.Close()
		return nil, errors.Wrap(err, "failed to seek journal")
	}
	j.size = reader.Offset()

	return j, nil
}

// Close syncs and closes the journal file
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}

	if err := j.file.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync journal")
	}

	err := j.file.Close()
	j.file = nil
	return err
}

// Path returns the journal file path
func (j *Journal) Path() string {
	return j.path
}

// Size returns the number of bytes currently in the journal (thread-safe)
func (j *Journal) Size() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// NextSeq returns the next sequence number that will be assigned (thread-safe)
func (j *Journal) NextSeq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextSeq
}
