package journal

import (
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/leengari/jsondb/internal/storage"
)

// Result holds what recovery found in the journal
type Result struct {
	Entries  []Entry // put/remove entries to replay, in journal order
	Skipped  int     // entries cancelled by an abort
	TornTail bool    // the journal ended in an incomplete or corrupt frame
}

// Empty reports whether there is nothing to replay
func (r *Result) Empty() bool {
	return len(r.Entries) == 0
}

// ReplayTarget receives the table images recovered from the journal
type ReplayTarget interface {
	PutTable(name string, state storage.TableFile)
	RemoveTable(name string)
}

// Recover scans the journal at path. A missing journal yields an empty result.
func Recover(path string) (*Result, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return &Result{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal for recovery")
	}
	defer file.Close()

	var all []Entry
	aborted := make(map[uint64]bool)
	result := &Result{}

	reader := NewReader(file)
	for {
		entry, err := reader.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, ErrTornRecord) {
			slog.Warn("journal: torn tail ignored",
				"path", path,
				"offset", reader.Offset(),
				"error", err,
			)
			result.TornTail = true
			break
		}
		if err != nil {
			return nil, err
		}

		if entry.Kind == KindAbort {
			aborted[entry.Target] = true
			continue
		}
		all = append(all, entry)
	}

	for _, entry := range all {
		if aborted[entry.Seq] {
			result.Skipped++
			continue
		}
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// ReplayAll applies every recovered entry in order
func (r *Result) ReplayAll(target ReplayTarget) error {
	for _, entry := range r.Entries {
		switch entry.Kind {
		case KindPut:
			if entry.State == nil {
				return errors.Errorf("journal entry %d has no table state", entry.Seq)
			}
			target.PutTable(entry.Table, *entry.State)
		case KindRemove:
			target.RemoveTable(entry.Table)
		default:
			return errors.Errorf("journal entry %d has unknown kind %d", entry.Seq, entry.Kind)
		}
	}
	return nil
}
