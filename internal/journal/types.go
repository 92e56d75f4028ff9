package journal

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/leengari/jsondb/internal/storage"
)

// ===========================================================================
// JOURNAL FILE FORMAT
// ===========================================================================
//
// db.journal is a sequence of framed records:
// ┌───────────────┬──────────────┬──────────────────────────────┐
// │ Length (4)    │ CRC32 (4)    │ Payload (Length bytes)       │
// │ uint32        │ uint32 IEEE  │ msgpack-encoded Entry        │
// └───────────────┴──────────────┴──────────────────────────────┘
//
// All multi-byte integers are little-endian.
//
// Every entry carries the complete post-mutation image of one table, so
// replaying an entry twice yields the same state. The journal is truncated
// after each successful snapshot write (checkpoint); a non-empty journal at
// open time means the last write did not finish.
//
// ===========================================================================

// ByteOrder is the byte order used for frame headers
var ByteOrder = binary.LittleEndian

// FrameHeaderSize is the fixed size of a frame header
const FrameHeaderSize = 8

// MaxRecordSize bounds a single payload (64MB) so a corrupted length field
// cannot trigger a huge allocation during recovery
const MaxRecordSize = 64 * 1024 * 1024

// ErrRecordTooLarge is returned by Append when an encoded entry exceeds the
// journal's record limit. The entry is not written.
var ErrRecordTooLarge = errors.New("journal record too large")

// Kind is the type of a journal entry
type Kind uint8

const (
	KindPut    Kind = iota + 1 // table created or mutated; State is the new image
	KindRemove                 // table dropped
	KindAbort                  // the entry with Seq failed to reach disk
)

// String returns a human-readable name for the entry kind
func (k Kind) String() string {
	switch k {
	case KindPut:
		return "Put"
	case KindRemove:
		return "Remove"
	case KindAbort:
		return "Abort"
	default:
		return "Unknown"
	}
}

// Entry is one journal record
type Entry struct {
	Seq       uint64             `msgpack:"seq"`
	TxID      string             `msgpack:"tx_id"`
	Kind      Kind               `msgpack:"kind"`
	Table     string             `msgpack:"table"`
	State     *storage.TableFile `msgpack:"state,omitempty"`
	Target    uint64             `msgpack:"target,omitempty"` // aborted Seq, KindAbort only
	Timestamp int64              `msgpack:"ts"`
}
