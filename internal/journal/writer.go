package journal

import (
	"hash/crc32"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// ===========================================================================
// JOURNAL WRITER OPERATIONS
// ===========================================================================
//
// Append and Abort follow this pattern:
// 1. Acquire mutex
// 2. Allocate sequence number
// 3. Encode payload with msgpack
// 4. Calculate CRC32
// 5. Write header + payload
// 6. Fsync
//
// Every append is fsynced: an entry must be durable before the table
// files it describes are touched.
//
// ===========================================================================

// Append writes an entry and fsyncs. Seq and Timestamp are assigned here.
// Returns the sequence number of the entry.
func (j *Journal) Append(entry Entry) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return 0, errors.New("journal is closed")
	}

	entry.Seq = j.nextSeq
	entry.Timestamp = time.Now().UnixNano()

	if err := j.writeFrame(entry); err != nil {
		return 0, errors.Wrapf(err, "failed to append %s entry", entry.Kind)
	}

	j.nextSeq++
	return entry.Seq, nil
}

// Abort marks the entry with seq as not applied. Recovery skips it.
func (j *Journal) Abort(seq uint64, txID string) error {
	_, err := j.Append(Entry{
		Kind:   KindAbort,
		TxID:   txID,
		Target: seq,
	})
	return err
}

// Checkpoint empties the journal once every entry is reflected in the
// snapshot. Sequence numbers keep increasing across checkpoints.
func (j *Journal) Checkpoint() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return errors.New("journal is closed")
	}

	if err := j.file.Truncate(0); err != nil {
		return errors.Wrap(err, "failed to truncate journal")
	}
	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "failed to rewind journal")
	}
	if err := j.file.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync journal")
	}

	j.size = 0
	return nil
}

// writeFrame encodes and writes one entry
// Must be called with mutex held
func (j *Journal) writeFrame(entry Entry) error {
	payload, err := msgpack.Marshal(&entry)
	if err != nil {
		return errors.Wrap(err, "failed to encode entry")
	}
	if len(payload) > j.maxRecord {
		return errors.Wrapf(ErrRecordTooLarge, "entry of %d bytes, limit %d", len(payload), j.maxRecord)
	}

	frame := make([]byte, FrameHeaderSize+len(payload))
	ByteOrder.PutUint32(frame[0:4], uint32(len(payload)))
	ByteOrder.PutUint32(frame[4:8], crc32.ChecksumIEEE(payload))
	copy(frame[FrameHeaderSize:], payload)

	n, err := j.file.Write(frame)
	if err == nil && n != len(frame) {
		err = errors.Errorf("incomplete frame write: wrote %d of %d bytes", n, len(frame))
	}
	if err != nil {
		if rewindErr := j.rewindUnsafe(); rewindErr != nil {
			return errors.Wrapf(err, "failed to write frame (rewind failed: %v)", rewindErr)
		}
		return errors.Wrap(err, "failed to write frame")
	}

	if err := j.file.Sync(); err != nil {
		j.rewindUnsafe()
		return errors.Wrap(err, "failed to fsync journal")
	}

	j.size += int64(n)
	return nil
}

// rewindUnsafe cuts the file back to the last complete frame so a partial
// write cannot sit in front of the next entry
// Must be called with mutex held
func (j *Journal) rewindUnsafe() error {
	if err := j.file.Truncate(j.size); err != nil {
		return errors.Wrap(err, "failed to truncate partial frame")
	}
	if _, err := j.file.Seek(j.size, io.SeekStart); err != nil {
		return errors.Wrap(err, "failed to seek journal")
	}
	return nil
}
