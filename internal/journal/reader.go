package journal

import (
	"bufio"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/leengari/jsondb/internal/domain/data"
)

// ErrTornRecord reports a frame that is incomplete or fails its checksum.
// It is expected after a crash during an append; everything before it is valid.
var ErrTornRecord = errors.New("torn journal record")

// Reader decodes entries sequentially and tracks the offset of the end of
// the last valid frame
type Reader struct {
	r      *bufio.Reader
	offset int64
}

// NewReader reads frames from the start of r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Offset is the byte position right after the last valid frame
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next returns the next entry, io.EOF at a clean end of file, or
// ErrTornRecord when the remaining bytes do not form a valid frame
func (r *Reader) Next() (Entry, error) {
	header := make([]byte, FrameHeaderSize)
	n, err := io.ReadFull(r.r, header)
	if err == io.EOF && n == 0 {
		return Entry{}, io.EOF
	}
	if err != nil {
		return Entry{}, errors.Wrap(ErrTornRecord, "incomplete frame header")
	}

	length := ByteOrder.Uint32(header[0:4])
	checksum := ByteOrder.Uint32(header[4:8])

	// sanity check before allocation
	if length == 0 || length > MaxRecordSize {
		return Entry{}, errors.Wrapf(ErrTornRecord, "invalid frame length %d", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return Entry{}, errors.Wrap(ErrTornRecord, "incomplete frame payload")
	}

	if crc32.ChecksumIEEE(payload) != checksum {
		return Entry{}, errors.Wrap(ErrTornRecord, "checksum mismatch")
	}

	var entry Entry
	if err := msgpack.Unmarshal(payload, &entry); err != nil {
		return Entry{}, errors.Wrap(ErrTornRecord, err.Error())
	}

	if entry.State != nil {
		for i, row := range entry.State.Records {
			norm, err := data.NormalizeRow(row)
			if err != nil {
				return Entry{}, errors.Wrapf(err, "entry %d row %d", entry.Seq, i)
			}
			entry.State.Records[i] = norm
		}
	}

	r.offset += int64(FrameHeaderSize) + int64(length)
	return entry, nil
}
