package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// headerSize is the length of the big-endian uint32 that prefixes every message.
const headerSize = 4

// ReadFrame reads one length-prefixed message from r. A declared length above
// limit fails with PayloadTooLargeError before the body is read; limit <= 0
// disables the check. io.EOF is returned unwrapped only when the stream ends
// before the first header byte.
func ReadFrame(r io.Reader, limit int) ([]byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read message length: %w", err)
	}

	length := binary.BigEndian.Uint32(header)
	if limit > 0 && int64(length) > int64(limit) {
		return nil, &PayloadTooLargeError{Size: int64(length), Limit: limit}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	return payload, nil
}

// WriteFrame writes payload with its length prefix, retrying short writes
// until everything is written or the writer fails.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("payload of %d bytes does not fit a frame", len(payload))
	}
	msg := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(msg[:headerSize], uint32(len(payload)))
	copy(msg[headerSize:], payload)
	return writeFull(w, msg)
}

func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		b = b[n:]
		if err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}
