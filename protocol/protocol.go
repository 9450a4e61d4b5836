// Package protocol implements the length-prefixed frame format.
//
// Frame format:
//
//	0         4
//	┌─────────┬────────────────┐
//	│ length  │  payload ...   │
//	│ uint32  │  length bytes  │
//	└─────────┴────────────────┘
//
// The payload is the (optionally encrypted) codec output of one Request or
// Response. The receiver reads the 4-byte big-endian length first, then
// exactly that many payload bytes, which solves TCP's sticky packet problem.
// There is no handshake: the first frame a client sends is always a Request.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize caps a single frame's payload. A peer announcing more than
// this is treated as a protocol violation rather than an allocation request.
const MaxFrameSize = 16 << 20

// ErrFrameTooLarge is returned when a frame's declared or actual payload
// exceeds MaxFrameSize.
var ErrFrameTooLarge = fmt.Errorf("protocol: frame exceeds %d bytes", MaxFrameSize)

// WriteFrame writes one length-prefixed frame to w. The caller must
// serialize writes if multiple goroutines share the same writer.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one complete frame from r, blocking until the full
// length-prefixed payload arrives. io.ReadFull guarantees exactly N bytes
// are read, preventing partial reads. A connection closed or reset mid-frame
// surfaces as the underlying read error.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
