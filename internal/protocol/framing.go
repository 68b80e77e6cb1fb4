package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MsgKind tags what a frame's payload decodes into.
type MsgKind uint8

const (
	MsgRequest  MsgKind = 1
	MsgResponse MsgKind = 2
	// MsgEvent is a market-data feed entry, delivered to subscribers.
	MsgEvent MsgKind = 3
	// MsgReport is an execution/cancel notification pushed to the session
	// that owns the resting order.
	MsgReport MsgKind = 4
)

// MaxFrameSize bounds a single message on the wire.
const MaxFrameSize = 1 << 20

const frameHeaderLen = 5 // 4-byte payload length + 1-byte kind

var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// WriteFrame writes one length-prefixed message: a 4-byte big-endian
// payload length, a kind byte, then the payload.
func WriteFrame(w io.Writer, kind MsgKind, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	header := make([]byte, frameHeaderLen)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)))
	header[4] = byte(kind)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one message written by WriteFrame.
func ReadFrame(r io.Reader) (MsgKind, []byte, error) {
	header := make([]byte, frameHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	length := binary.BigEndian.Uint32(header[0:4])
	if length > MaxFrameSize {
		return 0, nil, ErrFrameTooLarge
	}
	kind := MsgKind(header[4])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read frame payload: %w", err)
	}
	return kind, payload, nil
}
