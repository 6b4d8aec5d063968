package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// ErrMessageTooLarge is returned when a length-prefixed message on the
// wire exceeds the transport's configured MTU bound.
var ErrMessageTooLarge = errors.New("transport: message exceeds MTU bound")

// writeMessage length-prefixes buf with a varint and writes it to w,
// batching writes through a bufio.Writer before a single Flush. This is
// the "transport-message self-delimiting" responsibility decided in
// DESIGN.md: internal/wire's codec stays agnostic of how one transport
// message is told apart from the next on a byte-stream link.
func writeMessage(w *bufio.Writer, buf []byte) error {
	var lenBuf [wire.MaxVarintLen]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(buf)))
	if _, err := w.Write(lenBuf[:n]); err != nil {
		return err
	}
	_, err := w.Write(buf)
	return err
}

// readMessage reads one length-prefixed message from r, refusing any
// length beyond maxLen (0 = unbounded).
func readMessage(r *bufio.Reader, maxLen int) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if maxLen > 0 && n > uint64(maxLen) {
		return nil, ErrMessageTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
