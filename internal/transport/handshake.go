package transport

import (
	"bufio"
	"bytes"
	"errors"

	"github.com/rs/zerolog"

	"github.com/zenoh-pico-go/zpico/internal/link"
	"github.com/zenoh-pico-go/zpico/internal/scheduler"
	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// ErrHandshake covers any unexpected message or field during the
// Init/Open exchange: client Init -> peer InitAck(cookie) -> client
// Open(cookie) -> peer OpenAck.
var ErrHandshake = errors.New("transport: handshake failed")

// HandshakeConfig carries the local side's offer for the Init/Open
// exchange.
type HandshakeConfig struct {
	LocalZID     wire.ZID
	Version      uint8
	SNResolution uint8
	BatchSize    uint16
	LeaseMs      uint64
	LeaseSeconds bool
}

// Dial performs the client side of the handshake over lnk and returns a
// ready-to-Start Transport.
func Dial(lnk link.Link, cfg HandshakeConfig, sched *scheduler.Scheduler, tcfg Config, logger zerolog.Logger) (*Transport, error) {
	w := bufio.NewWriter(lnk)
	r := bufio.NewReader(lnk)

	if err := writeFlush(w, wire.EncodeInit(wire.Init{
		Version:      cfg.Version,
		ZID:          cfg.LocalZID,
		SNResolution: cfg.SNResolution,
		BatchSize:    cfg.BatchSize,
	})); err != nil {
		return nil, err
	}

	buf, err := readMessage(r, 0)
	if err != nil {
		return nil, err
	}
	tm, err := wire.DecodeTransportMessage(buf, 0)
	if err != nil || tm.Init == nil || !tm.Init.Ack {
		return nil, ErrHandshake
	}
	cookie := tm.Init.Cookie
	remoteZID := tm.Init.ZID

	if err := writeFlush(w, wire.EncodeOpen(wire.Open{
		Seconds: cfg.LeaseSeconds,
		LeaseMs: cfg.LeaseMs,
		Cookie:  cookie,
	})); err != nil {
		return nil, err
	}

	buf, err = readMessage(r, 0)
	if err != nil {
		return nil, err
	}
	tm, err = wire.DecodeTransportMessage(buf, 0)
	if err != nil || tm.Open == nil || !tm.Open.Ack {
		return nil, ErrHandshake
	}

	peer := NewPeer(remoteZID, tm.Open.LeaseMs)
	return newTransport(lnk, r, w, peer, sched, tcfg, logger), nil
}

// Accept performs the server side of the handshake over lnk, replying
// with cookie as the opaque handshake token the client must echo.
func Accept(lnk link.Link, cfg HandshakeConfig, cookie []byte, sched *scheduler.Scheduler, tcfg Config, logger zerolog.Logger) (*Transport, error) {
	w := bufio.NewWriter(lnk)
	r := bufio.NewReader(lnk)

	buf, err := readMessage(r, 0)
	if err != nil {
		return nil, err
	}
	tm, err := wire.DecodeTransportMessage(buf, 0)
	if err != nil || tm.Init == nil || tm.Init.Ack {
		return nil, ErrHandshake
	}
	remoteZID := tm.Init.ZID

	if err := writeFlush(w, wire.EncodeInit(wire.Init{
		Ack:          true,
		Version:      cfg.Version,
		ZID:          cfg.LocalZID,
		SNResolution: cfg.SNResolution,
		BatchSize:    cfg.BatchSize,
		Cookie:       cookie,
	})); err != nil {
		return nil, err
	}

	buf, err = readMessage(r, 0)
	if err != nil {
		return nil, err
	}
	tm, err = wire.DecodeTransportMessage(buf, 0)
	if err != nil || tm.Open == nil || tm.Open.Ack {
		return nil, ErrHandshake
	}
	if !bytes.Equal(tm.Open.Cookie, cookie) {
		return nil, ErrHandshake
	}

	if err := writeFlush(w, wire.EncodeOpen(wire.Open{
		Ack:     true,
		Seconds: cfg.LeaseSeconds,
		LeaseMs: cfg.LeaseMs,
	})); err != nil {
		return nil, err
	}

	peer := NewPeer(remoteZID, cfg.LeaseMs)
	return newTransport(lnk, r, w, peer, sched, tcfg, logger), nil
}

func writeFlush(w *bufio.Writer, buf []byte) error {
	if err := writeMessage(w, buf); err != nil {
		return err
	}
	return w.Flush()
}
