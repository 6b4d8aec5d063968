// Package wslink implements link.Link over a raw WebSocket connection
// using github.com/gobwas/ws: wsutil.ReadClientData/WriteServerMessage
// dispatching on ws.OpBinary carries the protocol's binary frames, with
// ws.OpPing/ws.OpClose handled as control frames alongside them.
package wslink

import (
	"context"
	"net"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/zenoh-pico-go/zpico/internal/link"
)

// side picks which half of the gobwas/ws API a Link speaks: a server
// accepts client frames and writes server frames (masked the other way
// around), a client is the reverse.
type side int

const (
	sideServer side = iota
	sideClient
)

// Link adapts a WebSocket connection to link.Link. Because WebSocket
// frames are message-oriented, a Read call that supplies a buffer smaller
// than the pending message keeps the remainder for the next call, exactly
// like reading from a byte stream.
type Link struct {
	conn net.Conn
	side side
	mtu  int
	rest []byte
}

const defaultMTU = 65000

// Dial opens a client-side WebSocket connection to url and wraps it.
func Dial(ctx context.Context, url string) (*Link, error) {
	conn, _, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Link{conn: conn, side: sideClient, mtu: defaultMTU}, nil
}

// Accept upgrades an incoming HTTP request to a server-side WebSocket
// connection and wraps it.
func Accept(w http.ResponseWriter, r *http.Request) (*Link, error) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return nil, err
	}
	return &Link{conn: conn, side: sideServer, mtu: defaultMTU}, nil
}

// SetMTU overrides the default MTU reported by the Link.
func (l *Link) SetMTU(mtu int) {
	if mtu > 0 {
		l.mtu = mtu
	}
}

func (l *Link) MTU() int { return l.mtu }

func (l *Link) Close() error {
	return l.conn.Close()
}

// Read fills p from any buffered remainder first, then blocks for the
// next WebSocket message. A Close frame (OpClose) surfaces as
// link.ErrClosed; any other read error is returned as is and treated
// as a disconnect.
func (l *Link) Read(p []byte) (int, error) {
	for len(l.rest) == 0 {
		var (
			msg []byte
			op  ws.OpCode
			err error
		)
		if l.side == sideServer {
			msg, op, err = wsutil.ReadClientData(l.conn)
		} else {
			msg, op, err = wsutil.ReadServerData(l.conn)
		}
		if err != nil {
			return 0, err
		}
		switch op {
		case ws.OpClose:
			return 0, link.ErrClosed
		case ws.OpPing, ws.OpPong:
			continue
		default:
			l.rest = msg
		}
	}
	n := copy(p, l.rest)
	l.rest = l.rest[n:]
	return n, nil
}

// Write sends p as a single binary WebSocket message.
func (l *Link) Write(p []byte) (int, error) {
	var err error
	if l.side == sideServer {
		err = wsutil.WriteServerMessage(l.conn, ws.OpBinary, p)
	} else {
		err = wsutil.WriteClientMessage(l.conn, ws.OpBinary, p)
	}
	if err != nil {
		return 0, err
	}
	return len(p), nil
}
