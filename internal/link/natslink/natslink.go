// Package natslink implements link.Link over a pair of NATS subjects: a
// single *nats.Conn, a subscription whose handler feeds received frames
// into a channel, and Publish for outbound frames. The connection
// carries opaque binary
// protocol frames on a request/reply subject pair instead of JSON
// application messages, so two peers can exchange Link traffic without
// holding a raw socket open — useful for the multi-peer demo and for
// tests that don't want a real WebSocket.
package natslink

import (
	"errors"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/zenoh-pico-go/zpico/internal/link"
)

const defaultMTU = 65000

// Link adapts a NATS request/reply subject pair to link.Link: Write
// publishes to outSubject, Read consumes messages delivered to inSubject.
type Link struct {
	conn *nats.Conn
	sub  *nats.Subscription
	out  string

	mu     sync.Mutex
	rest   []byte
	msgs   chan []byte
	closed bool
	mtu    int
}

// Dial connects to a NATS server at url and wires a Link that publishes
// to outSubject and receives on inSubject. Two peers set their in/out
// subjects crosswise to form a bidirectional pair.
func Dial(url, inSubject, outSubject string, opts ...nats.Option) (*Link, error) {
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return newLink(conn, inSubject, outSubject)
}

// FromConn wires a Link on an already-established NATS connection,
// shared across multiple subject subscriptions.
func FromConn(conn *nats.Conn, inSubject, outSubject string) (*Link, error) {
	return newLink(conn, inSubject, outSubject)
}

func newLink(conn *nats.Conn, inSubject, outSubject string) (*Link, error) {
	l := &Link{
		conn: conn,
		out:  outSubject,
		msgs: make(chan []byte, 256),
		mtu:  defaultMTU,
	}
	sub, err := conn.Subscribe(inSubject, func(msg *nats.Msg) {
		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return
		}
		select {
		case l.msgs <- msg.Data:
		default:
			// receiver too slow; drop rather than block the NATS dispatch
			// goroutine.
		}
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	l.sub = sub
	return l, nil
}

func (l *Link) SetMTU(mtu int) {
	if mtu > 0 {
		l.mtu = mtu
	}
}

func (l *Link) MTU() int { return l.mtu }

// Read fills p from any buffered remainder first, then blocks for the
// next message delivered to the inbound subject.
func (l *Link) Read(p []byte) (int, error) {
	l.mu.Lock()
	if len(l.rest) > 0 {
		n := copy(p, l.rest)
		l.rest = l.rest[n:]
		l.mu.Unlock()
		return n, nil
	}
	l.mu.Unlock()

	data, ok := <-l.msgs
	if !ok {
		return 0, link.ErrClosed
	}
	n := copy(p, data)
	if n < len(data) {
		l.mu.Lock()
		l.rest = data[n:]
		l.mu.Unlock()
	}
	return n, nil
}

// Write publishes p as one message on the outbound subject.
func (l *Link) Write(p []byte) (int, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return 0, link.ErrClosed
	}
	if err := l.conn.Publish(l.out, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	var errs []error
	if err := l.sub.Unsubscribe(); err != nil {
		errs = append(errs, err)
	}
	l.conn.Close()
	close(l.msgs)
	return errors.Join(errs...)
}
