// Package link defines the byte-stream transport abstraction the session
// and transport layers are built against: concrete transports (sockets,
// WebSockets, message buses) are out of scope for the protocol core,
// which only ever talks to a Link.
package link

import (
	"errors"
	"io"
	"net"
)

// ErrClosed is returned by Read/Write after Close.
var ErrClosed = errors.New("link: closed")

// Link is a byte-stream connection to a peer: Read/Write behave like
// io.ReadWriter, MTU bounds the largest Write the transport layer should
// attempt in one call, and Close releases any underlying resource. A Link
// does not itself delimit messages; internal/transport is responsible for
// framing (length-prefixing) on top of whatever boundary behavior the
// concrete Link happens to have.
type Link interface {
	io.Reader
	io.Writer
	io.Closer
	MTU() int
}

const defaultMTU = 65000

// Pipe returns two Links connected to each other in-memory, for use by
// loopback/session/transport tests in place of a concrete transport.
func Pipe() (Link, Link) {
	a, b := net.Pipe()
	return &connLink{conn: a, mtu: defaultMTU}, &connLink{conn: b, mtu: defaultMTU}
}

// connLink adapts a net.Conn to Link with a fixed, configurable MTU.
type connLink struct {
	conn net.Conn
	mtu  int
}

// NewConnLink wraps an established net.Conn (e.g. a TCP or Unix socket) as
// a Link with the given MTU.
func NewConnLink(conn net.Conn, mtu int) Link {
	if mtu <= 0 {
		mtu = defaultMTU
	}
	return &connLink{conn: conn, mtu: mtu}
}

func (c *connLink) Read(p []byte) (int, error)  { return c.conn.Read(p) }
func (c *connLink) Write(p []byte) (int, error) { return c.conn.Write(p) }
func (c *connLink) Close() error                { return c.conn.Close() }
func (c *connLink) MTU() int                    { return c.mtu }
