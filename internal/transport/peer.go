// Package transport implements the transport engine: TX
// framing/fragmentation over a link.Link, RX reassembly, the keep-alive
// and lease loop, and the peer table. One Transport owns one link.Link
// and one or more Peers (one for unicast, which is all this package
// implements today; multicast/raw-Ethernet fan-out is out of scope).
package transport

import (
	"sync"

	"github.com/zenoh-pico-go/zpico/internal/wire"
)

const numPriorities = 8

// snState tracks the next outgoing sequence number per (reliable,
// priority) stream, with a separate sn counter per priority.
type snState struct {
	reliable [numPriorities]uint64
	best     [numPriorities]uint64
}

func (s *snState) next(reliable bool, priority uint8) uint64 {
	priority &= numPriorities - 1
	if reliable {
		sn := s.reliable[priority]
		s.reliable[priority]++
		return sn
	}
	sn := s.best[priority]
	s.best[priority]++
	return sn
}

// Peer is one remote session endpoint: its sequence-number state, its
// reassembly buffers, the resources it has declared to us, its
// negotiated lease, and the instant of its last received message.
type Peer struct {
	mu sync.Mutex

	ZID     wire.ZID
	LeaseMs uint64

	outSN   snState
	reliableRX  reassembly
	bestEffortRX reassembly

	// remoteResources mirrors the peer's local resource-id → suffix
	// mapping as declared to us; the session layer owns resolution
	// semantics (keyexpr.ResourceTable), this is the raw per-peer facts
	// the transport forwards declarations against.
	remoteResources map[uint16]string

	lastRxMs uint64
}

// NewPeer creates a Peer with empty sn/reassembly/resource state.
func NewPeer(zid wire.ZID, leaseMs uint64) *Peer {
	return &Peer{
		ZID:             zid,
		LeaseMs:         leaseMs,
		remoteResources: make(map[uint16]string),
	}
}

// SetRemoteResource records the peer's local id -> suffix mapping from
// an incoming resource declaration.
func (p *Peer) SetRemoteResource(id uint16, suffix string) {
	p.mu.Lock()
	p.remoteResources[id] = suffix
	p.mu.Unlock()
}

// RemoveRemoteResource forgets a previously declared mapping.
func (p *Peer) RemoveRemoteResource(id uint16) {
	p.mu.Lock()
	delete(p.remoteResources, id)
	p.mu.Unlock()
}

// ResolveRemoteResource looks up the suffix the peer declared for id.
func (p *Peer) ResolveRemoteResource(id uint16) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.remoteResources[id]
	return s, ok
}

func (p *Peer) touch(nowMs uint64) {
	p.mu.Lock()
	p.lastRxMs = nowMs
	p.mu.Unlock()
}

// IdleMs returns how long it has been since the last received message.
func (p *Peer) IdleMs(nowMs uint64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if nowMs < p.lastRxMs {
		return 0
	}
	return nowMs - p.lastRxMs
}

func (p *Peer) nextSN(reliable bool, priority uint8) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outSN.next(reliable, priority)
}

func (p *Peer) reassemblyFor(reliable bool) *reassembly {
	if reliable {
		return &p.reliableRX
	}
	return &p.bestEffortRX
}
