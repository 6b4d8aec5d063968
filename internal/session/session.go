package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/zenoh-pico-go/zpico/internal/collections"
	"github.com/zenoh-pico-go/zpico/internal/keyexpr"
	"github.com/zenoh-pico-go/zpico/internal/link"
	"github.com/zenoh-pico-go/zpico/internal/scheduler"
	"github.com/zenoh-pico-go/zpico/internal/transport"
	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// Config bundles the tunables Open/Accept need beyond the link itself.
type Config struct {
	LocalZID     wire.ZID
	Version      uint8
	SNResolution uint8
	BatchSize    uint16
	LeaseMs      uint64
	Transport    transport.Config
	CallbackWorkers  int
	CallbackQueue    int
	DefaultQueryTimeoutMs uint64
}

// Session owns one Transport and the table-shaped state: resource
// tables, subscriptions, queryables, pending queries, liveliness,
// matching listeners. A single *session lock* (mu) guards all nine
// tables; callbacks always run outside it via
// callbackPool, following a strict lock order of session before
// transport and never invoking a callback while holding any internal
// lock.
type Session struct {
	mu sync.Mutex

	localZID wire.ZID
	t        *transport.Transport
	sched    *scheduler.Scheduler
	logger   zerolog.Logger
	pool     *callbackPool
	cfg      Config

	localResourcesByID  *collections.IntMap[string] // id -> canon key
	localResourcesByKey map[string]uint16            // canon key -> id
	nextResourceID      uint16

	subscriptions  *collections.HashMap[uint32, collections.Arc[*Subscriber]]
	queryables     *collections.HashMap[uint32, collections.Arc[*Queryable]]
	pendingQueries *collections.HashMap[uint32, collections.Arc[*pendingQuery]]
	livelinessLocal  *collections.HashMap[uint32, string]
	livelinessRemote *collections.HashMap[uint32, string]
	matchingListeners *collections.HashMap[uint32, *matchingListener]
	// remoteSubscriptions mirrors the peer's declared subscriber keys
	// (entity id -> canon key), so a local Publisher's matching listener
	// can see subscriber interest declared on the other side of the
	// link, not just loopback subscriptions.
	remoteSubscriptions *collections.HashMap[uint32, string]

	nextEntityID uint32
	nextQueryID  uint32

	closed bool
}

func newSession(zid wire.ZID, t *transport.Transport, sched *scheduler.Scheduler, cfg Config, logger zerolog.Logger) *Session {
	s := &Session{
		localZID:            zid,
		t:                   t,
		sched:               sched,
		logger:              logger,
		pool:                newCallbackPool(cfg.CallbackWorkers, cfg.CallbackQueue, logger),
		cfg:                 cfg,
		localResourcesByID:  collections.NewIntMap[string](),
		localResourcesByKey: make(map[string]uint16),
		nextResourceID:      1,
		subscriptions:       collections.NewHashMap[uint32, collections.Arc[*Subscriber]](),
		queryables:          collections.NewHashMap[uint32, collections.Arc[*Queryable]](),
		pendingQueries:      collections.NewHashMap[uint32, collections.Arc[*pendingQuery]](),
		livelinessLocal:     collections.NewHashMap[uint32, string](),
		livelinessRemote:    collections.NewHashMap[uint32, string](),
		matchingListeners:   collections.NewHashMap[uint32, *matchingListener](),
		remoteSubscriptions: collections.NewHashMap[uint32, string](),
		nextEntityID:        1,
		nextQueryID:         1,
	}
	return s
}

// Open dials lnk, completes the Init/Open handshake, and starts the
// session's read loop, lease task, and callback pool.
func Open(lnk link.Link, cfg Config, sched *scheduler.Scheduler, logger zerolog.Logger) (*Session, error) {
	t, err := transport.Dial(lnk, transport.HandshakeConfig{
		LocalZID:     cfg.LocalZID,
		Version:      cfg.Version,
		SNResolution: cfg.SNResolution,
		BatchSize:    cfg.BatchSize,
		LeaseMs:      cfg.LeaseMs,
	}, sched, cfg.Transport, logger)
	if err != nil {
		return nil, err
	}
	s := newSession(cfg.LocalZID, t, sched, cfg, logger)
	t.Start(s.onRemoteNetworkMessage, s.onTransportExpired)
	return s, nil
}

// Accept performs the responder side of the handshake over lnk.
func Accept(lnk link.Link, cfg Config, cookie []byte, sched *scheduler.Scheduler, logger zerolog.Logger) (*Session, error) {
	t, err := transport.Accept(lnk, transport.HandshakeConfig{
		LocalZID:     cfg.LocalZID,
		Version:      cfg.Version,
		SNResolution: cfg.SNResolution,
		BatchSize:    cfg.BatchSize,
		LeaseMs:      cfg.LeaseMs,
	}, cookie, sched, cfg.Transport, logger)
	if err != nil {
		return nil, err
	}
	s := newSession(cfg.LocalZID, t, sched, cfg, logger)
	t.Start(s.onRemoteNetworkMessage, s.onTransportExpired)
	return s, nil
}

// ZID returns the session's local Zenoh Identifier.
func (s *Session) ZID() wire.ZID { return s.localZID }

func (s *Session) onTransportExpired() {
	s.logger.Warn().Msg("session transport expired, closing")
	_ = s.Close(wire.CloseReasonExpired)
}

// Close finalises every pending query, empties the subscription and
// queryable tables and drops their references, then closes the
// transport (sending Close and removing its keep-alive task) and stops
// the callback pool.
func (s *Session) Close(reason uint8) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pendingQueries := s.pendingQueries.Keys()
	var drops []func()
	for _, id := range s.subscriptions.Keys() {
		arc, _ := s.subscriptions.Get(id)
		s.subscriptions.Remove(id)
		drops = append(drops, arc.Drop)
	}
	for _, id := range s.queryables.Keys() {
		arc, _ := s.queryables.Get(id)
		s.queryables.Remove(id)
		drops = append(drops, arc.Drop)
	}
	s.mu.Unlock()

	for _, drop := range drops {
		drop()
	}
	for _, id := range pendingQueries {
		s.finalizePendingQuery(id, collections.Arc[*pendingQuery]{})
	}

	err := s.t.Close(reason)
	s.pool.Close()
	return err
}

func (s *Session) allocResourceIDLocked() (uint16, error) {
	for i := 0; i < 1<<16; i++ {
		id := s.nextResourceID
		s.nextResourceID++
		if s.nextResourceID == reservedIDMax {
			s.nextResourceID = 1
		}
		if id == reservedIDZero || id == reservedIDMax {
			continue
		}
		if _, ok := s.localResourcesByID.Get(uint32(id)); !ok {
			return id, nil
		}
	}
	return 0, ErrTableFull
}

func (s *Session) allocEntityID() uint32 {
	return atomic.AddUint32(&s.nextEntityID, 1) - 1
}

func (s *Session) allocQueryID() uint32 {
	return atomic.AddUint32(&s.nextQueryID, 1) - 1
}

// resolveIncomingKey expands a wire key against the peer's
// remote-resource table; a zero scope id means the suffix is the whole
// key. Loopback messages are resolved by resolveKeyForLocality instead.
func (s *Session) resolveIncomingKey(k wire.WireKey) (string, error) {
	if k.ScopeID == 0 {
		return k.Suffix, nil
	}
	prefix, ok := s.t.Peer().ResolveRemoteResource(k.ScopeID)
	if !ok {
		return "", keyexpr.ErrUnknownResourceID
	}
	if !k.SuffixPresent || k.Suffix == "" {
		return prefix, nil
	}
	return prefix + k.Suffix, nil
}

// onRemoteNetworkMessage is the Transport NetworkHandler: every message
// arriving over the link is dispatched here with locality Remote.
func (s *Session) onRemoteNetworkMessage(nm wire.NetworkMessage) {
	s.dispatch(nm, LocalityRemote)
}

func (s *Session) dispatch(nm wire.NetworkMessage, locality Locality) {
	switch {
	case nm.Declare != nil:
		s.handleDeclare(*nm.Declare)
	case nm.Push != nil:
		s.handlePush(*nm.Push, locality)
	case nm.Request != nil:
		s.handleRequest(*nm.Request, locality)
	case nm.Response != nil:
		s.handleResponse(*nm.Response)
	case nm.ResponseFinal != nil:
		s.handleResponseFinal(*nm.ResponseFinal)
	case nm.Interest != nil:
		s.handleInterest(*nm.Interest)
	}
}

func (s *Session) handleDeclare(d wire.Declare) {
	switch d.Body.Kind {
	case wire.DeclKeyexprID, wire.DeclResourceID:
		s.t.Peer().SetRemoteResource(uint16(d.Body.EntityID), d.Body.Key.Suffix)
	case wire.UndeclResourceID:
		s.t.Peer().RemoveRemoteResource(uint16(d.Body.EntityID))
	case wire.DeclTokenID:
		s.mu.Lock()
		s.livelinessRemote.Insert(d.Body.EntityID, d.Body.Key.Suffix)
		s.mu.Unlock()
	case wire.UndeclTokenID:
		s.mu.Lock()
		s.livelinessRemote.Remove(d.Body.EntityID)
		s.mu.Unlock()
	case wire.DeclSubscriberID:
		key, err := s.resolveIncomingKey(d.Body.Key)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.remoteSubscriptions.Insert(d.Body.EntityID, key)
		s.mu.Unlock()
		s.notifyMatching(key, true)
	case wire.UndeclSubscriberID:
		s.mu.Lock()
		key, ok := s.remoteSubscriptions.Get(d.Body.EntityID)
		if ok {
			s.remoteSubscriptions.Remove(d.Body.EntityID)
		}
		s.mu.Unlock()
		if ok {
			s.notifyMatching(key, false)
		}
	}
}

// sendNetwork submits an encoded network message to the transport.
func (s *Session) sendNetwork(msg []byte, reliable bool, priority uint8) error {
	return s.t.Send(context.Background(), msg, reliable, priority)
}

// loopback re-enters dispatch on the same goroutine for operations whose
// allowed-destination includes session-local.
func (s *Session) loopback(nm wire.NetworkMessage) {
	s.dispatch(nm, LocalitySessionLocal)
}

// publish builds a Push and delivers it per dest: remote transmits over
// the transport, session-local dispatches through the loopback path,
// any does both.
func (s *Session) publish(push wire.Push, dest Locality) error {
	msg := wire.EncodePush(push)
	if dest != LocalityRemote {
		s.loopback(wire.NetworkMessage{Push: &push})
	}
	if dest != LocalitySessionLocal {
		return s.sendNetwork(msg, push.QoS.NoDrop, push.QoS.Priority)
	}
	return nil
}

func (s *Session) handleInterest(wire.Interest) {
	// Current/future declaration replay on Interest is a router-level
	// concern this unicast engine does not implement.
}
