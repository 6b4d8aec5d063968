package session

import (
	"sync"

	"github.com/zenoh-pico-go/zpico/internal/collections"
	"github.com/zenoh-pico-go/zpico/internal/keyexpr"
	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// Queryable is a registered query responder.
type Queryable struct {
	ID            uint32
	Key           string
	Complete      bool
	Callback      func(*Query)
	DropCallback  func()
	AllowedOrigin Locality
}

// QueryableOptions configures DeclareQueryable.
type QueryableOptions struct {
	Complete      bool
	AllowedOrigin Locality
}

// DeclareQueryable registers callback to answer queries matching key.
func (s *Session) DeclareQueryable(key string, callback func(*Query), opts QueryableOptions) (*Queryable, error) {
	canon, err := keyexpr.Canonicalize(key)
	if err != nil {
		return nil, err
	}
	q := &Queryable{
		ID:            s.allocEntityID(),
		Key:           canon,
		Complete:      opts.Complete,
		Callback:      callback,
		AllowedOrigin: opts.AllowedOrigin,
	}

	s.mu.Lock()
	arc := collections.NewArc(q, func(dropped *Queryable) {
		if dropped.DropCallback != nil {
			dropped.DropCallback()
		}
	})
	s.queryables.Insert(q.ID, arc)
	decl := wire.EncodeDeclare(wire.Declare{Body: wire.Declaration{
		Kind:     wire.DeclQueryableID,
		EntityID: q.ID,
		Key:      wire.WireKey{Suffix: canon, SuffixPresent: true},
	}})
	s.mu.Unlock()

	if err := s.sendNetwork(decl, true, 7); err != nil {
		s.logger.Debug().Err(err).Msg("queryable declaration send failed")
	}
	return q, nil
}

// UndeclareQueryable removes the queryable.
func (s *Session) UndeclareQueryable(q *Queryable) error {
	s.mu.Lock()
	arc, ok := s.queryables.Get(q.ID)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownID
	}
	s.queryables.Remove(q.ID)
	decl := wire.EncodeDeclare(wire.Declare{Body: wire.Declaration{
		Kind:     wire.UndeclQueryableID,
		EntityID: q.ID,
		Key:      wire.WireKey{Suffix: q.Key, SuffixPresent: true},
	}})
	s.mu.Unlock()

	arc.Drop()
	return s.sendNetwork(decl, true, 7)
}

// requestCompletion sends exactly one wire ResponseFinal over the
// transport for a remote Request once every matching local queryable's
// callback has finished — not one final per queryable, since a remote
// querier's pendingQuery expects at most one final from this session
// (see query.go's remaining-finals design note). Only used for
// locality==LocalityRemote; the loopback (session-local) path sends one
// final per matching queryable directly, matching Get()'s pre-counted
// local-match total.
type requestCompletion struct {
	mu        sync.Mutex
	remaining int
	sent      bool
	requestID uint32
	session   *Session
}

func (rc *requestCompletion) done() {
	rc.mu.Lock()
	rc.remaining--
	fire := rc.remaining <= 0 && !rc.sent
	if fire {
		rc.sent = true
	}
	rc.mu.Unlock()
	if !fire {
		return
	}
	final := wire.ResponseFinal{RequestID: rc.requestID}
	if err := rc.session.sendNetwork(wire.EncodeResponseFinal(final), true, 7); err != nil {
		rc.session.logger.Debug().Err(err).Msg("response-final send failed")
	}
}

// Query is handed to a Queryable's callback for one incoming request.
// The three Reply* methods and Finalize are the responder counterparts
// of the reply/reply_del/reply_err/reply_final operations.
type Query struct {
	session    *Session
	requestID  uint32
	key        string
	parameters []byte
	remote     bool // whether the requester is a different session (send over transport)
	completion *requestCompletion

	mu        sync.Mutex
	finalSent bool
}

func (q *Query) Key() string        { return q.key }
func (q *Query) Parameters() []byte { return q.parameters }

func (q *Query) respond(resp wire.Response) error {
	if q.remote {
		return q.session.sendNetwork(wire.EncodeResponse(resp), true, resp.QoS.Priority)
	}
	q.session.loopback(wire.NetworkMessage{Response: &resp})
	return nil
}

// Reply answers with a Put sample.
func (q *Query) Reply(sample Sample) error {
	return q.respond(wire.Response{
		RequestID: q.requestID,
		Key:       wire.WireKey{Suffix: sample.Key, SuffixPresent: true},
		QoS:       sample.QoS,
		Timestamp: sample.Timestamp,
		Body: wire.EncodeReplyBody(wire.ReplyBody{
			Kind: wire.ReplyPut,
			Put: wire.PutBody{
				Encoding:   sample.Encoding,
				Timestamp:  sample.Timestamp,
				Attachment: sample.Attachment,
				Payload:    sample.Payload,
			},
		}),
	})
}

// ReplyDelete answers with a Delete sample.
func (q *Query) ReplyDelete(sample Sample) error {
	return q.respond(wire.Response{
		RequestID: q.requestID,
		Key:       wire.WireKey{Suffix: sample.Key, SuffixPresent: true},
		QoS:       sample.QoS,
		Timestamp: sample.Timestamp,
		Body: wire.EncodeReplyBody(wire.ReplyBody{
			Kind:   wire.ReplyDelete,
			Delete: wire.DeleteBody{Timestamp: sample.Timestamp, Attachment: sample.Attachment},
		}),
	})
}

// ReplyErr answers with a failure body.
func (q *Query) ReplyErr(enc *wire.Encoding, payload []byte) error {
	if q.remote {
		return q.session.sendNetwork(wire.EncodeResponse(wire.Response{
			RequestID: q.requestID,
			Key:       wire.WireKey{Suffix: q.key, SuffixPresent: true},
			QoS:       wire.DefaultQoS,
			Body:      wire.EncodeErrBody(wire.ErrBody{Encoding: enc, Payload: payload}),
		}), true, wire.DefaultQoS.Priority)
	}
	resp := wire.Response{
		RequestID: q.requestID,
		Key:       wire.WireKey{Suffix: q.key, SuffixPresent: true},
		QoS:       wire.DefaultQoS,
		Body:      wire.EncodeErrBody(wire.ErrBody{Encoding: enc, Payload: payload}),
	}
	q.session.loopback(wire.NetworkMessage{Response: &resp})
	return nil
}

// Finalize marks this Query done. Safe to call at most once; later
// calls are a no-op. For a remote Request, the wire ResponseFinal is
// sent once every matching queryable's Query has finalized (via
// completion); for a loopback Request, this Query sends its own
// ResponseFinal directly.
func (q *Query) Finalize() error {
	q.mu.Lock()
	if q.finalSent {
		q.mu.Unlock()
		return nil
	}
	q.finalSent = true
	q.mu.Unlock()

	if q.completion != nil {
		q.completion.done()
		return nil
	}
	q.session.loopback(wire.NetworkMessage{ResponseFinal: &wire.ResponseFinal{RequestID: q.requestID}})
	return nil
}

// handleRequest resolves an incoming Request-Query and invokes every
// matching queryable's callback outside the session lock, then sends
// ResponseFinal once all callbacks have returned.
func (s *Session) handleRequest(r wire.Request, locality Locality) {
	mid, err := wire.PeekZMid(r.Body)
	if err != nil || mid != wire.ZMidQuery {
		return
	}
	qb, err := wire.DecodeQueryBody(wire.NewCursor(r.Body, 0))
	if err != nil {
		return
	}
	key, err := s.resolveKeyForLocality(r.Key, locality)
	if err != nil {
		return
	}

	type target struct {
		cb  func(*Query)
		arc collections.Arc[*Queryable]
	}
	var targets []target
	s.mu.Lock()
	s.queryables.ForEach(func(_ uint32, arc collections.Arc[*Queryable]) {
		qy := arc.Get()
		if !Matches(qy.AllowedOrigin, locality) {
			return
		}
		ok, err := keyexpr.Intersects(qy.Key, key)
		if err != nil || !ok {
			return
		}
		targets = append(targets, target{cb: qy.Callback, arc: arc.Clone()})
	})
	s.mu.Unlock()

	remote := locality == LocalityRemote

	// Remote: a querier on the other side of the link expects at most
	// one final from this session regardless of how many local
	// queryables match, including zero (see requestCompletion).
	if remote {
		if len(targets) == 0 {
			final := wire.ResponseFinal{RequestID: r.RequestID}
			if err := s.sendNetwork(wire.EncodeResponseFinal(final), true, 7); err != nil {
				s.logger.Debug().Err(err).Msg("response-final send failed")
			}
			return
		}
		completion := &requestCompletion{remaining: len(targets), requestID: r.RequestID, session: s}
		for _, t := range targets {
			t := t
			query := &Query{session: s, requestID: r.RequestID, key: key, parameters: qb.Parameters, remote: true, completion: completion}
			s.pool.Submit(func() {
				defer t.arc.Drop()
				if t.cb != nil {
					t.cb(query)
				}
				_ = query.Finalize()
			})
		}
		return
	}

	// Loopback: Get() pre-counted one expected final per matching local
	// queryable, so each Query finalizes independently here; zero
	// targets means zero finals, matching that count.
	for _, t := range targets {
		t := t
		query := &Query{session: s, requestID: r.RequestID, key: key, parameters: qb.Parameters, remote: false}
		s.pool.Submit(func() {
			defer t.arc.Drop()
			if t.cb != nil {
				t.cb(query)
			}
			_ = query.Finalize()
		})
	}
}
