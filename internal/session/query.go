package session

import (
	"sort"
	"sync"

	"github.com/zenoh-pico-go/zpico/internal/collections"
	"github.com/zenoh-pico-go/zpico/internal/keyexpr"
	"github.com/zenoh-pico-go/zpico/internal/metrics"
	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// GetOptions configures Get.
type GetOptions struct {
	Parameters         string
	Target             QueryTarget
	Consolidation      Consolidation
	TimeoutMs          uint64
	AllowedDestination Locality
	Value              *wire.QueryValue
}

// pendingQuery is the querier-side bookkeeping for one in-flight Get:
// replies accumulate per the chosen consolidation mode until
// remainingFinals reaches zero or the scheduler fires the timeout.
type pendingQuery struct {
	mu              sync.Mutex
	id              uint32
	key             string
	consolidation   Consolidation
	callback        func(Reply)
	dropCallback    func()
	remainingFinals int32
	latest          *collections.OrderedMap[string, Reply] // Latest mode, keyed by canon reply key
	lastSeen        map[string]wire.Timestamp              // Monotonic mode
	timeoutTaskID   uint32
	done            bool
}

// Get issues a query against key and returns its id. callback is invoked
// once per accepted Reply (subject to consolidation), outside the
// session lock.
func (s *Session) Get(key string, callback func(Reply), opts GetOptions) (uint32, error) {
	canon, err := keyexpr.Canonicalize(key)
	if err != nil {
		return 0, err
	}
	id := s.allocQueryID()
	pq := &pendingQuery{
		id:            id,
		key:           canon,
		consolidation: opts.Consolidation,
		callback:      callback,
	}
	if opts.Consolidation == ConsolidationLatest {
		pq.latest = collections.NewOrderedMap[string, Reply](func(a, b string) bool { return a < b })
	}
	if opts.Consolidation == ConsolidationMonotonic {
		pq.lastSeen = make(map[string]wire.Timestamp)
	}

	dest := opts.AllowedDestination
	var localMatches int32
	s.mu.Lock()
	if dest != LocalityRemote {
		s.queryables.ForEach(func(_ uint32, arc collections.Arc[*Queryable]) {
			qy := arc.Get()
			if !Matches(qy.AllowedOrigin, LocalitySessionLocal) {
				return
			}
			if ok, err := keyexpr.Intersects(qy.Key, canon); err == nil && ok {
				localMatches++
			}
		})
	}
	if dest != LocalitySessionLocal {
		pq.remainingFinals++
	}
	pq.remainingFinals += localMatches
	arc := collections.NewArc(pq, func(dropped *pendingQuery) {
		if dropped.dropCallback != nil {
			dropped.dropCallback()
		}
	})
	s.pendingQueries.Insert(id, arc)
	s.mu.Unlock()

	cons := opts.Consolidation.toWire()
	req := wire.Request{
		RequestID: id,
		Key:       wire.WireKey{Suffix: canon, SuffixPresent: true},
		QoS:       wire.DefaultQoS,
		Body: wire.EncodeQueryBody(wire.QueryBody{
			Consolidation: &cons,
			Parameters:    []byte(opts.Parameters),
			Value:         opts.Value,
		}),
	}

	if pq.remainingFinals == 0 {
		s.finalizePendingQuery(id, collections.Arc[*pendingQuery]{})
		return id, nil
	}

	if dest != LocalityRemote {
		s.loopback(wire.NetworkMessage{Request: &req})
	}
	if dest != LocalitySessionLocal {
		if err := s.sendNetwork(wire.EncodeRequest(req), true, 7); err != nil {
			s.logger.Debug().Err(err).Msg("query send failed")
		}
	}

	timeoutMs := opts.TimeoutMs
	if timeoutMs == 0 {
		timeoutMs = s.cfg.DefaultQueryTimeoutMs
	}
	if timeoutMs > 0 {
		s.scheduleQueryTimeout(id, timeoutMs)
	}
	return id, nil
}

func (s *Session) scheduleQueryTimeout(id uint32, timeoutMs uint64) {
	var taskID uint32
	var err error
	taskID, err = s.sched.Add(timeoutMs, func() {
		metrics.RecordPendingQueryTimeout()
		s.finalizePendingQuery(id, collections.Arc[*pendingQuery]{})
		_ = s.sched.Remove(taskID)
	}, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("failed to schedule query timeout")
		return
	}
	s.mu.Lock()
	if arc, ok := s.pendingQueries.Get(id); ok {
		arc.Get().timeoutTaskID = taskID
	}
	s.mu.Unlock()
}

// Cancel finalises the pending query immediately, as if by timeout.
func (s *Session) Cancel(queryID uint32) {
	s.finalizePendingQuery(queryID, collections.Arc[*pendingQuery]{})
}

func (s *Session) handleResponse(r wire.Response) {
	s.mu.Lock()
	arc, ok := s.pendingQueries.Get(r.RequestID)
	s.mu.Unlock()
	if !ok {
		return
	}
	pq := arc.Get()

	key, err := s.resolveIncomingKey(r.Key)
	if err != nil {
		return
	}
	if ok, err := keyexpr.Intersects(pq.key, key); err != nil || !ok {
		return
	}

	mid, err := wire.PeekZMid(r.Body)
	if err != nil {
		return
	}
	var reply Reply
	switch mid {
	case wire.ZMidReply:
		rb, err := wire.DecodeReplyBody(wire.NewCursor(r.Body, 0))
		if err != nil {
			return
		}
		if rb.Kind == wire.ReplyDelete {
			reply = Reply{Kind: ReplyKindDelete, Sample: Sample{
				Key: key, Kind: SampleKindDelete, Timestamp: rb.Delete.Timestamp,
				Attachment: rb.Delete.Attachment, QoS: r.QoS,
			}}
		} else {
			reply = Reply{Kind: ReplyKindOk, Sample: Sample{
				Key: key, Kind: SampleKindPut, Payload: rb.Put.Payload, Encoding: rb.Put.Encoding,
				Timestamp: rb.Put.Timestamp, Attachment: rb.Put.Attachment, QoS: r.QoS,
			}}
		}
	case wire.ZMidErr:
		eb, err := wire.DecodeErrBody(wire.NewCursor(r.Body, 0))
		if err != nil {
			return
		}
		reply = Reply{Kind: ReplyKindErr, ErrBody: eb.Payload, ErrEnc: eb.Encoding}
	default:
		return
	}

	s.acceptReply(pq, key, reply)
}

// acceptReply applies the query's consolidation rules.
func (s *Session) acceptReply(pq *pendingQuery, key string, reply Reply) {
	pq.mu.Lock()
	if pq.done {
		pq.mu.Unlock()
		return
	}
	var deliver bool
	switch pq.consolidation {
	case ConsolidationNone:
		deliver = true
	case ConsolidationMonotonic:
		ts := reply.Sample.Timestamp
		if ts == nil {
			deliver = true
		} else if prev, ok := pq.lastSeen[key]; !ok || (!ts.Before(prev) && !ts.Equal(prev)) {
			pq.lastSeen[key] = *ts
			deliver = true
		}
	case ConsolidationLatest:
		if existing, ok := pq.latest.Get(key); !ok || laterReply(reply, existing) {
			pq.latest.Insert(key, reply)
		}
		deliver = false
	}
	cb := pq.callback
	pq.mu.Unlock()

	if deliver && cb != nil {
		s.pool.Submit(func() { cb(reply) })
	}
}

func laterReply(a, b Reply) bool {
	if a.Sample.Timestamp == nil || b.Sample.Timestamp == nil {
		return true
	}
	return b.Sample.Timestamp.Before(*a.Sample.Timestamp)
}

func (s *Session) handleResponseFinal(f wire.ResponseFinal) {
	s.mu.Lock()
	arc, ok := s.pendingQueries.Get(f.RequestID)
	s.mu.Unlock()
	if !ok {
		return
	}
	pq := arc.Get()
	pq.mu.Lock()
	pq.remainingFinals--
	remaining := pq.remainingFinals
	pq.mu.Unlock()
	if remaining <= 0 {
		s.finalizePendingQuery(f.RequestID, arc.Clone())
	}
}

// finalizePendingQuery flushes any buffered Latest replies in key order,
// removes the query from the table, and drops the table's refcount.
// arcHint, if non-nil, is consumed instead of re-looking the id up (used
// by handleResponseFinal, which already holds a clone).
func (s *Session) finalizePendingQuery(id uint32, arcHint collections.Arc[*pendingQuery]) {
	s.mu.Lock()
	tableArc, inTable := s.pendingQueries.Get(id)
	arc := arcHint
	if !arc.Valid() {
		if !inTable {
			s.mu.Unlock()
			return
		}
		arc = tableArc.Clone()
	}
	s.pendingQueries.Remove(id)
	s.mu.Unlock()
	if inTable {
		tableArc.Drop()
	}

	pq := arc.Get()
	pq.mu.Lock()
	if pq.done {
		pq.mu.Unlock()
		arc.Drop()
		return
	}
	pq.done = true
	cb := pq.callback
	var flushed []Reply
	if pq.consolidation == ConsolidationLatest && pq.latest != nil {
		keys := make([]string, 0, pq.latest.Len())
		pq.latest.ForEach(func(k string, _ Reply) { keys = append(keys, k) })
		sort.Strings(keys)
		for _, k := range keys {
			if r, ok := pq.latest.Get(k); ok {
				flushed = append(flushed, r)
			}
		}
	}
	pq.mu.Unlock()

	if cb != nil {
		for _, r := range flushed {
			r := r
			s.pool.Submit(func() { cb(r) })
		}
	}
	if pq.timeoutTaskID != 0 {
		_ = s.sched.Remove(pq.timeoutTaskID)
	}
	arc.Drop()
}
