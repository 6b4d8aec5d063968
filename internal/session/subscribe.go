package session

import (
	"github.com/zenoh-pico-go/zpico/internal/collections"
	"github.com/zenoh-pico-go/zpico/internal/keyexpr"
	"github.com/zenoh-pico-go/zpico/internal/metrics"
	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// missDetector tracks the expected next SourceInfo.SourceSN per
// publisher entity and reports a gap, mirroring
// advanced_subscriber.h's sample-miss-detection facility (SUPPLEMENTED
// FEATURES, off by default).
type missDetector struct {
	expected map[uint32]uint32 // entity id -> next expected sn
	onMiss   func(sourceZID wire.ZID, entityID uint32, missed [2]uint32)
}

func newMissDetector(onMiss func(wire.ZID, uint32, [2]uint32)) *missDetector {
	return &missDetector{expected: make(map[uint32]uint32), onMiss: onMiss}
}

func (d *missDetector) observe(si *wire.SourceInfo) {
	if d == nil || si == nil || si.IsZero() {
		return
	}
	next, ok := d.expected[si.EntityID]
	if ok && si.SourceSN > next {
		if d.onMiss != nil {
			d.onMiss(si.SourceZID, si.EntityID, [2]uint32{next, si.SourceSN - 1})
		}
	}
	d.expected[si.EntityID] = si.SourceSN + 1
}

// Subscriber is a registered sample listener.
type Subscriber struct {
	ID            uint32
	Key           string
	Callback      func(Sample, Locality)
	DropCallback  func()
	AllowedOrigin Locality
	miss          *missDetector
}

// SubscriberOptions configures DeclareSubscriber.
type SubscriberOptions struct {
	AllowedOrigin Locality
	// OnMiss, if non-nil, enables the optional miss detector for this
	// subscription.
	OnMiss func(sourceZID wire.ZID, entityID uint32, missedRange [2]uint32)
}

// DeclareSubscriber registers callback against key and sends
// DeclSubscriber to the peer.
func (s *Session) DeclareSubscriber(key string, callback func(Sample, Locality), opts SubscriberOptions) (*Subscriber, error) {
	canon, err := keyexpr.Canonicalize(key)
	if err != nil {
		return nil, err
	}
	sub := &Subscriber{
		ID:            s.allocEntityID(),
		Key:           canon,
		Callback:      callback,
		AllowedOrigin: opts.AllowedOrigin,
	}
	if opts.OnMiss != nil {
		sub.miss = newMissDetector(opts.OnMiss)
	}

	s.mu.Lock()
	arc := collections.NewArc(sub, func(dropped *Subscriber) {
		if dropped.DropCallback != nil {
			dropped.DropCallback()
		}
	})
	s.subscriptions.Insert(sub.ID, arc)
	metrics.SetSubscriptionsActive(s.subscriptions.Len())
	decl := wire.EncodeDeclare(wire.Declare{Body: wire.Declaration{
		Kind:     wire.DeclSubscriberID,
		EntityID: sub.ID,
		Key:      wire.WireKey{Suffix: canon, SuffixPresent: true},
	}})
	s.mu.Unlock()

	s.notifyMatching(canon, true)
	if err := s.sendNetwork(decl, true, 7); err != nil {
		s.logger.Debug().Err(err).Msg("subscriber declaration send failed")
	}
	return sub, nil
}

// UndeclareSubscriber removes the subscription, invoking its drop
// callback once every in-flight dispatch has released its refcount.
func (s *Session) UndeclareSubscriber(sub *Subscriber) error {
	s.mu.Lock()
	arc, ok := s.subscriptions.Get(sub.ID)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownID
	}
	s.subscriptions.Remove(sub.ID)
	metrics.SetSubscriptionsActive(s.subscriptions.Len())
	decl := wire.EncodeDeclare(wire.Declare{Body: wire.Declaration{
		Kind:     wire.UndeclSubscriberID,
		EntityID: sub.ID,
		Key:      wire.WireKey{Suffix: sub.Key, SuffixPresent: true},
	}})
	s.mu.Unlock()

	arc.Drop()
	s.notifyMatching(sub.Key, false)
	return s.sendNetwork(decl, true, 7)
}

// handlePush resolves the incoming key against the table appropriate to
// locality, then runs the subscription-dispatch algorithm: iterate
// subscriptions, match locality and intersection, invoke callbacks
// outside the session lock via a held Arc refcount.
func (s *Session) handlePush(p wire.Push, locality Locality) {
	key, err := s.resolveKeyForLocality(p.Key, locality)
	if err != nil {
		s.logger.Debug().Err(err).Msg("dropping push with unresolvable key")
		return
	}
	mid, derr := wire.PeekZMid(p.Body)
	if derr != nil {
		return
	}
	var sample Sample
	sample.Key = key
	sample.Timestamp = p.Timestamp
	sample.QoS = p.QoS
	switch mid {
	case wire.ZMidPut:
		body, err := wire.DecodePutBody(wire.NewCursor(p.Body, 0))
		if err != nil {
			s.logger.Debug().Err(err).Msg("dropping undecodable put body")
			return
		}
		sample.Kind = SampleKindPut
		sample.Payload = body.Payload
		sample.Encoding = body.Encoding
		sample.Attachment = body.Attachment
		sample.SourceInfo = body.SourceInfo
		if body.Timestamp != nil {
			sample.Timestamp = body.Timestamp
		}
	case wire.ZMidDelete:
		body, err := wire.DecodeDeleteBody(wire.NewCursor(p.Body, 0))
		if err != nil {
			s.logger.Debug().Err(err).Msg("dropping undecodable delete body")
			return
		}
		sample.Kind = SampleKindDelete
		sample.Attachment = body.Attachment
		sample.SourceInfo = body.SourceInfo
		if body.Timestamp != nil {
			sample.Timestamp = body.Timestamp
		}
	default:
		return
	}
	s.dispatchSample(sample, locality)
}

func (s *Session) dispatchSample(sample Sample, locality Locality) {
	type target struct {
		cb   func(Sample, Locality)
		arc  collections.Arc[*Subscriber]
		miss *missDetector
	}
	var targets []target

	s.mu.Lock()
	s.subscriptions.ForEach(func(_ uint32, arc collections.Arc[*Subscriber]) {
		sub := arc.Get()
		if !Matches(sub.AllowedOrigin, locality) {
			return
		}
		ok, err := keyexpr.Intersects(sub.Key, sample.Key)
		if err != nil || !ok {
			return
		}
		targets = append(targets, target{cb: sub.Callback, arc: arc.Clone(), miss: sub.miss})
	})
	s.mu.Unlock()

	for _, t := range targets {
		t := t
		t.miss.observe(sample.SourceInfo)
		s.pool.Submit(func() {
			defer t.arc.Drop()
			if t.cb != nil {
				t.cb(sample, locality)
			}
		})
	}
}

// resolveKeyForLocality expands a wire key against the local resource
// table when the message is our own loopback echo, or the peer's remote
// resource table for a message that actually arrived over the link.
func (s *Session) resolveKeyForLocality(k wire.WireKey, locality Locality) (string, error) {
	if k.ScopeID == 0 {
		return k.Suffix, nil
	}
	if locality == LocalitySessionLocal {
		prefix, ok := s.ResolveLocalResource(k.ScopeID)
		if !ok {
			return "", keyexpr.ErrUnknownResourceID
		}
		if !k.SuffixPresent || k.Suffix == "" {
			return prefix, nil
		}
		return prefix + k.Suffix, nil
	}
	return s.resolveIncomingKey(k)
}
