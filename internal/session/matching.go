package session

import (
	"sync"

	"github.com/zenoh-pico-go/zpico/internal/collections"
	"github.com/zenoh-pico-go/zpico/internal/keyexpr"
	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// Publisher is a thin handle bound to one key, used to Put/Delete and to
// register matching listeners against that key's subscriber count.
type Publisher struct {
	session *Session
	key     string
	QoS     wire.QoS
}

// DeclarePublisher interns key and returns a Publisher handle for it.
func (s *Session) DeclarePublisher(key string) (*Publisher, error) {
	canon, err := keyexpr.Canonicalize(key)
	if err != nil {
		return nil, err
	}
	return &Publisher{session: s, key: canon, QoS: wire.DefaultQoS}, nil
}

// Put publishes payload on the publisher's key, per PutOptions.
func (p *Publisher) Put(payload []byte, opts PutOptions) error {
	return p.session.Put(p.key, payload, opts)
}

// Delete publishes a deletion on the publisher's key.
func (p *Publisher) Delete(opts PutOptions) error {
	return p.session.Delete(p.key, opts)
}

// matchingListener observes whether any currently-declared subscriber
// intersects Key, invoking OnChange once with the initial state and
// then exactly when that count transitions across zero, per
// session/matching.h's _z_matching_listener_t (SUPPLEMENTED FEATURES).
type matchingListener struct {
	mu       sync.Mutex
	id       uint32
	key      string
	OnChange func(matching bool)
	matching bool
}

// DeclareMatchingListener registers onChange to fire whenever the set of
// subscribers matching the publisher's key transitions between empty and
// non-empty. The initial state is evaluated immediately and reported to
// onChange, whether or not it matches.
func (p *Publisher) DeclareMatchingListener(onChange func(matching bool)) *matchingListener {
	l := &matchingListener{id: p.session.allocEntityID(), key: p.key, OnChange: onChange}
	s := p.session
	s.mu.Lock()
	s.matchingListeners.Insert(l.id, l)
	s.mu.Unlock()
	// A matching initial state is reported by evaluateMatchingListener as
	// a change from the zero value; a non-matching one is reported here.
	if !s.evaluateMatchingListener(l) && onChange != nil {
		s.pool.Submit(func() { onChange(false) })
	}
	return l
}

// UndeclareMatchingListener stops a previously registered listener.
func (s *Session) UndeclareMatchingListener(l *matchingListener) {
	s.mu.Lock()
	s.matchingListeners.Remove(l.id)
	s.mu.Unlock()
}

// notifyMatching re-evaluates every registered matching listener after a
// subscriber declare/undeclare.
func (s *Session) notifyMatching(changedKey string, _ bool) {
	s.mu.Lock()
	var listeners []*matchingListener
	s.matchingListeners.ForEach(func(_ uint32, l *matchingListener) {
		ok, err := keyexpr.Intersects(l.key, changedKey)
		if err == nil && ok {
			listeners = append(listeners, l)
		}
	})
	s.mu.Unlock()

	for _, l := range listeners {
		s.evaluateMatchingListener(l)
	}
}

func (s *Session) evaluateMatchingListener(l *matchingListener) bool {
	hasMatch := false
	intersects := func(key string) {
		if hasMatch {
			return
		}
		if ok, err := keyexpr.Intersects(l.key, key); err == nil && ok {
			hasMatch = true
		}
	}
	s.mu.Lock()
	s.subscriptions.ForEach(func(_ uint32, arc collections.Arc[*Subscriber]) { intersects(arc.Get().Key) })
	s.remoteSubscriptions.ForEach(func(_ uint32, key string) { intersects(key) })
	s.mu.Unlock()

	l.mu.Lock()
	changed := hasMatch != l.matching
	l.matching = hasMatch
	cb := l.OnChange
	l.mu.Unlock()

	if changed && cb != nil {
		s.pool.Submit(func() { cb(hasMatch) })
	}
	return hasMatch
}
