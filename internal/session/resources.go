package session

import (
	"github.com/zenoh-pico-go/zpico/internal/keyexpr"
	"github.com/zenoh-pico-go/zpico/internal/metrics"
	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// DeclareResource interns key, assigns it a local id, and queues the
// corresponding wire declaration. A second declaration of the same
// canon key returns the existing id idempotently.
func (s *Session) DeclareResource(key string) (uint16, error) {
	canon, err := keyexpr.Canonicalize(key)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	if id, ok := s.localResourcesByKey[canon]; ok {
		s.mu.Unlock()
		return id, nil
	}
	id, err := s.allocResourceIDLocked()
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.localResourcesByID.Insert(uint32(id), canon)
	s.localResourcesByKey[canon] = id
	metrics.SetResourcesDeclared(s.localResourcesByID.Len())

	decl := wire.EncodeDeclare(wire.Declare{Body: wire.Declaration{
		Kind:     wire.DeclResourceID,
		EntityID: uint32(id),
		Key:      wire.WireKey{Suffix: canon, SuffixPresent: true},
	}})
	s.mu.Unlock()

	if err := s.sendNetwork(decl, true, 7); err != nil {
		s.logger.Debug().Err(err).Msg("resource declaration send failed")
	}
	return id, nil
}

// UndeclareResource removes a previously declared resource id and
// informs the peer.
func (s *Session) UndeclareResource(id uint16) error {
	s.mu.Lock()
	canon, ok := s.localResourcesByID.Get(uint32(id))
	if !ok {
		s.mu.Unlock()
		return ErrUnknownID
	}
	s.localResourcesByID.Remove(uint32(id))
	delete(s.localResourcesByKey, canon)
	metrics.SetResourcesDeclared(s.localResourcesByID.Len())

	decl := wire.EncodeDeclare(wire.Declare{Body: wire.Declaration{
		Kind:     wire.UndeclResourceID,
		EntityID: uint32(id),
	}})
	s.mu.Unlock()

	return s.sendNetwork(decl, true, 7)
}

// ResolveLocalResource looks up a local resource id's canon key,
// satisfying keyexpr.ResourceTable for loopback resolution.
func (s *Session) ResolveLocalResource(id uint16) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localResourcesByID.Get(uint32(id))
}
