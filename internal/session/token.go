package session

import (
	"github.com/zenoh-pico-go/zpico/internal/keyexpr"
	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// Token is a liveliness assertion: "this session is alive at this KE".
type Token struct {
	ID  uint32
	Key string
}

// DeclareToken asserts liveliness at key.
func (s *Session) DeclareToken(key string) (*Token, error) {
	canon, err := keyexpr.Canonicalize(key)
	if err != nil {
		return nil, err
	}
	tok := &Token{ID: s.allocEntityID(), Key: canon}

	s.mu.Lock()
	s.livelinessLocal.Insert(tok.ID, canon)
	decl := wire.EncodeDeclare(wire.Declare{Body: wire.Declaration{
		Kind:     wire.DeclTokenID,
		EntityID: tok.ID,
		Key:      wire.WireKey{Suffix: canon, SuffixPresent: true},
	}})
	s.mu.Unlock()

	return tok, s.sendNetwork(decl, true, 7)
}

// UndeclareToken retracts a liveliness assertion.
func (s *Session) UndeclareToken(tok *Token) error {
	s.mu.Lock()
	if !s.livelinessLocal.Remove(tok.ID) {
		s.mu.Unlock()
		return ErrUnknownID
	}
	decl := wire.EncodeDeclare(wire.Declare{Body: wire.Declaration{
		Kind:     wire.UndeclTokenID,
		EntityID: tok.ID,
		Key:      wire.WireKey{Suffix: tok.Key, SuffixPresent: true},
	}})
	s.mu.Unlock()

	return s.sendNetwork(decl, true, 7)
}
