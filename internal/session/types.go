// Package session implements the session engine: the table-shaped state
// (resources, subscriptions, queryables, pending queries, interests,
// liveliness) and the declare/put/get/reply operations built on top of
// a transport.Transport.
package session

import (
	"errors"

	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// Locality restricts which peers (including this session) may trigger a
// handler or receive a message, via allowed-origin / allowed-destination
// fields.
type Locality uint8

const (
	LocalityAny Locality = iota
	LocalitySessionLocal
	LocalityRemote
)

// Matches reports whether a message tagged with source reaches a
// listener configured with allowed.
func Matches(allowed Locality, source Locality) bool {
	switch allowed {
	case LocalityAny:
		return true
	case LocalitySessionLocal:
		return source == LocalitySessionLocal
	case LocalityRemote:
		return source == LocalityRemote
	default:
		return false
	}
}

// SampleKind distinguishes a write from a deletion.
type SampleKind uint8

const (
	SampleKindPut SampleKind = iota
	SampleKindDelete
)

// Sample is the data unit subscribers and queryable replies carry.
type Sample struct {
	Key        string
	Payload    []byte
	Encoding   *wire.Encoding
	Kind       SampleKind
	Timestamp  *wire.Timestamp
	QoS        wire.QoS
	Attachment []byte
	SourceInfo *wire.SourceInfo
}

// Consolidation selects reply-deduplication policy at the querier, the
// session-layer counterpart of wire.Consolidation (None/Monotonic/Latest
// only — the wire's Default sentinel is resolved to Latest before it
// reaches this layer, per wire.Consolidation.AsEffective).
type Consolidation uint8

const (
	ConsolidationNone Consolidation = iota
	ConsolidationMonotonic
	ConsolidationLatest
)

func (c Consolidation) toWire() wire.Consolidation {
	switch c {
	case ConsolidationNone:
		return wire.ConsolidationNone
	case ConsolidationMonotonic:
		return wire.ConsolidationMonotonic
	default:
		return wire.ConsolidationLatest
	}
}

// QueryTarget selects how many queryables a get() addresses. The core
// only encodes the field; selection among matching queryables is a
// routing-node concern this unicast-only engine does not perform.
type QueryTarget uint8

const (
	TargetBestMatching QueryTarget = iota
	TargetAll
	TargetAllComplete
)

// ReplyKind distinguishes the three answer shapes a queryable callback
// can produce.
type ReplyKind uint8

const (
	ReplyKindOk ReplyKind = iota
	ReplyKindDelete
	ReplyKindErr
)

// Reply is delivered to a get() callback for each accepted answer.
type Reply struct {
	Kind    ReplyKind
	Sample  Sample   // valid when Kind is ReplyKindOk/ReplyKindDelete
	ErrBody []byte   // valid when Kind is ReplyKindErr
	ErrEnc  *wire.Encoding
}

var (
	// ErrClosed names the closed-session condition; no Session method
	// returns it.
	ErrClosed = errors.New("session: closed")
	// ErrUnknownID is returned by undeclare/reply operations referencing
	// an id absent from the relevant table.
	ErrUnknownID = errors.New("session: unknown id")
	// ErrDuplicateID names a duplicate-id condition; no Session method
	// returns it.
	ErrDuplicateID = errors.New("session: duplicate id")
	// ErrTableFull is returned when every resource id other than the
	// reserved 0 and 0xFFFF is in use.
	ErrTableFull = errors.New("session: resource table full")
)

const (
	reservedIDZero = 0
	reservedIDMax  = 0xFFFF
)
