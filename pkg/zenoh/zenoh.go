// Package zenoh is the application-facing convenience layer: it turns
// an internal/config.Config into a dialed or accepted
// internal/session.Session, picking the concrete internal/link
// implementation the configured LinkMode names, and re-exports the
// session-layer vocabulary types so callers never need to import
// internal/session directly.
package zenoh

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/zenoh-pico-go/zpico/internal/config"
	"github.com/zenoh-pico-go/zpico/internal/link"
	"github.com/zenoh-pico-go/zpico/internal/link/natslink"
	"github.com/zenoh-pico-go/zpico/internal/link/wslink"
	"github.com/zenoh-pico-go/zpico/internal/scheduler"
	"github.com/zenoh-pico-go/zpico/internal/session"
	"github.com/zenoh-pico-go/zpico/internal/transport"
)

// Re-exported session vocabulary, so application code depends only on
// this package.
type (
	Session       = session.Session
	Sample        = session.Sample
	SampleKind    = session.SampleKind
	Reply         = session.Reply
	ReplyKind     = session.ReplyKind
	Locality      = session.Locality
	Consolidation = session.Consolidation
	QueryTarget   = session.QueryTarget
	Subscriber    = session.Subscriber
	Queryable     = session.Queryable
	Query         = session.Query
	Token         = session.Token
	Publisher     = session.Publisher

	PutOptions        = session.PutOptions
	GetOptions         = session.GetOptions
	SubscriberOptions  = session.SubscriberOptions
	QueryableOptions   = session.QueryableOptions
)

const (
	SampleKindPut    = session.SampleKindPut
	SampleKindDelete = session.SampleKindDelete

	LocalityAny          = session.LocalityAny
	LocalitySessionLocal = session.LocalitySessionLocal
	LocalityRemote       = session.LocalityRemote

	ConsolidationNone      = session.ConsolidationNone
	ConsolidationMonotonic = session.ConsolidationMonotonic
	ConsolidationLatest    = session.ConsolidationLatest

	TargetBestMatching = session.TargetBestMatching
	TargetAll          = session.TargetAll
	TargetAllComplete  = session.TargetAllComplete
)

// sessionConfig builds the internal/session.Config a Config maps to.
func sessionConfig(cfg *config.Config) (session.Config, error) {
	zid, err := cfg.ZID()
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		LocalZID:     zid,
		Version:      uint8(cfg.Version),
		SNResolution: uint8(cfg.SNResolutionBits),
		BatchSize:    uint16(cfg.BatchSize),
		LeaseMs:      uint64(cfg.LeaseMs),
		Transport: transport.Config{
			MTU:           cfg.MTU,
			MaxReassembly: cfg.MaxReassembly,
			RateLimit: transport.RateLimit{
				FramesPerSec: cfg.FramesPerSec,
				BurstFrames:  cfg.BurstFrames,
			},
		},
		CallbackWorkers:       cfg.CallbackWorkers,
		CallbackQueue:         cfg.CallbackQueue,
		DefaultQueryTimeoutMs: cfg.DefaultQueryTimeoutMs,
	}, nil
}

// dialLink builds the internal/link.Link named by cfg.LinkMode, dialing
// cfg.LinkAddr as that transport's endpoint.
func dialLink(ctx context.Context, cfg *config.Config) (link.Link, error) {
	switch cfg.LinkMode {
	case "tcp":
		conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", cfg.LinkAddr)
		if err != nil {
			return nil, fmt.Errorf("zenoh: dial tcp %s: %w", cfg.LinkAddr, err)
		}
		return link.NewConnLink(conn, cfg.MTU), nil
	case "ws":
		l, err := wslink.Dial(ctx, cfg.LinkAddr)
		if err != nil {
			return nil, fmt.Errorf("zenoh: dial ws %s: %w", cfg.LinkAddr, err)
		}
		l.SetMTU(cfg.MTU)
		return l, nil
	case "nats":
		l, err := natslink.Dial(cfg.LinkAddr, "zpico.in", "zpico.out")
		if err != nil {
			return nil, fmt.Errorf("zenoh: dial nats %s: %w", cfg.LinkAddr, err)
		}
		l.SetMTU(cfg.MTU)
		return l, nil
	default:
		return nil, fmt.Errorf("zenoh: unknown link mode %q", cfg.LinkMode)
	}
}

// Open dials the link named by cfg and completes the session handshake
// as the initiating (client) side.
func Open(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler, logger zerolog.Logger) (*Session, error) {
	scfg, err := sessionConfig(cfg)
	if err != nil {
		return nil, err
	}
	lnk, err := dialLink(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sess, err := session.Open(lnk, scfg, sched, logger)
	if err != nil {
		_ = lnk.Close()
		return nil, err
	}
	return sess, nil
}

// Accept completes the session handshake as the responding (server)
// side over an already-established link (e.g. one handed back by a
// wslink.Accept HTTP handler).
func Accept(lnk link.Link, cfg *config.Config, cookie []byte, sched *scheduler.Scheduler, logger zerolog.Logger) (*Session, error) {
	scfg, err := sessionConfig(cfg)
	if err != nil {
		return nil, err
	}
	return session.Accept(lnk, scfg, cookie, sched, logger)
}

// ServeWebSocket upgrades r into a wslink.Link suitable for Accept, the
// server-side counterpart to LinkMode "ws".
func ServeWebSocket(w http.ResponseWriter, r *http.Request) (link.Link, error) {
	return wslink.Accept(w, r)
}
