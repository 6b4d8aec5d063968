package transport

import (
	"bufio"
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/zenoh-pico-go/zpico/internal/link"
	"github.com/zenoh-pico-go/zpico/internal/metrics"
	"github.com/zenoh-pico-go/zpico/internal/scheduler"
	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// ErrClosed is returned by Send and sendControl once the transport has
// closed.
var ErrClosed = errors.New("transport: closed")

// TimeSource mirrors scheduler.TimeSource so Transport and its keep-alive
// task share one deterministic clock in tests.
type TimeSource func() uint64

// NetworkHandler dispatches one decoded network message arriving from
// the peer. It must not block; it runs outside any transport-internal
// lock.
type NetworkHandler func(wire.NetworkMessage)

// Config bundles the tunables Dial/Accept need beyond the link and the
// handshake: MTU, reassembly bound, rate-limit knobs, and clock.
type Config struct {
	MTU            int
	MaxReassembly  int // 0 = unbounded
	RateLimit      RateLimit
	Now            TimeSource // defaults to scheduler.NowMS
}

// Transport is the TX/RX engine: one link, one TX lock guarding the
// write buffer and (via Peer) the sn counters, and a read loop decoding
// one transport message at a time.
type Transport struct {
	link   link.Link
	peer   *Peer
	sched  *scheduler.Scheduler
	logger zerolog.Logger
	now    TimeSource

	mtu           int
	maxReassembly int
	limiter       *rate.Limiter

	mu sync.Mutex // TX lock: guards w (wbuf) and every write to the link
	w  *bufio.Writer
	r  *bufio.Reader

	onNetworkMessage NetworkHandler
	onExpired        func()

	keepAliveTaskID uint32
	closeOnce       sync.Once
	closed          bool
}

func newTransport(lnk link.Link, r *bufio.Reader, w *bufio.Writer, peer *Peer, sched *scheduler.Scheduler, cfg Config, logger zerolog.Logger) *Transport {
	mtu := cfg.MTU
	if mtu <= 0 {
		mtu = lnk.MTU()
	}
	now := cfg.Now
	if now == nil {
		now = scheduler.NowMS
	}
	peer.touch(now())
	return &Transport{
		link:          lnk,
		peer:          peer,
		sched:         sched,
		logger:        logger,
		now:           now,
		mtu:           mtu,
		maxReassembly: cfg.MaxReassembly,
		limiter:       newLimiter(cfg.RateLimit),
		w:             w,
		r:             r,
	}
}

// Peer returns the single remote peer this unicast transport talks to.
func (t *Transport) Peer() *Peer { return t.peer }

// Start installs the network-message handler and spawns the read loop
// and the lease/keep-alive scheduler task. It must be called once, after
// the handshake has completed.
func (t *Transport) Start(onNetworkMessage NetworkHandler, onExpired func()) {
	t.onNetworkMessage = onNetworkMessage
	t.onExpired = onExpired
	t.startKeepAlive()
	go t.readLoop()
}

// Send encodes msg as the sole contents of a Frame if it fits the MTU
// budget, or as a Fragment sequence otherwise.
func (t *Transport) Send(ctx context.Context, msg []byte, reliable bool, priority uint8) error {
	if err := waitSend(ctx, t.limiter); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	sn := t.peer.nextSN(reliable, priority)
	frame := wire.Frame{Reliable: reliable, SN: sn, Priority: priority, Messages: [][]byte{msg}}
	encoded := wire.EncodeFrame(frame)
	if len(encoded) <= t.mtu {
		if err := writeMessage(t.w, encoded); err != nil {
			return err
		}
		metrics.RecordFrameSent()
		return t.w.Flush()
	}
	return t.sendFragmentedLocked(msg, reliable, priority, sn)
}

// sendFragmentedLocked splits msg into Fragment pieces, each sized to
// stay within the MTU once its own header overhead is accounted for. sn
// is the sequence number already allocated for the first fragment; the
// rest draw fresh ones.
func (t *Transport) sendFragmentedLocked(msg []byte, reliable bool, priority uint8, sn uint64) error {
	offset := 0
	first := true
	for offset < len(msg) || len(msg) == 0 {
		if !first {
			sn = t.peer.nextSN(reliable, priority)
		}
		first = false

		overhead := len(wire.EncodeFragment(wire.Fragment{Reliable: reliable, SN: sn, Priority: priority}))
		budget := t.mtu - overhead
		if budget <= 0 {
			return ErrMessageTooLarge
		}
		end := offset + budget
		more := true
		if end >= len(msg) {
			end = len(msg)
			more = false
		}
		frag := wire.Fragment{Reliable: reliable, SN: sn, Priority: priority, Payload: msg[offset:end], More: more}
		if err := writeMessage(t.w, wire.EncodeFragment(frag)); err != nil {
			return err
		}
		metrics.RecordFragmentSent()
		offset = end
		if !more {
			break
		}
	}
	return t.w.Flush()
}

// sendControl takes the TX lock and writes a raw (un-Framed) transport
// message such as KeepAlive or Close.
func (t *Transport) sendControl(buf []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if err := writeMessage(t.w, buf); err != nil {
		return err
	}
	return t.w.Flush()
}

// Close sends a Close message with reason and releases the link. Safe to
// call multiple times.
func (t *Transport) Close(reason uint8) error {
	var err error
	t.closeOnce.Do(func() {
		_ = t.sendControl(wire.EncodeClose(wire.Close{Reason: reason}))
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		if t.keepAliveTaskID != 0 {
			_ = t.sched.Remove(t.keepAliveTaskID)
		}
		err = t.link.Close()
	})
	return err
}

func (t *Transport) readLoop() {
	for {
		buf, rerr := readMessage(t.r, t.mtu*2)
		if rerr != nil {
			t.logger.Debug().Err(rerr).Msg("transport read loop exiting")
			return
		}
		t.peer.touch(t.now())

		tm, derr := wire.DecodeTransportMessage(buf, 0)
		if derr != nil {
			t.logger.Warn().Err(derr).Msg("dropping undecodable transport message")
			continue
		}
		t.dispatchTransportMessage(tm)
	}
}

func (t *Transport) dispatchTransportMessage(tm wire.TransportMessage) {
	switch {
	case tm.Frame != nil:
		metrics.RecordFrameReceived()
		for _, raw := range tm.Frame.Messages {
			nm, err := wire.DecodeNetworkMessage(raw)
			if err != nil {
				t.logger.Warn().Err(err).Msg("dropping undecodable network message")
				continue
			}
			if t.onNetworkMessage != nil {
				t.onNetworkMessage(nm)
			}
		}
	case tm.Fragment != nil:
		metrics.RecordFragmentReceived()
		f := tm.Fragment
		out, err := t.peer.reassemblyFor(f.Reliable).push(f.SN, f.Payload, f.More, t.maxReassembly)
		if err != nil {
			metrics.RecordReassemblyAbort()
			t.logger.Warn().Err(err).Msg("fragment reassembly aborted")
			return
		}
		if out == nil {
			return
		}
		metrics.RecordReassemblyCompleted()
		nm, err := wire.DecodeNetworkMessage(out)
		if err != nil {
			t.logger.Warn().Err(err).Msg("dropping undecodable reassembled message")
			return
		}
		if t.onNetworkMessage != nil {
			t.onNetworkMessage(nm)
		}
	case tm.KeepAlive != nil:
		// touch() above already recorded liveness.
	case tm.Close != nil:
		t.logger.Info().Uint8("reason", tm.Close.Reason).Msg("peer closed session")
		if t.onExpired != nil {
			t.onExpired()
		}
	default:
		t.logger.Debug().Msg("ignoring out-of-session transport message")
	}
}
