package transport

import "github.com/zenoh-pico-go/zpico/internal/wire"

// startKeepAlive registers a scheduler task firing every lease/4
// milliseconds: sends KeepAlive on idle links, and closes the session
// with reason expired if no message is received within lease.
func (t *Transport) startKeepAlive() {
	lease := t.peer.LeaseMs
	if lease == 0 {
		return
	}
	period := lease / 4
	if period == 0 {
		period = 1
	}
	id, err := t.sched.Add(period, func() {
		idle := t.peer.IdleMs(t.now())
		if idle >= lease {
			t.logger.Warn().Msg("peer lease expired, closing session")
			_ = t.Close(wire.CloseReasonExpired)
			if t.onExpired != nil {
				t.onExpired()
			}
			return
		}
		if idle >= period {
			if err := t.sendControl(wire.EncodeKeepAlive()); err != nil {
				t.logger.Debug().Err(err).Msg("keep-alive send failed")
			}
		}
	}, nil)
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to register keep-alive task")
		return
	}
	t.keepAliveTaskID = id
}
