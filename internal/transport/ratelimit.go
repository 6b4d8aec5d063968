package transport

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimit configures the TX-path congestion control knob: one token
// bucket per peer, backed by golang.org/x/time/rate instead of a
// bespoke token bucket.
type RateLimit struct {
	BurstFrames int
	FramesPerSec float64
}

// DefaultRateLimit allows effectively unlimited sends; callers opt into
// pacing by passing a RateLimit with BurstFrames > 0 to Dial/Accept via
// Config.RateLimit.
var DefaultRateLimit = RateLimit{BurstFrames: 0}

func newLimiter(cfg RateLimit) *rate.Limiter {
	if cfg.BurstFrames <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(cfg.FramesPerSec), cfg.BurstFrames)
}

// waitSend blocks until one Frame/Fragment send is permitted or ctx is
// done.
func waitSend(ctx context.Context, l *rate.Limiter) error {
	return l.Wait(ctx)
}
