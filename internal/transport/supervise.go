package transport

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Reconnect is the jittered delay between connection attempts.
type Reconnect struct {
	Min time.Duration
	Max time.Duration
}

func DefaultReconnect() Reconnect {
	return Reconnect{Min: 2 * time.Second, Max: 5 * time.Second}
}

func (r Reconnect) delay() time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.N(r.Max-r.Min)
}

// Supervise keeps t running until ctx is done, reconnecting after every
// failure. h.Connected fires on each successful connect, which is where the
// session resynchronizes.
func Supervise(ctx context.Context, t Transport, h Handler, policy Reconnect) error {
	log := slog.Default().With("component", "supervisor")
	for {
		err := t.Run(ctx, h)
		if ctx.Err() != nil {
			return nil
		}
		wait := policy.delay()
		log.Warn("transport disconnected", "err", err, "retry_in", wait)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}
