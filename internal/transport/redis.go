package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"LiveBoard/internal/protocol"
)

// Key layout for one room:
//   - eventsKey(room):   pub/sub channel for deltas
//   - stateKey(room):    pub/sub channel for snapshots
//   - retainedKey(room): string holding the last snapshot
const (
	keyEventsFmt   = "liveboard:room:{%s}:events"
	keyStateFmt    = "liveboard:room:{%s}:state"
	keyRetainedFmt = "liveboard:room:{%s}:retained"
)

func eventsKey(room string) string   { return fmt.Sprintf(keyEventsFmt, room) }
func stateKey(room string) string    { return fmt.Sprintf(keyStateFmt, room) }
func retainedKey(room string) string { return fmt.Sprintf(keyRetainedFmt, room) }

// Redis carries a room over Redis pub/sub. Retention is a plain key written
// in the same pipeline as the state publish.
type Redis struct {
	client *redis.Client
	room   string
	log    *slog.Logger
}

// DialRedis parses redisURL, checks the server answers and returns a
// transport for room.
func DialRedis(ctx context.Context, redisURL, room string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedis(client, room), nil
}

func NewRedis(client *redis.Client, room string) *Redis {
	return &Redis{
		client: client,
		room:   room,
		log:    slog.Default().With("component", "redis", "room", room),
	}
}

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) Publish(ctx context.Context, ch protocol.Channel, data []byte) error {
	switch ch {
	case protocol.Events:
		if err := r.client.Publish(ctx, eventsKey(r.room), data).Err(); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
	case protocol.State:
		_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, retainedKey(r.room), data, 0)
			p.Publish(ctx, stateKey(r.room), data)
			return nil
		})
		if err != nil {
			return fmt.Errorf("publish state: %w", err)
		}
	default:
		return fmt.Errorf("publish: unknown channel %q", ch)
	}
	return nil
}

func (r *Redis) Run(ctx context.Context, h Handler) error {
	ps := r.client.Subscribe(ctx, eventsKey(r.room), stateKey(r.room))
	defer ps.Close()

	// wait for both subscriptions before reading the retained key, so a
	// snapshot published in between is seen live
	for subscribed := 0; subscribed < 2; {
		msg, err := ps.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("subscribe: %w", err)
		}
		switch m := msg.(type) {
		case *redis.Subscription:
			subscribed++
		case *redis.Message:
			r.deliver(h, m)
		}
	}

	retained, err := r.client.Get(ctx, retainedKey(r.room)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("read retained state: %w", err)
	default:
		h.Receive(protocol.State, retained)
	}
	h.Connected()

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return ErrClosed
			}
			r.deliver(h, m)
		}
	}
}

func (r *Redis) deliver(h Handler, m *redis.Message) {
	switch m.Channel {
	case eventsKey(r.room):
		h.Receive(protocol.Events, []byte(m.Payload))
	case stateKey(r.room):
		h.Receive(protocol.State, []byte(m.Payload))
	default:
		r.log.Debug("message on unexpected channel", "channel", m.Channel)
	}
}
