package transport

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"LiveBoard/internal/protocol"
)

// Dispatcher puts a bounded queue and one sending worker in front of a
// Transport:
//   - Publish only enqueues, so capture and rendering never wait on the network
//   - a stalled transport is absorbed by the queue and retried with backoff
//   - when the queue is full the message is dropped; snapshots heal the gap
type Dispatcher struct {
	t     Transport
	queue chan outbound
	opts  DispatcherOptions
	log   *slog.Logger

	dropped atomic.Int64
}

type outbound struct {
	ch   protocol.Channel
	data []byte
}

type DispatcherOptions struct {
	QueueSize   int
	MaxRetry    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultDispatcherOptions() DispatcherOptions {
	return DispatcherOptions{
		QueueSize:   1024,
		MaxRetry:    3,
		BaseBackoff: 50 * time.Millisecond,
		MaxBackoff:  time.Second,
	}
}

func NewDispatcher(t Transport, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultDispatcherOptions().QueueSize
	}
	return &Dispatcher{
		t:     t,
		queue: make(chan outbound, opts.QueueSize),
		opts:  opts,
		log:   slog.Default().With("component", "dispatcher"),
	}
}

// Publish enqueues without blocking.
func (d *Dispatcher) Publish(ch protocol.Channel, data []byte) {
	select {
	case d.queue <- outbound{ch: ch, data: data}:
	default:
		d.dropped.Add(1)
		d.log.Debug("queue full, dropping message", "channel", ch)
	}
}

// Dropped counts messages lost to a full queue or exhausted retries.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Run sends queued messages in order until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-d.queue:
			d.sendWithRetry(ctx, msg)
		}
	}
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, msg outbound) {
	for attempt := 0; attempt <= d.opts.MaxRetry; attempt++ {
		err := d.t.Publish(ctx, msg.ch, msg.data)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt == d.opts.MaxRetry {
			d.dropped.Add(1)
			d.log.Warn("send failed, dropping message", "channel", msg.ch, "attempts", attempt+1, "err", err)
			return
		}

		// doubles each attempt
		backoff := d.opts.BaseBackoff * time.Duration(1<<attempt)
		if d.opts.MaxBackoff > 0 && backoff > d.opts.MaxBackoff {
			backoff = d.opts.MaxBackoff
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}
