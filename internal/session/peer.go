package session

import (
	"context"
	"sync/atomic"
	"time"

	"LiveBoard/internal/protocol"
	"LiveBoard/internal/state"
)

const peerQueueSize = 256

// Peer owns a Session and serializes everything that touches it: transport
// callbacks, UI input and timer ticks all become closures on one queue.
type Peer struct {
	session *Session
	queue   chan func(*Session)
	done    chan struct{}
}

// NewPeer builds a Session whose scheduler, unless one is given, posts ticks
// back onto the peer's own loop.
func NewPeer(opts Options, deps Deps) *Peer {
	p := &Peer{
		queue: make(chan func(*Session), peerQueueSize),
		done:  make(chan struct{}),
	}
	if deps.Scheduler == nil {
		deps.Scheduler = p
	}
	p.session = New(opts, deps)
	return p
}

func (p *Peer) Origin() state.Origin { return p.session.Origin() }

// Post queues fn to run on the loop. It reports false once the loop has
// stopped.
func (p *Peer) Post(fn func(*Session)) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.queue <- fn:
		return true
	case <-p.done:
		return false
	}
}

// Run executes posted work until ctx is cancelled.
func (p *Peer) Run(ctx context.Context) error {
	defer close(p.done)
	defer p.session.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-p.queue:
			fn(p.session)
		}
	}
}

// Done is closed when Run returns.
func (p *Peer) Done() <-chan struct{} { return p.done }

// Connected is called by the transport after every (re)connect.
func (p *Peer) Connected() {
	p.Post(func(s *Session) { s.OnConnected() })
}

// Receive is called by the transport for every inbound message. data must
// not be reused by the caller.
func (p *Peer) Receive(ch protocol.Channel, data []byte) {
	p.Post(func(s *Session) { s.HandleMessage(ch, data) })
}

// Strokes fetches a copy of the board through the loop.
func (p *Peer) Strokes(ctx context.Context) ([]state.Stroke, error) {
	out := make(chan []state.Stroke, 1)
	if !p.Post(func(s *Session) { out <- s.Strokes() }) {
		return nil, context.Canceled
	}
	select {
	case strokes := <-out:
		return strokes, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, context.Canceled
	}
}

// Every implements Scheduler with a ticker goroutine that posts fn to the
// loop. A tick already queued when the task stops is skipped.
func (p *Peer) Every(d time.Duration, fn func()) Task {
	t := &loopTask{stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-p.done:
				return
			case <-ticker.C:
				p.Post(func(*Session) {
					if !t.stopped.Load() {
						fn()
					}
				})
			}
		}
	}()
	return t
}

type loopTask struct {
	stopped atomic.Bool
	stop    chan struct{}
}

func (t *loopTask) Stop() {
	if t.stopped.CompareAndSwap(false, true) {
		close(t.stop)
	}
}
