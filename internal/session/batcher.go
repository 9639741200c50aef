package session

import (
	"LiveBoard/internal/protocol"
	"LiveBoard/internal/state"
)

// Batcher decouples capture rate from send rate. Accepted points queue per
// stroke and leave in bounded stroke_points messages on each flush.
type Batcher struct {
	maxPoints int
	maxStep   float64
	pending   []*pendingStroke
}

type pendingStroke struct {
	id    string
	style state.Style
	buf   []state.Point
	sent  int // points of this stroke already handed out
}

func NewBatcher(maxPoints int, maxStep float64) *Batcher {
	if maxPoints <= 0 {
		maxPoints = 1
	}
	return &Batcher{maxPoints: maxPoints, maxStep: maxStep}
}

// Expand returns the points to record when the pen moves from prev to next,
// inserting evenly spaced points when the gap is wider than the max step.
func (b *Batcher) Expand(prev, next state.Point) []state.Point {
	return state.Interpolate(prev, next, b.maxStep)
}

// Push queues points for stroke id.
func (b *Batcher) Push(id string, style state.Style, pts ...state.Point) {
	p := b.find(id)
	if p == nil {
		p = &pendingStroke{id: id, style: style}
		b.pending = append(b.pending, p)
	}
	p.buf = append(p.buf, pts...)
}

// Pending reports whether any stroke has unsent points.
func (b *Batcher) Pending() bool {
	for _, p := range b.pending {
		if len(p.buf) > 0 {
			return true
		}
	}
	return false
}

// Flush takes at most one message's worth of points from every stroke.
// Whatever does not fit stays queued for the next flush.
func (b *Batcher) Flush() []protocol.StrokePoints {
	var out []protocol.StrokePoints
	for _, p := range b.pending {
		if msg, ok := b.take(p); ok {
			out = append(out, msg)
		}
	}
	return out
}

// Drain empties stroke id's queue completely and forgets the stroke.
func (b *Batcher) Drain(id string) []protocol.StrokePoints {
	p := b.find(id)
	if p == nil {
		return nil
	}
	var out []protocol.StrokePoints
	for {
		msg, ok := b.take(p)
		if !ok {
			break
		}
		out = append(out, msg)
	}
	b.Discard(id)
	return out
}

// Discard drops stroke id and anything still queued for it.
func (b *Batcher) Discard(id string) {
	for i, p := range b.pending {
		if p.id == id {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return
		}
	}
}

func (b *Batcher) take(p *pendingStroke) (protocol.StrokePoints, bool) {
	if len(p.buf) == 0 {
		return protocol.StrokePoints{}, false
	}
	n := min(len(p.buf), b.maxPoints)
	pts := make([]state.Point, n)
	copy(pts, p.buf[:n])
	from := p.sent

	p.buf = p.buf[n:]
	p.sent += n
	return protocol.StrokePoints{
		StrokeID: p.id,
		Style:    p.style,
		Points:   pts,
		From:     &from,
	}, true
}

func (b *Batcher) find(id string) *pendingStroke {
	for _, p := range b.pending {
		if p.id == id {
			return p
		}
	}
	return nil
}
