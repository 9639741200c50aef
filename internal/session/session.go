// Package session implements the stroke synchronization core: local
// capture, delta batching, remote assembly and snapshot reconciliation for
// one peer.
//
// A Session is not safe for concurrent use. Every call, including scheduler
// callbacks, must happen on one goroutine; Peer provides that loop.
package session

import (
	"log/slog"
	"time"

	"LiveBoard/internal/protocol"
	"LiveBoard/internal/state"
)

type Role int

const (
	Viewer Role = iota
	Author
)

func (r Role) String() string {
	if r == Author {
		return "author"
	}
	return "viewer"
}

const minFlushInterval = 10 * time.Millisecond

type Options struct {
	Role Role
	Room string

	FlushInterval       time.Duration
	MaxPointsPerMessage int
	// MinDistance is in normalized units; samples closer than this to the
	// previous point are dropped.
	MinDistance float64
	// MaxStep enables interpolation when > 0.
	MaxStep            float64
	CheckpointInterval time.Duration
	Warmup             time.Duration
	MaxStrokes         int
}

func DefaultOptions() Options {
	return Options{
		FlushInterval:       33 * time.Millisecond,
		MaxPointsPerMessage: 64,
		MinDistance:         0.001,
		MaxStep:             0.02,
		CheckpointInterval:  2 * time.Second,
		MaxStrokes:          1000,
	}
}

func (o Options) withFloors() Options {
	if o.FlushInterval < minFlushInterval {
		o.FlushInterval = minFlushInterval
	}
	if o.MaxPointsPerMessage <= 0 {
		o.MaxPointsPerMessage = DefaultOptions().MaxPointsPerMessage
	}
	if o.CheckpointInterval <= 0 {
		o.CheckpointInterval = DefaultOptions().CheckpointInterval
	}
	if o.MinDistance < 0 {
		o.MinDistance = 0
	}
	return o
}

// Deps are the collaborators a Session talks to. Nil fields get inert
// defaults.
type Deps struct {
	Origin    state.Origin
	Surface   Surface
	Styles    StyleSource
	Publisher Publisher
	Scheduler Scheduler
	Now       func() time.Time
	Logger    *slog.Logger
}

type Session struct {
	opts   Options
	origin state.Origin
	filter OriginFilter

	board   *state.Board
	clock   state.VersionClock
	applied map[state.Origin]uint64

	surface Surface
	styles  StyleSource
	pub     Publisher
	sched   Scheduler
	now     func() time.Time
	log     *slog.Logger

	batcher *Batcher

	active    string        // id of the open local stroke
	activeRef *state.Stroke // last known copy of it
	own       []string      // strokes this session authored, oldest first

	flushTask      Task
	checkpointTask Task
	warmupUntil    time.Time
}

func New(opts Options, deps Deps) *Session {
	opts = opts.withFloors()
	if deps.Origin.IsZero() {
		deps.Origin = state.NewOrigin()
	}
	if deps.Surface == nil {
		deps.Surface = NewBoundsSurface(1, 1)
	}
	if deps.Styles == nil {
		deps.Styles = fixedStyle(state.DefaultStyle())
	}
	if deps.Publisher == nil {
		deps.Publisher = discard{}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = NewManualScheduler()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Session{
		opts:    opts,
		origin:  deps.Origin,
		filter:  NewOriginFilter(deps.Origin),
		board:   state.NewBoard(opts.MaxStrokes),
		applied: make(map[state.Origin]uint64),
		surface: deps.Surface,
		styles:  deps.Styles,
		pub:     deps.Publisher,
		sched:   deps.Scheduler,
		now:     deps.Now,
		log: deps.Logger.With(
			"component", "session",
			"origin", deps.Origin,
			"role", opts.Role.String(),
		),
		batcher: NewBatcher(opts.MaxPointsPerMessage, opts.MaxStep),
	}
}

func (s *Session) Origin() state.Origin { return s.origin }
func (s *Session) Role() Role           { return s.opts.Role }

// Strokes returns a copy of the current board.
func (s *Session) Strokes() []state.Stroke { return s.board.Strokes() }

// Version is the last snapshot version this session published.
func (s *Session) Version() uint64 { return s.clock.Current() }

// Drawing reports whether a local stroke is open.
func (s *Session) Drawing() bool { return s.active != "" }

// HandleMessage decodes a raw inbound message and applies it. Anything that
// fails to decode is dropped.
func (s *Session) HandleMessage(ch protocol.Channel, data []byte) {
	switch ch {
	case protocol.Events:
		ev, err := protocol.DecodeEvent(data)
		if err != nil {
			s.log.Debug("dropping event", "err", err)
			return
		}
		s.HandleEvent(ev)
	case protocol.State:
		snap, err := protocol.DecodeSnapshot(data)
		if err != nil {
			s.log.Debug("dropping snapshot", "err", err)
			return
		}
		s.ApplySnapshot(snap)
	default:
		s.log.Debug("dropping message on unknown channel", "channel", ch)
	}
}

// HandleEvent applies one decoded delta event.
func (s *Session) HandleEvent(ev protocol.Event) {
	if !s.sameRoom(ev.Room) {
		s.log.Debug("dropping event for other room", "room", ev.Room)
		return
	}
	if !s.filter.AcceptEvent(ev) {
		return
	}
	if _, ok := ev.Delta.(protocol.ReqState); !ok && s.warmingUp() {
		s.log.Debug("dropping event during warmup", "type", ev.Delta.Kind())
		return
	}

	switch d := ev.Delta.(type) {
	case protocol.StrokePoints:
		s.applyPoints(d)
	case protocol.StrokeCommit:
		s.applyCommit(d)
	case protocol.Clear:
		s.applyClear()
	case protocol.Undo:
		s.applyUndo(d)
	case protocol.ReqState:
		s.answerStateRequest(ev.Origin)
	}
}

// Close stops the session's periodic tasks.
func (s *Session) Close() {
	stopTask(&s.flushTask)
	stopTask(&s.checkpointTask)
}

func (s *Session) sameRoom(room string) bool {
	return room == "" || s.opts.Room == "" || room == s.opts.Room
}

func (s *Session) warmingUp() bool {
	return s.now().Before(s.warmupUntil)
}

func (s *Session) publishEvent(d protocol.Delta) {
	data, err := protocol.EncodeEvent(protocol.Event{Origin: s.origin, Room: s.opts.Room, Delta: d})
	if err != nil {
		s.log.Warn("encode event failed", "type", d.Kind(), "err", err)
		return
	}
	s.pub.Publish(protocol.Events, data)
}

// redraw repaints the whole board.
func (s *Session) redraw() {
	s.surface.ClearSurface()
	s.board.Each(func(st *state.Stroke) {
		s.renderFrom(st, 0)
	})
}

// renderFrom draws the segments that end at points[from:].
func (s *Session) renderFrom(st *state.Stroke, from int) {
	for i := max(from, 1); i < len(st.Points); i++ {
		s.surface.RenderSegment(st.Points[i-1], st.Points[i], st.Style)
	}
}

func stopTask(t *Task) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
