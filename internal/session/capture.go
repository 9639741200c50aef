package session

import (
	"LiveBoard/internal/protocol"
	"LiveBoard/internal/state"
)

// BeginStroke opens a new local stroke at a device coordinate and returns
// its id. An open stroke is ended first. Viewers ignore capture.
func (s *Session) BeginStroke(clientX, clientY float64) string {
	if s.opts.Role != Author {
		s.log.Debug("ignoring capture on viewer")
		return ""
	}
	if s.active != "" {
		s.EndStroke()
	}

	p := s.surface.Normalize(clientX, clientY)
	st := s.board.Add(state.Stroke{
		ID:     state.NewStrokeID(),
		Style:  s.styles.ActiveStyle(),
		Points: []state.Point{p},
	})
	s.active = st.ID
	s.activeRef = st
	s.own = append(s.own, st.ID)
	if s.opts.MaxStrokes > 0 && len(s.own) > s.opts.MaxStrokes {
		s.pruneOwn()
	}

	s.batcher.Push(st.ID, st.Style, p)
	s.startFlush()
	s.checkpointTask = s.sched.Every(s.opts.CheckpointInterval, s.checkpoint)
	s.PublishSnapshot()
	return st.ID
}

// MoveStroke extends the open stroke. Samples closer to the previous point
// than the minimum distance are dropped.
func (s *Session) MoveStroke(clientX, clientY float64) {
	st := s.activeStroke()
	if st == nil {
		return
	}

	p := s.surface.Normalize(clientX, clientY)
	last := st.Points[len(st.Points)-1]
	if state.Dist2(last, p) < s.opts.MinDistance*s.opts.MinDistance {
		return
	}

	pts := s.batcher.Expand(last, p)
	prev := last
	for _, q := range pts {
		s.surface.RenderSegment(prev, q, st.Style)
		prev = q
	}
	st.Points = append(st.Points, pts...)
	s.batcher.Push(st.ID, st.Style, pts...)
	s.startFlush()
}

// EndStroke closes the open stroke: pending points go out synchronously,
// followed by the full commit and a final checkpoint snapshot.
func (s *Session) EndStroke() {
	st := s.activeStroke()
	if st == nil {
		return
	}

	for _, msg := range s.batcher.Drain(st.ID) {
		s.publishEvent(msg)
	}
	pts := make([]state.Point, len(st.Points))
	copy(pts, st.Points)
	s.publishEvent(protocol.StrokeCommit{StrokeID: st.ID, Style: st.Style, Points: pts})

	s.active = ""
	s.activeRef = nil
	stopTask(&s.checkpointTask)
	if !s.batcher.Pending() {
		stopTask(&s.flushTask)
	}
	s.PublishSnapshot()
}

// Clear wipes the board for everyone.
func (s *Session) Clear() {
	if s.opts.Role != Author {
		return
	}
	s.cancelActive()
	s.board.Clear()
	s.own = nil
	s.redraw()

	s.publishEvent(protocol.Clear{})
	s.PublishSnapshot()
}

// Undo removes the most recent stroke this session authored that is still
// on the board. An open stroke is ended first so it can be the one undone.
func (s *Session) Undo() {
	if s.opts.Role != Author {
		return
	}
	s.EndStroke()

	id := s.popOwn()
	if id == "" {
		return
	}
	s.board.Remove(id)
	s.redraw()

	s.publishEvent(protocol.Undo{StrokeID: id})
	s.PublishSnapshot()
}

// activeStroke returns the open stroke, putting it back on the board if a
// remote clear or snapshot removed it. The producer owns an open stroke.
func (s *Session) activeStroke() *state.Stroke {
	if s.active == "" {
		return nil
	}
	if st, ok := s.board.Get(s.active); ok {
		s.activeRef = st
		return st
	}
	if s.activeRef == nil {
		s.active = ""
		return nil
	}
	s.activeRef = s.board.Add(*s.activeRef)
	return s.activeRef
}

// liveActive copies the open stroke before a remote change to the board.
func (s *Session) liveActive() *state.Stroke {
	st := s.activeStroke()
	if st == nil {
		return nil
	}
	c := st.Clone()
	return &c
}

// restoreActive puts the open stroke back exactly as captured here after a
// remote clear, undo or snapshot. Another producer's copy of it may be
// partial, so it is overwritten rather than trusted.
func (s *Session) restoreActive(live *state.Stroke) {
	if live == nil || live.ID != s.active {
		return
	}
	if st, ok := s.board.Get(live.ID); ok {
		st.Style = live.Style
		st.Points = live.Points
		s.activeRef = st
		return
	}
	s.activeRef = s.board.Add(*live)
}

func (s *Session) cancelActive() {
	if s.active == "" {
		return
	}
	s.batcher.Discard(s.active)
	s.active = ""
	s.activeRef = nil
	stopTask(&s.checkpointTask)
	if !s.batcher.Pending() {
		stopTask(&s.flushTask)
	}
}

// pruneOwn forgets authored strokes that are no longer on the board.
func (s *Session) pruneOwn() {
	kept := s.own[:0]
	for _, id := range s.own {
		if s.board.Has(id) {
			kept = append(kept, id)
		}
	}
	clear(s.own[len(kept):])
	s.own = kept
}

func (s *Session) popOwn() string {
	for len(s.own) > 0 {
		id := s.own[len(s.own)-1]
		s.own = s.own[:len(s.own)-1]
		if s.board.Has(id) {
			return id
		}
	}
	return ""
}

func (s *Session) startFlush() {
	if s.flushTask == nil {
		s.flushTask = s.sched.Every(s.opts.FlushInterval, s.flushTick)
	}
}

func (s *Session) flushTick() {
	for _, msg := range s.batcher.Flush() {
		s.publishEvent(msg)
	}
	if s.active == "" && !s.batcher.Pending() {
		stopTask(&s.flushTask)
	}
}
