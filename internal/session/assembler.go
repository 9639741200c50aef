package session

import (
	"LiveBoard/internal/protocol"
	"LiveBoard/internal/state"
)

// applyPoints appends a remote batch, creating the stroke on first sight,
// and renders only the new segments.
func (s *Session) applyPoints(d protocol.StrokePoints) {
	if s.ownsOpen(d.StrokeID) {
		return
	}
	st, created := s.board.Upsert(d.StrokeID, d.Style)
	if created {
		s.log.Debug("stroke created from points", "stroke", d.StrokeID)
	}

	pts := d.Points
	if d.From != nil {
		// points before len(st.Points) are already here
		if overlap := len(st.Points) - *d.From; overlap > 0 {
			if overlap >= len(pts) {
				return
			}
			pts = pts[overlap:]
		}
	}
	if len(pts) == 0 {
		return
	}

	prev := len(st.Points)
	st.Points = append(st.Points, pts...)
	s.renderFrom(st, prev)
}

// applyCommit replaces a stroke wholesale. Commits may arrive before any
// points, so unknown strokes are created.
func (s *Session) applyCommit(d protocol.StrokeCommit) {
	if s.ownsOpen(d.StrokeID) {
		return
	}
	st, _ := s.board.Upsert(d.StrokeID, d.Style)
	st.Style = d.Style
	st.Points = append(make([]state.Point, 0, len(d.Points)), d.Points...)
	s.redraw()
}

func (s *Session) applyClear() {
	live := s.liveActive()
	s.board.Clear()
	s.restoreActive(live)
	s.pruneOwn()
	s.redraw()
}

func (s *Session) applyUndo(d protocol.Undo) {
	live := s.liveActive()
	if d.StrokeID != "" {
		if !s.board.Remove(d.StrokeID) {
			return
		}
	} else if _, ok := s.board.Pop(); !ok {
		return
	}
	s.restoreActive(live)
	s.pruneOwn()
	s.redraw()
}

// ownsOpen reports whether id is the stroke this session is still drawing.
// Remote deltas for it are copies of what we sent.
func (s *Session) ownsOpen(id string) bool {
	return s.active != "" && id == s.active
}
