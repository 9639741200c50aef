package session

import (
	"LiveBoard/internal/protocol"
	"LiveBoard/internal/state"
)

// PublishSnapshot sends the whole board under the next version.
func (s *Session) PublishSnapshot() {
	snap := protocol.Snapshot{
		Origin:  s.origin,
		Room:    s.opts.Room,
		Version: s.clock.Next(),
		Strokes: s.board.Strokes(),
	}
	data, err := protocol.EncodeSnapshot(snap)
	if err != nil {
		s.log.Warn("encode snapshot failed", "version", snap.Version, "err", err)
		return
	}
	s.pub.Publish(protocol.State, data)
}

// ApplySnapshot replaces the board with snap if it is strictly newer than
// the last snapshot applied from the same producer. It reports whether the
// snapshot was applied.
func (s *Session) ApplySnapshot(snap protocol.Snapshot) bool {
	if !s.sameRoom(snap.Room) {
		return false
	}
	if !s.filter.AcceptSnapshot(snap) {
		return false
	}
	if last, ok := s.applied[snap.Origin]; ok && snap.Version <= last {
		s.log.Debug("discarding stale snapshot",
			"producer", snap.Origin, "version", snap.Version, "applied", last)
		return false
	}

	s.applied[snap.Origin] = snap.Version
	live := s.liveActive()
	s.board.Replace(snap.Strokes)
	s.restoreActive(live)
	s.pruneOwn()
	s.redraw()
	return true
}

// AppliedVersion is the newest snapshot version applied from producer.
func (s *Session) AppliedVersion(producer state.Origin) (uint64, bool) {
	v, ok := s.applied[producer]
	return v, ok
}

// OnConnected runs after every (re)connect of the transport. Authors
// announce their board; viewers ask for one.
func (s *Session) OnConnected() {
	s.warmupUntil = s.now().Add(s.opts.Warmup)
	if s.opts.Role == Author {
		s.PublishSnapshot()
		return
	}
	s.RequestState()
}

// RequestState asks the room's authors to republish their snapshots.
func (s *Session) RequestState() {
	s.publishEvent(protocol.ReqState{})
}

func (s *Session) answerStateRequest(from state.Origin) {
	if s.opts.Role != Author {
		return
	}
	s.log.Debug("answering state request", "from", from)
	s.PublishSnapshot()
}

// checkpoint fires while a stroke is open so lost deltas heal within one
// interval.
func (s *Session) checkpoint() {
	if s.active == "" {
		return
	}
	s.PublishSnapshot()
}
