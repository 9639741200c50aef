package session

import (
	"LiveBoard/internal/protocol"
	"LiveBoard/internal/state"
)

// OriginFilter drops a peer's own messages on the way back in. State
// requests always pass so an author still answers one it sees echoed.
type OriginFilter struct {
	self state.Origin
}

func NewOriginFilter(self state.Origin) OriginFilter {
	return OriginFilter{self: self}
}

func (f OriginFilter) AcceptEvent(ev protocol.Event) bool {
	if _, ok := ev.Delta.(protocol.ReqState); ok {
		return true
	}
	return ev.Origin != f.self
}

func (f OriginFilter) AcceptSnapshot(snap protocol.Snapshot) bool {
	return snap.Origin != f.self
}
