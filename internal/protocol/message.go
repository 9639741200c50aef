// Package protocol defines the wire messages exchanged between peers: delta
// events on the ephemeral events channel and snapshots on the retained
// state channel.
package protocol

import "LiveBoard/internal/state"

// Channel names one of the two logical channels of a room.
type Channel string

const (
	// Events is best effort and not retained.
	Events Channel = "events"
	// State is retained: the transport redelivers the last message to new
	// subscribers.
	State Channel = "state"
)

func (c Channel) Valid() bool { return c == Events || c == State }

type Kind string

const (
	KindStrokePoints Kind = "stroke_points"
	KindStrokeCommit Kind = "stroke_commit"
	KindClear        Kind = "clear"
	KindUndo         Kind = "undo"
	KindReqState     Kind = "req_state"
)

// Delta is the closed set of event payloads. Switch on the concrete type.
type Delta interface {
	Kind() Kind
	isDelta()
}

// StrokePoints appends points to a stroke. From, when set, is the index of
// Points[0] within the stroke and lets receivers skip points they already
// hold.
type StrokePoints struct {
	StrokeID string        `json:"strokeId"`
	Style    state.Style   `json:"style"`
	Points   []state.Point `json:"points"`
	From     *int          `json:"from,omitempty"`
}

// StrokeCommit is the authoritative full point list for one stroke.
type StrokeCommit struct {
	StrokeID string        `json:"strokeId"`
	Style    state.Style   `json:"style"`
	Points   []state.Point `json:"points"`
}

type Clear struct{}

// Undo removes StrokeID, or the locally last stroke when StrokeID is empty.
type Undo struct {
	StrokeID string `json:"strokeId,omitempty"`
}

// ReqState asks any author in the room to republish its snapshot.
type ReqState struct{}

func (StrokePoints) Kind() Kind { return KindStrokePoints }
func (StrokeCommit) Kind() Kind { return KindStrokeCommit }
func (Clear) Kind() Kind        { return KindClear }
func (Undo) Kind() Kind         { return KindUndo }
func (ReqState) Kind() Kind     { return KindReqState }

func (StrokePoints) isDelta() {}
func (StrokeCommit) isDelta() {}
func (Clear) isDelta()        {}
func (Undo) isDelta()         {}
func (ReqState) isDelta()     {}

// Event is a decoded events-channel message.
type Event struct {
	Origin state.Origin
	Room   string
	Delta  Delta
}

// Snapshot is the full authoritative board of one producer.
type Snapshot struct {
	Origin  state.Origin   `json:"origin"`
	Room    string         `json:"room,omitempty"`
	Version uint64         `json:"v"`
	Strokes []state.Stroke `json:"strokes"`
}
