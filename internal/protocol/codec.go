package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"LiveBoard/internal/state"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// envelope is the events-channel wire shape {type, origin, payload}.
type envelope struct {
	Type    Kind            `json:"type"`
	Origin  state.Origin    `json:"origin"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func EncodeEvent(e Event) ([]byte, error) {
	if e.Delta == nil {
		return nil, fmt.Errorf("encode event: %w: nil delta", ErrMalformed)
	}
	payload, err := json.Marshal(e.Delta)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", e.Delta.Kind(), err)
	}
	return json.Marshal(envelope{
		Type:    e.Delta.Kind(),
		Origin:  e.Origin,
		Room:    e.Room,
		Payload: payload,
	})
}

// DecodeEvent parses and validates an events-channel message. Any error
// means the message should be dropped.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Origin.IsZero() {
		return Event{}, fmt.Errorf("%w: missing origin", ErrMalformed)
	}

	var d Delta
	switch env.Type {
	case KindStrokePoints:
		var p StrokePoints
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return Event{}, err
		}
		if err := validateStroke(p.StrokeID, p.Points); err != nil {
			return Event{}, err
		}
		if p.From != nil && *p.From < 0 {
			return Event{}, fmt.Errorf("%w: negative from", ErrMalformed)
		}
		d = p
	case KindStrokeCommit:
		var c StrokeCommit
		if err := unmarshalPayload(env.Payload, &c); err != nil {
			return Event{}, err
		}
		if err := validateStroke(c.StrokeID, c.Points); err != nil {
			return Event{}, err
		}
		d = c
	case KindClear:
		d = Clear{}
	case KindUndo:
		var u Undo
		if err := unmarshalPayload(env.Payload, &u); err != nil {
			return Event{}, err
		}
		d = u
	case KindReqState:
		d = ReqState{}
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	return Event{Origin: env.Origin, Room: env.Room, Delta: d}, nil
}

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	if s.Strokes == nil {
		s.Strokes = []state.Stroke{}
	}
	return json.Marshal(s)
}

// DecodeSnapshot parses and validates a state-channel message.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if s.Origin.IsZero() {
		return Snapshot{}, fmt.Errorf("%w: missing origin", ErrMalformed)
	}
	for _, st := range s.Strokes {
		if err := validateStroke(st.ID, st.Points); err != nil {
			return Snapshot{}, err
		}
	}
	return s, nil
}

// unmarshalPayload treats a missing payload as an empty object.
func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}
	return nil
}

func validateStroke(id string, pts []state.Point) error {
	if id == "" {
		return fmt.Errorf("%w: missing stroke id", ErrMalformed)
	}
	for _, p := range pts {
		if !p.Valid() {
			return fmt.Errorf("%w: stroke %s has non-finite point", ErrMalformed, id)
		}
	}
	return nil
}
