package protocol

import (
	"errors"
	"testing"

	"LiveBoard/internal/state"
)

func TestEncodeEventEnvelopeShape(t *testing.T) {
	from := 3
	data, err := EncodeEvent(Event{
		Origin: "peer-1",
		Room:   "r1",
		Delta: StrokePoints{
			StrokeID: "s1",
			Style:    state.DefaultStyle(),
			Points:   []state.Point{{X: 0.1, Y: 0.2}},
			From:     &from,
		},
	})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if got.Origin != "peer-1" || got.Room != "r1" {
		t.Errorf("unexpected envelope: %+v", got)
	}
	sp, ok := got.Delta.(StrokePoints)
	if !ok {
		t.Fatalf("expected StrokePoints, got %T", got.Delta)
	}
	if sp.StrokeID != "s1" || len(sp.Points) != 1 || sp.From == nil || *sp.From != 3 {
		t.Errorf("unexpected payload: %+v", sp)
	}
}

func TestDecodeEventKinds(t *testing.T) {
	tests := []struct {
		raw  string
		want Kind
	}{
		{`{"type":"clear","origin":"a"}`, KindClear},
		{`{"type":"undo","origin":"a","payload":{}}`, KindUndo},
		{`{"type":"undo","origin":"a","payload":{"strokeId":"s9"}}`, KindUndo},
		{`{"type":"req_state","origin":"a","payload":null}`, KindReqState},
		{`{"type":"stroke_commit","origin":"a","payload":{"strokeId":"s","style":{"color":"#fff","width":2},"points":[]}}`, KindStrokeCommit},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.raw))
			if err != nil {
				t.Fatalf("DecodeEvent(%s): %v", tt.raw, err)
			}
			if ev.Delta.Kind() != tt.want {
				t.Errorf("got %s, want %s", ev.Delta.Kind(), tt.want)
			}
		})
	}

	ev, _ := DecodeEvent([]byte(`{"type":"undo","origin":"a","payload":{"strokeId":"s9"}}`))
	if u := ev.Delta.(Undo); u.StrokeID != "s9" {
		t.Errorf("undo stroke id lost: %+v", u)
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		err  error
	}{
		{"not json", `{{{`, ErrMalformed},
		{"no origin", `{"type":"clear"}`, ErrMalformed},
		{"unknown type", `{"type":"teleport","origin":"a"}`, ErrUnknownType},
		{"missing stroke id", `{"type":"stroke_points","origin":"a","payload":{"points":[]}}`, ErrMalformed},
		{"payload wrong shape", `{"type":"stroke_points","origin":"a","payload":[1,2]}`, ErrMalformed},
		{"negative from", `{"type":"stroke_points","origin":"a","payload":{"strokeId":"s","from":-1}}`, ErrMalformed},
		{"points not numbers", `{"type":"stroke_commit","origin":"a","payload":{"strokeId":"s","points":[{"x":"a"}]}}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.raw))
			if !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestSnapshotCodec(t *testing.T) {
	data, err := EncodeSnapshot(Snapshot{Origin: "a", Version: 7})
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	if want := `{"origin":"a","v":7,"strokes":[]}`; string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	snap, err := DecodeSnapshot([]byte(`{"origin":"b","v":3,"strokes":[{"id":"s1","style":{"color":"#000000","width":3},"points":[{"x":0.1,"y":0.1}]}]}`))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if snap.Version != 3 || len(snap.Strokes) != 1 || snap.Strokes[0].ID != "s1" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	if _, err := DecodeSnapshot([]byte(`{"v":3,"strokes":[]}`)); !errors.Is(err, ErrMalformed) {
		t.Errorf("missing origin should be malformed, got %v", err)
	}
	if _, err := DecodeSnapshot([]byte(`{"origin":"b","v":3,"strokes":[{"points":[]}]}`)); !errors.Is(err, ErrMalformed) {
		t.Errorf("stroke without id should be malformed, got %v", err)
	}
}
