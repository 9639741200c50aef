package relay

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"LiveBoard/internal/protocol"
	"LiveBoard/internal/session"
	"LiveBoard/internal/state"
	"LiveBoard/internal/transport"
)

type received struct {
	ch   protocol.Channel
	data string
}

const connectedMark = protocol.Channel("connected")

type recordingHandler struct{ got chan received }

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{got: make(chan received, 64)}
}

func (h *recordingHandler) Connected() { h.got <- received{ch: connectedMark} }
func (h *recordingHandler) Receive(ch protocol.Channel, data []byte) {
	h.got <- received{ch: ch, data: string(data)}
}

func (h *recordingHandler) expect(t *testing.T, want received) {
	t.Helper()
	select {
	case got := <-h.got:
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %+v", want)
	}
}

func (h *recordingHandler) expectNothing(t *testing.T) {
	t.Helper()
	select {
	case got := <-h.got:
		t.Fatalf("unexpected %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func startRelay(t *testing.T) (*Server, string) {
	t.Helper()
	s := New(Options{CORSOrigin: "*"})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, strings.TrimPrefix(srv.URL, "http://")
}

func dial(t *testing.T, host, room string, h transport.Handler) *transport.WebSocket {
	t.Helper()
	ws := transport.NewWebSocket(transport.RelayURL(host, room))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ws.Run(ctx, h) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ws
}

func encodeSnapshot(t *testing.T, snap protocol.Snapshot) string {
	t.Helper()
	data, err := protocol.EncodeSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRelayRetainsStateAndFansOut(t *testing.T) {
	_, host := startRelay(t)
	ctx := context.Background()

	ha := newRecordingHandler()
	a := dial(t, host, "r1", ha)
	ha.expect(t, received{ch: connectedMark})

	snap := encodeSnapshot(t, protocol.Snapshot{
		Origin: "author", Room: "r1", Version: 3,
		Strokes: []state.Stroke{{ID: "s1", Style: state.DefaultStyle(), Points: []state.Point{{X: 0.1, Y: 0.2}}}},
	})
	if err := a.Publish(ctx, protocol.State, []byte(snap)); err != nil {
		t.Fatal(err)
	}
	// the sender hears its own message, like any pub/sub subscriber
	ha.expect(t, received{ch: protocol.State, data: snap})

	hb := newRecordingHandler()
	dial(t, host, "r1", hb)
	hb.expect(t, received{ch: protocol.State, data: snap})
	hb.expect(t, received{ch: connectedMark})

	event := `{"type":"clear","origin":"author"}`
	if err := a.Publish(ctx, protocol.Events, []byte(event)); err != nil {
		t.Fatal(err)
	}
	hb.expect(t, received{ch: protocol.Events, data: event})
}

func TestRelayRejectsBadState(t *testing.T) {
	s, host := startRelay(t)
	ctx := context.Background()

	ha := newRecordingHandler()
	a := dial(t, host, "r1", ha)
	ha.expect(t, received{ch: connectedMark})

	for _, bad := range []string{
		`{"v":1,"strokes":[]}`,
		encodeSnapshot(t, protocol.Snapshot{Origin: "x", Room: "elsewhere", Version: 1}),
	} {
		if err := a.Publish(ctx, protocol.State, []byte(bad)); err != nil {
			t.Fatal(err)
		}
	}
	ha.expectNothing(t)
	if _, ok := s.Hub().Retained("r1"); ok {
		t.Fatal("bad state was retained")
	}
}

func TestRelayRoomsAreIsolated(t *testing.T) {
	_, host := startRelay(t)

	ha := newRecordingHandler()
	a := dial(t, host, "r1", ha)
	ha.expect(t, received{ch: connectedMark})
	hb := newRecordingHandler()
	dial(t, host, "r2", hb)
	hb.expect(t, received{ch: connectedMark})

	if err := a.Publish(context.Background(), protocol.Events, []byte(`{"type":"clear","origin":"a"}`)); err != nil {
		t.Fatal(err)
	}
	ha.expect(t, received{ch: protocol.Events, data: `{"type":"clear","origin":"a"}`})
	hb.expectNothing(t)
}

func TestRelayHTTPEndpoints(t *testing.T) {
	s, host := startRelay(t)
	base := "http://" + host

	get := func(path string) (int, []byte, http.Header) {
		t.Helper()
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		return resp.StatusCode, body, resp.Header
	}

	if code, _, _ := get("/healthz"); code != http.StatusOK {
		t.Fatalf("healthz = %d", code)
	}
	if code, _, _ := get("/rooms/r1/state"); code != http.StatusNotFound {
		t.Fatalf("state before publish = %d", code)
	}
	if code, _, _ := get("/rooms/r1/export.pdf"); code != http.StatusNotFound {
		t.Fatalf("export before publish = %d", code)
	}

	snap := encodeSnapshot(t, protocol.Snapshot{
		Origin: "author", Version: 1,
		Strokes: []state.Stroke{{ID: "s1", Style: state.DefaultStyle(), Points: []state.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}}},
	})
	s.Hub().Broadcast("r1", []byte(`{"ch":"state","data":`+snap+`}`), []byte(snap))

	code, body, _ := get("/rooms/r1/state")
	if code != http.StatusOK || string(body) != snap {
		t.Fatalf("state = %d %s", code, body)
	}
	code, body, hdr := get("/rooms/r1/export.pdf")
	if code != http.StatusOK || hdr.Get("Content-Type") != "application/pdf" || !bytes.HasPrefix(body, []byte("%PDF-")) {
		t.Fatalf("export = %d %s", code, hdr.Get("Content-Type"))
	}

	rooms := s.Hub().Rooms()
	if len(rooms) != 1 || rooms[0].Name != "r1" || !rooms[0].Retained {
		t.Fatalf("rooms = %+v", rooms)
	}
}

func TestRelayCORS(t *testing.T) {
	_, host := startRelay(t)
	req, _ := http.NewRequest(http.MethodGet, "http://"+host+"/healthz", nil)
	req.Header.Set("Origin", "http://viewer.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
}

// startPeer wires a session peer to the relay the way the board binary does.
func startPeer(t *testing.T, host string, role session.Role) *session.Peer {
	t.Helper()
	tr := transport.NewWebSocket(transport.RelayURL(host, "room-1"))
	d := transport.NewDispatcher(tr, transport.DispatcherOptions{QueueSize: 256, MaxRetry: 5, BaseBackoff: 10 * time.Millisecond, MaxBackoff: 100 * time.Millisecond})

	opts := session.DefaultOptions()
	opts.Role = role
	opts.Room = "room-1"
	p := session.NewPeer(opts, session.Deps{Publisher: d})

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	go d.Run(ctx)
	go transport.Supervise(ctx, tr, p, transport.Reconnect{Min: 10 * time.Millisecond, Max: 20 * time.Millisecond})
	t.Cleanup(func() {
		cancel()
		<-p.Done()
	})
	return p
}

func waitConverged(t *testing.T, a, b *session.Peer) []state.Stroke {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(3 * time.Second)
	for {
		want, err := a.Strokes(ctx)
		if err != nil {
			t.Fatal(err)
		}
		got, err := b.Strokes(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(want) > 0 && state.Equal(want, got) {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("no convergence:\nwant %+v\ngot  %+v", want, got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitPeers(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		for _, r := range s.Hub().Rooms() {
			if r.Name == "room-1" && r.Peers == n {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("peers never reached %d: %+v", n, s.Hub().Rooms())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func draw(p *session.Peer, x, y float64) {
	p.Post(func(s *session.Session) {
		s.BeginStroke(x, y)
		for i := 1; i <= 5; i++ {
			s.MoveStroke(x+float64(i)*0.05, y+float64(i)*0.02)
		}
		s.EndStroke()
	})
}

func TestPeersConvergeThroughRelay(t *testing.T) {
	s, host := startRelay(t)

	author := startPeer(t, host, session.Author)
	waitPeers(t, s, 1)
	draw(author, 0.1, 0.1)

	// a late viewer catches up from the retained snapshot
	viewer := startPeer(t, host, session.Viewer)
	waitPeers(t, s, 2)
	if got := waitConverged(t, author, viewer); len(got) != 1 {
		t.Fatalf("viewer board = %+v", got)
	}

	// then follows live
	draw(author, 0.3, 0.5)
	if got := waitConverged(t, author, viewer); len(got) != 2 {
		t.Fatalf("viewer board = %+v", got)
	}

	author.Post(func(s *session.Session) { s.Undo() })
	deadline := time.Now().Add(3 * time.Second)
	for {
		got, err := viewer.Strokes(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(got) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("undo never reached viewer: %+v", got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
