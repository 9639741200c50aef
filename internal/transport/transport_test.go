package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"LiveBoard/internal/protocol"
)

const connectedMark = protocol.Channel("connected")

type received struct {
	ch   protocol.Channel
	data string
}

// recordingHandler logs connects and messages in arrival order.
type recordingHandler struct {
	got chan received
}

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
	case <-time.After(50 * time.Millisecond):
	}
}

func runInBackground(t *testing.T, tr Transport, h Handler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx, h) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("run returned %v after cancel", err)
		}
	})
}

func TestMemoryRetainsStateForLateJoiners(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()
	author := broker.Room("r1")

	if err := author.Publish(ctx, protocol.State, []byte(`old`)); err != nil {
		t.Fatal(err)
	}
	if err := author.Publish(ctx, protocol.State, []byte(`new`)); err != nil {
		t.Fatal(err)
	}
	if err := author.Publish(ctx, protocol.Events, []byte(`missed`)); err != nil {
		t.Fatal(err)
	}

	h := newRecordingHandler()
	runInBackground(t, broker.Room("r1"), h)
	h.expect(t, received{ch: protocol.State, data: "new"})
	h.expect(t, received{ch: connectedMark})

	other := newRecordingHandler()
	runInBackground(t, broker.Room("r2"), other)
	other.expect(t, received{ch: connectedMark})

	if err := author.Publish(ctx, protocol.Events, []byte(`live`)); err != nil {
		t.Fatal(err)
	}
	h.expect(t, received{ch: protocol.Events, data: "live"})
	other.expectNothing(t)

	if got, ok := broker.Retained("r1"); !ok || string(got) != "new" {
		t.Fatalf("retained = %q, %v", got, ok)
	}
}

// flakyTransport fails Publish while failures remain, and its first two Runs.
type flakyTransport struct {
	mu        sync.Mutex
	failures  int
	published []string
	runs      atomic.Int32
}

var errFlaky = errors.New("flaky")

func (f *flakyTransport) Publish(ctx context.Context, ch protocol.Channel, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errFlaky
	}
	f.published = append(f.published, string(data))
	return nil
}

func (f *flakyTransport) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}

func (f *flakyTransport) Run(ctx context.Context, h Handler) error {
	if f.runs.Add(1) <= 2 {
		return errFlaky
	}
	h.Connected()
	<-ctx.Done()
	return nil
}

func TestDispatcherRetriesInOrder(t *testing.T) {
	tr := &flakyTransport{failures: 2}
	d := NewDispatcher(tr, DispatcherOptions{QueueSize: 8, MaxRetry: 3, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})
	d.Publish(protocol.Events, []byte("1"))
	d.Publish(protocol.State, []byte("2"))
	d.Publish(protocol.Events, []byte("3"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for len(tr.sent()) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("sent %v", tr.sent())
		}
		time.Sleep(time.Millisecond)
	}
	got := tr.sent()
	if got[0] != "1" || got[1] != "2" || got[2] != "3" {
		t.Fatalf("order = %v", got)
	}
	if d.Dropped() != 0 {
		t.Fatalf("dropped %d", d.Dropped())
	}
}

func TestDispatcherGivesUpAfterMaxRetry(t *testing.T) {
	tr := &flakyTransport{failures: 100}
	d := NewDispatcher(tr, DispatcherOptions{QueueSize: 1, MaxRetry: 1, BaseBackoff: time.Millisecond})
	d.Publish(protocol.Events, []byte("lost"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for d.Dropped() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("message never dropped")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDispatcherPublishNeverBlocks(t *testing.T) {
	d := NewDispatcher(&flakyTransport{}, DispatcherOptions{QueueSize: 2})
	for range 5 {
		d.Publish(protocol.Events, []byte("x"))
	}
	if d.Dropped() != 3 {
		t.Fatalf("dropped %d, want 3", d.Dropped())
	}
}

func TestSuperviseReconnects(t *testing.T) {
	tr := &flakyTransport{}
	h := newRecordingHandler()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Supervise(ctx, tr, h, Reconnect{Min: time.Millisecond, Max: 2 * time.Millisecond})
	}()

	h.expect(t, received{ch: connectedMark})
	if n := tr.runs.Load(); n != 3 {
		t.Fatalf("runs = %d, want 3", n)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("supervise returned %v", err)
	}
}

func TestReconnectDelayWithinBounds(t *testing.T) {
	r := DefaultReconnect()
	for range 100 {
		if d := r.delay(); d < r.Min || d >= r.Max {
			t.Fatalf("delay %v outside [%v,%v)", d, r.Min, r.Max)
		}
	}
	if d := (Reconnect{Min: time.Second}).delay(); d != time.Second {
		t.Fatalf("fixed delay = %v", d)
	}
}

func TestRelayURL(t *testing.T) {
	if got := RelayURL("10.0.0.2:8888", "team a"); got != "ws://10.0.0.2:8888/rooms/team%20a/ws" {
		t.Fatalf("url = %s", got)
	}
}

func TestKafkaTopic(t *testing.T) {
	if got := KafkaTopic("liveboard", "team a/b", protocol.State); got != "liveboard.team_a_b.state" {
		t.Fatalf("topic = %s", got)
	}
}
