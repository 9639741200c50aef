package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"LiveBoard/internal/protocol"
)

// FrameReady is sent by the relay once the retained state has gone out.
const FrameReady = "ready"

// Frame is the relay wire format: one JSON text message per frame.
type Frame struct {
	Ch   string          `json:"ch"`
	Data json.RawMessage `json:"data,omitempty"`
}

// RelayURL is the websocket endpoint of room on a relay at hostport.
func RelayURL(hostport, room string) string {
	u := url.URL{Scheme: "ws", Host: hostport, Path: "/rooms/" + room + "/ws"}
	return u.String()
}

// WebSocket is a client of the relay.
type WebSocket struct {
	url    string
	dialer *websocket.Dialer
	log    *slog.Logger

	mu   sync.Mutex // guards conn and serializes writes
	conn *websocket.Conn
}

func NewWebSocket(rawURL string) *WebSocket {
	return &WebSocket{
		url:    rawURL,
		dialer: websocket.DefaultDialer,
		log:    slog.Default().With("component", "ws-client"),
	}
}

func (w *WebSocket) Publish(ctx context.Context, ch protocol.Channel, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return ErrNotConnected
	}
	if err := w.conn.WriteJSON(Frame{Ch: string(ch), Data: data}); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (w *WebSocket) Run(ctx context.Context, h Handler) error {
	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.url, err)
	}
	w.log.Info("connected", "url", w.url)

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.conn = nil
		w.mu.Unlock()
		conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			w.log.Debug("dropping unreadable frame", "err", err)
			continue
		}
		switch ch := protocol.Channel(f.Ch); {
		case f.Ch == FrameReady:
			h.Connected()
		case ch.Valid():
			h.Receive(ch, f.Data)
		default:
			w.log.Debug("dropping frame on unknown channel", "channel", f.Ch)
		}
	}
}
