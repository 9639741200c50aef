package relay

import (
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"

	"LiveBoard/internal/protocol"
	"LiveBoard/internal/transport"
)

const sendBuffer = 64

type conn struct {
	ws   *websocket.Conn
	hub  *Hub
	room string
	send chan []byte
	log  *slog.Logger
}

func newConn(ws *websocket.Conn, hub *Hub, room string, log *slog.Logger) *conn {
	return &conn{
		ws:   ws,
		hub:  hub,
		room: room,
		send: make(chan []byte, sendBuffer),
		log:  log.With("room", room, "remote", ws.RemoteAddr().String()),
	}
}

// enqueue never blocks; a peer that can't keep up misses frames and heals
// from the next snapshot.
func (c *conn) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.log.Debug("send queue full, dropping frame")
	}
}

// serve runs until the peer goes away.
func (c *conn) serve() {
	c.hub.Join(c.room, c)
	c.log.Info("peer joined")
	go c.writeLoop()

	c.readLoop()
	c.hub.Leave(c.room, c)
	close(c.send)
	c.log.Info("peer left")
}

func (c *conn) readLoop() {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			c.log.Debug("read failed", "err", err)
			return
		}
		frame, state, ok := c.check(raw)
		if !ok {
			continue
		}
		c.hub.Broadcast(c.room, frame, state)
	}
}

// check validates a peer frame. Events pass through untouched; state frames
// must carry a snapshot for this room, since they get retained.
func (c *conn) check(raw []byte) (frame []byte, state json.RawMessage, ok bool) {
	var f transport.Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		c.log.Debug("dropping unreadable frame", "err", err)
		return nil, nil, false
	}
	switch protocol.Channel(f.Ch) {
	case protocol.Events:
		return raw, nil, true
	case protocol.State:
		snap, err := protocol.DecodeSnapshot(f.Data)
		if err != nil {
			c.log.Debug("dropping bad snapshot", "err", err)
			return nil, nil, false
		}
		if snap.Room != "" && snap.Room != c.room {
			c.log.Debug("dropping snapshot for other room", "snapshot_room", snap.Room)
			return nil, nil, false
		}
		return raw, f.Data, true
	default:
		c.log.Debug("dropping frame on unknown channel", "channel", f.Ch)
		return nil, nil, false
	}
}

func (c *conn) writeLoop() {
	defer c.ws.Close()
	for frame := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.log.Debug("write failed", "err", err)
			c.ws.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
