// Package relay is the websocket broker peers connect to when no external
// pub/sub is configured. It fans frames out per room and keeps the last state
// frame of each room for late joiners.
package relay

import (
	"encoding/json"
	"sort"
	"sync"

	"LiveBoard/internal/transport"
)

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

type room struct {
	conns map[*conn]struct{}
	// last state frame as sent on the wire, and its payload
	retainedFrame []byte
	retainedData  json.RawMessage
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

var readyFrame, _ = json.Marshal(transport.Frame{Ch: transport.FrameReady})

// Join adds c to a room. The retained frame and the ready marker are queued
// on c before it can see any live traffic.
func (h *Hub) Join(name string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.rooms[name]
	if r == nil {
		r = &room{conns: make(map[*conn]struct{})}
		h.rooms[name] = r
	}
	if r.retainedFrame != nil {
		c.enqueue(r.retainedFrame)
	}
	c.enqueue(readyFrame)
	r.conns[c] = struct{}{}
}

// Leave removes c. Empty rooms keep their retained state.
func (h *Hub) Leave(name string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r := h.rooms[name]; r != nil {
		delete(r.conns, c)
	}
}

// Broadcast sends frame to every connection in the room, the sender
// included. State frames replace the room's retained frame. Frames are
// queued under the lock so a leaving connection never sees a send after its
// queue is closed.
func (h *Hub) Broadcast(name string, frame []byte, state json.RawMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.rooms[name]
	if r == nil {
		r = &room{conns: make(map[*conn]struct{})}
		h.rooms[name] = r
	}
	if state != nil {
		r.retainedFrame = frame
		r.retainedData = state
	}
	for c := range r.conns {
		c.enqueue(frame)
	}
}

// Retained returns the payload of the room's last state frame.
func (h *Hub) Retained(name string) (json.RawMessage, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r := h.rooms[name]
	if r == nil || r.retainedData == nil {
		return nil, false
	}
	return r.retainedData, true
}

type RoomInfo struct {
	Name     string `json:"name"`
	Peers    int    `json:"peers"`
	Retained bool   `json:"retained"`
}

func (h *Hub) Rooms() []RoomInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]RoomInfo, 0, len(h.rooms))
	for name, r := range h.rooms {
		out = append(out, RoomInfo{Name: name, Peers: len(r.conns), Retained: r.retainedFrame != nil})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
