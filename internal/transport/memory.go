package transport

import (
	"context"
	"sync"

	"LiveBoard/internal/protocol"
)

const memoryBuffer = 256

// MemoryBroker is an in-process pub/sub with a retained state message per
// room. Slow subscribers lose messages instead of blocking publishers.
type MemoryBroker struct {
	mu    sync.Mutex
	rooms map[string]*memoryRoom
}

type memoryRoom struct {
	retained []byte
	subs     map[chan memoryMsg]struct{}
}

type memoryMsg struct {
	ch   protocol.Channel
	data []byte
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{rooms: make(map[string]*memoryRoom)}
}

// Room returns a transport bound to one room of the broker.
func (b *MemoryBroker) Room(room string) *Memory {
	return &Memory{broker: b, room: room}
}

// Retained returns the room's last state message, if any.
func (b *MemoryBroker) Retained(room string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.rooms[room]
	if r == nil || r.retained == nil {
		return nil, false
	}
	return r.retained, true
}

func (b *MemoryBroker) room(name string) *memoryRoom {
	r := b.rooms[name]
	if r == nil {
		r = &memoryRoom{subs: make(map[chan memoryMsg]struct{})}
		b.rooms[name] = r
	}
	return r
}

func (b *MemoryBroker) publish(room string, ch protocol.Channel, data []byte) {
	data = append([]byte(nil), data...)

	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.room(room)
	if ch == protocol.State {
		r.retained = data
	}
	for sub := range r.subs {
		select {
		case sub <- memoryMsg{ch: ch, data: data}:
		default:
		}
	}
}

// subscribe registers a subscriber and returns the retained message as of
// the same instant, so nothing published afterwards can be missed.
func (b *MemoryBroker) subscribe(room string) (chan memoryMsg, []byte) {
	sub := make(chan memoryMsg, memoryBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.room(room)
	r.subs[sub] = struct{}{}
	return sub, r.retained
}

func (b *MemoryBroker) unsubscribe(room string, sub chan memoryMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r := b.rooms[room]; r != nil {
		delete(r.subs, sub)
	}
}

// Memory is one subscriber's view of a MemoryBroker room.
type Memory struct {
	broker *MemoryBroker
	room   string
}

func (m *Memory) Publish(ctx context.Context, ch protocol.Channel, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.broker.publish(m.room, ch, data)
	return nil
}

func (m *Memory) Run(ctx context.Context, h Handler) error {
	sub, retained := m.broker.subscribe(m.room)
	defer m.broker.unsubscribe(m.room, sub)

	if retained != nil {
		h.Receive(protocol.State, retained)
	}
	h.Connected()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-sub:
			h.Receive(msg.ch, msg.data)
		}
	}
}
