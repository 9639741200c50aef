// Package transport moves encoded board messages between peers of a room.
//
// Every implementation carries two channels: events, which are best effort,
// and state, whose last message is retained and handed to each new
// subscriber before it is told it is connected.
package transport

import (
	"context"
	"errors"

	"LiveBoard/internal/protocol"
)

var (
	ErrNotConnected = errors.New("transport: not connected")
	ErrClosed       = errors.New("transport: closed")
)

// Handler receives inbound traffic. Calls come from the transport's own
// goroutine and must not block for long.
type Handler interface {
	// Connected is called once per successful (re)connect, after any
	// retained state has been delivered.
	Connected()
	Receive(ch protocol.Channel, data []byte)
}

type Transport interface {
	Publish(ctx context.Context, ch protocol.Channel, data []byte) error
	// Run connects and pumps inbound messages to h until ctx is done
	// (returning nil) or the connection fails.
	Run(ctx context.Context, h Handler) error
}
