package state

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Origin identifies one peer session. It is generated once per session and
// stamped on everything the session publishes.
type Origin string

func NewOrigin() Origin {
	return Origin(uuid.NewString())
}

func (o Origin) IsZero() bool { return o == "" }

func NewStrokeID() string {
	return "s_" + uuid.NewString()
}

// VersionClock hands out strictly increasing snapshot versions.
type VersionClock struct {
	n uint64
}

func (c *VersionClock) Next() uint64 {
	return atomic.AddUint64(&c.n, 1)
}

func (c *VersionClock) Current() uint64 {
	return atomic.LoadUint64(&c.n)
}
