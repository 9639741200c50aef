package session

import (
	"LiveBoard/internal/protocol"
	"LiveBoard/internal/state"
)

// Surface is the rendering collaborator. Implementations draw in device
// space; the session only ever hands them normalized points.
type Surface interface {
	Normalize(clientX, clientY float64) state.Point
	Denormalize(p state.Point) (x, y float64)
	RenderSegment(a, b state.Point, style state.Style)
	ClearSurface()
}

// StyleSource supplies the style for a new stroke, usually a toolbar.
type StyleSource interface {
	ActiveStyle() state.Style
}

// Publisher sends an encoded message on a channel without waiting for the
// transport. Implementations must not block the caller.
type Publisher interface {
	Publish(ch protocol.Channel, data []byte)
}

type Segment struct {
	A, B  state.Point
	Style state.Style
}

// BoundsSurface is a headless Surface over fixed device bounds. It keeps the
// segments rendered since the last clear.
type BoundsSurface struct {
	Bounds   state.Bounds
	Segments []Segment
	Clears   int
}

func NewBoundsSurface(width, height float64) *BoundsSurface {
	return &BoundsSurface{Bounds: state.Bounds{Width: width, Height: height}}
}

func (s *BoundsSurface) Normalize(x, y float64) state.Point { return s.Bounds.Normalize(x, y) }

func (s *BoundsSurface) Denormalize(p state.Point) (float64, float64) {
	return s.Bounds.Denormalize(p)
}

func (s *BoundsSurface) RenderSegment(a, b state.Point, style state.Style) {
	s.Segments = append(s.Segments, Segment{A: a, B: b, Style: style})
}

func (s *BoundsSurface) ClearSurface() {
	s.Segments = nil
	s.Clears++
}

type fixedStyle state.Style

func (f fixedStyle) ActiveStyle() state.Style { return state.Style(f) }

type discard struct{}

func (discard) Publish(protocol.Channel, []byte) {}
