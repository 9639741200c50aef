package state

import (
	"strconv"
	"strings"
)

// Point is a position normalized to [0,1] against the surface bounds.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Tool string

const (
	ToolPen         Tool = "pen"
	ToolHighlighter Tool = "highlighter"
	ToolEraser      Tool = "eraser"
)

// Style is fixed for the lifetime of a stroke.
type Style struct {
	Color   string  `json:"color"`             // "#rrggbb"
	Width   float64 `json:"width"`             // device-independent units
	Opacity float64 `json:"opacity,omitempty"` // 0 means fully opaque
	Tool    Tool    `json:"tool,omitempty"`
}

// DefaultStyle is the board's starting pen.
func DefaultStyle() Style {
	return Style{Color: "#000000", Width: 3, Tool: ToolPen}
}

// RGB parses Color, falling back to black for anything that is not #rrggbb.
func (s Style) RGB() (r, g, b uint8) {
	hex := strings.TrimPrefix(s.Color, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}

// Alpha returns the effective opacity in (0,1].
func (s Style) Alpha() float64 {
	if s.Opacity <= 0 || s.Opacity > 1 {
		return 1
	}
	return s.Opacity
}

type Stroke struct {
	ID     string  `json:"id"`
	Style  Style   `json:"style"`
	Points []Point `json:"points"`
}

// Clone returns a deep copy so the caller can't alias board internals.
func (s Stroke) Clone() Stroke {
	out := s
	out.Points = make([]Point, len(s.Points))
	copy(out.Points, s.Points)
	return out
}

// Equal compares two stroke lists by id, style and points.
func Equal(a, b []Stroke) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Style != b[i].Style {
			return false
		}
		if len(a[i].Points) != len(b[i].Points) {
			return false
		}
		for j := range a[i].Points {
			if a[i].Points[j] != b[i].Points[j] {
				return false
			}
		}
	}
	return true
}
