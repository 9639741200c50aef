package state

import "math"

// Bounds is the device-space rectangle a surface currently occupies.
type Bounds struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Normalize maps a device coordinate into [0,1]x[0,1], clamping anything
// outside the bounds onto the edge. An empty bounds maps to the origin.
func (b Bounds) Normalize(x, y float64) Point {
	if b.Width <= 0 || b.Height <= 0 {
		return Point{}
	}
	return Point{
		X: clamp01((x - b.X) / b.Width),
		Y: clamp01((y - b.Y) / b.Height),
	}
}

func (b Bounds) Denormalize(p Point) (x, y float64) {
	return b.X + p.X*b.Width, b.Y + p.Y*b.Height
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Dist2 is the squared euclidean distance between a and b.
func Dist2(a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	return dx*dx + dy*dy
}

// Interpolate returns the points to append when moving from a to b so that
// no step is longer than maxStep. The result excludes a and always ends
// exactly on b. maxStep <= 0 disables interpolation.
func Interpolate(a, b Point, maxStep float64) []Point {
	d := math.Sqrt(Dist2(a, b))
	if maxStep <= 0 || d <= maxStep {
		return []Point{b}
	}
	n := int(math.Ceil(d / maxStep))
	out := make([]Point, 0, n)
	for i := 1; i < n; i++ {
		t := float64(i) / float64(n)
		out = append(out, Point{
			X: a.X + (b.X-a.X)*t,
			Y: a.Y + (b.Y-a.Y)*t,
		})
	}
	return append(out, b)
}

// Valid reports whether p holds finite coordinates.
func (p Point) Valid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) &&
		!math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
