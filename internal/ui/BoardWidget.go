package ui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"LiveBoard/internal/session"
	"LiveBoard/internal/state"
)

// BoardWidget is the drawing surface. It keeps rendered segments in
// normalized space so a resize redraws the board at the new scale, and it
// reports pointer input through the capture callbacks.
//
// Surface methods may be called from any goroutine.
type BoardWidget struct {
	widget.BaseWidget

	mu       sync.RWMutex
	segments []session.Segment
	bounds   state.Bounds

	capturing bool
	readOnly  bool

	OnCaptureStart func(x, y float64)
	OnCaptureMove  func(x, y float64)
	OnCaptureEnd   func()

	statusBar *widget.Label
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ session.Surface = (*BoardWidget)(nil)

func NewBoardWidget() *BoardWidget {
	b := &BoardWidget{statusBar: widget.NewLabel("Connecting...")}
	b.ExtendBaseWidget(b)
	return b
}

// SetReadOnly stops the widget from reporting input.
func (b *BoardWidget) SetReadOnly(ro bool) { b.readOnly = ro }

func (b *BoardWidget) SetStatus(text string) {
	fyne.Do(func() { b.statusBar.SetText(text) })
}

func (b *BoardWidget) Resize(size fyne.Size) {
	b.mu.Lock()
	b.bounds = state.Bounds{Width: float64(size.Width), Height: float64(size.Height)}
	b.mu.Unlock()
	b.BaseWidget.Resize(size)
}

func (b *BoardWidget) Normalize(x, y float64) state.Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bounds.Normalize(x, y)
}

func (b *BoardWidget) Denormalize(p state.Point) (float64, float64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bounds.Denormalize(p)
}

func (b *BoardWidget) RenderSegment(p1, p2 state.Point, style state.Style) {
	b.mu.Lock()
	b.segments = append(b.segments, session.Segment{A: p1, B: p2, Style: style})
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

func (b *BoardWidget) ClearSurface() {
	b.mu.Lock()
	b.segments = nil
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

// SegmentCount is the number of segments currently on screen.
func (b *BoardWidget) SegmentCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.segments)
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if b.readOnly || e.Button != desktop.MouseButtonPrimary {
		return
	}
	b.capturing = true
	if b.OnCaptureStart != nil {
		b.OnCaptureStart(float64(e.Position.X), float64(e.Position.Y))
	}
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	if !b.capturing {
		return
	}
	if b.OnCaptureMove != nil {
		b.OnCaptureMove(float64(e.Position.X), float64(e.Position.Y))
	}
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		b.endCapture()
	}
}

func (b *BoardWidget) DragEnd() { b.endCapture() }

// leaving the board ends the stroke
func (b *BoardWidget) MouseOut() { b.endCapture() }

func (b *BoardWidget) MouseIn(*desktop.MouseEvent)    {}
func (b *BoardWidget) MouseMoved(*desktop.MouseEvent) {}

func (b *BoardWidget) endCapture() {
	if !b.capturing {
		return
	}
	b.capturing = false
	if b.OnCaptureEnd != nil {
		b.OnCaptureEnd()
	}
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: b}
	r.background = canvas.NewRectangle(color.White)
	return r
}

type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	b := r.board
	b.mu.RLock()
	defer b.mu.RUnlock()

	objects := make([]fyne.CanvasObject, 0, len(b.segments)+1)
	objects = append(objects, r.background)
	for _, seg := range b.segments {
		line := canvas.NewLine(strokeColor(seg.Style))
		line.StrokeWidth = float32(seg.Style.Width)
		x1, y1 := b.bounds.Denormalize(seg.A)
		x2, y2 := b.bounds.Denormalize(seg.B)
		line.Position1 = fyne.NewPos(float32(x1), float32(y1))
		line.Position2 = fyne.NewPos(float32(x2), float32(y2))
		objects = append(objects, line)
	}
	return objects
}

func (r *boardWidgetRenderer) Refresh() {
	canvas.Refresh(r.board)
}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *boardWidgetRenderer) Destroy() {}

// strokeColor maps a style onto the white board: erasers paint background,
// highlighters keep their opacity.
func strokeColor(s state.Style) color.NRGBA {
	if s.Tool == state.ToolEraser {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	red, green, blue := s.RGB()
	return color.NRGBA{R: red, G: green, B: blue, A: uint8(s.Alpha()*255 + 0.5)}
}
