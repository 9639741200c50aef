package ui

import (
	"image/color"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"LiveBoard/internal/state"
)

func TestBoardWidgetIsASurface(t *testing.T) {
	test.NewTempApp(t)
	b := NewBoardWidget()
	b.Resize(fyne.NewSize(200, 100))

	p := b.Normalize(100, 25)
	if p != (state.Point{X: 0.5, Y: 0.25}) {
		t.Fatalf("Normalize = %+v", p)
	}
	if x, y := b.Denormalize(state.Point{X: 1, Y: 1}); x != 200 || y != 100 {
		t.Fatalf("Denormalize = %v,%v", x, y)
	}
	if p := b.Normalize(-5, 500); p != (state.Point{X: 0, Y: 1}) {
		t.Fatalf("out of bounds not clamped: %+v", p)
	}

	b.RenderSegment(state.Point{}, state.Point{X: 1, Y: 1}, state.DefaultStyle())
	b.RenderSegment(state.Point{X: 1, Y: 1}, state.Point{X: 0.5, Y: 0}, state.DefaultStyle())
	if n := b.SegmentCount(); n != 2 {
		t.Fatalf("segments = %d", n)
	}
	if objs := test.WidgetRenderer(b).Objects(); len(objs) != 3 {
		t.Fatalf("renderer objects = %d, want background + 2 lines", len(objs))
	}

	b.ClearSurface()
	if n := b.SegmentCount(); n != 0 {
		t.Fatalf("segments after clear = %d", n)
	}
}

func TestBoardWidgetCapture(t *testing.T) {
	test.NewTempApp(t)
	b := NewBoardWidget()
	b.Resize(fyne.NewSize(200, 200))

	var events []string
	b.OnCaptureStart = func(x, y float64) { events = append(events, "start") }
	b.OnCaptureMove = func(x, y float64) { events = append(events, "move") }
	b.OnCaptureEnd = func() { events = append(events, "end") }

	primary := &desktop.MouseEvent{Button: desktop.MouseButtonPrimary}
	b.MouseDown(primary)
	b.Dragged(&fyne.DragEvent{})
	b.Dragged(&fyne.DragEvent{})
	b.MouseOut()
	b.MouseUp(primary)
	b.Dragged(&fyne.DragEvent{})

	want := []string{"start", "move", "move", "end"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}

	events = nil
	b.SetReadOnly(true)
	b.MouseDown(primary)
	b.Dragged(&fyne.DragEvent{})
	b.MouseUp(primary)
	if len(events) != 0 {
		t.Fatalf("read-only board captured %v", events)
	}
}

func TestToolbarStyles(t *testing.T) {
	tb := NewToolbar()
	if s := tb.ActiveStyle(); s != state.DefaultStyle() {
		t.Fatalf("default = %+v", s)
	}

	tb.SetColor(color.NRGBA{R: 255, A: 255})
	tb.SetWidth(8)
	tb.SetTool(state.ToolHighlighter)
	s := tb.ActiveStyle()
	if s.Color != "#ff0000" || s.Width != 8 || s.Opacity != highlighterOpacity || s.Tool != state.ToolHighlighter {
		t.Fatalf("highlighter = %+v", s)
	}

	tb.SetTool(state.ToolEraser)
	s = tb.ActiveStyle()
	if s.Tool != state.ToolEraser || s.Color != "#ffffff" || s.Width != eraserWidth {
		t.Fatalf("eraser = %+v", s)
	}

	tb.SetColor(color.NRGBA{B: 255, A: 255})
	if s := tb.ActiveStyle(); s.Tool != state.ToolPen || s.Color != "#0000ff" {
		t.Fatalf("color pick should return to pen: %+v", s)
	}
}

func TestStrokeColor(t *testing.T) {
	if c := strokeColor(state.Style{Color: "#102030", Opacity: 0.5}); c != (color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 128}) {
		t.Fatalf("color = %+v", c)
	}
	if c := strokeColor(state.Style{Color: "#000000", Tool: state.ToolEraser}); c != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("eraser color = %+v", c)
	}
}
