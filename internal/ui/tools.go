package ui

import (
	"fmt"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"LiveBoard/internal/state"
)

const (
	highlighterOpacity = 0.4
	eraserWidth        = 20
)

var palette = []color.NRGBA{
	{A: 255},                 // black
	{R: 255, A: 255},         // red
	{G: 160, A: 255},         // green
	{B: 255, A: 255},         // blue
	{R: 255, G: 200, A: 255}, // yellow
}

type colorSwatch struct {
	widget.BaseWidget
	Color    color.NRGBA
	OnTapped func(color.NRGBA)
}

func newColorSwatch(c color.NRGBA, tapped func(color.NRGBA)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(32, 32))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

// Toolbar holds the pen the next stroke starts with. ActiveStyle is safe to
// call from the session goroutine.
type Toolbar struct {
	mu    sync.Mutex
	color color.NRGBA
	width float64
	tool  state.Tool

	OnClear  func()
	OnUndo   func()
	OnExport func()
}

func NewToolbar() *Toolbar {
	def := state.DefaultStyle()
	return &Toolbar{color: palette[0], width: def.Width, tool: def.Tool}
}

func (t *Toolbar) ActiveStyle() state.Style {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := state.Style{Color: hexColor(t.color), Width: t.width, Tool: t.tool}
	switch t.tool {
	case state.ToolHighlighter:
		s.Opacity = highlighterOpacity
	case state.ToolEraser:
		s.Color = "#ffffff"
		s.Width = max(t.width, eraserWidth)
	}
	return s
}

func (t *Toolbar) SetTool(tool state.Tool) {
	t.mu.Lock()
	t.tool = tool
	t.mu.Unlock()
}

func (t *Toolbar) SetColor(c color.NRGBA) {
	t.mu.Lock()
	t.color = c
	// picking a color means drawing again
	if t.tool == state.ToolEraser {
		t.tool = state.ToolPen
	}
	t.mu.Unlock()
}

func (t *Toolbar) SetWidth(w float64) {
	t.mu.Lock()
	t.width = w
	t.mu.Unlock()
}

func hexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func call(fn *func()) func() {
	return func() {
		if *fn != nil {
			(*fn)()
		}
	}
}

// Object builds the toolbar row. Viewers only get export.
func (t *Toolbar) Object(canDraw bool) fyne.CanvasObject {
	exportBar := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentSaveIcon(), call(&t.OnExport)),
	)
	if !canDraw {
		return container.NewHBox(layout.NewSpacer(), widget.NewLabel("Export:"), exportBar)
	}

	tb := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), func() { t.SetTool(state.ToolPen) }),
		widget.NewToolbarAction(theme.ColorPaletteIcon(), func() { t.SetTool(state.ToolHighlighter) }),
		widget.NewToolbarAction(theme.ContentClearIcon(), func() { t.SetTool(state.ToolEraser) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), call(&t.OnUndo)),
		widget.NewToolbarAction(theme.DeleteIcon(), call(&t.OnClear)),
	)

	swatches := make([]fyne.CanvasObject, 0, len(palette))
	for _, c := range palette {
		swatches = append(swatches, newColorSwatch(c, t.SetColor))
	}

	strokeSlider := widget.NewSlider(1.0, 50.0)
	strokeSlider.SetValue(t.ActiveStyle().Width)
	strokeSlider.OnChanged = t.SetWidth
	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), strokeSlider)

	return container.NewHBox(
		widget.NewLabel("Tool:"),
		tb,
		widget.NewSeparator(),
		widget.NewLabel("Color:"),
		container.NewHBox(swatches...),
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		sliderContainer,
		layout.NewSpacer(),
		exportBar,
	)
}
