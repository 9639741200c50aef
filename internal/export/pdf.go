// Package export renders a board to PDF.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/jung-kurt/gofpdf"

	"LiveBoard/internal/state"
)

// pxToMM converts style widths, which are screen pixels at 96 dpi.
const pxToMM = 25.4 / 96

type Options struct {
	Title string
	// Landscape A4 unless set to "P".
	Orientation string
	Margin      float64 // mm
}

func (o Options) withDefaults() Options {
	if o.Orientation == "" {
		o.Orientation = "L"
	}
	if o.Margin <= 0 {
		o.Margin = 10
	}
	return o
}

// WritePDF draws strokes in paint order onto a single page. Normalized
// coordinates map onto the page inside the margins.
func WritePDF(w io.Writer, strokes []state.Stroke, opts Options) error {
	opts = opts.withDefaults()
	p := gofpdf.New(opts.Orientation, "mm", "A4", "")
	p.SetCreator("LiveBoard", true)
	if opts.Title != "" {
		p.SetTitle(opts.Title, true)
	}
	p.AddPage()
	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")

	pageW, pageH := p.GetPageSize()
	area := state.Bounds{
		X:      opts.Margin,
		Y:      opts.Margin,
		Width:  pageW - 2*opts.Margin,
		Height: pageH - 2*opts.Margin,
	}

	for _, st := range strokes {
		drawStroke(p, area, st)
	}
	if err := p.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return p.Output(w)
}

func drawStroke(p *gofpdf.Fpdf, area state.Bounds, st state.Stroke) {
	if len(st.Points) == 0 {
		return
	}
	r, g, b := st.Style.RGB()
	if st.Style.Tool == state.ToolEraser {
		r, g, b = 255, 255, 255
	}
	width := max(st.Style.Width*pxToMM, 0.1)

	p.SetAlpha(st.Style.Alpha(), "Normal")
	defer p.SetAlpha(1, "Normal")
	p.SetDrawColor(int(r), int(g), int(b))
	p.SetFillColor(int(r), int(g), int(b))
	p.SetLineWidth(width)

	if len(st.Points) == 1 {
		x, y := area.Denormalize(st.Points[0])
		p.Circle(x, y, width/2, "F")
		return
	}
	for i := 1; i < len(st.Points); i++ {
		x1, y1 := area.Denormalize(st.Points[i-1])
		x2, y2 := area.Denormalize(st.Points[i])
		p.Line(x1, y1, x2, y2)
	}
}

// SavePDF writes the board to a file at path.
func SavePDF(path string, strokes []state.Stroke, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WritePDF(f, strokes, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
