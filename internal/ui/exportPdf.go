package ui

import (
	"errors"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"LiveBoard/internal/export"
	"LiveBoard/internal/state"
)

// ExportPDF writes strokes to a file the user picked.
func ExportPDF(writer fyne.URIWriteCloser, strokes []state.Stroke, title string) (err error) {
	defer func() {
		err = errors.Join(err, writer.Close())
	}()
	if err := export.WritePDF(writer, strokes, export.Options{Title: title}); err != nil {
		return fmt.Errorf("export %s: %w", writer.URI().Name(), err)
	}
	return nil
}

// ShowExport asks for a destination and exports the board there. strokes is
// called on the UI goroutine before the dialog opens.
func (a *App) ShowExport(title string, strokes func() ([]state.Stroke, error)) {
	snapshot, err := strokes()
	if err != nil {
		dialog.ShowError(err, a.window)
		return
	}
	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if writer == nil {
			return // cancelled
		}
		if err := ExportPDF(writer, snapshot, title); err != nil {
			slog.Error("pdf export failed", "component", "ui", "err", err)
			dialog.ShowError(err, a.window)
			return
		}
		a.Board.SetStatus(fmt.Sprintf("Exported %d strokes", len(snapshot)))
	}, a.window)
	save.SetFileName(title + ".pdf")
	save.SetFilter(storage.NewExtensionFileFilter([]string{".pdf"}))
	save.Show()
}
