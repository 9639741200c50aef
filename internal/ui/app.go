// Package ui is the fyne desktop front end: the board surface, the toolbar
// and the window around them.
package ui

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type App struct {
	app    fyne.App
	window fyne.Window

	Board *BoardWidget
	Tools *Toolbar
}

// NewApp creates the fyne app and its widgets. Call it on the main goroutine.
func NewApp(title string) *App {
	a := app.New()
	w := a.NewWindow(title)
	w.Resize(fyne.NewSize(1024, 768))
	return &App{app: a, window: w, Board: NewBoardWidget(), Tools: NewToolbar()}
}

// Run shows the window and blocks until it is closed or ctx is done.
// shareLink, when set, is shown so the host can hand it out.
func (a *App) Run(ctx context.Context, canDraw bool, shareLink string) {
	a.Board.SetReadOnly(!canDraw)

	bottom := []fyne.CanvasObject{a.Board.statusBar}
	if shareLink != "" {
		link := widget.NewEntry()
		link.SetText(shareLink)
		copyBtn := widget.NewButton("Copy link", func() {
			a.app.Clipboard().SetContent(shareLink)
			a.Board.SetStatus("Link copied")
		})
		bottom = append(bottom, container.NewBorder(nil, nil, widget.NewLabel("Share:"), copyBtn, link))
	}

	content := container.NewBorder(a.Tools.Object(canDraw), container.NewVBox(bottom...), nil, nil, a.Board)
	a.window.SetContent(content)

	stop := context.AfterFunc(ctx, func() { fyne.Do(a.app.Quit) })
	defer stop()
	a.window.ShowAndRun()
}
