package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/chrisuehlinger/folio/layout"
	"github.com/chrisuehlinger/folio/paged"
	"github.com/chrisuehlinger/folio/render"
)

// Preview is a window showing the pages of a rendered book.
type Preview struct {
	app    fyne.App
	window fyne.Window

	book   *paged.Book
	engine *layout.Engine
	nav    *Navigator

	page   *fyne.Container
	scroll *container.Scroll
	status *widget.Label

	prevBtn *widget.Button
	nextBtn *widget.Button
}

// NewPreview creates a preview of book, painted with the engine that laid
// it out.
func NewPreview(title string, book *paged.Book, engine *layout.Engine) *Preview {
	a := app.New()
	w := a.NewWindow(fmt.Sprintf("folio - %s", title))
	w.Resize(fyne.NewSize(900, 1000))

	p := &Preview{
		app:    a,
		window: w,
		book:   book,
		engine: engine,
		nav:    NewNavigator(book.Report()),
	}
	p.setupUI()
	p.setupKeyboardShortcuts()
	p.show()
	return p
}

func (p *Preview) setupUI() {
	first := widget.NewButtonWithIcon("", theme.MediaSkipPreviousIcon(), p.action(p.nav.First))
	p.prevBtn = widget.NewButtonWithIcon("", theme.NavigateBackIcon(), p.action(p.nav.Prev))
	p.nextBtn = widget.NewButtonWithIcon("", theme.NavigateNextIcon(), p.action(p.nav.Next))
	last := widget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), p.action(p.nav.Last))
	zoomOut := widget.NewButtonWithIcon("", theme.ZoomOutIcon(), p.action(p.nav.ZoomOut))
	zoomIn := widget.NewButtonWithIcon("", theme.ZoomInIcon(), p.action(p.nav.ZoomIn))

	p.status = widget.NewLabel("")
	toolbar := container.NewBorder(nil, nil,
		container.NewHBox(first, p.prevBtn, p.nextBtn, last),
		container.NewHBox(zoomOut, zoomIn),
		p.status,
	)

	p.page = container.NewStack()
	p.scroll = container.NewScroll(container.NewCenter(p.page))
	p.window.SetContent(container.NewBorder(toolbar, nil, nil, nil, p.scroll))
}

func (p *Preview) setupKeyboardShortcuts() {
	shortcut := func(key fyne.KeyName, mod fyne.KeyModifier, fn func()) {
		p.window.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: key, Modifier: mod}, func(fyne.Shortcut) {
			fn()
		})
	}
	shortcut(fyne.KeyEqual, fyne.KeyModifierControl, p.action(p.nav.ZoomIn))
	shortcut(fyne.KeyMinus, fyne.KeyModifierControl, p.action(p.nav.ZoomOut))
	shortcut(fyne.KeyHome, fyne.KeyModifierControl, p.action(p.nav.First))
	shortcut(fyne.KeyEnd, fyne.KeyModifierControl, p.action(p.nav.Last))

	p.window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyRight, fyne.KeyPageDown, fyne.KeySpace:
			p.action(p.nav.Next)()
		case fyne.KeyLeft, fyne.KeyPageUp, fyne.KeyBackspace:
			p.action(p.nav.Prev)()
		}
	})
}

// action wraps a navigator change so that the page is repainted after it.
func (p *Preview) action(fn func()) func() {
	return func() {
		fn()
		p.show()
	}
}

// show paints the current page and updates the controls.
func (p *Preview) show() {
	p.status.SetText(p.nav.Status())
	if p.nav.Pages() == 0 {
		p.page.Objects = []fyne.CanvasObject{widget.NewLabel("The book has no pages")}
		p.page.Refresh()
		return
	}

	page := p.book.Pages[p.nav.Current]
	img := render.PaintPage(p.engine, page, p.nav.Zoom).ToImage()
	fyneImg := canvas.NewImageFromImage(img)
	fyneImg.FillMode = canvas.ImageFillOriginal
	fyneImg.ScaleMode = canvas.ImageScalePixels

	p.page.Objects = []fyne.CanvasObject{fyneImg}
	p.page.Refresh()
	p.scroll.Refresh()

	if p.nav.Current > 0 {
		p.prevBtn.Enable()
	} else {
		p.prevBtn.Disable()
	}
	if p.nav.Current < p.nav.Pages()-1 {
		p.nextBtn.Enable()
	} else {
		p.nextBtn.Disable()
	}
}

// Run shows the window and blocks until it is closed.
func (p *Preview) Run() {
	p.window.ShowAndRun()
}
