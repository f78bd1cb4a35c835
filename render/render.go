// Package render paints the pages of a book as raster images: the page
// box, the lines of the content column, the footnote area with its lines
// and the footnote calls.
package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/chrisuehlinger/folio/dom"
	"github.com/chrisuehlinger/folio/layout"
	"github.com/chrisuehlinger/folio/paged"
)

// Colors used for painting.
var (
	White        = color.RGBA{255, 255, 255, 255}
	MarginColor  = color.RGBA{200, 200, 200, 255}
	TextColor    = color.RGBA{90, 90, 90, 255}
	AreaColor    = color.RGBA{255, 248, 220, 255}
	NoteColor    = color.RGBA{40, 90, 170, 255}
	CallColor    = color.RGBA{200, 30, 30, 255}
	RuleColor    = color.RGBA{120, 120, 120, 255}
	OverlapColor = color.RGBA{255, 0, 255, 255}
)

// Canvas represents the rendering surface.
type Canvas struct {
	Pixels []color.RGBA
	Width  int
	Height int
}

// NewCanvas creates a new white canvas with the given dimensions.
func NewCanvas(width, height int) *Canvas {
	width, height = max(0, width), max(0, height)
	pixels := make([]color.RGBA, width*height)
	for i := range pixels {
		pixels[i] = White
	}
	return &Canvas{Pixels: pixels, Width: width, Height: height}
}

// SetPixel sets a single pixel, ignoring points outside the canvas.
func (c *Canvas) SetPixel(x, y int, col color.RGBA) {
	if x >= 0 && x < c.Width && y >= 0 && y < c.Height {
		c.Pixels[y*c.Width+x] = col
	}
}

// GetPixel returns the color at the given point, or transparent black
// outside the canvas.
func (c *Canvas) GetPixel(x, y int) color.RGBA {
	if x < 0 || x >= c.Width || y < 0 || y >= c.Height {
		return color.RGBA{}
	}
	return c.Pixels[y*c.Width+x]
}

// FillRect fills a rectangle, clipped to the canvas.
func (c *Canvas) FillRect(x, y, width, height int, col color.RGBA) {
	x0, y0 := max(0, x), max(0, y)
	x1, y1 := min(c.Width, x+width), min(c.Height, y+height)
	for py := y0; py < y1; py++ {
		row := c.Pixels[py*c.Width : (py+1)*c.Width]
		for px := x0; px < x1; px++ {
			row[px] = col
		}
	}
}

// StrokeRect draws the one pixel outline of a rectangle.
func (c *Canvas) StrokeRect(x, y, width, height int, col color.RGBA) {
	if width <= 0 || height <= 0 {
		return
	}
	c.FillRect(x, y, width, 1, col)
	c.FillRect(x, y+height-1, width, 1, col)
	c.FillRect(x, y, 1, height, col)
	c.FillRect(x+width-1, y, 1, height, col)
}

// ToImage converts the canvas to an image.RGBA.
func (c *Canvas) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	for i, px := range c.Pixels {
		img.Pix[i*4] = px.R
		img.Pix[i*4+1] = px.G
		img.Pix[i*4+2] = px.B
		img.Pix[i*4+3] = px.A
	}
	return img
}

// WritePNG encodes the canvas as PNG.
func (c *Canvas) WritePNG(w io.Writer) error {
	return png.Encode(w, c.ToImage())
}

// painter maps page coordinates to canvas pixels.
type painter struct {
	c     *Canvas
	scale float64
}

func (p painter) fill(r layout.Rect, col color.RGBA) {
	x, y, w, h := p.pixels(r)
	p.c.FillRect(x, y, w, h, col)
}

func (p painter) stroke(r layout.Rect, col color.RGBA) {
	x, y, w, h := p.pixels(r)
	p.c.StrokeRect(x, y, w, h, col)
}

func (p painter) pixels(r layout.Rect) (x, y, w, h int) {
	x = int(math.Floor(r.X * p.scale))
	y = int(math.Floor(r.Y * p.scale))
	w = max(1, int(math.Ceil(r.Right()*p.scale))-x)
	h = max(1, int(math.Ceil(r.Bottom()*p.scale))-y)
	return x, y, w, h
}

func rectOf(d *dom.DOMRect) layout.Rect {
	return layout.Rect{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height}
}

// PaintPage paints page at the given scale. Lines are drawn as bars a
// third shorter than their box so that neighbouring lines stay apart.
// Content that ends up beyond the page area is painted in OverlapColor.
func PaintPage(eng *layout.Engine, page *paged.Page, scale float64) *Canvas {
	if scale <= 0 {
		scale = 1
	}
	c := NewCanvas(int(math.Ceil(page.Width*scale)), int(math.Ceil(page.Height*scale)))
	p := painter{c: c, scale: scale}
	area := page.Frame().Area()
	p.stroke(area, MarginColor)

	if fa := page.Footnotes; fa.Element != nil && fa.ReservedHeight > 0 {
		r := rectOf(eng.BoundingRect(fa.Element.AsNode()))
		p.fill(r, AreaColor)
		p.fill(layout.Rect{X: r.X, Y: r.Y, Width: r.Width / 3, Height: 1 / scale}, RuleColor)
	}

	for _, l := range eng.Lines(page.Element) {
		bar := l.Rect
		bar.Y += bar.Height / 6
		bar.Height -= bar.Height / 3
		col := TextColor
		if l.Footnote {
			col = NoteColor
		}
		if l.Rect.X >= area.Right() || l.Rect.Bottom() > area.Bottom()+0.01 {
			col = OverlapColor
		}
		p.fill(bar, col)
	}

	for _, call := range page.Content.FindAll(dom.HasAttr("data-footnote-call")) {
		r := rectOf(eng.BoundingRect(call.AsNode()))
		r.Width = max(r.Width, 2)
		p.fill(r, CallColor)
	}
	return c
}

// PaintBook paints every page of book.
func PaintBook(eng *layout.Engine, book *paged.Book, scale float64) []*Canvas {
	canvases := make([]*Canvas, 0, len(book.Pages))
	for _, page := range book.Pages {
		canvases = append(canvases, PaintPage(eng, page, scale))
	}
	return canvases
}
