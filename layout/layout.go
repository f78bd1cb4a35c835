// Package layout computes box geometry for paginated pages. Each page is
// laid out on its own: a content column filled by the main flow and a
// footnote area at the bottom of the page area whose height is reserved by
// the footnote handler.
package layout

import (
	"github.com/chrisuehlinger/folio/dom"
)

// Class names of the page template elements.
const (
	ClassPage                 = "folio_page"
	ClassArea                 = "folio_area"
	ClassPageContent          = "folio_page_content"
	ClassFootnoteArea         = "folio_footnote_area"
	ClassFootnoteContent      = "folio_footnote_content"
	ClassFootnoteInnerContent = "folio_footnote_inner_content"
)

// Dimensions holds the box model of a laid out element.
type Dimensions struct {
	// Position of the content area relative to the page
	Content Rect

	Padding EdgeSizes
	Border  EdgeSizes
	Margin  EdgeSizes
}

// PaddingBox returns the area covered by the content area plus its padding.
func (d Dimensions) PaddingBox() Rect {
	return d.Content.ExpandedBy(d.Padding)
}

// BorderBox returns the area covered by the content area plus padding and borders.
func (d Dimensions) BorderBox() Rect {
	return d.PaddingBox().ExpandedBy(d.Border)
}

// MarginBox returns the area covered by the content area plus padding, borders, and margin.
func (d Dimensions) MarginBox() Rect {
	return d.BorderBox().ExpandedBy(d.Margin)
}

// Geometry converts the dimensions to element geometry. The scroll height
// defaults to the content height.
func (d Dimensions) Geometry() dom.ElementGeometry {
	b := d.BorderBox()
	return dom.ElementGeometry{
		X: b.X, Y: b.Y, Width: b.Width, Height: b.Height,
		PaddingTop: d.Padding.Top, PaddingRight: d.Padding.Right,
		PaddingBottom: d.Padding.Bottom, PaddingLeft: d.Padding.Left,
		BorderTop: d.Border.Top, BorderRight: d.Border.Right,
		BorderBottom: d.Border.Bottom, BorderLeft: d.Border.Left,
		MarginTop: d.Margin.Top, MarginRight: d.Margin.Right,
		MarginBottom: d.Margin.Bottom, MarginLeft: d.Margin.Left,
		ScrollHeight: d.Content.Height,
	}
}

// Rect represents a rectangular area.
type Rect struct {
	X, Y, Width, Height float64
}

// Right returns the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Union returns the smallest rect containing both r and other.
func (r Rect) Union(other Rect) Rect {
	x := min(r.X, other.X)
	y := min(r.Y, other.Y)
	return Rect{
		X:      x,
		Y:      y,
		Width:  max(r.Right(), other.Right()) - x,
		Height: max(r.Bottom(), other.Bottom()) - y,
	}
}

// ExpandedBy returns the rect grown outward by the given edges.
func (r Rect) ExpandedBy(edge EdgeSizes) Rect {
	return Rect{
		X:      r.X - edge.Left,
		Y:      r.Y - edge.Top,
		Width:  r.Width + edge.Left + edge.Right,
		Height: r.Height + edge.Top + edge.Bottom,
	}
}

// DOMRect converts the rect.
func (r Rect) DOMRect() *dom.DOMRect {
	return dom.NewDOMRect(r.X, r.Y, r.Width, r.Height)
}

// EdgeSizes represents the sizes of edges (top, right, bottom, left).
type EdgeSizes struct {
	Top, Right, Bottom, Left float64
}

// Horizontal returns left + right.
func (e EdgeSizes) Horizontal() float64 { return e.Left + e.Right }

// Vertical returns top + bottom.
func (e EdgeSizes) Vertical() float64 { return e.Top + e.Bottom }

// Frame describes the page box a page element is laid out in.
type Frame struct {
	Width, Height float64
	Margin        EdgeSizes
	// Reserved is the height of the footnote area at the bottom of the
	// page area.
	Reserved float64
	// Number is the page number used for counter(page).
	Number int
}

// Area returns the page area inside the margins.
func (f Frame) Area() Rect {
	return Rect{
		X:      f.Margin.Left,
		Y:      f.Margin.Top,
		Width:  max(0, f.Width-f.Margin.Horizontal()),
		Height: max(0, f.Height-f.Margin.Vertical()),
	}
}

// FrameSource supplies the frame of a page element.
type FrameSource interface {
	Frame(page *dom.Element) (Frame, bool)
}
