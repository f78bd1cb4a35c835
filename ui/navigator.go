// Package ui provides the desktop book preview.
package ui

import (
	"fmt"
	"strings"

	"github.com/chrisuehlinger/folio/paged"
)

// Zoom bounds of the preview.
const (
	MinZoom  = 0.25
	MaxZoom  = 4
	zoomStep = 1.25
)

// Navigator is the page and zoom state of a preview.
type Navigator struct {
	Reports []paged.PageReport
	Current int
	Zoom    float64
}

// NewNavigator creates a navigator on the first page at zoom 1.
func NewNavigator(reports []paged.PageReport) *Navigator {
	return &Navigator{Reports: reports, Zoom: 1}
}

// Pages returns the number of pages.
func (n *Navigator) Pages() int {
	return len(n.Reports)
}

// Go moves to the page at index i, clamped to the book.
func (n *Navigator) Go(i int) {
	n.Current = max(0, min(i, len(n.Reports)-1))
}

func (n *Navigator) Next() { n.Go(n.Current + 1) }
func (n *Navigator) Prev() { n.Go(n.Current - 1) }
func (n *Navigator) First() { n.Go(0) }
func (n *Navigator) Last() { n.Go(len(n.Reports) - 1) }

// ZoomIn enlarges the page, up to MaxZoom.
func (n *Navigator) ZoomIn() {
	n.Zoom = min(MaxZoom, n.Zoom*zoomStep)
}

// ZoomOut shrinks the page, down to MinZoom.
func (n *Navigator) ZoomOut() {
	n.Zoom = max(MinZoom, n.Zoom/zoomStep)
}

// Status describes the current page for the status bar.
func (n *Navigator) Status() string {
	if len(n.Reports) == 0 {
		return "No pages"
	}
	r := n.Reports[n.Current]
	var sb strings.Builder
	fmt.Fprintf(&sb, "Page %d of %d (%s)", r.Number, len(n.Reports), r.Side)
	if r.Continuation {
		sb.WriteString(", continued")
	}
	fmt.Fprintf(&sb, " | %d calls, %d footnotes", len(r.Calls), len(r.Footnotes))
	if len(r.Splits) > 0 {
		fmt.Fprintf(&sb, ", split %s", strings.Join(r.Splits, " "))
	}
	fmt.Fprintf(&sb, " | footnote area %gpx | zoom %d%%", r.ReservedHeight, int(n.Zoom*100+0.5))
	return sb.String()
}
