package layout

import (
	"github.com/chrisuehlinger/folio/css"
	"github.com/chrisuehlinger/folio/dom"
)

// pageLayout is the cached result of laying out one page element.
type pageLayout struct {
	version uint64
	frame   Frame
	flows   map[*dom.Element]*flow
}

// Engine lays out page elements on demand and answers geometry queries
// for nodes inside them. Layouts are cached per page and recomputed when
// the document changes or the frame of the page does.
type Engine struct {
	styles *css.Resolver
	frames FrameSource
	pages  map[*dom.Element]*pageLayout
}

// NewEngine creates an engine using the given style resolver and frames.
func NewEngine(styles *css.Resolver, frames FrameSource) *Engine {
	return &Engine{
		styles: styles,
		frames: frames,
		pages:  make(map[*dom.Element]*pageLayout),
	}
}

// SetFrameSource replaces the frame source and drops cached layouts.
func (e *Engine) SetFrameSource(frames FrameSource) {
	e.frames = frames
	e.Invalidate()
}

// Invalidate drops every cached layout.
func (e *Engine) Invalidate() {
	clear(e.pages)
}

// Forget drops the cached layout of a page element.
func (e *Engine) Forget(page *dom.Element) {
	delete(e.pages, page)
}

func pageOf(n *dom.Node) *dom.Element {
	for c := n; c != nil; c = c.ParentNode() {
		if el := c.AsElement(); el != nil && el.HasClass(ClassPage) {
			return el
		}
	}
	return nil
}

// layout lays out the page containing n, reusing the cached layout when it
// is current. It returns nil when n is not inside a known page.
func (e *Engine) layout(n *dom.Node) *pageLayout {
	page := pageOf(n)
	if page == nil || e.frames == nil {
		return nil
	}
	fr, ok := e.frames.Frame(page)
	if !ok {
		return nil
	}
	version := page.AsNode().OwnerDocument().Version()
	if pl, ok := e.pages[page]; ok && pl.version == version && pl.frame == fr {
		return pl
	}
	pl := e.layoutPage(page, fr)
	pl.version = version
	e.pages[page] = pl
	return pl
}

// LayoutPage lays out a page element and returns its page box.
func (e *Engine) LayoutPage(page *dom.Element) (Rect, bool) {
	if e.layout(page.AsNode()) == nil {
		return Rect{}, false
	}
	g := page.Geometry()
	return Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}, true
}

func (e *Engine) layoutPage(page *dom.Element, fr Frame) *pageLayout {
	p := &pass{engine: e, frame: fr, styles: make(map[*dom.Element]*boxStyle)}
	pl := &pageLayout{frame: fr, flows: make(map[*dom.Element]*flow)}

	clearTree(page)
	page.SetGeometry(dom.ElementGeometry{Width: fr.Width, Height: fr.Height, ScrollHeight: fr.Height})
	pageStyle := p.style(page, nil)

	area := page.Find(dom.ByClass(ClassArea))
	if area == nil {
		return pl
	}
	areaRect := fr.Area()
	reserved := min(max(0, fr.Reserved), areaRect.Height)
	area.SetGeometry(Dimensions{Content: areaRect}.Geometry())
	areaStyle := p.style(area, pageStyle)

	if content := area.Find(dom.ByClass(ClassPageContent)); content != nil {
		rect := Rect{X: areaRect.X, Y: areaRect.Y, Width: areaRect.Width, Height: areaRect.Height - reserved}
		content.SetGeometry(Dimensions{Content: rect}.Geometry())
		st := p.style(content, areaStyle)
		f := newFlow(content, rect.X, rect.Y, rect.Width, fr.Margin.Horizontal(), rect.Height)
		p.layoutChildren(f, content, st, 0, rect.Width)
		pl.flows[content] = f
	}

	footnoteArea := area.Find(dom.ByClass(ClassFootnoteArea))
	if footnoteArea == nil {
		return pl
	}
	faRect := Rect{X: areaRect.X, Y: areaRect.Bottom() - reserved, Width: areaRect.Width, Height: reserved}
	footnoteArea.SetGeometry(Dimensions{Content: faRect}.Geometry())
	faStyle := p.style(footnoteArea, areaStyle)

	noteContent := footnoteArea.Find(dom.ByClass(ClassFootnoteContent))
	if noteContent == nil {
		return pl
	}
	ncStyle := p.style(noteContent, faStyle)
	borderW := max(0, faRect.Width-ncStyle.margin.Horizontal())
	borderH := max(0, faRect.Height-ncStyle.margin.Vertical())
	if ncStyle.hasHeight {
		borderH = ncStyle.height + ncStyle.border.Vertical() + ncStyle.padding.Vertical()
	}
	ncContent := Rect{
		X:      faRect.X + ncStyle.margin.Left + ncStyle.border.Left + ncStyle.padding.Left,
		Y:      faRect.Y + ncStyle.margin.Top + ncStyle.border.Top + ncStyle.padding.Top,
		Width:  max(0, borderW-ncStyle.border.Horizontal()-ncStyle.padding.Horizontal()),
		Height: max(0, borderH-ncStyle.border.Vertical()-ncStyle.padding.Vertical()),
	}
	ncGeometry := ncStyle.dimensions(ncContent).Geometry()

	inner := noteContent.Find(dom.ByClass(ClassFootnoteInnerContent))
	if inner == nil {
		ncGeometry.ScrollHeight = 0
		noteContent.SetGeometry(ncGeometry)
		return pl
	}
	ist := p.style(inner, ncStyle)
	innerW := max(0, ncContent.Width-ist.horizontalEdges())
	colH := max(0, ncContent.Height-ist.margin.Vertical()-ist.border.Vertical()-ist.padding.Vertical())
	if ist.hasHeight {
		colH = ist.height
	}
	colW := innerW
	if ist.hasColumnWidth {
		colW = ist.columnWidth
	}
	innerContent := Rect{
		X:     ncContent.X + ist.margin.Left + ist.border.Left + ist.padding.Left,
		Y:     ncContent.Y + ist.margin.Top + ist.border.Top + ist.padding.Top,
		Width: innerW,
	}
	f := newFlow(inner, innerContent.X, innerContent.Y, colW, ist.columnGap, colH)
	p.layoutChildren(f, inner, ist, 0, colW)
	pl.flows[inner] = f

	innerContent.Height = f.natural
	if ist.hasHeight {
		innerContent.Height = ist.height
	}
	innerGeometry := ist.dimensions(innerContent).Geometry()
	innerGeometry.ScrollHeight = f.natural
	inner.SetGeometry(innerGeometry)

	ncGeometry.ScrollHeight = f.natural + ist.margin.Vertical() + ist.border.Vertical() + ist.padding.Vertical()
	noteContent.SetGeometry(ncGeometry)
	return pl
}

// BoundingRect returns the border box of n relative to its page. Nodes
// that are not laid out report an empty rect at the origin.
func (e *Engine) BoundingRect(n *dom.Node) *dom.DOMRect {
	el := n.AsElement()
	if el == nil || e.layout(n) == nil {
		return dom.NewDOMRect(0, 0, 0, 0)
	}
	return el.GetBoundingClientRect()
}

// Geometry returns the box model of el.
func (e *Engine) Geometry(el *dom.Element) dom.ElementGeometry {
	if e.layout(el.AsNode()) == nil {
		return dom.ElementGeometry{}
	}
	return el.Geometry()
}

// FindOverflow returns the range from the first piece of content under
// root that falls outside bounds to the end of root, or nil when all of it
// fits. Content that starts at or beyond the right edge of bounds has been
// moved to a following column and counts as overflow. The first piece of
// content never overflows.
func (e *Engine) FindOverflow(root *dom.Element, bounds *dom.DOMRect) *dom.Range {
	pl := e.layout(root.AsNode())
	if pl == nil {
		return nil
	}
	items := pl.itemsUnder(root)
	for i, it := range items {
		if i == 0 {
			continue
		}
		if it.rect.X < bounds.Right()-epsilon && it.rect.Bottom() <= bounds.Bottom()+epsilon {
			continue
		}
		node, offset := normalizeBoundary(it.node, it.offset, root.AsNode())
		r := root.AsNode().OwnerDocument().CreateRange()
		if err := r.SetStart(node, offset); err != nil {
			return nil
		}
		if err := r.SetEnd(root.AsNode(), root.AsNode().ChildCount()); err != nil {
			return nil
		}
		return r
	}
	return nil
}

// itemsUnder returns the items of the flow rooted at root, or the items of
// the enclosing flow that lie inside root.
func (pl *pageLayout) itemsUnder(root *dom.Element) []item {
	if f, ok := pl.flows[root]; ok {
		return f.items
	}
	for _, f := range pl.flows {
		if !f.root.AsNode().Contains(root.AsNode()) {
			continue
		}
		var items []item
		for _, it := range f.items {
			if root.AsNode().Contains(it.node) {
				items = append(items, it)
			}
		}
		return items
	}
	return nil
}

// normalizeBoundary moves a boundary point at the start of a node up to
// the position before that node, stopping at root.
func normalizeBoundary(node *dom.Node, offset int, root *dom.Node) (*dom.Node, int) {
	if node.NodeType() == dom.TextNode && offset == 0 && node != root && node.ParentNode() != nil {
		node, offset = node.ParentNode(), node.Index()
	}
	for offset == 0 && node != root && node.ParentNode() != nil {
		node, offset = node.ParentNode(), node.Index()
	}
	return node, offset
}

// Line is a laid out line box or block of a page.
type Line struct {
	Rect Rect
	// Column is the column of the flow the line was placed in.
	Column int
	// Footnote reports whether the line belongs to the footnote area.
	Footnote bool
}

// Lines lays out page and returns its lines, page content first.
func (e *Engine) Lines(page *dom.Element) []Line {
	pl := e.layout(page.AsNode())
	if pl == nil {
		return nil
	}
	var content, notes []Line
	for root, f := range pl.flows {
		footnote := root.HasClass(ClassFootnoteInnerContent)
		for _, it := range f.items {
			l := Line{Rect: it.rect, Column: it.col, Footnote: footnote}
			if footnote {
				notes = append(notes, l)
			} else {
				content = append(content, l)
			}
		}
	}
	return append(content, notes...)
}
