package layout

import (
	"unicode/utf8"

	"github.com/chrisuehlinger/folio/dom"
)

const epsilon = 0.01

// item is an unbreakable piece of a flow: a line box or a block with an
// explicit height. The position is the boundary point just before the
// item's content in the document.
type item struct {
	rect   Rect
	col    int
	node   *dom.Node
	offset int
}

// flow places items top to bottom in columns of a fixed height. An item
// that does not fit the rest of a column starts the next one, unless it is
// the first item of its column. Flows that are not fragmented have a
// single column of unlimited height.
type flow struct {
	root       *dom.Element
	x0, top    float64
	colWidth   float64
	gap        float64
	colHeight  float64
	fragmented bool

	col int
	y   float64
	// natural is the height the content would take in a single column.
	natural float64
	items   []item
}

func newFlow(root *dom.Element, x0, top, colWidth, gap, colHeight float64) *flow {
	return &flow{
		root:       root,
		x0:         x0,
		top:        top,
		colWidth:   colWidth,
		gap:        gap,
		colHeight:  max(0, colHeight),
		fragmented: true,
		y:          top,
	}
}

func newUnfragmentedFlow(root *dom.Element, x0, top, width float64) *flow {
	return &flow{root: root, x0: x0, top: top, colWidth: width, y: top}
}

func (f *flow) colX(col int) float64 {
	return f.x0 + float64(col)*(f.colWidth+f.gap)
}

func (f *flow) colBottom() float64 {
	return f.top + f.colHeight
}

// fit makes room for an unbreakable piece of height h.
func (f *flow) fit(h float64) {
	if !f.fragmented {
		return
	}
	if f.y > f.top+epsilon && f.y+h > f.colBottom()+epsilon {
		f.col++
		f.y = f.top
	}
}

func (f *flow) advance(h float64) {
	f.y += h
	f.natural += h
}

func (f *flow) add(it item) {
	it.col = f.col
	f.items = append(f.items, it)
}

// pass is a single layout of one page. Styles are computed once per pass.
type pass struct {
	engine *Engine
	frame  Frame
	styles map[*dom.Element]*boxStyle
}

func (p *pass) style(el *dom.Element, parent *boxStyle) *boxStyle {
	if st, ok := p.styles[el]; ok {
		return st
	}
	if parent == nil {
		parent = initialStyle
	}
	st := computeStyle(p.engine.styles.Cascade(el, ""), parent)
	p.styles[el] = st
	return st
}

// layoutChildren lays out the content of el into f. x is the offset of the
// content box from the column edge and w its width.
func (p *pass) layoutChildren(f *flow, el *dom.Element, st *boxStyle, x, w float64) {
	var run *inlineRun
	inline := func() *inlineRun {
		if run == nil {
			run = &inlineRun{pass: p}
		}
		return run
	}
	flush := func() {
		if run != nil {
			p.placeLines(f, st, run.pieces, x, w)
			run = nil
		}
	}

	if text, ok := p.generatedContent(el, "before"); ok {
		inline().addGenerated(text, pieceBefore, el.AsNode(), st, nil)
	}
	for c := el.AsNode().FirstChild(); c != nil; c = c.NextSibling() {
		switch c.NodeType() {
		case dom.TextNode:
			inline().addText(c, st, nil)
		case dom.ElementNode:
			child := c.AsElement()
			cst := p.style(child, st)
			switch {
			case cst.display == "none":
				clearTree(child)
			case cst.isBlock():
				flush()
				p.layoutBlock(f, child, cst, x, w)
			default:
				inline().addElement(child, st, nil)
			}
		}
	}
	if text, ok := p.generatedContent(el, "after"); ok {
		inline().addGenerated(text, pieceEnd, el.AsNode(), st, nil)
	}
	flush()
}

func (p *pass) layoutBlock(f *flow, el *dom.Element, st *boxStyle, x, w float64) {
	boxW := max(0, w-st.margin.Horizontal())
	contentW := max(0, boxW-st.border.Horizontal()-st.padding.Horizontal())
	if st.hasHeight {
		p.layoutAtomic(f, el, st, x, boxW, contentW)
		return
	}

	startCol := f.col
	first := len(f.items)
	f.advance(st.margin.Top)
	top := f.y
	f.advance(st.border.Top + st.padding.Top)
	p.layoutChildren(f, el, st, x+st.margin.Left+st.border.Left+st.padding.Left, contentW)
	// A block whose first line moved to the next column starts there.
	if first < len(f.items) && f.items[first].col > startCol {
		startCol = f.items[first].col
		top = f.top
	}
	f.advance(st.padding.Bottom + st.border.Bottom)
	bottom := f.y
	f.advance(st.margin.Bottom)

	left := f.colX(startCol) + x + st.margin.Left
	border := Rect{X: left, Y: top, Width: boxW, Height: bottom - top}
	if f.col != startCol {
		right := f.colX(f.col) + x + st.margin.Left + boxW
		border = Rect{X: left, Y: f.top, Width: right - left, Height: max(f.colBottom(), bottom) - f.top}
	}
	content := Rect{
		X:      border.X + st.border.Left + st.padding.Left,
		Y:      border.Y + st.border.Top + st.padding.Top,
		Width:  contentW,
		Height: max(0, border.Height-st.border.Vertical()-st.padding.Vertical()),
	}
	el.SetGeometry(st.dimensions(content).Geometry())
}

// layoutAtomic places a block with an explicit height as a single item.
// Its content is laid out unfragmented and may overflow the box.
func (p *pass) layoutAtomic(f *flow, el *dom.Element, st *boxStyle, x, boxW, contentW float64) {
	borderH := st.border.Vertical() + st.padding.Vertical() + st.height
	f.fit(st.margin.Top + borderH)
	left := f.colX(f.col) + x + st.margin.Left
	top := f.y + st.margin.Top
	n := el.AsNode()
	f.add(item{rect: Rect{X: left, Y: top, Width: boxW, Height: borderH}, node: n.ParentNode(), offset: n.Index()})

	content := Rect{X: left + st.border.Left + st.padding.Left, Y: top + st.border.Top + st.padding.Top, Width: contentW, Height: st.height}
	nested := newUnfragmentedFlow(el, content.X, content.Y, contentW)
	p.layoutChildren(nested, el, st, 0, contentW)
	f.advance(st.margin.Top + borderH + st.margin.Bottom)

	g := st.dimensions(content).Geometry()
	g.ScrollHeight = nested.natural
	el.SetGeometry(g)
}

// placeLines breaks pieces into lines of width w and adds them to f.
func (p *pass) placeLines(f *flow, st *boxStyle, pieces []piece, x, w float64) {
	if len(pieces) == 0 {
		return
	}
	var owners []*dom.Element
	boxes := map[*dom.Element]Rect{}
	for _, line := range breakLines(pieces, w) {
		f.fit(st.lineHeight)
		left := f.colX(f.col) + x
		top := f.y
		last := line[len(line)-1]
		for _, pc := range line {
			r := Rect{X: left + pc.x, Y: top, Width: pc.width, Height: st.lineHeight}
			for _, o := range pc.owners {
				if b, ok := boxes[o]; ok {
					boxes[o] = b.Union(r)
				} else {
					boxes[o] = r
					owners = append(owners, o)
				}
			}
		}
		node, offset := line[0].position()
		f.add(item{rect: Rect{X: left, Y: top, Width: last.x + last.width, Height: st.lineHeight}, node: node, offset: offset})
		f.advance(st.lineHeight)
	}
	for _, o := range owners {
		b := boxes[o]
		o.SetGeometry(dom.ElementGeometry{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height, ScrollHeight: b.Height})
	}
}

type pieceKind int

const (
	pieceText pieceKind = iota
	pieceBefore
	pieceAfter
	pieceEnd
	pieceEmpty
	pieceBreak
)

// piece is an unbreakable run of inline content: a word, a word of
// generated content, or the zero-width box of an empty element.
type piece struct {
	kind   pieceKind
	node   *dom.Node
	offset int
	width  float64
	// space is the width of the collapsed white space before the piece.
	// Lines only break at pieces with a space.
	space  float64
	owners []*dom.Element
	x      float64
}

func (pc piece) position() (*dom.Node, int) {
	switch pc.kind {
	case pieceText:
		return pc.node, pc.offset
	case pieceBefore:
		return pc.node, 0
	case pieceEnd:
		return pc.node, pc.node.ChildCount()
	case pieceAfter:
		return pc.node.ParentNode(), pc.node.Index() + 1
	}
	return pc.node.ParentNode(), pc.node.Index()
}

func breakLines(pieces []piece, width float64) [][]piece {
	var lines [][]piece
	var line []piece
	used := 0.0
	for i := 0; i < len(pieces); {
		j := i + 1
		for j < len(pieces) && pieces[j].space == 0 && pieces[j-1].kind != pieceBreak {
			j++
		}
		chunk := 0.0
		for k := i; k < j; k++ {
			chunk += pieces[k].width
		}
		space := pieces[i].space
		if len(line) == 0 {
			space = 0
		} else if used+space+chunk > width+epsilon {
			lines = append(lines, line)
			line, used, space = nil, 0, 0
		}
		x := used + space
		for k := i; k < j; k++ {
			pc := pieces[k]
			pc.x = x
			x += pc.width
			line = append(line, pc)
		}
		used = x
		if pieces[j-1].kind == pieceBreak {
			lines = append(lines, line)
			line, used = nil, 0
		}
		i = j
	}
	if len(line) > 0 {
		lines = append(lines, line)
	}
	return lines
}

// inlineRun collects the pieces of consecutive inline content.
type inlineRun struct {
	pass    *pass
	pieces  []piece
	pending bool
}

func (r *inlineRun) push(pc piece, st *boxStyle, owners []*dom.Element) {
	if r.pending {
		pc.space = st.fontSize / 4
		r.pending = false
	}
	pc.owners = owners
	r.pieces = append(r.pieces, pc)
}

func isCollapsible(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}

// words calls fn with the byte offset and rune count of each word in s.
// White space marks the next piece as preceded by a space.
func (r *inlineRun) words(s string, fn func(offset, runes int)) {
	for i := 0; i < len(s); {
		c, size := utf8.DecodeRuneInString(s[i:])
		if isCollapsible(c) {
			r.pending = true
			i += size
			continue
		}
		start, runes := i, 0
		for i < len(s) {
			c, size = utf8.DecodeRuneInString(s[i:])
			if isCollapsible(c) {
				break
			}
			runes++
			i += size
		}
		fn(start, runes)
	}
}

func (r *inlineRun) addText(n *dom.Node, st *boxStyle, owners []*dom.Element) {
	r.words(n.NodeValue(), func(offset, runes int) {
		r.push(piece{kind: pieceText, node: n, offset: offset, width: float64(runes) * st.fontSize / 2}, st, owners)
	})
}

func (r *inlineRun) addGenerated(text string, kind pieceKind, n *dom.Node, st *boxStyle, owners []*dom.Element) {
	added := false
	r.words(text, func(_, runes int) {
		r.push(piece{kind: kind, node: n, width: float64(runes) * st.fontSize / 2}, st, owners)
		added = true
	})
	if !added {
		r.push(piece{kind: kind, node: n}, st, owners)
	}
}

func (r *inlineRun) addElement(el *dom.Element, parent *boxStyle, owners []*dom.Element) {
	st := r.pass.style(el, parent)
	if st.display == "none" {
		clearTree(el)
		return
	}
	owners = append(owners[:len(owners):len(owners)], el)
	if el.LocalName() == "br" {
		r.pieces = append(r.pieces, piece{kind: pieceBreak, node: el.AsNode(), owners: owners})
		r.pending = false
		return
	}
	start := len(r.pieces)
	if text, ok := r.pass.generatedContent(el, "before"); ok {
		r.addGenerated(text, pieceBefore, el.AsNode(), st, owners)
	}
	for c := el.AsNode().FirstChild(); c != nil; c = c.NextSibling() {
		switch c.NodeType() {
		case dom.TextNode:
			r.addText(c, st, owners)
		case dom.ElementNode:
			r.addElement(c.AsElement(), st, owners)
		}
	}
	if text, ok := r.pass.generatedContent(el, "after"); ok {
		r.addGenerated(text, pieceAfter, el.AsNode(), st, owners)
	}
	if len(r.pieces) == start {
		r.push(piece{kind: pieceEmpty, node: el.AsNode()}, st, owners)
	}
}

// clearTree drops the geometry of el and its descendants.
func clearTree(el *dom.Element) {
	el.AsNode().Walk(func(n *dom.Node) bool {
		if e := n.AsElement(); e != nil {
			e.ClearGeometry()
		}
		return true
	})
}
