package layout

import (
	"strings"
	"testing"

	"github.com/chrisuehlinger/folio/css"
	"github.com/chrisuehlinger/folio/dom"
)

type fixedFrames map[*dom.Element]Frame

func (f fixedFrames) Frame(page *dom.Element) (Frame, bool) {
	fr, ok := f[page]
	return fr, ok
}

type testPage struct {
	doc     *dom.Document
	page    *dom.Element
	content *dom.Element
	note    *dom.Element
	inner   *dom.Element
	frames  fixedFrames
	engine  *Engine
}

// newTestPage builds a 400x400 page with 50px margins and a 10px font, so
// that lines are 12px high and every character is 5px wide.
func newTestPage(t *testing.T, extraCSS string) *testPage {
	t.Helper()
	doc := dom.NewHTMLDocument()
	div := func(class string) *dom.Element {
		el := doc.CreateElement("div")
		el.SetAttribute("class", class)
		return el
	}
	tp := &testPage{doc: doc, frames: fixedFrames{}}
	tp.page = div(ClassPage)
	area := div(ClassArea)
	tp.content = div(ClassPageContent)
	footnoteArea := div(ClassFootnoteArea)
	tp.note = div(ClassFootnoteContent)
	tp.inner = div(ClassFootnoteInnerContent)

	tp.page.AsNode().AppendChild(area.AsNode())
	area.AsNode().AppendChild(tp.content.AsNode())
	area.AsNode().AppendChild(footnoteArea.AsNode())
	footnoteArea.AsNode().AppendChild(tp.note.AsNode())
	tp.note.AsNode().AppendChild(tp.inner.AsNode())
	doc.Body().AsNode().AppendChild(tp.page.AsNode())

	resolver := css.NewResolver()
	sheet, errs := css.ParseStylesheet(".folio_page { font-size: 10px }\n" + extraCSS)
	if len(errs) > 0 {
		t.Fatalf("Stylesheet errors: %v", errs)
	}
	resolver.AddAuthorStylesheet(sheet)
	tp.frames[tp.page] = Frame{Width: 400, Height: 400, Margin: EdgeSizes{Top: 50, Right: 50, Bottom: 50, Left: 50}}
	tp.engine = NewEngine(resolver, tp.frames)
	return tp
}

func (tp *testPage) setReserved(h float64) {
	fr := tp.frames[tp.page]
	fr.Reserved = h
	tp.frames[tp.page] = fr
}

func (tp *testPage) add(parent *dom.Element, tag, text string) *dom.Element {
	el := tp.doc.CreateElement(tag)
	if text != "" {
		el.AsNode().AppendChild(tp.doc.CreateTextNode(text))
	}
	parent.AsNode().AppendChild(el.AsNode())
	return el
}

func assertRect(t *testing.T, what string, got *dom.DOMRect, x, y, w, h float64) {
	t.Helper()
	if got.X != x || got.Y != y || got.Width != w || got.Height != h {
		t.Errorf("%s: got (%v, %v, %v, %v), expected (%v, %v, %v, %v)",
			what, got.X, got.Y, got.Width, got.Height, x, y, w, h)
	}
}

func TestDimensionsBoxCalculations(t *testing.T) {
	dims := Dimensions{
		Content: Rect{X: 10, Y: 10, Width: 100, Height: 50},
		Padding: EdgeSizes{Top: 5, Right: 5, Bottom: 5, Left: 5},
		Border:  EdgeSizes{Top: 2, Right: 2, Bottom: 2, Left: 2},
		Margin:  EdgeSizes{Top: 10, Right: 10, Bottom: 10, Left: 10},
	}

	borderBox := dims.BorderBox()
	if borderBox.X != 3 || borderBox.Y != 3 || borderBox.Width != 114 || borderBox.Height != 64 {
		t.Errorf("BorderBox wrong: got %+v", borderBox)
	}
	marginBox := dims.MarginBox()
	if marginBox.X != -7 || marginBox.Width != 134 {
		t.Errorf("MarginBox wrong: got %+v", marginBox)
	}

	g := dims.Geometry()
	if g.X != 3 || g.Height != 64 || g.PaddingTop != 5 || g.BorderLeft != 2 || g.MarginBottom != 10 {
		t.Errorf("Geometry wrong: got %+v", g)
	}
	if g.VerticalEdges() != 34 {
		t.Errorf("VerticalEdges = %v, expected 34", g.VerticalEdges())
	}
}

func TestPageAreas(t *testing.T) {
	tp := newTestPage(t, "")
	tp.setReserved(60)

	assertRect(t, "page content", tp.engine.BoundingRect(tp.content.AsNode()), 50, 50, 300, 240)
	assertRect(t, "footnote content", tp.engine.BoundingRect(tp.note.AsNode()), 50, 290, 300, 60)
	if got := tp.engine.BoundingRect(tp.page.AsNode()); got.Width != 400 || got.Height != 400 {
		t.Errorf("Expected a 400x400 page, got %+v", got)
	}
}

func TestLineBreaking(t *testing.T) {
	tp := newTestPage(t, "")
	one := tp.add(tp.content, "div", "aaaa bbbb")
	words := strings.TrimSpace(strings.Repeat("aaaaaaaaaa ", 7))
	two := tp.add(tp.content, "div", words)

	assertRect(t, "single line", tp.engine.BoundingRect(one.AsNode()), 50, 50, 300, 12)
	// Five 50px words and four 2.5px spaces fit in 300px; the sixth does not.
	assertRect(t, "wrapped block", tp.engine.BoundingRect(two.AsNode()), 50, 62, 300, 24)
}

func TestBlockEdges(t *testing.T) {
	tp := newTestPage(t, ".box { margin: 5px 10px; padding: 2px; border: 1px solid }")
	box := tp.add(tp.content, "div", "x")
	box.SetAttribute("class", "box")
	after := tp.add(tp.content, "div", "y")

	assertRect(t, "box", tp.engine.BoundingRect(box.AsNode()), 60, 55, 280, 18)
	g := tp.engine.Geometry(box)
	if g.PaddingTop != 2 || g.BorderBottom != 1 || g.MarginTop != 5 || g.VerticalEdges() != 16 {
		t.Errorf("Unexpected box model %+v", g)
	}
	assertRect(t, "following block", tp.engine.BoundingRect(after.AsNode()), 50, 78, 300, 12)
}

func TestInlineGeometry(t *testing.T) {
	tp := newTestPage(t, `.call::after { content: counter(footnote) }`)
	block := tp.add(tp.content, "div", "ab")
	call := tp.add(block, "span", "")
	call.SetAttribute("class", "call")
	call.SetAttribute("data-counter-footnote-value", "12")
	empty := tp.add(block, "span", "")
	hidden := tp.add(block, "span", "hidden")
	hidden.SetAttribute("style", "display: none")

	assertRect(t, "call", tp.engine.BoundingRect(call.AsNode()), 60, 50, 10, 12)
	assertRect(t, "empty span", tp.engine.BoundingRect(empty.AsNode()), 70, 50, 0, 12)
	assertRect(t, "hidden span", tp.engine.BoundingRect(hidden.AsNode()), 0, 0, 0, 0)
}

func TestColumnOverflow(t *testing.T) {
	tp := newTestPage(t, "")
	var blocks []*dom.Element
	for i := 0; i < 30; i++ {
		blocks = append(blocks, tp.add(tp.content, "div", "line"))
	}

	// 25 lines of 12px fill the 300px column; the rest move to the next
	// column, one page width plus the margins to the right.
	assertRect(t, "last in column", tp.engine.BoundingRect(blocks[24].AsNode()), 50, 338, 300, 12)
	assertRect(t, "first moved", tp.engine.BoundingRect(blocks[25].AsNode()), 450, 50, 300, 12)

	bounds := tp.engine.BoundingRect(tp.content.AsNode())
	r := tp.engine.FindOverflow(tp.content, bounds)
	if r == nil {
		t.Fatal("Expected overflow")
	}
	if r.StartContainer() != tp.content.AsNode() || r.StartOffset() != 25 {
		t.Errorf("Expected overflow to start before block 25, got (%v, %d)", r.StartContainer().NodeName(), r.StartOffset())
	}
	if r.EndContainer() != tp.content.AsNode() || r.EndOffset() != 30 {
		t.Errorf("Expected overflow to end at the content end, got offset %d", r.EndOffset())
	}

	frag := r.ExtractContents()
	if got := len(frag.ChildNodes()); got != 5 {
		t.Errorf("Expected 5 extracted blocks, got %d", got)
	}
	if r := tp.engine.FindOverflow(tp.content, tp.engine.BoundingRect(tp.content.AsNode())); r != nil {
		t.Error("Expected no overflow after extracting it")
	}
}

func TestOverflowInsideText(t *testing.T) {
	tp := newTestPage(t, "")
	tp.setReserved(276) // leaves two lines
	text := strings.TrimSpace(strings.Repeat("aaaaaaaaaa ", 15))
	block := tp.add(tp.content, "div", text)

	r := tp.engine.FindOverflow(tp.content, tp.engine.BoundingRect(tp.content.AsNode()))
	if r == nil {
		t.Fatal("Expected overflow")
	}
	textNode := block.AsNode().FirstChild()
	if r.StartContainer() != textNode || r.StartOffset() != 110 {
		t.Errorf("Expected the third line to start at byte 110 of the text, got (%v, %d)", r.StartContainer().NodeName(), r.StartOffset())
	}
}

func TestFirstItemNeverOverflows(t *testing.T) {
	tp := newTestPage(t, ".tall { height: 500px }")
	tall := tp.add(tp.content, "div", "")
	tall.SetAttribute("class", "tall")

	if r := tp.engine.FindOverflow(tp.content, tp.engine.BoundingRect(tp.content.AsNode())); r != nil {
		t.Error("The first item of a flow should never be reported as overflow")
	}
	tp.add(tp.content, "div", "next")
	r := tp.engine.FindOverflow(tp.content, tp.engine.BoundingRect(tp.content.AsNode()))
	if r == nil || r.StartOffset() != 1 {
		t.Fatalf("Expected overflow before the second block, got %v", r)
	}
}

func TestFootnoteColumns(t *testing.T) {
	tp := newTestPage(t, "")
	tp.setReserved(40)
	first := tp.add(tp.inner, "div", "one")
	tp.add(tp.inner, "div", "two")

	g := tp.engine.Geometry(tp.note)
	if g.ScrollHeight != 24 {
		t.Errorf("Expected natural note height 24, got %v", g.ScrollHeight)
	}
	assertRect(t, "inner", tp.engine.BoundingRect(tp.inner.AsNode()), 50, 310, 300, 24)
	assertRect(t, "first note", tp.engine.BoundingRect(first.AsNode()), 50, 310, 300, 12)

	tp.inner.Style().SetProperty("height", "12px")
	tp.inner.Style().SetProperty("column-width", "300px")
	tp.inner.Style().SetProperty("column-gap", "100px")
	if got := tp.engine.Geometry(tp.note).ScrollHeight; got != 24 {
		t.Errorf("Expected the natural height to ignore the explicit height, got %v", got)
	}
	assertRect(t, "clamped inner", tp.engine.BoundingRect(tp.inner.AsNode()), 50, 310, 300, 12)

	r := tp.engine.FindOverflow(tp.inner, tp.engine.BoundingRect(tp.note.AsNode()))
	if r == nil {
		t.Fatal("Expected the second note to overflow")
	}
	if r.StartContainer() != tp.inner.AsNode() || r.StartOffset() != 1 {
		t.Errorf("Expected overflow before the second note, got (%v, %d)", r.StartContainer().NodeName(), r.StartOffset())
	}
}

func TestLayoutCache(t *testing.T) {
	tp := newTestPage(t, "")
	if got := tp.engine.BoundingRect(tp.content.AsNode()).Height; got != 300 {
		t.Errorf("Expected full content height, got %v", got)
	}
	tp.setReserved(100)
	if got := tp.engine.BoundingRect(tp.content.AsNode()).Height; got != 200 {
		t.Errorf("Expected a frame change to relayout, got %v", got)
	}
	block := tp.add(tp.content, "div", "x")
	if got := tp.engine.BoundingRect(block.AsNode()).Height; got != 12 {
		t.Errorf("Expected a mutation to relayout, got %v", got)
	}

	detached := tp.doc.CreateElement("div")
	assertRect(t, "detached", tp.engine.BoundingRect(detached.AsNode()), 0, 0, 0, 0)
}

func TestBreakLines(t *testing.T) {
	pieces := []piece{
		{width: 10},
		{width: 10, space: 2},
		{width: 0},
		{kind: pieceBreak},
		{width: 10, space: 2},
	}
	lines := breakLines(pieces, 100)
	if len(lines) != 2 {
		t.Fatalf("Expected a forced break to end the line, got %d lines", len(lines))
	}
	if len(lines[0]) != 4 || lines[0][1].x != 12 {
		t.Errorf("Unexpected first line %+v", lines[0])
	}
	if lines[1][0].x != 0 {
		t.Errorf("Expected the space at a line start to collapse, got x = %v", lines[1][0].x)
	}

	glued := breakLines([]piece{{width: 60}, {width: 60}}, 100)
	if len(glued) != 1 {
		t.Errorf("Pieces without a space between them should never be split, got %d lines", len(glued))
	}
}

func TestNormalizeBoundary(t *testing.T) {
	doc := dom.NewHTMLDocument()
	root := doc.CreateElement("div")
	p := doc.CreateElement("p")
	text := doc.CreateTextNode("hello")
	doc.Body().AsNode().AppendChild(root.AsNode())
	root.AsNode().AppendChild(doc.CreateTextNode(" "))
	root.AsNode().AppendChild(p.AsNode())
	p.AsNode().AppendChild(text)

	node, offset := normalizeBoundary(text, 0, root.AsNode())
	if node != root.AsNode() || offset != 1 {
		t.Errorf("Expected (root, 1), got (%v, %d)", node.NodeName(), offset)
	}
	node, offset = normalizeBoundary(text, 2, root.AsNode())
	if node != text || offset != 2 {
		t.Errorf("Expected a point inside text to stay, got (%v, %d)", node.NodeName(), offset)
	}
	node, offset = normalizeBoundary(root.AsNode(), 0, root.AsNode())
	if node != root.AsNode() || offset != 0 {
		t.Errorf("Expected the root to stop climbing, got (%v, %d)", node.NodeName(), offset)
	}
}

func TestParseFontSizeAndLineHeight(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"10px", 10},
		{"2em", 32},
		{"50%", 8},
		{"larger", 19.2},
		{"x-large", 24},
	}
	for _, tt := range tests {
		got, ok := parseFontSize(tt.input, 16)
		if !ok || got != tt.want {
			t.Errorf("parseFontSize(%q) = %v, %v; want %v", tt.input, got, ok, tt.want)
		}
	}

	if f, h := parseLineHeight("1.5", 10, 1.2, 12); f != 1.5 || h != 15 {
		t.Errorf("Expected a number to scale, got %v %v", f, h)
	}
	if f, h := parseLineHeight("20px", 10, 1.2, 12); f != 0 || h != 20 {
		t.Errorf("Expected a fixed length, got %v %v", f, h)
	}
}

func TestLines(t *testing.T) {
	tp := newTestPage(t, "")
	tp.setReserved(40)
	tp.add(tp.content, "div", "one")
	tp.add(tp.content, "div", "two")
	tp.add(tp.inner, "div", "note")

	lines := tp.engine.Lines(tp.page)
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	for i, want := range []struct {
		y        float64
		footnote bool
	}{{50, false}, {62, false}, {310, true}} {
		if lines[i].Rect.Y != want.y || lines[i].Footnote != want.footnote {
			t.Errorf("line %d: got %+v, expected y %v footnote %v", i, lines[i], want.y, want.footnote)
		}
	}
	if tp.engine.Lines(tp.doc.CreateElement("div")) != nil {
		t.Error("Expected no lines for an element outside a page")
	}
}
