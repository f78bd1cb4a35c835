package footnotes

import (
	"errors"
	"testing"

	"github.com/chrisuehlinger/folio/css"
	"github.com/chrisuehlinger/folio/dom"
	"github.com/chrisuehlinger/folio/layout"
	"github.com/chrisuehlinger/folio/paged"
)

// fakeMeasurer returns fixed rects. Calls are looked up as "call:<ref>",
// other elements by data-ref, then by their first class.
type fakeMeasurer struct {
	rects    map[string]*dom.DOMRect
	content  dom.ElementGeometry
	overflow func(root *dom.Element) *dom.Range
}

func (f *fakeMeasurer) key(el *dom.Element) string {
	if ref, ok := el.LookupAttribute("data-footnote-call"); ok {
		return "call:" + ref
	}
	if ref, ok := el.LookupAttribute("data-ref"); ok {
		if _, known := f.rects[ref]; known {
			return ref
		}
	}
	if classes := el.ClassList(); len(classes) > 0 {
		return classes[0]
	}
	return ""
}

func (f *fakeMeasurer) BoundingRect(n *dom.Node) *dom.DOMRect {
	el := n.AsElement()
	if el == nil {
		return dom.NewDOMRect(0, 0, 0, 0)
	}
	if r, ok := f.rects[f.key(el)]; ok {
		return r
	}
	return dom.NewDOMRect(0, 0, 0, 0)
}

func (f *fakeMeasurer) Geometry(el *dom.Element) dom.ElementGeometry {
	if el.HasClass(layout.ClassFootnoteContent) {
		return f.content
	}
	return dom.ElementGeometry{}
}

func (f *fakeMeasurer) FindOverflow(root *dom.Element, _ *dom.DOMRect) *dom.Range {
	if f.overflow == nil {
		return nil
	}
	return f.overflow(root)
}

type fakeCloner struct {
	cloned []*paged.Page
}

func (c *fakeCloner) ClonePage(p *paged.Page) error {
	c.cloned = append(c.cloned, p)
	return nil
}

// newMeasurer describes a 300x500 content column above an empty footnote
// area, with a footnote box holding 40px of content and 10px of margins.
func newMeasurer() *fakeMeasurer {
	return &fakeMeasurer{
		rects: map[string]*dom.DOMRect{
			layout.ClassPageContent:     dom.NewDOMRect(0, 0, 300, 500),
			layout.ClassFootnoteArea:    dom.NewDOMRect(0, 500, 300, 0),
			layout.ClassFootnoteContent: dom.NewDOMRect(0, 500, 299.6, 0),
		},
		content: dom.ElementGeometry{ScrollHeight: 40, MarginTop: 10},
	}
}

func div(doc *dom.Document, class string) *dom.Element {
	el := doc.CreateElement("div")
	el.SetAttribute("class", class)
	return el
}

func newTestPage(doc *dom.Document) *paged.Page {
	p := &paged.Page{
		Element: div(doc, layout.ClassPage),
		Area:    div(doc, layout.ClassArea),
		Content: div(doc, layout.ClassPageContent),
		Footnotes: paged.FootnoteArea{
			Element:      div(doc, layout.ClassFootnoteArea),
			Content:      div(doc, layout.ClassFootnoteContent),
			InnerContent: div(doc, layout.ClassFootnoteInnerContent),
		},
		Margin:     layout.EdgeSizes{Left: 20, Right: 30},
		ClonedFrom: -1,
	}
	doc.Body().AsNode().AppendChild(p.Element.AsNode())
	p.Element.AsNode().AppendChild(p.Area.AsNode())
	p.Area.AsNode().AppendChild(p.Content.AsNode())
	p.Area.AsNode().AppendChild(p.Footnotes.Element.AsNode())
	p.Footnotes.Element.AsNode().AppendChild(p.Footnotes.Content.AsNode())
	p.Footnotes.Content.AsNode().AppendChild(p.Footnotes.InnerContent.AsNode())
	return p
}

// addNote appends <p><span class="note" data-note="footnote">text</span></p>
// to the page content and returns the span.
func addNote(doc *dom.Document, page *paged.Page, ref, text string) *dom.Element {
	p := doc.CreateElement("p")
	p.SetAttribute("data-has-notes", "true")
	note := doc.CreateElement("span")
	note.SetAttribute("class", "note")
	note.SetAttribute("data-note", "footnote")
	note.SetAttribute("data-ref", ref)
	note.SetAttribute("data-break-before", "avoid")
	note.AsNode().AppendChild(doc.CreateTextNode(text))
	p.AsNode().AppendChild(note.AsNode())
	page.Content.AsNode().AppendChild(p.AsNode())
	return note
}

func markers(page *paged.Page) []string {
	var refs []string
	for _, el := range page.Footnotes.InnerContent.FindAll(dom.HasAttr("data-footnote-marker")) {
		refs = append(refs, el.GetAttribute("data-footnote-marker"))
	}
	return refs
}

func TestOnDeclaration(t *testing.T) {
	sheet, errs := css.ParseStylesheet(`.note, aside { float: footnote; color: red } .side { float: left }`)
	if len(errs) > 0 {
		t.Fatalf("Unexpected parse errors: %v", errs)
	}
	h := New(newMeasurer(), nil)
	for _, rule := range sheet.Rules {
		for _, decl := range rule.Declarations {
			removed := h.OnDeclaration(decl, rule)
			if want := decl.Property == "float" && decl.FirstIdent() == "footnote"; removed != want {
				t.Errorf("OnDeclaration(%s) = %v, want %v", decl, removed, want)
			}
		}
	}
	if got := h.Selectors(); len(got) != 1 || got[0] != ".note, aside" {
		t.Errorf("Unexpected selectors %q", got)
	}
}

func TestOnPseudoSelector(t *testing.T) {
	tests := []struct {
		css  string
		want string
	}{
		{`.note::footnote-call { color: red }`, ".note_footnote-call::after"},
		{`.note::footnote-marker { color: red }`, ".note[data-footnote-marker]::before"},
		{`p .note::footnote-marker { color: red }`, "p .note[data-footnote-marker]::before"},
		{`.a.b::footnote-call { color: red }`, ".a_footnote-call.b_footnote-call::after"},
		{`.note::before { color: red }`, ".note::before"},
	}
	h := New(newMeasurer(), nil)
	for _, tt := range tests {
		sheet, _ := css.ParseStylesheet(tt.css)
		rule := sheet.Rules[0]
		for _, complex := range rule.Selector.ComplexSelectors {
			for _, compound := range complex.Compounds {
				if compound.PseudoElement != nil {
					h.OnPseudoSelector(compound.PseudoElement, compound, rule)
				}
			}
		}
		if got := rule.SelectorText(); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.css, got, tt.want)
		}
	}
}

func TestMarkFootnotes(t *testing.T) {
	doc := dom.NewHTMLDocument()
	body := doc.Body().AsNode()

	// <p><em><span class="note"></span></em></p>: the paragraph is flagged.
	p := doc.CreateElement("p")
	em := doc.CreateElement("em")
	inline := doc.CreateElement("span")
	inline.SetAttribute("class", "note")
	em.AsNode().AppendChild(inline.AsNode())
	p.AsNode().AppendChild(em.AsNode())
	body.AppendChild(p.AsNode())

	// <div><span class="note"></span></div>: nothing to flag.
	d := doc.CreateElement("div")
	direct := doc.CreateElement("span")
	direct.SetAttribute("class", "note")
	d.AsNode().AppendChild(direct.AsNode())
	body.AppendChild(d.AsNode())

	n, err := MarkFootnotes(doc.AsNode(), []string{".note", "[["})
	if n != 2 {
		t.Errorf("Expected 2 marked footnotes, got %d", n)
	}
	if err == nil {
		t.Error("Expected an error for the invalid selector")
	}
	for _, el := range []*dom.Element{inline, direct} {
		if el.GetAttribute("data-note") != "footnote" || el.GetAttribute("data-break-before") != "avoid" {
			t.Errorf("Footnote not marked: %v", el.Attributes())
		}
	}
	if p.GetAttribute("data-has-notes") != "true" {
		t.Error("Expected the paragraph to be flagged")
	}
	if em.HasAttribute("data-has-notes") || d.HasAttribute("data-has-notes") {
		t.Error("Only the outermost non-container should be flagged")
	}

	// Marking twice flags once.
	MarkFootnotes(doc.AsNode(), []string{".note"})
	if got := len(doc.Body().FindAll(dom.HasAttr("data-has-notes"))); got != 1 {
		t.Errorf("Expected one flagged element, got %d", got)
	}
}

func TestMarkFootnotesWithoutContainer(t *testing.T) {
	doc := dom.NewDocument()
	p := doc.CreateElement("p")
	b := doc.CreateElement("b")
	note := doc.CreateElement("span")
	note.SetAttribute("class", "note")
	b.AsNode().AppendChild(note.AsNode())
	p.AsNode().AppendChild(b.AsNode())
	doc.AsNode().AppendChild(p.AsNode())

	if _, err := MarkFootnotes(doc.AsNode(), []string{".note"}); err != nil {
		t.Fatal(err)
	}
	if !p.HasAttribute("data-has-notes") || b.HasAttribute("data-has-notes") {
		t.Error("Expected the topmost ancestor to be flagged")
	}
}

func TestRenderNodeVisibility(t *testing.T) {
	doc := dom.NewHTMLDocument()
	page := newTestPage(doc)
	m := newMeasurer()
	m.rects["r1"] = dom.NewDOMRect(10, 20, 50, 12)
	m.rects["r2"] = dom.NewDOMRect(300, 20, 50, 12)
	m.rects["call:r1"] = dom.NewDOMRect(10, 20, 5, 12)

	n1 := addNote(doc, page, "r1", "first")
	n2 := doc.CreateElement("span")
	n2.SetAttribute("data-note", "footnote")
	n2.SetAttribute("data-ref", "r2")
	n1.AsNode().ParentNode().AppendChild(n2.AsNode())
	host := n1.AsNode().ParentNode()

	h := New(m, nil)
	if err := h.RenderNode(page, host); err != nil {
		t.Fatal(err)
	}
	if got := markers(page); len(got) != 1 || got[0] != "r1" {
		t.Errorf("Expected only r1 placed, got %v", got)
	}
	if n2.AsNode().ParentNode() != host {
		t.Error("A note starting at the right edge must stay in the flow")
	}
	if err := h.RenderNode(page, doc.CreateTextNode("x")); err != nil {
		t.Errorf("Text nodes are ignored, got %v", err)
	}
}

func TestPlaceFootnoteDecisions(t *testing.T) {
	tests := []struct {
		name     string
		call     *dom.DOMRect
		placed   bool
		queued   int
		reserved float64
		height   string
	}{
		{"fits below the call", dom.NewDOMRect(10, 88, 5, 12), true, 0, 50, ""},
		{"call off page", dom.NewDOMRect(350, 88, 5, 12), false, 0, 0, ""},
		{"no room for the area", dom.NewDOMRect(10, 483, 5, 12), false, 1, 0, ""},
		{"clamped to the call", dom.NewDOMRect(10, 458, 5, 12), true, 0, 30, "20px"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := dom.NewHTMLDocument()
			page := newTestPage(doc)
			m := newMeasurer()
			m.rects["r1"] = dom.NewDOMRect(10, tt.call.Y, 50, 12)
			m.rects["call:r1"] = tt.call
			note := addNote(doc, page, "r1", "body")
			parent := note.AsNode().ParentNode()

			h := New(m, nil)
			if err := h.RenderNode(page, note.AsNode()); err != nil {
				t.Fatal(err)
			}
			call := parent.FirstChild().AsElement()
			if call == nil || call.GetAttribute("data-footnote-call") != "r1" || call.ClassName() != "note_footnote-call" ||
				call.GetAttribute("data-counter-footnote-increment") != "1" {
				t.Fatalf("Expected a call before the note, got %v", parent.FirstChild())
			}
			if got := len(markers(page)) == 1; got != tt.placed {
				t.Errorf("placed = %v, want %v", got, tt.placed)
			}
			if h.Pending() != tt.queued {
				t.Errorf("queued = %d, want %d", h.Pending(), tt.queued)
			}
			if page.Footnotes.ReservedHeight != tt.reserved {
				t.Errorf("reserved = %v, want %v", page.Footnotes.ReservedHeight, tt.reserved)
			}
			if got := page.Footnotes.InnerContent.Style().GetPropertyValue("height"); got != tt.height {
				t.Errorf("inner height = %q, want %q", got, tt.height)
			}
			if note.HasAttribute("data-break-before") {
				t.Error("Expected data-break-before to be cleared")
			}
		})
	}
}

func TestDrainPlacesWithoutCall(t *testing.T) {
	doc := dom.NewHTMLDocument()
	page := newTestPage(doc)
	h := New(newMeasurer(), nil)

	frag := doc.CreateDocumentFragment()
	note := doc.CreateElement("div")
	note.SetAttribute("data-ref", "r7")
	frag.AsNode().AppendChild(note.AsNode())
	frag.AsNode().AppendChild(doc.CreateTextNode(" "))
	h.queue.Push(frag)

	if err := h.BeforePageLayout(page); err != nil {
		t.Fatal(err)
	}
	if h.Pending() != 0 {
		t.Error("Expected the queue to be drained")
	}
	if got := markers(page); len(got) != 1 || got[0] != "r7" {
		t.Errorf("Expected r7 placed, got %v", got)
	}
	if page.Content.Find(dom.HasAttr("data-footnote-call")) != nil {
		t.Error("Drained content must not get a new call")
	}
	if page.Footnotes.ReservedHeight != 50 {
		t.Errorf("Expected the full content height reserved, got %v", page.Footnotes.ReservedHeight)
	}
}

func TestDuplicateFootnoteDropped(t *testing.T) {
	doc := dom.NewHTMLDocument()
	page := newTestPage(doc)
	m := newMeasurer()
	m.rects["r1"] = dom.NewDOMRect(10, 88, 50, 12)
	m.rects["call:r1"] = dom.NewDOMRect(10, 88, 5, 12)
	h := New(m, nil)

	first := addNote(doc, page, "r1", "body")
	if err := h.RenderNode(page, first.AsNode()); err != nil {
		t.Fatal(err)
	}
	reserved := page.Footnotes.ReservedHeight
	m.content.ScrollHeight = 400

	again := addNote(doc, page, "r1", "body")
	parent := again.AsNode().ParentNode()
	if err := h.RenderNode(page, again.AsNode()); err != nil {
		t.Fatal(err)
	}
	if again.AsNode().ParentNode() != nil {
		t.Error("Expected the duplicate to be removed")
	}
	if parent.HasChildNodes() {
		t.Error("A duplicate must not get a call")
	}
	if page.Footnotes.ReservedHeight != reserved {
		t.Errorf("Reserved height changed from %v to %v", reserved, page.Footnotes.ReservedHeight)
	}
	if got := markers(page); len(got) != 1 {
		t.Errorf("Expected one body, got %v", got)
	}
}

func TestAfterPageLayoutSplitsBody(t *testing.T) {
	doc := dom.NewHTMLDocument()
	page := newTestPage(doc)
	m := newMeasurer()
	m.rects[layout.ClassFootnoteInnerContent] = dom.NewDOMRect(0, 450, 300, 24)
	m.content = dom.ElementGeometry{ScrollHeight: 24, MarginTop: 10, PaddingBottom: 4, BorderTop: 1}

	inner := page.Footnotes.InnerContent
	note := doc.CreateElement("div")
	note.SetAttribute("data-ref", "r1")
	note.SetAttribute("data-footnote-marker", "r1")
	text := doc.CreateTextNode("first half second half")
	note.AsNode().AppendChild(text)
	inner.AsNode().AppendChild(note.AsNode())
	inner.Style().SetProperty("height", "80px")

	m.overflow = func(root *dom.Element) *dom.Range {
		if root != inner {
			t.Errorf("FindOverflow called on %v", root.ClassName())
		}
		r := doc.CreateRange()
		r.SetStart(text, 11)
		r.SetEnd(inner.AsNode(), inner.AsNode().ChildCount())
		return r
	}

	h := New(m, nil)
	cloner := &fakeCloner{}
	if err := h.AfterPageLayout(page.Element, page, nil, cloner); err != nil {
		t.Fatal(err)
	}
	style := inner.Style()
	if style.GetPropertyValue("column-width") != "300px" || style.GetPropertyValue("column-gap") != "50px" {
		t.Errorf("Unexpected column styles %q", style.CSSText())
	}
	if style.GetPropertyValue("height") != "" {
		t.Error("Expected the inner height to be cleared")
	}
	if text.NodeValue() != "first half " {
		t.Errorf("Expected the head to stay, got %q", text.NodeValue())
	}
	if page.Footnotes.ReservedHeight != 39 {
		t.Errorf("Expected reserved 24+15, got %v", page.Footnotes.ReservedHeight)
	}
	if len(cloner.cloned) != 1 {
		t.Errorf("Expected a clone request without a break token, got %d", len(cloner.cloned))
	}

	frag := h.queue.Pop()
	split := frag.FirstElementChild()
	if split.GetAttribute("data-split-from") != "r1" || split.TextContent() != "second half" {
		t.Errorf("Unexpected continuation %v %q", split.Attributes(), split.TextContent())
	}
	if text.NodeValue()+split.TextContent() != "first half second half" {
		t.Error("The parts must reconstruct the body")
	}
}

func TestAfterPageLayoutCleanSplit(t *testing.T) {
	tests := []struct {
		name   string
		hint   string
		clones int
	}{
		{"plain token", "", 0},
		{"break before", "data-break-before", 1},
		{"previous break after", "data-previous-break-after", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := dom.NewHTMLDocument()
			page := newTestPage(doc)
			m := newMeasurer()
			inner := page.Footnotes.InnerContent
			for _, ref := range []string{"r1", "r2"} {
				n := doc.CreateElement("div")
				n.SetAttribute("data-ref", ref)
				n.SetAttribute("data-footnote-marker", ref)
				inner.AsNode().AppendChild(n.AsNode())
			}
			m.overflow = func(root *dom.Element) *dom.Range {
				r := doc.CreateRange()
				r.SetStart(inner.AsNode(), 1)
				r.SetEnd(inner.AsNode(), 2)
				return r
			}
			next := doc.CreateElement("section")
			if tt.hint != "" {
				next.SetAttribute(tt.hint, "page")
			}

			h := New(m, nil)
			cloner := &fakeCloner{}
			err := h.AfterPageLayout(page.Element, page, &paged.BreakToken{Node: next.AsNode()}, cloner)
			if err != nil {
				t.Fatal(err)
			}
			if len(cloner.cloned) != tt.clones {
				t.Errorf("clones = %d, want %d", len(cloner.cloned), tt.clones)
			}
			moved := h.queue.Pop().FirstElementChild()
			if moved.GetAttribute("data-ref") != "r2" || moved.HasAttribute("data-split-from") {
				t.Errorf("Expected r2 moved whole, got %v", moved.Attributes())
			}
		})
	}
}

func TestAfterPageLayoutWithoutOverflow(t *testing.T) {
	doc := dom.NewHTMLDocument()
	page := newTestPage(doc)
	h := New(newMeasurer(), nil)
	cloner := &fakeCloner{}
	token := &paged.BreakToken{Node: doc.CreateTextNode("x")}

	if err := h.AfterPageLayout(page.Element, page, token, cloner); err != nil {
		t.Fatal(err)
	}
	if err := h.AfterPageLayout(page.Element, page, nil, cloner); err != nil {
		t.Fatal(err)
	}
	if len(cloner.cloned) != 0 {
		t.Error("No overflow and an empty queue need no continuation")
	}

	h.queue.Push(doc.CreateDocumentFragment())
	if err := h.AfterPageLayout(page.Element, page, nil, cloner); err != nil {
		t.Fatal(err)
	}
	if len(cloner.cloned) != 1 {
		t.Error("Queued content on the last page needs a continuation")
	}
}

func TestMissingFootnoteArea(t *testing.T) {
	doc := dom.NewHTMLDocument()
	page := newTestPage(doc)
	page.Index = 4
	page.Footnotes.InnerContent = nil
	h := New(newMeasurer(), nil)
	h.queue.Push(doc.CreateDocumentFragment())

	err := h.AfterPageLayout(page.Element, page, nil, &fakeCloner{})
	if !errors.Is(err, ErrMissingFootnoteArea) {
		t.Errorf("Expected ErrMissingFootnoteArea, got %v", err)
	}

	frag := doc.CreateDocumentFragment()
	frag.AsNode().AppendChild(doc.CreateElement("div").AsNode())
	h.queue.Push(frag)
	if err := h.BeforePageLayout(page); !errors.Is(err, ErrMissingFootnoteArea) {
		t.Errorf("Expected ErrMissingFootnoteArea from the drain, got %v", err)
	}
}

func TestQueueOrder(t *testing.T) {
	doc := dom.NewHTMLDocument()
	var q Queue
	a, b := doc.CreateDocumentFragment(), doc.CreateDocumentFragment()
	q.Push(a)
	q.Push(b)
	if q.Pop() != a || q.Pop() != b || q.Pop() != nil || q.Len() != 0 {
		t.Error("Queue must be first in, first out")
	}
}
