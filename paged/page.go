package paged

import (
	"sort"
	"strconv"

	"github.com/chrisuehlinger/folio/dom"
	"github.com/chrisuehlinger/folio/layout"
)

const (
	classLeftPage  = "folio_left_page"
	classRightPage = "folio_right_page"

	counterFootnoteValue = "data-counter-footnote-value"
)

// BreakToken marks where rendering continues in the source document: a
// node, and a byte offset when the node is text.
type BreakToken struct {
	Node   *dom.Node
	Offset int
}

// Equal reports whether both tokens point at the same position.
func (t *BreakToken) Equal(other *BreakToken) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Node == other.Node && t.Offset == other.Offset
}

// FootnoteArea is the region of a page that holds footnote bodies.
type FootnoteArea struct {
	Element      *dom.Element
	Content      *dom.Element
	InnerContent *dom.Element
	// ReservedHeight is the height of the area at the bottom of the page
	// area. Layout takes it out of the main content column.
	ReservedHeight float64
}

// Page is one page of a book.
type Page struct {
	Index   int
	Element *dom.Element
	Area    *dom.Element
	Content *dom.Element

	Footnotes FootnoteArea

	Width, Height float64
	Margin        layout.EdgeSizes

	// Start is the token the page was rendered from; nil for clones.
	Start *BreakToken
	// End is the token the following content page continues from.
	End *BreakToken
	// ClonedFrom is the index of the page this one continues, or -1.
	ClonedFrom int
}

// Number returns the 1-based page number.
func (p *Page) Number() int {
	return p.Index + 1
}

// Side returns "right" or "left".
func (p *Page) Side() string {
	if p.Index%2 == 0 {
		return "right"
	}
	return "left"
}

// Frame returns the page box used for layout.
func (p *Page) Frame() layout.Frame {
	return layout.Frame{
		Width:    p.Width,
		Height:   p.Height,
		Margin:   p.Margin,
		Reserved: p.Footnotes.ReservedHeight,
		Number:   p.Number(),
	}
}

func newPage(doc *dom.Document, index int, width, height float64, margin layout.EdgeSizes) *Page {
	div := func(class string) *dom.Element {
		el := doc.CreateElement("div")
		el.SetAttribute("class", class)
		return el
	}
	p := &Page{
		Index:      index,
		Element:    div(layout.ClassPage),
		Area:       div(layout.ClassArea),
		Content:    div(layout.ClassPageContent),
		Width:      width,
		Height:     height,
		Margin:     margin,
		ClonedFrom: -1,
	}
	p.Footnotes = FootnoteArea{
		Element:      div(layout.ClassFootnoteArea),
		Content:      div(layout.ClassFootnoteContent),
		InnerContent: div(layout.ClassFootnoteInnerContent),
	}
	if p.Side() == "right" {
		p.Element.AddClass(classRightPage)
	} else {
		p.Element.AddClass(classLeftPage)
	}
	p.Element.SetAttribute("id", "page-"+strconv.Itoa(p.Number()))
	p.Element.SetAttribute("data-page-number", strconv.Itoa(p.Number()))

	p.Element.AsNode().AppendChild(p.Area.AsNode())
	p.Area.AsNode().AppendChild(p.Content.AsNode())
	p.Area.AsNode().AppendChild(p.Footnotes.Element.AsNode())
	p.Footnotes.Element.AsNode().AppendChild(p.Footnotes.Content.AsNode())
	p.Footnotes.Content.AsNode().AppendChild(p.Footnotes.InnerContent.AsNode())
	return p
}

// Book is the result of a render.
type Book struct {
	Document *dom.Document
	Pages    []*Page
}

// PageReport summarizes the footnotes of one page.
type PageReport struct {
	Number         int      `json:"number"`
	Side           string   `json:"side"`
	Continuation   bool     `json:"continuation,omitempty"`
	Calls          []string `json:"calls"`
	Footnotes      []string `json:"footnotes"`
	Splits         []string `json:"splits,omitempty"`
	ReservedHeight float64  `json:"reservedHeight"`
}

// Report returns the footnote summary of every page in order.
func (b *Book) Report() []PageReport {
	reports := make([]PageReport, 0, len(b.Pages))
	for _, p := range b.Pages {
		r := PageReport{
			Number:         p.Number(),
			Side:           p.Side(),
			Continuation:   p.ClonedFrom >= 0,
			Calls:          []string{},
			Footnotes:      []string{},
			ReservedHeight: p.Footnotes.ReservedHeight,
		}
		for _, call := range p.Content.FindAll(dom.HasAttr("data-footnote-call")) {
			r.Calls = append(r.Calls, call.GetAttribute("data-footnote-call"))
		}
		if inner := p.Footnotes.InnerContent; inner != nil {
			for _, note := range inner.FindAll(dom.HasAttr("data-footnote-marker")) {
				r.Footnotes = append(r.Footnotes, note.GetAttribute("data-footnote-marker"))
				if from, ok := note.LookupAttribute("data-split-from"); ok {
					r.Splits = append(r.Splits, from)
				}
			}
		}
		reports = append(reports, r)
	}
	return reports
}

// FootnoteRefs returns the distinct refs of footnote bodies and of calls
// across the book, sorted.
func (b *Book) FootnoteRefs() (bodies, calls []string) {
	seenBodies := map[string]bool{}
	seenCalls := map[string]bool{}
	for _, r := range b.Report() {
		for _, ref := range r.Footnotes {
			seenBodies[ref] = true
		}
		for _, ref := range r.Calls {
			seenCalls[ref] = true
		}
	}
	return sortedKeys(seenBodies), sortedKeys(seenCalls)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
