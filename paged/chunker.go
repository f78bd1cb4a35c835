// Package paged splits a source document into pages and drives the hooks
// of pagination handlers such as footnote placement.
package paged

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/chrisuehlinger/folio/css"
	"github.com/chrisuehlinger/folio/dom"
	"github.com/chrisuehlinger/folio/layout"
)

var (
	// ErrTooManyPages is returned when a render exceeds Options.MaxPages.
	ErrTooManyPages = errors.New("paged: page limit exceeded")
	// ErrNoBody is returned for a source document without a body element.
	ErrNoBody = errors.New("paged: document has no body")
	// ErrUsed is returned when Render is called twice on a chunker.
	ErrUsed = errors.New("paged: chunker already rendered")
)

// Options configure a Chunker. Zero values select the defaults.
type Options struct {
	// Width and Height are the page size in px when no @page size is set.
	Width, Height float64
	// Margin is the page margin in px when no @page margin is set.
	Margin float64
	// MaxPages bounds the number of pages, continuation pages included.
	MaxPages int
	Logger   *slog.Logger
}

const (
	defaultMargin   = 72
	defaultMaxPages = 500
)

// origin maps a node of a page back to the source. Offset is the byte
// offset in the source text a text copy starts at.
type origin struct {
	node   *dom.Node
	offset int
}

// Chunker renders a source document into a Book. A Chunker renders one
// document and is not safe for concurrent use.
type Chunker struct {
	opts     Options
	log      *slog.Logger
	handlers []Handler
	styles   *css.Resolver
	engine   *layout.Engine

	width, height  float64
	margin         layout.EdgeSizes
	resetFootnotes bool

	body      *dom.Node
	book      *dom.Document
	pages     []*Page
	byElement map[*dom.Element]*Page
	byRef     map[string]*dom.Element
	origins   map[*dom.Node]origin

	counter int
	numbers map[string]string
	used    bool
}

// New creates a chunker.
func New(opts Options) *Chunker {
	if opts.Width <= 0 || opts.Height <= 0 {
		a5 := css.PageSizes["a5"]
		opts.Width, opts.Height = a5[0], a5[1]
	}
	if opts.Margin < 0 {
		opts.Margin = 0
	} else if opts.Margin == 0 {
		opts.Margin = defaultMargin
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Chunker{
		opts:      opts,
		log:       log,
		styles:    css.NewResolver(),
		width:     opts.Width,
		height:    opts.Height,
		margin:    layout.EdgeSizes{Top: opts.Margin, Right: opts.Margin, Bottom: opts.Margin, Left: opts.Margin},
		byElement: make(map[*dom.Element]*Page),
		byRef:     make(map[string]*dom.Element),
		origins:   make(map[*dom.Node]origin),
		numbers:   make(map[string]string),
	}
	c.engine = layout.NewEngine(c.styles, c)
	return c
}

// Register adds handlers. Hooks run in registration order.
func (c *Chunker) Register(handlers ...Handler) {
	c.handlers = append(c.handlers, handlers...)
}

// Engine returns the layout engine measuring the pages of this chunker.
func (c *Chunker) Engine() *layout.Engine {
	return c.engine
}

// Styles returns the style resolver holding the processed author sheets.
func (c *Chunker) Styles() *css.Resolver {
	return c.styles
}

// Frame implements layout.FrameSource.
func (c *Chunker) Frame(el *dom.Element) (layout.Frame, bool) {
	p, ok := c.byElement[el]
	if !ok {
		return layout.Frame{}, false
	}
	return p.Frame(), true
}

// Render paginates doc styled by the given author style sheets.
func (c *Chunker) Render(ctx context.Context, doc *dom.Document, sheets ...string) (*Book, error) {
	if c.used {
		return nil, ErrUsed
	}
	c.used = true

	bodyEl := doc.Body()
	if bodyEl == nil {
		return nil, ErrNoBody
	}
	c.body = bodyEl.AsNode()

	c.polish(sheets)
	c.prepare(bodyEl)
	for _, h := range c.handlers {
		if ah, ok := h.(AfterParsedHook); ok {
			if err := ah.AfterParsed(doc); err != nil {
				return nil, fmt.Errorf("after parsed: %w", err)
			}
		}
	}

	c.book = dom.NewHTMLDocument()
	var token *BreakToken
	if first := c.body.FirstChild(); first != nil {
		token = &BreakToken{Node: first}
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := c.addPage()
		if err != nil {
			return nil, err
		}
		page.Start = token
		if err := c.beforeLayout(page); err != nil {
			return nil, err
		}
		next, err := c.renderPage(page, token)
		if err != nil {
			return nil, err
		}
		page.End = next
		if err := c.afterLayout(page, next); err != nil {
			return nil, err
		}
		c.log.Debug("page laid out", "page", page.Number(),
			"reserved", page.Footnotes.ReservedHeight, "done", next == nil)
		if next == nil {
			break
		}
		token = next
	}

	book := &Book{Document: c.book, Pages: c.pages}
	for _, h := range c.handlers {
		if ah, ok := h.(AfterRenderedHook); ok {
			if err := ah.AfterRendered(book); err != nil {
				return nil, fmt.Errorf("after rendered: %w", err)
			}
		}
	}
	c.log.Info("book rendered", "pages", len(c.pages))
	return book, nil
}

// ClonePage implements Cloner.
func (c *Chunker) ClonePage(from *Page) error {
	page, err := c.addPage()
	if err != nil {
		return err
	}
	page.ClonedFrom = from.Index
	for _, class := range from.Element.ClassList() {
		if class != classLeftPage && class != classRightPage {
			page.Element.AddClass(class)
		}
	}
	c.log.Debug("continuation page", "page", page.Number(), "from", from.Number())
	if err := c.beforeLayout(page); err != nil {
		return err
	}
	return c.afterLayout(page, nil)
}

func (c *Chunker) addPage() (*Page, error) {
	if len(c.pages) >= c.opts.MaxPages {
		return nil, fmt.Errorf("%w: %d pages", ErrTooManyPages, c.opts.MaxPages)
	}
	p := newPage(c.book, len(c.pages), c.width, c.height, c.margin)
	c.book.Body().AsNode().AppendChild(p.Element.AsNode())
	c.pages = append(c.pages, p)
	c.byElement[p.Element] = p
	if c.resetFootnotes {
		c.counter = 0
	}
	return p, nil
}

func (c *Chunker) beforeLayout(page *Page) error {
	for _, h := range c.handlers {
		if bh, ok := h.(BeforePageLayoutHook); ok {
			if err := bh.BeforePageLayout(page); err != nil {
				return fmt.Errorf("page %d: before layout: %w", page.Number(), err)
			}
		}
	}
	c.number(page)
	return nil
}

func (c *Chunker) afterLayout(page *Page, next *BreakToken) error {
	c.number(page)
	for _, h := range c.handlers {
		if ah, ok := h.(AfterPageLayoutHook); ok {
			if err := ah.AfterPageLayout(page.Element, page, next, c); err != nil {
				return fmt.Errorf("page %d: after layout: %w", page.Number(), err)
			}
		}
	}
	return nil
}

func (c *Chunker) renderNode(page *Page, n *dom.Node) error {
	for _, h := range c.handlers {
		if rh, ok := h.(RenderNodeHook); ok {
			if err := rh.RenderNode(page, n); err != nil {
				return fmt.Errorf("page %d: render node: %w", page.Number(), err)
			}
		}
	}
	return nil
}

// number gives footnote calls and bodies of a page their counter value.
// A call and its body share the value of their ref.
func (c *Chunker) number(page *Page) {
	assign := func(el *dom.Element, ref string) {
		if el.HasAttribute(counterFootnoteValue) {
			return
		}
		v, ok := c.numbers[ref]
		if !ok {
			c.counter++
			v = strconv.Itoa(c.counter)
			c.numbers[ref] = v
		}
		el.SetAttribute(counterFootnoteValue, v)
	}
	for _, call := range page.Content.FindAll(dom.HasAttr("data-footnote-call")) {
		assign(call, call.GetAttribute("data-footnote-call"))
	}
	for _, note := range page.Footnotes.InnerContent.FindAll(dom.HasAttr("data-footnote-marker")) {
		assign(note, note.GetAttribute("data-footnote-marker"))
	}
}

// pageRenderer copies source nodes onto one page.
type pageRenderer struct {
	c      *Chunker
	page   *Page
	start  *BreakToken
	clones map[*dom.Node]*dom.Node
}

// renderPage places source content from token until the page overflows or
// the source ends, and returns where the next page continues.
func (c *Chunker) renderPage(page *Page, token *BreakToken) (*BreakToken, error) {
	if token == nil {
		return nil, nil
	}
	r := &pageRenderer{
		c:      c,
		page:   page,
		start:  token,
		clones: map[*dom.Node]*dom.Node{c.body: page.Content.AsNode()},
	}
	return r.render()
}

func (r *pageRenderer) render() (*BreakToken, error) {
	c := r.c
	node, offset := r.start.Node, r.start.Offset
	// placed turns true with the first text or inline unit; containers and
	// white space do not hold a forced break back.
	placed := false
	for node != nil {
		if el := node.AsElement(); el != nil && placed && forcesBreak(el) {
			return &BreakToken{Node: node}, nil
		}
		parent := r.parentFor(node.ParentNode())

		descend := false
		var clone *dom.Node
		switch node.NodeType() {
		case dom.TextNode:
			data := node.NodeValue()
			if offset > len(data) {
				offset = len(data)
			}
			clone = c.book.CreateTextNode(data[offset:])
			c.origins[clone] = origin{node: node, offset: offset}
			if strings.TrimSpace(data[offset:]) != "" {
				placed = true
			}
		case dom.ElementNode:
			if dom.IsContainer(node.AsElement()) && node.HasChildNodes() {
				clone = c.book.ImportNode(node, false)
				r.clones[node] = clone
				c.origins[clone] = origin{node: node}
				descend = true
			} else {
				clone = c.book.ImportNode(node, true)
				c.mapOrigins(clone, node)
				placed = true
			}
		default:
			node, offset = node.NextInTree(c.body), 0
			continue
		}
		parent.AppendChild(clone)
		if clone.IsElement() {
			if err := c.renderNode(r.page, clone); err != nil {
				return nil, err
			}
		}
		c.number(r.page)

		if next, ok := r.cut(); ok {
			return next, nil
		}
		if descend {
			node = node.FirstChild()
		} else {
			node = node.NextInTree(c.body)
		}
		offset = 0
	}
	return nil, nil
}

func forcesBreak(el *dom.Element) bool {
	return el.GetAttribute("data-break-before") == "page" ||
		el.GetAttribute("data-previous-break-after") == "page"
}

// parentFor returns the copy of src on this page, copying missing
// ancestors first.
func (r *pageRenderer) parentFor(src *dom.Node) *dom.Node {
	if src == nil || src == r.c.body {
		return r.page.Content.AsNode()
	}
	if cl, ok := r.clones[src]; ok {
		return cl
	}
	parent := r.parentFor(src.ParentNode())
	cl := r.c.book.ImportNode(src, false)
	r.c.origins[cl] = origin{node: src}
	parent.AppendChild(cl)
	r.clones[src] = cl
	return cl
}

// mapOrigins records the source of every node of a deep copy.
func (c *Chunker) mapOrigins(clone, src *dom.Node) {
	c.origins[clone] = origin{node: src}
	for cc, sc := clone.FirstChild(), src.FirstChild(); cc != nil && sc != nil; cc, sc = cc.NextSibling(), sc.NextSibling() {
		c.mapOrigins(cc, sc)
	}
}

// cut removes the content of the page that no longer fits and returns the
// token to continue from. It reports false when everything fits or when
// cutting would not make progress.
func (r *pageRenderer) cut() (*BreakToken, bool) {
	eng := r.c.engine
	content := r.page.Content
	rng := eng.FindOverflow(content, eng.BoundingRect(content.AsNode()))
	if rng == nil {
		return nil, false
	}
	next := r.tokenAt(rng)
	if next == nil || next.Equal(r.start) {
		return nil, false
	}
	frag := rng.ExtractContents()
	r.releaseNotes(frag)
	return next, true
}

// releaseNotes drops the bodies placed on this page whose calls were cut,
// so that they are placed again together with their calls.
func (r *pageRenderer) releaseNotes(frag *dom.DocumentFragment) {
	inner := r.page.Footnotes.InnerContent
	for _, call := range findAll(frag.AsNode(), dom.HasAttr("data-footnote-call")) {
		ref := call.GetAttribute("data-footnote-call")
		if note := inner.Find(dom.ByAttribute("data-footnote-marker", ref)); note != nil {
			note.Remove()
			delete(r.c.numbers, ref)
			r.c.log.Debug("footnote released with its call", "ref", ref, "page", r.page.Number())
		}
	}
}

func findAll(root *dom.Node, match func(*dom.Element) bool) []*dom.Element {
	var out []*dom.Element
	root.Walk(func(n *dom.Node) bool {
		if el := n.AsElement(); el != nil && match(el) {
			out = append(out, el)
		}
		return true
	})
	return out
}

// tokenAt maps the start of an overflow range back to the source.
func (r *pageRenderer) tokenAt(rng *dom.Range) *BreakToken {
	c := r.c
	sc, so := rng.StartContainer(), rng.StartOffset()
	var tok *BreakToken
	switch {
	case sc.NodeType() == dom.TextNode:
		if o, ok := c.origins[sc]; ok {
			tok = &BreakToken{Node: o.node, Offset: o.offset + so}
		}
	case so < sc.ChildCount():
		tok = r.tokenFor(sc.ChildAt(so))
	default:
		tok = r.tokenAfter(sc)
	}
	if tok == nil {
		return nil
	}
	return r.lift(tok)
}

// tokenFor returns the source position of a node of the page, or of the
// first node after it that came from the source.
func (r *pageRenderer) tokenFor(n *dom.Node) *BreakToken {
	c := r.c
	root := r.page.Content.AsNode()
	for cur := n; cur != nil; {
		if o, ok := c.origins[cur]; ok {
			return &BreakToken{Node: o.node, Offset: o.offset}
		}
		if el := cur.AsElement(); el != nil {
			if ref, ok := el.LookupAttribute("data-footnote-call"); ok {
				if note, found := c.byRef[ref]; found {
					return &BreakToken{Node: note.AsNode()}
				}
			}
		}
		if first := cur.FirstChild(); first != nil {
			cur = first
		} else {
			cur = cur.NextInTree(root)
		}
	}
	return nil
}

// tokenAfter returns the source position following everything placed
// inside n.
func (r *pageRenderer) tokenAfter(n *dom.Node) *BreakToken {
	c := r.c
	if last := n.LastChild(); last != nil {
		if o, ok := c.origins[last]; ok {
			if next := o.node.NextInTree(c.body); next != nil {
				return &BreakToken{Node: next}
			}
		}
		return nil
	}
	if o, ok := c.origins[n]; ok {
		if first := o.node.FirstChild(); first != nil {
			return &BreakToken{Node: first}
		}
		if next := o.node.NextInTree(c.body); next != nil {
			return &BreakToken{Node: next}
		}
	}
	return nil
}

// lift moves a token that points inside a footnote body to the body
// itself, unless that would restart the page.
func (r *pageRenderer) lift(tok *BreakToken) *BreakToken {
	for n := tok.Node.ParentNode(); n != nil && n != r.c.body; n = n.ParentNode() {
		el := n.AsElement()
		if el == nil || el.GetAttribute("data-note") != "footnote" {
			continue
		}
		lifted := &BreakToken{Node: n}
		if lifted.Equal(r.start) {
			return tok
		}
		return lifted
	}
	return tok
}
