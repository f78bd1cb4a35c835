// Package footnotes places CSS footnotes in the footnote area of the page
// they are called from. An element styled float: footnote leaves a call in
// the text and moves its body to the bottom of the page; bodies that do not
// fit continue on the following pages.
package footnotes

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/chrisuehlinger/folio/css"
	"github.com/chrisuehlinger/folio/dom"
	"github.com/chrisuehlinger/folio/paged"
)

// CallClassSuffix is appended to each class of a footnote to name the class
// of its call.
const CallClassSuffix = "_footnote-call"

// ErrMissingFootnoteArea is returned for a page without a complete footnote
// area.
var ErrMissingFootnoteArea = errors.New("footnotes: page has no footnote area")

// Measurer answers geometry questions about laid out nodes.
type Measurer interface {
	BoundingRect(n *dom.Node) *dom.DOMRect
	Geometry(el *dom.Element) dom.ElementGeometry
	FindOverflow(root *dom.Element, bounds *dom.DOMRect) *dom.Range
}

// Handler is the footnote handler. It is not safe for concurrent use; each
// render needs its own Handler.
type Handler struct {
	measure   Measurer
	log       *slog.Logger
	selectors []string
	queue     Queue
}

// New creates a handler measuring with m. A nil logger discards output.
func New(m Measurer, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{measure: m, log: log}
}

// Selectors returns the selectors recorded from float: footnote.
func (h *Handler) Selectors() []string {
	return h.selectors
}

// Pending returns the number of fragments waiting for a later page.
func (h *Handler) Pending() int {
	return h.queue.Len()
}

// OnDeclaration records the selector of a float: footnote declaration and
// removes the declaration.
func (h *Handler) OnDeclaration(decl *css.Declaration, rule *css.StyleRule) bool {
	if decl.Property != "float" || decl.FirstIdent() != "footnote" {
		return false
	}
	h.selectors = append(h.selectors, rule.SelectorText())
	return true
}

// OnPseudoSelector rewrites ::footnote-marker to ::before on bodies and
// ::footnote-call to ::after on calls.
func (h *Handler) OnPseudoSelector(pseudo *css.PseudoElementSelector, _ *css.CompoundSelector, rule *css.StyleRule) {
	switch pseudo.Name {
	case "footnote-marker":
		pseudo.Name = "before"
		eachCompound(rule, func(c *css.CompoundSelector) {
			if len(c.ClassSelectors) == 0 || hasAttributeMatcher(c, "data-footnote-marker") {
				return
			}
			c.AttributeMatchers = append(c.AttributeMatchers, &css.AttributeMatcher{
				Name:     "data-footnote-marker",
				Operator: css.AttrExists,
			})
		})
	case "footnote-call":
		pseudo.Name = "after"
		eachCompound(rule, func(c *css.CompoundSelector) {
			for i, class := range c.ClassSelectors {
				if !strings.HasSuffix(class, CallClassSuffix) {
					c.ClassSelectors[i] = class + CallClassSuffix
				}
			}
		})
	}
}

func eachCompound(rule *css.StyleRule, fn func(*css.CompoundSelector)) {
	for _, complex := range rule.Selector.ComplexSelectors {
		for _, c := range complex.Compounds {
			fn(c)
		}
	}
}

func hasAttributeMatcher(c *css.CompoundSelector, name string) bool {
	for _, m := range c.AttributeMatchers {
		if m.Name == name {
			return true
		}
	}
	return false
}

// AfterParsed marks the elements matched by the recorded selectors.
func (h *Handler) AfterParsed(doc *dom.Document) error {
	n, err := MarkFootnotes(doc.AsNode(), h.selectors)
	if err != nil {
		h.log.Warn("footnote selector skipped", "err", err)
	}
	h.log.Debug("footnotes marked", "count", n)
	return nil
}

// MarkFootnotes tags every element under root matched by one of the
// selectors as a footnote and flags the ancestor that is rendered together
// with it. It returns the number of elements marked; selectors that do not
// parse are skipped and reported in the error.
func MarkFootnotes(root *dom.Node, selectors []string) (int, error) {
	var errs []error
	n := 0
	for _, sel := range selectors {
		elements, err := css.QuerySelectorAll(root, sel)
		if err != nil {
			errs = append(errs, fmt.Errorf("selector %q: %w", sel, err))
			continue
		}
		for _, el := range elements {
			el.SetAttribute("data-note", "footnote")
			el.SetAttribute("data-break-before", "avoid")
			flagContainer(el)
			n++
		}
	}
	return n, errors.Join(errs...)
}

// flagContainer walks up from a footnote to the first structural
// container and flags the last element below it. Without a container the
// topmost ancestor is flagged.
func flagContainer(el *dom.Element) {
	var prev *dom.Element
	for parent := el.AsNode().ParentElement(); parent != nil; parent = parent.AsNode().ParentElement() {
		if dom.IsContainer(parent) {
			break
		}
		prev = parent
	}
	if prev != nil {
		prev.SetAttribute("data-has-notes", "true")
	}
}

// RenderNode places the footnotes of a node that starts inside the content
// column of the page.
func (h *Handler) RenderNode(page *paged.Page, node *dom.Node) error {
	el := node.AsElement()
	if el == nil {
		return nil
	}
	var notes []*dom.Element
	switch {
	case el.GetAttribute("data-note") == "footnote":
		notes = []*dom.Element{el}
	case el.HasAttribute("data-has-notes"):
		notes = el.FindAll(dom.ByAttribute("data-note", "footnote"))
	}
	if len(notes) == 0 {
		return nil
	}
	return h.placeVisible(page, notes)
}

func (h *Handler) placeVisible(page *paged.Page, notes []*dom.Element) error {
	area := h.measure.BoundingRect(page.Content.AsNode())
	right := area.Left() + area.Width
	for _, note := range notes {
		if h.measure.BoundingRect(note.AsNode()).Left() < right {
			if err := h.placeFootnote(note, page, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func footnoteArea(page *paged.Page) (*paged.FootnoteArea, error) {
	fa := &page.Footnotes
	if fa.Element == nil || fa.Content == nil || fa.InnerContent == nil {
		return nil, fmt.Errorf("%w: page %d", ErrMissingFootnoteArea, page.Index)
	}
	return fa, nil
}

// placeFootnote moves node into the footnote area of page and sets the
// height reserved for the area.
func (h *Handler) placeFootnote(node *dom.Element, page *paged.Page, needsCall bool) error {
	fa, err := footnoteArea(page)
	if err != nil {
		return err
	}
	ref := node.GetAttribute("data-ref")
	if fa.InnerContent.Find(dom.ByAttribute("data-ref", ref)) != nil {
		node.Remove()
		h.log.Debug("duplicate footnote dropped", "ref", ref, "page", page.Number())
		return nil
	}
	node.RemoveAttribute("data-break-before")

	var call *dom.Element
	if needsCall {
		call = createCall(node)
	}
	fa.InnerContent.AsNode().AppendChild(node.AsNode())
	node.SetAttribute("data-footnote-marker", ref)

	m := h.measure
	g := m.Geometry(fa.Content)
	height := g.ScrollHeight
	total := g.VerticalEdges()
	content := m.BoundingRect(page.Content.AsNode())
	right := content.Left() + content.Width
	areaRect := m.BoundingRect(fa.Element.AsNode())
	contentDelta := height + total - areaRect.Height

	var callRect *dom.DOMRect
	noteDelta := 0.0
	if call != nil {
		callRect = m.BoundingRect(call.AsNode())
		noteDelta = areaRect.Top() - callRect.Bottom()
	}

	switch {
	case call != nil && callRect.Left() > right:
		node.Remove()
		h.log.Debug("footnote call off page", "ref", ref, "page", page.Number())
	case call != nil && total > noteDelta:
		fa.ReservedHeight = 0
		frag := node.AsNode().OwnerDocument().CreateDocumentFragment()
		frag.AsNode().AppendChild(node.AsNode())
		h.queue.Push(frag)
		h.log.Debug("footnote deferred", "ref", ref, "page", page.Number(), "noteDelta", noteDelta, "total", total)
	case call == nil:
		fa.ReservedHeight = height + total
	case callRect.Bottom() < areaRect.Top()-contentDelta:
		fa.ReservedHeight = height + total
	default:
		fa.ReservedHeight = areaRect.Height + noteDelta
		fa.InnerContent.Style().SetProperty("height", px(max(0, areaRect.Height+noteDelta-total)))
		h.log.Debug("footnote area clamped to call", "ref", ref, "page", page.Number(), "reserved", fa.ReservedHeight)
	}
	return nil
}

// createCall inserts the call of a footnote before it.
func createCall(node *dom.Element) *dom.Element {
	call := node.AsNode().OwnerDocument().CreateElement("span")
	var classes []string
	for _, class := range node.ClassList() {
		classes = append(classes, class+CallClassSuffix)
	}
	if len(classes) > 0 {
		call.SetAttribute("class", strings.Join(classes, " "))
	}
	ref := node.GetAttribute("data-ref")
	call.SetAttribute("data-footnote-call", ref)
	call.SetAttribute("data-ref", ref)
	call.SetAttribute("data-counter-footnote-increment", "1")
	if parent := node.AsNode().ParentNode(); parent != nil {
		parent.InsertBefore(call.AsNode(), node.AsNode())
	}
	return call
}

// AfterPageLayout moves footnote content that overflows the footnote area
// to the queue and asks for a continuation page when the next page would
// not take it.
func (h *Handler) AfterPageLayout(_ *dom.Element, page *paged.Page, token *paged.BreakToken, cloner paged.Cloner) error {
	fa, err := footnoteArea(page)
	if err != nil {
		return err
	}
	m := h.measure
	bounds := m.BoundingRect(fa.Content.AsNode())
	inner := fa.InnerContent
	inner.Style().SetProperty("column-width", px(math.Round(bounds.Width)))
	inner.Style().SetProperty("column-gap", px(page.Margin.Left+page.Margin.Right))

	overflow := m.FindOverflow(inner, bounds)
	if overflow == nil {
		if token == nil && h.queue.Len() > 0 {
			return cloner.ClonePage(page)
		}
		return nil
	}

	startIsNode := false
	if sc := overflow.StartContainer(); sc.IsElement() {
		if start := sc.ChildAt(overflow.StartOffset()); start != nil && start.IsElement() {
			startIsNode = start.AsElement().HasAttribute("data-footnote-marker")
		}
	}
	extracted := overflow.ExtractContents()
	if !startIsNode {
		if split := extracted.FirstElementChild(); split != nil {
			split.SetAttribute("data-split-from", split.GetAttribute("data-ref"))
			h.log.Debug("footnote split", "ref", split.GetAttribute("data-ref"), "page", page.Number())
		}
	}
	h.queue.Push(extracted)

	fa.Content.Style().RemoveProperty("height")
	inner.Style().RemoveProperty("height")
	fa.ReservedHeight = m.BoundingRect(inner.AsNode()).Height + m.Geometry(fa.Content).VerticalEdges()

	if token == nil || hasBreakHint(token.Node) {
		h.log.Debug("continuation page requested", "page", page.Number())
		return cloner.ClonePage(page)
	}
	return nil
}

func hasBreakHint(n *dom.Node) bool {
	el := n.AsElement()
	if el == nil {
		return false
	}
	return el.HasAttribute("data-previous-break-after") || el.HasAttribute("data-break-before")
}

// BeforePageLayout places the queued footnote content on page before any
// new content.
func (h *Handler) BeforePageLayout(page *paged.Page) error {
	for h.queue.Len() > 0 {
		frag := h.queue.Pop()
		for _, child := range frag.ChildNodes() {
			el := child.AsElement()
			if el == nil {
				continue
			}
			if err := h.placeFootnote(el, page, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
