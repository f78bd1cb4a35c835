package paged

import (
	"strconv"
	"strings"

	"github.com/chrisuehlinger/folio/css"
	"github.com/chrisuehlinger/folio/dom"
	"github.com/chrisuehlinger/folio/layout"
)

// forcedBreaks are the break values that start a new page.
var forcedBreaks = map[string]bool{
	"page": true, "left": true, "right": true, "recto": true, "verso": true, "always": true,
}

// polish parses the author sheets, lets handlers rewrite them and applies
// the @page rules.
func (c *Chunker) polish(sheets []string) {
	for i, text := range sheets {
		sheet, errs := css.ParseStylesheet(text)
		for _, err := range errs {
			c.log.Warn("css parse error", "sheet", i, "err", err)
		}
		for _, rule := range sheet.Rules {
			c.rewriteRule(rule)
		}
		c.styles.AddAuthorStylesheet(sheet)
		for _, pr := range sheet.PageRules {
			c.applyPageRule(pr)
		}
	}
}

func (c *Chunker) rewriteRule(rule *css.StyleRule) {
	kept := rule.Declarations[:0]
	for _, decl := range rule.Declarations {
		removed := false
		for _, h := range c.handlers {
			if dh, ok := h.(DeclarationHook); ok && dh.OnDeclaration(decl, rule) {
				removed = true
			}
		}
		if !removed {
			kept = append(kept, decl)
		}
	}
	rule.Declarations = kept

	for _, complex := range rule.Selector.ComplexSelectors {
		for _, compound := range complex.Compounds {
			if compound.PseudoElement == nil {
				continue
			}
			for _, h := range c.handlers {
				if ph, ok := h.(PseudoSelectorHook); ok {
					ph.OnPseudoSelector(compound.PseudoElement, compound, rule)
				}
			}
		}
	}
}

func (c *Chunker) applyPageRule(pr *css.PageRule) {
	if pr.Selector != "" {
		c.log.Debug("ignoring page selector", "selector", pr.Selector)
		return
	}
	for _, decl := range pr.Declarations {
		switch decl.Property {
		case "size":
			if w, h, ok := css.ParsePageSize(decl.Value()); ok {
				c.width, c.height = w, h
			}
		case "margin":
			if box, ok := parseBox(decl.Value()); ok {
				c.margin = box
			}
		case "margin-top":
			setLength(&c.margin.Top, decl.Value())
		case "margin-right":
			setLength(&c.margin.Right, decl.Value())
		case "margin-bottom":
			setLength(&c.margin.Bottom, decl.Value())
		case "margin-left":
			setLength(&c.margin.Left, decl.Value())
		case "counter-reset":
			if decl.FirstIdent() == "footnote" {
				c.resetFootnotes = true
			}
		}
	}
	if len(pr.Footnote) > 0 {
		sel, err := css.ParseSelector("." + layout.ClassFootnoteContent)
		if err != nil {
			return
		}
		c.styles.AddAuthorStylesheet(&css.Stylesheet{
			Rules: []*css.StyleRule{{Selector: sel, Declarations: pr.Footnote}},
		})
	}
}

func setLength(dst *float64, value string) {
	if v, ok := css.ParseLength(strings.TrimSpace(value), css.DefaultFontSize, css.DefaultFontSize); ok {
		*dst = v
	}
}

// parseBox parses one to four lengths in top, right, bottom, left order.
func parseBox(value string) (layout.EdgeSizes, bool) {
	var v []float64
	for _, field := range strings.Fields(value) {
		l, ok := css.ParseLength(field, css.DefaultFontSize, css.DefaultFontSize)
		if !ok {
			return layout.EdgeSizes{}, false
		}
		v = append(v, l)
	}
	switch len(v) {
	case 1:
		return layout.EdgeSizes{Top: v[0], Right: v[0], Bottom: v[0], Left: v[0]}, true
	case 2:
		return layout.EdgeSizes{Top: v[0], Right: v[1], Bottom: v[0], Left: v[1]}, true
	case 3:
		return layout.EdgeSizes{Top: v[0], Right: v[1], Bottom: v[2], Left: v[1]}, true
	case 4:
		return layout.EdgeSizes{Top: v[0], Right: v[1], Bottom: v[2], Left: v[3]}, true
	}
	return layout.EdgeSizes{}, false
}

// prepare gives every body element a ref and turns break properties into
// the attributes the chunker and handlers read.
func (c *Chunker) prepare(body *dom.Element) {
	n := 0
	body.AsNode().Walk(func(node *dom.Node) bool {
		el := node.AsElement()
		if el == nil {
			return false
		}
		ref, ok := el.LookupAttribute("data-ref")
		if !ok || ref == "" {
			n++
			ref = "r" + strconv.Itoa(n)
			el.SetAttribute("data-ref", ref)
		}
		c.byRef[ref] = el

		props := c.styles.Cascade(el, "")
		if v := breakValue(props, "before"); v != "" {
			el.SetAttribute("data-break-before", v)
		}
		if v := breakValue(props, "after"); v != "" {
			el.SetAttribute("data-break-after", v)
			if forcedBreaks[v] {
				if next := nextElement(node, body.AsNode()); next != nil {
					next.SetAttribute("data-previous-break-after", "page")
				}
			}
		}
		return true
	})
}

func breakValue(props css.Properties, side string) string {
	v := strings.ToLower(props.Get("break-"+side, ""))
	if v == "" || v == "auto" {
		switch strings.ToLower(props.Get("page-break-"+side, "")) {
		case "always":
			v = "page"
		case "avoid":
			v = "avoid"
		case "left", "right":
			v = strings.ToLower(props.Get("page-break-"+side, ""))
		}
	}
	if v == "auto" {
		return ""
	}
	if forcedBreaks[v] {
		return "page"
	}
	return v
}

// nextElement returns the first element after n's subtree in tree order.
func nextElement(n, root *dom.Node) *dom.Element {
	for c := n.NextInTree(root); c != nil; c = c.NextInTree(root) {
		if el := c.AsElement(); el != nil {
			return el
		}
	}
	return nil
}
