package css

import (
	"strings"

	"github.com/chrisuehlinger/folio/dom"
)

// MatchElement reports whether any selector in the list matches the element,
// ignoring pseudo-elements.
func (s *CSSSelector) MatchElement(el *dom.Element) bool {
	for _, complex := range s.ComplexSelectors {
		if complex.MatchElement(el) {
			return true
		}
	}
	return false
}

// MatchElement matches a complex selector right to left.
func (cs *ComplexSelector) MatchElement(el *dom.Element) bool {
	return matchFrom(cs.Compounds, len(cs.Compounds)-1, el)
}

func matchFrom(compounds []*CompoundSelector, i int, el *dom.Element) bool {
	if !compounds[i].MatchElement(el) {
		return false
	}
	if i == 0 {
		return true
	}
	prev := compounds[i-1]
	switch prev.Combinator {
	case CombinatorDescendant:
		for p := el.AsNode().ParentElement(); p != nil; p = p.AsNode().ParentElement() {
			if matchFrom(compounds, i-1, p) {
				return true
			}
		}
		return false
	case CombinatorChild:
		p := el.AsNode().ParentElement()
		return p != nil && matchFrom(compounds, i-1, p)
	case CombinatorNextSibling:
		s := previousElementSibling(el)
		return s != nil && matchFrom(compounds, i-1, s)
	case CombinatorSubsequentSibling:
		for s := previousElementSibling(el); s != nil; s = previousElementSibling(s) {
			if matchFrom(compounds, i-1, s) {
				return true
			}
		}
		return false
	}
	return false
}

func previousElementSibling(el *dom.Element) *dom.Element {
	for s := el.AsNode().PreviousSibling(); s != nil; s = s.PreviousSibling() {
		if e := s.AsElement(); e != nil {
			return e
		}
	}
	return nil
}

// MatchElement matches a compound selector against a single element.
func (c *CompoundSelector) MatchElement(el *dom.Element) bool {
	if c.TypeSelector != "" && c.TypeSelector != "*" && c.TypeSelector != el.LocalName() {
		return false
	}
	for _, id := range c.IDSelectors {
		if el.Id() != id {
			return false
		}
	}
	for _, class := range c.ClassSelectors {
		if !el.HasClass(class) {
			return false
		}
	}
	for _, attr := range c.AttributeMatchers {
		if !matchAttributeSelector(attr, el) {
			return false
		}
	}
	for _, pc := range c.PseudoClasses {
		if !matchPseudoClass(pc, el) {
			return false
		}
	}
	return true
}

func matchAttributeSelector(attr *AttributeMatcher, el *dom.Element) bool {
	value, ok := el.LookupAttribute(attr.Name)
	if !ok {
		return false
	}
	switch attr.Operator {
	case AttrExists:
		return true
	case AttrEquals:
		return value == attr.Value
	case AttrIncludes:
		for _, v := range strings.Fields(value) {
			if v == attr.Value {
				return true
			}
		}
		return false
	case AttrDashMatch:
		return value == attr.Value || strings.HasPrefix(value, attr.Value+"-")
	case AttrPrefix:
		return attr.Value != "" && strings.HasPrefix(value, attr.Value)
	case AttrSuffix:
		return attr.Value != "" && strings.HasSuffix(value, attr.Value)
	case AttrSubstring:
		return attr.Value != "" && strings.Contains(value, attr.Value)
	}
	return false
}

func matchPseudoClass(pc *PseudoClassSelector, el *dom.Element) bool {
	switch pc.Name {
	case "first-child":
		return previousElementSibling(el) == nil
	case "last-child":
		return el.NextElementSibling() == nil
	case "only-child":
		return previousElementSibling(el) == nil && el.NextElementSibling() == nil
	case "empty":
		return !el.AsNode().HasChildNodes()
	case "root":
		p := el.AsNode().ParentNode()
		return p != nil && p.NodeType() == dom.DocumentNode
	case "not":
		return pc.Selector != nil && !pc.Selector.MatchElement(el)
	}
	return false
}

// QuerySelectorAll returns all descendants of root matching the selector,
// in tree order.
func QuerySelectorAll(root *dom.Node, selector string) ([]*dom.Element, error) {
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	var results []*dom.Element
	root.Walk(func(n *dom.Node) bool {
		if el := n.AsElement(); el != nil && sel.MatchElement(el) {
			results = append(results, el)
		}
		return true
	})
	return results, nil
}

// QuerySelector returns the first descendant of root matching the selector.
func QuerySelector(root *dom.Node, selector string) (*dom.Element, error) {
	all, err := QuerySelectorAll(root, selector)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}
