package css

import (
	"sort"
	"strings"

	"github.com/chrisuehlinger/folio/dom"
)

// CascadeOrigin represents the origin of a style rule.
type CascadeOrigin int

const (
	OriginUserAgent CascadeOrigin = iota
	OriginAuthor
)

// Properties maps longhand property names to their cascaded values.
type Properties map[string]string

// Get returns the property value, or def when it is not set.
func (p Properties) Get(name, def string) string {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// MatchedRule is a rule that matched an element, ready to be sorted.
type MatchedRule struct {
	Rule        *StyleRule
	Origin      CascadeOrigin
	Specificity Specificity
}

type originSheet struct {
	sheet  *Stylesheet
	origin CascadeOrigin
}

// Resolver computes cascaded values for elements and their pseudo-elements
// from a user agent sheet, author sheets and inline styles.
type Resolver struct {
	sheets []originSheet
}

// NewResolver creates a resolver preloaded with the user agent sheet.
func NewResolver() *Resolver {
	r := &Resolver{}
	r.sheets = append(r.sheets, originSheet{sheet: UserAgentStylesheet(), origin: OriginUserAgent})
	return r
}

// AddAuthorStylesheet adds an author style sheet. Later sheets win ties.
func (r *Resolver) AddAuthorStylesheet(s *Stylesheet) {
	r.sheets = append(r.sheets, originSheet{sheet: s, origin: OriginAuthor})
}

// AuthorStylesheets returns the author sheets in order.
func (r *Resolver) AuthorStylesheets() []*Stylesheet {
	var sheets []*Stylesheet
	for _, s := range r.sheets {
		if s.origin == OriginAuthor {
			sheets = append(sheets, s.sheet)
		}
	}
	return sheets
}

func (r *Resolver) collectMatchingRules(el *dom.Element, pseudo string) []MatchedRule {
	var matched []MatchedRule
	for _, os := range r.sheets {
		for _, rule := range os.sheet.Rules {
			if ok, spec := matchRuleToElement(rule, el, pseudo); ok {
				matched = append(matched, MatchedRule{Rule: rule, Origin: os.origin, Specificity: spec})
			}
		}
	}
	return matched
}

// matchRuleToElement returns the highest specificity among the rule's
// complex selectors that match the element and pseudo-element.
func matchRuleToElement(rule *StyleRule, el *dom.Element, pseudo string) (bool, Specificity) {
	found := false
	var best Specificity
	for _, complex := range rule.Selector.ComplexSelectors {
		if complex.PseudoElement() != pseudo {
			continue
		}
		if !complex.MatchElement(el) {
			continue
		}
		spec := complex.CalculateSpecificity()
		if !found || best.Less(spec) {
			best = spec
		}
		found = true
	}
	return found, best
}

func sortByPrecedence(rules []MatchedRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Origin != b.Origin {
			return a.Origin < b.Origin
		}
		if c := a.Specificity.Compare(b.Specificity); c != 0 {
			return c < 0
		}
		return a.Rule.Order < b.Rule.Order
	})
}

// Cascade returns the cascaded longhand values for the element, or for one
// of its pseudo-elements when pseudo is "before" or "after". Inline style
// applies to the element itself only.
func (r *Resolver) Cascade(el *dom.Element, pseudo string) Properties {
	rules := r.collectMatchingRules(el, pseudo)
	sortByPrecedence(rules)

	props := Properties{}
	important := Properties{}
	for _, m := range rules {
		for _, decl := range m.Rule.Declarations {
			target := props
			if decl.Important {
				target = important
			}
			applyDeclaration(target, decl)
		}
	}
	if pseudo == "" {
		if inline := el.GetAttribute("style"); inline != "" {
			inlineImportant := Properties{}
			for _, decl := range ParseDeclarations(inline) {
				if decl.Important {
					applyDeclaration(inlineImportant, decl)
				} else {
					applyDeclaration(props, decl)
				}
			}
			for k, v := range inlineImportant {
				important[k] = v
			}
		}
	}
	for k, v := range important {
		props[k] = v
	}
	return props
}

var sides = [4]string{"top", "right", "bottom", "left"}

// applyDeclaration writes a declaration into props, expanding shorthands.
func applyDeclaration(props Properties, decl *Declaration) {
	switch decl.Property {
	case "margin", "padding":
		for i, v := range expandBox(decl.Tokens) {
			props[decl.Property+"-"+sides[i]] = v
		}
	case "border-width":
		for i, v := range expandBox(decl.Tokens) {
			props["border-"+sides[i]+"-width"] = v
		}
	case "border":
		w := borderWidth(decl.Tokens)
		for _, side := range sides {
			props["border-"+side+"-width"] = w
		}
	case "border-top", "border-right", "border-bottom", "border-left":
		props[decl.Property+"-width"] = borderWidth(decl.Tokens)
	case "page-break-before", "page-break-after":
		v := decl.FirstIdent()
		if v == "always" {
			v = "page"
		}
		props[strings.TrimPrefix(decl.Property, "page-")] = v
	default:
		props[decl.Property] = decl.Value()
	}
}

// expandBox expands a 1-4 value box shorthand into top, right, bottom, left.
func expandBox(tokens []Token) [4]string {
	var values []string
	for _, tok := range tokens {
		if tok.Type != TokenWhitespace {
			values = append(values, tok.Text())
		}
	}
	switch len(values) {
	case 0:
		return [4]string{"0", "0", "0", "0"}
	case 1:
		return [4]string{values[0], values[0], values[0], values[0]}
	case 2:
		return [4]string{values[0], values[1], values[0], values[1]}
	case 3:
		return [4]string{values[0], values[1], values[2], values[1]}
	}
	return [4]string{values[0], values[1], values[2], values[3]}
}

var borderKeywordWidths = map[string]string{
	"thin":   "1px",
	"medium": "3px",
	"thick":  "5px",
}

func borderWidth(tokens []Token) string {
	none := false
	for _, tok := range tokens {
		switch tok.Type {
		case TokenDimension:
			return tok.Text()
		case TokenNumber:
			if tok.NumValue == 0 {
				return "0"
			}
		case TokenIdent:
			v := strings.ToLower(tok.Value)
			if w, ok := borderKeywordWidths[v]; ok {
				return w
			}
			if v == "none" || v == "hidden" {
				none = true
			}
		}
	}
	if none {
		return "0"
	}
	return "3px"
}
