package css

import (
	"fmt"
	"strconv"
	"strings"
)

// CSSSelector represents a parsed selector list.
type CSSSelector struct {
	// A selector is a list of complex selectors separated by commas
	ComplexSelectors []*ComplexSelector
}

// ComplexSelector is a chain of compound selectors separated by combinators.
type ComplexSelector struct {
	Compounds []*CompoundSelector
}

// CompoundSelector is a sequence of simple selectors.
type CompoundSelector struct {
	TypeSelector      string // "" when absent, "*" for universal
	IDSelectors       []string
	ClassSelectors    []string
	AttributeMatchers []*AttributeMatcher
	PseudoClasses     []*PseudoClassSelector
	PseudoElement     *PseudoElementSelector
	Combinator        CombinatorType // Combinator following this compound selector
}

// CombinatorType represents the type of combinator.
type CombinatorType int

const (
	CombinatorNone              CombinatorType = iota
	CombinatorDescendant                       // (whitespace)
	CombinatorChild                            // >
	CombinatorNextSibling                      // +
	CombinatorSubsequentSibling                // ~
)

// AttributeMatcher represents an attribute selector.
type AttributeMatcher struct {
	Name     string
	Operator AttributeOperator
	Value    string
}

// AttributeOperator represents the operator in an attribute selector.
type AttributeOperator int

const (
	AttrExists    AttributeOperator = iota // [attr]
	AttrEquals                             // [attr=value]
	AttrIncludes                           // [attr~=value]
	AttrDashMatch                          // [attr|=value]
	AttrPrefix                             // [attr^=value]
	AttrSuffix                             // [attr$=value]
	AttrSubstring                          // [attr*=value]
)

var attrOperatorText = map[AttributeOperator]string{
	AttrEquals:    "=",
	AttrIncludes:  "~=",
	AttrDashMatch: "|=",
	AttrPrefix:    "^=",
	AttrSuffix:    "$=",
	AttrSubstring: "*=",
}

// PseudoClassSelector represents a pseudo-class.
type PseudoClassSelector struct {
	Name     string
	Selector *CSSSelector // argument of :not()
}

// PseudoElementSelector represents a pseudo-element.
type PseudoElementSelector struct {
	Name string
}

// SelectorParser parses CSS selectors.
type SelectorParser struct {
	tokens []Token
	pos    int
}

// ParseSelector parses a CSS selector string.
func ParseSelector(input string) (*CSSSelector, error) {
	return ParseSelectorFromTokens(Tokenize(input))
}

// ParseSelectorFromTokens parses a selector from tokens.
func ParseSelectorFromTokens(tokens []Token) (*CSSSelector, error) {
	parser := &SelectorParser{tokens: trimWhitespace(tokens)}
	return parser.parseSelector()
}

func (p *SelectorParser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *SelectorParser) consume() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *SelectorParser) skipWhitespace() bool {
	skipped := false
	for p.current().Type == TokenWhitespace {
		p.pos++
		skipped = true
	}
	return skipped
}

func (p *SelectorParser) parseSelector() (*CSSSelector, error) {
	sel := &CSSSelector{}
	for {
		p.skipWhitespace()
		complex, err := p.parseComplexSelector()
		if err != nil {
			return nil, err
		}
		sel.ComplexSelectors = append(sel.ComplexSelectors, complex)
		p.skipWhitespace()
		tok := p.current()
		if tok.Type == TokenEOF || tok.Type == TokenCloseParen {
			break
		}
		if tok.Type != TokenComma {
			return nil, fmt.Errorf("unexpected token %v in selector", tok)
		}
		p.consume()
	}
	return sel, nil
}

func (p *SelectorParser) parseComplexSelector() (*ComplexSelector, error) {
	complex := &ComplexSelector{}
	for {
		compound, err := p.parseCompoundSelector()
		if err != nil {
			return nil, err
		}
		complex.Compounds = append(complex.Compounds, compound)

		sawSpace := p.skipWhitespace()
		tok := p.current()
		switch {
		case tok.Type == TokenEOF || tok.Type == TokenComma || tok.Type == TokenCloseParen:
			return complex, nil
		case tok.Type == TokenDelim && tok.Delim == '>':
			compound.Combinator = CombinatorChild
			p.consume()
		case tok.Type == TokenDelim && tok.Delim == '+':
			compound.Combinator = CombinatorNextSibling
			p.consume()
		case tok.Type == TokenDelim && tok.Delim == '~':
			compound.Combinator = CombinatorSubsequentSibling
			p.consume()
		case sawSpace:
			compound.Combinator = CombinatorDescendant
		default:
			return nil, fmt.Errorf("unexpected token %v in selector", tok)
		}
		p.skipWhitespace()
	}
}

func (p *SelectorParser) parseCompoundSelector() (*CompoundSelector, error) {
	compound := &CompoundSelector{}
	empty := true

	tok := p.current()
	if tok.Type == TokenIdent {
		compound.TypeSelector = strings.ToLower(p.consume().Value)
		empty = false
	} else if tok.Type == TokenDelim && tok.Delim == '*' {
		p.consume()
		compound.TypeSelector = "*"
		empty = false
	}

	for {
		tok = p.current()
		switch {
		case tok.Type == TokenHash:
			p.consume()
			compound.IDSelectors = append(compound.IDSelectors, tok.Value)
		case tok.Type == TokenDelim && tok.Delim == '.':
			p.consume()
			name := p.consume()
			if name.Type != TokenIdent {
				return nil, fmt.Errorf("expected class name after '.', got %v", name)
			}
			compound.ClassSelectors = append(compound.ClassSelectors, name.Value)
		case tok.Type == TokenOpenSquare:
			p.consume()
			attr, err := p.parseAttributeSelector()
			if err != nil {
				return nil, err
			}
			compound.AttributeMatchers = append(compound.AttributeMatchers, attr)
		case tok.Type == TokenColon:
			p.consume()
			if p.current().Type == TokenColon {
				p.consume()
				name := p.consume()
				if name.Type != TokenIdent {
					return nil, fmt.Errorf("expected pseudo-element name, got %v", name)
				}
				compound.PseudoElement = &PseudoElementSelector{Name: strings.ToLower(name.Value)}
			} else if err := p.parsePseudoClass(compound); err != nil {
				return nil, err
			}
		default:
			if empty {
				return nil, fmt.Errorf("expected selector, got %v", tok)
			}
			return compound, nil
		}
		empty = false
	}
}

func (p *SelectorParser) parseAttributeSelector() (*AttributeMatcher, error) {
	p.skipWhitespace()
	name := p.consume()
	if name.Type != TokenIdent {
		return nil, fmt.Errorf("expected attribute name, got %v", name)
	}
	attr := &AttributeMatcher{Name: strings.ToLower(name.Value), Operator: AttrExists}
	p.skipWhitespace()

	tok := p.consume()
	if tok.Type == TokenCloseSquare {
		return attr, nil
	}
	if tok.Type != TokenDelim {
		return nil, fmt.Errorf("unexpected token %v in attribute selector", tok)
	}
	switch tok.Delim {
	case '=':
		attr.Operator = AttrEquals
	case '~', '|', '^', '$', '*':
		eq := p.consume()
		if eq.Type != TokenDelim || eq.Delim != '=' {
			return nil, fmt.Errorf("expected '=' in attribute selector")
		}
		attr.Operator = map[rune]AttributeOperator{
			'~': AttrIncludes, '|': AttrDashMatch, '^': AttrPrefix, '$': AttrSuffix, '*': AttrSubstring,
		}[tok.Delim]
	default:
		return nil, fmt.Errorf("unexpected %q in attribute selector", tok.Delim)
	}
	p.skipWhitespace()
	value := p.consume()
	switch value.Type {
	case TokenIdent, TokenString:
		attr.Value = value.Value
	case TokenNumber:
		attr.Value = value.Value
	default:
		return nil, fmt.Errorf("expected attribute value, got %v", value)
	}
	p.skipWhitespace()
	if end := p.consume(); end.Type != TokenCloseSquare {
		return nil, fmt.Errorf("expected ']' in attribute selector, got %v", end)
	}
	return attr, nil
}

// legacyPseudoElements may be written with a single colon.
var legacyPseudoElements = map[string]bool{
	"before": true, "after": true, "first-line": true, "first-letter": true,
}

func (p *SelectorParser) parsePseudoClass(compound *CompoundSelector) error {
	tok := p.consume()
	switch tok.Type {
	case TokenIdent:
		name := strings.ToLower(tok.Value)
		if legacyPseudoElements[name] {
			compound.PseudoElement = &PseudoElementSelector{Name: name}
			return nil
		}
		compound.PseudoClasses = append(compound.PseudoClasses, &PseudoClassSelector{Name: name})
		return nil
	case TokenFunction:
		name := strings.ToLower(tok.Value)
		if name != "not" {
			return fmt.Errorf("unsupported pseudo-class :%s()", name)
		}
		arg, err := p.parseSelector()
		if err != nil {
			return err
		}
		if end := p.consume(); end.Type != TokenCloseParen {
			return fmt.Errorf("expected ')' after :not argument")
		}
		compound.PseudoClasses = append(compound.PseudoClasses, &PseudoClassSelector{Name: name, Selector: arg})
		return nil
	}
	return fmt.Errorf("expected pseudo-class name, got %v", tok)
}

// String serializes the selector list.
func (s *CSSSelector) String() string {
	parts := make([]string, len(s.ComplexSelectors))
	for i, c := range s.ComplexSelectors {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func (cs *ComplexSelector) String() string {
	var sb strings.Builder
	for _, c := range cs.Compounds {
		sb.WriteString(c.String())
		switch c.Combinator {
		case CombinatorDescendant:
			sb.WriteString(" ")
		case CombinatorChild:
			sb.WriteString(" > ")
		case CombinatorNextSibling:
			sb.WriteString(" + ")
		case CombinatorSubsequentSibling:
			sb.WriteString(" ~ ")
		}
	}
	return sb.String()
}

func (c *CompoundSelector) String() string {
	var sb strings.Builder
	sb.WriteString(c.TypeSelector)
	for _, id := range c.IDSelectors {
		sb.WriteString("#" + id)
	}
	for _, class := range c.ClassSelectors {
		sb.WriteString("." + class)
	}
	for _, a := range c.AttributeMatchers {
		sb.WriteString("[" + a.Name)
		if a.Operator != AttrExists {
			sb.WriteString(attrOperatorText[a.Operator])
			sb.WriteString(strconv.Quote(a.Value))
		}
		sb.WriteString("]")
	}
	for _, pc := range c.PseudoClasses {
		if pc.Selector != nil {
			sb.WriteString(":" + pc.Name + "(" + pc.Selector.String() + ")")
		} else {
			sb.WriteString(":" + pc.Name)
		}
	}
	if c.PseudoElement != nil {
		sb.WriteString("::" + c.PseudoElement.Name)
	}
	if sb.Len() == 0 {
		return "*"
	}
	return sb.String()
}

// Subject returns the rightmost compound, the one matched against the element.
func (cs *ComplexSelector) Subject() *CompoundSelector {
	return cs.Compounds[len(cs.Compounds)-1]
}

// PseudoElement returns the pseudo-element the selector targets, or "".
func (cs *ComplexSelector) PseudoElement() string {
	if pe := cs.Subject().PseudoElement; pe != nil {
		return pe.Name
	}
	return ""
}

// Specificity is a selector specificity (ids, classes, types).
type Specificity [3]int

// Compare returns -1, 0 or 1.
func (s Specificity) Compare(other Specificity) int {
	for i := 0; i < 3; i++ {
		if s[i] < other[i] {
			return -1
		}
		if s[i] > other[i] {
			return 1
		}
	}
	return 0
}

// Less reports whether s is less specific than other.
func (s Specificity) Less(other Specificity) bool {
	return s.Compare(other) < 0
}

// CalculateSpecificity computes the specificity of a complex selector.
func (cs *ComplexSelector) CalculateSpecificity() Specificity {
	var spec Specificity
	for _, c := range cs.Compounds {
		spec[0] += len(c.IDSelectors)
		spec[1] += len(c.ClassSelectors) + len(c.AttributeMatchers)
		for _, pc := range c.PseudoClasses {
			if pc.Name == "not" && pc.Selector != nil {
				best := Specificity{}
				for _, inner := range pc.Selector.ComplexSelectors {
					if s := inner.CalculateSpecificity(); best.Less(s) {
						best = s
					}
				}
				for i := range spec {
					spec[i] += best[i]
				}
				continue
			}
			spec[1]++
		}
		if c.TypeSelector != "" && c.TypeSelector != "*" {
			spec[2]++
		}
		if c.PseudoElement != nil {
			spec[2]++
		}
	}
	return spec
}
