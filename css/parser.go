package css

import (
	"fmt"
	"strings"
)

// Stylesheet is a parsed style sheet.
type Stylesheet struct {
	Rules     []*StyleRule
	PageRules []*PageRule
}

// StyleRule is a qualified rule: a selector list and its declarations.
type StyleRule struct {
	Selector     *CSSSelector
	Declarations []*Declaration
	// Order is the position of the rule in its sheet, used as the cascade
	// tie breaker.
	Order int
}

// SelectorText returns the serialized selector of the rule.
func (r *StyleRule) SelectorText() string {
	return r.Selector.String()
}

// PageRule is an @page rule. Footnote holds the declarations of a nested
// @footnote rule.
type PageRule struct {
	Selector     string
	Declarations []*Declaration
	Footnote     []*Declaration
}

// Declaration is a single property declaration.
type Declaration struct {
	Property  string
	Tokens    []Token
	Important bool
}

// Value returns the declaration value as CSS text.
func (d *Declaration) Value() string {
	return TokensText(d.Tokens)
}

// FirstIdent returns the first identifier of the value, lowercased.
func (d *Declaration) FirstIdent() string {
	for _, tok := range d.Tokens {
		switch tok.Type {
		case TokenWhitespace:
			continue
		case TokenIdent:
			return strings.ToLower(tok.Value)
		}
		return ""
	}
	return ""
}

func (d *Declaration) String() string {
	s := d.Property + ": " + d.Value()
	if d.Important {
		s += " !important"
	}
	return s
}

// ParseError describes a rule that could not be parsed. Parsing continues
// past it.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("css: %d:%d: %s", e.Line, e.Column, e.Message)
}

// Parser consumes tokens into rules.
type Parser struct {
	tokens []Token
	pos    int
	order  int
	errors []error
}

// ParseStylesheet parses CSS source text. Rules with invalid selectors are
// dropped and reported in the returned error list; the sheet holds every
// rule that parsed.
func ParseStylesheet(input string) (*Stylesheet, []error) {
	p := &Parser{tokens: Tokenize(input)}
	sheet := &Stylesheet{}
	p.parseRules(sheet, true)
	return sheet, p.errors
}

// ParseDeclarations parses a declaration list such as an inline style attribute.
func ParseDeclarations(input string) []*Declaration {
	return parseDeclarationList(Tokenize(input))
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) consume() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) skipWhitespace() {
	for p.current().Type == TokenWhitespace {
		p.pos++
	}
}

func (p *Parser) parseRules(sheet *Stylesheet, topLevel bool) {
	for {
		p.skipWhitespace()
		tok := p.current()
		switch tok.Type {
		case TokenEOF:
			return
		case TokenCloseCurly:
			if !topLevel {
				return
			}
			p.consume()
		case TokenAtKeyword:
			p.parseAtRule(sheet)
		default:
			p.parseQualifiedRule(sheet)
		}
	}
}

// consumeBlock consumes a {} block and returns its inner tokens. The
// current token must be the opening brace.
func (p *Parser) consumeBlock() []Token {
	p.consume()
	start := p.pos
	depth := 1
	for {
		tok := p.consume()
		switch tok.Type {
		case TokenEOF:
			return p.tokens[start:]
		case TokenOpenCurly:
			depth++
		case TokenCloseCurly:
			depth--
			if depth == 0 {
				return p.tokens[start : p.pos-1]
			}
		}
	}
}

func (p *Parser) parseAtRule(sheet *Stylesheet) {
	at := p.consume()
	var prelude []Token
	for {
		tok := p.current()
		switch tok.Type {
		case TokenEOF:
			return
		case TokenSemicolon:
			p.consume()
			return
		case TokenOpenCurly:
			body := p.consumeBlock()
			p.applyAtRule(sheet, at, prelude, body)
			return
		}
		prelude = append(prelude, p.consume())
	}
}

func (p *Parser) applyAtRule(sheet *Stylesheet, at Token, prelude, body []Token) {
	switch strings.ToLower(at.Value) {
	case "page":
		sheet.PageRules = append(sheet.PageRules, parsePageRule(TokensText(prelude), body))
	case "media":
		media := strings.ToLower(TokensText(prelude))
		if media == "" || strings.Contains(media, "print") || strings.Contains(media, "all") {
			inner := &Parser{tokens: body, order: p.order}
			inner.parseRules(sheet, true)
			p.order = inner.order
			p.errors = append(p.errors, inner.errors...)
		}
	}
}

func parsePageRule(selector string, body []Token) *PageRule {
	rule := &PageRule{Selector: selector}
	var decls []Token
	for i := 0; i < len(body); i++ {
		tok := body[i]
		if tok.Type == TokenAtKeyword {
			// Nested margin or footnote rule
			j := i + 1
			for j < len(body) && body[j].Type != TokenOpenCurly && body[j].Type != TokenSemicolon {
				j++
			}
			if j >= len(body) || body[j].Type == TokenSemicolon {
				i = j
				continue
			}
			depth := 0
			k := j
			for ; k < len(body); k++ {
				if body[k].Type == TokenOpenCurly {
					depth++
				} else if body[k].Type == TokenCloseCurly {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			end := k
			if end > len(body) {
				end = len(body)
			}
			if strings.EqualFold(tok.Value, "footnote") {
				rule.Footnote = append(rule.Footnote, parseDeclarationList(body[j+1:end])...)
			}
			i = k
			continue
		}
		decls = append(decls, tok)
	}
	rule.Declarations = parseDeclarationList(decls)
	return rule
}

func (p *Parser) parseQualifiedRule(sheet *Stylesheet) {
	start := p.current()
	var prelude []Token
	for {
		tok := p.current()
		if tok.Type == TokenEOF {
			p.errors = append(p.errors, &ParseError{Line: start.Line, Column: start.Column, Message: "unexpected end of input in rule prelude"})
			return
		}
		if tok.Type == TokenOpenCurly {
			break
		}
		prelude = append(prelude, p.consume())
	}
	body := p.consumeBlock()

	sel, err := ParseSelectorFromTokens(prelude)
	if err != nil {
		p.errors = append(p.errors, &ParseError{Line: start.Line, Column: start.Column, Message: err.Error()})
		return
	}
	sheet.Rules = append(sheet.Rules, &StyleRule{
		Selector:     sel,
		Declarations: parseDeclarationList(body),
		Order:        p.order,
	})
	p.order++
}

func parseDeclarationList(tokens []Token) []*Declaration {
	var decls []*Declaration
	var current []Token
	depth := 0
	flush := func() {
		if d := parseDeclaration(current); d != nil {
			decls = append(decls, d)
		}
		current = nil
	}
	for _, tok := range tokens {
		switch tok.Type {
		case TokenOpenParen, TokenFunction, TokenOpenSquare, TokenOpenCurly:
			depth++
		case TokenCloseParen, TokenCloseSquare, TokenCloseCurly:
			depth--
		case TokenSemicolon:
			if depth <= 0 {
				flush()
				continue
			}
		}
		current = append(current, tok)
	}
	flush()
	return decls
}

func parseDeclaration(tokens []Token) *Declaration {
	i := 0
	for i < len(tokens) && tokens[i].Type == TokenWhitespace {
		i++
	}
	if i >= len(tokens) || tokens[i].Type != TokenIdent {
		return nil
	}
	decl := &Declaration{Property: strings.ToLower(tokens[i].Value)}
	i++
	for i < len(tokens) && tokens[i].Type == TokenWhitespace {
		i++
	}
	if i >= len(tokens) || tokens[i].Type != TokenColon {
		return nil
	}
	value := trimWhitespace(tokens[i+1:])

	// Trailing "! important"
	n := len(value)
	if n >= 2 && value[n-1].Type == TokenIdent && strings.EqualFold(value[n-1].Value, "important") {
		j := n - 2
		for j >= 0 && value[j].Type == TokenWhitespace {
			j--
		}
		if j >= 0 && value[j].Type == TokenDelim && value[j].Delim == '!' {
			decl.Important = true
			value = trimWhitespace(value[:j])
		}
	}
	if len(value) == 0 {
		return nil
	}
	decl.Tokens = append([]Token(nil), value...)
	return decl
}

func trimWhitespace(tokens []Token) []Token {
	for len(tokens) > 0 && tokens[0].Type == TokenWhitespace {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].Type == TokenWhitespace {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// String serializes the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	for _, r := range s.Rules {
		sb.WriteString(r.SelectorText())
		sb.WriteString(" { ")
		for _, d := range r.Declarations {
			sb.WriteString(d.String())
			sb.WriteString("; ")
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}
