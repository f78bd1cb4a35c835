// Package css parses author style sheets, matches selectors against the
// document tree and resolves cascaded property values.
// Reference: https://www.w3.org/TR/css-syntax-3/
package css

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TokenType represents the type of a CSS token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenFunction
	TokenAtKeyword
	TokenHash
	TokenString
	TokenNumber
	TokenPercentage
	TokenDimension
	TokenWhitespace
	TokenColon
	TokenSemicolon
	TokenComma
	TokenOpenSquare  // [
	TokenCloseSquare // ]
	TokenOpenParen   // (
	TokenCloseParen  // )
	TokenOpenCurly   // {
	TokenCloseCurly  // }
	TokenDelim
)

// HashType indicates whether a hash token is a valid identifier.
type HashType int

const (
	HashUnrestricted HashType = iota
	HashID
)

// Token represents a CSS token.
type Token struct {
	Type     TokenType
	Value    string  // Identifier, string or raw numeric text
	NumValue float64 // Numeric value for number/percentage/dimension
	Unit     string  // Unit for dimension tokens
	HashType HashType
	Delim    rune
	Line     int
	Column   int
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "<EOF>"
	case TokenIdent:
		return fmt.Sprintf("<IDENT %q>", t.Value)
	case TokenFunction:
		return fmt.Sprintf("<FUNCTION %q>", t.Value)
	case TokenAtKeyword:
		return fmt.Sprintf("<AT-KEYWORD %q>", t.Value)
	case TokenHash:
		return fmt.Sprintf("<HASH %q>", t.Value)
	case TokenString:
		return fmt.Sprintf("<STRING %q>", t.Value)
	case TokenNumber:
		return fmt.Sprintf("<NUMBER %v>", t.NumValue)
	case TokenPercentage:
		return fmt.Sprintf("<PERCENTAGE %v%%>", t.NumValue)
	case TokenDimension:
		return fmt.Sprintf("<DIMENSION %v%s>", t.NumValue, t.Unit)
	case TokenWhitespace:
		return "<WHITESPACE>"
	case TokenDelim:
		return fmt.Sprintf("<DELIM %q>", string(t.Delim))
	}
	return fmt.Sprintf("<%s>", t.Text())
}

// Text returns the token as CSS source text.
func (t Token) Text() string {
	switch t.Type {
	case TokenIdent:
		return t.Value
	case TokenFunction:
		return t.Value + "("
	case TokenAtKeyword:
		return "@" + t.Value
	case TokenHash:
		return "#" + t.Value
	case TokenString:
		return strconv.Quote(t.Value)
	case TokenNumber:
		return t.Value
	case TokenPercentage:
		return t.Value + "%"
	case TokenDimension:
		return t.Value + t.Unit
	case TokenWhitespace:
		return " "
	case TokenColon:
		return ":"
	case TokenSemicolon:
		return ";"
	case TokenComma:
		return ","
	case TokenOpenSquare:
		return "["
	case TokenCloseSquare:
		return "]"
	case TokenOpenParen:
		return "("
	case TokenCloseParen:
		return ")"
	case TokenOpenCurly:
		return "{"
	case TokenCloseCurly:
		return "}"
	case TokenDelim:
		return string(t.Delim)
	}
	return ""
}

// Tokenizer splits CSS source text into tokens. Comments are dropped.
type Tokenizer struct {
	input  []rune
	pos    int
	line   int
	column int
}

// NewTokenizer creates a tokenizer for the given input.
func NewTokenizer(input string) *Tokenizer {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.ReplaceAll(input, "\f", "\n")
	input = strings.ReplaceAll(input, "\r", "\n")
	return &Tokenizer{input: []rune(input), line: 1, column: 1}
}

func (t *Tokenizer) peekN(n int) rune {
	if t.pos+n >= len(t.input) {
		return utf8.RuneError
	}
	return t.input[t.pos+n]
}

func (t *Tokenizer) peek() rune { return t.peekN(0) }

func (t *Tokenizer) eof() bool { return t.pos >= len(t.input) }

func (t *Tokenizer) consume() rune {
	if t.eof() {
		return utf8.RuneError
	}
	r := t.input[t.pos]
	t.pos++
	if r == '\n' {
		t.line++
		t.column = 1
	} else {
		t.column++
	}
	return r
}

func isWhitespace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isNameStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || (r >= 0x80 && r != utf8.RuneError)
}

func isName(r rune) bool { return isNameStart(r) || isDigit(r) || r == '-' }

func (t *Tokenizer) validEscapeAt(n int) bool {
	return t.peekN(n) == '\\' && t.pos+n+1 < len(t.input) && t.peekN(n+1) != '\n'
}

func (t *Tokenizer) startsIdentifierAt(n int) bool {
	r := t.peekN(n)
	switch {
	case r == '-':
		next := t.peekN(n + 1)
		return isNameStart(next) || next == '-' || t.validEscapeAt(n+1)
	case isNameStart(r):
		return true
	case r == '\\':
		return t.validEscapeAt(n)
	}
	return false
}

func (t *Tokenizer) startsNumber() bool {
	r := t.peek()
	switch {
	case r == '+' || r == '-':
		next := t.peekN(1)
		return isDigit(next) || (next == '.' && isDigit(t.peekN(2)))
	case r == '.':
		return isDigit(t.peekN(1))
	}
	return isDigit(r)
}

func (t *Tokenizer) consumeEscape() rune {
	t.consume() // backslash
	if isHexDigit(t.peek()) {
		var hex strings.Builder
		for i := 0; i < 6 && isHexDigit(t.peek()); i++ {
			hex.WriteRune(t.consume())
		}
		if isWhitespace(t.peek()) {
			t.consume()
		}
		v, err := strconv.ParseUint(hex.String(), 16, 32)
		if err != nil || v == 0 || v > utf8.MaxRune {
			return utf8.RuneError
		}
		return rune(v)
	}
	if t.eof() {
		return utf8.RuneError
	}
	return t.consume()
}

func (t *Tokenizer) consumeName() string {
	var sb strings.Builder
	for !t.eof() {
		r := t.peek()
		if isName(r) {
			sb.WriteRune(t.consume())
		} else if t.validEscapeAt(0) {
			sb.WriteRune(t.consumeEscape())
		} else {
			break
		}
	}
	return sb.String()
}

func (t *Tokenizer) consumeNumber() (string, float64) {
	var sb strings.Builder
	if r := t.peek(); r == '+' || r == '-' {
		sb.WriteRune(t.consume())
	}
	for isDigit(t.peek()) {
		sb.WriteRune(t.consume())
	}
	if t.peek() == '.' && isDigit(t.peekN(1)) {
		sb.WriteRune(t.consume())
		for isDigit(t.peek()) {
			sb.WriteRune(t.consume())
		}
	}
	if r := t.peek(); r == 'e' || r == 'E' {
		next := t.peekN(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(t.peekN(2))) {
			sb.WriteRune(t.consume())
			sb.WriteRune(t.consume())
			for isDigit(t.peek()) {
				sb.WriteRune(t.consume())
			}
		}
	}
	text := sb.String()
	v, _ := strconv.ParseFloat(text, 64)
	return text, v
}

func (t *Tokenizer) consumeNumeric(tok Token) Token {
	text, v := t.consumeNumber()
	tok.Value = text
	tok.NumValue = v
	if t.startsIdentifierAt(0) {
		tok.Type = TokenDimension
		tok.Unit = strings.ToLower(t.consumeName())
		return tok
	}
	if t.peek() == '%' {
		t.consume()
		tok.Type = TokenPercentage
		return tok
	}
	tok.Type = TokenNumber
	return tok
}

func (t *Tokenizer) consumeString(end rune, tok Token) Token {
	t.consume() // opening quote
	var sb strings.Builder
	for !t.eof() {
		r := t.peek()
		switch {
		case r == end:
			t.consume()
			tok.Type = TokenString
			tok.Value = sb.String()
			return tok
		case r == '\n':
			// Unterminated string ends at the newline
			tok.Type = TokenString
			tok.Value = sb.String()
			return tok
		case r == '\\':
			if t.peekN(1) == '\n' {
				t.consume()
				t.consume()
				continue
			}
			sb.WriteRune(t.consumeEscape())
		default:
			sb.WriteRune(t.consume())
		}
	}
	tok.Type = TokenString
	tok.Value = sb.String()
	return tok
}

func (t *Tokenizer) consumeIdentLike(tok Token) Token {
	name := t.consumeName()
	if t.peek() == '(' {
		t.consume()
		tok.Type = TokenFunction
		tok.Value = name
		return tok
	}
	tok.Type = TokenIdent
	tok.Value = name
	return tok
}

func (t *Tokenizer) skipComment() bool {
	if t.peek() != '/' || t.peekN(1) != '*' {
		return false
	}
	t.consume()
	t.consume()
	for !t.eof() {
		if t.peek() == '*' && t.peekN(1) == '/' {
			t.consume()
			t.consume()
			return true
		}
		t.consume()
	}
	return true
}

// NextToken returns the next token, or a TokenEOF token at end of input.
func (t *Tokenizer) NextToken() Token {
	for t.skipComment() {
	}
	tok := Token{Line: t.line, Column: t.column}
	if t.eof() {
		tok.Type = TokenEOF
		return tok
	}
	r := t.peek()
	switch {
	case isWhitespace(r):
		for isWhitespace(t.peek()) {
			t.consume()
		}
		tok.Type = TokenWhitespace
		return tok
	case r == '"' || r == '\'':
		return t.consumeString(r, tok)
	case r == '#':
		if isName(t.peekN(1)) || t.validEscapeAt(1) {
			t.consume()
			if t.startsIdentifierAt(0) {
				tok.HashType = HashID
			}
			tok.Type = TokenHash
			tok.Value = t.consumeName()
			return tok
		}
	case r == '@':
		if t.startsIdentifierAt(1) {
			t.consume()
			tok.Type = TokenAtKeyword
			tok.Value = t.consumeName()
			return tok
		}
	case t.startsNumber():
		return t.consumeNumeric(tok)
	case t.startsIdentifierAt(0):
		return t.consumeIdentLike(tok)
	}

	t.consume()
	switch r {
	case ':':
		tok.Type = TokenColon
	case ';':
		tok.Type = TokenSemicolon
	case ',':
		tok.Type = TokenComma
	case '[':
		tok.Type = TokenOpenSquare
	case ']':
		tok.Type = TokenCloseSquare
	case '(':
		tok.Type = TokenOpenParen
	case ')':
		tok.Type = TokenCloseParen
	case '{':
		tok.Type = TokenOpenCurly
	case '}':
		tok.Type = TokenCloseCurly
	default:
		tok.Type = TokenDelim
		tok.Delim = r
	}
	return tok
}

// TokenizeAll returns all tokens up to, but not including, EOF.
func (t *Tokenizer) TokenizeAll() []Token {
	var tokens []Token
	for {
		tok := t.NextToken()
		if tok.Type == TokenEOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// Tokenize is a convenience wrapper around NewTokenizer and TokenizeAll.
func Tokenize(input string) []Token {
	return NewTokenizer(input).TokenizeAll()
}

// TokensText serializes tokens back to CSS text.
func TokensText(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(tok.Text())
	}
	return strings.TrimSpace(sb.String())
}
