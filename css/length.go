package css

import (
	"strings"
)

// DefaultFontSize is the initial font size in px.
const DefaultFontSize = 16.0

// ResolveLength converts a value and unit to px.
func ResolveLength(value float64, unit string, fontSize, rootFontSize float64) float64 {
	switch strings.ToLower(unit) {
	case "px", "":
		return value
	case "em":
		return value * fontSize
	case "rem":
		return value * rootFontSize
	case "ex", "ch":
		return value * fontSize / 2
	case "pt":
		return value * 96 / 72
	case "pc":
		return value * 16
	case "in":
		return value * 96
	case "cm":
		return value * 96 / 2.54
	case "mm":
		return value * 96 / 25.4
	case "q":
		return value * 96 / 101.6
	}
	return 0
}

// ParseLength parses a single length value in px. Unitless zero is
// accepted; keywords such as auto and percentages report false.
func ParseLength(value string, fontSize, rootFontSize float64) (float64, bool) {
	tokens := trimWhitespace(Tokenize(value))
	if len(tokens) != 1 {
		return 0, false
	}
	tok := tokens[0]
	switch tok.Type {
	case TokenDimension:
		switch tok.Unit {
		case "px", "em", "rem", "ex", "ch", "pt", "pc", "in", "cm", "mm", "q":
			return ResolveLength(tok.NumValue, tok.Unit, fontSize, rootFontSize), true
		}
	case TokenNumber:
		if tok.NumValue == 0 {
			return 0, true
		}
	}
	return 0, false
}

// ParseNumber parses a bare number.
func ParseNumber(value string) (float64, bool) {
	tokens := trimWhitespace(Tokenize(value))
	if len(tokens) != 1 || tokens[0].Type != TokenNumber {
		return 0, false
	}
	return tokens[0].NumValue, true
}

// PageSizes maps named page sizes to width and height in px.
var PageSizes = map[string][2]float64{
	"a3":     {1122.52, 1587.4},
	"a4":     {793.7, 1122.52},
	"a5":     {559.37, 793.7},
	"b5":     {665.2, 944.88},
	"letter": {816, 1056},
	"legal":  {816, 1344},
}

// ParsePageSize parses the value of the @page size descriptor. It returns
// false for auto or an unrecognized value.
func ParsePageSize(value string) (width, height float64, ok bool) {
	var lengths []float64
	landscape := false
	named := ""
	for _, tok := range Tokenize(value) {
		switch tok.Type {
		case TokenDimension:
			if l, ok := ParseLength(tok.Text(), DefaultFontSize, DefaultFontSize); ok {
				lengths = append(lengths, l)
			}
		case TokenIdent:
			v := strings.ToLower(tok.Value)
			switch v {
			case "landscape":
				landscape = true
			case "portrait":
			default:
				named = v
			}
		}
	}
	switch {
	case len(lengths) == 1:
		width, height = lengths[0], lengths[0]
	case len(lengths) >= 2:
		width, height = lengths[0], lengths[1]
	case named != "":
		size, found := PageSizes[named]
		if !found {
			return 0, 0, false
		}
		width, height = size[0], size[1]
	default:
		return 0, 0, false
	}
	if landscape && width < height {
		width, height = height, width
	}
	return width, height, true
}
