package layout

import (
	"strconv"
	"strings"

	"github.com/chrisuehlinger/folio/css"
	"github.com/chrisuehlinger/folio/dom"
)

const rootFontSize = css.DefaultFontSize

// boxStyle holds the computed values layout reads for one element.
type boxStyle struct {
	display string
	margin  EdgeSizes
	border  EdgeSizes
	padding EdgeSizes

	height    float64
	hasHeight bool

	fontSize   float64
	lineHeight float64
	// lineFactor is non-zero when the line height scales with the font
	// size, so that children recompute it from their own font size.
	lineFactor float64

	columnWidth    float64
	hasColumnWidth bool
	columnGap      float64
}

var initialStyle = &boxStyle{
	display:    "block",
	fontSize:   css.DefaultFontSize,
	lineFactor: 1.2,
	lineHeight: 1.2 * css.DefaultFontSize,
}

func (s *boxStyle) isBlock() bool {
	switch s.display {
	case "block", "list-item", "table", "flex", "grid", "flow-root", "table-row":
		return true
	}
	return false
}

func (s *boxStyle) dimensions(content Rect) Dimensions {
	return Dimensions{Content: content, Padding: s.padding, Border: s.border, Margin: s.margin}
}

// horizontalEdges returns the margins, borders and padding on the left and right.
func (s *boxStyle) horizontalEdges() float64 {
	return s.margin.Horizontal() + s.border.Horizontal() + s.padding.Horizontal()
}

func computeStyle(props css.Properties, parent *boxStyle) *boxStyle {
	st := &boxStyle{
		display:    props.Get("display", "inline"),
		fontSize:   parent.fontSize,
		lineFactor: parent.lineFactor,
		lineHeight: parent.lineHeight,
	}
	if v, ok := props["font-size"]; ok {
		if fs, ok := parseFontSize(v, parent.fontSize); ok {
			st.fontSize = fs
		}
	}
	if v, ok := props["line-height"]; ok {
		st.lineFactor, st.lineHeight = parseLineHeight(v, st.fontSize, st.lineFactor, st.lineHeight)
	}
	if st.lineFactor > 0 {
		st.lineHeight = st.lineFactor * st.fontSize
	}

	length := func(name string) float64 {
		l, _ := css.ParseLength(props[name], st.fontSize, rootFontSize)
		return l
	}
	borderLength := func(name string) float64 {
		v := props[name]
		if w, ok := borderKeywords[strings.ToLower(v)]; ok {
			return w
		}
		return max(0, length(name))
	}
	st.margin = EdgeSizes{
		Top: length("margin-top"), Right: length("margin-right"),
		Bottom: length("margin-bottom"), Left: length("margin-left"),
	}
	st.padding = EdgeSizes{
		Top: max(0, length("padding-top")), Right: max(0, length("padding-right")),
		Bottom: max(0, length("padding-bottom")), Left: max(0, length("padding-left")),
	}
	st.border = EdgeSizes{
		Top: borderLength("border-top-width"), Right: borderLength("border-right-width"),
		Bottom: borderLength("border-bottom-width"), Left: borderLength("border-left-width"),
	}
	if h, ok := css.ParseLength(props["height"], st.fontSize, rootFontSize); ok && h >= 0 {
		st.height, st.hasHeight = h, true
	}
	if w, ok := css.ParseLength(props["column-width"], st.fontSize, rootFontSize); ok && w > 0 {
		st.columnWidth, st.hasColumnWidth = w, true
	}
	if g, ok := css.ParseLength(props["column-gap"], st.fontSize, rootFontSize); ok && g > 0 {
		st.columnGap = g
	}
	return st
}

var borderKeywords = map[string]float64{"thin": 1, "medium": 3, "thick": 5}

var fontSizeKeywords = map[string]float64{
	"xx-small": 9, "x-small": 10, "small": 13, "medium": 16,
	"large": 18, "x-large": 24, "xx-large": 32,
}

func parseFontSize(v string, parent float64) (float64, bool) {
	v = strings.TrimSpace(strings.ToLower(v))
	if fs, ok := fontSizeKeywords[v]; ok {
		return fs, true
	}
	switch v {
	case "smaller":
		return parent / 1.2, true
	case "larger":
		return parent * 1.2, true
	}
	if pct, ok := strings.CutSuffix(v, "%"); ok {
		n, err := strconv.ParseFloat(pct, 64)
		if err != nil {
			return 0, false
		}
		return parent * n / 100, true
	}
	fs, ok := css.ParseLength(v, parent, rootFontSize)
	if !ok || fs < 0 {
		return 0, false
	}
	return fs, true
}

func parseLineHeight(v string, fontSize, factor, height float64) (float64, float64) {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "normal" {
		return 1.2, 1.2 * fontSize
	}
	if n, ok := css.ParseNumber(v); ok && n >= 0 {
		return n, n * fontSize
	}
	if pct, ok := strings.CutSuffix(v, "%"); ok {
		if n, err := strconv.ParseFloat(pct, 64); err == nil {
			return 0, fontSize * n / 100
		}
	}
	if l, ok := css.ParseLength(v, fontSize, rootFontSize); ok && l >= 0 {
		return 0, l
	}
	return factor, height
}

// generatedContent returns the text of the ::before or ::after box of el.
// The second result is false when the pseudo-element generates no box.
func (p *pass) generatedContent(el *dom.Element, pseudo string) (string, bool) {
	v, ok := p.engine.styles.Cascade(el, pseudo)["content"]
	if !ok {
		return "", false
	}
	tokens := css.Tokenize(v)
	var sb strings.Builder
	generated := false
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Type {
		case css.TokenString:
			sb.WriteString(tok.Value)
			generated = true
		case css.TokenIdent:
			switch strings.ToLower(tok.Value) {
			case "none", "normal":
				return "", false
			}
		case css.TokenFunction:
			name := ""
			for i++; i < len(tokens) && tokens[i].Type != css.TokenCloseParen; i++ {
				if tokens[i].Type == css.TokenIdent && name == "" {
					name = tokens[i].Value
				}
			}
			switch strings.ToLower(tok.Value) {
			case "counter":
				sb.WriteString(p.counterValue(el, name))
				generated = true
			case "attr":
				sb.WriteString(el.GetAttribute(name))
				generated = true
			}
		}
	}
	return sb.String(), generated
}

// counterValue resolves counter(name) for el. Counter values are assigned
// by the paginator as data-counter-<name>-value attributes on the element
// or one of its ancestors; the page counter comes from the frame.
func (p *pass) counterValue(el *dom.Element, name string) string {
	if name == "page" && p.frame.Number > 0 {
		return strconv.Itoa(p.frame.Number)
	}
	attr := "data-counter-" + name + "-value"
	for e := el; e != nil; e = e.AsNode().ParentElement() {
		if v, ok := e.LookupAttribute(attr); ok {
			return v
		}
	}
	return ""
}
