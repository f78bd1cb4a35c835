package css

import "sync"

// userAgentCSS is the default style sheet. It covers the display types the
// paginator relies on and the generated content of footnote calls and
// markers.
const userAgentCSS = `
html, body, div, section, article, aside, nav, header, footer, main,
p, h1, h2, h3, h4, h5, h6, ul, ol, li, dl, dt, dd, blockquote, figure,
figcaption, pre, hr, address, table, tr, form, fieldset, details, summary {
	display: block;
}
head, style, script, title, meta, link, template, noscript { display: none; }
p { margin: 1em 0; }
blockquote, figure { margin: 1em 40px; }
ul, ol { margin: 1em 0; padding-left: 40px; }
h1 { font-size: 2em; margin: 0.67em 0; }
h2 { font-size: 1.5em; margin: 0.83em 0; }
h3 { font-size: 1.17em; margin: 1em 0; }
h4 { margin: 1.33em 0; }
h5 { font-size: 0.83em; margin: 1.67em 0; }
h6 { font-size: 0.67em; margin: 2.33em 0; }
small, sub, sup { font-size: 0.83em; }
.folio_footnote_inner_content [data-note="footnote"] { display: block; }
[data-footnote-call]::after { content: counter(footnote); }
[data-footnote-marker]::before { content: counter(footnote) ". "; }
[data-footnote-marker][data-split-from]::before { content: none; }
`

var (
	uaOnce  sync.Once
	uaSheet *Stylesheet
)

// UserAgentStylesheet returns the parsed default style sheet.
func UserAgentStylesheet() *Stylesheet {
	uaOnce.Do(func() {
		uaSheet, _ = ParseStylesheet(userAgentCSS)
	})
	return uaSheet
}
