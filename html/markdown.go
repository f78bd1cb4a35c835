package html

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// markdown renders CommonMark with tables and keeps raw HTML, so that
// inline footnote spans written in the source survive conversion.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// ParseMarkdown converts a Markdown document to HTML and parses the result.
// Extra style sheets can be passed in css; they are added to Source.Styles
// after any <style> elements written in the Markdown itself.
func ParseMarkdown(src []byte, css ...string) (*Source, error) {
	var body bytes.Buffer
	if err := markdown.Convert(src, &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html><html><head></head><body>")
	page.Write(body.Bytes())
	page.WriteString("</body></html>")

	source, err := Parse(&page)
	if err != nil {
		return nil, err
	}
	source.Styles = append(source.Styles, css...)
	return source, nil
}
