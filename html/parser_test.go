package html

import (
	"strings"
	"testing"

	"github.com/chrisuehlinger/folio/dom"
)

func TestParseBasicDocument(t *testing.T) {
	src, err := ParseString(`<!DOCTYPE html><html><head><style>p { margin: 0 }</style></head>
<body><p class="a" data-x="1">Hello <em>world</em></p></body></html>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	doc := src.Document
	body := doc.Body()
	if body == nil {
		t.Fatal("Expected a body element")
	}
	p := body.FirstElementChild()
	if p == nil || p.LocalName() != "p" {
		t.Fatalf("Expected first body element to be p, got %v", p)
	}
	if p.GetAttribute("data-x") != "1" || !p.HasClass("a") {
		t.Errorf("Attributes not converted: %v", p.Attributes())
	}
	if got := p.TextContent(); got != "Hello world" {
		t.Errorf("Expected text 'Hello world', got %q", got)
	}
	if len(src.Styles) != 1 || !strings.Contains(src.Styles[0], "margin: 0") {
		t.Errorf("Expected the style element text, got %v", src.Styles)
	}
}

func TestParseFragment(t *testing.T) {
	doc := dom.NewHTMLDocument()
	nodes, err := ParseFragment(doc, `<span>a</span>b`)
	if err != nil {
		t.Fatalf("ParseFragment failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("Expected 2 nodes, got %d", len(nodes))
	}
	if nodes[0].AsElement() == nil || nodes[1].NodeType() != dom.TextNode {
		t.Errorf("Unexpected node types %v %v", nodes[0].NodeType(), nodes[1].NodeType())
	}
	if nodes[0].OwnerDocument() != doc {
		t.Error("Fragment nodes should belong to the given document")
	}
}

func TestSerialize(t *testing.T) {
	doc := dom.NewHTMLDocument()
	div := doc.CreateElement("div")
	div.SetAttribute("data-ref", "r1")
	div.AsNode().AppendChild(doc.CreateTextNode("a < b"))
	doc.Body().AsNode().AppendChild(div.AsNode())

	if got, want := Serialize(div.AsNode()), `<div data-ref="r1">a &lt; b</div>`; got != want {
		t.Errorf("Serialize = %q, want %q", got, want)
	}
	if got := SerializeChildren(doc.Body().AsNode()); !strings.HasPrefix(got, "<div") {
		t.Errorf("SerializeChildren = %q", got)
	}
}

func TestParseMarkdown(t *testing.T) {
	src, err := ParseMarkdown([]byte("# Title\n\nText with a note<span class=\"fn\">See here.</span>.\n"), ".fn { float: footnote }")
	if err != nil {
		t.Fatalf("ParseMarkdown failed: %v", err)
	}
	body := src.Document.Body()
	children := body.Children()
	if len(children) != 2 || children[0].LocalName() != "h1" || children[1].LocalName() != "p" {
		t.Fatalf("Unexpected body structure: %s", SerializeChildren(body.AsNode()))
	}
	span := children[1].Find(dom.ByClass("fn"))
	if span == nil || span.TextContent() != "See here." {
		t.Errorf("Expected the raw footnote span to survive, got %s", Serialize(children[1].AsNode()))
	}
	if len(src.Styles) != 1 {
		t.Errorf("Expected the extra style sheet, got %v", src.Styles)
	}
}
