// Package html builds dom documents from HTML and Markdown sources, using
// golang.org/x/net/html as the underlying parser, and serializes them back.
package html

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/chrisuehlinger/folio/dom"
)

// Source is a parsed input document.
type Source struct {
	Document *dom.Document
	// Styles holds the text of every <style> element in document order.
	Styles []string
}

// Parse parses an HTML document.
func Parse(r io.Reader) (*Source, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := dom.NewDocument()
	src := &Source{Document: doc}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := src.convertNode(c); n != nil {
			doc.AsNode().AppendChild(n)
		}
	}
	return src, nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Source, error) {
	return Parse(strings.NewReader(s))
}

// ParseFragment parses markup in the context of a body element and
// returns the resulting nodes, owned by doc.
func ParseFragment(doc *dom.Document, markup string) ([]*dom.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}
	src := &Source{Document: doc}
	var result []*dom.Node
	for _, n := range nodes {
		if c := src.convertNode(n); c != nil {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *Source) convertNode(n *html.Node) *dom.Node {
	doc := s.Document
	switch n.Type {
	case html.TextNode:
		return doc.CreateTextNode(n.Data)
	case html.CommentNode:
		return doc.CreateComment(n.Data)
	case html.ElementNode:
		el := doc.CreateElement(n.Data)
		for _, a := range n.Attr {
			if a.Namespace != "" {
				continue
			}
			el.SetAttribute(a.Key, a.Val)
		}
		if n.DataAtom == atom.Style {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			s.Styles = append(s.Styles, sb.String())
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := s.convertNode(c); child != nil {
				el.AsNode().AppendChild(child)
			}
		}
		return el.AsNode()
	}
	return nil
}

// Serialize renders a node and its descendants as HTML.
func Serialize(n *dom.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, toHTMLNode(n)); err != nil {
		return ""
	}
	return buf.String()
}

// SerializeChildren renders the children of a node as HTML.
func SerializeChildren(n *dom.Node) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		sb.WriteString(Serialize(c))
	}
	return sb.String()
}

func toHTMLNode(n *dom.Node) *html.Node {
	var out *html.Node
	switch n.NodeType() {
	case dom.TextNode:
		return &html.Node{Type: html.TextNode, Data: n.NodeValue()}
	case dom.CommentNode:
		return &html.Node{Type: html.CommentNode, Data: n.NodeValue()}
	case dom.ElementNode:
		el := n.AsElement()
		out = &html.Node{
			Type:     html.ElementNode,
			Data:     el.LocalName(),
			DataAtom: atom.Lookup([]byte(el.LocalName())),
		}
		for _, a := range el.Attributes() {
			out.Attr = append(out.Attr, html.Attribute{Key: a.Name, Val: a.Value})
		}
	case dom.DocumentNode:
		out = &html.Node{Type: html.DocumentNode}
	default:
		// Fragments render as their children inside a document node
		out = &html.Node{Type: html.DocumentNode}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out.AppendChild(toHTMLNode(c))
	}
	return out
}
