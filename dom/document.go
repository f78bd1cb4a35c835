package dom

import (
	"strings"
)

// Document represents the root of a DOM tree.
type Document Node

// DocumentFragment is a lightweight container for detached nodes.
type DocumentFragment Node

// NewDocument creates an empty document.
func NewDocument() *Document {
	n := newNode(DocumentNode, "#document", nil)
	n.documentData = &documentData{}
	return (*Document)(n)
}

// NewHTMLDocument creates a document with an html, head and body skeleton.
func NewHTMLDocument() *Document {
	d := NewDocument()
	html := d.CreateElement("html")
	html.AsNode().AppendChild(d.CreateElement("head").AsNode())
	html.AsNode().AppendChild(d.CreateElement("body").AsNode())
	d.AsNode().AppendChild(html.AsNode())
	return d
}

// AsNode returns the document as a Node.
func (d *Document) AsNode() *Node {
	return (*Node)(d)
}

// Version returns a counter that changes on every tree, attribute or text
// mutation of nodes owned by the document.
func (d *Document) Version() uint64 {
	return d.documentData.version
}

// DocumentElement returns the root element.
func (d *Document) DocumentElement() *Element {
	for c := d.firstChild; c != nil; c = c.nextSibling {
		if c.nodeType == ElementNode {
			return (*Element)(c)
		}
	}
	return nil
}

// Head returns the head element, if any.
func (d *Document) Head() *Element {
	return d.rootChild("head")
}

// Body returns the body element, if any.
func (d *Document) Body() *Element {
	return d.rootChild("body")
}

func (d *Document) rootChild(name string) *Element {
	root := d.DocumentElement()
	if root == nil {
		return nil
	}
	for c := root.firstChild; c != nil; c = c.nextSibling {
		if c.nodeType == ElementNode && c.elementData.localName == name {
			return (*Element)(c)
		}
	}
	return nil
}

// CreateElement creates an element with the given tag name.
func (d *Document) CreateElement(tagName string) *Element {
	local := strings.ToLower(tagName)
	n := newNode(ElementNode, strings.ToUpper(local), d)
	n.elementData = &elementData{localName: local}
	return (*Element)(n)
}

func newTextNode(d *Document, data string) *Node {
	n := newNode(TextNode, "#text", d)
	n.data = data
	return n
}

// CreateTextNode creates a text node.
func (d *Document) CreateTextNode(data string) *Node {
	return newTextNode(d, data)
}

// CreateComment creates a comment node.
func (d *Document) CreateComment(data string) *Node {
	n := newNode(CommentNode, "#comment", d)
	n.data = data
	return n
}

// CreateDocumentFragment creates an empty fragment.
func (d *Document) CreateDocumentFragment() *DocumentFragment {
	return (*DocumentFragment)(newNode(DocumentFragmentNode, "#document-fragment", d))
}

// ImportNode returns a copy of a node from another document, owned by d.
func (d *Document) ImportNode(n *Node, deep bool) *Node {
	return n.cloneInto(d, deep)
}

// CreateRange creates a range collapsed at the start of the document.
func (d *Document) CreateRange() *Range {
	return &Range{
		startContainer: d.AsNode(),
		endContainer:   d.AsNode(),
	}
}

// AsNode returns the fragment as a Node.
func (f *DocumentFragment) AsNode() *Node {
	return (*Node)(f)
}

// FirstElementChild returns the first child element of the fragment.
func (f *DocumentFragment) FirstElementChild() *Element {
	for c := f.firstChild; c != nil; c = c.nextSibling {
		if c.nodeType == ElementNode {
			return (*Element)(c)
		}
	}
	return nil
}

// ChildNodes returns a snapshot of the fragment's children.
func (f *DocumentFragment) ChildNodes() []*Node {
	return f.AsNode().ChildNodes()
}
