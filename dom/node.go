// Package dom provides the document tree the paginator renders into: element,
// text, document and fragment nodes with parent back-references, plus the
// geometry and range types layout writes and reads.
package dom

import (
	"strings"
)

// NodeType represents the type of a node.
type NodeType uint16

const (
	ElementNode          NodeType = 1
	TextNode             NodeType = 3
	CommentNode          NodeType = 8
	DocumentNode         NodeType = 9
	DocumentFragmentNode NodeType = 11
)

// Node represents a node in the DOM tree. Element, Document and
// DocumentFragment are defined on top of it and convert with AsNode.
type Node struct {
	nodeType NodeType
	nodeName string
	ownerDoc *Document

	parentNode  *Node
	firstChild  *Node
	lastChild   *Node
	prevSibling *Node
	nextSibling *Node

	// Type-specific data (only one is used based on nodeType)
	elementData  *elementData
	data         string
	documentData *documentData
}

// ElementGeometry holds computed layout geometry for an element.
// It is written by layout and read through Element.Geometry.
type ElementGeometry struct {
	// Border box coordinates relative to the page
	X, Y, Width, Height float64

	PaddingTop, PaddingRight, PaddingBottom, PaddingLeft float64
	BorderTop, BorderRight, BorderBottom, BorderLeft    float64
	MarginTop, MarginRight, MarginBottom, MarginLeft    float64

	// ScrollHeight is the natural height of the content inside the
	// padding box, ignoring any explicit height.
	ScrollHeight float64
}

// VerticalEdges returns the sum of the top and bottom margins, borders and padding.
func (g ElementGeometry) VerticalEdges() float64 {
	return g.MarginTop + g.MarginBottom + g.BorderTop + g.BorderBottom + g.PaddingTop + g.PaddingBottom
}

type elementData struct {
	localName  string
	attributes []Attr
	geometry   *ElementGeometry
}

type documentData struct {
	version uint64
}

// Attr is a single name/value attribute pair.
type Attr struct {
	Name  string
	Value string
}

func newNode(nodeType NodeType, nodeName string, ownerDoc *Document) *Node {
	return &Node{
		nodeType: nodeType,
		nodeName: nodeName,
		ownerDoc: ownerDoc,
	}
}

// NodeType returns the type of the node.
func (n *Node) NodeType() NodeType {
	return n.nodeType
}

// NodeName returns the name of the node.
// For elements, this is the tag name in uppercase and for text nodes "#text".
func (n *Node) NodeName() string {
	return n.nodeName
}

// NodeValue returns the character data of text and comment nodes.
func (n *Node) NodeValue() string {
	switch n.nodeType {
	case TextNode, CommentNode:
		return n.data
	}
	return ""
}

// SetNodeValue replaces the character data of text and comment nodes.
func (n *Node) SetNodeValue(value string) {
	switch n.nodeType {
	case TextNode, CommentNode:
		if n.data != value {
			n.data = value
			n.touch()
		}
	}
}

// OwnerDocument returns the document that owns the node. For a document it
// returns nil.
func (n *Node) OwnerDocument() *Document {
	return n.ownerDoc
}

func (n *Node) document() *Document {
	if n.nodeType == DocumentNode {
		return (*Document)(n)
	}
	return n.ownerDoc
}

// touch records a mutation on the owning document.
func (n *Node) touch() {
	if d := n.document(); d != nil && d.documentData != nil {
		d.documentData.version++
	}
}

// ParentNode returns the parent of the node.
func (n *Node) ParentNode() *Node {
	return n.parentNode
}

// ParentElement returns the parent if it is an element.
func (n *Node) ParentElement() *Element {
	if n.parentNode != nil && n.parentNode.nodeType == ElementNode {
		return (*Element)(n.parentNode)
	}
	return nil
}

// FirstChild returns the first child.
func (n *Node) FirstChild() *Node {
	return n.firstChild
}

// LastChild returns the last child.
func (n *Node) LastChild() *Node {
	return n.lastChild
}

// PreviousSibling returns the previous sibling.
func (n *Node) PreviousSibling() *Node {
	return n.prevSibling
}

// NextSibling returns the next sibling.
func (n *Node) NextSibling() *Node {
	return n.nextSibling
}

// HasChildNodes reports whether the node has children.
func (n *Node) HasChildNodes() bool {
	return n.firstChild != nil
}

// ChildNodes returns a snapshot of the node's children.
func (n *Node) ChildNodes() []*Node {
	var children []*Node
	for c := n.firstChild; c != nil; c = c.nextSibling {
		children = append(children, c)
	}
	return children
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int {
	count := 0
	for c := n.firstChild; c != nil; c = c.nextSibling {
		count++
	}
	return count
}

// ChildAt returns the child at index i, or nil.
func (n *Node) ChildAt(i int) *Node {
	if i < 0 {
		return nil
	}
	c := n.firstChild
	for ; c != nil && i > 0; i-- {
		c = c.nextSibling
	}
	return c
}

// Index returns the position of the node among its siblings.
func (n *Node) Index() int {
	i := 0
	for s := n.prevSibling; s != nil; s = s.prevSibling {
		i++
	}
	return i
}

// Length returns the node length as used by ranges: the byte length of
// character data, or the number of children otherwise.
func (n *Node) Length() int {
	switch n.nodeType {
	case TextNode, CommentNode:
		return len(n.data)
	}
	return n.ChildCount()
}

// IsElement reports whether the node is an element.
func (n *Node) IsElement() bool {
	return n.nodeType == ElementNode
}

// AsElement returns the node as an element, or nil.
func (n *Node) AsElement() *Element {
	if n == nil || n.nodeType != ElementNode {
		return nil
	}
	return (*Element)(n)
}

// TextContent returns the concatenated text of the node and its descendants.
func (n *Node) TextContent() string {
	switch n.nodeType {
	case TextNode, CommentNode:
		return n.data
	case DocumentNode:
		return ""
	}
	var sb strings.Builder
	n.collectTextContent(&sb)
	return sb.String()
}

func (n *Node) collectTextContent(sb *strings.Builder) {
	for c := n.firstChild; c != nil; c = c.nextSibling {
		if c.nodeType == TextNode {
			sb.WriteString(c.data)
		} else if c.nodeType == ElementNode {
			c.collectTextContent(sb)
		}
	}
}

// SetTextContent replaces all children with a single text node.
func (n *Node) SetTextContent(value string) {
	switch n.nodeType {
	case TextNode, CommentNode:
		n.SetNodeValue(value)
		return
	}
	for n.firstChild != nil {
		n.removeChildInternal(n.firstChild)
	}
	if value != "" {
		n.insertBeforeInternal(newTextNode(n.document(), value), nil)
	}
}

// AppendChild adds a node to the end of the children. Inserting a fragment
// moves its children. Invalid insertions are ignored; use
// AppendChildWithError to observe them.
func (n *Node) AppendChild(child *Node) *Node {
	result, _ := n.AppendChildWithError(child)
	return result
}

// AppendChildWithError is AppendChild returning hierarchy errors.
func (n *Node) AppendChildWithError(child *Node) (*Node, error) {
	return n.InsertBeforeWithError(child, nil)
}

// InsertBefore inserts newChild before refChild, or at the end when refChild is nil.
func (n *Node) InsertBefore(newChild, refChild *Node) *Node {
	result, _ := n.InsertBeforeWithError(newChild, refChild)
	return result
}

// InsertBeforeWithError is InsertBefore returning hierarchy errors.
func (n *Node) InsertBeforeWithError(newChild, refChild *Node) (*Node, error) {
	if err := n.validatePreInsertion(newChild, refChild); err != nil {
		return nil, err
	}
	if refChild == newChild {
		refChild = newChild.nextSibling
	}
	if newChild.nodeType == DocumentFragmentNode {
		for _, c := range newChild.ChildNodes() {
			newChild.removeChildInternal(c)
			n.insertBeforeInternal(c, refChild)
		}
		return newChild, nil
	}
	if newChild.parentNode != nil {
		newChild.parentNode.removeChildInternal(newChild)
	}
	n.insertBeforeInternal(newChild, refChild)
	return newChild, nil
}

func (n *Node) validatePreInsertion(node, child *Node) error {
	if node == nil {
		return ErrHierarchyRequest("node is nil")
	}
	switch n.nodeType {
	case ElementNode, DocumentNode, DocumentFragmentNode:
	default:
		return ErrHierarchyRequest("parent cannot have children")
	}
	if node.isInclusiveAncestor(n) {
		return ErrHierarchyRequest("the new child is an ancestor of the parent")
	}
	if child != nil && child.parentNode != n {
		return ErrNotFound("the reference child is not a child of this node")
	}
	if node.nodeType == DocumentNode {
		return ErrHierarchyRequest("cannot insert a document")
	}
	return nil
}

func (n *Node) isInclusiveAncestor(node *Node) bool {
	for c := node; c != nil; c = c.parentNode {
		if c == n {
			return true
		}
	}
	return false
}

func (n *Node) insertBeforeInternal(newChild, refChild *Node) {
	newChild.parentNode = n
	if newChild.ownerDoc != n.document() && n.document() != nil {
		adoptNode(newChild, n.document())
	}
	if refChild == nil {
		newChild.prevSibling = n.lastChild
		newChild.nextSibling = nil
		if n.lastChild != nil {
			n.lastChild.nextSibling = newChild
		} else {
			n.firstChild = newChild
		}
		n.lastChild = newChild
	} else {
		newChild.nextSibling = refChild
		newChild.prevSibling = refChild.prevSibling
		if refChild.prevSibling != nil {
			refChild.prevSibling.nextSibling = newChild
		} else {
			n.firstChild = newChild
		}
		refChild.prevSibling = newChild
	}
	n.touch()
}

func adoptNode(node *Node, doc *Document) {
	node.ownerDoc = doc
	for c := node.firstChild; c != nil; c = c.nextSibling {
		adoptNode(c, doc)
	}
}

// RemoveChild removes child from the node's children.
func (n *Node) RemoveChild(child *Node) *Node {
	result, _ := n.RemoveChildWithError(child)
	return result
}

// RemoveChildWithError is RemoveChild returning a NotFoundError when child
// does not belong to the node.
func (n *Node) RemoveChildWithError(child *Node) (*Node, error) {
	if child == nil || child.parentNode != n {
		return nil, ErrNotFound("the node to be removed is not a child of this node")
	}
	n.removeChildInternal(child)
	return child, nil
}

func (n *Node) removeChildInternal(child *Node) {
	if child.prevSibling != nil {
		child.prevSibling.nextSibling = child.nextSibling
	} else {
		n.firstChild = child.nextSibling
	}
	if child.nextSibling != nil {
		child.nextSibling.prevSibling = child.prevSibling
	} else {
		n.lastChild = child.prevSibling
	}
	child.parentNode = nil
	child.prevSibling = nil
	child.nextSibling = nil
	n.touch()
}

// Remove detaches the node from its parent.
func (n *Node) Remove() {
	if n.parentNode != nil {
		n.parentNode.removeChildInternal(n)
	}
}

// CloneNode returns a copy of the node owned by the same document.
// If deep is true the descendants are copied as well.
func (n *Node) CloneNode(deep bool) *Node {
	return n.cloneInto(n.ownerDoc, deep)
}

func (n *Node) cloneInto(doc *Document, deep bool) *Node {
	clone := n.shallowClone(doc)
	if deep {
		for c := n.firstChild; c != nil; c = c.nextSibling {
			cc := c.cloneInto(doc, true)
			cc.parentNode = clone
			cc.prevSibling = clone.lastChild
			if clone.lastChild != nil {
				clone.lastChild.nextSibling = cc
			} else {
				clone.firstChild = cc
			}
			clone.lastChild = cc
		}
	}
	return clone
}

func (n *Node) shallowClone(doc *Document) *Node {
	clone := newNode(n.nodeType, n.nodeName, doc)
	switch n.nodeType {
	case ElementNode:
		clone.elementData = &elementData{
			localName:  n.elementData.localName,
			attributes: append([]Attr(nil), n.elementData.attributes...),
		}
	case TextNode, CommentNode:
		clone.data = n.data
	case DocumentNode:
		clone.ownerDoc = nil
		clone.documentData = &documentData{}
	}
	return clone
}

// Contains reports whether other is an inclusive descendant of the node.
func (n *Node) Contains(other *Node) bool {
	if other == nil {
		return false
	}
	return n.isInclusiveAncestor(other)
}

// GetRootNode returns the topmost ancestor of the node.
func (n *Node) GetRootNode() *Node {
	root := n
	for root.parentNode != nil {
		root = root.parentNode
	}
	return root
}

// Walk calls fn for every descendant of the node in tree order. Returning
// false from fn skips that node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	for c := n.firstChild; c != nil; {
		next := c.nextSibling
		if fn(c) {
			c.Walk(fn)
		}
		c = next
	}
}

// NextInTree returns the node following n in tree order within root,
// skipping n's descendants.
func (n *Node) NextInTree(root *Node) *Node {
	for c := n; c != nil && c != root; c = c.parentNode {
		if c.nextSibling != nil {
			return c.nextSibling
		}
	}
	return nil
}
