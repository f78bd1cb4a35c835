package dom

import (
	"strings"
)

// Element represents an element in the DOM tree.
type Element Node

// AsNode returns the element as a Node.
func (e *Element) AsNode() *Node {
	return (*Node)(e)
}

// TagName returns the tag name in uppercase.
func (e *Element) TagName() string {
	return e.nodeName
}

// LocalName returns the lowercase local name.
func (e *Element) LocalName() string {
	return e.elementData.localName
}

// Id returns the id attribute.
func (e *Element) Id() string {
	return e.GetAttribute("id")
}

// ClassName returns the class attribute.
func (e *Element) ClassName() string {
	return e.GetAttribute("class")
}

// Attributes returns a copy of the element's attributes in document order.
func (e *Element) Attributes() []Attr {
	return append([]Attr(nil), e.elementData.attributes...)
}

func (e *Element) findAttr(name string) int {
	name = strings.ToLower(name)
	for i, a := range e.elementData.attributes {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// GetAttribute returns the value of the named attribute, or "" if absent.
func (e *Element) GetAttribute(name string) string {
	if i := e.findAttr(name); i >= 0 {
		return e.elementData.attributes[i].Value
	}
	return ""
}

// LookupAttribute returns the value of the named attribute and whether it exists.
func (e *Element) LookupAttribute(name string) (string, bool) {
	if i := e.findAttr(name); i >= 0 {
		return e.elementData.attributes[i].Value, true
	}
	return "", false
}

// SetAttribute sets the value of the named attribute.
func (e *Element) SetAttribute(name, value string) {
	if i := e.findAttr(name); i >= 0 {
		if e.elementData.attributes[i].Value == value {
			return
		}
		e.elementData.attributes[i].Value = value
	} else {
		e.elementData.attributes = append(e.elementData.attributes, Attr{Name: strings.ToLower(name), Value: value})
	}
	e.AsNode().touch()
}

// HasAttribute reports whether the named attribute is present.
func (e *Element) HasAttribute(name string) bool {
	return e.findAttr(name) >= 0
}

// RemoveAttribute removes the named attribute.
func (e *Element) RemoveAttribute(name string) {
	i := e.findAttr(name)
	if i < 0 {
		return
	}
	attrs := e.elementData.attributes
	e.elementData.attributes = append(attrs[:i:i], attrs[i+1:]...)
	e.AsNode().touch()
}

// ClassList returns the element's classes in order.
func (e *Element) ClassList() []string {
	return strings.Fields(e.GetAttribute("class"))
}

// HasClass reports whether the element carries the class.
func (e *Element) HasClass(class string) bool {
	for _, c := range e.ClassList() {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass adds a class if it is not already present.
func (e *Element) AddClass(class string) {
	if class == "" || e.HasClass(class) {
		return
	}
	e.SetAttribute("class", strings.TrimSpace(e.GetAttribute("class")+" "+class))
}

// RemoveClass removes a class if present.
func (e *Element) RemoveClass(class string) {
	classes := e.ClassList()
	kept := classes[:0]
	for _, c := range classes {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(classes) {
		return
	}
	e.SetAttribute("class", strings.Join(kept, " "))
}

// FirstElementChild returns the first child element.
func (e *Element) FirstElementChild() *Element {
	for c := e.firstChild; c != nil; c = c.nextSibling {
		if c.nodeType == ElementNode {
			return (*Element)(c)
		}
	}
	return nil
}

// NextElementSibling returns the next sibling element.
func (e *Element) NextElementSibling() *Element {
	for s := e.nextSibling; s != nil; s = s.nextSibling {
		if s.nodeType == ElementNode {
			return (*Element)(s)
		}
	}
	return nil
}

// Children returns the child elements.
func (e *Element) Children() []*Element {
	var children []*Element
	for c := e.firstChild; c != nil; c = c.nextSibling {
		if c.nodeType == ElementNode {
			children = append(children, (*Element)(c))
		}
	}
	return children
}

// Find returns the first descendant element for which match returns true.
func (e *Element) Find(match func(*Element) bool) *Element {
	return findElement(e.AsNode(), match)
}

// FindAll returns all descendant elements for which match returns true.
func (e *Element) FindAll(match func(*Element) bool) []*Element {
	return findElements(e.AsNode(), match)
}

func findElement(root *Node, match func(*Element) bool) *Element {
	for c := root.firstChild; c != nil; c = c.nextSibling {
		if c.nodeType != ElementNode {
			continue
		}
		if match((*Element)(c)) {
			return (*Element)(c)
		}
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findElements(root *Node, match func(*Element) bool) []*Element {
	var results []*Element
	root.Walk(func(n *Node) bool {
		if n.nodeType == ElementNode && match((*Element)(n)) {
			results = append(results, (*Element)(n))
		}
		return true
	})
	return results
}

// ByClass matches elements carrying class.
func ByClass(class string) func(*Element) bool {
	return func(e *Element) bool { return e.HasClass(class) }
}

// ByAttribute matches elements whose attribute name equals value.
func ByAttribute(name, value string) func(*Element) bool {
	return func(e *Element) bool {
		v, ok := e.LookupAttribute(name)
		return ok && v == value
	}
}

// HasAttr matches elements carrying the attribute name.
func HasAttr(name string) func(*Element) bool {
	return func(e *Element) bool { return e.HasAttribute(name) }
}

// Closest returns the nearest inclusive ancestor for which match returns true.
func (e *Element) Closest(match func(*Element) bool) *Element {
	for n := e.AsNode(); n != nil; n = n.parentNode {
		if n.nodeType == ElementNode && match((*Element)(n)) {
			return (*Element)(n)
		}
	}
	return nil
}

// Remove detaches the element from its parent.
func (e *Element) Remove() {
	e.AsNode().Remove()
}

// CloneNode returns a copy of the element.
func (e *Element) CloneNode(deep bool) *Element {
	return (*Element)(e.AsNode().CloneNode(deep))
}

// TextContent returns the text of the element's descendants.
func (e *Element) TextContent() string {
	return e.AsNode().TextContent()
}

// Geometry returns the layout geometry of the element, or a zero value if
// it has not been laid out.
func (e *Element) Geometry() ElementGeometry {
	if e.elementData.geometry == nil {
		return ElementGeometry{}
	}
	return *e.elementData.geometry
}

// SetGeometry sets the layout geometry. It does not count as a mutation.
func (e *Element) SetGeometry(g ElementGeometry) {
	e.elementData.geometry = &g
}

// ClearGeometry drops any layout geometry.
func (e *Element) ClearGeometry() {
	e.elementData.geometry = nil
}

// GetBoundingClientRect returns the border box of the element.
func (e *Element) GetBoundingClientRect() *DOMRect {
	g := e.Geometry()
	return NewDOMRect(g.X, g.Y, g.Width, g.Height)
}
