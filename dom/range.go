package dom

// Range represents a contiguous part of a document between two boundary
// points. Offsets into text nodes are byte offsets.
// https://dom.spec.whatwg.org/#interface-range
type Range struct {
	startContainer *Node
	startOffset    int
	endContainer   *Node
	endOffset      int
}

// StartContainer returns the node containing the start boundary.
func (r *Range) StartContainer() *Node { return r.startContainer }

// StartOffset returns the offset of the start boundary.
func (r *Range) StartOffset() int { return r.startOffset }

// EndContainer returns the node containing the end boundary.
func (r *Range) EndContainer() *Node { return r.endContainer }

// EndOffset returns the offset of the end boundary.
func (r *Range) EndOffset() int { return r.endOffset }

// Collapsed reports whether start and end are the same point.
func (r *Range) Collapsed() bool {
	return r.startContainer == r.endContainer && r.startOffset == r.endOffset
}

// StartNode returns the node right after the start boundary: the child at
// the start offset for element containers, or the container itself for
// character data. It returns nil when the start is past the last child.
func (r *Range) StartNode() *Node {
	switch r.startContainer.nodeType {
	case TextNode, CommentNode:
		return r.startContainer
	}
	return r.startContainer.ChildAt(r.startOffset)
}

// SetStart sets the start boundary. If the start ends up after the end,
// the range collapses to the new start.
func (r *Range) SetStart(node *Node, offset int) error {
	if err := checkBoundary(node, offset); err != nil {
		return err
	}
	r.startContainer, r.startOffset = node, offset
	if r.endContainer.GetRootNode() != node.GetRootNode() ||
		comparePoints(node, offset, r.endContainer, r.endOffset) > 0 {
		r.endContainer, r.endOffset = node, offset
	}
	return nil
}

// SetEnd sets the end boundary. If the end ends up before the start, the
// range collapses to the new end.
func (r *Range) SetEnd(node *Node, offset int) error {
	if err := checkBoundary(node, offset); err != nil {
		return err
	}
	r.endContainer, r.endOffset = node, offset
	if r.startContainer.GetRootNode() != node.GetRootNode() ||
		comparePoints(node, offset, r.startContainer, r.startOffset) < 0 {
		r.startContainer, r.startOffset = node, offset
	}
	return nil
}

// SetStartBefore places the start right before node.
func (r *Range) SetStartBefore(node *Node) error {
	if node.parentNode == nil {
		return ErrInvalidNodeType("node has no parent")
	}
	return r.SetStart(node.parentNode, node.Index())
}

// SetEndAfter places the end right after node.
func (r *Range) SetEndAfter(node *Node) error {
	if node.parentNode == nil {
		return ErrInvalidNodeType("node has no parent")
	}
	return r.SetEnd(node.parentNode, node.Index()+1)
}

// SelectNodeContents makes the range span all of node's contents.
func (r *Range) SelectNodeContents(node *Node) {
	r.startContainer, r.startOffset = node, 0
	r.endContainer, r.endOffset = node, node.Length()
}

// Collapse collapses the range to its start, or its end if toStart is false.
func (r *Range) Collapse(toStart bool) {
	if toStart {
		r.endContainer, r.endOffset = r.startContainer, r.startOffset
	} else {
		r.startContainer, r.startOffset = r.endContainer, r.endOffset
	}
}

func checkBoundary(node *Node, offset int) error {
	if node == nil {
		return ErrInvalidNodeType("boundary node is nil")
	}
	if offset < 0 || offset > node.Length() {
		return ErrIndexSize("offset is larger than the node's length")
	}
	return nil
}

// comparePoints returns -1, 0 or 1 as point a is before, equal to or after
// point b. Both points must share a root.
func comparePoints(nodeA *Node, offsetA int, nodeB *Node, offsetB int) int {
	if nodeA == nodeB {
		switch {
		case offsetA < offsetB:
			return -1
		case offsetA > offsetB:
			return 1
		}
		return 0
	}
	if nodeA.isInclusiveAncestor(nodeB) {
		// b lies inside the child of a at some index
		child := nodeB
		for child.parentNode != nodeA {
			child = child.parentNode
		}
		if child.Index() < offsetA {
			return 1
		}
		return -1
	}
	if nodeB.isInclusiveAncestor(nodeA) {
		return -comparePoints(nodeB, offsetB, nodeA, offsetA)
	}
	if precedes(nodeA, nodeB) {
		return -1
	}
	return 1
}

// precedes reports whether a comes before b in tree order.
func precedes(a, b *Node) bool {
	ancestorsA := ancestorChain(a)
	ancestorsB := ancestorChain(b)
	i, j := len(ancestorsA)-1, len(ancestorsB)-1
	for i >= 0 && j >= 0 && ancestorsA[i] == ancestorsB[j] {
		i--
		j--
	}
	if i < 0 {
		return true
	}
	if j < 0 {
		return false
	}
	return ancestorsA[i].Index() < ancestorsB[j].Index()
}

func ancestorChain(n *Node) []*Node {
	var chain []*Node
	for c := n; c != nil; c = c.parentNode {
		chain = append(chain, c)
	}
	return chain
}

func commonAncestor(a, b *Node) *Node {
	for c := a; c != nil; c = c.parentNode {
		if c.isInclusiveAncestor(b) {
			return c
		}
	}
	return nil
}

func isCharacterData(n *Node) bool {
	return n.nodeType == TextNode || n.nodeType == CommentNode
}

// ExtractContents moves the contents of the range into a new fragment.
// Partially selected ancestors are split: their selected part is cloned into
// the fragment and the original keeps the rest. The range collapses to the
// point where the contents were removed.
func (r *Range) ExtractContents() *DocumentFragment {
	return r.process(true)
}

// CloneContents copies the contents of the range into a new fragment
// without changing the document.
func (r *Range) CloneContents() *DocumentFragment {
	return r.process(false)
}

func (r *Range) process(extract bool) *DocumentFragment {
	doc := r.startContainer.document()
	frag := doc.CreateDocumentFragment()
	if r.Collapsed() {
		return frag
	}

	sc, so := r.startContainer, r.startOffset
	ec, eo := r.endContainer, r.endOffset

	if sc == ec && isCharacterData(sc) {
		clone := sc.shallowClone(doc)
		clone.data = sc.data[so:eo]
		frag.AsNode().insertBeforeInternal(clone, nil)
		if extract {
			sc.SetNodeValue(sc.data[:so] + sc.data[eo:])
			r.endOffset = so
		}
		return frag
	}

	common := commonAncestor(sc, ec)

	var firstPartial, lastPartial *Node
	if !sc.isInclusiveAncestor(ec) {
		firstPartial = sc
		for firstPartial.parentNode != common {
			firstPartial = firstPartial.parentNode
		}
	}
	if !ec.isInclusiveAncestor(sc) {
		lastPartial = ec
		for lastPartial.parentNode != common {
			lastPartial = lastPartial.parentNode
		}
	}

	var contained []*Node
	from := so
	if firstPartial != nil {
		from = firstPartial.Index() + 1
	}
	to := eo
	if lastPartial != nil {
		to = lastPartial.Index()
	}
	for i, c := 0, common.firstChild; c != nil; i, c = i+1, c.nextSibling {
		if i >= from && i < to {
			contained = append(contained, c)
		}
	}

	newNode, newOffset := sc, so
	if extract && !sc.isInclusiveAncestor(ec) {
		ref := sc
		for !ref.parentNode.isInclusiveAncestor(ec) {
			ref = ref.parentNode
		}
		newNode, newOffset = ref.parentNode, ref.Index()+1
	}

	if firstPartial != nil {
		if isCharacterData(firstPartial) {
			clone := firstPartial.shallowClone(doc)
			clone.data = sc.data[so:]
			frag.AsNode().insertBeforeInternal(clone, nil)
			if extract {
				sc.SetNodeValue(sc.data[:so])
			}
		} else {
			clone := firstPartial.shallowClone(doc)
			frag.AsNode().insertBeforeInternal(clone, nil)
			sub := &Range{startContainer: sc, startOffset: so, endContainer: firstPartial, endOffset: firstPartial.Length()}
			clone.AppendChild(sub.process(extract).AsNode())
		}
	}

	for _, c := range contained {
		if extract {
			common.removeChildInternal(c)
			frag.AsNode().insertBeforeInternal(c, nil)
		} else {
			frag.AsNode().insertBeforeInternal(c.cloneInto(doc, true), nil)
		}
	}

	if lastPartial != nil {
		if isCharacterData(lastPartial) {
			clone := lastPartial.shallowClone(doc)
			clone.data = ec.data[:eo]
			frag.AsNode().insertBeforeInternal(clone, nil)
			if extract {
				ec.SetNodeValue(ec.data[eo:])
			}
		} else {
			clone := lastPartial.shallowClone(doc)
			frag.AsNode().insertBeforeInternal(clone, nil)
			sub := &Range{startContainer: lastPartial, startOffset: 0, endContainer: ec, endOffset: eo}
			clone.AppendChild(sub.process(extract).AsNode())
		}
	}

	if extract {
		r.startContainer, r.startOffset = newNode, newOffset
		r.endContainer, r.endOffset = newNode, newOffset
	}
	return frag
}
