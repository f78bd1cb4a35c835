package dom

import (
	"testing"
)

// buildTree creates <div><p>hello world</p><p>second</p><span>tail</span></div>
// attached to a document body.
func buildTree(t *testing.T) (*Document, *Element, *Node) {
	t.Helper()
	doc := NewHTMLDocument()
	div := doc.CreateElement("div")
	doc.Body().AsNode().AppendChild(div.AsNode())
	p1 := doc.CreateElement("p")
	text := doc.CreateTextNode("hello world")
	p1.AsNode().AppendChild(text)
	p2 := doc.CreateElement("p")
	p2.AsNode().AppendChild(doc.CreateTextNode("second"))
	span := doc.CreateElement("span")
	span.AsNode().AppendChild(doc.CreateTextNode("tail"))
	div.AsNode().AppendChild(p1.AsNode())
	div.AsNode().AppendChild(p2.AsNode())
	div.AsNode().AppendChild(span.AsNode())
	return doc, div, text
}

func TestRangeBoundaries(t *testing.T) {
	doc, div, text := buildTree(t)
	r := doc.CreateRange()
	if err := r.SetStart(text, 6); err != nil {
		t.Fatalf("SetStart failed: %v", err)
	}
	if !r.Collapsed() || r.EndContainer() != text {
		t.Error("Setting the start after the end should collapse the range")
	}
	if err := r.SetEnd(div.AsNode(), 3); err != nil {
		t.Fatalf("SetEnd failed: %v", err)
	}
	if r.Collapsed() || r.StartContainer() != text || r.StartOffset() != 6 {
		t.Error("Setting a later end should keep the start")
	}
	if r.StartNode() != text {
		t.Error("StartNode of a text boundary is the text node")
	}
	if err := r.SetStart(text, 42); err == nil {
		t.Error("Expected an IndexSizeError for an offset past the text")
	}

	r.SetStart(div.AsNode(), 1)
	if r.StartNode().TextContent() != "second" {
		t.Errorf("Expected StartNode to be the second paragraph, got %q", r.StartNode().TextContent())
	}
}

func TestComparePoints(t *testing.T) {
	_, div, text := buildTree(t)
	tests := []struct {
		nodeA   *Node
		offsetA int
		nodeB   *Node
		offsetB int
		want    int
	}{
		{text, 1, text, 3, -1},
		{text, 3, text, 3, 0},
		{div.AsNode(), 0, text, 0, -1},
		{div.AsNode(), 1, text, 5, 1},
		{text, 5, div.AsNode(), 3, -1},
	}
	for i, tt := range tests {
		if got := comparePoints(tt.nodeA, tt.offsetA, tt.nodeB, tt.offsetB); got != tt.want {
			t.Errorf("case %d: comparePoints = %d, want %d", i, got, tt.want)
		}
	}
}

func TestExtractSplitsText(t *testing.T) {
	doc, div, text := buildTree(t)
	r := doc.CreateRange()
	r.SetStart(text, 6)
	r.SetEnd(div.AsNode(), 3)

	frag := r.ExtractContents()
	children := frag.ChildNodes()
	if len(children) != 3 {
		t.Fatalf("Expected 3 fragment children, got %d", len(children))
	}
	first := children[0].AsElement()
	if first == nil || first.LocalName() != "p" || first.TextContent() != "world" {
		t.Errorf("Expected a clone of the first paragraph holding the split text, got %q", children[0].TextContent())
	}
	if text.NodeValue() != "hello " {
		t.Errorf("Expected the original text to keep its head, got %q", text.NodeValue())
	}
	if got := div.AsNode().ChildCount(); got != 1 {
		t.Errorf("Expected only the first paragraph to remain, got %d children", got)
	}
	if r.StartContainer() != div.AsNode() || r.StartOffset() != 1 || !r.Collapsed() {
		t.Errorf("Expected the range to collapse after the first paragraph, got (%v, %d)", r.StartContainer().NodeName(), r.StartOffset())
	}
}

func TestExtractWholeChildren(t *testing.T) {
	doc, div, _ := buildTree(t)
	r := doc.CreateRange()
	r.SetStart(div.AsNode(), 1)
	r.SetEnd(div.AsNode(), 3)
	second := div.AsNode().ChildAt(1)

	frag := r.ExtractContents()
	if frag.AsNode().FirstChild() != second {
		t.Error("Fully contained children should be moved, not cloned")
	}
	if got := div.AsNode().ChildCount(); got != 1 {
		t.Errorf("Expected 1 remaining child, got %d", got)
	}
}

func TestExtractWithinText(t *testing.T) {
	doc, _, text := buildTree(t)
	r := doc.CreateRange()
	r.SetStart(text, 0)
	r.SetEnd(text, 5)
	frag := r.ExtractContents()
	if frag.AsNode().TextContent() != "hello" || text.NodeValue() != " world" {
		t.Errorf("Unexpected split %q / %q", frag.AsNode().TextContent(), text.NodeValue())
	}
}

func TestCloneContentsLeavesDocument(t *testing.T) {
	doc, div, text := buildTree(t)
	r := doc.CreateRange()
	r.SetStart(text, 6)
	r.SetEnd(div.AsNode(), 2)

	frag := r.CloneContents()
	if got := frag.AsNode().TextContent(); got != "worldsecond" {
		t.Errorf("Unexpected cloned text %q", got)
	}
	if text.NodeValue() != "hello world" || div.AsNode().ChildCount() != 3 {
		t.Error("CloneContents must not change the document")
	}
}

func TestSelectNodeContents(t *testing.T) {
	doc, div, _ := buildTree(t)
	r := doc.CreateRange()
	r.SelectNodeContents(div.AsNode())
	frag := r.ExtractContents()
	if len(frag.ChildNodes()) != 3 || div.AsNode().HasChildNodes() {
		t.Error("Expected all children to be extracted")
	}
	if !r.Collapsed() || r.StartContainer() != div.AsNode() || r.StartOffset() != 0 {
		t.Error("Expected the range to collapse at the start of the emptied node")
	}
	if empty := r.ExtractContents(); empty.AsNode().HasChildNodes() {
		t.Error("A collapsed range extracts nothing")
	}
}
