package footnotes

import "github.com/chrisuehlinger/folio/dom"

// Queue is a FIFO of footnote content waiting for a later page.
type Queue struct {
	items []*dom.DocumentFragment
}

// Push appends a fragment.
func (q *Queue) Push(f *dom.DocumentFragment) {
	q.items = append(q.items, f)
}

// Pop removes and returns the oldest fragment, or nil when the queue is
// empty.
func (q *Queue) Pop() *dom.DocumentFragment {
	if len(q.items) == 0 {
		return nil
	}
	f := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return f
}

// Len returns the number of queued fragments.
func (q *Queue) Len() int {
	return len(q.items)
}
