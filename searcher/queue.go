package searcher

import (
	"container/heap"
	"slices"
)

// Compile time check to ensure Queue satisfies the heap interface.
var _ heap.Interface = (*Queue)(nil)

// Scored is a candidate index annotated with its similarity score.
type Scored struct {
	Index int
	Score float64
}

// Better reports whether a ranks ahead of b: higher score first,
// then lower index.
func Better(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Index < b.Index
}

// Queue keeps the best Capacity items seen so far.
// The heap root is the worst retained item, so a better newcomer replaces it
// in O(log k).
type Queue struct {
	capacity int
	items    []Scored
}

// NewQueue creates a bounded queue that retains at most capacity items.
func NewQueue(capacity int) *Queue {
	return &Queue{
		capacity: capacity,
		items:    make([]Scored, 0, min(capacity, 1024)),
	}
}

// Offer adds item if the queue has room or item beats the worst retained item.
func (q *Queue) Offer(item Scored) {
	if q.capacity <= 0 {
		return
	}
	if len(q.items) < q.capacity {
		heap.Push(q, item)
		return
	}
	if Better(item, q.items[0]) {
		q.items[0] = item
		heap.Fix(q, 0)
	}
}

// Worst returns the lowest-ranked retained item.
func (q *Queue) Worst() (Scored, bool) {
	if len(q.items) == 0 {
		return Scored{}, false
	}
	return q.items[0], true
}

// Sorted returns the retained items best first. The queue is left unchanged.
func (q *Queue) Sorted() []Scored {
	out := slices.Clone(q.items)
	slices.SortFunc(out, func(a, b Scored) int {
		if Better(a, b) {
			return -1
		}
		if Better(b, a) {
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of elements in the heap.
func (q *Queue) Len() int { return len(q.items) }

// Less orders the worst item to the root.
func (q *Queue) Less(i, j int) bool { return Better(q.items[j], q.items[i]) }

// Swap swaps the elements with indexes i and j.
func (q *Queue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

// Push pushes the element x onto the heap.
func (q *Queue) Push(x any) { q.items = append(q.items, x.(Scored)) }

// Pop removes and returns the root element of the heap.
func (q *Queue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}
