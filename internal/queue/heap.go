package queue

import (
	"fmt"

	"clinic-scheduler/internal/models"
)

// entry is one queued patient plus its heap bookkeeping.
type entry struct {
	rec *models.PatientRecord

	// index is the entry's current slot in its owning heap slice.
	// Maintained by recordHeap.Swap so targeted updates and removals run in
	// O(log n) via heap.Fix / heap.Remove. -1 when not in any heap.
	index int

	// emergency records which heap owns the entry.
	emergency bool
}

// recordHeap is a min-heap of queue entries ordered by priority score,
// breaking ties on token so ordering stays deterministic.
type recordHeap []*entry

func (h recordHeap) Len() int { return len(h) }

func (h recordHeap) Less(i, j int) bool {
	if h[i].rec.PriorityScore != h[j].rec.PriorityScore {
		return h[i].rec.PriorityScore < h[j].rec.PriorityScore
	}
	return h[i].rec.Token < h[j].rec.Token
}

func (h recordHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *recordHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *recordHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil // allow GC
	e.index = -1
	*h = old[:n-1]
	return e
}

// mustHold panics unless the min-heap property and index bookkeeping hold.
// A violation here is a programming error, never a recoverable condition.
func (h recordHeap) mustHold(name string) {
	for i, e := range h {
		if e.index != i {
			panic(fmt.Sprintf("queue: %s heap index corrupt at slot %d (have %d)", name, i, e.index))
		}
		for _, c := range []int{2*i + 1, 2*i + 2} {
			if c < len(h) && h[c].rec.PriorityScore < e.rec.PriorityScore {
				panic(fmt.Sprintf("queue: %s heap invariant violated at slot %d", name, i))
			}
		}
	}
}
