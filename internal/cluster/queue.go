package cluster

import "container/heap"

// candidate is a pending merge between two arena slots.
type candidate struct {
	distance float64
	lo, hi   int
}

func newCandidate(distance float64, a, b int) candidate {
	if a > b {
		a, b = b, a
	}
	return candidate{distance: distance, lo: a, hi: b}
}

// candidateHeap orders candidates by distance, breaking ties on slot ids.
// Entries are never removed early; pops of dead slots are discarded by the caller.
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].distance != h[j].distance {
		return h[i].distance < h[j].distance
	}
	if h[i].lo != h[j].lo {
		return h[i].lo < h[j].lo
	}
	return h[i].hi < h[j].hi
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

type queue struct {
	h candidateHeap
}

func newQueue(capacity int) *queue {
	return &queue{h: make(candidateHeap, 0, capacity)}
}

func (q *queue) push(c candidate) { heap.Push(&q.h, c) }

func (q *queue) pop() candidate { return heap.Pop(&q.h).(candidate) }

func (q *queue) len() int { return q.h.Len() }
