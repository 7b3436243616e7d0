package queue

import "container/heap"

// txHeap is a container/heap.Interface ordering Transactions by
// Priority, then FIFO within a priority.
type txHeap struct {
	items []*Transaction
	seq   []uint64
}

func (h *txHeap) Len() int { return len(h.items) }

func (h *txHeap) Less(i, j int) bool {
	if h.items[i].Priority != h.items[j].Priority {
		return h.items[i].Priority < h.items[j].Priority
	}
	return h.seq[i] < h.seq[j]
}

func (h *txHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.seq[i], h.seq[j] = h.seq[j], h.seq[i]
}

func (h *txHeap) Push(x any) {
	h.items = append(h.items, x.(*Transaction))
	h.seq = append(h.seq, nextSeq())
}

func (h *txHeap) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	h.items = h.items[:n-1]
	h.seq = h.seq[:n-1]
	return item
}

var seqCounter uint64

func nextSeq() uint64 {
	seqCounter++
	return seqCounter
}

var _ heap.Interface = (*txHeap)(nil)
