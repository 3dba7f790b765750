package cache

import (
	"container/heap"
	"sort"
)

// rankedEntry is a key with a numeric rank. Lower rank is evicted first; ties go to the
// lower (older) insertion sequence.
type rankedEntry[K comparable] struct {
	key   K
	rank  float64
	seq   uint64
	index int
}

// rankedHeap implements heap.Interface as a min-heap over (rank, seq).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-PriorityQueue
type rankedHeap[K comparable] []*rankedEntry[K]

func (h rankedHeap[K]) Len() int { return len(h) }
func (h rankedHeap[K]) Less(i, j int) bool {
	if h[i].rank != h[j].rank {
		return h[i].rank < h[j].rank
	}
	return h[i].seq < h[j].seq
}
func (h rankedHeap[K]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *rankedHeap[K]) Push(x any) {
	e := x.(*rankedEntry[K])
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *rankedHeap[K]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// rankedSet is the shared state of the rank-ordered stores (PERFECT_LFU, GRD).
type rankedSet[K comparable] struct {
	capacity int
	heap     rankedHeap[K]
	index    map[K]*rankedEntry[K]
	nextSeq  uint64
}

func newRankedSet[K comparable](capacity int) rankedSet[K] {
	if capacity < 1 {
		capacity = 1
	}
	return rankedSet[K]{capacity: capacity, index: make(map[K]*rankedEntry[K], capacity)}
}

func (s *rankedSet[K]) seq() uint64 {
	s.nextSeq++
	return s.nextSeq
}

func (s *rankedSet[K]) has(k K) bool {
	_, ok := s.index[k]
	return ok
}

// min returns the next victim, if any.
func (s *rankedSet[K]) min() (*rankedEntry[K], bool) {
	if len(s.heap) == 0 {
		return nil, false
	}
	return s.heap[0], true
}

// refresh re-ranks a present key as if freshly inserted.
func (s *rankedSet[K]) refresh(e *rankedEntry[K], rank float64) {
	e.rank = rank
	e.seq = s.seq()
	heap.Fix(&s.heap, e.index)
}

func (s *rankedSet[K]) push(k K, rank float64) {
	e := &rankedEntry[K]{key: k, rank: rank, seq: s.seq()}
	heap.Push(&s.heap, e)
	s.index[k] = e
}

func (s *rankedSet[K]) popMin() K {
	e := heap.Pop(&s.heap).(*rankedEntry[K])
	delete(s.index, e.key)
	return e.key
}

func (s *rankedSet[K]) remove(k K) bool {
	e, ok := s.index[k]
	if !ok {
		return false
	}
	heap.Remove(&s.heap, e.index)
	delete(s.index, k)
	return true
}

func (s *rankedSet[K]) keys() []K {
	entries := append([]*rankedEntry[K](nil), s.heap...)
	sort.Slice(entries, func(i, j int) bool { return rankedHeap[K](entries).Less(i, j) })
	keys := make([]K, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	return keys
}

func (s *rankedSet[K]) clear() {
	s.heap = nil
	s.index = make(map[K]*rankedEntry[K], s.capacity)
}
