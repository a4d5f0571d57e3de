package engine

import (
	"container/heap"
	"slices"
)

// Every sorter returns a new slice and leaves its input untouched. cmp follows
// cmp.Compare semantics.

// bubbleSort swaps adjacent out-of-order pairs until a pass makes no swap.
// Only strictly greater pairs are swapped, so equal keys keep their order.
func bubbleSort[E any](in []E, cmp func(a, b E) int) []E {
	out := slices.Clone(in)
	n := len(out)
	for i := 0; i < n-1; i++ {
		swapped := false
		for j := 0; j < n-1-i; j++ {
			if cmp(out[j], out[j+1]) > 0 {
				out[j], out[j+1] = out[j+1], out[j]
				swapped = true
			}
		}
		if !swapped {
			break
		}
	}
	return out
}

// quickSort partitions around the middle element into less, equal and
// greater groups, each keeping input order, and concatenates the sorted groups.
func quickSort[E any](in []E, cmp func(a, b E) int) []E {
	if len(in) <= 1 {
		return slices.Clone(in)
	}
	pivot := in[len(in)/2]

	var less, equal, greater []E
	for _, e := range in {
		switch c := cmp(e, pivot); {
		case c < 0:
			less = append(less, e)
		case c > 0:
			greater = append(greater, e)
		default:
			equal = append(equal, e)
		}
	}

	out := make([]E, 0, len(in))
	out = append(out, quickSort(less, cmp)...)
	out = append(out, equal...)
	return append(out, quickSort(greater, cmp)...)
}

// mergeSort halves, sorts and merges; ties are taken from the left half.
func mergeSort[E any](in []E, cmp func(a, b E) int) []E {
	if len(in) <= 1 {
		return slices.Clone(in)
	}
	mid := len(in) / 2
	return merge(mergeSort(in[:mid], cmp), mergeSort(in[mid:], cmp), cmp)
}

func merge[E any](left, right []E, cmp func(a, b E) int) []E {
	out := make([]E, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if cmp(right[j], left[i]) < 0 {
			out = append(out, right[j])
			j++
		} else {
			out = append(out, left[i])
			i++
		}
	}
	out = append(out, left[i:]...)
	return append(out, right[j:]...)
}

// heapSort builds a binary min-heap and pops it empty. It is not stable on its
// own: callers needing a stable result must pass a cmp that breaks ties.
func heapSort[E any](in []E, cmp func(a, b E) int) []E {
	h := &binaryHeap[E]{items: slices.Clone(in), cmp: cmp}
	heap.Init(h)
	out := make([]E, 0, len(in))
	for h.Len() > 0 {
		out = append(out, heap.Pop(h).(E))
	}
	return out
}

// binaryHeap implements heap.Interface over a slice.
type binaryHeap[E any] struct {
	items []E
	cmp   func(a, b E) int
}

func (h *binaryHeap[E]) Len() int           { return len(h.items) }
func (h *binaryHeap[E]) Less(i, j int) bool { return h.cmp(h.items[i], h.items[j]) < 0 }
func (h *binaryHeap[E]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *binaryHeap[E]) Push(x any) {
	h.items = append(h.items, x.(E))
}

func (h *binaryHeap[E]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
