package index

import "container/heap"

type scored struct {
	score float32
	pos   int
}

// better orders by descending score, then ascending position.
func (a scored) better(b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.pos < b.pos
}

// worstFirst is a heap whose root is the weakest of the kept candidates.
type worstFirst []scored

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return h[j].better(h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *worstFirst) Push(x any)        { *h = append(*h, x.(scored)) }
func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopK returns the positions of the k highest scores, best first. Ties go
// to the lower position. It runs in O(n log k).
func TopK(scores []float32, k int) []int {
	if k <= 0 || len(scores) == 0 {
		return nil
	}
	if k > len(scores) {
		k = len(scores)
	}

	h := make(worstFirst, 0, k)
	for i, s := range scores {
		c := scored{score: s, pos: i}
		if h.Len() < k {
			heap.Push(&h, c)
			continue
		}
		if c.better(h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	out := make([]int, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(scored).pos
	}
	return out
}
