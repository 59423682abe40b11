// Package rank orders matched results deterministically and caps the
// result count. For large catalogs with a small cap it selects the top
// entries with a bounded heap instead of sorting the full set.
package rank

import (
	"container/heap"
	"sort"

	"github.com/lumenlauncher/lumen/internal/match"
)

// Before reports whether a ranks ahead of b. The order is total:
// score descending, then normalized label length ascending (more
// specific items first), then item id ascending. Identical inputs
// always produce identical output.
func Before(a, b match.Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.LabelLen != b.LabelLen {
		return a.LabelLen < b.LabelLen
	}
	return a.ItemID < b.ItemID
}

// Rank returns the top results in rank order. limit <= 0 means no limit.
// The input slice is not modified.
func Rank(results []match.Scored, limit int) []match.Scored {
	if len(results) == 0 {
		return nil
	}

	if limit <= 0 || limit >= len(results) {
		out := make([]match.Scored, len(results))
		copy(out, results)
		sort.Slice(out, func(i, j int) bool { return Before(out[i], out[j]) })
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return out
	}

	// Partial selection: a min-heap of the best `limit` entries seen so
	// far, rooted at the current worst. O(n log cap) instead of
	// O(n log n).
	h := make(worstFirstHeap, 0, limit)
	for _, r := range results {
		if len(h) < limit {
			heap.Push(&h, r)
			continue
		}
		if Before(r, h[0]) {
			h[0] = r
			heap.Fix(&h, 0)
		}
	}

	out := make([]match.Scored, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(match.Scored)
	}
	return out
}

// worstFirstHeap keeps the lowest-ranked retained result at the root so
// it can be evicted cheaply.
type worstFirstHeap []match.Scored

func (h worstFirstHeap) Len() int            { return len(h) }
func (h worstFirstHeap) Less(i, j int) bool  { return Before(h[j], h[i]) }
func (h worstFirstHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *worstFirstHeap) Push(x any) { *h = append(*h, x.(match.Scored)) }
func (h *worstFirstHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
