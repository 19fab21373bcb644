// Package merger combines the per-segment hit lists of one search into a
// single ranking: score descending, then global document id ascending.
package merger

import (
	"container/heap"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/ranker"
)

// Merge returns the best limit hits of all segment results. A limit of zero
// or less keeps every hit.
func Merge(segmentResults [][]ranker.ScoredDoc, limit int) []ranker.ScoredDoc {
	total := 0
	for _, results := range segmentResults {
		total += len(results)
	}
	if limit <= 0 || limit >= total {
		all := make([]ranker.ScoredDoc, 0, total)
		for _, results := range segmentResults {
			all = append(all, results...)
		}
		sort.Slice(all, func(i, j int) bool { return Less(all[i], all[j]) })
		return all
	}

	h := &scoredDocHeap{}
	heap.Init(h)
	for _, results := range segmentResults {
		for _, doc := range results {
			if h.Len() < limit {
				heap.Push(h, doc)
				continue
			}
			if Less(doc, (*h)[0]) {
				(*h)[0] = doc
				heap.Fix(h, 0)
			}
		}
	}
	result := make([]ranker.ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ranker.ScoredDoc)
	}
	return result
}

// Less reports whether a ranks before b.
func Less(a, b ranker.ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// scoredDocHeap keeps the worst retained hit on top.
type scoredDocHeap []ranker.ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return Less(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ranker.ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
