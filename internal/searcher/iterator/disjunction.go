package iterator

import "container/heap"

type disjunction struct {
	heap     subHeap
	matched  []Scorer
	minMatch int
	cost     int64
	doc      int
}

// Union matches documents at least one sub-scorer matches and sums the
// scores of the sub-scorers positioned on the document.
func Union(subs ...Scorer) Scorer {
	return MinShouldMatch(subs, 1)
}

// MinShouldMatch matches documents at least k sub-scorers match. k larger
// than len(subs) matches nothing.
func MinShouldMatch(subs []Scorer, k int) Scorer {
	if k < 1 {
		k = 1
	}
	if len(subs) == 0 || k > len(subs) {
		return Empty()
	}
	if len(subs) == 1 {
		return subs[0]
	}
	d := &disjunction{
		heap:     make(subHeap, len(subs)),
		minMatch: k,
		doc:      -1,
	}
	copy(d.heap, subs)
	for _, s := range subs {
		d.cost += s.Cost()
	}
	heap.Init(&d.heap)
	return d
}

func (d *disjunction) DocID() int  { return d.doc }
func (d *disjunction) Cost() int64 { return d.cost }

func (d *disjunction) NextDoc() int {
	if d.doc == NoMoreDocs {
		return d.doc
	}
	return d.advanceTo(d.doc + 1)
}

func (d *disjunction) Advance(target int) int {
	if stay(d.doc, target) {
		return d.doc
	}
	return d.advanceTo(target)
}

func (d *disjunction) advanceTo(target int) int {
	for d.heap[0].DocID() < target {
		d.heap[0].Advance(target)
		heap.Fix(&d.heap, 0)
	}
	for {
		top := d.heap[0].DocID()
		if top == NoMoreDocs {
			d.doc = NoMoreDocs
			d.matched = d.matched[:0]
			return d.doc
		}
		d.matched = d.heap.collect(d.matched[:0], 0, top)
		if len(d.matched) >= d.minMatch {
			d.doc = top
			return top
		}
		for _, s := range d.matched {
			s.NextDoc()
		}
		heap.Init(&d.heap)
	}
}

func (d *disjunction) Score() float64 {
	var sum float64
	for _, s := range d.matched {
		sum += s.Score()
	}
	return sum
}

type subHeap []Scorer

func (h subHeap) Len() int           { return len(h) }
func (h subHeap) Less(i, j int) bool { return h[i].DocID() < h[j].DocID() }
func (h subHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *subHeap) Push(x any) { *h = append(*h, x.(Scorer)) }

func (h *subHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// collect appends every entry of the subtree rooted at i positioned on doc.
func (h subHeap) collect(out []Scorer, i, doc int) []Scorer {
	if i >= len(h) || h[i].DocID() != doc {
		return out
	}
	out = append(out, h[i])
	out = h.collect(out, 2*i+1, doc)
	return h.collect(out, 2*i+2, doc)
}
