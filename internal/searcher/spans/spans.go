// Package spans evaluates positional span queries. A span is a half-open
// token position interval [Start, End) within one text field of one
// document; a document matches a span query when at least one span
// survives.
package spans

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/iterator"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/query"
)

type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) contains(o Span) bool {
	return s.Start <= o.Start && s.End >= o.End
}

func (s Span) overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Spans iterates the documents that produce at least one span.
type Spans interface {
	iterator.DocIterator
	// Spans returns the spans of the current document ordered by start,
	// then end, without duplicates.
	Spans() []Span
}

// New builds the span iterator of q over one segment.
func New(seg *index.Segment, q query.SpanQuery) Spans {
	switch n := q.(type) {
	case query.Term, query.Prefix, query.Wildcard, query.Fuzzy:
		entries := query.Expand(seg.Field(q.SpanField()), q)
		subs := make([]Spans, len(entries))
		for i, e := range entries {
			subs[i] = &termSpans{PostingsIterator: iterator.Postings(e.Postings)}
		}
		return or(subs)
	case query.SpanNear:
		subs := make([]Spans, len(n.Clauses))
		for i, c := range n.Clauses {
			subs[i] = New(seg, c)
		}
		return near(subs, n.Slop, n.InOrder)
	case query.SpanOr:
		subs := make([]Spans, len(n.Clauses))
		for i, c := range n.Clauses {
			subs[i] = New(seg, c)
		}
		return or(subs)
	case query.SpanNot:
		return not(New(seg, n.Include), New(seg, n.Exclude))
	case query.SpanContaining:
		return containing(New(seg, n.Big), New(seg, n.Little))
	case query.SpanPositionRange:
		return positionRange(New(seg, n.Inner), n.Start, n.End)
	}
	return empty{iterator.Empty()}
}

// Phrase evaluates the terms of a phrase as an in-order near query.
func Phrase(seg *index.Segment, q query.Phrase) Spans {
	clauses := make([]query.SpanQuery, len(q.Terms))
	for i, t := range q.Terms {
		clauses[i] = query.Term{Field: q.Field, Value: t}
	}
	return New(seg, query.SpanNear{Clauses: clauses, Slop: q.Slop, InOrder: true})
}

// Freq is the sloppy frequency of a document's spans: each span counts
// 1/(1+d) where d is its width beyond minWidth.
func Freq(spans []Span, minWidth int) float64 {
	var f float64
	for _, s := range spans {
		d := s.Len() - minWidth
		if d < 0 {
			d = 0
		}
		f += 1 / float64(1+d)
	}
	return f
}

type empty struct{ iterator.Scorer }

func (empty) Spans() []Span { return nil }

type termSpans struct {
	*iterator.PostingsIterator
}

func (t *termSpans) Spans() []Span {
	positions := t.Positions()
	out := make([]Span, len(positions))
	for i, p := range positions {
		out[i] = Span{Start: p, End: p + 1}
	}
	return out
}

// filtered walks the candidate documents of approx and keeps those for
// which compute yields spans.
type filtered struct {
	approx  iterator.DocIterator
	compute func(doc int) []Span
	spans   []Span
	doc     int
}

func (f *filtered) DocID() int    { return f.doc }
func (f *filtered) Cost() int64   { return f.approx.Cost() }
func (f *filtered) Spans() []Span { return f.spans }

func (f *filtered) NextDoc() int {
	if f.doc == iterator.NoMoreDocs {
		return f.doc
	}
	return f.settle(f.approx.NextDoc())
}

func (f *filtered) Advance(target int) int {
	if f.doc == iterator.NoMoreDocs || (f.doc >= 0 && target <= f.doc) {
		return f.doc
	}
	return f.settle(f.approx.Advance(target))
}

func (f *filtered) settle(doc int) int {
	for doc != iterator.NoMoreDocs {
		if spans := f.compute(doc); len(spans) > 0 {
			f.spans = spans
			f.doc = doc
			return doc
		}
		doc = f.approx.NextDoc()
	}
	f.spans = nil
	f.doc = iterator.NoMoreDocs
	return f.doc
}

func asScorers(subs []Spans) []iterator.Scorer {
	out := make([]iterator.Scorer, len(subs))
	for i, s := range subs {
		out[i] = iterator.Constant(s, 0)
	}
	return out
}

func or(subs []Spans) Spans {
	switch len(subs) {
	case 0:
		return empty{iterator.Empty()}
	case 1:
		return subs[0]
	}
	return &filtered{
		approx: iterator.Union(asScorers(subs)...),
		compute: func(doc int) []Span {
			var all []Span
			for _, s := range subs {
				if s.DocID() == doc {
					all = append(all, s.Spans()...)
				}
			}
			return normalize(all)
		},
		doc: -1,
	}
}

func near(subs []Spans, slop int, inOrder bool) Spans {
	if len(subs) == 1 {
		return subs[0]
	}
	return &filtered{
		approx: iterator.Conjunction(asScorers(subs)...),
		compute: func(int) []Span {
			lists := make([][]Span, len(subs))
			for i, s := range subs {
				lists[i] = s.Spans()
			}
			if inOrder {
				return nearOrdered(lists, slop)
			}
			return nearUnordered(lists, slop)
		},
		doc: -1,
	}
}

// nearOrdered chains one span per list, each starting at or after the end
// of the previous one, with the gaps between them summing to at most slop.
// Each span of the first list anchors at most one match: every later list
// contributes the span that ends first among those that fit.
func nearOrdered(lists [][]Span, slop int) []Span {
	firstEnds := make([][]int, len(lists))
	for i := 1; i < len(lists); i++ {
		firstEnds[i] = earliestEnds(lists[i])
	}
	var out []Span
	for _, first := range lists[0] {
		prev, gaps := first, 0
		ok := true
		for i := 1; i < len(lists); i++ {
			l := lists[i]
			j := sort.Search(len(l), func(k int) bool { return l[k].Start >= prev.End })
			if j == len(l) {
				ok = false
				break
			}
			next := l[firstEnds[i][j]]
			gaps += next.Start - prev.End
			if gaps > slop {
				ok = false
				break
			}
			prev = next
		}
		if ok {
			out = append(out, Span{Start: first.Start, End: prev.End})
		}
	}
	return normalize(out)
}

// earliestEnds maps each index of a start-ordered list to the index of the
// span ending first at or after it.
func earliestEnds(list []Span) []int {
	idx := make([]int, len(list))
	for j := len(list) - 1; j >= 0; j-- {
		idx[j] = j
		if j+1 < len(list) && list[idx[j+1]].End < list[j].End {
			idx[j] = idx[j+1]
		}
	}
	return idx
}

// nearUnordered slides a window holding one span per list: the window they
// cover, less their total length, must not exceed slop. After each window
// the span starting first moves on, until some list runs out.
func nearUnordered(lists [][]Span, slop int) []Span {
	pos := make([]int, len(lists))
	var out []Span
	for {
		window := lists[0][pos[0]]
		total, lowest := 0, 0
		for i, l := range lists {
			s := l[pos[i]]
			if s.Start < window.Start || (s.Start == window.Start && s.End < lists[lowest][pos[lowest]].End) {
				lowest = i
			}
			window.Start = min(window.Start, s.Start)
			window.End = max(window.End, s.End)
			total += s.Len()
		}
		if window.Len()-total <= slop {
			out = append(out, window)
		}
		pos[lowest]++
		if pos[lowest] == len(lists[lowest]) {
			return normalize(out)
		}
	}
}

func not(include, exclude Spans) Spans {
	return &filtered{
		approx: include,
		compute: func(doc int) []Span {
			in := include.Spans()
			ex := exclude.DocID()
			if ex < doc {
				ex = exclude.Advance(doc)
			}
			if ex != doc {
				return in
			}
			excluded := exclude.Spans()
			out := make([]Span, 0, len(in))
			for _, s := range in {
				if !anyOverlap(s, excluded) {
					out = append(out, s)
				}
			}
			return out
		},
		doc: -1,
	}
}

func anyOverlap(s Span, others []Span) bool {
	for _, o := range others {
		if s.overlaps(o) {
			return true
		}
	}
	return false
}

func containing(big, little Spans) Spans {
	return &filtered{
		approx: iterator.Conjunction(asScorers([]Spans{big, little})...),
		compute: func(int) []Span {
			smalls := little.Spans()
			var out []Span
			for _, b := range big.Spans() {
				for _, l := range smalls {
					if b.contains(l) {
						out = append(out, b)
						break
					}
				}
			}
			return out
		},
		doc: -1,
	}
}

func positionRange(inner Spans, start, end int) Spans {
	return &filtered{
		approx: inner,
		compute: func(int) []Span {
			var out []Span
			for _, s := range inner.Spans() {
				if s.Start >= start && s.Start < end {
					out = append(out, s)
				}
			}
			return out
		},
		doc: -1,
	}
}

func normalize(spans []Span) []Span {
	if len(spans) < 2 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})
	out := spans[:1]
	for _, s := range spans[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
