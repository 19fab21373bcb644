package eval

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/iterator"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/spans"
)

// Scorer builds the scoring iterator of the weight's query over seg. Ids
// are local to seg.
func (w *Weight) Scorer(seg *index.Segment) iterator.Scorer {
	return w.scorer(seg, w.query)
}

func (w *Weight) scorer(seg *index.Segment, q query.Query) iterator.Scorer {
	switch n := q.(type) {
	case query.Term:
		return w.termScorer(seg, n)
	case query.Prefix, query.Wildcard, query.Fuzzy:
		return multiTermScorer(seg, n.(query.SpanQuery))
	case query.Range:
		return iterator.Constant(iterator.Slice(seg.Numeric(n.Field).Range(n.Low, n.High)), 1)
	case query.MatchAll:
		return iterator.Constant(iterator.All(seg.MaxDoc()), 1)
	case query.Phrase:
		return w.spanScorer(seg, spans.Phrase(seg, n), n.Field, len(n.Terms), phraseLeaves(n))
	case query.SpanNear, query.SpanOr, query.SpanNot, query.SpanContaining, query.SpanPositionRange:
		sq := n.(query.SpanQuery)
		return w.spanScorer(seg, spans.New(seg, sq), sq.SpanField(), minWidth(sq), spanLeaves(sq))
	case query.Boolean:
		return w.booleanScorer(seg, n)
	case query.BlockJoin:
		return newBlockJoin(w.scorer(seg, n.Child), w.parentBits(seg, n.ParentFilter), n.ScoreMode)
	case query.Custom:
		return w.customScorer(seg, n)
	}
	return iterator.Empty()
}

func (w *Weight) termScorer(seg *index.Segment, q query.Term) iterator.Scorer {
	postings := seg.Postings(q.Field, q.Value)
	if len(postings) == 0 {
		return iterator.Empty()
	}
	it := iterator.Postings(postings)
	score := w.leaves[q.String()]
	field := seg.Field(q.Field)
	return iterator.WithScore(it, func(doc int) float64 {
		return score(float64(it.Freq()), field.Length(doc))
	})
}

// multiTermScorer matches the union of the expanded terms with a constant
// score.
func multiTermScorer(seg *index.Segment, q query.SpanQuery) iterator.Scorer {
	entries := query.Expand(seg.Field(q.SpanField()), q)
	subs := make([]iterator.Scorer, len(entries))
	for i, e := range entries {
		subs[i] = iterator.Constant(iterator.Postings(e.Postings), 1)
	}
	return iterator.Constant(iterator.Union(subs...), 1)
}

func (w *Weight) spanScorer(seg *index.Segment, s spans.Spans, field string, width int, leaves []string) iterator.Scorer {
	info := seg.Field(field)
	return iterator.WithScore(s, func(doc int) float64 {
		freq := spans.Freq(s.Spans(), width)
		length := 0
		if info != nil {
			length = info.Length(doc)
		}
		var sum float64
		for _, key := range leaves {
			if score, ok := w.leaves[key]; ok {
				sum += score(freq, length)
			}
		}
		return sum
	})
}

// spanLeaves lists the term leaves that contribute to a span query's score:
// excluded and contained spans do not.
func spanLeaves(q query.SpanQuery) []string {
	switch n := q.(type) {
	case query.SpanNear:
		var out []string
		for _, c := range n.Clauses {
			out = append(out, spanLeaves(c)...)
		}
		return out
	case query.SpanOr:
		var out []string
		for _, c := range n.Clauses {
			out = append(out, spanLeaves(c)...)
		}
		return out
	case query.SpanNot:
		return spanLeaves(n.Include)
	case query.SpanContaining:
		return spanLeaves(n.Big)
	case query.SpanPositionRange:
		return spanLeaves(n.Inner)
	}
	return []string{q.String()}
}

func phraseLeaves(q query.Phrase) []string {
	out := make([]string, len(q.Terms))
	for i, v := range q.Terms {
		out[i] = query.Term{Field: q.Field, Value: v}.String()
	}
	return out
}

// minWidth is the narrowest span q can produce.
func minWidth(q query.SpanQuery) int {
	switch n := q.(type) {
	case query.SpanNear:
		w := 0
		for _, c := range n.Clauses {
			w += minWidth(c)
		}
		return w
	case query.SpanOr:
		w := 0
		for i, c := range n.Clauses {
			if cw := minWidth(c); i == 0 || cw < w {
				w = cw
			}
		}
		return w
	case query.SpanNot:
		return minWidth(n.Include)
	case query.SpanContaining:
		return minWidth(n.Big)
	case query.SpanPositionRange:
		return minWidth(n.Inner)
	}
	return 1
}

// booleanScorer plans a Boolean query. Must clauses form a conjunction.
// Should clauses then only add score unless MinShouldMatch is set, in which
// case at least that many must match. Without Must clauses at least
// max(MinShouldMatch, 1) Should clauses must match. MustNot clauses are
// subtracted; a query of only MustNot clauses matches nothing.
func (w *Weight) booleanScorer(seg *index.Segment, q query.Boolean) iterator.Scorer {
	var must, should, not []iterator.Scorer
	for _, c := range q.Clauses {
		s := w.scorer(seg, c.Query)
		switch c.Occur {
		case query.Must:
			must = append(must, s)
		case query.Should:
			should = append(should, s)
		case query.MustNot:
			not = append(not, s)
		}
	}

	k := q.MinShouldMatch
	var req iterator.Scorer
	switch {
	case len(must) > 0 && k > 0:
		req = iterator.Conjunction(iterator.Conjunction(must...), iterator.MinShouldMatch(should, k))
	case len(must) > 0 && len(should) > 0:
		req = iterator.Optional(iterator.Conjunction(must...), iterator.Union(should...))
	case len(must) > 0:
		req = iterator.Conjunction(must...)
	case len(should) > 0:
		req = iterator.MinShouldMatch(should, max(k, 1))
	default:
		return iterator.Empty()
	}
	if len(not) > 0 {
		req = iterator.Exclude(req, iterator.Union(not...))
	}
	return req
}

// parentBits resolves a block join's parent filter to a bitmap of local
// ids. Scope terms use the segment's scope bitmaps directly.
func (w *Weight) parentBits(seg *index.Segment, filter query.Query) *roaring.Bitmap {
	if t, ok := filter.(query.Term); ok && t.Field == document.ScopeField {
		return seg.Scope(t.Value)
	}
	return iterator.Collect(w.scorer(seg, filter))
}

type customScorer struct {
	iterator.DocIterator
	inner iterator.Scorer
	fn    func(doc int, innerScore float64) float64
}

func (c *customScorer) Score() float64 {
	doc := c.DocID()
	var inner float64
	if c.inner != nil && c.inner.DocID() == doc {
		inner = c.inner.Score()
	}
	return c.fn(doc, inner)
}

func (w *Weight) customScorer(seg *index.Segment, q query.Custom) iterator.Scorer {
	var inner iterator.Scorer
	if q.Inner != nil {
		inner = w.scorer(seg, q.Inner)
	}
	matches := q.Plugin.Matches(seg)
	s := &customScorer{inner: inner, fn: q.Plugin.Scorer(seg)}
	switch {
	case matches != nil && inner != nil:
		s.DocIterator = iterator.Conjunction(iterator.Constant(matches, 0), inner)
	case matches != nil:
		s.DocIterator = matches
	case inner != nil:
		s.DocIterator = inner
	default:
		s.DocIterator = iterator.All(seg.MaxDoc())
	}
	return s
}
