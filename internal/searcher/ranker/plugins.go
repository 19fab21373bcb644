package ranker

import (
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/iterator"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/query"
)

// Even walks the segment two ids at a time from -1 and bumps every even
// global id to the next odd one, so it selects the odd ids. Every match
// scores 1.
type Even struct{}

// EvenQuery matches the odd global document ids.
func EvenQuery() query.Custom {
	return query.Custom{Name: "even", Plugin: Even{}}
}

func (Even) Matches(seg *index.Segment) iterator.DocIterator {
	return &evenIterator{base: seg.Base(), maxDoc: seg.MaxDoc(), doc: -1}
}

func (Even) Scorer(*index.Segment) func(int, float64) float64 {
	return func(int, float64) float64 { return 1 }
}

type evenIterator struct {
	base   int
	maxDoc int
	doc    int
}

func (e *evenIterator) DocID() int  { return e.doc }
func (e *evenIterator) Cost() int64 { return int64(e.maxDoc / 2) }

func (e *evenIterator) NextDoc() int {
	// The first step tests local 0, which is odd when the base is odd.
	if e.doc < 0 {
		return e.Advance(0)
	}
	return e.Advance(e.doc + 2)
}

func (e *evenIterator) Advance(target int) int {
	if e.doc == iterator.NoMoreDocs || (e.doc >= 0 && target <= e.doc) {
		return e.doc
	}
	e.doc = target
	if (e.base+e.doc)%2 == 0 {
		e.doc++
	}
	if e.doc >= e.maxDoc {
		e.doc = iterator.NoMoreDocs
	}
	return e.doc
}

// randomScore matches every document and scores it from a Randomized
// source, ignoring any inner score.
type randomScore struct {
	source *Randomized
}

func (r randomScore) Matches(seg *index.Segment) iterator.DocIterator {
	return iterator.All(seg.MaxDoc())
}

func (r randomScore) Scorer(*index.Segment) func(int, float64) float64 {
	return func(int, float64) float64 { return r.source.Next() }
}

// RandomizedScoreQuery matches every document with a score drawn from sim.
func RandomizedScoreQuery(sim *Randomized) query.Custom {
	return query.Custom{Name: "randomized", Plugin: randomScore{source: sim}}
}

type customRandomScore struct {
	source *Randomized
}

func (customRandomScore) Matches(*index.Segment) iterator.DocIterator { return nil }

func (c customRandomScore) Scorer(*index.Segment) func(int, float64) float64 {
	return func(int, float64) float64 { return c.source.Next() }
}

// RandomizedCustomScoreQuery keeps the matches of inner and replaces their
// scores with draws from a generator bounded by CustomScoreUpperBound.
func RandomizedCustomScoreQuery(inner query.Query, seed uint64) query.Custom {
	return query.Custom{
		Name:   "randomized-custom",
		Inner:  inner,
		Plugin: customRandomScore{source: NewRandomized(seed, CustomScoreUpperBound)},
	}
}
