// Package iterator defines the ordered document-id iteration protocol every
// query evaluates to, plus the leaf iterators and scoring combinators
// (conjunction, disjunction, exclusion) the evaluator composes.
//
// Ids are local to one segment. An iterator starts at -1, only moves
// forward, and once it returns NoMoreDocs it stays there.
package iterator

import "math"

// NoMoreDocs is returned once an iterator is exhausted.
const NoMoreDocs = math.MaxInt32

// DocIterator walks matching document ids in ascending order.
type DocIterator interface {
	// DocID returns -1 before the first call to NextDoc or Advance, then
	// the current document, or NoMoreDocs.
	DocID() int
	NextDoc() int
	// Advance moves to the first document >= target and returns it. A
	// target at or before the current document leaves it in place.
	Advance(target int) int
	// Cost estimates the number of matches. It is a scheduling hint only.
	Cost() int64
}

// Scorer is a DocIterator that can score its current document.
type Scorer interface {
	DocIterator
	// Score is only valid while DocID is a real document.
	Score() float64
}

// stay reports whether Advance(target) must leave the iterator where it is.
func stay(doc, target int) bool {
	return doc == NoMoreDocs || (doc >= 0 && target <= doc)
}

type empty struct{ doc int }

// Empty returns an iterator that matches nothing.
func Empty() Scorer { return &empty{doc: -1} }

func (e *empty) DocID() int             { return e.doc }
func (e *empty) NextDoc() int           { e.doc = NoMoreDocs; return e.doc }
func (e *empty) Advance(target int) int { e.doc = NoMoreDocs; return e.doc }
func (e *empty) Cost() int64            { return 0 }
func (e *empty) Score() float64         { return 0 }

type rangeIterator struct {
	doc    int
	maxDoc int
}

// All matches every document in [0, maxDoc).
func All(maxDoc int) DocIterator {
	return &rangeIterator{doc: -1, maxDoc: maxDoc}
}

func (r *rangeIterator) DocID() int   { return r.doc }
func (r *rangeIterator) NextDoc() int { return r.Advance(r.doc + 1) }
func (r *rangeIterator) Cost() int64  { return int64(r.maxDoc) }

func (r *rangeIterator) Advance(target int) int {
	if stay(r.doc, target) {
		return r.doc
	}
	if target < 0 {
		target = 0
	}
	if target >= r.maxDoc {
		r.doc = NoMoreDocs
	} else {
		r.doc = target
	}
	return r.doc
}

type sliceIterator struct {
	docs []int
	i    int
	doc  int
}

// Slice iterates an ascending, duplicate-free slice of ids.
func Slice(docs []int) DocIterator {
	return &sliceIterator{docs: docs, i: -1, doc: -1}
}

func (s *sliceIterator) DocID() int  { return s.doc }
func (s *sliceIterator) Cost() int64 { return int64(len(s.docs)) }

func (s *sliceIterator) NextDoc() int {
	s.i++
	if s.i >= len(s.docs) {
		s.doc = NoMoreDocs
	} else {
		s.doc = s.docs[s.i]
	}
	return s.doc
}

func (s *sliceIterator) Advance(target int) int {
	if stay(s.doc, target) {
		return s.doc
	}
	for s.NextDoc() < target {
	}
	return s.doc
}

type constant struct {
	DocIterator
	score float64
}

// Constant scores every document of it with score.
func Constant(it DocIterator, score float64) Scorer {
	return &constant{DocIterator: it, score: score}
}

func (c *constant) Score() float64 { return c.score }

// ScoreFunc computes the score of the current document of a scoring
// iterator.
type ScoreFunc func(doc int) float64

type funcScorer struct {
	DocIterator
	fn ScoreFunc
}

// WithScore scores the documents of it with fn.
func WithScore(it DocIterator, fn ScoreFunc) Scorer {
	return &funcScorer{DocIterator: it, fn: fn}
}

func (f *funcScorer) Score() float64 { return f.fn(f.DocID()) }

// Drain collects the remaining documents of it.
func Drain(it DocIterator) []int {
	var docs []int
	for doc := it.NextDoc(); doc != NoMoreDocs; doc = it.NextDoc() {
		docs = append(docs, doc)
	}
	return docs
}
