// Package eval binds queries to a committed snapshot. A Weight resolves the
// collection statistics of a query once per search; Weight.Scorer then
// builds the per-segment scoring iterator by dispatching on the query
// variant.
package eval

import (
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/nested-search/pkg/errors"
)

// Evaluator creates Weights over one snapshot. It is safe for concurrent
// use.
type Evaluator struct {
	snap *index.Snapshot
	sim  ranker.Similarity
}

func New(snap *index.Snapshot, sim ranker.Similarity) *Evaluator {
	if sim == nil {
		sim = ranker.NewBM25(1.2, 0.75)
	}
	return &Evaluator{snap: snap, sim: sim}
}

func (e *Evaluator) Snapshot() *index.Snapshot { return e.snap }

// Weight is a query bound to one search. Its leaf scorers are fixed at
// creation, so Scorer may be called for several segments concurrently.
type Weight struct {
	query      query.Query
	snap       *index.Snapshot
	leaves     map[string]ranker.DocScorer
	sequential bool
}

// Weight validates q and resolves the statistics of its term leaves.
func (e *Evaluator) Weight(q query.Query) (*Weight, error) {
	if q == nil {
		return nil, apperrors.NewQueryError(nil, "nil query")
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := e.checkKinds(q); err != nil {
		return nil, err
	}
	w := &Weight{
		query:      q,
		snap:       e.snap,
		leaves:     make(map[string]ranker.DocScorer),
		sequential: !query.Cacheable(q) || ranker.Stateful(e.sim),
	}
	query.Walk(q, func(n query.Query) bool {
		switch t := n.(type) {
		case query.Term, query.Prefix, query.Wildcard, query.Fuzzy:
			w.addLeaf(e.sim, n.(query.SpanQuery))
		case query.Phrase:
			for _, v := range t.Terms {
				w.addLeaf(e.sim, query.Term{Field: t.Field, Value: v})
			}
		}
		return true
	})
	return w, nil
}

func (w *Weight) Query() query.Query { return w.query }

// Sequential reports whether segments must be scored one after another in
// doc id order for scores to be reproducible. Plugins and the randomized
// similarity keep state across documents.
func (w *Weight) Sequential() bool { return w.sequential }

func (w *Weight) addLeaf(sim ranker.Similarity, q query.SpanQuery) {
	key := q.String()
	if _, ok := w.leaves[key]; ok {
		return
	}
	stats := w.snap.FieldStats(q.SpanField())
	w.leaves[key] = sim.Scorer(ranker.TermStats{
		DocCount:     stats.DocCount,
		DocFreq:      w.docFreq(q, stats.DocCount),
		AvgDocLength: stats.AvgLength(),
	})
}

// docFreq counts the documents holding any term q accepts, capped at the
// number of documents carrying the field.
func (w *Weight) docFreq(q query.SpanQuery, docCount int) int {
	if t, ok := q.(query.Term); ok {
		return w.snap.DocFreq(t.Field, t.Value)
	}
	match, _, ok := query.TermMatcher(q)
	if !ok {
		return 0
	}
	n := 0
	for _, t := range w.snap.Terms(q.SpanField()) {
		if match(t) {
			n += w.snap.DocFreq(q.SpanField(), t)
		}
	}
	if n > docCount {
		n = docCount
	}
	return n
}

func (e *Evaluator) checkKinds(q query.Query) error {
	var err error
	query.Walk(q, func(n query.Query) bool {
		if r, ok := n.(query.Range); ok {
			if kind, known := e.snap.Kind(r.Field); known && kind != document.Numeric {
				err = apperrors.NewQueryError(r, "field %q is %s, not numeric", r.Field, kind)
			}
		}
		return err == nil
	})
	return err
}

// Rewrite simplifies q without changing its matches: single-term phrases
// become terms and single-clause booleans collapse to their clause.
func Rewrite(q query.Query) query.Query {
	switch n := q.(type) {
	case query.Phrase:
		if len(n.Terms) == 1 {
			return query.Term{Field: n.Field, Value: n.Terms[0]}
		}
	case query.Boolean:
		clauses := make([]query.Clause, len(n.Clauses))
		for i, c := range n.Clauses {
			clauses[i] = query.Clause{Query: Rewrite(c.Query), Occur: c.Occur}
		}
		if len(clauses) == 1 {
			c := clauses[0]
			if (c.Occur == query.Must && n.MinShouldMatch == 0) || (c.Occur == query.Should && n.MinShouldMatch <= 1) {
				return c.Query
			}
		}
		return query.Boolean{Clauses: clauses, MinShouldMatch: n.MinShouldMatch}
	case query.BlockJoin:
		n.Child = Rewrite(n.Child)
		n.ParentFilter = Rewrite(n.ParentFilter)
		return n
	case query.Custom:
		if n.Inner != nil {
			n.Inner = Rewrite(n.Inner)
		}
		return n
	}
	return q
}
