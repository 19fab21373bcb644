// Package executor runs queries against a committed snapshot. Each search
// rewrites the query, binds one Weight for the whole snapshot, collects every
// segment concurrently and merges the hits into a single ranking.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/eval"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/iterator"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/nested-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/tracing"
)

// cancelCheckInterval is how many matches a segment collector drains between
// context checks.
const cancelCheckInterval = 4096

type SearchResult struct {
	SearchID  string             `json:"search_id"`
	Query     string             `json:"query"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
}

// Hit is a ranked document resolved to its stored fields.
type Hit struct {
	DocID  int               `json:"doc_id"`
	Score  float64           `json:"score"`
	Fields map[string]string `json:"fields"`
}

// JSON renders the stored fields of h on a single line.
func (h Hit) JSON() string {
	data, err := json.Marshal(h.Fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}

type Executor struct {
	eval          *eval.Evaluator
	store         store.Store
	metrics       *metrics.Metrics
	maxConcurrent int
	logger        *slog.Logger
}

type Option func(*Executor)

// WithStore enables Materialize.
func WithStore(s store.Store) Option {
	return func(e *Executor) { e.store = s }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithConcurrency bounds how many segments one search collects at once.
func WithConcurrency(n int) Option {
	return func(e *Executor) { e.maxConcurrent = n }
}

// New creates an executor over snap. A nil sim selects BM25 with the usual
// defaults.
func New(snap *index.Snapshot, sim ranker.Similarity, opts ...Option) *Executor {
	e := &Executor{
		eval:          eval.New(snap, sim),
		maxConcurrent: 4,
		logger:        slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Snapshot() *index.Snapshot {
	return e.eval.Snapshot()
}

// Search returns the maxResults best hits of q, ordered by score descending
// and then by document id. A maxResults of zero or less returns every hit.
// Invalid queries fail before any segment is read.
func (e *Executor) Search(ctx context.Context, q query.Query, maxResults int) (*SearchResult, error) {
	start := time.Now()
	searchID := uuid.NewString()
	ctx = logger.WithSearchID(ctx, searchID)
	log := logger.FromContext(ctx).With("component", "query-executor")

	ctx, root := tracing.StartSpan(ctx, "search", searchID)
	defer func() {
		root.End()
		root.Log(log)
	}()

	_, span := tracing.StartChildSpan(ctx, "rewrite")
	rewritten := eval.Rewrite(q)
	span.End()

	_, span = tracing.StartChildSpan(ctx, "weight")
	w, err := e.eval.Weight(rewritten)
	span.End()
	if err != nil {
		e.metrics.SearchObserved("invalid", "miss", time.Since(start).Seconds(), 0)
		log.Warn("query rejected", "error", err)
		return nil, err
	}

	perSegment, err := e.collect(ctx, w)
	if err != nil {
		e.metrics.SearchObserved("error", "miss", time.Since(start).Seconds(), 0)
		return nil, err
	}

	_, span = tracing.StartChildSpan(ctx, "merge")
	total := 0
	for _, hits := range perSegment {
		total += len(hits)
	}
	results := merger.Merge(perSegment, maxResults)
	span.SetAttr("results", len(results))
	span.End()

	resultType := "hit"
	if total == 0 {
		resultType = "zero_result"
	}
	e.metrics.SearchObserved(resultType, "miss", time.Since(start).Seconds(), len(results))
	log.Info("query executed",
		"query", rewritten.String(),
		"segments", len(perSegment),
		"total_hits", total,
		"results", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &SearchResult{
		SearchID:  searchID,
		Query:     q.String(),
		TotalHits: total,
		Results:   results,
	}, nil
}

// collect drains the scorer of every segment. Hits carry global ids.
// Sequential weights collect one segment at a time in doc base order.
func (e *Executor) collect(ctx context.Context, w *eval.Weight) ([][]ranker.ScoredDoc, error) {
	segs := e.eval.Snapshot().Segments()
	out := make([][]ranker.ScoredDoc, len(segs))

	limit := max(e.maxConcurrent, 1)
	if w.Sequential() {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, seg := range segs {
		g.Go(func() error {
			_, span := tracing.StartChildSpan(gctx, "segment")
			defer span.End()
			span.SetAttr("segment", seg.ID())

			s := w.Scorer(seg)
			var hits []ranker.ScoredDoc
			for doc := s.NextDoc(); doc != iterator.NoMoreDocs; doc = s.NextDoc() {
				if len(hits)%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return fmt.Errorf("collecting %s: %w", seg.ID(), err)
					}
				}
				hits = append(hits, ranker.ScoredDoc{DocID: seg.Base() + doc, Score: s.Score()})
			}
			span.SetAttr("hits", len(hits))
			out[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Materialize resolves hits to their stored fields. Ids outside the
// snapshot are not found even when the store still knows them.
func (e *Executor) Materialize(ctx context.Context, hits []ranker.ScoredDoc) ([]Hit, error) {
	if e.store == nil {
		return nil, fmt.Errorf("materializing hits: no document store: %w", apperrors.ErrNotFound)
	}
	snap := e.eval.Snapshot()
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if _, _, ok := snap.Locate(h.DocID); !ok {
			return nil, fmt.Errorf("materializing doc %d: %w", h.DocID, &apperrors.NotFoundError{DocID: h.DocID})
		}
		fields, err := e.store.StoredFields(ctx, h.DocID)
		if err != nil {
			return nil, fmt.Errorf("materializing doc %d: %w", h.DocID, err)
		}
		out = append(out, Hit{DocID: h.DocID, Score: h.Score, Fields: fields})
	}
	return out, nil
}
