// Package ranker holds the relevance functions used by the evaluator: the
// Similarity applied to term and span matches, and the custom scoring
// plugins.
package ranker

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/config"
)

const (
	// SimilarityUpperBound bounds the scores of the randomized similarity.
	SimilarityUpperBound = 100.0
	// CustomScoreUpperBound bounds the scores of the randomized custom score.
	CustomScoreUpperBound = 10.0
	DefaultSeed           = 172488
)

// ScoredDoc is one ranked hit. DocID is global.
type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// TermStats are the collection statistics of one term or span query.
type TermStats struct {
	DocCount     int
	DocFreq      int
	AvgDocLength float64
}

// DocScorer scores one document from its (possibly sloppy) frequency and
// field length.
type DocScorer func(freq float64, docLength int) float64

// Similarity turns collection statistics into a per-document scorer.
type Similarity interface {
	Scorer(stats TermStats) DocScorer
}

// BM25 is the default Similarity.
type BM25 struct {
	K1 float64
	B  float64
}

func NewBM25(k1, b float64) BM25 {
	return BM25{K1: k1, B: b}
}

func (s BM25) Scorer(stats TermStats) DocScorer {
	idf := computeIDF(int64(stats.DocCount), int64(stats.DocFreq))
	return func(freq float64, docLength int) float64 {
		return idf * s.computeTFNorm(freq, float64(docLength), stats.AvgDocLength)
	}
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(1 + numerator/denominator)
}

func (s BM25) computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if termFreq <= 0 {
		return 0
	}
	lengthRatio := 1.0
	if avgDocLength > 0 {
		lengthRatio = docLength / avgDocLength
	}
	denominator := termFreq + s.K1*(1-s.B+s.B*lengthRatio)
	return (termFreq * (s.K1 + 1)) / denominator
}

// Randomized draws scores uniformly from [0, upper) with its own seeded
// generator. The same seed yields the same score sequence.
type Randomized struct {
	mu    sync.Mutex
	rng   *rand.Rand
	upper float64
}

func NewRandomized(seed uint64, upper float64) *Randomized {
	return &Randomized{
		rng:   rand.New(rand.NewPCG(seed, seed)),
		upper: upper,
	}
}

// NewRandomizedSimilarity returns the randomized similarity with scores in
// [0, SimilarityUpperBound).
func NewRandomizedSimilarity(seed uint64) *Randomized {
	return NewRandomized(seed, SimilarityUpperBound)
}

func (r *Randomized) Upper() float64 { return r.upper }

// Next returns the next score of the sequence.
func (r *Randomized) Next() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() * r.upper
}

// Scorer ignores the statistics.
func (r *Randomized) Scorer(TermStats) DocScorer {
	return func(float64, int) float64 { return r.Next() }
}

// Stateful reports whether sim draws its scores from a shared sequence, so
// that the order documents are scored in decides their scores.
func Stateful(sim Similarity) bool {
	_, ok := sim.(*Randomized)
	return ok
}

// FromConfig builds the configured similarity.
func FromConfig(cfg config.ScoringConfig) (Similarity, error) {
	switch cfg.Similarity {
	case "", "bm25":
		return NewBM25(cfg.BM25K1, cfg.BM25B), nil
	case "random":
		return NewRandomizedSimilarity(cfg.RandomSeed), nil
	default:
		return nil, fmt.Errorf("unknown similarity %q", cfg.Similarity)
	}
}
