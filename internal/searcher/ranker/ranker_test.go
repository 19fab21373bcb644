package ranker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/iterator"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/config"
)

func segmentOf(n, base int) *index.Segment {
	b := index.NewBuilder(tokenizer.Standard)
	for i := 0; i < n; i++ {
		b.AddBlock(document.Block{document.New(
			document.StringField(document.ScopeField, document.ScopeProduct, false),
		)})
	}
	return b.Build("seg_ranker", base)
}

func TestBM25(t *testing.T) {
	sim := NewBM25(1.2, 0.75)
	score := sim.Scorer(TermStats{DocCount: 100, DocFreq: 10, AvgDocLength: 10})

	assert.Zero(t, score(0, 10))
	assert.Greater(t, score(1, 10), 0.0)
	assert.Greater(t, score(2, 10), score(1, 10))
	assert.Greater(t, score(1, 5), score(1, 20), "shorter fields score higher")

	rare := sim.Scorer(TermStats{DocCount: 100, DocFreq: 1, AvgDocLength: 10})
	assert.Greater(t, rare(1, 10), score(1, 10), "rarer terms score higher")

	everywhere := sim.Scorer(TermStats{DocCount: 100, DocFreq: 100, AvgDocLength: 10})
	assert.Greater(t, everywhere(1, 10), 0.0)
}

func TestRandomizedBoundsAndDeterminism(t *testing.T) {
	a := NewRandomizedSimilarity(DefaultSeed)
	b := NewRandomizedSimilarity(DefaultSeed)
	for i := 0; i < 1000; i++ {
		s := a.Next()
		assert.GreaterOrEqual(t, s, 0.0)
		assert.Less(t, s, SimilarityUpperBound)
		assert.Equal(t, s, b.Next())
	}

	other := NewRandomizedSimilarity(DefaultSeed + 1)
	same := true
	for i := 0; i < 10; i++ {
		if a.Next() != other.Next() {
			same = false
		}
	}
	assert.False(t, same)
}

func TestRandomizedIndependentInstances(t *testing.T) {
	sim := NewRandomizedSimilarity(1)
	custom := NewRandomized(2, CustomScoreUpperBound)

	var wg sync.WaitGroup
	simScores := make([]float64, 500)
	customScores := make([]float64, 500)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range simScores {
			simScores[i] = sim.Next()
		}
	}()
	go func() {
		defer wg.Done()
		for i := range customScores {
			customScores[i] = custom.Next()
		}
	}()
	wg.Wait()

	for _, s := range simScores {
		assert.True(t, s >= 0 && s < SimilarityUpperBound)
	}
	for _, s := range customScores {
		assert.True(t, s >= 0 && s < CustomScoreUpperBound)
	}
}

func TestRandomizedScorerIgnoresStats(t *testing.T) {
	r := NewRandomized(3, 5)
	score := r.Scorer(TermStats{DocCount: 10, DocFreq: 2})
	for i := 0; i < 100; i++ {
		s := score(float64(i), i)
		assert.True(t, s >= 0 && s < 5)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default().Scoring

	sim, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, NewBM25(1.2, 0.75), sim)

	cfg.Similarity = "random"
	sim, err = FromConfig(cfg)
	require.NoError(t, err)
	r, ok := sim.(*Randomized)
	require.True(t, ok)
	assert.Equal(t, SimilarityUpperBound, r.Upper())

	cfg.Similarity = "tfidf"
	_, err = FromConfig(cfg)
	assert.Error(t, err)
}

func TestEvenSelectsOddIDs(t *testing.T) {
	seg := segmentOf(9, 0)
	q := EvenQuery()
	it := q.Plugin.Matches(seg)
	assert.Equal(t, -1, it.DocID())
	assert.Equal(t, []int{1, 3, 5, 7}, iterator.Drain(it))
	assert.Equal(t, iterator.NoMoreDocs, it.DocID())
	assert.Equal(t, iterator.NoMoreDocs, it.NextDoc())

	score := q.Plugin.Scorer(seg)
	assert.Equal(t, 1.0, score(3, 42))
}

func TestEvenUsesGlobalParity(t *testing.T) {
	seg := segmentOf(6, 5)
	it := Even{}.Matches(seg)
	// Local 0 is global 5.
	assert.Equal(t, []int{0, 2, 4}, iterator.Drain(it))
}

func TestEvenAdvance(t *testing.T) {
	seg := segmentOf(10, 0)
	it := Even{}.Matches(seg)
	assert.Equal(t, 5, it.Advance(4))
	assert.Equal(t, 5, it.Advance(5))
	assert.Equal(t, 7, it.Advance(7))
	assert.Equal(t, 9, it.NextDoc())
	assert.Equal(t, iterator.NoMoreDocs, it.Advance(10))
	assert.Equal(t, int64(5), it.Cost())
}

func TestRandomizedQueries(t *testing.T) {
	seg := segmentOf(4, 0)

	q := RandomizedScoreQuery(NewRandomizedSimilarity(DefaultSeed))
	assert.Equal(t, "custom(randomized)", q.String())
	assert.Equal(t, []int{0, 1, 2, 3}, iterator.Drain(q.Plugin.Matches(seg)))
	score := q.Plugin.Scorer(seg)
	for doc := 0; doc < 4; doc++ {
		s := score(doc, 0)
		assert.True(t, s >= 0 && s < SimilarityUpperBound)
	}

	custom := RandomizedCustomScoreQuery(EvenQuery(), DefaultSeed)
	assert.Nil(t, custom.Plugin.Matches(seg))
	score = custom.Plugin.Scorer(seg)
	for doc := 0; doc < 4; doc++ {
		s := score(doc, 1)
		assert.True(t, s >= 0 && s < CustomScoreUpperBound)
	}
}
