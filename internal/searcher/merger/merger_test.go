package merger

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/ranker"
)

func TestMergeOrdersByScoreThenID(t *testing.T) {
	results := [][]ranker.ScoredDoc{
		{{DocID: 4, Score: 1}, {DocID: 2, Score: 3}},
		{{DocID: 9, Score: 3}, {DocID: 1, Score: 1}},
		{},
	}
	want := []ranker.ScoredDoc{
		{DocID: 2, Score: 3},
		{DocID: 9, Score: 3},
		{DocID: 1, Score: 1},
		{DocID: 4, Score: 1},
	}
	assert.Equal(t, want, Merge(results, 0))
	assert.Equal(t, want, Merge(results, -1))
	assert.Equal(t, want, Merge(results, 10))
	assert.Equal(t, want[:3], Merge(results, 3))
	assert.Equal(t, want[:1], Merge(results, 1))
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge(nil, 5))
	assert.Empty(t, Merge([][]ranker.ScoredDoc{{}, {}}, 0))
}

func TestMergeTopNMatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	var results [][]ranker.ScoredDoc
	var all []ranker.ScoredDoc
	id := 0
	for s := 0; s < 5; s++ {
		var seg []ranker.ScoredDoc
		for i := 0; i < 200; i++ {
			d := ranker.ScoredDoc{DocID: id, Score: float64(rng.IntN(20))}
			seg = append(seg, d)
			all = append(all, d)
			id++
		}
		results = append(results, seg)
	}
	sort.Slice(all, func(i, j int) bool { return Less(all[i], all[j]) })

	for _, limit := range []int{1, 7, 50, 999} {
		assert.Equal(t, all[:limit], Merge(results, limit), "limit %d", limit)
	}
}
