package iterator

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
)

func scored(docs []int, score float64) Scorer {
	return Constant(Slice(docs), score)
}

func TestLeafIterators(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, Drain(All(3)))
	assert.Empty(t, Drain(All(0)))
	assert.Equal(t, []int{2, 5, 9}, Drain(Slice([]int{2, 5, 9})))
	assert.Empty(t, Drain(Empty()))

	bm := roaring.BitmapOf(1, 4, 100, 70000)
	assert.Equal(t, []int{1, 4, 100, 70000}, Drain(Bitmap(bm)))
}

func TestAdvanceContract(t *testing.T) {
	iters := map[string]DocIterator{
		"slice":    Slice([]int{1, 4, 7, 10}),
		"bitmap":   Bitmap(roaring.BitmapOf(1, 4, 7, 10)),
		"postings": Postings(index.PostingList{{Doc: 1}, {Doc: 4}, {Doc: 7}, {Doc: 10}}),
		"union":    Union(scored([]int{1, 7}, 1), scored([]int{4, 10}, 1)),
		"and":      Conjunction(scored([]int{1, 2, 4, 7, 10}, 1), scored([]int{0, 1, 4, 7, 10, 11}, 1)),
	}
	for name, it := range iters {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, -1, it.DocID())
			assert.Equal(t, 4, it.Advance(2))
			assert.Equal(t, 4, it.Advance(3), "never moves backwards")
			assert.Equal(t, 4, it.DocID())
			assert.Equal(t, 7, it.NextDoc())
			assert.Equal(t, 10, it.Advance(10))
			assert.Equal(t, NoMoreDocs, it.Advance(11))
			assert.Equal(t, NoMoreDocs, it.NextDoc(), "exhaustion is terminal")
			assert.Equal(t, NoMoreDocs, it.Advance(0))
		})
	}
}

func TestPostingsIterator_FreqAndPositions(t *testing.T) {
	it := Postings(index.PostingList{
		{Doc: 3, Freq: 2, Positions: []int{0, 5}},
		{Doc: 8, Freq: 1, Positions: []int{2}},
	})
	assert.Equal(t, 0, it.Freq())
	assert.Equal(t, int64(2), it.Cost())
	require.Equal(t, 3, it.NextDoc())
	assert.Equal(t, 2, it.Freq())
	assert.Equal(t, []int{0, 5}, it.Positions())
	require.Equal(t, 8, it.Advance(4))
	assert.Equal(t, []int{2}, it.Positions())
	assert.Equal(t, NoMoreDocs, it.NextDoc())
	assert.Nil(t, it.Positions())
}

func TestConjunction_Intersection(t *testing.T) {
	c := Conjunction(
		scored([]int{1, 3, 5, 7, 9, 11}, 1),
		scored([]int{3, 4, 5, 9, 12}, 2),
		scored([]int{0, 3, 9, 10}, 4),
	)
	var docs []int
	for doc := c.NextDoc(); doc != NoMoreDocs; doc = c.NextDoc() {
		docs = append(docs, doc)
		assert.Equal(t, 7.0, c.Score())
	}
	assert.Equal(t, []int{3, 9}, docs)
}

func TestUnion_SumsMatchingScores(t *testing.T) {
	u := Union(scored([]int{1, 3}, 1), scored([]int{3, 5}, 2))
	got := map[int]float64{}
	for doc := u.NextDoc(); doc != NoMoreDocs; doc = u.NextDoc() {
		got[doc] = u.Score()
	}
	assert.Equal(t, map[int]float64{1: 1, 3: 3, 5: 2}, got)
}

func TestMinShouldMatch(t *testing.T) {
	subs := func() []Scorer {
		return []Scorer{
			scored([]int{1, 2, 3}, 1),
			scored([]int{2, 3, 4}, 1),
			scored([]int{3, 4, 5}, 1),
		}
	}
	assert.Equal(t, []int{2, 3, 4}, Drain(MinShouldMatch(subs(), 2)))
	assert.Equal(t, []int{3}, Drain(MinShouldMatch(subs(), 3)))
	assert.Empty(t, Drain(MinShouldMatch(subs(), 4)))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, Drain(MinShouldMatch(subs(), 0)))
}

func TestExclude(t *testing.T) {
	e := Exclude(scored([]int{1, 2, 3, 4, 5}, 1), Slice([]int{2, 4, 6}))
	assert.Equal(t, []int{1, 3, 5}, Drain(e))

	e = Exclude(scored([]int{1, 2}, 1), Slice([]int{1, 2}))
	assert.Empty(t, Drain(e))
}

func TestOptional(t *testing.T) {
	o := Optional(scored([]int{1, 2, 3}, 1), scored([]int{2, 9}, 5))
	got := map[int]float64{}
	for doc := o.NextDoc(); doc != NoMoreDocs; doc = o.NextDoc() {
		got[doc] = o.Score()
	}
	assert.Equal(t, map[int]float64{1: 1, 2: 6, 3: 1}, got)
}

func TestNextAndPrevSetBit(t *testing.T) {
	bm := roaring.BitmapOf(4, 9, 15)
	assert.Equal(t, 4, NextSetBit(bm, 0))
	assert.Equal(t, 4, NextSetBit(bm, 4))
	assert.Equal(t, 9, NextSetBit(bm, 5))
	assert.Equal(t, 15, NextSetBit(bm, 15))
	assert.Equal(t, NoMoreDocs, NextSetBit(bm, 16))
	assert.Equal(t, NoMoreDocs, NextSetBit(roaring.New(), 0))

	assert.Equal(t, -1, PrevSetBit(bm, 3))
	assert.Equal(t, 4, PrevSetBit(bm, 8))
	assert.Equal(t, 9, PrevSetBit(bm, 9))
	assert.Equal(t, 15, PrevSetBit(bm, 100))
	assert.Equal(t, -1, PrevSetBit(bm, -1))
}

func TestCollect(t *testing.T) {
	bm := Collect(Slice([]int{3, 8}))
	assert.Equal(t, []uint32{3, 8}, bm.ToArray())
}
