package eval

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/iterator"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/query"
)

// blockJoin maps child matches to their parents. Blocks store children
// before their root, so the parent of a child is the next parent bit at or
// after it. Children that are themselves parents are ignored, as are
// children after the last parent.
type blockJoin struct {
	child   iterator.Scorer
	parents *roaring.Bitmap
	mode    query.ScoreMode
	doc     int
	score   float64
}

func newBlockJoin(child iterator.Scorer, parents *roaring.Bitmap, mode query.ScoreMode) iterator.Scorer {
	if parents.IsEmpty() {
		return iterator.Empty()
	}
	return &blockJoin{child: child, parents: parents, mode: mode, doc: -1}
}

func (b *blockJoin) DocID() int     { return b.doc }
func (b *blockJoin) Cost() int64    { return b.child.Cost() }
func (b *blockJoin) Score() float64 { return b.score }

func (b *blockJoin) NextDoc() int {
	if b.doc == iterator.NoMoreDocs {
		return b.doc
	}
	childDoc := b.child.DocID()
	if childDoc <= b.doc {
		childDoc = b.child.NextDoc()
	}
	return b.settle(childDoc)
}

func (b *blockJoin) Advance(target int) int {
	if b.doc == iterator.NoMoreDocs || (b.doc >= 0 && target <= b.doc) {
		return b.doc
	}
	// Children of parents at or after target follow the last parent
	// before it.
	prev := iterator.PrevSetBit(b.parents, target-1)
	childDoc := b.child.DocID()
	if childDoc <= prev {
		childDoc = b.child.Advance(prev + 1)
	}
	return b.settle(childDoc)
}

func (b *blockJoin) settle(childDoc int) int {
	for childDoc != iterator.NoMoreDocs {
		if b.parents.Contains(uint32(childDoc)) {
			childDoc = b.child.NextDoc()
			continue
		}
		parent := iterator.NextSetBit(b.parents, childDoc)
		if parent == iterator.NoMoreDocs {
			break
		}
		var count int
		var sum, best float64
		for childDoc < parent {
			s := b.child.Score()
			if count == 0 || s > best {
				best = s
			}
			sum += s
			count++
			childDoc = b.child.NextDoc()
		}
		b.doc = parent
		b.score = b.aggregate(count, sum, best)
		return b.doc
	}
	b.doc = iterator.NoMoreDocs
	return b.doc
}

func (b *blockJoin) aggregate(count int, sum, best float64) float64 {
	switch b.mode {
	case query.ScoreMax:
		return best
	case query.ScoreTotal:
		return sum
	case query.ScoreAvg:
		return sum / float64(count)
	default:
		return 1
	}
}
