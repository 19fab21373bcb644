package iterator

import (
	"github.com/RoaringBitmap/roaring/v2"
)

type bitmapIterator struct {
	bm  *roaring.Bitmap
	it  roaring.IntPeekable
	doc int
}

// Bitmap iterates the ids set in bm.
func Bitmap(bm *roaring.Bitmap) DocIterator {
	return &bitmapIterator{bm: bm, it: bm.Iterator(), doc: -1}
}

func (b *bitmapIterator) DocID() int  { return b.doc }
func (b *bitmapIterator) Cost() int64 { return int64(b.bm.GetCardinality()) }

func (b *bitmapIterator) NextDoc() int {
	if b.doc == NoMoreDocs {
		return b.doc
	}
	if b.it.HasNext() {
		b.doc = int(b.it.Next())
	} else {
		b.doc = NoMoreDocs
	}
	return b.doc
}

func (b *bitmapIterator) Advance(target int) int {
	if stay(b.doc, target) {
		return b.doc
	}
	if target > 0 {
		b.it.AdvanceIfNeeded(uint32(target))
	}
	return b.NextDoc()
}

// NextSetBit returns the smallest id >= from set in bm, or NoMoreDocs.
func NextSetBit(bm *roaring.Bitmap, from int) int {
	if from < 0 {
		from = 0
	}
	var before uint64
	if from > 0 {
		before = bm.Rank(uint32(from - 1))
	}
	if before >= bm.GetCardinality() {
		return NoMoreDocs
	}
	v, err := bm.Select(uint32(before))
	if err != nil {
		return NoMoreDocs
	}
	return int(v)
}

// PrevSetBit returns the largest id <= from set in bm, or -1.
func PrevSetBit(bm *roaring.Bitmap, from int) int {
	if from < 0 {
		return -1
	}
	upTo := bm.Rank(uint32(from))
	if upTo == 0 {
		return -1
	}
	v, err := bm.Select(uint32(upTo - 1))
	if err != nil {
		return -1
	}
	return int(v)
}

// Collect drains it into a bitmap.
func Collect(it DocIterator) *roaring.Bitmap {
	bm := roaring.New()
	for doc := it.NextDoc(); doc != NoMoreDocs; doc = it.NextDoc() {
		bm.Add(uint32(doc))
	}
	return bm
}
