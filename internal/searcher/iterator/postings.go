package iterator

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
)

// PostingsIterator walks one term's postings list.
type PostingsIterator struct {
	postings index.PostingList
	i        int
	doc      int
}

func Postings(postings index.PostingList) *PostingsIterator {
	return &PostingsIterator{postings: postings, i: -1, doc: -1}
}

func (p *PostingsIterator) DocID() int  { return p.doc }
func (p *PostingsIterator) Cost() int64 { return int64(len(p.postings)) }

func (p *PostingsIterator) NextDoc() int {
	return p.moveTo(p.i + 1)
}

func (p *PostingsIterator) Advance(target int) int {
	if stay(p.doc, target) {
		return p.doc
	}
	rest := p.postings[p.i+1:]
	j := sort.Search(len(rest), func(k int) bool {
		return rest[k].Doc >= target
	})
	return p.moveTo(p.i + 1 + j)
}

func (p *PostingsIterator) moveTo(i int) int {
	p.i = i
	if i >= len(p.postings) {
		p.i = len(p.postings)
		p.doc = NoMoreDocs
	} else {
		p.doc = p.postings[i].Doc
	}
	return p.doc
}

// Freq is the term frequency in the current document.
func (p *PostingsIterator) Freq() int {
	if p.i < 0 || p.i >= len(p.postings) {
		return 0
	}
	return p.postings[p.i].Freq
}

// Positions are the token positions of the term in the current document.
func (p *PostingsIterator) Positions() []int {
	if p.i < 0 || p.i >= len(p.postings) {
		return nil
	}
	return p.postings[p.i].Positions
}
