package index

import "sort"

// Posting records the occurrences of one term in one document. Doc is local
// to the segment holding the posting.
type Posting struct {
	Doc       int   `json:"d"`
	Freq      int   `json:"f"`
	Positions []int `json:"p,omitempty"`
}

// PostingList is ordered by ascending Doc.
type PostingList []Posting

type TermEntry struct {
	Term     string      `json:"t"`
	Postings PostingList `json:"p"`
}

// FieldStats are collection-level statistics for one field, summed across
// segments by the snapshot.
type FieldStats struct {
	DocCount  int
	SumLength int64
}

// AvgLength returns the mean field length over documents that carry the
// field.
func (s FieldStats) AvgLength() float64 {
	if s.DocCount == 0 {
		return 0
	}
	return float64(s.SumLength) / float64(s.DocCount)
}

// NumericColumn is the ordered value index of a numeric field: Values is
// ascending and Docs[i] holds Values[i].
type NumericColumn struct {
	Values []float64 `json:"v"`
	Docs   []int     `json:"d"`
}

func (c *NumericColumn) add(value float64, doc int) {
	c.Values = append(c.Values, value)
	c.Docs = append(c.Docs, doc)
}

func (c *NumericColumn) sort() {
	sort.Sort(byValue{c})
}

// Range returns, in ascending order and without duplicates, the documents
// holding a value in [lo, hi].
func (c *NumericColumn) Range(lo, hi float64) []int {
	if c == nil || lo > hi {
		return nil
	}
	start := sort.SearchFloat64s(c.Values, lo)
	end := sort.Search(len(c.Values), func(i int) bool {
		return c.Values[i] > hi
	})
	if start >= end {
		return nil
	}
	docs := make([]int, end-start)
	copy(docs, c.Docs[start:end])
	sort.Ints(docs)
	out := docs[:1]
	for _, d := range docs[1:] {
		if d != out[len(out)-1] {
			out = append(out, d)
		}
	}
	return out
}

type byValue struct{ c *NumericColumn }

func (b byValue) Len() int { return len(b.c.Values) }

func (b byValue) Less(i, j int) bool {
	if b.c.Values[i] != b.c.Values[j] {
		return b.c.Values[i] < b.c.Values[j]
	}
	return b.c.Docs[i] < b.c.Docs[j]
}

func (b byValue) Swap(i, j int) {
	b.c.Values[i], b.c.Values[j] = b.c.Values[j], b.c.Values[i]
	b.c.Docs[i], b.c.Docs[j] = b.c.Docs[j], b.c.Docs[i]
}
