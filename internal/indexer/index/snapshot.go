package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
)

// Snapshot is a committed, read-only view over an ordered set of segments.
// Segments are contiguous in the global id space. A Snapshot is safe for
// concurrent readers.
type Snapshot struct {
	segments []*Segment
	maxDoc   int
	kinds    map[string]document.Kind
	stats    map[string]FieldStats
}

// NewSnapshot orders segs by base and derives collection statistics.
func NewSnapshot(segs []*Segment) *Snapshot {
	ordered := make([]*Segment, len(segs))
	copy(ordered, segs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].base < ordered[j].base
	})

	s := &Snapshot{
		segments: ordered,
		kinds:    make(map[string]document.Kind),
		stats:    make(map[string]FieldStats),
	}
	for _, seg := range ordered {
		if end := seg.base + seg.maxDoc; end > s.maxDoc {
			s.maxDoc = end
		}
		for name, f := range seg.fields {
			if _, ok := s.kinds[name]; !ok {
				s.kinds[name] = f.Kind
			}
			st := s.stats[name]
			st.DocCount += f.DocCount
			st.SumLength += f.SumLength
			s.stats[name] = st
		}
	}
	return s
}

func (s *Snapshot) Segments() []*Segment {
	return s.segments
}

// MaxDoc is one past the largest global document id.
func (s *Snapshot) MaxDoc() int {
	return s.maxDoc
}

// Kind returns the kind a field was indexed with.
func (s *Snapshot) Kind(field string) (document.Kind, bool) {
	k, ok := s.kinds[field]
	return k, ok
}

func (s *Snapshot) FieldStats(field string) FieldStats {
	return s.stats[field]
}

// DocFreq counts the documents containing term in field across segments.
func (s *Snapshot) DocFreq(field, term string) int {
	n := 0
	for _, seg := range s.segments {
		n += len(seg.Postings(field, term))
	}
	return n
}

// Terms returns the distinct terms of field across segments, sorted.
func (s *Snapshot) Terms(field string) []string {
	seen := make(map[string]struct{})
	for _, seg := range s.segments {
		f := seg.Field(field)
		if f == nil {
			continue
		}
		for _, e := range f.Terms {
			seen[e.Term] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// Locate maps a global id to its segment and local id.
func (s *Snapshot) Locate(docID int) (*Segment, int, bool) {
	i := sort.Search(len(s.segments), func(i int) bool {
		return s.segments[i].base+s.segments[i].maxDoc > docID
	})
	if i == len(s.segments) || docID < s.segments[i].base {
		return nil, 0, false
	}
	return s.segments[i], docID - s.segments[i].base, true
}
