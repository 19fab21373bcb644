package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
)

// FieldInfo is the inverted index of one field inside a segment.
type FieldInfo struct {
	Name  string
	Kind  document.Kind
	Terms []TermEntry
	// Lengths holds the token count of the field for every local document.
	Lengths   []int
	DocCount  int
	SumLength int64
}

// Lookup returns the postings of an exact term.
func (f *FieldInfo) Lookup(term string) (PostingList, bool) {
	i := sort.Search(len(f.Terms), func(i int) bool {
		return f.Terms[i].Term >= term
	})
	if i < len(f.Terms) && f.Terms[i].Term == term {
		return f.Terms[i].Postings, true
	}
	return nil, false
}

// PrefixTerms returns the contiguous run of terms starting with prefix.
func (f *FieldInfo) PrefixTerms(prefix string) []TermEntry {
	start := sort.Search(len(f.Terms), func(i int) bool {
		return f.Terms[i].Term >= prefix
	})
	end := start
	for end < len(f.Terms) && strings.HasPrefix(f.Terms[end].Term, prefix) {
		end++
	}
	return f.Terms[start:end]
}

// Length returns the field length of a local document.
func (f *FieldInfo) Length(doc int) int {
	if doc < 0 || doc >= len(f.Lengths) {
		return 0
	}
	return f.Lengths[doc]
}

// Segment is an immutable slice of the index. Documents inside it are
// numbered from 0; Base maps them to global ids.
type Segment struct {
	id      string
	base    int
	maxDoc  int
	fields  map[string]*FieldInfo
	numeric map[string]*NumericColumn
	scopes  map[string]*roaring.Bitmap
}

func (s *Segment) ID() string  { return s.id }
func (s *Segment) Base() int   { return s.base }
func (s *Segment) MaxDoc() int { return s.maxDoc }

// Field returns the inverted index of name, or nil when no document in the
// segment carries it.
func (s *Segment) Field(name string) *FieldInfo {
	return s.fields[name]
}

// FieldNames returns the indexed field names in sorted order.
func (s *Segment) FieldNames() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Postings returns the postings of term in field.
func (s *Segment) Postings(field, term string) PostingList {
	f := s.fields[field]
	if f == nil {
		return nil
	}
	p, _ := f.Lookup(term)
	return p
}

func (s *Segment) Numeric(field string) *NumericColumn {
	return s.numeric[field]
}

// Scope returns the local ids of documents whose scope marker equals value.
// The returned bitmap must not be modified.
func (s *Segment) Scope(value string) *roaring.Bitmap {
	if bm, ok := s.scopes[value]; ok {
		return bm
	}
	return roaring.New()
}

func (s *Segment) String() string {
	return fmt.Sprintf("segment(%s base=%d docs=%d)", s.id, s.base, s.maxDoc)
}

// FieldData is the serialisable form of a FieldInfo.
type FieldData struct {
	Name    string        `json:"name"`
	Kind    document.Kind `json:"kind"`
	Terms   []TermEntry   `json:"terms,omitempty"`
	Lengths []int         `json:"lengths"`
}

// SegmentData is the serialisable form of a Segment. Scope bitmaps are kept
// in roaring's portable binary encoding.
type SegmentData struct {
	ID      string                    `json:"id"`
	Base    int                       `json:"base"`
	MaxDoc  int                       `json:"maxDoc"`
	Fields  []FieldData               `json:"fields"`
	Numeric map[string]*NumericColumn `json:"numeric"`
	Scopes  map[string][]byte         `json:"scopes"`
}

// Data exports the segment for persistence.
func (s *Segment) Data() (SegmentData, error) {
	data := SegmentData{
		ID:      s.id,
		Base:    s.base,
		MaxDoc:  s.maxDoc,
		Fields:  make([]FieldData, 0, len(s.fields)),
		Numeric: s.numeric,
		Scopes:  make(map[string][]byte, len(s.scopes)),
	}
	for _, name := range s.FieldNames() {
		f := s.fields[name]
		data.Fields = append(data.Fields, FieldData{
			Name:    f.Name,
			Kind:    f.Kind,
			Terms:   f.Terms,
			Lengths: f.Lengths,
		})
	}
	for value, bm := range s.scopes {
		raw, err := bm.MarshalBinary()
		if err != nil {
			return SegmentData{}, fmt.Errorf("encoding scope %q bitmap: %w", value, err)
		}
		data.Scopes[value] = raw
	}
	return data, nil
}

// FromData rebuilds a segment exported with Data.
func FromData(data SegmentData) (*Segment, error) {
	seg := &Segment{
		id:      data.ID,
		base:    data.Base,
		maxDoc:  data.MaxDoc,
		fields:  make(map[string]*FieldInfo, len(data.Fields)),
		numeric: data.Numeric,
		scopes:  make(map[string]*roaring.Bitmap, len(data.Scopes)),
	}
	if seg.numeric == nil {
		seg.numeric = make(map[string]*NumericColumn)
	}
	for _, fd := range data.Fields {
		if len(fd.Lengths) != data.MaxDoc {
			return nil, fmt.Errorf("field %q has %d lengths for %d docs", fd.Name, len(fd.Lengths), data.MaxDoc)
		}
		f := &FieldInfo{
			Name:    fd.Name,
			Kind:    fd.Kind,
			Terms:   fd.Terms,
			Lengths: fd.Lengths,
		}
		for _, l := range fd.Lengths {
			if l > 0 {
				f.DocCount++
				f.SumLength += int64(l)
			}
		}
		seg.fields[fd.Name] = f
	}
	for value, raw := range data.Scopes {
		bm := roaring.New()
		if err := bm.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("decoding scope %q bitmap: %w", value, err)
		}
		seg.scopes[value] = bm
	}
	return seg, nil
}
