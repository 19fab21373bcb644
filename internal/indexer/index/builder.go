package index

import (
	"sort"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/tokenizer"
)

// Builder accumulates validated blocks into an in-memory segment. It is not
// safe for concurrent use; the engine serialises writers.
type Builder struct {
	analyzer tokenizer.Analyzer
	maxDoc   int
	fields   map[string]*fieldBuilder
	numeric  map[string]*NumericColumn
	scopes   map[string]*roaring.Bitmap
	size     int64
}

type fieldBuilder struct {
	kind     document.Kind
	postings map[string]PostingList
	lengths  map[int]int
}

func NewBuilder(analyzer tokenizer.Analyzer) *Builder {
	return &Builder{
		analyzer: analyzer,
		fields:   make(map[string]*fieldBuilder),
		numeric:  make(map[string]*NumericColumn),
		scopes:   make(map[string]*roaring.Bitmap),
	}
}

// MaxDoc is the number of documents added so far.
func (b *Builder) MaxDoc() int {
	return b.maxDoc
}

// Size is a rough estimate of the builder's memory footprint in bytes.
func (b *Builder) Size() int64 {
	return b.size
}

// AddBlock appends the documents of a block, which must already have passed
// Schema.Validate, and returns the local id of its first document.
func (b *Builder) AddBlock(block document.Block) int {
	first := b.maxDoc
	for _, doc := range block {
		b.addDocument(b.maxDoc, doc)
		b.maxDoc++
	}
	return first
}

func (b *Builder) addDocument(docID int, doc document.Document) {
	termData := make(map[string]map[string]*Posting)
	nextPos := make(map[string]int)

	for _, f := range doc.Fields {
		fb := b.field(f.Name, f.Kind)
		if termData[f.Name] == nil {
			termData[f.Name] = make(map[string]*Posting)
		}
		terms := termData[f.Name]

		switch f.Kind {
		case document.Text:
			offset := nextPos[f.Name]
			words := len(tokenizer.Words(f.Value))
			for _, tok := range b.analyzer.Tokenize(f.Value) {
				addOccurrence(terms, tok.Term, docID, offset+tok.Position)
			}
			nextPos[f.Name] = offset + words
			fb.lengths[docID] += words
		case document.Numeric:
			v, _ := f.Number()
			col := b.numeric[f.Name]
			if col == nil {
				col = &NumericColumn{}
				b.numeric[f.Name] = col
			}
			col.add(v, docID)
			addOccurrence(terms, strconv.FormatFloat(v, 'f', -1, 64), docID, nextPos[f.Name])
			nextPos[f.Name]++
			fb.lengths[docID]++
		default:
			addOccurrence(terms, f.Value, docID, nextPos[f.Name])
			nextPos[f.Name]++
			fb.lengths[docID]++
			if f.Name == document.ScopeField {
				bm := b.scopes[f.Value]
				if bm == nil {
					bm = roaring.New()
					b.scopes[f.Value] = bm
				}
				bm.Add(uint32(docID))
			}
		}
	}

	for field, terms := range termData {
		fb := b.fields[field]
		for term, p := range terms {
			fb.postings[term] = append(fb.postings[term], *p)
			b.size += int64(len(term) + len(p.Positions)*8 + 32)
		}
	}
}

func addOccurrence(terms map[string]*Posting, term string, docID, pos int) {
	p, ok := terms[term]
	if !ok {
		p = &Posting{Doc: docID, Positions: make([]int, 0, 2)}
		terms[term] = p
	}
	p.Freq++
	p.Positions = append(p.Positions, pos)
}

func (b *Builder) field(name string, kind document.Kind) *fieldBuilder {
	fb, ok := b.fields[name]
	if !ok {
		fb = &fieldBuilder{
			kind:     kind,
			postings: make(map[string]PostingList),
			lengths:  make(map[int]int),
		}
		b.fields[name] = fb
	}
	return fb
}

// Build seals the accumulated documents into an immutable segment whose
// first document has global id base.
func (b *Builder) Build(id string, base int) *Segment {
	seg := &Segment{
		id:      id,
		base:    base,
		maxDoc:  b.maxDoc,
		fields:  make(map[string]*FieldInfo, len(b.fields)),
		numeric: b.numeric,
		scopes:  b.scopes,
	}
	for name, fb := range b.fields {
		info := &FieldInfo{
			Name:    name,
			Kind:    fb.kind,
			Terms:   make([]TermEntry, 0, len(fb.postings)),
			Lengths: make([]int, b.maxDoc),
		}
		for term, postings := range fb.postings {
			info.Terms = append(info.Terms, TermEntry{Term: term, Postings: postings})
		}
		sort.Slice(info.Terms, func(i, j int) bool {
			return info.Terms[i].Term < info.Terms[j].Term
		})
		for doc, l := range fb.lengths {
			info.Lengths[doc] = l
			if l > 0 {
				info.DocCount++
				info.SumLength += int64(l)
			}
		}
		seg.fields[name] = info
	}
	for _, col := range seg.numeric {
		col.sort()
	}
	for _, bm := range seg.scopes {
		bm.RunOptimize()
	}
	return seg
}

// Reset discards everything added since the last Build.
func (b *Builder) Reset() {
	b.maxDoc = 0
	b.size = 0
	b.fields = make(map[string]*fieldBuilder)
	b.numeric = make(map[string]*NumericColumn)
	b.scopes = make(map[string]*roaring.Bitmap)
}
