package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
)

// Reader gives access to one segment file. Postings are read lazily by
// Search or all at once by Load.
type Reader struct {
	file     *os.File
	filePath string
	header   Header
	dict     []DictEntry
	meta     index.SegmentData
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := newReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func newReader(f *os.File, path string) (*Reader, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading segment header: %w", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("invalid segment file: bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported segment version %d", header.Version)
	}

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	metaBytes := make([]byte, header.MetaSize)
	if _, err := f.ReadAt(metaBytes, header.MetaOffset); err != nil {
		return nil, fmt.Errorf("reading segment metadata: %w", err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.MetaOffset+header.MetaSize); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	checksum := crc32.NewIEEE()
	checksum.Write(dictBytes)
	checksum.Write(metaBytes)
	if want := binary.LittleEndian.Uint32(footer[0:4]); want != checksum.Sum32() {
		return nil, fmt.Errorf("segment %s checksum mismatch", path)
	}

	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	var meta index.SegmentData
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("parsing segment metadata: %w", err)
	}
	sort.Slice(dict, func(i, j int) bool {
		if dict[i].Field != dict[j].Field {
			return dict[i].Field < dict[j].Field
		}
		return dict[i].Term < dict[j].Term
	})
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		meta:     meta,
	}, nil
}

// Search reads the postings of one term.
func (r *Reader) Search(field, term string) (index.PostingList, error) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		if r.dict[i].Field != field {
			return r.dict[i].Field >= field
		}
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Field != field || r.dict[idx].Term != term {
		return nil, nil
	}
	return r.readPostings(r.dict[idx])
}

func (r *Reader) readPostings(entry DictEntry) (index.PostingList, error) {
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings: %w", err)
	}
	return postings, nil
}

// Load materialises the whole segment in memory.
func (r *Reader) Load() (*index.Segment, error) {
	data := r.meta
	data.Fields = make([]index.FieldData, len(r.meta.Fields))
	byField := make(map[string]int, len(data.Fields))
	for i, fd := range r.meta.Fields {
		data.Fields[i] = fd
		data.Fields[i].Terms = make([]index.TermEntry, 0)
		byField[fd.Name] = i
	}
	for _, entry := range r.dict {
		i, ok := byField[entry.Field]
		if !ok {
			return nil, fmt.Errorf("dictionary names unknown field %q", entry.Field)
		}
		postings, err := r.readPostings(entry)
		if err != nil {
			return nil, fmt.Errorf("loading %s:%q: %w", entry.Field, entry.Term, err)
		}
		data.Fields[i].Terms = append(data.Fields[i].Terms, index.TermEntry{
			Term:     entry.Term,
			Postings: postings,
		})
	}
	seg, err := index.FromData(data)
	if err != nil {
		return nil, fmt.Errorf("rebuilding segment %s: %w", r.filePath, err)
	}
	return seg, nil
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Close() error {
	return r.file.Close()
}
