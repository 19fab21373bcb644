// Package segment persists committed index segments as .nsx files. A file is
// a fixed 64-byte header, the JSON postings of every (field, term), a JSON
// term dictionary, a JSON metadata section carrying field lengths, numeric
// columns and roaring scope bitmaps, and a 32-byte footer with a CRC32 of
// the dictionary and metadata.
package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
)

const (
	MagicBytes    uint32 = 0x4E534958
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
	FileExt              = ".nsx"
)

// Header is the 64-byte header written at the start of every segment.
type Header struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
	MetaOffset int64
	MetaSize   int64
}

func (h Header) encode() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.MetaOffset))
	binary.LittleEndian.PutUint64(b[56:64], uint64(h.MetaSize))
	return b
}

func decodeHeader(b []byte) Header {
	return Header{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint32(b[4:8]),
		TermCount:  binary.LittleEndian.Uint32(b[8:12]),
		DocCount:   binary.LittleEndian.Uint32(b[12:16]),
		DictOffset: int64(binary.LittleEndian.Uint64(b[16:24])),
		DictSize:   int64(binary.LittleEndian.Uint64(b[24:32])),
		PostOffset: int64(binary.LittleEndian.Uint64(b[32:40])),
		PostSize:   int64(binary.LittleEndian.Uint64(b[40:48])),
		MetaOffset: int64(binary.LittleEndian.Uint64(b[48:56])),
		MetaSize:   int64(binary.LittleEndian.Uint64(b[56:64])),
	}
}

// DictEntry maps a (field, term) to its postings offset, length and document
// frequency in the segment file.
type DictEntry struct {
	Field      string `json:"f"`
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// Writer serialises segments into a directory.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes segments into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// FileName is the on-disk name of the segment with the given id.
func FileName(id string) string {
	return id + FileExt
}

// Write atomically creates the segment file for seg. It writes to a .tmp
// file first and renames on success.
func (w *Writer) Write(seg *index.Segment) (string, error) {
	if seg.MaxDoc() == 0 {
		return "", fmt.Errorf("cannot write empty segment %s", seg.ID())
	}
	data, err := seg.Data()
	if err != nil {
		return "", fmt.Errorf("exporting segment %s: %w", seg.ID(), err)
	}

	name := FileName(seg.ID())
	finalPath := filepath.Join(w.dataDir, name)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer f.Close()

	header := Header{
		Magic:    MagicBytes,
		Version:  FormatVersion,
		DocCount: uint32(data.MaxDoc),
	}
	if _, err := f.Write(header.encode()); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	postingsStart := int64(HeaderSize)
	offset := postingsStart
	var dict []DictEntry
	for i := range data.Fields {
		fd := &data.Fields[i]
		for _, entry := range fd.Terms {
			postingsData, err := json.Marshal(entry.Postings)
			if err != nil {
				return "", fmt.Errorf("marshaling postings for %s:%q: %w", fd.Name, entry.Term, err)
			}
			if _, err := f.Write(postingsData); err != nil {
				return "", fmt.Errorf("writing postings for %s:%q: %w", fd.Name, entry.Term, err)
			}
			dict = append(dict, DictEntry{
				Field:      fd.Name,
				Term:       entry.Term,
				PostOffset: offset - postingsStart,
				PostLen:    len(postingsData),
				DocFreq:    len(entry.Postings),
			})
			offset += int64(len(postingsData))
		}
		// Terms live in the postings section; the metadata keeps the rest.
		fd.Terms = nil
	}
	header.TermCount = uint32(len(dict))
	header.PostOffset = postingsStart
	header.PostSize = offset - postingsStart

	dictData, err := json.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return "", fmt.Errorf("writing dictionary: %w", err)
	}
	header.DictOffset = offset
	header.DictSize = int64(len(dictData))
	offset += header.DictSize

	metaData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshaling segment metadata: %w", err)
	}
	if _, err := f.Write(metaData); err != nil {
		return "", fmt.Errorf("writing segment metadata: %w", err)
	}
	header.MetaOffset = offset
	header.MetaSize = int64(len(metaData))

	checksum := crc32.NewIEEE()
	checksum.Write(dictData)
	checksum.Write(metaData)
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], checksum.Sum32())
	binary.LittleEndian.PutUint32(footer[4:8], header.DocCount)
	binary.LittleEndian.PutUint64(footer[8:16], uint64(header.DictOffset))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(header.DictSize))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(header.PostSize))
	if _, err := f.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}

	if _, err := f.WriteAt(header.encode(), 0); err != nil {
		return "", fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return name, nil
}

// NewID returns a segment id that sorts after ids created earlier by the
// same process.
func NewID(seq int) string {
	return fmt.Sprintf("seg_%06d_%d", seq, time.Now().UnixNano())
}
