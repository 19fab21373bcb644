// Package indexer builds the searchable index from document blocks. The
// Engine validates each block, writes it through to the document store and
// appends it to an in-memory segment, sealing segments at block boundaries.
// Nothing is visible to searches until Commit returns a snapshot.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/nested-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/metrics"
)

// Engine is the single-writer index builder.
type Engine struct {
	mu        sync.Mutex
	cfg       config.IndexerConfig
	schema    *index.Schema
	builder   *index.Builder
	sealed    []*index.Segment
	nextBase  int
	committed bool
	store     store.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Engine)

// WithStore routes stored fields to s. Without it the engine keeps an
// in-memory store.
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(cfg config.IndexerConfig, opts ...Option) *Engine {
	if cfg.SegmentMaxDocs <= 0 {
		cfg.SegmentMaxDocs = config.Default().Indexer.SegmentMaxDocs
	}
	e := &Engine{
		cfg:     cfg,
		schema:  index.NewSchema(),
		builder: index.NewBuilder(tokenizer.Analyzer{StopWords: cfg.StopWords}),
		logger:  slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = store.NewMemory()
	}
	return e
}

// Store returns the document store the engine writes through.
func (e *Engine) Store() store.Store {
	return e.store
}

// AddBlock indexes one block atomically and returns the global id of its
// first document. A block that fails validation or cannot be stored leaves
// the index unchanged.
func (e *Engine) AddBlock(ctx context.Context, blockID string, block document.Block) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.committed {
		return 0, apperrors.ErrClosed
	}
	if err := e.schema.Validate(blockID, block); err != nil {
		e.metrics.BlockRejected()
		e.logger.Warn("block rejected", "block_id", blockID, "error", err)
		return 0, err
	}

	if n := e.builder.MaxDoc(); n > 0 && n+len(block) > e.cfg.SegmentMaxDocs {
		e.seal()
	}

	base := e.nextBase + e.builder.MaxDoc()
	if err := e.store.PutBlock(ctx, blockID, base, block); err != nil {
		return 0, fmt.Errorf("storing block %q: %w", blockID, err)
	}
	e.schema.Observe(block)
	e.builder.AddBlock(block)
	e.metrics.BlockIndexed(len(block))

	e.logger.Debug("block indexed",
		"block_id", blockID,
		"base", base,
		"docs", len(block),
		"mem_size", e.builder.Size(),
	)
	return base, nil
}

// IndexProduct flattens p and indexes it under its id.
func (e *Engine) IndexProduct(ctx context.Context, p document.Product) (int, error) {
	return e.AddBlock(ctx, p.ID, p.ToBlock())
}

// IndexProducts indexes products in order and stops at the first failure.
func (e *Engine) IndexProducts(ctx context.Context, products []document.Product) error {
	for i, p := range products {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := e.IndexProduct(ctx, p); err != nil {
			return fmt.Errorf("indexing product %d (%s): %w", i, p.ID, err)
		}
	}
	return nil
}

// NumDocs is the number of documents indexed so far.
func (e *Engine) NumDocs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextBase + e.builder.MaxDoc()
}

func (e *Engine) seal() {
	n := e.builder.MaxDoc()
	if n == 0 {
		return
	}
	seg := e.builder.Build(segment.NewID(len(e.sealed)), e.nextBase)
	e.sealed = append(e.sealed, seg)
	e.nextBase += n
	e.builder.Reset()
	e.metrics.SegmentCommitted()
	e.logger.Info("segment sealed",
		"segment", seg.ID(),
		"base", seg.Base(),
		"docs", n,
		"segments", len(e.sealed),
	)
}

// Commit seals the pending segment and returns the finished snapshot. The
// engine accepts no further blocks afterwards.
func (e *Engine) Commit() (*index.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.committed {
		return nil, apperrors.ErrClosed
	}
	e.seal()
	e.committed = true
	snap := index.NewSnapshot(e.sealed)
	e.logger.Info("index committed", "segments", len(e.sealed), "docs", snap.MaxDoc())
	return snap, nil
}

// Persist writes every segment of snap into dir.
func Persist(snap *index.Snapshot, dir string) ([]string, error) {
	w := segment.NewWriter(dir)
	names := make([]string, 0, len(snap.Segments()))
	for _, seg := range snap.Segments() {
		name, err := w.Write(seg)
		if err != nil {
			return names, fmt.Errorf("persisting %s: %w", seg.ID(), err)
		}
		names = append(names, name)
	}
	slog.Default().With("component", "indexer").Info("index persisted",
		"dir", dir,
		"segments", len(names),
	)
	return names, nil
}

// Open loads every segment file in dir into a snapshot.
func Open(dir string) (*index.Snapshot, error) {
	logger := slog.Default().With("component", "indexer")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading index directory: %w", err)
	}
	segFiles := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), segment.FileExt) {
			segFiles = append(segFiles, entry.Name())
		}
	}
	sort.Strings(segFiles)
	if len(segFiles) == 0 {
		return nil, fmt.Errorf("no segments in %s: %w", dir, apperrors.ErrIndexNotCommitted)
	}

	segs := make([]*index.Segment, 0, len(segFiles))
	for _, name := range segFiles {
		seg, err := loadSegment(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
		logger.Info("loaded segment", "segment", name, "base", seg.Base(), "docs", seg.MaxDoc())
	}
	snap := index.NewSnapshot(segs)
	logger.Info("index opened", "segments", len(segs), "docs", snap.MaxDoc())
	return snap, nil
}

func loadSegment(path string) (*index.Segment, error) {
	r, err := segment.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer r.Close()
	seg, err := r.Load()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return seg, nil
}
