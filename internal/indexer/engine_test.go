package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	corpus "github.com/Adithya-Monish-Kumar-K/nested-search/internal/testutil"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/nested-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/metrics"
)

func TestEngine_DocCountMatchesProductSize(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(config.IndexerConfig{})
	products := corpus.Products(50, 172488)

	want := 0
	for _, p := range products {
		before := e.NumDocs()
		base, err := e.IndexProduct(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, before, base)
		assert.Equal(t, p.Size(), e.NumDocs()-before, p.ID)
		want += p.Size()
	}

	snap, err := e.Commit()
	require.NoError(t, err)
	assert.Equal(t, want, snap.MaxDoc())
	require.Len(t, snap.Segments(), 1)
}

func TestEngine_SealsAtBlockBoundaries(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(config.IndexerConfig{SegmentMaxDocs: 10})
	products := corpus.Products(30, 3)
	require.NoError(t, e.IndexProducts(ctx, products))

	snap, err := e.Commit()
	require.NoError(t, err)
	require.Greater(t, len(snap.Segments()), 1)

	next := 0
	for _, seg := range snap.Segments() {
		assert.Equal(t, next, seg.Base(), "segments are contiguous")
		next += seg.MaxDoc()
		roots := seg.Scope(document.ScopeProduct)
		require.False(t, roots.IsEmpty())
		assert.Equal(t, uint32(seg.MaxDoc()-1), roots.Maximum(), "every segment ends on a product root")
	}
	assert.Equal(t, e.NumDocs(), snap.MaxDoc())
}

func TestEngine_RejectsBadBlockAtomically(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := NewEngine(config.IndexerConfig{}, WithMetrics(m))

	_, err := e.IndexProduct(ctx, corpus.Products(1, 1)[0])
	require.NoError(t, err)
	before := e.NumDocs()

	bad := document.Block{
		document.New(document.StringField(document.ScopeField, document.ScopeSKU, false)),
		document.New(
			document.StringField(document.ScopeField, document.ScopeProduct, false),
			document.Field{Name: "price", Kind: document.Numeric, Value: "free"},
		),
	}
	_, err = e.AddBlock(ctx, "bad", bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrIndexBuild))
	var be *apperrors.IndexBuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 1, be.Ordinal)
	assert.Equal(t, "price", be.Field)

	assert.Equal(t, before, e.NumDocs())
	_, err = e.Store().StoredFields(ctx, before)
	assert.True(t, apperrors.IsNotFound(err), "rejected block never reaches the store")

	assert.Equal(t, 1.0, counterValue(t, m.BlockRejectionsTotal))
	assert.Equal(t, 1.0, counterValue(t, m.BlocksIndexedTotal))
}

func TestEngine_ClosedAfterCommit(t *testing.T) {
	e := NewEngine(config.IndexerConfig{})
	snap, err := e.Commit()
	require.NoError(t, err)
	assert.Equal(t, 0, snap.MaxDoc())

	_, err = e.IndexProduct(context.Background(), corpus.Products(1, 1)[0])
	assert.ErrorIs(t, err, apperrors.ErrClosed)
	_, err = e.Commit()
	assert.ErrorIs(t, err, apperrors.ErrClosed)
}

func TestEngine_StoredFieldsWrittenThrough(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(config.IndexerConfig{})
	p := document.Product{ID: "p-9", SKUs: []document.SKU{{SKUID: "s-9", Size: "M", Color: "red"}}}
	base, err := e.IndexProduct(ctx, p)
	require.NoError(t, err)

	fields, err := e.Store().StoredFields(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"skuId": "s-9"}, fields)
	fields, err = e.Store().StoredFields(ctx, base+1)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "p-9"}, fields)
}

func TestPersistAndOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	e := NewEngine(config.IndexerConfig{SegmentMaxDocs: 25})
	require.NoError(t, e.IndexProducts(ctx, corpus.Products(20, 11)))
	snap, err := e.Commit()
	require.NoError(t, err)

	names, err := Persist(snap, dir)
	require.NoError(t, err)
	assert.Len(t, names, len(snap.Segments()))

	opened, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, snap.MaxDoc(), opened.MaxDoc())
	require.Len(t, opened.Segments(), len(snap.Segments()))
	for i, seg := range snap.Segments() {
		assert.Equal(t, seg.Base(), opened.Segments()[i].Base())
	}
	assert.Equal(t, snap.DocFreq("color", "black"), opened.DocFreq("color", "black"))

	_, err = Open(t.TempDir())
	assert.ErrorIs(t, err, apperrors.ErrIndexNotCommitted)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, c.Write(&out))
	return out.GetCounter().GetValue()
}
