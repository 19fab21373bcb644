package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/nested-search/pkg/errors"
)

func productBlock() document.Block {
	return document.Product{
		ID:    "p-1",
		Brand: "Adidas",
		SKUs: []document.SKU{
			{SKUID: "sku-1", Size: "XL", Color: "black", Prices: []document.Price{{Address: "a", Price: 150}}},
		},
	}.ToBlock()
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	block := productBlock()
	require.NoError(t, s.PutBlock(ctx, "p-1", 10, block))

	fields, err := s.StoredFields(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, fields, "price leaf has no stored fields")

	fields, err = s.StoredFields(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"skuId": "sku-1"}, fields)

	fields, err = s.StoredFields(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "p-1"}, fields)

	_, err = s.StoredFields(ctx, 99)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	var nf *apperrors.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 99, nf.DocID)

	err = s.PutBlock(ctx, "dup", 12, block[:1])
	require.Error(t, err, "ids are never reassigned")

	require.NoError(t, s.Reset(ctx))
	_, err = s.StoredFields(ctx, 12)
	assert.True(t, apperrors.IsNotFound(err))
	require.NoError(t, s.PutBlock(ctx, "p-1", 10, block), "ids are free after a reset")
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)
	assert.Equal(t, 3, s.Len())
	require.NoError(t, s.Reset(context.Background()))
	assert.Zero(t, s.Len())
	require.NoError(t, s.Close())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store", "docs.db")
	s, err := NewSQLite(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore_FailedBlockLeavesNothing(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.PutBlock(ctx, "first", 1, productBlock()[:1]))
	err = s.PutBlock(ctx, "second", 0, productBlock())
	require.Error(t, err)

	_, err = s.StoredFields(ctx, 0)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docs.db")
	s, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.PutBlock(ctx, "p-1", 0, productBlock()))
	require.NoError(t, s.Close())

	s, err = NewSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	fields, err := s.StoredFields(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "p-1", fields["id"])
}

func TestRebind(t *testing.T) {
	pg := &sqlStore{dollar: true}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))
	lite := &sqlStore{}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), config.Default())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	cfg := config.Default()
	cfg.Store.Driver = "cassandra"
	_, err = Open(context.Background(), cfg)
	assert.Error(t, err)
}
