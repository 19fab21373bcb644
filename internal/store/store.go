// Package store persists the stored fields of indexed documents and resolves
// them by internal document id. Only fields flagged as stored are kept;
// every indexed document is recorded, so a known id without stored fields
// resolves to an empty map while an unknown id yields *errors.NotFoundError.
package store

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/postgres"
)

// Store is the document store the indexer writes through and the executor
// materialises hits from.
type Store interface {
	// PutBlock records the documents of one block. docs[i] has internal id
	// base+i. A failed call leaves no document of the block recorded.
	PutBlock(ctx context.Context, blockID string, base int, docs []document.Document) error
	// StoredFields returns the stored field values of docID.
	StoredFields(ctx context.Context, docID int) (map[string]string, error)
	// Reset forgets every document, ahead of a rebuild that reuses ids.
	Reset(ctx context.Context) error
	Close() error
}

// Open builds the store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(ctx, cfg.Store.SQLitePath)
	case "postgres":
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return NewPostgres(ctx, client)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
