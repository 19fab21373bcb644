package store

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/postgres"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		doc_id   BIGINT PRIMARY KEY,
		block_id TEXT NOT NULL,
		ordinal  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stored_fields (
		doc_id BIGINT NOT NULL,
		name   TEXT NOT NULL,
		value  TEXT NOT NULL,
		PRIMARY KEY (doc_id, name)
	)`,
}

// Postgres stores documents in PostgreSQL through lib/pq.
type Postgres struct {
	*sqlStore
}

// NewPostgres creates the schema if needed. The store takes ownership of
// client and closes it on Close.
func NewPostgres(ctx context.Context, client *postgres.Client) (*Postgres, error) {
	s := &Postgres{sqlStore: newSQLStore(client.DB, true, "postgres-store")}
	if err := s.migrate(ctx, postgresSchema); err != nil {
		return nil, err
	}
	s.logger.Info("postgres store ready")
	return s, nil
}
