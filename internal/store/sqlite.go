package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		doc_id   INTEGER PRIMARY KEY,
		block_id TEXT NOT NULL,
		ordinal  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stored_fields (
		doc_id INTEGER NOT NULL,
		name   TEXT NOT NULL,
		value  TEXT NOT NULL,
		PRIMARY KEY (doc_id, name)
	)`,
}

// SQLite is an embedded, file-backed document store.
type SQLite struct {
	*sqlStore
	path string
}

// NewSQLite opens (creating if needed) the database file at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store %s: %w", path, err)
	}
	// A single connection serialises writers.
	db.SetMaxOpenConns(1)

	s := &SQLite{sqlStore: newSQLStore(db, false, "sqlite-store"), path: path}
	if err := s.migrate(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("sqlite store opened", "path", path)
	return s, nil
}
