package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/nested-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/postgres"
)

// sqlStore is the database/sql implementation shared by the SQLite and
// PostgreSQL stores. Queries are written with ? placeholders and rebound
// for the driver.
//
// It requires two tables:
//
//	CREATE TABLE documents (
//	    doc_id   BIGINT PRIMARY KEY,
//	    block_id TEXT NOT NULL,
//	    ordinal  INTEGER NOT NULL
//	);
//	CREATE TABLE stored_fields (
//	    doc_id BIGINT NOT NULL,
//	    name   TEXT NOT NULL,
//	    value  TEXT NOT NULL,
//	    PRIMARY KEY (doc_id, name)
//	);
type sqlStore struct {
	db       *sql.DB
	dollar   bool
	logger   *slog.Logger
	insertDo string
	insertSF string
	selectSF string
}

func newSQLStore(db *sql.DB, dollar bool, component string) *sqlStore {
	s := &sqlStore{
		db:     db,
		dollar: dollar,
		logger: slog.Default().With("component", component),
	}
	s.insertDo = s.rebind(`INSERT INTO documents (doc_id, block_id, ordinal) VALUES (?, ?, ?)`)
	s.insertSF = s.rebind(`INSERT INTO stored_fields (doc_id, name, value) VALUES (?, ?, ?)`)
	s.selectSF = s.rebind(`SELECT f.name, f.value FROM documents d
		LEFT JOIN stored_fields f ON f.doc_id = d.doc_id
		WHERE d.doc_id = ?`)
	return s
}

// rebind rewrites ? placeholders to $n when the driver needs them.
func (s *sqlStore) rebind(query string) string {
	if !s.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) migrate(ctx context.Context, ddl []string) error {
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating store schema: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) PutBlock(ctx context.Context, blockID string, base int, docs []document.Document) error {
	err := postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		insDoc, err := tx.PrepareContext(ctx, s.insertDo)
		if err != nil {
			return fmt.Errorf("preparing document insert: %w", err)
		}
		defer insDoc.Close()
		insField, err := tx.PrepareContext(ctx, s.insertSF)
		if err != nil {
			return fmt.Errorf("preparing stored field insert: %w", err)
		}
		defer insField.Close()

		for i, doc := range docs {
			docID := base + i
			if _, err := insDoc.ExecContext(ctx, docID, blockID, i); err != nil {
				return fmt.Errorf("inserting document %d: %w", docID, err)
			}
			for name, value := range doc.StoredFields() {
				if _, err := insField.ExecContext(ctx, docID, name, value); err != nil {
					return fmt.Errorf("inserting stored field %q of document %d: %w", name, docID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing block %q: %w", blockID, err)
	}
	s.logger.Debug("block stored", "block_id", blockID, "base", base, "docs", len(docs))
	return nil
}

func (s *sqlStore) StoredFields(ctx context.Context, docID int) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, s.selectSF, docID)
	if err != nil {
		return nil, fmt.Errorf("querying stored fields of %d: %w", docID, err)
	}
	defer rows.Close()

	var fields map[string]string
	for rows.Next() {
		var name, value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scanning stored field row: %w", err)
		}
		if fields == nil {
			fields = make(map[string]string)
		}
		if name.Valid {
			fields[name.String] = value.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading stored fields of %d: %w", docID, err)
	}
	if fields == nil {
		return nil, &apperrors.NotFoundError{DocID: docID}
	}
	return fields, nil
}

func (s *sqlStore) Reset(ctx context.Context) error {
	err := postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, table := range []string{"stored_fields", "documents"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("resetting store: %w", err)
	}
	s.logger.Info("store reset")
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
