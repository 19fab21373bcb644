package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/nested-search/pkg/errors"
)

// Memory keeps stored fields in a map. It is the default store for tests
// and single-process runs.
type Memory struct {
	mu     sync.RWMutex
	docs   map[int]map[string]string
	blocks []memoryBlock
}

type memoryBlock struct {
	id   string
	base int
	docs []document.Document
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[int]map[string]string),
	}
}

func (m *Memory) PutBlock(ctx context.Context, blockID string, base int, docs []document.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range docs {
		if _, exists := m.docs[base+i]; exists {
			return fmt.Errorf("block %q: document %d already stored", blockID, base+i)
		}
	}
	for i, doc := range docs {
		m.docs[base+i] = doc.StoredFields()
	}
	m.blocks = append(m.blocks, memoryBlock{id: blockID, base: base, docs: docs})
	return nil
}

func (m *Memory) StoredFields(ctx context.Context, docID int) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fields, ok := m.docs[docID]
	if !ok {
		return nil, &apperrors.NotFoundError{DocID: docID}
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[int]map[string]string)
	m.blocks = nil
	return nil
}

// CopyTo writes every recorded block to dst in the order it was put.
func (m *Memory) CopyTo(ctx context.Context, dst Store) error {
	m.mu.RLock()
	blocks := append([]memoryBlock(nil), m.blocks...)
	m.mu.RUnlock()
	for _, b := range blocks {
		if err := dst.PutBlock(ctx, b.id, b.base, b.docs); err != nil {
			return fmt.Errorf("copying block %q: %w", b.id, err)
		}
	}
	return nil
}

// Len is the number of recorded documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *Memory) Close() error {
	return nil
}
