// Package errors defines the error taxonomy shared by the indexer, the query
// evaluator and the document stores. Typed errors unwrap to a sentinel so
// callers can branch with errors.Is and inspect details with errors.As.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrIndexBuild        = errors.New("index build failed")
	ErrQuery             = errors.New("invalid query")
	ErrNotFound          = errors.New("document not found")
	ErrIndexNotCommitted = errors.New("index not committed")
	ErrClosed            = errors.New("index builder closed")
)

// IndexBuildError reports a document that violates a field-type constraint.
// Ordinal is the position of the offending document inside its block.
type IndexBuildError struct {
	BlockID string
	Ordinal int
	Field   string
	Reason  string
}

func (e *IndexBuildError) Error() string {
	return fmt.Sprintf("%s: block %q doc %d field %q: %s",
		ErrIndexBuild.Error(), e.BlockID, e.Ordinal, e.Field, e.Reason)
}

func (e *IndexBuildError) Unwrap() error {
	return ErrIndexBuild
}

// QueryError reports a malformed query node. Node is the canonical string
// form of the offending node.
type QueryError struct {
	Node   string
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrQuery.Error(), e.Node, e.Reason)
}

func (e *QueryError) Unwrap() error {
	return ErrQuery
}

// NotFoundError is returned by stored-field lookups for unknown document ids.
type NotFoundError struct {
	DocID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: id %d", ErrNotFound.Error(), e.DocID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewQueryError(node fmt.Stringer, format string, args ...any) *QueryError {
	name := "<nil>"
	if node != nil {
		name = node.String()
	}
	return &QueryError{
		Node:   name,
		Reason: fmt.Sprintf(format, args...),
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
