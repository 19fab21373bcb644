package index

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/nested-search/pkg/errors"
)

// Schema remembers the kind each field name was first indexed with. A field
// name keeps one kind for the lifetime of an index.
type Schema struct {
	kinds map[string]document.Kind
}

func NewSchema() *Schema {
	return &Schema{kinds: make(map[string]document.Kind)}
}

// Kind returns the kind of field, if it has been observed.
func (s *Schema) Kind(field string) (document.Kind, bool) {
	k, ok := s.kinds[field]
	return k, ok
}

// Validate checks every document of block against the field-type
// constraints without changing the schema. The first violation is returned
// as an *errors.IndexBuildError.
func (s *Schema) Validate(blockID string, block document.Block) error {
	pending := make(map[string]document.Kind)
	fail := func(ordinal int, field, reason string) error {
		return &apperrors.IndexBuildError{
			BlockID: blockID,
			Ordinal: ordinal,
			Field:   field,
			Reason:  reason,
		}
	}

	if len(block) == 0 {
		return fail(0, "", "empty block")
	}
	for i, doc := range block {
		hasScope := false
		for _, f := range doc.Fields {
			if f.Name == "" {
				return fail(i, f.Name, "empty field name")
			}
			switch f.Kind {
			case document.String, document.Text:
			case document.Numeric:
				v, err := f.Number()
				if err != nil {
					return fail(i, f.Name, err.Error())
				}
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fail(i, f.Name, "numeric value must be finite")
				}
			default:
				return fail(i, f.Name, "unknown field kind "+f.Kind.String())
			}

			want, known := s.kinds[f.Name]
			if !known {
				want, known = pending[f.Name]
			}
			if known && want != f.Kind {
				return fail(i, f.Name, "field indexed as "+want.String()+", got "+f.Kind.String())
			}
			pending[f.Name] = f.Kind

			if f.Name == document.ScopeField {
				if f.Kind != document.String {
					return fail(i, f.Name, "scope must be a string field")
				}
				if f.Value == "" {
					return fail(i, f.Name, "empty scope")
				}
				hasScope = true
			}
		}
		if !hasScope {
			return fail(i, document.ScopeField, "missing scope marker")
		}
	}
	return nil
}

// Observe records the kinds used by a block that passed Validate.
func (s *Schema) Observe(block document.Block) {
	for _, doc := range block {
		for _, f := range doc.Fields {
			if _, ok := s.kinds[f.Name]; !ok {
				s.kinds[f.Name] = f.Kind
			}
		}
	}
}
