// Package document defines the leaf document and block model indexed by the
// engine. A block is the flattened form of one hierarchical entity: its
// deepest children come first and the entity's own root document is last.
package document

import (
	"fmt"
	"strconv"
)

// Kind is the type of a field value.
type Kind int

const (
	// String fields are indexed as a single exact term.
	String Kind = iota
	// Text fields are tokenized into positioned terms.
	Text
	// Numeric fields support inclusive range matching.
	Numeric
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Text:
		return "text"
	case Numeric:
		return "numeric"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ScopeField is the field every leaf carries to name its hierarchy level.
const ScopeField = "scope"

// Scope values of the product domain.
const (
	ScopePrice   = "price"
	ScopeSKU     = "sku"
	ScopeProduct = "product"
)

// Field is a single named value attached to a document. Numeric fields carry
// their value in Num; Value holds its textual form for storage.
type Field struct {
	Name   string
	Kind   Kind
	Value  string
	Num    float64
	Stored bool
}

func StringField(name, value string, stored bool) Field {
	return Field{Name: name, Kind: String, Value: value, Stored: stored}
}

func TextField(name, value string, stored bool) Field {
	return Field{Name: name, Kind: Text, Value: value, Stored: stored}
}

func NumericField(name string, value float64, stored bool) Field {
	return Field{
		Name:   name,
		Kind:   Numeric,
		Num:    value,
		Value:  strconv.FormatFloat(value, 'f', -1, 64),
		Stored: stored,
	}
}

// Number returns the numeric value of f. When Value is set it must parse as a
// float and agree with Num.
func (f Field) Number() (float64, error) {
	if f.Value == "" {
		return f.Num, nil
	}
	v, err := strconv.ParseFloat(f.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric value %q", f.Value)
	}
	if f.Num != 0 && v != f.Num {
		return 0, fmt.Errorf("value %q disagrees with %v", f.Value, f.Num)
	}
	return v, nil
}

// Document is an ordered list of fields. A field name may repeat.
type Document struct {
	Fields []Field
}

func New(fields ...Field) Document {
	return Document{Fields: fields}
}

// Scope returns the value of the scope field, or "" when the document has
// none.
func (d Document) Scope() string {
	for _, f := range d.Fields {
		if f.Name == ScopeField {
			return f.Value
		}
	}
	return ""
}

// Get returns the first value of the named field.
func (d Document) Get(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// StoredFields returns the stored field values keyed by name. Repeated
// stored fields keep their first value.
func (d Document) StoredFields() map[string]string {
	out := make(map[string]string)
	for _, f := range d.Fields {
		if !f.Stored {
			continue
		}
		if _, seen := out[f.Name]; !seen {
			out[f.Name] = f.Value
		}
	}
	return out
}

// Block is the ordered leaf documents of one entity, root last.
type Block []Document

// Root returns the entity's own document.
func (b Block) Root() Document {
	if len(b) == 0 {
		return Document{}
	}
	return b[len(b)-1]
}
