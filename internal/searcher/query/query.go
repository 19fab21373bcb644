// Package query defines the query algebra evaluated against a committed
// index. Queries are immutable value trees: each variant carries only its own
// data and the evaluator dispatches on the concrete type.
package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/iterator"
	apperrors "github.com/Adithya-Monish-Kumar-K/nested-search/pkg/errors"
)

// Query is a node of the query tree. String returns a canonical form that
// is equal for equal trees.
type Query interface {
	fmt.Stringer
	// Validate reports the first malformed node as an *errors.QueryError.
	Validate() error
	isQuery()
}

// SpanQuery is a query that also produces token position spans within one
// text field.
type SpanQuery interface {
	Query
	SpanField() string
}

type Occur int

const (
	Must Occur = iota
	Should
	MustNot
)

func (o Occur) String() string {
	switch o {
	case Must:
		return "MUST"
	case Should:
		return "SHOULD"
	case MustNot:
		return "MUST_NOT"
	default:
		return "occur(" + strconv.Itoa(int(o)) + ")"
	}
}

func (o Occur) prefix() string {
	switch o {
	case Must:
		return "+"
	case MustNot:
		return "-"
	default:
		return ""
	}
}

// ScoreMode derives a parent score from the scores of its matching children.
type ScoreMode int

const (
	ScoreNone ScoreMode = iota
	ScoreMax
	ScoreTotal
	ScoreAvg
)

func (m ScoreMode) String() string {
	switch m {
	case ScoreNone:
		return "none"
	case ScoreMax:
		return "max"
	case ScoreTotal:
		return "total"
	case ScoreAvg:
		return "avg"
	default:
		return "scoremode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Term matches documents containing value exactly.
type Term struct {
	Field string
	Value string
}

// Prefix matches documents containing a term that starts with Value.
type Prefix struct {
	Field string
	Value string
}

// Wildcard matches terms against a glob where * matches any run of
// characters, ? matches one character and \ escapes the next one.
type Wildcard struct {
	Field   string
	Pattern string
}

// Fuzzy matches terms whose bigram cosine similarity to Value is at least
// Similarity.
type Fuzzy struct {
	Field      string
	Value      string
	Similarity float64
}

// Range matches numeric values in [Low, High].
type Range struct {
	Field string
	Low   float64
	High  float64
}

// MatchAll matches every document with a constant score.
type MatchAll struct{}

// Phrase matches Terms at consecutive positions, allowing Slop extra
// positions in between.
type Phrase struct {
	Field string
	Terms []string
	Slop  int
}

type Clause struct {
	Query Query
	Occur Occur
}

// Boolean combines clauses. A document must match every Must clause, no
// MustNot clause and at least MinShouldMatch Should clauses. Without Must
// clauses at least one Should clause has to match.
type Boolean struct {
	Clauses        []Clause
	MinShouldMatch int
}

// SpanNear matches spans of Clauses separated by at most Slop positions in
// total, in clause order when InOrder is set.
type SpanNear struct {
	Clauses []SpanQuery
	Slop    int
	InOrder bool
}

type SpanOr struct {
	Clauses []SpanQuery
}

// SpanNot keeps the spans of Include that overlap no span of Exclude.
type SpanNot struct {
	Include SpanQuery
	Exclude SpanQuery
}

// SpanContaining keeps the spans of Big that contain a span of Little.
type SpanContaining struct {
	Big    SpanQuery
	Little SpanQuery
}

// SpanPositionRange keeps the spans of Inner starting in [Start, End).
type SpanPositionRange struct {
	Inner SpanQuery
	Start int
	End   int
}

// BlockJoin maps the documents matching Child to their owning parent: the
// first document at or after the child that matches ParentFilter.
type BlockJoin struct {
	Child        Query
	ParentFilter Query
	ScoreMode    ScoreMode
}

// Plugin supplies the matching and scoring of a Custom query.
type Plugin interface {
	// Matches returns the matching documents of seg, or nil to use the
	// matches of the Custom query's Inner query.
	Matches(seg *index.Segment) iterator.DocIterator
	// Scorer returns the score of a local document given the score Inner
	// assigned it, or 0 when there is no Inner query.
	Scorer(seg *index.Segment) func(doc int, innerScore float64) float64
}

// Custom evaluates a caller supplied Plugin, optionally over an Inner query.
// With neither plugin matches nor Inner, every document matches.
type Custom struct {
	Name   string
	Inner  Query
	Plugin Plugin
}

func (Term) isQuery()              {}
func (Prefix) isQuery()            {}
func (Wildcard) isQuery()          {}
func (Fuzzy) isQuery()             {}
func (Range) isQuery()             {}
func (MatchAll) isQuery()          {}
func (Phrase) isQuery()            {}
func (Boolean) isQuery()           {}
func (SpanNear) isQuery()          {}
func (SpanOr) isQuery()            {}
func (SpanNot) isQuery()           {}
func (SpanContaining) isQuery()    {}
func (SpanPositionRange) isQuery() {}
func (BlockJoin) isQuery()         {}
func (Custom) isQuery()            {}

func (q Term) SpanField() string     { return q.Field }
func (q Prefix) SpanField() string   { return q.Field }
func (q Wildcard) SpanField() string { return q.Field }
func (q Fuzzy) SpanField() string    { return q.Field }

func (q SpanNear) SpanField() string {
	if len(q.Clauses) == 0 || q.Clauses[0] == nil {
		return ""
	}
	return q.Clauses[0].SpanField()
}

func (q SpanOr) SpanField() string {
	if len(q.Clauses) == 0 || q.Clauses[0] == nil {
		return ""
	}
	return q.Clauses[0].SpanField()
}

func (q SpanNot) SpanField() string           { return fieldOf(q.Include) }
func (q SpanContaining) SpanField() string    { return fieldOf(q.Big) }
func (q SpanPositionRange) SpanField() string { return fieldOf(q.Inner) }

func fieldOf(q SpanQuery) string {
	if q == nil {
		return ""
	}
	return q.SpanField()
}

func term(field, value string) string {
	if value == "" || strings.ContainsAny(value, " \t\n\"():[]\\*?~") {
		value = strconv.Quote(value)
	}
	return field + ":" + value
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (q Term) String() string   { return term(q.Field, q.Value) }
func (q Prefix) String() string { return term(q.Field, q.Value) + "*" }

func (q Wildcard) String() string {
	return q.Field + ":wildcard(" + strconv.Quote(q.Pattern) + ")"
}

func (q Fuzzy) String() string {
	return term(q.Field, q.Value) + "~" + num(q.Similarity)
}

func (q Range) String() string {
	return q.Field + ":[" + num(q.Low) + " TO " + num(q.High) + "]"
}

func (MatchAll) String() string { return "*:*" }

func (q Phrase) String() string {
	s := q.Field + ":" + strconv.Quote(strings.Join(q.Terms, " "))
	if q.Slop != 0 {
		s += "~" + strconv.Itoa(q.Slop)
	}
	return s
}

func (q Boolean) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, c := range q.Clauses {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.Occur.prefix())
		b.WriteString(str(c.Query))
	}
	b.WriteByte(')')
	if q.MinShouldMatch > 0 {
		b.WriteString("~" + strconv.Itoa(q.MinShouldMatch))
	}
	return b.String()
}

func (q SpanNear) String() string {
	return fmt.Sprintf("spanNear([%s], %d, %t)", spanList(q.Clauses), q.Slop, q.InOrder)
}

func (q SpanOr) String() string {
	return "spanOr([" + spanList(q.Clauses) + "])"
}

func (q SpanNot) String() string {
	return "spanNot(" + str(q.Include) + ", " + str(q.Exclude) + ")"
}

func (q SpanContaining) String() string {
	return "spanContaining(" + str(q.Big) + ", " + str(q.Little) + ")"
}

func (q SpanPositionRange) String() string {
	return fmt.Sprintf("spanPosRange(%s, %d, %d)", str(q.Inner), q.Start, q.End)
}

func (q BlockJoin) String() string {
	return "join(" + str(q.Child) + ", " + str(q.ParentFilter) + ", " + q.ScoreMode.String() + ")"
}

func (q Custom) String() string {
	if q.Inner == nil {
		return "custom(" + q.Name + ")"
	}
	return "custom(" + q.Name + ", " + q.Inner.String() + ")"
}

func str(q fmt.Stringer) string {
	if q == nil {
		return "<nil>"
	}
	return q.String()
}

func spanList(clauses []SpanQuery) string {
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = str(c)
	}
	return strings.Join(parts, ", ")
}

func requireField(q Query, field string) error {
	if field == "" {
		return apperrors.NewQueryError(q, "empty field name")
	}
	return nil
}

func (q Term) Validate() error   { return requireField(q, q.Field) }
func (q Prefix) Validate() error { return requireField(q, q.Field) }

func (q Wildcard) Validate() error {
	if err := requireField(q, q.Field); err != nil {
		return err
	}
	if q.Pattern == "" {
		return apperrors.NewQueryError(q, "empty wildcard pattern")
	}
	if _, err := CompileGlob(q.Pattern); err != nil {
		return apperrors.NewQueryError(q, "invalid wildcard pattern: %v", err)
	}
	return nil
}

func (q Fuzzy) Validate() error {
	if err := requireField(q, q.Field); err != nil {
		return err
	}
	if q.Value == "" {
		return apperrors.NewQueryError(q, "empty fuzzy term")
	}
	if math.IsNaN(q.Similarity) || q.Similarity <= 0 || q.Similarity > 1 {
		return apperrors.NewQueryError(q, "similarity %v outside (0, 1]", q.Similarity)
	}
	return nil
}

func (q Range) Validate() error {
	if err := requireField(q, q.Field); err != nil {
		return err
	}
	if math.IsNaN(q.Low) || math.IsNaN(q.High) {
		return apperrors.NewQueryError(q, "NaN range bound")
	}
	if q.Low > q.High {
		return apperrors.NewQueryError(q, "low bound above high bound")
	}
	return nil
}

func (MatchAll) Validate() error { return nil }

func (q Phrase) Validate() error {
	if err := requireField(q, q.Field); err != nil {
		return err
	}
	if len(q.Terms) == 0 {
		return apperrors.NewQueryError(q, "phrase without terms")
	}
	if q.Slop < 0 {
		return apperrors.NewQueryError(q, "negative slop %d", q.Slop)
	}
	return nil
}

func (q Boolean) Validate() error {
	if len(q.Clauses) == 0 {
		return apperrors.NewQueryError(q, "boolean query without clauses")
	}
	if q.MinShouldMatch < 0 {
		return apperrors.NewQueryError(q, "negative minShouldMatch %d", q.MinShouldMatch)
	}
	for i, c := range q.Clauses {
		if c.Query == nil {
			return apperrors.NewQueryError(q, "clause %d has no query", i)
		}
		switch c.Occur {
		case Must, Should, MustNot:
		default:
			return apperrors.NewQueryError(q, "clause %d has unknown occur %s", i, c.Occur)
		}
		if err := c.Query.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateSpans checks that clauses are non-nil, valid and share one field.
func validateSpans(q Query, clauses ...SpanQuery) error {
	field := ""
	for i, c := range clauses {
		if c == nil {
			return apperrors.NewQueryError(q, "span clause %d is nil", i)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if i == 0 {
			field = c.SpanField()
		} else if c.SpanField() != field {
			return apperrors.NewQueryError(q, "span clauses mix fields %q and %q", field, c.SpanField())
		}
	}
	return nil
}

func (q SpanNear) Validate() error {
	if len(q.Clauses) == 0 {
		return apperrors.NewQueryError(q, "spanNear without clauses")
	}
	if q.Slop < 0 {
		return apperrors.NewQueryError(q, "negative slop %d", q.Slop)
	}
	return validateSpans(q, q.Clauses...)
}

func (q SpanOr) Validate() error {
	if len(q.Clauses) == 0 {
		return apperrors.NewQueryError(q, "spanOr without clauses")
	}
	return validateSpans(q, q.Clauses...)
}

func (q SpanNot) Validate() error {
	return validateSpans(q, q.Include, q.Exclude)
}

func (q SpanContaining) Validate() error {
	return validateSpans(q, q.Big, q.Little)
}

func (q SpanPositionRange) Validate() error {
	if q.Start < 0 || q.End < q.Start {
		return apperrors.NewQueryError(q, "invalid position range [%d, %d)", q.Start, q.End)
	}
	return validateSpans(q, q.Inner)
}

func (q BlockJoin) Validate() error {
	if q.Child == nil {
		return apperrors.NewQueryError(q, "block join without child query")
	}
	if q.ParentFilter == nil {
		return apperrors.NewQueryError(q, "block join without parent filter")
	}
	switch q.ScoreMode {
	case ScoreNone, ScoreMax, ScoreTotal, ScoreAvg:
	default:
		return apperrors.NewQueryError(q, "unknown score mode %s", q.ScoreMode)
	}
	if err := q.Child.Validate(); err != nil {
		return err
	}
	return q.ParentFilter.Validate()
}

func (q Custom) Validate() error {
	if q.Name == "" {
		return apperrors.NewQueryError(q, "custom query without name")
	}
	if q.Plugin == nil {
		return apperrors.NewQueryError(q, "custom query without plugin")
	}
	if q.Inner != nil {
		return q.Inner.Validate()
	}
	return nil
}

// Walk calls fn for q and then, while fn returns true, for its children in
// depth-first order.
func Walk(q Query, fn func(Query) bool) {
	if q == nil || !fn(q) {
		return
	}
	switch n := q.(type) {
	case Boolean:
		for _, c := range n.Clauses {
			Walk(c.Query, fn)
		}
	case SpanNear:
		for _, c := range n.Clauses {
			Walk(c, fn)
		}
	case SpanOr:
		for _, c := range n.Clauses {
			Walk(c, fn)
		}
	case SpanNot:
		Walk(n.Include, fn)
		Walk(n.Exclude, fn)
	case SpanContaining:
		Walk(n.Big, fn)
		Walk(n.Little, fn)
	case SpanPositionRange:
		Walk(n.Inner, fn)
	case BlockJoin:
		Walk(n.Child, fn)
		Walk(n.ParentFilter, fn)
	case Custom:
		Walk(n.Inner, fn)
	}
}

// Cacheable reports whether the results of q depend on its canonical string
// only. Custom plugins carry state the string does not capture.
func Cacheable(q Query) bool {
	ok := true
	Walk(q, func(n Query) bool {
		if _, custom := n.(Custom); custom {
			ok = false
		}
		return ok
	})
	return ok
}

// Scope matches the documents of one hierarchy level.
func Scope(value string) Term {
	return Term{Field: document.ScopeField, Value: value}
}

// And builds a conjunction of qs.
func And(qs ...Query) Boolean {
	b := Boolean{Clauses: make([]Clause, len(qs))}
	for i, q := range qs {
		b.Clauses[i] = Clause{Query: q, Occur: Must}
	}
	return b
}

// Or builds a disjunction of qs.
func Or(qs ...Query) Boolean {
	b := Boolean{Clauses: make([]Clause, len(qs)), MinShouldMatch: 1}
	for i, q := range qs {
		b.Clauses[i] = Clause{Query: q, Occur: Should}
	}
	return b
}
