// Package parser turns a one-line textual query into the query algebra.
//
//	brand:adidas AND color:black NOT size:XL
//	description:incid* OR description:"dolor sit"~1 OR name:lorme~0.7
//	price:[100 TO 200]
//
// Terms are combined with AND unless an OR appears; NOT excludes the term
// that follows it. There is no grouping, so one query uses either AND or OR
// but not both. Text fields are analyzed the way the indexer analyzes
// them. Other fields are matched verbatim.
package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/nested-search/pkg/errors"
)

// DefaultFuzzySimilarity applies to a bare trailing ~.
const DefaultFuzzySimilarity = 0.7

// Schema reports the kind a field was indexed with. *index.Snapshot
// satisfies it.
type Schema interface {
	Kind(field string) (document.Kind, bool)
}

type Parser struct {
	schema       Schema
	defaultField string
	analyzer     tokenizer.Analyzer
}

// New returns a parser resolving field kinds through schema. Terms without a
// field prefix search defaultField.
func New(schema Schema, defaultField string) *Parser {
	return &Parser{schema: schema, defaultField: defaultField, analyzer: tokenizer.Standard}
}

type source string

func (s source) String() string { return string(s) }

// Parse parses input. Malformed input yields a *errors.QueryError.
func (p *Parser) Parse(input string) (query.Query, error) {
	words, err := lex(input)
	if err != nil {
		return nil, err
	}

	occur := query.Must
	var clauses []query.Clause
	exclude, sawAnd, sawOr := false, false, false
	for _, w := range words {
		switch strings.ToUpper(w) {
		case "AND":
			sawAnd = true
			continue
		case "OR":
			sawOr = true
			occur = query.Should
			continue
		case "NOT":
			exclude = true
			continue
		}
		q, err := p.term(w)
		if err != nil {
			return nil, err
		}
		c := query.Clause{Query: q}
		if exclude {
			c.Occur = query.MustNot
			exclude = false
		}
		clauses = append(clauses, c)
	}
	if exclude {
		return nil, apperrors.NewQueryError(source(input), "NOT without a term")
	}
	if sawAnd && sawOr {
		return nil, apperrors.NewQueryError(source(input), "AND and OR cannot be mixed without grouping")
	}
	if len(clauses) == 0 {
		return nil, apperrors.NewQueryError(source(input), "empty query")
	}

	for i := range clauses {
		if clauses[i].Occur != query.MustNot {
			clauses[i].Occur = occur
		}
	}
	if len(clauses) == 1 && clauses[0].Occur != query.MustNot {
		return clauses[0].Query, nil
	}
	return query.Boolean{Clauses: clauses}, nil
}

// lex splits input on whitespace, keeping quoted phrases and bracketed
// ranges in one word.
func lex(input string) ([]string, error) {
	var words []string
	var cur strings.Builder
	var closer rune
	for _, r := range input {
		switch {
		case closer != 0:
			cur.WriteRune(r)
			if r == closer {
				closer = 0
			}
		case r == '"':
			closer = '"'
			cur.WriteRune(r)
		case r == '[':
			closer = ']'
			cur.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if cur.Len() > 0 {
				words = append(words, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if closer != 0 {
		return nil, apperrors.NewQueryError(source(input), "unterminated %q", string(closer))
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words, nil
}

func (p *Parser) term(word string) (query.Query, error) {
	field, value := p.defaultField, word
	if i := strings.IndexByte(word, ':'); i > 0 && !strings.HasPrefix(word, `"`) {
		field, value = word[:i], word[i+1:]
	}
	if field == "" {
		return nil, apperrors.NewQueryError(source(word), "no field and no default field")
	}
	if value == "" {
		return nil, apperrors.NewQueryError(source(word), "empty value")
	}

	kind, known := p.schema.Kind(field)
	switch {
	case strings.HasPrefix(value, "["):
		return rangeQuery(word, field, value)
	case strings.HasPrefix(value, `"`):
		return p.phrase(word, field, value, kind)
	}

	if i := strings.LastIndexByte(value, '~'); i > 0 {
		sim := DefaultFuzzySimilarity
		if s := value[i+1:]; s != "" {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, apperrors.NewQueryError(source(word), "bad similarity %q", s)
			}
			sim = f
		}
		return query.Fuzzy{Field: field, Value: p.normalize(value[:i], kind), Similarity: sim}, nil
	}
	if known && kind == document.Numeric {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, apperrors.NewQueryError(source(word), "field %q is numeric", field)
		}
		return query.Range{Field: field, Low: v, High: v}, nil
	}
	if strings.HasSuffix(value, "*") && !strings.ContainsAny(value[:len(value)-1], `*?\`) {
		return query.Prefix{Field: field, Value: p.normalize(value[:len(value)-1], kind)}, nil
	}
	if strings.ContainsAny(value, "*?") {
		return query.Wildcard{Field: field, Pattern: p.normalize(value, kind)}, nil
	}
	if kind == document.Text {
		terms := p.analyzer.Terms(value)
		switch len(terms) {
		case 0:
			return nil, apperrors.NewQueryError(source(word), "no terms after analysis")
		case 1:
			return query.Term{Field: field, Value: terms[0]}, nil
		default:
			return query.Phrase{Field: field, Terms: terms}, nil
		}
	}
	return query.Term{Field: field, Value: value}, nil
}

// normalize lower-cases multi-term patterns on text fields.
func (p *Parser) normalize(value string, kind document.Kind) string {
	if kind == document.Text {
		return strings.ToLower(value)
	}
	return value
}

func (p *Parser) phrase(word, field, value string, kind document.Kind) (query.Query, error) {
	end := strings.LastIndexByte(value, '"')
	if end == 0 {
		return nil, apperrors.NewQueryError(source(word), "unterminated phrase")
	}
	text, rest := value[1:end], value[end+1:]
	slop := 0
	if rest != "" {
		if !strings.HasPrefix(rest, "~") {
			return nil, apperrors.NewQueryError(source(word), "unexpected %q after phrase", rest)
		}
		n, err := strconv.Atoi(rest[1:])
		if err != nil {
			return nil, apperrors.NewQueryError(source(word), "bad slop %q", rest[1:])
		}
		slop = n
	}
	if kind != document.Text {
		return query.Term{Field: field, Value: text}, nil
	}
	terms := p.analyzer.Terms(text)
	if len(terms) == 0 {
		return nil, apperrors.NewQueryError(source(word), "no terms after analysis")
	}
	return query.Phrase{Field: field, Terms: terms, Slop: slop}, nil
}

func rangeQuery(word, field, value string) (query.Query, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	lo, hi, ok := strings.Cut(body, " TO ")
	if !ok || !strings.HasSuffix(value, "]") {
		return nil, apperrors.NewQueryError(source(word), "range must look like [low TO high]")
	}
	low, err := bound(strings.TrimSpace(lo), -1)
	if err != nil {
		return nil, apperrors.NewQueryError(source(word), "bad lower bound %q", lo)
	}
	high, err := bound(strings.TrimSpace(hi), 1)
	if err != nil {
		return nil, apperrors.NewQueryError(source(word), "bad upper bound %q", hi)
	}
	return query.Range{Field: field, Low: low, High: high}, nil
}

// bound parses a range end; * is open toward sign.
func bound(s string, sign int) (float64, error) {
	if s == "*" {
		return math.Inf(sign), nil
	}
	return strconv.ParseFloat(s, 64)
}
