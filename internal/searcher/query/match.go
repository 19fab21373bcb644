package query

import (
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
)

// shingleSize is the n-gram length of fuzzy similarity profiles.
const shingleSize = 2

// CompileGlob translates a wildcard pattern into an anchored regexp.
func CompileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '\\':
			if i+1 == len(runes) {
				return nil, errors.New("dangling escape at end of pattern")
			}
			i++
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)
	return regexp.Compile(b.String())
}

// LiteralPrefix returns the part of a wildcard pattern before its first
// metacharacter, which every matching term starts with.
func LiteralPrefix(pattern string) string {
	var b strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*', '?':
			return b.String()
		case '\\':
			if i+1 == len(runes) {
				return b.String()
			}
			i++
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

var spaces = regexp.MustCompile(`\s+`)

func profile(s string) map[string]int {
	runes := []rune(spaces.ReplaceAllString(s, " "))
	p := make(map[string]int, len(runes))
	for i := 0; i+shingleSize <= len(runes); i++ {
		p[string(runes[i:i+shingleSize])]++
	}
	return p
}

// CosineSimilarity compares the bigram profiles of a and b. Equal strings
// score 1; a string shorter than a bigram scores 0 against anything else.
func CosineSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len([]rune(a)) < shingleSize || len([]rune(b)) < shingleSize {
		return 0
	}
	pa, pb := profile(a), profile(b)
	var dot float64
	for gram, n := range pa {
		dot += float64(n * pb[gram])
	}
	return dot / (norm(pa) * norm(pb))
}

func norm(p map[string]int) float64 {
	var sum float64
	for _, n := range p {
		sum += float64(n * n)
	}
	return math.Sqrt(sum)
}

// TermMatcher returns the lexical predicate of a multi-term query and the
// prefix every accepted term shares. ok is false for queries that do not
// expand over the term dictionary.
func TermMatcher(q Query) (match func(term string) bool, prefix string, ok bool) {
	switch n := q.(type) {
	case Term:
		return func(t string) bool { return t == n.Value }, n.Value, true
	case Prefix:
		return func(t string) bool { return strings.HasPrefix(t, n.Value) }, n.Value, true
	case Wildcard:
		re, err := CompileGlob(n.Pattern)
		if err != nil {
			return nil, "", false
		}
		return re.MatchString, LiteralPrefix(n.Pattern), true
	case Fuzzy:
		return func(t string) bool {
			return CosineSimilarity(t, n.Value) >= n.Similarity
		}, "", true
	}
	return nil, "", false
}

// Expand returns the term entries of f accepted by the multi-term query q,
// in term order.
func Expand(f *index.FieldInfo, q Query) []index.TermEntry {
	if f == nil {
		return nil
	}
	if t, exact := q.(Term); exact {
		postings, found := f.Lookup(t.Value)
		if !found {
			return nil
		}
		return []index.TermEntry{{Term: t.Value, Postings: postings}}
	}
	match, prefix, ok := TermMatcher(q)
	if !ok {
		return nil
	}
	var out []index.TermEntry
	for _, e := range f.PrefixTerms(prefix) {
		if match(e.Term) {
			out = append(out, e)
		}
	}
	return out
}
