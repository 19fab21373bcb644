package index

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/nested-search/pkg/errors"
)

func shoe() document.Product {
	return document.Product{
		ID:          "p1",
		Name:        "Trail Runner",
		Brand:       "Adidas",
		Gender:      "female",
		Description: "Commodo tempor, nulla commodo",
		SKUs: []document.SKU{
			{SKUID: "s1", Size: "XL", Color: "black", Prices: []document.Price{
				{Address: "main street", Price: 150},
				{Address: "elm lane", Price: 90},
			}},
			{SKUID: "s2", Size: "M", Color: "white"},
		},
	}
}

func buildSegment(t *testing.T, products ...document.Product) *Segment {
	t.Helper()
	schema := NewSchema()
	b := NewBuilder(tokenizer.Standard)
	for _, p := range products {
		block := p.ToBlock()
		require.NoError(t, schema.Validate(p.ID, block))
		schema.Observe(block)
		b.AddBlock(block)
	}
	return b.Build("seg-test", 0)
}

func TestBuilder_PostingsAndPositions(t *testing.T) {
	seg := buildSegment(t, shoe())
	require.Equal(t, 5, seg.MaxDoc())

	postings := seg.Postings("description", "commodo")
	require.Len(t, postings, 1)
	assert.Equal(t, Posting{Doc: 4, Freq: 2, Positions: []int{0, 3}}, postings[0])

	assert.Equal(t, PostingList{{Doc: 4, Freq: 1, Positions: []int{0}}}, seg.Postings("brand", "adidas"))
	assert.Nil(t, seg.Postings("brand", "Adidas"), "text terms are lowercased")
	assert.Len(t, seg.Postings("color", "black"), 1)
	assert.Nil(t, seg.Postings("color", "BLACK"), "string fields are exact")
	assert.Nil(t, seg.Postings("missing", "x"))

	desc := seg.Field("description")
	require.NotNil(t, desc)
	assert.Equal(t, document.Text, desc.Kind)
	assert.Equal(t, 4, desc.Length(4))
	assert.Equal(t, 0, desc.Length(0))
	assert.Equal(t, 1, desc.DocCount)
}

func TestBuilder_ScopeBitmaps(t *testing.T) {
	seg := buildSegment(t, shoe(), shoe())
	assert.Equal(t, []uint32{4, 9}, seg.Scope(document.ScopeProduct).ToArray())
	assert.Equal(t, []uint32{2, 3, 7, 8}, seg.Scope(document.ScopeSKU).ToArray())
	assert.Equal(t, []uint32{0, 1, 5, 6}, seg.Scope(document.ScopePrice).ToArray())
	assert.True(t, seg.Scope("warehouse").IsEmpty())
}

func TestNumericColumn_Range(t *testing.T) {
	seg := buildSegment(t, shoe(), shoe())
	col := seg.Numeric("price")
	require.NotNil(t, col)
	assert.Equal(t, []int{0, 5}, col.Range(100, 200))
	assert.Equal(t, []int{0, 1, 5, 6}, col.Range(90, 150), "bounds are inclusive")
	assert.Empty(t, col.Range(151, 160))
	assert.Empty(t, col.Range(200, 100))

	var nilCol *NumericColumn
	assert.Empty(t, nilCol.Range(0, 1))

	assert.Len(t, seg.Postings("price", "150"), 2)
}

func TestFieldInfo_PrefixTerms(t *testing.T) {
	seg := buildSegment(t, shoe())
	terms := seg.Field("description").PrefixTerms("co")
	require.Len(t, terms, 1)
	assert.Equal(t, "commodo", terms[0].Term)
	assert.Empty(t, seg.Field("description").PrefixTerms("zz"))
}

func TestSchema_Validate(t *testing.T) {
	s := NewSchema()
	valid := document.Block{document.New(
		document.StringField(document.ScopeField, "sku", false),
		document.NumericField("price", 10, false),
	)}
	require.NoError(t, s.Validate("ok", valid))
	s.Observe(valid)
	k, ok := s.Kind("price")
	require.True(t, ok)
	assert.Equal(t, document.Numeric, k)

	cases := []struct {
		name  string
		block document.Block
		field string
	}{
		{"empty block", document.Block{}, ""},
		{"missing scope", document.Block{document.New(document.TextField("name", "x", false))}, document.ScopeField},
		{"nan", document.Block{document.New(
			document.StringField(document.ScopeField, "price", false),
			document.NumericField("amount", math.NaN(), false),
		)}, "amount"},
		{"non numeric", document.Block{document.New(
			document.StringField(document.ScopeField, "price", false),
			document.Field{Name: "amount", Kind: document.Numeric, Value: "cheap"},
		)}, "amount"},
		{"kind change", document.Block{document.New(
			document.StringField(document.ScopeField, "price", false),
			document.TextField("price", "cheap", false),
		)}, "price"},
		{"empty name", document.Block{document.New(
			document.StringField(document.ScopeField, "price", false),
			document.StringField("", "x", false),
		)}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Validate("bad", tc.block)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrIndexBuild))
			var be *apperrors.IndexBuildError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tc.field, be.Field)
			assert.Equal(t, "bad", be.BlockID)
		})
	}
}

func TestSnapshot_MultiSegment(t *testing.T) {
	schema := NewSchema()
	b := NewBuilder(tokenizer.Standard)
	block := shoe().ToBlock()
	schema.Observe(block)
	b.AddBlock(block)
	first := b.Build("a", 0)
	b.Reset()
	b.AddBlock(block)
	second := b.Build("b", 5)

	snap := NewSnapshot([]*Segment{second, first})
	assert.Equal(t, 10, snap.MaxDoc())
	assert.Equal(t, "a", snap.Segments()[0].ID())
	assert.Equal(t, 2, snap.DocFreq("color", "black"))
	kind, ok := snap.Kind("description")
	require.True(t, ok)
	assert.Equal(t, document.Text, kind)
	assert.Equal(t, 2, snap.FieldStats("brand").DocCount)
	assert.Equal(t, 1.0, snap.FieldStats("brand").AvgLength())
	assert.Contains(t, snap.Terms("size"), "XL")

	seg, local, ok := snap.Locate(7)
	require.True(t, ok)
	assert.Equal(t, "b", seg.ID())
	assert.Equal(t, 2, local)
	_, _, ok = snap.Locate(10)
	assert.False(t, ok)
}

func TestSegment_DataRoundTrip(t *testing.T) {
	seg := buildSegment(t, shoe())
	data, err := seg.Data()
	require.NoError(t, err)
	back, err := FromData(data)
	require.NoError(t, err)

	assert.Equal(t, seg.MaxDoc(), back.MaxDoc())
	assert.Equal(t, seg.Postings("description", "nulla"), back.Postings("description", "nulla"))
	assert.Equal(t, seg.Scope("sku").ToArray(), back.Scope("sku").ToArray())
	assert.Equal(t, seg.Field("name").SumLength, back.Field("name").SumLength)
}
