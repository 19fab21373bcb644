package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldNumber(t *testing.T) {
	v, err := NumericField("price", 149.99, false).Number()
	require.NoError(t, err)
	assert.Equal(t, 149.99, v)

	v, err = Field{Name: "price", Kind: Numeric, Num: 3}.Number()
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	_, err = Field{Name: "price", Kind: Numeric, Value: "cheap"}.Number()
	assert.Error(t, err)

	_, err = Field{Name: "price", Kind: Numeric, Value: "2", Num: 5}.Number()
	assert.Error(t, err)
}

func TestBlockRoot(t *testing.T) {
	assert.Empty(t, Block{}.Root().Fields)

	b := Block{
		New(StringField(ScopeField, ScopeSKU, false)),
		New(StringField(ScopeField, ScopeProduct, false)),
	}
	assert.Equal(t, ScopeProduct, b.Root().Scope())
}
