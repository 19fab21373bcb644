package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_LowercasesAndSplits(t *testing.T) {
	tokens := Standard.Tokenize("Lorem ipsum, DOLOR-sit amet.\nConsectetur")
	assert.Equal(t, []Token{
		{Term: "lorem", Position: 0},
		{Term: "ipsum", Position: 1},
		{Term: "dolor", Position: 2},
		{Term: "sit", Position: 3},
		{Term: "amet", Position: 4},
		{Term: "consectetur", Position: 5},
	}, tokens)
}

func TestTokenize_StopWordsKeepPositions(t *testing.T) {
	a := Analyzer{StopWords: true}
	tokens := a.Tokenize("reprehenderit in the voluptate")
	assert.Equal(t, []Token{
		{Term: "reprehenderit", Position: 0},
		{Term: "voluptate", Position: 3},
	}, tokens)
}

func TestTokenize_KeepsDigitsAndShortWords(t *testing.T) {
	assert.Equal(t, []string{"a", "42", "b7"}, Standard.Terms("A 42 b7"))
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, Standard.Tokenize("  ,.;  "))
}
