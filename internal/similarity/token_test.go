package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_Classification(t *testing.T) {
	keywords := testKeywords()
	tokens := Tokenize("int VAR_0 = NUM + STR ;", keywords)
	require.Len(t, tokens, 7)

	assert.Equal(t, KindKeyword, tokens[0].Kind)
	assert.Equal(t, KindIdentifier, tokens[1].Kind)
	assert.Equal(t, KindOperator, tokens[2].Kind)
	assert.Equal(t, KindLiteral, tokens[3].Kind)
	assert.Equal(t, KindOperator, tokens[4].Kind)
	assert.Equal(t, KindLiteral, tokens[5].Kind)
	assert.Equal(t, KindPunctuation, tokens[6].Kind)
}

func TestTokenize_OffsetsStrictlyIncreasing(t *testing.T) {
	normalized := Normalize("int main() {\nreturn 0;\n}", testKeywords())
	tokens := Tokenize(normalized, testKeywords())
	require.NotEmpty(t, tokens)

	prev := -1
	for _, tok := range tokens {
		assert.Greater(t, tok.Offset, prev)
		assert.Equal(t, tok.Text, normalized[tok.Offset:tok.Offset+len(tok.Text)])
		prev = tok.Offset
	}
}

func TestTokenize_SplitsOnNewlines(t *testing.T) {
	tokens := Tokenize("VAR_0 ;\nVAR_1 ;", testKeywords())
	require.Len(t, tokens, 4)
	assert.Equal(t, "VAR_0", tokens[0].Text)
	assert.Equal(t, "VAR_1", tokens[2].Text)
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, Tokenize("", testKeywords()))
}
