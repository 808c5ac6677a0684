package similarity

import "strings"

// TokenKind classifies a normalized token.
type TokenKind string

const (
	KindIdentifier  TokenKind = "identifier"
	KindLiteral     TokenKind = "literal"
	KindKeyword     TokenKind = "keyword"
	KindOperator    TokenKind = "operator"
	KindPunctuation TokenKind = "punctuation"
)

// Token is one typed unit of a normalized document. Offset is the byte
// position of the token in the normalized text; offsets are strictly
// increasing within a document.
type Token struct {
	Kind   TokenKind `json:"kind" bson:"kind"`
	Text   string    `json:"text" bson:"text"`
	Offset int       `json:"offset" bson:"offset"`
}

const operatorChars = "+-*/%=<>!&|^~?"

// Tokenize splits normalized text into its ordered token sequence.
// The normalizer already separates tokens with single spaces or newlines,
// so tokenization is a whitespace split that preserves byte offsets.
func Tokenize(normalized string, keywords map[string]struct{}) []Token {
	tokens := make([]Token, 0, len(normalized)/4)
	i, n := 0, len(normalized)
	for i < n {
		if normalized[i] == ' ' || normalized[i] == '\n' {
			i++
			continue
		}
		start := i
		for i < n && normalized[i] != ' ' && normalized[i] != '\n' {
			i++
		}
		text := normalized[start:i]
		tokens = append(tokens, Token{
			Kind:   classify(text, keywords),
			Text:   text,
			Offset: start,
		})
	}
	return tokens
}

func classify(text string, keywords map[string]struct{}) TokenKind {
	if _, ok := keywords[text]; ok {
		return KindKeyword
	}
	switch {
	case text == placeholderNumber || text == placeholderString:
		return KindLiteral
	case strings.HasPrefix(text, placeholderPrefix):
		return KindIdentifier
	case len(text) == 1 && strings.IndexByte(operatorChars, text[0]) >= 0:
		return KindOperator
	default:
		return KindPunctuation
	}
}
