package similarity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testKeywords() map[string]struct{} {
	cfg := DefaultConfig()
	keywords := make(map[string]struct{}, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		keywords[kw] = struct{}{}
	}
	return keywords
}

func TestNormalize_BasicStatement(t *testing.T) {
	got := Normalize("int x = 5;", testKeywords())
	assert.Equal(t, "int VAR_0 = NUM ;", got)
}

func TestNormalize_LineComments(t *testing.T) {
	src := "int x = 5; // trailing comment\n// full-line comment\nint y = 6;"
	got := Normalize(src, testKeywords())
	assert.Equal(t, "int VAR_0 = NUM ;\nint VAR_1 = NUM ;", got)
}

func TestNormalize_BlockComments(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		got := Normalize("a /* gone */ b", testKeywords())
		assert.Equal(t, "VAR_0 VAR_1", got)
	})

	t.Run("spans lines", func(t *testing.T) {
		got := Normalize("a /* one\ntwo\nthree */ b", testKeywords())
		assert.Equal(t, "VAR_0 VAR_1", got)
	})

	t.Run("unterminated consumes rest", func(t *testing.T) {
		got := Normalize("x /* never closed\nint y = 1;", testKeywords())
		assert.Equal(t, "VAR_0", got)
	})
}

func TestNormalize_StringAndCharLiterals(t *testing.T) {
	t.Run("string becomes placeholder", func(t *testing.T) {
		got := Normalize(`s = "hello world";`, testKeywords())
		assert.Equal(t, "VAR_0 = STR ;", got)
	})

	t.Run("comment markers inside string are text", func(t *testing.T) {
		got := Normalize(`s = "http://example.com"; t = 1;`, testKeywords())
		assert.Equal(t, "VAR_0 = STR ; VAR_1 = NUM ;", got)
	})

	t.Run("escaped quote does not terminate", func(t *testing.T) {
		got := Normalize(`s = "say \"hi\"";`, testKeywords())
		assert.Equal(t, "VAR_0 = STR ;", got)
	})

	t.Run("char literal", func(t *testing.T) {
		got := Normalize(`c = '\n';`, testKeywords())
		assert.Equal(t, "VAR_0 = STR ;", got)
	})

	t.Run("unterminated string consumes rest", func(t *testing.T) {
		got := Normalize(`s = "never closed`, testKeywords())
		assert.Equal(t, "VAR_0 = STR", got)
	})
}

func TestNormalize_IdentifierRenaming(t *testing.T) {
	t.Run("first occurrence order", func(t *testing.T) {
		got := Normalize("foo bar foo baz bar", testKeywords())
		assert.Equal(t, "VAR_0 VAR_1 VAR_0 VAR_2 VAR_1", got)
	})

	t.Run("keywords survive verbatim", func(t *testing.T) {
		got := Normalize("if (count) return total;", testKeywords())
		assert.Equal(t, "if ( VAR_0 ) return VAR_1 ;", got)
	})

	t.Run("numbering is local to each call", func(t *testing.T) {
		first := Normalize("alpha beta", testKeywords())
		second := Normalize("gamma delta", testKeywords())
		assert.Equal(t, "VAR_0 VAR_1", first)
		assert.Equal(t, "VAR_0 VAR_1", second)
	})
}

func TestNormalize_NumericLiterals(t *testing.T) {
	got := Normalize("x = 3.14 + 42;", testKeywords())
	assert.Equal(t, "VAR_0 = NUM + NUM ;", got)
}

func TestNormalize_Whitespace(t *testing.T) {
	t.Run("runs collapse to single space", func(t *testing.T) {
		got := Normalize("a  \t  b", testKeywords())
		assert.Equal(t, "VAR_0 VAR_1", got)
	})

	t.Run("blank lines dropped", func(t *testing.T) {
		got := Normalize("a\n\n\n\nb", testKeywords())
		assert.Equal(t, "VAR_0\nVAR_1", got)
	})

	t.Run("line boundaries preserved", func(t *testing.T) {
		got := Normalize("a;\nb;\nc;", testKeywords())
		assert.Equal(t, 3, len(strings.Split(got, "\n")))
	})
}

func TestNormalize_EmptyInput(t *testing.T) {
	assert.Equal(t, "", Normalize("", testKeywords()))
	assert.Equal(t, "", Normalize("   \n\t\n  ", testKeywords()))
	assert.Equal(t, "", Normalize("// only a comment", testKeywords()))
}
