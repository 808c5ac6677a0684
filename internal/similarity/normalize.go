package similarity

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Canonical placeholders emitted by the normalizer.
const (
	placeholderNumber = "NUM"
	placeholderString = "STR"
	placeholderPrefix = "VAR_"
)

// Normalize strips comments, collapses whitespace and canonicalizes
// identifiers and literals. The output keeps one line per non-blank source
// line (runs of whitespace containing a newline collapse to a single
// newline, all other runs to a single space) so the block matcher can
// operate on lines while the tokenizer splits on any whitespace.
//
// Identifiers are replaced by VAR_# in first-occurrence order; the numbering
// is local to this call, so the two documents of a comparison are numbered
// independently. Keywords are kept verbatim. Numeric literals become NUM,
// string and character literals become STR with their contents untouched by
// comment stripping.
//
// Normalize never fails: an unterminated comment or literal consumes the
// rest of the input.
func Normalize(src string, keywords map[string]struct{}) string {
	var out strings.Builder
	var line []string
	names := make(map[string]string)

	flush := func() {
		if len(line) == 0 {
			return
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(strings.Join(line, " "))
		line = line[:0]
	}

	i, n := 0, len(src)
	for i < n {
		c := src[i]
		switch {
		case c == '/' && i+1 < n && src[i+1] == '/':
			i += 2
			for i < n && src[i] != '\n' {
				i++
			}

		case c == '/' && i+1 < n && src[i+1] == '*':
			i += 2
			for i < n {
				if src[i] == '*' && i+1 < n && src[i+1] == '/' {
					i += 2
					break
				}
				i++
			}

		case c == '"' || c == '\'':
			quote := c
			i++
			for i < n && src[i] != quote {
				if src[i] == '\\' && i+1 < n {
					i += 2
				} else {
					i++
				}
			}
			if i < n {
				i++ // closing quote
			}
			line = append(line, placeholderString)

		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(src[i]) {
				i++
			}
			word := src[start:i]
			if _, ok := keywords[word]; ok {
				line = append(line, word)
			} else {
				placeholder, ok := names[word]
				if !ok {
					placeholder = placeholderPrefix + strconv.Itoa(len(names))
					names[word] = placeholder
				}
				line = append(line, placeholder)
			}

		case c >= '0' && c <= '9':
			for i < n && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
				i++
			}
			line = append(line, placeholderNumber)

		case c == '\n':
			flush()
			i++

		case c == ' ' || c == '\t' || c == '\r' || c == '\v' || c == '\f':
			i++

		default:
			_, size := utf8.DecodeRuneInString(src[i:])
			line = append(line, src[i:i+size])
			i += size
		}
	}
	flush()

	return out.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
