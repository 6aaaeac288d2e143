// Package normalizers provides text normalization functions for query comparison
package normalizers

import (
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// conservative runs in order: comments first so quotes inside them are dropped
var conservative = []Normalizer{StripComments, NormalizeQuotes, CollapseWhitespace}

// Conservative is the chain used when a query cannot be tokenized
func Conservative(s string) string {
	for _, normalize := range conservative {
		s = normalize(s)
	}
	return s
}

// CollapseWhitespace replaces every whitespace run outside string literals with a single space
func CollapseWhitespace(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	prevSpace := false
	scan(s, func(r rune, quoted bool) {
		if !quoted && unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
			return
		}
		result.WriteRune(r)
		prevSpace = false
	})
	return strings.TrimSpace(result.String())
}

// StripComments removes '#' line comments. A '#' inside a string literal is kept.
func StripComments(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	inComment := false
	scan(s, func(r rune, quoted bool) {
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
				result.WriteRune(r)
			}
		case !quoted && r == '#':
			inComment = true
		default:
			result.WriteRune(r)
		}
	})
	return result.String()
}

// NormalizeQuotes rewrites single-quoted and backtick string literals with double quotes
func NormalizeQuotes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\'' && r != '"' && r != '`' {
			result.WriteRune(r)
			continue
		}

		quote := r
		result.WriteRune('"')
		for i++; i < len(runes); i++ {
			c := runes[i]
			if c == quote {
				break
			}
			if c == '\\' && quote != '`' && i+1 < len(runes) {
				next := runes[i+1]
				i++
				if next == '\'' {
					// \' needs no escaping inside double quotes
					result.WriteRune(next)
					continue
				}
				result.WriteRune(c)
				result.WriteRune(next)
				continue
			}
			if c == '"' || (quote == '`' && c == '\\') {
				result.WriteRune('\\')
			}
			result.WriteRune(c)
		}
		result.WriteRune('"')
	}
	return result.String()
}

// scan walks s rune by rune, reporting whether each rune is part of a string literal.
// Opening and closing quotes count as quoted.
func scan(s string, fn func(r rune, quoted bool)) {
	var quote rune
	escaped := false
	inComment := false
	for _, r := range s {
		if quote != 0 {
			fn(r, true)
			switch {
			case escaped:
				escaped = false
			case r == '\\' && quote != '`':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}

		// quotes inside a comment do not open a literal
		if inComment {
			if r == '\n' {
				inComment = false
			}
			fn(r, false)
			continue
		}

		switch r {
		case '#':
			inComment = true
			fn(r, false)
		case '"', '\'', '`':
			quote = r
			fn(r, true)
		default:
			fn(r, false)
		}
	}
}
