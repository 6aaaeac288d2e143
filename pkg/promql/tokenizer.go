package promql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Ramsey-B/rulematch/pkg/normalizers"
)

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenKeyword
	tokenNumber
	tokenString
	tokenOperator
	tokenPunct
)

type token struct {
	kind  tokenKind
	value string
	raw   string // source spelling, differs from value only for keywords
}

// keywords are case-insensitive in PromQL and are lowercased when canonicalized
var keywords = map[string]bool{
	"and": true, "or": true, "unless": true, "atan2": true,
	"by": true, "without": true, "on": true, "ignoring": true,
	"group_left": true, "group_right": true, "bool": true, "offset": true,
	"sum": true, "avg": true, "count": true, "min": true, "max": true,
	"group": true, "stddev": true, "stdvar": true, "topk": true, "bottomk": true,
	"count_values": true, "quantile": true, "limitk": true, "limit_ratio": true,
}

// multi-character operators, longest first
var operators = []string{"==", "!=", "=~", "!~", ">=", "<=", "+", "-", "*", "/", "%", "^", "=", "<", ">", "@"}

// TokenCanonicalizer canonicalizes a query by lexing it into significant tokens. It strips
// '#' comments, drops insignificant whitespace, rewrites string literals with double quotes,
// and sorts label selector clauses and by/without label lists. Operands, operator chains and
// function arguments keep their order. Queries that cannot be lexed fall back to the
// conservative normalizer chain.
type TokenCanonicalizer struct{}

// NewTokenCanonicalizer creates a token-based canonicalizer
func NewTokenCanonicalizer() *TokenCanonicalizer {
	return &TokenCanonicalizer{}
}

// Canonicalize implements Canonicalizer
func (c *TokenCanonicalizer) Canonicalize(query string) string {
	tokens, err := tokenize(query)
	if err != nil {
		return normalizers.Conservative(query)
	}
	return serialize(tokens)
}

func tokenize(query string) ([]token, error) {
	tokens := make([]token, 0, len(query)/2)
	i := 0
	for i < len(query) {
		r, size := utf8.DecodeRuneInString(query[i:])

		switch {
		case unicode.IsSpace(r):
			i += size

		case r == '#':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				return tokens, nil
			}
			i += end + 1

		case r == '"' || r == '\'' || r == '`':
			value, n, err := lexString(query[i:])
			if err != nil {
				return nil, err
			}
			quoted := strconv.Quote(value)
			tokens = append(tokens, token{kind: tokenString, value: quoted, raw: quoted})
			i += n

		case isDigit(r) || (r == '.' && i+1 < len(query) && isDigit(rune(query[i+1]))):
			n := lexNumber(query[i:])
			tokens = append(tokens, token{kind: tokenNumber, value: query[i : i+n], raw: query[i : i+n]})
			i += n

		case isIdentStart(r):
			n := lexIdentifier(query[i:])
			word := query[i : i+n]
			if lower := strings.ToLower(word); keywords[lower] {
				tokens = append(tokens, token{kind: tokenKeyword, value: lower, raw: word})
			} else {
				tokens = append(tokens, token{kind: tokenIdentifier, value: word, raw: word})
			}
			i += n

		case strings.ContainsRune("(){}[],:", r):
			tokens = append(tokens, token{kind: tokenPunct, value: string(r), raw: string(r)})
			i += size

		default:
			op := matchOperator(query[i:])
			if op == "" {
				return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
			}
			tokens = append(tokens, token{kind: tokenOperator, value: op, raw: op})
			i += len(op)
		}
	}
	return tokens, nil
}

// lexString reads a quoted literal and returns its decoded value and the bytes consumed
func lexString(s string) (string, int, error) {
	quote := s[0]
	var value strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == quote:
			return value.String(), i + 1, nil
		case c == '\\' && quote != '`':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("unterminated escape in string literal")
			}
			i++
			value.WriteString(unescape(s[i]))
		default:
			value.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}

func unescape(c byte) string {
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '\\', '\'', '"', '`':
		return string(c)
	default:
		// keep unknown escapes (e.g. regex classes like \d) verbatim
		return "\\" + string(c)
	}
}

// lexNumber consumes numbers, hex literals, exponents and durations such as 1h30m
func lexNumber(s string) int {
	i := 0
	for i < len(s) {
		c := s[i]
		if isDigit(rune(c)) || c == '.' || unicode.IsLetter(rune(c)) || c == '_' {
			i++
			continue
		}
		// signed exponent: 1e-3, 1E+3
		if (c == '-' || c == '+') && i > 0 && (s[i-1] == 'e' || s[i-1] == 'E') && !strings.HasPrefix(strings.ToLower(s), "0x") {
			i++
			continue
		}
		break
	}
	return i
}

func lexIdentifier(s string) int {
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isIdentStart(r) && !isDigit(r) && r != ':' {
			break
		}
		i += size
	}
	return i
}

func matchOperator(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

// serialize joins the tokens, rewriting selector blocks and grouping lists in sorted order
func serialize(tokens []token) string {
	parts := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]

		if t.kind == tokenPunct && t.value == "{" {
			block, next := selectorBlock(tokens, i)
			parts = append(parts, block)
			i = next
			continue
		}

		if t.kind == tokenKeyword && (t.value == "by" || t.value == "without") &&
			i+1 < len(tokens) && tokens[i+1].kind == tokenPunct && tokens[i+1].value == "(" {
			list, next := groupingList(tokens, i+1)
			parts = append(parts, t.value, list)
			i = next
			continue
		}

		parts = append(parts, t.value)
	}
	return strings.Join(parts, " ")
}

// selectorBlock serializes the {...} block starting at tokens[start] with its clauses sorted.
// It returns the index of the closing brace.
func selectorBlock(tokens []token, start int) (string, int) {
	var clauses []string
	var current []string
	depth := 0
	end := len(tokens) - 1

	flush := func() {
		if len(current) > 0 {
			clauses = append(clauses, strings.Join(current, ""))
			current = nil
		}
	}

loop:
	for i := start + 1; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.kind == tokenPunct && t.value == "{":
			depth++
		case t.kind == tokenPunct && t.value == "}":
			if depth == 0 {
				end = i
				break loop
			}
			depth--
		case t.kind == tokenPunct && t.value == "," && depth == 0:
			flush()
			continue
		}
		// label names are case-sensitive, so keep their source spelling
		current = append(current, t.raw)
	}
	flush()

	sort.Strings(clauses)
	return "{" + strings.Join(clauses, ",") + "}", end
}

// groupingList serializes the (...) label list starting at tokens[start] in sorted order.
// It returns the index of the closing parenthesis.
func groupingList(tokens []token, start int) (string, int) {
	var labels []string
	end := len(tokens) - 1
	for i := start + 1; i < len(tokens); i++ {
		t := tokens[i]
		if t.kind == tokenPunct && t.value == ")" {
			end = i
			break
		}
		if t.kind == tokenPunct && t.value == "," {
			continue
		}
		labels = append(labels, t.raw)
	}
	sort.Strings(labels)
	return "(" + strings.Join(labels, ",") + ")", end
}
