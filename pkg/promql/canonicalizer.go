// Package promql canonicalizes and hashes Prometheus-style query expressions so that
// semantically equal queries written with different formatting compare equal.
package promql

import (
	"sort"

	"github.com/prometheus/prometheus/promql/parser"
)

// Canonicalizer rewrites query text into a canonical form.
// Implementations must be safe for concurrent use and must never panic.
type Canonicalizer interface {
	Canonicalize(query string) string
}

// CanonicalizerFunc adapts a function to the Canonicalizer interface
type CanonicalizerFunc func(query string) string

func (f CanonicalizerFunc) Canonicalize(query string) string {
	return f(query)
}

// ParserCanonicalizer parses the query with the Prometheus parser and prints the AST
// back with label matchers and by/without lists sorted. Queries the parser rejects are
// handed to the fallback canonicalizer.
type ParserCanonicalizer struct {
	fallback Canonicalizer
}

// NewParserCanonicalizer creates a parser-backed canonicalizer that falls back to token canonicalization
func NewParserCanonicalizer() *ParserCanonicalizer {
	return &ParserCanonicalizer{fallback: NewTokenCanonicalizer()}
}

// WithFallback returns a copy using the given fallback canonicalizer
func (c *ParserCanonicalizer) WithFallback(fallback Canonicalizer) *ParserCanonicalizer {
	return &ParserCanonicalizer{fallback: fallback}
}

// Canonicalize implements Canonicalizer
func (c *ParserCanonicalizer) Canonicalize(query string) (canonical string) {
	defer func() {
		if r := recover(); r != nil {
			canonical = c.fallback.Canonicalize(query)
		}
	}()

	expr, err := parser.ParseExpr(query)
	if err != nil {
		return c.fallback.Canonicalize(query)
	}

	// ParseExpr returns a fresh tree, so sorting in place does not leak
	parser.Inspect(expr, func(node parser.Node, _ []parser.Node) error {
		switch n := node.(type) {
		case *parser.VectorSelector:
			sort.SliceStable(n.LabelMatchers, func(i, j int) bool {
				a, b := n.LabelMatchers[i], n.LabelMatchers[j]
				if a.Name != b.Name {
					return a.Name < b.Name
				}
				if a.Type != b.Type {
					return a.Type < b.Type
				}
				return a.Value < b.Value
			})
		case *parser.AggregateExpr:
			sort.Strings(n.Grouping)
		}
		return nil
	})

	return expr.String()
}
