// Package fingerprint derives comparable identities from alerting and recording rules
package fingerprint

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/Ramsey-B/rulematch/pkg/models"
	"github.com/Ramsey-B/rulematch/pkg/promql"
)

// Fingerprint is an ordered tuple: name, sorted label pairs, sorted annotation pairs
// and, optionally, the query hash.
type Fingerprint []string

// Equal compares two fingerprints element by element
func (f Fingerprint) Equal(other Fingerprint) bool {
	if len(f) != len(other) {
		return false
	}
	for i := range f {
		if f[i] != other[i] {
			return false
		}
	}
	return true
}

// Key joins the fingerprint into a single map key. Each element is length-prefixed so
// elements containing the separator cannot collide.
func (f Fingerprint) Key() string {
	var b strings.Builder
	for _, s := range f {
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
		b.WriteByte('|')
	}
	return b.String()
}

// Builder builds fingerprints using a query hasher
type Builder struct {
	hasher *promql.Hasher
}

// NewBuilder creates a builder. A nil hasher selects the default Prometheus hasher.
func NewBuilder(hasher *promql.Hasher) *Builder {
	if hasher == nil {
		hasher = promql.DefaultHasher()
	}
	return &Builder{hasher: hasher}
}

// Build creates the fingerprint of a rule. When includeQuery is false the query hash
// is omitted entirely and the tuple is one element shorter.
func (b *Builder) Build(rule *models.Rule, includeQuery bool) Fingerprint {
	if rule == nil {
		return nil
	}

	size := 1 + len(rule.Labels) + len(rule.Annotations)
	if includeQuery {
		size++
	}

	fp := make(Fingerprint, 0, size)
	fp = append(fp, rule.Name)
	fp = appendPairs(fp, rule.Labels)
	fp = appendPairs(fp, rule.Annotations)
	if includeQuery {
		fp = append(fp, b.hasher.Hash(rule.Query))
	}
	return fp
}

var defaultBuilder = NewBuilder(nil)

// Build creates a fingerprint with the default builder
func Build(rule *models.Rule, includeQuery bool) Fingerprint {
	return defaultBuilder.Build(rule, includeQuery)
}

// ContentHash hashes every matching-relevant field of a rule, including the raw query
// text. Rules with equal content hash always have equal fingerprints, so it is safe
// to use as a cache key.
func ContentHash(rule *models.Rule) uint64 {
	d := xxhash.New()
	write := func(s string) {
		_, _ = d.WriteString(strconv.Itoa(len(s)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(s)
	}

	write(rule.Name)
	write(strconv.Itoa(len(rule.Labels)))
	for _, p := range sortedPairs(rule.Labels) {
		write(p)
	}
	write(strconv.Itoa(len(rule.Annotations)))
	for _, p := range sortedPairs(rule.Annotations) {
		write(p)
	}
	write(rule.Query)
	return d.Sum64()
}

func appendPairs(fp Fingerprint, m map[string]string) Fingerprint {
	return append(fp, sortedPairs(m)...)
}

// sortedPairs renders key=value pairs sorted by key
func sortedPairs(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+m[k])
	}
	return pairs
}
