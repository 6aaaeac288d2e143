package promql

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hasher turns query text into a short token that is equal for equal canonical forms
type Hasher struct {
	canonicalizer Canonicalizer
}

// NewHasher creates a hasher using the given canonicalizer.
// A nil canonicalizer selects the Prometheus parser canonicalizer.
func NewHasher(canonicalizer Canonicalizer) *Hasher {
	if canonicalizer == nil {
		canonicalizer = NewParserCanonicalizer()
	}
	return &Hasher{canonicalizer: canonicalizer}
}

// Canonicalize returns the canonical form that Hash digests
func (h *Hasher) Canonicalize(query string) string {
	return h.canonicalizer.Canonicalize(query)
}

// Hash returns the hex xxhash of the canonical query
func (h *Hasher) Hash(query string) string {
	return strconv.FormatUint(xxhash.Sum64String(h.canonicalizer.Canonicalize(query)), 16)
}

// defaultHasher holds no mutable state
var defaultHasher = NewHasher(nil)

// DefaultHasher returns the shared parser-backed hasher
func DefaultHasher() *Hasher {
	return defaultHasher
}

// HashQuery hashes a query with the default hasher
func HashQuery(query string) string {
	return defaultHasher.Hash(query)
}
