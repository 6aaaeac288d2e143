package matching

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/Ramsey-B/rulematch/pkg/fingerprint"
	"github.com/Ramsey-B/rulematch/pkg/metrics"
	"github.com/Ramsey-B/rulematch/pkg/models"
)

type cacheKey struct {
	content      uint64
	includeQuery bool
}

// CacheStats is a snapshot of cache counters
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// CachingFingerprinter memoizes fingerprints by rule content, never by rule identity,
// so rules decoded again from a fresh document still hit. Entries are written once and
// never replaced; returned fingerprints are shared and must not be modified.
type CachingFingerprinter struct {
	next   Fingerprinter
	cache  *lru.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachingFingerprinter wraps next with a bounded cache holding up to size entries
func NewCachingFingerprinter(next Fingerprinter, size int) (*CachingFingerprinter, error) {
	if next == nil {
		next = fingerprint.NewBuilder(nil)
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create fingerprint cache: %w", err)
	}
	return &CachingFingerprinter{next: next, cache: cache}, nil
}

// Build returns the cached fingerprint for the rule content or computes and stores it
func (c *CachingFingerprinter) Build(rule *models.Rule, includeQuery bool) fingerprint.Fingerprint {
	if rule == nil {
		return nil
	}

	key := cacheKey{content: fingerprint.ContentHash(rule), includeQuery: includeQuery}
	if cached, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		metrics.RecordCacheLookup(true)
		return cached.(fingerprint.Fingerprint)
	}

	c.misses.Add(1)
	metrics.RecordCacheLookup(false)
	fp := c.next.Build(rule, includeQuery)
	c.cache.ContainsOrAdd(key, fp)
	return fp
}

// Stats returns the current hit and miss counters
func (c *CachingFingerprinter) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.cache.Len(),
	}
}

// Purge drops every entry. Counters are kept.
func (c *CachingFingerprinter) Purge() {
	c.cache.Purge()
}
