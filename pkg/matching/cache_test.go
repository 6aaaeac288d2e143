package matching

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/rulematch/pkg/fingerprint"
	"github.com/Ramsey-B/rulematch/pkg/models"
)

func TestCachingFingerprinter_KeyedByContent(t *testing.T) {
	counter := newCountingFingerprinter()
	cache, err := NewCachingFingerprinter(counter, 16)
	require.NoError(t, err)

	first := &models.Rule{Name: "r", Labels: map[string]string{"a": "1"}, Query: "up"}
	decodedAgain := &models.Rule{Name: "r", Labels: map[string]string{"a": "1"}, Query: "up"}

	fp := cache.Build(first, true)
	assert.Equal(t, fingerprint.Build(first, true), fp)
	assert.Equal(t, fp, cache.Build(decodedAgain, true))
	assert.Equal(t, int64(1), counter.calls.Load())

	// the query flag is part of the key
	assert.Len(t, cache.Build(first, false), 2)
	assert.Equal(t, int64(2), counter.calls.Load())

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, 2, stats.Size)
}

func TestCachingFingerprinter_ContentChange(t *testing.T) {
	cache, err := NewCachingFingerprinter(nil, 16)
	require.NoError(t, err)

	rule := &models.Rule{Name: "r", Query: "up"}
	before := cache.Build(rule, true)

	changed := &models.Rule{Name: "r", Query: "up == 0"}
	assert.NotEqual(t, before, cache.Build(changed, true))
}

func TestCachingFingerprinter_Nil(t *testing.T) {
	cache, err := NewCachingFingerprinter(nil, 4)
	require.NoError(t, err)
	assert.Nil(t, cache.Build(nil, true))
}

func TestCachingFingerprinter_InvalidSize(t *testing.T) {
	_, err := NewCachingFingerprinter(nil, 0)
	assert.Error(t, err)
}

func TestCachingFingerprinter_Purge(t *testing.T) {
	cache, err := NewCachingFingerprinter(nil, 4)
	require.NoError(t, err)

	cache.Build(&models.Rule{Name: "r"}, false)
	cache.Purge()
	assert.Equal(t, 0, cache.Stats().Size)
	assert.Equal(t, uint64(1), cache.Stats().Misses)
}

func TestCachingFingerprinter_Concurrent(t *testing.T) {
	cache, err := NewCachingFingerprinter(nil, 64)
	require.NoError(t, err)
	matcher := NewMatcher(cache)

	b := group(
		&models.Rule{Name: "r", Labels: map[string]string{"sev": "warn"}, Query: "up == 0"},
		&models.Rule{Name: "r", Labels: map[string]string{"sev": "crit"}, Query: "up == 0"},
	)
	a := group(&models.Rule{Name: "r", Labels: map[string]string{"sev": "crit"}, Query: "up==0"})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := matcher.MatchGroups(a, b)
			assert.Len(t, result.Matches, 1)
			assert.Same(t, b.Rules[1], result.Matches[0].B)
		}()
	}
	wg.Wait()

	assert.Positive(t, cache.Stats().Hits)
}
