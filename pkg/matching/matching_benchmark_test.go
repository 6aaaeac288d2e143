package matching

import (
	"fmt"
	"testing"

	"github.com/Ramsey-B/rulematch/pkg/models"
)

// benchmarkGroups creates groups of n rules where every name is shared by two rules
// that differ only by severity, so matching needs the fingerprint tier.
func benchmarkGroups(n int) (*models.RuleGroup, *models.RuleGroup) {
	a := make([]*models.Rule, 0, n)
	b := make([]*models.Rule, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("rule_%d", i/2)
		sev := "warn"
		if i%2 == 1 {
			sev = "crit"
		}
		query := fmt.Sprintf(`rate(requests_total{job="svc_%d"}[5m]) > %d`, i/2, i%2)
		a = append(a, &models.Rule{Name: name, Labels: map[string]string{"sev": sev}, Query: query})
		b = append(b, &models.Rule{Name: name, Labels: map[string]string{"sev": sev}, Query: query})
	}
	return group(a...), group(b...)
}

func BenchmarkMatchGroups(b *testing.B) {
	for _, n := range []int{100, 1000} {
		groupA, groupB := benchmarkGroups(n)
		matcher := NewMatcher(nil)

		b.Run(fmt.Sprintf("indexed_%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				matcher.MatchGroups(groupA, groupB)
			}
		})

		b.Run(fmt.Sprintf("per_rule_%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				for _, rule := range groupA.Rules {
					matcher.Resolve(groupB, rule)
				}
			}
		})
	}
}

func BenchmarkMatchGroups_Cached(b *testing.B) {
	groupA, groupB := benchmarkGroups(1000)
	cache, err := NewCachingFingerprinter(nil, 4096)
	if err != nil {
		b.Fatal(err)
	}
	matcher := NewMatcher(cache)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		matcher.MatchGroups(groupA, groupB)
	}
}
