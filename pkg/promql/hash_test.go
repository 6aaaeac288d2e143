package promql

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashQuery_Equivalent(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{
			name: "whitespace and quote style",
			a:    `up{job="x"}`,
			b:    `up{ job = 'x' }`,
		},
		{
			name: "label selector order",
			a:    `http_requests_total{job="api", code="500"}`,
			b:    `http_requests_total{code="500",job="api"}`,
		},
		{
			name: "aggregation grouping order",
			a:    `sum by (namespace, pod) (rate(container_cpu_usage_seconds_total[5m]))`,
			b:    `sum by (pod, namespace) (rate(container_cpu_usage_seconds_total[5m]))`,
		},
		{
			name: "trailing grouping clause",
			a:    `sum(rate(x[5m])) by (job)`,
			b:    `sum by (job) (rate(x[5m]))`,
		},
		{
			name: "comments and newlines",
			a:    "# how many targets are down\nup == 0 # per target",
			b:    "up == 0",
		},
		{
			name: "operator spacing",
			a:    `rate(x[5m])>0.5`,
			b:    `rate(x[5m]) > 0.5`,
		},
		{
			name: "recording rule with comments",
			a: `# This is a comment
max by (environment, namespace, service) (service_condition{environment="production", area!="", area_check=""})
or
# Another comment
max by (environment, namespace, service) (service_condition{environment!="production", area!="", area_check=""}) * on (environment, namespace, service) group_left(criticality) service_info`,
			b: `max by (environment, namespace, service) (service_condition{area!="",area_check="",environment="production"}) or max by (environment, namespace, service) (service_condition{area!="",area_check="",environment!="production"}) * on (environment, namespace, service) group_left (criticality) service_info`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, HashQuery(tt.a), HashQuery(tt.b))
		})
	}
}

func TestHashQuery_Different(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{name: "parenthesization", a: `(a + b) * c`, b: `a + b * c`},
		{name: "operand order", a: `a - b`, b: `b - a`},
		{name: "equality vs regex matcher", a: `up{job="x"}`, b: `up{job=~"x"}`},
		{name: "equality vs negated matcher", a: `up{job="x"}`, b: `up{job!="x"}`},
		{name: "regex vs negated regex", a: `up{job=~"x"}`, b: `up{job!~"x"}`},
		{name: "aggregation", a: `sum(x)`, b: `max(x)`},
		{name: "function arguments", a: `histogram_quantile(0.9, x)`, b: `histogram_quantile(0.99, x)`},
		{name: "threshold", a: `up == 1`, b: `up == 0`},
		{name: "by vs without", a: `sum by (job) (x)`, b: `sum without (job) (x)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, HashQuery(tt.a), HashQuery(tt.b))
		})
	}
}

func TestHashQuery_Stable(t *testing.T) {
	q := `sum by (job) (rate(http_requests_total{code=~"5.."}[5m]))`
	first := HashQuery(q)
	require.NotEmpty(t, first)

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = HashQuery(q)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, first, r)
	}
}

func TestHasher_FallsBackOnInvalidQuery(t *testing.T) {
	h := NewHasher(nil)

	// unterminated string: neither the parser nor the tokenizer accept it
	assert.Equal(t, `up {job="x}"`, h.Canonicalize(`up  {job="x}`))
	assert.Equal(t, h.Hash(`up {job="x}`), h.Hash(`up   {job="x}`))
	assert.NotPanics(t, func() { h.Hash("sum(((") })
	assert.NotPanics(t, func() { h.Hash("") })
}

func TestHasher_CustomCanonicalizer(t *testing.T) {
	h := NewHasher(CanonicalizerFunc(func(q string) string { return "constant" }))

	assert.Equal(t, h.Hash("a"), h.Hash("b"))
	assert.Equal(t, "constant", h.Canonicalize("anything"))
}

func TestParserCanonicalizer_WithFallback(t *testing.T) {
	c := NewParserCanonicalizer().WithFallback(CanonicalizerFunc(func(q string) string { return "fallback" }))

	assert.Equal(t, "fallback", c.Canonicalize("sum(("))
	assert.NotEqual(t, "fallback", c.Canonicalize("up"))
}
