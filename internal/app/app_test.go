package app

import (
	"context"
	"testing"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/rulematch/config"
	"github.com/Ramsey-B/rulematch/pkg/matching"
	"github.com/Ramsey-B/rulematch/pkg/models"
	"github.com/Ramsey-B/rulematch/pkg/promql"
	"github.com/Ramsey-B/rulematch/pkg/sources"
	"github.com/Ramsey-B/rulematch/pkg/sources/prometheus"
)

func testConfig() *config.Config {
	return &config.Config{
		MatchWorkerCount:       2,
		MatchIncludeQueryDrift: true,
		Canonicalizer:          CanonicalizerParser,
	}
}

func TestNew_Minimal(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	a, err := New(testConfig(), logger)
	require.NoError(t, err)
	assert.NotNil(t, a.Service)
	assert.Nil(t, a.Cache)
	assert.Nil(t, a.Ruler)
	assert.Nil(t, a.Prometheus)
}

func TestNew_WithCacheAndSources(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	cfg := testConfig()
	cfg.FingerprintCacheSize = 128
	cfg.RulerURL = "http://ruler:8080"
	cfg.PrometheusURL = "http://prometheus:9090"
	cfg.PrometheusExternalLabels = "cluster=eu-1"

	a, err := New(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, a.Cache)
	assert.NotNil(t, a.Ruler)
	assert.NotNil(t, a.Prometheus)
	assert.Equal(t, map[string]string{"cluster": "eu-1"}, a.DecodeOptions().ExternalLabels)

	// shared names force fingerprints through the cache
	group := &models.RuleGroup{Name: "g", Rules: []*models.Rule{
		{Name: "r", Labels: map[string]string{"sev": "warn"}},
		{Name: "r", Labels: map[string]string{"sev": "crit"}},
	}}
	a.Service.Matcher().MatchGroups(group, group)
	assert.NotZero(t, a.Cache.Stats().Misses)
}

func TestNewHasher(t *testing.T) {
	parser, err := NewHasher(CanonicalizerParser)
	require.NoError(t, err)
	assert.Equal(t, parser.Hash(`up{job="a",env="b"}`), parser.Hash(`up{env="b", job="a"}`))

	// unparseable queries take the parser canonicalizer's own token fallback
	broken := "sum(rate(errors_total[5m]"
	assert.Equal(t, promql.NewParserCanonicalizer().Canonicalize(broken), parser.Canonicalize(broken))

	tokens, err := NewHasher(CanonicalizerTokens)
	require.NoError(t, err)
	assert.Equal(t, tokens.Hash("up == 0"), tokens.Hash("up==0"))

	_, err = NewHasher("regex")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, sync, err := NewLogger("debug", true)
	require.NoError(t, err)
	logger.Debug("logger works")
	sync()

	_, _, err = NewLogger("loud", false)
	assert.Error(t, err)
}

func TestApp_Container(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	t.Run("with sources", func(t *testing.T) {
		cfg := testConfig()
		cfg.RulerURL = "http://ruler:8080"
		cfg.PrometheusURL = "http://prometheus:9090"
		cfg.PrometheusExternalLabels = "cluster=eu-1"
		a, err := New(cfg, logger)
		require.NoError(t, err)

		id, err := a.Container()
		require.NoError(t, err)
		ctx, err := ectoinject.SetActiveContainer(context.Background(), id)
		require.NoError(t, err)

		ctx, service, err := ectoinject.GetContext[*matching.Service](ctx)
		require.NoError(t, err)
		assert.Same(t, a.Service, service)

		ctx, hasher, err := ectoinject.GetContext[*promql.Hasher](ctx)
		require.NoError(t, err)
		assert.Same(t, a.Hasher, hasher)

		ctx, opts, err := ectoinject.GetContext[prometheus.DecodeOptions](ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"cluster": "eu-1"}, opts.ExternalLabels)

		ctx, configSource, err := ectoinject.GetNamedDependency[sources.GroupSource](ctx, sources.ConfigSource)
		require.NoError(t, err)
		assert.Same(t, a.Ruler, configSource)

		_, evaluation, err := ectoinject.GetNamedDependency[sources.GroupSource](ctx, sources.EvaluationSource)
		require.NoError(t, err)
		assert.Same(t, a.Prometheus, evaluation)
	})

	t.Run("without sources", func(t *testing.T) {
		a, err := New(testConfig(), logger)
		require.NoError(t, err)

		id, err := a.Container()
		require.NoError(t, err)
		ctx, err := ectoinject.SetActiveContainer(context.Background(), id)
		require.NoError(t, err)

		_, _, err = ectoinject.GetNamedDependency[sources.GroupSource](ctx, sources.ConfigSource)
		assert.Error(t, err)
	})
}
