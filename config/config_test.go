package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "rulematch-api", cfg.AppName)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 4, cfg.MatchWorkerCount)
	assert.Equal(t, 0, cfg.FingerprintCacheSize)
	assert.True(t, cfg.MatchIncludeQueryDrift)
	assert.Equal(t, "parser", cfg.Canonicalizer)
	assert.Equal(t, 10*time.Second, cfg.PrometheusTimeout)
	assert.Equal(t, "/api/v1/rules", cfg.RulerPath)
	assert.Equal(t, "none", cfg.TracingExporter)
	assert.Equal(t, []string{"GET", "POST"}, cfg.AllowMethods)
	assert.Empty(t, cfg.PrometheusURL)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("MATCH_WORKER_COUNT", "16")
	t.Setenv("MATCH_INCLUDE_QUERY_DRIFT", "false")
	t.Setenv("PROMETHEUS_URL", "http://prometheus:9090")
	t.Setenv("PROMETHEUS_TIMEOUT", "2s")
	t.Setenv("TRACING_EXPORTER", "otlp")
	t.Setenv("OTLP_PROTOCOL", "http")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 16, cfg.MatchWorkerCount)
	assert.False(t, cfg.MatchIncludeQueryDrift)
	assert.Equal(t, "http://prometheus:9090", cfg.PrometheusURL)
	assert.Equal(t, 2*time.Second, cfg.PrometheusTimeout)
	assert.Equal(t, "otlp", cfg.TracingExporter)
	assert.Equal(t, "http", cfg.OTLPProtocol)
}

func TestLoad_TypedFields(t *testing.T) {
	t.Setenv("HTTP_SERVER_ALLOW_ORIGINS", "https://grafana.example.com,https://ops.example.com")
	t.Setenv("SHUTDOWN_TIMEOUT", "1m30s")
	t.Setenv("OTLP_INSECURE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://grafana.example.com", "https://ops.example.com"}, cfg.AllowOrigins)
	assert.Equal(t, 90*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.OTLPInsecure)

	t.Setenv("SHUTDOWN_TIMEOUT", "soon")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RULER_URL=http://ruler:8080\nFINGERPRINT_CACHE_SIZE=1024\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("RULER_URL")
		os.Unsetenv("FINGERPRINT_CACHE_SIZE")
	})

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"), path)
	require.NoError(t, err)
	assert.Equal(t, "http://ruler:8080", cfg.RulerURL)
	assert.Equal(t, 1024, cfg.FingerprintCacheSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{name: "zero workers", env: "MATCH_WORKER_COUNT", value: "0"},
		{name: "negative cache", env: "FINGERPRINT_CACHE_SIZE", value: "-1"},
		{name: "unknown exporter", env: "TRACING_EXPORTER", value: "zipkin"},
		{name: "unknown protocol", env: "OTLP_PROTOCOL", value: "thrift"},
		{name: "unknown canonicalizer", env: "QUERY_CANONICALIZER", value: "regex"},
		{name: "bad url", env: "PROMETHEUS_URL", value: "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestExternalLabels(t *testing.T) {
	cfg := &Config{PrometheusExternalLabels: "cluster=eu-1, env = prod,broken,=x"}
	assert.Equal(t, map[string]string{"cluster": "eu-1", "env": "prod"}, cfg.ExternalLabels())

	assert.Nil(t, (&Config{}).ExternalLabels())
}
