package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"

	"github.com/Ramsey-B/rulematch/pkg/utils"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"rulematch-api" validate:"required"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3000" validate:"min=1,max=65535"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"30" validate:"min=1"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10" validate:"min=1"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10" validate:"min=1"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	BodyLimit                     string   `env:"HTTP_SERVER_BODY_LIMIT" env-default:"32M"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5" validate:"min=1"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`

	// Matching
	MatchWorkerCount       int  `env:"MATCH_WORKER_COUNT" env-default:"4" validate:"min=1"`
	FingerprintCacheSize   int  `env:"FINGERPRINT_CACHE_SIZE" env-default:"0" validate:"min=0"`
	MatchIncludeQueryDrift bool `env:"MATCH_INCLUDE_QUERY_DRIFT" env-default:"true"`
	// Canonicalizer is "parser" (PromQL AST) or "tokens" (lexical only)
	Canonicalizer string `env:"QUERY_CANONICALIZER" env-default:"parser" validate:"oneof=parser tokens"`

	// Evaluation API (Prometheus-compatible /api/v1/rules)
	PrometheusURL     string        `env:"PROMETHEUS_URL" env-default:"" validate:"omitempty,url"`
	PrometheusTimeout time.Duration `env:"PROMETHEUS_TIMEOUT" env-default:"10s"`
	// Comma-separated name=value pairs stripped from evaluation rule labels
	PrometheusExternalLabels string `env:"PROMETHEUS_EXTERNAL_LABELS" env-default:""`

	// Configuration API (ruler)
	RulerURL     string        `env:"RULER_URL" env-default:"" validate:"omitempty,url"`
	RulerPath    string        `env:"RULER_PATH" env-default:"/api/v1/rules"`
	RulerTimeout time.Duration `env:"RULER_TIMEOUT" env-default:"10s"`

	// Tracing
	TracingExporter string `env:"TRACING_EXPORTER" env-default:"none" validate:"oneof=none console otlp"`
	// Empty means localhost on the protocol's standard port
	OTLPEndpoint    string `env:"OTLP_ENDPOINT" env-default:""`
	OTLPProtocol    string `env:"OTLP_PROTOCOL" env-default:"grpc" validate:"oneof=grpc http"`
	OTLPInsecure    bool   `env:"OTLP_INSECURE" env-default:"true"`
	// Comma-separated name=value pairs sent with every export
	OTLPHeaders     string `env:"OTLP_HEADERS" env-default:""`
}

// Load reads the given .env files, then the environment. Missing files are skipped.
func Load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file '%s': %w", file, err)
		}
	}

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return utils.Validate(&cfg)
}

// ExternalLabels parses PROMETHEUS_EXTERNAL_LABELS
func (c *Config) ExternalLabels() map[string]string {
	if strings.TrimSpace(c.PrometheusExternalLabels) == "" {
		return nil
	}

	labels := make(map[string]string)
	for _, pair := range strings.Split(c.PrometheusExternalLabels, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			continue
		}
		labels[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return labels
}
