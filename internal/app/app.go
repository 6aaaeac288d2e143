// Package app wires configuration into the matching service and rule sources.
package app

import (
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/rulematch/config"
	"github.com/Ramsey-B/rulematch/pkg/fingerprint"
	"github.com/Ramsey-B/rulematch/pkg/matching"
	"github.com/Ramsey-B/rulematch/pkg/promql"
	"github.com/Ramsey-B/rulematch/pkg/sources/prometheus"
	"github.com/Ramsey-B/rulematch/pkg/sources/ruler"
)

const (
	CanonicalizerParser = "parser"
	CanonicalizerTokens = "tokens"
)

// App holds the long-lived components shared by the server and the CLI
type App struct {
	Config  *config.Config
	Logger  ectologger.Logger
	Hasher  *promql.Hasher
	Service *matching.Service
	Cache   *matching.CachingFingerprinter

	// Live sources, nil unless their URL is configured
	Ruler      *ruler.Client
	Prometheus *prometheus.Client
}

// New builds the application from configuration
func New(cfg *config.Config, logger ectologger.Logger) (*App, error) {
	hasher, err := NewHasher(cfg.Canonicalizer)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Hasher: hasher}

	var fingerprinter matching.Fingerprinter = fingerprint.NewBuilder(hasher)
	if cfg.FingerprintCacheSize > 0 {
		a.Cache, err = matching.NewCachingFingerprinter(fingerprinter, cfg.FingerprintCacheSize)
		if err != nil {
			return nil, err
		}
		fingerprinter = a.Cache
	}

	a.Service = matching.NewService(logger, matching.NewMatcher(fingerprinter), matching.ServiceConfig{
		Workers:          cfg.MatchWorkerCount,
		DetectQueryDrift: cfg.MatchIncludeQueryDrift,
	})

	if cfg.RulerURL != "" {
		a.Ruler = ruler.NewClient(logger, ruler.ClientConfig{
			Address: cfg.RulerURL,
			Path:    cfg.RulerPath,
			Timeout: cfg.RulerTimeout,
		})
	}

	if cfg.PrometheusURL != "" {
		a.Prometheus, err = prometheus.NewClient(logger, prometheus.ClientConfig{
			Address: cfg.PrometheusURL,
			Timeout: cfg.PrometheusTimeout,
			Decode:  a.DecodeOptions(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus client: %w", err)
		}
	}

	return a, nil
}

// DecodeOptions returns the options applied to evaluation documents
func (a *App) DecodeOptions() prometheus.DecodeOptions {
	return prometheus.DecodeOptions{ExternalLabels: a.Config.ExternalLabels()}
}

// NewHasher returns the query hasher for a canonicalizer name
func NewHasher(name string) (*promql.Hasher, error) {
	switch name {
	case "", CanonicalizerParser:
		return promql.NewHasher(promql.NewParserCanonicalizer()), nil
	case CanonicalizerTokens:
		return promql.NewHasher(promql.NewTokenCanonicalizer()), nil
	default:
		return nil, fmt.Errorf("unknown query canonicalizer: %s", name)
	}
}
