package exporters

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"google.golang.org/grpc"
)

const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

const userAgent = "rulematch"

var defaultPorts = map[string]string{
	ProtocolGRPC: "4317",
	ProtocolHTTP: "4318",
}

// OTLPConfig describes the collector that receives reconciliation spans
type OTLPConfig struct {
	// Endpoint is host[:port] or a URL. An http:// scheme forces plaintext and https:// forces TLS.
	// Empty means localhost on the protocol's standard port.
	Endpoint string
	Protocol string
	Insecure bool
	// Headers go out with every export, e.g. X-Scope-OrgID for a multi-tenant Tempo
	Headers map[string]string
	Timeout time.Duration
}

// DefaultOTLPConfig returns a configuration for a local collector
func DefaultOTLPConfig() OTLPConfig {
	return OTLPConfig{
		Protocol: ProtocolGRPC,
		Insecure: true,
		Timeout:  10 * time.Second,
	}
}

// ParseHeaders reads OTLP_HEADERS style "name=value,..." pairs. Pairs without a name are skipped.
func ParseHeaders(s string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		name, value, _ := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		headers[name] = strings.TrimSpace(value)
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

// target resolves the collector address and whether TLS is skipped
func (c OTLPConfig) target() (string, bool, error) {
	port, ok := defaultPorts[c.Protocol]
	if !ok {
		return "", false, fmt.Errorf("unsupported OTLP protocol: %s (use 'grpc' or 'http')", c.Protocol)
	}

	endpoint := strings.TrimSpace(c.Endpoint)
	insecure := c.Insecure
	if scheme, rest, found := strings.Cut(endpoint, "://"); found {
		switch scheme {
		case "http":
			insecure = true
		case "https":
			insecure = false
		default:
			return "", false, fmt.Errorf("unsupported OTLP endpoint scheme: %s", scheme)
		}
		endpoint, _, _ = strings.Cut(rest, "/")
	}

	if endpoint == "" {
		endpoint = "localhost"
	}
	if _, _, err := net.SplitHostPort(endpoint); err != nil {
		endpoint = net.JoinHostPort(strings.Trim(endpoint, "[]"), port)
	}
	return endpoint, insecure, nil
}

// NewOTLPExporter creates a gzip-compressed OTLP trace exporter
func NewOTLPExporter(ctx context.Context, config OTLPConfig) (*otlptrace.Exporter, error) {
	endpoint, insecure, err := config.target()
	if err != nil {
		return nil, err
	}

	if config.Protocol == ProtocolHTTP {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithTimeout(config.Timeout),
			otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
			otlptracehttp.WithHeaders(withUserAgent(config.Headers)),
		}
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithTimeout(config.Timeout),
		otlptracegrpc.WithCompressor("gzip"),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent(userAgent)),
	}
	if insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if len(config.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(config.Headers))
	}
	return otlptracegrpc.New(ctx, opts...)
}

func withUserAgent(headers map[string]string) map[string]string {
	out := map[string]string{"User-Agent": userAgent}
	for k, v := range headers {
		out[k] = v
	}
	return out
}
