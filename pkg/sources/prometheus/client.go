package prometheus

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"go.opentelemetry.io/otel/attribute"

	reqcontext "github.com/Ramsey-B/rulematch/pkg/context"
	"github.com/Ramsey-B/rulematch/pkg/metrics"
	"github.com/Ramsey-B/rulematch/pkg/models"
	"github.com/Ramsey-B/rulematch/pkg/tracing"
)

// ClientConfig configures the evaluation API client
type ClientConfig struct {
	Address string
	Timeout time.Duration
	Decode  DecodeOptions
}

// Client fetches evaluated rule groups through the Prometheus HTTP API
type Client struct {
	api     v1.API
	logger  ectologger.Logger
	timeout time.Duration
	opts    DecodeOptions
}

// NewClient creates a client for the server at cfg.Address
func NewClient(logger ectologger.Logger, cfg ClientConfig) (*Client, error) {
	client, err := api.NewClient(api.Config{
		Address:      cfg.Address,
		RoundTripper: &orgIDRoundTripper{next: api.DefaultRoundTripper},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}

	return &Client{
		api:     v1.NewAPI(client),
		logger:  logger,
		timeout: cfg.Timeout,
		opts:    cfg.Decode,
	}, nil
}

// Groups fetches every evaluated rule group
func (c *Client) Groups(ctx context.Context) ([]*models.RuleGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "prometheus.Client.Groups")
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log := c.logger.WithContext(ctx)
	start := time.Now()

	result, err := c.api.Rules(ctx)
	if err != nil {
		metrics.RecordFetch(SourceName, "error", time.Since(start).Seconds())
		tracing.RecordError(span, err)
		log.WithError(err).Error("Failed to fetch evaluation rules")
		return nil, fmt.Errorf("failed to fetch rules: %w", err)
	}
	metrics.RecordFetch(SourceName, "success", time.Since(start).Seconds())

	groups, err := FromRulesResult(result, c.opts)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("groups", len(groups)))
	log.WithFields(map[string]any{"groups": len(groups)}).Debug("Fetched evaluation rules")
	return groups, nil
}

// Ping checks that the rules endpoint answers
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Groups(ctx)
	return err
}

// orgIDRoundTripper forwards the request tenant to multi-tenant rulers
type orgIDRoundTripper struct {
	next http.RoundTripper
}

func (t *orgIDRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	orgID := reqcontext.GetOrgID(req.Context())
	if orgID == "" {
		return t.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("X-Scope-OrgID", orgID)
	return t.next.RoundTrip(req)
}
