package ruler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	reqcontext "github.com/Ramsey-B/rulematch/pkg/context"
	"github.com/Ramsey-B/rulematch/pkg/httpclient"
	"github.com/Ramsey-B/rulematch/pkg/metrics"
	"github.com/Ramsey-B/rulematch/pkg/models"
	"github.com/Ramsey-B/rulematch/pkg/tracing"
)

// DefaultRulesPath is the ruler configuration endpoint of Cortex/Mimir-style rulers
const DefaultRulesPath = "/api/v1/rules"

// ClientConfig configures the configuration API client
type ClientConfig struct {
	Address string
	Path    string
	Timeout time.Duration
}

// Client fetches configured rule groups from a ruler configuration API
type Client struct {
	http   *httpclient.Client
	logger ectologger.Logger
	url    string
}

// NewClient creates a client for the ruler at cfg.Address
func NewClient(logger ectologger.Logger, cfg ClientConfig) *Client {
	path := cfg.Path
	if path == "" {
		path = DefaultRulesPath
	}

	httpCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		httpCfg.Timeout = cfg.Timeout
	}

	return &Client{
		http:   httpclient.NewClient(httpCfg, logger),
		logger: logger,
		url:    strings.TrimRight(cfg.Address, "/") + "/" + strings.TrimLeft(path, "/"),
	}
}

// Groups fetches every configured rule group
func (c *Client) Groups(ctx context.Context) ([]*models.RuleGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "ruler.Client.Groups")
	defer span.End()

	headers := map[string]string{"Accept": "application/yaml, application/json"}
	if orgID := reqcontext.GetOrgID(ctx); orgID != "" {
		headers["X-Scope-OrgID"] = orgID
	}

	start := time.Now()
	resp, err := c.http.Get(ctx, c.url, headers)
	if err != nil {
		metrics.RecordFetch(SourceName, "error", time.Since(start).Seconds())
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to fetch rules: %w", err)
	}

	// rulers answer 404 when a tenant has no rules
	if resp.StatusCode == http.StatusNotFound {
		metrics.RecordFetch(SourceName, "success", time.Since(start).Seconds())
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		metrics.RecordFetch(SourceName, "error", time.Since(start).Seconds())
		err := fmt.Errorf("ruler returned status %d: %s", resp.StatusCode, truncate(string(resp.Body), 256))
		tracing.RecordError(span, err)
		return nil, err
	}
	metrics.RecordFetch(SourceName, "success", time.Since(start).Seconds())

	groups, err := Decode(resp.Body, "")
	if err != nil {
		tracing.RecordError(span, err)
		c.logger.WithContext(ctx).WithError(err).Error("Failed to decode configuration rules")
		return nil, err
	}

	span.SetAttributes(attribute.Int("groups", len(groups)))
	return groups, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// Ping checks that the rules endpoint answers
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Groups(ctx)
	return err
}
