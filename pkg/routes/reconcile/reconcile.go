package reconcile

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/rulematch/pkg/matching"
	"github.com/Ramsey-B/rulematch/pkg/models"
	"github.com/Ramsey-B/rulematch/pkg/promql"
	"github.com/Ramsey-B/rulematch/pkg/sources"
	"github.com/Ramsey-B/rulematch/pkg/sources/prometheus"
	"github.com/Ramsey-B/rulematch/pkg/sources/ruler"
	"github.com/Ramsey-B/rulematch/pkg/utils"
)

// Register registers reconciliation routes. Handlers resolve their dependencies from the request's container.
func Register(g *echo.Group) {
	g.GET("/reconcile", ReconcileLive)
	g.POST("/reconcile", Reconcile)
	g.POST("/rules/match", MatchRule)
	g.POST("/queries/hash", HashQuery)
}

// ReconcileRequest carries both sides either as decoded groups or as raw documents
type ReconcileRequest struct {
	ConfigGroups     []*models.RuleGroup `json:"config_groups" validate:"omitempty,dive"`
	EvaluationGroups []*models.RuleGroup `json:"evaluation_groups" validate:"omitempty,dive"`

	// ConfigDocument is ruler YAML or JSON, EvaluationDocument a /api/v1/rules response
	ConfigDocument     string          `json:"config_document,omitempty"`
	EvaluationDocument json.RawMessage `json:"evaluation_document,omitempty"`
}

// ReconcileResponse is the report plus its totals
type ReconcileResponse struct {
	Totals models.Totals  `json:"totals"`
	Report *models.Report `json:"report"`
}

// Reconcile reconciles posted rule groups or documents
func Reconcile(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[ReconcileRequest](c)
	if err != nil {
		return err
	}

	configGroups := req.ConfigGroups
	if req.ConfigDocument != "" {
		configGroups, err = ruler.Decode([]byte(req.ConfigDocument), "")
		if err != nil {
			return err
		}
	}

	evaluationGroups := req.EvaluationGroups
	if len(req.EvaluationDocument) > 0 {
		var opts prometheus.DecodeOptions
		ctx, opts, _ = ectoinject.GetContext[prometheus.DecodeOptions](ctx)
		evaluationGroups, err = prometheus.Decode(req.EvaluationDocument, opts)
		if err != nil {
			return err
		}
	}

	if configGroups == nil && evaluationGroups == nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "at least one of config or evaluation rules is required")
	}

	return respond(ctx, c, configGroups, evaluationGroups)
}

// ReconcileLive fetches both sides from the configured APIs and reconciles them
func ReconcileLive(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, configSource, err := ectoinject.GetNamedDependency[sources.GroupSource](ctx, sources.ConfigSource)
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotImplemented, "live reconciliation requires both RULER_URL and PROMETHEUS_URL")
	}
	ctx, evaluationSource, err := ectoinject.GetNamedDependency[sources.GroupSource](ctx, sources.EvaluationSource)
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotImplemented, "live reconciliation requires both RULER_URL and PROMETHEUS_URL")
	}

	var configGroups, evaluationGroups []*models.RuleGroup
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		groups, err := configSource.Groups(gctx)
		configGroups = groups
		return err
	})
	g.Go(func() error {
		groups, err := evaluationSource.Groups(gctx)
		evaluationGroups = groups
		return err
	})
	if err := g.Wait(); err != nil {
		var logger ectologger.Logger
		if ctx, logger, _ = ectoinject.GetContext[ectologger.Logger](ctx); logger != nil {
			logger.WithContext(ctx).WithError(err).Error("Failed to fetch rules for reconciliation")
		}
		return httperror.WrapError(http.StatusBadGateway, err)
	}

	return respond(ctx, c, configGroups, evaluationGroups)
}

func respond(ctx context.Context, c echo.Context, configGroups, evaluationGroups []*models.RuleGroup) error {
	ctx, service, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := service.Reconcile(ctx, configGroups, evaluationGroups)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ReconcileResponse{Totals: report.Totals(), Report: report})
}

// MatchRuleRequest asks which rule of a group corresponds to one rule
type MatchRuleRequest struct {
	Group *models.RuleGroup `json:"group" validate:"required"`
	Rule  *models.Rule      `json:"rule" validate:"required"`
}

// MatchRuleResponse is the decision trace of a single-rule match
type MatchRuleResponse struct {
	Matched    bool          `json:"matched"`
	Tier       matching.Tier `json:"tier"`
	Candidates int           `json:"candidates"`
	Rule       *models.Rule  `json:"rule,omitempty"`
}

// MatchRule resolves one rule against one group
func MatchRule(c echo.Context) error {
	req, err := utils.BindRequest[MatchRuleRequest](c)
	if err != nil {
		return err
	}

	_, service, err := ectoinject.GetContext[*matching.Service](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	outcome := service.Matcher().Resolve(req.Group, req.Rule)
	return c.JSON(http.StatusOK, MatchRuleResponse{
		Matched:    outcome.Tier.Matched(),
		Tier:       outcome.Tier,
		Candidates: outcome.Candidates,
		Rule:       outcome.Rule,
	})
}

// HashQueryRequest is a query to canonicalize
type HashQueryRequest struct {
	Query string `json:"query" validate:"required"`
}

// HashQueryResponse is the canonical form of a query and its hash
type HashQueryResponse struct {
	Query     string `json:"query"`
	Canonical string `json:"canonical"`
	Hash      string `json:"hash"`
}

// HashQuery returns the canonical form and hash of a query
func HashQuery(c echo.Context) error {
	req, err := utils.BindRequest[HashQueryRequest](c)
	if err != nil {
		return err
	}

	_, hasher, err := ectoinject.GetContext[*promql.Hasher](c.Request().Context())
	if err != nil {
		hasher = promql.DefaultHasher()
	}

	return c.JSON(http.StatusOK, HashQueryResponse{
		Query:     req.Query,
		Canonical: hasher.Canonicalize(req.Query),
		Hash:      hasher.Hash(req.Query),
	})
}
