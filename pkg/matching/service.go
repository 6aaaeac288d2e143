package matching

import (
	"context"
	"maps"
	"time"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/rulematch/pkg/metrics"
	"github.com/Ramsey-B/rulematch/pkg/models"
	"github.com/Ramsey-B/rulematch/pkg/tracing"
)

// ServiceConfig contains configuration for the reconciliation service.
type ServiceConfig struct {
	Workers          int  // Group pairs matched in parallel (default: 4)
	DetectQueryDrift bool // Compare canonical query hashes of matched pairs (default: true)
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Workers:          4,
		DetectQueryDrift: true,
	}
}

// Service reconciles configuration rule groups against evaluation rule groups.
// Configuration rules play the A side of MatchGroups and evaluation rules the B side.
type Service struct {
	log     ectologger.Logger
	matcher *Matcher
	cfg     ServiceConfig
}

// NewService creates a new reconciliation service. A nil matcher selects the default.
func NewService(log ectologger.Logger, matcher *Matcher, cfg ServiceConfig) *Service {
	if matcher == nil {
		matcher = NewMatcher(nil)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Service{
		log:     log,
		matcher: matcher,
		cfg:     cfg,
	}
}

// Matcher returns the matcher used by the service
func (s *Service) Matcher() *Matcher {
	return s.matcher
}

type groupPair struct {
	config     *models.RuleGroup
	evaluation *models.RuleGroup
}

// Reconcile pairs groups by namespace and name, matches the rules of each pair and
// reports drift, unmatched rules and groups present in only one source.
// Groups in the report follow the order of configGroups.
func (s *Service) Reconcile(ctx context.Context, configGroups, evaluationGroups []*models.RuleGroup) (*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.Reconcile",
		attribute.Int("config_groups", len(configGroups)),
		attribute.Int("evaluation_groups", len(evaluationGroups)),
	)
	defer span.End()

	start := time.Now()
	log := s.log.WithContext(ctx)

	pairs, report := s.pairGroups(log, configGroups, evaluationGroups)

	results := make([]*models.GroupReport, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, pair := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.MatchGroup(gctx, pair.config, pair.evaluation)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		tracing.RecordError(span, err)
		metrics.RecordReconciliation("cancelled", time.Since(start).Seconds())
		log.WithError(err).Warn("Reconciliation aborted")
		return nil, err
	}
	report.Groups = results

	totals := report.Totals()
	metrics.RecordReconciliation("success", time.Since(start).Seconds())
	metrics.RecordGroups("paired", len(pairs))
	metrics.RecordGroups("config_only", len(report.ConfigOnlyGroups))
	metrics.RecordGroups("evaluation_only", len(report.EvaluationOnlyGroups))

	log.WithFields(map[string]any{
		"groups":               len(pairs),
		"matched":              totals.Matched,
		"drifted":              totals.Drifted,
		"unmatched_config":     totals.UnmatchedConfig,
		"unmatched_evaluation": totals.UnmatchedEvaluation,
		"duration_ms":          time.Since(start).Milliseconds(),
	}).Info("Reconciliation complete")

	return report, nil
}

// pairGroups joins both sides by GroupKey. When a key repeats within one side the
// first group wins and the rest are logged and skipped.
func (s *Service) pairGroups(log ectologger.Logger, configGroups, evaluationGroups []*models.RuleGroup) ([]groupPair, *models.Report) {
	report := &models.Report{}

	evaluationByKey := make(map[models.GroupKey]*models.RuleGroup, len(evaluationGroups))
	evaluationOrder := make([]models.GroupKey, 0, len(evaluationGroups))
	for _, group := range evaluationGroups {
		if group == nil {
			continue
		}
		key := group.Key()
		if _, ok := evaluationByKey[key]; ok {
			log.WithFields(map[string]any{"group": key.String()}).Warn("Duplicate evaluation group; keeping the first")
			continue
		}
		evaluationByKey[key] = group
		evaluationOrder = append(evaluationOrder, key)
	}

	paired := make(map[models.GroupKey]struct{}, len(configGroups))
	pairs := make([]groupPair, 0, len(configGroups))
	for _, group := range configGroups {
		if group == nil {
			continue
		}
		key := group.Key()
		if _, ok := paired[key]; ok {
			log.WithFields(map[string]any{"group": key.String()}).Warn("Duplicate configuration group; keeping the first")
			continue
		}
		paired[key] = struct{}{}

		evaluation, ok := evaluationByKey[key]
		if !ok {
			report.ConfigOnlyGroups = append(report.ConfigOnlyGroups, key)
			continue
		}
		pairs = append(pairs, groupPair{config: group, evaluation: evaluation})
	}

	for _, key := range evaluationOrder {
		if _, ok := paired[key]; !ok {
			report.EvaluationOnlyGroups = append(report.EvaluationOnlyGroups, key)
		}
	}

	return pairs, report
}

// MatchGroup matches one configuration group against one evaluation group
func (s *Service) MatchGroup(ctx context.Context, configGroup, evaluationGroup *models.RuleGroup) *models.GroupReport {
	_, span := tracing.StartSpan(ctx, "matching.Service.MatchGroup")
	defer span.End()

	report := &models.GroupReport{}
	switch {
	case configGroup != nil:
		report.Key = configGroup.Key()
	case evaluationGroup != nil:
		report.Key = evaluationGroup.Key()
	}
	span.SetAttributes(attribute.String("group", report.Key.String()))

	result := s.matcher.MatchGroups(configGroup, evaluationGroup)

	report.Matched = make([]models.RulePair, 0, len(result.Matches))
	for _, match := range result.Matches {
		pair := models.RulePair{
			Config:     match.A,
			Evaluation: match.B,
			Tier:       match.Tier.String(),
			Drift:      s.drift(match.A, match.B),
		}
		report.Matched = append(report.Matched, pair)
		recordPair(pair)
	}
	report.UnmatchedConfig = result.UnmatchedA
	report.UnmatchedEvaluation = result.UnmatchedB

	metrics.RecordUnmatched(string(models.SourceConfiguration), len(report.UnmatchedConfig))
	metrics.RecordUnmatched(string(models.SourceEvaluation), len(report.UnmatchedEvaluation))

	s.log.WithContext(ctx).WithFields(map[string]any{
		"group":                report.Key.String(),
		"matched":              len(report.Matched),
		"unmatched_config":     len(report.UnmatchedConfig),
		"unmatched_evaluation": len(report.UnmatchedEvaluation),
	}).Debug("Matched rule group")

	return report
}

func (s *Service) drift(config, evaluation *models.Rule) models.Drift {
	d := models.Drift{
		Labels:      !maps.Equal(config.Labels, evaluation.Labels),
		Annotations: !maps.Equal(config.Annotations, evaluation.Annotations),
	}
	if s.cfg.DetectQueryDrift {
		d.Query = queryHash(s.matcher.fingerprinter, config) != queryHash(s.matcher.fingerprinter, evaluation)
	}
	return d
}

// queryHash takes the trailing query element of the query-inclusive fingerprint
func queryHash(f Fingerprinter, rule *models.Rule) string {
	fp := f.Build(rule, true)
	if len(fp) == 0 {
		return ""
	}
	return fp[len(fp)-1]
}

func recordPair(pair models.RulePair) {
	metrics.RecordRuleMatch(pair.Tier)
	if pair.Drift.Labels {
		metrics.RecordDrift("labels")
	}
	if pair.Drift.Annotations {
		metrics.RecordDrift("annotations")
	}
	if pair.Drift.Query {
		metrics.RecordDrift("query")
	}
}
