// Package prometheus reads rule evaluation state from a Prometheus-compatible
// /api/v1/rules endpoint.
package prometheus

import (
	"encoding/json"
	"fmt"

	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/Ramsey-B/rulematch/pkg/errors"
	"github.com/Ramsey-B/rulematch/pkg/models"
)

const SourceName = "prometheus"

const (
	LabelKeyThanosRulerReplica = "thanos_ruler_replica"
	LabelKeyPrometheusReplica  = "prometheus_replica"
)

// DecodeOptions controls label hygiene on decoded rules
type DecodeOptions struct {
	// ExternalLabels are dropped from rule labels when the value matches, since the
	// evaluating server adds them and configured rules never carry them.
	ExternalLabels map[string]string
}

type envelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	ErrorType string          `json:"errorType"`
	Error     string          `json:"error"`
}

type groupHeader struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// Decode reads a /api/v1/rules response. Both the full {"status","data"} envelope and
// the bare data object are accepted.
func Decode(data []byte, opts DecodeOptions) ([]*models.RuleGroup, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.NewDecodeErrorf(SourceName, "invalid JSON: %w", err)
	}

	payload := data
	if env.Status != "" {
		if env.Status != "success" {
			return nil, errors.NewDecodeErrorf(SourceName, "rules request failed (%s): %s", env.ErrorType, env.Error)
		}
		payload = env.Data
	}

	var raw struct {
		Groups []json.RawMessage `json:"groups"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.NewDecodeErrorf(SourceName, "invalid rules data: %w", err)
	}

	result := v1.RulesResult{Groups: make([]v1.RuleGroup, 0, len(raw.Groups))}
	for i, rawGroup := range raw.Groups {
		var header groupHeader
		_ = json.Unmarshal(rawGroup, &header)

		var group v1.RuleGroup
		if err := json.Unmarshal(rawGroup, &group); err != nil {
			decodeErr := errors.NewDecodeErrorf(SourceName, "%w", err).AddNamespace(header.File).AddGroup(header.Name)
			if header.Name == "" {
				decodeErr.AddGroup(fmt.Sprintf("#%d", i))
			}
			return nil, decodeErr
		}
		result.Groups = append(result.Groups, group)
	}

	return FromRulesResult(result, opts)
}

// FromRulesResult converts a client_golang rules result into rule groups
func FromRulesResult(result v1.RulesResult, opts DecodeOptions) ([]*models.RuleGroup, error) {
	groups := make([]*models.RuleGroup, 0, len(result.Groups))
	for _, g := range result.Groups {
		group := &models.RuleGroup{
			Namespace: g.File,
			Name:      g.Name,
			Source:    models.SourceEvaluation,
			Rules:     make([]*models.Rule, 0, len(g.Rules)),
		}

		for i, r := range g.Rules {
			rule, err := convertRule(r, opts)
			if err != nil {
				return nil, errors.WrapDecodeError(SourceName, err).AddNamespace(g.File).AddGroup(g.Name).AddRule(i)
			}
			group.Rules = append(group.Rules, rule)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func convertRule(r any, opts DecodeOptions) (*models.Rule, error) {
	switch rule := r.(type) {
	case v1.AlertingRule:
		return &models.Rule{
			Name:        rule.Name,
			Type:        models.RuleTypeAlerting,
			Labels:      cleanLabels(rule.Labels, opts.ExternalLabels),
			Annotations: labelSetToMap(rule.Annotations),
			Query:       rule.Query,
			Source:      models.SourceEvaluation,
			Health:      string(rule.Health),
			State:       rule.State,
		}, nil
	case v1.RecordingRule:
		return &models.Rule{
			Name:   rule.Name,
			Type:   models.RuleTypeRecording,
			Labels: cleanLabels(rule.Labels, opts.ExternalLabels),
			Query:  rule.Query,
			Source: models.SourceEvaluation,
			Health: string(rule.Health),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported rule type %T", r)
	}
}

// cleanLabels drops replica labels added by HA rulers and matching external labels
func cleanLabels(set model.LabelSet, external map[string]string) map[string]string {
	if len(set) == 0 {
		return nil
	}
	labels := make(map[string]string, len(set))
	for name, value := range set {
		key := string(name)
		if key == LabelKeyPrometheusReplica || key == LabelKeyThanosRulerReplica {
			continue
		}
		if v, ok := external[key]; ok && v == string(value) {
			continue
		}
		labels[key] = string(value)
	}
	if len(labels) == 0 {
		return nil
	}
	return labels
}

func labelSetToMap(set model.LabelSet) map[string]string {
	if len(set) == 0 {
		return nil
	}
	m := make(map[string]string, len(set))
	for name, value := range set {
		m[string(name)] = string(value)
	}
	return m
}
