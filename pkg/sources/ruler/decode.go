// Package ruler reads rule configuration documents: the ruler API's
// namespace → groups map and the Prometheus rule-file format.
package ruler

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/rulematch/pkg/errors"
	"github.com/Ramsey-B/rulematch/pkg/models"
)

const SourceName = "ruler"

type ruleFile struct {
	Groups []RuleGroupConfig `yaml:"groups"`
}

// Decode reads either a namespace → groups document or a rule file with a top-level
// "groups" key. Rule files land in defaultNamespace. Namespaces keep document order.
// JSON input is accepted since it is valid YAML.
func Decode(data []byte, defaultNamespace string) ([]*models.RuleGroup, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.NewDecodeErrorf(SourceName, "invalid YAML: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, errors.NewDecodeError(SourceName, "document must be a mapping")
	}

	if isRuleFile(doc) {
		return decodeRuleFile(doc, defaultNamespace)
	}
	return decodeNamespaces(doc)
}

// DecodeRuleFile reads a Prometheus rule file into namespace
func DecodeRuleFile(data []byte, namespace string) ([]*models.RuleGroup, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.NewDecodeErrorf(SourceName, "invalid YAML: %w", err).AddNamespace(namespace)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	return decodeRuleFile(root.Content[0], namespace)
}

func isRuleFile(doc *yaml.Node) bool {
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "groups" && doc.Content[i+1].Kind == yaml.SequenceNode {
			return true
		}
	}
	return false
}

func decodeRuleFile(doc *yaml.Node, namespace string) ([]*models.RuleGroup, error) {
	var file ruleFile
	if err := doc.Decode(&file); err != nil {
		return nil, errors.NewDecodeErrorf(SourceName, "invalid rule file: %w", err).AddNamespace(namespace)
	}
	return convertGroups(namespace, file.Groups)
}

func decodeNamespaces(doc *yaml.Node) ([]*models.RuleGroup, error) {
	var groups []*models.RuleGroup
	for i := 0; i+1 < len(doc.Content); i += 2 {
		namespace := doc.Content[i].Value

		var configs []RuleGroupConfig
		if err := doc.Content[i+1].Decode(&configs); err != nil {
			return nil, errors.NewDecodeErrorf(SourceName, "invalid groups: %w", err).AddNamespace(namespace)
		}

		converted, err := convertGroups(namespace, configs)
		if err != nil {
			return nil, err
		}
		groups = append(groups, converted...)
	}
	return groups, nil
}

func convertGroups(namespace string, configs []RuleGroupConfig) ([]*models.RuleGroup, error) {
	groups := make([]*models.RuleGroup, 0, len(configs))
	for gi, config := range configs {
		if config.Name == "" {
			return nil, errors.NewDecodeError(SourceName, "group name is required").
				AddNamespace(namespace).AddGroup(fmt.Sprintf("#%d", gi))
		}

		group, err := ConvertGroup(namespace, config)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// ConvertGroup validates a group configuration and converts it to a rule group
func ConvertGroup(namespace string, config RuleGroupConfig) (*models.RuleGroup, error) {
	group := &models.RuleGroup{
		Namespace: namespace,
		Name:      config.Name,
		Source:    models.SourceConfiguration,
		Rules:     make([]*models.Rule, 0, len(config.Rules)),
	}

	for ri, rule := range config.Rules {
		converted, err := convertRule(rule)
		if err != nil {
			return nil, errors.NewDecodeError(SourceName, err.Error()).
				AddNamespace(namespace).AddGroup(config.Name).AddRule(ri)
		}
		group.Rules = append(group.Rules, converted)
	}
	return group, nil
}

func convertRule(rule RuleConfig) (*models.Rule, error) {
	kinds := 0
	for _, set := range []bool{rule.Alert != "", rule.Record != "", rule.GrafanaAlert != nil} {
		if set {
			kinds++
		}
	}
	switch {
	case kinds == 0:
		return nil, fmt.Errorf("one of alert, record or grafana_alert is required")
	case kinds > 1:
		return nil, fmt.Errorf("only one of alert, record or grafana_alert may be set")
	}

	if rule.GrafanaAlert == nil && rule.Expr == "" {
		return nil, fmt.Errorf("rule '%s' has no expr", rule.Name())
	}
	if rule.GrafanaAlert != nil && rule.GrafanaAlert.Title == "" {
		return nil, fmt.Errorf("grafana_alert.title is required")
	}

	ruleType := models.RuleTypeAlerting
	if rule.Record != "" {
		ruleType = models.RuleTypeRecording
	}

	return &models.Rule{
		Name:        rule.Name(),
		Type:        ruleType,
		Labels:      rule.Labels,
		Annotations: rule.Annotations,
		Query:       rule.Query(),
		Source:      models.SourceConfiguration,
	}, nil
}
