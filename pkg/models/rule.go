package models

// RuleType distinguishes alerting rules from recording rules
type RuleType string

const (
	RuleTypeAlerting  RuleType = "alerting"
	RuleTypeRecording RuleType = "recording"
)

// Source identifies which API a rule snapshot came from
type Source string

const (
	SourceEvaluation    Source = "evaluation"    // Live evaluation state (e.g. Prometheus /api/v1/rules)
	SourceConfiguration Source = "configuration" // Stored rule definitions (e.g. ruler config API)
)

// Rule is a source-agnostic alerting or recording rule.
// Rules are compared by pointer identity: two distinct *Rule values are two
// distinct rules even if every field is equal.
type Rule struct {
	Name        string            `json:"name" yaml:"name" validate:"required"`
	Type        RuleType          `json:"type,omitempty" yaml:"type,omitempty"`
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Query       string            `json:"query" yaml:"query"`
	Source      Source            `json:"source,omitempty" yaml:"source,omitempty"`

	// Evaluation state, only set for evaluation rules
	Health string `json:"health,omitempty" yaml:"health,omitempty"`
	State  string `json:"state,omitempty" yaml:"state,omitempty"`
}

// GroupKey is the namespace + group name identity shared by both APIs
type GroupKey struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	Group     string `json:"group" yaml:"group"`
}

func (k GroupKey) String() string {
	if k.Namespace == "" {
		return k.Group
	}
	return k.Namespace + "/" + k.Group
}

// RuleGroup is an ordered sequence of rules sharing an evaluation/storage identity.
// Order is preserved from the source but carries no matching significance.
type RuleGroup struct {
	Namespace string  `json:"namespace" yaml:"namespace"`
	Name      string  `json:"name" yaml:"name" validate:"required"`
	Source    Source  `json:"source,omitempty" yaml:"source,omitempty"`
	Rules     []*Rule `json:"rules" yaml:"rules" validate:"dive"`
}

// Key returns the group identity
func (g *RuleGroup) Key() GroupKey {
	return GroupKey{Namespace: g.Namespace, Group: g.Name}
}
