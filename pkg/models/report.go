package models

// Drift describes how a matched configuration rule differs from its evaluating counterpart
type Drift struct {
	Labels      bool `json:"labels" yaml:"labels"`
	Annotations bool `json:"annotations" yaml:"annotations"`
	Query       bool `json:"query" yaml:"query"`
}

// Any reports whether any drift was detected
func (d Drift) Any() bool {
	return d.Labels || d.Annotations || d.Query
}

// RulePair is a matched configuration rule and evaluation rule
type RulePair struct {
	Config     *Rule  `json:"config" yaml:"config"`
	Evaluation *Rule  `json:"evaluation" yaml:"evaluation"`
	Tier       string `json:"tier" yaml:"tier"`
	Drift      Drift  `json:"drift" yaml:"drift"`
}

// GroupReport is the reconciliation result for one group present in both sources
type GroupReport struct {
	Key                 GroupKey   `json:"key" yaml:"key"`
	Matched             []RulePair `json:"matched" yaml:"matched"`
	UnmatchedConfig     []*Rule    `json:"unmatched_config" yaml:"unmatched_config"`
	UnmatchedEvaluation []*Rule    `json:"unmatched_evaluation" yaml:"unmatched_evaluation"`
}

// DriftCount returns the number of matched pairs with any drift
func (r *GroupReport) DriftCount() int {
	count := 0
	for _, p := range r.Matched {
		if p.Drift.Any() {
			count++
		}
	}
	return count
}

// Report is the reconciliation result across every group of both sources
type Report struct {
	Groups []*GroupReport `json:"groups" yaml:"groups"`

	// Groups that exist in only one source
	ConfigOnlyGroups     []GroupKey `json:"config_only_groups" yaml:"config_only_groups"`
	EvaluationOnlyGroups []GroupKey `json:"evaluation_only_groups" yaml:"evaluation_only_groups"`
}

// Totals summarizes a report
type Totals struct {
	Matched             int `json:"matched" yaml:"matched"`
	Drifted             int `json:"drifted" yaml:"drifted"`
	UnmatchedConfig     int `json:"unmatched_config" yaml:"unmatched_config"`
	UnmatchedEvaluation int `json:"unmatched_evaluation" yaml:"unmatched_evaluation"`
}

// Totals sums the per-group counts
func (r *Report) Totals() Totals {
	var t Totals
	for _, g := range r.Groups {
		t.Matched += len(g.Matched)
		t.Drifted += g.DriftCount()
		t.UnmatchedConfig += len(g.UnmatchedConfig)
		t.UnmatchedEvaluation += len(g.UnmatchedEvaluation)
	}
	return t
}
