// Package matching reconciles rules from the evaluation API with rules from the
// configuration API. Neither API assigns a shared identifier, so rules are paired by a
// ladder of increasingly specific fingerprints: name, then name + labels + annotations,
// then the same plus a canonical query hash. Ambiguity is never resolved heuristically.
package matching

import (
	"github.com/Ramsey-B/rulematch/pkg/fingerprint"
	"github.com/Ramsey-B/rulematch/pkg/models"
)

// Fingerprinter builds rule fingerprints. *fingerprint.Builder implements it.
type Fingerprinter interface {
	Build(rule *models.Rule, includeQuery bool) fingerprint.Fingerprint
}

// Matcher implements single-rule and whole-group matching.
// A Matcher holds no mutable state of its own and is safe for concurrent use as long
// as its Fingerprinter is.
type Matcher struct {
	fingerprinter Fingerprinter
}

// NewMatcher creates a matcher. A nil fingerprinter selects the default builder.
func NewMatcher(fingerprinter Fingerprinter) *Matcher {
	if fingerprinter == nil {
		fingerprinter = fingerprint.NewBuilder(nil)
	}
	return &Matcher{fingerprinter: fingerprinter}
}

// Fingerprinter returns the fingerprinter used by the matcher
func (m *Matcher) Fingerprinter() Fingerprinter {
	return m.fingerprinter
}

// Resolve finds the rule in group that corresponds to rule and reports which tier decided.
// Fingerprints are only computed when the name alone is not unique.
func (m *Matcher) Resolve(group *models.RuleGroup, rule *models.Rule) Outcome {
	if group == nil || rule == nil {
		return Outcome{Tier: TierNoCandidate}
	}

	byName := make([]*models.Rule, 0, 2)
	for _, candidate := range group.Rules {
		if candidate != nil && candidate.Name == rule.Name {
			byName = append(byName, candidate)
		}
	}
	if len(byName) < 2 {
		return decided(TierName, byName)
	}

	ruleFingerprint := m.fingerprinter.Build(rule, false)
	byFingerprint := make([]*models.Rule, 0, len(byName))
	for _, candidate := range byName {
		if m.fingerprinter.Build(candidate, false).Equal(ruleFingerprint) {
			byFingerprint = append(byFingerprint, candidate)
		}
	}
	if len(byFingerprint) < 2 {
		return decided(TierFingerprint, byFingerprint)
	}

	// Query-inclusive equality implies equality without the query, so only the
	// survivors of the previous tier can match here.
	ruleQueryFingerprint := m.fingerprinter.Build(rule, true)
	byQuery := make([]*models.Rule, 0, len(byFingerprint))
	for _, candidate := range byFingerprint {
		if m.fingerprinter.Build(candidate, true).Equal(ruleQueryFingerprint) {
			byQuery = append(byQuery, candidate)
		}
	}
	return decided(TierQuery, byQuery)
}

// MatchRule returns the unique rule in group matching rule, or nil
func (m *Matcher) MatchRule(group *models.RuleGroup, rule *models.Rule) *models.Rule {
	return m.Resolve(group, rule).Rule
}

var defaultMatcher = NewMatcher(nil)

// MatchRule matches one rule against a group with the default matcher
func MatchRule(group *models.RuleGroup, rule *models.Rule) *models.Rule {
	return defaultMatcher.MatchRule(group, rule)
}

// FindConfigRule locates the configuration rule for an evaluating rule
func FindConfigRule(configGroup *models.RuleGroup, evaluationRule *models.Rule) *models.Rule {
	return defaultMatcher.MatchRule(configGroup, evaluationRule)
}

// FindEvaluationRule locates the evaluating rule for a configuration rule
func FindEvaluationRule(evaluationGroup *models.RuleGroup, configRule *models.Rule) *models.Rule {
	return defaultMatcher.MatchRule(evaluationGroup, configRule)
}
