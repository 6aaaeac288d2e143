package matching

import (
	"github.com/Ramsey-B/rulematch/pkg/models"
)

// Match pairs a rule from group A with its counterpart in group B
type Match struct {
	A    *models.Rule
	B    *models.Rule
	Tier Tier
}

// GroupResult is the injective A→B mapping produced by MatchGroups
type GroupResult struct {
	// Matches in the iteration order of group A
	Matches []Match
	// UnmatchedA holds A rules that found no unique candidate, in group A order
	UnmatchedA []*models.Rule
	// UnmatchedB holds B rules never claimed, in group B order
	UnmatchedB []*models.Rule

	byA map[*models.Rule]*models.Rule
}

// Lookup returns the B rule matched to a
func (r *GroupResult) Lookup(a *models.Rule) (*models.Rule, bool) {
	b, ok := r.byA[a]
	return b, ok
}

// Len returns the number of matched pairs
func (r *GroupResult) Len() int {
	return len(r.Matches)
}

// groupIndex holds lookups over group B built once per MatchGroups call
type groupIndex struct {
	byName        map[string][]*models.Rule
	byFingerprint map[string][]*models.Rule
	byQuery       map[string][]*models.Rule
	claimed       map[*models.Rule]struct{}
}

func (m *Matcher) buildIndex(group *models.RuleGroup) *groupIndex {
	idx := &groupIndex{
		byName:        make(map[string][]*models.Rule),
		byFingerprint: make(map[string][]*models.Rule),
		byQuery:       make(map[string][]*models.Rule),
		claimed:       make(map[*models.Rule]struct{}),
	}
	if group == nil {
		return idx
	}

	for _, rule := range group.Rules {
		if rule != nil {
			idx.byName[rule.Name] = append(idx.byName[rule.Name], rule)
		}
	}

	// Fingerprint tiers are only consulted when a name is shared, so rules with a
	// unique name never pay for hashing.
	for _, rules := range idx.byName {
		if len(rules) < 2 {
			continue
		}
		for _, rule := range rules {
			key := m.fingerprinter.Build(rule, false).Key()
			idx.byFingerprint[key] = append(idx.byFingerprint[key], rule)

			queryKey := m.fingerprinter.Build(rule, true).Key()
			idx.byQuery[queryKey] = append(idx.byQuery[queryKey], rule)
		}
	}
	return idx
}

// unclaimed filters out rules already matched earlier in the same call
func (idx *groupIndex) unclaimed(rules []*models.Rule) []*models.Rule {
	if len(idx.claimed) == 0 {
		return rules
	}
	result := make([]*models.Rule, 0, len(rules))
	for _, r := range rules {
		if _, ok := idx.claimed[r]; !ok {
			result = append(result, r)
		}
	}
	return result
}

func (m *Matcher) resolveIndexed(idx *groupIndex, rule *models.Rule) Outcome {
	byName := idx.unclaimed(idx.byName[rule.Name])
	if len(byName) < 2 {
		return decided(TierName, byName)
	}

	// fingerprint keys start with the name, so these buckets are already name-filtered
	byFingerprint := idx.unclaimed(idx.byFingerprint[m.fingerprinter.Build(rule, false).Key()])
	if len(byFingerprint) < 2 {
		return decided(TierFingerprint, byFingerprint)
	}

	byQuery := idx.unclaimed(idx.byQuery[m.fingerprinter.Build(rule, true).Key()])
	return decided(TierQuery, byQuery)
}

// MatchGroups pairs every rule of groupA with at most one rule of groupB using the same
// tiered ladder as Resolve, but through indices built once over groupB.
//
// Rules of groupA are processed in slice order (the caller's source order) and the first
// A rule to claim a B rule wins: a claimed B rule is no longer a candidate for later A
// rules. B rules never claimed are returned in UnmatchedB.
func (m *Matcher) MatchGroups(groupA, groupB *models.RuleGroup) *GroupResult {
	idx := m.buildIndex(groupB)
	result := &GroupResult{byA: make(map[*models.Rule]*models.Rule)}

	if groupA != nil {
		for _, rule := range groupA.Rules {
			if rule == nil {
				continue
			}

			outcome := m.resolveIndexed(idx, rule)
			if !outcome.Tier.Matched() {
				result.UnmatchedA = append(result.UnmatchedA, rule)
				continue
			}

			idx.claimed[outcome.Rule] = struct{}{}
			result.byA[rule] = outcome.Rule
			result.Matches = append(result.Matches, Match{A: rule, B: outcome.Rule, Tier: outcome.Tier})
		}
	}

	if groupB != nil {
		for _, rule := range groupB.Rules {
			if rule == nil {
				continue
			}
			if _, ok := idx.claimed[rule]; !ok {
				result.UnmatchedB = append(result.UnmatchedB, rule)
			}
		}
	}

	return result
}

// MatchGroups matches two groups with the default matcher
func MatchGroups(groupA, groupB *models.RuleGroup) *GroupResult {
	return defaultMatcher.MatchGroups(groupA, groupB)
}
