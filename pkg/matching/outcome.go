package matching

import "github.com/Ramsey-B/rulematch/pkg/models"

// Tier records which step of the matching ladder decided an outcome
type Tier int

const (
	TierNoCandidate Tier = iota // No candidate survived the last tier attempted
	TierAmbiguous               // More than one candidate survived every tier
	TierName                    // Unique by name
	TierFingerprint             // Unique by name + labels + annotations
	TierQuery                   // Unique by name + labels + annotations + canonical query
)

func (t Tier) String() string {
	switch t {
	case TierNoCandidate:
		return "no_candidate"
	case TierAmbiguous:
		return "ambiguous"
	case TierName:
		return "name"
	case TierFingerprint:
		return "fingerprint"
	case TierQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Matched reports whether the tier resolved to exactly one rule
func (t Tier) Matched() bool {
	return t == TierName || t == TierFingerprint || t == TierQuery
}

// MarshalText encodes the tier by name
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Outcome is the decision trace of one single-rule match
type Outcome struct {
	Tier Tier
	// Rule is the matched rule, nil unless Tier.Matched()
	Rule *models.Rule
	// Candidates is how many candidates survived the deciding tier
	Candidates int
}

func decided(tier Tier, candidates []*models.Rule) Outcome {
	switch len(candidates) {
	case 0:
		return Outcome{Tier: TierNoCandidate}
	case 1:
		return Outcome{Tier: tier, Rule: candidates[0], Candidates: 1}
	default:
		return Outcome{Tier: TierAmbiguous, Candidates: len(candidates)}
	}
}
