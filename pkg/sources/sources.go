// Package sources holds what the ruler and prometheus clients have in common.
package sources

import (
	"context"

	"github.com/Ramsey-B/rulematch/pkg/models"
)

// Dependency names of the two live sources
const (
	ConfigSource     = "config-source"
	EvaluationSource = "evaluation-source"
)

// GroupSource fetches rule groups from a live API
type GroupSource interface {
	Groups(ctx context.Context) ([]*models.RuleGroup, error)
}
