// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

// PolicyRepository defines the interface for loading the decision policy
type PolicyRepository interface {
	// LoadPolicy returns the configured policy, or the default one when none is configured
	LoadPolicy(ctx context.Context) (*entities.Policy, error)
}
