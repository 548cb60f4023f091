package rule

import (
	"context"
	"time"
)

// Repository defines the interface for incentive rule data access.
//
// FindActive* return rules that are enabled and in active status, sorted by
// priority descending with id ascending as the tie-break (ids are ULIDs, so
// ties resolve to the oldest rule). Validity windows are applied by the
// catalog at evaluation time, so a fetched set stays usable across a rule's
// ValidFrom onset. now lets stores prune rules far outside any window.
type Repository interface {
	CreateDiscountRule(ctx context.Context, r *DiscountRule) error
	GetDiscountRule(ctx context.Context, id string) (*DiscountRule, error)
	UpdateDiscountRule(ctx context.Context, r *DiscountRule) error
	ListDiscountRules(ctx context.Context, organizationID string) ([]*DiscountRule, error)
	FindActiveDiscountRules(ctx context.Context, organizationID string, now time.Time) ([]*DiscountRule, error)

	CreateLateFeeRule(ctx context.Context, r *LateFeeRule) error
	GetLateFeeRule(ctx context.Context, id string) (*LateFeeRule, error)
	UpdateLateFeeRule(ctx context.Context, r *LateFeeRule) error
	ListLateFeeRules(ctx context.Context, organizationID string) ([]*LateFeeRule, error)
	FindActiveLateFeeRules(ctx context.Context, organizationID string, now time.Time) ([]*LateFeeRule, error)
}
