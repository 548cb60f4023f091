package testutil

import (
	"context"
	"time"

	"github.com/recivo/recivo/internal/domain/rule"
	ierr "github.com/recivo/recivo/internal/errors"
	"github.com/recivo/recivo/internal/types"
)

// InMemoryRuleStore implements rule.Repository
type InMemoryRuleStore struct {
	discounts *InMemoryStore[*rule.DiscountRule]
	lateFees  *InMemoryStore[*rule.LateFeeRule]
}

// NewInMemoryRuleStore creates a new in-memory rule store
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		discounts: NewInMemoryStore[*rule.DiscountRule](),
		lateFees:  NewInMemoryStore[*rule.LateFeeRule](),
	}
}

func copyDiscountRule(r *rule.DiscountRule) *rule.DiscountRule {
	if r == nil {
		return nil
	}
	copied := *r
	return &copied
}

func copyLateFeeRule(r *rule.LateFeeRule) *rule.LateFeeRule {
	if r == nil {
		return nil
	}
	copied := *r
	return &copied
}

func (s *InMemoryRuleStore) CreateDiscountRule(ctx context.Context, r *rule.DiscountRule) error {
	if r == nil {
		return ierr.NewError("rule cannot be nil").
			WithHint("Rule cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.discounts.Create(ctx, r.ID, copyDiscountRule(r))
}

func (s *InMemoryRuleStore) GetDiscountRule(ctx context.Context, id string) (*rule.DiscountRule, error) {
	r, err := s.discounts.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("discount rule not found").
			WithHint("Discount rule not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyDiscountRule(r), nil
}

func (s *InMemoryRuleStore) UpdateDiscountRule(ctx context.Context, r *rule.DiscountRule) error {
	if err := s.discounts.Update(ctx, r.ID, copyDiscountRule(r)); err != nil {
		return ierr.NewError("discount rule not found").
			WithHint("Discount rule not found").
			WithReportableDetails(map[string]interface{}{
				"id": r.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryRuleStore) ListDiscountRules(ctx context.Context, organizationID string) ([]*rule.DiscountRule, error) {
	return s.discounts.List(ctx, nil,
		func(_ context.Context, r *rule.DiscountRule, _ interface{}) bool {
			return r.OrganizationID == organizationID && r.Status != types.StatusDeleted
		},
		func(i, j *rule.DiscountRule) bool {
			return i.ID < j.ID
		},
	)
}

func (s *InMemoryRuleStore) FindActiveDiscountRules(ctx context.Context, organizationID string, _ time.Time) ([]*rule.DiscountRule, error) {
	return s.discounts.List(ctx, nil,
		func(_ context.Context, r *rule.DiscountRule, _ interface{}) bool {
			return r.OrganizationID == organizationID &&
				r.Status != types.StatusDeleted &&
				r.Enabled &&
				r.RuleStatus == types.RuleStatusActive
		},
		// priority descending, id ascending on ties
		func(i, j *rule.DiscountRule) bool {
			if i.Priority != j.Priority {
				return i.Priority > j.Priority
			}
			return i.ID < j.ID
		},
	)
}

func (s *InMemoryRuleStore) CreateLateFeeRule(ctx context.Context, r *rule.LateFeeRule) error {
	if r == nil {
		return ierr.NewError("rule cannot be nil").
			WithHint("Rule cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.lateFees.Create(ctx, r.ID, copyLateFeeRule(r))
}

func (s *InMemoryRuleStore) GetLateFeeRule(ctx context.Context, id string) (*rule.LateFeeRule, error) {
	r, err := s.lateFees.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("late fee rule not found").
			WithHint("Late fee rule not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyLateFeeRule(r), nil
}

func (s *InMemoryRuleStore) UpdateLateFeeRule(ctx context.Context, r *rule.LateFeeRule) error {
	if err := s.lateFees.Update(ctx, r.ID, copyLateFeeRule(r)); err != nil {
		return ierr.NewError("late fee rule not found").
			WithHint("Late fee rule not found").
			WithReportableDetails(map[string]interface{}{
				"id": r.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryRuleStore) ListLateFeeRules(ctx context.Context, organizationID string) ([]*rule.LateFeeRule, error) {
	return s.lateFees.List(ctx, nil,
		func(_ context.Context, r *rule.LateFeeRule, _ interface{}) bool {
			return r.OrganizationID == organizationID && r.Status != types.StatusDeleted
		},
		func(i, j *rule.LateFeeRule) bool {
			return i.ID < j.ID
		},
	)
}

func (s *InMemoryRuleStore) FindActiveLateFeeRules(ctx context.Context, organizationID string, _ time.Time) ([]*rule.LateFeeRule, error) {
	return s.lateFees.List(ctx, nil,
		func(_ context.Context, r *rule.LateFeeRule, _ interface{}) bool {
			return r.OrganizationID == organizationID &&
				r.Status != types.StatusDeleted &&
				r.Enabled &&
				r.RuleStatus == types.RuleStatusActive
		},
		func(i, j *rule.LateFeeRule) bool {
			if i.Priority != j.Priority {
				return i.Priority > j.Priority
			}
			return i.ID < j.ID
		},
	)
}

// Clear removes all rules from the store
func (s *InMemoryRuleStore) Clear() {
	s.discounts.Clear()
	s.lateFees.Clear()
}
