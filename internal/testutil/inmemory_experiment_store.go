package testutil

import (
	"context"

	"github.com/recivo/recivo/internal/domain/experiment"
	ierr "github.com/recivo/recivo/internal/errors"
	"github.com/recivo/recivo/internal/types"
	"github.com/shopspring/decimal"
)

// InMemoryExperimentStore implements experiment.Repository
type InMemoryExperimentStore struct {
	*InMemoryStore[*experiment.Experiment]
}

// NewInMemoryExperimentStore creates a new in-memory experiment store
func NewInMemoryExperimentStore() *InMemoryExperimentStore {
	return &InMemoryExperimentStore{
		InMemoryStore: NewInMemoryStore[*experiment.Experiment](),
	}
}

// copyExperiment deep-copies the variants and the metric accumulators so
// callers cannot mutate stored state behind the repository's back.
func copyExperiment(e *experiment.Experiment) *experiment.Experiment {
	if e == nil {
		return nil
	}
	copied := *e

	copied.Variants = make([]experiment.Variant, len(e.Variants))
	copy(copied.Variants, e.Variants)

	if e.Results != nil {
		copied.Results = make(map[string]map[string]*experiment.MetricAccumulator, len(e.Results))
		for metric, byVariant := range e.Results {
			copied.Results[metric] = make(map[string]*experiment.MetricAccumulator, len(byVariant))
			for variantID, acc := range byVariant {
				if acc == nil {
					continue
				}
				accCopy := *acc
				accCopy.Values = make([]decimal.Decimal, len(acc.Values))
				copy(accCopy.Values, acc.Values)
				copied.Results[metric][variantID] = &accCopy
			}
		}
	}
	return &copied
}

func (s *InMemoryExperimentStore) Create(ctx context.Context, e *experiment.Experiment) error {
	if e == nil {
		return ierr.NewError("experiment cannot be nil").
			WithHint("Experiment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, e.ID, copyExperiment(e))
}

func (s *InMemoryExperimentStore) Get(ctx context.Context, id string) (*experiment.Experiment, error) {
	e, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("experiment not found").
			WithHint("Experiment not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyExperiment(e), nil
}

func (s *InMemoryExperimentStore) Update(ctx context.Context, e *experiment.Experiment) error {
	if err := s.InMemoryStore.Update(ctx, e.ID, copyExperiment(e)); err != nil {
		return ierr.NewError("experiment not found").
			WithHint("Experiment not found").
			WithReportableDetails(map[string]interface{}{
				"id": e.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryExperimentStore) FindActive(ctx context.Context, organizationID string, experimentType types.ExperimentType) ([]*experiment.Experiment, error) {
	experiments, err := s.List(ctx, nil,
		func(_ context.Context, e *experiment.Experiment, _ interface{}) bool {
			return e.OrganizationID == organizationID &&
				e.Status != types.StatusDeleted &&
				e.ExperimentType == experimentType &&
				e.ExperimentStatus == types.ExperimentStatusActive
		},
		func(i, j *experiment.Experiment) bool {
			return i.ID < j.ID
		},
	)
	if err != nil {
		return nil, err
	}
	out := make([]*experiment.Experiment, 0, len(experiments))
	for _, e := range experiments {
		out = append(out, copyExperiment(e))
	}
	return out, nil
}
