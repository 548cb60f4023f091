package experiment

import (
	"context"

	"github.com/recivo/recivo/internal/types"
)

// Repository defines the interface for experiment data access.
//
// FindActive returns active experiments of the given type ordered by id
// ascending; eligibility evaluation walks that order and the first match
// wins.
type Repository interface {
	Create(ctx context.Context, e *Experiment) error
	Get(ctx context.Context, id string) (*Experiment, error)
	Update(ctx context.Context, e *Experiment) error
	FindActive(ctx context.Context, organizationID string, experimentType types.ExperimentType) ([]*Experiment, error)
}
