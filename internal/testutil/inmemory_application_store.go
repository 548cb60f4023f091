package testutil

import (
	"context"
	"sync"

	"github.com/recivo/recivo/internal/domain/application"
	ierr "github.com/recivo/recivo/internal/errors"
	"github.com/recivo/recivo/internal/types"
)

// InMemoryApplicationStore implements application.Repository. CreateIfAbsent
// holds a store-wide mutex across the lookup and the insert, matching the
// unique-constraint guarantee of the production store.
type InMemoryApplicationStore struct {
	mu    sync.Mutex
	store *InMemoryStore[*application.Application]
}

// NewInMemoryApplicationStore creates a new in-memory application store
func NewInMemoryApplicationStore() *InMemoryApplicationStore {
	return &InMemoryApplicationStore{
		store: NewInMemoryStore[*application.Application](),
	}
}

func copyApplication(app *application.Application) *application.Application {
	if app == nil {
		return nil
	}
	copied := *app
	return &copied
}

func (s *InMemoryApplicationStore) CreateIfAbsent(ctx context.Context, app *application.Application) (*application.Application, bool, error) {
	if app == nil {
		return nil, false, ierr.NewError("application cannot be nil").
			WithHint("Application cannot be nil").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.findActiveByInvoice(ctx, app.InvoiceID, app.RuleType)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return copyApplication(existing), false, nil
	}

	if err := s.store.Create(ctx, app.ID, copyApplication(app)); err != nil {
		return nil, false, err
	}
	return copyApplication(app), true, nil
}

func (s *InMemoryApplicationStore) Get(ctx context.Context, id string) (*application.Application, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("application not found").
			WithHint("Application not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyApplication(app), nil
}

func (s *InMemoryApplicationStore) Update(ctx context.Context, app *application.Application) error {
	if err := s.store.Update(ctx, app.ID, copyApplication(app)); err != nil {
		return ierr.NewError("application not found").
			WithHint("Application not found").
			WithReportableDetails(map[string]interface{}{
				"id": app.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryApplicationStore) GetActiveByInvoice(ctx context.Context, invoiceID string, ruleType types.RuleType) (*application.Application, error) {
	app, err := s.findActiveByInvoice(ctx, invoiceID, ruleType)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ierr.NewError("active application not found").
			WithHint("No active application exists for this invoice and rule type").
			WithReportableDetails(map[string]interface{}{
				"invoice_id": invoiceID,
				"rule_type":  ruleType,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyApplication(app), nil
}

func (s *InMemoryApplicationStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*application.Application, error) {
	apps, err := s.store.List(ctx, nil,
		func(_ context.Context, app *application.Application, _ interface{}) bool {
			return app.InvoiceID == invoiceID && app.Status != types.StatusDeleted
		},
		func(i, j *application.Application) bool {
			return i.ID < j.ID
		},
	)
	if err != nil {
		return nil, err
	}
	out := make([]*application.Application, 0, len(apps))
	for _, app := range apps {
		out = append(out, copyApplication(app))
	}
	return out, nil
}

// Clear removes all applications from the store
func (s *InMemoryApplicationStore) Clear() {
	s.store.Clear()
}

func (s *InMemoryApplicationStore) findActiveByInvoice(ctx context.Context, invoiceID string, ruleType types.RuleType) (*application.Application, error) {
	apps, err := s.store.List(ctx, nil,
		func(_ context.Context, app *application.Application, _ interface{}) bool {
			return app.InvoiceID == invoiceID &&
				app.RuleType == ruleType &&
				app.Status != types.StatusDeleted &&
				app.ApplicationStatus.IsActive()
		},
		func(i, j *application.Application) bool {
			return i.ID < j.ID
		},
	)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, nil
	}
	return apps[0], nil
}
