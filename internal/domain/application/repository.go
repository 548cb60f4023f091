package application

import (
	"context"

	"github.com/recivo/recivo/internal/types"
)

// Repository defines the interface for application data access.
type Repository interface {
	// CreateIfAbsent atomically inserts app unless an active application
	// already exists for the same (invoice, rule type). It returns the
	// winning application and true when app was inserted, or the existing
	// application and false when the guard tripped. The check and the
	// insert happen under one lock (or unique constraint) so concurrent
	// deliveries cannot both insert.
	CreateIfAbsent(ctx context.Context, app *Application) (*Application, bool, error)

	Get(ctx context.Context, id string) (*Application, error)
	Update(ctx context.Context, app *Application) error

	// GetActiveByInvoice returns the active (pending or applied)
	// application for the invoice and rule type, or a not-found error.
	GetActiveByInvoice(ctx context.Context, invoiceID string, ruleType types.RuleType) (*Application, error)

	ListByInvoice(ctx context.Context, invoiceID string) ([]*Application, error)
}
