package service

import (
	"github.com/recivo/recivo/internal/cache"
	"github.com/recivo/recivo/internal/config"
	"github.com/recivo/recivo/internal/domain/application"
	"github.com/recivo/recivo/internal/domain/experiment"
	"github.com/recivo/recivo/internal/domain/invoice"
	"github.com/recivo/recivo/internal/domain/rule"
	"github.com/recivo/recivo/internal/idempotency"
	"github.com/recivo/recivo/internal/logger"
	webhookPublisher "github.com/recivo/recivo/internal/webhook/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger         *logger.Logger
	Config         *config.Configuration
	Cache          cache.Cache
	IdempotencyGen *idempotency.Generator

	// Repositories
	RuleRepo        rule.Repository
	InvoiceRepo     invoice.Repository
	ApplicationRepo application.Repository
	ExperimentRepo  experiment.Repository

	// Publishers
	WebhookPublisher webhookPublisher.WebhookPublisher
}

// NewServiceParams creates a new ServiceParams instance
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	cache cache.Cache,
	idempotencyGen *idempotency.Generator,
	ruleRepo rule.Repository,
	invoiceRepo invoice.Repository,
	applicationRepo application.Repository,
	experimentRepo experiment.Repository,
	webhookPublisher webhookPublisher.WebhookPublisher,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		Cache:            cache,
		IdempotencyGen:   idempotencyGen,
		RuleRepo:         ruleRepo,
		InvoiceRepo:      invoiceRepo,
		ApplicationRepo:  applicationRepo,
		ExperimentRepo:   experimentRepo,
		WebhookPublisher: webhookPublisher,
	}
}
