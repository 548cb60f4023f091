package types

import (
	"encoding/json"
	"time"
)

// WebhookEvent represents a webhook event to be delivered
type WebhookEvent struct {
	ID             string          `json:"id"`
	EventName      string          `json:"event_name"`
	OrganizationID string          `json:"organization_id"`
	UserID         string          `json:"user_id"`
	Timestamp      time.Time       `json:"timestamp"`
	Payload        json.RawMessage `json:"payload"`
}

// incentive event names
const (
	WebhookEventDiscountApplied = "incentive.discount.applied"
	WebhookEventDiscountExpired = "incentive.discount.expired"
	WebhookEventLateFeeApplied  = "incentive.latefee.applied"
	WebhookEventLateFeeWaived   = "incentive.latefee.waived"
	WebhookEventApplicationPaid = "incentive.application.paid"
)
