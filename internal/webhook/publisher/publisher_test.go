package publisher

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/recivo/recivo/internal/config"
	"github.com/recivo/recivo/internal/logger"
	"github.com/recivo/recivo/internal/pubsub/memory"
	"github.com/recivo/recivo/internal/types"
	"github.com/recivo/recivo/internal/webhook/payload"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWebhook_RoundTrip(t *testing.T) {
	cfg := config.GetDefaultConfig()
	log, err := logger.NewLogger(cfg)
	require.NoError(t, err)

	pubSub := memory.NewPubSub(cfg, log)
	defer pubSub.Close()

	pub, err := NewPublisher(pubSub, cfg, log)
	require.NoError(t, err)

	ctx := t.Context()
	messages, err := pubSub.Subscribe(ctx, cfg.Webhook.Topic)
	require.NoError(t, err)

	body, err := json.Marshal(payload.DiscountAppliedPayload{
		InvoiceID:      "inv_1",
		ApplicationID:  "app_1",
		RuleID:         "drule_1",
		DiscountAmount: decimal.NewFromInt(2000),
		FinalAmount:    decimal.NewFromInt(98000),
	})
	require.NoError(t, err)

	event := &types.WebhookEvent{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName:      types.WebhookEventDiscountApplied,
		OrganizationID: types.DefaultOrganizationID,
		Timestamp:      time.Now().UTC(),
		Payload:        body,
	}
	require.NoError(t, pub.PublishWebhook(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, types.DefaultOrganizationID, msg.Metadata.Get("organization_id"))

		var received types.WebhookEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &received))
		assert.Equal(t, event.EventName, received.EventName)

		var decoded payload.DiscountAppliedPayload
		require.NoError(t, json.Unmarshal(received.Payload, &decoded))
		assert.Equal(t, "inv_1", decoded.InvoiceID)
		assert.True(t, decoded.DiscountAmount.Equal(decimal.NewFromInt(2000)))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for webhook event")
	}
}

func TestPublishWebhook_GeneratesMessageID(t *testing.T) {
	cfg := config.GetDefaultConfig()
	log, err := logger.NewLogger(cfg)
	require.NoError(t, err)

	pubSub := memory.NewPubSub(cfg, log)
	defer pubSub.Close()

	pub, err := NewPublisher(pubSub, cfg, log)
	require.NoError(t, err)

	ctx := t.Context()
	messages, err := pubSub.Subscribe(ctx, cfg.Webhook.Topic)
	require.NoError(t, err)

	event := &types.WebhookEvent{
		EventName:      types.WebhookEventLateFeeWaived,
		OrganizationID: types.DefaultOrganizationID,
		Timestamp:      time.Now().UTC(),
		Payload:        json.RawMessage(`{}`),
	}
	require.NoError(t, pub.PublishWebhook(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.NotEmpty(t, msg.UUID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for webhook event")
	}
}
