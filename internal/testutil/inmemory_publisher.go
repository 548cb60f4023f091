package testutil

import (
	"context"
	"sync"

	"github.com/recivo/recivo/internal/types"
)

// InMemoryWebhookPublisher captures published webhook events so tests can
// assert on them.
type InMemoryWebhookPublisher struct {
	mu     sync.Mutex
	events []*types.WebhookEvent
}

// NewInMemoryWebhookPublisher creates a new capturing webhook publisher
func NewInMemoryWebhookPublisher() *InMemoryWebhookPublisher {
	return &InMemoryWebhookPublisher{}
}

func (p *InMemoryWebhookPublisher) PublishWebhook(_ context.Context, event *types.WebhookEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *InMemoryWebhookPublisher) Close() error {
	return nil
}

// Events returns a snapshot of everything published so far
func (p *InMemoryWebhookPublisher) Events() []*types.WebhookEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*types.WebhookEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventsByName returns the published events carrying the given event name
func (p *InMemoryWebhookPublisher) EventsByName(name string) []*types.WebhookEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*types.WebhookEvent
	for _, e := range p.events {
		if e.EventName == name {
			out = append(out, e)
		}
	}
	return out
}

// Clear drops all captured events
func (p *InMemoryWebhookPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
