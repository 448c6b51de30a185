// Package events publishes idea lifecycle events for downstream consumers
// (reminders, search indexing). Publishing is fire-and-forget from the
// service's point of view: a broker outage never fails a user request.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// ExchangeName is the topic exchange idea events go to.
	ExchangeName = "echolater.ideas"

	IdeaCreated = "idea.created"
	IdeaUpdated = "idea.updated"
	IdeaDeleted = "idea.deleted"
)

// Publisher sends a raw payload with a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// IdeaEvent is the JSON body of every idea event. Type doubles as the
// routing key.
type IdeaEvent struct {
	Type         string    `json:"type"`
	IdeaID       string    `json:"ideaId"`
	UserID       string    `json:"userId"`
	TimeCategory string    `json:"timeCategory,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// PublishIdeaEvent encodes ev and publishes it under ev.Type.
func PublishIdeaEvent(ctx context.Context, p Publisher, ev IdeaEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.Publish(ctx, ev.Type, payload)
}
