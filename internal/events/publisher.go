// Package events publishes committed request transitions to downstream consumers.
package events

import (
	"context"
	"time"

	"roadassist/internal/types"
)

// TransitionEvent describes one committed status change of a service request.
type TransitionEvent struct {
	RequestID  types.ID  `json:"request_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorType  string    `json:"actor_type"`
	ActorID    *types.ID `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers transition events. Delivery is best-effort: the
// transition has already been committed by the time Publish is called.
type Publisher interface {
	Publish(ctx context.Context, e TransitionEvent) error
}

// NopPublisher discards events. Used when no broker is configured and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, e TransitionEvent) error { return nil }
