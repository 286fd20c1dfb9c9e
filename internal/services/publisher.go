package services

import (
	"context"
	"log/slog"

	"finanzas/internal/amqp"
)

// EventPublisher announces accepted mutations. *amqp.Client implements it.
type EventPublisher interface {
	PublishMutation(ctx context.Context, msg *amqp.MutationEvent) error
}

// publish never fails the caller: the mutation already happened upstream.
func publish(ctx context.Context, p EventPublisher, msg *amqp.MutationEvent) {
	if p == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping mutation event",
			"kind", msg.Kind, "operation", msg.Operation)
		return
	}
	if err := p.PublishMutation(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish mutation event",
			"kind", msg.Kind,
			"operation", msg.Operation,
			"item_id", msg.ItemID,
			"error", err)
	}
}
