package port

import "context"

// EventPublisher emits domain events after a transaction commits. Delivery
// is best-effort; the caller logs and continues on failure.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}
