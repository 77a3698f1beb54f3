package port

import "context"

// CacheRepository is a best-effort lookaside: the database stays the source
// of truth, a cache failure never fails an engine operation.
type CacheRepository interface {
	// SetStock mirrors the committed on-hand quantity for a pair.
	SetStock(ctx context.Context, warehouseID, productID string, quantity int) error

	// GetStock reads the mirrored quantity, returns false on a miss.
	GetStock(ctx context.Context, warehouseID, productID string) (int, bool, error)

	// SetIdempotency marks an external event as seen, returns false if
	// the exact event was already delivered.
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// DeleteIdempotency releases a seen-marker so a failed application
	// can be retried.
	DeleteIdempotency(ctx context.Context, key string) error
}
