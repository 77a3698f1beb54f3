package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndanilov/warehouse-engine/internal/core/domain"
)

// NewSupplyLine is a line of an incoming supply request.
type NewSupplyLine struct {
	ProductID string
	Quantity  int
}

// NewOrderLine is a line of an external order payload. Price is the unit
// price at order time, snapshotted independently of later product changes.
type NewOrderLine struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// NewOrder is the persistable shape of an external order. Monetary totals
// are already resolved by the service before it reaches the repository.
type NewOrder struct {
	ExternalOrderID string
	WarehouseID     string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	Notes           string
	Subtotal        decimal.Decimal
	ShippingCost    decimal.Decimal
	TotalAmount     decimal.Decimal
	Lines           []NewOrderLine
}

// InventoryRepository owns every write to inventory quantities. A returned
// *domain.InsufficientStockError means the record was left untouched.
// Lookups return (nil, nil) when no record exists.
type InventoryRepository interface {
	// AdjustQuantity applies a signed delta in one transaction, serialized
	// per (warehouse, product). Negative deltas fail rather than clamp.
	AdjustQuantity(ctx context.Context, warehouseID, productID string, delta int) (*domain.InventoryRecord, error)

	GetByWarehouseAndProduct(ctx context.Context, warehouseID, productID string) (*domain.InventoryRecord, error)

	// ListLowStock returns records with 0 < quantity < threshold.
	ListLowStock(ctx context.Context, warehouseID string, threshold int) ([]domain.InventoryRecord, error)
}

// SupplyRepository persists supply documents. The composite operations run
// header, lines and ledger effects as a single transaction.
type SupplyRepository interface {
	// CreateWithLines allocates the yearly supply number, persists the
	// document and applies a strict ledger increase per line. Returns the
	// created supply and the resulting inventory records.
	CreateWithLines(ctx context.Context, warehouseID, notes string, lines []NewSupplyLine) (*domain.Supply, []domain.InventoryRecord, error)

	// DeleteWithLines reverses the supply's ledger effect with decreases
	// saturated at zero, then deletes the document (lines cascade).
	DeleteWithLines(ctx context.Context, supply *domain.Supply) ([]domain.InventoryRecord, error)

	// UpdateLineQuantity routes the signed quantity difference through the
	// strict ledger adjustment and persists the new line quantity only if
	// that adjustment succeeds.
	UpdateLineQuantity(ctx context.Context, supply *domain.Supply, line domain.SupplyLine, newQuantity int) (*domain.SupplyLine, *domain.InventoryRecord, error)

	// DeleteLine removes one line, decreasing the ledger saturated at zero.
	DeleteLine(ctx context.Context, supply *domain.Supply, line domain.SupplyLine) (*domain.InventoryRecord, error)

	GetSupply(ctx context.Context, id string) (*domain.Supply, error)
}

// OrderRepository persists orders and the status vocabulary.
type OrderRepository interface {
	// CreateFromExternal allocates the yearly order number and persists
	// header plus lines in one transaction. When a concurrent create with
	// the same external id wins the unique index, the winner is returned
	// with created=false.
	CreateFromExternal(ctx context.Context, order NewOrder) (created *domain.Order, fresh bool, err error)

	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	GetByExternalID(ctx context.Context, externalOrderID string) (*domain.Order, error)

	// UpdateStatus sets the status reference, refreshes the update
	// timestamp and stamps the shipped timestamp when shippedAt is set.
	UpdateStatus(ctx context.Context, orderID, statusID string, shippedAt *time.Time) (*domain.Order, error)

	// Delete removes the order and its lines.
	Delete(ctx context.Context, orderID string) error

	GetStatusByCode(ctx context.Context, code string) (*domain.OrderStatus, error)
}

// CatalogRepository is the explicit lookup capability for referenced
// entities; the engine never walks a live object graph.
type CatalogRepository interface {
	GetWarehouse(ctx context.Context, id string) (*domain.Warehouse, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}
