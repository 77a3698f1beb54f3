package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order status codes. The external feed can report the full vocabulary;
// the engine's own transition logic only acts on new/shipped/cancelled.
const (
	StatusNew        = "new"
	StatusConfirmed  = "confirmed"
	StatusPaid       = "paid"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
)

// OrderStatus is a row of the fixed status vocabulary.
type OrderStatus struct {
	ID        string
	Code      string
	Name      string
	SortOrder int
}

// Order is a stock-outtake document created from an external order source.
// ExternalOrderID is the idempotency key for repeated external deliveries.
type Order struct {
	ID              string
	OrderNumber     string // ORD-<year>-<seq>
	ExternalOrderID string
	WarehouseID     string
	StatusID        string
	StatusCode      string

	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	Notes           string

	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	TotalAmount    decimal.Decimal
	TrackingNumber string

	CreatedAt time.Time
	UpdatedAt time.Time
	ShippedAt *time.Time

	Lines []OrderLine
}

// OrderLine references a product with the unit price captured at order time.
type OrderLine struct {
	ID          string
	OrderID     string
	ProductID   string
	Quantity    int
	Price       decimal.Decimal
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
}
