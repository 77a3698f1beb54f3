package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event topics. Each maps to a durable queue on the broker.
const (
	TopicStockAdjusted      = "stock.adjusted"
	TopicSupplyCreated      = "supply.created"
	TopicSupplyDeleted      = "supply.deleted"
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicOrderDeleted       = "order.deleted"
)

type StockAdjustedEvent struct {
	WarehouseID string    `json:"warehouse_id"`
	ProductID   string    `json:"product_id"`
	Delta       int       `json:"delta"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason"`
	At          time.Time `json:"at"`
}

type SupplyEvent struct {
	SupplyID     string    `json:"supply_id"`
	SupplyNumber string    `json:"supply_number"`
	WarehouseID  string    `json:"warehouse_id"`
	LineCount    int       `json:"line_count"`
	At           time.Time `json:"at"`
}

type OrderEvent struct {
	OrderID         string          `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	ExternalOrderID string          `json:"external_order_id"`
	WarehouseID     string          `json:"warehouse_id"`
	StatusCode      string          `json:"status_code,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	At              time.Time       `json:"at"`
}
