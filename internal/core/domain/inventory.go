package domain

import "time"

// InventoryRecord is the per-(warehouse, product) stock quantity. At most one
// record exists per pair; it is created lazily on the first stock-increasing
// adjustment and kept around once quantity drops back to zero.
type InventoryRecord struct {
	ID          string
	WarehouseID string
	ProductID   string
	Quantity    int
	UpdatedAt   time.Time
}

// Adjustment reasons recorded with stock movements.
const (
	ReasonSupply     = "supply"
	ReasonSupplyEdit = "supply_edit"
	ReasonManual     = "manual"
	ReasonOrder      = "order"
)
