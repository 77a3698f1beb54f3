package domain

import "time"

// Supply is a batch stock-intake document. Immutable once created apart from
// line-level quantity corrections; deletion is a compensating operation.
type Supply struct {
	ID           string
	SupplyNumber string // SUP-<year>-<seq>
	WarehouseID  string
	Notes        string
	CreatedAt    time.Time
	Lines        []SupplyLine
}

// SupplyLine belongs to exactly one supply and cannot be reparented.
type SupplyLine struct {
	ID        string
	SupplyID  string
	ProductID string
	Quantity  int
	CreatedAt time.Time
}
