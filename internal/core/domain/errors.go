package domain

import "fmt"

// InsufficientStockError reports a decrease that would take a stock quantity
// below zero. The record is left unmodified when this is returned.
type InsufficientStockError struct {
	WarehouseID string
	ProductID   string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s in warehouse %s: available %d, requested decrease %d",
		e.ProductID, e.WarehouseID, e.Available, e.Requested)
}
