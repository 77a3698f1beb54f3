package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Warehouse struct {
	ID          string
	Name        string
	State       string
	City        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Product struct {
	ID          string
	Name        string
	SKU         string
	Description string
	CostPrice   decimal.Decimal
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
