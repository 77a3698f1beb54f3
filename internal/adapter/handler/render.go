package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndanilov/warehouse-engine/internal/core/domain"
)

type InventoryResponse struct {
	ID          string    `json:"id"`
	WarehouseID string    `json:"warehouse_id"`
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SupplyLineResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type SupplyResponse struct {
	ID           string               `json:"id"`
	SupplyNumber string               `json:"supply_number"`
	WarehouseID  string               `json:"warehouse_id"`
	Notes        string               `json:"notes,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	Lines        []SupplyLineResponse `json:"lines"`
}

type OrderLineResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type OrderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"order_number"`
	ExternalOrderID string              `json:"external_order_id"`
	WarehouseID     string              `json:"warehouse_id"`
	StatusCode      string              `json:"status_code"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	CustomerPhone   string              `json:"customer_phone,omitempty"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	ShippingCost    decimal.Decimal     `json:"shipping_cost"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	Lines           []OrderLineResponse `json:"lines"`
}

type WarehouseResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	State       string `json:"state,omitempty"`
	City        string `json:"city,omitempty"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

type ProductResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description,omitempty"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	IsActive    bool            `json:"is_active"`
}

func renderWarehouse(warehouse *domain.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:          warehouse.ID,
		Name:        warehouse.Name,
		State:       warehouse.State,
		City:        warehouse.City,
		Description: warehouse.Description,
		IsActive:    warehouse.IsActive,
	}
}

func renderProduct(product *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          product.ID,
		Name:        product.Name,
		SKU:         product.SKU,
		Description: product.Description,
		CostPrice:   product.CostPrice,
		IsActive:    product.IsActive,
	}
}

func renderInventory(rec *domain.InventoryRecord) InventoryResponse {
	return InventoryResponse{
		ID:          rec.ID,
		WarehouseID: rec.WarehouseID,
		ProductID:   rec.ProductID,
		Quantity:    rec.Quantity,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func renderInventoryList(recs []domain.InventoryRecord) []InventoryResponse {
	out := make([]InventoryResponse, 0, len(recs))
	for i := range recs {
		out = append(out, renderInventory(&recs[i]))
	}
	return out
}

func renderSupply(supply *domain.Supply) SupplyResponse {
	resp := SupplyResponse{
		ID:           supply.ID,
		SupplyNumber: supply.SupplyNumber,
		WarehouseID:  supply.WarehouseID,
		Notes:        supply.Notes,
		CreatedAt:    supply.CreatedAt,
		Lines:        make([]SupplyLineResponse, 0, len(supply.Lines)),
	}
	for _, line := range supply.Lines {
		resp.Lines = append(resp.Lines, SupplyLineResponse{
			ID:        line.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	return resp
}

func renderOrder(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		ExternalOrderID: order.ExternalOrderID,
		WarehouseID:     order.WarehouseID,
		StatusCode:      order.StatusCode,
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		CustomerPhone:   order.CustomerPhone,
		ShippingAddress: order.ShippingAddress,
		Subtotal:        order.Subtotal,
		ShippingCost:    order.ShippingCost,
		TotalAmount:     order.TotalAmount,
		TrackingNumber:  order.TrackingNumber,
		Notes:           order.Notes,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
		ShippedAt:       order.ShippedAt,
		Lines:           make([]OrderLineResponse, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			ID:          line.ID,
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			Price:       line.Price,
			TotalAmount: line.TotalAmount,
		})
	}
	return resp
}
