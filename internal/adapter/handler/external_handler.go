package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndanilov/warehouse-engine/internal/core/service"
	"github.com/ndanilov/warehouse-engine/internal/port"
)

// ExternalHandler serves the sync API used by the external order system.
// Every route is gated by the X-API-Key header.
type ExternalHandler struct {
	orders *service.OrderService
	apiKey string
}

func NewExternalHandler(orders *service.OrderService, apiKey string) *ExternalHandler {
	return &ExternalHandler{orders: orders, apiKey: apiKey}
}

type ExternalOrderLineRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type SyncOrderRequest struct {
	ExternalOrderID string                     `json:"external_order_id"`
	WarehouseID     string                     `json:"warehouse_id"`
	CustomerName    string                     `json:"customer_name"`
	CustomerEmail   string                     `json:"customer_email"`
	CustomerPhone   string                     `json:"customer_phone"`
	ShippingAddress string                     `json:"shipping_address"`
	Notes           string                     `json:"notes"`
	Subtotal        *decimal.Decimal           `json:"subtotal"`
	ShippingCost    decimal.Decimal            `json:"shipping_cost"`
	TotalAmount     *decimal.Decimal           `json:"total_amount"`
	Lines           []ExternalOrderLineRequest `json:"lines"`
}

type SyncStatusRequest struct {
	ExternalOrderID string     `json:"external_order_id"`
	StatusCode      string     `json:"status_code"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

// RequireAPIKey rejects requests whose X-API-Key header does not match the
// configured key. Comparison is constant time.
func (h *ExternalHandler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if h.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *ExternalHandler) SyncOrder(w http.ResponseWriter, r *http.Request) {
	var req SyncOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	input := service.ExternalOrderInput{
		ExternalOrderID: req.ExternalOrderID,
		WarehouseID:     req.WarehouseID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		Subtotal:        req.Subtotal,
		ShippingCost:    req.ShippingCost,
		TotalAmount:     req.TotalAmount,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, port.NewOrderLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	order, err := h.orders.CreateFromExternal(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderOrder(order))
}

func (h *ExternalHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	var req SyncStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var eventTime time.Time
	if req.UpdatedAt != nil {
		eventTime = *req.UpdatedAt
	}

	order, err := h.orders.SyncFromExternal(r.Context(), req.ExternalOrderID, req.StatusCode, eventTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderOrder(order))
}

func (h *ExternalHandler) GetSyncedOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetByExternalID(r.Context(), r.PathValue("externalOrderID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderOrder(order))
}

func (h *ExternalHandler) DeleteSyncedOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.DeleteFromExternal(r.Context(), r.PathValue("externalOrderID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
