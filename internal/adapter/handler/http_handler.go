package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/ndanilov/warehouse-engine/internal/core/domain"
	"github.com/ndanilov/warehouse-engine/internal/core/service"
	"github.com/ndanilov/warehouse-engine/internal/port"
)

// HTTPHandler serves the internal staff API: supplies, manual stock
// adjustments, low-stock reporting and order status changes.
type HTTPHandler struct {
	ledger   *service.LedgerService
	supplies *service.SupplyService
	orders   *service.OrderService
	catalog  port.CatalogRepository
}

func NewHTTPHandler(ledger *service.LedgerService, supplies *service.SupplyService, orders *service.OrderService, catalog port.CatalogRepository) *HTTPHandler {
	return &HTTPHandler{ledger: ledger, supplies: supplies, orders: orders, catalog: catalog}
}

type SupplyLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateSupplyRequest struct {
	WarehouseID string              `json:"warehouse_id"`
	Notes       string              `json:"notes"`
	Lines       []SupplyLineRequest `json:"lines"`
}

type UpdateSupplyLineRequest struct {
	Quantity int `json:"quantity"`
}

type AdjustInventoryRequest struct {
	WarehouseID string `json:"warehouse_id"`
	ProductID   string `json:"product_id"`
	Delta       int    `json:"delta"`
	Reason      string `json:"reason"`
}

type UpdateOrderStatusRequest struct {
	StatusCode string `json:"status_code"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Available *int   `json:"available,omitempty"`
	Requested *int   `json:"requested,omitempty"`
}

func (h *HTTPHandler) CreateSupply(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	input := service.CreateSupplyInput{
		WarehouseID: req.WarehouseID,
		Notes:       req.Notes,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, port.NewSupplyLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	supply, err := h.supplies.CreateWithLines(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderSupply(supply))
}

func (h *HTTPHandler) GetSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.supplies.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderSupply(supply))
}

func (h *HTTPHandler) DeleteSupply(w http.ResponseWriter, r *http.Request) {
	if err := h.supplies.DeleteWithLines(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) UpdateSupplyLine(w http.ResponseWriter, r *http.Request) {
	var req UpdateSupplyLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	line, err := h.supplies.UpdateLineQuantity(r.Context(), r.PathValue("id"), r.PathValue("lineID"), req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SupplyLineResponse{
		ID:        line.ID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
	})
}

func (h *HTTPHandler) DeleteSupplyLine(w http.ResponseWriter, r *http.Request) {
	if err := h.supplies.DeleteLine(r.Context(), r.PathValue("id"), r.PathValue("lineID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req AdjustInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = domain.ReasonManual
	}

	record, err := h.ledger.Adjust(r.Context(), req.WarehouseID, req.ProductID, req.Delta, reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderInventory(record))
}

func (h *HTTPHandler) GetLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := 0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid threshold"})
			return
		}
		threshold = parsed
	}

	records, err := h.ledger.GetLowStock(r.Context(), r.PathValue("id"), threshold)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderInventoryList(records))
}

func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), req.StatusCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderOrder(order))
}

func (h *HTTPHandler) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	warehouse, err := h.catalog.GetWarehouse(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if warehouse == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "warehouse not found"})
		return
	}
	writeJSON(w, http.StatusOK, renderWarehouse(warehouse))
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if product == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "product not found"})
		return
	}
	writeJSON(w, http.StatusOK, renderProduct(product))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     insufficient.Error(),
			Available: &insufficient.Available,
			Requested: &insufficient.Requested,
		})
	case errors.Is(err, service.ErrUnknownStatus):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNoLines),
		errors.Is(err, service.ErrLastLine),
		errors.Is(err, service.ErrMissingProduct),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrMissingExternalID),
		errors.Is(err, service.ErrMissingWarehouse):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
