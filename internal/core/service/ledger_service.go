package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndanilov/warehouse-engine/internal/core/domain"
	"github.com/ndanilov/warehouse-engine/internal/port"
)

const defaultLowStockThreshold = 10

// LedgerService owns the per-(warehouse, product) quantity record. Every
// quantity change in the system is a signed delta routed through Adjust;
// nothing else writes stock.
type LedgerService struct {
	inventory port.InventoryRepository
	cache     port.CacheRepository
	events    port.EventPublisher
}

func NewLedgerService(inventory port.InventoryRepository, cache port.CacheRepository, events port.EventPublisher) *LedgerService {
	return &LedgerService{inventory: inventory, cache: cache, events: events}
}

// Adjust applies a signed delta to a pair. A negative delta on a missing
// record, or one that would take the quantity below zero, fails with
// *domain.InsufficientStockError and leaves the record unmodified.
func (s *LedgerService) Adjust(ctx context.Context, warehouseID, productID string, delta int, reason string) (*domain.InventoryRecord, error) {
	if warehouseID == "" {
		return nil, ErrMissingWarehouse
	}
	if productID == "" {
		return nil, ErrMissingProduct
	}

	rec, err := s.inventory.AdjustQuantity(ctx, warehouseID, productID, delta)
	if err != nil {
		return nil, err
	}

	s.mirrorStock(ctx, rec)
	s.publishAdjusted(ctx, rec, delta, reason)

	return rec, nil
}

// GetLowStock lists records with 0 < quantity < threshold for alerting.
// Read-only; a non-positive threshold falls back to the default.
func (s *LedgerService) GetLowStock(ctx context.Context, warehouseID string, threshold int) ([]domain.InventoryRecord, error) {
	if warehouseID == "" {
		return nil, ErrMissingWarehouse
	}
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	return s.inventory.ListLowStock(ctx, warehouseID, threshold)
}

// GetQuantity reads the on-hand quantity for a pair, preferring the cache
// mirror and falling back to the database. Missing record reads as zero.
func (s *LedgerService) GetQuantity(ctx context.Context, warehouseID, productID string) (int, error) {
	if s.cache != nil {
		qty, ok, err := s.cache.GetStock(ctx, warehouseID, productID)
		if err != nil {
			log.Warn().Err(err).Msg("stock cache read failed, falling back to database")
		} else if ok {
			return qty, nil
		}
	}

	rec, err := s.inventory.GetByWarehouseAndProduct(ctx, warehouseID, productID)
	if err != nil {
		return 0, fmt.Errorf("get inventory: %w", err)
	}
	if rec == nil {
		return 0, nil
	}
	return rec.Quantity, nil
}

func (s *LedgerService) mirrorStock(ctx context.Context, rec *domain.InventoryRecord) {
	if s.cache == nil || rec == nil {
		return
	}
	if err := s.cache.SetStock(ctx, rec.WarehouseID, rec.ProductID, rec.Quantity); err != nil {
		log.Warn().Err(err).
			Str("warehouse_id", rec.WarehouseID).
			Str("product_id", rec.ProductID).
			Msg("stock cache mirror failed")
	}
}

func (s *LedgerService) publishAdjusted(ctx context.Context, rec *domain.InventoryRecord, delta int, reason string) {
	if s.events == nil || rec == nil {
		return
	}
	ev := domain.StockAdjustedEvent{
		WarehouseID: rec.WarehouseID,
		ProductID:   rec.ProductID,
		Delta:       delta,
		Quantity:    rec.Quantity,
		Reason:      reason,
		At:          time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, domain.TopicStockAdjusted, ev); err != nil {
		log.Warn().Err(err).Str("topic", domain.TopicStockAdjusted).Msg("event publish failed")
	}
}
