package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ndanilov/warehouse-engine/internal/core/domain"
	"github.com/ndanilov/warehouse-engine/internal/port"
)

// ExternalOrderInput is the payload pushed by the external order system.
// Subtotal and TotalAmount are optional; missing values are computed from
// the lines and the shipping cost.
type ExternalOrderInput struct {
	ExternalOrderID string
	WarehouseID     string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	Notes           string
	Subtotal        *decimal.Decimal
	ShippingCost    decimal.Decimal
	TotalAmount     *decimal.Decimal
	Lines           []port.NewOrderLine
}

// OrderService owns the order lifecycle and is the idempotent entry point
// for the external order feed. Orders never mutate the stock ledger: only
// supplies move quantities today, and the restock hooks on cancellation
// and deletion stay unwired with it.
type OrderService struct {
	orders port.OrderRepository
	cache  port.CacheRepository
	events port.EventPublisher
}

func NewOrderService(orders port.OrderRepository, cache port.CacheRepository, events port.EventPublisher) *OrderService {
	return &OrderService{orders: orders, cache: cache, events: events}
}

// CreateFromExternal creates an order from an external payload. Repeated
// delivery with the same external order id returns the stored order
// unchanged; it is a no-op, not an error.
func (s *OrderService) CreateFromExternal(ctx context.Context, in ExternalOrderInput) (*domain.Order, error) {
	if in.ExternalOrderID == "" {
		return nil, ErrMissingExternalID
	}
	if in.WarehouseID == "" {
		return nil, ErrMissingWarehouse
	}
	if len(in.Lines) == 0 {
		return nil, ErrNoLines
	}
	for i, line := range in.Lines {
		if line.ProductID == "" {
			return nil, fmt.Errorf("line %d: %w", i, ErrMissingProduct)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line %d: %w", i, ErrInvalidQuantity)
		}
		if !line.Price.IsPositive() {
			return nil, fmt.Errorf("line %d: %w", i, ErrInvalidPrice)
		}
	}

	existing, err := s.orders.GetByExternalID(ctx, in.ExternalOrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Debug().
			Str("external_order_id", in.ExternalOrderID).
			Str("order_number", existing.OrderNumber).
			Msg("duplicate external order absorbed")
		return existing, nil
	}

	subtotal := decimal.Zero
	if in.Subtotal != nil {
		subtotal = *in.Subtotal
	} else {
		for _, line := range in.Lines {
			subtotal = subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
	}
	total := subtotal.Add(in.ShippingCost)
	if in.TotalAmount != nil {
		total = *in.TotalAmount
	}

	order, fresh, err := s.orders.CreateFromExternal(ctx, port.NewOrder{
		ExternalOrderID: in.ExternalOrderID,
		WarehouseID:     in.WarehouseID,
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		ShippingAddress: in.ShippingAddress,
		Notes:           in.Notes,
		Subtotal:        subtotal,
		ShippingCost:    in.ShippingCost,
		TotalAmount:     total,
		Lines:           in.Lines,
	})
	if err != nil {
		return nil, err
	}

	if fresh {
		s.publishOrderEvent(ctx, domain.TopicOrderCreated, order)
		log.Info().
			Str("order_id", order.ID).
			Str("order_number", order.OrderNumber).
			Str("external_order_id", order.ExternalOrderID).
			Msg("order created from external feed")
	}

	return order, nil
}

// UpdateStatus moves the order to the status with the given code. Moving to
// "shipped" stamps the shipped timestamp. Cancellation performs no ledger
// action since orders never decremented it.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, statusCode string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}

	status, err := s.orders.GetStatusByCode(ctx, statusCode)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, fmt.Errorf("%q: %w", statusCode, ErrUnknownStatus)
	}

	var shippedAt *time.Time
	if status.Code == domain.StatusShipped {
		now := time.Now().UTC()
		shippedAt = &now
	}

	updated, err := s.orders.UpdateStatus(ctx, order.ID, status.ID, shippedAt)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	s.publishOrderEvent(ctx, domain.TopicOrderStatusChanged, updated)

	log.Info().
		Str("order_id", updated.ID).
		Str("order_number", updated.OrderNumber).
		Str("status", status.Code).
		Msg("order status updated")

	return updated, nil
}

// SyncFromExternal applies a status event from the external system. Events
// whose timestamp is not newer than the order's last update are discarded
// as stale, making redelivery and out-of-order delivery safe. A zero event
// time always applies.
func (s *OrderService) SyncFromExternal(ctx context.Context, externalOrderID, statusCode string, eventTime time.Time) (*domain.Order, error) {
	if externalOrderID == "" {
		return nil, ErrMissingExternalID
	}

	dedupKey := fmt.Sprintf("sync:%s:%s:%d", externalOrderID, statusCode, eventTime.Unix())
	if s.cache != nil {
		fresh, err := s.cache.SetIdempotency(ctx, dedupKey)
		if err != nil {
			log.Warn().Err(err).Msg("sync dedup check failed, continuing")
		} else if !fresh {
			return s.GetByExternalID(ctx, externalOrderID)
		}
	}

	order, err := s.orders.GetByExternalID(ctx, externalOrderID)
	if err != nil {
		s.releaseDedup(ctx, dedupKey)
		return nil, err
	}
	if order == nil {
		s.releaseDedup(ctx, dedupKey)
		return nil, ErrNotFound
	}

	if !eventTime.IsZero() && !order.UpdatedAt.IsZero() && !eventTime.After(order.UpdatedAt) {
		log.Debug().
			Str("external_order_id", externalOrderID).
			Time("event_time", eventTime).
			Time("order_updated_at", order.UpdatedAt).
			Msg("stale sync event discarded")
		return order, nil
	}

	updated, err := s.UpdateStatus(ctx, order.ID, statusCode)
	if err != nil {
		s.releaseDedup(ctx, dedupKey)
		return nil, err
	}
	return updated, nil
}

// DeleteFromExternal removes the order and its lines when the external
// system cancels it. No restock is performed; see UpdateStatus.
func (s *OrderService) DeleteFromExternal(ctx context.Context, externalOrderID string) error {
	order, err := s.orders.GetByExternalID(ctx, externalOrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrNotFound
	}

	if err := s.orders.Delete(ctx, order.ID); err != nil {
		return err
	}

	s.publishOrderEvent(ctx, domain.TopicOrderDeleted, order)

	log.Info().
		Str("order_id", order.ID).
		Str("external_order_id", order.ExternalOrderID).
		Msg("order deleted on external request")

	return nil
}

// GetByExternalID returns the order with lines and status.
func (s *OrderService) GetByExternalID(ctx context.Context, externalOrderID string) (*domain.Order, error) {
	order, err := s.orders.GetByExternalID(ctx, externalOrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return order, nil
}

func (s *OrderService) releaseDedup(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteIdempotency(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("sync dedup release failed")
	}
}

func (s *OrderService) publishOrderEvent(ctx context.Context, topic string, order *domain.Order) {
	if s.events == nil {
		return
	}
	ev := domain.OrderEvent{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		ExternalOrderID: order.ExternalOrderID,
		WarehouseID:     order.WarehouseID,
		StatusCode:      order.StatusCode,
		TotalAmount:     order.TotalAmount,
		At:              time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, topic, ev); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("event publish failed")
	}
}
