package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndanilov/warehouse-engine/internal/core/domain"
	"github.com/ndanilov/warehouse-engine/internal/port"
)

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

type pairKey struct {
	warehouseID string
	productID   string
}

// memInventoryRepo mimics the transactional adapter: strict adjustments
// fail without touching the record, releases saturate at zero.
type memInventoryRepo struct {
	mu      sync.Mutex
	records map[pairKey]*domain.InventoryRecord
}

func newMemInventoryRepo() *memInventoryRepo {
	return &memInventoryRepo{records: make(map[pairKey]*domain.InventoryRecord)}
}

func (m *memInventoryRepo) AdjustQuantity(ctx context.Context, warehouseID, productID string, delta int) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustLocked(warehouseID, productID, delta)
}

func (m *memInventoryRepo) adjustLocked(warehouseID, productID string, delta int) (*domain.InventoryRecord, error) {
	key := pairKey{warehouseID, productID}
	rec, ok := m.records[key]
	if !ok {
		if delta < 0 {
			return nil, &domain.InsufficientStockError{
				WarehouseID: warehouseID,
				ProductID:   productID,
				Available:   0,
				Requested:   -delta,
			}
		}
		rec = &domain.InventoryRecord{
			ID:          uuid.NewString(),
			WarehouseID: warehouseID,
			ProductID:   productID,
		}
		m.records[key] = rec
	}
	if rec.Quantity+delta < 0 {
		return nil, &domain.InsufficientStockError{
			WarehouseID: warehouseID,
			ProductID:   productID,
			Available:   rec.Quantity,
			Requested:   -delta,
		}
	}
	rec.Quantity += delta
	rec.UpdatedAt = time.Now().UTC()
	out := *rec
	return &out, nil
}

func (m *memInventoryRepo) releaseLocked(warehouseID, productID string, quantity int) *domain.InventoryRecord {
	key := pairKey{warehouseID, productID}
	rec, ok := m.records[key]
	if !ok {
		return nil
	}
	rec.Quantity -= quantity
	if rec.Quantity < 0 {
		rec.Quantity = 0
	}
	rec.UpdatedAt = time.Now().UTC()
	out := *rec
	return &out
}

func (m *memInventoryRepo) GetByWarehouseAndProduct(ctx context.Context, warehouseID, productID string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[pairKey{warehouseID, productID}]
	if !ok {
		return nil, nil
	}
	out := *rec
	return &out, nil
}

func (m *memInventoryRepo) ListLowStock(ctx context.Context, warehouseID string, threshold int) ([]domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.InventoryRecord
	for key, rec := range m.records {
		if key.warehouseID == warehouseID && rec.Quantity > 0 && rec.Quantity < threshold {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *memInventoryRepo) quantity(warehouseID, productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[pairKey{warehouseID, productID}]
	if !ok {
		return 0
	}
	return rec.Quantity
}

type memSupplyRepo struct {
	mu        sync.Mutex
	inventory *memInventoryRepo
	supplies  map[string]*domain.Supply
	seq       map[int]int
}

func newMemSupplyRepo(inventory *memInventoryRepo) *memSupplyRepo {
	return &memSupplyRepo{
		inventory: inventory,
		supplies:  make(map[string]*domain.Supply),
		seq:       make(map[int]int),
	}
}

func (m *memSupplyRepo) CreateWithLines(ctx context.Context, warehouseID, notes string, lines []port.NewSupplyLine) (*domain.Supply, []domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory.mu.Lock()
	defer m.inventory.mu.Unlock()

	year := time.Now().UTC().Year()
	m.seq[year]++
	supply := &domain.Supply{
		ID:           uuid.NewString(),
		SupplyNumber: fmt.Sprintf("SUP-%d-%05d", year, m.seq[year]),
		WarehouseID:  warehouseID,
		Notes:        notes,
		CreatedAt:    time.Now().UTC(),
	}

	var records []domain.InventoryRecord
	for _, line := range lines {
		rec, err := m.inventory.adjustLocked(warehouseID, line.ProductID, line.Quantity)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, *rec)
		supply.Lines = append(supply.Lines, domain.SupplyLine{
			ID:        uuid.NewString(),
			SupplyID:  supply.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			CreatedAt: supply.CreatedAt,
		})
	}

	m.supplies[supply.ID] = supply
	out := *supply
	out.Lines = append([]domain.SupplyLine(nil), supply.Lines...)
	return &out, records, nil
}

func (m *memSupplyRepo) DeleteWithLines(ctx context.Context, supply *domain.Supply) ([]domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory.mu.Lock()
	defer m.inventory.mu.Unlock()

	stored, ok := m.supplies[supply.ID]
	if !ok {
		return nil, nil
	}
	var records []domain.InventoryRecord
	for _, line := range stored.Lines {
		if rec := m.inventory.releaseLocked(stored.WarehouseID, line.ProductID, line.Quantity); rec != nil {
			records = append(records, *rec)
		}
	}
	delete(m.supplies, supply.ID)
	return records, nil
}

func (m *memSupplyRepo) UpdateLineQuantity(ctx context.Context, supply *domain.Supply, line domain.SupplyLine, newQuantity int) (*domain.SupplyLine, *domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory.mu.Lock()
	defer m.inventory.mu.Unlock()

	stored, ok := m.supplies[supply.ID]
	if !ok {
		return nil, nil, nil
	}

	diff := newQuantity - line.Quantity
	var record *domain.InventoryRecord
	if diff != 0 {
		rec, err := m.inventory.adjustLocked(stored.WarehouseID, line.ProductID, diff)
		if err != nil {
			return nil, nil, err
		}
		record = rec
	}

	for i := range stored.Lines {
		if stored.Lines[i].ID == line.ID {
			stored.Lines[i].Quantity = newQuantity
			out := stored.Lines[i]
			return &out, record, nil
		}
	}
	return nil, record, nil
}

func (m *memSupplyRepo) DeleteLine(ctx context.Context, supply *domain.Supply, line domain.SupplyLine) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory.mu.Lock()
	defer m.inventory.mu.Unlock()

	stored, ok := m.supplies[supply.ID]
	if !ok {
		return nil, nil
	}
	record := m.inventory.releaseLocked(stored.WarehouseID, line.ProductID, line.Quantity)
	for i := range stored.Lines {
		if stored.Lines[i].ID == line.ID {
			stored.Lines = append(stored.Lines[:i], stored.Lines[i+1:]...)
			break
		}
	}
	return record, nil
}

func (m *memSupplyRepo) GetSupply(ctx context.Context, id string) (*domain.Supply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.supplies[id]
	if !ok {
		return nil, nil
	}
	out := *stored
	out.Lines = append([]domain.SupplyLine(nil), stored.Lines...)
	return &out, nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	byExt  map[string]string
	seq    map[int]int
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		orders: make(map[string]*domain.Order),
		byExt:  make(map[string]string),
		seq:    make(map[int]int),
	}
}

func (m *memOrderRepo) CreateFromExternal(ctx context.Context, in port.NewOrder) (*domain.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byExt[in.ExternalOrderID]; ok {
		out := m.copyLocked(id)
		return out, false, nil
	}

	year := time.Now().UTC().Year()
	m.seq[year]++
	now := time.Now().UTC()
	order := &domain.Order{
		ID:              uuid.NewString(),
		OrderNumber:     fmt.Sprintf("ORD-%d-%05d", year, m.seq[year]),
		ExternalOrderID: in.ExternalOrderID,
		WarehouseID:     in.WarehouseID,
		StatusID:        "st-" + domain.StatusNew,
		StatusCode:      domain.StatusNew,
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		ShippingAddress: in.ShippingAddress,
		Notes:           in.Notes,
		Subtotal:        in.Subtotal,
		ShippingCost:    in.ShippingCost,
		TotalAmount:     in.TotalAmount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, line := range in.Lines {
		order.Lines = append(order.Lines, domain.OrderLine{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			Price:       line.Price,
			TotalAmount: line.Price.Mul(decimalFromInt(line.Quantity)),
			CreatedAt:   now,
		})
	}

	m.orders[order.ID] = order
	m.byExt[order.ExternalOrderID] = order.ID
	return m.copyLocked(order.ID), true, nil
}

func (m *memOrderRepo) copyLocked(id string) *domain.Order {
	stored, ok := m.orders[id]
	if !ok {
		return nil
	}
	out := *stored
	out.Lines = append([]domain.OrderLine(nil), stored.Lines...)
	return &out
}

func (m *memOrderRepo) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyLocked(id), nil
}

func (m *memOrderRepo) GetByExternalID(ctx context.Context, externalOrderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byExt[externalOrderID]
	if !ok {
		return nil, nil
	}
	return m.copyLocked(id), nil
}

func (m *memOrderRepo) UpdateStatus(ctx context.Context, orderID, statusID string, shippedAt *time.Time) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	stored.StatusID = statusID
	stored.StatusCode = strings.TrimPrefix(statusID, "st-")
	stored.UpdatedAt = time.Now().UTC()
	if shippedAt != nil {
		stored.ShippedAt = shippedAt
	}
	return m.copyLocked(orderID), nil
}

func (m *memOrderRepo) Delete(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[orderID]
	if !ok {
		return nil
	}
	delete(m.byExt, stored.ExternalOrderID)
	delete(m.orders, orderID)
	return nil
}

func (m *memOrderRepo) GetStatusByCode(ctx context.Context, code string) (*domain.OrderStatus, error) {
	known := []string{
		domain.StatusNew, domain.StatusConfirmed, domain.StatusPaid,
		domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered,
		domain.StatusCancelled, domain.StatusRefunded,
	}
	for i, c := range known {
		if c == code {
			return &domain.OrderStatus{ID: "st-" + code, Code: code, SortOrder: i}, nil
		}
	}
	return nil, nil
}

// setUpdatedAt backdates an order for staleness tests.
func (m *memOrderRepo) setUpdatedAt(orderID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.orders[orderID]; ok {
		stored.UpdatedAt = at
	}
}

type memCacheRepo struct {
	mu    sync.Mutex
	stock map[pairKey]int
	seen  map[string]bool
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{
		stock: make(map[pairKey]int),
		seen:  make(map[string]bool),
	}
}

func (m *memCacheRepo) SetStock(ctx context.Context, warehouseID, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[pairKey{warehouseID, productID}] = quantity
	return nil
}

func (m *memCacheRepo) GetStock(ctx context.Context, warehouseID, productID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qty, ok := m.stock[pairKey{warehouseID, productID}]
	return qty, ok, nil
}

func (m *memCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *memCacheRepo) DeleteIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, key)
	return nil
}

type publishedEvent struct {
	topic string
	event any
}

type memPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *memPublisher) Publish(ctx context.Context, topic string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{topic: topic, event: event})
	return nil
}

func (m *memPublisher) countTopic(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.topic == topic {
			n++
		}
	}
	return n
}
