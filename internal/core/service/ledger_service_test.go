package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ndanilov/warehouse-engine/internal/core/domain"
)

func newLedgerFixture() (*LedgerService, *memInventoryRepo, *memCacheRepo, *memPublisher) {
	inventory := newMemInventoryRepo()
	cache := newMemCacheRepo()
	events := &memPublisher{}
	return NewLedgerService(inventory, cache, events), inventory, cache, events
}

func TestAdjust_SequenceOfDeltas(t *testing.T) {
	svc, _, _, _ := newLedgerFixture()
	ctx := context.Background()

	deltas := []int{10, -3, 5, -2}
	want := 0
	for _, d := range deltas {
		want += d
		rec, err := svc.Adjust(ctx, "wh-1", "prod-1", d, domain.ReasonManual)
		if err != nil {
			t.Fatalf("adjust %d failed: %v", d, err)
		}
		if rec.Quantity != want {
			t.Errorf("after delta %d: expected quantity %d, got %d", d, want, rec.Quantity)
		}
	}
}

func TestAdjust_NegativeOnMissingRecord(t *testing.T) {
	svc, inventory, _, _ := newLedgerFixture()

	_, err := svc.Adjust(context.Background(), "wh-1", "prod-1", -5, domain.ReasonManual)

	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if insufficient.Available != 0 || insufficient.Requested != 5 {
		t.Errorf("expected available=0 requested=5, got available=%d requested=%d",
			insufficient.Available, insufficient.Requested)
	}

	// The failed adjustment must not create a record.
	rec, err := inventory.GetByWarehouseAndProduct(context.Background(), "wh-1", "prod-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected no record, got quantity %d", rec.Quantity)
	}
}

func TestAdjust_InsufficientLeavesRecordUnchanged(t *testing.T) {
	svc, inventory, _, _ := newLedgerFixture()
	ctx := context.Background()

	if _, err := svc.Adjust(ctx, "wh-1", "prod-1", 3, domain.ReasonManual); err != nil {
		t.Fatalf("seed adjust failed: %v", err)
	}

	_, err := svc.Adjust(ctx, "wh-1", "prod-1", -10, domain.ReasonManual)
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if insufficient.Available != 3 || insufficient.Requested != 10 {
		t.Errorf("expected available=3 requested=10, got available=%d requested=%d",
			insufficient.Available, insufficient.Requested)
	}

	if got := inventory.quantity("wh-1", "prod-1"); got != 3 {
		t.Errorf("expected quantity unchanged at 3, got %d", got)
	}
}

func TestAdjust_ZeroDeltaOnMissingCreatesRecord(t *testing.T) {
	svc, _, _, _ := newLedgerFixture()

	rec, err := svc.Adjust(context.Background(), "wh-1", "prod-1", 0, domain.ReasonManual)
	if err != nil {
		t.Fatalf("zero adjust failed: %v", err)
	}
	if rec == nil || rec.Quantity != 0 {
		t.Fatalf("expected record with quantity 0, got %+v", rec)
	}
}

func TestAdjust_Validation(t *testing.T) {
	svc, _, _, _ := newLedgerFixture()
	ctx := context.Background()

	if _, err := svc.Adjust(ctx, "", "prod-1", 1, domain.ReasonManual); !errors.Is(err, ErrMissingWarehouse) {
		t.Errorf("expected ErrMissingWarehouse, got: %v", err)
	}
	if _, err := svc.Adjust(ctx, "wh-1", "", 1, domain.ReasonManual); !errors.Is(err, ErrMissingProduct) {
		t.Errorf("expected ErrMissingProduct, got: %v", err)
	}
}

func TestAdjust_MirrorsCacheAndPublishes(t *testing.T) {
	svc, _, cache, events := newLedgerFixture()

	if _, err := svc.Adjust(context.Background(), "wh-1", "prod-1", 7, domain.ReasonManual); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}

	qty, ok, err := cache.GetStock(context.Background(), "wh-1", "prod-1")
	if err != nil || !ok {
		t.Fatalf("expected mirrored stock, ok=%v err=%v", ok, err)
	}
	if qty != 7 {
		t.Errorf("expected mirrored quantity 7, got %d", qty)
	}
	if n := events.countTopic(domain.TopicStockAdjusted); n != 1 {
		t.Errorf("expected 1 stock.adjusted event, got %d", n)
	}
}

func TestAdjust_Concurrent(t *testing.T) {
	svc, inventory, _, _ := newLedgerFixture()
	ctx := context.Background()

	if _, err := svc.Adjust(ctx, "wh-1", "prod-1", 1000, domain.ReasonManual); err != nil {
		t.Fatalf("seed adjust failed: %v", err)
	}

	workers := 20
	perWorker := 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				delta := 1
				if (id+j)%2 == 0 {
					delta = -1
				}
				if _, err := svc.Adjust(ctx, "wh-1", "prod-1", delta, domain.ReasonManual); err != nil {
					t.Errorf("worker %d: adjust failed: %v", id, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	// Each worker applies an equal number of +1 and -1 deltas.
	if got := inventory.quantity("wh-1", "prod-1"); got != 1000 {
		t.Errorf("expected final quantity 1000, got %d", got)
	}
}

func TestGetLowStock_FiltersRange(t *testing.T) {
	svc, _, _, _ := newLedgerFixture()
	ctx := context.Background()

	seed := map[string]int{
		"prod-zero": 5, "prod-low": 4, "prod-edge": 10, "prod-high": 50,
	}
	for productID, qty := range seed {
		if _, err := svc.Adjust(ctx, "wh-1", productID, qty, domain.ReasonManual); err != nil {
			t.Fatalf("seed %s failed: %v", productID, err)
		}
	}
	// Drain one pair to zero; zero quantities are excluded from the report.
	if _, err := svc.Adjust(ctx, "wh-1", "prod-zero", -5, domain.ReasonManual); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	records, err := svc.GetLowStock(ctx, "wh-1", 10)
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 low-stock record, got %d", len(records))
	}
	if records[0].ProductID != "prod-low" {
		t.Errorf("expected prod-low, got %s", records[0].ProductID)
	}
}

func TestGetLowStock_DefaultThreshold(t *testing.T) {
	svc, _, _, _ := newLedgerFixture()
	ctx := context.Background()

	if _, err := svc.Adjust(ctx, "wh-1", "prod-1", 4, domain.ReasonManual); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	records, err := svc.GetLowStock(ctx, "wh-1", 0)
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected default threshold to report 1 record, got %d", len(records))
	}
}

func TestGetQuantity_CacheFirst(t *testing.T) {
	svc, _, cache, _ := newLedgerFixture()
	ctx := context.Background()

	if err := cache.SetStock(ctx, "wh-1", "prod-1", 42); err != nil {
		t.Fatalf("set stock failed: %v", err)
	}

	qty, err := svc.GetQuantity(ctx, "wh-1", "prod-1")
	if err != nil {
		t.Fatalf("get quantity failed: %v", err)
	}
	if qty != 42 {
		t.Errorf("expected cached quantity 42, got %d", qty)
	}
}

func TestGetQuantity_MissingReadsZero(t *testing.T) {
	svc, _, _, _ := newLedgerFixture()

	qty, err := svc.GetQuantity(context.Background(), "wh-1", "prod-unknown")
	if err != nil {
		t.Fatalf("get quantity failed: %v", err)
	}
	if qty != 0 {
		t.Errorf("expected 0 for missing record, got %d", qty)
	}
}
