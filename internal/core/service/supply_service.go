package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndanilov/warehouse-engine/internal/core/domain"
	"github.com/ndanilov/warehouse-engine/internal/port"
)

// CreateSupplyInput is a batch of incoming stock lines for one warehouse.
type CreateSupplyInput struct {
	WarehouseID string
	Notes       string
	Lines       []port.NewSupplyLine
}

// SupplyService turns supply documents into ledger increases and reverses
// that effect on deletion. All document-plus-ledger steps commit as one unit.
type SupplyService struct {
	supplies port.SupplyRepository
	ledger   *LedgerService
	events   port.EventPublisher
}

func NewSupplyService(supplies port.SupplyRepository, ledger *LedgerService, events port.EventPublisher) *SupplyService {
	return &SupplyService{supplies: supplies, ledger: ledger, events: events}
}

// CreateWithLines persists the supply and increases the ledger per line,
// atomically. The supply number is allocated from the per-year counter.
func (s *SupplyService) CreateWithLines(ctx context.Context, in CreateSupplyInput) (*domain.Supply, error) {
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
	}

	supply, records, err := s.supplies.CreateWithLines(ctx, in.WarehouseID, in.Notes, in.Lines)
	if err != nil {
		return nil, err
	}

	for i := range records {
		s.ledger.mirrorStock(ctx, &records[i])
	}
	for i, line := range supply.Lines {
		if i < len(records) {
			s.ledger.publishAdjusted(ctx, &records[i], line.Quantity, domain.ReasonSupply)
		}
	}
	s.publishSupplyEvent(ctx, domain.TopicSupplyCreated, supply)

	log.Info().
		Str("supply_id", supply.ID).
		Str("supply_number", supply.SupplyNumber).
		Int("lines", len(supply.Lines)).
		Msg("supply created")

	return supply, nil
}

// DeleteWithLines reverses the supply's ledger effect and removes the
// document. Decreases saturate at zero so deletion always succeeds even if
// stock was separately consumed since intake.
func (s *SupplyService) DeleteWithLines(ctx context.Context, supplyID string) error {
	supply, err := s.supplies.GetSupply(ctx, supplyID)
	if err != nil {
		return err
	}
	if supply == nil {
		return ErrNotFound
	}

	records, err := s.supplies.DeleteWithLines(ctx, supply)
	if err != nil {
		return err
	}

	for i := range records {
		s.ledger.mirrorStock(ctx, &records[i])
	}
	s.publishSupplyEvent(ctx, domain.TopicSupplyDeleted, supply)

	log.Info().
		Str("supply_id", supply.ID).
		Str("supply_number", supply.SupplyNumber).
		Msg("supply deleted")

	return nil
}

// UpdateLineQuantity corrects one line. The signed difference from old to
// new quantity goes through the strict ledger adjustment in the same
// transaction as the line update; insufficient stock rolls back both.
func (s *SupplyService) UpdateLineQuantity(ctx context.Context, supplyID, lineID string, newQuantity int) (*domain.SupplyLine, error) {
	if newQuantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	supply, err := s.supplies.GetSupply(ctx, supplyID)
	if err != nil {
		return nil, err
	}
	if supply == nil {
		return nil, ErrNotFound
	}

	old := findLine(supply, lineID)
	if old == nil {
		return nil, ErrNotFound
	}
	diff := newQuantity - old.Quantity

	line, record, err := s.supplies.UpdateLineQuantity(ctx, supply, *old, newQuantity)
	if err != nil {
		return nil, err
	}

	s.ledger.mirrorStock(ctx, record)
	if record != nil && diff != 0 {
		s.ledger.publishAdjusted(ctx, record, diff, domain.ReasonSupplyEdit)
	}

	return line, nil
}

// DeleteLine removes one line with a saturating ledger decrease. The last
// line cannot be removed; delete the supply instead.
func (s *SupplyService) DeleteLine(ctx context.Context, supplyID, lineID string) error {
	supply, err := s.supplies.GetSupply(ctx, supplyID)
	if err != nil {
		return err
	}
	if supply == nil {
		return ErrNotFound
	}
	if len(supply.Lines) <= 1 {
		return ErrLastLine
	}
	line := findLine(supply, lineID)
	if line == nil {
		return ErrNotFound
	}

	record, err := s.supplies.DeleteLine(ctx, supply, *line)
	if err != nil {
		return err
	}

	s.ledger.mirrorStock(ctx, record)
	return nil
}

func findLine(supply *domain.Supply, lineID string) *domain.SupplyLine {
	for i := range supply.Lines {
		if supply.Lines[i].ID == lineID {
			return &supply.Lines[i]
		}
	}
	return nil
}

// GetByID returns the supply with its lines.
func (s *SupplyService) GetByID(ctx context.Context, supplyID string) (*domain.Supply, error) {
	supply, err := s.supplies.GetSupply(ctx, supplyID)
	if err != nil {
		return nil, err
	}
	if supply == nil {
		return nil, ErrNotFound
	}
	return supply, nil
}

func (s *SupplyService) publishSupplyEvent(ctx context.Context, topic string, supply *domain.Supply) {
	if s.events == nil {
		return
	}
	ev := domain.SupplyEvent{
		SupplyID:     supply.ID,
		SupplyNumber: supply.SupplyNumber,
		WarehouseID:  supply.WarehouseID,
		LineCount:    len(supply.Lines),
		At:           time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, topic, ev); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("event publish failed")
	}
}
