package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ndanilov/warehouse-engine/internal/core/domain"
	"github.com/ndanilov/warehouse-engine/internal/port"
)

// CreateWithLines persists a supply document and applies the strict ledger
// increase for every line, all inside one transaction. Nothing survives a
// failure partway through.
func (m *MySQLAdapter) CreateWithLines(ctx context.Context, warehouseID, notes string, lines []port.NewSupplyLine) (*domain.Supply, []domain.InventoryRecord, error) {
	supplyID := uuid.NewString()
	var records []domain.InventoryRecord

	err := m.withTx(ctx, func(tx *sql.Tx) error {
		year := time.Now().Year()
		seq, err := m.nextSequenceTx(ctx, tx, scopeSupply, year)
		if err != nil {
			return err
		}
		number := formatDocumentNumber(scopeSupply, year, seq)

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO supplies (id, supply_number, warehouse_id, notes)
			VALUES (?, ?, ?, ?)`,
			supplyID, number, warehouseID, notes,
		); err != nil {
			return fmt.Errorf("insert supply: %w", err)
		}

		for _, line := range lines {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO supply_items (id, supply_id, product_id, quantity)
				VALUES (?, ?, ?, ?)`,
				uuid.NewString(), supplyID, line.ProductID, line.Quantity,
			); err != nil {
				return fmt.Errorf("insert supply line: %w", err)
			}

			rec, err := m.adjustTx(ctx, tx, warehouseID, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			records = append(records, *rec)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	supply, err := m.GetSupply(ctx, supplyID)
	if err != nil {
		return nil, nil, err
	}
	return supply, records, nil
}

// DeleteWithLines reverses the supply's ledger effect with decreases
// saturated at zero, then deletes the document; lines cascade.
func (m *MySQLAdapter) DeleteWithLines(ctx context.Context, supply *domain.Supply) ([]domain.InventoryRecord, error) {
	var records []domain.InventoryRecord

	err := m.withTx(ctx, func(tx *sql.Tx) error {
		for _, line := range supply.Lines {
			rec, err := m.releaseTx(ctx, tx, supply.WarehouseID, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if rec != nil {
				records = append(records, *rec)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM supplies WHERE id = ?`, supply.ID); err != nil {
			return fmt.Errorf("delete supply: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateLineQuantity applies the signed old-to-new difference through the
// strict ledger adjustment and persists the new line quantity in the same
// transaction. Insufficient stock rolls back both.
func (m *MySQLAdapter) UpdateLineQuantity(ctx context.Context, supply *domain.Supply, line domain.SupplyLine, newQuantity int) (*domain.SupplyLine, *domain.InventoryRecord, error) {
	var record *domain.InventoryRecord

	err := m.withTx(ctx, func(tx *sql.Tx) error {
		diff := newQuantity - line.Quantity
		if diff != 0 {
			rec, err := m.adjustTx(ctx, tx, supply.WarehouseID, line.ProductID, diff)
			if err != nil {
				return err
			}
			record = rec
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE supply_items SET quantity = ? WHERE id = ?`,
			newQuantity, line.ID,
		); err != nil {
			return fmt.Errorf("update supply line: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	updated := line
	updated.Quantity = newQuantity
	return &updated, record, nil
}

// DeleteLine removes one line with a saturating ledger decrease.
func (m *MySQLAdapter) DeleteLine(ctx context.Context, supply *domain.Supply, line domain.SupplyLine) (*domain.InventoryRecord, error) {
	var record *domain.InventoryRecord

	err := m.withTx(ctx, func(tx *sql.Tx) error {
		rec, err := m.releaseTx(ctx, tx, supply.WarehouseID, line.ProductID, line.Quantity)
		if err != nil {
			return err
		}
		record = rec

		if _, err := tx.ExecContext(ctx, `DELETE FROM supply_items WHERE id = ?`, line.ID); err != nil {
			return fmt.Errorf("delete supply line: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetSupply loads a supply with its lines; (nil, nil) when absent.
func (m *MySQLAdapter) GetSupply(ctx context.Context, id string) (*domain.Supply, error) {
	var s domain.Supply
	var notes sql.NullString
	err := m.db.QueryRowContext(ctx, `
		SELECT id, supply_number, warehouse_id, notes, created_at
		FROM supplies WHERE id = ?`, id,
	).Scan(&s.ID, &s.SupplyNumber, &s.WarehouseID, &notes, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query supply: %w", err)
	}
	s.Notes = notes.String

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, supply_id, product_id, quantity, created_at
		FROM supply_items WHERE supply_id = ? ORDER BY created_at, id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("query supply lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.SupplyLine
		if err := rows.Scan(&line.ID, &line.SupplyID, &line.ProductID, &line.Quantity, &line.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan supply line: %w", err)
		}
		s.Lines = append(s.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &s, nil
}
