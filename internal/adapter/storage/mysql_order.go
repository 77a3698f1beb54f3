package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndanilov/warehouse-engine/internal/core/domain"
	"github.com/ndanilov/warehouse-engine/internal/port"
)

// CreateFromExternal persists the order header and lines in one
// transaction under a freshly allocated yearly number. When a concurrent
// create with the same external id wins the unique index race, the stored
// order is returned with fresh=false.
func (m *MySQLAdapter) CreateFromExternal(ctx context.Context, in port.NewOrder) (*domain.Order, bool, error) {
	orderID := uuid.NewString()

	err := m.withTx(ctx, func(tx *sql.Tx) error {
		year := time.Now().Year()
		seq, err := m.nextSequenceTx(ctx, tx, scopeOrder, year)
		if err != nil {
			return err
		}
		number := formatDocumentNumber(scopeOrder, year, seq)

		var statusID string
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM order_statuses WHERE code = ?`, domain.StatusNew,
		).Scan(&statusID)
		if err != nil {
			return fmt.Errorf("resolve status %q: %w", domain.StatusNew, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders (
				id, order_number, external_order_id, warehouse_id, status_id,
				customer_name, customer_email, customer_phone, shipping_address, notes,
				subtotal, shipping_cost, total_amount
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			orderID, number, in.ExternalOrderID, in.WarehouseID, statusID,
			in.CustomerName, in.CustomerEmail, in.CustomerPhone, in.ShippingAddress, in.Notes,
			in.Subtotal, in.ShippingCost, in.TotalAmount,
		); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, line := range in.Lines {
			lineTotal := line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, product_id, quantity, price, total_amount)
				VALUES (?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), orderID, line.ProductID, line.Quantity, line.Price, lineTotal,
			); err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			existing, gerr := m.GetByExternalID(ctx, in.ExternalOrderID)
			if gerr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	order, err := m.GetOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	return order, true, nil
}

const orderColumns = `
	o.id, o.order_number, o.external_order_id, o.warehouse_id, o.status_id, s.code,
	o.customer_name, o.customer_email, o.customer_phone, o.shipping_address, o.notes,
	o.subtotal, o.shipping_cost, o.total_amount, o.tracking_number,
	o.created_at, o.updated_at, o.shipped_at`

func (m *MySQLAdapter) scanOrder(row *sql.Row) (*domain.Order, error) {
	var o domain.Order
	var shippingAddress, notes sql.NullString
	var shippedAt sql.NullTime
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.ExternalOrderID, &o.WarehouseID, &o.StatusID, &o.StatusCode,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &shippingAddress, &notes,
		&o.Subtotal, &o.ShippingCost, &o.TotalAmount, &o.TrackingNumber,
		&o.CreatedAt, &o.UpdatedAt, &shippedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.ShippingAddress = shippingAddress.String
	o.Notes = notes.String
	if shippedAt.Valid {
		t := shippedAt.Time
		o.ShippedAt = &t
	}
	return &o, nil
}

func (m *MySQLAdapter) loadOrderLines(ctx context.Context, order *domain.Order) error {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price, total_amount, created_at
		FROM order_items WHERE order_id = ? ORDER BY created_at, id`, order.ID,
	)
	if err != nil {
		return fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.Price, &line.TotalAmount, &line.CreatedAt); err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	return rows.Err()
}

// GetOrder loads the order with lines and status; (nil, nil) when absent.
func (m *MySQLAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o JOIN order_statuses s ON s.id = o.status_id
		WHERE o.id = ?`, id,
	)
	order, err := m.scanOrder(row)
	if err != nil || order == nil {
		return order, err
	}
	if err := m.loadOrderLines(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (m *MySQLAdapter) GetByExternalID(ctx context.Context, externalOrderID string) (*domain.Order, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o JOIN order_statuses s ON s.id = o.status_id
		WHERE o.external_order_id = ?`, externalOrderID,
	)
	order, err := m.scanOrder(row)
	if err != nil || order == nil {
		return order, err
	}
	if err := m.loadOrderLines(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus sets the status reference and refreshes the update
// timestamp; a non-nil shippedAt is stamped, an existing one is kept.
func (m *MySQLAdapter) UpdateStatus(ctx context.Context, orderID, statusID string, shippedAt *time.Time) (*domain.Order, error) {
	_, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET status_id = ?, updated_at = NOW(3), shipped_at = COALESCE(?, shipped_at)
		WHERE id = ?`,
		statusID, shippedAt, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return m.GetOrder(ctx, orderID)
}

// Delete removes the order; lines cascade.
func (m *MySQLAdapter) Delete(ctx context.Context, orderID string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetStatusByCode(ctx context.Context, code string) (*domain.OrderStatus, error) {
	var st domain.OrderStatus
	err := m.db.QueryRowContext(ctx, `
		SELECT id, code, name, sort_order FROM order_statuses WHERE code = ?`, code,
	).Scan(&st.ID, &st.Code, &st.Name, &st.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order status: %w", err)
	}
	return &st, nil
}
