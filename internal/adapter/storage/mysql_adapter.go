package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/ndanilov/warehouse-engine/internal/core/domain"
)

const (
	scopeSupply = "SUP"
	scopeOrder  = "ORD"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS warehouses (
		id          CHAR(36) PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		state       VARCHAR(128) NOT NULL DEFAULT '',
		city        VARCHAR(128) NOT NULL DEFAULT '',
		description TEXT,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at  DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          CHAR(36) PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		sku         VARCHAR(64) NOT NULL,
		description TEXT,
		cost_price  DECIMAL(12,2) NOT NULL DEFAULT 0,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at  DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_products_sku (sku)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		id           CHAR(36) PRIMARY KEY,
		warehouse_id CHAR(36) NOT NULL,
		product_id   CHAR(36) NOT NULL,
		quantity     INT NOT NULL DEFAULT 0,
		updated_at   DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_inventory_pair (warehouse_id, product_id),
		CONSTRAINT fk_inventory_warehouse FOREIGN KEY (warehouse_id) REFERENCES warehouses (id) ON DELETE CASCADE,
		CONSTRAINT fk_inventory_product FOREIGN KEY (product_id) REFERENCES products (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS supplies (
		id            CHAR(36) PRIMARY KEY,
		supply_number VARCHAR(32) NOT NULL,
		warehouse_id  CHAR(36) NOT NULL,
		notes         TEXT,
		created_at    DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_supplies_number (supply_number),
		CONSTRAINT fk_supplies_warehouse FOREIGN KEY (warehouse_id) REFERENCES warehouses (id)
	)`,
	`CREATE TABLE IF NOT EXISTS supply_items (
		id         CHAR(36) PRIMARY KEY,
		supply_id  CHAR(36) NOT NULL,
		product_id CHAR(36) NOT NULL,
		quantity   INT NOT NULL,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		CONSTRAINT fk_supply_items_supply FOREIGN KEY (supply_id) REFERENCES supplies (id) ON DELETE CASCADE,
		CONSTRAINT fk_supply_items_product FOREIGN KEY (product_id) REFERENCES products (id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_statuses (
		id         CHAR(36) PRIMARY KEY,
		code       VARCHAR(32) NOT NULL,
		name       VARCHAR(128) NOT NULL,
		sort_order INT NOT NULL DEFAULT 0,
		UNIQUE KEY uq_order_statuses_code (code)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                CHAR(36) PRIMARY KEY,
		order_number      VARCHAR(32) NOT NULL,
		external_order_id VARCHAR(128) NOT NULL,
		warehouse_id      CHAR(36) NOT NULL,
		status_id         CHAR(36) NOT NULL,
		customer_name     VARCHAR(255) NOT NULL DEFAULT '',
		customer_email    VARCHAR(255) NOT NULL DEFAULT '',
		customer_phone    VARCHAR(64) NOT NULL DEFAULT '',
		shipping_address  TEXT,
		notes             TEXT,
		subtotal          DECIMAL(12,2) NOT NULL DEFAULT 0,
		shipping_cost     DECIMAL(12,2) NOT NULL DEFAULT 0,
		total_amount      DECIMAL(12,2) NOT NULL DEFAULT 0,
		tracking_number   VARCHAR(128) NOT NULL DEFAULT '',
		created_at        DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at        DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		shipped_at        DATETIME(3) NULL,
		UNIQUE KEY uq_orders_number (order_number),
		UNIQUE KEY uq_orders_external_id (external_order_id),
		CONSTRAINT fk_orders_warehouse FOREIGN KEY (warehouse_id) REFERENCES warehouses (id),
		CONSTRAINT fk_orders_status FOREIGN KEY (status_id) REFERENCES order_statuses (id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id           CHAR(36) PRIMARY KEY,
		order_id     CHAR(36) NOT NULL,
		product_id   CHAR(36) NOT NULL,
		quantity     INT NOT NULL,
		price        DECIMAL(12,2) NOT NULL,
		total_amount DECIMAL(12,2) NOT NULL,
		created_at   DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders (id) ON DELETE CASCADE,
		CONSTRAINT fk_order_items_product FOREIGN KEY (product_id) REFERENCES products (id)
	)`,
	`CREATE TABLE IF NOT EXISTS sequence_counters (
		scope VARCHAR(8) NOT NULL,
		year  INT NOT NULL,
		seq   INT NOT NULL DEFAULT 0,
		PRIMARY KEY (scope, year)
	)`,
}

var seedStatuses = []domain.OrderStatus{
	{Code: domain.StatusNew, Name: "New", SortOrder: 1},
	{Code: domain.StatusConfirmed, Name: "Confirmed", SortOrder: 2},
	{Code: domain.StatusPaid, Name: "Paid", SortOrder: 3},
	{Code: domain.StatusProcessing, Name: "Processing", SortOrder: 4},
	{Code: domain.StatusShipped, Name: "Shipped", SortOrder: 5},
	{Code: domain.StatusDelivered, Name: "Delivered", SortOrder: 6},
	{Code: domain.StatusCancelled, Name: "Cancelled", SortOrder: 7},
	{Code: domain.StatusRefunded, Name: "Refunded", SortOrder: 8},
}

// Migrate creates the schema and seeds the status vocabulary.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	for _, st := range seedStatuses {
		_, err := m.db.ExecContext(ctx, `
			INSERT IGNORE INTO order_statuses (id, code, name, sort_order)
			VALUES (?, ?, ?, ?)`,
			uuid.NewString(), st.Code, st.Name, st.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("seed status %s: %w", st.Code, err)
		}
	}
	return nil
}

func (m *MySQLAdapter) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// AdjustQuantity applies a signed delta in one transaction. The row is
// locked with SELECT ... FOR UPDATE so concurrent adjustments on the same
// (warehouse, product) pair serialize and the non-negative invariant holds.
func (m *MySQLAdapter) AdjustQuantity(ctx context.Context, warehouseID, productID string, delta int) (*domain.InventoryRecord, error) {
	var rec *domain.InventoryRecord
	err := m.withTx(ctx, func(tx *sql.Tx) error {
		r, err := m.adjustTx(ctx, tx, warehouseID, productID, delta)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// adjustTx is the single choke point for strict quantity writes. Callers
// composing larger transactions (supply intake, line edits) go through it
// so the validate-then-write step never observes a value it did not lock.
func (m *MySQLAdapter) adjustTx(ctx context.Context, tx *sql.Tx, warehouseID, productID string, delta int) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := tx.QueryRowContext(ctx, `
		SELECT id, warehouse_id, product_id, quantity, updated_at
		FROM inventory
		WHERE warehouse_id = ? AND product_id = ?
		FOR UPDATE`,
		warehouseID, productID,
	).Scan(&rec.ID, &rec.WarehouseID, &rec.ProductID, &rec.Quantity, &rec.UpdatedAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if delta < 0 {
			return nil, &domain.InsufficientStockError{
				WarehouseID: warehouseID,
				ProductID:   productID,
				Available:   0,
				Requested:   -delta,
			}
		}
		// Lazily create the record; ON DUPLICATE KEY absorbs a
		// concurrent first-insert on the same pair.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO inventory (id, warehouse_id, product_id, quantity)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), updated_at = NOW(3)`,
			uuid.NewString(), warehouseID, productID, delta,
		)
		if err != nil {
			return nil, fmt.Errorf("insert inventory: %w", err)
		}
		return m.getInventoryTx(ctx, tx, warehouseID, productID)

	case err != nil:
		return nil, fmt.Errorf("lock inventory: %w", err)
	}

	newQuantity := rec.Quantity + delta
	if newQuantity < 0 {
		return nil, &domain.InsufficientStockError{
			WarehouseID: warehouseID,
			ProductID:   productID,
			Available:   rec.Quantity,
			Requested:   -delta,
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE inventory SET quantity = ?, updated_at = NOW(3) WHERE id = ?`,
		newQuantity, rec.ID,
	); err != nil {
		return nil, fmt.Errorf("update inventory: %w", err)
	}

	return m.getInventoryTx(ctx, tx, warehouseID, productID)
}

// releaseTx decreases a quantity saturating at zero. Used by compensating
// deletions, which must succeed even if stock was consumed since intake.
func (m *MySQLAdapter) releaseTx(ctx context.Context, tx *sql.Tx, warehouseID, productID string, quantity int) (*domain.InventoryRecord, error) {
	_, err := tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = GREATEST(quantity - ?, 0), updated_at = NOW(3)
		WHERE warehouse_id = ? AND product_id = ?`,
		quantity, warehouseID, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("release inventory: %w", err)
	}
	return m.getInventoryTx(ctx, tx, warehouseID, productID)
}

func (m *MySQLAdapter) getInventoryTx(ctx context.Context, tx *sql.Tx, warehouseID, productID string) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := tx.QueryRowContext(ctx, `
		SELECT id, warehouse_id, product_id, quantity, updated_at
		FROM inventory
		WHERE warehouse_id = ? AND product_id = ?`,
		warehouseID, productID,
	).Scan(&rec.ID, &rec.WarehouseID, &rec.ProductID, &rec.Quantity, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &rec, nil
}

func (m *MySQLAdapter) GetByWarehouseAndProduct(ctx context.Context, warehouseID, productID string) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := m.db.QueryRowContext(ctx, `
		SELECT id, warehouse_id, product_id, quantity, updated_at
		FROM inventory
		WHERE warehouse_id = ? AND product_id = ?`,
		warehouseID, productID,
	).Scan(&rec.ID, &rec.WarehouseID, &rec.ProductID, &rec.Quantity, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &rec, nil
}

func (m *MySQLAdapter) ListLowStock(ctx context.Context, warehouseID string, threshold int) ([]domain.InventoryRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, warehouse_id, product_id, quantity, updated_at
		FROM inventory
		WHERE warehouse_id = ? AND quantity > 0 AND quantity < ?
		ORDER BY quantity ASC, product_id`,
		warehouseID, threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("query low stock: %w", err)
	}
	defer rows.Close()

	var out []domain.InventoryRecord
	for rows.Next() {
		var rec domain.InventoryRecord
		if err := rows.Scan(&rec.ID, &rec.WarehouseID, &rec.ProductID, &rec.Quantity, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// nextSequenceTx atomically advances the per-(scope, year) counter. The
// counter row stays locked until the surrounding transaction commits, so
// concurrent creators in the same year serialize here and numbers are
// never duplicated. Deleted documents do not return their numbers.
func (m *MySQLAdapter) nextSequenceTx(ctx context.Context, tx *sql.Tx, scope string, year int) (int, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sequence_counters (scope, year, seq) VALUES (?, ?, 1)
		ON DUPLICATE KEY UPDATE seq = seq + 1`,
		scope, year,
	); err != nil {
		return 0, fmt.Errorf("advance sequence %s-%d: %w", scope, year, err)
	}

	var seq int
	err := tx.QueryRowContext(ctx, `
		SELECT seq FROM sequence_counters WHERE scope = ? AND year = ? FOR UPDATE`,
		scope, year,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("read sequence %s-%d: %w", scope, year, err)
	}
	return seq, nil
}

func formatDocumentNumber(scope string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%05d", scope, year, seq)
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func (m *MySQLAdapter) GetWarehouse(ctx context.Context, id string) (*domain.Warehouse, error) {
	var w domain.Warehouse
	var description sql.NullString
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, state, city, description, is_active, created_at, updated_at
		FROM warehouses WHERE id = ?`, id,
	).Scan(&w.ID, &w.Name, &w.State, &w.City, &description, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query warehouse: %w", err)
	}
	w.Description = description.String
	return &w, nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	var description sql.NullString
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, sku, description, cost_price, is_active, created_at, updated_at
		FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.SKU, &description, &p.CostPrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	p.Description = description.String
	return &p, nil
}
