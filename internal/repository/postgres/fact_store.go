// internal/repository/postgres/fact_store.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/repository"
)

type factStore struct {
	db *DB
}

// NewFactStore returns the read-only adapter over the ingested fact tables.
// Identifiers are normalized here so the engine never sees the mixed formats
// upstream feeds produce.
func NewFactStore(db *DB) repository.FactStore {
	return &factStore{db: db}
}

func (s *factStore) ListPairs(ctx context.Context, scope domain.RunScope) ([]domain.Pair, error) {
	query := `
		SELECT DISTINCT product_id, warehouse_id
		FROM inventory_snapshots
		WHERE (cardinality($1::text[]) = 0 OR warehouse_id = ANY($1::text[]))
		ORDER BY warehouse_id, product_id
	`

	var rows []struct {
		ProductID   string `db:"product_id"`
		WarehouseID string `db:"warehouse_id"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, pq.Array(warehouseIDStrings(scope.WarehouseIDs))); err != nil {
		return nil, fmt.Errorf("error listing pairs: %w", err)
	}

	pairs := make([]domain.Pair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, domain.Pair{
			ProductID:   domain.NormalizeProductID(row.ProductID),
			WarehouseID: domain.NormalizeWarehouseID(row.WarehouseID),
		})
	}
	return pairs, nil
}

func (s *factStore) GetLatestInventory(ctx context.Context, productID domain.ProductID, warehouseID domain.WarehouseID) (*domain.InventorySnapshot, error) {
	query := `
		SELECT product_id, warehouse_id, available_stock, reserved_stock, snapshot_at
		FROM inventory_snapshots
		WHERE product_id = $1 AND warehouse_id = $2
		ORDER BY snapshot_at DESC
		LIMIT 1
	`

	var snap domain.InventorySnapshot
	err := s.db.GetContext(ctx, &snap, query, string(productID), string(warehouseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting latest inventory: %w", err)
	}

	snap.ProductID = domain.NormalizeProductID(string(snap.ProductID))
	snap.WarehouseID = domain.NormalizeWarehouseID(string(snap.WarehouseID))
	return &snap, nil
}

func (s *factStore) GetSalesHistory(ctx context.Context, productID domain.ProductID, warehouseID domain.WarehouseID, windowDays int) ([]domain.SalesRecord, error) {
	query := `
		SELECT product_id, warehouse_id, sale_date, quantity_sold
		FROM sales_records
		WHERE product_id = $1
		  AND warehouse_id = $2
		  AND sale_date >= current_date - $3::int
		ORDER BY sale_date
	`

	var sales []domain.SalesRecord
	if err := s.db.SelectContext(ctx, &sales, query, string(productID), string(warehouseID), windowDays); err != nil {
		return nil, fmt.Errorf("error getting sales history: %w", err)
	}

	for i := range sales {
		sales[i].ProductID = domain.NormalizeProductID(string(sales[i].ProductID))
		sales[i].WarehouseID = domain.NormalizeWarehouseID(string(sales[i].WarehouseID))
	}
	return sales, nil
}

func warehouseIDStrings(ids []domain.WarehouseID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
