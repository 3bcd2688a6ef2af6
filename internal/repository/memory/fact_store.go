// internal/repository/memory/fact_store.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/repository"
)

// FactStore is an in-memory fact adapter used by tests and dry runs.
type FactStore struct {
	mu        sync.RWMutex
	snapshots map[domain.Pair][]domain.InventorySnapshot
	sales     map[domain.Pair][]domain.SalesRecord
	now       func() time.Time

	// listErr / factErr simulate fact-store outages.
	listErr error
	factErr error
}

// Verify interface compliance
var _ repository.FactStore = (*FactStore)(nil)

func NewFactStore() *FactStore {
	return &FactStore{
		snapshots: make(map[domain.Pair][]domain.InventorySnapshot),
		sales:     make(map[domain.Pair][]domain.SalesRecord),
		now:       time.Now,
	}
}

// SetNow overrides the clock used to bound sales windows.
func (s *FactStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailWith makes every subsequent call return the given error.
func (s *FactStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
	s.factErr = err
}

// AddSnapshot records an inventory snapshot fact.
func (s *FactStore) AddSnapshot(snap domain.InventorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair := domain.Pair{ProductID: snap.ProductID, WarehouseID: snap.WarehouseID}
	s.snapshots[pair] = append(s.snapshots[pair], snap)
}

// AddSale records a sales fact.
func (s *FactStore) AddSale(sale domain.SalesRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair := domain.Pair{ProductID: sale.ProductID, WarehouseID: sale.WarehouseID}
	s.sales[pair] = append(s.sales[pair], sale)
}

func (s *FactStore) ListPairs(ctx context.Context, scope domain.RunScope) ([]domain.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listErr != nil {
		return nil, s.listErr
	}

	pairs := make([]domain.Pair, 0, len(s.snapshots))
	for pair := range s.snapshots {
		if scope.Contains(pair.WarehouseID) {
			pairs = append(pairs, pair)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].WarehouseID != pairs[j].WarehouseID {
			return pairs[i].WarehouseID < pairs[j].WarehouseID
		}
		return pairs[i].ProductID < pairs[j].ProductID
	})
	return pairs, nil
}

func (s *FactStore) GetLatestInventory(ctx context.Context, productID domain.ProductID, warehouseID domain.WarehouseID) (*domain.InventorySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.factErr != nil {
		return nil, s.factErr
	}

	snaps := s.snapshots[domain.Pair{ProductID: productID, WarehouseID: warehouseID}]
	if len(snaps) == 0 {
		return nil, nil
	}

	latest := snaps[0]
	for _, snap := range snaps[1:] {
		if snap.SnapshotAt.After(latest.SnapshotAt) {
			latest = snap
		}
	}
	return &latest, nil
}

func (s *FactStore) GetSalesHistory(ctx context.Context, productID domain.ProductID, warehouseID domain.WarehouseID, windowDays int) ([]domain.SalesRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.factErr != nil {
		return nil, s.factErr
	}

	cutoff := s.now().AddDate(0, 0, -windowDays)
	var result []domain.SalesRecord
	for _, sale := range s.sales[domain.Pair{ProductID: productID, WarehouseID: warehouseID}] {
		if !sale.SaleDate.Before(cutoff) {
			result = append(result, sale)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SaleDate.Before(result[j].SaleDate) })
	return result, nil
}
