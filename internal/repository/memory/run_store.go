// internal/repository/memory/run_store.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/repository"
)

// RunStore is an in-memory run store with the same atomic-commit semantics as
// the Postgres implementation: a commit either lands completely or not at all.
type RunStore struct {
	mu        sync.RWMutex
	runs      map[uuid.UUID]*domain.RunRecord
	metrics   map[uuid.UUID][]domain.ComputedMetric
	recs      map[uuid.UUID][]domain.Recommendation
	latest    map[domain.WarehouseID]uuid.UUID
	commitErr error
}

// Verify interface compliance
var _ repository.RunStore = (*RunStore)(nil)

func NewRunStore() *RunStore {
	return &RunStore{
		runs:    make(map[uuid.UUID]*domain.RunRecord),
		metrics: make(map[uuid.UUID][]domain.ComputedMetric),
		recs:    make(map[uuid.UUID][]domain.Recommendation),
		latest:  make(map[domain.WarehouseID]uuid.UUID),
	}
}

// FailNextCommit makes the next CommitRun fail without persisting anything.
func (s *RunStore) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

func (s *RunStore) CreateRun(ctx context.Context, run *domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.runs {
		if existing.Status == domain.RunStatusRunning && existing.Scope.Overlaps(run.Scope) {
			return domain.ErrRunInProgress
		}
	}

	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

func (s *RunStore) CommitRun(ctx context.Context, run *domain.RunRecord, metrics []domain.ComputedMetric, recs []domain.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.commitErr != nil {
		err := s.commitErr
		s.commitErr = nil
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	stored, ok := s.runs[run.ID]
	if !ok {
		return fmt.Errorf("%w: commit for unknown run %s", domain.ErrPersistence, run.ID)
	}

	s.metrics[run.ID] = append([]domain.ComputedMetric(nil), metrics...)
	s.recs[run.ID] = append([]domain.Recommendation(nil), recs...)
	for _, metric := range metrics {
		s.latest[metric.WarehouseID] = run.ID
	}
	// Scoped warehouses flip even when they produced no pairs, so a commit
	// supersedes the prior run for its whole scope.
	for _, warehouseID := range stored.Scope.WarehouseIDs {
		s.latest[warehouseID] = run.ID
	}

	now := time.Now()
	stored.Status = domain.RunStatusCommitted
	stored.Counts = run.Counts
	stored.CompletedAt = &now
	run.Status = stored.Status
	run.CompletedAt = stored.CompletedAt
	return nil
}

func (s *RunStore) MarkRunFailed(ctx context.Context, runID uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return domain.ErrRunNotFound
	}

	now := time.Now()
	run.Status = domain.RunStatusFailed
	run.ErrorMessage = message
	run.CompletedAt = &now
	return nil
}

func (s *RunStore) GetRun(ctx context.Context, runID uuid.UUID) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	copied := *run
	return &copied, nil
}

func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]domain.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *RunStore) LatestRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Recommendation
	for warehouseID, runID := range s.latest {
		if !warehouseInFilter(warehouseID, filter.WarehouseIDs) {
			continue
		}
		for _, rec := range s.recs[runID] {
			if rec.WarehouseID != warehouseID {
				continue
			}
			if len(filter.Statuses) > 0 && !statusInFilter(rec.LiquidityStatus, filter.Statuses) {
				continue
			}
			if filter.MaxPriority > 0 && rec.Priority > filter.MaxPriority {
				continue
			}
			matched = append(matched, rec)
		}
	}

	sortRecommendations(matched, filter.SortBy, filter.SortDir)
	total := len(matched)
	return paginateRecs(matched, filter.Limit, filter.Offset), total, nil
}

func (s *RunStore) LatestMetrics(ctx context.Context, filter domain.MetricFilter) ([]domain.ComputedMetric, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.ComputedMetric
	for warehouseID, runID := range s.latest {
		if !warehouseInFilter(warehouseID, filter.WarehouseIDs) {
			continue
		}
		for _, metric := range s.metrics[runID] {
			if metric.WarehouseID != warehouseID {
				continue
			}
			if len(filter.Statuses) > 0 && !statusInFilter(metric.LiquidityStatus, filter.Statuses) {
				continue
			}
			matched = append(matched, metric)
		}
	}

	sortMetrics(matched, filter.SortBy, filter.SortDir)
	total := len(matched)
	return paginateMetrics(matched, filter.Limit, filter.Offset), total, nil
}

func (s *RunStore) RunRecommendations(ctx context.Context, runID uuid.UUID) ([]domain.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, domain.ErrRunNotFound
	}

	recs := append([]domain.Recommendation(nil), s.recs[runID]...)
	sort.Slice(recs, func(i, j int) bool { return recs[i].Priority < recs[j].Priority })
	return recs, nil
}

func warehouseInFilter(id domain.WarehouseID, filter []domain.WarehouseID) bool {
	if len(filter) == 0 {
		return true
	}
	for _, w := range filter {
		if w == id {
			return true
		}
	}
	return false
}

func statusInFilter(status domain.LiquidityStatus, filter []domain.LiquidityStatus) bool {
	for _, s := range filter {
		if s == status {
			return true
		}
	}
	return false
}

func sortRecommendations(recs []domain.Recommendation, sortBy, sortDir string) {
	desc := sortDir == "desc"
	sort.Slice(recs, func(i, j int) bool {
		var a, b float64
		switch sortBy {
		case domain.SortByDaysOfStock:
			a, b = daysOrZero(recs[i].DaysOfStock), daysOrZero(recs[j].DaysOfStock)
		case domain.SortByRecommendedQuantity:
			a, b = float64(recs[i].RecommendedQuantity), float64(recs[j].RecommendedQuantity)
		default:
			a, b = float64(recs[i].Priority), float64(recs[j].Priority)
		}
		if a != b {
			if desc {
				return a > b
			}
			return a < b
		}
		// Equal keys fall through to the same pair-ID order the SQL reads use.
		if recs[i].WarehouseID != recs[j].WarehouseID {
			return recs[i].WarehouseID < recs[j].WarehouseID
		}
		return recs[i].ProductID < recs[j].ProductID
	})
}

func sortMetrics(metrics []domain.ComputedMetric, sortBy, sortDir string) {
	desc := sortDir == "desc"
	sort.Slice(metrics, func(i, j int) bool {
		if sortBy == domain.SortByDaysOfStock {
			a, b := daysOrZero(metrics[i].DaysOfStock), daysOrZero(metrics[j].DaysOfStock)
			if a != b {
				if desc {
					return a > b
				}
				return a < b
			}
		}
		if metrics[i].WarehouseID != metrics[j].WarehouseID {
			return metrics[i].WarehouseID < metrics[j].WarehouseID
		}
		return metrics[i].ProductID < metrics[j].ProductID
	})
}

func paginateRecs(recs []domain.Recommendation, limit, offset int) []domain.Recommendation {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(recs) {
		return nil
	}
	recs = recs[offset:]
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

func paginateMetrics(metrics []domain.ComputedMetric, limit, offset int) []domain.ComputedMetric {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(metrics) {
		return nil
	}
	metrics = metrics[offset:]
	if limit > 0 && len(metrics) > limit {
		metrics = metrics[:limit]
	}
	return metrics
}

func daysOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
