// internal/repository/repository.go
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/warestock/replenishd/internal/domain"
)

// FactStore is the read-only adapter over inventory snapshots and sales
// history. Facts are owned by the ingestion pipeline; the engine never writes
// them.
type FactStore interface {
	// ListPairs enumerates every (product, warehouse) pair with at least one
	// snapshot inside the scope.
	ListPairs(ctx context.Context, scope domain.RunScope) ([]domain.Pair, error)

	// GetLatestInventory returns the most recent snapshot for the pair, or
	// nil when the pair has none.
	GetLatestInventory(ctx context.Context, productID domain.ProductID, warehouseID domain.WarehouseID) (*domain.InventorySnapshot, error)

	// GetSalesHistory returns sales records inside the trailing window.
	GetSalesHistory(ctx context.Context, productID domain.ProductID, warehouseID domain.WarehouseID, windowDays int) ([]domain.SalesRecord, error)
}

// ConfigProvider supplies the active replenishment policy for a run.
type ConfigProvider interface {
	ActiveConfig(ctx context.Context) (domain.ReplenishmentConfig, error)
}

// StaticConfigProvider serves a fixed policy, typically the one loaded from
// the environment at startup.
type StaticConfigProvider struct {
	Config domain.ReplenishmentConfig
}

func (p StaticConfigProvider) ActiveConfig(ctx context.Context) (domain.ReplenishmentConfig, error) {
	return p.Config, nil
}

// RunStore persists run output and serves the latest committed state.
// CommitRun is all-or-nothing: readers see either the complete prior run or
// the complete new run, never a mix.
type RunStore interface {
	// CreateRun registers a run in the running state. It fails with
	// ErrRunInProgress when another running run overlaps the scope.
	CreateRun(ctx context.Context, run *domain.RunRecord) error

	// CommitRun persists the run's full metric and recommendation sets and
	// flips the latest-run pointer for every warehouse in scope, atomically.
	CommitRun(ctx context.Context, run *domain.RunRecord, metrics []domain.ComputedMetric, recs []domain.Recommendation) error

	// MarkRunFailed records a run-level error. No run data becomes visible.
	MarkRunFailed(ctx context.Context, runID uuid.UUID, message string) error

	GetRun(ctx context.Context, runID uuid.UUID) (*domain.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// LatestRecommendations reads recommendations of the latest committed run
	// per warehouse, filtered and paginated. The int return is the total
	// matching count before pagination.
	LatestRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, int, error)

	// LatestMetrics is the metric counterpart of LatestRecommendations.
	LatestMetrics(ctx context.Context, filter domain.MetricFilter) ([]domain.ComputedMetric, int, error)

	// RunRecommendations returns one committed run's recommendations in
	// priority order, for exports and audits.
	RunRecommendations(ctx context.Context, runID uuid.UUID) ([]domain.Recommendation, error)
}
