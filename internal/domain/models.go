// internal/domain/models.go
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProductID is the normalized product identifier. Upstream feeds mix numeric
// SKUs and free-form codes; NormalizeProductID is the only way to build one.
type ProductID string

// WarehouseID is the normalized warehouse identifier.
type WarehouseID string

// NormalizeProductID trims and uppercases a raw upstream product identifier.
func NormalizeProductID(raw string) ProductID {
	return ProductID(strings.ToUpper(strings.TrimSpace(raw)))
}

// NormalizeWarehouseID trims and uppercases a raw upstream warehouse identifier.
func NormalizeWarehouseID(raw string) WarehouseID {
	return WarehouseID(strings.ToUpper(strings.TrimSpace(raw)))
}

// Pair identifies one (product, warehouse) combination.
type Pair struct {
	ProductID   ProductID   `json:"product_id" db:"product_id"`
	WarehouseID WarehouseID `json:"warehouse_id" db:"warehouse_id"`
}

// InventorySnapshot is an immutable stock fact owned by the ingestion
// pipeline. The engine only ever reads the latest snapshot per pair.
type InventorySnapshot struct {
	ProductID      ProductID   `json:"product_id" db:"product_id"`
	WarehouseID    WarehouseID `json:"warehouse_id" db:"warehouse_id"`
	AvailableStock int         `json:"available_stock" db:"available_stock"`
	ReservedStock  int         `json:"reserved_stock" db:"reserved_stock"`
	SnapshotAt     time.Time   `json:"snapshot_at" db:"snapshot_at"`
}

// SalesRecord is an append-only sales fact.
type SalesRecord struct {
	ProductID    ProductID   `json:"product_id" db:"product_id"`
	WarehouseID  WarehouseID `json:"warehouse_id" db:"warehouse_id"`
	SaleDate     time.Time   `json:"sale_date" db:"sale_date"`
	QuantitySold int         `json:"quantity_sold" db:"quantity_sold"`
}

// ComputedMetric is the derived stock-health row for one pair, fully
// recomputed each run. DaysOfStock is nil when the pair has no demand signal
// (ads == 0); callers must branch on that, it is neither zero nor infinity.
type ComputedMetric struct {
	ProductID       ProductID       `json:"product_id" db:"product_id"`
	WarehouseID     WarehouseID     `json:"warehouse_id" db:"warehouse_id"`
	ADS             float64         `json:"ads" db:"ads"`
	CurrentStock    int             `json:"current_stock" db:"current_stock"`
	DaysOfStock     *float64        `json:"days_of_stock" db:"days_of_stock"`
	LiquidityStatus LiquidityStatus `json:"liquidity_status" db:"liquidity_status"`
	ReasonCode      string          `json:"reason_code" db:"reason_code"`
	ComputedAt      time.Time       `json:"computed_at" db:"computed_at"`
	RunID           uuid.UUID       `json:"run_id" db:"run_id"`
}

// HasDemand reports whether the pair sold anything inside the lookback window.
func (m *ComputedMetric) HasDemand() bool {
	return m.DaysOfStock != nil
}

// Recommendation is a reorder proposal derived from a critical or low metric.
// ADS, DaysOfStock and LiquidityStatus are carried along so the run's priority
// order can be rebuilt and filtered without joining back to metrics.
type Recommendation struct {
	ProductID           ProductID       `json:"product_id" db:"product_id"`
	WarehouseID         WarehouseID     `json:"warehouse_id" db:"warehouse_id"`
	RunID               uuid.UUID       `json:"run_id" db:"run_id"`
	RecommendedQuantity int             `json:"recommended_quantity" db:"recommended_quantity"`
	Priority            int             `json:"priority" db:"priority"`
	ReasonCode          string          `json:"reason_code" db:"reason_code"`
	LiquidityStatus     LiquidityStatus `json:"liquidity_status" db:"liquidity_status"`
	ADS                 float64         `json:"ads" db:"ads"`
	DaysOfStock         *float64        `json:"days_of_stock" db:"days_of_stock"`
}

// RunStatus is the lifecycle state of a recomputation run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCommitted RunStatus = "committed"
	RunStatusFailed    RunStatus = "failed"
)

// RunScope bounds a run to a warehouse set. An empty warehouse list means the
// full catalog; such a scope overlaps every other scope.
type RunScope struct {
	WarehouseIDs []WarehouseID `json:"warehouse_ids"`
}

// Overlaps reports whether two scopes share at least one warehouse.
func (s RunScope) Overlaps(other RunScope) bool {
	if len(s.WarehouseIDs) == 0 || len(other.WarehouseIDs) == 0 {
		return true
	}
	seen := make(map[WarehouseID]struct{}, len(s.WarehouseIDs))
	for _, w := range s.WarehouseIDs {
		seen[w] = struct{}{}
	}
	for _, w := range other.WarehouseIDs {
		if _, ok := seen[w]; ok {
			return true
		}
	}
	return false
}

// Contains reports whether the scope covers the given warehouse.
func (s RunScope) Contains(w WarehouseID) bool {
	if len(s.WarehouseIDs) == 0 {
		return true
	}
	for _, id := range s.WarehouseIDs {
		if id == w {
			return true
		}
	}
	return false
}

// RunCounts summarizes what a run produced.
type RunCounts struct {
	Pairs           int `json:"pairs" db:"pair_count"`
	Metrics         int `json:"metrics" db:"metric_count"`
	Recommendations int `json:"recommendations" db:"recommendation_count"`
	Skipped         int `json:"skipped" db:"skipped_count"`
}

// RunRecord tracks a single execution of the recompute pipeline.
type RunRecord struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Scope        RunScope   `json:"scope" db:"-"`
	Status       RunStatus  `json:"status" db:"status"`
	Counts       RunCounts  `json:"counts"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at" db:"completed_at"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
}

// RunResult is what a triggered run reports back to the caller.
type RunResult struct {
	RunID  uuid.UUID `json:"run_id"`
	Status RunStatus `json:"status"`
	Counts RunCounts `json:"counts"`
}

// Sort fields accepted by the read API.
const (
	SortByPriority            = "priority"
	SortByDaysOfStock         = "days_of_stock"
	SortByRecommendedQuantity = "recommended_quantity"
)

// RecommendationFilter narrows latest-recommendation reads. MaxPriority keeps
// only ranks <= the given value (rank 1 is the most urgent); zero disables it.
type RecommendationFilter struct {
	WarehouseIDs []WarehouseID     `json:"warehouse_ids"`
	Statuses     []LiquidityStatus `json:"statuses"`
	MaxPriority  int               `json:"max_priority"`
	SortBy       string            `json:"sort_by"`
	SortDir      string            `json:"sort_dir"`
	Limit        int               `json:"limit"`
	Offset       int               `json:"offset"`
}

// MetricFilter narrows latest-metric reads.
type MetricFilter struct {
	WarehouseIDs []WarehouseID     `json:"warehouse_ids"`
	Statuses     []LiquidityStatus `json:"statuses"`
	SortBy       string            `json:"sort_by"`
	SortDir      string            `json:"sort_dir"`
	Limit        int               `json:"limit"`
	Offset       int               `json:"offset"`
}
