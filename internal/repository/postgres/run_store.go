// internal/repository/postgres/run_store.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/repository"
)

// runScopeLockKey serializes scope-overlap checks across processes. The lock
// is transaction-scoped, so it only guards the check-and-insert window.
const runScopeLockKey = int64(0x5245504c) // "REPL"

const insertBatchSize = 500

type runStore struct {
	db *DB
}

func NewRunStore(db *DB) repository.RunStore {
	return &runStore{db: db}
}

type runRow struct {
	ID                  uuid.UUID      `db:"id"`
	WarehouseScope      pq.StringArray `db:"warehouse_scope"`
	Status              string         `db:"status"`
	PairCount           int            `db:"pair_count"`
	MetricCount         int            `db:"metric_count"`
	RecommendationCount int            `db:"recommendation_count"`
	SkippedCount        int            `db:"skipped_count"`
	StartedAt           time.Time      `db:"started_at"`
	CompletedAt         *time.Time     `db:"completed_at"`
	ErrorMessage        string         `db:"error_message"`
}

func (r runRow) toDomain() domain.RunRecord {
	scope := domain.RunScope{}
	for _, w := range r.WarehouseScope {
		scope.WarehouseIDs = append(scope.WarehouseIDs, domain.WarehouseID(w))
	}
	return domain.RunRecord{
		ID:     r.ID,
		Scope:  scope,
		Status: domain.RunStatus(r.Status),
		Counts: domain.RunCounts{
			Pairs:           r.PairCount,
			Metrics:         r.MetricCount,
			Recommendations: r.RecommendationCount,
			Skipped:         r.SkippedCount,
		},
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		ErrorMessage: r.ErrorMessage,
	}
}

func (s *runStore) CreateRun(ctx context.Context, run *domain.RunRecord) error {
	scope := pq.Array(warehouseIDStrings(run.Scope.WarehouseIDs))

	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, runScopeLockKey); err != nil {
			return fmt.Errorf("error acquiring scope lock: %w", err)
		}

		var overlapping int
		overlapQuery := `
			SELECT COUNT(*)
			FROM replenishment_runs
			WHERE status = 'running'
			  AND (cardinality(warehouse_scope) = 0
			       OR cardinality($1::text[]) = 0
			       OR warehouse_scope && $1::text[])
		`
		if err := tx.GetContext(ctx, &overlapping, overlapQuery, scope); err != nil {
			return fmt.Errorf("error checking overlapping runs: %w", err)
		}
		if overlapping > 0 {
			return domain.ErrRunInProgress
		}

		insert := `
			INSERT INTO replenishment_runs (id, warehouse_scope, status, started_at)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.ExecContext(ctx, insert, run.ID, scope, string(run.Status), run.StartedAt); err != nil {
			return fmt.Errorf("error creating run: %w", err)
		}
		return nil
	})
}

func (s *runStore) CommitRun(ctx context.Context, run *domain.RunRecord, metrics []domain.ComputedMetric, recs []domain.Recommendation) error {
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertMetrics(ctx, tx, metrics); err != nil {
			return err
		}
		if err := insertRecommendations(ctx, tx, recs); err != nil {
			return err
		}

		// Flip the latest pointer for every warehouse the run covered,
		// including scoped warehouses that produced no pairs.
		for _, warehouseID := range pointerWarehouses(run.Scope, metrics) {
			upsert := `
				INSERT INTO latest_runs (warehouse_id, run_id, updated_at)
				VALUES ($1, $2, now())
				ON CONFLICT (warehouse_id)
				DO UPDATE SET run_id = EXCLUDED.run_id, updated_at = now()
			`
			if _, err := tx.ExecContext(ctx, upsert, string(warehouseID), run.ID); err != nil {
				return fmt.Errorf("error updating latest pointer for %s: %w", warehouseID, err)
			}
		}

		update := `
			UPDATE replenishment_runs
			SET status = $2,
			    pair_count = $3,
			    metric_count = $4,
			    recommendation_count = $5,
			    skipped_count = $6,
			    completed_at = now()
			WHERE id = $1
		`
		res, err := tx.ExecContext(ctx, update, run.ID, string(domain.RunStatusCommitted),
			run.Counts.Pairs, run.Counts.Metrics, run.Counts.Recommendations, run.Counts.Skipped)
		if err != nil {
			return fmt.Errorf("error finalizing run: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("run %s not found at commit", run.ID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	run.Status = domain.RunStatusCommitted
	now := time.Now()
	run.CompletedAt = &now
	return nil
}

func insertMetrics(ctx context.Context, tx *sqlx.Tx, metrics []domain.ComputedMetric) error {
	query := `
		INSERT INTO computed_metrics
			(product_id, warehouse_id, ads, current_stock, days_of_stock,
			 liquidity_status, reason_code, computed_at, run_id)
		VALUES
			(:product_id, :warehouse_id, :ads, :current_stock, :days_of_stock,
			 :liquidity_status, :reason_code, :computed_at, :run_id)
	`
	for start := 0; start < len(metrics); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(metrics) {
			end = len(metrics)
		}
		if _, err := tx.NamedExecContext(ctx, query, metrics[start:end]); err != nil {
			return fmt.Errorf("error inserting metrics: %w", err)
		}
	}
	return nil
}

func insertRecommendations(ctx context.Context, tx *sqlx.Tx, recs []domain.Recommendation) error {
	query := `
		INSERT INTO recommendations
			(product_id, warehouse_id, run_id, recommended_quantity, priority,
			 reason_code, liquidity_status, ads, days_of_stock)
		VALUES
			(:product_id, :warehouse_id, :run_id, :recommended_quantity, :priority,
			 :reason_code, :liquidity_status, :ads, :days_of_stock)
	`
	for start := 0; start < len(recs); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(recs) {
			end = len(recs)
		}
		if _, err := tx.NamedExecContext(ctx, query, recs[start:end]); err != nil {
			return fmt.Errorf("error inserting recommendations: %w", err)
		}
	}
	return nil
}

func (s *runStore) MarkRunFailed(ctx context.Context, runID uuid.UUID, message string) error {
	query := `
		UPDATE replenishment_runs
		SET status = $2, error_message = $3, completed_at = now()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, runID, string(domain.RunStatusFailed), message)
	if err != nil {
		return fmt.Errorf("error marking run failed: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (s *runStore) GetRun(ctx context.Context, runID uuid.UUID) (*domain.RunRecord, error) {
	query := `
		SELECT id, warehouse_scope, status, pair_count, metric_count,
		       recommendation_count, skipped_count, started_at, completed_at,
		       COALESCE(error_message, '') AS error_message
		FROM replenishment_runs
		WHERE id = $1
	`

	var row runRow
	err := s.db.GetContext(ctx, &row, query, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting run: %w", err)
	}

	run := row.toDomain()
	return &run, nil
}

func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 30
	}

	query := `
		SELECT id, warehouse_scope, status, pair_count, metric_count,
		       recommendation_count, skipped_count, started_at, completed_at,
		       COALESCE(error_message, '') AS error_message
		FROM replenishment_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("error listing runs: %w", err)
	}

	runs := make([]domain.RunRecord, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.toDomain())
	}
	return runs, nil
}

func (s *runStore) LatestRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, int, error) {
	base := `
		FROM recommendations r
		JOIN latest_runs lr
		  ON lr.warehouse_id = r.warehouse_id AND lr.run_id = r.run_id
		WHERE 1=1
	`

	var args []interface{}
	var conditions []string
	argCounter := 1

	if len(filter.WarehouseIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.warehouse_id = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(warehouseIDStrings(filter.WarehouseIDs)))
		argCounter++
	}

	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.liquidity_status = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		argCounter++
	}

	if filter.MaxPriority > 0 {
		conditions = append(conditions, fmt.Sprintf("r.priority <= $%d", argCounter))
		args = append(args, filter.MaxPriority)
		argCounter++
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting recommendations: %w", err)
	}

	query := `
		SELECT r.product_id, r.warehouse_id, r.run_id, r.recommended_quantity,
		       r.priority, r.reason_code, r.liquidity_status, r.ads, r.days_of_stock
	` + base + recommendationOrderClause(filter.SortBy, filter.SortDir)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	var recs []domain.Recommendation
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error getting recommendations: %w", err)
	}
	return recs, total, nil
}

func (s *runStore) LatestMetrics(ctx context.Context, filter domain.MetricFilter) ([]domain.ComputedMetric, int, error) {
	base := `
		FROM computed_metrics m
		JOIN latest_runs lr
		  ON lr.warehouse_id = m.warehouse_id AND lr.run_id = m.run_id
		WHERE 1=1
	`

	var args []interface{}
	var conditions []string
	argCounter := 1

	if len(filter.WarehouseIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("m.warehouse_id = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(warehouseIDStrings(filter.WarehouseIDs)))
		argCounter++
	}

	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("m.liquidity_status = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		argCounter++
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting metrics: %w", err)
	}

	query := `
		SELECT m.product_id, m.warehouse_id, m.ads, m.current_stock, m.days_of_stock,
		       m.liquidity_status, m.reason_code, m.computed_at, m.run_id
	` + base + metricOrderClause(filter.SortBy, filter.SortDir)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	var metrics []domain.ComputedMetric
	if err := s.db.SelectContext(ctx, &metrics, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error getting metrics: %w", err)
	}
	return metrics, total, nil
}

func (s *runStore) RunRecommendations(ctx context.Context, runID uuid.UUID) ([]domain.Recommendation, error) {
	query := `
		SELECT product_id, warehouse_id, run_id, recommended_quantity, priority,
		       reason_code, liquidity_status, ads, days_of_stock
		FROM recommendations
		WHERE run_id = $1
		ORDER BY priority
	`

	var recs []domain.Recommendation
	if err := s.db.SelectContext(ctx, &recs, query, runID); err != nil {
		return nil, fmt.Errorf("error getting run recommendations: %w", err)
	}
	return recs, nil
}

// recommendationOrderClause whitelists sortable columns; anything else falls
// back to priority order.
func recommendationOrderClause(sortBy, sortDir string) string {
	column := "r.priority"
	switch sortBy {
	case domain.SortByDaysOfStock:
		column = "r.days_of_stock"
	case domain.SortByRecommendedQuantity:
		column = "r.recommended_quantity"
	}

	direction := "ASC"
	if sortDir == "desc" {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s NULLS LAST, r.warehouse_id, r.product_id", column, direction)
}

func metricOrderClause(sortBy, sortDir string) string {
	column := "m.warehouse_id, m.product_id"
	switch sortBy {
	case domain.SortByDaysOfStock:
		column = "m.days_of_stock"
	}

	direction := "ASC"
	if sortDir == "desc" {
		direction = "DESC"
	}
	if column == "m.warehouse_id, m.product_id" {
		return " ORDER BY m.warehouse_id, m.product_id"
	}
	return fmt.Sprintf(" ORDER BY %s %s NULLS LAST, m.warehouse_id, m.product_id", column, direction)
}

func pointerWarehouses(scope domain.RunScope, metrics []domain.ComputedMetric) []domain.WarehouseID {
	seen := make(map[domain.WarehouseID]struct{}, len(metrics))
	var out []domain.WarehouseID
	add := func(id domain.WarehouseID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, metric := range metrics {
		add(metric.WarehouseID)
	}
	for _, warehouseID := range scope.WarehouseIDs {
		add(warehouseID)
	}
	return out
}

func statusStrings(statuses []domain.LiquidityStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
