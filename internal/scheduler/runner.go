// internal/scheduler/runner.go
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warestock/replenishd/internal/cache"
	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/engine"
	"github.com/warestock/replenishd/internal/repository"
	"github.com/warestock/replenishd/pkg/logger"
)

// Runner orchestrates one recompute pass: read facts, compute, classify,
// generate, persist. Runs over overlapping scopes are serialized; the commit
// is the single point where the run's data becomes visible.
type Runner struct {
	runs    repository.RunStore
	configs repository.ConfigProvider
	engine  *engine.Engine
	cache   cache.RecommendationCache
	log     zerolog.Logger

	mu     sync.Mutex
	active map[uuid.UUID]domain.RunScope
}

func NewRunner(runs repository.RunStore, configs repository.ConfigProvider, eng *engine.Engine, cacheImpl cache.RecommendationCache) *Runner {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopRecommendationCache()
	}
	return &Runner{
		runs:    runs,
		configs: configs,
		engine:  eng,
		cache:   cacheImpl,
		log:     logger.Component("scheduler"),
		active:  make(map[uuid.UUID]domain.RunScope),
	}
}

// TriggerRun executes a full recompute for the scope. On success the returned
// result reflects the committed run; on failure the previous run's data stays
// latest and the error explains which taxonomy class was hit.
func (r *Runner) TriggerRun(ctx context.Context, scope domain.RunScope) (domain.RunResult, error) {
	runID := uuid.New()

	if !r.acquireScope(runID, scope) {
		return domain.RunResult{}, domain.ErrRunInProgress
	}
	defer r.releaseScope(runID)

	run := &domain.RunRecord{
		ID:        runID,
		Scope:     scope,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := r.runs.CreateRun(ctx, run); err != nil {
		return domain.RunResult{}, err
	}

	r.log.Info().
		Str("run_id", runID.String()).
		Int("scope_warehouses", len(scope.WarehouseIDs)).
		Msg("replenishment run started")

	result, err := r.execute(ctx, run)
	if err != nil {
		r.failRun(run, err)
		return domain.RunResult{RunID: runID, Status: domain.RunStatusFailed}, err
	}

	r.log.Info().
		Str("run_id", runID.String()).
		Int("pairs", result.Counts.Pairs).
		Int("recommendations", result.Counts.Recommendations).
		Int("skipped", result.Counts.Skipped).
		Msg("replenishment run committed")

	return result, nil
}

func (r *Runner) execute(ctx context.Context, run *domain.RunRecord) (domain.RunResult, error) {
	cfg, err := r.configs.ActiveConfig(ctx)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("%w: loading config: %v", domain.ErrDataUnavailable, err)
	}
	if err := cfg.Validate(); err != nil {
		return domain.RunResult{}, err
	}

	output, err := r.engine.ComputeRun(ctx, run.ID, run.Scope, cfg, run.StartedAt)
	if err != nil {
		return domain.RunResult{}, err
	}

	// A cancelled run must not become visible.
	if err := ctx.Err(); err != nil {
		return domain.RunResult{}, err
	}

	run.Counts = output.Counts
	if err := r.runs.CommitRun(ctx, run, output.Metrics, output.Recommendations); err != nil {
		return domain.RunResult{}, err
	}

	if err := r.cache.InvalidateAll(ctx); err != nil {
		r.log.Warn().Err(err).Msg("failed to invalidate recommendation cache after commit")
	}

	return domain.RunResult{
		RunID:  run.ID,
		Status: domain.RunStatusCommitted,
		Counts: run.Counts,
	}, nil
}

func (r *Runner) failRun(run *domain.RunRecord, cause error) {
	r.log.Error().
		Str("run_id", run.ID.String()).
		Err(cause).
		Msg("replenishment run failed")

	// Best effort with a fresh context: the run context may already be
	// cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.runs.MarkRunFailed(ctx, run.ID, cause.Error()); err != nil {
		r.log.Error().Err(err).Str("run_id", run.ID.String()).Msg("could not record run failure")
	}
}

func (r *Runner) acquireScope(runID uuid.UUID, scope domain.RunScope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, activeScope := range r.active {
		if activeScope.Overlaps(scope) {
			return false
		}
	}
	r.active[runID] = scope
	return true
}

func (r *Runner) releaseScope(runID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, runID)
}
