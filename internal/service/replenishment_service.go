// internal/service/replenishment_service.go
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/warestock/replenishd/internal/cache"
	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/repository"
	"github.com/warestock/replenishd/internal/scheduler"
)

// ReplenishmentService is the read/trigger facade the API and CLI sit on.
// Reads always reflect the latest fully committed run.
type ReplenishmentService struct {
	runs   repository.RunStore
	cache  cache.RecommendationCache
	runner *scheduler.Runner
}

func NewReplenishmentService(runs repository.RunStore, cacheImpl cache.RecommendationCache, runner *scheduler.Runner) *ReplenishmentService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopRecommendationCache()
	}
	return &ReplenishmentService{runs: runs, cache: cacheImpl, runner: runner}
}

func (s *ReplenishmentService) GetRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, int, error) {
	if recs, total, ok, err := s.cache.Get(ctx, filter); err == nil && ok {
		return recs, total, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("replenishment: cache get failed")
	}

	recs, total, err := s.runs.LatestRecommendations(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if err := s.cache.Set(ctx, filter, recs, total); err != nil {
		log.Warn().Err(err).Msg("replenishment: cache set failed")
	}

	return recs, total, nil
}

func (s *ReplenishmentService) GetMetrics(ctx context.Context, filter domain.MetricFilter) ([]domain.ComputedMetric, int, error) {
	return s.runs.LatestMetrics(ctx, filter)
}

func (s *ReplenishmentService) GetRun(ctx context.Context, runID uuid.UUID) (*domain.RunRecord, error) {
	return s.runs.GetRun(ctx, runID)
}

func (s *ReplenishmentService) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	return s.runs.ListRuns(ctx, limit)
}

func (s *ReplenishmentService) TriggerRun(ctx context.Context, scope domain.RunScope) (domain.RunResult, error) {
	return s.runner.TriggerRun(ctx, scope)
}
