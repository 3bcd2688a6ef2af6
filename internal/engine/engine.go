// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/repository"
	"github.com/warestock/replenishd/pkg/logger"
)

// RunOutput is the complete result set for one run, ready to be committed.
type RunOutput struct {
	Metrics         []domain.ComputedMetric
	Recommendations []domain.Recommendation
	Counts          domain.RunCounts
}

// Engine computes a full metric and recommendation set for a scope. Pairs are
// independent, so computation fans out across a bounded worker pool; the
// priority order is assigned only after every pair has finished.
type Engine struct {
	facts      repository.FactStore
	calculator *MetricsCalculator
	classifier *LiquidityClassifier
	generator  *RecommendationGenerator
	workers    int
	log        zerolog.Logger
}

func New(facts repository.FactStore, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		facts:      facts,
		calculator: NewMetricsCalculator(),
		classifier: NewLiquidityClassifier(),
		generator:  NewRecommendationGenerator(),
		workers:    workers,
		log:        logger.Component("engine"),
	}
}

// ComputeRun reads facts for every pair in scope and produces the run's
// replacement sets. A pair whose facts are corrupt is skipped with a logged
// reason; fact-store failures abort the whole run.
func (e *Engine) ComputeRun(ctx context.Context, runID uuid.UUID, scope domain.RunScope, cfg domain.ReplenishmentConfig, computedAt time.Time) (*RunOutput, error) {
	pairs, err := e.facts.ListPairs(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: listing pairs: %v", domain.ErrDataUnavailable, err)
	}

	var (
		mu      sync.Mutex
		metrics = make([]domain.ComputedMetric, 0, len(pairs))
		skipped int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			metric, err := e.computePair(gctx, pair, runID, cfg, computedAt)
			if err != nil {
				if errors.Is(err, domain.ErrComputation) {
					e.log.Warn().
						Str("product_id", string(pair.ProductID)).
						Str("warehouse_id", string(pair.WarehouseID)).
						Err(err).
						Msg("excluding pair from run")
					mu.Lock()
					skipped++
					mu.Unlock()
					return nil
				}
				return err
			}

			mu.Lock()
			metrics = append(metrics, metric)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic order regardless of worker interleaving.
	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].WarehouseID != metrics[j].WarehouseID {
			return metrics[i].WarehouseID < metrics[j].WarehouseID
		}
		return metrics[i].ProductID < metrics[j].ProductID
	})

	recs := make([]domain.Recommendation, 0, len(metrics))
	for i := range metrics {
		rec, skipReason := e.generator.Generate(metrics[i], cfg)
		if rec == nil {
			// The exclusion must stay visible on the metric, but never at
			// the cost of the data-quality flag.
			if skipReason == domain.ReasonBelowMinADS && metrics[i].ReasonCode != domain.ReasonNegativeStockClamped {
				metrics[i].ReasonCode = skipReason
			}
			continue
		}
		recs = append(recs, *rec)
	}
	e.generator.Rank(recs)

	return &RunOutput{
		Metrics:         metrics,
		Recommendations: recs,
		Counts: domain.RunCounts{
			Pairs:           len(pairs),
			Metrics:         len(metrics),
			Recommendations: len(recs),
			Skipped:         skipped,
		},
	}, nil
}

func (e *Engine) computePair(ctx context.Context, pair domain.Pair, runID uuid.UUID, cfg domain.ReplenishmentConfig, computedAt time.Time) (domain.ComputedMetric, error) {
	snapshot, err := e.facts.GetLatestInventory(ctx, pair.ProductID, pair.WarehouseID)
	if err != nil {
		return domain.ComputedMetric{}, fmt.Errorf("%w: latest inventory for %s/%s: %v",
			domain.ErrDataUnavailable, pair.ProductID, pair.WarehouseID, err)
	}

	sales, err := e.facts.GetSalesHistory(ctx, pair.ProductID, pair.WarehouseID, cfg.LookbackDays)
	if err != nil {
		return domain.ComputedMetric{}, fmt.Errorf("%w: sales history for %s/%s: %v",
			domain.ErrDataUnavailable, pair.ProductID, pair.WarehouseID, err)
	}

	metric, err := e.calculator.Calculate(PairFacts{
		ProductID:   pair.ProductID,
		WarehouseID: pair.WarehouseID,
		Snapshot:    snapshot,
		Sales:       sales,
	}, cfg, computedAt)
	if err != nil {
		return domain.ComputedMetric{}, err
	}

	metric.RunID = runID
	e.classifier.Classify(&metric, cfg)
	return metric, nil
}
