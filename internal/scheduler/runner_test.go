package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/engine"
	"github.com/warestock/replenishd/internal/repository"
	"github.com/warestock/replenishd/internal/repository/memory"
)

type fixture struct {
	facts  *memory.FactStore
	runs   *memory.RunStore
	runner *Runner
}

func newFixture(cfg domain.ReplenishmentConfig) *fixture {
	facts := memory.NewFactStore()
	runs := memory.NewRunStore()
	runner := NewRunner(runs, repository.StaticConfigProvider{Config: cfg}, engine.New(facts, 2), nil)
	return &fixture{facts: facts, runs: runs, runner: runner}
}

func seedCriticalPair(facts *memory.FactStore, product domain.ProductID, warehouse domain.WarehouseID) {
	now := time.Now()
	facts.AddSnapshot(domain.InventorySnapshot{
		ProductID:      product,
		WarehouseID:    warehouse,
		AvailableStock: 3,
		SnapshotAt:     now,
	})
	for i := 0; i < 28; i++ {
		facts.AddSale(domain.SalesRecord{
			ProductID:    product,
			WarehouseID:  warehouse,
			SaleDate:     now.AddDate(0, 0, -i),
			QuantitySold: 2,
		})
	}
}

func TestRunner_TriggerRunCommits(t *testing.T) {
	f := newFixture(domain.DefaultReplenishmentConfig())
	seedCriticalPair(f.facts, "SKU-1", "WH-1")

	result, err := f.runner.TriggerRun(context.Background(), domain.RunScope{})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCommitted, result.Status)
	assert.Equal(t, 1, result.Counts.Pairs)
	assert.Equal(t, 1, result.Counts.Recommendations)

	run, err := f.runs.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCommitted, run.Status)
	assert.NotNil(t, run.CompletedAt)

	recs, total, err := f.runs.LatestRecommendations(context.Background(), domain.RecommendationFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, recs, 1)
	assert.Equal(t, result.RunID, recs[0].RunID)
}

func TestRunner_InvalidConfigFailsBeforeComputing(t *testing.T) {
	cfg := domain.DefaultReplenishmentConfig()
	cfg.LookbackDays = 0
	f := newFixture(cfg)
	seedCriticalPair(f.facts, "SKU-1", "WH-1")

	result, err := f.runner.TriggerRun(context.Background(), domain.RunScope{})
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Equal(t, domain.RunStatusFailed, result.Status)

	run, getErr := f.runs.GetRun(context.Background(), result.RunID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.NotEmpty(t, run.ErrorMessage)

	_, total, listErr := f.runs.LatestRecommendations(context.Background(), domain.RecommendationFilter{})
	require.NoError(t, listErr)
	assert.Zero(t, total)
}

func TestRunner_FactOutageFailsRun(t *testing.T) {
	f := newFixture(domain.DefaultReplenishmentConfig())
	seedCriticalPair(f.facts, "SKU-1", "WH-1")
	f.facts.FailWith(errors.New("upstream feed down"))

	result, err := f.runner.TriggerRun(context.Background(), domain.RunScope{})
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Equal(t, domain.RunStatusFailed, result.Status)
}

func TestRunner_PersistenceFailureKeepsPreviousRunLatest(t *testing.T) {
	f := newFixture(domain.DefaultReplenishmentConfig())
	seedCriticalPair(f.facts, "SKU-1", "WH-1")

	first, err := f.runner.TriggerRun(context.Background(), domain.RunScope{})
	require.NoError(t, err)

	f.runs.FailNextCommit(errors.New("disk full"))
	second, err := f.runner.TriggerRun(context.Background(), domain.RunScope{})
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, domain.RunStatusFailed, second.Status)

	recs, _, err := f.runs.LatestRecommendations(context.Background(), domain.RecommendationFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, first.RunID, recs[0].RunID)

	failed, err := f.runs.GetRun(context.Background(), second.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, failed.Status)
}

func TestRunner_OverlappingScopeRejected(t *testing.T) {
	f := newFixture(domain.DefaultReplenishmentConfig())
	seedCriticalPair(f.facts, "SKU-1", "WH-1")

	release := make(chan struct{})
	started := make(chan struct{})
	blocking := memory.NewFactStore()
	seedCriticalPair(blocking, "SKU-1", "WH-1")
	blocking.SetNow(func() time.Time {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return time.Now()
	})

	runner := NewRunner(f.runs, repository.StaticConfigProvider{Config: domain.DefaultReplenishmentConfig()}, engine.New(blocking, 1), nil)

	done := make(chan error, 1)
	go func() {
		_, err := runner.TriggerRun(context.Background(), domain.RunScope{WarehouseIDs: []domain.WarehouseID{"WH-1"}})
		done <- err
	}()

	<-started
	_, err := runner.TriggerRun(context.Background(), domain.RunScope{WarehouseIDs: []domain.WarehouseID{"WH-1", "WH-2"}})
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestRunner_CancelledContextDoesNotCommit(t *testing.T) {
	f := newFixture(domain.DefaultReplenishmentConfig())
	seedCriticalPair(f.facts, "SKU-1", "WH-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.runner.TriggerRun(ctx, domain.RunScope{})
	require.Error(t, err)
	assert.Equal(t, domain.RunStatusFailed, result.Status)

	_, total, listErr := f.runs.LatestRecommendations(context.Background(), domain.RecommendationFilter{})
	require.NoError(t, listErr)
	assert.Zero(t, total)
}
