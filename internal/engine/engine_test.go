package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/repository/memory"
)

func seedPair(store *memory.FactStore, product domain.ProductID, warehouse domain.WarehouseID, stock, soldPerDay, days int) {
	now := time.Now()
	store.AddSnapshot(domain.InventorySnapshot{
		ProductID:      product,
		WarehouseID:    warehouse,
		AvailableStock: stock,
		SnapshotAt:     now,
	})
	for i := 0; i < days; i++ {
		store.AddSale(domain.SalesRecord{
			ProductID:    product,
			WarehouseID:  warehouse,
			SaleDate:     now.AddDate(0, 0, -i),
			QuantitySold: soldPerDay,
		})
	}
}

func TestEngine_ComputeRun(t *testing.T) {
	store := memory.NewFactStore()
	seedPair(store, "SKU-1", "WH-1", 3, 2, 28)   // critical, 1.5 days
	seedPair(store, "SKU-2", "WH-1", 400, 2, 28) // excess, 200 days
	seedPair(store, "SKU-3", "WH-2", 0, 1, 28)   // stockout
	seedPair(store, "SKU-4", "WH-2", 80, 0, 0)   // no demand signal

	eng := New(store, 4)
	runID := uuid.New()

	out, err := eng.ComputeRun(context.Background(), runID, domain.RunScope{}, testConfig(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 4, out.Counts.Pairs)
	assert.Equal(t, 4, out.Counts.Metrics)
	assert.Equal(t, 2, out.Counts.Recommendations)
	assert.Zero(t, out.Counts.Skipped)

	for _, metric := range out.Metrics {
		assert.Equal(t, runID, metric.RunID)
	}

	// The stockout (zero days of stock) outranks the 1.5-day critical pair.
	require.Len(t, out.Recommendations, 2)
	assert.Equal(t, domain.ProductID("SKU-3"), out.Recommendations[0].ProductID)
	assert.Equal(t, 1, out.Recommendations[0].Priority)
	assert.Equal(t, domain.ProductID("SKU-1"), out.Recommendations[1].ProductID)
	assert.Equal(t, 2, out.Recommendations[1].Priority)
}

func TestEngine_ScopeRestrictsPairs(t *testing.T) {
	store := memory.NewFactStore()
	seedPair(store, "SKU-1", "WH-1", 3, 2, 28)
	seedPair(store, "SKU-2", "WH-2", 3, 2, 28)

	eng := New(store, 2)
	scope := domain.RunScope{WarehouseIDs: []domain.WarehouseID{"WH-2"}}

	out, err := eng.ComputeRun(context.Background(), uuid.New(), scope, testConfig(), time.Now())
	require.NoError(t, err)

	require.Len(t, out.Metrics, 1)
	assert.Equal(t, domain.WarehouseID("WH-2"), out.Metrics[0].WarehouseID)
}

func TestEngine_CorruptPairIsSkippedNotFatal(t *testing.T) {
	store := memory.NewFactStore()
	seedPair(store, "SKU-1", "WH-1", 3, 2, 28)
	store.AddSnapshot(domain.InventorySnapshot{
		ProductID:      "SKU-BAD",
		WarehouseID:    "WH-1",
		AvailableStock: 10,
		SnapshotAt:     time.Now(),
	})
	store.AddSale(domain.SalesRecord{
		ProductID:    "SKU-BAD",
		WarehouseID:  "WH-1",
		SaleDate:     time.Now(),
		QuantitySold: -4,
	})

	eng := New(store, 2)

	out, err := eng.ComputeRun(context.Background(), uuid.New(), domain.RunScope{}, testConfig(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, out.Counts.Pairs)
	assert.Equal(t, 1, out.Counts.Metrics)
	assert.Equal(t, 1, out.Counts.Skipped)
	require.Len(t, out.Metrics, 1)
	assert.Equal(t, domain.ProductID("SKU-1"), out.Metrics[0].ProductID)
}

func TestEngine_FactStoreOutageAbortsRun(t *testing.T) {
	store := memory.NewFactStore()
	seedPair(store, "SKU-1", "WH-1", 3, 2, 28)
	store.FailWith(errors.New("connection refused"))

	eng := New(store, 2)

	_, err := eng.ComputeRun(context.Background(), uuid.New(), domain.RunScope{}, testConfig(), time.Now())
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestEngine_ClampFlagSurvivesFullCompute(t *testing.T) {
	store := memory.NewFactStore()
	seedPair(store, "SKU-1", "WH-1", -7, 2, 28)

	eng := New(store, 1)

	out, err := eng.ComputeRun(context.Background(), uuid.New(), domain.RunScope{}, testConfig(), time.Now())
	require.NoError(t, err)

	require.Len(t, out.Metrics, 1)
	metric := out.Metrics[0]
	assert.Equal(t, 0, metric.CurrentStock)
	assert.Equal(t, domain.StatusCritical, metric.LiquidityStatus)
	assert.Equal(t, domain.ReasonNegativeStockClamped, metric.ReasonCode)

	// The recommendation itself still explains the order, not the data issue.
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, domain.ReasonStockout, out.Recommendations[0].ReasonCode)
}

func TestEngine_ClampFlagOutranksMinADSExclusion(t *testing.T) {
	store := memory.NewFactStore()
	seedPair(store, "SKU-1", "WH-1", -3, 0, 0)
	store.AddSale(domain.SalesRecord{
		ProductID:    "SKU-1",
		WarehouseID:  "WH-1",
		SaleDate:     time.Now(),
		QuantitySold: 1,
	})

	eng := New(store, 1)

	out, err := eng.ComputeRun(context.Background(), uuid.New(), domain.RunScope{}, testConfig(), time.Now())
	require.NoError(t, err)

	// ADS of 1/28 is under the recommendation floor, so no order is produced,
	// but the metric keeps the data-quality flag rather than the exclusion
	// reason.
	assert.Empty(t, out.Recommendations)
	require.Len(t, out.Metrics, 1)
	assert.Equal(t, domain.ReasonNegativeStockClamped, out.Metrics[0].ReasonCode)
}

func TestEngine_IdempotentOverSameFacts(t *testing.T) {
	store := memory.NewFactStore()
	seedPair(store, "SKU-1", "WH-1", 3, 2, 28)
	seedPair(store, "SKU-2", "WH-1", 4, 3, 28)
	seedPair(store, "SKU-3", "WH-2", 0, 1, 28)

	eng := New(store, 3)
	runID := uuid.New()
	computedAt := time.Now()

	first, err := eng.ComputeRun(context.Background(), runID, domain.RunScope{}, testConfig(), computedAt)
	require.NoError(t, err)
	second, err := eng.ComputeRun(context.Background(), runID, domain.RunScope{}, testConfig(), computedAt)
	require.NoError(t, err)

	assert.Equal(t, first.Metrics, second.Metrics)
	assert.Equal(t, first.Recommendations, second.Recommendations)
	assert.Equal(t, first.Counts, second.Counts)
}
