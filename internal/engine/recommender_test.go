package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warestock/replenishd/internal/domain"
)

func criticalMetric(ads float64, stock int) domain.ComputedMetric {
	m := metricWith(ads, stock)
	NewLiquidityClassifier().Classify(&m, testConfig())
	return m
}

func TestGenerator_QuantityCoversTargetMinusCurrent(t *testing.T) {
	gen := NewRecommendationGenerator()

	// target = 2 * (14 + 3) = 34, current = 3 -> order 31.
	rec, skipReason := gen.Generate(criticalMetric(2, 3), testConfig())

	require.NotNil(t, rec)
	assert.Empty(t, skipReason)
	assert.Equal(t, 31, rec.RecommendedQuantity)
	assert.Equal(t, domain.ReasonBelowTargetCoverage, rec.ReasonCode)
}

func TestGenerator_QuantityRoundsUp(t *testing.T) {
	gen := NewRecommendationGenerator()

	// target = 0.5 * 17 = 8.5, current = 1 -> 7.5 rounds up to 8.
	rec, _ := gen.Generate(criticalMetric(0.5, 1), testConfig())

	require.NotNil(t, rec)
	assert.Equal(t, 8, rec.RecommendedQuantity)
}

func TestGenerator_CapAgainstCurrentStock(t *testing.T) {
	gen := NewRecommendationGenerator()
	cfg := testConfig()
	cfg.MaxOrderMultiplier = 10

	// Uncapped the order would be 31; the cap clips it to 3 * 10 = 30.
	rec, _ := gen.Generate(criticalMetric(2, 3), cfg)

	require.NotNil(t, rec)
	assert.Equal(t, 30, rec.RecommendedQuantity)
}

func TestGenerator_StockoutSkipsCap(t *testing.T) {
	gen := NewRecommendationGenerator()
	cfg := testConfig()
	cfg.MaxOrderMultiplier = 10

	rec, _ := gen.Generate(criticalMetric(2, 0), cfg)

	require.NotNil(t, rec)
	assert.Equal(t, 34, rec.RecommendedQuantity)
	assert.Equal(t, domain.ReasonStockout, rec.ReasonCode)
}

func TestGenerator_BelowMinADSIsExcluded(t *testing.T) {
	gen := NewRecommendationGenerator()

	rec, skipReason := gen.Generate(criticalMetric(0.05, 0), testConfig())

	assert.Nil(t, rec)
	assert.Equal(t, domain.ReasonBelowMinADS, skipReason)
}

func TestGenerator_OnlyCriticalAndLowProduceOrders(t *testing.T) {
	gen := NewRecommendationGenerator()
	cfg := testConfig()

	cases := []struct {
		metric domain.ComputedMetric
		wants  bool
	}{
		{criticalMetric(2, 3), true},    // critical
		{criticalMetric(2, 15), true},   // low (7.5 days)
		{criticalMetric(2, 40), false},  // normal
		{criticalMetric(2, 200), false}, // excess
		{criticalMetric(0, 0), false},   // inactive
		{criticalMetric(0, 50), false},  // excess, no demand
	}

	for _, tc := range cases {
		rec, _ := gen.Generate(tc.metric, cfg)
		if tc.wants {
			assert.NotNil(t, rec, "expected order for %s", tc.metric.LiquidityStatus)
		} else {
			assert.Nil(t, rec, "unexpected order for %s", tc.metric.LiquidityStatus)
		}
	}
}

func TestGenerator_RankOrdersCriticalFirstThenUrgency(t *testing.T) {
	gen := NewRecommendationGenerator()

	dos := func(v float64) *float64 { return &v }
	recs := []domain.Recommendation{
		{ProductID: "A", WarehouseID: "WH-1", LiquidityStatus: domain.StatusLow, DaysOfStock: dos(7), ADS: 5},
		{ProductID: "B", WarehouseID: "WH-1", LiquidityStatus: domain.StatusCritical, DaysOfStock: dos(4), ADS: 1},
		{ProductID: "C", WarehouseID: "WH-1", LiquidityStatus: domain.StatusCritical, DaysOfStock: dos(2), ADS: 3},
		{ProductID: "D", WarehouseID: "WH-1", LiquidityStatus: domain.StatusCritical, DaysOfStock: dos(2), ADS: 9},
		{ProductID: "E", WarehouseID: "WH-1", LiquidityStatus: domain.StatusLow, DaysOfStock: dos(6), ADS: 5},
	}

	gen.Rank(recs)

	order := make([]domain.ProductID, 0, len(recs))
	for _, rec := range recs {
		order = append(order, rec.ProductID)
	}
	assert.Equal(t, []domain.ProductID{"D", "C", "B", "E", "A"}, order)

	for i, rec := range recs {
		assert.Equal(t, i+1, rec.Priority)
	}
}

func TestGenerator_RankIsDeterministicOnFullTies(t *testing.T) {
	gen := NewRecommendationGenerator()

	dos := func(v float64) *float64 { return &v }
	build := func() []domain.Recommendation {
		return []domain.Recommendation{
			{ProductID: "Z", WarehouseID: "WH-2", LiquidityStatus: domain.StatusCritical, DaysOfStock: dos(3), ADS: 2},
			{ProductID: "A", WarehouseID: "WH-2", LiquidityStatus: domain.StatusCritical, DaysOfStock: dos(3), ADS: 2},
			{ProductID: "A", WarehouseID: "WH-1", LiquidityStatus: domain.StatusCritical, DaysOfStock: dos(3), ADS: 2},
		}
	}

	first, second := build(), build()
	gen.Rank(first)
	gen.Rank(second)

	assert.Equal(t, first, second)
	assert.Equal(t, domain.WarehouseID("WH-1"), first[0].WarehouseID)
	assert.Equal(t, domain.ProductID("A"), first[1].ProductID)
}
