package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warestock/replenishd/internal/domain"
)

func metricWith(ads float64, stock int) domain.ComputedMetric {
	m := domain.ComputedMetric{ADS: ads, CurrentStock: stock}
	if ads > 0 {
		dos := float64(stock) / ads
		m.DaysOfStock = &dos
	}
	return m
}

func TestClassifier_Bands(t *testing.T) {
	cases := []struct {
		name   string
		ads    float64
		stock  int
		status domain.LiquidityStatus
	}{
		{"below critical threshold", 2, 9, domain.StatusCritical}, // 4.5 days
		{"exactly critical threshold is low", 2, 10, domain.StatusLow},
		{"between low and excess", 2, 40, domain.StatusNormal}, // 20 days
		{"exactly excess threshold is normal", 2, 120, domain.StatusNormal},
		{"above excess threshold", 2, 121, domain.StatusExcess},
	}

	classifier := NewLiquidityClassifier()
	cfg := testConfig()

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			metric := metricWith(tc.ads, tc.stock)
			classifier.Classify(&metric, cfg)
			assert.Equal(t, tc.status, metric.LiquidityStatus)
		})
	}
}

func TestClassifier_StockoutWithDemandIsCritical(t *testing.T) {
	classifier := NewLiquidityClassifier()
	metric := metricWith(2, 0)

	classifier.Classify(&metric, testConfig())

	assert.Equal(t, domain.StatusCritical, metric.LiquidityStatus)
	assert.Equal(t, domain.ReasonStockout, metric.ReasonCode)
}

func TestClassifier_NoDemandNoStockIsInactive(t *testing.T) {
	classifier := NewLiquidityClassifier()
	metric := metricWith(0, 0)

	classifier.Classify(&metric, testConfig())

	assert.Equal(t, domain.StatusInactive, metric.LiquidityStatus)
	assert.Equal(t, domain.ReasonInactive, metric.ReasonCode)
}

func TestClassifier_NoDemandWithStockIsExcess(t *testing.T) {
	classifier := NewLiquidityClassifier()
	metric := metricWith(0, 500)

	classifier.Classify(&metric, testConfig())

	assert.Equal(t, domain.StatusExcess, metric.LiquidityStatus)
	assert.Equal(t, domain.ReasonNoDemandSignal, metric.ReasonCode)
}

func TestClassifier_KeepsClampFlagFromCalculator(t *testing.T) {
	calc := NewMetricsCalculator()
	classifier := NewLiquidityClassifier()

	metric, err := calc.Calculate(PairFacts{
		ProductID:   "SKU-1",
		WarehouseID: "WH-1",
		Snapshot:    snapshot(-7, 0),
		Sales:       sales(28),
	}, testConfig(), time.Now())
	require.NoError(t, err)
	require.Equal(t, domain.ReasonNegativeStockClamped, metric.ReasonCode)

	classifier.Classify(&metric, testConfig())

	// Clamped stock is zero with demand, so the tier is critical, but the
	// data-quality flag survives classification.
	assert.Equal(t, domain.StatusCritical, metric.LiquidityStatus)
	assert.Equal(t, domain.ReasonNegativeStockClamped, metric.ReasonCode)
}

func TestClassifier_KeepsClampFlagWithoutDemand(t *testing.T) {
	calc := NewMetricsCalculator()
	classifier := NewLiquidityClassifier()

	metric, err := calc.Calculate(PairFacts{
		ProductID:   "SKU-1",
		WarehouseID: "WH-1",
		Snapshot:    snapshot(-7, 0),
	}, testConfig(), time.Now())
	require.NoError(t, err)

	classifier.Classify(&metric, testConfig())

	assert.Equal(t, domain.StatusInactive, metric.LiquidityStatus)
	assert.Equal(t, domain.ReasonNegativeStockClamped, metric.ReasonCode)
}

func TestClassifier_EveryMetricGetsExactlyOneStatus(t *testing.T) {
	classifier := NewLiquidityClassifier()
	cfg := testConfig()

	for stock := 0; stock <= 150; stock++ {
		for _, ads := range []float64{0, 0.05, 0.5, 2, 10} {
			metric := metricWith(ads, stock)
			classifier.Classify(&metric, cfg)
			assert.NotEmpty(t, metric.LiquidityStatus,
				"ads=%v stock=%d left unclassified", ads, stock)
		}
	}
}
