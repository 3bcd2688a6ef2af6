package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplenishmentConfig_DefaultIsValid(t *testing.T) {
	assert.NoError(t, DefaultReplenishmentConfig().Validate())
}

func TestReplenishmentConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ReplenishmentConfig)
	}{
		{"zero lookback", func(c *ReplenishmentConfig) { c.LookbackDays = 0 }},
		{"negative lookback", func(c *ReplenishmentConfig) { c.LookbackDays = -7 }},
		{"zero coverage", func(c *ReplenishmentConfig) { c.TargetCoverageDays = 0 }},
		{"negative safety stock", func(c *ReplenishmentConfig) { c.SafetyStockDays = -1 }},
		{"zero critical threshold", func(c *ReplenishmentConfig) { c.CriticalThresholdDays = 0 }},
		{"critical equals low", func(c *ReplenishmentConfig) { c.CriticalThresholdDays = c.LowThresholdDays }},
		{"low above excess", func(c *ReplenishmentConfig) { c.LowThresholdDays = c.ExcessThresholdDays + 1 }},
		{"negative min ads", func(c *ReplenishmentConfig) { c.MinADSForRecommendation = -0.1 }},
		{"multiplier below one", func(c *ReplenishmentConfig) { c.MaxOrderMultiplier = 0.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultReplenishmentConfig()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestRunScope_Overlaps(t *testing.T) {
	all := RunScope{}
	wh1 := RunScope{WarehouseIDs: []WarehouseID{"WH-1"}}
	wh2 := RunScope{WarehouseIDs: []WarehouseID{"WH-2"}}
	both := RunScope{WarehouseIDs: []WarehouseID{"WH-1", "WH-2"}}

	assert.True(t, all.Overlaps(all))
	assert.True(t, all.Overlaps(wh1))
	assert.True(t, wh1.Overlaps(all))
	assert.True(t, wh1.Overlaps(both))
	assert.False(t, wh1.Overlaps(wh2))
}

func TestRunScope_Contains(t *testing.T) {
	all := RunScope{}
	assert.True(t, all.Contains("WH-9"))

	scoped := RunScope{WarehouseIDs: []WarehouseID{"WH-1", "WH-2"}}
	assert.True(t, scoped.Contains("WH-2"))
	assert.False(t, scoped.Contains("WH-9"))
}

func TestNormalizeIdentifiers(t *testing.T) {
	assert.Equal(t, ProductID("SKU-42"), NormalizeProductID("  sku-42 "))
	assert.Equal(t, WarehouseID("WH-EAST"), NormalizeWarehouseID("wh-east"))
}
