// internal/domain/replenishment_config.go
package domain

import "fmt"

// ReplenishmentConfig is the per-run policy, loaded once per run and validated
// before any computation. It consolidates thresholds the upstream system kept
// scattered across config tables and SQL expressions.
type ReplenishmentConfig struct {
	LookbackDays            int     `json:"lookback_days"`
	TargetCoverageDays      int     `json:"target_coverage_days"`
	SafetyStockDays         int     `json:"safety_stock_days"`
	CriticalThresholdDays   float64 `json:"critical_threshold_days"`
	LowThresholdDays        float64 `json:"low_threshold_days"`
	ExcessThresholdDays     float64 `json:"excess_threshold_days"`
	MinADSForRecommendation float64 `json:"min_ads_for_recommendation"`
	MaxOrderMultiplier      float64 `json:"max_order_multiplier"`
}

// DefaultReplenishmentConfig mirrors the policy the operations team runs with.
func DefaultReplenishmentConfig() ReplenishmentConfig {
	return ReplenishmentConfig{
		LookbackDays:            28,
		TargetCoverageDays:      14,
		SafetyStockDays:         3,
		CriticalThresholdDays:   5,
		LowThresholdDays:        10,
		ExcessThresholdDays:     60,
		MinADSForRecommendation: 0.1,
		MaxOrderMultiplier:      10,
	}
}

// Validate enforces the config invariants. A violation surfaces immediately as
// ErrInvalidConfig and is never silently defaulted.
func (c ReplenishmentConfig) Validate() error {
	if c.LookbackDays <= 0 {
		return fmt.Errorf("%w: lookback_days must be positive, got %d", ErrInvalidConfig, c.LookbackDays)
	}
	if c.TargetCoverageDays <= 0 {
		return fmt.Errorf("%w: target_coverage_days must be positive, got %d", ErrInvalidConfig, c.TargetCoverageDays)
	}
	if c.SafetyStockDays < 0 {
		return fmt.Errorf("%w: safety_stock_days must not be negative, got %d", ErrInvalidConfig, c.SafetyStockDays)
	}
	if c.CriticalThresholdDays <= 0 {
		return fmt.Errorf("%w: critical_threshold_days must be positive, got %g", ErrInvalidConfig, c.CriticalThresholdDays)
	}
	if !(c.CriticalThresholdDays < c.LowThresholdDays && c.LowThresholdDays < c.ExcessThresholdDays) {
		return fmt.Errorf("%w: thresholds must satisfy critical < low < excess, got %g/%g/%g",
			ErrInvalidConfig, c.CriticalThresholdDays, c.LowThresholdDays, c.ExcessThresholdDays)
	}
	if c.MinADSForRecommendation < 0 {
		return fmt.Errorf("%w: min_ads_for_recommendation must not be negative, got %g", ErrInvalidConfig, c.MinADSForRecommendation)
	}
	if c.MaxOrderMultiplier < 1 {
		return fmt.Errorf("%w: max_order_multiplier must be at least 1, got %g", ErrInvalidConfig, c.MaxOrderMultiplier)
	}
	return nil
}
