// internal/engine/classifier.go
package engine

import "github.com/warestock/replenishd/internal/domain"

// LiquidityClassifier maps a computed metric to exactly one liquidity status.
// Bands are inclusive on their lower bound, so every real days-of-stock value
// lands in exactly one band.
type LiquidityClassifier struct{}

func NewLiquidityClassifier() *LiquidityClassifier {
	return &LiquidityClassifier{}
}

// Classify fills in LiquidityStatus (and the reason code for the no-demand
// paths) on the metric.
//
// No demand with stock on hand is treated conservatively as excess: turnover
// cannot be computed, so the stock is assumed overheld. No demand and no
// stock is inactive and excluded from recommendations entirely.
//
// A reason code set by the calculator (a clamped negative snapshot) is kept;
// the classifier only fills in a reason when none exists yet.
func (lc *LiquidityClassifier) Classify(metric *domain.ComputedMetric, cfg domain.ReplenishmentConfig) {
	if !metric.HasDemand() {
		if metric.CurrentStock == 0 {
			metric.LiquidityStatus = domain.StatusInactive
			setReason(metric, domain.ReasonInactive)
		} else {
			metric.LiquidityStatus = domain.StatusExcess
			setReason(metric, domain.ReasonNoDemandSignal)
		}
		return
	}

	if metric.CurrentStock == 0 {
		// Zero stock with any historical demand is a stockout.
		metric.LiquidityStatus = domain.StatusCritical
		setReason(metric, domain.ReasonStockout)
		return
	}

	dos := *metric.DaysOfStock
	switch {
	case dos < cfg.CriticalThresholdDays:
		metric.LiquidityStatus = domain.StatusCritical
	case dos < cfg.LowThresholdDays:
		metric.LiquidityStatus = domain.StatusLow
	case dos <= cfg.ExcessThresholdDays:
		metric.LiquidityStatus = domain.StatusNormal
	default:
		metric.LiquidityStatus = domain.StatusExcess
	}
}

func setReason(metric *domain.ComputedMetric, reason string) {
	if metric.ReasonCode == "" {
		metric.ReasonCode = reason
	}
}
