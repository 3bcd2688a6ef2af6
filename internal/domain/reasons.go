// internal/domain/reasons.go
package domain

// Reason codes attached to metrics and recommendations. These are part of the
// downstream contract; dashboards key on them.
const (
	// ReasonStockout marks zero sellable stock with live demand.
	ReasonStockout = "stockout"

	// ReasonBelowTargetCoverage marks an ordinary shortfall against the
	// coverage target.
	ReasonBelowTargetCoverage = "below-target-coverage"

	// ReasonNoDemandSignal marks pairs with stock but zero sales in the
	// lookback window; turnover cannot be computed.
	ReasonNoDemandSignal = "no-demand-signal"

	// ReasonInactive marks pairs with neither stock nor demand.
	ReasonInactive = "inactive"

	// ReasonBelowMinADS marks pairs whose demand signal is too weak to order
	// against; they are excluded from recommendations, not silently dropped.
	ReasonBelowMinADS = "below-min-ads"

	// ReasonNegativeStockClamped flags a negative snapshot (data correction)
	// clamped to zero before ratio computation.
	ReasonNegativeStockClamped = "negative-stock-clamped"
)
