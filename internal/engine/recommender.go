// internal/engine/recommender.go
package engine

import (
	"math"
	"sort"

	"github.com/warestock/replenishd/internal/domain"
)

// RecommendationGenerator turns critical/low metrics into reorder proposals
// and ranks them into the run's total priority order.
type RecommendationGenerator struct{}

func NewRecommendationGenerator() *RecommendationGenerator {
	return &RecommendationGenerator{}
}

// Generate computes the reorder quantity for one metric. It returns nil with
// a non-empty skip reason when the pair is excluded (wrong tier or demand
// signal below the configured floor).
func (g *RecommendationGenerator) Generate(metric domain.ComputedMetric, cfg domain.ReplenishmentConfig) (*domain.Recommendation, string) {
	if !metric.LiquidityStatus.NeedsReplenishment() {
		return nil, metric.ReasonCode
	}

	if metric.ADS < cfg.MinADSForRecommendation {
		return nil, domain.ReasonBelowMinADS
	}

	targetStock := metric.ADS * float64(cfg.TargetCoverageDays+cfg.SafetyStockDays)
	qty := int(math.Ceil(math.Max(0, targetStock-float64(metric.CurrentStock))))

	// Cap against the current stock base to avoid pathological over-ordering
	// from a tiny base plus a demand spike. A stockout has no base to cap
	// against, so the cap does not apply there.
	if metric.CurrentStock > 0 {
		maxQty := int(math.Floor(float64(metric.CurrentStock) * cfg.MaxOrderMultiplier))
		if qty > maxQty {
			qty = maxQty
		}
	}

	reason := domain.ReasonBelowTargetCoverage
	if metric.CurrentStock == 0 {
		reason = domain.ReasonStockout
	}

	return &domain.Recommendation{
		ProductID:           metric.ProductID,
		WarehouseID:         metric.WarehouseID,
		RunID:               metric.RunID,
		RecommendedQuantity: qty,
		ReasonCode:          reason,
		LiquidityStatus:     metric.LiquidityStatus,
		ADS:                 metric.ADS,
		DaysOfStock:         metric.DaysOfStock,
	}, ""
}

// Rank sorts the run's recommendations into a total order and assigns 1-based
// priorities. Critical ranks before low; within a tier the most urgent (lowest
// days of stock) comes first; ties go to the higher-velocity item. The final
// pair-ID tie-break keeps the order deterministic across runs.
func (g *RecommendationGenerator) Rank(recs []domain.Recommendation) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]

		if a.LiquidityStatus != b.LiquidityStatus {
			return a.LiquidityStatus == domain.StatusCritical
		}

		ad, bd := daysOrZero(a.DaysOfStock), daysOrZero(b.DaysOfStock)
		if ad != bd {
			return ad < bd
		}

		if a.ADS != b.ADS {
			return a.ADS > b.ADS
		}

		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		return a.ProductID < b.ProductID
	})

	for i := range recs {
		recs[i].Priority = i + 1
	}
}

func daysOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
