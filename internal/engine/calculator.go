// internal/engine/calculator.go
package engine

import (
	"fmt"
	"time"

	"github.com/warestock/replenishd/internal/domain"
)

// PairFacts bundles everything the calculator needs for one pair.
type PairFacts struct {
	ProductID   domain.ProductID
	WarehouseID domain.WarehouseID
	Snapshot    *domain.InventorySnapshot
	Sales       []domain.SalesRecord
}

// MetricsCalculator derives ADS, current stock and days of stock for a pair.
// It is pure: output depends only on the facts and the config.
type MetricsCalculator struct{}

func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// Calculate computes the metric row for a pair.
//
// ADS is the arithmetic mean over the full lookback window; days without a
// sales record count as zero sales, not missing data. Reserved stock is
// excluded from the sellable position. A negative snapshot (upstream data
// correction) is clamped to zero and flagged. Days of stock is left nil when
// ADS is zero.
func (c *MetricsCalculator) Calculate(facts PairFacts, cfg domain.ReplenishmentConfig, computedAt time.Time) (domain.ComputedMetric, error) {
	if facts.Snapshot == nil {
		return domain.ComputedMetric{}, fmt.Errorf("%w: no inventory snapshot for %s/%s",
			domain.ErrComputation, facts.ProductID, facts.WarehouseID)
	}

	totalSold := 0
	for _, sale := range facts.Sales {
		if sale.QuantitySold < 0 {
			return domain.ComputedMetric{}, fmt.Errorf("%w: negative quantity_sold %d for %s/%s on %s",
				domain.ErrComputation, sale.QuantitySold, facts.ProductID, facts.WarehouseID,
				sale.SaleDate.Format("2006-01-02"))
		}
		totalSold += sale.QuantitySold
	}

	metric := domain.ComputedMetric{
		ProductID:   facts.ProductID,
		WarehouseID: facts.WarehouseID,
		ADS:         float64(totalSold) / float64(cfg.LookbackDays),
		ComputedAt:  computedAt,
	}

	// Reserved stock is not sellable; only the available position counts.
	metric.CurrentStock = facts.Snapshot.AvailableStock
	if metric.CurrentStock < 0 {
		metric.CurrentStock = 0
		metric.ReasonCode = domain.ReasonNegativeStockClamped
	}

	if metric.ADS > 0 {
		dos := float64(metric.CurrentStock) / metric.ADS
		metric.DaysOfStock = &dos
	}

	return metric, nil
}
