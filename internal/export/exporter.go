// internal/export/exporter.go
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/repository"
	"github.com/warestock/replenishd/internal/storage"
	"github.com/warestock/replenishd/pkg/logger"
)

// Exporter renders a committed run's recommendations as CSV and publishes it
// to object storage for the purchasing team's tooling.
type Exporter struct {
	runs    repository.RunStore
	storage storage.ObjectStorage
	log     zerolog.Logger
}

func NewExporter(runs repository.RunStore, objectStorage storage.ObjectStorage) *Exporter {
	return &Exporter{runs: runs, storage: objectStorage, log: logger.Component("export")}
}

// ExportRun uploads the run's recommendation CSV and returns the object key.
func (e *Exporter) ExportRun(ctx context.Context, runID uuid.UUID) (string, error) {
	run, err := e.runs.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	if run.Status != domain.RunStatusCommitted {
		return "", fmt.Errorf("run %s is %s, only committed runs can be exported", runID, run.Status)
	}

	recs, err := e.runs.RunRecommendations(ctx, runID)
	if err != nil {
		return "", err
	}

	payload, err := renderCSV(recs)
	if err != nil {
		return "", err
	}

	key := objectKey(run)
	if err := e.storage.UploadObject(ctx, key, payload); err != nil {
		return "", err
	}

	e.log.Info().
		Str("run_id", runID.String()).
		Str("key", key).
		Int("recommendations", len(recs)).
		Msg("run export uploaded")

	return key, nil
}

func renderCSV(recs []domain.Recommendation) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"priority", "warehouse_id", "product_id", "liquidity_status",
		"recommended_quantity", "ads", "days_of_stock", "reason_code",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range recs {
		daysOfStock := ""
		if rec.DaysOfStock != nil {
			daysOfStock = strconv.FormatFloat(*rec.DaysOfStock, 'f', 2, 64)
		}
		row := []string{
			strconv.Itoa(rec.Priority),
			string(rec.WarehouseID),
			string(rec.ProductID),
			string(rec.LiquidityStatus),
			strconv.Itoa(rec.RecommendedQuantity),
			strconv.FormatFloat(rec.ADS, 'f', 4, 64),
			daysOfStock,
			rec.ReasonCode,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func objectKey(run *domain.RunRecord) string {
	completed := time.Now()
	if run.CompletedAt != nil {
		completed = *run.CompletedAt
	}
	return fmt.Sprintf("recommendations/%s/%s.csv", completed.Format("2006-01-02"), run.ID)
}
