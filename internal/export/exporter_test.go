package export

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warestock/replenishd/internal/domain"
	"github.com/warestock/replenishd/internal/repository/memory"
	"github.com/warestock/replenishd/internal/storage"
)

type fakeStorage struct {
	uploads map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: make(map[string][]byte)}
}

func (f *fakeStorage) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var infos []storage.ObjectInfo
	for key, data := range f.uploads {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return infos, nil
}

func (f *fakeStorage) UploadObject(ctx context.Context, key string, data []byte) error {
	f.uploads[key] = data
	return nil
}

func commitRun(t *testing.T, runs *memory.RunStore, recs []domain.Recommendation) uuid.UUID {
	t.Helper()
	run := &domain.RunRecord{
		ID:        uuid.New(),
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	require.NoError(t, runs.CreateRun(context.Background(), run))
	for i := range recs {
		recs[i].RunID = run.ID
	}
	require.NoError(t, runs.CommitRun(context.Background(), run, nil, recs))
	return run.ID
}

func TestExportRun_WritesCSV(t *testing.T) {
	runs := memory.NewRunStore()
	objects := newFakeStorage()

	dos := 1.5
	runID := commitRun(t, runs, []domain.Recommendation{
		{
			ProductID:           "SKU-1",
			WarehouseID:         "WH-1",
			RecommendedQuantity: 31,
			Priority:            1,
			ReasonCode:          domain.ReasonBelowTargetCoverage,
			LiquidityStatus:     domain.StatusCritical,
			ADS:                 2,
			DaysOfStock:         &dos,
		},
		{
			ProductID:           "SKU-2",
			WarehouseID:         "WH-2",
			RecommendedQuantity: 17,
			Priority:            2,
			ReasonCode:          domain.ReasonStockout,
			LiquidityStatus:     domain.StatusCritical,
			ADS:                 1,
		},
	})

	exporter := NewExporter(runs, objects)
	key, err := exporter.ExportRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Contains(t, key, runID.String())

	payload, ok := objects.uploads[key]
	require.True(t, ok)

	rows, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"priority", "warehouse_id", "product_id", "liquidity_status",
		"recommended_quantity", "ads", "days_of_stock", "reason_code",
	}, rows[0])
	assert.Equal(t, []string{"1", "WH-1", "SKU-1", "critical", "31", "2.0000", "1.50", "below-target-coverage"}, rows[1])
	// A stockout has no days-of-stock value; the column stays empty.
	assert.Equal(t, "", rows[2][6])
}

func TestExportRun_RejectsUncommittedRun(t *testing.T) {
	runs := memory.NewRunStore()
	run := &domain.RunRecord{
		ID:        uuid.New(),
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	require.NoError(t, runs.CreateRun(context.Background(), run))

	exporter := NewExporter(runs, newFakeStorage())
	_, err := exporter.ExportRun(context.Background(), run.ID)
	assert.Error(t, err)
}

func TestExportRun_UnknownRun(t *testing.T) {
	exporter := NewExporter(memory.NewRunStore(), newFakeStorage())

	_, err := exporter.ExportRun(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}
