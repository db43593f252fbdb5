package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportAlerts(t *testing.T) {
	dir := t.TempDir()
	e := New(storage.NewLocalStorage(dir), func() time.Time { return fixedNow })

	batch := &domain.AlertBatch{Alerts: []domain.AlertEntry{
		{ProductID: 7, Status: domain.StatusSuccess, Alert: &domain.AlertResult{
			ProductID:       7,
			ProductName:     "Riz 25kg",
			Tier:            domain.TierCritical,
			Urgency:         "MAXIMALE",
			Action:          "Commander immédiatement pour limiter les pertes",
			Stock:           50,
			LeadTime:        5,
			FinancialImpact: domain.FinancialImpact{Amount: 75000},
			Quantity:        domain.QuantityDetail{SuggestedQuantity: 115},
		}},
		{ProductID: 99, Status: domain.StatusError, Error: "Article 99 non trouvé"},
	}}

	key, err := e.ExportAlerts(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, "alerts/2025-01-10/alerts_20250110T093000.csv", key)

	rows := readCSV(t, filepath.Join(dir, key))
	require.Len(t, rows, 3)
	assert.Equal(t, alertHeader, rows[0])
	assert.Equal(t, "CRITIQUE", rows[1][2])
	assert.Equal(t, "75000", rows[1][9])
	assert.Equal(t, "115", rows[1][10])
	assert.Equal(t, []string{"99", "", "ERROR"}, rows[2][:3])
	assert.Equal(t, "Article 99 non trouvé", rows[2][11])
}

func TestExportQuantities(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewLocalStorage(dir)
	e := New(store, func() time.Time { return fixedNow })

	batch := &domain.QuantityBatch{Entries: []domain.QuantityEntry{
		{ProductID: 8, Status: domain.StatusSuccess, Suggestion: &domain.QuantitySuggestion{
			ProductID:     8,
			ProductName:   "Huile 5L",
			NetNeed:       215,
			FinalQuantity: 247,
			UnitPrice:     500,
			CostEstimate:  123500,
			TargetDate:    "2025-02-09",
		}},
	}}

	key, err := e.ExportQuantities(context.Background(), batch)
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(dir, key))
	require.Len(t, rows, 2)
	assert.Equal(t, "247", rows[1][7])
	assert.Equal(t, "123500", rows[1][9])
	assert.Equal(t, "2025-02-09", rows[1][10])

	objects, err := store.ListObjects(context.Background(), "quantities")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, key, objects[0].Key)
	assert.NotZero(t, objects[0].Size)
}
