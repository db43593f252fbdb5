package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertServiceEvaluate(t *testing.T) {
	f := newFixture()
	svc := NewAlertService(f.store.Repositories(), f.forecaster, engineConfig(), clock)

	entry := svc.Evaluate(context.Background(), 7, AlertRequest{})
	require.Equal(t, domain.StatusSuccess, entry.Status)
	require.NotNil(t, entry.Alert)

	res := entry.Alert
	assert.Equal(t, domain.TierCritical, res.Tier)
	assert.Equal(t, 50, res.Stock)
	assert.Equal(t, 120, res.DemandDuringLead)
	assert.Equal(t, 15.0, res.Margin)

	detail := res.Detail.(domain.CriticalDetail)
	assert.Equal(t, 3, detail.StockoutDay)
	assert.Equal(t, "2025-01-13", detail.StockoutDate)
}

func TestAlertServiceUnknownProduct(t *testing.T) {
	f := newFixture()
	svc := NewAlertService(f.store.Repositories(), f.forecaster, engineConfig(), clock)

	entry := svc.Evaluate(context.Background(), 99, AlertRequest{})

	assert.Equal(t, domain.StatusError, entry.Status)
	assert.Equal(t, "Article 99 non trouvé", entry.Error)
	assert.Nil(t, entry.Alert)
}

func TestAlertServiceEvaluateBatch(t *testing.T) {
	f := newFixture()
	svc := NewAlertService(f.store.Repositories(), f.forecaster, engineConfig(), clock)

	batch, err := svc.EvaluateBatch(context.Background(), []int64{7, 8, 99}, AlertRequest{})
	require.NoError(t, err)

	require.Len(t, batch.Alerts, 3)
	assert.Equal(t, int64(7), batch.Alerts[0].ProductID)
	assert.Equal(t, domain.TierOK, batch.Alerts[1].Alert.Tier)
	assert.Equal(t, domain.StatusError, batch.Alerts[2].Status)

	assert.Equal(t, domain.AlertSummary{Total: 3, Critical: 1, OK: 1, Errors: 1, Timestamp: fixedNow}, batch.Summary)

	history, err := svc.History(context.Background(), nil, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(8), history[0].ProductID)
	assert.Equal(t, "OK", history[0].Status)
	assert.Equal(t, 75000.0, history[1].FinancialImpact)

	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(history[1].Details, &stored))
	assert.Equal(t, "CRITIQUE", stored["status"])
}

func TestAlertServiceBatchAllProducts(t *testing.T) {
	f := newFixture()
	svc := NewAlertService(f.store.Repositories(), f.forecaster, engineConfig(), clock)

	batch, err := svc.EvaluateBatch(context.Background(), nil, AlertRequest{})
	require.NoError(t, err)

	assert.Equal(t, 4, batch.Summary.Total)
	assert.Equal(t, 0, batch.Summary.Errors)
}

func TestAlertServiceHistoryByProduct(t *testing.T) {
	f := newFixture()
	svc := NewAlertService(f.store.Repositories(), f.forecaster, engineConfig(), clock)

	for i := 0; i < 3; i++ {
		_, err := svc.EvaluateBatch(context.Background(), []int64{7, 8}, AlertRequest{})
		require.NoError(t, err)
	}

	id := int64(7)
	history, err := svc.History(context.Background(), &id, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, h := range history {
		assert.Equal(t, id, h.ProductID)
	}
}
