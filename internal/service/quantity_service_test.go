package service

import (
	"context"
	"testing"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float(v float64) *float64 { return &v }
func integer(v int) *int        { return &v }

// product 8 runs on the fallback: 10 a day, 13 on the five Saturdays between Jan 11 and Feb 9
const fallbackDemand30 = 315

func TestQuantityServiceSuggest(t *testing.T) {
	f := newFixture()
	svc := NewQuantityService(f.store.Repositories(), f.forecaster, engineConfig(), clock)

	res, err := svc.Suggest(context.Background(), 8, QuantityRequest{Margin: float(0), Stock: integer(100)})
	require.NoError(t, err)

	assert.Equal(t, float64(fallbackDemand30), res.PredictionsCumulated)
	assert.Equal(t, 215.0, res.NetNeed)
	assert.Equal(t, 215, res.FinalQuantity)
	assert.Equal(t, 107500.0, res.CostEstimate)
	assert.Equal(t, "2025-02-09", res.TargetDate)
}

func TestQuantityServiceDefaults(t *testing.T) {
	f := newFixture()
	svc := NewQuantityService(f.store.Repositories(), f.forecaster, engineConfig(), clock)

	// recorded stock of 1000 covers the month
	res, err := svc.Suggest(context.Background(), 8, QuantityRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1000, res.CurrentStock)
	assert.Equal(t, 15.0, res.Margin)
	assert.Equal(t, 0, res.FinalQuantity)

	res, err = svc.Suggest(context.Background(), 8, QuantityRequest{Stock: integer(100)})
	require.NoError(t, err)
	assert.Equal(t, 247, res.FinalQuantity)
}

func TestQuantityServiceTargetDateOutOfRange(t *testing.T) {
	past := jan(5)
	today := jan(10)
	far := fixedNow.AddDate(0, 0, 120)
	tests := []struct {
		name      string
		target    *time.Time
		days      int
		cumulated float64
		final     int
	}{
		{name: "past", target: &past, days: 30, cumulated: fallbackDemand30, final: 215},
		{name: "today", target: &today, days: 30, cumulated: fallbackDemand30, final: 215},
		// the forecaster serves at most 31 days, Feb 10 adds a weekday of 10
		{name: "beyond 90 days", target: &far, days: 90, cumulated: fallbackDemand30 + 10, final: 225},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			svc := NewQuantityService(f.store.Repositories(), f.forecaster, engineConfig(), clock)
			req := QuantityRequest{Margin: float(0), Stock: integer(100), TargetDate: tt.target}

			res, err := svc.Suggest(context.Background(), 8, req)
			require.NoError(t, err)
			assert.Equal(t, tt.days, res.DaysToCover)
			assert.Equal(t, tt.cumulated, res.PredictionsCumulated)
			assert.Equal(t, tt.final, res.FinalQuantity)
			require.Len(t, res.Adjustments, 1)
			assert.Equal(t, "target_date", res.Adjustments[0].Field)

			budgeted, err := svc.SuggestWithBudget(context.Background(), 8, req, 1e9)
			require.NoError(t, err)
			assert.Equal(t, tt.cumulated, budgeted.PredictionsCumulated)
			assert.Equal(t, tt.final, budgeted.IdealQuantity)
		})
	}
}

func TestQuantityServiceUnknownProduct(t *testing.T) {
	f := newFixture()
	svc := NewQuantityService(f.store.Repositories(), f.forecaster, engineConfig(), clock)

	_, err := svc.Suggest(context.Background(), 99, QuantityRequest{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestQuantityServiceBudget(t *testing.T) {
	f := newFixture()
	svc := NewQuantityService(f.store.Repositories(), f.forecaster, engineConfig(), clock)

	res, err := svc.SuggestWithBudget(context.Background(), 8, QuantityRequest{Margin: float(0), Stock: integer(100)}, 50000)
	require.NoError(t, err)

	assert.Equal(t, domain.BudgetLimited, res.BudgetStatus)
	assert.Equal(t, 215, res.IdealQuantity)
	assert.Equal(t, 100, res.FinalQuantity)
	assert.Equal(t, 115, res.Deficit)

	_, err = svc.SuggestWithBudget(context.Background(), 8, QuantityRequest{}, -1)
	assert.True(t, errors.Is(err, domain.ErrInvalidRange))
}

func TestQuantityServiceBatch(t *testing.T) {
	f := newFixture()
	svc := NewQuantityService(f.store.Repositories(), f.forecaster, engineConfig(), clock)

	batch, err := svc.SuggestBatch(context.Background(), []int64{8, 99, 8}, QuantityRequest{Margin: float(0), Stock: integer(100)})
	require.NoError(t, err)

	require.Len(t, batch.Entries, 3)
	assert.Equal(t, domain.StatusError, batch.Entries[1].Status)
	assert.Equal(t, 2, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, 430, batch.TotalQuantity)
	assert.Equal(t, 215000.0, batch.TotalCost)
}
