package replenishment

import (
	"testing"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func daysFromNow(n int) *time.Time {
	t := fixedNow.AddDate(0, 0, n)
	return &t
}

func TestSuggest(t *testing.T) {
	s := NewQuantitySuggester(clock)

	res := s.Suggest(QuantityInput{
		Product:  product(),
		Stock:    40,
		Forecast: repeat(10, 40),
		Margin:   20,
	})

	assert.Equal(t, DefaultTargetDays, res.DaysToCover)
	assert.Equal(t, "2025-02-09", res.TargetDate)
	assert.Equal(t, 300.0, res.PredictionsCumulated)
	assert.Equal(t, 260.0, res.NetNeed)
	assert.InDelta(t, 52.0, res.MarginUnits, 1e-9)
	assert.Equal(t, 312, res.FinalQuantity)
	assert.Equal(t, 312000.0, res.CostEstimate)
	assert.Empty(t, res.Adjustments)
}

func TestSuggestTargetDate(t *testing.T) {
	s := NewQuantitySuggester(clock)

	tests := []struct {
		name     string
		target   *time.Time
		wantDays int
		adjusted bool
	}{
		{name: "default", target: nil, wantDays: 30},
		{name: "explicit", target: daysFromNow(10), wantDays: 10},
		{name: "beyond 90 days", target: daysFromNow(120), wantDays: 90, adjusted: true},
		{name: "in the past", target: daysFromNow(-3), wantDays: 30, adjusted: true},
		{name: "today", target: daysFromNow(0), wantDays: 30, adjusted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Suggest(QuantityInput{
				Product:    product(),
				Forecast:   repeat(1, 100),
				Margin:     0,
				TargetDate: tt.target,
			})

			assert.Equal(t, tt.wantDays, res.DaysToCover)
			assert.Equal(t, float64(tt.wantDays), res.PredictionsCumulated)
			if tt.adjusted {
				require.Len(t, res.Adjustments, 1)
				assert.Equal(t, "target_date", res.Adjustments[0].Field)
			} else {
				assert.Empty(t, res.Adjustments)
			}
		})
	}
}

func TestSuggestShortForecast(t *testing.T) {
	s := NewQuantitySuggester(clock)

	res := s.Suggest(QuantityInput{Product: product(), Stock: 5, Forecast: []int{10, 10, 10}, Margin: 15})

	assert.Equal(t, 30.0, res.PredictionsCumulated)
	assert.Equal(t, 25.0, res.NetNeed)
	assert.Equal(t, 29, res.FinalQuantity)
}

func TestSuggestEnoughStock(t *testing.T) {
	s := NewQuantitySuggester(clock)

	res := s.Suggest(QuantityInput{Product: product(), Stock: 1000, Forecast: repeat(10, 30), Margin: 15})

	assert.Equal(t, 0.0, res.NetNeed)
	assert.Equal(t, 0, res.FinalQuantity)
	assert.Contains(t, res.Recommendations, "Stock suffisant pour la période")
}

func TestSuggestMarginReset(t *testing.T) {
	s := NewQuantitySuggester(clock)

	res := s.Suggest(QuantityInput{Product: product(), Forecast: repeat(10, 30), Margin: 75})

	assert.Equal(t, DefaultMargin, res.Margin)
	assert.Equal(t, 345, res.FinalQuantity)
	require.Len(t, res.Adjustments, 1)
	assert.Equal(t, 75.0, res.Adjustments[0].Given)
	assert.Equal(t, DefaultMargin, res.Adjustments[0].Applied)
}

func TestSuggestWithBudgetLimited(t *testing.T) {
	s := NewQuantitySuggester(clock)

	res := s.SuggestWithBudget(QuantityInput{
		Product:  product(),
		Stock:    0,
		Forecast: repeat(5, 30),
		Margin:   0,
	}, 100000)

	assert.Equal(t, 150, res.IdealQuantity)
	assert.Equal(t, 100, res.FinalQuantity)
	assert.Equal(t, 50, res.Deficit)
	assert.Equal(t, domain.BudgetLimited, res.BudgetStatus)
	assert.Equal(t, 100000.0, res.CostEstimate)
	assert.Equal(t, 150000.0, res.IdealCost)
	// demand first exceeds the 100 units on day index 20
	assert.Equal(t, 20, res.DaysCovered)
	assert.Contains(t, res.Recommendations, "Budget insuffisant - Manque 50 articles")
}

func TestSuggestWithBudgetSufficient(t *testing.T) {
	s := NewQuantitySuggester(clock)

	res := s.SuggestWithBudget(QuantityInput{
		Product:  product(),
		Stock:    0,
		Forecast: repeat(5, 30),
		Margin:   0,
	}, 150000)

	assert.Equal(t, domain.BudgetSufficient, res.BudgetStatus)
	assert.Equal(t, 150, res.FinalQuantity)
	assert.Equal(t, 0, res.Deficit)
	assert.Equal(t, 30, res.DaysCovered)
}
