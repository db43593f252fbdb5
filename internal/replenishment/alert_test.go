package replenishment

import (
	"testing"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func product() domain.Product {
	return domain.Product{ID: 7, Name: "Riz 25kg", UnitPrice: 1000, LeadTimeDays: 5}
}

func repeat(q, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = q
	}
	return out
}

func TestEvaluateCritical(t *testing.T) {
	c := NewAlertClassifier(clock)

	res := c.Evaluate(AlertInput{
		Product:  product(),
		Stock:    50,
		Forecast: []int{20, 25, 30, 20, 25, 20, 20, 20},
		Margin:   15,
	})

	assert.Equal(t, domain.TierCritical, res.Tier)
	assert.Equal(t, 120, res.DemandDuringLead)
	assert.Equal(t, -70, res.StockAfterLead)
	assert.Equal(t, "MAXIMALE", res.Urgency)

	detail, ok := res.Detail.(domain.CriticalDetail)
	require.True(t, ok)
	assert.Equal(t, 3, detail.StockoutDay)
	assert.Equal(t, "2025-01-13", detail.StockoutDate)
	assert.Equal(t, 3, detail.DaysOfStockout)
	assert.Equal(t, 75, detail.LostUnits)
	assert.Equal(t, int64(75000), detail.FinancialLoss)
	assert.Equal(t, int64(75000), res.FinancialImpact.Amount)
	assert.Equal(t, "3 jours × 75 articles × 1000 FCFA", res.FinancialImpact.Details)
}

func TestEvaluateAttention(t *testing.T) {
	c := NewAlertClassifier(clock)

	res := c.Evaluate(AlertInput{
		Product:  product(),
		Stock:    70,
		Forecast: []int{10, 10, 10, 10, 10, 15, 15, 15},
		Margin:   15,
	})

	assert.Equal(t, domain.TierAttention, res.Tier)
	assert.Equal(t, 20, res.StockAfterLead)

	detail, ok := res.Detail.(domain.AttentionDetail)
	require.True(t, ok)
	assert.Equal(t, 1, detail.OrderDeadlineDay)
	assert.Equal(t, "2025-01-11", detail.OrderDeadlineDate)
	assert.Equal(t, "2025-01-16", detail.StockoutIfNoOrderDate)
	assert.InDelta(t, 10.0, detail.AvgDailyDemand, 1e-9)
	assert.Equal(t, int64(50), detail.UnitsSaved)
	assert.Equal(t, int64(50000), detail.BenefitIfOrdered)
	assert.Equal(t, "Commander avant le 2025-01-11", res.Action)

	assert.Equal(t, 95, res.Quantity.PredictionsCumulated)
	assert.Equal(t, 25, res.Quantity.NetNeed)
	assert.Equal(t, 29, res.Quantity.SuggestedQuantity)
	assert.Equal(t, "2025-02-09", res.Quantity.CoverageUntil)
}

func TestEvaluateAttentionOrderToday(t *testing.T) {
	c := NewAlertClassifier(clock)

	res := c.Evaluate(AlertInput{
		Product:  product(),
		Stock:    30,
		Forecast: []int{5, 5, 5, 5, 5, 10},
		Margin:   15,
	})

	require.Equal(t, domain.TierAttention, res.Tier)
	detail := res.Detail.(domain.AttentionDetail)
	assert.Equal(t, 0, detail.OrderDeadlineDay)
	assert.Equal(t, "2025-01-10", detail.OrderDeadlineDate)
	assert.Equal(t, 0, detail.DaysRemaining)
}

func TestEvaluateOK(t *testing.T) {
	c := NewAlertClassifier(clock)

	res := c.Evaluate(AlertInput{
		Product:  product(),
		Stock:    200,
		Forecast: repeat(5, 10),
		Margin:   15,
	})

	assert.Equal(t, domain.TierOK, res.Tier)
	assert.Equal(t, 175, res.StockAfterLead)
	assert.Equal(t, int64(0), res.FinancialImpact.Amount)

	detail, ok := res.Detail.(domain.OKDetail)
	require.True(t, ok)
	assert.Equal(t, DefaultEarliestOrderDay, detail.EarliestOrderDay)
	assert.Equal(t, 14, detail.LatestOrderDay)
	assert.Equal(t, 10, detail.DaysOfStockRemaining)
	assert.Equal(t, "Prochaine commande entre le 2025-01-17 et le 2025-01-24", res.Action)
	assert.Equal(t, 0, res.SuggestedQuantity())
}

func TestEvaluateOKWindow(t *testing.T) {
	c := NewAlertClassifier(clock)

	res := c.Evaluate(AlertInput{
		Product:  product(),
		Stock:    100,
		Forecast: repeat(10, 20),
		Margin:   10,
	})

	require.Equal(t, domain.TierOK, res.Tier)
	detail := res.Detail.(domain.OKDetail)
	// stock <= sum(0:i+8) first holds at i=2, stock <= sum(0:i+6) at i=4
	assert.Equal(t, 1, detail.EarliestOrderDay)
	assert.Equal(t, 4, detail.LatestOrderDay)
	assert.Equal(t, 10, detail.DaysOfStockRemaining)
	assert.Equal(t, 110, res.SuggestedQuantity())
}

func TestEvaluateMarginOutOfRange(t *testing.T) {
	c := NewAlertClassifier(clock)

	for _, margin := range []float64{-5, 50.5, 80} {
		res := c.Evaluate(AlertInput{Product: product(), Stock: 0, Forecast: repeat(10, 10), Margin: margin})

		assert.Equal(t, DefaultMargin, res.Margin)
		require.Len(t, res.Adjustments, 1)
		assert.Equal(t, "margin", res.Adjustments[0].Field)
		assert.Equal(t, margin, res.Adjustments[0].Given)
		assert.Equal(t, 115, res.SuggestedQuantity())
	}
}

func TestEvaluateOverridesAndDefaults(t *testing.T) {
	c := NewAlertClassifier(clock)
	lead := 2
	price := 250.0

	res := c.Evaluate(AlertInput{
		Product:   product(),
		Stock:     15,
		Forecast:  repeat(10, 10),
		Margin:    15,
		LeadTime:  &lead,
		UnitPrice: &price,
	})
	assert.Equal(t, 2, res.LeadTime)
	assert.Equal(t, 250.0, res.UnitPrice)
	assert.Equal(t, domain.TierCritical, res.Tier)

	res = c.Evaluate(AlertInput{
		Product:  domain.Product{ID: 1},
		Stock:    1000,
		Forecast: repeat(1, 10),
		Margin:   15,
	})
	assert.Equal(t, DefaultLeadTimeDays, res.LeadTime)
	assert.Equal(t, DefaultUnitPrice, res.UnitPrice)
}

func TestSuggestedQuantityNeverNegative(t *testing.T) {
	c := NewAlertClassifier(clock)

	for _, stock := range []int{0, 10, 100, 10000} {
		res := c.Evaluate(AlertInput{Product: product(), Stock: stock, Forecast: repeat(7, 40), Margin: 50})
		assert.GreaterOrEqual(t, res.SuggestedQuantity(), 0)
		assert.GreaterOrEqual(t, res.Quantity.NetNeed, 0)
	}
}
