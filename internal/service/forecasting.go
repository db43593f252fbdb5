package service

import (
	"context"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/replenishment"
)

// Forecaster produces the daily demand predictions of a product
type Forecaster interface {
	Predict(ctx context.Context, productID int64, start, end time.Time, events []domain.ForecastEvent) (*domain.ForecastResult, error)
}

// RetroactiveForecaster returns past predictions keyed by calendar date
type RetroactiveForecaster interface {
	Retroactive(ctx context.Context, productID int64, dates []time.Time) (map[string]float64, error)
}

// demandSequence fetches days of demand starting tomorrow, index 0 being tomorrow
func demandSequence(ctx context.Context, f Forecaster, productID int64, today time.Time, days int) ([]int, error) {
	if days < 1 {
		days = 1
	}
	start := today.AddDate(0, 0, 1)
	res, err := f.Predict(ctx, productID, start, start.AddDate(0, 0, days-1), nil)
	if err != nil {
		return nil, err
	}
	return replenishment.Quantities(res.Points), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func workerCount(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
