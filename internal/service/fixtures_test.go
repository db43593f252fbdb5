package service

import (
	"context"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/config"
	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/forecast"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository/memory"
)

// 2025-01-10 is a Friday
var fixedNow = time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func jan(day int) time.Time {
	return time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC)
}

func engineConfig() config.EngineConfig {
	return config.EngineConfig{
		BatchWorkers:         4,
		DefaultMargin:        15,
		AnomalyLookbackDays:  7,
		RedetectionTTL:       10 * time.Minute,
		ForecastHorizonDays:  30,
		MonitoringWindowDays: 30,
	}
}

// fixture seeds:
//   - product 7 (lead 5, price 1000, stock 50) with a trained model heading for a stockout
//   - product 8 (no model, stock 1000) served by the fallback forecast
//   - product 3 with retroactive predictions of 10 for Jan 1..5 and realized sales
//   - product 4 with sales but no model
type fixture struct {
	store      *memory.Store
	forecaster *forecast.Forecaster
}

func newFixture() *fixture {
	store := memory.New().WithClock(clock)

	store.AddProduct(domain.Product{ID: 7, Name: "Riz 25kg", UnitPrice: 1000, LeadTimeDays: 5})
	store.AddProduct(domain.Product{ID: 8, Name: "Huile 5L", UnitPrice: 500, LeadTimeDays: 5})
	store.AddProduct(domain.Product{ID: 3, Name: "Sucre 1kg", UnitPrice: 800, LeadTimeDays: 3})
	store.AddProduct(domain.Product{ID: 4, Name: "Lait 1L", UnitPrice: 600, LeadTimeDays: 2})

	_ = store.RecordStock(context.Background(), []domain.StockLevel{
		{ProductID: 7, QuantityOnHand: 80, RecordedAt: jan(8)},
		{ProductID: 7, QuantityOnHand: 50, RecordedAt: jan(9)},
		{ProductID: 8, QuantityOnHand: 1000, RecordedAt: jan(9)},
	})

	daily := []float64{20, 25, 30, 20, 25}
	var rows []domain.StoredForecast
	for i := 0; i < 30; i++ {
		q := 20.0
		if i < len(daily) {
			q = daily[i]
		}
		rows = append(rows, domain.StoredForecast{ProductID: 7, ForecastDate: jan(11 + i), Predicted: q})
	}
	store.AddModel(domain.ForecastModel{ProductID: 7, TrainedAt: jan(1)}, rows...)

	var past []domain.StoredForecast
	for d := 1; d <= 5; d++ {
		past = append(past, domain.StoredForecast{ProductID: 3, ForecastDate: jan(d), Predicted: 10})
	}
	store.AddModel(domain.ForecastModel{ProductID: 3, TrainedAt: jan(1)}, past...)

	_ = store.UpsertDailySales(context.Background(), []domain.DailySale{
		{ProductID: 3, Date: jan(1), Quantity: 10},
		{ProductID: 3, Date: jan(2), Quantity: 20},
		{ProductID: 3, Date: jan(3), Quantity: 2},
		{ProductID: 3, Date: jan(4), Quantity: 12},
		{ProductID: 3, Date: jan(5), Quantity: 40},
		{ProductID: 4, Date: jan(2), Quantity: 50},
	})

	return &fixture{
		store:      store,
		forecaster: forecast.New(store, store, nil, clock),
	}
}
