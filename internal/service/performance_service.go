package service

import (
	"context"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/accuracy"
	"github.com/adhamcharaf/Optiflow-VF/internal/config"
	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/pkg/errors"
)

// PerformanceReport is the forecast accuracy of one product over a trailing window
type PerformanceReport struct {
	ProductID       int64              `json:"product_id"`
	ProductName     string             `json:"product_name"`
	PeriodDays      int                `json:"period_days"`
	Predictions     int                `json:"predictions"`
	MAPE            *float64           `json:"mape"`
	MAPEByWeekday   map[string]float64 `json:"mape_by_weekday"`
	ErrorPattern    string             `json:"error_pattern"`
	Metrics         accuracy.Metrics   `json:"metrics"`
	Trend           string             `json:"trend"`
	Recommendations []string           `json:"recommendations"`
}

type PerformanceService struct {
	products  repository.ProductRepository
	anomalies repository.AnomalyRepository
	now       func() time.Time
	window    int
}

func NewPerformanceService(store repository.Store, cfg config.EngineConfig, now func() time.Time) *PerformanceService {
	if now == nil {
		now = time.Now
	}
	window := cfg.MonitoringWindowDays
	if window <= 0 {
		window = 30
	}
	return &PerformanceService{
		products:  store.Products,
		anomalies: store.Anomalies,
		now:       now,
		window:    window,
	}
}

// ProductPerformance monitors the last days of predictions, the configured window when days <= 0
func (s *PerformanceService) ProductPerformance(ctx context.Context, productID int64, days int) (*PerformanceReport, error) {
	if days <= 0 {
		days = s.window
	}
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	today := startOfDay(s.now())
	rows, err := s.anomalies.ListFeedback(ctx, domain.FeedbackFilter{
		ProductIDs: []int64{productID},
		Range:      domain.DateRange{Start: today.AddDate(0, 0, -days), End: today},
	})
	if err != nil {
		return nil, errors.Wrap(domain.ErrPersistence, err.Error())
	}

	points := make([]accuracy.Point, len(rows))
	for i, row := range rows {
		points[i] = accuracy.Point{Date: row.Date, Predicted: row.PredictedValue, Actual: row.ActualValue}
	}

	report := &PerformanceReport{
		ProductID:     product.ID,
		ProductName:   product.Name,
		PeriodDays:    days,
		Predictions:   len(points),
		MAPEByWeekday: accuracy.MAPEByWeekday(points),
		ErrorPattern:  accuracy.ErrorPattern(points),
		Metrics:       accuracy.Compute(points),
		Trend:         accuracy.Trend(points, today.AddDate(0, 0, 1)),
	}
	if mape, ok := accuracy.MAPE(points); ok {
		rounded := accuracy.Round(mape, 2)
		report.MAPE = &rounded
		report.Recommendations = accuracy.Recommendations(mape, report.MAPEByWeekday, report.ErrorPattern, report.Metrics)
	}
	return report, nil
}
