// Package forecast adapts the predictions written by the external trainer into the
// daily sequences consumed by the alert and quantity engines.
package forecast

import (
	"context"
	"math"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/cache"
	"github.com/adhamcharaf/Optiflow-VF/internal/config"
	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultModelMAPE      = 12.62
	DefaultConfidence     = 0.85
	FallbackMAPE          = 25.0
	FallbackConfidence    = 0.65
	FallbackDailySales    = 10.0
	FallbackTrailingDays  = 30
	SaturdayMultiplier    = 1.3
	FallbackTrainedAtMark = "Fallback"

	lowerBoundRatio = 0.8
	upperBoundRatio = 1.2
	dateLayout      = "2006-01-02"
)

// Forecaster serves daily predictions for one product at a time
type Forecaster struct {
	forecasts repository.ForecastRepository
	sales     repository.SalesRepository
	cache     cache.ForecastCache
	now       func() time.Time
}

// New builds a forecaster. A nil cache disables caching, a nil clock uses time.Now.
func New(forecasts repository.ForecastRepository, sales repository.SalesRepository, c cache.ForecastCache, now func() time.Time) *Forecaster {
	if c == nil {
		c = cache.NewNoopForecastCache()
	}
	if now == nil {
		now = time.Now
	}
	return &Forecaster{
		forecasts: forecasts,
		sales:     sales,
		cache:     c,
		now:       now,
	}
}

// Predict returns one point per day of [start, end]. The range is capped at
// config.MaxForecastHorizonDays after start.
func (f *Forecaster) Predict(ctx context.Context, productID int64, start, end time.Time, events []domain.ForecastEvent) (*domain.ForecastResult, error) {
	start, end = truncate(start), truncate(end)
	if end.Before(start) {
		return nil, errors.Wrapf(domain.ErrInvalidRange, "forecast range %s..%s", start.Format(dateLayout), end.Format(dateLayout))
	}
	if limit := start.AddDate(0, 0, config.MaxForecastHorizonDays); end.After(limit) {
		log.Warn().
			Int64("product_id", productID).
			Str("requested_end", end.Format(dateLayout)).
			Str("end", limit.Format(dateLayout)).
			Msg("Forecast horizon capped")
		end = limit
	}

	key := cache.ForecastKey{
		ProductID: productID,
		Start:     start.Format(dateLayout),
		End:       end.Format(dateLayout),
		Events:    events,
	}
	if cached, ok, err := f.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("Forecast cache read failed")
	} else if ok {
		return cached, nil
	}

	model, err := f.forecasts.GetModel(ctx, productID)
	var result *domain.ForecastResult
	switch {
	case errors.Is(err, domain.ErrNotFound):
		log.Warn().Int64("product_id", productID).Msg("No trained model, using fallback forecast")
		result, err = f.fallback(ctx, productID, start, end)
	case err != nil:
		return nil, errors.Wrapf(domain.ErrPersistence, "load model of product %d: %v", productID, err)
	default:
		result, err = f.fromModel(ctx, model, start, end, events)
	}
	if err != nil {
		return nil, err
	}

	if err := f.cache.Set(ctx, key, result); err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("Forecast cache write failed")
	}
	return result, nil
}

func (f *Forecaster) fromModel(ctx context.Context, model *domain.ForecastModel, start, end time.Time, events []domain.ForecastEvent) (*domain.ForecastResult, error) {
	rows, err := f.forecasts.GetForecasts(ctx, model.ProductID, domain.DateRange{Start: start, End: end})
	if err != nil {
		return nil, errors.Wrapf(domain.ErrPersistence, "load forecasts of product %d: %v", model.ProductID, err)
	}
	byDay := make(map[string]domain.StoredForecast, len(rows))
	for _, row := range rows {
		byDay[row.ForecastDate.Format(dateLayout)] = row
	}
	multipliers := eventMultipliers(events)

	var gapValue *float64
	points := make([]domain.ForecastPoint, 0, len(rows))
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format(dateLayout)
		row, ok := byDay[date]
		if !ok {
			// the trainer did not cover this day, fill the gap with the trailing average
			if gapValue == nil {
				avg, err := f.trailingAverage(ctx, model.ProductID)
				if err != nil {
					return nil, err
				}
				gapValue = &avg
			}
			points = append(points, fallbackPoint(day, *gapValue))
			continue
		}
		points = append(points, modelPoint(date, row, multipliers[date]))
	}

	mape := DefaultModelMAPE
	if model.MAPE != nil {
		mape = *model.MAPE
	}
	return &domain.ForecastResult{
		ProductID:      model.ProductID,
		Points:         points,
		MAPE:           round(mape, 1),
		ModelTrainedAt: model.TrainedAt.Format(time.RFC3339),
	}, nil
}

func modelPoint(date string, row domain.StoredForecast, multiplier float64) domain.ForecastPoint {
	if multiplier == 0 {
		multiplier = 1
	}
	yhat := row.Predicted * multiplier
	quantity := math.Max(0, math.Round(yhat))

	lower := quantity * lowerBoundRatio
	if row.LowerBound != nil {
		lower = *row.LowerBound * multiplier
	}
	upper := quantity * upperBoundRatio
	if row.UpperBound != nil {
		upper = *row.UpperBound * multiplier
	}
	lower = math.Max(0, math.Round(lower))
	upper = math.Max(0, math.Round(upper))

	confidence := DefaultConfidence
	if upper > lower && upper > 0 {
		confidence = 1 - (upper-lower)/(upper+lower)
	}

	return domain.ForecastPoint{
		Date:       date,
		Quantity:   int(quantity),
		Confidence: round(confidence, 2),
		LowerBound: int(lower),
		UpperBound: int(upper),
	}
}

func (f *Forecaster) fallback(ctx context.Context, productID int64, start, end time.Time) (*domain.ForecastResult, error) {
	avg, err := f.trailingAverage(ctx, productID)
	if err != nil {
		return nil, err
	}

	var points []domain.ForecastPoint
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		points = append(points, fallbackPoint(day, avg))
	}
	return &domain.ForecastResult{
		ProductID:      productID,
		Points:         points,
		MAPE:           FallbackMAPE,
		FallbackMode:   true,
		ModelTrainedAt: FallbackTrainedAtMark,
	}, nil
}

func fallbackPoint(day time.Time, avg float64) domain.ForecastPoint {
	multiplier := 1.0
	if day.Weekday() == time.Saturday {
		multiplier = SaturdayMultiplier
	}
	quantity := int(avg * multiplier)
	return domain.ForecastPoint{
		Date:       day.Format(dateLayout),
		Quantity:   quantity,
		Confidence: FallbackConfidence,
		LowerBound: int(float64(quantity) * lowerBoundRatio),
		UpperBound: int(float64(quantity) * upperBoundRatio),
	}
}

// trailingAverage is the mean daily quantity sold over the last 30 days
func (f *Forecaster) trailingAverage(ctx context.Context, productID int64) (float64, error) {
	today := truncate(f.now())
	avg, ok, err := f.sales.GetAverageDailySales(ctx, productID, domain.DateRange{
		Start: today.AddDate(0, 0, -FallbackTrailingDays),
		End:   today,
	})
	if err != nil {
		return 0, errors.Wrapf(domain.ErrPersistence, "average sales of product %d: %v", productID, err)
	}
	if !ok {
		return FallbackDailySales, nil
	}
	return avg, nil
}

// Retroactive returns the stored prediction for each date that has one, keyed by
// calendar date. Products without a trained model yield ErrUpstreamUnavailable.
func (f *Forecaster) Retroactive(ctx context.Context, productID int64, dates []time.Time) (map[string]float64, error) {
	if _, err := f.forecasts.GetModel(ctx, productID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.Wrapf(domain.ErrUpstreamUnavailable, "product %d has no trained model", productID)
		}
		return nil, errors.Wrapf(domain.ErrPersistence, "load model of product %d: %v", productID, err)
	}
	if len(dates) == 0 {
		return map[string]float64{}, nil
	}

	r := domain.DateRange{Start: truncate(dates[0]), End: truncate(dates[0])}
	wanted := make(map[string]bool, len(dates))
	for _, d := range dates {
		d = truncate(d)
		wanted[d.Format(dateLayout)] = true
		if d.Before(r.Start) {
			r.Start = d
		}
		if d.After(r.End) {
			r.End = d
		}
	}

	rows, err := f.forecasts.GetForecasts(ctx, productID, r)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrPersistence, "load forecasts of product %d: %v", productID, err)
	}
	out := make(map[string]float64, len(dates))
	for _, row := range rows {
		date := row.ForecastDate.Format(dateLayout)
		if wanted[date] {
			out[date] = row.Predicted
		}
	}
	return out, nil
}

// InvalidateProduct drops every cached forecast of a product, used after new sales are imported
func (f *Forecaster) InvalidateProduct(ctx context.Context, productID int64) error {
	return f.cache.InvalidateProduct(ctx, productID)
}

func eventMultipliers(events []domain.ForecastEvent) map[string]float64 {
	out := make(map[string]float64, len(events))
	for _, e := range events {
		m := e.Multiplier
		if m == 0 {
			m = 1
		}
		if prev, ok := out[e.Date]; ok {
			m *= prev
		}
		out[e.Date] = m
	}
	return out
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
