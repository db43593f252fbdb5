package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
)

type forecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) repository.ForecastRepository {
	return &forecastRepository{db: db}
}

func (r *forecastRepository) GetModel(ctx context.Context, productID int64) (*domain.ForecastModel, error) {
	query := `
		SELECT product_id, mape, trained_at
		FROM forecast_models
		WHERE product_id = $1
	`

	var m domain.ForecastModel
	if err := r.db.GetContext(ctx, &m, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("error getting model of product %d: %w", productID, err)
	}
	return &m, nil
}

func (r *forecastRepository) GetForecasts(ctx context.Context, productID int64, dr domain.DateRange) ([]domain.StoredForecast, error) {
	where, args := rangeClause("forecast_date", dr, []interface{}{productID})
	query := `
		SELECT product_id, forecast_date, predicted_quantity, lower_bound, upper_bound
		FROM forecasts
		WHERE product_id = $1` + where + `
		ORDER BY forecast_date
	`

	var rows []domain.StoredForecast
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting forecasts of product %d: %w", productID, err)
	}
	return rows, nil
}
