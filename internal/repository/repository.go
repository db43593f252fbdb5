package repository

import (
	"context"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
)

// ProductRepository reads product attributes and stock levels
type ProductRepository interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	// GetCurrentStock returns the latest recorded level, 0 when none was recorded
	GetCurrentStock(ctx context.Context, productID int64) (int, error)
	RecordStock(ctx context.Context, levels []domain.StockLevel) error
}

// SalesRepository holds realized daily sales, at most one row per product and day
type SalesRepository interface {
	GetDailySales(ctx context.Context, productID int64, r domain.DateRange) ([]domain.DailySale, error)
	// GetAverageDailySales reports false when no sale exists in the range
	GetAverageDailySales(ctx context.Context, productID int64, r domain.DateRange) (float64, bool, error)
	UpsertDailySales(ctx context.Context, sales []domain.DailySale) error
}

// ForecastRepository reads what the external trainer produced
type ForecastRepository interface {
	// GetModel returns domain.ErrNotFound when the product has no trained model
	GetModel(ctx context.Context, productID int64) (*domain.ForecastModel, error)
	GetForecasts(ctx context.Context, productID int64, r domain.DateRange) ([]domain.StoredForecast, error)
}

// AnomalyRepository stores anomalies and prediction feedback, both unique per (product, date)
type AnomalyRepository interface {
	GetAnomaly(ctx context.Context, id int64) (*domain.Anomaly, error)
	FindAnomaly(ctx context.Context, productID int64, date time.Time) (*domain.Anomaly, error)
	CreateAnomaly(ctx context.Context, a *domain.Anomaly) error
	// UpdateAnomaly overwrites the measurements and the status of an existing anomaly
	UpdateAnomaly(ctx context.Context, a *domain.Anomaly) error
	// UpdateAnomalyStatus sets the status and, when excludeFromTraining is set,
	// clears included_in_training on the linked feedback in the same transaction
	UpdateAnomalyStatus(ctx context.Context, id int64, status domain.AnomalyStatus, excludeFromTraining bool) error
	ListAnomalies(ctx context.Context, filter domain.AnomalyFilter) ([]domain.Anomaly, error)
	CountAnomalies(ctx context.Context, productIDs []int64, r domain.DateRange) (int, error)

	UpsertFeedback(ctx context.Context, fb domain.PredictionFeedback) error
	ListFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]domain.FeedbackWithStatus, error)
}

// AlertRepository keeps the computed alerts of batch runs
type AlertRepository interface {
	SaveAlerts(ctx context.Context, alerts []domain.StoredAlert) error
	ListAlertHistory(ctx context.Context, productID *int64, limit int) ([]domain.StoredAlert, error)
}

// OrderRepository records purchase orders
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	ListOrders(ctx context.Context, productID *int64, since time.Time) ([]domain.Order, error)
	OrderStatistics(ctx context.Context, recentSince time.Time) (*domain.OrderStatistics, error)
}

// Store groups every repository the services need
type Store struct {
	Products  ProductRepository
	Sales     SalesRepository
	Forecasts ForecastRepository
	Anomalies AnomalyRepository
	Alerts    AlertRepository
	Orders    OrderRepository
}
