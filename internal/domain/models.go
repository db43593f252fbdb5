package domain

import "time"

// Product holds the static attributes the engines need for one article
type Product struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	UnitPrice    float64   `json:"unit_price" db:"unit_price"`
	LeadTimeDays int       `json:"lead_time_days" db:"lead_time_days"`
	Category     string    `json:"category" db:"category"`
	Supplier     string    `json:"supplier" db:"supplier"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// StockLevel is one recorded on-hand quantity for a product
type StockLevel struct {
	ProductID      int64     `json:"product_id" db:"product_id"`
	QuantityOnHand int       `json:"quantity_on_hand" db:"quantity_on_hand"`
	RecordedAt     time.Time `json:"recorded_at" db:"recorded_at"`
}

// DailySale is the realized quantity sold for a product on one calendar day
type DailySale struct {
	ProductID int64     `json:"product_id" db:"product_id"`
	Date      time.Time `json:"date" db:"order_date"`
	Quantity  float64   `json:"quantity" db:"quantity"`
}

// ForecastPoint is one day of predicted demand. Index 0 of a sequence is the first day of the horizon.
type ForecastPoint struct {
	Date       string  `json:"date"`
	Quantity   int     `json:"quantity"`
	Confidence float64 `json:"confidence"`
	LowerBound int     `json:"lower_bound"`
	UpperBound int     `json:"upper_bound"`
}

// ForecastResult is what the forecast adapter hands to the engines
type ForecastResult struct {
	ProductID      int64           `json:"product_id"`
	Points         []ForecastPoint `json:"predictions"`
	MAPE           float64         `json:"mape"`
	FallbackMode   bool            `json:"fallback_mode"`
	ModelTrainedAt string          `json:"model_last_trained"`
}

// ForecastEvent scales the forecast on a given date (promotion, holiday, ...)
type ForecastEvent struct {
	Name       string  `json:"name"`
	Date       string  `json:"date"`
	Multiplier float64 `json:"multiplier"`
}

// ForecastModel describes a trained forecaster available for a product
type ForecastModel struct {
	ProductID int64     `json:"product_id" db:"product_id"`
	MAPE      *float64  `json:"mape" db:"mape"`
	TrainedAt time.Time `json:"trained_at" db:"trained_at"`
}

// StoredForecast is a raw prediction row written by the external trainer
type StoredForecast struct {
	ProductID    int64     `json:"product_id" db:"product_id"`
	ForecastDate time.Time `json:"forecast_date" db:"forecast_date"`
	Predicted    float64   `json:"predicted_quantity" db:"predicted_quantity"`
	LowerBound   *float64  `json:"lower_bound" db:"lower_bound"`
	UpperBound   *float64  `json:"upper_bound" db:"upper_bound"`
}

// Order is a purchase order placed after looking at an alert
type Order struct {
	ID                int64     `json:"id" db:"id"`
	ProductID         int64     `json:"product_id" db:"product_id"`
	ProductName       string    `json:"product_name" db:"product_name"`
	OrderDate         time.Time `json:"order_date" db:"order_date"`
	QuantityOrdered   int       `json:"quantity_ordered" db:"quantity_ordered"`
	SuggestedQuantity int       `json:"suggested_quantity" db:"suggested_quantity"`
	AlertTier         string    `json:"alert_type" db:"alert_type"`
	StockAtOrder      int       `json:"stock_at_order" db:"stock_at_order"`
	UnitPrice         float64   `json:"unit_price" db:"unit_price"`
	LeadTimeDays      int       `json:"lead_time_days" db:"lead_time_days"`
	ExpectedDelivery  time.Time `json:"expected_delivery" db:"expected_delivery"`
}

// TotalAmount is the ordered value
func (o Order) TotalAmount() float64 {
	return float64(o.QuantityOrdered) * o.UnitPrice
}

// OrderStatistics aggregates the orders table
type OrderStatistics struct {
	TotalOrders    int            `json:"total_orders"`
	OrdersByTier   map[string]int `json:"orders_by_alert_type"`
	TotalValue     float64        `json:"total_value"`
	RecentOrders7d int            `json:"recent_orders_7_days"`
	TopProducts    []TopProduct   `json:"top_ordered_products"`
}

// TopProduct is one row of the most ordered products ranking
type TopProduct struct {
	ProductID     int64  `json:"product_id" db:"product_id"`
	Name          string `json:"name" db:"name"`
	OrderCount    int    `json:"order_count" db:"order_count"`
	TotalQuantity int    `json:"total_quantity" db:"total_quantity"`
}
