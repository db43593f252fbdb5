package domain

import (
	"encoding/json"
	"time"
)

// AlertTier is the stockout risk classification of a product
type AlertTier string

const (
	TierCritical  AlertTier = "CRITIQUE"
	TierAttention AlertTier = "ATTENTION"
	TierOK        AlertTier = "OK"
)

// Batch entry statuses
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// ParseAlertTier accepts the stored labels and their English spellings.
func ParseAlertTier(label string) (AlertTier, bool) {
	switch label {
	case "CRITIQUE", "CRITICAL", "critical":
		return TierCritical, true
	case "ATTENTION", "attention":
		return TierAttention, true
	case "OK", "ok":
		return TierOK, true
	}
	return "", false
}

// FinancialImpact is the money at stake for the evaluated tier
type FinancialImpact struct {
	Type    string `json:"type"`
	Amount  int64  `json:"amount"`
	Details string `json:"details"`
}

// TierDetail is the tier specific payload of an AlertResult.
// Exactly one of CriticalDetail, AttentionDetail or OKDetail is attached.
type TierDetail interface {
	Tier() AlertTier
}

// CriticalDetail describes an unavoidable stockout inside the lead time
type CriticalDetail struct {
	StockoutDay      int    `json:"stockout_day"`
	StockoutDate     string `json:"stockout_date"`
	DaysOfStockout   int    `json:"days_of_stockout"`
	LostUnits        int    `json:"lost_units"`
	FinancialLoss    int64  `json:"financial_loss"`
	OrderRecommended string `json:"order_recommended"`
}

func (CriticalDetail) Tier() AlertTier { return TierCritical }

// AttentionDetail describes a stockout that an order placed before the deadline avoids
type AttentionDetail struct {
	OrderDeadlineDay      int     `json:"order_deadline_day"`
	OrderDeadlineDate     string  `json:"order_deadline_date"`
	StockoutIfNoOrderDate string  `json:"stockout_if_no_order_date"`
	AvgDailyDemand        float64 `json:"avg_daily_demand"`
	UnitsSaved            int64   `json:"units_saved"`
	BenefitIfOrdered      int64   `json:"benefit_if_ordered"`
	DaysRemaining         int     `json:"days_remaining"`
}

func (AttentionDetail) Tier() AlertTier { return TierAttention }

// OKDetail gives the reorder window of a product with enough stock
type OKDetail struct {
	EarliestOrderDay     int    `json:"earliest_order_day"`
	EarliestOrderDate    string `json:"earliest_order_date"`
	LatestOrderDay       int    `json:"latest_order_day"`
	LatestOrderDate      string `json:"latest_order_date"`
	DaysOfStockRemaining int    `json:"days_of_stock_remaining"`
}

func (OKDetail) Tier() AlertTier { return TierOK }

// QuantityDetail is the reorder quantity attached to every alert
type QuantityDetail struct {
	PredictionsCumulated int    `json:"predictions_cumulated"`
	CurrentStock         int    `json:"current_stock"`
	NetNeed              int    `json:"net_need"`
	MarginUnits          int    `json:"margin_units"`
	SuggestedQuantity    int    `json:"suggested_quantity"`
	CoverageUntil        string `json:"coverage_until"`
}

// Adjustment records an input that was out of range and replaced
type Adjustment struct {
	Field   string  `json:"field"`
	Given   float64 `json:"given"`
	Applied float64 `json:"applied"`
	Reason  string  `json:"reason"`
}

// AlertResult is computed fresh on every evaluation; it is never updated in place.
type AlertResult struct {
	ProductID        int64           `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Tier             AlertTier       `json:"status"`
	Urgency          string          `json:"urgency_level"`
	Action           string          `json:"action"`
	Stock            int             `json:"stock_at_eval"`
	LeadTime         int             `json:"lead_time"`
	DemandDuringLead int             `json:"predicted_demand_during_lead_time"`
	StockAfterLead   int             `json:"stock_after_lead_time"`
	UnitPrice        float64         `json:"unit_price"`
	Margin           float64         `json:"margin"`
	FinancialImpact  FinancialImpact `json:"financial_impact"`
	Detail           TierDetail      `json:"detail"`
	Quantity         QuantityDetail  `json:"quantity"`
	Adjustments      []Adjustment    `json:"adjustments,omitempty"`
	EvaluatedAt      time.Time       `json:"evaluated_at"`
}

// SuggestedQuantity is shorthand for the attached quantity suggestion
func (r *AlertResult) SuggestedQuantity() int {
	return r.Quantity.SuggestedQuantity
}

// AlertEntry is one product in a batch evaluation, either a result or an error
type AlertEntry struct {
	ProductID int64        `json:"product_id"`
	Status    string       `json:"status"`
	Error     string       `json:"error,omitempty"`
	Alert     *AlertResult `json:"alert,omitempty"`
}

// AlertSummary counts the tiers of a batch
type AlertSummary struct {
	Total     int       `json:"total_articles"`
	Critical  int       `json:"critiques"`
	Attention int       `json:"attention"`
	OK        int       `json:"ok"`
	Errors    int       `json:"errors"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertBatch is the result of evaluating several products
type AlertBatch struct {
	Alerts  []AlertEntry `json:"alerts"`
	Summary AlertSummary `json:"summary"`
}

// StoredAlert is a computed alert kept for history
type StoredAlert struct {
	ID              int64           `json:"id" db:"id"`
	ProductID       int64           `json:"product_id" db:"product_id"`
	Status          string          `json:"status" db:"status"`
	Action          string          `json:"action" db:"action"`
	FinancialImpact float64         `json:"financial_impact" db:"financial_impact"`
	Details         json.RawMessage `json:"details" db:"details"`
	ComputedAt      time.Time       `json:"computed_at" db:"computed_at"`
}
