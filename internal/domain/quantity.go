package domain

// Budget statuses of a constrained suggestion
const (
	BudgetSufficient = "OK - Budget suffisant"
	BudgetLimited    = "Limité par le budget"
)

// QuantitySuggestion is the reorder quantity covering demand until a target date
type QuantitySuggestion struct {
	ProductID            int64        `json:"product_id"`
	ProductName          string       `json:"product_name"`
	PredictionsCumulated float64      `json:"predictions_cumulated"`
	CurrentStock         int          `json:"current_stock"`
	NetNeed              float64      `json:"net_need"`
	Margin               float64      `json:"margin_percent"`
	MarginUnits          float64      `json:"margin_amount"`
	FinalQuantity        int          `json:"final_quantity"`
	UnitPrice            float64      `json:"unit_price"`
	CostEstimate         float64      `json:"cost_estimate"`
	DaysToCover          int          `json:"days_to_cover"`
	TargetDate           string       `json:"target_coverage_date"`
	Adjustments          []Adjustment `json:"adjustments,omitempty"`
	Recommendations      []string     `json:"recommendations,omitempty"`
}

// BudgetSuggestion is a suggestion capped by a spending limit
type BudgetSuggestion struct {
	QuantitySuggestion
	Budget        float64 `json:"budget"`
	IdealQuantity int     `json:"ideal_quantity"`
	IdealCost     float64 `json:"ideal_cost"`
	Deficit       int     `json:"deficit"`
	DaysCovered   int     `json:"days_covered"`
	BudgetStatus  string  `json:"budget_status"`
}

// QuantityEntry is one product of a batch suggestion
type QuantityEntry struct {
	ProductID  int64               `json:"product_id"`
	Status     string              `json:"status"`
	Error      string              `json:"error,omitempty"`
	Suggestion *QuantitySuggestion `json:"suggestion,omitempty"`
}

// QuantityBatch sums the successful entries only
type QuantityBatch struct {
	Entries       []QuantityEntry `json:"suggestions"`
	TotalQuantity int             `json:"total_quantity"`
	TotalCost     float64         `json:"total_cost"`
	Succeeded     int             `json:"succeeded"`
	Failed        int             `json:"failed"`
}
