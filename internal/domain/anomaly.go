package domain

import "time"

// AnomalyStatus is the review state of a detected anomaly
type AnomalyStatus string

const (
	AnomalyPending   AnomalyStatus = "pending"
	AnomalyValidated AnomalyStatus = "validated"
	AnomalyIgnored   AnomalyStatus = "ignored"
	AnomalySeasonal  AnomalyStatus = "seasonal"
)

// Valid reports whether s is one of the known statuses
func (s AnomalyStatus) Valid() bool {
	switch s {
	case AnomalyPending, AnomalyValidated, AnomalyIgnored, AnomalySeasonal:
		return true
	}
	return false
}

// CanTransitionTo allows pending -> {validated, ignored, seasonal} only.
// Going back to pending is reserved to a confirmed full re-detection.
func (s AnomalyStatus) CanTransitionTo(next AnomalyStatus) bool {
	if s != AnomalyPending {
		return false
	}
	switch next {
	case AnomalyValidated, AnomalyIgnored, AnomalySeasonal:
		return true
	}
	return false
}

// AnomalyType tells whether sales were above or below the forecast
type AnomalyType string

const (
	AnomalySpike AnomalyType = "spike"
	AnomalyDrop  AnomalyType = "drop"
)

// AnomalySeverity buckets the relative deviation
type AnomalySeverity string

const (
	SeverityLow      AnomalySeverity = "low"
	SeverityMedium   AnomalySeverity = "medium"
	SeverityHigh     AnomalySeverity = "high"
	SeverityCritical AnomalySeverity = "critical"
)

// Anomaly is a day where realized sales deviated from the forecast. At most one per (product, date).
type Anomaly struct {
	ID               int64           `json:"id" db:"id"`
	ProductID        int64           `json:"product_id" db:"product_id"`
	ProductName      string          `json:"product_name,omitempty" db:"product_name"`
	DetectionDate    time.Time       `json:"detection_date" db:"detection_date"`
	ActualValue      float64         `json:"actual_value" db:"actual_value"`
	PredictedValue   float64         `json:"predicted_value" db:"predicted_value"`
	DeviationPercent float64         `json:"deviation_percent" db:"deviation_percent"`
	Type             AnomalyType     `json:"anomaly_type" db:"anomaly_type"`
	Severity         AnomalySeverity `json:"severity" db:"severity"`
	Status           AnomalyStatus   `json:"status" db:"status"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// PredictionFeedback compares one prediction to the realized sales of its day
type PredictionFeedback struct {
	ID                 int64     `json:"id" db:"id"`
	ProductID          int64     `json:"product_id" db:"product_id"`
	Date               time.Time `json:"date" db:"feedback_date"`
	PredictedValue     float64   `json:"predicted_value" db:"predicted_value"`
	ActualValue        float64   `json:"actual_value" db:"actual_value"`
	MAPE               float64   `json:"mape" db:"mape"`
	AnomalyID          *int64    `json:"anomaly_id,omitempty" db:"anomaly_id"`
	IncludedInTraining bool      `json:"included_in_training" db:"included_in_training"`
}

// FeedbackWithStatus is a feedback row joined with the status of the anomaly on its day
type FeedbackWithStatus struct {
	PredictionFeedback
	AnomalyStatus *AnomalyStatus `json:"anomaly_status,omitempty" db:"anomaly_status"`
}

// Ignored reports whether the linked anomaly was marked ignored
func (f FeedbackWithStatus) Ignored() bool {
	return f.AnomalyStatus != nil && *f.AnomalyStatus == AnomalyIgnored
}

// DateRange is an inclusive calendar range. Zero bounds are open.
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// Contains reports whether d falls inside the range
func (r DateRange) Contains(d time.Time) bool {
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}

// AnomalyFilter narrows ListAnomalies
type AnomalyFilter struct {
	Status    *AnomalyStatus
	ProductID *int64
	Range     DateRange
	Limit     int
}

// FeedbackFilter narrows feedback reads
type FeedbackFilter struct {
	ProductIDs   []int64
	Range        DateRange
	TrainingOnly bool
}

// DetectionMode selects between the safe and the destructive detection path
type DetectionMode string

const (
	DetectionIncremental DetectionMode = "incremental"
	DetectionFull        DetectionMode = "full"
)

// DetectionResult summarizes one detection run
type DetectionResult struct {
	Mode             DetectionMode `json:"mode"`
	AnomaliesFound   int           `json:"anomalies_found"`
	New              int           `json:"new"`
	Updated          int           `json:"updated"`
	Preserved        int           `json:"anomalies_preserved"`
	ProductsAnalyzed int           `json:"products_analyzed"`
	TotalPredictions int           `json:"total_predictions"`
	AnomalyRate      float64       `json:"anomaly_rate"`
	Range            DateRange     `json:"range"`
}

// CleanMAPEReport is the accuracy metric without the ignored days
type CleanMAPEReport struct {
	CleanMAPE          *float64 `json:"clean_mape"`
	PredictionsUsed    int      `json:"predictions_used"`
	AnomaliesExcluded  int      `json:"anomalies_excluded"`
	TotalPredictions   int      `json:"total_predictions"`
	ReferenceMAPE      *float64 `json:"reference_mape,omitempty"`
	Improvement        *float64 `json:"improvement,omitempty"`
	ImprovementPercent *float64 `json:"improvement_percent,omitempty"`
}

// RedetectionPlan is the first phase of a full re-detection
type RedetectionPlan struct {
	Token           string    `json:"token"`
	ExpiresAt       time.Time `json:"expires_at"`
	Range           DateRange `json:"range"`
	ProductIDs      []int64   `json:"product_ids,omitempty"`
	AnomaliesAtRisk int       `json:"anomalies_at_risk"`
	Warning         string    `json:"warning"`
}
