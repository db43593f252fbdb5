package anomaly

import (
	"math"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
)

const (
	// Threshold is the relative deviation above which a day is anomalous
	Threshold = 0.5
	// UnpredictedSalesFloor is the actual quantity above which sales on a zero prediction count as a spike
	UnpredictedSalesFloor = 5.0
)

// Observation pairs a retroactive prediction with the realized sales of its day
type Observation struct {
	ProductID int64
	Date      time.Time
	Predicted float64
	Actual    float64
}

// Deviation returns |actual-predicted|/predicted and false when the day must be skipped.
// A zero prediction counts as a full deviation only if actual exceeds the floor.
func Deviation(actual, predicted float64) (float64, bool) {
	if predicted == 0 {
		if actual > UnpredictedSalesFloor {
			return 1.0, true
		}
		return 0, false
	}
	return math.Abs(actual-predicted) / predicted, true
}

// Severity buckets a relative deviation
func Severity(deviation float64) domain.AnomalySeverity {
	switch {
	case deviation > 2.0:
		return domain.SeverityCritical
	case deviation > 1.0:
		return domain.SeverityHigh
	case deviation > 0.75:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// Detect returns the anomaly for an observation, or nil when the day is within tolerance.
// The returned anomaly is pending and has no id.
func Detect(o Observation) *domain.Anomaly {
	dev, ok := Deviation(o.Actual, o.Predicted)
	if !ok || dev <= Threshold {
		return nil
	}

	kind := domain.AnomalyDrop
	if o.Actual > o.Predicted {
		kind = domain.AnomalySpike
	}

	return &domain.Anomaly{
		ProductID:        o.ProductID,
		DetectionDate:    o.Date,
		ActualValue:      o.Actual,
		PredictedValue:   o.Predicted,
		DeviationPercent: dev * 100,
		Type:             kind,
		Severity:         Severity(dev),
		Status:           domain.AnomalyPending,
	}
}

// FeedbackMAPE is the absolute percentage error of one prediction, against the actual value
func FeedbackMAPE(actual, predicted float64) float64 {
	if actual != 0 {
		return math.Abs(actual-predicted) / actual * 100
	}
	if predicted > 0 {
		return 100
	}
	return 0
}

// Feedback builds the feedback row of an observation
func Feedback(o Observation, anomalyID *int64) domain.PredictionFeedback {
	return domain.PredictionFeedback{
		ProductID:          o.ProductID,
		Date:               o.Date,
		PredictedValue:     o.Predicted,
		ActualValue:        o.Actual,
		MAPE:               FeedbackMAPE(o.Actual, o.Predicted),
		AnomalyID:          anomalyID,
		IncludedInTraining: true,
	}
}

// CleanMAPE averages the feedback MAPE over the rows whose anomaly is not ignored
func CleanMAPE(rows []domain.FeedbackWithStatus, reference *float64) domain.CleanMAPEReport {
	report := domain.CleanMAPEReport{TotalPredictions: len(rows), ReferenceMAPE: reference}

	var sum float64
	for _, r := range rows {
		if r.Ignored() {
			report.AnomaliesExcluded++
			continue
		}
		sum += r.MAPE
		report.PredictionsUsed++
	}

	if report.PredictionsUsed == 0 {
		return report
	}

	clean := round(sum/float64(report.PredictionsUsed), 2)
	report.CleanMAPE = &clean

	if reference != nil {
		improvement := round(*reference-clean, 2)
		report.Improvement = &improvement
		if *reference != 0 {
			pct := round(improvement / *reference * 100, 1)
			report.ImprovementPercent = &pct
		}
	}
	return report
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
