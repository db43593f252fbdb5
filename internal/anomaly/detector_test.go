package anomaly

import (
	"testing"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestDetectZeroPrediction(t *testing.T) {
	assert.Nil(t, Detect(Observation{ProductID: 1, Date: day, Predicted: 0, Actual: 3}))
	assert.Nil(t, Detect(Observation{ProductID: 1, Date: day, Predicted: 0, Actual: 5}))

	a := Detect(Observation{ProductID: 1, Date: day, Predicted: 0, Actual: 10})
	require.NotNil(t, a)
	assert.Equal(t, 100.0, a.DeviationPercent)
	assert.Equal(t, domain.AnomalySpike, a.Type)
	assert.Equal(t, domain.SeverityMedium, a.Severity)
	assert.Equal(t, domain.AnomalyPending, a.Status)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		predicted float64
		actual    float64
		anomalous bool
		kind      domain.AnomalyType
		severity  domain.AnomalySeverity
	}{
		{name: "within tolerance", predicted: 10, actual: 14},
		{name: "exactly at threshold", predicted: 10, actual: 15},
		{name: "low spike", predicted: 10, actual: 16, anomalous: true, kind: domain.AnomalySpike, severity: domain.SeverityLow},
		{name: "medium drop", predicted: 10, actual: 2, anomalous: true, kind: domain.AnomalyDrop, severity: domain.SeverityMedium},
		{name: "high spike", predicted: 10, actual: 25, anomalous: true, kind: domain.AnomalySpike, severity: domain.SeverityHigh},
		{name: "critical spike", predicted: 10, actual: 40, anomalous: true, kind: domain.AnomalySpike, severity: domain.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Detect(Observation{ProductID: 3, Date: day, Predicted: tt.predicted, Actual: tt.actual})
			if !tt.anomalous {
				assert.Nil(t, a)
				return
			}
			require.NotNil(t, a)
			assert.Equal(t, tt.kind, a.Type)
			assert.Equal(t, tt.severity, a.Severity)
		})
	}
}

func TestFeedbackMAPE(t *testing.T) {
	assert.InDelta(t, 25.0, FeedbackMAPE(8, 10), 1e-9)
	assert.Equal(t, 100.0, FeedbackMAPE(0, 4))
	assert.Equal(t, 0.0, FeedbackMAPE(0, 0))

	fb := Feedback(Observation{ProductID: 2, Date: day, Predicted: 10, Actual: 8}, nil)
	assert.True(t, fb.IncludedInTraining)
	assert.Nil(t, fb.AnomalyID)
}

func status(s domain.AnomalyStatus) *domain.AnomalyStatus { return &s }

func row(mape float64, s *domain.AnomalyStatus) domain.FeedbackWithStatus {
	return domain.FeedbackWithStatus{
		PredictionFeedback: domain.PredictionFeedback{MAPE: mape},
		AnomalyStatus:      s,
	}
}

func TestCleanMAPE(t *testing.T) {
	rows := []domain.FeedbackWithStatus{
		row(10, nil),
		row(20, status(domain.AnomalyPending)),
		row(30, status(domain.AnomalySeasonal)),
		row(90, status(domain.AnomalyIgnored)),
	}

	report := CleanMAPE(rows, nil)
	require.NotNil(t, report.CleanMAPE)
	assert.Equal(t, 20.0, *report.CleanMAPE)
	assert.Equal(t, 3, report.PredictionsUsed)
	assert.Equal(t, 1, report.AnomaliesExcluded)
	assert.Equal(t, 4, report.TotalPredictions)
	assert.Nil(t, report.Improvement)

	ref := 25.0
	report = CleanMAPE(rows, &ref)
	require.NotNil(t, report.Improvement)
	assert.Equal(t, 5.0, *report.Improvement)
	assert.Equal(t, 20.0, *report.ImprovementPercent)
}

func TestCleanMAPEEmpty(t *testing.T) {
	report := CleanMAPE(nil, nil)
	assert.Nil(t, report.CleanMAPE)
	assert.Equal(t, 0, report.PredictionsUsed)
}
