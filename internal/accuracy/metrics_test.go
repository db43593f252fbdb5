package accuracy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-06-03 is a Monday
var monday = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func at(offset int, predicted, actual float64) Point {
	return Point{Date: monday.AddDate(0, 0, offset), Predicted: predicted, Actual: actual}
}

func TestMAPE(t *testing.T) {
	m, ok := MAPE([]Point{at(0, 8, 10), at(1, 12, 10), at(2, 5, 0)})
	require.True(t, ok)
	assert.InDelta(t, 20.0, m, 1e-9)

	_, ok = MAPE([]Point{at(0, 3, 0)})
	assert.False(t, ok)

	_, ok = MAPE(nil)
	assert.False(t, ok)
}

func TestMAPEByWeekday(t *testing.T) {
	got := MAPEByWeekday([]Point{at(0, 5, 10), at(7, 10, 10), at(5, 15, 10)})

	assert.Equal(t, 25.0, got["Lundi"])
	assert.Equal(t, 50.0, got["Samedi"])
	assert.NotContains(t, got, "Mardi")
}

func TestErrorPattern(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   string
	}{
		{name: "over", points: []Point{at(0, 20, 10), at(1, 18, 10)}, want: PatternOverEstimation},
		{name: "under", points: []Point{at(0, 2, 10), at(1, 3, 10)}, want: PatternUnderEstimation},
		{name: "weekend over", points: []Point{at(0, 10, 10), at(1, 11, 10), at(5, 14, 10)}, want: PatternWeekendOverEstimation},
		{name: "weekend under", points: []Point{at(0, 10, 10), at(1, 11, 10), at(6, 6, 10)}, want: PatternWeekendUnderEstimation},
		{name: "balanced", points: []Point{at(0, 11, 10), at(1, 11, 10), at(5, 11, 10)}, want: PatternBalanced},
		{name: "empty", want: PatternBalanced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorPattern(tt.points))
		})
	}
}

func TestCompute(t *testing.T) {
	m := Compute([]Point{at(0, 12, 10), at(1, 10, 10), at(2, 4, 10)})

	assert.Equal(t, 2.67, m.MAE)
	assert.Equal(t, 3.65, m.RMSE)
	assert.Equal(t, -1.33, m.Bias)
	assert.Equal(t, 73.3, m.AccuracyRate)
	assert.Equal(t, 33.3, m.OverestimationRate)
	assert.Equal(t, 1, m.PerfectPredictions)
	require.NotNil(t, m.Worst)
	assert.Equal(t, "2024-06-05", m.Worst.Date)
	assert.Equal(t, 6.0, m.Worst.Error)
}

func TestRecommendations(t *testing.T) {
	recs := Recommendations(30, map[string]float64{"Lundi": 20, "Samedi": 60}, PatternOverEstimation, Metrics{Bias: 8, MAE: 5, StdError: 3})

	assert.Equal(t, "Performance faible - Réentraînement urgent recommandé", recs[0])
	assert.Contains(t, recs, "Ajuster le modèle pour réduire les prédictions")
	assert.Contains(t, recs, "Améliorer les prédictions pour Samedi")
	assert.Contains(t, recs, "Réduire le biais positif du modèle")
	assert.NotContains(t, recs, "Forte variance - Stabiliser les prédictions")

	recs = Recommendations(8, nil, PatternBalanced, Metrics{})
	assert.Equal(t, []string{
		"Excellente performance - Maintenir le modèle actuel",
		"Modèle équilibré - Maintenir les paramètres actuels",
	}, recs)
}

func TestTrend(t *testing.T) {
	asOf := monday.AddDate(0, 0, 30)
	var points []Point
	for i := 0; i < 30; i++ {
		// errors shrink as the date approaches asOf
		points = append(points, at(i, 10+float64(30-i)/3, 10))
	}

	assert.Equal(t, TrendImproving, Trend(points, asOf))
	assert.Equal(t, TrendUnknown, Trend(nil, asOf))
}
