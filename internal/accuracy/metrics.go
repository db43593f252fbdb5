package accuracy

import (
	"math"
	"sort"
	"time"
)

// Point is one prediction compared to the realized sales of its day
type Point struct {
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted"`
	Actual    float64   `json:"actual"`
}

func (p Point) err() float64 { return p.Predicted - p.Actual }

// Error patterns
const (
	PatternOverEstimation         = "over_estimation"
	PatternUnderEstimation        = "under_estimation"
	PatternWeekendOverEstimation  = "weekend_over_estimation"
	PatternWeekendUnderEstimation = "weekend_under_estimation"
	PatternBalanced               = "balanced"
)

// Performance trends
const (
	TrendImproving = "amélioration"
	TrendDegrading = "dégradation"
	TrendStable    = "stable"
	TrendUnknown   = "indéterminée"
)

const systematicBias = 5.0

var weekdayLabels = map[time.Weekday]string{
	time.Monday:    "Lundi",
	time.Tuesday:   "Mardi",
	time.Wednesday: "Mercredi",
	time.Thursday:  "Jeudi",
	time.Friday:    "Vendredi",
	time.Saturday:  "Samedi",
	time.Sunday:    "Dimanche",
}

// MAPE is the mean of |actual-predicted|/|actual| in percent, over the points with a non zero actual.
// It reports false when no point qualifies.
func MAPE(points []Point) (float64, bool) {
	var sum float64
	n := 0
	for _, p := range points {
		if p.Actual == 0 {
			continue
		}
		sum += math.Abs(p.Actual-p.Predicted) / math.Abs(p.Actual)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n) * 100, true
}

// MAPEByWeekday groups the points by weekday, keyed by the French day name
func MAPEByWeekday(points []Point) map[string]float64 {
	groups := make(map[time.Weekday][]Point)
	for _, p := range points {
		groups[p.Date.Weekday()] = append(groups[p.Date.Weekday()], p)
	}

	out := make(map[string]float64, len(groups))
	for wd, g := range groups {
		if m, ok := MAPE(g); ok {
			out[weekdayLabels[wd]] = Round(m, 1)
		}
	}
	return out
}

// ErrorPattern names the dominant direction of the prediction errors
func ErrorPattern(points []Point) string {
	if len(points) == 0 {
		return PatternBalanced
	}

	var all, weekend, weekday []float64
	for _, p := range points {
		all = append(all, p.err())
		if isWeekend(p.Date) {
			weekend = append(weekend, p.err())
		} else {
			weekday = append(weekday, p.err())
		}
	}

	avg := mean(all)
	switch {
	case avg > systematicBias:
		return PatternOverEstimation
	case avg < -systematicBias:
		return PatternUnderEstimation
	}

	if len(weekend) == 0 || len(weekday) == 0 {
		return PatternBalanced
	}
	we, wd := mean(weekend), mean(weekday)
	if math.Abs(we) > math.Abs(wd)*1.5 {
		if we > 0 {
			return PatternWeekendOverEstimation
		}
		return PatternWeekendUnderEstimation
	}
	return PatternBalanced
}

// WorstPrediction is the point with the largest absolute error
type WorstPrediction struct {
	Date      string  `json:"date"`
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
	Error     float64 `json:"error"`
}

// Metrics are the error statistics of a set of predictions
type Metrics struct {
	MAE                float64          `json:"mae"`
	RMSE               float64          `json:"rmse"`
	Bias               float64          `json:"bias"`
	StdError           float64          `json:"std_error"`
	AccuracyRate       float64          `json:"accuracy_rate"`
	OverestimationRate float64          `json:"overestimation_rate"`
	PerfectPredictions int              `json:"perfect_predictions"`
	Worst              *WorstPrediction `json:"worst_prediction,omitempty"`
}

// Compute returns the error statistics. Perfect predictions are within one unit.
func Compute(points []Point) Metrics {
	if len(points) == 0 {
		return Metrics{}
	}

	var m Metrics
	errs := make([]float64, 0, len(points))
	actuals := make([]float64, 0, len(points))
	var absSum, sqSum float64
	over := 0
	worst := -1

	for i, p := range points {
		e := p.err()
		errs = append(errs, e)
		actuals = append(actuals, p.Actual)
		absSum += math.Abs(e)
		sqSum += e * e
		if e > 0 {
			over++
		}
		if math.Abs(e) <= 1 {
			m.PerfectPredictions++
		}
		if worst < 0 || math.Abs(e) > math.Abs(points[worst].err()) {
			worst = i
		}
	}

	n := float64(len(points))
	mae := absSum / n
	m.MAE = Round(mae, 2)
	m.RMSE = Round(math.Sqrt(sqSum/n), 2)
	m.Bias = Round(mean(errs), 2)
	m.StdError = Round(stddev(errs), 2)
	if avg := mean(actuals); avg != 0 {
		m.AccuracyRate = Round((1-mae/avg)*100, 1)
	}
	m.OverestimationRate = Round(float64(over)/n*100, 1)

	w := points[worst]
	m.Worst = &WorstPrediction{
		Date:      w.Date.Format("2006-01-02"),
		Predicted: w.Predicted,
		Actual:    w.Actual,
		Error:     math.Abs(w.err()),
	}
	return m
}

var patternAdvice = map[string]string{
	PatternOverEstimation:         "Ajuster le modèle pour réduire les prédictions",
	PatternUnderEstimation:        "Augmenter les prédictions ou ajuster la tendance",
	PatternWeekendOverEstimation:  "Réduire le poids de la saisonnalité hebdomadaire",
	PatternWeekendUnderEstimation: "Augmenter le poids de la saisonnalité hebdomadaire",
	PatternBalanced:               "Modèle équilibré - Maintenir les paramètres actuels",
}

// Recommendations turns the accuracy figures into advice for the model owner
func Recommendations(mape float64, byWeekday map[string]float64, pattern string, m Metrics) []string {
	var out []string

	switch {
	case mape < 10:
		out = append(out, "Excellente performance - Maintenir le modèle actuel")
	case mape < 15:
		out = append(out, "Bonne performance - Optimisations mineures possibles")
	case mape < 25:
		out = append(out, "Performance moyenne - Envisager réentraînement")
	default:
		out = append(out, "Performance faible - Réentraînement urgent recommandé")
	}

	if advice, ok := patternAdvice[pattern]; ok {
		out = append(out, advice)
	}

	if day, worst := worstDay(byWeekday); day != "" && worst > mape*1.5 {
		out = append(out, "Améliorer les prédictions pour "+day)
	}

	if math.Abs(m.Bias) > systematicBias {
		if m.Bias > 0 {
			out = append(out, "Réduire le biais positif du modèle")
		} else {
			out = append(out, "Corriger le biais négatif du modèle")
		}
	}

	if m.StdError > m.MAE*1.5 {
		out = append(out, "Forte variance - Stabiliser les prédictions")
	}
	return out
}

// Trend compares the MAPE over the last 7, 14 and 30 days before asOf
func Trend(points []Point, asOf time.Time) string {
	windows := []int{7, 14, 30}
	mapes := make([]float64, len(windows))
	for i, days := range windows {
		from := asOf.AddDate(0, 0, -days)
		var in []Point
		for _, p := range points {
			if !p.Date.Before(from) && p.Date.Before(asOf) {
				in = append(in, p)
			}
		}
		m, ok := MAPE(in)
		if !ok {
			return TrendUnknown
		}
		mapes[i] = m
	}

	switch {
	case mapes[0] < mapes[1] && mapes[1] < mapes[2]:
		return TrendImproving
	case mapes[0] > mapes[1] && mapes[1] > mapes[2]:
		return TrendDegrading
	default:
		return TrendStable
	}
}

// Round rounds v to the given number of decimals
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func worstDay(byWeekday map[string]float64) (string, float64) {
	days := make([]string, 0, len(byWeekday))
	for d := range byWeekday {
		days = append(days, d)
	}
	sort.Strings(days)

	day, worst := "", math.Inf(-1)
	for _, d := range days {
		if byWeekday[d] > worst {
			day, worst = d, byWeekday[d]
		}
	}
	return day, worst
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var s float64
	for _, v := range vs {
		s += v
	}
	return s / float64(len(vs))
}

// stddev is the sample standard deviation
func stddev(vs []float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	m := mean(vs)
	var s float64
	for _, v := range vs {
		s += (v - m) * (v - m)
	}
	return math.Sqrt(s / float64(len(vs)-1))
}
