package replenishment

import (
	"fmt"
	"math"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/rs/zerolog/log"
)

// QuantityInput describes one reorder quantity request
type QuantityInput struct {
	Product  domain.Product
	Stock    int
	Forecast []int
	Margin   float64

	// TargetDate defaults to today + 30 days
	TargetDate *time.Time
}

// QuantitySuggester computes how much to reorder to cover demand until a target date.
// The quantity is never truncated by a maximum stock level.
type QuantitySuggester struct {
	cal Calendar
}

// NewQuantitySuggester creates a suggester counting days from now
func NewQuantitySuggester(now func() time.Time) *QuantitySuggester {
	return &QuantitySuggester{cal: NewCalendar(now)}
}

// Suggest returns the unconstrained reorder quantity
func (s *QuantitySuggester) Suggest(in QuantityInput) *domain.QuantitySuggestion {
	margin, marginAdj := NormalizeMargin(in.Margin)
	days, daysAdj := s.TargetDays(in.TargetDate)
	price := effectivePrice(in.Product, nil)
	curve := newDemandCurve(in.Forecast)

	cumulated := float64(curve.sum(0, days))
	need := math.Max(0, cumulated-float64(in.Stock))
	marginUnits := need * margin / 100
	final := int(math.Round(need + marginUnits))

	res := &domain.QuantitySuggestion{
		ProductID:            in.Product.ID,
		ProductName:          in.Product.Name,
		PredictionsCumulated: cumulated,
		CurrentStock:         in.Stock,
		NetNeed:              need,
		Margin:               margin,
		MarginUnits:          marginUnits,
		FinalQuantity:        final,
		UnitPrice:            price,
		CostEstimate:         float64(final) * price,
		DaysToCover:          days,
		TargetDate:           s.cal.Plus(days),
	}
	for _, adj := range []*domain.Adjustment{marginAdj, daysAdj} {
		if adj != nil {
			res.Adjustments = append(res.Adjustments, *adj)
		}
	}
	res.Recommendations = recommendations(need, margin)
	return res
}

// SuggestWithBudget caps the quantity at what the budget can pay for
func (s *QuantitySuggester) SuggestWithBudget(in QuantityInput, budget float64) *domain.BudgetSuggestion {
	base := s.Suggest(in)
	ideal := base.FinalQuantity
	curve := newDemandCurve(in.Forecast)

	res := &domain.BudgetSuggestion{
		QuantitySuggestion: *base,
		Budget:             budget,
		IdealQuantity:      ideal,
		IdealCost:          base.CostEstimate,
		BudgetStatus:       domain.BudgetSufficient,
	}

	if base.UnitPrice <= 0 || base.CostEstimate <= budget {
		res.DaysCovered = daysCovered(curve, in.Stock+ideal)
		return res
	}

	capped := int(math.Floor(budget / base.UnitPrice))
	if capped < 0 {
		capped = 0
	}

	res.FinalQuantity = capped
	res.CostEstimate = float64(capped) * base.UnitPrice
	res.Deficit = ideal - capped
	res.DaysCovered = daysCovered(curve, in.Stock+capped)
	res.BudgetStatus = domain.BudgetLimited
	res.Recommendations = append(res.Recommendations,
		fmt.Sprintf("Budget insuffisant - Manque %d articles", res.Deficit),
		fmt.Sprintf("Couverture limitée à %d jours", res.DaysCovered),
	)

	log.Info().
		Int64("product_id", in.Product.ID).
		Int("ideal", ideal).
		Int("capped", capped).
		Msg("quantity limited by budget")

	return res
}

// TargetDays resolves the target date into a day count within [1, 90]. Callers fetching the
// forecast use it so the sequence is as long as the horizon Suggest will sum.
func (s *QuantitySuggester) TargetDays(target *time.Time) (int, *domain.Adjustment) {
	if target == nil {
		return DefaultTargetDays, nil
	}

	days := s.cal.DaysUntil(*target)
	switch {
	case days > MaxTargetDays:
		log.Warn().Int("days", days).Msg("target date limited to 90 days")
		return MaxTargetDays, &domain.Adjustment{
			Field:   "target_date",
			Given:   float64(days),
			Applied: MaxTargetDays,
			Reason:  "target date beyond 90 days",
		}
	case days < 1:
		log.Warn().Int("days", days).Msg("target date not in the future, using 30 days")
		return DefaultTargetDays, &domain.Adjustment{
			Field:   "target_date",
			Given:   float64(days),
			Applied: DefaultTargetDays,
			Reason:  "target date before tomorrow",
		}
	}
	return days, nil
}

// daysCovered is the first day whose cumulated demand exceeds the available units,
// or unexhaustedCoverage when it never does
func daysCovered(curve demandCurve, available int) int {
	cumulated := 0
	for i := 0; i < curve.len(); i++ {
		cumulated += curve.day(i)
		if cumulated > available {
			return i
		}
	}
	return unexhaustedCoverage(curve.len())
}

func recommendations(need, margin float64) []string {
	var out []string
	switch {
	case margin < 10:
		out = append(out, "Marge faible - Augmenter pour plus de sécurité")
	case margin > 30:
		out = append(out, "Marge élevée - Possible surstockage")
	}
	switch {
	case need == 0:
		out = append(out, "Stock suffisant pour la période")
	case need > 500:
		out = append(out, "Forte demande prévue - Surveiller attentivement")
	}
	return out
}
