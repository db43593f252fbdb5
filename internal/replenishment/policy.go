package replenishment

import (
	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/rs/zerolog/log"
)

// Business defaults. These are policy values agreed with the buyers, not derived quantities.
const (
	DefaultMargin       = 15.0
	MinMargin           = 0.0
	MaxMargin           = 50.0
	DefaultUnitPrice    = 1000.0
	DefaultLeadTimeDays = 5

	// QuantityWindowDays bounds the demand summed for the quantity attached to an alert
	QuantityWindowDays = 30

	// ATTENTION: order deadline when no day of the horizon satisfies the search
	DefaultOrderDeadlineDay = 3
	// OK: earliest reorder day when the stock outlasts the horizon
	DefaultEarliestOrderDay = 7
	// OK: the latest reorder day falls back to min(MaxLatestOrderDay, earliest+LatestOrderSpread)
	MaxLatestOrderDay = 14
	LatestOrderSpread = 7
	// days of demand after the lead time that the stock must cover to be OK
	CoverageAfterLeadDays = 3

	DefaultTargetDays = 30
	MaxTargetDays     = 90
)

// unexhaustedCoverage is the budget coverage reported when stock plus the ordered quantity
// outlasts every forecast day: the whole horizon, not 0.
func unexhaustedCoverage(horizon int) int {
	return horizon
}

// NormalizeMargin returns the margin to use and an Adjustment when the given one is outside [0,50].
func NormalizeMargin(margin float64) (float64, *domain.Adjustment) {
	if margin >= MinMargin && margin <= MaxMargin {
		return margin, nil
	}
	log.Warn().Float64("margin", margin).Float64("applied", DefaultMargin).Msg("safety margin out of range, using default")
	return DefaultMargin, &domain.Adjustment{
		Field:   "margin",
		Given:   margin,
		Applied: DefaultMargin,
		Reason:  "margin outside [0,50]",
	}
}

func effectiveLeadTime(p domain.Product, override *int) int {
	if override != nil && *override > 0 {
		return *override
	}
	if p.LeadTimeDays > 0 {
		return p.LeadTimeDays
	}
	return DefaultLeadTimeDays
}

func effectivePrice(p domain.Product, override *float64) float64 {
	if override != nil && *override > 0 {
		return *override
	}
	if p.UnitPrice > 0 {
		return p.UnitPrice
	}
	return DefaultUnitPrice
}
