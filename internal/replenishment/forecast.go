package replenishment

import "github.com/adhamcharaf/Optiflow-VF/internal/domain"

// Quantities extracts the daily quantities of a forecast, index 0 being the first day
func Quantities(points []domain.ForecastPoint) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = p.Quantity
	}
	return out
}

// demandCurve answers range sums over a daily forecast in O(1)
type demandCurve struct {
	days   []int
	prefix []int
}

func newDemandCurve(days []int) demandCurve {
	prefix := make([]int, len(days)+1)
	for i, q := range days {
		prefix[i+1] = prefix[i] + q
	}
	return demandCurve{days: days, prefix: prefix}
}

func (d demandCurve) len() int { return len(d.days) }

// sum returns the demand over days [from, to), bounded by the available horizon
func (d demandCurve) sum(from, to int) int {
	from = clampIndex(from, len(d.days))
	to = clampIndex(to, len(d.days))
	if to <= from {
		return 0
	}
	return d.prefix[to] - d.prefix[from]
}

func (d demandCurve) day(i int) int {
	if i < 0 || i >= len(d.days) {
		return 0
	}
	return d.days[i]
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
