package replenishment

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
)

// AlertInput is everything the classifier needs for one product
type AlertInput struct {
	Product  domain.Product
	Stock    int
	Forecast []int
	Margin   float64

	// optional overrides of the product attributes
	LeadTime  *int
	UnitPrice *float64
}

// AlertClassifier turns a forecast and a stock level into an alert tier
type AlertClassifier struct {
	cal Calendar
}

// NewAlertClassifier creates a classifier rendering dates from now
func NewAlertClassifier(now func() time.Time) *AlertClassifier {
	return &AlertClassifier{cal: NewCalendar(now)}
}

// Evaluate classifies the product and computes the details of its tier
func (c *AlertClassifier) Evaluate(in AlertInput) *domain.AlertResult {
	leadTime := effectiveLeadTime(in.Product, in.LeadTime)
	price := effectivePrice(in.Product, in.UnitPrice)
	margin, adj := NormalizeMargin(in.Margin)
	curve := newDemandCurve(in.Forecast)

	demandLead := curve.sum(0, leadTime)
	stockAfter := in.Stock - demandLead
	nextDays := curve.sum(leadTime, leadTime+CoverageAfterLeadDays)

	res := &domain.AlertResult{
		ProductID:        in.Product.ID,
		ProductName:      in.Product.Name,
		Stock:            in.Stock,
		LeadTime:         leadTime,
		DemandDuringLead: demandLead,
		StockAfterLead:   stockAfter,
		UnitPrice:        price,
		Margin:           margin,
		EvaluatedAt:      c.cal.Now(),
	}
	if adj != nil {
		res.Adjustments = append(res.Adjustments, *adj)
	}

	switch {
	case stockAfter < 0:
		c.critical(res, curve, in.Stock, leadTime, price)
	case stockAfter < nextDays:
		c.attention(res, curve, in.Stock, leadTime, price)
	default:
		c.ok(res, curve, in.Stock, leadTime)
	}

	res.Quantity = c.attachedQuantity(curve, in.Stock, margin)
	return res
}

func (c *AlertClassifier) critical(res *domain.AlertResult, curve demandCurve, stock, leadTime int, price float64) {
	stockoutDay := leadTime
	running := stock
	for i := 0; i < leadTime && i < curve.len(); i++ {
		running -= curve.day(i)
		if running < 0 {
			stockoutDay = i + 1
			break
		}
	}

	daysOut := leadTime - stockoutDay + 1
	lost := curve.sum(stockoutDay-1, leadTime)
	loss := int64(math.Round(float64(lost) * price))

	res.Tier = domain.TierCritical
	res.Urgency = "MAXIMALE"
	res.Action = "Commander immédiatement pour limiter les pertes"
	res.FinancialImpact = domain.FinancialImpact{
		Type:    "perte_si_pas_commande",
		Amount:  loss,
		Details: fmt.Sprintf("%d jours × %d articles × %s FCFA", daysOut, lost, formatPrice(price)),
	}
	res.Detail = domain.CriticalDetail{
		StockoutDay:      stockoutDay,
		StockoutDate:     c.cal.Plus(stockoutDay),
		DaysOfStockout:   daysOut,
		LostUnits:        lost,
		FinancialLoss:    loss,
		OrderRecommended: "Immédiatement",
	}
}

func (c *AlertClassifier) attention(res *domain.AlertResult, curve demandCurve, stock, leadTime int, price float64) {
	deadline := DefaultOrderDeadlineDay
	for i := 0; i < curve.len(); i++ {
		if stock-curve.sum(0, i+leadTime) <= curve.day(i) {
			deadline = i
			break
		}
	}

	avg := float64(curve.sum(0, leadTime)) / float64(leadTime)
	benefit := int64(math.Round(float64(leadTime) * avg * price))

	res.Tier = domain.TierAttention
	res.Urgency = "HAUTE"
	res.Action = fmt.Sprintf("Commander avant le %s", c.cal.Plus(deadline))
	res.FinancialImpact = domain.FinancialImpact{
		Type:    "benefice_si_commande",
		Amount:  benefit,
		Details: fmt.Sprintf("%d jours × %d articles/jour × %s FCFA", leadTime, int(math.Round(avg)), formatPrice(price)),
	}
	res.Detail = domain.AttentionDetail{
		OrderDeadlineDay:      deadline,
		OrderDeadlineDate:     c.cal.Plus(deadline),
		StockoutIfNoOrderDate: c.cal.Plus(deadline + leadTime),
		AvgDailyDemand:        avg,
		UnitsSaved:            int64(math.Round(float64(leadTime) * avg)),
		BenefitIfOrdered:      benefit,
		DaysRemaining:         deadline,
	}
}

func (c *AlertClassifier) ok(res *domain.AlertResult, curve demandCurve, stock, leadTime int) {
	earliest := DefaultEarliestOrderDay
	for i := 0; i < curve.len(); i++ {
		if stock <= curve.sum(0, i+leadTime+CoverageAfterLeadDays) {
			earliest = max(0, i-1)
			break
		}
	}

	latest := -1
	for i := 0; i < curve.len(); i++ {
		if stock <= curve.sum(0, i+leadTime+1) {
			latest = i
			break
		}
	}
	if latest < 0 {
		latest = min(MaxLatestOrderDay, earliest+LatestOrderSpread)
	}

	remaining := curve.len()
	running := stock
	for i := 0; i < curve.len(); i++ {
		running -= curve.day(i)
		if running < 0 {
			remaining = i
			break
		}
	}

	res.Tier = domain.TierOK
	res.Urgency = "FAIBLE"
	res.Action = fmt.Sprintf("Prochaine commande entre le %s et le %s", c.cal.Plus(earliest), c.cal.Plus(latest))
	res.FinancialImpact = domain.FinancialImpact{
		Type:    "aucun_risque",
		Details: "Stock suffisant, pas de risque de rupture",
	}
	res.Detail = domain.OKDetail{
		EarliestOrderDay:     earliest,
		EarliestOrderDate:    c.cal.Plus(earliest),
		LatestOrderDay:       latest,
		LatestOrderDate:      c.cal.Plus(latest),
		DaysOfStockRemaining: remaining,
	}
}

func (c *AlertClassifier) attachedQuantity(curve demandCurve, stock int, margin float64) domain.QuantityDetail {
	window := min(QuantityWindowDays, curve.len())
	total := curve.sum(0, window)
	need := max(0, total-stock)

	return domain.QuantityDetail{
		PredictionsCumulated: total,
		CurrentStock:         stock,
		NetNeed:              need,
		MarginUnits:          int(math.Round(float64(need) * margin / 100)),
		SuggestedQuantity:    int(math.Round(float64(need) * (1 + margin/100))),
		CoverageUntil:        c.cal.Plus(QuantityWindowDays),
	}
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
