// Package memory is an in-process implementation of every repository, used by tests
// and by the "memory" store driver for demos without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
)

type productDay struct {
	productID int64
	day       string
}

func key(productID int64, t time.Time) productDay {
	return productDay{productID: productID, day: t.Format("2006-01-02")}
}

// Store keeps everything in maps guarded by a single lock
type Store struct {
	mu sync.RWMutex

	products  map[int64]domain.Product
	stock     map[int64][]domain.StockLevel
	sales     map[productDay]domain.DailySale
	models    map[int64]domain.ForecastModel
	forecasts map[productDay]domain.StoredForecast
	anomalies map[int64]domain.Anomaly
	feedback  map[productDay]domain.PredictionFeedback
	alerts    []domain.StoredAlert
	orders    []domain.Order

	nextAnomalyID  int64
	nextFeedbackID int64
	nextAlertID    int64
	nextOrderID    int64

	now func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		products:  make(map[int64]domain.Product),
		stock:     make(map[int64][]domain.StockLevel),
		sales:     make(map[productDay]domain.DailySale),
		models:    make(map[int64]domain.ForecastModel),
		forecasts: make(map[productDay]domain.StoredForecast),
		anomalies: make(map[int64]domain.Anomaly),
		feedback:  make(map[productDay]domain.PredictionFeedback),
		now:       time.Now,
	}
}

// WithClock makes timestamps deterministic
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() repository.Store {
	return repository.Store{
		Products:  s,
		Sales:     s,
		Forecasts: s,
		Anomalies: s,
		Alerts:    s,
		Orders:    s,
	}
}

// AddProduct seeds a product
func (s *Store) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// AddModel seeds a trained model and its stored forecasts
func (s *Store) AddModel(m domain.ForecastModel, forecasts ...domain.StoredForecast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[m.ProductID] = m
	for _, f := range forecasts {
		s.forecasts[key(f.ProductID, f.ForecastDate)] = f
	}
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetCurrentStock(ctx context.Context, productID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	levels := s.stock[productID]
	if len(levels) == 0 {
		return 0, nil
	}
	latest := levels[0]
	for _, l := range levels[1:] {
		if !l.RecordedAt.Before(latest.RecordedAt) {
			latest = l
		}
	}
	return latest.QuantityOnHand, nil
}

func (s *Store) RecordStock(ctx context.Context, levels []domain.StockLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range levels {
		s.stock[l.ProductID] = append(s.stock[l.ProductID], l)
	}
	return nil
}

func (s *Store) GetDailySales(ctx context.Context, productID int64, r domain.DateRange) ([]domain.DailySale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DailySale
	for k, sale := range s.sales {
		if k.productID == productID && r.Contains(sale.Date) {
			out = append(out, sale)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) GetAverageDailySales(ctx context.Context, productID int64, r domain.DateRange) (float64, bool, error) {
	sales, _ := s.GetDailySales(ctx, productID, r)
	if len(sales) == 0 {
		return 0, false, nil
	}
	var sum float64
	for _, sale := range sales {
		sum += sale.Quantity
	}
	return sum / float64(len(sales)), true, nil
}

func (s *Store) UpsertDailySales(ctx context.Context, sales []domain.DailySale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sale := range sales {
		s.sales[key(sale.ProductID, sale.Date)] = sale
	}
	return nil
}

func (s *Store) GetModel(ctx context.Context, productID int64) (*domain.ForecastModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (s *Store) GetForecasts(ctx context.Context, productID int64, r domain.DateRange) ([]domain.StoredForecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StoredForecast
	for k, f := range s.forecasts {
		if k.productID == productID && r.Contains(f.ForecastDate) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ForecastDate.Before(out[j].ForecastDate) })
	return out, nil
}

func (s *Store) GetAnomaly(ctx context.Context, id int64) (*domain.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.anomalies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (s *Store) FindAnomaly(ctx context.Context, productID int64, date time.Time) (*domain.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.findLocked(key(productID, date)); ok {
		return &a, nil
	}
	return nil, domain.ErrNotFound
}

func (s *Store) findLocked(k productDay) (domain.Anomaly, bool) {
	for _, a := range s.anomalies {
		if key(a.ProductID, a.DetectionDate) == k {
			return a, true
		}
	}
	return domain.Anomaly{}, false
}

func (s *Store) CreateAnomaly(ctx context.Context, a *domain.Anomaly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.findLocked(key(a.ProductID, a.DetectionDate)); ok {
		a.ID = existing.ID
		return s.updateLocked(a)
	}
	s.nextAnomalyID++
	a.ID = s.nextAnomalyID
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	s.anomalies[a.ID] = *a
	return nil
}

func (s *Store) UpdateAnomaly(ctx context.Context, a *domain.Anomaly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(a)
}

func (s *Store) updateLocked(a *domain.Anomaly) error {
	existing, ok := s.anomalies[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.ActualValue = a.ActualValue
	existing.PredictedValue = a.PredictedValue
	existing.DeviationPercent = a.DeviationPercent
	existing.Type = a.Type
	existing.Severity = a.Severity
	existing.Status = a.Status
	existing.UpdatedAt = s.now()
	s.anomalies[a.ID] = existing
	*a = existing
	return nil
}

func (s *Store) UpdateAnomalyStatus(ctx context.Context, id int64, status domain.AnomalyStatus, excludeFromTraining bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.anomalies[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = s.now()
	s.anomalies[id] = a

	if excludeFromTraining {
		for k, fb := range s.feedback {
			if fb.AnomalyID != nil && *fb.AnomalyID == id {
				fb.IncludedInTraining = false
				s.feedback[k] = fb
			}
		}
	}
	return nil
}

func (s *Store) ListAnomalies(ctx context.Context, filter domain.AnomalyFilter) ([]domain.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Anomaly
	for _, a := range s.anomalies {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.ProductID != nil && a.ProductID != *filter.ProductID {
			continue
		}
		if !filter.Range.Contains(a.DetectionDate) {
			continue
		}
		if p, ok := s.products[a.ProductID]; ok {
			a.ProductName = p.Name
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeviationPercent != out[j].DeviationPercent {
			return out[i].DeviationPercent > out[j].DeviationPercent
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) CountAnomalies(ctx context.Context, productIDs []int64, r domain.DateRange) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := toSet(productIDs)
	n := 0
	for _, a := range s.anomalies {
		if wanted != nil && !wanted[a.ProductID] {
			continue
		}
		if r.Contains(a.DetectionDate) {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpsertFeedback(ctx context.Context, fb domain.PredictionFeedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(fb.ProductID, fb.Date)
	if existing, ok := s.feedback[k]; ok {
		fb.ID = existing.ID
	} else {
		s.nextFeedbackID++
		fb.ID = s.nextFeedbackID
	}
	s.feedback[k] = fb
	return nil
}

func (s *Store) ListFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]domain.FeedbackWithStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := toSet(filter.ProductIDs)
	var out []domain.FeedbackWithStatus
	for k, fb := range s.feedback {
		if wanted != nil && !wanted[fb.ProductID] {
			continue
		}
		if !filter.Range.Contains(fb.Date) {
			continue
		}
		if filter.TrainingOnly && !fb.IncludedInTraining {
			continue
		}
		row := domain.FeedbackWithStatus{PredictionFeedback: fb}
		if a, ok := s.findLocked(k); ok {
			status := a.Status
			row.AnomalyStatus = &status
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func (s *Store) SaveAlerts(ctx context.Context, alerts []domain.StoredAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range alerts {
		s.nextAlertID++
		a.ID = s.nextAlertID
		if a.ComputedAt.IsZero() {
			a.ComputedAt = s.now()
		}
		s.alerts = append(s.alerts, a)
	}
	return nil
}

func (s *Store) ListAlertHistory(ctx context.Context, productID *int64, limit int) ([]domain.StoredAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StoredAlert
	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if productID != nil && a.ProductID != *productID {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrderID++
	o.ID = s.nextOrderID
	s.orders = append(s.orders, *o)
	return nil
}

func (s *Store) ListOrders(ctx context.Context, productID *int64, since time.Time) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Order
	for _, o := range s.orders {
		if productID != nil && o.ProductID != *productID {
			continue
		}
		if o.OrderDate.Before(since) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	return out, nil
}

func (s *Store) OrderStatistics(ctx context.Context, recentSince time.Time) (*domain.OrderStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &domain.OrderStatistics{OrdersByTier: make(map[string]int)}
	top := make(map[int64]*domain.TopProduct)

	for _, o := range s.orders {
		stats.TotalOrders++
		stats.OrdersByTier[o.AlertTier]++
		stats.TotalValue += o.TotalAmount()
		if !o.OrderDate.Before(recentSince) {
			stats.RecentOrders7d++
		}
		tp, ok := top[o.ProductID]
		if !ok {
			tp = &domain.TopProduct{ProductID: o.ProductID, Name: o.ProductName}
			top[o.ProductID] = tp
		}
		tp.OrderCount++
		tp.TotalQuantity += o.QuantityOrdered
	}

	for _, tp := range top {
		stats.TopProducts = append(stats.TopProducts, *tp)
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		a, b := stats.TopProducts[i], stats.TopProducts[j]
		if a.OrderCount != b.OrderCount {
			return a.OrderCount > b.OrderCount
		}
		return a.ProductID < b.ProductID
	})
	if len(stats.TopProducts) > 5 {
		stats.TopProducts = stats.TopProducts[:5]
	}
	return stats, nil
}

func toSet(ids []int64) map[int64]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
