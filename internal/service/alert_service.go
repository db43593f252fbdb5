package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/config"
	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/replenishment"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// AlertRequest carries the optional parameters of an evaluation
type AlertRequest struct {
	Margin    *float64 `json:"margin"`
	LeadTime  *int     `json:"lead_time"`
	UnitPrice *float64 `json:"unit_price"`
}

type AlertService struct {
	products   repository.ProductRepository
	alerts     repository.AlertRepository
	forecaster Forecaster
	classifier *replenishment.AlertClassifier
	now        func() time.Time
	cfg        config.EngineConfig
}

func NewAlertService(store repository.Store, forecaster Forecaster, cfg config.EngineConfig, now func() time.Time) *AlertService {
	if now == nil {
		now = time.Now
	}
	return &AlertService{
		products:   store.Products,
		alerts:     store.Alerts,
		forecaster: forecaster,
		classifier: replenishment.NewAlertClassifier(now),
		now:        now,
		cfg:        cfg,
	}
}

// Evaluate never fails: an unknown product or a store error becomes an ERROR entry
func (s *AlertService) Evaluate(ctx context.Context, productID int64, req AlertRequest) domain.AlertEntry {
	res, err := s.evaluate(ctx, productID, req)
	if err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("Alert evaluation failed")
		return domain.AlertEntry{ProductID: productID, Status: domain.StatusError, Error: entryError(productID, err)}
	}
	return domain.AlertEntry{ProductID: productID, Status: domain.StatusSuccess, Alert: res}
}

func (s *AlertService) evaluate(ctx context.Context, productID int64, req AlertRequest) (*domain.AlertResult, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	stock, err := s.products.GetCurrentStock(ctx, productID)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrPersistence, "stock of product %d: %v", productID, err)
	}
	forecast, err := demandSequence(ctx, s.forecaster, productID, startOfDay(s.now()), s.cfg.ForecastHorizonDays)
	if err != nil {
		return nil, err
	}

	return s.classifier.Evaluate(replenishment.AlertInput{
		Product:   *product,
		Stock:     stock,
		Forecast:  forecast,
		Margin:    orDefault(req.Margin, s.cfg.DefaultMargin),
		LeadTime:  req.LeadTime,
		UnitPrice: req.UnitPrice,
	}), nil
}

// EvaluateBatch evaluates the given products, or every product when ids is empty, and
// stores the successful alerts. Per-product failures only produce ERROR entries.
func (s *AlertService) EvaluateBatch(ctx context.Context, ids []int64, req AlertRequest) (*domain.AlertBatch, error) {
	if len(ids) == 0 {
		products, err := s.products.ListProducts(ctx)
		if err != nil {
			return nil, errors.Wrap(domain.ErrPersistence, err.Error())
		}
		for _, p := range products {
			ids = append(ids, p.ID)
		}
	}

	entries := make([]domain.AlertEntry, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(s.cfg.BatchWorkers))
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			entries[i] = s.Evaluate(gctx, id, req)
			return nil
		})
	}
	_ = g.Wait()

	batch := &domain.AlertBatch{Alerts: entries, Summary: summarize(entries, s.now())}
	log.Info().
		Int("total", batch.Summary.Total).
		Int("critical", batch.Summary.Critical).
		Int("attention", batch.Summary.Attention).
		Int("errors", batch.Summary.Errors).
		Msg("Alert batch evaluated")

	if err := s.store(ctx, entries); err != nil {
		return batch, err
	}
	return batch, nil
}

func summarize(entries []domain.AlertEntry, at time.Time) domain.AlertSummary {
	sum := domain.AlertSummary{Total: len(entries), Timestamp: at}
	for _, e := range entries {
		if e.Alert == nil {
			sum.Errors++
			continue
		}
		switch e.Alert.Tier {
		case domain.TierCritical:
			sum.Critical++
		case domain.TierAttention:
			sum.Attention++
		case domain.TierOK:
			sum.OK++
		}
	}
	return sum
}

func (s *AlertService) store(ctx context.Context, entries []domain.AlertEntry) error {
	stored := make([]domain.StoredAlert, 0, len(entries))
	for _, e := range entries {
		if e.Alert == nil {
			continue
		}
		details, err := json.Marshal(e.Alert)
		if err != nil {
			return errors.Wrapf(err, "encode alert of product %d", e.ProductID)
		}
		stored = append(stored, domain.StoredAlert{
			ProductID:       e.ProductID,
			Status:          string(e.Alert.Tier),
			Action:          e.Alert.Action,
			FinancialImpact: float64(e.Alert.FinancialImpact.Amount),
			Details:         details,
			ComputedAt:      e.Alert.EvaluatedAt,
		})
	}
	if len(stored) == 0 {
		return nil
	}
	if err := s.alerts.SaveAlerts(ctx, stored); err != nil {
		return errors.Wrapf(domain.ErrPersistence, "save %d alerts: %v", len(stored), err)
	}
	return nil
}

// History lists stored alerts, newest first
func (s *AlertService) History(ctx context.Context, productID *int64, limit int) ([]domain.StoredAlert, error) {
	alerts, err := s.alerts.ListAlertHistory(ctx, productID, limit)
	if err != nil {
		return nil, errors.Wrap(domain.ErrPersistence, err.Error())
	}
	return alerts, nil
}

func entryError(productID int64, err error) string {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Sprintf("Article %d non trouvé", productID)
	}
	return err.Error()
}
