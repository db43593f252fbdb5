package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/accuracy"
	"github.com/adhamcharaf/Optiflow-VF/internal/anomaly"
	"github.com/adhamcharaf/Optiflow-VF/internal/config"
	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const redetectionWarning = "La re-détection complète remet TOUTES les anomalies de la période au statut pending. " +
	"%d classifications manuelles seront perdues."

// AnomalyService runs detection and owns the review workflow of anomalies.
// The reference MAPE used for improvement reporting lives on the instance.
type AnomalyService struct {
	products   repository.ProductRepository
	sales      repository.SalesRepository
	anomalies  repository.AnomalyRepository
	forecaster RetroactiveForecaster
	now        func() time.Time
	ttl        time.Duration

	mu        sync.Mutex
	plans     map[string]domain.RedetectionPlan
	reference *float64
}

func NewAnomalyService(store repository.Store, forecaster RetroactiveForecaster, cfg config.EngineConfig, now func() time.Time) *AnomalyService {
	if now == nil {
		now = time.Now
	}
	ttl := cfg.RedetectionTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AnomalyService{
		products:   store.Products,
		sales:      store.Sales,
		anomalies:  store.Anomalies,
		forecaster: forecaster,
		now:        now,
		ttl:        ttl,
		plans:      make(map[string]domain.RedetectionPlan),
	}
}

// DetectIncremental only inserts new (product, date) anomalies and refreshes pending ones.
// Reviewed anomalies are left untouched, so running it twice changes nothing.
func (s *AnomalyService) DetectIncremental(ctx context.Context, r domain.DateRange, productIDs []int64) (*domain.DetectionResult, error) {
	return s.detect(ctx, domain.DetectionIncremental, r, productIDs)
}

// PrepareFullRedetection is the first phase of the destructive path. It counts the
// anomalies whose status would be reset and returns a single use token.
func (s *AnomalyService) PrepareFullRedetection(ctx context.Context, r domain.DateRange, productIDs []int64) (*domain.RedetectionPlan, error) {
	atRisk, err := s.anomalies.CountAnomalies(ctx, productIDs, r)
	if err != nil {
		return nil, errors.Wrap(domain.ErrPersistence, err.Error())
	}

	plan := domain.RedetectionPlan{
		Token:           uuid.NewString(),
		ExpiresAt:       s.now().Add(s.ttl),
		Range:           r,
		ProductIDs:      productIDs,
		AnomaliesAtRisk: atRisk,
		Warning:         fmt.Sprintf(redetectionWarning, atRisk),
	}

	s.mu.Lock()
	s.plans[plan.Token] = plan
	s.mu.Unlock()

	log.Warn().
		Str("token", plan.Token).
		Int("anomalies_at_risk", atRisk).
		Time("expires_at", plan.ExpiresAt).
		Msg("Full re-detection prepared")
	return &plan, nil
}

// ConfirmFullRedetection runs a prepared re-detection once. Unknown, expired or
// already used tokens fail with domain.ErrConfirmationRequired.
func (s *AnomalyService) ConfirmFullRedetection(ctx context.Context, token string) (*domain.DetectionResult, error) {
	s.mu.Lock()
	plan, ok := s.plans[token]
	delete(s.plans, token)
	s.mu.Unlock()

	if !ok {
		return nil, errors.Wrap(domain.ErrConfirmationRequired, "unknown or already used token")
	}
	if s.now().After(plan.ExpiresAt) {
		return nil, errors.Wrapf(domain.ErrConfirmationRequired, "token expired at %s", plan.ExpiresAt.Format(time.RFC3339))
	}
	return s.detect(ctx, domain.DetectionFull, plan.Range, plan.ProductIDs)
}

func (s *AnomalyService) detect(ctx context.Context, mode domain.DetectionMode, r domain.DateRange, productIDs []int64) (*domain.DetectionResult, error) {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return nil, errors.Wrap(domain.ErrInvalidRange, "detection range ends before it starts")
	}
	if len(productIDs) == 0 {
		products, err := s.products.ListProducts(ctx)
		if err != nil {
			return nil, errors.Wrap(domain.ErrPersistence, err.Error())
		}
		for _, p := range products {
			productIDs = append(productIDs, p.ID)
		}
	}

	res := &domain.DetectionResult{Mode: mode, Range: r}
	for _, id := range productIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		analyzed, err := s.detectProduct(ctx, mode, id, r, res)
		if err != nil {
			return nil, err
		}
		if analyzed {
			res.ProductsAnalyzed++
		}
	}
	if res.TotalPredictions > 0 {
		res.AnomalyRate = accuracy.Round(float64(res.AnomaliesFound)/float64(res.TotalPredictions)*100, 2)
	}

	log.Info().
		Str("mode", string(mode)).
		Int("products", res.ProductsAnalyzed).
		Int("found", res.AnomaliesFound).
		Int("new", res.New).
		Int("updated", res.Updated).
		Int("preserved", res.Preserved).
		Msg("Anomaly detection completed")
	return res, nil
}

// detectProduct reports false when the product has no trained model
func (s *AnomalyService) detectProduct(ctx context.Context, mode domain.DetectionMode, productID int64, r domain.DateRange, res *domain.DetectionResult) (bool, error) {
	sales, err := s.sales.GetDailySales(ctx, productID, r)
	if err != nil {
		return false, errors.Wrapf(domain.ErrPersistence, "sales of product %d: %v", productID, err)
	}
	if len(sales) == 0 {
		return false, nil
	}

	dates := make([]time.Time, len(sales))
	for i, sale := range sales {
		dates[i] = sale.Date
	}
	predictions, err := s.forecaster.Retroactive(ctx, productID, dates)
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		log.Debug().Int64("product_id", productID).Msg("No trained model, product skipped")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, sale := range sales {
		predicted, ok := predictions[sale.Date.Format("2006-01-02")]
		if !ok {
			continue
		}
		res.TotalPredictions++
		obs := anomaly.Observation{ProductID: productID, Date: sale.Date, Predicted: predicted, Actual: sale.Quantity}
		if err := s.record(ctx, mode, obs, res); err != nil {
			return false, err
		}
	}
	return true, nil
}

// record saves the anomaly of one day, if any, then its feedback row linked to it
func (s *AnomalyService) record(ctx context.Context, mode domain.DetectionMode, obs anomaly.Observation, res *domain.DetectionResult) error {
	existing, err := s.anomalies.FindAnomaly(ctx, obs.ProductID, obs.Date)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return errors.Wrapf(domain.ErrPersistence, "find anomaly: %v", err)
	}

	var linked *domain.Anomaly
	detected := anomaly.Detect(obs)
	switch {
	case detected == nil && existing != nil && mode == domain.DetectionFull:
		// within tolerance now, full mode still puts the day back in review
		reset := *existing
		reset.ActualValue = obs.Actual
		reset.PredictedValue = obs.Predicted
		if dev, ok := anomaly.Deviation(obs.Actual, obs.Predicted); ok {
			reset.DeviationPercent = dev * 100
		}
		reset.Status = domain.AnomalyPending
		if err := s.anomalies.UpdateAnomaly(ctx, &reset); err != nil {
			return errors.Wrapf(domain.ErrPersistence, "reset anomaly %d: %v", existing.ID, err)
		}
		res.Updated++
		linked = &reset
	case detected == nil:
		// within tolerance now; a previous anomaly of that day keeps its status
		linked = existing
	case existing == nil:
		if err := s.anomalies.CreateAnomaly(ctx, detected); err != nil {
			return errors.Wrapf(domain.ErrPersistence, "create anomaly: %v", err)
		}
		res.AnomaliesFound++
		res.New++
		linked = detected
	case mode == domain.DetectionIncremental && existing.Status != domain.AnomalyPending:
		res.AnomaliesFound++
		res.Preserved++
		linked = existing
	default:
		// full mode resets the status; incremental mode only gets here for pending anomalies
		detected.ID = existing.ID
		if err := s.anomalies.UpdateAnomaly(ctx, detected); err != nil {
			return errors.Wrapf(domain.ErrPersistence, "update anomaly %d: %v", existing.ID, err)
		}
		res.AnomaliesFound++
		res.Updated++
		linked = detected
	}

	var anomalyID *int64
	if linked != nil {
		id := linked.ID
		anomalyID = &id
	}
	fb := anomaly.Feedback(obs, anomalyID)
	fb.IncludedInTraining = linked == nil || linked.Status != domain.AnomalyIgnored
	if err := s.anomalies.UpsertFeedback(ctx, fb); err != nil {
		return errors.Wrapf(domain.ErrPersistence, "upsert feedback: %v", err)
	}
	return nil
}

// SetStatus moves a pending anomaly to a reviewed status. Marking it ignored also
// excludes its feedback row from training. It returns false with the reason on failure.
func (s *AnomalyService) SetStatus(ctx context.Context, id int64, status domain.AnomalyStatus) (bool, error) {
	if !status.Valid() {
		return false, errors.Wrapf(domain.ErrInvalidTransition, "unknown status %q", status)
	}

	current, err := s.anomalies.GetAnomaly(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, errors.Wrapf(domain.ErrNotFound, "anomaly %d", id)
		}
		return false, errors.Wrap(domain.ErrPersistence, err.Error())
	}
	if !current.Status.CanTransitionTo(status) {
		return false, errors.Wrapf(domain.ErrInvalidTransition, "%s -> %s", current.Status, status)
	}

	if err := s.anomalies.UpdateAnomalyStatus(ctx, id, status, status == domain.AnomalyIgnored); err != nil {
		return false, errors.Wrap(domain.ErrPersistence, err.Error())
	}

	log.Info().Int64("anomaly_id", id).Str("status", string(status)).Msg("Anomaly status updated")
	return true, nil
}

// CleanMAPE averages the feedback MAPE without the days whose anomaly is ignored
func (s *AnomalyService) CleanMAPE(ctx context.Context, r domain.DateRange, productIDs []int64) (*domain.CleanMAPEReport, error) {
	rows, err := s.anomalies.ListFeedback(ctx, domain.FeedbackFilter{ProductIDs: productIDs, Range: r})
	if err != nil {
		return nil, errors.Wrap(domain.ErrPersistence, err.Error())
	}

	s.mu.Lock()
	reference := s.reference
	s.mu.Unlock()

	report := anomaly.CleanMAPE(rows, reference)
	return &report, nil
}

// TrackImprovement records the current clean MAPE as the reference of later reports
func (s *AnomalyService) TrackImprovement(ctx context.Context, r domain.DateRange, productIDs []int64) (*domain.CleanMAPEReport, error) {
	report, err := s.CleanMAPE(ctx, r, productIDs)
	if err != nil {
		return nil, err
	}
	if report.CleanMAPE == nil {
		return report, nil
	}

	ref := *report.CleanMAPE
	s.mu.Lock()
	s.reference = &ref
	s.mu.Unlock()

	log.Info().Float64("reference_mape", ref).Msg("Reference MAPE recorded")
	return report, nil
}

// ListAnomalies is the review queue, highest deviation first
func (s *AnomalyService) ListAnomalies(ctx context.Context, filter domain.AnomalyFilter) ([]domain.Anomaly, error) {
	out, err := s.anomalies.ListAnomalies(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(domain.ErrPersistence, err.Error())
	}
	return out, nil
}

// TrainingFeedback returns the rows the trainer may learn from
func (s *AnomalyService) TrainingFeedback(ctx context.Context, r domain.DateRange, productIDs []int64) ([]domain.PredictionFeedback, error) {
	rows, err := s.anomalies.ListFeedback(ctx, domain.FeedbackFilter{ProductIDs: productIDs, Range: r, TrainingOnly: true})
	if err != nil {
		return nil, errors.Wrap(domain.ErrPersistence, err.Error())
	}
	out := make([]domain.PredictionFeedback, len(rows))
	for i, row := range rows {
		out[i] = row.PredictionFeedback
	}
	return out, nil
}
