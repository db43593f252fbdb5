package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/export"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/adhamcharaf/Optiflow-VF/internal/service"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NightlyReport is what one nightly run produced
type NightlyReport struct {
	Run          Run                     `json:"run"`
	Forecasts    RefreshResult           `json:"forecasts"`
	Alerts       domain.AlertSummary     `json:"alerts"`
	QuantityCost float64                 `json:"quantity_total_cost"`
	ExportKeys   []string                `json:"export_keys,omitempty"`
	Detection    *domain.DetectionResult `json:"detection,omitempty"`
}

// Orchestrator runs the nightly batch: forecasts, alerts, optional exports, then
// incremental anomaly detection over the lookback window.
type Orchestrator struct {
	runs       RunRepository
	products   repository.ProductRepository
	worker     *Worker
	alerts     *service.AlertService
	quantities *service.QuantityService
	anomalies  *service.AnomalyService
	exporter   *export.Exporter
	cfg        Config
	now        func() time.Time
}

// Steps groups the services the orchestrator drives. Exporter may be nil.
type Steps struct {
	Forecaster ForecastRefresher
	Alerts     *service.AlertService
	Quantities *service.QuantityService
	Anomalies  *service.AnomalyService
	Exporter   *export.Exporter
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(runs RunRepository, store repository.Store, steps Steps, cfg Config, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		runs:       runs,
		products:   store.Products,
		worker:     NewWorker(steps.Forecaster, cfg),
		alerts:     steps.Alerts,
		quantities: steps.Quantities,
		anomalies:  steps.Anomalies,
		exporter:   steps.Exporter,
		cfg:        cfg,
		now:        now,
	}
}

// RunNightly executes every step and tracks the run. Per-product failures are counted in
// the run, only a failing step marks it failed.
func (o *Orchestrator) RunNightly(ctx context.Context) (*NightlyReport, error) {
	now := o.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	products, err := o.products.ListProducts(ctx)
	if err != nil {
		return nil, errors.Wrap(domain.ErrPersistence, err.Error())
	}
	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	run, err := o.getOrCreateRun(ctx, today, len(ids))
	if err != nil {
		return nil, err
	}
	log.Info().Int64("run_id", run.ID).Int("products", len(ids)).Msg("Nightly run started")

	report := &NightlyReport{}
	if err := o.execute(ctx, today, ids, run, report); err != nil {
		o.finish(ctx, run, StatusFailed, err)
		report.Run = *run
		return report, err
	}

	o.finish(ctx, run, StatusCompleted, nil)
	report.Run = *run
	log.Info().
		Int64("run_id", run.ID).
		Int("processed", run.ProcessedItems).
		Int("failed", run.FailedItems).
		Msg("Nightly run completed")
	return report, nil
}

func (o *Orchestrator) execute(ctx context.Context, today time.Time, ids []int64, run *Run, report *NightlyReport) error {
	// predictions start tomorrow, like the alert and quantity horizons
	refreshed, err := o.worker.Refresh(ctx, today.AddDate(0, 0, 1), ids)
	report.Forecasts = refreshed
	if err != nil {
		return errors.Wrap(err, "forecast refresh")
	}

	batch, err := o.alerts.EvaluateBatch(ctx, ids, service.AlertRequest{})
	if err != nil {
		return errors.Wrap(err, "alert evaluation")
	}
	report.Alerts = batch.Summary
	run.ProcessedItems = batch.Summary.Total - batch.Summary.Errors
	run.FailedItems = batch.Summary.Errors

	if o.cfg.Export && o.exporter != nil {
		keys, cost, err := o.export(ctx, batch, ids)
		if err != nil {
			return errors.Wrap(err, "export")
		}
		report.ExportKeys = keys
		report.QuantityCost = cost
	}

	lookback := o.cfg.LookbackDays
	if lookback < 1 {
		lookback = 7
	}
	period := domain.DateRange{Start: today.AddDate(0, 0, -lookback), End: today.AddDate(0, 0, -1)}
	detection, err := o.anomalies.DetectIncremental(ctx, period, ids)
	if err != nil {
		return errors.Wrap(err, "anomaly detection")
	}
	report.Detection = detection
	return nil
}

func (o *Orchestrator) export(ctx context.Context, alerts *domain.AlertBatch, ids []int64) ([]string, float64, error) {
	alertKey, err := o.exporter.ExportAlerts(ctx, alerts)
	if err != nil {
		return nil, 0, err
	}
	if o.quantities == nil {
		return []string{alertKey}, 0, nil
	}

	quantities, err := o.quantities.SuggestBatch(ctx, ids, service.QuantityRequest{})
	if err != nil {
		return nil, 0, err
	}
	quantityKey, err := o.exporter.ExportQuantities(ctx, quantities)
	if err != nil {
		return nil, 0, err
	}
	return []string{alertKey, quantityKey}, quantities.TotalCost, nil
}

// getOrCreateRun reuses the run of the day so a rerun after a failure is tracked once
func (o *Orchestrator) getOrCreateRun(ctx context.Context, date time.Time, total int) (*Run, error) {
	run, err := o.runs.GetRunByDate(ctx, NightlyPipeline, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}
	if run != nil {
		run.Status = StatusProcessing
		run.TotalItems = total
		run.ProcessedItems = 0
		run.FailedItems = 0
		run.StartedAt = o.now()
		run.CompletedAt = nil
		run.ErrorMessage = nil
		if err := o.runs.UpdateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to reset pipeline run: %w", err)
		}
		return run, nil
	}

	run = &Run{
		PipelineName: NightlyPipeline,
		Date:         date,
		Status:       StatusPending,
		TotalItems:   total,
		StartedAt:    o.now(),
	}
	if err := o.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}
	run.Status = StatusProcessing
	if err := o.runs.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update pipeline run: %w", err)
	}
	return run, nil
}

func (o *Orchestrator) finish(ctx context.Context, run *Run, status RunStatus, cause error) {
	run.Status = status
	completed := o.now()
	run.CompletedAt = &completed
	if cause != nil {
		msg := cause.Error()
		run.ErrorMessage = &msg
		log.Error().Err(cause).Int64("run_id", run.ID).Msg("Nightly run failed")
	}
	if err := o.runs.UpdateRun(ctx, run); err != nil {
		log.Error().Err(err).Int64("run_id", run.ID).Msg("Failed to record pipeline run")
	}
}

// Runs lists the latest nightly runs
func (o *Orchestrator) Runs(ctx context.Context, limit int) ([]Run, error) {
	return o.runs.ListRuns(ctx, NightlyPipeline, limit)
}
