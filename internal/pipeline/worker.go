package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/rs/zerolog/log"
)

// ForecastRefresher is the part of the forecaster the nightly run drives
type ForecastRefresher interface {
	Predict(ctx context.Context, productID int64, start, end time.Time, events []domain.ForecastEvent) (*domain.ForecastResult, error)
	InvalidateProduct(ctx context.Context, productID int64) error
}

// Worker recomputes the forecast of every product so the cache is warm before alerts run
type Worker struct {
	forecaster ForecastRefresher
	config     Config
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewWorker creates a new forecast worker
func NewWorker(forecaster ForecastRefresher, config Config) *Worker {
	return &Worker{forecaster: forecaster, config: config, sleep: sleepCtx}
}

// RefreshResult counts refreshed and failed products
type RefreshResult struct {
	Processed int
	Failed    int
	Fallback  int
}

// Refresh forecasts [start, start+horizon-1] for every product using a worker pool.
// A product failing after every retry is counted, not fatal.
func (w *Worker) Refresh(ctx context.Context, start time.Time, productIDs []int64) (RefreshResult, error) {
	workerCount := w.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}
	horizon := w.config.HorizonDays
	if horizon < 1 {
		horizon = 30
	}
	end := start.AddDate(0, 0, horizon-1)

	var processed, failed, fallback int64
	jobs := make(chan int64, len(productIDs))
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for id := range jobs {
				res, err := w.refreshProduct(ctx, id, start, end)
				if err != nil {
					log.Warn().Err(err).Int("worker", workerID).Int64("product_id", id).Msg("Forecast refresh failed")
					atomic.AddInt64(&failed, 1)
					continue
				}
				atomic.AddInt64(&processed, 1)
				if res.FallbackMode {
					atomic.AddInt64(&fallback, 1)
				}
			}
		}(i)
	}

	var cancelled error
enqueue:
	for _, id := range productIDs {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break enqueue
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()

	res := RefreshResult{Processed: int(processed), Failed: int(failed), Fallback: int(fallback)}
	return res, cancelled
}

// refreshProduct drops the cached forecast and predicts again, retrying on failure
func (w *Worker) refreshProduct(ctx context.Context, productID int64, start, end time.Time) (*domain.ForecastResult, error) {
	if err := w.forecaster.InvalidateProduct(ctx, productID); err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("Forecast cache invalidation failed")
	}

	attempts := w.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := w.forecaster.Predict(ctx, productID, start, end, nil)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if attempt < attempts {
			log.Debug().Err(err).Int64("product_id", productID).Int("attempt", attempt).Msg("Retrying forecast")
			if err := w.sleep(ctx, w.config.RetryBackoff); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
