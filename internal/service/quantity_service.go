package service

import (
	"context"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/config"
	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/replenishment"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// QuantityRequest carries the optional parameters of a suggestion
type QuantityRequest struct {
	Margin     *float64   `json:"margin"`
	TargetDate *time.Time `json:"target_date"`
	// Stock overrides the latest recorded stock level
	Stock *int `json:"stock"`
}

type QuantityService struct {
	products   repository.ProductRepository
	forecaster Forecaster
	suggester  *replenishment.QuantitySuggester
	now        func() time.Time
	cfg        config.EngineConfig
}

func NewQuantityService(store repository.Store, forecaster Forecaster, cfg config.EngineConfig, now func() time.Time) *QuantityService {
	if now == nil {
		now = time.Now
	}
	return &QuantityService{
		products:   store.Products,
		forecaster: forecaster,
		suggester:  replenishment.NewQuantitySuggester(now),
		now:        now,
		cfg:        cfg,
	}
}

func (s *QuantityService) input(ctx context.Context, productID int64, req QuantityRequest) (replenishment.QuantityInput, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return replenishment.QuantityInput{}, err
	}

	var stock int
	if req.Stock != nil {
		stock = *req.Stock
	} else if stock, err = s.products.GetCurrentStock(ctx, productID); err != nil {
		return replenishment.QuantityInput{}, errors.Wrapf(domain.ErrPersistence, "stock of product %d: %v", productID, err)
	}

	days, _ := s.suggester.TargetDays(req.TargetDate)
	forecast, err := demandSequence(ctx, s.forecaster, productID, startOfDay(s.now()), days)
	if err != nil {
		return replenishment.QuantityInput{}, err
	}

	return replenishment.QuantityInput{
		Product:    *product,
		Stock:      stock,
		Forecast:   forecast,
		Margin:     orDefault(req.Margin, s.cfg.DefaultMargin),
		TargetDate: req.TargetDate,
	}, nil
}

// Suggest returns domain.ErrNotFound for an unknown product
func (s *QuantityService) Suggest(ctx context.Context, productID int64, req QuantityRequest) (*domain.QuantitySuggestion, error) {
	in, err := s.input(ctx, productID, req)
	if err != nil {
		return nil, err
	}
	return s.suggester.Suggest(in), nil
}

func (s *QuantityService) SuggestWithBudget(ctx context.Context, productID int64, req QuantityRequest, budget float64) (*domain.BudgetSuggestion, error) {
	if budget < 0 {
		return nil, errors.Wrapf(domain.ErrInvalidRange, "budget %.2f", budget)
	}
	in, err := s.input(ctx, productID, req)
	if err != nil {
		return nil, err
	}
	return s.suggester.SuggestWithBudget(in, budget), nil
}

// SuggestBatch totals the successful suggestions; failed products appear as ERROR entries
func (s *QuantityService) SuggestBatch(ctx context.Context, ids []int64, req QuantityRequest) (*domain.QuantityBatch, error) {
	if len(ids) == 0 {
		products, err := s.products.ListProducts(ctx)
		if err != nil {
			return nil, errors.Wrap(domain.ErrPersistence, err.Error())
		}
		for _, p := range products {
			ids = append(ids, p.ID)
		}
	}

	entries := make([]domain.QuantityEntry, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(s.cfg.BatchWorkers))
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			res, err := s.Suggest(gctx, id, req)
			if err != nil {
				log.Warn().Err(err).Int64("product_id", id).Msg("Quantity suggestion failed")
				entries[i] = domain.QuantityEntry{ProductID: id, Status: domain.StatusError, Error: entryError(id, err)}
				return nil
			}
			entries[i] = domain.QuantityEntry{ProductID: id, Status: domain.StatusSuccess, Suggestion: res}
			return nil
		})
	}
	_ = g.Wait()

	batch := &domain.QuantityBatch{Entries: entries}
	for _, e := range entries {
		if e.Suggestion == nil {
			batch.Failed++
			continue
		}
		batch.Succeeded++
		batch.TotalQuantity += e.Suggestion.FinalQuantity
		batch.TotalCost += e.Suggestion.CostEstimate
	}
	return batch, nil
}
