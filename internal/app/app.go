// Package app wires the configured store, cache, storage and services shared by the binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/api"
	"github.com/adhamcharaf/Optiflow-VF/internal/cache"
	"github.com/adhamcharaf/Optiflow-VF/internal/config"
	"github.com/adhamcharaf/Optiflow-VF/internal/drive"
	"github.com/adhamcharaf/Optiflow-VF/internal/export"
	"github.com/adhamcharaf/Optiflow-VF/internal/forecast"
	"github.com/adhamcharaf/Optiflow-VF/internal/pipeline"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository/memory"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository/postgres"
	"github.com/adhamcharaf/Optiflow-VF/internal/service"
	"github.com/adhamcharaf/Optiflow-VF/internal/storage"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config *config.Config
	Store  repository.Store

	// DB is nil with the memory store driver
	DB *postgres.DB

	Forecaster   *forecast.Forecaster
	Alerts       *service.AlertService
	Quantities   *service.QuantityService
	Anomalies    *service.AnomalyService
	Performance  *service.PerformanceService
	Orders       *service.OrderService
	Exporter     *export.Exporter
	Importer     *drive.Importer
	Orchestrator *pipeline.Orchestrator
}

// New connects the configured backends. Optional backends (Drive, object storage) that
// fail to initialize are logged and left out.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	now := time.Now

	var runs pipeline.RunRepository
	switch cfg.Engine.StoreDriver {
	case config.StoreMemory:
		store := memory.New()
		a.Store = store.Repositories()
		runs = pipeline.NewMemoryRepository()
		log.Warn().Msg("Using the in-memory store, data is lost on exit")
	case config.StorePostgres, "":
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.Store = db.Store()
		runs = pipeline.NewRepository(db.DB)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Engine.StoreDriver)
	}

	forecastCache, err := cache.NewForecastCache(ctx, cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, forecasts are not cached")
		forecastCache = cache.NewNoopForecastCache()
	}

	a.Forecaster = forecast.New(a.Store.Forecasts, a.Store.Sales, forecastCache, now)
	a.Alerts = service.NewAlertService(a.Store, a.Forecaster, cfg.Engine, now)
	a.Quantities = service.NewQuantityService(a.Store, a.Forecaster, cfg.Engine, now)
	a.Anomalies = service.NewAnomalyService(a.Store, a.Forecaster, cfg.Engine, now)
	a.Performance = service.NewPerformanceService(a.Store, cfg.Engine, now)
	a.Orders = service.NewOrderService(a.Store, now)

	if objects, err := storage.New(ctx, cfg.Storage); err != nil {
		log.Warn().Err(err).Msg("Object storage unavailable, exports disabled")
	} else {
		a.Exporter = export.New(objects, now)
	}

	var source drive.FileSource
	if cfg.Drive.CredentialsJSON != "" || cfg.Drive.CredentialsFile != "" {
		srv, err := drive.NewService(ctx, cfg.Drive)
		if err != nil {
			log.Warn().Err(err).Msg("Google Drive unavailable, only uploaded files can be imported")
		} else {
			source = srv
		}
	}
	a.Importer = drive.NewImporter(source, a.Store, a.Forecaster)

	pcfg := pipeline.DefaultConfig()
	pcfg.WorkerCount = cfg.Engine.BatchWorkers
	pcfg.HorizonDays = cfg.Engine.ForecastHorizonDays
	pcfg.LookbackDays = cfg.Engine.AnomalyLookbackDays
	a.Orchestrator = pipeline.NewOrchestrator(runs, a.Store, pipeline.Steps{
		Forecaster: a.Forecaster,
		Alerts:     a.Alerts,
		Quantities: a.Quantities,
		Anomalies:  a.Anomalies,
		Exporter:   a.Exporter,
	}, pcfg, now)

	return a, nil
}

// Migrate applies the schema. It is a no-op with the memory store.
func (a *App) Migrate(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Migrate(ctx)
}

// Services exposes the services to the HTTP router
func (a *App) Services() *api.Services {
	return &api.Services{
		Alerts:      a.Alerts,
		Quantities:  a.Quantities,
		Anomalies:   a.Anomalies,
		Performance: a.Performance,
		Orders:      a.Orders,
		Forecaster:  a.Forecaster,
		Importer:    a.Importer,
		Exporter:    a.Exporter,
		DriveFolders: map[drive.Kind]string{
			drive.KindSales: a.Config.Drive.SalesFolderID,
			drive.KindStock: a.Config.Drive.StockFolderID,
		},
	}
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
