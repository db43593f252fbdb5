package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/api/handlers"
	"github.com/adhamcharaf/Optiflow-VF/internal/api/middleware"
	"github.com/adhamcharaf/Optiflow-VF/internal/drive"
	"github.com/adhamcharaf/Optiflow-VF/internal/export"
	"github.com/adhamcharaf/Optiflow-VF/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services holds what the router exposes. Nil members leave their routes out.
type Services struct {
	Alerts       *service.AlertService
	Quantities   *service.QuantityService
	Anomalies    *service.AnomalyService
	Performance  *service.PerformanceService
	Orders       *service.OrderService
	Forecaster   service.Forecaster
	Importer     *drive.Importer
	Exporter     *export.Exporter
	DriveFolders map[drive.Kind]string
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(cors.New(corsConfig(allowedOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")
	if services == nil {
		return router
	}

	if services.Alerts != nil {
		alertHandler := handlers.NewAlertHandler(services.Alerts, services.Exporter)
		alertGroup := apiGroup.Group("/alerts")
		{
			alertGroup.GET("/history", alertHandler.GetHistory)
			alertGroup.POST("/batch", alertHandler.EvaluateBatch)
			alertGroup.GET("/:product_id", alertHandler.GetAlert)
		}
	}

	if services.Quantities != nil {
		quantityHandler := handlers.NewQuantityHandler(services.Quantities, services.Exporter)
		quantityGroup := apiGroup.Group("/quantities")
		{
			quantityGroup.POST("/batch", quantityHandler.SuggestBatch)
			quantityGroup.GET("/:product_id", quantityHandler.GetSuggestion)
		}
	}

	if services.Anomalies != nil {
		anomalyHandler := handlers.NewAnomalyHandler(services.Anomalies)
		anomalyGroup := apiGroup.Group("/anomalies")
		{
			anomalyGroup.GET("", anomalyHandler.ListAnomalies)
			anomalyGroup.POST("/detect", anomalyHandler.Detect)
			anomalyGroup.POST("/redetect/prepare", anomalyHandler.PrepareRedetection)
			anomalyGroup.POST("/redetect/confirm", anomalyHandler.ConfirmRedetection)
			anomalyGroup.PUT("/:id/status", anomalyHandler.UpdateStatus)
			anomalyGroup.GET("/clean-mape", anomalyHandler.GetCleanMAPE)
			anomalyGroup.GET("/training-feedback", anomalyHandler.GetTrainingFeedback)
		}
	}

	if services.Performance != nil {
		accuracyHandler := handlers.NewAccuracyHandler(services.Performance)
		apiGroup.GET("/accuracy/:product_id", accuracyHandler.GetPerformance)
	}

	if services.Orders != nil {
		orderHandler := handlers.NewOrderHandler(services.Orders)
		orderGroup := apiGroup.Group("/orders")
		{
			orderGroup.POST("", orderHandler.CreateOrder)
			orderGroup.GET("", orderHandler.GetOrders)
			orderGroup.GET("/statistics", orderHandler.GetStatistics)
		}
	}

	if services.Forecaster != nil {
		forecastHandler := handlers.NewForecastHandler(services.Forecaster)
		apiGroup.POST("/forecasts/:product_id", forecastHandler.Predict)
	}

	if services.Importer != nil {
		importHandler := handlers.NewImportHandler(services.Importer, services.DriveFolders)
		importGroup := apiGroup.Group("/imports")
		{
			importGroup.POST("/:kind", importHandler.UploadFile)
			importGroup.POST("/:kind/drive", importHandler.ImportFromDrive)
		}
	}

	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			cfg.AllowOrigins = nil
			cfg.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			cfg.AllowOrigins = normalizedOrigins
		}
	}
	return cfg
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
