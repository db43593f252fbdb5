package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/config"
	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/drive"
	"github.com/adhamcharaf/Optiflow-VF/internal/export"
	"github.com/adhamcharaf/Optiflow-VF/internal/forecast"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository/memory"
	"github.com/adhamcharaf/Optiflow-VF/internal/service"
	"github.com/adhamcharaf/Optiflow-VF/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func jan(day int) time.Time {
	return time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC)
}

// newTestRouter seeds product 7 heading for a stockout, product 8 on the fallback forecast
// and product 3 with past predictions to check against realized sales
func newTestRouter(t *testing.T, withExporter bool) (*gin.Engine, *memory.Store) {
	t.Helper()
	store := memory.New().WithClock(clock)
	ctx := context.Background()

	store.AddProduct(domain.Product{ID: 7, Name: "Riz 25kg", UnitPrice: 1000, LeadTimeDays: 5})
	store.AddProduct(domain.Product{ID: 8, Name: "Huile 5L", UnitPrice: 500, LeadTimeDays: 5})
	store.AddProduct(domain.Product{ID: 3, Name: "Sucre 1kg", UnitPrice: 800, LeadTimeDays: 3})
	require.NoError(t, store.RecordStock(ctx, []domain.StockLevel{
		{ProductID: 7, QuantityOnHand: 50, RecordedAt: jan(9)},
		{ProductID: 8, QuantityOnHand: 1000, RecordedAt: jan(9)},
	}))

	var ahead []domain.StoredForecast
	for i, q := range []float64{20, 25, 30, 20, 25} {
		ahead = append(ahead, domain.StoredForecast{ProductID: 7, ForecastDate: jan(11 + i), Predicted: q})
	}
	for i := 5; i < 30; i++ {
		ahead = append(ahead, domain.StoredForecast{ProductID: 7, ForecastDate: jan(11 + i), Predicted: 20})
	}
	store.AddModel(domain.ForecastModel{ProductID: 7, TrainedAt: jan(1)}, ahead...)

	var past []domain.StoredForecast
	for d := 1; d <= 5; d++ {
		past = append(past, domain.StoredForecast{ProductID: 3, ForecastDate: jan(d), Predicted: 10})
	}
	store.AddModel(domain.ForecastModel{ProductID: 3, TrainedAt: jan(1)}, past...)
	require.NoError(t, store.UpsertDailySales(ctx, []domain.DailySale{
		{ProductID: 3, Date: jan(1), Quantity: 10},
		{ProductID: 3, Date: jan(2), Quantity: 20},
		{ProductID: 3, Date: jan(3), Quantity: 2},
		{ProductID: 3, Date: jan(4), Quantity: 12},
		{ProductID: 3, Date: jan(5), Quantity: 40},
	}))

	cfg := config.EngineConfig{
		BatchWorkers:         2,
		DefaultMargin:        15,
		RedetectionTTL:       10 * time.Minute,
		ForecastHorizonDays:  30,
		MonitoringWindowDays: 30,
	}
	repos := store.Repositories()
	forecaster := forecast.New(store, store, nil, clock)

	services := &Services{
		Alerts:      service.NewAlertService(repos, forecaster, cfg, clock),
		Quantities:  service.NewQuantityService(repos, forecaster, cfg, clock),
		Anomalies:   service.NewAnomalyService(repos, forecaster, cfg, clock),
		Performance: service.NewPerformanceService(repos, cfg, clock),
		Orders:      service.NewOrderService(repos, clock),
		Forecaster:  forecaster,
		Importer:    drive.NewImporter(nil, repos, forecaster),
	}
	if withExporter {
		services.Exporter = export.New(storage.NewLocalStorage(t.TempDir()), clock)
	}
	return NewRouter(services, nil), store
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, false)
	w := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetAlert(t *testing.T) {
	router, _ := newTestRouter(t, false)

	w := do(t, router, http.MethodGet, "/api/v1/alerts/7", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var entry struct {
		Status string `json:"status"`
		Alert  struct {
			Status string `json:"status"`
			Detail struct {
				StockoutDate string `json:"stockout_date"`
			} `json:"detail"`
		} `json:"alert"`
	}
	decode(t, w, &entry)
	assert.Equal(t, domain.StatusSuccess, entry.Status)
	assert.Equal(t, "CRITIQUE", entry.Alert.Status)
	assert.Equal(t, "2025-01-13", entry.Alert.Detail.StockoutDate)

	w = do(t, router, http.MethodGet, "/api/v1/alerts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/alerts/7?margin=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlertBatchAndHistory(t *testing.T) {
	router, _ := newTestRouter(t, false)

	w := do(t, router, http.MethodPost, "/api/v1/alerts/batch", gin.H{"product_ids": []int64{7, 99}})
	require.Equal(t, http.StatusOK, w.Code)

	var batch struct {
		Alerts []struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"alerts"`
		Summary domain.AlertSummary `json:"summary"`
	}
	decode(t, w, &batch)
	assert.Equal(t, 2, batch.Summary.Total)
	assert.Equal(t, 1, batch.Summary.Critical)
	assert.Equal(t, 1, batch.Summary.Errors)
	assert.Equal(t, "Article 99 non trouvé", batch.Alerts[1].Error)

	w = do(t, router, http.MethodGet, "/api/v1/alerts/history?product_id=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []domain.StoredAlert
	decode(t, w, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "CRITIQUE", history[0].Status)

	// exports need a configured exporter
	w = do(t, router, http.MethodPost, "/api/v1/alerts/batch", gin.H{"export": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlertBatchExport(t *testing.T) {
	router, _ := newTestRouter(t, true)

	w := do(t, router, http.MethodPost, "/api/v1/alerts/batch", gin.H{"export": true})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, "alerts/2025-01-10/alerts_20250110T093000.csv", resp["export_key"])
}

func TestGetSuggestion(t *testing.T) {
	router, _ := newTestRouter(t, false)

	w := do(t, router, http.MethodGet, "/api/v1/quantities/8?margin=0&stock=100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res domain.QuantitySuggestion
	decode(t, w, &res)
	assert.Equal(t, 215, res.FinalQuantity)
	assert.Equal(t, "2025-02-09", res.TargetDate)

	w = do(t, router, http.MethodGet, "/api/v1/quantities/8?margin=0&stock=100&budget=50000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var budget domain.BudgetSuggestion
	decode(t, w, &budget)
	assert.Equal(t, domain.BudgetLimited, budget.BudgetStatus)
	assert.Equal(t, 100, budget.FinalQuantity)

	w = do(t, router, http.MethodGet, "/api/v1/quantities/8?budget=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/quantities/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var errBody map[string]string
	decode(t, w, &errBody)
	assert.Equal(t, "failed to suggest quantity", errBody["error"])
	assert.NotEmpty(t, errBody["details"])

	w = do(t, router, http.MethodGet, "/api/v1/quantities/8?target_date=10-02-2025", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuantityBatch(t *testing.T) {
	router, _ := newTestRouter(t, false)

	w := do(t, router, http.MethodPost, "/api/v1/quantities/batch", gin.H{"product_ids": []int64{8, 99}, "margin": 0})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
}

func TestAnomalyReviewFlow(t *testing.T) {
	router, _ := newTestRouter(t, false)
	period := gin.H{"start_date": "2025-01-01", "end_date": "2025-01-05"}

	w := do(t, router, http.MethodPost, "/api/v1/anomalies/detect", period)
	require.Equal(t, http.StatusOK, w.Code)
	var detection domain.DetectionResult
	decode(t, w, &detection)
	assert.Equal(t, 3, detection.New)

	w = do(t, router, http.MethodGet, "/api/v1/anomalies?status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queue []domain.Anomaly
	decode(t, w, &queue)
	require.Len(t, queue, 3)

	path := fmt.Sprintf("/api/v1/anomalies/%d/status", queue[0].ID)
	w = do(t, router, http.MethodPut, path, gin.H{"status": "ignored"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPut, path, gin.H{"status": "validated"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPut, "/api/v1/anomalies/999/status", gin.H{"status": "validated"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/anomalies/clean-mape?start_date=2025-01-01&end_date=2025-01-05", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report domain.CleanMAPEReport
	decode(t, w, &report)
	assert.Equal(t, 1, report.AnomaliesExcluded)
	assert.Equal(t, 4, report.PredictionsUsed)

	w = do(t, router, http.MethodGet, "/api/v1/anomalies/training-feedback?product_ids=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var training []domain.PredictionFeedback
	decode(t, w, &training)
	assert.Len(t, training, 4)
}

func TestRedetectionNeedsConfirmation(t *testing.T) {
	router, _ := newTestRouter(t, false)
	period := gin.H{"start_date": "2025-01-01", "end_date": "2025-01-05"}

	w := do(t, router, http.MethodPost, "/api/v1/anomalies/detect", period)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/anomalies/redetect/prepare", period)
	require.Equal(t, http.StatusOK, w.Code)
	var plan domain.RedetectionPlan
	decode(t, w, &plan)
	assert.Equal(t, 3, plan.AnomaliesAtRisk)

	w = do(t, router, http.MethodPost, "/api/v1/anomalies/redetect/confirm", gin.H{"token": "bogus"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/anomalies/redetect/confirm", gin.H{"token": plan.Token})
	require.Equal(t, http.StatusOK, w.Code)
	var res domain.DetectionResult
	decode(t, w, &res)
	assert.Equal(t, domain.DetectionFull, res.Mode)

	w = do(t, router, http.MethodPost, "/api/v1/anomalies/redetect/confirm", gin.H{"token": plan.Token})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDetectRejectsBadPeriod(t *testing.T) {
	router, _ := newTestRouter(t, false)

	w := do(t, router, http.MethodPost, "/api/v1/anomalies/detect", gin.H{"start_date": "2025-01-05", "end_date": "2025-01-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/anomalies/detect", gin.H{"start_date": "2025-01-05"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrders(t *testing.T) {
	router, _ := newTestRouter(t, false)

	w := do(t, router, http.MethodPost, "/api/v1/orders", gin.H{"product_id": 7, "quantity_ordered": 120, "alert_type": "CRITICAL"})
	require.Equal(t, http.StatusCreated, w.Code)
	var order domain.Order
	decode(t, w, &order)
	assert.Equal(t, "CRITIQUE", order.AlertTier)
	assert.Equal(t, 50, order.StockAtOrder)

	w = do(t, router, http.MethodPost, "/api/v1/orders", gin.H{"product_id": 7, "quantity_ordered": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/orders", gin.H{"product_id": 99, "quantity_ordered": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/orders?product_id=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []domain.Order
	decode(t, w, &orders)
	assert.Len(t, orders, 1)

	w = do(t, router, http.MethodGet, "/api/v1/orders/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats domain.OrderStatistics
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.TotalOrders)
	assert.Equal(t, 120000.0, stats.TotalValue)
}

func TestForecast(t *testing.T) {
	router, _ := newTestRouter(t, false)

	w := do(t, router, http.MethodPost, "/api/v1/forecasts/8", gin.H{"start_date": "2025-01-10", "end_date": "2025-01-11"})
	require.Equal(t, http.StatusOK, w.Code)
	var res domain.ForecastResult
	decode(t, w, &res)
	assert.True(t, res.FallbackMode)
	require.Len(t, res.Points, 2)
	assert.Equal(t, 13, res.Points[1].Quantity)
}

func TestAccuracyUnknownProduct(t *testing.T) {
	router, _ := newTestRouter(t, false)
	w := do(t, router, http.MethodGet, "/api/v1/accuracy/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/accuracy/3?days=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadSales(t *testing.T) {
	router, store := newTestRouter(t, false)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "ventes.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("product_id,date,quantity\n8,2025-01-09,14\n8,2025-01-09,1\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/sales", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	sales, err := store.GetDailySales(context.Background(), 8, domain.DateRange{Start: jan(9), End: jan(9)})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 15.0, sales[0].Quantity)

	w = do(t, router, http.MethodPost, "/api/v1/imports/orders", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/imports/sales/drive", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
