package handlers

import (
	"net/http"

	"github.com/adhamcharaf/Optiflow-VF/internal/export"
	"github.com/adhamcharaf/Optiflow-VF/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type AlertHandler struct {
	alerts   *service.AlertService
	exporter *export.Exporter
}

// NewAlertHandler builds the handler. exporter may be nil, batch exports are then refused.
func NewAlertHandler(alerts *service.AlertService, exporter *export.Exporter) *AlertHandler {
	return &AlertHandler{alerts: alerts, exporter: exporter}
}

type alertBatchBody struct {
	ProductIDs []int64  `json:"product_ids"`
	Margin     *float64 `json:"margin"`
	LeadTime   *int     `json:"lead_time"`
	UnitPrice  *float64 `json:"unit_price"`
	Export     bool     `json:"export"`
}

// GetAlert classifies one product. Errors are reported inside the entry, like in batches.
func (h *AlertHandler) GetAlert(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	margin, ok := optionalFloat(c, "margin")
	if !ok {
		return
	}
	leadTime, ok := optionalInt(c, "lead_time")
	if !ok {
		return
	}
	unitPrice, ok := optionalFloat(c, "unit_price")
	if !ok {
		return
	}

	entry := h.alerts.Evaluate(c.Request.Context(), productID, service.AlertRequest{
		Margin:    margin,
		LeadTime:  leadTime,
		UnitPrice: unitPrice,
	})
	c.JSON(http.StatusOK, entry)
}

// EvaluateBatch classifies many products, every product when product_ids is empty
func (h *AlertHandler) EvaluateBatch(c *gin.Context) {
	var body alertBatchBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	if body.Export && h.exporter == nil {
		badRequest(c, "exports are not configured")
		return
	}

	batch, err := h.alerts.EvaluateBatch(c.Request.Context(), body.ProductIDs, service.AlertRequest{
		Margin:    body.Margin,
		LeadTime:  body.LeadTime,
		UnitPrice: body.UnitPrice,
	})
	if err != nil && batch == nil {
		respondError(c, err, "failed to evaluate alerts")
		return
	}
	if err != nil {
		// the alerts were computed, only their history is missing
		log.Warn().Err(err).Msg("Alert batch not stored")
	}

	resp := gin.H{"alerts": batch.Alerts, "summary": batch.Summary}
	if body.Export {
		key, err := h.exporter.ExportAlerts(c.Request.Context(), batch)
		if err != nil {
			respondError(c, err, "failed to export alerts")
			return
		}
		resp["export_key"] = key
	}
	c.JSON(http.StatusOK, resp)
}

// GetHistory lists stored alerts, newest first
func (h *AlertHandler) GetHistory(c *gin.Context) {
	productID, ok := optionalInt64(c, "product_id")
	if !ok {
		return
	}
	limit := parsePositiveIntWithDefault(c.Query("limit"), 100)

	history, err := h.alerts.History(c.Request.Context(), productID, limit)
	if err != nil {
		respondError(c, err, "failed to fetch alert history")
		return
	}
	c.JSON(http.StatusOK, history)
}
