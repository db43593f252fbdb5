package handlers

import (
	"net/http"

	"github.com/adhamcharaf/Optiflow-VF/internal/export"
	"github.com/adhamcharaf/Optiflow-VF/internal/service"
	"github.com/gin-gonic/gin"
)

type QuantityHandler struct {
	quantities *service.QuantityService
	exporter   *export.Exporter
}

func NewQuantityHandler(quantities *service.QuantityService, exporter *export.Exporter) *QuantityHandler {
	return &QuantityHandler{quantities: quantities, exporter: exporter}
}

type quantityBatchBody struct {
	ProductIDs []int64  `json:"product_ids"`
	Margin     *float64 `json:"margin"`
	TargetDate string   `json:"target_date"`
	Export     bool     `json:"export"`
}

func (h *QuantityHandler) request(c *gin.Context) (service.QuantityRequest, bool) {
	var req service.QuantityRequest
	var ok bool
	if req.Margin, ok = optionalFloat(c, "margin"); !ok {
		return req, false
	}
	if req.Stock, ok = optionalInt(c, "stock"); !ok {
		return req, false
	}
	if raw := c.Query("target_date"); raw != "" {
		target, err := parseDate(raw)
		if err != nil {
			badRequest(c, "invalid target_date")
			return req, false
		}
		req.TargetDate = &target
	}
	return req, true
}

// GetSuggestion suggests an order quantity. A budget query parameter switches to the
// budget constrained suggestion.
func (h *QuantityHandler) GetSuggestion(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	req, ok := h.request(c)
	if !ok {
		return
	}
	budget, ok := optionalFloat(c, "budget")
	if !ok {
		return
	}

	if budget != nil {
		res, err := h.quantities.SuggestWithBudget(c.Request.Context(), productID, req, *budget)
		if err != nil {
			respondError(c, err, "failed to suggest quantity")
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	res, err := h.quantities.Suggest(c.Request.Context(), productID, req)
	if err != nil {
		respondError(c, err, "failed to suggest quantity")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *QuantityHandler) SuggestBatch(c *gin.Context) {
	var body quantityBatchBody
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

	req := service.QuantityRequest{Margin: body.Margin}
	if body.TargetDate != "" {
		target, err := parseDate(body.TargetDate)
		if err != nil {
			badRequest(c, "invalid target_date")
			return
		}
		req.TargetDate = &target
	}

	batch, err := h.quantities.SuggestBatch(c.Request.Context(), body.ProductIDs, req)
	if err != nil {
		respondError(c, err, "failed to suggest quantities")
		return
	}

	resp := gin.H{
		"suggestions":    batch.Entries,
		"total_quantity": batch.TotalQuantity,
		"total_cost":     batch.TotalCost,
		"succeeded":      batch.Succeeded,
		"failed":         batch.Failed,
	}
	if body.Export {
		key, err := h.exporter.ExportQuantities(c.Request.Context(), batch)
		if err != nil {
			respondError(c, err, "failed to export quantities")
			return
		}
		resp["export_key"] = key
	}
	c.JSON(http.StatusOK, resp)
}
