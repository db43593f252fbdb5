package handlers

import (
	"net/http"
	"strconv"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/service"
	"github.com/gin-gonic/gin"
)

type AnomalyHandler struct {
	anomalies *service.AnomalyService
}

func NewAnomalyHandler(anomalies *service.AnomalyService) *AnomalyHandler {
	return &AnomalyHandler{anomalies: anomalies}
}

type statusBody struct {
	Status domain.AnomalyStatus `json:"status" binding:"required"`
}

type confirmBody struct {
	Token string `json:"token" binding:"required"`
}

// ListAnomalies is the review queue, filtered by status, product and detection date
func (h *AnomalyHandler) ListAnomalies(c *gin.Context) {
	var filter domain.AnomalyFilter
	if raw := c.Query("status"); raw != "" {
		status := domain.AnomalyStatus(raw)
		if !status.Valid() {
			badRequest(c, "invalid status")
			return
		}
		filter.Status = &status
	}
	productID, ok := optionalInt64(c, "product_id")
	if !ok {
		return
	}
	filter.ProductID = productID
	if filter.Range, ok = queryRange(c); !ok {
		return
	}
	filter.Limit = parsePositiveIntWithDefault(c.Query("limit"), 100)

	anomalies, err := h.anomalies.ListAnomalies(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to list anomalies")
		return
	}
	c.JSON(http.StatusOK, anomalies)
}

// Detect runs the incremental detection, which never touches reviewed anomalies
func (h *AnomalyHandler) Detect(c *gin.Context) {
	var body dateRangeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "start_date and end_date are required")
		return
	}
	r, err := body.dateRange()
	if err != nil {
		respondError(c, err, "invalid period")
		return
	}

	res, err := h.anomalies.DetectIncremental(c.Request.Context(), r, body.ProductIDs)
	if err != nil {
		respondError(c, err, "failed to detect anomalies")
		return
	}
	c.JSON(http.StatusOK, res)
}

// PrepareRedetection returns the confirmation token of a full re-detection
func (h *AnomalyHandler) PrepareRedetection(c *gin.Context) {
	var body dateRangeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "start_date and end_date are required")
		return
	}
	r, err := body.dateRange()
	if err != nil {
		respondError(c, err, "invalid period")
		return
	}

	plan, err := h.anomalies.PrepareFullRedetection(c.Request.Context(), r, body.ProductIDs)
	if err != nil {
		respondError(c, err, "failed to prepare re-detection")
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *AnomalyHandler) ConfirmRedetection(c *gin.Context) {
	var body confirmBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "token is required")
		return
	}

	res, err := h.anomalies.ConfirmFullRedetection(c.Request.Context(), body.Token)
	if err != nil {
		respondError(c, err, "re-detection not confirmed")
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateStatus records a review decision
func (h *AnomalyHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid anomaly id")
		return
	}
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "status is required")
		return
	}

	if _, err := h.anomalies.SetStatus(c.Request.Context(), id, body.Status); err != nil {
		respondError(c, err, "failed to update anomaly status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "status": body.Status})
}

// GetCleanMAPE reports the MAPE without ignored anomalies. track=true stores it as the reference.
func (h *AnomalyHandler) GetCleanMAPE(c *gin.Context) {
	r, ok := queryRange(c)
	if !ok {
		return
	}
	ids, err := parseProductIDs(c.Query("product_ids"))
	if err != nil {
		respondError(c, err, "invalid product_ids")
		return
	}

	report := h.anomalies.CleanMAPE
	if c.Query("track") == "true" {
		report = h.anomalies.TrackImprovement
	}
	res, err := report(c.Request.Context(), r, ids)
	if err != nil {
		respondError(c, err, "failed to compute clean MAPE")
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetTrainingFeedback lists the feedback rows allowed into training
func (h *AnomalyHandler) GetTrainingFeedback(c *gin.Context) {
	r, ok := queryRange(c)
	if !ok {
		return
	}
	ids, err := parseProductIDs(c.Query("product_ids"))
	if err != nil {
		respondError(c, err, "invalid product_ids")
		return
	}

	rows, err := h.anomalies.TrainingFeedback(c.Request.Context(), r, ids)
	if err != nil {
		respondError(c, err, "failed to list training feedback")
		return
	}
	c.JSON(http.StatusOK, rows)
}
