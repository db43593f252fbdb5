package handlers

import (
	"net/http"
	"strconv"

	"github.com/adhamcharaf/Optiflow-VF/internal/service"
	"github.com/gin-gonic/gin"
)

type AccuracyHandler struct {
	performance *service.PerformanceService
}

func NewAccuracyHandler(performance *service.PerformanceService) *AccuracyHandler {
	return &AccuracyHandler{performance: performance}
}

// GetPerformance reports the accuracy of a product over the last days
func (h *AccuracyHandler) GetPerformance(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	days := 0
	if raw := c.Query("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			badRequest(c, "invalid days")
			return
		}
		days = v
	}

	report, err := h.performance.ProductPerformance(c.Request.Context(), productID, days)
	if err != nil {
		respondError(c, err, "failed to compute performance")
		return
	}
	c.JSON(http.StatusOK, report)
}
