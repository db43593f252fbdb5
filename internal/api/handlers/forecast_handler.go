package handlers

import (
	"net/http"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/service"
	"github.com/gin-gonic/gin"
)

type ForecastHandler struct {
	forecaster service.Forecaster
}

func NewForecastHandler(forecaster service.Forecaster) *ForecastHandler {
	return &ForecastHandler{forecaster: forecaster}
}

type forecastBody struct {
	StartDate string                 `json:"start_date" binding:"required"`
	EndDate   string                 `json:"end_date" binding:"required"`
	Events    []domain.ForecastEvent `json:"events"`
}

// Predict returns daily predictions. Horizons longer than 30 days are capped.
func (h *ForecastHandler) Predict(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	var body forecastBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "start_date and end_date are required")
		return
	}
	r, err := dateRangeBody{StartDate: body.StartDate, EndDate: body.EndDate}.dateRange()
	if err != nil {
		respondError(c, err, "invalid period")
		return
	}

	res, err := h.forecaster.Predict(c.Request.Context(), productID, r.Start, r.End, body.Events)
	if err != nil {
		respondError(c, err, "failed to forecast")
		return
	}
	c.JSON(http.StatusOK, res)
}
