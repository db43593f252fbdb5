package handlers

import (
	"net/http"

	"github.com/adhamcharaf/Optiflow-VF/internal/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "product_id and a positive quantity_ordered are required")
		return
	}

	order, err := h.orders.RecordOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to record order")
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrders lists the orders of the last days (30 by default)
func (h *OrderHandler) GetOrders(c *gin.Context) {
	productID, ok := optionalInt64(c, "product_id")
	if !ok {
		return
	}
	days := parsePositiveIntWithDefault(c.Query("days"), 30)

	orders, err := h.orders.History(c.Request.Context(), productID, days)
	if err != nil {
		respondError(c, err, "failed to fetch orders")
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetStatistics(c *gin.Context) {
	stats, err := h.orders.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to fetch order statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}
