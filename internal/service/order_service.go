package service

import (
	"context"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/replenishment"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const recentOrdersDays = 7

// OrderRequest is a purchase order placed from an alert
type OrderRequest struct {
	ProductID         int64    `json:"product_id" binding:"required"`
	QuantityOrdered   int      `json:"quantity_ordered" binding:"required,min=1"`
	SuggestedQuantity int      `json:"suggested_quantity"`
	AlertTier         string   `json:"alert_type"`
	StockAtOrder      *int     `json:"stock_at_order"`
	UnitPrice         *float64 `json:"unit_price"`
	LeadTimeDays      *int     `json:"lead_time_days"`
}

type OrderService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	now      func() time.Time
}

func NewOrderService(store repository.Store, now func() time.Time) *OrderService {
	if now == nil {
		now = time.Now
	}
	return &OrderService{products: store.Products, orders: store.Orders, now: now}
}

// RecordOrder fills the missing fields from the product and its current stock.
// The expected delivery is the order date plus the lead time.
func (s *OrderService) RecordOrder(ctx context.Context, req OrderRequest) (*domain.Order, error) {
	if req.QuantityOrdered <= 0 {
		return nil, errors.Wrapf(domain.ErrInvalidRange, "quantity %d", req.QuantityOrdered)
	}
	product, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	tier := req.AlertTier
	if parsed, ok := domain.ParseAlertTier(tier); ok {
		tier = string(parsed)
	}

	order := &domain.Order{
		ProductID:         product.ID,
		ProductName:       product.Name,
		OrderDate:         s.now(),
		QuantityOrdered:   req.QuantityOrdered,
		SuggestedQuantity: req.SuggestedQuantity,
		AlertTier:         tier,
		UnitPrice:         product.UnitPrice,
		LeadTimeDays:      product.LeadTimeDays,
	}
	if req.UnitPrice != nil {
		order.UnitPrice = *req.UnitPrice
	}
	if order.UnitPrice <= 0 {
		order.UnitPrice = replenishment.DefaultUnitPrice
	}
	if req.LeadTimeDays != nil {
		order.LeadTimeDays = *req.LeadTimeDays
	}
	if order.LeadTimeDays <= 0 {
		order.LeadTimeDays = replenishment.DefaultLeadTimeDays
	}
	if req.StockAtOrder != nil {
		order.StockAtOrder = *req.StockAtOrder
	} else if order.StockAtOrder, err = s.products.GetCurrentStock(ctx, product.ID); err != nil {
		return nil, errors.Wrap(domain.ErrPersistence, err.Error())
	}
	order.ExpectedDelivery = order.OrderDate.AddDate(0, 0, order.LeadTimeDays)

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, errors.Wrapf(domain.ErrPersistence, "create order: %v", err)
	}

	log.Info().
		Int64("order_id", order.ID).
		Int64("product_id", order.ProductID).
		Int("quantity", order.QuantityOrdered).
		Str("alert_type", order.AlertTier).
		Msg("Order recorded")
	return order, nil
}

// History lists the orders of the last days, newest first. A nil product lists every product.
func (s *OrderService) History(ctx context.Context, productID *int64, days int) ([]domain.Order, error) {
	if days <= 0 {
		days = 30
	}
	orders, err := s.orders.ListOrders(ctx, productID, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, errors.Wrap(domain.ErrPersistence, err.Error())
	}
	return orders, nil
}

func (s *OrderService) Statistics(ctx context.Context) (*domain.OrderStatistics, error) {
	stats, err := s.orders.OrderStatistics(ctx, s.now().AddDate(0, 0, -recentOrdersDays))
	if err != nil {
		return nil, errors.Wrap(domain.ErrPersistence, err.Error())
	}
	return stats, nil
}
