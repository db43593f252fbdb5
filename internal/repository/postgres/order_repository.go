package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"golang.org/x/sync/errgroup"
)

type orderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrder(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (
			product_id, order_date, quantity_ordered, suggested_quantity, alert_type,
			stock_at_order, unit_price, lead_time_days, expected_delivery
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, query,
		o.ProductID, o.OrderDate, o.QuantityOrdered, o.SuggestedQuantity, o.AlertTier,
		o.StockAtOrder, o.UnitPrice, o.LeadTimeDays, o.ExpectedDelivery,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) ListOrders(ctx context.Context, productID *int64, since time.Time) ([]domain.Order, error) {
	query := `
		SELECT o.id, o.product_id, COALESCE(p.name, '') AS product_name, o.order_date,
		       o.quantity_ordered, o.suggested_quantity, o.alert_type, o.stock_at_order,
		       o.unit_price, o.lead_time_days, o.expected_delivery
		FROM orders o
		LEFT JOIN products p ON p.id = o.product_id
		WHERE o.order_date >= $1`

	args := []interface{}{since}
	if productID != nil {
		args = append(args, *productID)
		query += fmt.Sprintf(" AND o.product_id = $%d", len(args))
	}
	query += " ORDER BY o.order_date DESC"

	var out []domain.Order
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("error listing orders: %w", err)
	}
	return out, nil
}

func (r *orderRepository) OrderStatistics(ctx context.Context, recentSince time.Time) (*domain.OrderStatistics, error) {
	stats := &domain.OrderStatistics{OrdersByTier: make(map[string]int)}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		row := r.db.QueryRowxContext(ctx, `
			SELECT COUNT(*), COALESCE(SUM(quantity_ordered * unit_price), 0),
			       COUNT(*) FILTER (WHERE order_date >= $1)
			FROM orders
		`, recentSince)
		if err := row.Scan(&stats.TotalOrders, &stats.TotalValue, &stats.RecentOrders7d); err != nil {
			return fmt.Errorf("error getting order totals: %w", err)
		}
		return nil
	})

	var byTier []struct {
		Tier  string `db:"alert_type"`
		Count int    `db:"count"`
	}
	g.Go(func() error {
		if err := r.db.SelectContext(ctx, &byTier, `
			SELECT alert_type, COUNT(*) AS count FROM orders GROUP BY alert_type
		`); err != nil {
			return fmt.Errorf("error getting orders by alert type: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := r.db.SelectContext(ctx, &stats.TopProducts, `
			SELECT o.product_id, COALESCE(p.name, '') AS name,
			       COUNT(*) AS order_count, SUM(o.quantity_ordered) AS total_quantity
			FROM orders o
			LEFT JOIN products p ON p.id = o.product_id
			GROUP BY o.product_id, p.name
			ORDER BY order_count DESC, o.product_id
			LIMIT 5
		`); err != nil {
			return fmt.Errorf("error getting top ordered products: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range byTier {
		stats.OrdersByTier[t.Tier] = t.Count
	}
	return stats, nil
}
