package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/jmoiron/sqlx"
)

type salesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) repository.SalesRepository {
	return &salesRepository{db: db}
}

func (r *salesRepository) GetDailySales(ctx context.Context, productID int64, dr domain.DateRange) ([]domain.DailySale, error) {
	where, args := rangeClause("order_date", dr, []interface{}{productID})
	query := `
		SELECT product_id, order_date, quantity
		FROM daily_sales
		WHERE product_id = $1` + where + `
		ORDER BY order_date
	`

	var sales []domain.DailySale
	if err := r.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, fmt.Errorf("error getting sales of product %d: %w", productID, err)
	}
	return sales, nil
}

func (r *salesRepository) GetAverageDailySales(ctx context.Context, productID int64, dr domain.DateRange) (float64, bool, error) {
	where, args := rangeClause("order_date", dr, []interface{}{productID})
	query := `
		SELECT AVG(quantity)
		FROM daily_sales
		WHERE product_id = $1` + where

	var avg sql.NullFloat64
	if err := r.db.GetContext(ctx, &avg, query, args...); err != nil {
		return 0, false, fmt.Errorf("error getting average sales of product %d: %w", productID, err)
	}
	return avg.Float64, avg.Valid, nil
}

func (r *salesRepository) UpsertDailySales(ctx context.Context, sales []domain.DailySale) error {
	if len(sales) == 0 {
		return nil
	}

	query := `
		INSERT INTO daily_sales (product_id, order_date, quantity)
		VALUES (:product_id, :order_date, :quantity)
		ON CONFLICT (product_id, order_date)
		DO UPDATE SET quantity = EXCLUDED.quantity
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, s := range sales {
			if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
				return fmt.Errorf("failed to upsert sales of product %d: %w", s.ProductID, err)
			}
		}
		return nil
	})
}
