package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/jmoiron/sqlx"
)

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, unit_price, lead_time_days, category, supplier, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var p domain.Product
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("error getting product %d: %w", id, err)
	}
	return &p, nil
}

func (r *productRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, name, unit_price, lead_time_days, category, supplier, created_at, updated_at
		FROM products
		ORDER BY id
	`

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("error listing products: %w", err)
	}
	return products, nil
}

func (r *productRepository) GetCurrentStock(ctx context.Context, productID int64) (int, error) {
	query := `
		SELECT quantity_on_hand
		FROM stock_levels
		WHERE product_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	var qty int
	if err := r.db.GetContext(ctx, &qty, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("error getting stock of product %d: %w", productID, err)
	}
	return qty, nil
}

func (r *productRepository) RecordStock(ctx context.Context, levels []domain.StockLevel) error {
	if len(levels) == 0 {
		return nil
	}

	query := `
		INSERT INTO stock_levels (product_id, quantity_on_hand, recorded_at)
		VALUES (:product_id, :quantity_on_hand, :recorded_at)
		ON CONFLICT (product_id, recorded_at)
		DO UPDATE SET quantity_on_hand = EXCLUDED.quantity_on_hand
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, l := range levels {
			if _, err := tx.NamedExecContext(ctx, query, l); err != nil {
				return fmt.Errorf("failed to record stock of product %d: %w", l.ProductID, err)
			}
		}
		return nil
	})
}
