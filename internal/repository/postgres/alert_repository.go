package postgres

import (
	"context"
	"fmt"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/jmoiron/sqlx"
)

type alertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) repository.AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) SaveAlerts(ctx context.Context, alerts []domain.StoredAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	query := `
		INSERT INTO computed_alerts (product_id, status, action, financial_impact, details, computed_at)
		VALUES (:product_id, :status, :action, :financial_impact, :details, :computed_at)
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, a := range alerts {
			if _, err := tx.NamedExecContext(ctx, query, a); err != nil {
				return fmt.Errorf("failed to save alert of product %d: %w", a.ProductID, err)
			}
		}
		return nil
	})
}

func (r *alertRepository) ListAlertHistory(ctx context.Context, productID *int64, limit int) ([]domain.StoredAlert, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, product_id, status, action, financial_impact, details, computed_at
		FROM computed_alerts
		WHERE 1=1`

	var args []interface{}
	if productID != nil {
		args = append(args, *productID)
		query += fmt.Sprintf(" AND product_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY computed_at DESC, id DESC LIMIT $%d", len(args))

	var out []domain.StoredAlert
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("error listing alert history: %w", err)
	}
	return out, nil
}
