package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/adhamcharaf/Optiflow-VF/internal/repository"
	"github.com/jmoiron/sqlx"
)

const anomalyColumns = `
	a.id, a.product_id, COALESCE(p.name, '') AS product_name, a.detection_date,
	a.actual_value, a.predicted_value, a.deviation_percent, a.anomaly_type,
	a.severity, a.status, a.created_at, a.updated_at
`

type anomalyRepository struct {
	db *DB
}

func NewAnomalyRepository(db *DB) repository.AnomalyRepository {
	return &anomalyRepository{db: db}
}

func (r *anomalyRepository) GetAnomaly(ctx context.Context, id int64) (*domain.Anomaly, error) {
	query := `SELECT ` + anomalyColumns + `
		FROM anomalies a
		LEFT JOIN products p ON p.id = a.product_id
		WHERE a.id = $1
	`
	return r.getOne(ctx, query, id)
}

func (r *anomalyRepository) FindAnomaly(ctx context.Context, productID int64, date time.Time) (*domain.Anomaly, error) {
	query := `SELECT ` + anomalyColumns + `
		FROM anomalies a
		LEFT JOIN products p ON p.id = a.product_id
		WHERE a.product_id = $1 AND a.detection_date = $2
	`
	return r.getOne(ctx, query, productID, date)
}

func (r *anomalyRepository) getOne(ctx context.Context, query string, args ...interface{}) (*domain.Anomaly, error) {
	var a domain.Anomaly
	if err := r.db.GetContext(ctx, &a, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("error getting anomaly: %w", err)
	}
	return &a, nil
}

func (r *anomalyRepository) CreateAnomaly(ctx context.Context, a *domain.Anomaly) error {
	query := `
		INSERT INTO anomalies (
			product_id, detection_date, actual_value, predicted_value,
			deviation_percent, anomaly_type, severity, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, detection_date)
		DO UPDATE SET
			actual_value = EXCLUDED.actual_value,
			predicted_value = EXCLUDED.predicted_value,
			deviation_percent = EXCLUDED.deviation_percent,
			anomaly_type = EXCLUDED.anomaly_type,
			severity = EXCLUDED.severity,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		a.ProductID, a.DetectionDate, a.ActualValue, a.PredictedValue,
		a.DeviationPercent, a.Type, a.Severity, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create anomaly: %w", err)
	}
	return nil
}

func (r *anomalyRepository) UpdateAnomaly(ctx context.Context, a *domain.Anomaly) error {
	query := `
		UPDATE anomalies
		SET actual_value = $1, predicted_value = $2, deviation_percent = $3,
		    anomaly_type = $4, severity = $5, status = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		a.ActualValue, a.PredictedValue, a.DeviationPercent,
		a.Type, a.Severity, a.Status, a.ID,
	).Scan(&a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update anomaly %d: %w", a.ID, err)
	}
	return nil
}

func (r *anomalyRepository) UpdateAnomalyStatus(ctx context.Context, id int64, status domain.AnomalyStatus, excludeFromTraining bool) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE anomalies SET status = $1, updated_at = NOW() WHERE id = $2
		`, status, id)
		if err != nil {
			return fmt.Errorf("failed to update anomaly status: %w", err)
		}
		if err := expectRows(res, "anomaly status"); err != nil {
			return err
		}

		if !excludeFromTraining {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE prediction_feedback SET included_in_training = FALSE WHERE anomaly_id = $1
		`, id); err != nil {
			return fmt.Errorf("failed to exclude feedback of anomaly %d: %w", id, err)
		}
		return nil
	})
}

// expectRows maps an update that touched nothing to domain.ErrNotFound
func expectRows(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected by %s update: %w", what, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *anomalyRepository) ListAnomalies(ctx context.Context, filter domain.AnomalyFilter) ([]domain.Anomaly, error) {
	query := `SELECT ` + anomalyColumns + `
		FROM anomalies a
		LEFT JOIN products p ON p.id = a.product_id
		WHERE 1=1`

	var args []interface{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		query += fmt.Sprintf(" AND a.product_id = $%d", len(args))
	}
	where, args := rangeClause("a.detection_date", filter.Range, args)
	query += where + " ORDER BY a.deviation_percent DESC, a.id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var out []domain.Anomaly
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("error listing anomalies: %w", err)
	}
	return out, nil
}

func (r *anomalyRepository) CountAnomalies(ctx context.Context, productIDs []int64, dr domain.DateRange) (int, error) {
	where, args := productClause("product_id", productIDs, nil)
	rangeWhere, args := rangeClause("detection_date", dr, args)

	var n int
	query := `SELECT COUNT(*) FROM anomalies WHERE 1=1` + where + rangeWhere
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("error counting anomalies: %w", err)
	}
	return n, nil
}

func (r *anomalyRepository) UpsertFeedback(ctx context.Context, fb domain.PredictionFeedback) error {
	query := `
		INSERT INTO prediction_feedback (
			product_id, feedback_date, predicted_value, actual_value,
			mape, anomaly_id, included_in_training
		) VALUES (:product_id, :feedback_date, :predicted_value, :actual_value,
			:mape, :anomaly_id, :included_in_training)
		ON CONFLICT (product_id, feedback_date)
		DO UPDATE SET
			predicted_value = EXCLUDED.predicted_value,
			actual_value = EXCLUDED.actual_value,
			mape = EXCLUDED.mape,
			anomaly_id = EXCLUDED.anomaly_id,
			included_in_training = EXCLUDED.included_in_training
	`

	if _, err := r.db.NamedExecContext(ctx, query, fb); err != nil {
		return fmt.Errorf("failed to upsert feedback of product %d: %w", fb.ProductID, err)
	}
	return nil
}

func (r *anomalyRepository) ListFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]domain.FeedbackWithStatus, error) {
	query := `
		SELECT pf.id, pf.product_id, pf.feedback_date, pf.predicted_value, pf.actual_value,
		       pf.mape, pf.anomaly_id, pf.included_in_training, a.status AS anomaly_status
		FROM prediction_feedback pf
		LEFT JOIN anomalies a
			ON a.product_id = pf.product_id AND a.detection_date = pf.feedback_date
		WHERE 1=1`

	where, args := productClause("pf.product_id", filter.ProductIDs, nil)
	rangeWhere, args := rangeClause("pf.feedback_date", filter.Range, args)
	query += where + rangeWhere
	if filter.TrainingOnly {
		query += " AND pf.included_in_training"
	}
	query += " ORDER BY pf.feedback_date, pf.product_id"

	var out []domain.FeedbackWithStatus
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("error listing feedback: %w", err)
	}
	return out, nil
}
