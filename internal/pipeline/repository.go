package pipeline

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const runColumns = `id, pipeline_name, date, status, total_items, processed_items,
	failed_items, started_at, completed_at, error_message`

// Repository handles database operations for pipeline tracking
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new pipeline repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateRun creates a new pipeline run record
func (r *Repository) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO pipeline_runs (
			pipeline_name, date, status, total_items,
			processed_items, failed_items, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.db.QueryRowxContext(
		ctx, query,
		run.PipelineName, run.Date, run.Status, run.TotalItems,
		run.ProcessedItems, run.FailedItems, run.StartedAt,
	).Scan(&run.ID)
	return errors.Wrap(err, "create pipeline run")
}

// UpdateRun updates an existing pipeline run
func (r *Repository) UpdateRun(ctx context.Context, run *Run) error {
	query := `
		UPDATE pipeline_runs
		SET status = $1, total_items = $2, processed_items = $3, failed_items = $4,
		    started_at = $5, completed_at = $6, error_message = $7
		WHERE id = $8
	`
	_, err := r.db.ExecContext(
		ctx, query,
		run.Status, run.TotalItems, run.ProcessedItems, run.FailedItems,
		run.StartedAt, run.CompletedAt, run.ErrorMessage, run.ID,
	)
	return errors.Wrapf(err, "update pipeline run %d", run.ID)
}

// GetRunByDate retrieves the run of a pipeline for a specific date
func (r *Repository) GetRunByDate(ctx context.Context, pipelineName string, date time.Time) (*Run, error) {
	var run Run
	err := r.db.GetContext(ctx, &run,
		`SELECT `+runColumns+` FROM pipeline_runs WHERE pipeline_name = $1 AND date = $2`,
		pipelineName, date)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get pipeline run")
	}
	return &run, nil
}

// ListRuns returns the latest runs first
func (r *Repository) ListRuns(ctx context.Context, pipelineName string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 30
	}
	var runs []Run
	err := r.db.SelectContext(ctx, &runs,
		`SELECT `+runColumns+` FROM pipeline_runs WHERE pipeline_name = $1 ORDER BY date DESC LIMIT $2`,
		pipelineName, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list pipeline runs")
	}
	return runs, nil
}

// MemoryRepository keeps runs in process, for the memory store driver and tests
type MemoryRepository struct {
	mu     sync.Mutex
	runs   map[int64]Run
	nextID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{runs: make(map[int64]Run)}
}

func (m *MemoryRepository) CreateRun(ctx context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.runs {
		if existing.PipelineName == run.PipelineName && existing.Date.Equal(run.Date) {
			return errors.Errorf("pipeline run %s for %s already exists", run.PipelineName, run.Date.Format("2006-01-02"))
		}
	}
	m.nextID++
	run.ID = m.nextID
	m.runs[run.ID] = *run
	return nil
}

func (m *MemoryRepository) UpdateRun(ctx context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return errors.Errorf("pipeline run %d not found", run.ID)
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *MemoryRepository) GetRunByDate(ctx context.Context, pipelineName string, date time.Time) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range m.runs {
		if run.PipelineName == pipelineName && run.Date.Equal(date) {
			r := run
			return &r, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) ListRuns(ctx context.Context, pipelineName string, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Run
	for _, run := range m.runs {
		if run.PipelineName == pipelineName {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	_ RunRepository = (*Repository)(nil)
	_ RunRepository = (*MemoryRepository)(nil)
)
