package pipeline

import (
	"context"
	"time"
)

// NightlyPipeline is the name under which nightly runs are tracked
const NightlyPipeline = "nightly"

// RunStatus represents the current state of a pipeline run
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// Run tracks a single execution of a pipeline for a specific date
type Run struct {
	ID             int64      `json:"id" db:"id"`
	PipelineName   string     `json:"pipeline_name" db:"pipeline_name"`
	Date           time.Time  `json:"date" db:"date"`
	Status         RunStatus  `json:"status" db:"status"`
	TotalItems     int        `json:"total_items" db:"total_items"`
	ProcessedItems int        `json:"processed_items" db:"processed_items"`
	FailedItems    int        `json:"failed_items" db:"failed_items"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage   *string    `json:"error_message,omitempty" db:"error_message"`
}

// RunRepository persists pipeline runs, one per pipeline and date
type RunRepository interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	// GetRunByDate returns nil without error when no run exists
	GetRunByDate(ctx context.Context, pipelineName string, date time.Time) (*Run, error)
	ListRuns(ctx context.Context, pipelineName string, limit int) ([]Run, error)
}

// Config holds the knobs of the nightly run
type Config struct {
	WorkerCount   int           // concurrent forecast refreshes
	RetryAttempts int           // attempts per product forecast
	RetryBackoff  time.Duration // wait between attempts
	HorizonDays   int
	LookbackDays  int  // days of realized sales checked for anomalies
	Export        bool // write alert and quantity CSVs when an exporter is set
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WorkerCount:   4,
		RetryAttempts: 3,
		RetryBackoff:  2 * time.Second,
		HorizonDays:   30,
		LookbackDays:  7,
		Export:        true,
	}
}
