package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Job statuses.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// ErrJobNotFound is returned when a job ID does not exist.
var ErrJobNotFound = errors.New("job not found")

// Job is a stored projection job. Payload holds the JSON-encoded engine
// inputs; Result holds the JSON-encoded output once the job is done.
type Job struct {
	ID        int64
	Kind      string
	Payload   []byte
	Status    string
	Result    []byte
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateJob stores a new pending job and returns its ID.
func (r *SQLiteRepository) CreateJob(ctx context.Context, kind string, payload []byte) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (kind, payload, status) VALUES (?, ?, ?)`,
		kind, string(payload), StatusPending)
	if err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("job insert id: %w", err)
	}

	slog.InfoContext(ctx, "Job created",
		"job_id", id,
		"kind", kind,
		"payload_bytes", len(payload))

	return id, nil
}

// GetJob retrieves a job by ID.
func (r *SQLiteRepository) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, kind, payload, status, COALESCE(result, ''), COALESCE(error, ''), created_at, updated_at
		 FROM jobs WHERE id = ?`, id)

	var j Job
	var payload, result string
	err := row.Scan(&j.ID, &j.Kind, &payload, &j.Status, &result, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", id, ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}

	j.Payload = []byte(payload)
	if result != "" {
		j.Result = []byte(result)
	}
	return &j, nil
}

// MarkRunning transitions a job to the running status.
func (r *SQLiteRepository) MarkRunning(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, StatusRunning, nil, "")
}

// MarkDone records the result and transitions the job to done.
func (r *SQLiteRepository) MarkDone(ctx context.Context, id int64, result []byte) error {
	if err := r.setStatus(ctx, id, StatusDone, result, ""); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Job completed", "job_id", id, "result_bytes", len(result))
	return nil
}

// MarkFailed records the failure message and transitions the job to failed.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64, jobErr string) error {
	if err := r.setStatus(ctx, id, StatusFailed, nil, jobErr); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Job failed", "job_id", id, "error", jobErr)
	return nil
}

func (r *SQLiteRepository) setStatus(ctx context.Context, id int64, status string, result []byte, jobErr string) error {
	var resultVal any
	if result != nil {
		resultVal = string(result)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, result = ?, error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, resultVal, jobErr, id)
	if err != nil {
		return fmt.Errorf("update job %d status: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %d rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d: %w", id, ErrJobNotFound)
	}
	return nil
}

// ListPendingJobs returns pending jobs in creation order, up to limit.
// Used at worker startup to recover jobs whose queue message was lost.
func (r *SQLiteRepository) ListPendingJobs(ctx context.Context, limit int) ([]Job, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, payload, status, COALESCE(result, ''), COALESCE(error, ''), created_at, updated_at
		 FROM jobs WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT ?`,
		StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var payload, result string
		if err := rows.Scan(&j.ID, &j.Kind, &payload, &j.Status, &result, &j.Error, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pending job: %w", err)
		}
		j.Payload = []byte(payload)
		if result != "" {
			j.Result = []byte(result)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending jobs: %w", err)
	}

	return jobs, nil
}
