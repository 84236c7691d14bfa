package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/jmoiron/sqlx"
)

const importJobColumns = `id, playlist_url, status, progress, total_artists, processed_artists,
	new_artists, updated_artists, new_releases, skipped_releases, error_count, errors,
	created_by, error_message, created_at, started_at, completed_at`

// ImportJobRepository persists [models.ImportJob] rows and their state transitions.
type ImportJobRepository struct {
	db *sqlx.DB
}

// NewImportJobRepository creates a new ImportJobRepository with the given database connection
func NewImportJobRepository(db *sqlx.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

// Create inserts job as pending with a generated ID.
func (r *ImportJobRepository) Create(ctx context.Context, job *models.ImportJob) error {
	job.ID = shared.GenerateID()
	job.Status = models.JobPending
	job.CreatedAt = now()
	if job.Errors == nil {
		job.Errors = models.StringSlice{}
	}

	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO import_jobs (` + importJobColumns + `)
		VALUES (:id, :playlist_url, :status, :progress, :total_artists, :processed_artists,
			:new_artists, :updated_artists, :new_releases, :skipped_releases, :error_count, :errors,
			:created_by, :error_message, :created_at, :started_at, :completed_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("failed to insert import job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID.
func (r *ImportJobRepository) Get(ctx context.Context, id string) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := r.db.GetContext(ctx, &job, `SELECT `+importJobColumns+` FROM import_jobs WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	return &job, nil
}

// List returns jobs newest first. A non-positive limit returns every job.
func (r *ImportJobRepository) List(ctx context.Context, limit int) ([]*models.ImportJob, error) {
	query := `SELECT ` + importJobColumns + ` FROM import_jobs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var jobs []*models.ImportJob
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query import jobs: %w", err)
	}
	return jobs, nil
}

// MarkProcessing moves a pending job to processing and records its start time.
func (r *ImportJobRepository) MarkProcessing(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE import_jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`
	return r.transition(ctx, query, id, models.JobProcessing, at.UTC(), id, models.JobPending)
}

// UpdateProgress stores running counters for a processing job.
func (r *ImportJobRepository) UpdateProgress(ctx context.Context, id string, processed, total int, stats *models.ImportStats) error {
	if stats == nil {
		stats = models.NewImportStats()
	}

	query := `
		UPDATE import_jobs
		SET progress = ?, total_artists = ?, processed_artists = ?, new_artists = ?, updated_artists = ?,
			new_releases = ?, skipped_releases = ?, error_count = ?
		WHERE id = ? AND status = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		models.Percent(processed, total), total, processed,
		stats.NewArtists, stats.UpdatedArtists, stats.NewReleases, stats.SkippedReleases, len(stats.Errors),
		id, models.JobProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to update import job progress: %w", err)
	}
	return nil
}

// MarkCompleted stores final counters and moves the job to completed.
func (r *ImportJobRepository) MarkCompleted(ctx context.Context, id string, stats *models.ImportStats, at time.Time) error {
	if stats == nil {
		stats = models.NewImportStats()
	}

	query := `
		UPDATE import_jobs
		SET status = ?, progress = 100, processed_artists = total_artists, new_artists = ?, updated_artists = ?,
			new_releases = ?, skipped_releases = ?, error_count = ?, errors = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`
	return r.transition(ctx, query, id,
		models.JobCompleted, stats.NewArtists, stats.UpdatedArtists, stats.NewReleases, stats.SkippedReleases,
		len(stats.Errors), models.StringSlice(stats.Errors), at.UTC(),
		id, models.JobProcessing,
	)
}

// MarkFailed moves a non-terminal job to failed with message.
func (r *ImportJobRepository) MarkFailed(ctx context.Context, id, message string, at time.Time) error {
	query := `
		UPDATE import_jobs
		SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)
	`
	return r.transition(ctx, query, id, models.JobFailed, message, at.UTC(), id, models.JobPending, models.JobProcessing)
}

// FailInterrupted marks every pending or processing job as failed. Used at startup, when no
// job from a previous process can still be running.
func (r *ImportJobRepository) FailInterrupted(ctx context.Context, message string) (int64, error) {
	query := `UPDATE import_jobs SET status = ?, error_message = ?, completed_at = ? WHERE status IN (?, ?)`
	result, err := r.db.ExecContext(ctx, query, models.JobFailed, message, now(), models.JobPending, models.JobProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to fail interrupted jobs: %w", err)
	}
	return result.RowsAffected()
}

// transition runs a guarded status update and reports a missing row or illegal transition.
func (r *ImportJobRepository) transition(ctx context.Context, query, id string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update import job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s not found or not in a valid state", shared.ErrJobNotFound, id)
	}
	return nil
}
