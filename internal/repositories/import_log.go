package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/jmoiron/sqlx"
)

const importLogColumns = `id, status, playlists, total_playlists, new_releases, skipped_releases,
	error_count, error_message, started_at, completed_at`

// ImportLogRepository persists [models.ImportLog] rows: one insert at start, one update at completion.
type ImportLogRepository struct {
	db *sqlx.DB
}

// NewImportLogRepository creates a new ImportLogRepository with the given database connection
func NewImportLogRepository(db *sqlx.DB) *ImportLogRepository {
	return &ImportLogRepository{db: db}
}

// Start inserts a running log row with a generated ID.
func (r *ImportLogRepository) Start(ctx context.Context, log *models.ImportLog) error {
	log.ID = shared.GenerateID()
	log.Status = models.LogRunning
	log.StartedAt = now()
	log.TotalPlaylists = len(log.Playlists)

	query := `
		INSERT INTO import_logs (` + importLogColumns + `)
		VALUES (:id, :status, :playlists, :total_playlists, :new_releases, :skipped_releases,
			:error_count, :error_message, :started_at, :completed_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("failed to insert import log: %w", err)
	}
	return nil
}

// Finish writes the terminal status, per-playlist outcomes and counters.
func (r *ImportLogRepository) Finish(ctx context.Context, log *models.ImportLog) error {
	if err := log.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if log.Status == models.LogRunning {
		return fmt.Errorf("%w: import log must finish in a terminal status", shared.ErrInvalidInput)
	}

	ts := now()
	log.CompletedAt = &ts

	query := `
		UPDATE import_logs
		SET status = :status, playlists = :playlists, total_playlists = :total_playlists,
			new_releases = :new_releases, skipped_releases = :skipped_releases,
			error_count = :error_count, error_message = :error_message, completed_at = :completed_at
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, log)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: import log %s", shared.ErrNotFound, log.ID)
	}
	return nil
}

// Get retrieves a log by ID.
func (r *ImportLogRepository) Get(ctx context.Context, id string) (*models.ImportLog, error) {
	var log models.ImportLog
	if err := r.db.GetContext(ctx, &log, `SELECT `+importLogColumns+` FROM import_logs WHERE id = ?`, id); err != nil {
		return nil, notFound(err, "import log %s", id)
	}
	return &log, nil
}

// List returns logs newest first. A non-positive limit returns every log.
func (r *ImportLogRepository) List(ctx context.Context, limit int) ([]*models.ImportLog, error) {
	query := `SELECT ` + importLogColumns + ` FROM import_logs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var logs []*models.ImportLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query import logs: %w", err)
	}
	return logs, nil
}
