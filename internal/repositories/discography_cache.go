package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/crate/internal/models"
	"github.com/jmoiron/sqlx"
)

// DiscographyCacheRepository stores the album-ID snapshot per (artist, source).
//
// Snapshots are only ever replaced wholesale; there is no partial update.
type DiscographyCacheRepository struct {
	db *sqlx.DB
}

// NewDiscographyCacheRepository creates a new DiscographyCacheRepository with the given database connection
func NewDiscographyCacheRepository(db *sqlx.DB) *DiscographyCacheRepository {
	return &DiscographyCacheRepository{db: db}
}

// Get returns the snapshot for (artistID, source), or nil when none has been recorded.
func (r *DiscographyCacheRepository) Get(ctx context.Context, artistID string, source models.Source) (*models.DiscographyCache, error) {
	var cache models.DiscographyCache
	query := `SELECT artist_id, source, album_ids, fetched_at FROM discography_cache WHERE artist_id = ? AND source = ?`
	if err := r.db.GetContext(ctx, &cache, query, artistID, source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load discography cache: %w", err)
	}
	return &cache, nil
}

// Replace deletes any snapshot for (artistID, source) and inserts albumIDs in one transaction.
func (r *DiscographyCacheRepository) Replace(ctx context.Context, artistID string, source models.Source, albumIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM discography_cache WHERE artist_id = ? AND source = ?`, artistID, source); err != nil {
		return fmt.Errorf("failed to clear discography cache: %w", err)
	}

	ids := models.StringSlice(albumIDs)
	query := `INSERT INTO discography_cache (artist_id, source, album_ids, fetched_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, artistID, source, ids, now()); err != nil {
		return fmt.Errorf("failed to write discography cache: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit discography cache: %w", err)
	}
	return nil
}
