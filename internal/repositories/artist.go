package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/jmoiron/sqlx"
)

const artistColumns = `id, name, deezer_id, spotify_id, genres, popularity, followers,
	image_url, last_updated, created_at, updated_at`

// ArtistRepository persists [models.Artist] rows.
type ArtistRepository struct {
	db *sqlx.DB
}

// NewArtistRepository creates a new ArtistRepository with the given database connection
func NewArtistRepository(db *sqlx.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Create inserts a new artist with a generated ID.
//
// Losing the UNIQUE(name) race returns an error wrapping [shared.ErrAlreadyExists].
func (r *ArtistRepository) Create(ctx context.Context, artist *models.Artist) error {
	if err := artist.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	ts := now()
	artist.ID = shared.GenerateID()
	artist.CreatedAt = ts
	artist.UpdatedAt = ts

	query := `
		INSERT INTO artists (` + artistColumns + `)
		VALUES (:id, :name, :deezer_id, :spotify_id, :genres, :popularity, :followers,
			:image_url, :last_updated, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, artist); err != nil {
		if shared.IsUniqueViolation(err) {
			return fmt.Errorf("%w: artist %q", shared.ErrAlreadyExists, artist.Name)
		}
		return fmt.Errorf("failed to insert artist: %w", err)
	}

	return nil
}

// Get retrieves an artist by ID.
func (r *ArtistRepository) Get(ctx context.Context, id string) (*models.Artist, error) {
	var artist models.Artist
	err := r.db.GetContext(ctx, &artist, `SELECT `+artistColumns+` FROM artists WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "artist %s", id)
	}
	return &artist, nil
}

// GetByName retrieves an artist by exact name.
func (r *ArtistRepository) GetByName(ctx context.Context, name string) (*models.Artist, error) {
	var artist models.Artist
	err := r.db.GetContext(ctx, &artist, `SELECT `+artistColumns+` FROM artists WHERE name = ?`, name)
	if err != nil {
		return nil, notFound(err, "artist %q", name)
	}
	return &artist, nil
}

// SetSourceIDIfEmpty fills the provider ID slot only when it is NULL or empty.
// Returns true when the slot was written.
func (r *ArtistRepository) SetSourceIDIfEmpty(ctx context.Context, id string, source models.Source, sourceID string) (bool, error) {
	col, err := sourceColumn(source)
	if err != nil {
		return false, err
	}

	query := `UPDATE artists SET ` + col + ` = ?, updated_at = ? WHERE id = ? AND (` + col + ` IS NULL OR ` + col + ` = '')`
	result, err := r.db.ExecContext(ctx, query, sourceID, now(), id)
	if err != nil {
		return false, fmt.Errorf("failed to backfill %s: %w", col, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// MergeMetadata applies provider metadata from patch without a prior read. Provider ID slots are
// filled only when empty. Popularity, followers and image are replaced only by non-nil values.
// Genres are left alone; see [ArtistRepository.SwapGenres].
func (r *ArtistRepository) MergeMetadata(ctx context.Context, patch *models.Artist) error {
	patch.UpdatedAt = now()

	query := `
		UPDATE artists
		SET deezer_id = COALESCE(NULLIF(deezer_id, ''), :deezer_id),
			spotify_id = COALESCE(NULLIF(spotify_id, ''), :spotify_id),
			popularity = COALESCE(:popularity, popularity),
			followers = COALESCE(:followers, followers),
			image_url = COALESCE(NULLIF(:image_url, ''), image_url),
			updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, patch)
	if err != nil {
		return fmt.Errorf("failed to merge artist metadata: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: artist %s", shared.ErrNotFound, patch.ID)
	}
	return nil
}

// SwapGenres writes next only while the stored genres still equal prev.
// Returns false when another writer changed them first.
func (r *ArtistRepository) SwapGenres(ctx context.Context, id string, prev, next models.StringSlice) (bool, error) {
	query := `UPDATE artists SET genres = ?, updated_at = ? WHERE id = ? AND COALESCE(genres, '[]') = ?`
	result, err := r.db.ExecContext(ctx, query, next, now(), id, prev)
	if err != nil {
		return false, fmt.Errorf("failed to update genres: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// TouchLastUpdated records a completed refresh of the artist.
func (r *ArtistRepository) TouchLastUpdated(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE artists SET last_updated = ?, updated_at = ? WHERE id = ?`, at.UTC(), now(), id)
	if err != nil {
		return fmt.Errorf("failed to touch artist: %w", err)
	}
	return nil
}

// ListWithProviderIDs returns every artist carrying at least one provider ID, oldest refresh first.
func (r *ArtistRepository) ListWithProviderIDs(ctx context.Context) ([]*models.Artist, error) {
	query := `
		SELECT ` + artistColumns + `
		FROM artists
		WHERE (deezer_id IS NOT NULL AND deezer_id != '') OR (spotify_id IS NOT NULL AND spotify_id != '')
		ORDER BY last_updated IS NOT NULL, last_updated, name
	`
	var artists []*models.Artist
	if err := r.db.SelectContext(ctx, &artists, query); err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	return artists, nil
}

// ListStale returns artists with a provider ID that have not been refreshed since before.
func (r *ArtistRepository) ListStale(ctx context.Context, before time.Time) ([]*models.Artist, error) {
	query := `
		SELECT ` + artistColumns + `
		FROM artists
		WHERE ((deezer_id IS NOT NULL AND deezer_id != '') OR (spotify_id IS NOT NULL AND spotify_id != ''))
			AND (last_updated IS NULL OR last_updated < ?)
		ORDER BY last_updated IS NOT NULL, last_updated, name
	`
	var artists []*models.Artist
	if err := r.db.SelectContext(ctx, &artists, query, before.UTC()); err != nil {
		return nil, fmt.Errorf("failed to query stale artists: %w", err)
	}
	return artists, nil
}

// Count returns the number of artists in the catalog.
func (r *ArtistRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM artists`); err != nil {
		return 0, fmt.Errorf("failed to count artists: %w", err)
	}
	return n, nil
}
