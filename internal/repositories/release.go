package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/jmoiron/sqlx"
)

const releaseColumns = `id, artist_id, title, deezer_id, spotify_id, release_date, album_type,
	track_count, cover_small, cover_medium, cover_big, cover_xl, duration, explicit_lyrics,
	explicit_content_lyrics, explicit_content_cover, genres, contributors, upc, label,
	streaming_links, created_at, updated_at`

// ReleaseRepository persists [models.Release] rows.
//
// UNIQUE(artist_id, title) is the de-duplication guarantee; an insert that violates it
// is reported as [shared.ErrAlreadyExists] rather than a failure.
type ReleaseRepository struct {
	db *sqlx.DB
}

// NewReleaseRepository creates a new ReleaseRepository with the given database connection
func NewReleaseRepository(db *sqlx.DB) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

// Create inserts a new release with a generated ID.
func (r *ReleaseRepository) Create(ctx context.Context, release *models.Release) error {
	if err := release.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	ts := now()
	release.ID = shared.GenerateID()
	release.CreatedAt = ts
	release.UpdatedAt = ts

	query := `
		INSERT INTO releases (` + releaseColumns + `)
		VALUES (:id, :artist_id, :title, :deezer_id, :spotify_id, :release_date, :album_type,
			:track_count, :cover_small, :cover_medium, :cover_big, :cover_xl, :duration, :explicit_lyrics,
			:explicit_content_lyrics, :explicit_content_cover, :genres, :contributors, :upc, :label,
			:streaming_links, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, release); err != nil {
		if shared.IsUniqueViolation(err) {
			return fmt.Errorf("%w: release %q for artist %s", shared.ErrAlreadyExists, release.Title, release.ArtistID)
		}
		return fmt.Errorf("failed to insert release: %w", err)
	}

	return nil
}

// Get retrieves a release by ID.
func (r *ReleaseRepository) Get(ctx context.Context, id string) (*models.Release, error) {
	var release models.Release
	if err := r.db.GetContext(ctx, &release, `SELECT `+releaseColumns+` FROM releases WHERE id = ?`, id); err != nil {
		return nil, notFound(err, "release %s", id)
	}
	return &release, nil
}

// GetByTitle retrieves the release titled title under artistID.
func (r *ReleaseRepository) GetByTitle(ctx context.Context, artistID, title string) (*models.Release, error) {
	var release models.Release
	query := `SELECT ` + releaseColumns + ` FROM releases WHERE artist_id = ? AND title = ?`
	if err := r.db.GetContext(ctx, &release, query, artistID, title); err != nil {
		return nil, notFound(err, "release %q", title)
	}
	return &release, nil
}

// GetBySourceID retrieves a release under artistID by provider-native album ID.
func (r *ReleaseRepository) GetBySourceID(ctx context.Context, artistID string, source models.Source, sourceID string) (*models.Release, error) {
	col, err := sourceColumn(source)
	if err != nil {
		return nil, err
	}

	var release models.Release
	query := `SELECT ` + releaseColumns + ` FROM releases WHERE artist_id = ? AND ` + col + ` = ? LIMIT 1`
	if err := r.db.GetContext(ctx, &release, query, artistID, sourceID); err != nil {
		return nil, notFound(err, "release %s:%s", source, sourceID)
	}
	return &release, nil
}

// ExistsBySourceID reports whether artistID has a release carrying the provider album ID.
func (r *ReleaseRepository) ExistsBySourceID(ctx context.Context, artistID string, source models.Source, sourceID string) (bool, error) {
	col, err := sourceColumn(source)
	if err != nil {
		return false, err
	}

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM releases WHERE artist_id = ? AND ` + col + ` = ?)`
	if err := r.db.GetContext(ctx, &exists, query, artistID, sourceID); err != nil {
		return false, fmt.Errorf("failed to check release: %w", err)
	}
	return exists, nil
}

// ExistsByTitle reports whether artistID has a release titled title.
func (r *ReleaseRepository) ExistsByTitle(ctx context.Context, artistID, title string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM releases WHERE artist_id = ? AND title = ?)`
	if err := r.db.GetContext(ctx, &exists, query, artistID, title); err != nil {
		return false, fmt.Errorf("failed to check release: %w", err)
	}
	return exists, nil
}

// FillMissing copies values from release into columns that are still NULL or empty, leaving
// populated columns untouched. Streaming links are unioned with stored links winning.
func (r *ReleaseRepository) FillMissing(ctx context.Context, release *models.Release) error {
	release.UpdatedAt = now()

	query := `
		UPDATE releases
		SET deezer_id = COALESCE(NULLIF(deezer_id, ''), :deezer_id),
			spotify_id = COALESCE(NULLIF(spotify_id, ''), :spotify_id),
			release_date = COALESCE(NULLIF(release_date, ''), :release_date),
			album_type = COALESCE(NULLIF(album_type, ''), :album_type),
			track_count = COALESCE(track_count, :track_count),
			cover_small = COALESCE(NULLIF(cover_small, ''), :cover_small),
			cover_medium = COALESCE(NULLIF(cover_medium, ''), :cover_medium),
			cover_big = COALESCE(NULLIF(cover_big, ''), :cover_big),
			cover_xl = COALESCE(NULLIF(cover_xl, ''), :cover_xl),
			duration = COALESCE(duration, :duration),
			explicit_lyrics = COALESCE(explicit_lyrics, :explicit_lyrics),
			explicit_content_lyrics = COALESCE(explicit_content_lyrics, :explicit_content_lyrics),
			explicit_content_cover = COALESCE(explicit_content_cover, :explicit_content_cover),
			genres = CASE WHEN genres IS NULL OR genres IN ('', '[]') THEN :genres ELSE genres END,
			contributors = CASE WHEN contributors IS NULL OR contributors IN ('', '[]') THEN :contributors ELSE contributors END,
			upc = COALESCE(NULLIF(upc, ''), :upc),
			label = COALESCE(NULLIF(label, ''), :label),
			streaming_links = json_patch(:streaming_links, COALESCE(NULLIF(streaming_links, ''), '{}')),
			updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, release)
	if err != nil {
		return fmt.Errorf("failed to fill release: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: release %s", shared.ErrNotFound, release.ID)
	}
	return nil
}

// SetReleaseDateIfEmpty fills release_date only when it is NULL or empty.
func (r *ReleaseRepository) SetReleaseDateIfEmpty(ctx context.Context, id, date string) (bool, error) {
	query := `UPDATE releases SET release_date = ?, updated_at = ? WHERE id = ? AND (release_date IS NULL OR release_date = '')`
	result, err := r.db.ExecContext(ctx, query, date, now(), id)
	if err != nil {
		return false, fmt.Errorf("failed to set release date: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// ListMissingReleaseDate returns every release without a release date, grouped by artist.
func (r *ReleaseRepository) ListMissingReleaseDate(ctx context.Context) ([]*models.Release, error) {
	query := `
		SELECT ` + releaseColumns + `
		FROM releases
		WHERE release_date IS NULL OR release_date = ''
		ORDER BY artist_id, title
	`
	var releases []*models.Release
	if err := r.db.SelectContext(ctx, &releases, query); err != nil {
		return nil, fmt.Errorf("failed to query releases: %w", err)
	}
	return releases, nil
}

// CountByArtist returns how many releases artistID has.
func (r *ReleaseRepository) CountByArtist(ctx context.Context, artistID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM releases WHERE artist_id = ?`, artistID); err != nil {
		return 0, fmt.Errorf("failed to count releases: %w", err)
	}
	return n, nil
}
