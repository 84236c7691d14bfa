package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

const genreSwapAttempts = 3

// ArtistFinder resolves artist names and provider IDs to discographies.
type ArtistFinder interface {
	FindArtist(ctx context.Context, name string) *models.ArtistMatch
	FetchAlbums(ctx context.Context, source models.Source, artistID string) ([]models.UnifiedAlbum, error)
	Providers() []models.Source
}

// ArtistStore is the artist persistence used by the reconciler.
type ArtistStore interface {
	Create(ctx context.Context, artist *models.Artist) error
	Get(ctx context.Context, id string) (*models.Artist, error)
	GetByName(ctx context.Context, name string) (*models.Artist, error)
	MergeMetadata(ctx context.Context, patch *models.Artist) error
	SwapGenres(ctx context.Context, id string, prev, next models.StringSlice) (bool, error)
	SetSourceIDIfEmpty(ctx context.Context, id string, source models.Source, sourceID string) (bool, error)
	TouchLastUpdated(ctx context.Context, id string, at time.Time) error
}

// ReleaseStore is the release persistence used by the reconciler.
type ReleaseStore interface {
	Create(ctx context.Context, release *models.Release) error
	GetByTitle(ctx context.Context, artistID, title string) (*models.Release, error)
	GetBySourceID(ctx context.Context, artistID string, source models.Source, sourceID string) (*models.Release, error)
	ExistsBySourceID(ctx context.Context, artistID string, source models.Source, sourceID string) (bool, error)
	ExistsByTitle(ctx context.Context, artistID, title string) (bool, error)
	FillMissing(ctx context.Context, release *models.Release) error
}

// CacheStore holds the per-(artist, source) discography snapshot.
type CacheStore interface {
	Get(ctx context.Context, artistID string, source models.Source) (*models.DiscographyCache, error)
	Replace(ctx context.Context, artistID string, source models.Source, albumIDs []string) error
}

// Reconciler merges provider results into the catalog.
type Reconciler struct {
	finder   ArtistFinder
	artists  ArtistStore
	releases ReleaseStore
	cache    CacheStore
	logger   *log.Logger
	now      func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(finder ArtistFinder, artists ArtistStore, releases ReleaseStore, cache CacheStore, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Reconciler{
		finder:   finder,
		artists:  artists,
		releases: releases,
		cache:    cache,
		logger:   shared.WithLogger(logger, "component", "reconciler"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FindOrCreateArtist returns the ID of the artist named name, creating it when missing.
// created is true only when this call inserted the row.
//
// An empty provider ID slot on an existing artist is back-filled with sourceID.
func (r *Reconciler) FindOrCreateArtist(ctx context.Context, name string, source models.Source, sourceID string) (id string, created bool, err error) {
	name = strings.TrimSpace(name)

	existing, err := r.artists.GetByName(ctx, name)
	switch {
	case err == nil:
		return existing.ID, false, r.backfillArtistID(ctx, existing.ID, source, sourceID)
	case !errors.Is(err, shared.ErrNotFound):
		return "", false, err
	}

	artist := &models.Artist{Name: name}
	if sourceID != "" {
		artist.SetSourceID(source, sourceID)
	}

	if err := r.artists.Create(ctx, artist); err != nil {
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return "", false, err
		}

		// another import inserted the same name first
		existing, err := r.artists.GetByName(ctx, name)
		if err != nil {
			return "", false, err
		}
		return existing.ID, false, r.backfillArtistID(ctx, existing.ID, source, sourceID)
	}

	return artist.ID, true, nil
}

func (r *Reconciler) backfillArtistID(ctx context.Context, artistID string, source models.Source, sourceID string) error {
	if sourceID == "" || source == "" {
		return nil
	}
	if _, err := r.artists.SetSourceIDIfEmpty(ctx, artistID, source, sourceID); err != nil {
		return err
	}
	return nil
}

// UpdateArtistWithMusicInfo merges provider metadata into the artist row.
//
// Genres are unioned; popularity, followers and image are replaced only when the provider supplied them.
// A result without a native ID is ignored.
func (r *Reconciler) UpdateArtistWithMusicInfo(ctx context.Context, artistID string, info *models.UnifiedArtist, source models.Source) error {
	if info == nil || info.ID == "" {
		r.logger.Warn("skipping metadata merge without provider id", "artist_id", artistID, "source", source)
		return nil
	}

	patch := &models.Artist{
		ID:         artistID,
		Popularity: info.Popularity,
		Followers:  info.Followers,
		ImageURL:   models.StringPtr(info.ImageURL),
	}
	patch.SetSourceID(source, info.ID)
	if err := r.artists.MergeMetadata(ctx, patch); err != nil {
		return err
	}

	return r.mergeArtistGenres(ctx, artistID, info.Genres)
}

// mergeArtistGenres unions incoming into the stored genres, retrying when another writer got there first.
func (r *Reconciler) mergeArtistGenres(ctx context.Context, artistID string, incoming []string) error {
	if len(incoming) == 0 {
		return nil
	}

	for range genreSwapAttempts {
		artist, err := r.artists.Get(ctx, artistID)
		if err != nil {
			return err
		}

		merged := mergeGenres(artist.Genres, incoming)
		if len(merged) == len(artist.Genres) {
			return nil
		}

		ok, err := r.artists.SwapGenres(ctx, artistID, artist.Genres, merged)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("genres of artist %s kept changing during merge", artistID)
}

func mergeGenres(existing models.StringSlice, incoming []string) models.StringSlice {
	seen := make(map[string]bool, len(existing)+len(incoming))
	out := make(models.StringSlice, 0, len(existing)+len(incoming))
	for _, g := range append(append([]string{}, existing...), incoming...) {
		key := strings.ToLower(strings.TrimSpace(g))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(g))
	}
	return out
}

// ReleaseExists reports whether artistID already has the release, matching by provider ID when one is
// given and by title otherwise.
func (r *Reconciler) ReleaseExists(ctx context.Context, externalID, artistID, title string, source models.Source) (bool, error) {
	if externalID != "" {
		exists, err := r.releases.ExistsBySourceID(ctx, artistID, source, externalID)
		if err != nil || exists {
			return exists, err
		}
	}
	return r.releases.ExistsByTitle(ctx, artistID, strings.TrimSpace(title))
}

// findRelease loads the stored release matching album, by provider ID then title.
func (r *Reconciler) findRelease(ctx context.Context, artistID string, album models.UnifiedAlbum, source models.Source) (*models.Release, error) {
	if album.ID != "" {
		release, err := r.releases.GetBySourceID(ctx, artistID, source, album.ID)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	return r.releases.GetByTitle(ctx, artistID, strings.TrimSpace(album.Title))
}

// CreateReleaseFromAlbum inserts a release built from album.
//
// Returns an error wrapping [shared.ErrAlreadyExists] when (artist_id, title) is taken.
func (r *Reconciler) CreateReleaseFromAlbum(ctx context.Context, album models.UnifiedAlbum, artistID string, source models.Source) (*models.Release, error) {
	release := &models.Release{
		ArtistID:              artistID,
		Title:                 strings.TrimSpace(album.Title),
		ReleaseDate:           models.StringPtr(album.ReleaseDate),
		AlbumType:             models.StringPtr(album.AlbumType),
		TrackCount:            album.TrackCount,
		CoverSmall:            models.StringPtr(album.CoverSmall),
		CoverMedium:           models.StringPtr(album.CoverMedium),
		CoverBig:              models.StringPtr(album.CoverBig),
		CoverXL:               models.StringPtr(album.CoverXL),
		Duration:              album.Duration,
		ExplicitLyrics:        album.ExplicitLyrics,
		ExplicitContentLyrics: album.ExplicitContentLyrics,
		ExplicitContentCover:  album.ExplicitContentCover,
		Genres:                models.NormalizeGenres(album.Genres),
		Contributors:          models.NormalizeContributors(album.Contributors),
		UPC:                   models.StringPtr(album.UPC),
		Label:                 models.StringPtr(album.Label),
		StreamingLinks:        models.StreamingLinks{},
	}
	release.SetSourceID(source, album.ID)
	if album.Link != "" {
		release.StreamingLinks[source] = album.Link
	}

	if err := r.releases.Create(ctx, release); err != nil {
		return nil, err
	}
	return release, nil
}

// UpdateReleaseWithAdditionalData fills fields the stored release lacks from album. Populated fields are
// never replaced. Reports whether anything was written.
func (r *Reconciler) UpdateReleaseWithAdditionalData(ctx context.Context, existing *models.Release, album models.UnifiedAlbum, source models.Source) (bool, error) {
	changed := false

	fillString := func(dst **string, v string) {
		if (*dst == nil || **dst == "") && v != "" {
			*dst = models.StringPtr(v)
			changed = true
		}
	}
	fillInt := func(dst **int, v *int) {
		if *dst == nil && v != nil {
			*dst = v
			changed = true
		}
	}

	if existing.SourceID(source) == "" && album.ID != "" {
		existing.SetSourceID(source, album.ID)
		changed = true
	}
	if album.Link != "" && existing.StreamingLinks[source] == "" {
		if existing.StreamingLinks == nil {
			existing.StreamingLinks = models.StreamingLinks{}
		}
		existing.StreamingLinks[source] = album.Link
		changed = true
	}

	fillString(&existing.ReleaseDate, album.ReleaseDate)
	fillString(&existing.AlbumType, album.AlbumType)
	fillString(&existing.CoverSmall, album.CoverSmall)
	fillString(&existing.CoverMedium, album.CoverMedium)
	fillString(&existing.CoverBig, album.CoverBig)
	fillString(&existing.CoverXL, album.CoverXL)
	fillString(&existing.UPC, album.UPC)
	fillString(&existing.Label, album.Label)
	fillInt(&existing.TrackCount, album.TrackCount)
	fillInt(&existing.Duration, album.Duration)
	fillInt(&existing.ExplicitContentLyrics, album.ExplicitContentLyrics)
	fillInt(&existing.ExplicitContentCover, album.ExplicitContentCover)

	if existing.ExplicitLyrics == nil && album.ExplicitLyrics != nil {
		existing.ExplicitLyrics = album.ExplicitLyrics
		changed = true
	}
	if len(existing.Genres) == 0 && len(album.Genres) > 0 {
		existing.Genres = models.NormalizeGenres(album.Genres)
		changed = true
	}
	if len(existing.Contributors) == 0 && len(album.Contributors) > 0 {
		existing.Contributors = models.NormalizeContributors(album.Contributors)
		changed = true
	}

	if !changed {
		return false, nil
	}
	if err := r.releases.FillMissing(ctx, existing); err != nil {
		return false, err
	}
	return true, nil
}

// ProcessArtist resolves name through the providers and reconciles the returned discography.
//
// The hint's provider ID, when it belongs to a provider other than the matching one, is stored as well.
// Failures are reported in the result, never returned.
func (r *Reconciler) ProcessArtist(ctx context.Context, name string, hint models.ArtistHint) models.ArtistResult {
	result := models.ArtistResult{Name: name}
	logger := shared.WithLogger(r.logger, "artist", name)

	match := r.finder.FindArtist(ctx, name)
	if match == nil {
		result.Error = fmt.Sprintf("no provider match for %q", name)
		return result
	}

	source := match.Artist.Source
	result.Source = source

	artistID, created, err := r.FindOrCreateArtist(ctx, name, source, match.Artist.ID)
	if err != nil {
		result.Error = fmt.Sprintf("failed to store artist: %v", err)
		return result
	}
	result.ArtistID, result.Created = artistID, created

	if hint.ProviderID != "" && hint.Source != "" && hint.Source != source {
		if err := r.backfillArtistID(ctx, artistID, hint.Source, hint.ProviderID); err != nil {
			logger.Warn("failed to store playlist provider id", "source", hint.Source, "error", err)
		}
	}

	if err := r.UpdateArtistWithMusicInfo(ctx, artistID, &match.Artist, source); err != nil {
		result.Error = fmt.Sprintf("failed to merge artist metadata: %v", err)
		return result
	}

	if err := r.syncDiscography(ctx, artistID, !created, source, match.Albums, &result); err != nil {
		result.Error = err.Error()
		return result
	}

	logger.Info("processed artist", "source", source, "created", created, "new", result.NewReleases, "skipped", result.SkippedReleases)
	return result
}

// RefreshArtist re-fetches the discography of a stored artist using its provider IDs, in provider
// priority order. Artists without a usable ID are resolved by name.
func (r *Reconciler) RefreshArtist(ctx context.Context, artist *models.Artist) models.ArtistResult {
	for _, source := range r.finder.Providers() {
		providerID := artist.SourceID(source)
		if providerID == "" {
			continue
		}

		result := models.ArtistResult{Name: artist.Name, ArtistID: artist.ID, Source: source}

		albums, err := r.finder.FetchAlbums(ctx, source, providerID)
		if err != nil {
			result.Error = fmt.Sprintf("failed to fetch %s discography: %v", source, err)
			return result
		}

		if err := r.syncDiscography(ctx, artist.ID, true, source, albums, &result); err != nil {
			result.Error = err.Error()
		}
		return result
	}

	return r.ProcessArtist(ctx, artist.Name, models.ArtistHint{})
}

// syncDiscography reconciles albums for artistID, then replaces the discography cache and touches
// last_updated. With incremental set, album IDs found in the cache are skipped unchecked.
func (r *Reconciler) syncDiscography(ctx context.Context, artistID string, incremental bool, source models.Source, albums []models.UnifiedAlbum, result *models.ArtistResult) error {
	var cached map[string]struct{}
	if incremental {
		c, err := r.cache.Get(ctx, artistID, source)
		if err != nil {
			return fmt.Errorf("failed to read discography cache: %w", err)
		}
		cached = c.IDSet()
	}

	ids := make([]string, 0, len(albums))
	for _, album := range albums {
		if err := ctx.Err(); err != nil {
			return err
		}
		ids = append(ids, album.ID)

		if _, ok := cached[album.ID]; ok {
			result.SkippedReleases++
			continue
		}

		isNew, err := r.reconcileAlbum(ctx, artistID, album, source)
		if err != nil {
			return fmt.Errorf("failed to reconcile %q: %w", album.Title, err)
		}
		if isNew {
			result.NewReleases++
		} else {
			result.SkippedReleases++
		}
	}

	if err := r.cache.Replace(ctx, artistID, source, ids); err != nil {
		return fmt.Errorf("failed to update discography cache: %w", err)
	}

	if err := r.artists.TouchLastUpdated(ctx, artistID, r.now()); err != nil {
		return err
	}
	return nil
}

// reconcileAlbum creates the release or augments the existing one. Reports true when a row was inserted.
func (r *Reconciler) reconcileAlbum(ctx context.Context, artistID string, album models.UnifiedAlbum, source models.Source) (bool, error) {
	if strings.TrimSpace(album.Title) == "" {
		return false, nil
	}

	exists, err := r.ReleaseExists(ctx, album.ID, artistID, album.Title, source)
	if err != nil {
		return false, err
	}

	if !exists {
		_, err := r.CreateReleaseFromAlbum(ctx, album, artistID, source)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return false, err
		}
		r.logger.Debug("release inserted concurrently, augmenting", "artist_id", artistID, "title", album.Title)
	}

	existing, err := r.findRelease(ctx, artistID, album, source)
	if err != nil {
		return false, err
	}
	if _, err := r.UpdateReleaseWithAdditionalData(ctx, existing, album, source); err != nil {
		return false, err
	}
	return false, nil
}
