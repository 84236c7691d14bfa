// package tasks implements the import orchestrator: playlist imports, catalog refresh sweeps and
// release-date backfill.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/playlists"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
)

// DefaultArtistDelay is the pause between artists, which keeps a single job under provider rate limits.
const DefaultArtistDelay = 2 * time.Second

// PlaylistParser produces track lists from playlist URLs.
type PlaylistParser interface {
	Parse(ctx context.Context, url string) (*models.ParsedPlaylist, error)
	ParseMany(ctx context.Context, urls []string) models.BatchParseResult
}

// ArtistProcessor reconciles one artist at a time.
type ArtistProcessor interface {
	ProcessArtist(ctx context.Context, name string, hint models.ArtistHint) models.ArtistResult
	RefreshArtist(ctx context.Context, artist *models.Artist) models.ArtistResult
}

// ArtistLister selects artists for refresh sweeps.
type ArtistLister interface {
	Get(ctx context.Context, id string) (*models.Artist, error)
	ListWithProviderIDs(ctx context.Context) ([]*models.Artist, error)
	ListStale(ctx context.Context, before time.Time) ([]*models.Artist, error)
}

// ReleaseDater reads and fills missing release dates.
type ReleaseDater interface {
	ListMissingReleaseDate(ctx context.Context) ([]*models.Release, error)
	SetReleaseDateIfEmpty(ctx context.Context, id, date string) (bool, error)
}

// DateFinder matches stored releases against a provider discography.
type DateFinder interface {
	FindReleasesForDateUpdate(ctx context.Context, artistName string, releases []*models.Release) []services.DateMatch
}

// ImporterOpts configures an [Importer].
type ImporterOpts struct {
	ArtistDelay time.Duration // Pause between artists; negative disables it
	StaleAfter  time.Duration // Refresh window for [Importer.UpdateExistingArtists]
	Logger      *log.Logger
}

// Importer drives the reconciler over artist lists. Artists are processed sequentially.
type Importer struct {
	parser     PlaylistParser
	processor  ArtistProcessor
	artists    ArtistLister
	releases   ReleaseDater
	dates      DateFinder
	delay      time.Duration
	staleAfter time.Duration
	logger     *log.Logger
	now        func() time.Time
}

// NewImporter creates an Importer.
func NewImporter(parser PlaylistParser, processor ArtistProcessor, artists ArtistLister, releases ReleaseDater, dates DateFinder, opts ImporterOpts) *Importer {
	if opts.ArtistDelay == 0 {
		opts.ArtistDelay = DefaultArtistDelay
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Importer{
		parser:     parser,
		processor:  processor,
		artists:    artists,
		releases:   releases,
		dates:      dates,
		delay:      max(opts.ArtistDelay, 0),
		staleAfter: opts.StaleAfter,
		logger:     shared.WithLogger(opts.Logger, "component", "importer"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ImportFromPlaylist imports every artist on one playlist.
//
// A playlist that cannot be parsed is recorded in the stats and also returned as an error.
func (i *Importer) ImportFromPlaylist(ctx context.Context, url string, progress ProgressFunc) (*models.ImportStats, error) {
	stats := models.NewImportStats()

	if err := report(progress, parsingUpdate(1)); err != nil {
		return stats, err
	}

	playlist, err := i.parser.Parse(ctx, url)
	if err != nil {
		stats.AddError("failed to parse playlist %s: %v", url, err)
		return stats, fmt.Errorf("failed to parse playlist %s: %w", url, err)
	}

	i.logger.Info("parsed playlist", "url", url, "name", playlist.Name, "artists", len(playlist.UniqueArtists))

	err = i.processArtists(ctx, playlists.ArtistHints(*playlist), stats, progress)
	return stats, err
}

// ImportFromMultiplePlaylists parses all playlists first and resolves each distinct artist once.
// Parse failures are recorded in the stats; the remaining playlists are still imported.
func (i *Importer) ImportFromMultiplePlaylists(ctx context.Context, urls []string, progress ProgressFunc) (*models.ImportStats, error) {
	stats := models.NewImportStats()

	if err := report(progress, parsingUpdate(len(urls))); err != nil {
		return stats, err
	}

	batch := i.parser.ParseMany(ctx, urls)
	for _, u := range batch.Failed {
		stats.AddError("failed to parse playlist %s", u)
	}

	hints := playlists.ArtistHints(batch.Successful...)
	i.logger.Info("parsed playlists", "ok", len(batch.Successful), "failed", len(batch.Failed), "artists", len(hints))

	err := i.processArtists(ctx, hints, stats, progress)
	return stats, err
}

// UpdateAllArtists refreshes every artist that carries a provider ID.
func (i *Importer) UpdateAllArtists(ctx context.Context, progress ProgressFunc) (*models.ImportStats, error) {
	artists, err := i.artists.ListWithProviderIDs(ctx)
	if err != nil {
		return models.NewImportStats(), err
	}
	return i.refreshArtists(ctx, artists, progress)
}

// UpdateExistingArtists refreshes artists with a provider ID that were not updated within the stale window.
func (i *Importer) UpdateExistingArtists(ctx context.Context, progress ProgressFunc) (*models.ImportStats, error) {
	artists, err := i.artists.ListStale(ctx, i.now().Add(-i.staleAfter))
	if err != nil {
		return models.NewImportStats(), err
	}
	return i.refreshArtists(ctx, artists, progress)
}

// BackfillReleaseDates fills missing release dates, one provider search per affected artist.
// Existing dates are never replaced.
func (i *Importer) BackfillReleaseDates(ctx context.Context, progress ProgressFunc) (*models.ImportStats, error) {
	stats := models.NewImportStats()

	missing, err := i.releases.ListMissingReleaseDate(ctx)
	if err != nil {
		return stats, err
	}

	var order []string
	byArtist := make(map[string][]*models.Release)
	for _, r := range missing {
		if _, ok := byArtist[r.ArtistID]; !ok {
			order = append(order, r.ArtistID)
		}
		byArtist[r.ArtistID] = append(byArtist[r.ArtistID], r)
	}

	total := len(order)
	if err := report(progress, startArtistsUpdate(BackfillDates, total, stats)); err != nil {
		return stats, err
	}

	for n, artistID := range order {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		releases := byArtist[artistID]
		artist, err := i.artists.Get(ctx, artistID)
		if err != nil {
			stats.AddError("artist %s: %v", artistID, err)
			continue
		}

		filled := 0
		for _, m := range i.dates.FindReleasesForDateUpdate(ctx, artist.Name, releases) {
			ok, err := i.releases.SetReleaseDateIfEmpty(ctx, m.Release.ID, m.Album.ReleaseDate)
			if err != nil {
				stats.AddError("%s - %s: %v", artist.Name, m.Release.Title, err)
				continue
			}
			if ok {
				filled++
			}
		}

		stats.DatesFilled += filled
		stats.SkippedReleases += len(releases) - filled
		if filled > 0 {
			stats.UpdatedArtists++
		}

		if err := report(progress, backfillUpdate(n+1, total, artist.Name, filled, stats)); err != nil {
			return stats, err
		}
		if n < total-1 {
			if err := i.pause(ctx); err != nil {
				return stats, err
			}
		}
	}

	i.logger.Info("release date backfill finished", "artists", total, "filled", stats.DatesFilled)
	return stats, nil
}

func (i *Importer) processArtists(ctx context.Context, hints []models.ArtistHint, stats *models.ImportStats, progress ProgressFunc) error {
	total := len(hints)
	if err := report(progress, startArtistsUpdate(ProcessArtists, total, stats)); err != nil {
		return err
	}

	for n, hint := range hints {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := i.processor.ProcessArtist(ctx, hint.Name, hint)
		record(stats, res)

		if err := report(progress, artistUpdate(ProcessArtists, n+1, total, res, stats)); err != nil {
			return err
		}
		if n < total-1 {
			if err := i.pause(ctx); err != nil {
				return err
			}
		}
	}

	i.logger.Info("import finished", "artists", total, "new_releases", stats.NewReleases,
		"skipped_releases", stats.SkippedReleases, "errors", len(stats.Errors))
	return nil
}

func (i *Importer) refreshArtists(ctx context.Context, artists []*models.Artist, progress ProgressFunc) (*models.ImportStats, error) {
	stats := models.NewImportStats()
	total := len(artists)

	if err := report(progress, startArtistsUpdate(RefreshArtists, total, stats)); err != nil {
		return stats, err
	}

	for n, artist := range artists {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		res := i.processor.RefreshArtist(ctx, artist)
		record(stats, res)

		if err := report(progress, artistUpdate(RefreshArtists, n+1, total, res, stats)); err != nil {
			return stats, err
		}
		if n < total-1 {
			if err := i.pause(ctx); err != nil {
				return stats, err
			}
		}
	}

	i.logger.Info("refresh finished", "artists", total, "new_releases", stats.NewReleases, "errors", len(stats.Errors))
	return stats, nil
}

// record folds one artist result into stats.
//
// Release counts are added even when the artist failed partway, since releases stored before the
// failure are committed. NewArtists counts artists that yielded at least one new release, whether or
// not the row was just created. UpdatedArtists counts artists that already existed and were
// processed without error.
func record(stats *models.ImportStats, res models.ArtistResult) {
	stats.NewReleases += res.NewReleases
	stats.SkippedReleases += res.SkippedReleases
	if !res.OK() {
		stats.AddError("%s: %s", res.Name, res.Error)
		return
	}

	if res.NewReleases > 0 {
		stats.NewArtists++
	}
	if !res.Created {
		stats.UpdatedArtists++
	}
}

func (i *Importer) pause(ctx context.Context) error {
	if i.delay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(i.delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func report(progress ProgressFunc, update ProgressUpdate) error {
	if progress == nil {
		return nil
	}
	return progress(update)
}
