package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// Outcome classifies a single provider lookup.
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeFound
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "not_found"
	}
}

type lookupResult struct {
	outcome Outcome
	artist  *models.UnifiedArtist
	albums  []models.UnifiedAlbum
	err     error
}

// DateMatch pairs a stored release with the fallback provider's album whose normalized title matched.
type DateMatch struct {
	Release *models.Release
	Album   models.UnifiedAlbum
}

// Aggregator resolves artist names to discographies through a primary provider, consulting a fallback
// provider when the primary cannot supply albums.
type Aggregator struct {
	primary  Provider
	fallback Provider
	stats    *Stats
	logger   *log.Logger
}

// NewAggregator creates an aggregator. fallback may be nil.
func NewAggregator(primary, fallback Provider, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Aggregator{primary: primary, fallback: fallback, stats: NewStats(), logger: logger}
}

// Stats returns a snapshot of lookup outcomes since startup.
func (a *Aggregator) Stats() StatsSnapshot { return a.stats.Snapshot() }

// Providers lists configured sources, primary first.
func (a *Aggregator) Providers() []models.Source {
	sources := []models.Source{a.primary.Source()}
	if a.fallback != nil {
		sources = append(sources, a.fallback.Source())
	}
	return sources
}

// Provider returns the configured provider for source, if any.
func (a *Aggregator) Provider(source models.Source) (Provider, bool) {
	switch {
	case a.primary.Source() == source:
		return a.primary, true
	case a.fallback != nil && a.fallback.Source() == source:
		return a.fallback, true
	default:
		return nil, false
	}
}

// FindArtist resolves name to an artist and discography, or nil when neither provider knows the artist.
//
// The primary result wins when it has albums. Otherwise the fallback is tried; an artist without albums
// is still returned so it can be recorded.
func (a *Aggregator) FindArtist(ctx context.Context, name string) *models.ArtistMatch {
	a.stats.recordSearch()

	p := a.lookup(ctx, a.primary, name)
	if p.outcome == OutcomeFound && len(p.albums) > 0 {
		return a.found(a.primary, p)
	}

	if a.fallback != nil && ctx.Err() == nil {
		a.logger.Debug("consulting fallback provider", "artist", name, "primary", p.outcome, "fallback", a.fallback.Source())

		f := a.lookup(ctx, a.fallback, name)
		if f.outcome == OutcomeFound && len(f.albums) > 0 {
			return a.found(a.fallback, f)
		}
		if f.outcome == OutcomeFound && p.outcome != OutcomeFound {
			return a.found(a.fallback, f)
		}
	}

	if p.outcome == OutcomeFound {
		return a.found(a.primary, p)
	}

	a.stats.recordFailure()
	a.logger.Info("artist not found on any provider", "artist", name)
	return nil
}

// FetchAlbums returns the discography for a known provider-native artist ID.
func (a *Aggregator) FetchAlbums(ctx context.Context, source models.Source, artistID string) ([]models.UnifiedAlbum, error) {
	provider, ok := a.Provider(source)
	if !ok {
		return nil, fmt.Errorf("%w: provider %s is not configured", shared.ErrInvalidInput, source)
	}

	albums, err := provider.GetArtistAlbums(ctx, artistID)
	if err != nil {
		a.stats.recordTransportError(source)
		return nil, err
	}
	return albums, nil
}

// FindReleasesForDateUpdate searches the fallback provider (the primary when no fallback is configured)
// for artistName and pairs dated albums with stored releases by normalized title.
func (a *Aggregator) FindReleasesForDateUpdate(ctx context.Context, artistName string, releases []*models.Release) []DateMatch {
	provider := a.fallback
	if provider == nil {
		provider = a.primary
	}

	res := a.lookup(ctx, provider, artistName)
	if res.outcome != OutcomeFound || len(res.albums) == 0 {
		return nil
	}

	byTitle := make(map[string]models.UnifiedAlbum, len(res.albums))
	for _, album := range res.albums {
		if album.ReleaseDate == "" {
			continue
		}
		key := NormalizeTitle(album.Title)
		if _, ok := byTitle[key]; !ok {
			byTitle[key] = album
		}
	}

	var matches []DateMatch
	for _, r := range releases {
		if album, ok := byTitle[NormalizeTitle(r.Title)]; ok {
			matches = append(matches, DateMatch{Release: r, Album: album})
		}
	}
	return matches
}

func (a *Aggregator) found(provider Provider, res lookupResult) *models.ArtistMatch {
	albums := res.albums
	if albums == nil {
		albums = []models.UnifiedAlbum{}
	}
	a.stats.recordSuccess(provider.Source(), len(albums))
	return &models.ArtistMatch{Artist: *res.artist, Albums: albums}
}

// lookup runs search then albums on one provider. Album failures keep the artist with no albums.
func (a *Aggregator) lookup(ctx context.Context, provider Provider, name string) lookupResult {
	logger := shared.WithLogger(a.logger, "provider", provider.Source(), "artist", name)

	artist, err := provider.SearchArtist(ctx, name)
	if err != nil {
		a.stats.recordTransportError(provider.Source())
		logger.Warn("artist search failed", "error", err)
		return lookupResult{outcome: OutcomeTransportError, err: err}
	}
	if artist == nil {
		logger.Debug("artist not found")
		return lookupResult{outcome: OutcomeNotFound}
	}

	albums, err := provider.GetArtistAlbums(ctx, artist.ID)
	if err != nil {
		a.stats.recordTransportError(provider.Source())
		logger.Warn("album retrieval failed", "artist_id", artist.ID, "error", err)
		return lookupResult{outcome: OutcomeFound, artist: artist, err: err}
	}

	return lookupResult{outcome: OutcomeFound, artist: artist, albums: albums}
}
