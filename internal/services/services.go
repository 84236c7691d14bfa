// package services defines the [Provider] interface for external music metadata catalogs
//
// Deezer (primary), Spotify (fallback)
package services

import (
	"context"
	"sort"

	"github.com/desertthunder/crate/internal/models"
)

// Provider is an external catalog exposing artist search and discography retrieval with a common shape.
type Provider interface {
	// Source identifies the provider (e.g. deezer, spotify).
	Source() models.Source

	// SearchArtist returns the best-ranked artist for name, or nil with a nil error when there is no match.
	// Transport and HTTP failures are returned as errors.
	SearchArtist(ctx context.Context, name string) (*models.UnifiedArtist, error)

	// GetArtistAlbums returns the full discography for a provider-native artist ID, de-duplicated by
	// album ID and sorted by release date, newest first. Albums whose detail lookup failed keep
	// their summary fields.
	GetArtistAlbums(ctx context.Context, artistID string) ([]models.UnifiedAlbum, error)
}

// finalizeAlbums drops repeated album IDs (first occurrence wins) and sorts by release date descending.
//
// Albums without a date sort last; ties keep provider order.
func finalizeAlbums(albums []models.UnifiedAlbum) []models.UnifiedAlbum {
	seen := make(map[string]bool, len(albums))
	out := make([]models.UnifiedAlbum, 0, len(albums))
	for _, a := range albums {
		if a.ID == "" || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].ReleaseDate, out[j].ReleaseDate
		if di == "" || dj == "" {
			return di != "" && dj == ""
		}
		return di > dj
	})
	return out
}

// normalizeAlbumType maps provider record types onto album, single or compilation.
func normalizeAlbumType(raw string) string {
	switch raw {
	case "single", "ep":
		return models.AlbumTypeSingle
	case "compile", "compilation":
		return models.AlbumTypeCompilation
	default:
		return models.AlbumTypeAlbum
	}
}
