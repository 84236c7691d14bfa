package models

import (
	"fmt"
	"strings"
	"time"
)

// Artist is the persistent artist row. Name is the reconciliation key.
type Artist struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	DeezerID    *string     `db:"deezer_id" json:"deezer_id,omitempty"`
	SpotifyID   *string     `db:"spotify_id" json:"spotify_id,omitempty"`
	Genres      StringSlice `db:"genres" json:"genres"`
	Popularity  *int        `db:"popularity" json:"popularity,omitempty"`
	Followers   *int        `db:"followers" json:"followers,omitempty"`
	ImageURL    *string     `db:"image_url" json:"image_url,omitempty"`
	LastUpdated *time.Time  `db:"last_updated" json:"last_updated,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// Validate checks the artist has a usable name.
func (a *Artist) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("artist name is required")
	}
	return nil
}

// SourceID returns the provider-native ID stored for source, or "".
func (a *Artist) SourceID(source Source) string {
	switch source {
	case SourceDeezer:
		return Deref(a.DeezerID)
	case SourceSpotify:
		return Deref(a.SpotifyID)
	default:
		return ""
	}
}

// SetSourceID stores id in the slot for source.
func (a *Artist) SetSourceID(source Source, id string) {
	switch source {
	case SourceDeezer:
		a.DeezerID = StringPtr(id)
	case SourceSpotify:
		a.SpotifyID = StringPtr(id)
	}
}

// Release is the persistent release row, unique per (artist_id, title).
type Release struct {
	ID                    string         `db:"id" json:"id"`
	ArtistID              string         `db:"artist_id" json:"artist_id"`
	Title                 string         `db:"title" json:"title"`
	DeezerID              *string        `db:"deezer_id" json:"deezer_id,omitempty"`
	SpotifyID             *string        `db:"spotify_id" json:"spotify_id,omitempty"`
	ReleaseDate           *string        `db:"release_date" json:"release_date,omitempty"`
	AlbumType             *string        `db:"album_type" json:"album_type,omitempty"`
	TrackCount            *int           `db:"track_count" json:"track_count,omitempty"`
	CoverSmall            *string        `db:"cover_small" json:"cover_small,omitempty"`
	CoverMedium           *string        `db:"cover_medium" json:"cover_medium,omitempty"`
	CoverBig              *string        `db:"cover_big" json:"cover_big,omitempty"`
	CoverXL               *string        `db:"cover_xl" json:"cover_xl,omitempty"`
	Duration              *int           `db:"duration" json:"duration,omitempty"`
	ExplicitLyrics        *bool          `db:"explicit_lyrics" json:"explicit_lyrics,omitempty"`
	ExplicitContentLyrics *int           `db:"explicit_content_lyrics" json:"explicit_content_lyrics,omitempty"`
	ExplicitContentCover  *int           `db:"explicit_content_cover" json:"explicit_content_cover,omitempty"`
	Genres                Genres         `db:"genres" json:"genres,omitempty"`
	Contributors          Contributors   `db:"contributors" json:"contributors,omitempty"`
	UPC                   *string        `db:"upc" json:"upc,omitempty"`
	Label                 *string        `db:"label" json:"label,omitempty"`
	StreamingLinks        StreamingLinks `db:"streaming_links" json:"streaming_links"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`
}

// Validate checks the release is attached to an artist and titled.
func (r *Release) Validate() error {
	if r.ArtistID == "" {
		return fmt.Errorf("release artist_id is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("release title is required")
	}
	return nil
}

// SourceID returns the provider-native album ID stored for source, or "".
func (r *Release) SourceID(source Source) string {
	switch source {
	case SourceDeezer:
		return Deref(r.DeezerID)
	case SourceSpotify:
		return Deref(r.SpotifyID)
	default:
		return ""
	}
}

// SetSourceID stores id in the slot for source.
func (r *Release) SetSourceID(source Source, id string) {
	switch source {
	case SourceDeezer:
		r.DeezerID = StringPtr(id)
	case SourceSpotify:
		r.SpotifyID = StringPtr(id)
	}
}

// DiscographyCache is the album-ID snapshot from the last successful fetch of (artist, source).
type DiscographyCache struct {
	ArtistID  string      `db:"artist_id" json:"artist_id"`
	Source    Source      `db:"source" json:"source"`
	AlbumIDs  StringSlice `db:"album_ids" json:"album_ids"`
	FetchedAt time.Time   `db:"fetched_at" json:"fetched_at"`
}

// IDSet returns the cached album IDs as a set. A nil cache yields an empty set.
func (c *DiscographyCache) IDSet() map[string]struct{} {
	if c == nil {
		return map[string]struct{}{}
	}
	set := make(map[string]struct{}, len(c.AlbumIDs))
	for _, id := range c.AlbumIDs {
		set[id] = struct{}{}
	}
	return set
}
