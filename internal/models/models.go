// package models defines the data model for the catalog import pipeline
package models

import "fmt"

// Model defines the base interface for all persistent models in the catalog.
// Implementations include Artist, Release, ImportJob and ImportLog.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Source identifies an external metadata provider.
type Source string

const (
	SourceDeezer  Source = "deezer"
	SourceSpotify Source = "spotify"
)

// ParseSource maps a config or CLI string to a [Source].
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceDeezer, SourceSpotify:
		return Source(s), nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

func (s Source) String() string { return string(s) }

// Album types shared by every provider after normalization.
const (
	AlbumTypeAlbum       = "album"
	AlbumTypeSingle      = "single"
	AlbumTypeCompilation = "compilation"
)

// UnifiedArtist is a provider-agnostic artist search result.
type UnifiedArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ImageURL   string   `json:"image_url,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Popularity *int     `json:"popularity,omitempty"`
	Followers  *int     `json:"followers,omitempty"`
	Source     Source   `json:"source"`
}

// UnifiedAlbum is a provider-agnostic discography entry, optionally enriched with album detail.
type UnifiedAlbum struct {
	ID                    string             `json:"id"`
	Title                 string             `json:"title"`
	ReleaseDate           string             `json:"release_date,omitempty"`
	AlbumType             string             `json:"album_type"`
	TrackCount            *int               `json:"track_count,omitempty"`
	CoverSmall            string             `json:"cover_small,omitempty"`
	CoverMedium           string             `json:"cover_medium,omitempty"`
	CoverBig              string             `json:"cover_big,omitempty"`
	CoverXL               string             `json:"cover_xl,omitempty"`
	Duration              *int               `json:"duration,omitempty"` // seconds
	ExplicitLyrics        *bool              `json:"explicit_lyrics,omitempty"`
	ExplicitContentLyrics *int               `json:"explicit_content_lyrics,omitempty"` // 0-4
	ExplicitContentCover  *int               `json:"explicit_content_cover,omitempty"`  // 0-4
	Genres                []GenreValue       `json:"-"`
	Contributors          []ContributorValue `json:"-"`
	UPC                   string             `json:"upc,omitempty"`
	Label                 string             `json:"label,omitempty"`
	Link                  string             `json:"link,omitempty"`
	Source                Source             `json:"source"`
}

// ArtistMatch pairs an artist with the discography returned by the same provider.
type ArtistMatch struct {
	Artist UnifiedArtist
	Albums []UnifiedAlbum
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }

// StringPtr returns a pointer to v, or nil when v is empty.
func StringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Deref returns the pointed-to string or "".
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
