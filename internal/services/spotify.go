// Spotify Web API implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
	SpotifyBaseURL  = "https://api.spotify.com/v1"

	spotifySearchLimit     = 5
	spotifyAlbumPageLimit  = 50
	spotifyTrackPageLimit  = 100
	spotifyAlbumBatchSize  = 20
	spotifyMaxPages        = 50
	spotifyIncludeGroups   = "album,single,compilation"
	spotifyDefaultMarket   = "US"
	spotifyContributorRole = "Main"
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	UPC string `json:"upc"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Popularity *int           `json:"popularity"`
	Followers  *followers     `json:"followers"`
	Images     []SpotifyImage `json:"images"`
}

// SpotifySimpleTrack is a track as embedded in an album or playlist.
type SpotifySimpleTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
}

// SpotifyAlbum represents a Spotify album. Label, genres, UPC and tracks are only present on full album objects.
type SpotifyAlbum struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	AlbumType    string          `json:"album_type"`
	Artists      []SpotifyArtist `json:"artists"`
	ReleaseDate  string          `json:"release_date"`
	TotalTracks  int             `json:"total_tracks"`
	Images       []SpotifyImage  `json:"images"`
	ExternalURLs externalURLs    `json:"external_urls"`
	ExternalIDs  externalIDs     `json:"external_ids"`
	Label        string          `json:"label"`
	Genres       []string        `json:"genres"`
	Tracks       *struct {
		Items []SpotifySimpleTrack `json:"items"`
		Total int                  `json:"total"`
	} `json:"tracks"`
}

type spotifyPage[T any] struct {
	Items []T     `json:"items"`
	Total int     `json:"total"`
	Next  *string `json:"next"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for removed items.
type SpotifyPlaylistTrack struct {
	AddedAt string              `json:"added_at"`
	Track   *SpotifySimpleTrack `json:"track"`
}

// SpotifyOpts configures a [SpotifyClient].
type SpotifyOpts struct {
	ClientID          string
	ClientSecret      string
	BaseURL           string
	TokenURL          string
	Market            string
	HTTPClient        *http.Client // Base transport for token and API requests
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	Retry             RetryPolicy
	Logger            *log.Logger
}

// SpotifyClient implements [Provider] using the client-credentials flow.
//
// The [clientcredentials.Config] token source fetches and refreshes app tokens automatically.
type SpotifyClient struct {
	api    *APIClient
	market string
	logger *log.Logger
}

// NewSpotifyClient creates a Spotify provider. Client ID and secret are required.
func NewSpotifyClient(opts SpotifyOpts) (*SpotifyClient, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = SpotifyBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = SpotifyTokenURL
	}
	if opts.Market == "" {
		opts.Market = spotifyDefaultMarket
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	config := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
	}

	ctx := context.Background()
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}
	httpClient := config.Client(ctx)
	if opts.HTTPClient != nil {
		httpClient.Timeout = opts.HTTPClient.Timeout
	} else {
		httpClient.Timeout = 30 * time.Second
	}

	logger := shared.WithLogger(opts.Logger, "provider", models.SourceSpotify)

	return &SpotifyClient{
		api: NewAPIClient(APIClientOpts{
			BaseURL:           opts.BaseURL,
			HTTPClient:        httpClient,
			RequestsPerSecond: opts.RequestsPerSecond,
			Burst:             opts.Burst,
			UserAgent:         opts.UserAgent,
			Retry:             opts.Retry,
			Logger:            logger,
		}),
		market: opts.Market,
		logger: logger,
	}, nil
}

func (s *SpotifyClient) Source() models.Source { return models.SourceSpotify }

// SearchArtist queries /search for artists, preferring an exact case-insensitive name match.
func (s *SpotifyClient) SearchArtist(ctx context.Context, name string) (*models.UnifiedArtist, error) {
	var result struct {
		Artists spotifyPage[SpotifyArtist] `json:"artists"`
	}

	query := url.Values{"q": {name}, "type": {"artist"}, "limit": {strconv.Itoa(spotifySearchLimit)}}
	if err := s.api.Get(ctx, "/search", query, &result); err != nil {
		return nil, fmt.Errorf("spotify artist search for %q: %w", name, err)
	}

	items := result.Artists.Items
	if len(items) == 0 {
		return nil, nil
	}

	best := items[0]
	for _, a := range items {
		if strings.EqualFold(strings.TrimSpace(a.Name), strings.TrimSpace(name)) {
			best = a
			break
		}
	}

	artist := &models.UnifiedArtist{
		ID:         best.ID,
		Name:       best.Name,
		Genres:     best.Genres,
		Popularity: best.Popularity,
		Source:     models.SourceSpotify,
	}
	if best.Followers != nil {
		artist.Followers = models.IntPtr(best.Followers.Total)
	}
	if len(best.Images) > 0 {
		artist.ImageURL = largestImage(best.Images).URL
	}
	return artist, nil
}

// GetArtistAlbums pages through /artists/{id}/albums, then enriches albums through batched /albums lookups.
func (s *SpotifyClient) GetArtistAlbums(ctx context.Context, artistID string) ([]models.UnifiedAlbum, error) {
	query := url.Values{
		"include_groups": {spotifyIncludeGroups},
		"limit":          {strconv.Itoa(spotifyAlbumPageLimit)},
		"market":         {s.market},
	}

	var page spotifyPage[SpotifyAlbum]
	if err := s.api.Get(ctx, "/artists/"+url.PathEscape(artistID)+"/albums", query, &page); err != nil {
		return nil, fmt.Errorf("spotify albums for artist %s: %w", artistID, err)
	}
	summaries := page.Items

	for pages := 1; page.Next != nil && *page.Next != "" && pages < spotifyMaxPages; pages++ {
		next := *page.Next
		page = spotifyPage[SpotifyAlbum]{}
		if err := s.api.GetURL(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("spotify albums for artist %s: %w", artistID, err)
		}
		summaries = append(summaries, page.Items...)
	}

	albums := make([]models.UnifiedAlbum, 0, len(summaries))
	index := make(map[string]int, len(summaries))
	for _, a := range summaries {
		if _, ok := index[a.ID]; ok || a.ID == "" {
			continue
		}
		index[a.ID] = len(albums)
		albums = append(albums, toUnifiedSpotifyAlbum(a))
	}

	ids := make([]string, 0, len(albums))
	for _, a := range albums {
		ids = append(ids, a.ID)
	}

	for start := 0; start < len(ids); start += spotifyAlbumBatchSize {
		end := min(start+spotifyAlbumBatchSize, len(ids))
		full, err := s.severalAlbums(ctx, ids[start:end])
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug("album batch unavailable, keeping summaries", "count", end-start, "error", err)
			continue
		}
		for _, detail := range full {
			if i, ok := index[detail.ID]; ok {
				applySpotifyDetail(&albums[i], detail)
			}
		}
	}

	return finalizeAlbums(albums), nil
}

// severalAlbums fetches up to 20 full album objects. Unknown IDs come back as null entries and are dropped.
func (s *SpotifyClient) severalAlbums(ctx context.Context, ids []string) ([]SpotifyAlbum, error) {
	var result struct {
		Albums []*SpotifyAlbum `json:"albums"`
	}
	query := url.Values{"ids": {strings.Join(ids, ",")}, "market": {s.market}}
	if err := s.api.Get(ctx, "/albums", query, &result); err != nil {
		return nil, err
	}

	albums := make([]SpotifyAlbum, 0, len(result.Albums))
	for _, a := range result.Albums {
		if a != nil {
			albums = append(albums, *a)
		}
	}
	return albums, nil
}

// Playlist fetches a playlist's name and every track via /playlists/{id}/tracks.
func (s *SpotifyClient) Playlist(ctx context.Context, playlistID string) (*models.ParsedPlaylist, error) {
	var meta struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	query := url.Values{"fields": {"id,name"}, "market": {s.market}}
	if err := s.api.Get(ctx, "/playlists/"+url.PathEscape(playlistID), query, &meta); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: spotify playlist %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, fmt.Errorf("spotify playlist %s: %w", playlistID, err)
	}

	playlist := &models.ParsedPlaylist{Name: meta.Name}

	var page spotifyPage[SpotifyPlaylistTrack]
	query = url.Values{"limit": {strconv.Itoa(spotifyTrackPageLimit)}, "market": {s.market}}
	if err := s.api.Get(ctx, "/playlists/"+url.PathEscape(playlistID)+"/tracks", query, &page); err != nil {
		return nil, fmt.Errorf("spotify playlist %s tracks: %w", playlistID, err)
	}

	for pages := 1; ; pages++ {
		for _, item := range page.Items {
			if item.Track == nil {
				continue
			}
			playlist.Tracks = append(playlist.Tracks, toTrack(*item.Track))
		}

		if page.Next == nil || *page.Next == "" || pages >= spotifyMaxPages {
			break
		}
		next := *page.Next
		page = spotifyPage[SpotifyPlaylistTrack]{}
		if err := s.api.GetURL(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("spotify playlist %s tracks: %w", playlistID, err)
		}
	}

	return playlist, nil
}

func toTrack(t SpotifySimpleTrack) models.Track {
	track := models.Track{Title: t.Name}
	for _, a := range t.Artists {
		if a.Name == "" {
			continue
		}
		track.Artists = append(track.Artists, models.TrackArtist{
			Name:       a.Name,
			Source:     models.SourceSpotify,
			ProviderID: a.ID,
		})
	}
	return track
}

func toUnifiedSpotifyAlbum(a SpotifyAlbum) models.UnifiedAlbum {
	album := models.UnifiedAlbum{
		ID:          a.ID,
		Title:       a.Name,
		ReleaseDate: a.ReleaseDate,
		AlbumType:   normalizeAlbumType(a.AlbumType),
		Link:        a.ExternalURLs.Spotify,
		Source:      models.SourceSpotify,
	}
	if a.TotalTracks > 0 {
		album.TrackCount = models.IntPtr(a.TotalTracks)
	}
	album.CoverSmall, album.CoverMedium, album.CoverBig, album.CoverXL = coverSizes(a.Images)
	return album
}

// applySpotifyDetail copies full-album fields: label, UPC, genres, summed track duration, explicitness and album artists.
func applySpotifyDetail(album *models.UnifiedAlbum, detail SpotifyAlbum) {
	album.Label = detail.Label
	album.UPC = detail.ExternalIDs.UPC

	if len(detail.Genres) > 0 {
		album.Genres = make([]models.GenreValue, 0, len(detail.Genres))
		for _, g := range detail.Genres {
			album.Genres = append(album.Genres, models.GenreName(g))
		}
	}

	if len(detail.Artists) > 0 {
		album.Contributors = make([]models.ContributorValue, 0, len(detail.Artists))
		for _, a := range detail.Artists {
			album.Contributors = append(album.Contributors, models.ContributorObject{Name: a.Name, Role: spotifyContributorRole})
		}
	}

	if detail.Tracks != nil && len(detail.Tracks.Items) > 0 {
		totalMS, explicit := 0, false
		for _, t := range detail.Tracks.Items {
			totalMS += t.DurationMS
			explicit = explicit || t.Explicit
		}
		album.Duration = models.IntPtr(totalMS / 1000)
		album.ExplicitLyrics = models.BoolPtr(explicit)
	}
}

func largestImage(images []SpotifyImage) SpotifyImage {
	best := images[0]
	for _, img := range images[1:] {
		if img.Width > best.Width {
			best = img
		}
	}
	return best
}

// coverSizes maps Spotify's 64/300/640 renditions onto the small/medium/big/xl cover slots.
func coverSizes(images []SpotifyImage) (small, medium, big, xl string) {
	if len(images) == 0 {
		return
	}

	sorted := append([]SpotifyImage(nil), images...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Width < sorted[j].Width })

	atLeast := func(w int) string {
		for _, img := range sorted {
			if img.Width >= w {
				return img.URL
			}
		}
		return sorted[len(sorted)-1].URL
	}

	return sorted[0].URL, atLeast(250), atLeast(500), sorted[len(sorted)-1].URL
}
