package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	DeezerBaseURL = "https://api.deezer.com"

	deezerSearchLimit = 5
	deezerPageLimit   = 100
	deezerMaxPages    = 50

	// Deezer error codes delivered in 200 bodies
	deezerQuotaExceeded = 4
	deezerDataNotFound  = 800
)

// DeezerError is an error object returned in-band by the Deezer API.
type DeezerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *DeezerError) Error() string {
	return fmt.Sprintf("deezer error %d (%s): %s", e.Code, e.Type, e.Message)
}

func (e *DeezerError) Unwrap() error {
	switch e.Code {
	case deezerQuotaExceeded:
		return shared.ErrRateLimited
	case deezerDataNotFound:
		return shared.ErrNotFound
	default:
		return shared.ErrAPIRequest
	}
}

// DeezerArtist is an artist object from /search/artist
type DeezerArtist struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Picture    string `json:"picture"`
	PictureBig string `json:"picture_big"`
	PictureXL  string `json:"picture_xl"`
	NbAlbum    int    `json:"nb_album"`
	NbFan      int    `json:"nb_fan"`
}

// DeezerAlbum is an album summary from /artist/{id}/albums
type DeezerAlbum struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Link           string `json:"link"`
	CoverSmall     string `json:"cover_small"`
	CoverMedium    string `json:"cover_medium"`
	CoverBig       string `json:"cover_big"`
	CoverXL        string `json:"cover_xl"`
	ReleaseDate    string `json:"release_date"`
	RecordType     string `json:"record_type"`
	ExplicitLyrics *bool  `json:"explicit_lyrics"`
	NbTracks       *int   `json:"nb_tracks"`
}

// DeezerAlbumDetail is the full album object from /album/{id}
type DeezerAlbumDetail struct {
	DeezerAlbum
	UPC                   string `json:"upc"`
	Label                 string `json:"label"`
	Duration              *int   `json:"duration"`
	ExplicitContentLyrics *int   `json:"explicit_content_lyrics"`
	ExplicitContentCover  *int   `json:"explicit_content_cover"`
	Genres                struct {
		Data json.RawMessage `json:"data"`
	} `json:"genres"`
	Contributors json.RawMessage `json:"contributors"`
}

// DeezerTrack is a playlist track entry
type DeezerTrack struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Artist struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
}

type deezerPage[T any] struct {
	Data  []T     `json:"data"`
	Total int     `json:"total"`
	Next  *string `json:"next"`
}

// DeezerOpts configures a [DeezerClient].
type DeezerOpts struct {
	BaseURL           string
	HTTPClient        *http.Client
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	Retry             RetryPolicy
	DetailConcurrency int
	DetailCacheTTL    time.Duration
	Logger            *log.Logger
}

// DeezerClient implements [Provider] against the public Deezer API. No credentials are required.
type DeezerClient struct {
	api               *APIClient
	details           *cache.Cache
	detailConcurrency int
	logger            *log.Logger
}

// NewDeezerClient creates a Deezer provider.
func NewDeezerClient(opts DeezerOpts) *DeezerClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DeezerBaseURL
	}
	if opts.DetailConcurrency <= 0 {
		opts.DetailConcurrency = 4
	}
	if opts.DetailCacheTTL <= 0 {
		opts.DetailCacheTTL = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	logger := shared.WithLogger(opts.Logger, "provider", models.SourceDeezer)

	return &DeezerClient{
		api: NewAPIClient(APIClientOpts{
			BaseURL:           opts.BaseURL,
			HTTPClient:        opts.HTTPClient,
			RequestsPerSecond: opts.RequestsPerSecond,
			Burst:             opts.Burst,
			UserAgent:         opts.UserAgent,
			Retry:             opts.Retry,
			Logger:            logger,
			Inspect:           inspectDeezerBody,
		}),
		details:           cache.New(opts.DetailCacheTTL, 2*opts.DetailCacheTTL),
		detailConcurrency: opts.DetailConcurrency,
		logger:            logger,
	}
}

// inspectDeezerBody surfaces {"error": {...}} payloads that Deezer returns with status 200.
func inspectDeezerBody(body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, `{"error"`) {
		return nil
	}

	var payload struct {
		Error *DeezerError `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == nil {
		return nil
	}
	return payload.Error
}

func (d *DeezerClient) Source() models.Source { return models.SourceDeezer }

// SearchArtist queries /search/artist, preferring an exact case-insensitive name match over the top result.
func (d *DeezerClient) SearchArtist(ctx context.Context, name string) (*models.UnifiedArtist, error) {
	var page deezerPage[DeezerArtist]
	query := url.Values{"q": {name}, "limit": {strconv.Itoa(deezerSearchLimit)}}
	if err := d.api.Get(ctx, "/search/artist", query, &page); err != nil {
		return nil, fmt.Errorf("deezer artist search for %q: %w", name, err)
	}

	if len(page.Data) == 0 {
		return nil, nil
	}

	best := page.Data[0]
	for _, a := range page.Data {
		if strings.EqualFold(strings.TrimSpace(a.Name), strings.TrimSpace(name)) {
			best = a
			break
		}
	}

	return d.toUnifiedArtist(best), nil
}

// GetArtistAlbums pages through /artist/{id}/albums and enriches each album with its /album/{id} detail.
func (d *DeezerClient) GetArtistAlbums(ctx context.Context, artistID string) ([]models.UnifiedAlbum, error) {
	summaries, err := d.artistAlbums(ctx, artistID)
	if err != nil {
		return nil, err
	}

	albums := make([]models.UnifiedAlbum, len(summaries))
	for i, s := range summaries {
		albums[i] = d.toUnifiedAlbum(s)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.detailConcurrency)

	for i := range albums {
		g.Go(func() error {
			detail, err := d.albumDetail(gctx, albums[i].ID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				d.logger.Debug("album detail unavailable, keeping summary", "album_id", albums[i].ID, "error", err)
				return nil
			}
			applyDeezerDetail(&albums[i], detail)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return finalizeAlbums(albums), nil
}

func (d *DeezerClient) artistAlbums(ctx context.Context, artistID string) ([]DeezerAlbum, error) {
	var all []DeezerAlbum
	var page deezerPage[DeezerAlbum]

	query := url.Values{"limit": {strconv.Itoa(deezerPageLimit)}}
	if err := d.api.Get(ctx, "/artist/"+url.PathEscape(artistID)+"/albums", query, &page); err != nil {
		return nil, fmt.Errorf("deezer albums for artist %s: %w", artistID, err)
	}
	all = append(all, page.Data...)

	for pages := 1; page.Next != nil && *page.Next != "" && pages < deezerMaxPages; pages++ {
		next := *page.Next
		page = deezerPage[DeezerAlbum]{}
		if err := d.api.GetURL(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("deezer albums for artist %s: %w", artistID, err)
		}
		all = append(all, page.Data...)
	}

	return all, nil
}

// albumDetail fetches /album/{id}, serving repeated lookups from the in-memory cache.
func (d *DeezerClient) albumDetail(ctx context.Context, albumID string) (*DeezerAlbumDetail, error) {
	key := "album:" + albumID
	if cached, ok := d.details.Get(key); ok {
		return cached.(*DeezerAlbumDetail), nil
	}

	var detail DeezerAlbumDetail
	if err := d.api.Get(ctx, "/album/"+url.PathEscape(albumID), nil, &detail); err != nil {
		return nil, err
	}

	d.details.SetDefault(key, &detail)
	return &detail, nil
}

// Playlist fetches a public playlist's title and every track via /playlist/{id}/tracks.
func (d *DeezerClient) Playlist(ctx context.Context, playlistID string) (*models.ParsedPlaylist, error) {
	var meta struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	if err := d.api.Get(ctx, "/playlist/"+url.PathEscape(playlistID), nil, &meta); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: deezer playlist %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, fmt.Errorf("deezer playlist %s: %w", playlistID, err)
	}

	playlist := &models.ParsedPlaylist{Name: meta.Title}

	var page deezerPage[DeezerTrack]
	query := url.Values{"limit": {strconv.Itoa(deezerPageLimit)}}
	if err := d.api.Get(ctx, "/playlist/"+url.PathEscape(playlistID)+"/tracks", query, &page); err != nil {
		return nil, fmt.Errorf("deezer playlist %s tracks: %w", playlistID, err)
	}

	for pages := 1; ; pages++ {
		for _, t := range page.Data {
			track := models.Track{Title: t.Title, Artist: t.Artist.Name}
			if t.Artist.Name != "" {
				track.Artists = []models.TrackArtist{{
					Name:       t.Artist.Name,
					Source:     models.SourceDeezer,
					ProviderID: strconv.FormatInt(t.Artist.ID, 10),
				}}
			}
			playlist.Tracks = append(playlist.Tracks, track)
		}

		if page.Next == nil || *page.Next == "" || pages >= deezerMaxPages {
			break
		}
		next := *page.Next
		page = deezerPage[DeezerTrack]{}
		if err := d.api.GetURL(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("deezer playlist %s tracks: %w", playlistID, err)
		}
	}

	return playlist, nil
}

func (d *DeezerClient) toUnifiedArtist(a DeezerArtist) *models.UnifiedArtist {
	image := a.PictureXL
	if image == "" {
		image = a.PictureBig
	}

	artist := &models.UnifiedArtist{
		ID:       strconv.FormatInt(a.ID, 10),
		Name:     a.Name,
		ImageURL: image,
		Source:   models.SourceDeezer,
	}
	if a.NbFan > 0 {
		artist.Followers = models.IntPtr(a.NbFan)
	}
	return artist
}

func (d *DeezerClient) toUnifiedAlbum(a DeezerAlbum) models.UnifiedAlbum {
	return models.UnifiedAlbum{
		ID:             strconv.FormatInt(a.ID, 10),
		Title:          a.Title,
		ReleaseDate:    a.ReleaseDate,
		AlbumType:      normalizeAlbumType(a.RecordType),
		TrackCount:     a.NbTracks,
		CoverSmall:     a.CoverSmall,
		CoverMedium:    a.CoverMedium,
		CoverBig:       a.CoverBig,
		CoverXL:        a.CoverXL,
		ExplicitLyrics: a.ExplicitLyrics,
		Link:           a.Link,
		Source:         models.SourceDeezer,
	}
}

// applyDeezerDetail overlays detail fields onto a summary album. Summary values win only when the detail is empty.
func applyDeezerDetail(album *models.UnifiedAlbum, detail *DeezerAlbumDetail) {
	album.UPC = detail.UPC
	album.Label = detail.Label
	album.Duration = detail.Duration
	album.ExplicitContentLyrics = detail.ExplicitContentLyrics
	album.ExplicitContentCover = detail.ExplicitContentCover

	if detail.NbTracks != nil {
		album.TrackCount = detail.NbTracks
	}
	if detail.ExplicitLyrics != nil {
		album.ExplicitLyrics = detail.ExplicitLyrics
	}
	if album.ReleaseDate == "" {
		album.ReleaseDate = detail.ReleaseDate
	}
	if album.Link == "" {
		album.Link = detail.Link
	}
	if album.CoverXL == "" {
		album.CoverSmall, album.CoverMedium = detail.CoverSmall, detail.CoverMedium
		album.CoverBig, album.CoverXL = detail.CoverBig, detail.CoverXL
	}

	if len(detail.Genres.Data) > 0 {
		if genres, err := models.ParseGenreValues(detail.Genres.Data); err == nil {
			album.Genres = genres
		}
	}
	if len(detail.Contributors) > 0 {
		if contributors, err := models.ParseContributorValues(detail.Contributors); err == nil {
			album.Contributors = contributors
		}
	}
}

func isNotFound(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return true
	}
	return errors.Is(err, shared.ErrNotFound)
}
