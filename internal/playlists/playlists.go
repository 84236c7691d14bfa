// package playlists turns playlist URLs into track lists and de-duplicated artist names
//
// Spotify and Deezer playlists are resolved through their public APIs.
package playlists

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

var (
	spotifyID = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
	deezerID  = regexp.MustCompile(`^[0-9]+$`)
)

// Fetcher resolves a provider-native playlist ID. Implemented by the provider clients.
type Fetcher interface {
	Source() models.Source
	Playlist(ctx context.Context, playlistID string) (*models.ParsedPlaylist, error)
}

// Parser dispatches playlist URLs to the fetcher for their provider.
type Parser struct {
	fetchers map[models.Source]Fetcher
	logger   *log.Logger
}

// NewParser creates a Parser. Providers without a fetcher yield [shared.ErrUnsupportedPlaylist].
func NewParser(logger *log.Logger, fetchers ...Fetcher) *Parser {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	p := &Parser{fetchers: make(map[models.Source]Fetcher, len(fetchers)), logger: logger}
	for _, f := range fetchers {
		if f != nil {
			p.fetchers[f.Source()] = f
		}
	}
	return p
}

// ParseURL identifies the provider and playlist ID of a playlist link.
//
// Accepted forms:
//   - https://open.spotify.com/playlist/{id} (optionally with an intl-xx segment and query)
//   - spotify:playlist:{id}
//   - https://www.deezer.com/playlist/{id} (optionally with a language segment)
func ParseURL(raw string) (models.Source, string, error) {
	raw = strings.TrimSpace(raw)

	if rest, ok := strings.CutPrefix(raw, "spotify:playlist:"); ok {
		if spotifyID.MatchString(rest) {
			return models.SourceSpotify, rest, nil
		}
		return "", "", fmt.Errorf("%w: malformed spotify uri %q", shared.ErrPlaylistParse, raw)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", shared.ErrUnsupportedPlaylist, raw)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })

	var source models.Source
	var pattern *regexp.Regexp
	switch host {
	case "open.spotify.com":
		source, pattern = models.SourceSpotify, spotifyID
	case "deezer.com":
		source, pattern = models.SourceDeezer, deezerID
	default:
		return "", "", fmt.Errorf("%w: %q", shared.ErrUnsupportedPlaylist, raw)
	}

	for i := 0; i+1 < len(segments); i++ {
		if segments[i] == "playlist" {
			if id := segments[i+1]; pattern.MatchString(id) {
				return source, id, nil
			}
			return "", "", fmt.Errorf("%w: malformed %s playlist id in %q", shared.ErrPlaylistParse, source, raw)
		}
	}

	return "", "", fmt.Errorf("%w: %q is not a playlist link", shared.ErrUnsupportedPlaylist, raw)
}

// Parse fetches the playlist at rawURL and fills in its unique artist names.
func (p *Parser) Parse(ctx context.Context, rawURL string) (*models.ParsedPlaylist, error) {
	source, id, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	fetcher, ok := p.fetchers[source]
	if !ok {
		return nil, fmt.Errorf("%w: no %s client configured", shared.ErrUnsupportedPlaylist, source)
	}

	playlist, err := fetcher.Playlist(ctx, id)
	if err != nil {
		return nil, err
	}

	playlist.URL = rawURL
	playlist.UniqueArtists = UniqueArtists(playlist.Tracks)

	p.logger.Debug("parsed playlist", "url", rawURL, "name", playlist.Name,
		"tracks", len(playlist.Tracks), "artists", len(playlist.UniqueArtists))
	return playlist, nil
}

// ParseMany parses every URL, collecting failures instead of stopping.
func (p *Parser) ParseMany(ctx context.Context, urls []string) models.BatchParseResult {
	result := models.BatchParseResult{Successful: []models.ParsedPlaylist{}, Failed: []string{}}
	for _, u := range urls {
		playlist, err := p.Parse(ctx, u)
		if err != nil {
			p.logger.Warn("failed to parse playlist", "url", u, "error", err)
			result.Failed = append(result.Failed, u)
			continue
		}
		result.Successful = append(result.Successful, *playlist)
	}
	return result
}

// UniqueArtists lists artist names in track order, de-duplicated case-insensitively (first spelling wins).
func UniqueArtists(tracks []models.Track) []string {
	hints := hintsFrom(nil, make(map[string]int), tracks)
	names := make([]string, len(hints))
	for i, h := range hints {
		names[i] = h.Name
	}
	return names
}

// ArtistHints unions the artists of several playlists, keeping the first provider ID seen for each name.
func ArtistHints(playlists ...models.ParsedPlaylist) []models.ArtistHint {
	var hints []models.ArtistHint
	index := make(map[string]int)
	for _, pl := range playlists {
		hints = hintsFrom(hints, index, pl.Tracks)
	}
	return hints
}

func hintsFrom(hints []models.ArtistHint, index map[string]int, tracks []models.Track) []models.ArtistHint {
	add := func(name string, source models.Source, id string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if i, ok := index[key]; ok {
			if hints[i].ProviderID == "" && id != "" {
				hints[i].Source, hints[i].ProviderID = source, id
			}
			return
		}
		index[key] = len(hints)
		hints = append(hints, models.ArtistHint{Name: name, Source: source, ProviderID: id})
	}

	for _, t := range tracks {
		if len(t.Artists) > 0 {
			for _, a := range t.Artists {
				add(a.Name, a.Source, a.ProviderID)
			}
			continue
		}
		add(t.Artist, "", "")
	}
	return hints
}
