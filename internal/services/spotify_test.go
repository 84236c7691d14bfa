package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

func newSpotifyTestServer(t *testing.T, tokenCalls *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "test-token", "token_type": "bearer", "expires_in": 3600}`)
	})

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer test-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			h(w, r)
		}
	}

	mux.HandleFunc("/v1/search", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "artist" {
			t.Errorf("expected type=artist, got %s", r.URL.Query().Get("type"))
		}
		if r.URL.Query().Get("q") != "Justice" {
			fmt.Fprint(w, `{"artists": {"items": []}}`)
			return
		}
		fmt.Fprint(w, `{"artists": {"items": [{
			"id": "sp-justice", "name": "Justice", "genres": ["french house", "electro"],
			"popularity": 61, "followers": {"total": 1200000},
			"images": [{"url": "https://img/64.jpg", "width": 64}, {"url": "https://img/640.jpg", "width": 640}]
		}]}}`)
	}))

	mux.HandleFunc("/v1/artists/sp-justice/albums", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("include_groups") != "album,single,compilation" {
			t.Errorf("unexpected include_groups %s", r.URL.Query().Get("include_groups"))
		}
		if r.URL.Query().Get("limit") != "50" {
			t.Errorf("unexpected limit %s", r.URL.Query().Get("limit"))
		}
		if r.URL.Query().Get("offset") == "2" {
			fmt.Fprint(w, `{"items": [
				{"id": "a3", "name": "Woman", "album_type": "album", "release_date": "2016-11-18", "total_tracks": 10}
			], "next": null}`)
			return
		}
		fmt.Fprintf(w, `{"items": [
			{"id": "a1", "name": "Cross", "album_type": "album", "release_date": "2007-06-11", "total_tracks": 12,
			 "images": [{"url": "https://img/a1-640.jpg", "width": 640}, {"url": "https://img/a1-300.jpg", "width": 300}, {"url": "https://img/a1-64.jpg", "width": 64}],
			 "external_urls": {"spotify": "https://open.spotify.com/album/a1"}},
			{"id": "a2", "name": "D.A.N.C.E.", "album_type": "single", "release_date": "2007-04-30", "total_tracks": 3}
		], "next": "%s/v1/artists/sp-justice/albums?include_groups=album,single,compilation&limit=50&offset=2"}`, server.URL)
	}))

	mux.HandleFunc("/v1/albums", authed(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		if len(ids) > 20 {
			t.Errorf("expected at most 20 ids per batch, got %d", len(ids))
		}
		fmt.Fprint(w, `{"albums": [
			{"id": "a1", "label": "Ed Banger", "genres": [], "external_ids": {"upc": "0001"},
			 "artists": [{"id": "sp-justice", "name": "Justice"}],
			 "tracks": {"items": [{"duration_ms": 200000, "explicit": false}, {"duration_ms": 100500, "explicit": true}]}},
			null
		]}`)
	}))

	mux.HandleFunc("/v1/playlists/pl1", authed(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "pl1", "name": "Road Trip"}`)
	}))
	mux.HandleFunc("/v1/playlists/pl1/tracks", authed(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": [
			{"track": {"name": "Genesis", "artists": [{"id": "sp-justice", "name": "Justice"}]}},
			{"track": null},
			{"track": {"name": "Harder", "artists": [{"id": "dp", "name": "Daft Punk"}, {"id": "kw", "name": "Kanye West"}]}}
		], "next": null}`)
	}))
	mux.HandleFunc("/v1/playlists/missing", authed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSpotifyClient(t *testing.T) {
	t.Run("NewSpotifyClient", func(t *testing.T) {
		t.Run("Missing Credentials", func(t *testing.T) {
			_, err := NewSpotifyClient(SpotifyOpts{ClientID: "id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Defaults", func(t *testing.T) {
			c, err := NewSpotifyClient(SpotifyOpts{ClientID: "id", ClientSecret: "secret"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if c.api.baseURL != SpotifyBaseURL {
				t.Errorf("expected default base URL, got %s", c.api.baseURL)
			}
			if c.market != "US" {
				t.Errorf("expected default market US, got %s", c.market)
			}
			if c.Source() != models.SourceSpotify {
				t.Errorf("expected spotify source, got %s", c.Source())
			}
		})
	})

	var tokenCalls atomic.Int32
	server := newSpotifyTestServer(t, &tokenCalls)
	client, err := NewSpotifyClient(SpotifyOpts{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      server.URL + "/v1",
		TokenURL:     server.URL + "/token",
		Retry:        fastRetry(),
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	t.Run("SearchArtist", func(t *testing.T) {
		artist, err := client.SearchArtist(context.Background(), "Justice")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if artist == nil || artist.ID != "sp-justice" {
			t.Fatalf("expected sp-justice, got %+v", artist)
		}
		if artist.Popularity == nil || *artist.Popularity != 61 {
			t.Errorf("expected popularity 61, got %v", artist.Popularity)
		}
		if artist.Followers == nil || *artist.Followers != 1200000 {
			t.Errorf("expected followers 1200000, got %v", artist.Followers)
		}
		if len(artist.Genres) != 2 {
			t.Errorf("expected 2 genres, got %v", artist.Genres)
		}
		if artist.ImageURL != "https://img/640.jpg" {
			t.Errorf("expected largest image, got %s", artist.ImageURL)
		}

		t.Run("No Match", func(t *testing.T) {
			artist, err := client.SearchArtist(context.Background(), "Nobody")
			if err != nil || artist != nil {
				t.Errorf("expected nil, nil; got %+v, %v", artist, err)
			}
		})
	})

	t.Run("GetArtistAlbums", func(t *testing.T) {
		albums, err := client.GetArtistAlbums(context.Background(), "sp-justice")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(albums) != 3 {
			t.Fatalf("expected 3 albums, got %d", len(albums))
		}
		if albums[0].ID != "a3" || albums[1].ID != "a1" || albums[2].ID != "a2" {
			t.Errorf("expected newest first, got %s %s %s", albums[0].ID, albums[1].ID, albums[2].ID)
		}

		cross := albums[1]
		if cross.Label != "Ed Banger" || cross.UPC != "0001" {
			t.Errorf("expected detail fields, got label=%s upc=%s", cross.Label, cross.UPC)
		}
		if cross.Duration == nil || *cross.Duration != 300 {
			t.Errorf("expected summed duration 300s, got %v", cross.Duration)
		}
		if cross.ExplicitLyrics == nil || !*cross.ExplicitLyrics {
			t.Errorf("expected explicit when any track is, got %v", cross.ExplicitLyrics)
		}
		if cross.CoverSmall != "https://img/a1-64.jpg" || cross.CoverMedium != "https://img/a1-300.jpg" || cross.CoverXL != "https://img/a1-640.jpg" {
			t.Errorf("unexpected covers: %s %s %s", cross.CoverSmall, cross.CoverMedium, cross.CoverXL)
		}
		if cross.Link != "https://open.spotify.com/album/a1" {
			t.Errorf("expected external url, got %s", cross.Link)
		}
		if len(cross.Contributors) != 1 {
			t.Errorf("expected album artists as contributors, got %v", cross.Contributors)
		}

		single := albums[2]
		if single.AlbumType != models.AlbumTypeSingle || single.Label != "" {
			t.Errorf("expected summary-only single, got %+v", single)
		}
	})

	t.Run("Playlist", func(t *testing.T) {
		playlist, err := client.Playlist(context.Background(), "pl1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.Name != "Road Trip" {
			t.Errorf("expected 'Road Trip', got %s", playlist.Name)
		}
		if len(playlist.Tracks) != 2 {
			t.Fatalf("expected removed tracks to be skipped, got %d tracks", len(playlist.Tracks))
		}
		if len(playlist.Tracks[1].Artists) != 2 {
			t.Errorf("expected 2 artists on second track, got %+v", playlist.Tracks[1].Artists)
		}

		t.Run("Not Found", func(t *testing.T) {
			_, err := client.Playlist(context.Background(), "missing")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})
	})

	t.Run("Token Is Reused", func(t *testing.T) {
		if tokenCalls.Load() != 1 {
			t.Errorf("expected a single token request, got %d", tokenCalls.Load())
		}
	})
}

func TestCoverSizes(t *testing.T) {
	small, medium, big, xl := coverSizes([]SpotifyImage{{URL: "only", Width: 300}})
	if small != "only" || medium != "only" || big != "only" || xl != "only" {
		t.Errorf("expected single image in every slot, got %s %s %s %s", small, medium, big, xl)
	}

	small, _, _, xl = coverSizes(nil)
	if small != "" || xl != "" {
		t.Error("expected empty covers for no images")
	}
}
