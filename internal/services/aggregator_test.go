package services

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/crate/internal/models"
	tu "github.com/desertthunder/crate/internal/testing"
)

func album(id, title, date string) models.UnifiedAlbum {
	return models.UnifiedAlbum{ID: id, Title: title, ReleaseDate: date}
}

func TestAggregatorFindArtist(t *testing.T) {
	ctx := context.Background()

	t.Run("Primary With Albums Skips Fallback", func(t *testing.T) {
		primary := tu.NewFakeProvider(models.SourceDeezer).AddArtist("Daft Punk", "27", album("1", "Discovery", "2001-03-07"))
		fallback := tu.NewFakeProvider(models.SourceSpotify).AddArtist("Daft Punk", "sp27", album("s1", "Discovery", "2001-03-12"))

		agg := NewAggregator(primary, fallback, nil)
		match := agg.FindArtist(ctx, "Daft Punk")

		if match == nil || match.Artist.Source != models.SourceDeezer || len(match.Albums) != 1 {
			t.Fatalf("expected deezer match with 1 album, got %+v", match)
		}
		if search, albums := fallback.Calls(); search != 0 || albums != 0 {
			t.Errorf("expected fallback to be untouched, got %d searches %d album calls", search, albums)
		}

		stats := agg.Stats()
		if stats.TotalSearches != 1 || stats.Successes[models.SourceDeezer] != 1 || stats.TotalAlbums != 1 {
			t.Errorf("unexpected stats %+v", stats)
		}
	})

	t.Run("Primary Empty Discography Uses Fallback Albums", func(t *testing.T) {
		primary := tu.NewFakeProvider(models.SourceDeezer).AddArtist("Justice", "10")
		fallback := tu.NewFakeProvider(models.SourceSpotify).AddArtist("Justice", "sp10", album("s1", "Cross", "2007-06-11"))

		match := NewAggregator(primary, fallback, nil).FindArtist(ctx, "Justice")
		if match == nil || match.Artist.Source != models.SourceSpotify || len(match.Albums) != 1 {
			t.Fatalf("expected spotify match, got %+v", match)
		}
	})

	t.Run("Both Empty Returns Primary Artist", func(t *testing.T) {
		primary := tu.NewFakeProvider(models.SourceDeezer).AddArtist("New Act", "5")
		fallback := tu.NewFakeProvider(models.SourceSpotify).AddArtist("New Act", "sp5")

		match := NewAggregator(primary, fallback, nil).FindArtist(ctx, "New Act")
		if match == nil || match.Artist.ID != "5" {
			t.Fatalf("expected primary artist, got %+v", match)
		}
		if match.Albums == nil || len(match.Albums) != 0 {
			t.Errorf("expected empty non-nil albums, got %v", match.Albums)
		}
	})

	t.Run("Primary Not Found Returns Fallback Artist Without Albums", func(t *testing.T) {
		primary := tu.NewFakeProvider(models.SourceDeezer)
		fallback := tu.NewFakeProvider(models.SourceSpotify).AddArtist("Obscure", "sp9")

		match := NewAggregator(primary, fallback, nil).FindArtist(ctx, "Obscure")
		if match == nil || match.Artist.Source != models.SourceSpotify || len(match.Albums) != 0 {
			t.Fatalf("expected spotify artist-only match, got %+v", match)
		}
	})

	t.Run("Primary Transport Error Falls Back", func(t *testing.T) {
		primary := tu.NewFakeProvider(models.SourceDeezer)
		primary.FailSearch(errors.New("connection reset"))
		fallback := tu.NewFakeProvider(models.SourceSpotify).AddArtist("Air", "sp-air", album("s1", "Moon Safari", "1998-01-16"))

		agg := NewAggregator(primary, fallback, nil)
		match := agg.FindArtist(ctx, "Air")
		if match == nil || match.Artist.Source != models.SourceSpotify {
			t.Fatalf("expected fallback match, got %+v", match)
		}
		if agg.Stats().TransportErrors[models.SourceDeezer] != 1 {
			t.Errorf("expected 1 deezer transport error, got %+v", agg.Stats().TransportErrors)
		}
	})

	t.Run("Album Failure Keeps Artist", func(t *testing.T) {
		primary := tu.NewFakeProvider(models.SourceDeezer).AddArtist("Air", "1", album("1", "Moon Safari", "1998-01-16"))
		primary.FailAlbums(errors.New("timeout"))

		match := NewAggregator(primary, nil, nil).FindArtist(ctx, "Air")
		if match == nil || match.Artist.ID != "1" || len(match.Albums) != 0 {
			t.Fatalf("expected artist with no albums, got %+v", match)
		}
	})

	t.Run("Neither Provider Finds Artist", func(t *testing.T) {
		agg := NewAggregator(tu.NewFakeProvider(models.SourceDeezer), tu.NewFakeProvider(models.SourceSpotify), nil)
		if match := agg.FindArtist(ctx, "Nobody"); match != nil {
			t.Fatalf("expected nil, got %+v", match)
		}

		stats := agg.Stats()
		if stats.Failures != 1 || stats.SuccessRate() != 0 {
			t.Errorf("expected 1 failure, got %+v", stats)
		}
	})
}

func TestAggregatorFindReleasesForDateUpdate(t *testing.T) {
	primary := tu.NewFakeProvider(models.SourceDeezer)
	fallback := tu.NewFakeProvider(models.SourceSpotify).AddArtist("Air", "sp-air",
		album("s1", "Moon Safari (Remastered)", "1998-01-16"),
		album("s2", "Talkie Walkie - Single", "2004-01-26"),
		album("s3", "Pocket Symphony", ""),
	)

	releases := []*models.Release{
		{ID: "r1", Title: "Moon Safari"},
		{ID: "r2", Title: "talkie walkie"},
		{ID: "r3", Title: "Pocket Symphony"},
		{ID: "r4", Title: "10 000 Hz Legend"},
	}

	matches := NewAggregator(primary, fallback, nil).FindReleasesForDateUpdate(context.Background(), "Air", releases)
	if len(matches) != 2 {
		t.Fatalf("expected 2 dated matches, got %d", len(matches))
	}
	if matches[0].Release.ID != "r1" || matches[0].Album.ReleaseDate != "1998-01-16" {
		t.Errorf("unexpected first match %+v", matches[0])
	}
	if matches[1].Release.ID != "r2" || matches[1].Album.ID != "s2" {
		t.Errorf("unexpected second match %+v", matches[1])
	}
	if search, _ := primary.Calls(); search != 0 {
		t.Errorf("expected primary to be skipped, got %d searches", search)
	}
}

func TestAggregatorFetchAlbums(t *testing.T) {
	primary := tu.NewFakeProvider(models.SourceDeezer).AddArtist("Air", "1", album("1", "Moon Safari", "1998-01-16"))
	agg := NewAggregator(primary, nil, nil)

	albums, err := agg.FetchAlbums(context.Background(), models.SourceDeezer, "1")
	if err != nil || len(albums) != 1 {
		t.Fatalf("expected 1 album, got %v (%v)", albums, err)
	}

	if _, err := agg.FetchAlbums(context.Background(), models.SourceSpotify, "x"); err == nil {
		t.Error("expected error for unconfigured provider")
	}

	if got := agg.Providers(); len(got) != 1 || got[0] != models.SourceDeezer {
		t.Errorf("unexpected providers %v", got)
	}
}
