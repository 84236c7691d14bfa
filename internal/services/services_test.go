package services

import (
	"testing"

	"github.com/desertthunder/crate/internal/models"
)

func TestNormalizeTitle(t *testing.T) {
	tt := []struct {
		in, want string
	}{
		{"Discovery", "discovery"},
		{"Midnight - Single", "midnight"},
		{"Midnight - EP", "midnight"},
		{"Homework (Remastered)", "homework"},
		{"Random Access Memories [10th Anniversary Edition]", "random access memories"},
		{"Alive   2007 (Live) - Album", "alive 2007"},
		{"Half-Life", "half-life"},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			if got := NormalizeTitle(tc.in); got != tc.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestFinalizeAlbums(t *testing.T) {
	albums := []models.UnifiedAlbum{
		{ID: "1", ReleaseDate: "2001-03-07"},
		{ID: "2", ReleaseDate: ""},
		{ID: "3", ReleaseDate: "2013-05-17"},
		{ID: "1", ReleaseDate: "2099-01-01"},
		{ID: "4", ReleaseDate: "1997-01-20"},
	}

	got := finalizeAlbums(albums)
	want := []string{"3", "1", "4", "2"}

	if len(got) != len(want) {
		t.Fatalf("expected %d albums, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	if got[1].ReleaseDate != "2001-03-07" {
		t.Errorf("expected first occurrence of duplicate to win, got %s", got[1].ReleaseDate)
	}
}

func TestNormalizeAlbumType(t *testing.T) {
	tt := map[string]string{
		"album":       models.AlbumTypeAlbum,
		"single":      models.AlbumTypeSingle,
		"ep":          models.AlbumTypeSingle,
		"compile":     models.AlbumTypeCompilation,
		"compilation": models.AlbumTypeCompilation,
		"":            models.AlbumTypeAlbum,
	}
	for in, want := range tt {
		if got := normalizeAlbumType(in); got != want {
			t.Errorf("normalizeAlbumType(%q) = %q, want %q", in, got, want)
		}
	}
}
