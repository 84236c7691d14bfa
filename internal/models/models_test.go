package models

import (
	"testing"
)

func TestGenreNormalization(t *testing.T) {
	t.Run("bare strings become named genres", func(t *testing.T) {
		values, err := ParseGenreValues([]byte(`["Rock", "Pop"]`))
		if err != nil {
			t.Fatalf("failed to parse genres: %v", err)
		}

		got := NormalizeGenres(values)
		if len(got) != 2 {
			t.Fatalf("expected 2 genres, got %d", len(got))
		}
		if got[0].Name != "Rock" || got[0].ID != nil {
			t.Errorf("expected {Rock}, got %+v", got[0])
		}
		if got[1].Name != "Pop" || got[1].ID != nil {
			t.Errorf("expected {Pop}, got %+v", got[1])
		}
	})

	t.Run("objects keep their id", func(t *testing.T) {
		values, err := ParseGenreValues([]byte(`[{"name": "Jazz", "id": 12}]`))
		if err != nil {
			t.Fatalf("failed to parse genres: %v", err)
		}

		got := NormalizeGenres(values)
		if len(got) != 1 {
			t.Fatalf("expected 1 genre, got %d", len(got))
		}
		if got[0].Name != "Jazz" {
			t.Errorf("expected name Jazz, got %s", got[0].Name)
		}
		if got[0].ID == nil || *got[0].ID != 12 {
			t.Errorf("expected id 12, got %v", got[0].ID)
		}
	})

	t.Run("null degrades to unknown", func(t *testing.T) {
		values, err := ParseGenreValues([]byte(`[null]`))
		if err != nil {
			t.Fatalf("failed to parse genres: %v", err)
		}

		got := NormalizeGenres(values)
		if len(got) != 1 || got[0].Name != UnknownName || got[0].ID != nil {
			t.Errorf("expected [{Unknown}], got %+v", got)
		}
	})

	t.Run("other shapes degrade to unknown", func(t *testing.T) {
		values, err := ParseGenreValues([]byte(`[42, {"label": "x"}, ""]`))
		if err != nil {
			t.Fatalf("failed to parse genres: %v", err)
		}

		for i, g := range NormalizeGenres(values) {
			if g.Name != UnknownName {
				t.Errorf("genre %d: expected Unknown, got %+v", i, g)
			}
		}
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		if got := NormalizeGenres(nil); got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("non-array payload is an error", func(t *testing.T) {
		if _, err := ParseGenreValues([]byte(`"Rock"`)); err == nil {
			t.Error("expected error for non-array payload")
		}
	})
}

func TestContributorNormalization(t *testing.T) {
	values, err := ParseContributorValues([]byte(`["Guest", {"name": "Main Act", "role": "Featured", "id": 7}, {"name": "No Role"}, null, true]`))
	if err != nil {
		t.Fatalf("failed to parse contributors: %v", err)
	}

	got := NormalizeContributors(values)
	if len(got) != 5 {
		t.Fatalf("expected 5 contributors, got %d", len(got))
	}

	tt := []struct {
		name string
		role string
		id   *int64
	}{
		{name: "Guest", role: DefaultContributorRole},
		{name: "Main Act", role: "Featured"},
		{name: "No Role", role: DefaultContributorRole},
		{name: UnknownName, role: DefaultContributorRole},
		{name: UnknownName, role: DefaultContributorRole},
	}

	for i, want := range tt {
		if got[i].Name != want.name || got[i].Role != want.role {
			t.Errorf("contributor %d: expected %s/%s, got %+v", i, want.name, want.role, got[i])
		}
	}

	if got[1].ID == nil || *got[1].ID != 7 {
		t.Errorf("expected id 7 to be preserved, got %v", got[1].ID)
	}
}

func TestJSONColumns(t *testing.T) {
	t.Run("Genres store empty as NULL", func(t *testing.T) {
		v, err := Genres(nil).Value()
		if err != nil || v != nil {
			t.Errorf("expected nil value, got %v (%v)", v, err)
		}
	})

	t.Run("Genres scan from string and bytes", func(t *testing.T) {
		for _, raw := range []any{`[{"name":"Rock"}]`, []byte(`[{"name":"Rock"}]`)} {
			var g Genres
			if err := g.Scan(raw); err != nil {
				t.Fatalf("failed to scan %T: %v", raw, err)
			}
			if len(g) != 1 || g[0].Name != "Rock" {
				t.Errorf("unexpected genres from %T: %+v", raw, g)
			}
		}
	})

	t.Run("StringSlice round trips", func(t *testing.T) {
		v, err := StringSlice{"1", "2"}.Value()
		if err != nil {
			t.Fatalf("failed to encode: %v", err)
		}

		var s StringSlice
		if err := s.Scan(v); err != nil {
			t.Fatalf("failed to scan: %v", err)
		}
		if len(s) != 2 || s[0] != "1" || s[1] != "2" {
			t.Errorf("unexpected slice %v", s)
		}
	})

	t.Run("StreamingLinks empty is an object", func(t *testing.T) {
		v, err := StreamingLinks(nil).Value()
		if err != nil || v != "{}" {
			t.Errorf("expected {}, got %v (%v)", v, err)
		}
	})

	t.Run("NULL leaves value empty", func(t *testing.T) {
		var c Contributors
		if err := c.Scan(nil); err != nil || c != nil {
			t.Errorf("expected nil contributors, got %+v (%v)", c, err)
		}
	})

	t.Run("unsupported type is an error", func(t *testing.T) {
		var s StringSlice
		if err := s.Scan(42); err == nil {
			t.Error("expected error scanning int")
		}
	})
}

func TestSourceSlots(t *testing.T) {
	a := &Artist{Name: "X"}
	a.SetSourceID(SourceDeezer, "27")

	if a.SourceID(SourceDeezer) != "27" {
		t.Errorf("expected deezer id 27, got %q", a.SourceID(SourceDeezer))
	}
	if a.SourceID(SourceSpotify) != "" {
		t.Errorf("expected empty spotify id, got %q", a.SourceID(SourceSpotify))
	}

	r := &Release{ArtistID: "a", Title: "A"}
	r.SetSourceID(SourceSpotify, "sp1")
	if r.SpotifyID == nil || *r.SpotifyID != "sp1" {
		t.Errorf("expected spotify id sp1, got %v", r.SpotifyID)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("expected valid release, got %v", err)
	}

	if _, err := ParseSource("tidal"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestPercent(t *testing.T) {
	tt := []struct {
		processed, total, want int
	}{
		{0, 0, 0},
		{0, 4, 0},
		{1, 4, 25},
		{1, 3, 33},
		{4, 4, 100},
		{5, 4, 100},
	}

	for _, tc := range tt {
		if got := Percent(tc.processed, tc.total); got != tc.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tc.processed, tc.total, got, tc.want)
		}
	}
}

func TestDiscographyCacheIDSet(t *testing.T) {
	var nilCache *DiscographyCache
	if len(nilCache.IDSet()) != 0 {
		t.Error("nil cache should yield an empty set")
	}

	set := (&DiscographyCache{AlbumIDs: StringSlice{"1", "2", "2"}}).IDSet()
	if len(set) != 2 {
		t.Errorf("expected 2 distinct ids, got %d", len(set))
	}
	if _, ok := set["2"]; !ok {
		t.Error("expected 2 in set")
	}
	if _, ok := set["3"]; ok {
		t.Error("did not expect 3 in set")
	}
}
