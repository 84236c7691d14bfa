package models

// TrackArtist is a structured track credit, optionally carrying the provider-native artist ID.
type TrackArtist struct {
	Name       string `json:"name"`
	Source     Source `json:"source,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
}

// Track is a playlist entry. Parsers fill either Artist or Artists.
type Track struct {
	Title   string        `json:"title"`
	Artist  string        `json:"artist,omitempty"`
	Artists []TrackArtist `json:"artists,omitempty"`
}

// ParsedPlaylist is the parser's output for one playlist URL.
type ParsedPlaylist struct {
	URL           string   `json:"url"`
	Name          string   `json:"name"`
	Tracks        []Track  `json:"tracks"`
	UniqueArtists []string `json:"unique_artists"`
}

// BatchParseResult splits a multi-playlist parse into successes and failed URLs.
type BatchParseResult struct {
	Successful []ParsedPlaylist `json:"successful"`
	Failed     []string         `json:"failed"`
}

// ArtistHint is a de-duplicated artist name with an optional provider-native ID from the playlist.
type ArtistHint struct {
	Name       string
	Source     Source
	ProviderID string
}
