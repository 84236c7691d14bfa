package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownName is the sentinel name for genre and contributor payloads of an unrecognized shape.
const UnknownName = "Unknown"

// GenreValue is a raw genre as delivered by a provider.
//
// Variants: [GenreName], [GenreObject], [GenreUnknown]. A nil GenreValue is treated as unknown.
type GenreValue interface{ isGenreValue() }

// GenreName is a bare genre string (Spotify).
type GenreName string

// GenreObject is a structured genre with an optional provider ID (Deezer).
type GenreObject struct {
	Name string
	ID   *int64
}

// GenreUnknown holds a payload of any other shape.
type GenreUnknown struct{ Raw json.RawMessage }

func (GenreName) isGenreValue()    {}
func (GenreObject) isGenreValue()  {}
func (GenreUnknown) isGenreValue() {}

// ContributorValue is a raw contributor as delivered by a provider.
//
// Variants: [ContributorName], [ContributorObject], [ContributorUnknown].
type ContributorValue interface{ isContributorValue() }

// ContributorName is a bare contributor name.
type ContributorName string

// ContributorObject is a structured contributor with role and optional provider ID.
type ContributorObject struct {
	Name string
	Role string
	ID   *int64
}

// ContributorUnknown holds a payload of any other shape.
type ContributorUnknown struct{ Raw json.RawMessage }

func (ContributorName) isContributorValue()    {}
func (ContributorObject) isContributorValue()  {}
func (ContributorUnknown) isContributorValue() {}

// Genre is the persisted genre shape.
type Genre struct {
	Name string `json:"name"`
	ID   *int64 `json:"id,omitempty"`
}

// Contributor is the persisted contributor shape.
type Contributor struct {
	Name string `json:"name"`
	Role string `json:"role"`
	ID   *int64 `json:"id,omitempty"`
}

// DefaultContributorRole is assigned to contributors delivered without a role.
const DefaultContributorRole = "Main"

// NormalizeGenre converts any [GenreValue] variant into a [Genre].
func NormalizeGenre(v GenreValue) Genre {
	switch g := v.(type) {
	case GenreName:
		if name := strings.TrimSpace(string(g)); name != "" {
			return Genre{Name: name}
		}
	case GenreObject:
		if name := strings.TrimSpace(g.Name); name != "" {
			return Genre{Name: name, ID: g.ID}
		}
	}
	return Genre{Name: UnknownName}
}

// NormalizeGenres converts a provider genre list, returning nil for an empty input.
func NormalizeGenres(values []GenreValue) Genres {
	if len(values) == 0 {
		return nil
	}
	out := make(Genres, 0, len(values))
	for _, v := range values {
		out = append(out, NormalizeGenre(v))
	}
	return out
}

// NormalizeContributor converts any [ContributorValue] variant into a [Contributor].
func NormalizeContributor(v ContributorValue) Contributor {
	switch c := v.(type) {
	case ContributorName:
		if name := strings.TrimSpace(string(c)); name != "" {
			return Contributor{Name: name, Role: DefaultContributorRole}
		}
	case ContributorObject:
		if name := strings.TrimSpace(c.Name); name != "" {
			role := c.Role
			if role == "" {
				role = DefaultContributorRole
			}
			return Contributor{Name: name, Role: role, ID: c.ID}
		}
	}
	return Contributor{Name: UnknownName, Role: DefaultContributorRole}
}

// NormalizeContributors converts a provider contributor list, returning nil for an empty input.
func NormalizeContributors(values []ContributorValue) Contributors {
	if len(values) == 0 {
		return nil
	}
	out := make(Contributors, 0, len(values))
	for _, v := range values {
		out = append(out, NormalizeContributor(v))
	}
	return out
}

type rawNamed struct {
	Name *string `json:"name"`
	Role string  `json:"role"`
	ID   *int64  `json:"id"`
}

// ParseGenreValues decodes a JSON array whose elements may be strings, objects or anything else.
func ParseGenreValues(data []byte) ([]GenreValue, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("genres must be a JSON array: %w", err)
	}

	out := make([]GenreValue, 0, len(raws))
	for _, raw := range raws {
		out = append(out, parseGenreValue(raw))
	}
	return out, nil
}

func parseGenreValue(raw json.RawMessage) GenreValue {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return GenreName(s)
	}

	var obj rawNamed
	if err := json.Unmarshal(trimmed, &obj); err == nil && obj.Name != nil {
		return GenreObject{Name: *obj.Name, ID: obj.ID}
	}

	return GenreUnknown{Raw: raw}
}

// ParseContributorValues decodes a JSON array of contributor payloads of mixed shape.
func ParseContributorValues(data []byte) ([]ContributorValue, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("contributors must be a JSON array: %w", err)
	}

	out := make([]ContributorValue, 0, len(raws))
	for _, raw := range raws {
		trimmed := bytes.TrimSpace(raw)
		if bytes.Equal(trimmed, []byte("null")) {
			out = append(out, nil)
			continue
		}

		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			out = append(out, ContributorName(s))
			continue
		}

		var obj rawNamed
		if err := json.Unmarshal(trimmed, &obj); err == nil && obj.Name != nil {
			out = append(out, ContributorObject{Name: *obj.Name, Role: obj.Role, ID: obj.ID})
			continue
		}

		out = append(out, ContributorUnknown{Raw: raw})
	}
	return out, nil
}

// StringSlice is a JSON-encoded TEXT column.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	return jsonValue(s)
}

func (s *StringSlice) Scan(value any) error {
	return scanJSON(value, s)
}

// Genres is a nullable JSON-encoded TEXT column. An empty list is stored as NULL.
type Genres []Genre

func (g Genres) Value() (driver.Value, error) {
	if len(g) == 0 {
		return nil, nil
	}
	return jsonValue(g)
}

func (g *Genres) Scan(value any) error {
	return scanJSON(value, g)
}

// Names returns the genre names in order.
func (g Genres) Names() []string {
	names := make([]string, 0, len(g))
	for _, genre := range g {
		names = append(names, genre.Name)
	}
	return names
}

// Contributors is a nullable JSON-encoded TEXT column. An empty list is stored as NULL.
type Contributors []Contributor

func (c Contributors) Value() (driver.Value, error) {
	if len(c) == 0 {
		return nil, nil
	}
	return jsonValue(c)
}

func (c *Contributors) Scan(value any) error {
	return scanJSON(value, c)
}

// StreamingLinks maps a provider to the release's URL on that provider.
type StreamingLinks map[Source]string

func (l StreamingLinks) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "{}", nil
	}
	return jsonValue(l)
}

func (l *StreamingLinks) Scan(value any) error {
	return scanJSON(value, l)
}

func jsonValue(v any) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// scanJSON decodes a TEXT or BLOB column into dest. NULL and empty values leave dest zeroed.
func scanJSON(value any, dest any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %T", value, dest)
	}

	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dest)
}
