// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/jmoiron/sqlx"
)

// NewTestDB creates a migrated SQLite database in a temp dir, closed when the test ends.
//
// A file-backed database is used so goroutines holding separate pool connections see the same data.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := shared.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// FakeProvider is a scripted metadata provider that counts calls.
type FakeProvider struct {
	Name models.Source

	mu          sync.Mutex
	artists     map[string]*models.UnifiedArtist
	albums      map[string][]models.UnifiedAlbum
	searchErr   error
	albumsErr   error
	searchCalls int
	albumCalls  int
}

// NewFakeProvider creates an empty FakeProvider for source.
func NewFakeProvider(source models.Source) *FakeProvider {
	return &FakeProvider{
		Name:    source,
		artists: make(map[string]*models.UnifiedArtist),
		albums:  make(map[string][]models.UnifiedAlbum),
	}
}

// AddArtist registers an artist under name with the given albums. Source fields are filled in.
func (f *FakeProvider) AddArtist(name, id string, albums ...models.UnifiedAlbum) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.artists[name] = &models.UnifiedArtist{ID: id, Name: name, Source: f.Name}
	for i := range albums {
		albums[i].Source = f.Name
		if albums[i].AlbumType == "" {
			albums[i].AlbumType = models.AlbumTypeAlbum
		}
	}
	f.albums[id] = albums
	return f
}

// SetAlbums replaces the discography returned for artist id.
func (f *FakeProvider) SetAlbums(id string, albums ...models.UnifiedAlbum) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range albums {
		albums[i].Source = f.Name
		if albums[i].AlbumType == "" {
			albums[i].AlbumType = models.AlbumTypeAlbum
		}
	}
	f.albums[id] = albums
}

// FailSearch makes every SearchArtist call return err.
func (f *FakeProvider) FailSearch(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchErr = err
}

// FailAlbums makes every GetArtistAlbums call return err.
func (f *FakeProvider) FailAlbums(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.albumsErr = err
}

func (f *FakeProvider) Source() models.Source { return f.Name }

func (f *FakeProvider) SearchArtist(ctx context.Context, name string) (*models.UnifiedArtist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	a, ok := f.artists[name]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *FakeProvider) GetArtistAlbums(ctx context.Context, id string) ([]models.UnifiedAlbum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.albumCalls++
	if f.albumsErr != nil {
		return nil, f.albumsErr
	}
	return append([]models.UnifiedAlbum(nil), f.albums[id]...), nil
}

// Calls returns the number of SearchArtist and GetArtistAlbums calls so far.
func (f *FakeProvider) Calls() (search, albums int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls, f.albumCalls
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}
