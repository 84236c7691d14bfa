package services

import (
	"sync"

	"github.com/desertthunder/crate/internal/models"
)

// Stats accumulates aggregator outcomes. Safe for concurrent use.
type Stats struct {
	mu              sync.Mutex
	searches        int
	successes       map[models.Source]int
	transportErrors map[models.Source]int
	failures        int
	albums          int
}

// StatsSnapshot is a point-in-time copy of [Stats].
type StatsSnapshot struct {
	TotalSearches   int                   `json:"total_searches"`
	Successes       map[models.Source]int `json:"successes"`
	TransportErrors map[models.Source]int `json:"transport_errors"`
	Failures        int                   `json:"failures"`
	TotalAlbums     int                   `json:"total_albums"`
	AverageAlbums   float64               `json:"average_albums"`
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{
		successes:       make(map[models.Source]int),
		transportErrors: make(map[models.Source]int),
	}
}

func (s *Stats) recordSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
}

func (s *Stats) recordSuccess(source models.Source, albums int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes[source]++
	s.albums += albums
}

func (s *Stats) recordTransportError(source models.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transportErrors[source]++
}

func (s *Stats) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
}

// Snapshot copies the current counters. AverageAlbums is albums per successful search.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		TotalSearches:   s.searches,
		Successes:       make(map[models.Source]int, len(s.successes)),
		TransportErrors: make(map[models.Source]int, len(s.transportErrors)),
		Failures:        s.failures,
		TotalAlbums:     s.albums,
	}

	total := 0
	for k, v := range s.successes {
		snap.Successes[k] = v
		total += v
	}
	for k, v := range s.transportErrors {
		snap.TransportErrors[k] = v
	}
	if total > 0 {
		snap.AverageAlbums = float64(s.albums) / float64(total)
	}
	return snap
}

// SuccessRate is the share of searches that produced an artist, in [0, 1].
func (s StatsSnapshot) SuccessRate() float64 {
	if s.TotalSearches == 0 {
		return 0
	}
	return float64(s.TotalSearches-s.Failures) / float64(s.TotalSearches)
}
