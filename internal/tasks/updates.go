package tasks

import (
	"fmt"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to report status to the CLI progress bar and to persist job progress.
type ProgressUpdate struct {
	Phase   Phase                // Operation phase
	Step    int                  // Current step number within phase
	Total   int                  // Total steps in this phase
	Message string               // Human-readable message for display
	Stats   *models.ImportStats  // Running counters, copied at the time of the update
	Result  *models.ArtistResult // Outcome of the artist that completed this step, if any
}

// Percent returns progress through the phase as 0-100.
func (u ProgressUpdate) Percent() int { return models.Percent(u.Step, u.Total) }

// ProgressFunc receives progress synchronously. A non-nil error aborts the operation and is returned by it.
type ProgressFunc func(ProgressUpdate) error

// Operation phase enumeration
type Phase int

const (
	ParsePlaylists Phase = iota
	ProcessArtists
	RefreshArtists
	BackfillDates
)

func (p Phase) String() string {
	switch p {
	case ParsePlaylists:
		return "parse_playlists"
	case ProcessArtists:
		return "process_artists"
	case RefreshArtists:
		return "refresh_artists"
	case BackfillDates:
		return "backfill_dates"
	default:
		return ""
	}
}

func parsingUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ParsePlaylists,
		Step:    0,
		Total:   count,
		Message: fmt.Sprintf("Parsing %d %s...", count, shared.Pluralize(count, "playlist", "playlists")),
	}
}

func startArtistsUpdate(phase Phase, total int, stats *models.ImportStats) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Resolving %d %s...", total, shared.Pluralize(total, "artist", "artists")),
		Stats:   stats.Clone(),
	}
}

func artistUpdate(phase Phase, step, total int, res models.ArtistResult, stats *models.ImportStats) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s (%d new, %d skipped)", step, total, res.Name, res.NewReleases, res.SkippedReleases)
	if !res.OK() {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, res.Name, res.Error)
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: msg,
		Stats:   stats.Clone(),
		Result:  &res,
	}
}

func backfillUpdate(step, total int, name string, filled int, stats *models.ImportStats) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BackfillDates,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %d %s dated", step, total, name, filled, shared.Pluralize(filled, "release", "releases")),
		Stats:   stats.Clone(),
	}
}
