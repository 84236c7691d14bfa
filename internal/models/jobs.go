package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of an [ImportJob].
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ImportJob tracks one background import of a single playlist.
type ImportJob struct {
	ID               string      `db:"id" json:"id"`
	PlaylistURL      string      `db:"playlist_url" json:"playlist_url"`
	Status           JobStatus   `db:"status" json:"status"`
	Progress         int         `db:"progress" json:"progress"`
	TotalArtists     int         `db:"total_artists" json:"total_artists"`
	ProcessedArtists int         `db:"processed_artists" json:"processed_artists"`
	NewArtists       int         `db:"new_artists" json:"new_artists"`
	UpdatedArtists   int         `db:"updated_artists" json:"updated_artists"`
	NewReleases      int         `db:"new_releases" json:"new_releases"`
	SkippedReleases  int         `db:"skipped_releases" json:"skipped_releases"`
	ErrorCount       int         `db:"error_count" json:"error_count"`
	Errors           StringSlice `db:"errors" json:"errors"`
	CreatedBy        *string     `db:"created_by" json:"created_by,omitempty"`
	ErrorMessage     *string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	StartedAt        *time.Time  `db:"started_at" json:"started_at,omitempty"`
	CompletedAt      *time.Time  `db:"completed_at" json:"completed_at,omitempty"`
}

// Validate checks the job has a playlist and a known status.
func (j *ImportJob) Validate() error {
	if j.PlaylistURL == "" {
		return fmt.Errorf("import job playlist_url is required")
	}
	switch j.Status {
	case JobPending, JobProcessing, JobCompleted, JobFailed:
	default:
		return fmt.Errorf("invalid import job status %q", j.Status)
	}
	if j.Progress < 0 || j.Progress > 100 {
		return fmt.Errorf("import job progress out of range: %d", j.Progress)
	}
	return nil
}

// Percent returns processed/total as a whole percentage clamped to [0,100].
func Percent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	p := processed * 100 / total
	if p > 100 {
		return 100
	}
	return p
}

// LogStatus is the state of an [ImportLog].
type LogStatus string

const (
	LogRunning   LogStatus = "running"
	LogCompleted LogStatus = "completed"
	LogFailed    LogStatus = "failed"
)

// PlaylistRun records the job spawned for one playlist during a scheduled run.
type PlaylistRun struct {
	URL    string    `json:"url"`
	JobID  string    `json:"job_id,omitempty"`
	Status JobStatus `json:"status"`
	Error  string    `json:"error,omitempty"`
}

// PlaylistRuns is a JSON-encoded TEXT column.
type PlaylistRuns []PlaylistRun

func (p PlaylistRuns) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "[]", nil
	}
	return jsonValue(p)
}

func (p *PlaylistRuns) Scan(value any) error {
	return scanJSON(value, p)
}

// ImportLog records one scheduled (or manually triggered) run over the configured playlists.
type ImportLog struct {
	ID              string       `db:"id" json:"id"`
	Status          LogStatus    `db:"status" json:"status"`
	Playlists       PlaylistRuns `db:"playlists" json:"playlists"`
	TotalPlaylists  int          `db:"total_playlists" json:"total_playlists"`
	NewReleases     int          `db:"new_releases" json:"new_releases"`
	SkippedReleases int          `db:"skipped_releases" json:"skipped_releases"`
	ErrorCount      int          `db:"error_count" json:"error_count"`
	ErrorMessage    *string      `db:"error_message" json:"error_message,omitempty"`
	StartedAt       time.Time    `db:"started_at" json:"started_at"`
	CompletedAt     *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}

// Validate checks the log status.
func (l *ImportLog) Validate() error {
	switch l.Status {
	case LogRunning, LogCompleted, LogFailed:
		return nil
	default:
		return fmt.Errorf("invalid import log status %q", l.Status)
	}
}

// ImportStats summarizes one orchestrator run.
type ImportStats struct {
	NewArtists      int      `json:"new_artists"`
	UpdatedArtists  int      `json:"updated_artists"`
	NewReleases     int      `json:"new_releases"`
	SkippedReleases int      `json:"skipped_releases"`
	DatesFilled     int      `json:"dates_filled,omitempty"` // release-date backfill only
	Errors          []string `json:"errors"`
}

// NewImportStats returns stats with a non-nil error list.
func NewImportStats() *ImportStats {
	return &ImportStats{Errors: []string{}}
}

// Clone returns a deep copy.
func (s *ImportStats) Clone() *ImportStats {
	cp := *s
	cp.Errors = append([]string{}, s.Errors...)
	return &cp
}

// AddError appends an itemized error.
func (s *ImportStats) AddError(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

// ArtistResult is the outcome of reconciling one artist.
type ArtistResult struct {
	Name            string `json:"name"`
	ArtistID        string `json:"artist_id,omitempty"`
	Created         bool   `json:"created"`
	Source          Source `json:"source,omitempty"`
	NewReleases     int    `json:"new_releases"`
	SkippedReleases int    `json:"skipped_releases"`
	Error           string `json:"error,omitempty"`
}

// OK reports whether the artist was processed without error.
func (r ArtistResult) OK() bool { return r.Error == "" }
