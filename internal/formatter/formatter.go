// package formatter renders import results, jobs, run logs and provider statistics as text, JSON or CSV
package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a flag value to a Format. Empty selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, json or csv)", shared.ErrInvalidArgument, s)
	}
}

// WriteStats renders the summary of one orchestrator run.
func WriteStats(w io.Writer, f Format, stats *models.ImportStats) error {
	if stats == nil {
		stats = models.NewImportStats()
	}

	switch f {
	case FormatJSON:
		return writeJSON(w, stats)
	case FormatCSV:
		rows := [][]string{
			{"metric", "value"},
			{"new_artists", strconv.Itoa(stats.NewArtists)},
			{"updated_artists", strconv.Itoa(stats.UpdatedArtists)},
			{"new_releases", strconv.Itoa(stats.NewReleases)},
			{"skipped_releases", strconv.Itoa(stats.SkippedReleases)},
			{"dates_filled", strconv.Itoa(stats.DatesFilled)},
			{"errors", strconv.Itoa(len(stats.Errors))},
		}
		return writeCSV(w, rows)
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Import summary") + "\n")
	fmt.Fprintf(&b, "  New artists:      %d\n", stats.NewArtists)
	fmt.Fprintf(&b, "  Updated artists:  %d\n", stats.UpdatedArtists)
	fmt.Fprintf(&b, "  New releases:     %s\n", styles.ok.Render(strconv.Itoa(stats.NewReleases)))
	fmt.Fprintf(&b, "  Skipped releases: %d\n", stats.SkippedReleases)
	if stats.DatesFilled > 0 {
		fmt.Fprintf(&b, "  Dates filled:     %d\n", stats.DatesFilled)
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(fmt.Sprintf("%d %s", len(stats.Errors), shared.Pluralize(len(stats.Errors), "error", "errors"))))
		for _, e := range stats.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJobs renders a job list, one row per job.
func WriteJobs(w io.Writer, f Format, jobs []*models.ImportJob) error {
	if jobs == nil {
		jobs = []*models.ImportJob{}
	}

	switch f {
	case FormatJSON:
		return writeJSON(w, jobs)
	case FormatCSV:
		rows := [][]string{{"id", "playlist_url", "status", "progress", "new_releases", "skipped_releases", "errors", "created_at"}}
		for _, j := range jobs {
			rows = append(rows, []string{
				j.ID, j.PlaylistURL, string(j.Status), strconv.Itoa(j.Progress),
				strconv.Itoa(j.NewReleases), strconv.Itoa(j.SkippedReleases), strconv.Itoa(j.ErrorCount),
				j.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return writeCSV(w, rows)
	}

	if len(jobs) == 0 {
		_, err := io.WriteString(w, styles.muted.Render("No import jobs")+"\n")
		return err
	}

	var b strings.Builder
	for _, j := range jobs {
		fmt.Fprintf(&b, "%s  %-10s %3d%%  +%d releases  %s\n",
			j.ID, styles.status(string(j.Status)), j.Progress, j.NewReleases, j.PlaylistURL)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJob renders one job in detail.
func WriteJob(w io.Writer, f Format, job *models.ImportJob) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, job)
	case FormatCSV:
		return WriteJobs(w, f, []*models.ImportJob{job})
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Import job "+job.ID) + "\n")
	fmt.Fprintf(&b, "  Playlist:  %s\n", job.PlaylistURL)
	fmt.Fprintf(&b, "  Status:    %s\n", styles.status(string(job.Status)))
	fmt.Fprintf(&b, "  Progress:  %d%% (%d/%d artists)\n", job.Progress, job.ProcessedArtists, job.TotalArtists)
	fmt.Fprintf(&b, "  Artists:   %d new, %d updated\n", job.NewArtists, job.UpdatedArtists)
	fmt.Fprintf(&b, "  Releases:  %d new, %d skipped\n", job.NewReleases, job.SkippedReleases)
	if job.StartedAt != nil {
		fmt.Fprintf(&b, "  Started:   %s\n", job.StartedAt.UTC().Format(time.RFC3339))
	}
	if job.CompletedAt != nil {
		fmt.Fprintf(&b, "  Finished:  %s\n", job.CompletedAt.UTC().Format(time.RFC3339))
	}
	if job.ErrorMessage != nil {
		fmt.Fprintf(&b, "  Error:     %s\n", styles.err.Render(*job.ErrorMessage))
	}
	for _, e := range job.Errors {
		fmt.Fprintf(&b, "  - %s\n", e)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteLogs renders scheduled run logs.
func WriteLogs(w io.Writer, f Format, logs []*models.ImportLog) error {
	if logs == nil {
		logs = []*models.ImportLog{}
	}

	switch f {
	case FormatJSON:
		return writeJSON(w, logs)
	case FormatCSV:
		rows := [][]string{{"id", "status", "playlists", "new_releases", "skipped_releases", "errors", "started_at"}}
		for _, l := range logs {
			rows = append(rows, []string{
				l.ID, string(l.Status), strconv.Itoa(l.TotalPlaylists), strconv.Itoa(l.NewReleases),
				strconv.Itoa(l.SkippedReleases), strconv.Itoa(l.ErrorCount), l.StartedAt.UTC().Format(time.RFC3339),
			})
		}
		return writeCSV(w, rows)
	}

	if len(logs) == 0 {
		_, err := io.WriteString(w, styles.muted.Render("No scheduled runs")+"\n")
		return err
	}

	var b strings.Builder
	for _, l := range logs {
		fmt.Fprintf(&b, "%s  %s  %s  %d %s, +%d releases, %d errors\n",
			l.StartedAt.UTC().Format(time.RFC3339), l.ID, styles.status(string(l.Status)),
			l.TotalPlaylists, shared.Pluralize(l.TotalPlaylists, "playlist", "playlists"), l.NewReleases, l.ErrorCount)
		for _, p := range l.Playlists {
			line := fmt.Sprintf("    %s %s", styles.status(string(p.Status)), p.URL)
			if p.Error != "" {
				line += " (" + p.Error + ")"
			}
			b.WriteString(line + "\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteProviderStats renders an aggregator statistics snapshot.
func WriteProviderStats(w io.Writer, f Format, snap services.StatsSnapshot) error {
	sources := providerKeys(snap)

	switch f {
	case FormatJSON:
		return writeJSON(w, snap)
	case FormatCSV:
		rows := [][]string{{"provider", "successes", "transport_errors"}}
		for _, s := range sources {
			rows = append(rows, []string{s, strconv.Itoa(snap.Successes[models.Source(s)]), strconv.Itoa(snap.TransportErrors[models.Source(s)])})
		}
		return writeCSV(w, rows)
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Provider statistics") + "\n")
	fmt.Fprintf(&b, "  Searches:      %d\n", snap.TotalSearches)
	fmt.Fprintf(&b, "  Failures:      %d\n", snap.Failures)
	fmt.Fprintf(&b, "  Success rate:  %.1f%%\n", snap.SuccessRate()*100)
	fmt.Fprintf(&b, "  Albums:        %d (%.1f per match)\n", snap.TotalAlbums, snap.AverageAlbums)
	for _, s := range sources {
		fmt.Fprintf(&b, "  %-8s %d found, %d transport errors\n", s+":",
			snap.Successes[models.Source(s)], snap.TransportErrors[models.Source(s)])
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func providerKeys(snap services.StatsSnapshot) []string {
	seen := map[string]bool{}
	for s := range snap.Successes {
		seen[string(s)] = true
	}
	for s := range snap.TransportErrors {
		seen[string(s)] = true
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
