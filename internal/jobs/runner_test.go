package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
	tu "github.com/desertthunder/crate/internal/testing"
)

// scriptedImporter reports two artists of progress, optionally pausing between them.
type scriptedImporter struct {
	mu      sync.Mutex
	fail    map[string]error
	panics  map[string]bool
	started chan string
	release chan struct{}
}

func (s *scriptedImporter) ImportFromPlaylist(ctx context.Context, url string, progress tasks.ProgressFunc) (*models.ImportStats, error) {
	s.mu.Lock()
	failErr, shouldPanic := s.fail[url], s.panics[url]
	s.mu.Unlock()

	if shouldPanic {
		panic("boom")
	}
	if failErr != nil {
		return models.NewImportStats(), failErr
	}

	stats := models.NewImportStats()
	if err := progress(tasks.ProgressUpdate{Phase: tasks.ProcessArtists, Total: 2, Stats: stats.Clone()}); err != nil {
		return stats, err
	}

	stats.NewArtists++
	stats.NewReleases += 3
	if err := progress(tasks.ProgressUpdate{Phase: tasks.ProcessArtists, Step: 1, Total: 2, Stats: stats.Clone()}); err != nil {
		return stats, err
	}

	if s.started != nil {
		s.started <- url
	}
	if s.release != nil {
		<-s.release
	}

	stats.UpdatedArtists++
	stats.SkippedReleases += 2
	stats.AddError("Nobody: no provider match")
	if err := progress(tasks.ProgressUpdate{Phase: tasks.ProcessArtists, Step: 2, Total: 2, Stats: stats.Clone()}); err != nil {
		return stats, err
	}
	return stats, nil
}

func newRunner(t *testing.T, imp PlaylistImporter) (*Runner, *repositories.ImportJobRepository) {
	t.Helper()

	store := repositories.NewImportJobRepository(tu.NewTestDB(t))
	r := NewRunner(store, imp, nil)
	t.Cleanup(r.Wait)
	return r, store
}

func awaitJob(t *testing.T, r *Runner, id string) *models.ImportJob {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	job, err := r.Await(ctx, id)
	if err != nil {
		t.Fatalf("failed to await job: %v", err)
	}
	return job
}

func TestRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("Completes With Counters", func(t *testing.T) {
		r, _ := newRunner(t, &scriptedImporter{})

		id, err := r.CreateImportJob(ctx, "https://www.deezer.com/playlist/1", "alice")
		if err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		job := awaitJob(t, r, id)
		if job.Status != models.JobCompleted {
			t.Fatalf("expected completed, got %s (%v)", job.Status, job.ErrorMessage)
		}
		if job.Progress != 100 || job.TotalArtists != 2 || job.ProcessedArtists != 2 {
			t.Errorf("unexpected progress: %d%% %d/%d", job.Progress, job.ProcessedArtists, job.TotalArtists)
		}
		if job.NewArtists != 1 || job.UpdatedArtists != 1 || job.NewReleases != 3 || job.SkippedReleases != 2 {
			t.Errorf("unexpected counters: %+v", job)
		}
		if job.ErrorCount != 1 || len(job.Errors) != 1 {
			t.Errorf("expected one itemized error, got %v", job.Errors)
		}
		if job.StartedAt == nil || job.CompletedAt == nil {
			t.Error("expected start and completion times")
		}
		if job.CreatedBy == nil || *job.CreatedBy != "alice" {
			t.Errorf("expected created_by alice, got %v", job.CreatedBy)
		}
		if r.Running() != 0 {
			t.Errorf("expected registry to be empty, got %d", r.Running())
		}
	})

	t.Run("Import Error Fails Job", func(t *testing.T) {
		r, _ := newRunner(t, &scriptedImporter{fail: map[string]error{"bad": shared.ErrPlaylistNotFound}})

		id, err := r.CreateImportJob(ctx, "bad", "")
		if err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		job := awaitJob(t, r, id)
		if job.Status != models.JobFailed {
			t.Fatalf("expected failed, got %s", job.Status)
		}
		if job.ErrorMessage == nil || !strings.Contains(*job.ErrorMessage, "playlist not found") {
			t.Errorf("unexpected error message: %v", job.ErrorMessage)
		}
		if job.CreatedBy != nil {
			t.Errorf("expected no creator, got %q", *job.CreatedBy)
		}
	})

	t.Run("Panic Fails Job", func(t *testing.T) {
		r, _ := newRunner(t, &scriptedImporter{panics: map[string]bool{"p": true}})

		id, err := r.CreateImportJob(ctx, "p", "")
		if err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		job := awaitJob(t, r, id)
		if job.Status != models.JobFailed || job.ErrorMessage == nil || !strings.HasPrefix(*job.ErrorMessage, "panic:") {
			t.Errorf("expected panic failure, got %s %v", job.Status, job.ErrorMessage)
		}
		if r.Running() != 0 {
			t.Errorf("expected registry to be empty, got %d", r.Running())
		}
	})

	t.Run("Cancel", func(t *testing.T) {
		imp := &scriptedImporter{started: make(chan string, 1), release: make(chan struct{})}
		r, _ := newRunner(t, imp)

		id, err := r.CreateImportJob(ctx, "slow", "")
		if err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
		<-imp.started

		current, err := r.GetImportJob(ctx, id)
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}
		if current.Status != models.JobProcessing || current.Progress != 50 {
			t.Errorf("expected processing at 50%%, got %s at %d%%", current.Status, current.Progress)
		}

		if !r.CancelImportJob(id) {
			t.Fatal("expected cancel of a running job to succeed")
		}
		close(imp.release)

		job := awaitJob(t, r, id)
		if job.Status != models.JobFailed {
			t.Fatalf("expected failed, got %s", job.Status)
		}
		if job.ErrorMessage == nil || *job.ErrorMessage != shared.ErrJobCancelled.Error() {
			t.Errorf("expected cancellation message, got %v", job.ErrorMessage)
		}
		if r.CancelImportJob(id) {
			t.Error("expected cancel of a finished job to fail")
		}
	})

	t.Run("Cancel Unknown", func(t *testing.T) {
		r, _ := newRunner(t, &scriptedImporter{})
		if r.CancelImportJob("missing") {
			t.Error("expected false for unknown job")
		}
	})

	t.Run("Missing URL", func(t *testing.T) {
		r, _ := newRunner(t, &scriptedImporter{})
		if _, err := r.CreateImportJob(ctx, "  ", ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("GetImportJob Not Found", func(t *testing.T) {
		r, _ := newRunner(t, &scriptedImporter{})
		if _, err := r.GetImportJob(ctx, "missing"); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("GetAllImportJobs", func(t *testing.T) {
		r, _ := newRunner(t, &scriptedImporter{})
		for _, u := range []string{"a", "b", "c"} {
			if _, err := r.CreateImportJob(ctx, u, ""); err != nil {
				t.Fatalf("failed to create job: %v", err)
			}
		}
		r.Wait()

		jobs, err := r.GetAllImportJobs(ctx)
		if err != nil {
			t.Fatalf("failed to list jobs: %v", err)
		}
		if len(jobs) != 3 {
			t.Fatalf("expected 3 jobs, got %d", len(jobs))
		}
		for _, j := range jobs {
			if j.Status != models.JobCompleted {
				t.Errorf("job %s: expected completed, got %s", j.PlaylistURL, j.Status)
			}
		}
	})

	t.Run("RecoverInterrupted", func(t *testing.T) {
		r, store := newRunner(t, &scriptedImporter{})

		stuck := &models.ImportJob{PlaylistURL: "stuck"}
		if err := store.Create(ctx, stuck); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
		if err := store.MarkProcessing(ctx, stuck.ID, time.Now()); err != nil {
			t.Fatalf("failed to start job: %v", err)
		}

		n, err := r.RecoverInterrupted(ctx)
		if err != nil || n != 1 {
			t.Fatalf("expected 1 recovered job, got %d (%v)", n, err)
		}

		job, err := r.GetImportJob(ctx, stuck.ID)
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}
		if job.Status != models.JobFailed || job.ErrorMessage == nil || *job.ErrorMessage != InterruptedMessage {
			t.Errorf("expected interrupted failure, got %s %v", job.Status, job.ErrorMessage)
		}
	})

	t.Run("Shutdown", func(t *testing.T) {
		r, _ := newRunner(t, &scriptedImporter{})
		if _, err := r.CreateImportJob(ctx, "a", ""); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := r.Shutdown(sctx); err != nil {
			t.Errorf("unexpected shutdown error: %v", err)
		}
	})
}
