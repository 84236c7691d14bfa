// package jobs runs playlist imports in the background and tracks them as persisted import jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
)

// InterruptedMessage is stored on jobs that were still running when the previous process exited.
const InterruptedMessage = "interrupted by restart"

// JobStore persists import jobs and their transitions.
type JobStore interface {
	Create(ctx context.Context, job *models.ImportJob) error
	Get(ctx context.Context, id string) (*models.ImportJob, error)
	List(ctx context.Context, limit int) ([]*models.ImportJob, error)
	MarkProcessing(ctx context.Context, id string, at time.Time) error
	UpdateProgress(ctx context.Context, id string, processed, total int, stats *models.ImportStats) error
	MarkCompleted(ctx context.Context, id string, stats *models.ImportStats, at time.Time) error
	MarkFailed(ctx context.Context, id, message string, at time.Time) error
	FailInterrupted(ctx context.Context, message string) (int64, error)
}

// PlaylistImporter is the orchestrator entry point a job wraps.
type PlaylistImporter interface {
	ImportFromPlaylist(ctx context.Context, url string, progress tasks.ProgressFunc) (*models.ImportStats, error)
}

type handle struct {
	cancelled atomic.Bool
	done      chan struct{}
}

// Runner starts import jobs in their own goroutines and owns the cancellation registry.
type Runner struct {
	store    JobStore
	importer PlaylistImporter
	logger   *log.Logger

	mu      sync.Mutex
	handles map[string]*handle
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// NewRunner creates a Runner. Jobs started by it are detached from the caller's context and
// stop only through [Runner.CancelImportJob] or [Runner.Shutdown].
func NewRunner(store JobStore, importer PlaylistImporter, logger *log.Logger) *Runner {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:    store,
		importer: importer,
		logger:   shared.WithLogger(logger, "component", "jobs"),
		handles:  make(map[string]*handle),
		ctx:      ctx,
		cancel:   cancel,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateImportJob records a pending job for playlistURL and starts it. It returns as soon as the
// row is written.
func (r *Runner) CreateImportJob(ctx context.Context, playlistURL, createdBy string) (string, error) {
	playlistURL = strings.TrimSpace(playlistURL)
	if playlistURL == "" {
		return "", fmt.Errorf("%w: playlist url is required", shared.ErrMissingArgument)
	}

	job := &models.ImportJob{PlaylistURL: playlistURL, CreatedBy: models.StringPtr(createdBy)}
	if err := r.store.Create(ctx, job); err != nil {
		return "", err
	}

	h := &handle{done: make(chan struct{})}
	r.mu.Lock()
	r.handles[job.ID] = h
	r.mu.Unlock()

	r.wg.Add(1)
	go r.process(job.ID, playlistURL, h)

	r.logger.Info("import job created", "job", job.ID, "playlist", playlistURL)
	return job.ID, nil
}

// CancelImportJob flags a running job for cancellation. The job stops at its next progress
// report. It reports false when id is not running in this process.
func (r *Runner) CancelImportJob(id string) bool {
	r.mu.Lock()
	h, ok := r.handles[id]
	r.mu.Unlock()

	if !ok {
		return false
	}
	h.cancelled.Store(true)
	r.logger.Info("import job cancellation requested", "job", id)
	return true
}

// GetImportJob reads a job from storage.
func (r *Runner) GetImportJob(ctx context.Context, id string) (*models.ImportJob, error) {
	return r.store.Get(ctx, id)
}

// GetAllImportJobs reads every job from storage, newest first.
func (r *Runner) GetAllImportJobs(ctx context.Context) ([]*models.ImportJob, error) {
	return r.store.List(ctx, 0)
}

// Running returns the number of jobs currently registered in this process.
func (r *Runner) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Await blocks until job id finishes (or ctx ends) and returns its stored state.
func (r *Runner) Await(ctx context.Context, id string) (*models.ImportJob, error) {
	r.mu.Lock()
	h, ok := r.handles[id]
	r.mu.Unlock()

	if ok {
		select {
		case <-h.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.store.Get(ctx, id)
}

// Wait blocks until every started job has finished.
func (r *Runner) Wait() { r.wg.Wait() }

// Shutdown cancels the context of every running job and waits for them, or for ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecoverInterrupted fails jobs a previous process left pending or processing.
func (r *Runner) RecoverInterrupted(ctx context.Context) (int64, error) {
	n, err := r.store.FailInterrupted(ctx, InterruptedMessage)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.Warn("marked interrupted import jobs as failed", "count", n)
	}
	return n, nil
}

func (r *Runner) process(id, playlistURL string, h *handle) {
	defer r.wg.Done()
	defer close(h.done)
	defer r.unregister(id)

	logger := shared.WithLogger(r.logger, "job", id)
	// Terminal writes must land even when the runner is shutting down.
	store := context.WithoutCancel(r.ctx)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("import job panicked", "panic", rec)
			r.fail(store, logger, id, fmt.Sprintf("panic: %v", rec))
		}
	}()

	if err := r.store.MarkProcessing(store, id, r.now()); err != nil {
		logger.Error("failed to start import job", "error", err)
		r.fail(store, logger, id, err.Error())
		return
	}

	progress := func(u tasks.ProgressUpdate) error {
		if h.cancelled.Load() {
			return shared.ErrJobCancelled
		}
		if u.Phase != tasks.ProcessArtists {
			return nil
		}
		if err := r.store.UpdateProgress(store, id, u.Step, u.Total, u.Stats); err != nil {
			logger.Warn("failed to persist progress", "error", err)
		}
		return nil
	}

	stats, err := r.importer.ImportFromPlaylist(r.ctx, playlistURL, progress)
	if err != nil {
		if errors.Is(err, shared.ErrJobCancelled) {
			logger.Info("import job cancelled")
		} else {
			logger.Error("import job failed", "error", err)
		}
		r.fail(store, logger, id, err.Error())
		return
	}

	if err := r.store.MarkCompleted(store, id, stats, r.now()); err != nil {
		logger.Error("failed to complete import job", "error", err)
		r.fail(store, logger, id, err.Error())
		return
	}

	logger.Info("import job completed", "new_releases", stats.NewReleases, "errors", len(stats.Errors))
}

func (r *Runner) fail(ctx context.Context, logger *log.Logger, id, message string) {
	if err := r.store.MarkFailed(ctx, id, message, r.now()); err != nil {
		logger.Error("failed to mark import job failed", "error", err)
	}
}

func (r *Runner) unregister(id string) {
	r.mu.Lock()
	delete(r.handles, id)
	r.mu.Unlock()
}
