package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// JobRunner starts and awaits import jobs.
type JobRunner interface {
	CreateImportJob(ctx context.Context, playlistURL, createdBy string) (string, error)
	Await(ctx context.Context, id string) (*models.ImportJob, error)
}

// LogStore persists scheduled run logs.
type LogStore interface {
	Start(ctx context.Context, log *models.ImportLog) error
	Finish(ctx context.Context, log *models.ImportLog) error
}

// SchedulerCreator is recorded as created_by on jobs the scheduler starts.
const SchedulerCreator = "scheduler"

// Scheduler imports a fixed playlist list on an interval. Runs never overlap.
type Scheduler struct {
	runner    JobRunner
	logs      LogStore
	playlists []string
	interval  time.Duration
	logger    *log.Logger

	running sync.Mutex
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(runner JobRunner, logs LogStore, playlists []string, interval time.Duration, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Scheduler{
		runner:    runner,
		logs:      logs,
		playlists: playlists,
		interval:  interval,
		logger:    shared.WithLogger(logger, "component", "scheduler"),
	}
}

// RunOnce starts one job per playlist, waits for all of them and records the run as an import log.
//
// Returns [shared.ErrRunInProgress] when another run has not finished.
func (s *Scheduler) RunOnce(ctx context.Context) (*models.ImportLog, error) {
	if !s.running.TryLock() {
		return nil, shared.ErrRunInProgress
	}
	defer s.running.Unlock()

	return s.run(ctx)
}

// Trigger starts a run in the background and returns immediately. The run is detached from ctx
// cancellation. Returns [shared.ErrRunInProgress] when another run has not finished.
func (s *Scheduler) Trigger(ctx context.Context) error {
	if !s.running.TryLock() {
		return shared.ErrRunInProgress
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()

		if _, err := s.run(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("triggered import failed", "error", err)
		}
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context) (*models.ImportLog, error) {
	runs := make(models.PlaylistRuns, len(s.playlists))
	for i, url := range s.playlists {
		runs[i] = models.PlaylistRun{URL: url, Status: models.JobPending}
	}

	entry := &models.ImportLog{Playlists: runs}
	if err := s.logs.Start(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Info("scheduled import started", "log", entry.ID, "playlists", len(runs))

	for i := range entry.Playlists {
		run := &entry.Playlists[i]
		id, err := s.runner.CreateImportJob(ctx, run.URL, SchedulerCreator)
		if err != nil {
			run.Status = models.JobFailed
			run.Error = err.Error()
			continue
		}
		run.JobID = id
	}

	failed := 0
	for i := range entry.Playlists {
		run := &entry.Playlists[i]
		if run.JobID == "" {
			failed++
			entry.ErrorCount++
			continue
		}

		job, err := s.runner.Await(ctx, run.JobID)
		if err != nil {
			run.Error = err.Error()
			failed++
			entry.ErrorCount++
			continue
		}

		run.Status = job.Status
		entry.NewReleases += job.NewReleases
		entry.SkippedReleases += job.SkippedReleases
		entry.ErrorCount += job.ErrorCount
		if job.Status == models.JobFailed {
			failed++
			entry.ErrorCount++
			if job.ErrorMessage != nil {
				run.Error = *job.ErrorMessage
			}
		}
	}

	entry.Status = models.LogCompleted
	if len(entry.Playlists) > 0 && failed == len(entry.Playlists) {
		entry.Status = models.LogFailed
		entry.ErrorMessage = models.StringPtr(fmt.Sprintf("all %d playlists failed", failed))
	}

	if err := s.logs.Finish(context.WithoutCancel(ctx), entry); err != nil {
		return entry, err
	}

	s.logger.Info("scheduled import finished", "log", entry.ID, "status", entry.Status,
		"new_releases", entry.NewReleases, "errors", entry.ErrorCount)
	return entry, nil
}

// Start runs the schedule in the background until ctx ends or [Scheduler.Stop] is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.stop = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("scheduler started", "interval", s.interval, "playlists", len(s.playlists))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil {
					s.logger.Error("scheduled import failed", "error", err)
				}
			}
		}
	}()
}

// Stop ends the schedule and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	if s.stop != nil {
		s.stop()
	}
	s.wg.Wait()
}
