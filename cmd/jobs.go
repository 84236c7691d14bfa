package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/urfave/cli/v3"
)

// JobsRun creates an import job for a playlist and blocks until it reaches a terminal state.
func (r *Runner) JobsRun(ctx context.Context, cmd *cli.Command) error {
	format, err := r.format(cmd)
	if err != nil {
		return err
	}

	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: playlist URL is required", shared.ErrMissingArgument)
	}

	return r.withApp(-1, func(a *app) error {
		id, err := a.jobs.CreateImportJob(ctx, url, cmd.String("created-by"))
		if err != nil {
			return err
		}
		r.logger.Info("import job started", "job_id", id)

		job, err := a.jobs.Await(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				a.jobs.CancelImportJob(id)
			}
			return err
		}
		return formatter.WriteJob(r.output, format, job)
	})
}

// JobsList prints every import job, newest first.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	format, err := r.format(cmd)
	if err != nil {
		return err
	}

	return r.withApp(-1, func(a *app) error {
		jobs, err := a.jobs.GetAllImportJobs(ctx)
		if err != nil {
			return err
		}
		return formatter.WriteJobs(r.output, format, jobs)
	})
}

// JobsShow prints a single import job.
func (r *Runner) JobsShow(ctx context.Context, cmd *cli.Command) error {
	format, err := r.format(cmd)
	if err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: job id is required", shared.ErrMissingArgument)
	}

	return r.withApp(-1, func(a *app) error {
		job, err := a.jobs.GetImportJob(ctx, id)
		if err != nil {
			return err
		}
		return formatter.WriteJob(r.output, format, job)
	})
}

// JobsLogs prints recent scheduled run logs.
func (r *Runner) JobsLogs(ctx context.Context, cmd *cli.Command) error {
	format, err := r.format(cmd)
	if err != nil {
		return err
	}

	return r.withApp(-1, func(a *app) error {
		logs, err := a.logStore.List(ctx, int(cmd.Int("limit")))
		if err != nil {
			return err
		}
		return formatter.WriteLogs(r.output, format, logs)
	})
}

// JobsSchedule performs one scheduled run over the configured playlists.
func (r *Runner) JobsSchedule(ctx context.Context, cmd *cli.Command) error {
	format, err := r.format(cmd)
	if err != nil {
		return err
	}

	if len(r.config.Scheduler.Playlists) == 0 {
		return fmt.Errorf("%w: scheduler.playlists is empty", shared.ErrInvalidConfig)
	}

	return r.withApp(-1, func(a *app) error {
		entry, err := r.scheduler(a).RunOnce(ctx)
		if err != nil {
			return err
		}
		return formatter.WriteLogs(r.output, format, []*models.ImportLog{entry})
	})
}
