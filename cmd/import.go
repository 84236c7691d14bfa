package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

type importFunc func(ctx context.Context, a *app, progress tasks.ProgressFunc) (*models.ImportStats, error)

// ImportPlaylist imports every artist on one playlist URL.
func (r *Runner) ImportPlaylist(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: playlist URL is required", shared.ErrMissingArgument)
	}

	return r.runImport(ctx, cmd, func(ctx context.Context, a *app, progress tasks.ProgressFunc) (*models.ImportStats, error) {
		return a.importer.ImportFromPlaylist(ctx, url, progress)
	})
}

// ImportBatch imports the union of artists across several playlist URLs.
func (r *Runner) ImportBatch(ctx context.Context, cmd *cli.Command) error {
	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		return fmt.Errorf("%w: at least one playlist URL is required", shared.ErrMissingArgument)
	}

	return r.runImport(ctx, cmd, func(ctx context.Context, a *app, progress tasks.ProgressFunc) (*models.ImportStats, error) {
		return a.importer.ImportFromMultiplePlaylists(ctx, urls, progress)
	})
}

// RefreshAll re-syncs every artist that has a provider ID.
func (r *Runner) RefreshAll(ctx context.Context, cmd *cli.Command) error {
	return r.runImport(ctx, cmd, func(ctx context.Context, a *app, progress tasks.ProgressFunc) (*models.ImportStats, error) {
		return a.importer.UpdateAllArtists(ctx, progress)
	})
}

// RefreshStale re-syncs artists outside the stale window.
func (r *Runner) RefreshStale(ctx context.Context, cmd *cli.Command) error {
	return r.runImport(ctx, cmd, func(ctx context.Context, a *app, progress tasks.ProgressFunc) (*models.ImportStats, error) {
		return a.importer.UpdateExistingArtists(ctx, progress)
	})
}

// RefreshDates fills missing release dates.
func (r *Runner) RefreshDates(ctx context.Context, cmd *cli.Command) error {
	return r.runImport(ctx, cmd, func(ctx context.Context, a *app, progress tasks.ProgressFunc) (*models.ImportStats, error) {
		return a.importer.BackfillReleaseDates(ctx, progress)
	})
}

// runImport opens the pipeline, runs fn with a progress reporter and writes the resulting stats.
// Stats are written even when fn fails part way through.
func (r *Runner) runImport(ctx context.Context, cmd *cli.Command, fn importFunc) error {
	format, err := r.format(cmd)
	if err != nil {
		return err
	}

	return r.withApp(cmd.Duration("delay"), func(a *app) error {
		reporter := newProgressReporter(r.progress, r.logger)
		stats, runErr := fn(ctx, a, reporter.Report)
		reporter.Finish()

		if stats != nil {
			if err := formatter.WriteStats(r.output, format, stats); err != nil {
				return err
			}
		}
		if cmd.Bool("stats") {
			if err := formatter.WriteProviderStats(r.output, format, a.aggregator.Stats()); err != nil {
				return err
			}
		}
		return runErr
	})
}

// progressReporter renders [tasks.ProgressUpdate] as a progress bar on a terminal and as log lines otherwise.
type progressReporter struct {
	w      io.Writer
	logger *log.Logger
	tty    bool
	bar    *progressbar.ProgressBar
	phase  tasks.Phase
}

func newProgressReporter(w io.Writer, logger *log.Logger) *progressReporter {
	return &progressReporter{w: w, logger: logger, tty: isTerminal(w), phase: -1}
}

// Report satisfies [tasks.ProgressFunc]. It never aborts the run.
func (p *progressReporter) Report(u tasks.ProgressUpdate) error {
	if !p.tty {
		if u.Result != nil && !u.Result.OK() {
			p.logger.Warn(u.Message, "phase", u.Phase)
		} else {
			p.logger.Info(u.Message, "phase", u.Phase)
		}
		return nil
	}

	if p.bar == nil || p.phase != u.Phase {
		p.Finish()
		p.phase = u.Phase
		p.bar = progressbar.NewOptions(u.Total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(u.Message),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	p.bar.Describe(u.Message)
	_ = p.bar.Set(u.Step)
	return nil
}

// Finish clears the current bar, if any.
func (p *progressReporter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
