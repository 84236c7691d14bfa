package main

import (
	"context"
	"time"

	"github.com/desertthunder/crate/internal/server"
	"github.com/urfave/cli/v3"
)

// shutdownGrace bounds how long in-flight jobs get after the server stops.
const shutdownGrace = 30 * time.Second

// Serve runs the admin HTTP server, the job runner and, when enabled, the scheduler until ctx ends.
// Jobs left processing by a previous process are failed before serving.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	return r.withApp(-1, func(a *app) error {
		recovered, err := a.jobs.RecoverInterrupted(ctx)
		if err != nil {
			return err
		}
		if recovered > 0 {
			r.logger.Warn("failed interrupted import jobs", "count", recovered)
		}

		scheduler := r.scheduler(a)
		defer scheduler.Stop()
		if r.config.Scheduler.Enabled {
			scheduler.Start(ctx)
		}

		srv, err := server.New(server.Deps{
			Jobs:      a.jobs,
			Logs:      a.logStore,
			Scheduler: scheduler,
			Stats:     a.aggregator,
			Logger:    r.logger,
		})
		if err != nil {
			return err
		}

		serveErr := srv.ListenAndServe(ctx, addr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.jobs.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("import jobs did not stop in time", "error", err)
		}

		return serveErr
	})
}
