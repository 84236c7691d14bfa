package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/crate/internal/catalog"
	"github.com/desertthunder/crate/internal/jobs"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/playlists"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
	"github.com/jmoiron/sqlx"
)

// app is the wired pipeline: storage, providers, reconciler, orchestrator and job runner.
type app struct {
	db         *sqlx.DB
	artists    *repositories.ArtistRepository
	releases   *repositories.ReleaseRepository
	jobStore   *repositories.ImportJobRepository
	logStore   *repositories.ImportLogRepository
	aggregator *services.Aggregator
	parser     *playlists.Parser
	importer   *tasks.Importer
	jobs       *jobs.Runner
}

// open connects to the database, applies migrations and builds every component from the config.
// delay overrides the configured inter-artist pause when non-negative.
func (r *Runner) open(delay time.Duration) (*app, error) {
	cfg := r.config

	db, err := shared.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	primary, err := r.provider(cfg.Providers.Primary)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure primary provider: %w", err)
	}

	var fallback services.Provider
	if cfg.Providers.Fallback != "" {
		if fallback, err = r.provider(cfg.Providers.Fallback); err != nil {
			r.logger.Warn("fallback provider disabled", "provider", cfg.Providers.Fallback, "error", err)
			fallback = nil
		}
	}

	var fetchers []playlists.Fetcher
	for _, p := range []services.Provider{primary, fallback} {
		if f, ok := p.(playlists.Fetcher); ok {
			fetchers = append(fetchers, f)
		}
	}

	a := &app{
		db:         db,
		artists:    repositories.NewArtistRepository(db),
		releases:   repositories.NewReleaseRepository(db),
		jobStore:   repositories.NewImportJobRepository(db),
		logStore:   repositories.NewImportLogRepository(db),
		aggregator: services.NewAggregator(primary, fallback, r.logger),
		parser:     playlists.NewParser(r.logger, fetchers...),
	}

	reconciler := catalog.NewReconciler(a.aggregator, a.artists, a.releases, repositories.NewDiscographyCacheRepository(db), r.logger)

	if delay < 0 {
		delay = cfg.Import.ArtistDelay()
	}
	if delay == 0 {
		delay = -1
	}
	a.importer = tasks.NewImporter(a.parser, reconciler, a.artists, a.releases, a.aggregator, tasks.ImporterOpts{
		ArtistDelay: delay,
		StaleAfter:  cfg.Import.StaleAfter(),
		Logger:      r.logger,
	})
	a.jobs = jobs.NewRunner(a.jobStore, a.importer, r.logger)

	return a, nil
}

// Close waits for background jobs and closes the database.
func (a *app) Close() error {
	a.jobs.Wait()
	return a.db.Close()
}

func (r *Runner) scheduler(a *app) *jobs.Scheduler {
	cfg := r.config.Scheduler
	return jobs.NewScheduler(a.jobs, a.logStore, cfg.Playlists, cfg.Interval(), r.logger)
}

// provider builds the client for a configured provider name.
func (r *Runner) provider(name string) (services.Provider, error) {
	source, err := models.ParseSource(name)
	if err != nil {
		return nil, err
	}

	p := r.config.Providers
	retry := services.DefaultRetryPolicy()
	if p.MaxRetries > 0 {
		retry.MaxAttempts = p.MaxRetries
	}

	httpClient := r.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: p.Timeout()}
	}

	switch source {
	case models.SourceDeezer:
		return services.NewDeezerClient(services.DeezerOpts{
			BaseURL:           p.Deezer.BaseURL,
			HTTPClient:        httpClient,
			UserAgent:         p.UserAgent,
			RequestsPerSecond: p.Deezer.RequestsPerSecond,
			Burst:             p.Deezer.Burst,
			Retry:             retry,
			DetailConcurrency: p.Deezer.DetailConcurrency,
			DetailCacheTTL:    time.Duration(p.Deezer.DetailCacheMinutes) * time.Minute,
			Logger:            r.logger,
		}), nil
	case models.SourceSpotify:
		client, err := services.NewSpotifyClient(services.SpotifyOpts{
			ClientID:          p.Spotify.ClientID,
			ClientSecret:      p.Spotify.ClientSecret,
			BaseURL:           p.Spotify.BaseURL,
			TokenURL:          p.Spotify.TokenURL,
			Market:            p.Spotify.Market,
			HTTPClient:        httpClient,
			UserAgent:         p.UserAgent,
			RequestsPerSecond: p.Spotify.RequestsPerSecond,
			Burst:             p.Spotify.Burst,
			Retry:             retry,
			Logger:            r.logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: provider %s", shared.ErrInvalidConfig, source)
	}
}

// withApp opens the pipeline for the duration of fn.
func (r *Runner) withApp(delay time.Duration, fn func(*app) error) error {
	a, err := r.open(delay)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}
