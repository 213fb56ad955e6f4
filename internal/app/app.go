// Package app wires storage, caches and services into one process-scoped unit.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/gcbaptista/tagsearch/config"
	"github.com/gcbaptista/tagsearch/internal/cache"
	apperrors "github.com/gcbaptista/tagsearch/internal/errors"
	"github.com/gcbaptista/tagsearch/internal/groups"
	"github.com/gcbaptista/tagsearch/internal/ingest"
	"github.com/gcbaptista/tagsearch/internal/jobs"
	"github.com/gcbaptista/tagsearch/internal/persistence"
	"github.com/gcbaptista/tagsearch/internal/ratelimit"
	"github.com/gcbaptista/tagsearch/internal/recommend"
	"github.com/gcbaptista/tagsearch/internal/search"
	"github.com/gcbaptista/tagsearch/internal/stats"
	"github.com/gcbaptista/tagsearch/internal/storage"
	"github.com/gcbaptista/tagsearch/internal/suggest"
	"github.com/gcbaptista/tagsearch/model"
	"github.com/gcbaptista/tagsearch/services"
)

// App owns every long-lived component. Caches live and die with it; nothing is
// held in package-level state.
type App struct {
	Config *config.Config

	Search    *search.Service
	Groups    *groups.Service
	Recommend *recommend.Engine
	Ingest    *ingest.Service
	Stats     *stats.Service
	Suggest   *suggest.Service
	Limiter   *ratelimit.Limiter

	store    *storage.SQLiteStorage
	registry *cache.Registry
	runner   *jobs.Runner
	cron     *cron.Cron
	logger   zerolog.Logger

	closeOnce sync.Once
}

var _ services.CacheResetter = (*App)(nil)

// New opens the database at cfg.Database.Path and builds every service.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a, err := NewWithStore(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStore builds the services over an already opened store. The App takes
// ownership of store.
func NewWithStore(cfg *config.Config, store *storage.SQLiteStorage, logger zerolog.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		store:    store,
		registry: cache.NewRegistry(),
		logger:   logger.With().Str("component", "app").Logger(),
	}

	searchCaches, err := search.NewCaches(cfg.Cache, a.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create search caches: %w", err)
	}
	if a.Search, err = search.NewService(store, searchCaches, cfg.Search, logger); err != nil {
		return nil, err
	}
	if a.Groups, err = groups.NewService(store, cfg.Cache, cfg.Groups, a.registry, logger); err != nil {
		return nil, err
	}

	a.runner = jobs.NewRunner(model.JobTypePregenerateRecommendations, store,
		persistence.KeyPregeneration, cfg.Recommend.ProgressFlushEvery, logger)
	if a.Recommend, err = recommend.NewEngine(store, a.runner, cfg.Recommend, logger); err != nil {
		return nil, err
	}
	if a.Ingest, err = ingest.NewService(store, a, logger); err != nil {
		return nil, err
	}
	if a.Stats, err = stats.NewService(store, a.Groups, cfg.Recommend.StatsTTL, logger); err != nil {
		return nil, err
	}
	if a.Suggest, err = suggest.NewService(store); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Enabled {
		a.Limiter = ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.CleanupInterval)
	}

	if spec := cfg.Recommend.PregenerateSchedule; spec != "" {
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(spec, a.scheduledPregeneration); err != nil {
			return nil, fmt.Errorf("invalid recommend.pregenerate_schedule %q: %w", spec, err)
		}
	}

	return a, nil
}

// Start restores persisted job state and starts the scheduler, if any.
func (a *App) Start(ctx context.Context) error {
	if err := a.runner.Restore(ctx); err != nil {
		return err
	}
	if a.cron != nil {
		a.cron.Start()
		a.logger.Info().Str("schedule", a.Config.Recommend.PregenerateSchedule).Msg("pregeneration scheduler started")
	}
	a.logger.Info().
		Str("database", a.Config.Database.Path).
		Strs("caches", a.registry.Names()).
		Msg("application started")
	return nil
}

// Close stops the scheduler, waits for an active pregeneration run to finish or
// ctx to expire, and closes the database.
func (a *App) Close(ctx context.Context) error {
	var err error
	a.closeOnce.Do(func() {
		if a.cron != nil {
			<-a.cron.Stop().Done()
		}
		if werr := a.runner.Wait(ctx); werr != nil {
			a.logger.Warn().Err(werr).Msg("closing with pregeneration still running")
		}
		err = a.store.Close()
	})
	return err
}

// ResetCaches clears every process-local cache.
func (a *App) ResetCaches() {
	a.registry.ResetAll()
	a.logger.Info().Msg("caches reset")
}

// CacheSizes returns the entry count of every registered cache.
func (a *App) CacheSizes() map[string]int {
	return a.registry.Sizes()
}

// Ping checks the database connection.
func (a *App) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// SchemaVersion reports the applied database schema version.
func (a *App) SchemaVersion(ctx context.Context) (string, error) {
	return a.store.SchemaVersion(ctx)
}

func (a *App) scheduledPregeneration() {
	p, err := a.Recommend.StartPregeneration()
	if errors.Is(err, apperrors.ErrConflict) {
		a.logger.Info().Str("run_id", p.RunID).Msg("scheduled pregeneration skipped, a run is active")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("scheduled pregeneration failed to start")
		return
	}
	a.logger.Info().Str("run_id", p.RunID).Msg("scheduled pregeneration started")
}
