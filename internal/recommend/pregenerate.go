package recommend

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/tagsearch/internal/jobs"
	"github.com/gcbaptista/tagsearch/internal/metrics"
	"github.com/gcbaptista/tagsearch/model"
)

// StartPregeneration recomputes recommendations for every eligible post in the
// background. It returns immediately; a run already in progress yields a
// ConflictError and is left untouched.
func (e *Engine) StartPregeneration() (model.JobProgress, error) {
	return e.runner.Start(e.pregenerate)
}

// PregenerationProgress returns the state of the current or last run.
func (e *Engine) PregenerationProgress() model.JobProgress {
	return e.runner.Progress()
}

// WaitPregeneration blocks until an active run finishes.
func (e *Engine) WaitPregeneration(ctx context.Context) error {
	return e.runner.Wait(ctx)
}

// pregenerate walks eligible posts with a bounded worker pool. A failing post is
// logged and skipped; only a failure to list posts fails the run.
func (e *Engine) pregenerate(ctx context.Context, run *jobs.Run) error {
	ids, err := e.store.EligiblePostIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list eligible posts: %w", err)
	}
	run.SetTotal(len(ids))

	workers := e.settings.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		g.Go(func() error {
			if _, err := e.refresh(gctx, id, true); err != nil {
				e.logger.Warn().Err(err).Int64("post_id", id).Str("run_id", run.ID()).Msg("pregeneration failed for post")
				metrics.PregenerationPosts.WithLabelValues("failed").Inc()
				run.Processed(true)
				return nil
			}
			metrics.PregenerationPosts.WithLabelValues("ok").Inc()
			run.Processed(false)
			return nil
		})
	}
	return g.Wait()
}
