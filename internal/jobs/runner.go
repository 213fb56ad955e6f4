// Package jobs runs a single long-lived background job with an explicit state machine.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/gcbaptista/tagsearch/internal/errors"
	"github.com/gcbaptista/tagsearch/internal/persistence"
	"github.com/gcbaptista/tagsearch/model"
)

// interruptedError is recorded for a run found "running" in a snapshot at startup.
const interruptedError = "interrupted by process restart"

var stateNames = [...]model.JobStatus{
	stateIdle:      model.JobStatusIdle,
	stateRunning:   model.JobStatusRunning,
	stateCompleted: model.JobStatusCompleted,
	stateFailed:    model.JobStatusFailed,
}

const (
	stateIdle int32 = iota
	stateRunning
	stateCompleted
	stateFailed
)

// WorkFunc performs one run. It reports progress through run and returns a
// non-nil error only when the run as a whole failed.
type WorkFunc func(ctx context.Context, run *Run) error

// Runner owns one job type. Idle, Completed and Failed may move to Running through
// a compare-and-swap, so two concurrent starts can never both succeed; Running
// moves to Completed or Failed when the work returns. Starting while Running is
// rejected, never queued. Runs cannot be cancelled.
type Runner struct {
	jobType     model.JobType
	state       atomic.Int32
	kv          persistence.KV
	snapshotKey string
	flushEvery  int
	metrics     *JobMetrics
	logger      zerolog.Logger

	mu       sync.RWMutex
	progress model.JobProgress
	done     chan struct{}
}

// NewRunner creates a Runner. When kv is non-nil, progress snapshots are persisted
// under snapshotKey every flushEvery processed items and on every state change.
func NewRunner(jobType model.JobType, kv persistence.KV, snapshotKey string, flushEvery int, logger zerolog.Logger) *Runner {
	if flushEvery <= 0 {
		flushEvery = 100
	}
	r := &Runner{
		jobType:     jobType,
		kv:          kv,
		snapshotKey: snapshotKey,
		flushEvery:  flushEvery,
		metrics:     NewJobMetrics(jobType),
		logger:      logger.With().Str("component", "jobs").Str("job_type", string(jobType)).Logger(),
		progress:    model.JobProgress{Type: jobType, Status: model.JobStatusIdle},
	}
	return r
}

// Restore loads the last persisted snapshot so progress survives restarts. A run
// that was still running when the process died is recorded as failed.
func (r *Runner) Restore(ctx context.Context) error {
	if r.kv == nil {
		return nil
	}

	var snap model.JobProgress
	err := persistence.LoadJSON(ctx, r.kv, r.snapshotKey, &snap)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to restore %s progress: %w", r.jobType, err)
	}

	snap.Type = r.jobType
	state := stateFromStatus(snap.Status)
	if state == stateRunning {
		now := time.Now()
		snap.Status = model.JobStatusFailed
		snap.Error = interruptedError
		snap.CompletedAt = &now
		state = stateFailed
		r.logger.Warn().Str("run_id", snap.RunID).Msg("previous run was interrupted, marking failed")
	}

	r.mu.Lock()
	r.progress = snap
	r.mu.Unlock()
	r.state.Store(state)

	return r.persist(ctx, snap)
}

// Start launches work in a detached goroutine and returns the initial snapshot.
// It returns a ConflictError if a run is already active.
func (r *Runner) Start(work WorkFunc) (model.JobProgress, error) {
	if !r.tryAcquire() {
		r.metrics.RecordRejected()
		return r.Progress(), apperrors.NewConflictError(string(r.jobType))
	}
	r.metrics.RecordStarted()

	now := time.Now()
	run := &Run{runner: r, id: uuid.New().String()}
	done := make(chan struct{})

	r.mu.Lock()
	r.progress = model.JobProgress{
		RunID:     run.id,
		Type:      r.jobType,
		Status:    model.JobStatusRunning,
		StartedAt: &now,
	}
	r.done = done
	snap := r.progress
	r.mu.Unlock()

	r.persistLogged(snap)
	r.logger.Info().Str("run_id", run.id).Msg("job started")

	go func() {
		defer close(done)
		// Detached from any request: the run must outlive the caller.
		ctx := context.Background()
		err := work(ctx, run)
		r.finish(run, err, time.Since(now))
	}()

	return snap, nil
}

// Progress returns a snapshot of the current or last run.
func (r *Runner) Progress() model.JobProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.progress
}

// Running reports whether a run is active.
func (r *Runner) Running() bool {
	return r.state.Load() == stateRunning
}

// Wait blocks until the active run, if any, finishes or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.RLock()
	done := r.done
	r.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetMetrics returns run metrics
func (r *Runner) GetMetrics() JobMetricsData {
	return r.metrics.GetMetrics()
}

func (r *Runner) tryAcquire() bool {
	for {
		cur := r.state.Load()
		if cur == stateRunning {
			return false
		}
		if r.state.CompareAndSwap(cur, stateRunning) {
			return true
		}
	}
}

func (r *Runner) finish(run *Run, err error, elapsed time.Duration) {
	now := time.Now()
	status := model.JobStatusCompleted
	state := stateCompleted
	if err != nil {
		status = model.JobStatusFailed
		state = stateFailed
	}

	r.mu.Lock()
	r.progress.Status = status
	r.progress.CompletedAt = &now
	if err != nil {
		r.progress.Error = err.Error()
	}
	snap := r.progress
	r.mu.Unlock()

	r.persistLogged(snap)
	r.metrics.RecordFinished(status, elapsed)
	// release last so a new run cannot start before the snapshot is final
	r.state.Store(state)

	event := r.logger.Info()
	if err != nil {
		event = r.logger.Error().Err(err)
	}
	event.Str("run_id", run.id).
		Int("processed", snap.Processed).
		Int("failed", snap.Failed).
		Int("total", snap.Total).
		Dur("elapsed", elapsed).
		Msgf("job %s", status)
}

func (r *Runner) persist(ctx context.Context, snap model.JobProgress) error {
	if r.kv == nil {
		return nil
	}
	return persistence.SaveJSON(ctx, r.kv, r.snapshotKey, snap)
}

func (r *Runner) persistLogged(snap model.JobProgress) {
	if err := r.persist(context.Background(), snap); err != nil {
		r.logger.Warn().Err(err).Msg("failed to persist job progress")
	}
}

func stateFromStatus(s model.JobStatus) int32 {
	for state, name := range stateNames {
		if name == s {
			return int32(state)
		}
	}
	return stateIdle
}

// Run is the handle a WorkFunc uses to report progress.
type Run struct {
	runner *Runner
	id     string
}

// ID returns the run id
func (run *Run) ID() string { return run.id }

// SetTotal records how many items the run will process.
func (run *Run) SetTotal(total int) {
	r := run.runner
	r.mu.Lock()
	r.progress.Total = total
	snap := r.progress
	r.mu.Unlock()
	r.persistLogged(snap)
}

// Processed records one finished item; failed items count towards both
// Processed and Failed.
func (run *Run) Processed(failed bool) {
	r := run.runner
	r.mu.Lock()
	r.progress.Processed++
	if failed {
		r.progress.Failed++
	}
	flush := r.progress.Processed%r.flushEvery == 0
	snap := r.progress
	r.mu.Unlock()

	if flush {
		r.persistLogged(snap)
	}
}
