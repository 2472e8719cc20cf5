// Package progress maintains the single-row-per-user discovery progress
// record that clients poll while an ingestion run is in flight.
package progress

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobmate/matching-service/internal/model"
)

// Store persists progress snapshots.
type Store interface {
	SaveProgress(ctx context.Context, p model.DiscoveryProgress) error
	GetProgress(ctx context.Context, userID string) (*model.DiscoveryProgress, error)
}

// Tracker hands out a Reporter per run.
type Tracker struct {
	store Store
	log   *zap.Logger
}

// NewTracker returns a Tracker writing through store.
func NewTracker(store Store, log *zap.Logger) *Tracker {
	return &Tracker{store: store, log: log}
}

// Get returns the latest snapshot for the user.
func (t *Tracker) Get(ctx context.Context, userID string) (*model.DiscoveryProgress, error) {
	return t.store.GetProgress(ctx, userID)
}

// Begin resets the user's record to step 0 of totalSteps.
func (t *Tracker) Begin(ctx context.Context, userID string, totalSteps int, message string) *Reporter {
	if totalSteps < 1 {
		totalSteps = 1
	}
	r := &Reporter{
		store: t.store,
		log:   t.log,
		p: model.DiscoveryProgress{
			UserID:     userID,
			Status:     model.ProgressInProgress,
			TotalSteps: totalSteps,
			Message:    message,
		},
	}
	r.mu.Lock()
	r.saveLocked(ctx)
	r.mu.Unlock()
	return r
}

// Reporter advances one run's progress. It is safe for concurrent use by
// the provider goroutines of a run. Every change is saved under the same
// lock that made it, so stored snapshots never go backwards. Save failures
// are logged only: progress is advisory and never fails a run.
type Reporter struct {
	mu    sync.Mutex
	store Store
	log   *zap.Logger
	p     model.DiscoveryProgress
}

// Step marks one more step done.
func (r *Reporter) Step(ctx context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.p.CurrentStep < r.p.TotalSteps {
		r.p.CurrentStep++
	}
	r.p.Percentage = r.p.CurrentStep * 100 / r.p.TotalSteps
	r.p.Message = message
	r.saveLocked(ctx)
}

// Complete marks the run finished.
func (r *Reporter) Complete(ctx context.Context, message string) {
	r.finish(ctx, model.ProgressCompleted, message)
}

// Fail marks the run failed, keeping the step reached.
func (r *Reporter) Fail(ctx context.Context, message string) {
	r.finish(ctx, model.ProgressFailed, message)
}

// Snapshot returns the current state.
func (r *Reporter) Snapshot() model.DiscoveryProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.p
}

func (r *Reporter) finish(ctx context.Context, status model.ProgressStatus, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p.Status = status
	r.p.Message = message
	if status == model.ProgressCompleted {
		r.p.CurrentStep = r.p.TotalSteps
		r.p.Percentage = 100
	}
	r.saveLocked(ctx)
}

// saveLocked writes the current state. r.mu must be held.
func (r *Reporter) saveLocked(ctx context.Context) {
	r.p.UpdatedAt = time.Now().UTC()
	if err := r.store.SaveProgress(ctx, r.p); err != nil {
		r.log.Warn("save discovery progress failed",
			zap.String("userId", r.p.UserID),
			zap.Error(err),
		)
	}
}
