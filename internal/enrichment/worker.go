// Package enrichment hydrates, embeds and scores freshly ingested jobs off
// the request path.
package enrichment

import (
	"context"

	"go.uber.org/zap"

	"jobmate/matching-service/internal/events"
	"jobmate/matching-service/internal/model"
	"jobmate/matching-service/internal/scoring"
)

// Jobs loads persisted jobs.
type Jobs interface {
	GetJob(ctx context.Context, userID, jobID string) (*model.Job, error)
}

// Hydrator fills shallow jobs.
type Hydrator interface {
	HydrateIfShallow(ctx context.Context, job *model.Job) bool
}

// Embedder computes and stores vectors.
type Embedder interface {
	UpdateJobEmbedding(ctx context.Context, userID, jobID string) (bool, error)
	UpdateProfileEmbedding(ctx context.Context, userID string) (bool, error)
	BackfillJobs(ctx context.Context, limit int) (int, error)
	BackfillProfiles(ctx context.Context, limit int) (int, error)
}

// Scorer persists match scores.
type Scorer interface {
	CalculateJobMatch(ctx context.Context, userID, jobID string) (*scoring.MatchResult, error)
	BatchScoring(ctx context.Context, userID string) (*scoring.BatchResult, error)
	Sweep(ctx context.Context) (int, error)
}

// backfillLimit caps one maintenance pass per table.
const backfillLimit = 500

// Worker consumes pipeline events from a bounded queue.
type Worker struct {
	jobs     Jobs
	hydrator Hydrator
	embedder Embedder
	scorer   Scorer
	queue    chan events.Event
	log      *zap.Logger
}

// NewWorker returns a Worker with a queue of queueSize events.
func NewWorker(jobs Jobs, hydrator Hydrator, embedder Embedder, scorer Scorer, queueSize int, log *zap.Logger) *Worker {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Worker{
		jobs:     jobs,
		hydrator: hydrator,
		embedder: embedder,
		scorer:   scorer,
		queue:    make(chan events.Event, queueSize),
		log:      log.With(zap.String("component", "enrichment")),
	}
}

// Subscribe routes jobs:ingested and profile:updated into the queue.
func (w *Worker) Subscribe(bus *events.Bus) {
	handler := func(_ context.Context, e events.Event) { w.Enqueue(e) }
	bus.Subscribe(events.JobsIngested, handler)
	bus.Subscribe(events.ProfileUpdated, handler)
}

// Enqueue never blocks. A full queue drops the event; the maintenance
// sweep picks the work up later.
func (w *Worker) Enqueue(e events.Event) bool {
	select {
	case w.queue <- e:
		return true
	default:
		w.log.Warn("enrichment queue full, dropping event",
			zap.String("event", e.Name),
			zap.String("userId", e.UserID),
			zap.Int("jobs", len(e.JobIDs)),
		)
		return false
	}
}

// Run processes events until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("enrichment worker started", zap.Int("queueSize", cap(w.queue)))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("enrichment worker stopped")
			return
		case e := <-w.queue:
			w.handle(ctx, e)
		}
	}
}

func (w *Worker) handle(ctx context.Context, e events.Event) {
	switch e.Name {
	case events.JobsIngested:
		for _, id := range e.JobIDs {
			if ctx.Err() != nil {
				return
			}
			w.enrichJob(ctx, e.UserID, id)
		}
	case events.ProfileUpdated:
		w.refreshProfile(ctx, e.UserID)
	default:
		w.log.Debug("ignoring event", zap.String("event", e.Name))
	}
}

func (w *Worker) enrichJob(ctx context.Context, userID, jobID string) {
	log := w.log.With(zap.String("userId", userID), zap.String("jobId", jobID))

	job, err := w.jobs.GetJob(ctx, userID, jobID)
	if err != nil {
		log.Warn("enrich: load job failed", zap.Error(err))
		return
	}
	w.hydrator.HydrateIfShallow(ctx, job)

	embedded, err := w.embedder.UpdateJobEmbedding(ctx, userID, jobID)
	if err != nil {
		log.Warn("enrich: embedding failed", zap.Error(err))
		return
	}
	if !embedded {
		return
	}

	if _, err := w.scorer.CalculateJobMatch(ctx, userID, jobID); err != nil {
		log.Warn("enrich: scoring failed", zap.Error(err))
	}
}

func (w *Worker) refreshProfile(ctx context.Context, userID string) {
	log := w.log.With(zap.String("userId", userID))

	if _, err := w.embedder.UpdateProfileEmbedding(ctx, userID); err != nil {
		log.Warn("profile embedding failed", zap.Error(err))
		return
	}
	res, err := w.scorer.BatchScoring(ctx, userID)
	if err != nil {
		log.Warn("batch scoring failed", zap.Error(err))
		return
	}
	log.Info("profile rescored", zap.Int("count", res.Count))
}

// CatchUp embeds whatever the queue dropped or failed on, then rescores
// every stale match.
func (w *Worker) CatchUp(ctx context.Context) error {
	jobs, err := w.embedder.BackfillJobs(ctx, backfillLimit)
	if err != nil {
		return err
	}
	profiles, err := w.embedder.BackfillProfiles(ctx, backfillLimit)
	if err != nil {
		return err
	}
	scored, err := w.scorer.Sweep(ctx)
	if err != nil {
		return err
	}
	w.log.Info("maintenance done",
		zap.Int("jobsEmbedded", jobs),
		zap.Int("profilesEmbedded", profiles),
		zap.Int("matchesScored", scored),
	)
	return nil
}
