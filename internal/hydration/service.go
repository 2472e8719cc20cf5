// Package hydration fills shallow jobs with the deep details a provider can
// return for a single listing.
package hydration

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"jobmate/matching-service/internal/db"
	"jobmate/matching-service/internal/model"
	"jobmate/matching-service/internal/provider"
	"jobmate/matching-service/internal/validation"
)

// Store is the persistence hydration needs.
type Store interface {
	GetJob(ctx context.Context, userID, jobID string) (*model.Job, error)
	UpdateJobDetails(ctx context.Context, userID, jobID string, det *model.JobDetails) error
}

// Service hydrates persisted jobs.
type Service struct {
	store    Store
	registry *provider.Registry
	log      *zap.Logger
}

// NewService returns a hydration Service.
func NewService(store Store, registry *provider.Registry, log *zap.Logger) *Service {
	return &Service{store: store, registry: registry, log: log.With(zap.String("component", "hydration"))}
}

// HydrateJob fetches details for the job from h and writes them in one
// update. Every failure degrades to a logged false with nothing written.
// Re-hydrating overwrites with the latest values.
func (s *Service) HydrateJob(ctx context.Context, userID, jobID string, h provider.Hydrator) bool {
	log := s.log.With(zap.String("userId", userID), zap.String("jobId", jobID))

	job, err := s.store.GetJob(ctx, userID, jobID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Warn("hydrate: job not found")
		} else {
			log.Error("hydrate: load job failed", zap.Error(err))
		}
		return false
	}
	return s.hydrate(ctx, job, h)
}

// HydrateByName resolves providerName through the registry and hydrates
// the job with it.
func (s *Service) HydrateByName(ctx context.Context, userID, jobID, providerName string) (bool, error) {
	h, ok := s.registry.Hydrator(providerName)
	if !ok {
		return false, validation.Errorf("provider %q is unknown or cannot hydrate", providerName)
	}
	return s.HydrateJob(ctx, userID, jobID, h), nil
}

// HydrateIfShallow hydrates job through its own source adapter when it is
// not hydrated yet. It reports whether details were written.
func (s *Service) HydrateIfShallow(ctx context.Context, job *model.Job) bool {
	if job.IsHydrated() {
		return false
	}
	h, ok := s.registry.Hydrator(job.SourceName)
	if !ok {
		return false
	}
	return s.hydrate(ctx, job, h)
}

func (s *Service) hydrate(ctx context.Context, job *model.Job, h provider.Hydrator) bool {
	log := s.log.With(zap.String("jobId", job.ID), zap.String("sourceId", job.SourceID))

	det, err := h.Hydrate(ctx, job.SourceID)
	if err != nil {
		log.Warn("hydrate: provider call failed", zap.Error(err))
		return false
	}
	if det.IsEmpty() {
		log.Info("hydrate: provider returned no details")
		return false
	}

	if err := s.store.UpdateJobDetails(ctx, job.UserID, job.ID, det); err != nil {
		log.Error("hydrate: update job failed", zap.Error(err))
		return false
	}
	log.Debug("job hydrated", zap.Int("technographics", len(det.Technographics)))
	return true
}
