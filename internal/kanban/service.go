package kanban

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"jobmate/matching-service/internal/db"
	"jobmate/matching-service/internal/model"
	"jobmate/matching-service/internal/validation"
)

// Store reads and writes job statuses.
type Store interface {
	GetJobStatus(ctx context.Context, userID, jobID string) (model.JobStatus, error)
	UpdateJobStatus(ctx context.Context, userID, jobID string, from, to model.JobStatus) (*model.Job, error)
}

// Service moves jobs across the board. It is transport-agnostic.
type Service struct {
	store Store
	log   *zap.Logger
}

// NewService returns a configured Service.
func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log.With(zap.String("component", "kanban"))}
}

// MoveJob transitions a job to a new status.
// Returns db.ErrNotFound if the job does not exist or belong to userID.
// Returns a *validation.Error if the state machine rejects the transition.
func (s *Service) MoveJob(ctx context.Context, userID, jobID, newStatusStr string) (*model.Job, error) {
	to, err := ParseStatus(newStatusStr)
	if err != nil {
		return nil, validation.Errorf("%s", err.Error())
	}

	from, err := s.store.GetJobStatus(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if !IsTransitionAllowed(from, to) {
		return nil, validation.Errorf("transition %s → %s is not allowed", from, to)
	}

	job, err := s.store.UpdateJobStatus(ctx, userID, jobID, from, to)
	if errors.Is(err, db.ErrNotFound) {
		// moved by someone else between the read and the write
		return nil, validation.Errorf("job status changed concurrently, retry")
	}
	if err != nil {
		return nil, fmt.Errorf("moveJob update: %w", err)
	}

	s.log.Info("job moved",
		zap.String("userId", userID),
		zap.String("jobId", jobID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return job, nil
}
