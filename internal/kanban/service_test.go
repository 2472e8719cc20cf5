package kanban_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"jobmate/matching-service/internal/db"
	"jobmate/matching-service/internal/kanban"
	"jobmate/matching-service/internal/model"
	"jobmate/matching-service/internal/validation"
)

type fakeStore struct {
	status    map[string]model.JobStatus
	updateErr error
}

func (f *fakeStore) GetJobStatus(_ context.Context, _, jobID string) (model.JobStatus, error) {
	s, ok := f.status[jobID]
	if !ok {
		return "", db.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) UpdateJobStatus(_ context.Context, _, jobID string, from, to model.JobStatus) (*model.Job, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.status[jobID] != from {
		return nil, db.ErrNotFound
	}
	f.status[jobID] = to
	return &model.Job{ID: jobID, Status: to}, nil
}

func TestMoveJob_Allowed(t *testing.T) {
	store := &fakeStore{status: map[string]model.JobStatus{"j1": model.JobRecommended}}
	svc := kanban.NewService(store, zap.NewNop())

	job, err := svc.MoveJob(context.Background(), "u1", "j1", "applied")
	if err != nil {
		t.Fatalf("MoveJob returned unexpected error: %v", err)
	}
	if job.Status != model.JobApplied {
		t.Errorf("job.Status = %q, want applied", job.Status)
	}
}

func TestMoveJob_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		jobID  string
		status string
	}{
		{"unknown status", "j1", "hired"},
		{"skip level", "j1", "offer"},
		{"from terminal", "done", "applied"},
	}
	store := &fakeStore{status: map[string]model.JobStatus{
		"j1":   model.JobRecommended,
		"done": model.JobRejected,
	}}
	svc := kanban.NewService(store, zap.NewNop())

	for _, c := range cases {
		_, err := svc.MoveJob(context.Background(), "u1", c.jobID, c.status)
		if !validation.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", c.name, err)
		}
	}
}

func TestMoveJob_NotFound(t *testing.T) {
	svc := kanban.NewService(&fakeStore{status: map[string]model.JobStatus{}}, zap.NewNop())
	_, err := svc.MoveJob(context.Background(), "u1", "missing", "applied")
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected db.ErrNotFound, got %v", err)
	}
}

func TestMoveJob_StoreError(t *testing.T) {
	store := &fakeStore{
		status:    map[string]model.JobStatus{"j1": model.JobApplied},
		updateErr: errors.New("connection refused"),
	}
	_, err := kanban.NewService(store, zap.NewNop()).MoveJob(context.Background(), "u1", "j1", "interviewing")
	if err == nil || validation.IsValidation(err) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}
