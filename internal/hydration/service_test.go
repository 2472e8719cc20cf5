package hydration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobmate/matching-service/internal/db"
	"jobmate/matching-service/internal/model"
	"jobmate/matching-service/internal/provider"
	"jobmate/matching-service/internal/validation"
)

type fakeStore struct {
	jobs      map[string]*model.Job
	updates   []*model.JobDetails
	updateErr error
}

func (f *fakeStore) GetJob(_ context.Context, _, jobID string) (*model.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeStore) UpdateJobDetails(_ context.Context, _, _ string, det *model.JobDetails) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, det)
	return nil
}

type fakeHydrator struct {
	det   *model.JobDetails
	err   error
	calls int
}

func (f *fakeHydrator) Name() string { return "fake" }

func (f *fakeHydrator) Fetch(context.Context, string, provider.FetchOptions) ([]model.RawListing, error) {
	return nil, nil
}

func (f *fakeHydrator) Hydrate(context.Context, string) (*model.JobDetails, error) {
	f.calls++
	return f.det, f.err
}

func shallowStore() *fakeStore {
	return &fakeStore{jobs: map[string]*model.Job{
		"j1": {ID: "j1", UserID: "u1", SourceName: "fake", SourceID: "ext-1", Title: "Go Developer"},
	}}
}

func TestHydrateJob_WritesDetails(t *testing.T) {
	store := shallowStore()
	h := &fakeHydrator{det: &model.JobDetails{Description: "Build APIs", Technographics: []string{"go"}}}
	svc := NewService(store, provider.NewRegistryFrom(h), zap.NewNop())

	assert.True(t, svc.HydrateJob(context.Background(), "u1", "j1", h))
	require.Len(t, store.updates, 1)
	assert.Equal(t, "Build APIs", store.updates[0].Description)

	// hydrating again overwrites with the latest values
	h.det = &model.JobDetails{Description: "Build better APIs"}
	assert.True(t, svc.HydrateJob(context.Background(), "u1", "j1", h))
	assert.Len(t, store.updates, 2)
}

func TestHydrateJob_FailuresDegradeToFalse(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
		h     *fakeHydrator
	}{
		{"provider error", shallowStore(), &fakeHydrator{err: errors.New("timeout")}},
		{"not found at provider", shallowStore(), &fakeHydrator{}},
		{"empty details", shallowStore(), &fakeHydrator{det: &model.JobDetails{}}},
		{"unknown job", &fakeStore{jobs: map[string]*model.Job{}}, &fakeHydrator{det: &model.JobDetails{Description: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.store, provider.NewRegistryFrom(), zap.NewNop())
			assert.False(t, svc.HydrateJob(context.Background(), "u1", "j1", tt.h))
			assert.Empty(t, tt.store.updates)
		})
	}
}

func TestHydrateJob_UpdateErrorReturnsFalse(t *testing.T) {
	store := shallowStore()
	store.updateErr = errors.New("db down")
	h := &fakeHydrator{det: &model.JobDetails{Description: "x"}}
	svc := NewService(store, provider.NewRegistryFrom(), zap.NewNop())

	assert.False(t, svc.HydrateJob(context.Background(), "u1", "j1", h))
}

func TestHydrateByName(t *testing.T) {
	store := shallowStore()
	svc := NewService(store, provider.NewRegistryFrom(provider.NewMock()), zap.NewNop())

	_, err := svc.HydrateByName(context.Background(), "u1", "j1", "linkedin")
	assert.True(t, validation.IsValidation(err))

	ok, err := svc.HydrateByName(context.Background(), "u1", "j1", "mock")
	require.NoError(t, err)
	assert.False(t, ok, "mock only knows its own ids")

	store.jobs["j1"].SourceID = "mock-go-1"
	ok, err = svc.HydrateByName(context.Background(), "u1", "j1", "mock")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHydrateIfShallow(t *testing.T) {
	h := &fakeHydrator{det: &model.JobDetails{Description: "x", Technographics: []string{"go"}}}
	svc := NewService(shallowStore(), provider.NewRegistryFrom(h), zap.NewNop())

	hydrated := &model.Job{ID: "j2", SourceName: "fake", Description: "done", Technographics: []string{"go"}}
	assert.False(t, svc.HydrateIfShallow(context.Background(), hydrated))
	assert.Zero(t, h.calls)

	orphan := &model.Job{ID: "j3", SourceName: "adzuna"}
	assert.False(t, svc.HydrateIfShallow(context.Background(), orphan))

	shallow := &model.Job{ID: "j1", UserID: "u1", SourceName: "fake", SourceID: "ext-1"}
	assert.True(t, svc.HydrateIfShallow(context.Background(), shallow))
	assert.Equal(t, 1, h.calls)
}
